package marketdata

import (
	"fmt"

	"github.com/vnfinlab/vnquant/internal/database"
	"github.com/vnfinlab/vnquant/internal/domain"
)

// Repository persists financial statements and the symbol universe in
// the central cache database.
type Repository struct {
	db *database.DB
}

// NewRepository creates a new market data repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// SaveStatementTable replaces the cached copy of one statement table.
// The delete-then-insert keeps rows for columns the provider stopped
// reporting from lingering in the cache.
func (r *Repository) SaveStatementTable(table domain.StatementTable) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM statement_values WHERE ticker = ? AND type = ? AND period = ?`,
		table.Ticker, string(table.Type), string(table.Period),
	); err != nil {
		return fmt.Errorf("failed to clear cached statement: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO statement_values (ticker, type, period, year, quarter, column_name, value)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range table.Rows {
		for column, value := range row.Values {
			if _, err := stmt.Exec(
				table.Ticker, string(table.Type), string(table.Period),
				row.Year, row.Quarter, column, value,
			); err != nil {
				return fmt.Errorf("failed to insert statement value: %w", err)
			}
		}
	}

	return tx.Commit()
}

// GetStatementTable loads one cached statement table, rows ordered by
// year then quarter. The returned table has no rows when nothing is
// cached for the key.
func (r *Repository) GetStatementTable(ticker string, st domain.StatementType, period domain.Period) (domain.StatementTable, error) {
	table := domain.StatementTable{Ticker: ticker, Type: st, Period: period}

	rows, err := r.db.Query(`
		SELECT year, quarter, column_name, value
		FROM statement_values
		WHERE ticker = ? AND type = ? AND period = ?
		ORDER BY year, quarter
	`, ticker, string(st), string(period))
	if err != nil {
		return table, fmt.Errorf("failed to query statements: %w", err)
	}
	defer rows.Close()

	index := make(map[[2]int]int)
	for rows.Next() {
		var year, quarter int
		var column string
		var value float64
		if err := rows.Scan(&year, &quarter, &column, &value); err != nil {
			return table, fmt.Errorf("failed to scan statement value: %w", err)
		}

		key := [2]int{year, quarter}
		idx, ok := index[key]
		if !ok {
			idx = len(table.Rows)
			index[key] = idx
			table.Rows = append(table.Rows, domain.StatementRow{
				Ticker:  ticker,
				Year:    year,
				Quarter: quarter,
				Values:  make(map[string]float64),
			})
		}
		table.Rows[idx].Values[column] = value
	}
	if err := rows.Err(); err != nil {
		return table, fmt.Errorf("error iterating statement values: %w", err)
	}

	return table, nil
}

// Symbol is one cached universe entry.
type Symbol struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
}

// ReplaceSymbols swaps the cached universe for the provider's current
// listing.
func (r *Repository) ReplaceSymbols(symbols []Symbol) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM symbols`); err != nil {
		return fmt.Errorf("failed to clear symbols: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO symbols (symbol, name, exchange) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare symbol insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range symbols {
		if _, err := stmt.Exec(s.Symbol, s.Name, s.Exchange); err != nil {
			return fmt.Errorf("failed to insert symbol %s: %w", s.Symbol, err)
		}
	}

	return tx.Commit()
}

// ListStatementTickers returns the distinct tickers with at least one
// cached statement value.
func (r *Repository) ListStatementTickers() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT ticker FROM statement_values ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("failed to query statement tickers: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		tickers = append(tickers, t)
	}
	return tickers, rows.Err()
}

// ListSymbols returns the cached universe in symbol order.
func (r *Repository) ListSymbols() ([]Symbol, error) {
	rows, err := r.db.Query(`SELECT symbol, name, exchange FROM symbols ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []Symbol
	for rows.Next() {
		var s Symbol
		if err := rows.Scan(&s.Symbol, &s.Name, &s.Exchange); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}
