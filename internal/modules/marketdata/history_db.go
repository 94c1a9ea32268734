package marketdata

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog"

	"github.com/vnfinlab/vnquant/internal/domain"
)

// HistoryDB stores long-run daily OHLCV history, one SQLite file per
// symbol under the history directory. Keeping symbols in separate files
// lets the nightly sync rewrite one instrument without touching the
// rest.
type HistoryDB struct {
	historyDir string
	log        zerolog.Logger
}

// NewHistoryDB creates a new history database accessor
func NewHistoryDB(historyDir string, log zerolog.Logger) *HistoryDB {
	return &HistoryDB{
		historyDir: historyDir,
		log:        log.With().Str("component", "history_db").Logger(),
	}
}

// GetDailyHistory fetches up to limit most recent daily bars for a
// symbol, returned in ascending date order.
func (h *HistoryDB) GetDailyHistory(symbol string, limit int) (domain.PriceSeries, error) {
	db, err := h.openHistoryDB(symbol, false)
	if err != nil {
		return domain.PriceSeries{}, err
	}
	defer db.Close()

	query := `
		SELECT date, open_price, high_price, low_price, close_price, volume
		FROM daily_prices
		ORDER BY date DESC
		LIMIT ?
	`

	rows, err := db.Query(query, limit)
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	var bars []domain.PriceBar
	for rows.Next() {
		var b domain.PriceBar
		var date string
		var volume sql.NullFloat64

		if err := rows.Scan(&date, &b.Open, &b.High, &b.Low, &b.Close, &volume); err != nil {
			return domain.PriceSeries{}, fmt.Errorf("failed to scan daily price: %w", err)
		}
		b.Date, err = time.Parse("2006-01-02", date)
		if err != nil {
			return domain.PriceSeries{}, fmt.Errorf("invalid date in history for %s: %w", symbol, err)
		}
		if volume.Valid {
			b.Volume = volume.Float64
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return domain.PriceSeries{}, fmt.Errorf("error iterating daily prices: %w", err)
	}

	// Query is newest-first for the LIMIT; series contract is ascending.
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}

	return domain.PriceSeries{Symbol: symbol, Bars: bars}, nil
}

// SaveDailyHistory upserts bars into the symbol's archive file.
func (h *HistoryDB) SaveDailyHistory(series domain.PriceSeries) error {
	if err := series.Validate(); err != nil {
		return err
	}

	db, err := h.openHistoryDB(series.Symbol, true)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin history transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO daily_prices (date, open_price, high_price, low_price, close_price, volume)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			open_price = excluded.open_price,
			high_price = excluded.high_price,
			low_price = excluded.low_price,
			close_price = excluded.close_price,
			volume = excluded.volume
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare history upsert: %w", err)
	}
	defer stmt.Close()

	for _, b := range series.Bars {
		if _, err := stmt.Exec(b.Date.Format("2006-01-02"), b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("failed to upsert bar %s: %w", b.Date.Format("2006-01-02"), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history: %w", err)
	}

	h.log.Debug().Str("symbol", series.Symbol).Int("bars", len(series.Bars)).Msg("Saved daily history")
	return nil
}

// openHistoryDB opens the history database for a symbol, creating the
// file and schema when create is set.
func (h *HistoryDB) openHistoryDB(symbol string, create bool) (*sql.DB, error) {
	dbPath := filepath.Join(h.historyDir, symbol+".db")

	if create {
		if err := os.MkdirAll(h.historyDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database for %s: %w", symbol, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping history database for %s: %w", symbol, err)
	}

	if create {
		if _, err := db.Exec(`
			CREATE TABLE IF NOT EXISTS daily_prices (
				date        TEXT PRIMARY KEY,
				open_price  REAL NOT NULL,
				high_price  REAL NOT NULL,
				low_price   REAL NOT NULL,
				close_price REAL NOT NULL,
				volume      REAL
			)
		`); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create history schema for %s: %w", symbol, err)
		}
	}

	return db, nil
}
