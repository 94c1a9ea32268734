package marketdata

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/vnfinlab/vnquant/internal/clients/vnmarket"
	"github.com/vnfinlab/vnquant/internal/domain"
)

// HistoryBackfillYears bounds the initial archive fetch for a symbol
// that has never been synced.
const HistoryBackfillYears = 5

// Provider is the upstream market data source.
type Provider interface {
	GetHistory(symbol string, start, end time.Time, interval domain.Interval) (domain.PriceSeries, error)
	GetStatement(ticker string, st domain.StatementType, period domain.Period) (domain.StatementTable, error)
	GetSymbols() ([]vnmarket.ListedSymbol, error)
}

// Service serves prices and statements cache-first, backfilling from
// the provider on a miss. Every analytics module reads through here so
// a cold cache never surfaces as an empty result.
type Service struct {
	provider Provider
	repo     *Repository
	history  *HistoryDB
	log      zerolog.Logger
}

// NewService creates a new market data service
func NewService(provider Provider, repo *Repository, history *HistoryDB, log zerolog.Logger) *Service {
	return &Service{
		provider: provider,
		repo:     repo,
		history:  history,
		log:      log.With().Str("component", "marketdata").Logger(),
	}
}

// GetDailyHistory returns up to limit recent daily bars, ascending.
// A symbol with no local archive is backfilled from the provider first.
func (s *Service) GetDailyHistory(symbol string, limit int) (domain.PriceSeries, error) {
	series, err := s.history.GetDailyHistory(symbol, limit)
	if err == nil && series.Len() > 0 {
		return series, nil
	}

	if err := s.RefreshHistory(symbol); err != nil {
		return domain.PriceSeries{}, err
	}
	return s.history.GetDailyHistory(symbol, limit)
}

// GetStatementTable returns a cached statement table, fetching and
// caching it on a miss.
func (s *Service) GetStatementTable(ticker string, st domain.StatementType, period domain.Period) (domain.StatementTable, error) {
	table, err := s.repo.GetStatementTable(ticker, st, period)
	if err == nil && len(table.Rows) > 0 {
		return table, nil
	}

	if err := s.refreshStatement(ticker, st, period); err != nil {
		return domain.StatementTable{}, err
	}
	return s.repo.GetStatementTable(ticker, st, period)
}

// RefreshHistory fetches the provider's daily bars for a symbol and
// upserts them into the local archive. A cold archive triggers a full
// backfill; a warm one only re-fetches the recent window.
func (s *Service) RefreshHistory(symbol string) error {
	end := time.Now()
	start := end.AddDate(-HistoryBackfillYears, 0, 0)

	existing, err := s.history.GetDailyHistory(symbol, 1)
	if err == nil && existing.Len() > 0 {
		// Re-fetch a short overlap so revised closing prices are picked up.
		start = existing.Bars[existing.Len()-1].Date.AddDate(0, 0, -7)
	}

	series, err := s.provider.GetHistory(symbol, start, end, domain.IntervalDaily)
	if err != nil {
		return err
	}
	if series.Len() == 0 {
		s.log.Warn().Str("symbol", symbol).Msg("Provider returned no bars")
		return nil
	}

	return s.history.SaveDailyHistory(series)
}

// RefreshStatements re-fetches every annual statement table for a
// ticker.
func (s *Service) RefreshStatements(ticker string) error {
	types := []domain.StatementType{
		domain.StatementIncome,
		domain.StatementBalance,
		domain.StatementCashFlow,
		domain.StatementRatios,
	}
	for _, st := range types {
		if err := s.refreshStatement(ticker, st, domain.PeriodYear); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) refreshStatement(ticker string, st domain.StatementType, period domain.Period) error {
	table, err := s.provider.GetStatement(ticker, st, period)
	if err != nil {
		return err
	}
	return s.repo.SaveStatementTable(table)
}

// RefreshSymbols replaces the cached universe with the provider's
// current listing.
func (s *Service) RefreshSymbols() error {
	listed, err := s.provider.GetSymbols()
	if err != nil {
		return err
	}

	symbols := make([]Symbol, 0, len(listed))
	for _, l := range listed {
		symbols = append(symbols, Symbol{Symbol: l.Symbol, Name: l.Name, Exchange: l.Exchange})
	}
	if err := s.repo.ReplaceSymbols(symbols); err != nil {
		return err
	}

	s.log.Info().Int("symbols", len(symbols)).Msg("Symbol universe refreshed")
	return nil
}

// ListSymbols returns the cached universe.
func (s *Service) ListSymbols() ([]Symbol, error) {
	return s.repo.ListSymbols()
}

// ListStatementTickers returns tickers with cached statements, for the
// nightly refresh.
func (s *Service) ListStatementTickers() ([]string, error) {
	return s.repo.ListStatementTickers()
}
