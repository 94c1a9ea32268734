package risk

import (
	"github.com/rs/zerolog"

	"github.com/vnfinlab/vnquant/internal/domain"
	"github.com/vnfinlab/vnquant/internal/modules/fundamentals"
)

// DefaultBetaLookbackBars is roughly one trading year of daily data.
const DefaultBetaLookbackBars = 250

// PriceSource provides daily history for beta estimation.
type PriceSource interface {
	GetDailyHistory(symbol string, limit int) (domain.PriceSeries, error)
}

// StatementSource provides cached financial statements for capital
// structure inputs.
type StatementSource interface {
	GetStatementTable(ticker string, st domain.StatementType, period domain.Period) (domain.StatementTable, error)
}

// Config carries the market assumptions behind CAPM.
type Config struct {
	MarketSymbol      string
	RiskFreeRate      float64
	MarketRiskPremium float64
	CostOfDebt        float64
}

// Service composes market data and fundamentals into beta estimates and
// cost of capital calculations.
type Service struct {
	prices       PriceSource
	statements   StatementSource
	fundamentals *fundamentals.Service
	cfg          Config
	log          zerolog.Logger
}

// NewService creates a risk service.
func NewService(prices PriceSource, statements StatementSource, funds *fundamentals.Service, cfg Config, log zerolog.Logger) *Service {
	return &Service{
		prices:       prices,
		statements:   statements,
		fundamentals: funds,
		cfg:          cfg,
		log:          log.With().Str("component", "risk").Logger(),
	}
}

// BetaFor estimates beta for a symbol against the configured market
// index over the given daily bar lookback.
func (s *Service) BetaFor(symbol string, lookbackBars int) (*BetaResult, error) {
	if lookbackBars <= 0 {
		lookbackBars = DefaultBetaLookbackBars
	}

	asset, err := s.prices.GetDailyHistory(symbol, lookbackBars)
	if err != nil {
		return nil, err
	}
	index, err := s.prices.GetDailyHistory(s.cfg.MarketSymbol, lookbackBars)
	if err != nil {
		return nil, err
	}

	return Beta(asset, index)
}

// WACCFor derives the full WACC input set for a ticker and evaluates
// it: beta from price history, market equity and debt from the latest
// statements, tax rate from cash taxes paid.
//
// Market value of equity prefers the ratios table's market
// capitalization; when the provider omits it the latest book equity
// stands in.
func (s *Service) WACCFor(ticker string, lookbackBars int) (*WACCResult, error) {
	betaRes, err := s.BetaFor(ticker, lookbackBars)
	if err != nil {
		return nil, err
	}

	balance, err := s.statements.GetStatementTable(ticker, domain.StatementBalance, domain.PeriodYear)
	if err != nil {
		return nil, err
	}
	latest := latestRow(balance)
	if latest == nil {
		return nil, &domain.InsufficientDataError{Observed: 0, Required: 1, Context: "balance sheet years"}
	}

	norm := s.fundamentals.Normalizer()
	shortDebt, _ := norm.Resolve(*latest, "ShortTermDebt")
	longDebt, _ := norm.Resolve(*latest, "LongTermDebt")

	equity, err := s.marketEquity(ticker, *latest)
	if err != nil {
		return nil, err
	}

	taxRate, err := s.latestTaxRate(ticker)
	if err != nil {
		return nil, err
	}

	return WACC(WACCInput{
		Beta:              betaRes.Beta,
		RiskFreeRate:      s.cfg.RiskFreeRate,
		MarketRiskPremium: s.cfg.MarketRiskPremium,
		CostOfDebt:        s.cfg.CostOfDebt,
		TaxRate:           taxRate,
		ShortTermDebt:     shortDebt,
		LongTermDebt:      longDebt,
		MarketValueEquity: equity,
	})
}

func (s *Service) marketEquity(ticker string, latestBalance domain.StatementRow) (float64, error) {
	norm := s.fundamentals.Normalizer()

	ratios, err := s.statements.GetStatementTable(ticker, domain.StatementRatios, domain.PeriodYear)
	if err == nil {
		if row := latestRow(ratios); row != nil {
			if marketCap, ok := norm.Resolve(*row, "MarketCapital"); ok && marketCap > 0 {
				return marketCap, nil
			}
		}
	}

	s.log.Debug().Str("ticker", ticker).Msg("No market capitalization; using book equity for WACC")
	if equity, ok := norm.Resolve(latestBalance, "OwnersEquity"); ok {
		return equity, nil
	}
	return 0, &domain.MissingFieldError{Fields: []string{"MarketCapital", "OwnersEquity"}}
}

func (s *Service) latestTaxRate(ticker string) (float64, error) {
	income, err := s.statements.GetStatementTable(ticker, domain.StatementIncome, domain.PeriodYear)
	if err != nil {
		return 0, err
	}
	cashFlow, err := s.statements.GetStatementTable(ticker, domain.StatementCashFlow, domain.PeriodYear)
	if err != nil {
		return 0, err
	}

	records, err := s.fundamentals.EffectiveTaxRate(income, cashFlow)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, &domain.InsufficientDataError{Observed: 0, Required: 1, Context: "effective tax rate years"}
	}
	return records[len(records)-1].Rate, nil
}

// latestRow returns the row with the greatest (year, quarter), or nil
// for an empty table.
func latestRow(table domain.StatementTable) *domain.StatementRow {
	var latest *domain.StatementRow
	for i := range table.Rows {
		row := &table.Rows[i]
		if latest == nil ||
			row.Year > latest.Year ||
			(row.Year == latest.Year && row.Quarter > latest.Quarter) {
			latest = row
		}
	}
	return latest
}
