package fundamentals

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/vnfinlab/vnquant/internal/domain"
)

// ROEDivergenceTolerance is the largest acceptable gap, in percentage
// points, between the multiplied three-factor ROE and the directly
// computed NetIncome/AverageEquity. A larger gap signals inconsistent
// source data and is surfaced on the record.
const ROEDivergenceTolerance = 0.01

// DuPontRecord is the 3-factor ROE decomposition for one fiscal year.
// Margin and ROE values are percentages.
type DuPontRecord struct {
	Ticker            string  `json:"ticker"`
	Year              int     `json:"year"`
	NetProfitMargin   float64 `json:"net_profit_margin"`
	AssetTurnover     float64 `json:"asset_turnover"`
	FinancialLeverage float64 `json:"financial_leverage"`
	ROEComputed       float64 `json:"roe_computed"`
	ROEDirect         float64 `json:"roe_direct"`
	Divergence        float64 `json:"divergence"`
	Consistent        bool    `json:"consistent"`
}

// DuPont decomposes ROE into margin, turnover and leverage per fiscal
// year. Assets and equity are averaged with the immediately preceding
// year; the first year of a ticker falls back to the unaveraged value.
//
// Rows that cannot resolve their required fields are skipped; when no
// row resolves at all the union of unresolved canonical names is
// returned as a MissingFieldError.
func (s *Service) DuPont(income, balance domain.StatementTable) ([]DuPontRecord, error) {
	type yearInputs struct {
		revenue   float64
		netIncome float64
		assets    float64
		equity    float64
	}

	missing := map[string]bool{}
	joined := map[[2]interface{}]*yearInputs{}

	incomeByKey := map[[2]interface{}]map[string]float64{}
	for _, row := range income.Rows {
		vals, err := s.normalizer.ResolveAll(row, "Revenue", "NetIncome")
		if err != nil {
			collectMissing(err, missing)
			continue
		}
		incomeByKey[[2]interface{}{row.Ticker, row.Year}] = vals
	}

	for _, row := range balance.Rows {
		key := [2]interface{}{row.Ticker, row.Year}
		is, ok := incomeByKey[key]
		if !ok {
			continue // inner join: balance year without income statement year
		}
		vals, err := s.normalizer.ResolveAll(row, "TotalAssets", "OwnersEquity")
		if err != nil {
			collectMissing(err, missing)
			continue
		}
		joined[key] = &yearInputs{
			revenue:   is["Revenue"],
			netIncome: is["NetIncome"],
			assets:    vals["TotalAssets"],
			equity:    vals["OwnersEquity"],
		}
	}

	if len(joined) == 0 {
		if len(missing) > 0 {
			return nil, missingFieldError(missing)
		}
		return nil, nil
	}

	type keyed struct {
		ticker string
		year   int
		in     *yearInputs
	}
	rows := make([]keyed, 0, len(joined))
	for key, in := range joined {
		rows = append(rows, keyed{ticker: key[0].(string), year: key[1].(int), in: in})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ticker != rows[j].ticker {
			return rows[i].ticker < rows[j].ticker
		}
		return rows[i].year < rows[j].year
	})

	records := make([]DuPontRecord, 0, len(rows))
	for i, r := range rows {
		avgAssets := r.in.assets
		avgEquity := r.in.equity
		if i > 0 && rows[i-1].ticker == r.ticker && rows[i-1].year == r.year-1 {
			avgAssets = (r.in.assets + rows[i-1].in.assets) / 2
			avgEquity = (r.in.equity + rows[i-1].in.equity) / 2
		}

		if r.in.revenue == 0 || avgAssets == 0 || avgEquity == 0 {
			s.log.Warn().
				Str("ticker", r.ticker).
				Int("year", r.year).
				Msg("Skipping DuPont year with zero revenue, assets or equity")
			continue
		}

		rec := DuPontRecord{
			Ticker:            r.ticker,
			Year:              r.year,
			NetProfitMargin:   r.in.netIncome / r.in.revenue * 100,
			AssetTurnover:     r.in.revenue / avgAssets,
			FinancialLeverage: avgAssets / avgEquity,
			ROEDirect:         r.in.netIncome / avgEquity * 100,
		}
		rec.ROEComputed = rec.NetProfitMargin / 100 * rec.AssetTurnover * rec.FinancialLeverage * 100
		rec.Divergence = abs(rec.ROEComputed - rec.ROEDirect)
		rec.Consistent = rec.Divergence <= ROEDivergenceTolerance
		if !rec.Consistent {
			s.log.Warn().
				Str("ticker", rec.Ticker).
				Int("year", rec.Year).
				Float64("roe_computed", rec.ROEComputed).
				Float64("roe_direct", rec.ROEDirect).
				Msg("DuPont cross-check divergence exceeds tolerance")
		}
		records = append(records, rec)
	}

	return records, nil
}

// Service bundles the fundamentals calculations behind one normalizer
// and logger, mirroring the per-module service shape used elsewhere.
type Service struct {
	normalizer *Normalizer
	log        zerolog.Logger
}

// NewService creates a fundamentals service.
func NewService(normalizer *Normalizer, log zerolog.Logger) *Service {
	return &Service{
		normalizer: normalizer,
		log:        log.With().Str("component", "fundamentals").Logger(),
	}
}

// Normalizer exposes the field resolver for callers that need raw
// statement values outside the packaged calculations.
func (s *Service) Normalizer() *Normalizer {
	return s.normalizer
}

func collectMissing(err error, into map[string]bool) {
	if mf, ok := err.(*domain.MissingFieldError); ok {
		for _, f := range mf.Fields {
			into[f] = true
		}
	}
}

func missingFieldError(missing map[string]bool) *domain.MissingFieldError {
	fields := make([]string, 0, len(missing))
	for f := range missing {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return &domain.MissingFieldError{Fields: fields}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
