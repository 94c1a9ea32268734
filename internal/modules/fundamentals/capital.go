package fundamentals

import (
	"sort"

	"github.com/vnfinlab/vnquant/internal/domain"
)

// CapitalEmployedRecord is the capital structure snapshot for one
// fiscal year. Percent fields are each component's share of the total.
type CapitalEmployedRecord struct {
	Ticker          string  `json:"ticker"`
	Year            int     `json:"year"`
	ShortTermDebt   float64 `json:"short_term_debt"`
	LongTermDebt    float64 `json:"long_term_debt"`
	Equity          float64 `json:"equity"`
	CapitalEmployed float64 `json:"capital_employed"`
	ShortTermPct    float64 `json:"short_term_pct"`
	LongTermPct     float64 `json:"long_term_pct"`
	EquityPct       float64 `json:"equity_pct"`
}

// CapitalEmployed derives capital employed per balance-sheet row.
// Missing debt columns default to zero (a debt-free balance sheet is a
// valid state); equity is not optional and its absence rejects the row.
func (s *Service) CapitalEmployed(balance domain.StatementTable) ([]CapitalEmployedRecord, error) {
	missing := map[string]bool{}
	records := make([]CapitalEmployedRecord, 0, len(balance.Rows))

	for _, row := range balance.Rows {
		equity, ok := s.normalizer.Resolve(row, "OwnersEquity")
		if !ok {
			missing["OwnersEquity"] = true
			continue
		}

		std, _ := s.normalizer.Resolve(row, "ShortTermDebt")
		ltd, _ := s.normalizer.Resolve(row, "LongTermDebt")

		rec := CapitalEmployedRecord{
			Ticker:          row.Ticker,
			Year:            row.Year,
			ShortTermDebt:   std,
			LongTermDebt:    ltd,
			Equity:          equity,
			CapitalEmployed: std + ltd + equity,
		}
		if rec.CapitalEmployed != 0 {
			rec.ShortTermPct = std / rec.CapitalEmployed * 100
			rec.LongTermPct = ltd / rec.CapitalEmployed * 100
			rec.EquityPct = equity / rec.CapitalEmployed * 100
		}
		records = append(records, rec)
	}

	if len(records) == 0 && len(missing) > 0 {
		return nil, missingFieldError(missing)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Ticker != records[j].Ticker {
			return records[i].Ticker < records[j].Ticker
		}
		return records[i].Year < records[j].Year
	})
	return records, nil
}
