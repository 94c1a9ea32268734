package fundamentals

import (
	"sort"

	"github.com/vnfinlab/vnquant/internal/domain"
)

// TaxRateRecord is the effective tax rate for one fiscal year. Rate is
// a fraction clipped to [0, 1].
type TaxRateRecord struct {
	Ticker          string  `json:"ticker"`
	Year            int     `json:"year"`
	ProfitBeforeTax float64 `json:"profit_before_tax"`
	TaxPaid         float64 `json:"tax_paid"`
	Rate            float64 `json:"rate"`
}

// EffectiveTaxRate derives the effective tax rate per (ticker, year)
// from cash taxes paid against pre-tax profit.
//
// The cash-flow tax line is stored as an outflow, so its absolute value
// is used. Pre-tax profit comes preferentially from the income
// statement, falling back to the cash-flow statement's own pre-tax
// reconciliation line. Rates from near-zero or negative profit are
// clamped into [0, 1] rather than propagated.
func (s *Service) EffectiveTaxRate(income, cashFlow domain.StatementTable) ([]TaxRateRecord, error) {
	pbtByKey := map[[2]interface{}]float64{}
	for _, row := range income.Rows {
		if v, ok := s.normalizer.Resolve(row, "ProfitBeforeTax"); ok {
			pbtByKey[[2]interface{}{row.Ticker, row.Year}] = v
		}
	}

	missing := map[string]bool{}
	records := make([]TaxRateRecord, 0, len(cashFlow.Rows))
	for _, row := range cashFlow.Rows {
		taxPaid, ok := s.normalizer.Resolve(row, "TaxPaid")
		if !ok {
			missing["TaxPaid"] = true
			continue
		}
		taxPaid = abs(taxPaid)

		pbt, ok := pbtByKey[[2]interface{}{row.Ticker, row.Year}]
		if !ok {
			// Income statement silent for this year; use the cash-flow
			// statement's own reconciliation line.
			pbt, ok = s.normalizer.Resolve(row, "ProfitBeforeTax")
			if !ok {
				missing["ProfitBeforeTax"] = true
				continue
			}
		}

		records = append(records, TaxRateRecord{
			Ticker:          row.Ticker,
			Year:            row.Year,
			ProfitBeforeTax: pbt,
			TaxPaid:         taxPaid,
			Rate:            clampRate(taxPaid, pbt),
		})
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

func clampRate(taxPaid, profitBeforeTax float64) float64 {
	if profitBeforeTax <= 0 {
		if taxPaid == 0 {
			return 0
		}
		return 1
	}
	rate := taxPaid / profitBeforeTax
	if rate < 0 {
		return 0
	}
	if rate > 1 {
		return 1
	}
	return rate
}
