package risk

import (
	"math"

	"github.com/vnfinlab/vnquant/internal/domain"
)

// WACCInput are the ingredients of a weighted average cost of capital
// calculation. Rates are annual fractions; debt and equity values share
// one currency unit (billions of VND in practice).
type WACCInput struct {
	Beta              float64 `json:"beta"`
	RiskFreeRate      float64 `json:"risk_free_rate"`
	MarketRiskPremium float64 `json:"market_risk_premium"`
	CostOfDebt        float64 `json:"cost_of_debt"`
	TaxRate           float64 `json:"tax_rate"`
	ShortTermDebt     float64 `json:"short_term_debt"`
	LongTermDebt      float64 `json:"long_term_debt"`
	MarketValueEquity float64 `json:"market_value_equity"`
}

// WACCResult is the weighted cost of capital with its components.
// WeightDebt + WeightEquity always sums to 1 for a defined result.
type WACCResult struct {
	WACC               float64 `json:"wacc"`
	CostOfEquity       float64 `json:"cost_of_equity"`
	AfterTaxCostOfDebt float64 `json:"after_tax_cost_of_debt"`
	WeightDebt         float64 `json:"weight_debt"`
	WeightEquity       float64 `json:"weight_equity"`
	TotalDebt          float64 `json:"total_debt"`
	TotalCapital       float64 `json:"total_capital"`
}

// WACC computes the weighted average cost of capital using CAPM for the
// cost of equity. An empty capital structure (total capital <= 0) is a
// degenerate input, surfaced as a typed error rather than a division
// by zero.
func WACC(in WACCInput) (*WACCResult, error) {
	totalDebt := in.ShortTermDebt + in.LongTermDebt
	totalCapital := totalDebt + in.MarketValueEquity
	if totalCapital <= 0 || math.IsNaN(totalCapital) {
		return nil, &domain.DegenerateInputError{Reason: "total capital must be positive to weight the capital structure"}
	}

	costOfEquity := in.RiskFreeRate + in.Beta*in.MarketRiskPremium
	afterTaxCostOfDebt := in.CostOfDebt * (1 - in.TaxRate)

	weightDebt := totalDebt / totalCapital
	weightEquity := in.MarketValueEquity / totalCapital

	return &WACCResult{
		WACC:               weightDebt*afterTaxCostOfDebt + weightEquity*costOfEquity,
		CostOfEquity:       costOfEquity,
		AfterTaxCostOfDebt: afterTaxCostOfDebt,
		WeightDebt:         weightDebt,
		WeightEquity:       weightEquity,
		TotalDebt:          totalDebt,
		TotalCapital:       totalCapital,
	}, nil
}
