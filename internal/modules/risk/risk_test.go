package risk

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnfinlab/vnquant/internal/domain"
)

func randomWalkSeries(symbol string, n int, seed int64) domain.PriceSeries {
	rng := rand.New(rand.NewSource(seed))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	bars := make([]domain.PriceBar, n)
	price := 100.0
	for i := 0; i < n; i++ {
		price *= 1 + rng.NormFloat64()*0.01
		bars[i] = domain.PriceBar{
			Date:   start.AddDate(0, 0, i),
			Open:   price,
			High:   price * 1.01,
			Low:    price * 0.99,
			Close:  price,
			Volume: 10000,
		}
	}
	return domain.PriceSeries{Symbol: symbol, Bars: bars}
}

func TestBetaSelfConsistency(t *testing.T) {
	series := randomWalkSeries("VNINDEX", 120, 7)

	res, err := Beta(series, series)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, res.Beta, 1e-9)
	assert.InDelta(t, 1.0, res.Correlation, 1e-9)
	assert.InDelta(t, 1.0, res.RSquared, 1e-9)
	assert.Equal(t, 119, res.Observations)
	assert.Equal(t, "market-like", res.RiskLevel)
}

func TestBetaInsufficientData(t *testing.T) {
	asset := randomWalkSeries("VNM", 20, 1)
	index := randomWalkSeries("VNINDEX", 20, 2)

	_, err := Beta(asset, index)

	var insufficient *domain.InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 19, insufficient.Observed)
	assert.Equal(t, MinBetaObservations, insufficient.Required)
}

func TestBetaAlignsOnCommonDates(t *testing.T) {
	// Asset trades only on every second index date; the join must keep
	// the overlap and nothing else.
	index := randomWalkSeries("VNINDEX", 120, 3)
	asset := domain.PriceSeries{Symbol: "VNM"}
	for i, bar := range index.Bars {
		if i%2 == 0 {
			asset.Bars = append(asset.Bars, bar)
		}
	}

	res, err := Beta(asset, index)
	require.NoError(t, err)
	assert.Equal(t, 59, res.Observations)
	assert.InDelta(t, 1.0, res.Beta, 1e-9)
}

func TestBetaFlatIndexIsDegenerate(t *testing.T) {
	asset := randomWalkSeries("VNM", 60, 4)
	index := asset
	index.Symbol = "VNINDEX"
	flat := make([]domain.PriceBar, len(asset.Bars))
	copy(flat, asset.Bars)
	for i := range flat {
		flat[i].Open, flat[i].High, flat[i].Low, flat[i].Close = 100, 100, 100, 100
	}
	index.Bars = flat

	_, err := Beta(asset, index)
	var degenerate *domain.DegenerateInputError
	assert.True(t, errors.As(err, &degenerate))
}

func TestRiskClassification(t *testing.T) {
	tests := []struct {
		beta float64
		want string
	}{
		{0.3, "defensive"},
		{0.79, "defensive"},
		{0.8, "market-like"},
		{1.19, "market-like"},
		{1.2, "aggressive"},
		{2.5, "aggressive"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, classify(tt.beta), "beta %.2f", tt.beta)
	}
}

func TestWACCWeightNormalization(t *testing.T) {
	res, err := WACC(WACCInput{
		Beta:              1.1,
		RiskFreeRate:      0.03,
		MarketRiskPremium: 0.08,
		CostOfDebt:        0.09,
		TaxRate:           0.2,
		ShortTermDebt:     150,
		LongTermDebt:      350,
		MarketValueEquity: 1500,
	})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, res.WeightDebt+res.WeightEquity, 1e-9)
	assert.InDelta(t, 0.03+1.1*0.08, res.CostOfEquity, 1e-12)
	assert.InDelta(t, 0.09*0.8, res.AfterTaxCostOfDebt, 1e-12)

	want := res.WeightDebt*res.AfterTaxCostOfDebt + res.WeightEquity*res.CostOfEquity
	assert.InDelta(t, want, res.WACC, 1e-12)
}

func TestWACCZeroCapitalGuard(t *testing.T) {
	_, err := WACC(WACCInput{
		Beta:              1.0,
		RiskFreeRate:      0.03,
		MarketRiskPremium: 0.08,
	})

	var degenerate *domain.DegenerateInputError
	require.True(t, errors.As(err, &degenerate))
}

func TestWACCAllEquity(t *testing.T) {
	res, err := WACC(WACCInput{
		Beta:              0.9,
		RiskFreeRate:      0.04,
		MarketRiskPremium: 0.07,
		MarketValueEquity: 1000,
	})
	require.NoError(t, err)

	assert.Zero(t, res.WeightDebt)
	assert.InDelta(t, 1.0, res.WeightEquity, 1e-12)
	assert.InDelta(t, res.CostOfEquity, res.WACC, 1e-12)
}
