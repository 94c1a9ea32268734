package optimization

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnfinlab/vnquant/internal/domain"
)

func walkSeries(symbol string, n int, drift, vol float64, seed int64) domain.PriceSeries {
	rng := rand.New(rand.NewSource(seed))
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	bars := make([]domain.PriceBar, n)
	price := 100.0
	for i := 0; i < n; i++ {
		price *= 1 + drift + rng.NormFloat64()*vol
		bars[i] = domain.PriceBar{
			Date:   start.AddDate(0, 0, i),
			Open:   price,
			High:   price * 1.005,
			Low:    price * 0.995,
			Close:  price,
			Volume: 5000,
		}
	}
	return domain.PriceSeries{Symbol: symbol, Bars: bars}
}

func threeAssetHistory() map[string]domain.PriceSeries {
	return map[string]domain.PriceSeries{
		"FPT": walkSeries("FPT", 100, 0.0012, 0.02, 11),
		"VNM": walkSeries("VNM", 100, 0.0004, 0.01, 22),
		"HPG": walkSeries("HPG", 100, 0.0008, 0.015, 33),
	}
}

func TestEstimateAlignsCommonDates(t *testing.T) {
	prices := threeAssetHistory()

	// Knock every third bar out of one series; the inner join must
	// shrink every column to the shared dates.
	vnm := prices["VNM"]
	var trimmed []domain.PriceBar
	for i, bar := range vnm.Bars {
		if i%3 != 0 {
			trimmed = append(trimmed, bar)
		}
	}
	vnm.Bars = trimmed
	prices["VNM"] = vnm

	est, err := Estimate(prices, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, []string{"FPT", "HPG", "VNM"}, est.Symbols)
	assert.Equal(t, len(trimmed)-1, est.Observations)
	assert.Len(t, est.ExpectedReturns, 3)
	require.Len(t, est.Covariance, 3)

	// Covariance must be symmetric with non-negative diagonal.
	for i := 0; i < 3; i++ {
		assert.GreaterOrEqual(t, est.Covariance[i][i], 0.0)
		for j := 0; j < 3; j++ {
			assert.InDelta(t, est.Covariance[j][i], est.Covariance[i][j], 1e-12)
		}
	}
}

func TestEstimateRequiresTwoAssets(t *testing.T) {
	_, err := Estimate(map[string]domain.PriceSeries{"FPT": walkSeries("FPT", 50, 0, 0.01, 1)}, DefaultConfig())

	var insufficient *domain.InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 1, insufficient.Observed)
}

func TestEstimateRequiresCommonDates(t *testing.T) {
	a := walkSeries("FPT", 50, 0, 0.01, 1)
	b := walkSeries("VNM", 50, 0, 0.01, 2)
	// Shift B fully outside A's date range.
	for i := range b.Bars {
		b.Bars[i].Date = b.Bars[i].Date.AddDate(1, 0, 0)
	}

	_, err := Estimate(map[string]domain.PriceSeries{"FPT": a, "VNM": b}, DefaultConfig())
	var insufficient *domain.InsufficientDataError
	assert.True(t, errors.As(err, &insufficient))
}

func requireLongOnlySimplex(t *testing.T, weights map[string]float64) {
	t.Helper()
	sum := 0.0
	for sym, w := range weights {
		assert.GreaterOrEqual(t, w, -1e-9, "weight of %s", sym)
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
}

func TestObjectivesProduceValidWeights(t *testing.T) {
	svc := NewService(nil, DefaultConfig(), zerolog.Nop())
	prices := threeAssetHistory()

	for _, objective := range []Objective{ObjectiveMaxSharpe, ObjectiveMinVolatility, ObjectiveMaxUtility} {
		t.Run(string(objective), func(t *testing.T) {
			res, err := svc.Optimize(prices, objective)
			require.NoError(t, err)

			requireLongOnlySimplex(t, res.Weights)
			assert.Greater(t, res.Volatility, 0.0)
			if res.Volatility > 0 {
				assert.InDelta(t, (res.ExpectedReturn-svc.cfg.RiskFreeRate)/res.Volatility, res.SharpeRatio, 1e-9)
			}
		})
	}
}

func TestMinVolatilityBeatsMaxSharpeOnVolatility(t *testing.T) {
	svc := NewService(nil, DefaultConfig(), zerolog.Nop())
	prices := threeAssetHistory()

	est, err := Estimate(prices, svc.cfg)
	require.NoError(t, err)

	minVol, err := svc.OptimizeEstimates(est, ObjectiveMinVolatility)
	require.NoError(t, err)
	maxSharpe, err := svc.OptimizeEstimates(est, ObjectiveMaxSharpe)
	require.NoError(t, err)

	// Min volatility minimizes exactly what max Sharpe trades away.
	assert.LessOrEqual(t, minVol.Volatility, maxSharpe.Volatility+1e-9)
}

func TestMaxUtilityMarketNeutralAllowsShorts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MarketNeutral = true
	svc := NewService(nil, cfg, zerolog.Nop())

	// A strongly negative expected return invites a short position.
	est := &Estimates{
		Symbols:         []string{"FPT", "VNM"},
		ExpectedReturns: []float64{0.20, -0.30},
		Covariance: [][]float64{
			{0.04, 0.00},
			{0.00, 0.04},
		},
		Observations: 99,
	}

	res, err := svc.OptimizeEstimates(est, ObjectiveMaxUtility)
	require.NoError(t, err)

	sum := 0.0
	for _, w := range res.Weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Less(t, res.Weights["VNM"], 0.0, "market-neutral mode should short the losing asset")
}

func TestMaxUtilityLongOnlyStaysOnSimplex(t *testing.T) {
	svc := NewService(nil, DefaultConfig(), zerolog.Nop())

	est := &Estimates{
		Symbols:         []string{"FPT", "VNM"},
		ExpectedReturns: []float64{0.20, -0.30},
		Covariance: [][]float64{
			{0.04, 0.00},
			{0.00, 0.04},
		},
		Observations: 99,
	}

	res, err := svc.OptimizeEstimates(est, ObjectiveMaxUtility)
	require.NoError(t, err)
	requireLongOnlySimplex(t, res.Weights)
	assert.InDelta(t, 1.0, res.Weights["FPT"], 1e-6)
}

func TestMinVolatilityPrefersLowVarianceAsset(t *testing.T) {
	svc := NewService(nil, DefaultConfig(), zerolog.Nop())

	est := &Estimates{
		Symbols:         []string{"CALM", "WILD"},
		ExpectedReturns: []float64{0.05, 0.15},
		Covariance: [][]float64{
			{0.01, 0.00},
			{0.00, 0.09},
		},
		Observations: 99,
	}

	res, err := svc.OptimizeEstimates(est, ObjectiveMinVolatility)
	require.NoError(t, err)

	// Analytic solution for two uncorrelated assets:
	// w1 = s2^2 / (s1^2 + s2^2) = 0.09 / 0.10 = 0.9
	assert.InDelta(t, 0.9, res.Weights["CALM"], 1e-3)
	assert.InDelta(t, math.Sqrt(0.9*0.9*0.01+0.1*0.1*0.09), res.Volatility, 1e-3)
}

func TestSolverRejectsSingleAsset(t *testing.T) {
	solver := GonumSolver{}
	est := &Estimates{
		Symbols:         []string{"FPT"},
		ExpectedReturns: []float64{0.1},
		Covariance:      [][]float64{{0.04}},
	}

	_, err := solver.Solve(ObjectiveMaxSharpe, est, DefaultConfig())
	var infeasible *domain.InfeasibleError
	require.True(t, errors.As(err, &infeasible))
	assert.Equal(t, string(ObjectiveMaxSharpe), infeasible.Objective)
}

func TestSimplexProject(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want []float64
	}{
		{"already on simplex", []float64{0.5, 0.5}, []float64{0.5, 0.5}},
		{"negative clipped", []float64{1.5, -0.5}, []float64{1, 0}},
		{"uniform from zeros", []float64{0, 0}, []float64{0.5, 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := simplexProject(tt.in)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-9)
			}
		})
	}
}
