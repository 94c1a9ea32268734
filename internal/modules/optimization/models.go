package optimization

// Objective names a portfolio optimization target.
type Objective string

const (
	ObjectiveMaxSharpe     Objective = "max_sharpe"
	ObjectiveMinVolatility Objective = "min_volatility"
	ObjectiveMaxUtility    Objective = "max_utility"
)

// Config carries the estimator and solver assumptions. The
// annualization factor is configuration, not a per-call constant,
// because the service also runs on weekly and quarterly series.
type Config struct {
	AnnualizationFactor float64 // 252 daily, 52 weekly, 4 quarterly
	RiskFreeRate        float64 // annual fraction
	RiskAversion        float64 // utility objective gamma
	MarketNeutral       bool    // allow negative weights for max utility
}

// DefaultConfig are the dashboard defaults for daily data.
func DefaultConfig() Config {
	return Config{
		AnnualizationFactor: 252,
		RiskFreeRate:        0.03,
		RiskAversion:        2.0,
		MarketNeutral:       false,
	}
}

// Estimates holds per-asset annualized expected returns and the
// annualized sample covariance matrix over the common date range.
type Estimates struct {
	Symbols         []string    `json:"symbols"`
	ExpectedReturns []float64   `json:"expected_returns"`
	Covariance      [][]float64 `json:"covariance"`
	Observations    int         `json:"observations"`
}

// Result is one solved objective. Weights are keyed by symbol and sum
// to one; realized metrics are evaluated from the returned weights.
type Result struct {
	Objective      Objective          `json:"objective"`
	Weights        map[string]float64 `json:"weights"`
	ExpectedReturn float64            `json:"expected_return"`
	Volatility     float64            `json:"volatility"`
	SharpeRatio    float64            `json:"sharpe_ratio"`
}
