package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the default annualization base for daily series.
// Weekly and quarterly data use 52 and 4 respectively; the optimization
// module takes the factor from configuration rather than assuming daily.
const TradingDaysPerYear = 252

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the sample variance
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.Variance(data, nil)
}

// Returns converts a price series to simple period-over-period returns.
// Returns[i] = (Price[i+1] - Price[i]) / Price[i]; the first (undefined)
// observation is dropped, so the result is one shorter than the input.
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}
	return returns
}

// Covariance calculates the sample covariance between two equal-length series
func Covariance(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	return stat.Covariance(x, y, nil)
}

// Correlation calculates the Pearson correlation coefficient
func Correlation(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	return stat.Correlation(x, y, nil)
}

// AnnualizedVolatility scales the standard deviation of periodic returns
// by sqrt(periodsPerYear)
func AnnualizedVolatility(returns []float64, periodsPerYear int) float64 {
	if len(returns) < 2 {
		return 0
	}
	return StdDev(returns) * math.Sqrt(float64(periodsPerYear))
}

// SharpeRatio calculates the annualized Sharpe ratio from periodic returns.
// riskFreeRate is annual; returns nil when volatility is zero or the
// series is too short.
func SharpeRatio(returns []float64, riskFreeRate float64, periodsPerYear int) *float64 {
	if len(returns) < 2 {
		return nil
	}

	stdDev := StdDev(returns)
	if stdDev == 0 {
		return nil
	}

	periodicRiskFree := riskFreeRate / float64(periodsPerYear)
	sharpe := (Mean(returns) - periodicRiskFree) / stdDev
	annualized := sharpe * math.Sqrt(float64(periodsPerYear))
	return &annualized
}
