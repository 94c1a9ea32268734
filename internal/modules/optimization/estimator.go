package optimization

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/vnfinlab/vnquant/internal/domain"
	"github.com/vnfinlab/vnquant/pkg/formulas"
)

// Estimate aligns the per-symbol series on their common dates (inner
// join across all symbols), computes simple returns, and produces
// annualized expected returns and the sample covariance matrix.
// Misaligned series must be truncated to the shared date range first or
// the covariance picks up spurious correlation.
//
// At least two symbols and three aligned observations are required.
func Estimate(prices map[string]domain.PriceSeries, cfg Config) (*Estimates, error) {
	if len(prices) < 2 {
		return nil, &domain.InsufficientDataError{Observed: len(prices), Required: 2, Context: "covariance estimation (assets)"}
	}

	symbols := make([]string, 0, len(prices))
	for s := range prices {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	aligned := alignAll(prices, symbols)
	if len(aligned) < 3 {
		return nil, &domain.InsufficientDataError{Observed: len(aligned), Required: 3, Context: "covariance estimation (common dates)"}
	}

	nObs := len(aligned) - 1
	returnMatrix := mat.NewDense(nObs, len(symbols), nil)
	expected := make([]float64, len(symbols))
	for col := range symbols {
		closes := make([]float64, len(aligned))
		for row, obs := range aligned {
			closes[row] = obs[col]
		}
		rets := formulas.Returns(closes)
		for row, r := range rets {
			returnMatrix.Set(row, col, r)
		}
		expected[col] = formulas.Mean(rets) * cfg.AnnualizationFactor
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, returnMatrix, nil)

	matrix := make([][]float64, len(symbols))
	for i := range symbols {
		matrix[i] = make([]float64, len(symbols))
		for j := range symbols {
			matrix[i][j] = cov.At(i, j) * cfg.AnnualizationFactor
		}
	}

	return &Estimates{
		Symbols:         symbols,
		ExpectedReturns: expected,
		Covariance:      matrix,
		Observations:    nObs,
	}, nil
}

// alignAll returns, per common date in ascending order, the close of
// every symbol in the given column order.
func alignAll(prices map[string]domain.PriceSeries, symbols []string) [][]float64 {
	type dated struct {
		date   time.Time
		closes []float64
		count  int
	}

	byDate := map[int64]*dated{}
	for col, sym := range symbols {
		for _, bar := range prices[sym].Bars {
			key := bar.Date.Unix()
			d, ok := byDate[key]
			if !ok {
				d = &dated{date: bar.Date, closes: make([]float64, len(symbols))}
				byDate[key] = d
			}
			d.closes[col] = bar.Close
			d.count++
		}
	}

	common := make([]*dated, 0, len(byDate))
	for _, d := range byDate {
		if d.count == len(symbols) {
			common = append(common, d)
		}
	}
	sort.Slice(common, func(i, j int) bool { return common[i].date.Before(common[j].date) })

	out := make([][]float64, len(common))
	for i, d := range common {
		out[i] = d.closes
	}
	return out
}
