package risk

import (
	"github.com/vnfinlab/vnquant/internal/domain"
	"github.com/vnfinlab/vnquant/pkg/formulas"
)

// MinBetaObservations is the minimum number of aligned return
// observations required before a beta estimate is reported.
const MinBetaObservations = 30

// Risk classification thresholds on beta.
const (
	betaDefensiveBelow  = 0.8
	betaAggressiveAbove = 1.2
)

// BetaResult is a covariance-based beta estimate of an asset against a
// market index.
type BetaResult struct {
	Symbol       string  `json:"symbol"`
	Index        string  `json:"index"`
	Beta         float64 `json:"beta"`
	Correlation  float64 `json:"correlation"`
	RSquared     float64 `json:"r_squared"`
	Observations int     `json:"observations"`
	RiskLevel    string  `json:"risk_level"`
}

// Beta aligns the asset and index series on their common dates (inner
// join), computes simple returns for both, and estimates
// beta = cov(asset, index) / var(index).
//
// Fewer than MinBetaObservations aligned returns yields an
// InsufficientDataError carrying the observed count.
func Beta(asset, index domain.PriceSeries) (*BetaResult, error) {
	assetCloses, indexCloses := alignByDate(asset, index)

	assetReturns := formulas.Returns(assetCloses)
	indexReturns := formulas.Returns(indexCloses)

	if len(assetReturns) < MinBetaObservations {
		return nil, &domain.InsufficientDataError{
			Observed: len(assetReturns),
			Required: MinBetaObservations,
			Context:  "beta estimation",
		}
	}

	indexVar := formulas.Variance(indexReturns)
	if indexVar == 0 {
		return nil, &domain.DegenerateInputError{Reason: "market index returns have zero variance"}
	}

	beta := formulas.Covariance(assetReturns, indexReturns) / indexVar
	corr := formulas.Correlation(assetReturns, indexReturns)

	return &BetaResult{
		Symbol:       asset.Symbol,
		Index:        index.Symbol,
		Beta:         beta,
		Correlation:  corr,
		RSquared:     corr * corr,
		Observations: len(assetReturns),
		RiskLevel:    classify(beta),
	}, nil
}

func classify(beta float64) string {
	switch {
	case beta < betaDefensiveBelow:
		return "defensive"
	case beta < betaAggressiveAbove:
		return "market-like"
	default:
		return "aggressive"
	}
}

// alignByDate inner-joins two series on date, returning the close
// columns over the shared dates in ascending order. Both inputs are
// already sorted ascending per the PriceSeries invariant.
func alignByDate(a, b domain.PriceSeries) (aCloses, bCloses []float64) {
	i, j := 0, 0
	for i < len(a.Bars) && j < len(b.Bars) {
		da, db := a.Bars[i].Date, b.Bars[j].Date
		switch {
		case da.Before(db):
			i++
		case db.Before(da):
			j++
		default:
			aCloses = append(aCloses, a.Bars[i].Close)
			bCloses = append(bCloses, b.Bars[j].Close)
			i++
			j++
		}
	}
	return aCloses, bCloses
}
