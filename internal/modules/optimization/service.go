package optimization

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/vnfinlab/vnquant/internal/domain"
)

// Service estimates return/covariance inputs and solves named
// objectives, reporting realized metrics for the returned weights.
type Service struct {
	solver Solver
	cfg    Config
	log    zerolog.Logger
}

// NewService creates an optimization service. A nil solver selects the
// in-process GonumSolver.
func NewService(solver Solver, cfg Config, log zerolog.Logger) *Service {
	if solver == nil {
		solver = GonumSolver{}
	}
	return &Service{
		solver: solver,
		cfg:    cfg,
		log:    log.With().Str("component", "optimizer").Logger(),
	}
}

// Optimize runs one named objective over the given price histories.
func (s *Service) Optimize(prices map[string]domain.PriceSeries, objective Objective) (*Result, error) {
	est, err := Estimate(prices, s.cfg)
	if err != nil {
		return nil, err
	}
	return s.OptimizeEstimates(est, objective)
}

// OptimizeEstimates solves one objective for precomputed estimates.
func (s *Service) OptimizeEstimates(est *Estimates, objective Objective) (*Result, error) {
	weights, err := s.solver.Solve(objective, est, s.cfg)
	if err != nil {
		s.log.Warn().
			Str("objective", string(objective)).
			Err(err).
			Msg("Optimization failed")
		return nil, err
	}

	result := s.evaluate(est, objective, weights)
	s.log.Info().
		Str("objective", string(objective)).
		Int("assets", len(est.Symbols)).
		Int("observations", est.Observations).
		Float64("expected_return", result.ExpectedReturn).
		Float64("volatility", result.Volatility).
		Msg("Optimization complete")
	return result, nil
}

// evaluate computes realized (expected return, volatility, Sharpe) from
// the solved weights against the estimates they were solved on.
func (s *Service) evaluate(est *Estimates, objective Objective, weights map[string]float64) *Result {
	n := len(est.Symbols)
	w := make([]float64, n)
	for i, sym := range est.Symbols {
		w[i] = weights[sym]
	}

	expReturn := dot(est.ExpectedReturns, w)
	variance := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			variance += w[i] * est.Covariance[i][j] * w[j]
		}
	}
	vol := math.Sqrt(math.Max(variance, 0))

	sharpeRatio := 0.0
	if vol > 0 {
		sharpeRatio = (expReturn - s.cfg.RiskFreeRate) / vol
	}

	return &Result{
		Objective:      objective,
		Weights:        weights,
		ExpectedReturn: expReturn,
		Volatility:     vol,
		SharpeRatio:    sharpeRatio,
	}
}
