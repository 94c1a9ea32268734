package optimization

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/vnfinlab/vnquant/internal/domain"
)

// Solver turns estimates into weights for one objective. The default
// implementation solves in-process; a remote convex-optimization
// microservice can be swapped in behind the same seam.
type Solver interface {
	Solve(objective Objective, est *Estimates, cfg Config) (map[string]float64, error)
}

// GonumSolver solves the three supported objectives in-process.
// Long-only objectives (max Sharpe, min volatility) run projected
// gradient over the unit simplex; the market-neutral utility objective
// has a closed form via a Cholesky solve.
type GonumSolver struct{}

const (
	solverMaxIterations = 5000
	solverTolerance     = 1e-12
)

// Solve implements Solver.
func (GonumSolver) Solve(objective Objective, est *Estimates, cfg Config) (map[string]float64, error) {
	n := len(est.Symbols)
	if n < 2 {
		return nil, &domain.InfeasibleError{Objective: string(objective), Reason: "at least two assets required"}
	}

	sigma := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sigma.SetSym(i, j, est.Covariance[i][j])
		}
	}
	mu := est.ExpectedReturns

	var weights []float64
	var err error
	switch objective {
	case ObjectiveMinVolatility:
		weights = minVolatility(sigma, n)
	case ObjectiveMaxSharpe:
		weights, err = maxSharpe(mu, sigma, cfg.RiskFreeRate, n)
	case ObjectiveMaxUtility:
		weights, err = maxUtility(mu, sigma, cfg.RiskAversion, cfg.MarketNeutral, n)
	default:
		return nil, &domain.InfeasibleError{Objective: string(objective), Reason: "unknown objective"}
	}
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64, n)
	for i, sym := range est.Symbols {
		out[sym] = weights[i]
	}
	return out, nil
}

// minVolatility minimizes w'Sigma w over the simplex.
func minVolatility(sigma *mat.SymDense, n int) []float64 {
	obj := func(w []float64) float64 { return quadForm(sigma, w) }
	grad := func(w []float64) []float64 {
		g := sigmaDot(sigma, w)
		for i := range g {
			g[i] *= 2
		}
		return g
	}
	return projectedDescent(equalWeights(n), obj, grad)
}

// maxSharpe maximizes (w'mu - rf) / sqrt(w'Sigma w) over the simplex.
// When the unconstrained tangency portfolio Sigma^-1 (mu - rf) is
// already non-negative it is exact; otherwise projected gradient ascent
// takes over.
func maxSharpe(mu []float64, sigma *mat.SymDense, riskFree float64, n int) ([]float64, error) {
	if w, ok := tangency(mu, sigma, riskFree, n); ok {
		return w, nil
	}

	obj := func(w []float64) float64 { return -sharpe(mu, sigma, riskFree, w) }
	grad := func(w []float64) []float64 {
		ret := dot(mu, w) - riskFree
		variance := quadForm(sigma, w)
		vol := math.Sqrt(variance)
		if vol == 0 {
			return make([]float64, n)
		}
		sw := sigmaDot(sigma, w)
		g := make([]float64, n)
		for i := range g {
			// d/dw of -Sharpe
			g[i] = -(mu[i]/vol - ret*sw[i]/(vol*variance))
		}
		return g
	}

	w := projectedDescent(equalWeights(n), obj, grad)
	if math.Sqrt(quadForm(sigma, w)) == 0 {
		return nil, &domain.InfeasibleError{Objective: string(ObjectiveMaxSharpe), Reason: "degenerate covariance: zero volatility at solution"}
	}
	return w, nil
}

// tangency attempts the closed-form long-only max-Sharpe portfolio.
func tangency(mu []float64, sigma *mat.SymDense, riskFree float64, n int) ([]float64, bool) {
	var chol mat.Cholesky
	if ok := chol.Factorize(sigma); !ok {
		return nil, false
	}

	excess := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		excess.SetVec(i, mu[i]-riskFree)
	}

	var y mat.VecDense
	if err := chol.SolveVecTo(&y, excess); err != nil {
		return nil, false
	}

	sum := 0.0
	for i := 0; i < n; i++ {
		if y.AtVec(i) < -1e-12 {
			return nil, false
		}
		sum += y.AtVec(i)
	}
	if sum <= 0 {
		return nil, false
	}

	w := make([]float64, n)
	for i := 0; i < n; i++ {
		w[i] = math.Max(y.AtVec(i), 0) / sum
	}
	return w, true
}

// maxUtility maximizes w'mu - gamma/2 w'Sigma w. Market-neutral mode
// only constrains the weights to sum to one and has the closed form
// w = Sigma^-1 (mu - lambda*1) / gamma with lambda chosen for the
// budget constraint; long-only mode projects onto the simplex.
func maxUtility(mu []float64, sigma *mat.SymDense, gamma float64, marketNeutral bool, n int) ([]float64, error) {
	if gamma <= 0 {
		panic("optimization: risk aversion must be positive")
	}

	if marketNeutral {
		var chol mat.Cholesky
		if ok := chol.Factorize(sigma); !ok {
			return nil, &domain.InfeasibleError{Objective: string(ObjectiveMaxUtility), Reason: "covariance matrix is not positive definite"}
		}

		ones := mat.NewVecDense(n, nil)
		muVec := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			ones.SetVec(i, 1)
			muVec.SetVec(i, mu[i])
		}

		var sigInvMu, sigInvOnes mat.VecDense
		if err := chol.SolveVecTo(&sigInvMu, muVec); err != nil {
			return nil, &domain.InfeasibleError{Objective: string(ObjectiveMaxUtility), Reason: "covariance solve failed"}
		}
		if err := chol.SolveVecTo(&sigInvOnes, ones); err != nil {
			return nil, &domain.InfeasibleError{Objective: string(ObjectiveMaxUtility), Reason: "covariance solve failed"}
		}

		denom := mat.Dot(ones, &sigInvOnes)
		if denom == 0 {
			return nil, &domain.InfeasibleError{Objective: string(ObjectiveMaxUtility), Reason: "degenerate covariance"}
		}
		lambda := (mat.Dot(ones, &sigInvMu) - gamma) / denom

		w := make([]float64, n)
		for i := 0; i < n; i++ {
			w[i] = (sigInvMu.AtVec(i) - lambda*sigInvOnes.AtVec(i)) / gamma
		}
		return w, nil
	}

	obj := func(w []float64) float64 { return -(dot(mu, w) - gamma/2*quadForm(sigma, w)) }
	grad := func(w []float64) []float64 {
		sw := sigmaDot(sigma, w)
		g := make([]float64, n)
		for i := range g {
			g[i] = -(mu[i] - gamma*sw[i])
		}
		return g
	}
	return projectedDescent(equalWeights(n), obj, grad), nil
}

// projectedDescent minimizes obj over the unit simplex by gradient
// steps with backtracking line search, projecting every iterate.
func projectedDescent(start []float64, obj func([]float64) float64, grad func([]float64) []float64) []float64 {
	w := simplexProject(start)
	value := obj(w)

	for iter := 0; iter < solverMaxIterations; iter++ {
		g := grad(w)

		step := 1.0
		var next []float64
		nextValue := value
		improved := false
		for bt := 0; bt < 60; bt++ {
			candidate := make([]float64, len(w))
			for i := range w {
				candidate[i] = w[i] - step*g[i]
			}
			candidate = simplexProject(candidate)
			cv := obj(candidate)
			if cv < value-solverTolerance {
				next, nextValue, improved = candidate, cv, true
				break
			}
			step /= 2
		}

		if !improved {
			break
		}
		w, value = next, nextValue
	}

	return w
}

// simplexProject is the Euclidean projection onto
// {w : sum w = 1, w >= 0} (Duchi et al. 2008).
func simplexProject(v []float64) []float64 {
	n := len(v)
	u := make([]float64, n)
	copy(u, v)
	sort.Sort(sort.Reverse(sort.Float64Slice(u)))

	cumsum := 0.0
	theta := 0.0
	for i := 0; i < n; i++ {
		cumsum += u[i]
		t := (cumsum - 1) / float64(i+1)
		if u[i]-t > 0 {
			theta = t
		}
	}

	w := make([]float64, n)
	for i := range v {
		w[i] = math.Max(v[i]-theta, 0)
	}
	return w
}

func equalWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}
	return w
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func sigmaDot(sigma *mat.SymDense, w []float64) []float64 {
	n := len(w)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out[i] += sigma.At(i, j) * w[j]
		}
	}
	return out
}

func quadForm(sigma *mat.SymDense, w []float64) float64 {
	return dot(w, sigmaDot(sigma, w))
}

func sharpe(mu []float64, sigma *mat.SymDense, riskFree float64, w []float64) float64 {
	vol := math.Sqrt(quadForm(sigma, w))
	if vol == 0 {
		return math.Inf(-1)
	}
	return (dot(mu, w) - riskFree) / vol
}
