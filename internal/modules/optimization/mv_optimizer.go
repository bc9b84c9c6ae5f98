package optimization

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/aristath/quantum-portfolio/internal/domain"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// Classical optimization strategies.
const (
	StrategyMaxSharpe     = "max_sharpe"
	StrategyMinVolatility = "min_volatility"
	StrategyMeanVariance  = "mean_variance"
)

// MVConfig configures the mean-variance optimizer.
type MVConfig struct {
	Strategy       string
	RiskFreeRate   float64 // Annual
	PeriodsPerYear float64
}

// MVOptimizer performs long-only, fully invested mean-variance optimization.
type MVOptimizer struct {
	cfg MVConfig
	log zerolog.Logger
}

// NewMVOptimizer creates a new mean-variance optimizer.
func NewMVOptimizer(cfg MVConfig, log zerolog.Logger) (*MVOptimizer, error) {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyMaxSharpe
	}
	switch cfg.Strategy {
	case StrategyMaxSharpe, StrategyMinVolatility, StrategyMeanVariance:
	default:
		return nil, fmt.Errorf("%w: unknown strategy: %s", domain.ErrInvalidParameter, cfg.Strategy)
	}
	if cfg.PeriodsPerYear <= 0 {
		return nil, fmt.Errorf("%w: periods per year must be positive, got %v", domain.ErrInvalidParameter, cfg.PeriodsPerYear)
	}
	return &MVOptimizer{
		cfg: cfg,
		log: log.With().Str("component", "mv_optimizer").Logger(),
	}, nil
}

// Name returns the provider label.
func (mvo *MVOptimizer) Name() string {
	return ClassicalProviderName
}

// Optimize solves the mean-variance problem.
//
// Mathematical formulation:
//   - Objective depends on strategy:
//   - max_sharpe: maximize (μ'w - r_f) / sqrt(w'Σw), r_f the per-period risk-free rate
//   - min_volatility: minimize w'Σw
//   - mean_variance: maximize μ'w - λ(w'Σw) with λ = 2 × risk aversion
//
// Constraints:
//   - Σw = 1 (weights sum to 1)
//   - 0 ≤ w_i ≤ 1
//   - at most Budget non-zero weights
func (mvo *MVOptimizer) Optimize(ctx context.Context, problem domain.Problem) (domain.Outcome, error) {
	in, err := prepare(ctx, problem)
	if err != nil {
		return domain.Outcome{}, err
	}

	active := make([]int, in.n)
	for i := range active {
		active[i] = i
	}

	sol, err := mvo.solve(in, active)
	if err != nil {
		return domain.Outcome{}, err
	}

	// Cardinality: keep the Budget largest weights and re-solve on them
	if nonZero(sol.weights) > in.budget {
		active = largest(sol.weights, in.budget)
		mvo.log.Debug().
			Int("budget", in.budget).
			Ints("active", active).
			Msg("Re-solving on budget-limited asset subset")
		if sol, err = mvo.solve(in, active); err != nil {
			return domain.Outcome{}, err
		}
	}

	if err := ctx.Err(); err != nil {
		return domain.Outcome{}, fmt.Errorf("%w: %w", domain.ErrOptimization, err)
	}

	weights, err := domain.NewWeightAllocation(in.index, sol.weights)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("%w: %w", domain.ErrOptimization, err)
	}

	ret, variance := portfolioMoments(in.mu, in.sigma, sol.weights)
	artifact := domain.NewClassicalArtifact(domain.ClassicalResult{
		Strategy:       mvo.cfg.Strategy,
		Status:         sol.status,
		Method:         sol.method,
		Iterations:     sol.iterations,
		FuncEvals:      sol.funcEvals,
		Objective:      sol.objective,
		ExpectedReturn: ret,
		Variance:       variance,
		Budget:         in.budget,
		ActiveAssets:   weights.NonZero(),
	})

	mvo.log.Debug().
		Str("strategy", mvo.cfg.Strategy).
		Str("method", sol.method).
		Str("status", sol.status).
		Int("active_assets", weights.NonZero()).
		Msg("Mean-variance optimization complete")

	return domain.Outcome{Weights: weights, Artifact: artifact}, nil
}

type solution struct {
	weights    []float64
	objective  float64
	status     string
	method     string
	iterations int
	funcEvals  int
}

// solve optimizes over the assets listed in active; the rest get weight 0.
func (mvo *MVOptimizer) solve(in inputs, active []int) (solution, error) {
	m := len(active)
	mu := make([]float64, m)
	sigma := mat.NewSymDense(m, nil)
	for a, i := range active {
		mu[a] = in.mu[i]
		for b := a; b < m; b++ {
			sigma.SetSym(a, b, in.sigma.At(i, active[b]))
		}
	}

	if m == 1 {
		weights := make([]float64, in.n)
		weights[active[0]] = 1
		return solution{
			weights:   weights,
			objective: mvo.objective(mu, sigma, in.q, []float64{1}),
			status:    optimize.Success.String(),
			method:    "none",
		}, nil
	}

	// Penalty method: the strategy objective is evaluated on the projected,
	// normalized weights and the raw sum is pinned to 1.
	penaltyWeight := 1.0
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			xProj := mvo.projectToBounds(x)
			w, sum := normalize(xProj)
			if w == nil {
				return math.Inf(1)
			}
			obj := mvo.objective(mu, sigma, in.q, w)
			obj += penaltyWeight * (sum - 1.0) * (sum - 1.0)
			return obj
		},
	}
	problem.Grad = func(grad, x []float64) {
		fd.Gradient(grad, problem.Func, x, nil)
	}

	initial := make([]float64, m)
	for i := range initial {
		initial[i] = 1.0 / float64(m)
	}

	method := "NelderMead"
	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.NelderMead{})
	if err != nil || !acceptedStatus(result.Status) {
		// Try with different method
		mvo.log.Debug().Err(err).Msg("Nelder-Mead did not converge, falling back to BFGS")
		method = "BFGS"
		result, err = optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.BFGS{})
		if err != nil {
			return solution{}, fmt.Errorf("%w: optimization failed: %w", domain.ErrOptimization, err)
		}
		if !acceptedStatus(result.Status) {
			return solution{}, fmt.Errorf("%w: optimization did not converge: status=%v", domain.ErrOptimization, result.Status)
		}
	}

	// Project final solution to bounds and normalize
	xFinal, _ := normalize(mvo.projectToBounds(result.X))
	if xFinal == nil {
		return solution{}, fmt.Errorf("%w: optimizer returned an all-zero allocation", domain.ErrOptimization)
	}
	for i := range xFinal {
		if xFinal[i] < dustWeight {
			xFinal[i] = 0
		}
	}
	xFinal, _ = normalize(xFinal)

	weights := make([]float64, in.n)
	for a, i := range active {
		weights[i] = xFinal[a]
	}

	return solution{
		weights:    weights,
		objective:  mvo.objective(mu, sigma, in.q, xFinal),
		status:     result.Status.String(),
		method:     method,
		iterations: result.Stats.MajorIterations,
		funcEvals:  result.Stats.FuncEvaluations,
	}, nil
}

// objective returns the value to minimize for weights on the simplex.
func (mvo *MVOptimizer) objective(mu []float64, sigma *mat.SymDense, riskAversion float64, w []float64) float64 {
	ret, variance := portfolioMoments(mu, sigma, w)
	switch mvo.cfg.Strategy {
	case StrategyMinVolatility:
		return variance
	case StrategyMeanVariance:
		lambda := 2 * riskAversion
		return -(ret - lambda*variance)
	default:
		rf := mvo.cfg.RiskFreeRate / mvo.cfg.PeriodsPerYear
		stdDev := math.Sqrt(math.Max(variance, 1e-10))
		return -(ret - rf) / stdDev
	}
}

// projectToBounds clamps each weight to [0, 1].
func (mvo *MVOptimizer) projectToBounds(x []float64) []float64 {
	xProj := make([]float64, len(x))
	for i := range x {
		xProj[i] = math.Max(0, math.Min(1, x[i]))
	}
	return xProj
}

// normalize scales x to sum to 1. It returns nil when the sum vanishes.
func normalize(x []float64) ([]float64, float64) {
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	if sum < 1e-12 {
		return nil, sum
	}
	w := make([]float64, len(x))
	for i := range x {
		w[i] = x[i] / sum
	}
	return w, sum
}

func acceptedStatus(status optimize.Status) bool {
	switch status {
	case optimize.Success,
		optimize.FunctionConvergence,
		optimize.GradientThreshold,
		optimize.StepConvergence,
		optimize.MethodConverge:
		return true
	}
	return false
}

func nonZero(w []float64) int {
	count := 0
	for _, v := range w {
		if v > 0 {
			count++
		}
	}
	return count
}

// largest returns the positions of the k largest weights in ascending
// position order. Ties go to the lower position.
func largest(w []float64, k int) []int {
	order := make([]int, len(w))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return w[order[a]] > w[order[b]]
	})
	top := append([]int(nil), order[:k]...)
	sort.Ints(top)
	return top
}
