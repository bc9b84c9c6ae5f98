// Package optimization provides the portfolio optimization backends: a
// combinatorial subset selector solved by simulated QAOA or exhaustive
// search, and a continuous long-only mean-variance optimizer.
package optimization

import (
	"context"
	"fmt"

	"github.com/aristath/quantum-portfolio/internal/domain"
	"github.com/aristath/quantum-portfolio/pkg/formulas"
	"gonum.org/v1/gonum/mat"
)

// Provider names reported in pipeline sections.
const (
	CombinatorialProviderName = "Quantum QAOA Optimizer"
	ClassicalProviderName     = "Classical Mean-Variance Optimizer"
)

// dustWeight is the smallest weight kept after a continuous solve.
const dustWeight = 1e-6

// inputs is the dense form of a validated problem.
type inputs struct {
	index  *domain.AssetIndex
	n      int
	mu     []float64
	sigma  *mat.SymDense
	q      float64
	budget int
}

func prepare(ctx context.Context, problem domain.Problem) (inputs, error) {
	if err := ctx.Err(); err != nil {
		return inputs{}, fmt.Errorf("%w: %w", domain.ErrOptimization, err)
	}

	n := problem.Mean.Len()
	if n == 0 {
		return inputs{}, fmt.Errorf("%w: no assets provided", domain.ErrInvalidParameter)
	}
	if !problem.Mean.Index().Equal(problem.Covariance.Index()) || problem.Covariance.Len() != n {
		return inputs{}, fmt.Errorf("%w: covariance matrix is not aligned with the mean vector", domain.ErrInvalidAllocation)
	}
	if problem.Budget < 1 || problem.Budget > n {
		return inputs{}, fmt.Errorf("%w: budget %d outside [1, %d]", domain.ErrInvalidParameter, problem.Budget, n)
	}
	if problem.RiskAversion < 0 || !formulas.IsFinite(problem.RiskAversion) {
		return inputs{}, fmt.Errorf("%w: risk aversion must be a non-negative number, got %v", domain.ErrInvalidParameter, problem.RiskAversion)
	}

	mu := problem.Mean.Values()
	if !formulas.IsFinite(mu...) {
		return inputs{}, fmt.Errorf("%w: mean vector contains non-finite values", domain.ErrInvalidAllocation)
	}
	sigma := problem.Covariance.Sym()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if !formulas.IsFinite(sigma.At(i, j)) {
				return inputs{}, fmt.Errorf("%w: covariance matrix contains non-finite values", domain.ErrInvalidAllocation)
			}
		}
	}

	return inputs{
		index:  problem.Mean.Index(),
		n:      n,
		mu:     mu,
		sigma:  sigma,
		q:      problem.RiskAversion,
		budget: problem.Budget,
	}, nil
}

// portfolioMoments returns μᵗw and wᵗΣw.
func portfolioMoments(mu []float64, sigma *mat.SymDense, w []float64) (float64, float64) {
	var ret, variance float64
	for i := range w {
		ret += mu[i] * w[i]
		for j := range w {
			variance += w[i] * w[j] * sigma.At(i, j)
		}
	}
	return ret, variance
}
