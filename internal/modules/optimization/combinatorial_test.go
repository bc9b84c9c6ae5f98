package optimization

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/aristath/quantum-portfolio/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fourAssetProblem(t *testing.T) domain.Problem {
	return newProblem(t,
		[]string{"A", "B", "C", "D"},
		[]float64{0.001, 0.004, 0.002, 0.003},
		[][]float64{
			{0.0001, 0, 0, 0},
			{0, 0.0001, 0, 0},
			{0, 0, 0.0001, 0},
			{0, 0, 0, 0.0001},
		},
		0.5, 2,
	)
}

func newCombinatorial(t *testing.T, solver string) *CombinatorialOptimizer {
	t.Helper()
	optimizer, err := NewCombinatorialOptimizer(CombinatorialConfig{Solver: solver}, testLogger())
	require.NoError(t, err)
	return optimizer
}

func TestCombinatorialOptimizer_Exact(t *testing.T) {
	outcome, err := newCombinatorial(t, SolverExact).Optimize(context.Background(), fourAssetProblem(t))
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 0.5, 0, 0.5}, outcome.Weights.Values())

	require.NoError(t, outcome.Artifact.Validate())
	result := outcome.Artifact.Combinatorial
	require.NotNil(t, result)
	assert.Equal(t, SolverExact, result.Solver)
	assert.Equal(t, "0101", result.Bitstring)
	assert.Equal(t, []string{"B", "D"}, result.Selected)
	assert.Equal(t, 6, result.CandidatesChecked)
	assert.Equal(t, 1.0, result.Probability)
	// q·xᵗΣx − μᵗx = 0.5×0.0002 − 0.007
	assert.InDelta(t, -0.0069, result.Objective, 1e-12)
	require.NotNil(t, result.OptimalObjective)
	assert.InDelta(t, result.Objective, *result.OptimalObjective, 1e-15)
}

func TestCombinatorialOptimizer_QAOA(t *testing.T) {
	problem := fourAssetProblem(t)
	optimizer := newCombinatorial(t, SolverQAOA)

	outcome, err := optimizer.Optimize(context.Background(), problem)
	require.NoError(t, err)

	// Exactly Budget assets at 1/Budget each
	assert.Equal(t, 2, outcome.Weights.NonZero())
	assert.InDelta(t, 1.0, outcome.Weights.Sum(), 1e-12)
	for _, w := range outcome.Weights.Values() {
		assert.True(t, w == 0 || w == 0.5, "unexpected weight %v", w)
	}

	result := outcome.Artifact.Combinatorial
	require.NotNil(t, result)
	assert.Equal(t, SolverQAOA, result.Solver)
	assert.Equal(t, 2, strings.Count(result.Bitstring, "1"))
	assert.Len(t, result.Selected, 2)
	assert.Equal(t, DefaultQAOALayers, result.Layers)
	assert.Len(t, result.Gammas, DefaultQAOALayers)
	assert.Len(t, result.Betas, DefaultQAOALayers)
	assert.Greater(t, result.Probability, 0.0)
	assert.LessOrEqual(t, result.Probability, 1.0)
	assert.Positive(t, result.Evaluations)
	require.NotNil(t, result.OptimalObjective)
	assert.LessOrEqual(t, *result.OptimalObjective, result.Objective+1e-12)

	// Deterministic across runs
	again, err := optimizer.Optimize(context.Background(), problem)
	require.NoError(t, err)
	assert.Equal(t, outcome.Weights.Values(), again.Weights.Values())
	assert.Equal(t, result.Bitstring, again.Artifact.Combinatorial.Bitstring)
}

func TestCombinatorialOptimizer_AutoSolver(t *testing.T) {
	small, err := newCombinatorial(t, SolverAuto).Optimize(context.Background(), fourAssetProblem(t))
	require.NoError(t, err)
	assert.Equal(t, SolverQAOA, small.Artifact.Combinatorial.Solver)

	n := MaxQAOAAssets + 1
	ids := make([]string, n)
	mu := make([]float64, n)
	cov := make([][]float64, n)
	for i := 0; i < n; i++ {
		ids[i] = string(rune('A' + i))
		mu[i] = 0.001 * float64(i+1)
		cov[i] = make([]float64, n)
		cov[i][i] = 0.0001
	}
	large, err := newCombinatorial(t, SolverAuto).Optimize(context.Background(), newProblem(t, ids, mu, cov, 0.5, n/2))
	require.NoError(t, err)
	assert.Equal(t, SolverExact, large.Artifact.Combinatorial.Solver)
	assert.Equal(t, n/2, large.Weights.NonZero())
	// Highest means win under identical variances
	for i := 0; i < n; i++ {
		if i >= n-n/2 {
			assert.Greater(t, large.Weights.At(i), 0.0, "asset %d", i)
		} else {
			assert.Equal(t, 0.0, large.Weights.At(i), "asset %d", i)
		}
	}
}

func TestCombinatorialOptimizer_Failures(t *testing.T) {
	t.Run("budget above asset count", func(t *testing.T) {
		problem := fourAssetProblem(t)
		problem.Budget = 5
		_, err := newCombinatorial(t, SolverAuto).Optimize(context.Background(), problem)
		assert.ErrorIs(t, err, domain.ErrInvalidParameter)
	})

	t.Run("qaoa above size limit", func(t *testing.T) {
		n := MaxQAOAAssets + 1
		ids := make([]string, n)
		mu := make([]float64, n)
		cov := make([][]float64, n)
		for i := 0; i < n; i++ {
			ids[i] = string(rune('A' + i))
			cov[i] = make([]float64, n)
			cov[i][i] = 0.0001
		}
		_, err := newCombinatorial(t, SolverQAOA).Optimize(context.Background(), newProblem(t, ids, mu, cov, 0.5, 2))
		assert.ErrorIs(t, err, domain.ErrInvalidParameter)
	})

	t.Run("unknown solver", func(t *testing.T) {
		_, err := NewCombinatorialOptimizer(CombinatorialConfig{Solver: "annealer"}, testLogger())
		assert.ErrorIs(t, err, domain.ErrInvalidParameter)
	})
}

func TestQUBO_PenaltyKeepsMinimumFeasible(t *testing.T) {
	problem := fourAssetProblem(t)
	in, err := prepare(context.Background(), problem)
	require.NoError(t, err)
	p := newQUBO(in)

	best := uint64(0)
	for z := uint64(1); z < 1<<4; z++ {
		if p.cost(z) < p.cost(best) {
			best = z
		}
	}
	assert.True(t, p.feasible(best))
	assert.Equal(t, "0101", p.bitstring(best))
}

func TestQAOASimulator_PreservesNorm(t *testing.T) {
	in, err := prepare(context.Background(), fourAssetProblem(t))
	require.NoError(t, err)
	sim := newQAOASimulator(newQUBO(in), 2)

	sim.evolve([]float64{0.7, 1.3}, []float64{0.4, 0.2})

	total := 0.0
	for _, a := range sim.state {
		total += probability(a)
	}
	assert.InDelta(t, 1.0, total, 1e-12)
}

func TestQAOASimulator_ZeroAnglesGiveUniformState(t *testing.T) {
	in, err := prepare(context.Background(), fourAssetProblem(t))
	require.NoError(t, err)
	sim := newQAOASimulator(newQUBO(in), 1)

	sim.evolve([]float64{0}, []float64{0})

	mean := 0.0
	for z, a := range sim.state {
		assert.InDelta(t, 1.0/16, probability(a), 1e-12)
		mean += sim.costs[z] / 16
	}
	assert.InDelta(t, mean, sim.expectation(), 1e-12)
	assert.False(t, math.IsNaN(sim.expectation()))
}

func TestInitialAngles(t *testing.T) {
	x := initialAngles(2)
	require.Len(t, x, 4)
	assert.Less(t, x[0], x[1], "gamma ramps up")
	assert.Greater(t, x[2], x[3], "beta ramps down")
}
