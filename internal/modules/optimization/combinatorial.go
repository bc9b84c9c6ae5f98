package optimization

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/quantum-portfolio/internal/domain"
	"github.com/rs/zerolog"
)

// Combinatorial solvers.
const (
	SolverAuto  = "auto"
	SolverQAOA  = "qaoa"
	SolverExact = "exact"
)

const (
	DefaultQAOALayers          = 2
	defaultEvaluationsPerAngle = 150
)

// CombinatorialConfig configures the subset-selection optimizer.
type CombinatorialConfig struct {
	Solver         string
	Layers         int
	MaxEvaluations int // Angle-search budget; 0 derives it from Layers
}

// CombinatorialOptimizer selects exactly Budget assets by minimizing the
// risk-adjusted QUBO and allocates them equally.
type CombinatorialOptimizer struct {
	cfg CombinatorialConfig
	log zerolog.Logger
}

// NewCombinatorialOptimizer creates a new combinatorial optimizer.
func NewCombinatorialOptimizer(cfg CombinatorialConfig, log zerolog.Logger) (*CombinatorialOptimizer, error) {
	if cfg.Solver == "" {
		cfg.Solver = SolverAuto
	}
	switch cfg.Solver {
	case SolverAuto, SolverQAOA, SolverExact:
	default:
		return nil, fmt.Errorf("%w: unknown combinatorial solver: %s", domain.ErrInvalidParameter, cfg.Solver)
	}
	if cfg.Layers == 0 {
		cfg.Layers = DefaultQAOALayers
	}
	if cfg.Layers < 1 {
		return nil, fmt.Errorf("%w: qaoa layers must be positive, got %d", domain.ErrInvalidParameter, cfg.Layers)
	}
	if cfg.MaxEvaluations <= 0 {
		cfg.MaxEvaluations = defaultEvaluationsPerAngle * 2 * cfg.Layers
	}
	return &CombinatorialOptimizer{
		cfg: cfg,
		log: log.With().Str("component", "combinatorial_optimizer").Logger(),
	}, nil
}

// Name returns the provider label.
func (co *CombinatorialOptimizer) Name() string {
	return CombinatorialProviderName
}

// Optimize selects the assets and returns weight 1/B on each of them.
func (co *CombinatorialOptimizer) Optimize(ctx context.Context, problem domain.Problem) (domain.Outcome, error) {
	in, err := prepare(ctx, problem)
	if err != nil {
		return domain.Outcome{}, err
	}

	solver := co.cfg.Solver
	if solver == SolverAuto {
		solver = SolverQAOA
		if in.n > MaxQAOAAssets {
			solver = SolverExact
		}
	}

	p := newQUBO(in)
	start := time.Now()

	result := domain.CombinatorialResult{
		Solver:       solver,
		Budget:       in.budget,
		RiskAversion: in.q,
	}

	var picked selection
	switch solver {
	case SolverQAOA:
		run, err := solveQAOA(ctx, p, co.cfg.Layers, co.cfg.MaxEvaluations)
		if err != nil {
			return domain.Outcome{}, err
		}
		picked = run.selection
		result.Layers = co.cfg.Layers
		result.Gammas = run.gammas
		result.Betas = run.betas
		result.ExpectedCost = run.expectedCost
		result.Evaluations = run.evaluations

		// n ≤ MaxQAOAAssets, so the exact reference is always affordable
		ref, err := solveExact(ctx, p)
		if err != nil {
			return domain.Outcome{}, err
		}
		optimal := ref.objective
		result.OptimalObjective = &optimal
	default:
		ref, err := solveExact(ctx, p)
		if err != nil {
			return domain.Outcome{}, err
		}
		picked = ref
		result.Evaluations = ref.checked
		optimal := ref.objective
		result.OptimalObjective = &optimal
	}

	values := make([]float64, in.n)
	selected := make([]string, 0, in.budget)
	for i := 0; i < in.n; i++ {
		if picked.z&(1<<uint(i)) != 0 {
			values[i] = 1.0 / float64(in.budget)
			selected = append(selected, in.index.ID(i))
		}
	}
	weights, err := domain.NewWeightAllocation(in.index, values)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("%w: %w", domain.ErrOptimization, err)
	}

	result.Bitstring = p.bitstring(picked.z)
	result.Selected = selected
	result.Objective = picked.objective
	result.Probability = picked.probability
	result.CandidatesChecked = picked.checked

	co.log.Debug().
		Str("solver", solver).
		Str("bitstring", result.Bitstring).
		Strs("selected", selected).
		Float64("probability", result.Probability).
		Dur("duration", time.Since(start)).
		Msg("Combinatorial optimization complete")

	return domain.Outcome{Weights: weights, Artifact: domain.NewCombinatorialArtifact(result)}, nil
}
