package optimization

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/aristath/quantum-portfolio/internal/domain"
	"gonum.org/v1/gonum/optimize"
)

// MaxQAOAAssets bounds the statevector size (2ⁿ amplitudes).
const MaxQAOAAssets = 14

// probabilityTie is the tolerance under which two outcome probabilities
// are considered equal.
const probabilityTie = 1e-12

// qaoaRun is the outcome of one simulated QAOA optimization.
type qaoaRun struct {
	selection
	gammas       []float64
	betas        []float64
	expectedCost float64
	evaluations  int
}

// qaoaSimulator evaluates a p-layer QAOA circuit for a qubo by exact
// statevector simulation. Costs are normalized to [0, 1] so a single angle
// range suits every problem.
type qaoaSimulator struct {
	p      *qubo
	layers int
	costs  []float64 // normalized
	state  []complex128
}

func newQAOASimulator(p *qubo, layers int) *qaoaSimulator {
	dim := 1 << uint(p.n)
	costs := make([]float64, dim)
	lo, hi := math.Inf(1), math.Inf(-1)
	for z := 0; z < dim; z++ {
		c := p.cost(uint64(z))
		costs[z] = c
		lo = math.Min(lo, c)
		hi = math.Max(hi, c)
	}
	span := hi - lo
	for z := range costs {
		if span > 0 {
			costs[z] = (costs[z] - lo) / span
		} else {
			costs[z] = 0
		}
	}
	return &qaoaSimulator{
		p:      p,
		layers: layers,
		costs:  costs,
		state:  make([]complex128, dim),
	}
}

// evolve prepares |γ,β⟩ = Π_l e^{-iβ_l B} e^{-iγ_l C} |+⟩ⁿ in s.state.
func (s *qaoaSimulator) evolve(gammas, betas []float64) {
	amp := complex(1/math.Sqrt(float64(len(s.state))), 0)
	for z := range s.state {
		s.state[z] = amp
	}

	for l := 0; l < s.layers; l++ {
		// Cost layer is diagonal in the computational basis
		for z := range s.state {
			s.state[z] *= cmplx.Exp(complex(0, -gammas[l]*s.costs[z]))
		}

		// Mixer: RX(2β) on every qubit
		c := complex(math.Cos(betas[l]), 0)
		is := complex(0, -math.Sin(betas[l]))
		for k := 0; k < s.p.n; k++ {
			bit := 1 << uint(k)
			for z := range s.state {
				if z&bit != 0 {
					continue
				}
				a, b := s.state[z], s.state[z|bit]
				s.state[z] = c*a + is*b
				s.state[z|bit] = is*a + c*b
			}
		}
	}
}

// expectation returns ⟨C⟩ for the current state.
func (s *qaoaSimulator) expectation() float64 {
	var e float64
	for z, a := range s.state {
		e += probability(a) * s.costs[z]
	}
	return e
}

func probability(a complex128) float64 {
	re, im := real(a), imag(a)
	return re*re + im*im
}

// initialAngles is a linear-ramp schedule: γ grows and β shrinks with depth.
func initialAngles(layers int) []float64 {
	x := make([]float64, 2*layers)
	for l := 0; l < layers; l++ {
		frac := (float64(l) + 0.5) / float64(layers)
		x[l] = math.Pi * frac
		x[layers+l] = math.Pi / 4 * (1 - frac)
	}
	return x
}

// solveQAOA optimizes the circuit angles with Nelder-Mead and returns the
// most probable selection that satisfies the budget.
func solveQAOA(ctx context.Context, p *qubo, layers, maxEvaluations int) (qaoaRun, error) {
	if p.n > MaxQAOAAssets {
		return qaoaRun{}, fmt.Errorf("%w: qaoa solver supports at most %d assets, got %d", domain.ErrInvalidParameter, MaxQAOAAssets, p.n)
	}
	if layers < 1 {
		return qaoaRun{}, fmt.Errorf("%w: qaoa needs at least one layer, got %d", domain.ErrInvalidParameter, layers)
	}

	sim := newQAOASimulator(p, layers)

	start := initialAngles(layers)
	bestX := append([]float64(nil), start...)
	bestF := math.Inf(1)
	evaluations := 0

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			evaluations++
			if ctx.Err() != nil {
				return math.Inf(1)
			}
			sim.evolve(x[:layers], x[layers:])
			f := sim.expectation()
			if f < bestF {
				bestF = f
				copy(bestX, x)
			}
			return f
		},
	}

	// The angle search only needs to improve on the start; its termination
	// status is not a failure of the selection.
	_, _ = optimize.Minimize(problem, start, &optimize.Settings{FuncEvaluations: maxEvaluations}, &optimize.NelderMead{})

	if err := ctx.Err(); err != nil {
		return qaoaRun{}, fmt.Errorf("%w: %w", domain.ErrOptimization, err)
	}
	if math.IsInf(bestF, 1) {
		return qaoaRun{}, fmt.Errorf("%w: qaoa angle search produced no evaluation", domain.ErrOptimization)
	}

	sim.evolve(bestX[:layers], bestX[layers:])

	run := qaoaRun{
		gammas:       append([]float64(nil), bestX[:layers]...),
		betas:        append([]float64(nil), bestX[layers:]...),
		expectedCost: bestF,
		evaluations:  evaluations,
	}

	found := false
	for z, a := range sim.state {
		zz := uint64(z)
		if !p.feasible(zz) {
			continue
		}
		run.checked++
		prob := probability(a)
		c := sim.costs[z]
		if !found ||
			prob > run.probability+probabilityTie ||
			(math.Abs(prob-run.probability) <= probabilityTie && c < sim.costs[run.z]) {
			run.z = zz
			run.probability = prob
			found = true
		}
	}
	if !found {
		return qaoaRun{}, fmt.Errorf("%w: no feasible selection for budget %d", domain.ErrOptimization, p.budget)
	}
	run.objective = p.objective(run.z)

	return run, nil
}
