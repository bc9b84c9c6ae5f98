package optimization

import (
	"math"
	"math/bits"
)

// qubo is the budget-constrained selection problem
//
//	minimize q·xᵗΣx − μᵗx + P·(Σx − B)²,  x ∈ {0,1}ⁿ
//
// built on rescaled μ and Σ so the objective terms are of order one.
type qubo struct {
	n       int
	budget  int
	q       float64
	mu      []float64
	sigma   [][]float64
	scale   float64
	penalty float64
}

// newQUBO builds the QUBO for a validated problem.
func newQUBO(in inputs) *qubo {
	scale := 0.0
	for i := 0; i < in.n; i++ {
		scale = math.Max(scale, math.Abs(in.mu[i]))
		for j := 0; j < in.n; j++ {
			scale = math.Max(scale, in.q*math.Abs(in.sigma.At(i, j)))
		}
	}
	if scale == 0 {
		scale = 1
	}

	mu := make([]float64, in.n)
	sigma := make([][]float64, in.n)
	penalty := 1.0
	for i := 0; i < in.n; i++ {
		mu[i] = in.mu[i] / scale
		penalty += math.Abs(mu[i])
		sigma[i] = make([]float64, in.n)
		for j := 0; j < in.n; j++ {
			sigma[i][j] = in.sigma.At(i, j) / scale
			penalty += in.q * math.Abs(sigma[i][j])
		}
	}

	return &qubo{
		n:       in.n,
		budget:  in.budget,
		q:       in.q,
		mu:      mu,
		sigma:   sigma,
		scale:   scale,
		penalty: penalty,
	}
}

// cost evaluates the penalized QUBO for the selection encoded in z,
// bit i standing for asset i.
func (p *qubo) cost(z uint64) float64 {
	count := bits.OnesCount64(z)
	diff := float64(count - p.budget)
	return p.scaledObjective(z) + p.penalty*diff*diff
}

// objective returns q·xᵗΣx − μᵗx for z in the original (unscaled) units.
func (p *qubo) objective(z uint64) float64 {
	return p.scaledObjective(z) * p.scale
}

func (p *qubo) scaledObjective(z uint64) float64 {
	var risk, ret float64
	for i := 0; i < p.n; i++ {
		if z&(1<<uint(i)) == 0 {
			continue
		}
		ret += p.mu[i]
		for j := 0; j < p.n; j++ {
			if z&(1<<uint(j)) != 0 {
				risk += p.sigma[i][j]
			}
		}
	}
	return p.q*risk - ret
}

// feasible reports whether z selects exactly budget assets.
func (p *qubo) feasible(z uint64) bool {
	return bits.OnesCount64(z) == p.budget
}

// bitstring renders z with character i standing for asset i.
func (p *qubo) bitstring(z uint64) string {
	b := make([]byte, p.n)
	for i := 0; i < p.n; i++ {
		if z&(1<<uint(i)) != 0 {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
	}
	return string(b)
}
