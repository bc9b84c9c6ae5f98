package optimization

import (
	"context"
	"fmt"

	"github.com/aristath/quantum-portfolio/internal/domain"
)

// MaxExactAssets bounds exhaustive enumeration.
const MaxExactAssets = 20

type selection struct {
	z           uint64
	objective   float64
	probability float64
	checked     int
}

// solveExact enumerates every selection of exactly budget assets.
// Ties keep the lowest encoding.
func solveExact(ctx context.Context, p *qubo) (selection, error) {
	if p.n > MaxExactAssets {
		return selection{}, fmt.Errorf("%w: exact solver supports at most %d assets, got %d", domain.ErrInvalidParameter, MaxExactAssets, p.n)
	}

	best := selection{probability: 1}
	found := false
	total := uint64(1) << uint(p.n)
	for z := uint64(0); z < total; z++ {
		if z&0xffff == 0 {
			if err := ctx.Err(); err != nil {
				return selection{}, fmt.Errorf("%w: %w", domain.ErrOptimization, err)
			}
		}
		if !p.feasible(z) {
			continue
		}
		best.checked++
		obj := p.scaledObjective(z)
		if !found || obj < best.objective {
			best.z = z
			best.objective = obj
			found = true
		}
	}

	if !found {
		return selection{}, fmt.Errorf("%w: no feasible selection for budget %d", domain.ErrOptimization, p.budget)
	}
	best.objective *= p.scale
	return best, nil
}
