package domain

import (
	"fmt"
	"strings"
)

// ArtifactKind tags the variant held by a SolverArtifact.
type ArtifactKind string

const (
	ArtifactCombinatorial ArtifactKind = "combinatorial"
	ArtifactClassical     ArtifactKind = "classical"
)

// SolverArtifact is the backend-specific result of one optimization, kept as a
// tagged union so reports stay structurally typed. Exactly one variant pointer
// is set and matches Kind.
type SolverArtifact struct {
	Kind          ArtifactKind         `json:"kind" msgpack:"kind"`
	Combinatorial *CombinatorialResult `json:"combinatorial,omitempty" msgpack:"combinatorial,omitempty"`
	Classical     *ClassicalResult     `json:"classical,omitempty" msgpack:"classical,omitempty"`
}

// CombinatorialResult describes a subset-selection solve.
type CombinatorialResult struct {
	Solver            string    `json:"solver" msgpack:"solver"`
	Bitstring         string    `json:"bitstring" msgpack:"bitstring"`
	Selected          []string  `json:"selected" msgpack:"selected"`
	Budget            int       `json:"budget" msgpack:"budget"`
	RiskAversion      float64   `json:"risk_aversion" msgpack:"risk_aversion"`
	Objective         float64   `json:"objective" msgpack:"objective"`
	OptimalObjective  *float64  `json:"optimal_objective,omitempty" msgpack:"optimal_objective,omitempty"`
	Probability       float64   `json:"probability" msgpack:"probability"`
	Layers            int       `json:"layers,omitempty" msgpack:"layers,omitempty"`
	Gammas            []float64 `json:"gammas,omitempty" msgpack:"gammas,omitempty"`
	Betas             []float64 `json:"betas,omitempty" msgpack:"betas,omitempty"`
	ExpectedCost      float64   `json:"expected_cost,omitempty" msgpack:"expected_cost,omitempty"`
	Evaluations       int       `json:"evaluations" msgpack:"evaluations"`
	CandidatesChecked int       `json:"candidates_checked" msgpack:"candidates_checked"`
}

// ClassicalResult describes a continuous mean-variance solve.
type ClassicalResult struct {
	Strategy       string  `json:"strategy" msgpack:"strategy"`
	Status         string  `json:"status" msgpack:"status"`
	Method         string  `json:"method" msgpack:"method"`
	Iterations     int     `json:"iterations" msgpack:"iterations"`
	FuncEvals      int     `json:"func_evaluations" msgpack:"func_evaluations"`
	Objective      float64 `json:"objective" msgpack:"objective"`
	ExpectedReturn float64 `json:"expected_return" msgpack:"expected_return"`
	Variance       float64 `json:"variance" msgpack:"variance"`
	Budget         int     `json:"budget" msgpack:"budget"`
	ActiveAssets   int     `json:"active_assets" msgpack:"active_assets"`
}

// NewCombinatorialArtifact wraps a combinatorial result.
func NewCombinatorialArtifact(r CombinatorialResult) SolverArtifact {
	return SolverArtifact{Kind: ArtifactCombinatorial, Combinatorial: &r}
}

// NewClassicalArtifact wraps a classical result.
func NewClassicalArtifact(r ClassicalResult) SolverArtifact {
	return SolverArtifact{Kind: ArtifactClassical, Classical: &r}
}

// Validate checks that the variant pointer matches Kind.
func (a SolverArtifact) Validate() error {
	switch a.Kind {
	case ArtifactCombinatorial:
		if a.Combinatorial == nil || a.Classical != nil {
			return fmt.Errorf("%w: combinatorial artifact without combinatorial result", ErrInvalidParameter)
		}
	case ArtifactClassical:
		if a.Classical == nil || a.Combinatorial != nil {
			return fmt.Errorf("%w: classical artifact without classical result", ErrInvalidParameter)
		}
	default:
		return fmt.Errorf("%w: unknown artifact kind %q", ErrInvalidParameter, a.Kind)
	}
	return nil
}

// String renders the artifact as one line of text for reports.
func (a SolverArtifact) String() string {
	switch {
	case a.Kind == ArtifactCombinatorial && a.Combinatorial != nil:
		r := a.Combinatorial
		var b strings.Builder
		fmt.Fprintf(&b, "solver=%s selection=%s [%s] budget=%d objective=%.6g probability=%.4f",
			r.Solver, r.Bitstring, strings.Join(r.Selected, ","), r.Budget, r.Objective, r.Probability)
		if r.OptimalObjective != nil {
			fmt.Fprintf(&b, " optimal_objective=%.6g", *r.OptimalObjective)
		}
		if r.Layers > 0 {
			fmt.Fprintf(&b, " layers=%d expected_cost=%.6g", r.Layers, r.ExpectedCost)
		}
		fmt.Fprintf(&b, " evaluations=%d", r.Evaluations)
		return b.String()
	case a.Kind == ArtifactClassical && a.Classical != nil:
		r := a.Classical
		return fmt.Sprintf("strategy=%s method=%s status=%s iterations=%d func_evaluations=%d objective=%.6g expected_return=%.6g variance=%.6g active_assets=%d/%d",
			r.Strategy, r.Method, r.Status, r.Iterations, r.FuncEvals, r.Objective, r.ExpectedReturn, r.Variance, r.ActiveAssets, r.Budget)
	default:
		return fmt.Sprintf("artifact(kind=%s)", a.Kind)
	}
}
