package pipeline

import (
	"fmt"

	"github.com/aristath/quantum-portfolio/internal/domain"
)

// Stage names a pipeline stage.
type Stage string

const (
	StageDataRetrieval Stage = "data_retrieval"
	StageOptimization  Stage = "optimization"
	StageAnalytics     Stage = "analytics"
)

// StageError is the only error kind a run returns once the asset list has
// been accepted. Backend is empty for data retrieval.
type StageError struct {
	Stage   Stage
	Backend string
	Cause   error
}

func (e *StageError) Error() string {
	if e.Backend == "" {
		return fmt.Sprintf("%s failed: %v", e.Stage, e.Cause)
	}
	return fmt.Sprintf("%s failed for %s: %v", e.Stage, e.Backend, e.Cause)
}

// Unwrap exposes the stage's domain error kind alongside the cause, so
// errors.Is(err, domain.ErrDataRetrieval) and friends match.
func (e *StageError) Unwrap() []error {
	switch e.Stage {
	case StageDataRetrieval:
		return []error{domain.ErrDataRetrieval, e.Cause}
	case StageOptimization:
		return []error{domain.ErrOptimization, e.Cause}
	default:
		return []error{e.Cause}
	}
}

func dataError(cause error) *StageError {
	return &StageError{Stage: StageDataRetrieval, Cause: cause}
}

func optimizationError(backend string, cause error) *StageError {
	return &StageError{Stage: StageOptimization, Backend: backend, Cause: cause}
}

func analyticsError(backend string, cause error) *StageError {
	return &StageError{Stage: StageAnalytics, Backend: backend, Cause: cause}
}
