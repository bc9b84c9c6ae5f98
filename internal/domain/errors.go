package domain

import "errors"

// Error kinds surfaced to callers. Wrap them with fmt.Errorf("...: %w", Err...)
// to attach detail; callers classify with errors.Is.
var (
	// ErrDataRetrieval marks failures fetching or deriving market data.
	ErrDataRetrieval = errors.New("data retrieval failure")
	// ErrOptimization marks failures inside an optimization backend.
	ErrOptimization = errors.New("optimization failure")
	// ErrInvalidAllocation marks malformed analytics inputs: misaligned
	// indexes, non-finite values, or an undefined Sharpe ratio.
	ErrInvalidAllocation = errors.New("invalid allocation")
	// ErrInvalidParameter marks out-of-range parameters.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrNotFound marks missing stored records.
	ErrNotFound = errors.New("not found")
)
