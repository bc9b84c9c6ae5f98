package pipeline

import (
	"fmt"
	"strings"

	"github.com/aristath/quantum-portfolio/internal/domain"
)

// Mode selects which backends a run invokes.
type Mode string

const (
	// ModeSingle runs the combinatorial backend only.
	ModeSingle Mode = "single"
	// ModeDual runs the combinatorial and classical backends side by side.
	ModeDual Mode = "dual"
)

// FailurePolicy decides what a dual run does when one backend fails.
type FailurePolicy string

const (
	// PolicyFailFast fails the whole run with the first backend error.
	PolicyFailFast FailurePolicy = "fail_fast"
	// PolicyReportPartial keeps the succeeding sections and records failures.
	PolicyReportPartial FailurePolicy = "report_partial"
)

// Section keys.
const (
	KeyQuantum   = "quantum"
	KeyClassical = "classical"
)

// ParseMode parses a mode name. The empty string yields def.
func ParseMode(s string, def Mode) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return def, nil
	case ModeSingle:
		return ModeSingle, nil
	case ModeDual:
		return ModeDual, nil
	}
	return "", fmt.Errorf("%w: unknown optimizer mode %q", domain.ErrInvalidParameter, s)
}

// ParseFailurePolicy parses a policy name. The empty string yields def.
func ParseFailurePolicy(s string, def FailurePolicy) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return def, nil
	case PolicyFailFast:
		return PolicyFailFast, nil
	case PolicyReportPartial:
		return PolicyReportPartial, nil
	}
	return "", fmt.Errorf("%w: unknown partial failure policy %q", domain.ErrInvalidParameter, s)
}
