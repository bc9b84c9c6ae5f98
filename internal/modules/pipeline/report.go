package pipeline

import (
	"encoding/json"
	"time"

	"github.com/aristath/quantum-portfolio/internal/domain"
	"github.com/aristath/quantum-portfolio/internal/modules/analytics"
	"github.com/aristath/quantum-portfolio/pkg/formulas"
)

// Performance holds the presentation metrics of a section, rounded to four
// decimal places.
type Performance struct {
	ExpectedAnnualReturn float64 `json:"expected_annual_return" msgpack:"expected_annual_return"`
	AnnualVolatility     float64 `json:"annual_volatility" msgpack:"annual_volatility"`
	SharpeRatio          float64 `json:"sharpe_ratio" msgpack:"sharpe_ratio"`
	ValueAtRisk95        float64 `json:"value_at_risk_95" msgpack:"value_at_risk_95"`
}

// Section is the result of one backend.
type Section struct {
	Key            string                `json:"-" msgpack:"key"`
	Provider       string                `json:"provider" msgpack:"provider"`
	Assets         []string              `json:"assets" msgpack:"assets"`
	OptimalWeights map[string]float64    `json:"optimal_weights" msgpack:"optimal_weights"`
	Performance    Performance           `json:"performance" msgpack:"performance"`
	RawResult      string                `json:"raw_result" msgpack:"raw_result"`
	Solver         domain.SolverArtifact `json:"solver" msgpack:"solver"`

	allocation domain.WeightAllocation
}

// Allocation returns the unrounded weights the metrics were computed on.
// It is only available on sections produced in-process.
func (s Section) Allocation() domain.WeightAllocation {
	return s.allocation
}

// SectionFailure records a backend that produced no section.
type SectionFailure struct {
	Key     string `json:"key" msgpack:"key"`
	Backend string `json:"backend" msgpack:"backend"`
	Stage   Stage  `json:"stage" msgpack:"stage"`
	Message string `json:"message" msgpack:"message"`
}

// Report is the immutable result of one run.
type Report struct {
	RunID       string           `json:"run_id" msgpack:"run_id"`
	Mode        Mode             `json:"mode" msgpack:"mode"`
	Assets      []string         `json:"assets" msgpack:"assets"`
	GeneratedAt time.Time        `json:"generated_at" msgpack:"generated_at"`
	Sections    []Section        `json:"sections" msgpack:"sections"`
	Failures    []SectionFailure `json:"failures,omitempty" msgpack:"failures,omitempty"`
}

// Section returns the section stored under key.
func (r *Report) Section(key string) (Section, bool) {
	for _, s := range r.Sections {
		if s.Key == key {
			return s, true
		}
	}
	return Section{}, false
}

// MarshalJSON renders the public result shape: the single section flat in
// single mode, sections nested under their keys in dual mode.
func (r Report) MarshalJSON() ([]byte, error) {
	if r.Mode == ModeSingle && len(r.Sections) == 1 {
		return json.Marshal(r.Sections[0])
	}

	out := make(map[string]interface{}, len(r.Sections)+1)
	for _, s := range r.Sections {
		out[s.Key] = s
	}
	if len(r.Failures) > 0 {
		out["failures"] = r.Failures
	}
	return json.Marshal(out)
}

func newSection(key, provider string, outcome domain.Outcome, metrics analytics.Metrics) Section {
	w := outcome.Weights
	weights := make(map[string]float64, w.Len())
	for i := 0; i < w.Len(); i++ {
		weights[w.Index().ID(i)] = formulas.Round4(w.At(i))
	}

	return Section{
		Key:            key,
		Provider:       provider,
		Assets:         w.Index().IDs(),
		OptimalWeights: weights,
		Performance: Performance{
			ExpectedAnnualReturn: formulas.Round4(metrics.ExpectedAnnualReturn),
			AnnualVolatility:     formulas.Round4(metrics.AnnualVolatility),
			SharpeRatio:          formulas.Round4(metrics.SharpeRatio),
			ValueAtRisk95:        formulas.Round4(metrics.ValueAtRisk),
		},
		RawResult:  outcome.Artifact.String(),
		Solver:     outcome.Artifact,
		allocation: w,
	}
}
