package analytics

import (
	"fmt"

	"github.com/aristath/quantum-portfolio/internal/domain"
	"github.com/rs/zerolog"
)

// Config holds the parameters the pipeline applies to every section.
type Config struct {
	RiskFreeRate    float64
	PeriodsPerYear  float64
	ConfidenceLevel float64
	VaRConvention   VaRConvention
}

// DefaultConfig returns the analytics defaults.
func DefaultConfig() Config {
	return Config{
		RiskFreeRate:    DefaultRiskFreeRate,
		PeriodsPerYear:  DefaultPeriodsPerYear,
		ConfidenceLevel: DefaultConfidenceLevel,
		VaRConvention:   VaRLoss,
	}
}

// Validate checks the configuration before any computation runs.
func (c Config) Validate() error {
	if c.PeriodsPerYear <= 0 {
		return fmt.Errorf("%w: periods per year must be positive, got %v", domain.ErrInvalidParameter, c.PeriodsPerYear)
	}
	if !(c.ConfidenceLevel > 0 && c.ConfidenceLevel < 1) {
		return fmt.Errorf("%w: confidence level must be in (0,1), got %v", domain.ErrInvalidParameter, c.ConfidenceLevel)
	}
	switch c.VaRConvention {
	case VaRLoss, VaRAbsolute:
	default:
		return fmt.Errorf("%w: unknown VaR convention %q", domain.ErrInvalidParameter, c.VaRConvention)
	}
	return nil
}

// Metrics is the full set of presentation metrics for one allocation.
type Metrics struct {
	PerformanceMetrics
	ValueAtRisk float64 `json:"value_at_risk_95"`
}

// Calculator applies a fixed Config to ComputePerformance and ComputeValueAtRisk.
type Calculator struct {
	cfg Config
	log zerolog.Logger
}

// NewCalculator creates a calculator. The config is validated once here.
func NewCalculator(cfg Config, log zerolog.Logger) (*Calculator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{
		cfg: cfg,
		log: log.With().Str("component", "analytics").Logger(),
	}, nil
}

// Config returns the calculator configuration.
func (c *Calculator) Config() Config {
	return c.cfg
}

// Evaluate computes performance and VaR for one allocation.
func (c *Calculator) Evaluate(mean domain.MeanVector, cov domain.CovarianceMatrix, weights domain.WeightAllocation) (Metrics, error) {
	perf, err := ComputePerformance(mean, cov, weights, c.cfg.RiskFreeRate, c.cfg.PeriodsPerYear)
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to compute performance: %w", err)
	}

	valueAtRisk, err := ComputeValueAtRisk(mean, cov, weights, c.cfg.ConfidenceLevel, c.cfg.VaRConvention)
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to compute value at risk: %w", err)
	}

	c.log.Debug().
		Float64("expected_annual_return", perf.ExpectedAnnualReturn).
		Float64("annual_volatility", perf.AnnualVolatility).
		Float64("sharpe_ratio", perf.SharpeRatio).
		Float64("value_at_risk", valueAtRisk).
		Msg("Evaluated allocation")

	return Metrics{PerformanceMetrics: perf, ValueAtRisk: valueAtRisk}, nil
}
