// Package analytics computes portfolio-level return and risk metrics from a
// mean vector, a covariance matrix and a weight allocation.
//
// All three inputs must be aligned to the same domain.AssetIndex. Inputs are
// periodic (daily) statistics; ComputePerformance annualizes them,
// ComputeValueAtRisk deliberately does not.
package analytics

import (
	"fmt"
	"math"

	"github.com/aristath/quantum-portfolio/internal/domain"
	"github.com/aristath/quantum-portfolio/pkg/formulas"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Constants for analytics configuration
const (
	DefaultRiskFreeRate    = 0.02
	DefaultPeriodsPerYear  = 252.0 // Trading days per year
	DefaultConfidenceLevel = 0.95

	// varianceRoundOff is the largest negative quadratic form treated as
	// floating-point noise around zero.
	varianceRoundOff = -1e-12
)

// VaRConvention selects how the Gaussian quantile is turned into a risk figure.
type VaRConvention string

const (
	// VaRLoss reports max(0, z·σ − μ): the daily loss at the quantile, floored at zero.
	VaRLoss VaRConvention = "loss"
	// VaRAbsolute reports |μ − z·σ|. A portfolio whose quantile return is
	// positive reports that gain as its VaR.
	VaRAbsolute VaRConvention = "absolute"
)

// PerformanceMetrics holds annualized return, volatility and Sharpe ratio.
type PerformanceMetrics struct {
	ExpectedAnnualReturn float64 `json:"expected_annual_return"`
	AnnualVolatility     float64 `json:"annual_volatility"`
	SharpeRatio          float64 `json:"sharpe_ratio"`
}

// ComputePerformance annualizes the portfolio return and volatility and
// derives the Sharpe ratio:
//
//	expectedAnnualReturn = periodsPerYear × μᵗw
//	annualVolatility     = sqrt(wᵗ(periodsPerYear × Σ)w)
//	sharpeRatio          = (expectedAnnualReturn − riskFreeRate) / annualVolatility
//
// A zero annual volatility leaves the Sharpe ratio undefined and fails with
// domain.ErrInvalidAllocation instead of returning an infinity or NaN.
func ComputePerformance(
	mean domain.MeanVector,
	cov domain.CovarianceMatrix,
	weights domain.WeightAllocation,
	riskFreeRate float64,
	periodsPerYear float64,
) (PerformanceMetrics, error) {
	if periodsPerYear <= 0 || !formulas.IsFinite(periodsPerYear) {
		return PerformanceMetrics{}, fmt.Errorf("%w: periods per year must be positive, got %v", domain.ErrInvalidParameter, periodsPerYear)
	}
	if !formulas.IsFinite(riskFreeRate) {
		return PerformanceMetrics{}, fmt.Errorf("%w: risk-free rate must be finite", domain.ErrInvalidParameter)
	}

	portfolioMean, portfolioVariance, err := moments(mean, cov, weights)
	if err != nil {
		return PerformanceMetrics{}, err
	}

	expectedReturn := portfolioMean * periodsPerYear
	// Linear scaling of Σ: wᵗ(kΣ)w = k·wᵗΣw
	volatility := math.Sqrt(portfolioVariance * periodsPerYear)

	if volatility == 0 {
		return PerformanceMetrics{}, fmt.Errorf("%w: zero portfolio volatility leaves the Sharpe ratio undefined", domain.ErrInvalidAllocation)
	}

	return PerformanceMetrics{
		ExpectedAnnualReturn: expectedReturn,
		AnnualVolatility:     volatility,
		SharpeRatio:          (expectedReturn - riskFreeRate) / volatility,
	}, nil
}

// ComputeValueAtRisk returns the one-period (daily) parametric VaR using the
// unannualized mean and covariance:
//
//	μp = μᵗw, σp = sqrt(wᵗΣw), z = Φ⁻¹(confidenceLevel)
//
// The convention decides how μp − z·σp is reported (see VaRLoss, VaRAbsolute).
// confidenceLevel must lie strictly inside (0, 1).
func ComputeValueAtRisk(
	mean domain.MeanVector,
	cov domain.CovarianceMatrix,
	weights domain.WeightAllocation,
	confidenceLevel float64,
	convention VaRConvention,
) (float64, error) {
	if !(confidenceLevel > 0 && confidenceLevel < 1) {
		return 0, fmt.Errorf("%w: confidence level must be in (0,1), got %v", domain.ErrInvalidParameter, confidenceLevel)
	}

	portfolioMean, portfolioVariance, err := moments(mean, cov, weights)
	if err != nil {
		return 0, err
	}

	z := distuv.UnitNormal.Quantile(confidenceLevel)
	quantileReturn := portfolioMean - z*math.Sqrt(portfolioVariance)

	switch convention {
	case VaRLoss, "":
		return math.Max(0, -quantileReturn), nil
	case VaRAbsolute:
		return math.Abs(quantileReturn), nil
	default:
		return 0, fmt.Errorf("%w: unknown VaR convention %q", domain.ErrInvalidParameter, convention)
	}
}

// moments returns the periodic portfolio mean μᵗw and variance wᵗΣw after
// checking that all inputs share the same asset index and are finite.
func moments(mean domain.MeanVector, cov domain.CovarianceMatrix, weights domain.WeightAllocation) (float64, float64, error) {
	if err := checkAligned(mean, cov, weights); err != nil {
		return 0, 0, err
	}

	mu := mean.Vec()
	w := weights.Vec()
	sigma := cov.Sym()

	if !formulas.IsFinite(mu.RawVector().Data...) {
		return 0, 0, fmt.Errorf("%w: mean vector contains non-finite values", domain.ErrInvalidAllocation)
	}
	if !formulas.IsFinite(w.RawVector().Data...) {
		return 0, 0, fmt.Errorf("%w: weights contain non-finite values", domain.ErrInvalidAllocation)
	}
	if !formulas.IsFinite(sigma.RawSymmetric().Data...) {
		return 0, 0, fmt.Errorf("%w: covariance matrix contains non-finite values", domain.ErrInvalidAllocation)
	}

	portfolioMean := mat.Dot(mu, w)
	portfolioVariance := mat.Inner(w, sigma, w)

	if portfolioVariance < 0 {
		if portfolioVariance < varianceRoundOff {
			return 0, 0, fmt.Errorf("%w: negative portfolio variance %g (covariance is not positive semi-definite)", domain.ErrInvalidAllocation, portfolioVariance)
		}
		portfolioVariance = 0
	}

	return portfolioMean, portfolioVariance, nil
}

func checkAligned(mean domain.MeanVector, cov domain.CovarianceMatrix, weights domain.WeightAllocation) error {
	if mean.Len() == 0 {
		return fmt.Errorf("%w: empty mean vector", domain.ErrInvalidAllocation)
	}
	if !mean.Index().Equal(cov.Index()) || cov.Len() != mean.Len() {
		return fmt.Errorf("%w: covariance matrix is not aligned with the mean vector", domain.ErrInvalidAllocation)
	}
	if !mean.Index().Equal(weights.Index()) || weights.Len() != mean.Len() {
		return fmt.Errorf("%w: weights are not aligned with the mean vector", domain.ErrInvalidAllocation)
	}
	return nil
}
