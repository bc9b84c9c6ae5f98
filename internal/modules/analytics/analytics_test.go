package analytics

import (
	"math"
	"testing"

	"github.com/aristath/quantum-portfolio/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	mean    domain.MeanVector
	cov     domain.CovarianceMatrix
	weights domain.WeightAllocation
}

func newFixture(t *testing.T, ids []string, mean []float64, cov [][]float64, weights []float64) fixture {
	t.Helper()
	index, err := domain.NewAssetIndex(ids)
	require.NoError(t, err)
	m, err := domain.NewMeanVector(index, mean)
	require.NoError(t, err)
	c, err := domain.NewCovarianceMatrixFromRows(index, cov)
	require.NoError(t, err)
	w, err := domain.NewWeightAllocation(index, weights)
	require.NoError(t, err)
	return fixture{mean: m, cov: c, weights: w}
}

func twoAssetFixture(t *testing.T) fixture {
	return newFixture(t,
		[]string{"A", "B"},
		[]float64{0.001, 0.0012},
		[][]float64{{0.0004, 0.0001}, {0.0001, 0.0005}},
		[]float64{0.5, 0.5},
	)
}

func TestComputePerformance_TwoAssets(t *testing.T) {
	f := twoAssetFixture(t)

	perf, err := ComputePerformance(f.mean, f.cov, f.weights, 0.02, 252)
	require.NoError(t, err)

	// wᵗΣw = 0.25×0.0004 + 0.25×0.0005 + 2×0.25×0.0001 = 0.000275
	expectedVol := math.Sqrt(252 * 0.000275)

	assert.InDelta(t, 0.2772, perf.ExpectedAnnualReturn, 1e-12)
	assert.InDelta(t, expectedVol, perf.AnnualVolatility, 1e-12)
	assert.InDelta(t, 0.2632, perf.AnnualVolatility, 1e-4)
	assert.InDelta(t, (0.2772-0.02)/expectedVol, perf.SharpeRatio, 1e-12)
	assert.InDelta(t, 0.9770, perf.SharpeRatio, 1e-4)
}

func TestComputePerformance_SingleAssetAnnualization(t *testing.T) {
	f := newFixture(t, []string{"AAPL"}, []float64{0.0007}, [][]float64{{0.0002}}, []float64{1.0})

	perf, err := ComputePerformance(f.mean, f.cov, f.weights, DefaultRiskFreeRate, DefaultPeriodsPerYear)
	require.NoError(t, err)

	assert.InDelta(t, 252*0.0007, perf.ExpectedAnnualReturn, 1e-12)
	assert.InDelta(t, math.Sqrt(252*0.0002), perf.AnnualVolatility, 1e-12)
}

func TestComputePerformance_ZeroVolatility(t *testing.T) {
	f := newFixture(t, []string{"CASH"}, []float64{0.0001}, [][]float64{{0}}, []float64{1.0})

	_, err := ComputePerformance(f.mean, f.cov, f.weights, 0.02, 252)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidAllocation)
}

func TestComputePerformance_ZeroWeights(t *testing.T) {
	f := newFixture(t, []string{"A", "B"}, []float64{0.001, 0.002},
		[][]float64{{0.0004, 0}, {0, 0.0004}}, []float64{0, 0})

	_, err := ComputePerformance(f.mean, f.cov, f.weights, 0.02, 252)
	assert.ErrorIs(t, err, domain.ErrInvalidAllocation)
}

func TestComputePerformance_InvalidPeriods(t *testing.T) {
	f := twoAssetFixture(t)

	for _, periods := range []float64{0, -252, math.NaN()} {
		_, err := ComputePerformance(f.mean, f.cov, f.weights, 0.02, periods)
		assert.ErrorIs(t, err, domain.ErrInvalidParameter, "periods=%v", periods)
	}
}

func TestComputePerformance_MisalignedIndex(t *testing.T) {
	f := twoAssetFixture(t)

	other, err := domain.NewAssetIndex([]string{"B", "A"})
	require.NoError(t, err)
	weights, err := domain.NewWeightAllocation(other, []float64{0.5, 0.5})
	require.NoError(t, err)

	_, err = ComputePerformance(f.mean, f.cov, weights, 0.02, 252)
	assert.ErrorIs(t, err, domain.ErrInvalidAllocation)
}

func TestComputePerformance_NonFiniteInput(t *testing.T) {
	f := newFixture(t, []string{"A", "B"}, []float64{math.NaN(), 0.001},
		[][]float64{{0.0004, 0}, {0, 0.0004}}, []float64{0.5, 0.5})

	_, err := ComputePerformance(f.mean, f.cov, f.weights, 0.02, 252)
	assert.ErrorIs(t, err, domain.ErrInvalidAllocation)
}

func TestComputePerformance_NegativeVariance(t *testing.T) {
	// Not positive semi-definite: wᵗΣw < 0 for equal weights
	f := newFixture(t, []string{"A", "B"}, []float64{0.001, 0.001},
		[][]float64{{0.0001, -0.0005}, {-0.0005, 0.0001}}, []float64{0.5, 0.5})

	_, err := ComputePerformance(f.mean, f.cov, f.weights, 0.02, 252)
	assert.ErrorIs(t, err, domain.ErrInvalidAllocation)
}

func TestComputeValueAtRisk_KnownValue(t *testing.T) {
	f := newFixture(t, []string{"A"}, []float64{0}, [][]float64{{0.0001}}, []float64{1.0})

	valueAtRisk, err := ComputeValueAtRisk(f.mean, f.cov, f.weights, 0.95, VaRLoss)
	require.NoError(t, err)

	// z(0.95) ≈ 1.644854, σ = 0.01
	assert.InDelta(t, 0.01644854, valueAtRisk, 1e-6)
}

func TestComputeValueAtRisk_Monotonic(t *testing.T) {
	f := twoAssetFixture(t)

	for _, convention := range []VaRConvention{VaRLoss, VaRAbsolute} {
		prev := -1.0
		for c := 50; c <= 99; c++ {
			valueAtRisk, err := ComputeValueAtRisk(f.mean, f.cov, f.weights, float64(c)/100, convention)
			require.NoError(t, err)
			if convention == VaRLoss {
				assert.GreaterOrEqual(t, valueAtRisk, prev, "confidence=%d%%", c)
			}
			assert.GreaterOrEqual(t, valueAtRisk, 0.0)
			prev = valueAtRisk
		}
	}
}

func TestComputeValueAtRisk_LossFlooredAtZero(t *testing.T) {
	// μ far above z·σ: the quantile return is a gain
	f := newFixture(t, []string{"A"}, []float64{0.05}, [][]float64{{0.0001}}, []float64{1.0})

	loss, err := ComputeValueAtRisk(f.mean, f.cov, f.weights, 0.95, VaRLoss)
	require.NoError(t, err)
	assert.Equal(t, 0.0, loss)

	absolute, err := ComputeValueAtRisk(f.mean, f.cov, f.weights, 0.95, VaRAbsolute)
	require.NoError(t, err)
	assert.InDelta(t, 0.05-1.644854*0.01, absolute, 1e-6)
}

func TestComputeValueAtRisk_ConventionsAgreeOnLosses(t *testing.T) {
	f := newFixture(t, []string{"A"}, []float64{0.0005}, [][]float64{{0.0004}}, []float64{1.0})

	loss, err := ComputeValueAtRisk(f.mean, f.cov, f.weights, 0.99, VaRLoss)
	require.NoError(t, err)
	absolute, err := ComputeValueAtRisk(f.mean, f.cov, f.weights, 0.99, VaRAbsolute)
	require.NoError(t, err)

	assert.InDelta(t, loss, absolute, 1e-15)
	assert.Greater(t, loss, 0.0)
}

func TestComputeValueAtRisk_InvalidConfidence(t *testing.T) {
	f := twoAssetFixture(t)

	for _, c := range []float64{0, 1, -0.5, 1.5, math.NaN()} {
		_, err := ComputeValueAtRisk(f.mean, f.cov, f.weights, c, VaRLoss)
		assert.ErrorIs(t, err, domain.ErrInvalidParameter, "confidence=%v", c)
	}
}

func TestComputeValueAtRisk_UnknownConvention(t *testing.T) {
	f := twoAssetFixture(t)

	_, err := ComputeValueAtRisk(f.mean, f.cov, f.weights, 0.95, VaRConvention("signed"))
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestCalculator_Evaluate(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	calc, err := NewCalculator(DefaultConfig(), log)
	require.NoError(t, err)

	f := twoAssetFixture(t)
	metrics, err := calc.Evaluate(f.mean, f.cov, f.weights)
	require.NoError(t, err)

	perf, err := ComputePerformance(f.mean, f.cov, f.weights, DefaultRiskFreeRate, DefaultPeriodsPerYear)
	require.NoError(t, err)
	valueAtRisk, err := ComputeValueAtRisk(f.mean, f.cov, f.weights, DefaultConfidenceLevel, VaRLoss)
	require.NoError(t, err)

	assert.Equal(t, perf, metrics.PerformanceMetrics)
	assert.Equal(t, valueAtRisk, metrics.ValueAtRisk)
}

func TestCalculator_EvaluateWrapsErrors(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	calc, err := NewCalculator(DefaultConfig(), log)
	require.NoError(t, err)

	f := newFixture(t, []string{"CASH"}, []float64{0.0001}, [][]float64{{0}}, []float64{1.0})
	_, err = calc.Evaluate(f.mean, f.cov, f.weights)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidAllocation)
	assert.Contains(t, err.Error(), "failed to compute performance")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"absolute convention", func(c *Config) { c.VaRConvention = VaRAbsolute }, true},
		{"zero periods", func(c *Config) { c.PeriodsPerYear = 0 }, false},
		{"confidence one", func(c *Config) { c.ConfidenceLevel = 1 }, false},
		{"empty convention", func(c *Config) { c.VaRConvention = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, domain.ErrInvalidParameter)
			}
		})
	}
}
