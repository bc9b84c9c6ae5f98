package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReturns(t *testing.T) {
	tests := []struct {
		name     string
		prices   []float64
		expected []float64
	}{
		{
			name:     "empty prices",
			prices:   []float64{},
			expected: []float64{},
		},
		{
			name:     "single price",
			prices:   []float64{100},
			expected: []float64{},
		},
		{
			name:     "rising then falling",
			prices:   []float64{100, 110, 99},
			expected: []float64{0.10, -0.10},
		},
		{
			name:     "flat",
			prices:   []float64{50, 50, 50, 50},
			expected: []float64{0, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Returns(tt.prices)
			require.Len(t, result, len(tt.expected))
			for i := range tt.expected {
				assert.InDelta(t, tt.expected[i], result[i], 1e-12)
			}
		})
	}
}

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.InDelta(t, 0.002, Mean([]float64{0.001, 0.002, 0.003}), 1e-15)
}

func TestMeanVector(t *testing.T) {
	means := MeanVector([][]float64{
		{0.01, 0.03},
		{-0.02, 0.00},
	})

	require.Len(t, means, 2)
	assert.InDelta(t, 0.02, means[0], 1e-15)
	assert.InDelta(t, -0.01, means[1], 1e-15)
}

func TestCovarianceMatrix_SampleCovariance(t *testing.T) {
	a := []float64{0.01, 0.02, 0.03}
	b := []float64{0.03, 0.02, 0.01}

	cov, err := CovarianceMatrix([][]float64{a, b})
	require.NoError(t, err)

	// Sample variance of {0.01, 0.02, 0.03} is 1e-4
	assert.InDelta(t, 1e-4, cov.At(0, 0), 1e-15)
	assert.InDelta(t, 1e-4, cov.At(1, 1), 1e-15)
	assert.InDelta(t, -1e-4, cov.At(0, 1), 1e-15)
	assert.Equal(t, cov.At(0, 1), cov.At(1, 0))
}

func TestCovarianceMatrix_Errors(t *testing.T) {
	_, err := CovarianceMatrix(nil)
	assert.Error(t, err)

	_, err = CovarianceMatrix([][]float64{{0.01}})
	assert.Error(t, err, "a single observation has no sample covariance")

	_, err = CovarianceMatrix([][]float64{{0.01, 0.02}, {0.01}})
	assert.Error(t, err, "ragged series must be rejected")
}

func TestIsFinite(t *testing.T) {
	assert.True(t, IsFinite(1, -2, 0))
	assert.True(t, IsFinite())
	assert.False(t, IsFinite(1, math.NaN()))
	assert.False(t, IsFinite(math.Inf(-1)))
}

func TestRound4(t *testing.T) {
	testCases := []struct {
		input    float64
		expected float64
	}{
		{0.27720000001, 0.2772},
		{0.12345, 0.1235},
		{-0.12345, -0.1235},
		{1.22476, 1.2248},
		{0, 0},
		{0.33333333, 0.3333},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, Round4(tc.input), "Round4(%v)", tc.input)
	}

	assert.True(t, math.IsNaN(Round4(math.NaN())))
	assert.True(t, math.IsInf(Round4(math.Inf(1)), 1))
}
