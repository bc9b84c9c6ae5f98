// Package formulas holds the return and dispersion statistics shared by the
// pipeline and the optimizers.
package formulas

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Returns converts a price series to period-over-period fractional returns.
// Returns[i] = (Price[i+1] - Price[i]) / Price[i]
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	// ROCP with a one-bar lookback leaves the first slot empty
	rocp := talib.Rocp(prices, 1)
	return rocp[1:]
}

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// MeanVector returns the per-column mean of equally long return series.
func MeanVector(series [][]float64) []float64 {
	means := make([]float64, len(series))
	for i, s := range series {
		means[i] = Mean(s)
	}
	return means
}

// CovarianceMatrix computes the sample (n-1) covariance of equally long return
// series. series[i] is the return series of variable i.
func CovarianceMatrix(series [][]float64) (*mat.SymDense, error) {
	n := len(series)
	if n == 0 {
		return nil, fmt.Errorf("no return series provided")
	}

	obs := len(series[0])
	if obs < 2 {
		return nil, fmt.Errorf("need at least 2 observations, got %d", obs)
	}
	for i, s := range series {
		if len(s) != obs {
			return nil, fmt.Errorf("return series %d has %d observations, expected %d", i, len(s), obs)
		}
	}

	// Rows are observations, columns are variables
	data := mat.NewDense(obs, n, nil)
	for j, s := range series {
		for t, r := range s {
			data.Set(t, j, r)
		}
	}

	cov := mat.NewSymDense(n, nil)
	stat.CovarianceMatrix(cov, data, nil)
	return cov, nil
}

// IsFinite reports whether every value is neither NaN nor infinite.
func IsFinite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
