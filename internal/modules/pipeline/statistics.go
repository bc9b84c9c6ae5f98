package pipeline

import (
	"fmt"

	"github.com/aristath/quantum-portfolio/internal/domain"
	"github.com/aristath/quantum-portfolio/pkg/formulas"
)

// DefaultMinPricePoints is the shortest series that still yields a
// sample covariance (two returns).
const DefaultMinPricePoints = 3

// snapshot is the read-only statistics of one run.
type snapshot struct {
	mean domain.MeanVector
	cov  domain.CovarianceMatrix
}

// clone returns an independent copy for one backend.
func (s snapshot) clone() (snapshot, error) {
	mean, err := domain.NewMeanVector(s.mean.Index(), s.mean.Values())
	if err != nil {
		return snapshot{}, err
	}
	return snapshot{mean: mean, cov: s.cov.Clone()}, nil
}

// alignSeries orders the fetched closes by the index and validates them.
func alignSeries(index *domain.AssetIndex, series *domain.HistoricalSeries, minPoints int) ([][]float64, error) {
	if series == nil {
		return nil, fmt.Errorf("no historical data returned")
	}
	if len(series.Assets) != len(series.Closes) {
		return nil, fmt.Errorf("malformed series: %d assets but %d price series", len(series.Assets), len(series.Closes))
	}

	byAsset := make(map[string][]float64, len(series.Assets))
	for i, asset := range series.Assets {
		byAsset[domain.NormalizeAssetID(asset)] = series.Closes[i]
	}

	closes := make([][]float64, index.Len())
	length := -1
	for i, id := range index.IDs() {
		prices, ok := byAsset[id]
		if !ok {
			return nil, fmt.Errorf("no price history for %s", id)
		}
		if length == -1 {
			length = len(prices)
		} else if len(prices) != length {
			return nil, fmt.Errorf("price series for %s has %d points, expected %d", id, len(prices), length)
		}
		for t, p := range prices {
			if !formulas.IsFinite(p) || p <= 0 {
				return nil, fmt.Errorf("invalid price %v for %s at position %d", p, id, t)
			}
		}
		closes[i] = prices
	}

	if length < minPoints {
		return nil, fmt.Errorf("insufficient history: %d price points, need at least %d", length, minPoints)
	}
	return closes, nil
}

// deriveStatistics computes the mean vector and sample covariance of the
// period-over-period returns.
func deriveStatistics(index *domain.AssetIndex, closes [][]float64) (snapshot, error) {
	returns := make([][]float64, len(closes))
	for i, prices := range closes {
		returns[i] = formulas.Returns(prices)
	}

	mean, err := domain.NewMeanVector(index, formulas.MeanVector(returns))
	if err != nil {
		return snapshot{}, err
	}

	sym, err := formulas.CovarianceMatrix(returns)
	if err != nil {
		return snapshot{}, fmt.Errorf("failed to compute covariance: %w", err)
	}
	cov, err := domain.NewCovarianceMatrix(index, sym)
	if err != nil {
		return snapshot{}, err
	}

	return snapshot{mean: mean, cov: cov}, nil
}
