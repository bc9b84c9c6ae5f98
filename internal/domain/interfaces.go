package domain

import (
	"context"
	"time"
)

// HistoricalSeries holds aligned, equal-length, chronologically ordered
// close prices. Closes[i] belongs to the i-th requested asset.
type HistoricalSeries struct {
	Assets []string
	Dates  []time.Time
	Closes [][]float64
}

// PricePoint is one dated close price.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// HistoryFetcher retrieves historical prices for a set of assets.
type HistoryFetcher interface {
	FetchHistoricalSeries(ctx context.Context, assets []string) (*HistoricalSeries, error)
}

// PriceHistoryProvider retrieves the price history of a single symbol.
type PriceHistoryProvider interface {
	FetchPriceHistory(ctx context.Context, symbol string, period string) ([]PricePoint, error)
}

// Problem is the input handed to an optimization backend.
// Mean and Covariance are read-only for the duration of a run.
type Problem struct {
	Mean         MeanVector
	Covariance   CovarianceMatrix
	RiskAversion float64
	Budget       int
}

// Outcome is what a backend returns for one invocation.
type Outcome struct {
	Weights  WeightAllocation
	Artifact SolverArtifact
}

// Optimizer is an optimization backend.
type Optimizer interface {
	// Name is the provider label shown in reports.
	Name() string
	Optimize(ctx context.Context, problem Problem) (Outcome, error)
}
