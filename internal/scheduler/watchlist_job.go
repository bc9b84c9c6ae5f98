package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/quantum-portfolio/internal/modules/pipeline"
	"github.com/aristath/quantum-portfolio/internal/modules/runs"
)

// ErrJobRunning is returned when a job is triggered while still running
var ErrJobRunning = errors.New("job already running")

// Optimizer runs and records one optimization
type Optimizer interface {
	Run(ctx context.Context, assets []string, opts runs.RunOptions) (*pipeline.Report, error)
}

// WatchlistConfig holds configuration for the watchlist job
type WatchlistConfig struct {
	Optimizer Optimizer
	Assets    []string
	Mode      pipeline.Mode // empty uses the configured default
	Timeout   time.Duration // 0 leaves the run unbounded
	Log       zerolog.Logger
}

// WatchlistJob optimizes a fixed asset list on a schedule
type WatchlistJob struct {
	optimizer Optimizer
	assets    []string
	mode      pipeline.Mode
	timeout   time.Duration
	running   atomic.Bool
	log       zerolog.Logger
}

// NewWatchlistJob creates a new watchlist job
func NewWatchlistJob(cfg WatchlistConfig) *WatchlistJob {
	return &WatchlistJob{
		optimizer: cfg.Optimizer,
		assets:    append([]string(nil), cfg.Assets...),
		mode:      cfg.Mode,
		timeout:   cfg.Timeout,
		log:       cfg.Log.With().Str("job", "watchlist_optimization").Logger(),
	}
}

// Name returns the job name
func (j *WatchlistJob) Name() string {
	return "watchlist_optimization"
}

// Run optimizes the watchlist once. Overlapping runs are skipped.
func (j *WatchlistJob) Run() error {
	if !j.running.CompareAndSwap(false, true) {
		j.log.Warn().Msg("Previous watchlist run still in progress, skipping")
		return ErrJobRunning
	}
	defer j.running.Store(false)

	if len(j.assets) == 0 {
		return fmt.Errorf("watchlist is empty")
	}

	ctx := context.Background()
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	j.log.Info().Strs("assets", j.assets).Msg("Starting watchlist optimization")

	report, err := j.optimizer.Run(ctx, j.assets, runs.RunOptions{
		Mode:   j.mode,
		Source: runs.SourceScheduler,
	})
	if err != nil {
		return fmt.Errorf("watchlist optimization failed: %w", err)
	}

	j.log.Info().
		Str("run_id", report.RunID).
		Int("sections", len(report.Sections)).
		Int("failures", len(report.Failures)).
		Msg("Watchlist optimization complete")
	return nil
}
