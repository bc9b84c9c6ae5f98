// Package pipeline sequences data retrieval, statistics derivation, the
// optimization backends and analytics into a single report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/quantum-portfolio/internal/domain"
	"github.com/aristath/quantum-portfolio/internal/modules/analytics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultRiskAversion is the q parameter handed to the combinatorial backend.
const DefaultRiskAversion = 0.5

// Evaluator computes the presentation metrics of one allocation.
type Evaluator interface {
	Evaluate(mean domain.MeanVector, cov domain.CovarianceMatrix, weights domain.WeightAllocation) (analytics.Metrics, error)
}

// Config holds the orchestrator defaults.
type Config struct {
	Mode           Mode
	Policy         FailurePolicy
	RiskAversion   float64
	MinPricePoints int
	Timeout        time.Duration // 0 disables the run deadline
}

// Options override the defaults for a single run.
type Options struct {
	Mode   Mode
	Policy FailurePolicy
	RunID  string // generated when empty
}

// Orchestrator runs the optimization pipeline.
type Orchestrator struct {
	fetcher       domain.HistoryFetcher
	combinatorial domain.Optimizer
	classical     domain.Optimizer
	evaluator     Evaluator
	cfg           Config
	log           zerolog.Logger
	now           func() time.Time
}

// NewOrchestrator creates a new orchestrator.
func NewOrchestrator(
	fetcher domain.HistoryFetcher,
	combinatorial domain.Optimizer,
	classical domain.Optimizer,
	evaluator Evaluator,
	cfg Config,
	log zerolog.Logger,
) *Orchestrator {
	if cfg.Mode == "" {
		cfg.Mode = ModeDual
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyFailFast
	}
	if cfg.MinPricePoints < DefaultMinPricePoints {
		cfg.MinPricePoints = DefaultMinPricePoints
	}
	return &Orchestrator{
		fetcher:       fetcher,
		combinatorial: combinatorial,
		classical:     classical,
		evaluator:     evaluator,
		cfg:           cfg,
		log:           log.With().Str("service", "pipeline").Logger(),
		now:           time.Now,
	}
}

// backend is one backend invocation of a run.
type backend struct {
	key       string
	optimizer domain.Optimizer
	budget    int
	q         float64
}

// sectionResult is the outcome of one backend slot.
type sectionResult struct {
	section Section
	err     *StageError
}

// RunOptimization fetches history for assets, runs the backends selected by
// the mode and assembles the report.
func (o *Orchestrator) RunOptimization(ctx context.Context, assets []string, opts Options) (*Report, error) {
	mode := o.cfg.Mode
	if opts.Mode != "" {
		mode = opts.Mode
	}
	if mode != ModeSingle && mode != ModeDual {
		return nil, fmt.Errorf("%w: unknown optimizer mode %q", domain.ErrInvalidParameter, mode)
	}
	policy := o.cfg.Policy
	if opts.Policy != "" {
		policy = opts.Policy
	}
	if policy != PolicyFailFast && policy != PolicyReportPartial {
		return nil, fmt.Errorf("%w: unknown partial failure policy %q", domain.ErrInvalidParameter, policy)
	}

	index, err := domain.NewAssetIndex(assets)
	if err != nil {
		return nil, err
	}

	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	log := o.log.With().Str("run_id", runID).Str("mode", string(mode)).Logger()
	start := time.Now()

	log.Info().Int("assets", index.Len()).Msg("Starting optimization run")

	// Stage 1: data retrieval and statistics
	snap, stageErr := o.retrieve(ctx, index)
	if stageErr != nil {
		log.Error().Err(stageErr).Msg("Data retrieval failed")
		return nil, stageErr
	}
	log.Debug().Dur("elapsed", time.Since(start)).Msg("Statistics derived")

	// Stages 2 and 3 per backend
	backends := o.backends(mode, index.Len())
	results, err := o.runBackends(ctx, log, snap, backends, policy)
	if err != nil {
		log.Error().Err(err).Msg("Optimization run failed")
		return nil, err
	}

	// Stage 4: assembly
	report := &Report{
		RunID:       runID,
		Mode:        mode,
		Assets:      index.IDs(),
		GeneratedAt: o.now().UTC(),
	}
	var firstErr *StageError
	for i, r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			report.Failures = append(report.Failures, SectionFailure{
				Key:     backends[i].key,
				Backend: r.err.Backend,
				Stage:   r.err.Stage,
				Message: r.err.Cause.Error(),
			})
			continue
		}
		report.Sections = append(report.Sections, r.section)
	}

	if len(report.Sections) == 0 {
		log.Error().Err(firstErr).Msg("Every backend failed")
		return nil, firstErr
	}
	if len(report.Failures) > 0 {
		log.Warn().
			Int("sections", len(report.Sections)).
			Int("failures", len(report.Failures)).
			Msg("Optimization run completed with failed backends")
	}

	log.Info().
		Int("sections", len(report.Sections)).
		Dur("duration", time.Since(start)).
		Msg("Optimization run complete")

	return report, nil
}

func (o *Orchestrator) retrieve(ctx context.Context, index *domain.AssetIndex) (snapshot, *StageError) {
	series, err := o.fetcher.FetchHistoricalSeries(ctx, index.IDs())
	if err != nil {
		return snapshot{}, dataError(fmt.Errorf("failed to fetch historical series: %w", err))
	}

	closes, err := alignSeries(index, series, o.cfg.MinPricePoints)
	if err != nil {
		return snapshot{}, dataError(err)
	}

	snap, err := deriveStatistics(index, closes)
	if err != nil {
		return snapshot{}, dataError(err)
	}
	return snap, nil
}

func (o *Orchestrator) backends(mode Mode, n int) []backend {
	q := o.cfg.RiskAversion
	if q == 0 {
		q = DefaultRiskAversion
	}

	list := []backend{{key: KeyQuantum, optimizer: o.combinatorial, budget: n / 2, q: q}}
	if mode == ModeDual {
		list = append(list, backend{key: KeyClassical, optimizer: o.classical, budget: n, q: q})
	}
	return list
}

// runBackends invokes every backend concurrently. Under fail fast the first
// failure cancels the others and is returned; otherwise each slot carries
// its own result.
func (o *Orchestrator) runBackends(
	ctx context.Context,
	log zerolog.Logger,
	snap snapshot,
	backends []backend,
	policy FailurePolicy,
) ([]sectionResult, error) {
	failFast := policy == PolicyFailFast || len(backends) == 1

	// Each backend gets its own copy of the statistics
	owned := make([]snapshot, len(backends))
	for i, b := range backends {
		own, err := snap.clone()
		if err != nil {
			return nil, optimizationError(b.optimizer.Name(), err)
		}
		owned[i] = own
	}

	results := make([]sectionResult, len(backends))
	g, gctx := errgroup.WithContext(ctx)

	for i, b := range backends {
		i, b, own := i, b, owned[i]
		g.Go(func() error {
			runCtx := ctx
			if failFast {
				runCtx = gctx
			}
			section, stageErr := o.runBackend(runCtx, log, own, b)
			results[i] = sectionResult{section: section, err: stageErr}
			if stageErr != nil && failFast {
				return stageErr
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		var stageErr *StageError
		if errors.As(err, &stageErr) {
			return nil, stageErr
		}
		return nil, err
	}
	return results, nil
}

func (o *Orchestrator) runBackend(ctx context.Context, log zerolog.Logger, snap snapshot, b backend) (Section, *StageError) {
	name := b.optimizer.Name()
	start := time.Now()

	outcome, err := b.optimizer.Optimize(ctx, domain.Problem{
		Mean:         snap.mean,
		Covariance:   snap.cov,
		RiskAversion: b.q,
		Budget:       b.budget,
	})
	if err != nil {
		log.Error().Err(err).Str("backend", name).Msg("Backend failed")
		return Section{}, optimizationError(name, err)
	}
	if err := checkOutcome(snap, outcome, b.budget); err != nil {
		log.Error().Err(err).Str("backend", name).Msg("Backend returned an unusable outcome")
		return Section{}, optimizationError(name, err)
	}

	log.Debug().
		Str("backend", name).
		Dur("elapsed", time.Since(start)).
		Msg("Backend finished")

	// Analytics run on the same snapshot the backend saw, on unrounded weights
	metrics, err := o.evaluator.Evaluate(snap.mean, snap.cov, outcome.Weights)
	if err != nil {
		log.Error().Err(err).Str("backend", name).Msg("Analytics failed")
		return Section{}, analyticsError(name, err)
	}

	return newSection(b.key, name, outcome, metrics), nil
}

func checkOutcome(snap snapshot, outcome domain.Outcome, budget int) error {
	if err := outcome.Artifact.Validate(); err != nil {
		return fmt.Errorf("invalid solver artifact: %w", err)
	}
	if !outcome.Weights.Index().Equal(snap.mean.Index()) {
		return fmt.Errorf("%w: weights are not aligned with the run's assets", domain.ErrInvalidAllocation)
	}
	if nz := outcome.Weights.NonZero(); nz > budget {
		return fmt.Errorf("%w: %d non-zero weights exceed the selection budget %d", domain.ErrInvalidAllocation, nz, budget)
	}
	return nil
}
