package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/quantum-portfolio/internal/clients/yahoo"
	"github.com/aristath/quantum-portfolio/internal/config"
	"github.com/aristath/quantum-portfolio/internal/events"
	"github.com/aristath/quantum-portfolio/internal/modules/analytics"
	"github.com/aristath/quantum-portfolio/internal/modules/optimization"
	"github.com/aristath/quantum-portfolio/internal/modules/pipeline"
	"github.com/aristath/quantum-portfolio/internal/modules/runs"
)

// InitializeServices builds the clients, backends, orchestrator and run
// history on top of an initialized container
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, source yahoo.HistorySource, log zerolog.Logger) error {
	container.EventBus = events.NewBus(log)
	container.EventManager = events.NewManager(container.EventBus, log)

	container.YahooClient = yahoo.NewClientWithSource(source, yahoo.Config{
		Period:     cfg.History.Period,
		MaxRetries: cfg.History.MaxRetries,
	}, log)

	calculator, err := analytics.NewCalculator(cfg.AnalyticsSettings(), log)
	if err != nil {
		return fmt.Errorf("failed to create analytics calculator: %w", err)
	}
	container.Calculator = calculator

	combinatorial, err := optimization.NewCombinatorialOptimizer(optimization.CombinatorialConfig{
		Solver: cfg.Optimization.CombinatorialSolver,
		Layers: cfg.Optimization.QAOALayers,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to create combinatorial optimizer: %w", err)
	}
	container.CombinatorialOptimizer = combinatorial

	classical, err := optimization.NewMVOptimizer(optimization.MVConfig{
		Strategy:       cfg.Optimization.ClassicalStrategy,
		RiskFreeRate:   cfg.Analytics.RiskFreeRate,
		PeriodsPerYear: cfg.Analytics.PeriodsPerYear,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to create classical optimizer: %w", err)
	}
	container.ClassicalOptimizer = classical

	pipelineCfg := cfg.PipelineSettings()
	container.Orchestrator = pipeline.NewOrchestrator(
		container.YahooClient,
		combinatorial,
		classical,
		calculator,
		pipelineCfg,
		log,
	)

	container.RunRepo = runs.NewRepository(container.HistoryDB.Conn(), log)

	// Assigned only when enabled so the service sees a nil interface otherwise
	var archiver runs.ReportArchiver
	if cfg.S3.Enabled() {
		s3Archiver, err := runs.NewS3Archiver(ctx, runs.ArchiveConfig{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Prefix:          cfg.S3.Prefix,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to create report archiver: %w", err)
		}
		container.Archiver = s3Archiver
		archiver = s3Archiver
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("Report archiving enabled")
	}

	container.RunService = runs.NewService(
		container.Orchestrator,
		container.RunRepo,
		archiver,
		container.EventManager,
		pipelineCfg.Mode,
		log,
	)

	return nil
}
