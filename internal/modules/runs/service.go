package runs

import (
	"context"
	"errors"
	"time"

	"github.com/aristath/quantum-portfolio/internal/domain"
	"github.com/aristath/quantum-portfolio/internal/events"
	"github.com/aristath/quantum-portfolio/internal/modules/pipeline"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Runner runs the optimization pipeline
type Runner interface {
	RunOptimization(ctx context.Context, assets []string, opts pipeline.Options) (*pipeline.Report, error)
}

// ReportArchiver stores a report outside the history database
type ReportArchiver interface {
	Archive(ctx context.Context, report *pipeline.Report) (string, error)
}

// Store is the run history the service writes to
type Store interface {
	Save(rec Record) error
	SetArchiveKey(id, key string) error
}

// Emitter publishes run events
type Emitter interface {
	Emit(module string, data events.EventData)
}

// RunOptions select how a single run executes and who requested it
type RunOptions struct {
	Mode   pipeline.Mode
	Policy pipeline.FailurePolicy
	Source string
}

// Service runs the pipeline and records every run
type Service struct {
	runner      Runner
	store       Store
	archiver    ReportArchiver // nil disables archiving
	emitter     Emitter
	defaultMode pipeline.Mode
	log         zerolog.Logger
}

// NewService creates a new run service
func NewService(
	runner Runner,
	store Store,
	archiver ReportArchiver,
	emitter Emitter,
	defaultMode pipeline.Mode,
	log zerolog.Logger,
) *Service {
	if defaultMode == "" {
		defaultMode = pipeline.ModeDual
	}
	return &Service{
		runner:      runner,
		store:       store,
		archiver:    archiver,
		emitter:     emitter,
		defaultMode: defaultMode,
		log:         log.With().Str("service", "runs").Logger(),
	}
}

// Run executes one pipeline run and records its outcome. History and archive
// failures are logged; the pipeline result is returned regardless.
func (s *Service) Run(ctx context.Context, assets []string, opts RunOptions) (*pipeline.Report, error) {
	if opts.Source == "" {
		opts.Source = SourceAPI
	}
	mode := opts.Mode
	if mode == "" {
		mode = s.defaultMode
	}

	runID := uuid.New().String()
	log := s.log.With().Str("run_id", runID).Str("source", opts.Source).Logger()
	start := time.Now()

	s.emit(&events.RunStartedData{RunID: runID, Mode: string(mode), Assets: assets, Source: opts.Source})

	report, err := s.runner.RunOptimization(ctx, assets, pipeline.Options{
		Mode:   opts.Mode,
		Policy: opts.Policy,
		RunID:  runID,
	})
	duration := time.Since(start)

	if err != nil {
		s.recordFailure(log, runID, mode, assets, opts.Source, duration, err)
		return nil, err
	}

	status := StatusCompleted
	if len(report.Failures) > 0 {
		status = StatusPartial
	}

	rec := Record{
		ID:         report.RunID,
		Mode:       string(report.Mode),
		Status:     status,
		Assets:     report.Assets,
		Source:     opts.Source,
		DurationMs: duration.Milliseconds(),
		CreatedAt:  report.GeneratedAt,
		Report:     report,
	}
	stored := true
	if err := s.store.Save(rec); err != nil {
		stored = false
		log.Error().Err(err).Msg("Failed to store run")
	}

	if s.archiver != nil {
		s.archive(ctx, log, report, stored)
	}

	sections := make([]string, 0, len(report.Sections))
	for _, section := range report.Sections {
		sections = append(sections, section.Key)
	}
	s.emit(&events.RunCompletedData{
		RunID:      report.RunID,
		Mode:       string(report.Mode),
		Status:     string(status),
		Sections:   sections,
		Failures:   len(report.Failures),
		DurationMs: duration.Milliseconds(),
	})

	return report, nil
}

func (s *Service) archive(ctx context.Context, log zerolog.Logger, report *pipeline.Report, stored bool) {
	key, err := s.archiver.Archive(ctx, report)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to archive report")
		s.emit(&events.ErrorEventData{
			Error:   err.Error(),
			Context: map[string]interface{}{"run_id": report.RunID, "operation": "archive"},
		})
		return
	}
	if stored {
		if err := s.store.SetArchiveKey(report.RunID, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to record archive key")
		}
	}
	s.emit(&events.RunArchivedData{RunID: report.RunID, Key: key})
}

func (s *Service) recordFailure(
	log zerolog.Logger,
	runID string,
	mode pipeline.Mode,
	assets []string,
	source string,
	duration time.Duration,
	runErr error,
) {
	normalized := make([]string, 0, len(assets))
	for _, a := range assets {
		normalized = append(normalized, domain.NormalizeAssetID(a))
	}

	rec := Record{
		ID:           runID,
		Mode:         string(mode),
		Status:       StatusFailed,
		Assets:       normalized,
		Source:       source,
		ErrorMessage: runErr.Error(),
		DurationMs:   duration.Milliseconds(),
		CreatedAt:    time.Now(),
	}

	var stageErr *pipeline.StageError
	if errors.As(runErr, &stageErr) {
		rec.ErrorStage = string(stageErr.Stage)
		rec.ErrorBackend = stageErr.Backend
		rec.ErrorMessage = stageErr.Cause.Error()
	}

	if err := s.store.Save(rec); err != nil {
		log.Error().Err(err).Msg("Failed to store failed run")
	}

	s.emit(&events.RunFailedData{
		RunID:   runID,
		Mode:    string(mode),
		Stage:   rec.ErrorStage,
		Backend: rec.ErrorBackend,
		Error:   rec.ErrorMessage,
	})
}

func (s *Service) emit(data events.EventData) {
	if s.emitter != nil {
		s.emitter.Emit("runs", data)
	}
}
