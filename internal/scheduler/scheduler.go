// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/aristath/quantum-portfolio/internal/events"
	"github.com/aristath/quantum-portfolio/pkg/logger"
)

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// Emitter publishes job lifecycle events
type Emitter interface {
	Emit(module string, data events.EventData)
}

// Scheduler manages background jobs
type Scheduler struct {
	cron    *cron.Cron
	emitter Emitter
	log     zerolog.Logger
}

// New creates a new scheduler. Schedules use the six-field cron format with
// a leading seconds field.
func New(emitter Emitter, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		emitter: emitter,
		log:     logger.Component(log, "scheduler"),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a new job with cron schedule
// Schedule examples:
//   - "0 */5 * * * *"      - Every 5 minutes
//   - "@hourly"            - Every hour
//   - "0 30 16 * * MON-FRI" - 16:30 on weekdays
//   - "@every 30s"         - Every 30 seconds
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		_ = s.RunNow(job)
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// RunNow executes a job immediately and reports its outcome
func (s *Scheduler) RunNow(job Job) error {
	s.log.Debug().Str("job", job.Name()).Msg("Running job")
	start := time.Now()

	err := job.Run()
	status := &events.JobStatusData{
		Job:      job.Name(),
		Status:   "completed",
		Duration: time.Since(start).Milliseconds(),
	}
	if err != nil {
		status.Status = "failed"
		status.Error = err.Error()
		s.log.Error().Err(err).Str("job", job.Name()).Msg("Job failed")
	} else {
		s.log.Debug().Str("job", job.Name()).Dur("duration", time.Since(start)).Msg("Job completed")
	}

	if s.emitter != nil {
		s.emitter.Emit("scheduler", status)
	}
	return err
}

// JobCount returns the number of registered jobs
func (s *Scheduler) JobCount() int {
	return len(s.cron.Entries())
}
