package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// MaintainedDB is a database the maintenance job checks
type MaintainedDB interface {
	Name() string
	HealthCheck(ctx context.Context) error
	WALCheckpoint(mode string) error
}

// DatabaseMaintenanceJob runs an integrity check and truncates the WAL
type DatabaseMaintenanceJob struct {
	db  MaintainedDB
	log zerolog.Logger
}

// NewDatabaseMaintenanceJob creates a new maintenance job
func NewDatabaseMaintenanceJob(db MaintainedDB, log zerolog.Logger) *DatabaseMaintenanceJob {
	return &DatabaseMaintenanceJob{
		db:  db,
		log: log.With().Str("job", "database_maintenance").Logger(),
	}
}

// Name returns the job name
func (j *DatabaseMaintenanceJob) Name() string {
	return "database_maintenance"
}

// Run executes the maintenance
func (j *DatabaseMaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := j.db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}

	j.log.Debug().Str("database", j.db.Name()).Msg("Database maintenance complete")
	return nil
}
