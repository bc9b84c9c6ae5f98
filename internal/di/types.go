// Package di provides dependency injection wiring and initialization.
package di

import (
	"github.com/aristath/quantum-portfolio/internal/clients/yahoo"
	"github.com/aristath/quantum-portfolio/internal/database"
	"github.com/aristath/quantum-portfolio/internal/events"
	"github.com/aristath/quantum-portfolio/internal/modules/analytics"
	"github.com/aristath/quantum-portfolio/internal/modules/optimization"
	"github.com/aristath/quantum-portfolio/internal/modules/pipeline"
	"github.com/aristath/quantum-portfolio/internal/modules/runs"
	"github.com/aristath/quantum-portfolio/internal/scheduler"
)

// Container holds all dependencies for the application.
// It is created by Wire and handed to the server and the scheduler.
type Container struct {
	// Databases
	HistoryDB *database.DB

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Clients
	YahooClient *yahoo.Client

	// Pipeline
	Calculator             *analytics.Calculator
	CombinatorialOptimizer *optimization.CombinatorialOptimizer
	ClassicalOptimizer     *optimization.MVOptimizer
	Orchestrator           *pipeline.Orchestrator

	// Run history
	RunRepo    *runs.Repository
	Archiver   *runs.Archiver // nil when S3 archiving is disabled
	RunService *runs.Service

	// Background jobs
	Scheduler *scheduler.Scheduler
	Jobs      *JobInstances
}

// JobInstances holds the registered jobs; WatchlistJob is nil when no
// schedule is configured.
type JobInstances struct {
	WatchlistJob   *scheduler.WatchlistJob
	MaintenanceJob *scheduler.DatabaseMaintenanceJob
}

// Close releases the container's resources
func (c *Container) Close() error {
	if c.HistoryDB != nil {
		return c.HistoryDB.Close()
	}
	return nil
}
