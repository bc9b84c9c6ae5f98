package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/quantum-portfolio/internal/config"
	"github.com/aristath/quantum-portfolio/internal/scheduler"
)

// maintenanceSchedule runs database maintenance daily at 03:00
const maintenanceSchedule = "0 0 3 * * *"

// RegisterJobs creates the scheduler and registers the background jobs
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	container.Scheduler = scheduler.New(container.EventManager, log)
	instances := &JobInstances{}

	instances.MaintenanceJob = scheduler.NewDatabaseMaintenanceJob(container.HistoryDB, log)
	if err := container.Scheduler.AddJob(maintenanceSchedule, instances.MaintenanceJob); err != nil {
		return nil, fmt.Errorf("failed to register maintenance job: %w", err)
	}

	if cfg.Schedule.Cron != "" {
		instances.WatchlistJob = scheduler.NewWatchlistJob(scheduler.WatchlistConfig{
			Optimizer: container.RunService,
			Assets:    cfg.Schedule.Assets,
			Timeout:   cfg.Pipeline.Timeout,
			Log:       log,
		})
		if err := container.Scheduler.AddJob(cfg.Schedule.Cron, instances.WatchlistJob); err != nil {
			return nil, fmt.Errorf("failed to register watchlist job: %w", err)
		}
	}

	container.Jobs = instances
	return instances, nil
}
