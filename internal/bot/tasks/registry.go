package tasks

import (
	"context"

	"github.com/go-co-op/gocron/v2"
)

// ScheduledTaskFunc is the signature of every scheduled task. The context
// is cancelled when the scheduler shuts down.
type ScheduledTaskFunc func(ctx context.Context) error

// Task pairs a task function with when it runs.
type Task struct {
	Definition gocron.JobDefinition
	Run        ScheduledTaskFunc
	// Describe is a human readable schedule for logs.
	Describe string
}

// RegisterAllTasks returns the enabled tasks keyed by name.
func RegisterAllTasks(deps TaskDeps) map[string]Task {
	tasks := make(map[string]Task)

	if deps.Refresher != nil && deps.Config != nil && deps.Config.RefreshInterval > 0 {
		tasks["status_refresh"] = Task{
			Definition: gocron.DurationJob(deps.Config.RefreshInterval),
			Run:        newStatusRefreshTask(deps),
			Describe:   "every " + deps.Config.RefreshInterval.String(),
		}
	}

	if deps.Store != nil && deps.Config != nil && deps.Config.MaintenanceSchedule != "" {
		tasks["sql_maintenance"] = Task{
			Definition: gocron.CronJob(deps.Config.MaintenanceSchedule, false),
			Run:        newSQLMaintenanceTask(deps),
			Describe:   deps.Config.MaintenanceSchedule,
		}
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
