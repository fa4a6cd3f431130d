package tasks

import "context"

// newStatusRefreshTask creates the task keeping the status message in sync
// with the controlled process.
func newStatusRefreshTask(deps TaskDeps) ScheduledTaskFunc {
	return func(ctx context.Context) error {
		deps.Refresher.RefreshIfMonitoring(ctx)
		return nil
	}
}
