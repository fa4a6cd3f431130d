package tasks

import (
	"context"
	"fmt"
	"time"
)

// newSQLMaintenanceTask creates the task that drops status messages tracked
// for channels the bot no longer serves and then compacts the database.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "sql_maintenance")

	return func(ctx context.Context) error {
		startTime := time.Now()

		if deps.ChannelID != "" {
			pruned, err := deps.Store.PruneStatusMessages(ctx, deps.ChannelID)
			if err != nil {
				return fmt.Errorf("prune status messages: %w", err)
			}
			if pruned > 0 {
				log.InfoContext(ctx, "Forgot status messages of other channels", "count", pruned)
			}
		}

		if err := deps.Store.RunSQLMaintenance(ctx); err != nil {
			log.ErrorContext(ctx, "SQL maintenance failed", "error", err, "duration", time.Since(startTime))
			return fmt.Errorf("sql maintenance failed: %w", err)
		}

		log.InfoContext(ctx, "SQL maintenance completed", "duration", time.Since(startTime))
		return nil
	}
}
