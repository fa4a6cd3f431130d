// Package tasks implements the scheduled jobs of the bot: the periodic
// status refresh and database maintenance.
package tasks

import (
	"context"
	"log/slog"

	"github.com/edgard/seedingbot/internal/config"
	"github.com/edgard/seedingbot/internal/database"
)

// Refresher re-probes the controlled process and republishes the status message.
type Refresher interface {
	RefreshIfMonitoring(ctx context.Context)
}

// TaskDeps contains the dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger    *slog.Logger
	Store     database.Store
	Refresher Refresher
	Config    *config.SchedulerConfig
	// ChannelID is the status channel whose tracked message survives pruning.
	ChannelID string
}
