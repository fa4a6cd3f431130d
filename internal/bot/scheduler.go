package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/edgard/seedingbot/internal/bot/tasks"
	"github.com/edgard/seedingbot/internal/logger"
)

// Scheduler runs the registered tasks using gocron.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	taskMap   map[string]tasks.Task // Registered tasks keyed by name
	mu        sync.Mutex            // Protects running and cancel during start/stop
	running   bool
	cancel    context.CancelFunc // Cancels the context handed to tasks
}

// NewScheduler creates a scheduler for taskMap. Jobs run in UTC.
func NewScheduler(log *slog.Logger, taskMap map[string]tasks.Task) (*Scheduler, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "scheduler")

	// Route gocron's own logging through slog and evaluate cron
	// expressions in UTC
	s, err := gocron.NewScheduler(
		gocron.WithLogger(logger.Gocron(log)),
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: s,
		logger:    log,
		taskMap:   taskMap,
	}, nil
}

// Start schedules every task and starts ticking. Tasks receive a context
// derived from ctx that is cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	// Tasks share one context so Stop can interrupt them
	taskCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	scheduledCount := 0
	for taskName, task := range s.taskMap {
		// A task without a function or a schedule cannot be registered
		if task.Run == nil || task.Definition == nil {
			s.logger.Warn("Scheduled task incomplete, skipping", "task_name", taskName)
			continue
		}

		_, err := s.scheduler.NewJob(
			task.Definition,
			gocron.NewTask(s.wrap(taskCtx, taskName, task.Run)),
			gocron.WithName(taskName), // Name shows up in gocron's logs
			// A run still in progress skips the next tick instead of overlapping
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			s.logger.Error("Failed to schedule task", "task_name", taskName, "schedule", task.Describe, "error", err)
			continue // Continue scheduling other tasks
		}

		s.logger.Info("Scheduled task", "task_name", taskName, "schedule", task.Describe)
		scheduledCount++
	}

	s.scheduler.Start()
	s.running = true
	s.logger.Info("Scheduler started", "tasks_scheduled", scheduledCount)

	return nil
}

// wrap adapts run to a gocron task that logs its outcome and duration.
// Task errors are logged, never returned to gocron.
func (s *Scheduler) wrap(ctx context.Context, name string, run tasks.ScheduledTaskFunc) func() {
	return func() {
		s.logger.Debug("Running scheduled task", "task_name", name)
		startTime := time.Now()
		if err := run(ctx); err != nil {
			s.logger.Error("Scheduled task failed", "task_name", name, "error", err)
		}
		s.logger.Debug("Finished scheduled task", "task_name", name, "duration", time.Since(startTime))
	}
}

// Stop cancels running tasks and waits for them to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		s.logger.Info("Scheduler is not running, nothing to stop.")
		return nil
	}

	// Interrupt running tasks first, then wait for them; Shutdown blocks
	// until every running job returned
	s.cancel()
	err := s.scheduler.Shutdown()
	if err != nil {
		s.logger.Error("Error during scheduler shutdown", "error", err)
	} else {
		s.logger.Info("Scheduler stopped gracefully.")
	}

	// Mark as stopped even if shutdown reported an error
	s.running = false
	return err
}
