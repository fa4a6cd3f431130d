package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/edgard/seedingbot/internal/bot"
	"github.com/edgard/seedingbot/internal/bot/tasks"
	"github.com/edgard/seedingbot/internal/config"
	"github.com/edgard/seedingbot/internal/database"
	"github.com/edgard/seedingbot/internal/discord"
	"github.com/edgard/seedingbot/internal/logger"
	"github.com/edgard/seedingbot/internal/process"
	"github.com/edgard/seedingbot/internal/status"
)

const defaultConfigPath = "./config.yaml"

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "bot",
		Short:         "Discord controller for a docker-compose seeding stack",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "Path to configuration file")

	root.AddCommand(newProbeCmd(&configPath))

	return root
}

// loadConfig loads the configuration with load and builds the logger it
// describes.
func loadConfig(path string, load func(string) (*config.Config, error)) (*config.Config, *slog.Logger, error) {
	cfg, err := load(path)
	if err != nil {
		slog.Error("Failed to load configuration", "path", path, "error", err)
		return nil, nil, err
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	slog.SetDefault(log)
	return cfg, log, nil
}

// newProber builds the configured probe backend. The returned closer is nil
// when the backend holds no resources.
func newProber(cfg config.ProbeConfig, log *slog.Logger) (process.Prober, io.Closer, error) {
	switch cfg.Backend {
	case config.ProbeBackendDocker:
		p, err := process.NewDockerProber(cfg.Container, log)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	default:
		return process.NewExecProber(cfg.Command, log), nil, nil
	}
}

// run initializes all components and blocks until ctx is cancelled.
func run(ctx context.Context, configPath string) error {
	cfg, log, err := loadConfig(configPath, config.LoadConfig)
	if err != nil {
		return err
	}
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	db, err := database.NewDB(cfg.Database.Path, log)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return err
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	prober, proberCloser, err := newProber(cfg.Probe, log)
	if err != nil {
		log.Error("Failed to initialize status probe", "backend", cfg.Probe.Backend, "error", err)
		return err
	}
	var closers []io.Closer
	if proberCloser != nil {
		closers = append(closers, proberCloser)
	}

	session, err := discord.NewSession(cfg.Discord.Token, log)
	if err != nil {
		log.Error("Failed to create Discord session", "error", err)
		return err
	}

	controller := bot.NewController(bot.ControllerDeps{
		Logger:   log,
		Prober:   prober,
		Runner:   process.NewShellRunner(cfg.Commands.WorkDir, log),
		Channel:  discord.NewChannelManager(session, store, cfg.Discord.ChannelID, log),
		Acks:     discord.NewAcknowledger(session, log),
		Location: cfg.Server.Location,
		Text: status.Text{
			Title:       cfg.Status.Title,
			Description: cfg.Status.Description,
			FieldName:   cfg.Status.FieldName,
		},
		Commands: map[string]string{
			status.ActionStart: cfg.Commands.Start,
			status.ActionStop:  cfg.Commands.Stop,
		},
	})

	taskMap := tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger:    log,
		Store:     store,
		Refresher: controller,
		Config:    &cfg.Scheduler,
		ChannelID: cfg.Discord.ChannelID,
	})
	sched, err := bot.NewScheduler(log, taskMap)
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return err
	}

	app := bot.NewBot(log, session, controller, sched, closers...)

	log.Info("Starting bot...", "location", cfg.Server.Location, "channel_id", cfg.Discord.ChannelID)
	runErr := app.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return fmt.Errorf("bot stopped: %w", runErr)
	}

	log.Info("Bot stopped gracefully.")
	return nil
}
