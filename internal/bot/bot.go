// Package bot wires the Discord gateway, the controller and the scheduler
// together and manages their lifecycle.
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/seedingbot/internal/logger"
)

// Gateway is the part of *discordgo.Session that owns the websocket.
type Gateway interface {
	AddHandler(handler interface{}) func()
	Open() error
	Close() error
}

// Bot runs the gateway connection and the scheduler until shutdown.
type Bot struct {
	logger     *slog.Logger
	gateway    Gateway
	controller *Controller
	scheduler  *Scheduler
	closers    []io.Closer
}

// NewBot creates a bot. closers are closed after the gateway on shutdown.
func NewBot(logger *slog.Logger, gateway Gateway, controller *Controller, scheduler *Scheduler, closers ...io.Closer) *Bot {
	return &Bot{
		logger:     logger.With("component", "bot_orchestrator"),
		gateway:    gateway,
		controller: controller,
		scheduler:  scheduler,
		closers:    closers,
	}
}

// Run connects to Discord and blocks until ctx is cancelled or a component
// fails.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	b.gateway.AddHandler(b.controller.ReadyHandler(ctx))
	// discordgo matches handlers by their unnamed func type.
	interactions := logger.Interactions(b.logger)(b.controller.InteractionHandler(ctx))
	b.gateway.AddHandler((func(*discordgo.Session, *discordgo.InteractionCreate))(interactions))

	if err := b.gateway.Open(); err != nil {
		b.close()
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	b.logger.Info("Discord session opened")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := b.scheduler.Start(gCtx); err != nil {
			b.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()
	b.close()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}

func (b *Bot) close() {
	if err := b.gateway.Close(); err != nil {
		b.logger.Error("Error closing discord session", "error", err)
	}
	for _, c := range b.closers {
		if err := c.Close(); err != nil {
			b.logger.Error("Error closing resource", "error", err)
		}
	}
}
