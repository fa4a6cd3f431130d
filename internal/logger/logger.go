// Package logger provides structured logging for the bot using log/slog.
package logger

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

// NewLogger creates a slog Logger writing to stdout with the given level.
// If jsonOutput is true, logs are formatted as JSON, otherwise as text.
func NewLogger(levelStr string, jsonOutput bool) *slog.Logger {
	return newLogger(os.Stdout, levelStr, jsonOutput)
}

func newLogger(w io.Writer, levelStr string, jsonOutput bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(levelStr),
	}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a config level name to a slog level. Unknown names map to info.
func ParseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// InteractionHandler is the discordgo handler signature for interactions.
type InteractionHandler func(s *discordgo.Session, i *discordgo.InteractionCreate)

// Interactions wraps next so every interaction is logged with a trace id
// and its processing time.
func Interactions(log *slog.Logger) func(next InteractionHandler) InteractionHandler {
	return func(next InteractionHandler) InteractionHandler {
		return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			if i == nil || i.Interaction == nil {
				return
			}
			startTime := time.Now()

			entry := log.With(
				"trace_id", uuid.NewString(),
				"interaction_id", i.ID,
				"interaction_type", i.Type.String(),
				"channel_id", i.ChannelID,
			)
			if user := interactionUser(i.Interaction); user != nil {
				entry = entry.With("user_id", user.ID, "username", user.Username)
			}
			if i.Type == discordgo.InteractionMessageComponent {
				entry = entry.With("custom_id", i.MessageComponentData().CustomID)
			}

			entry.Info("Processing interaction")
			next(s, i)
			entry.Info("Finished processing interaction", "duration", time.Since(startTime))
		}
	}
}

// interactionUser returns the member user in guilds and the user in DMs.
func interactionUser(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

// Gocron adapts a slog Logger to the gocron.Logger interface.
func Gocron(log *slog.Logger) gocron.Logger {
	return gocronLogger{log: log.With("component", "gocron")}
}

type gocronLogger struct {
	log *slog.Logger
}

func (l gocronLogger) Debug(msg string, args ...any) { l.log.Debug(msg, args...) }
func (l gocronLogger) Info(msg string, args ...any)  { l.log.Info(msg, args...) }
func (l gocronLogger) Warn(msg string, args ...any)  { l.log.Warn(msg, args...) }
func (l gocronLogger) Error(msg string, args ...any) { l.log.Error(msg, args...) }
