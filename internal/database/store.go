package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the persistence operations used by the bot.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// GetStatusMessage returns the tracked status message for a channel.
	// Returns nil, nil if none is tracked.
	GetStatusMessage(ctx context.Context, channelID string) (*StatusMessage, error)

	// SaveStatusMessage inserts or replaces the tracked status message for its channel.
	SaveStatusMessage(ctx context.Context, msg *StatusMessage) error

	// DeleteStatusMessage forgets the tracked status message for a channel.
	DeleteStatusMessage(ctx context.Context, channelID string) error

	// PruneStatusMessages forgets the tracked messages of every channel
	// except keepChannelID and returns how many were removed.
	PruneStatusMessages(ctx context.Context, keepChannelID string) (int64, error)

	// RunSQLMaintenance performs database maintenance (VACUUM).
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore implements Store using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetStatusMessage retrieves the tracked status message for channelID.
// An untracked channel is not an error and yields nil, nil.
func (s *sqlxStore) GetStatusMessage(ctx context.Context, channelID string) (*StatusMessage, error) {
	// Basic validation
	if channelID == "" {
		return nil, errors.New("channel_id cannot be empty")
	}
	// Skip the query when the caller already gave up
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var msg StatusMessage
	query := `SELECT channel_id, message_id, created_at, updated_at
	          FROM status_messages WHERE channel_id = ?`

	err := s.db.GetContext(ctx, &msg, query, channelID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Nothing tracked yet, e.g. first start in this channel
		s.logger.DebugContext(ctx, "No status message tracked", "channel_id", channelID)
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting status message", "channel_id", channelID, "error", err)
		return nil, fmt.Errorf("failed to get status message for channel %s: %w", channelID, err)
	}

	return &msg, nil
}

// SaveStatusMessage records msg as the live status message of its channel,
// replacing any previous record. CreatedAt is kept across replacements.
func (s *sqlxStore) SaveStatusMessage(ctx context.Context, msg *StatusMessage) error {
	// Basic validation
	if msg == nil {
		return errors.New("cannot save nil status message")
	}
	if msg.ChannelID == "" {
		return errors.New("status message must have a channel_id")
	}
	if msg.MessageID == "" {
		return errors.New("status message must have a message_id")
	}

	// Timestamps are stored in UTC
	now := time.Now().UTC()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	msg.UpdatedAt = now

	// Upsert on the channel key; created_at is only written on insert
	query := `
        INSERT INTO status_messages (channel_id, message_id, created_at, updated_at)
        VALUES (:channel_id, :message_id, :created_at, :updated_at)
        ON CONFLICT(channel_id) DO UPDATE SET
            message_id = excluded.message_id,
            updated_at = excluded.updated_at;
    `

	if _, err := s.db.NamedExecContext(ctx, query, msg); err != nil {
		s.logger.ErrorContext(ctx, "Error saving status message",
			"channel_id", msg.ChannelID, "message_id", msg.MessageID, "error", err)
		return fmt.Errorf("failed to save status message (channel %s): %w", msg.ChannelID, err)
	}

	s.logger.DebugContext(ctx, "Status message saved", "channel_id", msg.ChannelID, "message_id", msg.MessageID)
	return nil
}

// DeleteStatusMessage forgets the tracked status message of channelID.
// Deleting an untracked channel is a no-op.
func (s *sqlxStore) DeleteStatusMessage(ctx context.Context, channelID string) error {
	if channelID == "" {
		return errors.New("channel_id cannot be empty")
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM status_messages WHERE channel_id = ?`, channelID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting status message", "channel_id", channelID, "error", err)
		return fmt.Errorf("failed to delete status message for channel %s: %w", channelID, err)
	}

	// RowsAffected is informational only
	if n, err := res.RowsAffected(); err == nil {
		s.logger.DebugContext(ctx, "Status message forgotten", "channel_id", channelID, "rows", n)
	}
	return nil
}

// PruneStatusMessages deletes the records of every channel except
// keepChannelID. Rows for other channels are left behind when the bot is
// moved to a new channel.
func (s *sqlxStore) PruneStatusMessages(ctx context.Context, keepChannelID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM status_messages WHERE channel_id <> ?`, keepChannelID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error pruning status messages", "keep_channel_id", keepChannelID, "error", err)
		return 0, fmt.Errorf("failed to prune status messages: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned status messages: %w", err)
	}
	return n, nil
}

// RunSQLMaintenance executes VACUUM on the SQLite database. VACUUM cannot
// run inside a transaction.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")
	// Record start time to measure duration
	start := time.Now()

	// Execute VACUUM; it rebuilds the file and reclaims free pages
	if _, err := s.db.ExecContext(ctx, "VACUUM;"); err != nil {
		s.logger.ErrorContext(ctx, "Database maintenance failed", "error", err)
		return fmt.Errorf("failed to vacuum database: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance finished", "duration", time.Since(start))
	return nil
}
