package discord

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/edgard/seedingbot/internal/database"
	"github.com/edgard/seedingbot/internal/status"
)

const (
	// resetPageSize is the most messages Discord returns per fetch.
	resetPageSize = 100

	// bulkDeleteMaxAge is the age limit Discord enforces on bulk deletion.
	bulkDeleteMaxAge = 14*24*time.Hour - time.Hour
)

// ChannelManager keeps at most one live status message in a channel. The
// message is tracked by id; the tracked id is persisted when a store is set.
type ChannelManager struct {
	session   Session
	store     database.Store
	channelID string
	logger    *slog.Logger
	now       func() time.Time

	mu        sync.Mutex
	botUserID string
	messageID string
	loaded    bool
}

// NewChannelManager creates a manager for channelID. store may be nil, in
// which case the tracked message id lives only in memory.
func NewChannelManager(session Session, store database.Store, channelID string, logger *slog.Logger) *ChannelManager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ChannelManager{
		session:   session,
		store:     store,
		channelID: channelID,
		logger:    logger.With("component", "channel_manager", "channel_id", channelID),
		now:       time.Now,
	}
}

// ChannelID returns the managed channel.
func (m *ChannelManager) ChannelID() string {
	return m.channelID
}

// Resolve fetches the channel to confirm the bot can see it. Failure is
// logged; the manager keeps using the configured id.
func (m *ChannelManager) Resolve(ctx context.Context) {
	ch, err := m.session.Channel(m.channelID)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to fetch channel", "error", err)
		return
	}
	m.logger.InfoContext(ctx, "Resolved status channel", "channel_name", ch.Name, "guild_id", ch.GuildID)
}

// SetBotUserID sets the bot's own user id. Only messages authored by it are
// adopted as the status message when no message is tracked.
func (m *ChannelManager) SetBotUserID(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.botUserID = id
}

// MessageID returns the tracked status message id, or "".
func (m *ChannelManager) MessageID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.messageID
}

// Reset deletes up to one page of recent messages. The status message left
// by a previous run, if its id was persisted, is spared so Publish edits it
// in place instead of posting a new one. Failures are logged and do not
// stop the caller.
func (m *ChannelManager) Reset(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Read the persisted id before touching the channel; it names the one
	// message that must survive the purge.
	m.load(ctx)
	keep := m.messageID

	m.logger.InfoContext(ctx, "Clearing channel", "kept_message_id", keep)

	msgs, err := m.session.ChannelMessages(m.channelID, resetPageSize, "", "", "")
	if err != nil {
		// The tracked id stays; Publish drops it if the message is gone.
		m.logger.ErrorContext(ctx, "Error clearing channel: failed to fetch messages", "error", err)
		return
	}

	var recent, old []string
	cutoff := m.now().Add(-bulkDeleteMaxAge)
	for _, msg := range msgs {
		if msg == nil || (keep != "" && msg.ID == keep) {
			continue
		}
		// Discord refuses to bulk delete messages older than two weeks.
		if msg.Timestamp.IsZero() || msg.Timestamp.After(cutoff) {
			recent = append(recent, msg.ID)
		} else {
			old = append(old, msg.ID)
		}
	}

	if len(recent) > 0 {
		if err := m.session.ChannelMessagesBulkDelete(m.channelID, recent); err != nil {
			m.logger.ErrorContext(ctx, "Error clearing channel: bulk delete failed", "count", len(recent), "error", err)
		}
	}
	for _, id := range old {
		if err := m.session.ChannelMessageDelete(m.channelID, id); err != nil {
			m.logger.WarnContext(ctx, "Error deleting old message", "message_id", id, "error", err)
		}
	}

	m.logger.InfoContext(ctx, "Channel cleared", "deleted_recent", len(recent), "deleted_old", len(old), "kept_message_id", keep)
}

// Publish shows r with the control buttons. It edits the tracked message in
// place and only sends a new one when no owned message exists. Errors are
// logged and swallowed; the next publish retries.
func (m *ChannelManager) Publish(ctx context.Context, r status.Rendered, ids status.ButtonIDs) {
	m.mu.Lock()
	defer m.mu.Unlock()

	embeds := []*discordgo.MessageEmbed{status.Embed(r, m.now())}
	components := status.Buttons(ids)

	m.load(ctx)

	if m.messageID != "" {
		err := m.edit(m.messageID, embeds, components)
		if err == nil {
			m.logger.DebugContext(ctx, "Status message updated", "message_id", m.messageID, "status", r.FieldValue)
			return
		}
		if !isUnknownMessage(err) {
			m.logger.ErrorContext(ctx, "Error updating status message", "message_id", m.messageID, "error", err)
			return
		}
		m.logger.InfoContext(ctx, "Tracked status message is gone", "message_id", m.messageID)
		m.forget(ctx)
	}

	latest, err := m.session.ChannelMessages(m.channelID, 1, "", "", "")
	if err != nil {
		m.logger.ErrorContext(ctx, "Error updating status message: failed to fetch latest message", "error", err)
		return
	}
	if len(latest) > 0 && m.owns(latest[0]) {
		if err := m.edit(latest[0].ID, embeds, components); err != nil {
			m.logger.ErrorContext(ctx, "Error updating status message", "message_id", latest[0].ID, "error", err)
			return
		}
		m.track(ctx, latest[0].ID)
		m.logger.InfoContext(ctx, "Adopted existing status message", "message_id", latest[0].ID)
		return
	}

	sent, err := m.session.ChannelMessageSendComplex(m.channelID, &discordgo.MessageSend{
		Embeds:     embeds,
		Components: components,
	})
	if err != nil {
		m.logger.ErrorContext(ctx, "Error sending status message", "error", err)
		return
	}
	m.track(ctx, sent.ID)
	m.logger.InfoContext(ctx, "Status message sent", "message_id", sent.ID, "status", r.FieldValue)
}

func (m *ChannelManager) edit(id string, embeds []*discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	_, err := m.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         id,
		Channel:    m.channelID,
		Embeds:     &embeds,
		Components: &components,
	})
	return err
}

func (m *ChannelManager) owns(msg *discordgo.Message) bool {
	return msg != nil && msg.Author != nil && m.botUserID != "" && msg.Author.ID == m.botUserID
}

// load reads the persisted message id once.
func (m *ChannelManager) load(ctx context.Context) {
	if m.loaded || m.store == nil {
		m.loaded = true
		return
	}
	rec, err := m.store.GetStatusMessage(ctx, m.channelID)
	if err != nil {
		m.logger.WarnContext(ctx, "Failed to load tracked status message", "error", err)
		return
	}
	m.loaded = true
	if rec != nil && m.messageID == "" {
		m.messageID = rec.MessageID
		m.logger.DebugContext(ctx, "Loaded tracked status message", "message_id", rec.MessageID)
	}
}

func (m *ChannelManager) track(ctx context.Context, id string) {
	m.messageID = id
	m.loaded = true
	if m.store == nil {
		return
	}
	if err := m.store.SaveStatusMessage(ctx, &database.StatusMessage{ChannelID: m.channelID, MessageID: id}); err != nil {
		m.logger.WarnContext(ctx, "Failed to persist tracked status message", "message_id", id, "error", err)
	}
}

func (m *ChannelManager) forget(ctx context.Context) {
	m.messageID = ""
	m.loaded = true
	if m.store == nil {
		return
	}
	if err := m.store.DeleteStatusMessage(ctx, m.channelID); err != nil {
		m.logger.WarnContext(ctx, "Failed to forget tracked status message", "error", err)
	}
}
