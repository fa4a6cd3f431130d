package discord

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

// MaxContentLength is Discord's limit for message content.
const MaxContentLength = 2000

// AckState is the acknowledgment progress of one interaction.
type AckState int

const (
	AckPending AckState = iota
	AckDeferred
	AckFinalized
)

func (s AckState) String() string {
	switch s {
	case AckPending:
		return "pending"
	case AckDeferred:
		return "deferred"
	case AckFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Acknowledger creates per-interaction acknowledgment state.
type Acknowledger struct {
	session Session
	logger  *slog.Logger
}

// NewAcknowledger creates an Acknowledger replying through session.
func NewAcknowledger(session Session, logger *slog.Logger) *Acknowledger {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Acknowledger{
		session: session,
		logger:  logger.With("component", "acknowledger"),
	}
}

// Begin starts tracking interaction in the pending state.
func (a *Acknowledger) Begin(interaction *discordgo.Interaction) *Ack {
	return &Ack{
		session:     a.session,
		interaction: interaction,
		logger:      a.logger.With("interaction_id", interaction.ID),
	}
}

// Ack is the acknowledgment state of a single interaction. The deferral is
// sent at most once and the final reply only after it.
type Ack struct {
	session     Session
	interaction *discordgo.Interaction
	logger      *slog.Logger

	mu    sync.Mutex
	state AckState
}

// State returns the current acknowledgment state.
func (a *Ack) State() AckState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// EnsureAcknowledged defers the interaction with an ephemeral reply if that
// has not been attempted yet.
func (a *Ack) EnsureAcknowledged(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ensureAcknowledged(ctx)
}

func (a *Ack) ensureAcknowledged(ctx context.Context) {
	if a.state != AckPending {
		return
	}

	err := a.session.InteractionRespond(a.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	// Counts as attempted even on failure; Discord rejects a second deferral.
	a.state = AckDeferred
	if err != nil {
		a.logger.ErrorContext(ctx, "Failed to defer interaction", "error", err)
		return
	}
	a.logger.DebugContext(ctx, "Interaction deferred")
}

// Finalize attaches content as the reply to the deferred interaction. It
// acknowledges first when needed; a second Finalize is ignored.
func (a *Ack) Finalize(ctx context.Context, content string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == AckFinalized {
		a.logger.WarnContext(ctx, "Interaction already finalized")
		return
	}
	a.ensureAcknowledged(ctx)

	content = truncate(content, MaxContentLength)
	_, err := a.session.InteractionResponseEdit(a.interaction, &discordgo.WebhookEdit{Content: &content})
	a.state = AckFinalized
	if err != nil {
		a.logger.ErrorContext(ctx, "Failed to edit reply", "error", err)
		return
	}
	a.logger.DebugContext(ctx, "Interaction finalized")
}

// truncate cuts s to at most limit runes.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
