package discord_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/edgard/seedingbot/internal/discord"
	"github.com/edgard/seedingbot/internal/discord/discordtest"
)

func newAck(sess *discordtest.Session) *discord.Ack {
	return discord.NewAcknowledger(sess, nil).Begin(&discordgo.Interaction{ID: "int-1"})
}

func TestAckLifecycle(t *testing.T) {
	ctx := context.Background()
	sess := discordtest.NewSession(testBot)
	ack := newAck(sess)

	if ack.State() != discord.AckPending {
		t.Fatalf("initial state = %v", ack.State())
	}

	ack.EnsureAcknowledged(ctx)
	ack.EnsureAcknowledged(ctx)
	if ack.State() != discord.AckDeferred {
		t.Fatalf("state after ack = %v", ack.State())
	}
	if sess.Responds != 1 {
		t.Fatalf("acknowledged %d times", sess.Responds)
	}

	resp := sess.Responses[0]
	if resp.Type != discordgo.InteractionResponseDeferredChannelMessageWithSource {
		t.Errorf("response type = %v", resp.Type)
	}
	if resp.Data == nil || resp.Data.Flags&discordgo.MessageFlagsEphemeral == 0 {
		t.Error("deferral is not ephemeral")
	}

	ack.Finalize(ctx, "done")
	ack.Finalize(ctx, "again")
	if ack.State() != discord.AckFinalized {
		t.Fatalf("state after finalize = %v", ack.State())
	}
	if strings.Join(sess.Calls, ",") != "respond,edit_reply" {
		t.Errorf("calls = %v", sess.Calls)
	}
	if len(sess.Replies) != 1 || sess.Replies[0] != "done" {
		t.Errorf("replies = %v", sess.Replies)
	}
}

func TestFinalizeAcknowledgesFirst(t *testing.T) {
	sess := discordtest.NewSession(testBot)
	newAck(sess).Finalize(context.Background(), "done")

	if strings.Join(sess.Calls, ",") != "respond,edit_reply" {
		t.Errorf("calls = %v", sess.Calls)
	}
}

func TestFinalizeAfterFailedAck(t *testing.T) {
	ctx := context.Background()
	sess := discordtest.NewSession(testBot)
	sess.RespondErr = errors.New("unknown interaction")
	ack := newAck(sess)

	ack.EnsureAcknowledged(ctx)
	ack.Finalize(ctx, "Error executing command: boom")

	if sess.Responds != 1 {
		t.Errorf("acknowledgment retried: %d", sess.Responds)
	}
	if sess.ResponseEdits != 1 {
		t.Errorf("finalize not attempted after failed ack")
	}
	if ack.State() != discord.AckFinalized {
		t.Errorf("state = %v", ack.State())
	}
}

func TestFinalizeTruncatesContent(t *testing.T) {
	sess := discordtest.NewSession(testBot)
	newAck(sess).Finalize(context.Background(), strings.Repeat("é", discord.MaxContentLength+50))

	if n := utf8.RuneCountInString(sess.Replies[0]); n != discord.MaxContentLength {
		t.Errorf("reply length = %d", n)
	}
}

func TestAckStateString(t *testing.T) {
	tests := map[discord.AckState]string{
		discord.AckPending:   "pending",
		discord.AckDeferred:  "deferred",
		discord.AckFinalized: "finalized",
		discord.AckState(42): "unknown",
	}
	for st, want := range tests {
		if got := st.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(st), got, want)
		}
	}
}
