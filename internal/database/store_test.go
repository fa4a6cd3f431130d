package database_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/edgard/seedingbot/internal/database"
)

func newTestStore(t *testing.T) database.Store {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "data", "test.db"), nil)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	return database.NewStore(db, nil)
}

func TestStatusMessageRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	got, err := store.GetStatusMessage(ctx, "chan-1")
	if err != nil {
		t.Fatalf("GetStatusMessage on empty store: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for untracked channel, got %+v", got)
	}

	if err := store.SaveStatusMessage(ctx, &database.StatusMessage{ChannelID: "chan-1", MessageID: "msg-1"}); err != nil {
		t.Fatalf("SaveStatusMessage: %v", err)
	}
	if err := store.SaveStatusMessage(ctx, &database.StatusMessage{ChannelID: "chan-1", MessageID: "msg-2"}); err != nil {
		t.Fatalf("SaveStatusMessage (replace): %v", err)
	}

	got, err = store.GetStatusMessage(ctx, "chan-1")
	if err != nil {
		t.Fatalf("GetStatusMessage: %v", err)
	}
	if got == nil || got.MessageID != "msg-2" {
		t.Fatalf("expected msg-2 to be tracked, got %+v", got)
	}

	if err := store.DeleteStatusMessage(ctx, "chan-1"); err != nil {
		t.Fatalf("DeleteStatusMessage: %v", err)
	}
	got, err = store.GetStatusMessage(ctx, "chan-1")
	if err != nil {
		t.Fatalf("GetStatusMessage after delete: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil after delete, got %+v", got)
	}
}

func TestSaveStatusMessageValidation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	tests := []struct {
		name string
		msg  *database.StatusMessage
	}{
		{"nil message", nil},
		{"missing channel", &database.StatusMessage{MessageID: "m"}},
		{"missing message", &database.StatusMessage{ChannelID: "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.SaveStatusMessage(ctx, tt.msg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestPruneStatusMessages(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, ch := range []string{"old-1", "old-2", "current"} {
		if err := store.SaveStatusMessage(ctx, &database.StatusMessage{ChannelID: ch, MessageID: "m-" + ch}); err != nil {
			t.Fatalf("SaveStatusMessage(%s): %v", ch, err)
		}
	}

	n, err := store.PruneStatusMessages(ctx, "current")
	if err != nil {
		t.Fatalf("PruneStatusMessages: %v", err)
	}
	if n != 2 {
		t.Errorf("pruned %d rows, want 2", n)
	}
	if got, _ := store.GetStatusMessage(ctx, "current"); got == nil {
		t.Error("current channel was pruned")
	}
	if got, _ := store.GetStatusMessage(ctx, "old-1"); got != nil {
		t.Error("stale channel survived pruning")
	}
}

func TestRunSQLMaintenance(t *testing.T) {
	store := newTestStore(t)

	if err := store.RunSQLMaintenance(context.Background()); err != nil {
		t.Fatalf("RunSQLMaintenance: %v", err)
	}
}

func TestNewDBReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.db")

	db, err := database.NewDB(path, nil)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	ctx := context.Background()
	if err := database.NewStore(db, nil).SaveStatusMessage(ctx, &database.StatusMessage{ChannelID: "c", MessageID: "m"}); err != nil {
		t.Fatalf("SaveStatusMessage: %v", err)
	}
	database.CloseDB(db)

	db, err = database.NewDB(path, nil)
	if err != nil {
		t.Fatalf("NewDB on existing file: %v", err)
	}
	defer database.CloseDB(db)

	got, err := database.NewStore(db, nil).GetStatusMessage(ctx, "c")
	if err != nil || got == nil || got.MessageID != "m" {
		t.Fatalf("tracked message lost across reopen: %+v, %v", got, err)
	}
}

func TestExtractDBNameFromPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"storage.db", "storage.db"},
		{"file:storage.db", "storage.db"},
		{"file:storage.db?_pragma=foreign_keys(1)", "storage.db"},
		{"/var/lib/bot/my%20db.db", "/var/lib/bot/my db.db"},
	}

	for _, tt := range tests {
		if got := database.ExtractDBNameFromPath(tt.in); got != tt.want {
			t.Errorf("ExtractDBNameFromPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
