package history

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/diogo/grantchat/internal/chat"
	"github.com/diogo/grantchat/internal/config"
)

// steppingClock returns a clock that advances one minute per call
func steppingClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Minute)
		return current
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	store.now = steppingClock(time.Date(2025, 2, 7, 10, 0, 0, 0, time.UTC))
	return store
}

func TestNewStore(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewStore(tmpDir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	historyDir := filepath.Join(tmpDir, "history")
	if store.Dir() != historyDir {
		t.Errorf("Dir() = %s, want %s", store.Dir(), historyDir)
	}
	if _, err := os.Stat(historyDir); os.IsNotExist(err) {
		t.Error("history directory was not created")
	}
}

func TestStore_CreateConversation(t *testing.T) {
	store := newTestStore(t)

	conv, err := store.CreateConversation("u1")
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	if !strings.HasPrefix(conv.ID, "conv-") {
		t.Errorf("ID = %s, want conv- prefix", conv.ID)
	}
	if conv.UserID != "u1" {
		t.Errorf("UserID = %s, want u1", conv.UserID)
	}
	if conv.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero")
	}
	if len(conv.Messages) != 0 {
		t.Errorf("expected 0 messages, got %d", len(conv.Messages))
	}
}

func TestStore_GetConversation_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetConversation("nonexistent-id")
	if err == nil {
		t.Fatal("expected error for missing conversation")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestStore_AddMessage_UpdatesTitle(t *testing.T) {
	store := newTestStore(t)
	conv, _ := store.CreateConversation("u1")

	if err := store.AddMessage(conv.ID, "bot", "Welcome!"); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}
	if err := store.AddMessage(conv.ID, "user", "How do I apply for a grant?\nsecond line"); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}
	if err := store.AddMessage(conv.ID, "user", "Another question"); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}

	got, _ := store.GetConversation(conv.ID)
	if len(got.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got.Messages))
	}
	if got.Title != "How do I apply for a grant?" {
		t.Errorf("Title = %q", got.Title)
	}
	if !got.UpdatedAt.After(got.CreatedAt) {
		t.Error("UpdatedAt should move forward")
	}
}

func TestTitleFrom_Truncates(t *testing.T) {
	long := strings.Repeat("a", 80)
	title := TitleFrom(long)
	if len(title) != titleMaxWidth {
		t.Errorf("title length = %d, want %d", len(title), titleMaxWidth)
	}
	if !strings.HasSuffix(title, "...") {
		t.Errorf("title %q should end with ...", title)
	}

	// Wide runes count as two cells
	wide := strings.Repeat("漢", 30)
	cut := TruncateTitle(wide, 10)
	if w := runewidth.StringWidth(cut); w > 10 {
		t.Errorf("wide title is %d cells, want at most 10", w)
	}
	if !strings.HasSuffix(cut, "...") {
		t.Errorf("title %q should end with ...", cut)
	}

	if TruncateTitle("short", 50) != "short" {
		t.Error("short titles are kept as is")
	}
}

func TestStore_SaveTurns(t *testing.T) {
	store := newTestStore(t)
	at := time.Date(2025, 2, 7, 9, 0, 0, 0, time.UTC)

	turns := []chat.Turn{
		{Sender: chat.SenderBot, Text: "Welcome!", At: at},
		{Sender: chat.SenderUser, Text: "Hello", At: at.Add(time.Second)},
		{Sender: chat.SenderBot, Text: "Hi there", At: at.Add(2 * time.Second)},
		{Sender: chat.SenderBot, Pending: true},
	}

	conv, err := store.SaveTurns("u1", turns)
	if err != nil {
		t.Fatalf("SaveTurns failed: %v", err)
	}
	if conv == nil {
		t.Fatal("SaveTurns returned nil conversation")
	}
	if conv.Title != "Hello" {
		t.Errorf("Title = %s, want Hello", conv.Title)
	}
	if !conv.CreatedAt.Equal(at) {
		t.Errorf("CreatedAt = %v, want first turn time %v", conv.CreatedAt, at)
	}

	loaded, err := store.GetConversation(conv.ID)
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if len(loaded.Messages) != 3 {
		t.Fatalf("expected pending turn to be skipped, got %d messages", len(loaded.Messages))
	}

	back := TurnsFromMessages(loaded.Messages)
	if back[1].Sender != chat.SenderUser || back[2].Text != "Hi there" {
		t.Errorf("unexpected turns: %+v", back)
	}
}

func TestStore_SaveTurns_GreetingOnly(t *testing.T) {
	store := newTestStore(t)

	conv, err := store.SaveTurns("u1", []chat.Turn{{Sender: chat.SenderBot, Text: "Welcome!"}})
	if err != nil {
		t.Fatalf("SaveTurns failed: %v", err)
	}
	if conv != nil {
		t.Error("a conversation without user turns should not be stored")
	}

	list, _ := store.ListConversations()
	if len(list) != 0 {
		t.Errorf("expected empty store, got %d", len(list))
	}
}

func TestTurnsFromMessages_UnknownRole(t *testing.T) {
	turns := TurnsFromMessages([]Message{{Role: "assistant", Content: "x"}})
	if turns[0].Sender != chat.SenderBot {
		t.Errorf("Sender = %s, want bot", turns[0].Sender)
	}
}

func TestStore_DeleteConversation(t *testing.T) {
	store := newTestStore(t)
	conv, _ := store.CreateConversation("u1")

	if err := store.DeleteConversation(conv.ID); err != nil {
		t.Fatalf("DeleteConversation failed: %v", err)
	}
	if _, err := store.GetConversation(conv.ID); err == nil {
		t.Error("conversation should be gone")
	}
	if err := store.DeleteConversation(conv.ID); err == nil {
		t.Error("deleting twice should fail")
	}
}

func TestStore_ListConversations_SortedByUpdate(t *testing.T) {
	store := newTestStore(t)

	first, _ := store.CreateConversation("u1")
	second, _ := store.CreateConversation("u1")

	list, err := store.ListConversations()
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID {
		t.Fatalf("expected newest first, got %+v", list)
	}

	_ = store.UpdateTitle(first.ID, "renamed")
	list, _ = store.ListConversations()
	if list[0].ID != first.ID {
		t.Errorf("updated conversation should be first")
	}
	if list[0].Title != "renamed" {
		t.Errorf("Title = %s, want renamed", list[0].Title)
	}
}

func TestStore_ListConversations_SkipsCorrupted(t *testing.T) {
	store := newTestStore(t)
	_, _ = store.CreateConversation("u1")

	if err := os.WriteFile(filepath.Join(store.Dir(), "broken.json"), []byte("{"), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	list, err := store.ListConversations()
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 conversation, got %d", len(list))
	}
}

func TestStore_ClearAll_RemovesOnlyJSONFiles(t *testing.T) {
	store := newTestStore(t)
	_, _ = store.CreateConversation("u1")
	_, _ = store.CreateConversation("u1")

	other := filepath.Join(store.Dir(), "notes.txt")
	if err := os.WriteFile(other, []byte("keep"), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if err := store.ClearAll(); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}

	list, _ := store.ListConversations()
	if len(list) != 0 {
		t.Errorf("expected 0 conversations, got %d", len(list))
	}
	if _, err := os.Stat(other); err != nil {
		t.Error("non-JSON files should be kept")
	}
}

func TestStore_Prune(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	store.now = func() time.Time { return base.AddDate(0, 0, -45) }
	old, _ := store.CreateConversation("u1")
	store.now = func() time.Time { return base.AddDate(0, 0, -2) }
	recent, _ := store.CreateConversation("u1")

	store.now = func() time.Time { return base }

	removed, err := store.Prune(30 * 24 * time.Hour)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := store.GetConversation(old.ID); err == nil {
		t.Error("old conversation should be pruned")
	}
	if _, err := store.GetConversation(recent.ID); err != nil {
		t.Error("recent conversation should be kept")
	}

	removed, _ = store.Prune(0)
	if removed != 0 {
		t.Error("Prune(0) keeps everything")
	}
}

func TestConversationPath_StaysInDir(t *testing.T) {
	store := newTestStore(t)
	path := store.conversationPath("../../etc/passwd")
	if filepath.Dir(path) != store.Dir() {
		t.Errorf("path escaped the history dir: %s", path)
	}
}

func TestDefaultStore(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.EnvHome, dir)

	store, err := DefaultStore()
	if err != nil {
		t.Fatalf("DefaultStore failed: %v", err)
	}
	if store.Dir() != filepath.Join(dir, "history") {
		t.Errorf("Dir() = %s", store.Dir())
	}
}
