package commands

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/diogo/grantchat/internal/api"
	"github.com/diogo/grantchat/internal/auth"
	"github.com/diogo/grantchat/internal/chat"
	"github.com/diogo/grantchat/internal/config"
	apierrors "github.com/diogo/grantchat/internal/errors"
	"github.com/diogo/grantchat/internal/history"
	"github.com/diogo/grantchat/internal/models"
	"github.com/diogo/grantchat/internal/tui"
)

// fakeTUI records what the commands hand to the TUI
type fakeTUI struct {
	chatCfg    *tui.Config
	chatResult tui.Result
	chatErr    error

	selectorCalls  int
	selectorResult tui.HistorySelectorResult
}

func (f *fakeTUI) RunChat(client api.SessionClientInterface, cfg tui.Config) (tui.Result, error) {
	f.chatCfg = &cfg
	if f.chatResult.LoggedOut && cfg.Logout != nil {
		if err := cfg.Logout(); err != nil {
			return tui.Result{}, err
		}
	}
	return f.chatResult, f.chatErr
}

func (f *fakeTUI) RunHistorySelector(store tui.HistoryStore, userID string) (tui.HistorySelectorResult, error) {
	f.selectorCalls++
	return f.selectorResult, nil
}

type testEnv struct {
	home   string
	client *api.MockSessionClient
	ui     *fakeTUI
	copied []string
	deps   *Dependencies
}

// newTestEnv isolates the config dir and wires mock dependencies
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv(config.EnvHome, home)
	t.Setenv(config.EnvAPIURL, "")

	env := &testEnv{
		home: home,
		client: &api.MockSessionClient{
			BaseURLVal: config.DefaultAPIURL,
			StartVal:   models.SessionStart{SessionID: "s1", Message: "Welcome!"},
		},
		ui: &fakeTUI{},
	}
	env.deps = &Dependencies{
		NewClient: func(string) (api.SessionClientInterface, error) {
			return env.client, nil
		},
		TUI:          env.ui,
		ReadPassword: func() (string, error) { return auth.DemoPassword, nil },
		Copy: func(s string) error {
			env.copied = append(env.copied, s)
			return nil
		},
		IsTTY: func() bool { return false },
	}
	return env
}

func (e *testEnv) login(t *testing.T) auth.State {
	t.Helper()
	state, err := auth.NewManager(e.home).Login(auth.DemoEmail, auth.DemoPassword)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return state
}

func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(e.deps)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func (e *testEnv) store(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.NewStore(e.home)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store
}

func TestRootCommand_Tree(t *testing.T) {
	root := NewRootCmd(nil)
	if root.Use != "grantchat [message]" {
		t.Errorf("Use = %s", root.Use)
	}
	if root.Short == "" || root.Long == "" {
		t.Error("descriptions should not be empty")
	}

	for _, name := range []string{"chat", "ask", "login", "logout", "whoami", "history", "config", "mock-server"} {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
			}
		}
		if !found {
			t.Errorf("missing subcommand %s", name)
		}
	}

	for _, flag := range []string{"api-url", "log-file", "log-level"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing persistent flag --%s", flag)
		}
	}
}

func TestRootCommand_Version(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "", "--version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "grantchat "+Version) {
		t.Errorf("output = %q", out)
	}
}

func TestRootCommand_NoInputShowsHelp(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Usage:") {
		t.Errorf("expected help, got %q", out)
	}
}

func TestRootCommand_LogsToFile(t *testing.T) {
	env := newTestEnv(t)
	logFile := filepath.Join(env.home, "custom.log")

	if _, err := env.run(t, "", "--log-file", logFile, "--log-level", "debug", "config", "path"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(logFile); err != nil {
		t.Errorf("log file was not created: %v", err)
	}
}

func TestAsk_RequiresLogin(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "", "ask", "hello")
	if err == nil || !strings.Contains(err.Error(), "not logged in") {
		t.Fatalf("expected login error, got %v", err)
	}
	if !apierrors.IsAuthError(err) {
		t.Error("error should match ErrNotAuthenticated")
	}
}

func TestAsk_RawReply(t *testing.T) {
	env := newTestEnv(t)
	state := env.login(t)
	env.client.Replies = []models.Reply{{Text: "**Yes**, you qualify."}}

	out, err := env.run(t, "", "ask", "  Do I qualify?  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "**Yes**, you qualify.\n" {
		t.Errorf("output = %q", out)
	}
	if len(env.client.SentMessages) != 1 || env.client.SentMessages[0] != "Do I qualify?" {
		t.Errorf("sent = %v", env.client.SentMessages)
	}
	if env.client.LastUserID != state.UserID {
		t.Errorf("user id = %s, want %s", env.client.LastUserID, state.UserID)
	}
	if env.client.StartCalls != 1 || env.client.EndCalls != 1 {
		t.Errorf("StartCalls=%d EndCalls=%d", env.client.StartCalls, env.client.EndCalls)
	}

	// save_history defaults to local
	list, _ := env.store(t).ListConversations()
	if len(list) != 1 || list[0].Title != "Do I qualify?" || len(list[0].Messages) != 3 {
		t.Fatalf("unexpected history: %+v", list)
	}
}

func TestAsk_PositionalOnRoot(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	env.client.Replies = []models.Reply{{Text: "Sure."}}

	out, err := env.run(t, "", "What grants exist?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Sure.\n" {
		t.Errorf("output = %q", out)
	}
}

func TestAsk_FromStdin(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	env.client.Replies = []models.Reply{{Text: "ok"}}

	if _, err := env.run(t, "piped question\n", "ask"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.client.SentMessages[0] != "piped question" {
		t.Errorf("sent = %v", env.client.SentMessages)
	}
}

func TestAsk_EmptyMessage(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	if _, err := env.run(t, "", "ask", "   "); err == nil {
		t.Error("blank message should fail")
	}
	if len(env.client.SentMessages) != 0 {
		t.Error("nothing should be sent")
	}
}

func TestAsk_FailedReplyPrintsFallback(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	out, err := env.run(t, "", "ask", "hello")
	if err != nil {
		t.Fatalf("transport failures are contained, got %v", err)
	}
	if !strings.Contains(out, models.FallbackReply) {
		t.Errorf("output = %q", out)
	}
}

func TestAsk_SessionEndedSkipsEndSession(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	env.client.Replies = []models.Reply{{Text: "Goodbye", SessionEnded: true}}

	if _, err := env.run(t, "", "ask", "bye"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.client.EndCalls != 0 {
		t.Error("an ended session should not be ended again")
	}
}

func TestAsk_CopyAndOutput(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	env.client.Replies = []models.Reply{{Text: "Plain answer"}}
	file := filepath.Join(env.home, "reply.md")

	out, err := env.run(t, "", "ask", "--copy", "-o", file, "question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "" {
		t.Errorf("nothing should go to stdout when -o is set, got %q", out)
	}
	if len(env.copied) != 1 || env.copied[0] != "Plain answer" {
		t.Errorf("copied = %v", env.copied)
	}
	data, err := os.ReadFile(file)
	if err != nil || string(data) != "Plain answer" {
		t.Errorf("file = %q, err = %v", data, err)
	}
}

func TestLogin_FlagsAndStdin(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, auth.DemoPassword+"\n", "login", "--email", "ADMIN@example.com", "--password-stdin")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !strings.Contains(out, "Logged in as "+auth.DemoEmail) {
		t.Errorf("output = %q", out)
	}

	out, err = env.run(t, "", "whoami")
	if err != nil {
		t.Fatalf("whoami failed: %v", err)
	}
	if !strings.Contains(out, auth.DemoEmail) || !strings.Contains(out, auth.UserIDFor(auth.DemoEmail)) {
		t.Errorf("whoami = %q", out)
	}
}

func TestLogin_PromptsForEmail(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.run(t, auth.DemoEmail+"\n", "login"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := auth.NewManager(env.home).Current(); err != nil {
		t.Errorf("state not saved: %v", err)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.deps.ReadPassword = func() (string, error) { return "wrong", nil }

	_, err := env.run(t, "", "login", "-e", auth.DemoEmail)
	if !errors.Is(err, apierrors.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := env.run(t, "", "whoami"); err == nil {
		t.Error("failed login must not authenticate")
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	out, err := env.run(t, "", "logout")
	if err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if !strings.Contains(out, "Logged out") {
		t.Errorf("output = %q", out)
	}
	if env.client.EndCalls != 1 {
		t.Errorf("EndCalls = %d, want 1", env.client.EndCalls)
	}
	if _, err := auth.NewManager(env.home).Current(); err == nil {
		t.Error("state should be cleared")
	}

	out, err = env.run(t, "", "logout")
	if err != nil || !strings.Contains(out, "Not logged in") {
		t.Errorf("second logout: out=%q err=%v", out, err)
	}
}

func TestChat_WiresTUI(t *testing.T) {
	env := newTestEnv(t)
	state := env.login(t)

	if _, err := env.run(t, "", "chat"); err != nil {
		t.Fatalf("chat failed: %v", err)
	}

	cfg := env.ui.chatCfg
	if cfg == nil {
		t.Fatal("RunChat was not called")
	}
	if cfg.UserID != state.UserID {
		t.Errorf("UserID = %s", cfg.UserID)
	}
	if cfg.TypingDelay != 500*time.Millisecond {
		t.Errorf("TypingDelay = %v", cfg.TypingDelay)
	}
	if _, ok := cfg.Saver.(history.LocalSaver); !ok {
		t.Errorf("Saver = %T, want LocalSaver", cfg.Saver)
	}
	if cfg.Logout == nil || cfg.Copy == nil {
		t.Error("logout and copy should be wired")
	}
	if len(cfg.Restore) != 0 {
		t.Error("a plain chat restores nothing")
	}
}

func TestChat_LogoutFromTUI(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	env.ui.chatResult = tui.Result{LoggedOut: true}

	out, err := env.run(t, "", "chat")
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if !strings.Contains(out, "Logged out") {
		t.Errorf("output = %q", out)
	}
	if _, err := auth.NewManager(env.home).Current(); err == nil {
		t.Error("/logout should clear the state")
	}
}

func TestChat_ResumeByReference(t *testing.T) {
	env := newTestEnv(t)
	state := env.login(t)

	_, err := env.store(t).SaveTurns(state.UserID, []chat.Turn{
		{Sender: chat.SenderBot, Text: "Welcome!"},
		{Sender: chat.SenderUser, Text: "Deadlines?"},
		{Sender: chat.SenderBot, Text: "March 1st."},
	})
	if err != nil {
		t.Fatalf("SaveTurns failed: %v", err)
	}

	if _, err := env.run(t, "", "chat", "-c", "@last"); err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	restore := env.ui.chatCfg.Restore
	if len(restore) != 3 || restore[1].Text != "Deadlines?" {
		t.Errorf("Restore = %+v", restore)
	}
}

func TestChat_ResumeOtherUserRejected(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	_, _ = env.store(t).SaveTurns("someone-else", []chat.Turn{{Sender: chat.SenderUser, Text: "hi"}})

	_, err := env.run(t, "", "chat", "-c", "@last")
	if err == nil || !strings.Contains(err.Error(), "another user") {
		t.Errorf("expected ownership error, got %v", err)
	}
}

func TestChat_ResumeCancelled(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	if _, err := env.run(t, "", "chat", "--resume"); err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if env.ui.selectorCalls != 1 {
		t.Error("selector should run")
	}
	if env.ui.chatCfg != nil {
		t.Error("chat should not start when the selector is cancelled")
	}
}

func TestChat_PrunesOldHistory(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	store := env.store(t)
	aged := `{"id":"conv-old","title":"Old","user_id":"u1","created_at":"2000-01-01T00:00:00Z","updated_at":"2000-01-01T00:00:00Z","messages":[]}`
	if err := os.WriteFile(filepath.Join(store.Dir(), "conv-old.json"), []byte(aged), 0o600); err != nil {
		t.Fatalf("failed to write conversation: %v", err)
	}

	if _, err := env.run(t, "", "chat"); err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if _, err := store.GetConversation("conv-old"); err == nil {
		t.Error("conversation past retention should be pruned on chat start")
	}
}

func TestChat_TUIError(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	env.ui.chatErr = io.ErrUnexpectedEOF

	_, err := env.run(t, "", "chat")
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected wrapped TUI error, got %v", err)
	}
}
