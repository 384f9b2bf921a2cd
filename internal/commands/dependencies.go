package commands

import (
	"fmt"
	"os"

	"github.com/atotto/clipboard"
	"golang.org/x/term"

	"github.com/diogo/grantchat/internal/api"
	"github.com/diogo/grantchat/internal/tui"
)

// TUIInterface defines the methods required from the TUI package.
type TUIInterface interface {
	RunChat(client api.SessionClientInterface, cfg tui.Config) (tui.Result, error)
	RunHistorySelector(store tui.HistoryStore, userID string) (tui.HistorySelectorResult, error)
}

// Dependencies holds the external dependencies for the commands.
// This allows for dependency injection and easier testing.
type Dependencies struct {
	// NewClient builds the backend client for a base URL.
	NewClient func(baseURL string) (api.SessionClientInterface, error)

	// TUI is the terminal user interface.
	TUI TUIInterface

	// ReadPassword reads a secret without echoing it.
	ReadPassword func() (string, error)

	// Copy writes text to the system clipboard.
	Copy func(string) error

	// IsTTY reports whether stdout is a terminal.
	IsTTY func() bool
}

// DefaultTUI is the production implementation of TUIInterface.
type DefaultTUI struct{}

func (d *DefaultTUI) RunChat(client api.SessionClientInterface, cfg tui.Config) (tui.Result, error) {
	return tui.RunChat(client, cfg)
}

func (d *DefaultTUI) RunHistorySelector(store tui.HistoryStore, userID string) (tui.HistorySelectorResult, error) {
	return tui.RunHistorySelector(store, userID)
}

// NewDependencies creates a new Dependencies struct with default implementations.
func NewDependencies() *Dependencies {
	return &Dependencies{
		NewClient: func(baseURL string) (api.SessionClientInterface, error) {
			client, err := api.NewClient(baseURL)
			if err != nil {
				return nil, err
			}
			return client, nil
		},
		TUI:          &DefaultTUI{},
		ReadPassword: readPassword,
		Copy:         clipboard.WriteAll,
		IsTTY:        isStdoutTTY,
	}
}

// orDefault fills the fields a caller left nil
func (d *Dependencies) orDefault() *Dependencies {
	defaults := NewDependencies()
	if d == nil {
		return defaults
	}
	out := *d
	if out.NewClient == nil {
		out.NewClient = defaults.NewClient
	}
	if out.TUI == nil {
		out.TUI = defaults.TUI
	}
	if out.ReadPassword == nil {
		out.ReadPassword = defaults.ReadPassword
	}
	if out.Copy == nil {
		out.Copy = defaults.Copy
	}
	if out.IsTTY == nil {
		out.IsTTY = defaults.IsTTY
	}
	return &out
}

func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("password prompt needs a terminal; use --password-stdin")
	}
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(secret), nil
}

// isStdoutTTY returns true if stdout is connected to a terminal
func isStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// getTerminalWidth returns the terminal width or a default value
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}
