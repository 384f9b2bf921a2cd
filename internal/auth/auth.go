// Package auth gates the chat behind a credential check and persists the
// result in the configuration directory.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/diogo/grantchat/internal/config"
	apierrors "github.com/diogo/grantchat/internal/errors"
	"github.com/diogo/grantchat/internal/logging"
)

const (
	// DemoEmail and DemoPassword are always accepted
	DemoEmail    = "admin@example.com"
	DemoPassword = "admin"

	stateFileName = "state.json"
	usersFileName = "users.json"
)

// Credential is one entry of users.json
type Credential struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	// UserID overrides the id derived from the email
	UserID string `json:"userId,omitempty"`
}

// State is the persisted authentication result
type State struct {
	IsAuthenticated bool   `json:"isAuthenticated"`
	UserID          string `json:"userId,omitempty"`
	Email           string `json:"email,omitempty"`
}

// Manager reads and writes the auth state under a directory
type Manager struct {
	dir string
}

// NewManager creates a manager rooted at dir
func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// DefaultManager uses the grantchat configuration directory
func DefaultManager() (*Manager, error) {
	dir, err := config.GetConfigDir()
	if err != nil {
		return nil, err
	}
	return NewManager(dir), nil
}

// StatePath returns the location of state.json
func (m *Manager) StatePath() string {
	return filepath.Join(m.dir, stateFileName)
}

// UsersPath returns the location of users.json
func (m *Manager) UsersPath() string {
	return filepath.Join(m.dir, usersFileName)
}

// Login checks the credential and persists the authenticated state.
// Failed attempts leave any previous state untouched.
func (m *Manager) Login(email, password string) (State, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return State{}, apierrors.ErrInvalidCredentials
	}

	cred, err := m.lookup(email, password)
	if err != nil {
		return State{}, err
	}

	userID := cred.UserID
	if userID == "" {
		userID = UserIDFor(email)
	}
	state := State{IsAuthenticated: true, UserID: userID, Email: email}
	if err := m.save(state); err != nil {
		return State{}, err
	}

	logging.Named("auth").WithField("user_id", userID).Info("logged in")
	return state, nil
}

// Logout clears the persisted state. Logging out twice is not an error.
func (m *Manager) Logout() error {
	if err := os.Remove(m.StatePath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear auth state: %w", err)
	}
	return nil
}

// Current returns the persisted state or ErrNotAuthenticated
func (m *Manager) Current() (State, error) {
	data, err := os.ReadFile(m.StatePath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return State{}, apierrors.ErrNotAuthenticated
		}
		return State{}, fmt.Errorf("failed to read auth state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		logging.Named("auth").WithError(err).Warn("discarding unreadable auth state")
		return State{}, apierrors.ErrNotAuthenticated
	}
	if !state.IsAuthenticated || state.UserID == "" {
		return State{}, apierrors.ErrNotAuthenticated
	}
	return state, nil
}

// LoadUsers reads users.json. A missing file yields no extra users.
func (m *Manager) LoadUsers() ([]Credential, error) {
	data, err := os.ReadFile(m.UsersPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}

	var users []Credential
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("failed to parse users file: %w", err)
	}
	return users, nil
}

func (m *Manager) lookup(email, password string) (Credential, error) {
	if email == DemoEmail && password == DemoPassword {
		return Credential{Email: DemoEmail}, nil
	}

	users, err := m.LoadUsers()
	if err != nil {
		logging.Named("auth").WithError(err).Warn("ignoring users file")
		return Credential{}, apierrors.ErrInvalidCredentials
	}
	for _, u := range users {
		if strings.EqualFold(strings.TrimSpace(u.Email), email) && u.Password == password {
			return u, nil
		}
	}
	return Credential{}, apierrors.ErrInvalidCredentials
}

func (m *Manager) save(state State) error {
	if err := os.MkdirAll(m.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal auth state: %w", err)
	}
	if err := os.WriteFile(m.StatePath(), data, 0o600); err != nil {
		return fmt.Errorf("failed to write auth state: %w", err)
	}
	return nil
}

// UserIDFor derives a stable backend user id from an email address
func UserIDFor(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+email)).String()
}
