// Package history provides local conversation history storage.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-runewidth"

	"github.com/diogo/grantchat/internal/chat"
	"github.com/diogo/grantchat/internal/config"
)

const (
	idPrefix      = "conv-"
	titleMaxWidth = 50
)

// Message represents a single message in a conversation
type Message struct {
	Role      string    `json:"role"` // "user", "bot" or "system"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation represents a complete chat conversation
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages"`

	// RemoteID is the backend conversation id when the conversation was imported
	RemoteID string `json:"remote_id,omitempty"`
}

// Store manages conversation history persistence
type Store struct {
	baseDir string
	mu      sync.RWMutex
	now     func() time.Time
}

// NewStore creates a new history store
func NewStore(baseDir string) (*Store, error) {
	historyDir := filepath.Join(baseDir, "history")
	if err := os.MkdirAll(historyDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	return &Store{
		baseDir: historyDir,
		now:     time.Now,
	}, nil
}

// Dir returns the directory holding the conversation files
func (s *Store) Dir() string {
	return s.baseDir
}

// CreateConversation creates a new empty conversation for userID
func (s *Store) CreateConversation(userID string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	conv := &Conversation{
		ID:        generateConvID(),
		Title:     fmt.Sprintf("Chat %s", now.Format("2006-01-02 15:04")),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []Message{},
	}

	if err := s.saveConversation(conv); err != nil {
		return nil, err
	}

	return conv, nil
}

// SaveTurns stores the resolved turns of a conversation as a new entry.
// Pending placeholders are skipped; an empty transcript is not stored and
// returns nil.
func (s *Store) SaveTurns(userID string, turns []chat.Turn) (*Conversation, error) {
	msgs := MessagesFromTurns(turns)
	if !hasUserMessage(msgs) {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	conv := &Conversation{
		ID:        generateConvID(),
		Title:     fmt.Sprintf("Chat %s", now.Format("2006-01-02 15:04")),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  msgs,
	}
	for _, m := range msgs {
		if m.Role == string(chat.SenderUser) {
			conv.Title = TitleFrom(m.Content)
			break
		}
	}
	if first := msgs[0].Timestamp; !first.IsZero() && first.Before(now) {
		conv.CreatedAt = first
	}

	if err := s.saveConversation(conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// GetConversation retrieves a conversation by ID
func (s *Store) GetConversation(id string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadConversation(id)
}

// ListConversations returns all conversations, sorted by most recent
func (s *Store) ListConversations() ([]*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listConversations()
}

func (s *Store) listConversations() ([]*Conversation, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	var conversations []*Conversation
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ".json")
		conv, err := s.loadConversation(id)
		if err != nil {
			continue // Skip corrupted files
		}
		conversations = append(conversations, conv)
	}

	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})

	return conversations, nil
}

// AddMessage adds a message to a conversation
func (s *Store) AddMessage(id, role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.loadConversation(id)
	if err != nil {
		return err
	}

	now := s.now()
	conv.Messages = append(conv.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: now,
	})
	conv.UpdatedAt = now

	// Title follows the first user message while it is still the default
	if role == string(chat.SenderUser) && countRole(conv.Messages, role) == 1 {
		conv.Title = TitleFrom(content)
	}

	return s.saveConversation(conv)
}

// DeleteConversation removes a conversation
func (s *Store) DeleteConversation(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.conversationPath(id)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("conversation not found: %s", id)
		}
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	return nil
}

// UpdateTitle updates the title of a conversation
func (s *Store) UpdateTitle(id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.loadConversation(id)
	if err != nil {
		return err
	}

	conv.Title = title
	conv.UpdatedAt = s.now()

	return s.saveConversation(conv)
}

// ClearAll deletes all conversations
func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to read history directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		path := filepath.Join(s.baseDir, entry.Name())
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to delete %s: %w", entry.Name(), err)
		}
	}

	return nil
}

// Prune deletes conversations last updated more than maxAge ago and
// returns how many were removed. A non-positive maxAge keeps everything.
func (s *Store) Prune(maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conversations, err := s.listConversations()
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for _, conv := range conversations {
		if !conv.UpdatedAt.Before(cutoff) {
			continue
		}
		if err := os.Remove(s.conversationPath(conv.ID)); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("failed to delete %s: %w", conv.ID, err)
		}
		removed++
	}

	return removed, nil
}

// Internal methods

func (s *Store) conversationPath(id string) string {
	return filepath.Join(s.baseDir, filepath.Base(id)+".json")
}

func (s *Store) loadConversation(id string) (*Conversation, error) {
	path := s.conversationPath(id)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("conversation not found: %s", id)
		}
		return nil, fmt.Errorf("failed to read conversation: %w", err)
	}

	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("failed to parse conversation: %w", err)
	}

	return &conv, nil
}

func (s *Store) saveConversation(conv *Conversation) error {
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}

	path := s.conversationPath(conv.ID)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write conversation: %w", err)
	}

	return nil
}

func generateConvID() string {
	return idPrefix + uuid.NewString()
}

// MessagesFromTurns converts turns to stored messages, skipping the pending
// placeholder.
func MessagesFromTurns(turns []chat.Turn) []Message {
	msgs := make([]Message, 0, len(turns))
	for _, t := range turns {
		if t.Pending {
			continue
		}
		msgs = append(msgs, Message{
			Role:      string(t.Sender),
			Content:   t.Text,
			Timestamp: t.At,
		})
	}
	return msgs
}

// TurnsFromMessages is the inverse of MessagesFromTurns.
func TurnsFromMessages(msgs []Message) []chat.Turn {
	turns := make([]chat.Turn, 0, len(msgs))
	for _, m := range msgs {
		sender := chat.Sender(m.Role)
		switch sender {
		case chat.SenderUser, chat.SenderBot, chat.SenderSystem:
		default:
			sender = chat.SenderBot
		}
		turns = append(turns, chat.Turn{Sender: sender, Text: m.Content, At: m.Timestamp})
	}
	return turns
}

// TitleFrom derives a conversation title from its first user message
func TitleFrom(content string) string {
	title := strings.TrimSpace(content)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = strings.TrimSpace(title[:i])
	}
	return TruncateTitle(title, titleMaxWidth)
}

// TruncateTitle shortens title to width terminal cells, adding "..." when cut
func TruncateTitle(title string, width int) string {
	if width <= 0 || runewidth.StringWidth(title) <= width {
		return title
	}
	return runewidth.Truncate(title, width, "...")
}

func hasUserMessage(msgs []Message) bool {
	return countRole(msgs, string(chat.SenderUser)) > 0
}

func countRole(msgs []Message, role string) int {
	n := 0
	for _, m := range msgs {
		if m.Role == role {
			n++
		}
	}
	return n
}

// GetHistoryDir returns the default history base directory
func GetHistoryDir() (string, error) {
	return config.GetConfigDir()
}

// DefaultStore creates a store using the default location
func DefaultStore() (*Store, error) {
	dir, err := GetHistoryDir()
	if err != nil {
		return nil, err
	}
	return NewStore(dir)
}
