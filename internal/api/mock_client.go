package api

import (
	"context"
	"sync"

	"github.com/diogo/grantchat/internal/models"
)

// MockSessionClient is a mock implementation of SessionClientInterface for testing
type MockSessionClient struct {
	mu sync.Mutex

	// Mock return values
	BaseURLVal       string
	StartVal         models.SessionStart
	Replies          []models.Reply // consumed in order; the last one repeats
	Conversations    []models.ConversationSummary
	ConversationsErr error
	History          []models.HistoryEntry
	HistoryErr       error
	SaveErr          error

	// Call counters/recorders
	StartCalls   int
	EndCalls     int
	SentMessages []string
	SavedChats   [][]models.SavedMessage
	LastUserID   string
}

var _ SessionClientInterface = (*MockSessionClient)(nil)

func (m *MockSessionClient) BaseURL() string {
	return m.BaseURLVal
}

func (m *MockSessionClient) StartSession(ctx context.Context, userID string) models.SessionStart {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StartCalls++
	m.LastUserID = userID
	return m.StartVal
}

func (m *MockSessionClient) SendMessage(ctx context.Context, userID, text string) models.Reply {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastUserID = userID
	m.SentMessages = append(m.SentMessages, text)

	if len(m.Replies) == 0 {
		return models.Reply{Text: models.FallbackReply, Failed: true}
	}
	reply := m.Replies[0]
	if len(m.Replies) > 1 {
		m.Replies = m.Replies[1:]
	}
	return reply
}

func (m *MockSessionClient) EndSession(ctx context.Context, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EndCalls++
	m.LastUserID = userID
}

func (m *MockSessionClient) ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	return m.Conversations, m.ConversationsErr
}

func (m *MockSessionClient) FetchHistory(ctx context.Context, userID, conversationID string) ([]models.HistoryEntry, error) {
	return m.History, m.HistoryErr
}

func (m *MockSessionClient) SaveChat(ctx context.Context, messages []models.SavedMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.SavedChats = append(m.SavedChats, messages)
	return nil
}

// Sent returns a copy of the messages passed to SendMessage
func (m *MockSessionClient) Sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.SentMessages...)
}
