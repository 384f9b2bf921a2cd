package api

import (
	"context"

	"github.com/diogo/grantchat/internal/models"
)

// SessionClientInterface is what the chat surface and the commands need from
// the backend. Start, send and end never return errors.
type SessionClientInterface interface {
	BaseURL() string
	StartSession(ctx context.Context, userID string) models.SessionStart
	SendMessage(ctx context.Context, userID, text string) models.Reply
	EndSession(ctx context.Context, userID string)
	ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error)
	FetchHistory(ctx context.Context, userID, conversationID string) ([]models.HistoryEntry, error)
	SaveChat(ctx context.Context, messages []models.SavedMessage) error
}

var _ SessionClientInterface = (*Client)(nil)
