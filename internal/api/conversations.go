package api

import (
	"context"

	http "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/grantchat/internal/errors"
	"github.com/diogo/grantchat/internal/models"
)

// ListConversations returns the server-side conversations of userID in
// backend order.
func (c *Client) ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	endpoint := userPath(models.EndpointConversations, userID)
	data, err := c.do(ctx, "list conversations", http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	parsed := gjson.ParseBytes(data)
	if !gjson.ValidBytes(data) || !parsed.IsArray() {
		return nil, apierrors.NewDecodeError(models.EndpointConversations, "expected a JSON array")
	}

	var result []models.ConversationSummary
	for _, item := range parsed.Array() {
		id := item.Get("conversationId").String()
		if id == "" {
			continue
		}
		raw := item.Get("conversation_date").String()
		date, _ := models.ParseConversationDate(raw)
		result = append(result, models.ConversationSummary{ID: id, Date: date, RawDate: raw})
	}
	return result, nil
}

// FetchHistory returns the stored messages of one server-side conversation.
func (c *Client) FetchHistory(ctx context.Context, userID, conversationID string) ([]models.HistoryEntry, error) {
	endpoint := userPath(models.EndpointHistory, userID, conversationID)
	data, err := c.do(ctx, "fetch history", http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	parsed := gjson.ParseBytes(data)
	if !gjson.ValidBytes(data) || !parsed.IsArray() {
		return nil, apierrors.NewDecodeError(models.EndpointHistory, "expected a JSON array")
	}

	entries := make([]models.HistoryEntry, 0, len(parsed.Array()))
	parsed.ForEach(func(_, item gjson.Result) bool {
		entries = append(entries, models.HistoryEntry{
			Role:    item.Get("role").String(),
			Content: item.Get("message_content").String(),
		})
		return true
	})
	return entries, nil
}

// SaveChat posts a finished conversation to the backend. An empty
// conversation is not sent.
func (c *Client) SaveChat(ctx context.Context, messages []models.SavedMessage) error {
	if len(messages) == 0 {
		return nil
	}
	_, err := c.do(ctx, "save chat", http.MethodPost, models.EndpointSaveChat,
		models.SaveChatRequest{Messages: messages})
	return err
}
