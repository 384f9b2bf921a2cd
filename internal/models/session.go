package models

import (
	"strings"
	"time"
)

// SessionRequest is the body of /start_session and /chat
type SessionRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message,omitempty"`
}

// SessionStart is the outcome of opening a session
type SessionStart struct {
	SessionID string
	Message   string
	// Fallback is true when Message is one of the fixed fallback texts
	Fallback bool
}

// Reply is the outcome of one message exchange
type Reply struct {
	Text string
	// SessionEnded is set by the backend when the conversation is over
	SessionEnded bool
	// Failed is true when Text is FallbackReply because the exchange failed
	Failed bool
}

// ConversationSummary is one entry of the per-user conversation list
type ConversationSummary struct {
	ID      string
	Date    time.Time
	RawDate string
}

// HistoryEntry is one stored message of a server-side conversation
type HistoryEntry struct {
	Role    string
	Content string
}

// SavedMessage is the /save_chat wire form of a turn
type SavedMessage struct {
	UserID         string `json:"userId"`
	Timestamp      string `json:"timestamp"`
	Role           string `json:"role"`
	MessageContent string `json:"message_content"`
}

// SaveChatRequest is the body of /save_chat
type SaveChatRequest struct {
	Messages []SavedMessage `json:"messages"`
}

var conversationDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseConversationDate parses the backend's conversation_date field.
// The backend is not strict about the layout, so several are accepted.
func ParseConversationDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range conversationDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
