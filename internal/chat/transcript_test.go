package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogo/grantchat/internal/models"
)

func TestToSaved(t *testing.T) {
	at := time.Date(2025, 2, 7, 15, 35, 0, 0, time.UTC)
	turns := []Turn{
		{Sender: SenderBot, Text: "Welcome", At: at},
		{Sender: SenderUser, Text: "Hello", At: at},
		{Sender: SenderBot, Pending: true, At: at},
		{Sender: SenderSystem, Text: "The session has ended.", At: at},
	}

	saved := ToSaved("user-1", turns)
	require.Len(t, saved, 2)
	assert.Equal(t, models.SavedMessage{
		UserID:         "user-1",
		Timestamp:      "2025-02-07T15:35:00Z",
		Role:           "bot",
		MessageContent: "Welcome",
	}, saved[0])
	assert.Equal(t, "user", saved[1].Role)
}

func TestToSaved_Empty(t *testing.T) {
	assert.Empty(t, ToSaved("user-1", nil))
}

func TestFromHistory(t *testing.T) {
	turns := FromHistory([]models.HistoryEntry{
		{Role: "user", Content: "Hello"},
		{Role: "assistant", Content: "Hi"},
	})
	require.Len(t, turns, 2)
	assert.Equal(t, SenderUser, turns[0].Sender)
	assert.Equal(t, SenderBot, turns[1].Sender)
	assert.Equal(t, "Hi", turns[1].Text)
}
