package chat

import (
	"time"

	"github.com/diogo/grantchat/internal/models"
)

// ToSaved converts the resolved user and bot turns to the /save_chat form.
// Pending and system turns are not part of the transcript.
func ToSaved(userID string, turns []Turn) []models.SavedMessage {
	var out []models.SavedMessage
	for _, t := range turns {
		if t.Pending || t.Sender == SenderSystem {
			continue
		}
		at := t.At
		if at.IsZero() {
			at = time.Now()
		}
		out = append(out, models.SavedMessage{
			UserID:         userID,
			Timestamp:      at.UTC().Format(time.RFC3339),
			Role:           string(t.Sender),
			MessageContent: t.Text,
		})
	}
	return out
}

// FromHistory converts server-side history entries to turns. Roles other
// than user are shown as bot turns.
func FromHistory(entries []models.HistoryEntry) []Turn {
	turns := make([]Turn, 0, len(entries))
	for _, e := range entries {
		sender := SenderBot
		if e.Role == string(SenderUser) {
			sender = SenderUser
		}
		turns = append(turns, Turn{Sender: sender, Text: e.Content})
	}
	return turns
}
