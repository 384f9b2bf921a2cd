package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/diogo/grantchat/internal/chat"
	"github.com/diogo/grantchat/internal/config"
	"github.com/diogo/grantchat/internal/models"
)

// Saver persists a conversation before it is cleared
type Saver interface {
	Save(ctx context.Context, userID string, turns []chat.Turn) error
}

// ChatSaver is the backend side of remote saving (POST /save_chat)
type ChatSaver interface {
	SaveChat(ctx context.Context, messages []models.SavedMessage) error
}

// NewSaver builds the saver for a save_history mode. Modes that need a
// store or a backend fall back to what is available.
func NewSaver(mode string, store *Store, remote ChatSaver) Saver {
	var savers []Saver
	if (mode == config.SaveHistoryLocal || mode == config.SaveHistoryBoth) && store != nil {
		savers = append(savers, LocalSaver{Store: store})
	}
	if (mode == config.SaveHistoryRemote || mode == config.SaveHistoryBoth) && remote != nil {
		savers = append(savers, RemoteSaver{Client: remote})
	}

	switch len(savers) {
	case 0:
		return NopSaver{}
	case 1:
		return savers[0]
	}
	return MultiSaver(savers)
}

// NopSaver discards conversations
type NopSaver struct{}

func (NopSaver) Save(context.Context, string, []chat.Turn) error { return nil }

// LocalSaver writes conversations to the local history store
type LocalSaver struct {
	Store *Store
}

func (s LocalSaver) Save(_ context.Context, userID string, turns []chat.Turn) error {
	if _, err := s.Store.SaveTurns(userID, turns); err != nil {
		return fmt.Errorf("local history: %w", err)
	}
	return nil
}

// RemoteSaver sends conversations to the backend
type RemoteSaver struct {
	Client ChatSaver
}

func (s RemoteSaver) Save(ctx context.Context, userID string, turns []chat.Turn) error {
	msgs := chat.ToSaved(userID, turns)
	if !hasUserSaved(msgs) {
		return nil
	}
	if err := s.Client.SaveChat(ctx, msgs); err != nil {
		return fmt.Errorf("remote history: %w", err)
	}
	return nil
}

func hasUserSaved(msgs []models.SavedMessage) bool {
	for _, m := range msgs {
		if m.Role == string(chat.SenderUser) {
			return true
		}
	}
	return false
}

// MultiSaver runs every saver and joins their errors
type MultiSaver []Saver

func (m MultiSaver) Save(ctx context.Context, userID string, turns []chat.Turn) error {
	var errs []error
	for _, s := range m {
		if err := s.Save(ctx, userID, turns); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
