package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diogo/grantchat/internal/api"
	"github.com/diogo/grantchat/internal/auth"
	"github.com/diogo/grantchat/internal/config"
	"github.com/diogo/grantchat/internal/history"
	"github.com/diogo/grantchat/internal/logging"
)

// session bundles what a command needs to talk to the backend as the
// logged-in user.
type session struct {
	cfg    config.Config
	user   auth.State
	auth   *auth.Manager
	client api.SessionClientInterface
}

// openSession loads settings, requires a login and builds the client
func openSession(deps *Dependencies) (*session, error) {
	cfg, err := loadSettings()
	if err != nil {
		return nil, err
	}

	mgr, err := auth.DefaultManager()
	if err != nil {
		return nil, err
	}
	user, err := mgr.Current()
	if err != nil {
		return nil, fmt.Errorf("not logged in, run 'grantchat login': %w", err)
	}

	client, err := deps.NewClient(cfg.APIURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	logging.Named("commands").
		WithField("user_id", user.UserID).
		WithField("api_url", cfg.APIURL).
		Debug("session opened")

	return &session{cfg: cfg, user: user, auth: mgr, client: client}, nil
}

// historyStore opens the local store. History is optional, so failures are
// logged and yield nil.
func historyStore() *history.Store {
	store, err := history.DefaultStore()
	if err != nil {
		logging.Named("commands").WithError(err).Warn("local history unavailable")
		return nil
	}
	return store
}

// saver builds the configured history saver for this session
func (s *session) saver(store *history.Store) history.Saver {
	return history.NewSaver(s.cfg.SaveHistory, store, s.client)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
