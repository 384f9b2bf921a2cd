package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/diogo/grantchat/internal/chat"
	"github.com/diogo/grantchat/internal/history"
	"github.com/diogo/grantchat/internal/logging"
	"github.com/diogo/grantchat/internal/render"
	"github.com/diogo/grantchat/internal/tui"
)

// NewChatCmd creates the interactive chat command
func NewChatCmd(deps *Dependencies) *cobra.Command {
	deps = deps.orDefault()
	var (
		resume       bool
		conversation string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session with the grant assistant.

Type /help for commands. /new starts over, /logout logs out and
'exit', 'quit', Esc or Ctrl+C end the session.

Before a conversation is cleared it is saved according to save_history.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, deps, resume, conversation)
		},
	}

	cmd.Flags().BoolVarP(&resume, "resume", "r", false, "Pick a saved conversation to continue")
	cmd.Flags().StringVarP(&conversation, "conversation", "c", "", "Continue a saved conversation (@last, index, id or title)")

	return cmd
}

func runChat(cmd *cobra.Command, deps *Dependencies, resume bool, ref string) error {
	s, err := openSession(deps)
	if err != nil {
		return err
	}

	if !tui.ApplyTheme(s.cfg.TUITheme) {
		logging.Named("commands").WithField("theme", s.cfg.TUITheme).Warn("unknown tui theme, using default")
	}

	store := historyStore()
	if store != nil && s.cfg.HistoryRetentionDays > 0 {
		removed, err := store.Prune(time.Duration(s.cfg.HistoryRetentionDays) * 24 * time.Hour)
		if err != nil {
			logging.Named("commands").WithError(err).Warn("history prune failed")
		} else if removed > 0 {
			logging.Named("commands").WithField("removed", removed).Info("pruned old conversations")
		}
	}

	restore, proceed, err := pickConversation(deps, store, s.user.UserID, resume, ref)
	if err != nil || !proceed {
		return err
	}

	result, err := deps.TUI.RunChat(s.client, tui.Config{
		UserID:      s.user.UserID,
		TypingDelay: time.Duration(s.cfg.TypingDelayMS) * time.Millisecond,
		Saver:       s.saver(store),
		Render:      render.OptionsFromConfig(s.cfg),
		Logout:      s.auth.Logout,
		Restore:     restore,
		CopyReplies: s.cfg.CopyToClipboard,
		Copy:        deps.Copy,
	})
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}

	if result.LoggedOut {
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ Logged out"))
	}
	return nil
}

// pickConversation returns the turns to restore. proceed is false when the
// user backed out of the selector.
func pickConversation(deps *Dependencies, store *history.Store, userID string, resume bool, ref string) ([]chat.Turn, bool, error) {
	if !resume && ref == "" {
		return nil, true, nil
	}
	if store == nil {
		return nil, false, fmt.Errorf("local history is unavailable")
	}

	var conv *history.Conversation
	if ref != "" {
		found, err := history.NewResolver(store).ResolveWithInfo(ref)
		if err != nil {
			return nil, false, err
		}
		if found.UserID != "" && found.UserID != userID {
			return nil, false, fmt.Errorf("conversation %s belongs to another user", found.ID)
		}
		conv = found
	} else {
		res, err := deps.TUI.RunHistorySelector(store, userID)
		if err != nil {
			return nil, false, fmt.Errorf("history selector failed: %w", err)
		}
		if !res.Confirmed {
			return nil, false, nil
		}
		conv = res.Conversation
	}

	if conv == nil {
		return nil, true, nil
	}
	return history.TurnsFromMessages(conv.Messages), true, nil
}
