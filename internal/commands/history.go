package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/diogo/grantchat/internal/chat"
	"github.com/diogo/grantchat/internal/history"
	"github.com/diogo/grantchat/internal/models"
	"github.com/diogo/grantchat/internal/render"
)

// NewHistoryCmd creates the history command tree
func NewHistoryCmd(deps *Dependencies) *cobra.Command {
	deps = deps.orDefault()

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage conversation history",
		Long: `View and manage conversations saved before a chat was cleared.

Conversations can be referenced by:
` + history.ListAliases(),
	}

	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistoryDeleteCmd())
	cmd.AddCommand(newHistoryClearCmd())
	cmd.AddCommand(newHistoryPruneCmd())
	cmd.AddCommand(newHistoryExportCmd())
	cmd.AddCommand(newHistorySearchCmd())
	cmd.AddCommand(newHistoryRemoteCmd(deps))

	return cmd
}

func openStore() (*history.Store, error) {
	store, err := history.DefaultStore()
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return store, nil
}

func resolveConversation(store *history.Store, ref string) (*history.Conversation, error) {
	return history.NewResolver(store).ResolveWithInfo(ref)
}

func newHistoryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}

			conversations, err := store.ListConversations()
			if err != nil {
				return fmt.Errorf("failed to list conversations: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(conversations) == 0 {
				fmt.Fprintln(out, "No conversations found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "#\tID\tTITLE\tMESSAGES\tUPDATED")
			for i, conv := range conversations {
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n",
					i+1, conv.ID, history.TruncateTitle(conv.Title, 40), len(conv.Messages),
					history.FormatRelativeTime(conv.UpdatedAt))
			}
			return w.Flush()
		},
	}
}

func newHistoryShowCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "show <ref>",
		Short: "Show a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			conv, err := resolveConversation(store, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID: %s\n", conv.ID)
			fmt.Fprintf(out, "Title: %s\n", conv.Title)
			fmt.Fprintf(out, "User: %s\n", conv.UserID)
			fmt.Fprintf(out, "Created: %s\n", conv.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "Updated: %s\n", conv.UpdatedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "Messages: %d\n\n", len(conv.Messages))

			for i, msg := range conv.Messages {
				content := msg.Content
				if !raw && msg.Role != "user" {
					content = render.Plain(content)
				}
				fmt.Fprintf(out, "[%d] %s (%s):\n", i+1, roleName(msg.Role), msg.Timestamp.Format("15:04"))
				fmt.Fprintf(out, "  %s\n\n", content)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Show reply markup without converting it to plain text")
	return cmd
}

func roleName(role string) string {
	switch role {
	case "user":
		return "You"
	case "system":
		return "System"
	}
	return "Assistant"
}

func newHistoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <ref>",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			conv, err := resolveConversation(store, args[0])
			if err != nil {
				return err
			}
			if err := store.DeleteConversation(conv.ID); err != nil {
				return fmt.Errorf("failed to delete: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted conversation: %s\n", conv.ID)
			return nil
		},
	}
}

func newHistoryClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			if err := store.ClearAll(); err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All conversations deleted.")
			return nil
		},
	}
}

func newHistoryPruneCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete conversations older than the retention period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("days") {
				cfg, err := loadSettings()
				if err != nil {
					return err
				}
				days = cfg.HistoryRetentionDays
			}
			if days <= 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Retention is disabled; nothing pruned.")
				return nil
			}

			store, err := openStore()
			if err != nil {
				return err
			}
			removed, err := store.Prune(time.Duration(days) * 24 * time.Hour)
			if err != nil {
				return fmt.Errorf("failed to prune history: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d conversation(s) older than %d days.\n", removed, days)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Retention in days (default from history_retention_days)")
	return cmd
}

func newHistoryExportCmd() *cobra.Command {
	var (
		format        string
		output        string
		includeSystem bool
	)

	cmd := &cobra.Command{
		Use:   "export <ref>",
		Short: "Export a conversation as Markdown or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exportFormat, err := history.ParseExportFormat(format)
			if err != nil {
				return err
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			conv, err := resolveConversation(store, args[0])
			if err != nil {
				return err
			}

			data, err := store.Export(conv.ID, history.ExportOptions{Format: exportFormat, IncludeSystem: includeSystem})
			if err != nil {
				return err
			}

			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), successStyle.Render("✓ Exported to "+output))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "F", "markdown", "Export format: markdown or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	cmd.Flags().BoolVar(&includeSystem, "include-system", false, "Include system notices")
	return cmd
}

func newHistorySearchCmd() *cobra.Command {
	var content bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search conversation titles (and messages with --content)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			results, err := store.SearchConversations(args[0], content)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(out, "No matches.")
				return nil
			}
			for _, r := range results {
				fmt.Fprintf(out, "%s  %s\n", r.Conversation.ID, history.TruncateTitle(r.Conversation.Title, 50))
				if r.MatchSnippet != "" {
					fmt.Fprintf(out, "    %s\n", dimStyle.Render(r.MatchSnippet))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&content, "content", false, "Also search message content")
	return cmd
}

// newHistoryRemoteCmd reads the history kept by the backend
func newHistoryRemoteCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Conversations saved on the backend",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the backend's conversations for the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(deps)
			if err != nil {
				return err
			}
			summaries, err := s.client.ListConversations(commandContext(cmd), s.user.UserID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(summaries) == 0 {
				fmt.Fprintln(out, "No conversations found.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tDATE")
			for _, c := range summaries {
				_, _ = fmt.Fprintf(w, "%s\t%s\n", c.ID, conversationDate(c))
			}
			return w.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <conversation-id>",
		Short: "Show a conversation stored on the backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(deps)
			if err != nil {
				return err
			}
			entries, err := s.client.FetchHistory(commandContext(cmd), s.user.UserID, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, turn := range chat.FromHistory(entries) {
				fmt.Fprintf(out, "[%d] %s:\n  %s\n\n", i+1, roleName(string(turn.Sender)), render.Plain(turn.Text))
			}
			return nil
		},
	})

	return cmd
}

func conversationDate(c models.ConversationSummary) string {
	if c.Date.IsZero() {
		return c.RawDate
	}
	return c.Date.Format("2006-01-02 15:04")
}
