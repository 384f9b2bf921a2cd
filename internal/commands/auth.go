package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/diogo/grantchat/internal/auth"
	"github.com/diogo/grantchat/internal/logging"
)

// NewLoginCmd creates the login command
func NewLoginCmd(deps *Dependencies) *cobra.Command {
	deps = deps.orDefault()
	var (
		email         string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the assistant",
		Long: fmt.Sprintf(`Log in with an email and password. The demo account is %s / %s;
more accounts can be listed in ~/.grantchat/users.json:

  [{"email": "ana@example.com", "password": "secret"}]`, auth.DemoEmail, auth.DemoPassword),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := auth.DefaultManager()
			if err != nil {
				return err
			}

			in := bufio.NewReader(cmd.InOrStdin())
			if email == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Email: ")
				if email, err = readLine(in); err != nil {
					return fmt.Errorf("failed to read email: %w", err)
				}
			}

			var password string
			if passwordStdin {
				password, err = readLine(in)
			} else {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
				password, err = deps.ReadPassword()
			}
			if err != nil {
				return err
			}

			state, err := mgr.Login(email, password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ Logged in as "+state.Email))
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")

	return cmd
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd(deps *Dependencies) *cobra.Command {
	deps = deps.orDefault()

	return &cobra.Command{
		Use:   "logout",
		Short: "End the backend session and forget the login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := auth.DefaultManager()
			if err != nil {
				return err
			}

			state, err := mgr.Current()
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
				return mgr.Logout()
			}

			// The backend may be down; logging out locally still succeeds
			if cfg, err := loadSettings(); err == nil {
				if client, err := deps.NewClient(cfg.APIURL); err == nil {
					ctx, cancel := context.WithTimeout(commandContext(cmd), 5*time.Second)
					client.EndSession(ctx, state.UserID)
					cancel()
				} else {
					logging.Named("commands").WithError(err).Warn("skipping end_session")
				}
			}

			if err := mgr.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ Logged out"))
			return nil
		},
	}
}

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := auth.DefaultManager()
			if err != nil {
				return err
			}
			state, err := mgr.Current()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Email:   %s\nUser ID: %s\n", state.Email, state.UserID)
			return nil
		},
	}
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
