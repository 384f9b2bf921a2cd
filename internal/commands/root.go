// Package commands provides CLI commands for grantchat.
package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/diogo/grantchat/internal/config"
	"github.com/diogo/grantchat/internal/logging"
	"github.com/diogo/grantchat/internal/tui"
)

var (
	// Global flags
	apiURLFlag   string
	logFileFlag  string
	logLevelFlag string

	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"

	logCloser io.Closer
)

// NewRootCmd builds the command tree around deps
func NewRootCmd(deps *Dependencies) *cobra.Command {
	deps = deps.orDefault()

	root := &cobra.Command{
		Use:   "grantchat [message]",
		Short: "Terminal client for the grant assistant chat",
		Long: `grantchat talks to the grant assistant backend. Replies use Markdown plus
callout and details blocks, rendered for the terminal.

Examples:
  grantchat login                       Log in (demo: admin@example.com / admin)
  grantchat chat                        Start interactive chat
  grantchat "Which grants fit a startup?"
                                        Ask a single question
  cat question.md | grantchat           Read the question from stdin
  grantchat history list                Saved conversations
  grantchat mock-server                 Run a local development backend`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeLogging()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Fprintf(cmd.OutOrStdout(), "grantchat %s (built %s)\n", Version, BuildTime)
				return nil
			}

			prompt, ok, err := readPrompt(cmd, args, "")
			if err != nil {
				return err
			}
			if !ok {
				return cmd.Help()
			}
			return runAsk(cmd, deps, prompt, askOptions{})
		},
	}

	root.PersistentFlags().StringVar(&apiURLFlag, "api-url", "", "Backend base URL (overrides config and "+config.EnvAPIURL+")")
	root.PersistentFlags().StringVar(&logFileFlag, "log-file", "", "Log file (default ~/.grantchat/"+logging.DefaultFileName+")")
	root.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")
	root.Flags().BoolP("version", "v", false, "Show version and exit")

	root.AddCommand(NewChatCmd(deps))
	root.AddCommand(NewAskCmd(deps))
	root.AddCommand(NewLoginCmd(deps))
	root.AddCommand(NewLogoutCmd(deps))
	root.AddCommand(NewWhoamiCmd())
	root.AddCommand(NewHistoryCmd(deps))
	root.AddCommand(NewConfigCmd())
	root.AddCommand(NewMockServerCmd())

	return root
}

// rootCmd represents the base command
var rootCmd = NewRootCmd(nil)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, tui.FormatError(err))
		os.Exit(1)
	}
}

// loadSettings reads the config file and applies flag overrides
func loadSettings() (config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return cfg, err
	}
	if apiURLFlag != "" {
		if err := cfg.Set("api_url", apiURLFlag); err != nil {
			return cfg, fmt.Errorf("--api-url: %w", err)
		}
	}
	if logLevelFlag != "" {
		cfg.LogLevel = logLevelFlag
	}
	return cfg, nil
}

// setupLogging routes logs to the log file so the TUI keeps the terminal
func setupLogging() error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}

	path := logFileFlag
	if path == "" {
		dir, err := config.GetConfigDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, logging.DefaultFileName)
	}

	closer, err := logging.Configure(cfg.LogLevel, path)
	if err != nil {
		// Logging is best effort; the command still runs
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		return nil
	}
	logCloser = closer
	return nil
}

func closeLogging() {
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
	logging.Reset()
}

// readPrompt takes the prompt from a file, stdin or the first argument, in
// that order. ok is false when none was given.
func readPrompt(cmd *cobra.Command, args []string, file string) (string, bool, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", false, fmt.Errorf("failed to read file: %w", err)
		}
		return string(data), true, nil
	}

	if len(args) > 0 {
		return args[0], true, nil
	}

	in := cmd.InOrStdin()
	if f, isFile := in.(*os.File); isFile {
		stat, err := f.Stat()
		if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
			return "", false, nil
		}
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", false, fmt.Errorf("failed to read stdin: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", false, nil
	}
	return string(data), true, nil
}
