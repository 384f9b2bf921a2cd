package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/diogo/grantchat/internal/logging"
	"github.com/diogo/grantchat/internal/mockserver"
)

// NewMockServerCmd creates the development backend command
func NewMockServerCmd() *cobra.Command {
	var (
		addr        string
		basePath    string
		idleTimeout time.Duration
		debug       bool
	)

	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run a local development backend",
		Long: `Serve the chat endpoints with scripted replies, so the client can be
used without the real assistant. Saying "bye" ends the session.

  grantchat mock-server --addr 127.0.0.1:8000
  grantchat --api-url http://127.0.0.1:8000/api chat`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				gin.SetMode(gin.DebugMode)
			} else {
				gin.SetMode(gin.ReleaseMode)
			}

			// The server owns no TUI, so its log goes to the terminal
			logging.SetOutput(os.Stderr)
			if debug {
				logging.SetLevel(logrus.DebugLevel)
			} else {
				logging.SetLevel(logrus.InfoLevel)
			}

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := mockserver.New(
				mockserver.WithBasePath(basePath),
				mockserver.WithIdleTimeout(idleTimeout),
			)

			fmt.Fprintln(cmd.ErrOrStderr(), successStyle.Render(fmt.Sprintf("✓ Mock backend on http://%s%s", addr, basePath)))
			return srv.Run(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8000", "Listen address")
	cmd.Flags().StringVar(&basePath, "base-path", mockserver.DefaultBasePath, "Route prefix")
	cmd.Flags().DurationVar(&idleTimeout, "idle-timeout", mockserver.DefaultIdleTimeout, "End sessions idle for this long")
	cmd.Flags().BoolVar(&debug, "debug", false, "Verbose gin and request logging")

	return cmd
}
