package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/diogo/grantchat/internal/config"
	"github.com/diogo/grantchat/internal/render"
)

// NewConfigCmd creates a new config command
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
		Long: `Settings live in ~/.grantchat/config.toml (or $` + config.EnvHome + `/config.toml).
` + config.EnvAPIURL + ` and --api-url override api_url.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			source := cfg.Source
			if source == "" {
				source = "defaults"
			}
			fmt.Fprintf(out, "# %s\n", source)

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, key := range config.Keys() {
				value, _ := cfg.Get(key)
				_, _ = fmt.Fprintf(w, "%s\t%s\n", key, value)
			}
			return w.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.GetConfigPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings()
			if err != nil {
				return err
			}
			value, err := cfg.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Long:  "Keys: " + strings.Join(config.Keys(), ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			// Flag overrides are not persisted
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if err := validateSetting(key, value); err != nil {
				return err
			}
			if err := cfg.Set(key, value); err != nil {
				return err
			}
			if err := config.SaveConfig(cfg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ %s = %s", key, strings.TrimSpace(value))))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "themes",
		Short: "List TUI themes and markdown styles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "tui_theme:")
			for _, t := range render.AvailableTUIThemes() {
				fmt.Fprintf(out, "  %-12s %s\n", t.Name, dimStyle.Render(t.Description))
			}
			fmt.Fprintln(out, "markdown.style:")
			for _, t := range render.AvailableThemes() {
				fmt.Fprintf(out, "  %-12s %s\n", t.Name, dimStyle.Render(t.Description))
			}
			return nil
		},
	})

	return cmd
}

// validateSetting checks values that need the render package
func validateSetting(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "tui_theme":
		if _, ok := render.GetTUIThemeByName(value); !ok {
			return fmt.Errorf("unknown tui_theme %q (available: %s)", value, strings.Join(render.TUIThemeNames(), ", "))
		}
	case "markdown.style":
		return render.ValidateStyle(value)
	}
	return nil
}
