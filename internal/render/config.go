package render

import (
	"os"

	"github.com/diogo/grantchat/internal/config"
)

// EnvStyle overrides the configured glamour style
const EnvStyle = "GLAMOUR_STYLE"

// OptionsFromConfig builds render options from a loaded configuration.
// The GLAMOUR_STYLE environment variable takes precedence over the file.
func OptionsFromConfig(cfg config.Config) Options {
	opts := DefaultOptions()

	md := cfg.Markdown
	if md.Style != "" {
		opts.Style = md.Style
	}
	opts.EnableEmoji = md.EnableEmoji
	opts.PreserveNewLines = md.PreserveNewLines
	opts.TableWrap = md.TableWrap
	opts.InlineTableLinks = md.InlineTableLinks

	if style := os.Getenv(EnvStyle); style != "" {
		opts.Style = style
	}

	return opts
}

// LoadOptionsFromConfig loads render options from the user configuration.
// A configuration that cannot be read yields the defaults.
func LoadOptionsFromConfig() Options {
	cfg, err := config.LoadConfig()
	if err != nil {
		cfg = config.DefaultConfig()
	}
	return OptionsFromConfig(cfg)
}
