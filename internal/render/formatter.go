package render

import (
	"strings"

	"github.com/diogo/grantchat/internal/logging"
	"github.com/diogo/grantchat/internal/markup"
)

// TerminalFormatter renders runs of markup nodes through glamour.
// When glamour cannot render, the run falls back to plain text.
type TerminalFormatter struct {
	Options Options
}

var _ markup.Formatter = TerminalFormatter{}

// Format implements markup.Formatter
func (f TerminalFormatter) Format(nodes []markup.Node) string {
	src := markup.Markdown(nodes)
	if strings.TrimSpace(src) == "" {
		return ""
	}

	out, err := Markdown(src, f.Options)
	if err != nil {
		logging.Named("render").WithError(err).WithField("style", f.Options.Style).
			Warn("markdown rendering failed, using plain text")
		return markup.PlainFormatter{}.Format(nodes)
	}
	return strings.Trim(out, "\n")
}
