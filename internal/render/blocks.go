package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/grantchat/internal/markup"
)

// BlockTheme draws callout and details blocks in the colors of a TUI theme
type BlockTheme struct {
	Palette TUITheme
}

var _ markup.Theme = BlockTheme{}

// Callout draws a box with a thick left rule in the variant's color
func (b BlockTheme) Callout(variant markup.Variant, body string) string {
	color := b.Palette.VariantColor(variant)

	label := lipgloss.NewStyle().
		Bold(true).
		Foreground(color).
		Render(strings.ToUpper(string(variant)))

	content := label
	if body = strings.TrimRight(body, "\n "); body != "" {
		content += "\n" + body
	}

	return lipgloss.NewStyle().
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(color).
		PaddingLeft(1).
		MarginLeft(2).
		Render(content)
}

// Details draws the summary line followed by the body behind a thin rule.
// Terminal output cannot collapse, so the body is always shown.
func (b BlockTheme) Details(summary, body string) string {
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(b.Palette.Primary).
		MarginLeft(2).
		Render("▾ " + summary)

	body = strings.TrimRight(body, "\n ")
	if body == "" {
		return header
	}

	content := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(b.Palette.Border).
		MarginLeft(2).
		Render(body)

	return header + "\n" + content
}
