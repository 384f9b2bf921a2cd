package render

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
)

// Built-in glamour style names accepted in the configuration
const (
	StyleDark       = "dark"
	StyleLight      = "light"
	StyleTokyoNight = "tokyonight"
	StyleDracula    = "dracula"
	StylePink       = "pink"
	StyleASCII      = "ascii"
	StyleNoTTY      = "notty"
)

// normalizeStyle maps configuration names onto glamour's standard style names
func normalizeStyle(style string) string {
	switch s := strings.ToLower(strings.TrimSpace(style)); s {
	case "":
		return styles.DarkStyle
	case StyleTokyoNight, "tokyo-night":
		return styles.TokyoNightStyle
	default:
		if _, ok := styles.DefaultStyles[s]; ok {
			return s
		}
		return style
	}
}

// IsBuiltinStyle returns true if the style is one of glamour's standard styles.
func IsBuiltinStyle(style string) bool {
	_, ok := styles.DefaultStyles[normalizeStyle(style)]
	return ok
}

// ValidateStyle checks that style is a built-in name or a readable file
func ValidateStyle(style string) error {
	if IsBuiltinStyle(style) {
		return nil
	}
	if _, err := os.Stat(style); err != nil {
		return fmt.Errorf("unknown markdown style %q: not a built-in style or readable file", style)
	}
	return nil
}

func styleOption(style string) glamour.TermRendererOption {
	name := normalizeStyle(style)
	if _, ok := styles.DefaultStyles[name]; ok {
		return glamour.WithStandardStyle(name)
	}
	return glamour.WithStylePath(name)
}

// ThemeInfo contains information about a theme for display purposes.
type ThemeInfo struct {
	Name        string
	Description string
}

// AvailableThemes returns the built-in markdown styles.
func AvailableThemes() []ThemeInfo {
	return []ThemeInfo{
		{Name: StyleDark, Description: "Dark theme (default)"},
		{Name: StyleTokyoNight, Description: "Tokyo Night color scheme"},
		{Name: StyleDracula, Description: "Dracula color scheme"},
		{Name: StylePink, Description: "Pink accents"},
		{Name: StyleLight, Description: "Light theme for bright terminals"},
		{Name: StyleNoTTY, Description: "Plain text (no styling)"},
		{Name: StyleASCII, Description: "ASCII-only output"},
	}
}

// ThemeNames returns just the theme names for selection.
func ThemeNames() []string {
	themes := AvailableThemes()
	names := make([]string, len(themes))
	for i, t := range themes {
		names[i] = t.Name
	}
	return names
}
