package render

import (
	"github.com/diogo/grantchat/internal/markup"
)

// Markdown renders markdown content for terminal display.
// Uses a pooled renderer for better performance and thread safety.
func Markdown(content string, opts Options) (string, error) {
	renderer, err := globalPool.get(opts)
	if err != nil {
		return "", err
	}
	defer globalPool.put(opts, renderer)

	return renderer.Render(content)
}

// Reply renders a chat reply: Markdown through glamour, callout and details
// blocks drawn in the palette, unknown tags as their content.
func Reply(content string, opts Options, palette TUITheme) string {
	return markup.RenderString(content, Tags(palette), TerminalFormatter{Options: opts})
}

// Tags returns the custom block renderers drawn with palette
func Tags(palette TUITheme) markup.TagMap {
	return markup.DefaultTags(BlockTheme{Palette: palette})
}

// Plain renders a reply as text without styling
func Plain(content string) string {
	return markup.RenderString(content, markup.DefaultTags(nil), markup.PlainFormatter{})
}
