package markup

import "strings"

// Variant is the style of a callout block
type Variant string

const (
	VariantNote    Variant = "note"
	VariantInfo    Variant = "info"
	VariantWarning Variant = "warning"
	VariantError   Variant = "error"
)

// Variants lists the callout variants in display order
var Variants = []Variant{VariantNote, VariantInfo, VariantWarning, VariantError}

// ParseVariant maps a type attribute to a Variant. Missing or unknown values
// are VariantNote.
func ParseVariant(s string) Variant {
	v := Variant(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Variants {
		if v == known {
			return v
		}
	}
	return VariantNote
}

// DefaultDetailsSummary is shown when a details block has no summary
const DefaultDetailsSummary = "Details"

// Theme draws the built-in blocks
type Theme interface {
	Callout(variant Variant, body string) string
	Details(summary, body string) string
}

// DefaultTags returns the callout and details renderers drawn with theme.
// A nil theme uses PlainTheme.
func DefaultTags(theme Theme) TagMap {
	if theme == nil {
		theme = PlainTheme{}
	}
	return TagMap{
		"callout": func(block *CustomBlock, body string) string {
			return theme.Callout(ParseVariant(block.Attrs["type"]), body)
		},
		"details": func(block *CustomBlock, body string) string {
			return theme.Details(block.Attr("summary", DefaultDetailsSummary), body)
		},
	}
}

// PlainTheme draws callouts as "[WARNING] text" and details as a summary
// line followed by the indented body.
type PlainTheme struct{}

// Callout implements Theme
func (PlainTheme) Callout(variant Variant, body string) string {
	label := "[" + strings.ToUpper(string(variant)) + "]"
	switch {
	case body == "":
		return label
	case strings.Contains(body, "\n"):
		return label + "\n" + body
	}
	return label + " " + body
}

// Details implements Theme
func (PlainTheme) Details(summary, body string) string {
	if body == "" {
		return "▸ " + summary
	}
	return "▾ " + summary + "\n" + prefixLines(body, "  ", "")
}
