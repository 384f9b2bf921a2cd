package markup

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Markdown serialises nodes back to Markdown. Custom blocks contribute their
// children, so the output is always plain CommonMark with GFM tables.
func Markdown(nodes []Node) string {
	return strings.Join(markdownBlocks(nodes), "\n\n")
}

func markdownBlocks(nodes []Node) []string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if s := markdownBlock(n); s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

func markdownBlock(node Node) string {
	switch n := node.(type) {
	case *Document:
		return Markdown(n.Children)
	case *Paragraph:
		return escapeLineStarts(markdownInline(n.Children))
	case *Heading:
		level := min(max(n.Level, 1), 6)
		text := markdownInline(n.Children)
		// a trailing run of # would be read as the closing sequence
		if strings.HasSuffix(text, "#") {
			text = text[:len(text)-1] + "\\#"
		}
		return strings.Repeat("#", level) + " " + text
	case *Rule:
		return "---"
	case *CodeBlock:
		fence := "```"
		for strings.Contains(n.Value, fence) {
			fence += "`"
		}
		return fence + n.Lang + "\n" + n.Value + "\n" + fence
	case *Blockquote:
		return prefixLines(Markdown(n.Children), "> ", ">")
	case *List:
		return markdownList(n)
	case *ListItem:
		return Markdown(n.Children)
	case *Table:
		return markdownTable(n)
	case *CustomBlock:
		return Markdown(n.Children)
	case *Text, *Emphasis, *Strong, *Code, *Link, *LineBreak:
		return markdownInline([]Node{n})
	}
	return ""
}

func markdownList(l *List) string {
	items := make([]string, 0, len(l.Items))
	for i, item := range l.Items {
		marker := listMarker(l, i)
		var body string
		if l.Tight {
			body = strings.Join(markdownBlocks(item.Children), "\n")
		} else {
			body = Markdown(item.Children)
		}
		if body == "" {
			items = append(items, strings.TrimRight(marker, " "))
			continue
		}
		items = append(items, marker+indentContinuation(body, strings.Repeat(" ", len(marker))))
	}

	if l.Tight {
		return strings.Join(items, "\n")
	}
	return strings.Join(items, "\n\n")
}

func listMarker(l *List, i int) string {
	if l.Ordered {
		delim := l.Marker
		if delim != ')' {
			delim = '.'
		}
		return fmt.Sprintf("%d%c ", l.Start+i, delim)
	}
	switch l.Marker {
	case '*', '+':
		return string(l.Marker) + " "
	}
	return "- "
}

func markdownTable(t *Table) string {
	if len(t.Rows) == 0 {
		return ""
	}

	lines := make([]string, 0, len(t.Rows)+1)
	for i, row := range t.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = strings.ReplaceAll(markdownInline(cell.Children), "|", `\|`)
		}
		lines = append(lines, "| "+strings.Join(cells, " | ")+" |")

		if i == 0 {
			seps := make([]string, len(row.Cells))
			for j, cell := range row.Cells {
				seps[j] = alignmentRule(cell.Align)
			}
			lines = append(lines, "| "+strings.Join(seps, " | ")+" |")
		}
	}
	return strings.Join(lines, "\n")
}

func alignmentRule(align string) string {
	switch align {
	case "left":
		return ":---"
	case "right":
		return "---:"
	case "center":
		return ":---:"
	}
	return "---"
}

func markdownInline(nodes []Node) string {
	var b strings.Builder
	for _, node := range nodes {
		switch n := node.(type) {
		case *Text:
			b.WriteString(escapeMarkdown(n.Value))
		case *Emphasis:
			b.WriteString("*" + markdownInline(n.Children) + "*")
		case *Strong:
			b.WriteString("**" + markdownInline(n.Children) + "**")
		case *Code:
			b.WriteString(codeSpan(n.Value))
		case *Link:
			url := n.URL
			if strings.ContainsAny(url, " ()") {
				url = "<" + url + ">"
			}
			b.WriteString("[" + markdownInline(n.Children) + "](" + url + ")")
		case *LineBreak:
			b.WriteString("\\\n")
		case nil:
		default:
			b.WriteString(markdownBlock(n))
		}
	}
	return b.String()
}

func codeSpan(value string) string {
	fence := "`"
	for strings.Contains(value, fence) {
		fence += "`"
	}
	if strings.HasPrefix(value, "`") || strings.HasSuffix(value, "`") {
		return fence + " " + value + " " + fence
	}
	return fence + value + fence
}

// escapeMarkdown backslash-escapes the characters that would otherwise
// start inline markup or an entity reference. Intraword underscores are
// left alone.
func escapeMarkdown(s string) string {
	if !strings.ContainsAny(s, "\\*_`[]<&") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 8)
	for i, r := range s {
		switch r {
		case '\\', '*', '`', '[', ']', '<':
			b.WriteByte('\\')
		case '_':
			if !intraword(s, i) {
				b.WriteByte('\\')
			}
		case '&':
			if entityLike(s[i+1:]) {
				b.WriteByte('\\')
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

// entityLike reports whether s, the text after an ampersand, would be read
// as an entity or character reference.
func entityLike(s string) bool {
	for n := 0; n < len(s) && n < 32; n++ {
		c := s[n]
		switch {
		case c == ';':
			return n > 0
		case c == '#' && n == 0:
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return false
}

// escapeLineStarts escapes characters that open a block (heading, quote,
// list, fence, setext underline) when they begin a line of paragraph text.
func escapeLineStarts(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = escapeBlockMarker(line)
	}
	return strings.Join(lines, "\n")
}

func escapeBlockMarker(line string) string {
	trimmed := strings.TrimLeft(line, " ")
	if trimmed == "" {
		return line
	}
	indent := line[:len(line)-len(trimmed)]

	switch trimmed[0] {
	case '#', '>', '-', '+', '=', '~', '|':
		return indent + "\\" + trimmed
	}

	digits := 0
	for digits < len(trimmed) && digits < 9 && trimmed[digits] >= '0' && trimmed[digits] <= '9' {
		digits++
	}
	if digits > 0 && digits < len(trimmed) && (trimmed[digits] == '.' || trimmed[digits] == ')') {
		return indent + trimmed[:digits] + "\\" + trimmed[digits:]
	}
	return line
}

func intraword(s string, i int) bool {
	if i == 0 || i+1 >= len(s) {
		return false
	}
	before, _ := utf8.DecodeLastRuneInString(s[:i])
	after, _ := utf8.DecodeRuneInString(s[i+1:])
	isWord := func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }
	return isWord(before) && isWord(after)
}

func indentContinuation(s, indent string) string {
	lines := strings.Split(s, "\n")
	for i := 1; i < len(lines); i++ {
		if lines[i] != "" {
			lines[i] = indent + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}

func prefixLines(s, prefix, empty string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line == "" {
			lines[i] = empty
		} else {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}
