package markup

import (
	"fmt"
	"strings"
)

// PlainFormatter renders standard nodes as their text content, one block
// per paragraph. It is used for non-terminal output and tests.
type PlainFormatter struct{}

// Format implements Formatter
func (PlainFormatter) Format(nodes []Node) string {
	return plainBlocks(nodes)
}

// PlainText returns the text content of n without markup.
func PlainText(n Node) string {
	switch n.(type) {
	case *Text, *Emphasis, *Strong, *Code, *Link, *LineBreak:
		return plainInline([]Node{n})
	}
	return plainBlock(n)
}

func plainBlocks(nodes []Node) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if s := plainBlock(n); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

func plainBlock(node Node) string {
	switch n := node.(type) {
	case *Document:
		return plainBlocks(n.Children)
	case *Paragraph:
		return plainInline(n.Children)
	case *Heading:
		return plainInline(n.Children)
	case *CodeBlock:
		return n.Value
	case *Rule:
		return "---"
	case *Blockquote:
		return plainBlocks(n.Children)
	case *ListItem:
		return plainBlocks(n.Children)
	case *CustomBlock:
		return plainBlocks(n.Children)
	case *List:
		items := make([]string, 0, len(n.Items))
		for i, item := range n.Items {
			marker := "- "
			if n.Ordered {
				marker = fmt.Sprintf("%d. ", n.Start+i)
			}
			body := strings.ReplaceAll(plainBlocks(item.Children), "\n\n", "\n")
			items = append(items, marker+indentContinuation(body, strings.Repeat(" ", len(marker))))
		}
		return strings.Join(items, "\n")
	case *Table:
		rows := make([]string, 0, len(n.Rows))
		for _, row := range n.Rows {
			cells := make([]string, len(row.Cells))
			for i, cell := range row.Cells {
				cells[i] = plainInline(cell.Children)
			}
			rows = append(rows, strings.Join(cells, " | "))
		}
		return strings.Join(rows, "\n")
	case *Text, *Emphasis, *Strong, *Code, *Link, *LineBreak:
		return plainInline([]Node{n})
	}
	return ""
}

func plainInline(nodes []Node) string {
	var b strings.Builder
	for _, node := range nodes {
		switch n := node.(type) {
		case *Text:
			b.WriteString(n.Value)
		case *Code:
			b.WriteString(n.Value)
		case *Emphasis:
			b.WriteString(plainInline(n.Children))
		case *Strong:
			b.WriteString(plainInline(n.Children))
		case *Link:
			b.WriteString(plainInline(n.Children))
		case *LineBreak:
			b.WriteByte('\n')
		case nil:
		default:
			b.WriteString(plainBlock(n))
		}
	}
	return b.String()
}
