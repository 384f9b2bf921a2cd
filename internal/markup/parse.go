package markup

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	apierrors "github.com/diogo/grantchat/internal/errors"
	"github.com/diogo/grantchat/internal/logging"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// Parse builds the node tree of src. It never fails: unmatched, stray or
// malformed tag syntax is kept as literal text and reported in Problems.
//
// Tags are block level. A tag in the middle of a line splits the text around
// it into separate paragraphs, so "a {% x %}b{% /x %} c" yields three blocks.
func Parse(src string) *Document {
	tokens, problems := lex(src)

	p := &parser{problems: problems}
	doc := &Document{Children: p.parseTokens(tokens)}
	doc.Problems = p.problems

	if len(doc.Problems) > 0 {
		log := logging.Named("markup")
		for _, problem := range doc.Problems {
			log.WithError(problem).Debug("markup degraded")
		}
	}
	return doc
}

type parser struct {
	problems []error
}

func (p *parser) parseTokens(tokens []token) []Node {
	var (
		nodes   []Node
		pending strings.Builder
	)
	flush := func() {
		if pending.Len() > 0 {
			nodes = append(nodes, parseMarkdown(pending.String())...)
			pending.Reset()
		}
	}

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok.kind {
		case tokenText:
			pending.WriteString(tok.raw)
		case tokenSelfClosing:
			flush()
			nodes = append(nodes, &CustomBlock{Name: tok.name, Attrs: tok.attrs})
		case tokenOpen:
			end := matchingClose(tokens, i)
			if end < 0 {
				p.problems = append(p.problems, apierrors.NewMarkupError(tok.name, tok.offset, "unclosed tag kept as text"))
				pending.WriteString(tok.raw)
				continue
			}
			flush()
			nodes = append(nodes, &CustomBlock{
				Name:     tok.name,
				Attrs:    tok.attrs,
				Children: p.parseTokens(tokens[i+1 : end]),
			})
			i = end
		case tokenClose:
			p.problems = append(p.problems, apierrors.NewMarkupError(tok.name, tok.offset, "closing tag without opening tag kept as text"))
			pending.WriteString(tok.raw)
		}
	}
	flush()

	return nodes
}

// matchingClose returns the index of the tag closing tokens[open], counting
// nested tags of the same name, or -1.
func matchingClose(tokens []token, open int) int {
	name := tokens[open].name
	depth := 0
	for i := open + 1; i < len(tokens); i++ {
		if tokens[i].name != name {
			continue
		}
		switch tokens[i].kind {
		case tokenOpen:
			depth++
		case tokenClose:
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}

// parseMarkdown converts a tag-free run of Markdown into block nodes
func parseMarkdown(src string) []Node {
	if strings.TrimSpace(src) == "" {
		return nil
	}
	source := []byte(src)
	root := markdown.Parser().Parse(text.NewReader(source))
	c := converter{source: source}
	return c.blocks(root)
}

type converter struct {
	source []byte
}

func (c converter) blocks(parent ast.Node) []Node {
	var out []Node
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		if b := c.block(n); b != nil {
			out = append(out, b)
		}
	}
	return out
}

func (c converter) block(node ast.Node) Node {
	switch n := node.(type) {
	case *ast.Paragraph:
		return &Paragraph{Children: c.inlines(n)}
	case *ast.TextBlock:
		return &Paragraph{Children: c.inlines(n)}
	case *ast.Heading:
		return &Heading{Level: n.Level, Children: c.inlines(n)}
	case *ast.ThematicBreak:
		return &Rule{}
	case *ast.FencedCodeBlock:
		return &CodeBlock{Lang: string(n.Language(c.source)), Value: c.lines(n)}
	case *ast.CodeBlock:
		return &CodeBlock{Value: c.lines(n)}
	case *ast.Blockquote:
		return &Blockquote{Children: c.blocks(n)}
	case *ast.List:
		list := &List{Ordered: n.IsOrdered(), Start: n.Start, Marker: n.Marker, Tight: n.IsTight}
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			list.Items = append(list.Items, &ListItem{Children: c.blocks(item)})
		}
		return list
	case *ast.HTMLBlock:
		value := c.lines(n)
		if n.HasClosure() {
			value += "\n" + strings.TrimRight(string(n.ClosureLine.Value(c.source)), "\n")
		}
		return &Paragraph{Children: []Node{&Text{Value: value}}}
	case *east.Table:
		return c.table(n)
	}

	if inline := c.inlines(node); len(inline) > 0 {
		return &Paragraph{Children: inline}
	}
	return nil
}

func (c converter) table(t *east.Table) Node {
	table := &Table{}
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		_, header := row.(*east.TableHeader)
		r := &TableRow{Header: header}
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			tc := &TableCell{Children: c.inlines(cell)}
			if tcell, ok := cell.(*east.TableCell); ok && tcell.Alignment != east.AlignNone {
				tc.Align = tcell.Alignment.String()
			}
			r.Cells = append(r.Cells, tc)
		}
		table.Rows = append(table.Rows, r)
	}
	return table
}

func (c converter) inlines(parent ast.Node) []Node {
	var out []Node
	for node := parent.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.Text:
			value := unescape(n.Segment.Value(c.source))
			if n.SoftLineBreak() {
				value += "\n"
			}
			out = appendText(out, value)
			if n.HardLineBreak() {
				out = append(out, &LineBreak{})
			}
		case *ast.String:
			out = appendText(out, string(n.Value))
		case *ast.CodeSpan:
			out = append(out, &Code{Value: c.raw(n)})
		case *ast.Emphasis:
			if n.Level >= 2 {
				out = append(out, &Strong{Children: c.inlines(n)})
			} else {
				out = append(out, &Emphasis{Children: c.inlines(n)})
			}
		case *ast.Link:
			out = append(out, &Link{URL: string(n.Destination), Children: c.inlines(n)})
		case *ast.Image:
			out = append(out, &Link{URL: string(n.Destination), Children: c.inlines(n)})
		case *ast.AutoLink:
			out = append(out, &Link{
				URL:      string(n.URL(c.source)),
				Children: []Node{&Text{Value: string(n.Label(c.source))}},
			})
		case *ast.RawHTML:
			var b strings.Builder
			for i := 0; i < n.Segments.Len(); i++ {
				seg := n.Segments.At(i)
				b.Write(seg.Value(c.source))
			}
			out = appendText(out, b.String())
		default:
			out = append(out, c.inlines(n)...)
		}
	}
	return out
}

// raw returns the literal text of a code span
func (c converter) raw(parent ast.Node) string {
	var b strings.Builder
	for node := parent.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.Text:
			b.Write(n.Segment.Value(c.source))
			if n.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(n.Value)
		}
	}
	return b.String()
}

func (c converter) lines(n ast.Node) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(c.source))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// appendText merges adjacent text runs
func appendText(nodes []Node, value string) []Node {
	if value == "" {
		return nodes
	}
	if n := len(nodes); n > 0 {
		if prev, ok := nodes[n-1].(*Text); ok {
			nodes[n-1] = &Text{Value: prev.Value + value}
			return nodes
		}
	}
	return append(nodes, &Text{Value: value})
}

// unescape resolves backslash escapes and entity references in one pass,
// so an escaped ampersand never starts a reference.
func unescape(b []byte) string {
	out := make([]byte, 0, len(b))
	start := 0
	for i := 0; i < len(b); i++ {
		if b[i] == '\\' && i+1 < len(b) && util.IsPunct(b[i+1]) {
			out = append(out, resolveReferences(b[start:i])...)
			out = append(out, b[i+1])
			i++
			start = i + 1
		}
	}
	out = append(out, resolveReferences(b[start:])...)
	return string(out)
}

func resolveReferences(b []byte) []byte {
	return util.ResolveNumericReferences(util.ResolveEntityNames(b))
}
