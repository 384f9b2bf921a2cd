// Package markup parses chat replies into a tree of typed nodes and renders
// them through a caller-supplied formatter and tag map.
//
// Replies are Markdown extended with custom blocks:
//
//	{% callout type="warning" %}Careful{% /callout %}
//	{% details summary="More" %}Hidden text{% /details %}
//	{% divider /%}
//
// Parsing never fails. Tag syntax that cannot be matched stays literal text,
// and blocks whose tag is not registered render their children only.
package markup

// Node is one element of a parsed document. The set of node types is closed.
type Node interface {
	markupNode()
}

// Document is the root of a parsed reply
type Document struct {
	Children []Node
	// Problems lists the tag syntax that was kept as literal text
	Problems []error
}

// Text is a run of plain text. Soft line breaks are kept as "\n".
type Text struct {
	Value string
}

// Emphasis is *text*
type Emphasis struct {
	Children []Node
}

// Strong is **text**
type Strong struct {
	Children []Node
}

// Code is an inline code span
type Code struct {
	Value string
}

// Link is [text](url). Images are carried as links to their source.
type Link struct {
	URL      string
	Children []Node
}

// LineBreak is a hard line break inside a paragraph
type LineBreak struct{}

// Paragraph is a block of inline nodes
type Paragraph struct {
	Children []Node
}

// Heading is an ATX or setext heading, Level 1 to 6
type Heading struct {
	Level    int
	Children []Node
}

// List is a bullet or ordered list
type List struct {
	Ordered bool
	// Start is the number of the first item of an ordered list
	Start int
	// Marker is the bullet character ('-', '*', '+') or the ordered delimiter ('.', ')')
	Marker byte
	Tight  bool
	Items  []*ListItem
}

// ListItem holds the blocks of one list entry
type ListItem struct {
	Children []Node
}

// Table is a GFM table. The first row is the header when Header is set on it.
type Table struct {
	Rows []*TableRow
}

// TableRow is one row of a table
type TableRow struct {
	Header bool
	Cells  []*TableCell
}

// TableCell holds the inline content of one cell. Align is "left",
// "right", "center" or empty.
type TableCell struct {
	Align    string
	Children []Node
}

// CodeBlock is a fenced or indented code block
type CodeBlock struct {
	Lang  string
	Value string
}

// Blockquote is a > quoted block
type Blockquote struct {
	Children []Node
}

// Rule is a thematic break
type Rule struct{}

// CustomBlock is a {% name attr="v" %} ... {% /name %} block
type CustomBlock struct {
	Name     string
	Attrs    map[string]string
	Children []Node
}

// Attr returns the attribute value or def when it is absent or empty
func (b *CustomBlock) Attr(name, def string) string {
	if v, ok := b.Attrs[name]; ok && v != "" {
		return v
	}
	return def
}

func (*Document) markupNode() {}
func (*Text) markupNode() {}
func (*Emphasis) markupNode() {}
func (*Strong) markupNode() {}
func (*Code) markupNode() {}
func (*Link) markupNode() {}
func (*LineBreak) markupNode() {}
func (*Paragraph) markupNode() {}
func (*Heading) markupNode() {}
func (*List) markupNode() {}
func (*ListItem) markupNode() {}
func (*Table) markupNode() {}
func (*CodeBlock) markupNode() {}
func (*Blockquote) markupNode() {}
func (*Rule) markupNode() {}
func (*CustomBlock) markupNode() {}
