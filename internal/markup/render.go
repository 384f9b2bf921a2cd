package markup

import (
	"fmt"
	"strings"

	"github.com/diogo/grantchat/internal/logging"
)

// Formatter turns a run of standard (non-custom) nodes into output text
type Formatter interface {
	Format(nodes []Node) string
}

// TagFunc renders one custom block. body is the block's children already
// rendered with the same formatter and tags.
type TagFunc func(block *CustomBlock, body string) string

// TagMap maps tag names to their renderers
type TagMap map[string]TagFunc

// Render walks doc. Standard nodes go to f in runs; each custom block is
// rendered by its TagFunc, or as its children alone when the tag is not in
// tags. Rendering never fails.
func Render(doc *Document, tags TagMap, f Formatter) string {
	if doc == nil {
		return ""
	}
	if f == nil {
		f = PlainFormatter{}
	}
	return renderNodes(doc.Children, tags, f)
}

// RenderString parses and renders src in one step
func RenderString(src string, tags TagMap, f Formatter) string {
	return Render(Parse(src), tags, f)
}

func renderNodes(nodes []Node, tags TagMap, f Formatter) string {
	var (
		parts []string
		run   []Node
	)
	flush := func() {
		if len(run) == 0 {
			return
		}
		if s := f.Format(run); strings.TrimSpace(s) != "" {
			parts = append(parts, s)
		}
		run = nil
	}

	for _, n := range nodes {
		block, ok := n.(*CustomBlock)
		if !ok {
			run = append(run, n)
			continue
		}
		flush()

		body := renderNodes(block.Children, tags, f)
		if out := renderTag(block, body, tags); strings.TrimSpace(out) != "" {
			parts = append(parts, out)
		}
	}
	flush()

	return strings.Join(parts, "\n\n")
}

func renderTag(block *CustomBlock, body string, tags TagMap) (out string) {
	fn, ok := tags[block.Name]
	if !ok || fn == nil {
		logging.Named("markup").WithField("tag", block.Name).Debug("unregistered tag rendered as its content")
		return body
	}

	defer func() {
		if r := recover(); r != nil {
			logging.Named("markup").WithField("tag", block.Name).
				WithError(fmt.Errorf("%v", r)).Warn("tag renderer panicked")
			out = body
		}
	}()
	return fn(block, body)
}
