package markup

import (
	"regexp"
	"strings"

	apierrors "github.com/diogo/grantchat/internal/errors"
)

var (
	tagPattern = regexp.MustCompile(
		`\{%\s*(/?)([A-Za-z][\w-]*)((?:\s+[A-Za-z_][\w-]*\s*=\s*(?:"[^"]*"|'[^']*'|[^\s"'%/}]+))*)\s*(/?)\s*%\}`)
	attrPattern = regexp.MustCompile(`([A-Za-z_][\w-]*)\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"'%/}]+))`)
)

type tokenKind int

const (
	tokenText tokenKind = iota
	tokenOpen
	tokenClose
	tokenSelfClosing
)

type token struct {
	kind   tokenKind
	raw    string
	name   string
	attrs  map[string]string
	offset int
}

type span struct {
	start, end int
}

func inSpans(spans []span, pos int) bool {
	for _, s := range spans {
		if pos >= s.start && pos < s.end {
			return true
		}
	}
	return false
}

// lex splits src into text and tag tokens. Tags inside code are text.
func lex(src string) ([]token, []error) {
	var (
		tokens   []token
		problems []error
		last     int
	)

	code := codeSpans(src)
	tagStarts := make(map[int]bool)

	for _, m := range tagPattern.FindAllStringSubmatchIndex(src, -1) {
		start, end := m[0], m[1]
		if inSpans(code, start) {
			continue
		}
		tagStarts[start] = true

		raw := src[start:end]
		closing := m[3] > m[2]
		selfClosing := m[9] > m[8]
		name := src[m[4]:m[5]]

		var tok token
		switch {
		case closing && selfClosing:
			problems = append(problems, apierrors.NewMarkupError(name, start, "tag is both closing and self-closing"))
			continue
		case closing:
			tok = token{kind: tokenClose, raw: raw, name: name, offset: start}
		case selfClosing:
			tok = token{kind: tokenSelfClosing, raw: raw, name: name, offset: start}
		default:
			tok = token{kind: tokenOpen, raw: raw, name: name, offset: start}
		}
		if !closing {
			tok.attrs = parseAttrs(src[m[6]:m[7]])
		}

		if start > last {
			tokens = append(tokens, token{kind: tokenText, raw: src[last:start], offset: last})
		}
		tokens = append(tokens, tok)
		last = end
	}
	if last < len(src) {
		tokens = append(tokens, token{kind: tokenText, raw: src[last:], offset: last})
	}

	for offset := 0; ; {
		i := strings.Index(src[offset:], "{%")
		if i < 0 {
			break
		}
		pos := offset + i
		if !tagStarts[pos] && !inSpans(code, pos) {
			problems = append(problems, apierrors.NewMarkupError("", pos, "malformed tag kept as text"))
		}
		offset = pos + 2
	}

	return tokens, problems
}

func parseAttrs(s string) map[string]string {
	attrs := make(map[string]string)
	for _, m := range attrPattern.FindAllStringSubmatchIndex(s, -1) {
		name := s[m[2]:m[3]]
		switch {
		case m[4] >= 0:
			attrs[name] = s[m[4]:m[5]]
		case m[6] >= 0:
			attrs[name] = s[m[6]:m[7]]
		case m[8] >= 0:
			attrs[name] = s[m[8]:m[9]]
		}
	}
	return attrs
}

// codeSpans returns the byte ranges of fenced code blocks and inline code
// spans, where tag syntax is literal.
func codeSpans(src string) []span {
	var spans []span

	var (
		open      bool
		fenceChar byte
		fenceLen  int
		openStart int
	)
	for lineStart := 0; lineStart < len(src); {
		lineEnd := strings.IndexByte(src[lineStart:], '\n')
		if lineEnd < 0 {
			lineEnd = len(src)
		} else {
			lineEnd += lineStart + 1
		}
		line := strings.TrimLeft(src[lineStart:lineEnd], " ")
		indent := lineEnd - lineStart - len(line)

		if indent <= 3 && len(line) >= 3 && (line[0] == '`' || line[0] == '~') {
			n := 0
			for n < len(line) && line[n] == line[0] {
				n++
			}
			switch {
			case !open && n >= 3 && !(line[0] == '`' && strings.Contains(line[n:], "`")):
				open, fenceChar, fenceLen, openStart = true, line[0], n, lineStart
			case open && line[0] == fenceChar && n >= fenceLen && strings.TrimSpace(line[n:]) == "":
				spans = append(spans, span{openStart, lineEnd})
				open = false
			}
		}
		lineStart = lineEnd
	}
	if open {
		spans = append(spans, span{openStart, len(src)})
	}

	for i := 0; i < len(src); {
		if src[i] != '`' || inSpans(spans, i) {
			i++
			continue
		}
		n := 0
		for i+n < len(src) && src[i+n] == '`' {
			n++
		}
		end := closingBackticks(src, i+n, n)
		if end < 0 {
			i += n
			continue
		}
		spans = append(spans, span{i, end})
		i = end
	}

	return spans
}

// closingBackticks finds the end of a backtick run of exactly n characters
func closingBackticks(src string, from, n int) int {
	for i := from; i < len(src); {
		if src[i] != '`' {
			i++
			continue
		}
		run := 0
		for i+run < len(src) && src[i+run] == '`' {
			run++
		}
		if run == n {
			return i + run
		}
		i += run
	}
	return -1
}
