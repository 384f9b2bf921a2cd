package markup

import "testing"

func TestLex_Tokens(t *testing.T) {
	tokens, problems := lex(`a{% x k="v" %}b{% /x %}{% y /%}`)
	if len(problems) != 0 {
		t.Fatalf("unexpected problems: %v", problems)
	}

	kinds := []tokenKind{tokenText, tokenOpen, tokenText, tokenClose, tokenSelfClosing}
	if len(tokens) != len(kinds) {
		t.Fatalf("got %d tokens, want %d: %#v", len(tokens), len(kinds), tokens)
	}
	for i, kind := range kinds {
		if tokens[i].kind != kind {
			t.Errorf("token %d kind = %d, want %d", i, tokens[i].kind, kind)
		}
	}
	if tokens[1].attrs["k"] != "v" {
		t.Errorf("attrs = %v", tokens[1].attrs)
	}
	if tokens[3].offset != 15 {
		t.Errorf("close offset = %d, want 15", tokens[3].offset)
	}
}

func TestCodeSpans(t *testing.T) {
	tests := []struct {
		name string
		src  string
		pos  int
		want bool
	}{
		{name: "inline code", src: "x `{% a %}` y", pos: 3, want: true},
		{name: "outside code", src: "x `c` {% a %}", pos: 6, want: false},
		{name: "fenced", src: "```\n{% a %}\n```\n", pos: 4, want: true},
		{name: "after fence", src: "```\nx\n```\n{% a %}", pos: 10, want: false},
		{name: "unterminated fence", src: "~~~\n{% a %}", pos: 4, want: true},
		{name: "unmatched backtick", src: "`{% a %}", pos: 1, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inSpans(codeSpans(tt.src), tt.pos); got != tt.want {
				t.Errorf("inSpans(%d) = %v, want %v", tt.pos, got, tt.want)
			}
		})
	}
}
