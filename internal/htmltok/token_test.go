package htmltok

import (
	"testing"

	"github.com/kbrowse/kbrowse/internal/handler"
	"gotest.tools/v3/assert"
)

func tokenize(t *testing.T, input string) []Token {
	t.Helper()
	h := handler.NewHandler(input, "<test>")
	toks := New([]byte(input), h).Tokens()
	if h.HasErrors() {
		t.Fatalf("unexpected errors: %s", h.String())
	}
	return toks
}

func types(toks []Token) []TokenType {
	out := make([]TokenType, len(toks))
	for i, tok := range toks {
		out[i] = tok.Type
	}
	return out
}

type tokenTypeTest struct {
	name     string
	input    string
	expected []TokenType
}

func TestTokenTypes(t *testing.T) {
	tests := []tokenTypeTest{
		{"doctype", `<!DOCTYPE html>`, []TokenType{DoctypeToken, EOFToken}},
		{"start tag", `<html>`, []TokenType{StartTagToken, EOFToken}},
		{"end tag", `</html>`, []TokenType{EndTagToken, EOFToken}},
		{"self-closing void tag", `<img src="a.png">`, []TokenType{StartTagToken, EOFToken}},
		{"self-closing slash", `<br/>`, []TokenType{StartTagToken, EOFToken}},
		{"comment", `<!-- hi -->`, []TokenType{CommentToken, EOFToken}},
		{"text", `hello world`, []TokenType{TextToken, EOFToken}},
		{
			"nested elements",
			`<div><p>hi</p></div>`,
			[]TokenType{StartTagToken, StartTagToken, TextToken, EndTagToken, EndTagToken, EOFToken},
		},
		{
			"script is raw text",
			`<script>if (1 < 2) { alert("</div>") }</script>`,
			[]TokenType{StartTagToken, TextToken, EndTagToken, EOFToken},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks := tokenize(t, tt.input)
			assert.DeepEqual(t, types(toks), tt.expected)
		})
	}
}

func TestStartTagAttributes(t *testing.T) {
	toks := tokenize(t, `<a href="/x" class='y' data-foo=bar disabled>`)
	assert.Equal(t, len(toks), 2) // start tag + EOF
	tok := toks[0]
	assert.Equal(t, tok.Type, StartTagToken)
	assert.Equal(t, tok.Data, "a")
	want := map[string]string{"href": "/x", "class": "y", "data-foo": "bar", "disabled": ""}
	got := map[string]string{}
	for _, a := range tok.Attr {
		got[a.Key] = a.Val
	}
	assert.DeepEqual(t, got, want)
}

func TestVoidElementNeverRawText(t *testing.T) {
	toks := tokenize(t, `<br>text after`)
	assert.Equal(t, toks[0].Type, StartTagToken)
	assert.Equal(t, toks[1].Type, TextToken)
	assert.Equal(t, toks[1].Data, "text after")
}

func TestSelfClosingFlag(t *testing.T) {
	toks := tokenize(t, `<my-widget />`)
	assert.Equal(t, toks[0].SelfClosing, true)
}

func TestCharacterReferences(t *testing.T) {
	tests := []struct {
		name, input, want string
	}{
		{"named with semicolon", "&amp;", "&"},
		{"named without semicolon", "&amp", "&"},
		{"decimal numeric", "&#65;", "A"},
		{"hex numeric", "&#x41;", "A"},
		{"unknown falls back literal", "&notareal;", "&notareal;"},
		{"invalid codepoint", "&#x110000;", "�"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks := tokenize(t, tt.input)
			assert.Equal(t, toks[0].Data, tt.want)
		})
	}
}

func TestUnterminatedCommentWarns(t *testing.T) {
	h := handler.NewHandler("<!-- oops", "<test>")
	toks := New([]byte("<!-- oops"), h).Tokens()
	assert.Equal(t, toks[0].Type, CommentToken)
	assert.Assert(t, len(h.Warnings()) == 1)
}

func TestRunawayTokenizerTerminates(t *testing.T) {
	// A tokenizer driven past its step bound must still terminate with
	// an EOF token rather than looping forever.
	h := handler.NewHandler("x", "<test>")
	z := New([]byte("x"), h)
	z.maxSteps = 1
	toks := z.Tokens()
	assert.Equal(t, toks[len(toks)-1].Type, EOFToken)
}

func TestMalformedMarkupNeverPanics(t *testing.T) {
	inputs := []string{
		"<", "<!", "<!-", "</", "<a", "<a=", `<a="`, "<a b=", "&", "&#", "&#x",
	}
	for _, in := range inputs {
		h := handler.NewHandler(in, "<test>")
		assert.Assert(t, func() (ok bool) {
			defer func() {
				if r := recover(); r != nil {
					ok = false
				}
			}()
			New([]byte(in), h).Tokens()
			return true
		}())
	}
}
