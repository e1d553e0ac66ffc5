package csstok

import (
	"testing"

	"github.com/kbrowse/kbrowse/internal/handler"
	"github.com/kbrowse/kbrowse/internal/loc"
	"github.com/kbrowse/kbrowse/internal/testutil"
	"gotest.tools/v3/assert"
)

// significant strips Loc (position is expected to shift across a
// re-tokenize) and whitespace/EOF tokens (the round-trip property
// holds modulo whitespace) for comparison.
func significant(toks []Token) []Token {
	var out []Token
	for _, tok := range toks {
		if tok.Type == WhitespaceToken || tok.Type == EOFToken {
			continue
		}
		tok.Loc = loc.Loc{}
		out = append(out, tok)
	}
	return out
}

func TestReserializeThenRetokenizeRoundTrips(t *testing.T) {
	const css = `p.foo#bar[data-x="y"] { color: #fff; width: 12.5%; margin: 2em; }
	@media screen { a:hover { content: "it's \"quoted\""; } }`

	original := tokenize(t, css)
	serialized := Serialize(original)
	roundTripped := tokenize(t, serialized)

	assert.DeepEqual(t, significant(original), significant(roundTripped))

	testutil.MakeSnapshot(&testutil.SnapshotOptions{
		Testing:      t,
		TestCaseName: t.Name(),
		Input:        css,
		Output:       serialized,
		Kind:         testutil.CSSOutput,
	})
}

func tokenize(t *testing.T, input string) []Token {
	t.Helper()
	h := handler.NewHandler(input, "<test>")
	return New([]byte(input), h).Tokens()
}

func nonWhitespaceTypes(toks []Token) []TokenType {
	var out []TokenType
	for _, tok := range toks {
		if tok.Type == WhitespaceToken {
			continue
		}
		out = append(out, tok.Type)
	}
	return out
}

func TestBasicTokenTypes(t *testing.T) {
	toks := tokenize(t, `p.foo#bar[data-x="y"] { color: #fff; width: 12.5%; margin: 2em; }`)
	got := nonWhitespaceTypes(toks)
	want := []TokenType{
		IdentToken, DelimToken, IdentToken, HashToken,
		LeftBracketToken, IdentToken, DelimToken, StringToken, RightBracketToken,
		LeftBraceToken,
		IdentToken, ColonToken, HashToken, SemicolonToken,
		IdentToken, ColonToken, PercentageToken, SemicolonToken,
		IdentToken, ColonToken, DimensionToken, SemicolonToken,
		RightBraceToken,
		EOFToken,
	}
	assert.DeepEqual(t, got, want)
}

func TestCommentsSkipped(t *testing.T) {
	toks := tokenize(t, `/* comment */ a /* another */ b`)
	got := nonWhitespaceTypes(toks)
	assert.DeepEqual(t, got, []TokenType{IdentToken, IdentToken, EOFToken})
}

func TestFunctionToken(t *testing.T) {
	toks := tokenize(t, `rgba(0, 0, 0, .5)`)
	assert.Equal(t, toks[0].Type, FunctionToken)
	assert.Equal(t, toks[0].Data, "rgba")
}

func TestNumberVariants(t *testing.T) {
	tests := []struct {
		input string
		num   float64
		unit  string
		typ   TokenType
	}{
		{"12", 12, "", NumberToken},
		{"-12.5", -12.5, "", NumberToken},
		{"1e3", 1000, "", NumberToken},
		{"50%", 50, "", PercentageToken},
		{"1.5em", 1.5, "em", DimensionToken},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			toks := tokenize(t, tt.input)
			assert.Equal(t, toks[0].Type, tt.typ)
			assert.Equal(t, toks[0].Num, tt.num)
			assert.Equal(t, toks[0].Unit, tt.unit)
		})
	}
}

func TestStringEscape(t *testing.T) {
	toks := tokenize(t, `"a\"b"`)
	assert.Equal(t, toks[0].Type, StringToken)
	assert.Equal(t, toks[0].Data, `a"b`)
}

func TestRunawayTokenizerTerminates(t *testing.T) {
	h := handler.NewHandler("a b c", "<test>")
	z := New([]byte("a b c"), h)
	z.maxSteps = 1
	toks := z.Tokens()
	assert.Equal(t, toks[len(toks)-1].Type, EOFToken)
}
