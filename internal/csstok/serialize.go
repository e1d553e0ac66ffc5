package csstok

import (
	"strconv"
	"strings"
)

// Serialize reconstructs a CSS text from a token stream. It is not a
// byte-for-byte pretty-printer (every token is separated by a single
// space for simplicity); it exists to drive the re-tokenize round-trip
// property that tokenizing Serialize(Tokens()) must yield the same
// non-whitespace token stream as the original.
func Serialize(tokens []Token) string {
	var b strings.Builder
	for _, tok := range tokens {
		frag := serializeToken(tok)
		if frag == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(frag)
	}
	return b.String()
}

func serializeToken(tok Token) string {
	switch tok.Type {
	case EOFToken, WhitespaceToken:
		return ""
	case IdentToken:
		return tok.Data
	case HashToken:
		return "#" + tok.Data
	case StringToken:
		escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(tok.Data)
		return `"` + escaped + `"`
	case NumberToken:
		return formatNum(tok.Num)
	case PercentageToken:
		return formatNum(tok.Num) + "%"
	case DimensionToken:
		return formatNum(tok.Num) + tok.Unit
	case FunctionToken:
		return tok.Data + "("
	case ColonToken:
		return ":"
	case SemicolonToken:
		return ";"
	case CommaToken:
		return ","
	case LeftBraceToken:
		return "{"
	case RightBraceToken:
		return "}"
	case LeftParenToken:
		return "("
	case RightParenToken:
		return ")"
	case LeftBracketToken:
		return "["
	case RightBracketToken:
		return "]"
	case AtKeywordToken:
		return "@" + tok.Data
	case DelimToken:
		return tok.Data
	}
	return ""
}

func formatNum(n float64) string {
	return strconv.FormatFloat(n, 'g', -1, 64)
}
