// Package csstok implements the CSS tokenizer: characters to a finite
// stream of CSS tokens.
//
// The character stream is github.com/tdewolff/parse/v2/buffer.Input, a
// shifting byte buffer with rewind; the grammar stage on top of it is
// hand-written rather than delegated to tdewolff's own CSS parser.
package csstok

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/kbrowse/kbrowse/internal/handler"
	"github.com/kbrowse/kbrowse/internal/loc"
	buffer "github.com/tdewolff/parse/v2"
)

type TokenType uint8

const (
	EOFToken TokenType = iota
	IdentToken
	HashToken
	StringToken
	NumberToken
	PercentageToken
	DimensionToken
	FunctionToken
	ColonToken
	SemicolonToken
	CommaToken
	LeftBraceToken
	RightBraceToken
	LeftParenToken
	RightParenToken
	LeftBracketToken
	RightBracketToken
	AtKeywordToken
	DelimToken
	WhitespaceToken
)

func (t TokenType) String() string {
	switch t {
	case EOFToken:
		return "EOF"
	case IdentToken:
		return "Ident"
	case HashToken:
		return "Hash"
	case StringToken:
		return "String"
	case NumberToken:
		return "Number"
	case PercentageToken:
		return "Percentage"
	case DimensionToken:
		return "Dimension"
	case FunctionToken:
		return "Function"
	case ColonToken:
		return "Colon"
	case SemicolonToken:
		return "Semicolon"
	case CommaToken:
		return "Comma"
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
		return "AtKeyword"
	case DelimToken:
		return "Delim"
	case WhitespaceToken:
		return "Whitespace"
	}
	return "Invalid"
}

// Token is a single lexical unit. Not every field is populated for
// every TokenType: Num/Unit only apply to Number/Percentage/Dimension,
// Data carries the raw identifier/string/at-keyword/function name.
type Token struct {
	Type TokenType
	Data string
	Num  float64
	Unit string
	Loc  loc.Loc
}

const tokenizerDeadline = 1500 * time.Millisecond

func maxSteps(numTokensGuess int) int {
	n := 5 * numTokensGuess
	if n < 100000 {
		n = 100000
	}
	if n > 500000 {
		n = 500000
	}
	return n
}

type Tokenizer struct {
	in       *buffer.Input
	h        *handler.Handler
	steps    int
	maxSteps int
	deadline time.Time
	done     bool
}

func New(src []byte, h *handler.Handler) *Tokenizer {
	return &Tokenizer{
		in:       buffer.NewInput(bytes.NewReader(src)),
		h:        h,
		maxSteps: maxSteps(len(src)),
		deadline: time.Now().Add(tokenizerDeadline),
	}
}

// Tokens consumes the entire stream, the way cssparse drives it.
func (z *Tokenizer) Tokens() []Token {
	var out []Token
	for {
		tok := z.Next()
		out = append(out, tok)
		if tok.Type == EOFToken {
			return out
		}
	}
}

func (z *Tokenizer) bounded() bool {
	z.steps++
	if z.steps > z.maxSteps {
		return true
	}
	if z.steps%4096 == 0 && time.Now().After(z.deadline) {
		return true
	}
	return false
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || c == '-' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentChar(c byte) bool { return isIdentStart(c) || isDigit(c) }

// Next returns the next token; at EOF, subsequent calls keep returning
// an EOFToken rather than panicking (the design's "fails with: never").
func (z *Tokenizer) Next() Token {
	if z.done {
		return Token{Type: EOFToken, Loc: loc.Loc{Start: z.in.Pos()}}
	}
	z.skipComments()
	start := z.in.Pos()

	if z.bounded() {
		z.h.AppendWarning(loc.NewError(loc.WARNING_CSS_RECOVERY, loc.Range{Loc: loc.Loc{Start: start}}, "css tokenizer exceeded its step/time bound; truncating"))
		z.done = true
		return Token{Type: EOFToken, Loc: loc.Loc{Start: start}}
	}

	c := z.in.Peek(0)
	if c == 0 && z.in.Pos() >= z.in.Len() {
		z.done = true
		return Token{Type: EOFToken, Loc: loc.Loc{Start: start}}
	}

	switch {
	case isWhitespace(c):
		for isWhitespace(z.in.Peek(0)) {
			z.in.Move(1)
		}
		z.in.Skip()
		return Token{Type: WhitespaceToken, Loc: loc.Loc{Start: start}}
	case c == '"' || c == '\'':
		return z.readString(start)
	case c == '#':
		return z.readHash(start)
	case c == '@':
		return z.readAtKeyword(start)
	case isDigit(c), c == '.' && isDigit(z.in.Peek(1)), c == '-' && (isDigit(z.in.Peek(1)) || (z.in.Peek(1) == '.' && isDigit(z.in.Peek(2)))):
		return z.readNumeric(start)
	case isIdentStart(c):
		return z.readIdentLike(start)
	case c == ':':
		z.in.Move(1)
		z.in.Skip()
		return Token{Type: ColonToken, Loc: loc.Loc{Start: start}}
	case c == ';':
		z.in.Move(1)
		z.in.Skip()
		return Token{Type: SemicolonToken, Loc: loc.Loc{Start: start}}
	case c == ',':
		z.in.Move(1)
		z.in.Skip()
		return Token{Type: CommaToken, Loc: loc.Loc{Start: start}}
	case c == '{':
		z.in.Move(1)
		z.in.Skip()
		return Token{Type: LeftBraceToken, Loc: loc.Loc{Start: start}}
	case c == '}':
		z.in.Move(1)
		z.in.Skip()
		return Token{Type: RightBraceToken, Loc: loc.Loc{Start: start}}
	case c == '(':
		z.in.Move(1)
		z.in.Skip()
		return Token{Type: LeftParenToken, Loc: loc.Loc{Start: start}}
	case c == ')':
		z.in.Move(1)
		z.in.Skip()
		return Token{Type: RightParenToken, Loc: loc.Loc{Start: start}}
	case c == '[':
		z.in.Move(1)
		z.in.Skip()
		return Token{Type: LeftBracketToken, Loc: loc.Loc{Start: start}}
	case c == ']':
		z.in.Move(1)
		z.in.Skip()
		return Token{Type: RightBracketToken, Loc: loc.Loc{Start: start}}
	default:
		z.in.Move(1)
		delim := string(z.in.Shift())
		return Token{Type: DelimToken, Data: delim, Loc: loc.Loc{Start: start}}
	}
}

// skipComments drops any number of /* ... */ runs preceding the next
// token; CSS comments never produce a token.
func (z *Tokenizer) skipComments() {
	for {
		if z.in.Peek(0) == '/' && z.in.Peek(1) == '*' {
			z.in.Move(2)
			for {
				if z.in.Pos() >= z.in.Len() {
					break
				}
				if z.in.Peek(0) == '*' && z.in.Peek(1) == '/' {
					z.in.Move(2)
					break
				}
				z.in.Move(1)
			}
			z.in.Skip()
			continue
		}
		break
	}
}

func (z *Tokenizer) readString(start int) Token {
	quote := z.in.Peek(0)
	z.in.Move(1)
	z.in.Skip() // drop the opening quote from the captured lexeme
	var b strings.Builder
	for {
		c := z.in.Peek(0)
		atEOF := z.in.Pos() >= z.in.Len()
		if atEOF || c == quote {
			b.Write(z.in.Shift())
			if !atEOF {
				z.in.Move(1)
				z.in.Skip() // drop the closing quote
			}
			break
		}
		if c == '\\' {
			// flush everything up to (not including) the backslash,
			// then skip the backslash itself and keep the escaped
			// character as literal text (\c keeps c).
			b.Write(z.in.Shift())
			z.in.Move(1)
			z.in.Skip()
			if z.in.Pos() < z.in.Len() {
				z.in.Move(1)
				b.Write(z.in.Shift())
			}
			continue
		}
		z.in.Move(1)
	}
	return Token{Type: StringToken, Data: b.String(), Loc: loc.Loc{Start: start}}
}

// readHash consumes '#' plus an identifier-like name body.
func (z *Tokenizer) readHash(start int) Token {
	z.in.Move(1)
	z.in.Skip() // drop '#'
	for isIdentChar(z.in.Peek(0)) {
		z.in.Move(1)
	}
	name := string(z.in.Shift())
	return Token{Type: HashToken, Data: name, Loc: loc.Loc{Start: start}}
}

func (z *Tokenizer) readAtKeyword(start int) Token {
	z.in.Move(1)
	z.in.Skip() // drop '@'
	for isIdentChar(z.in.Peek(0)) {
		z.in.Move(1)
	}
	name := string(z.in.Shift())
	return Token{Type: AtKeywordToken, Data: name, Loc: loc.Loc{Start: start}}
}

// readIdentLike reads [A-Za-z_-][A-Za-z0-9_-]* and, if immediately
// followed by '(', reclassifies as a Function token.
func (z *Tokenizer) readIdentLike(start int) Token {
	for isIdentChar(z.in.Peek(0)) {
		z.in.Move(1)
	}
	name := string(z.in.Shift())
	if z.in.Peek(0) == '(' {
		z.in.Move(1)
		z.in.Skip()
		return Token{Type: FunctionToken, Data: name, Loc: loc.Loc{Start: start}}
	}
	return Token{Type: IdentToken, Data: name, Loc: loc.Loc{Start: start}}
}

// readNumeric reads a number, optionally followed by '%' (Percentage)
// or an identifier unit (Dimension); leading '-', a decimal point, and
// an optional exponent are all accepted.
func (z *Tokenizer) readNumeric(start int) Token {
	if z.in.Peek(0) == '-' {
		z.in.Move(1)
	}
	for isDigit(z.in.Peek(0)) {
		z.in.Move(1)
	}
	if z.in.Peek(0) == '.' && isDigit(z.in.Peek(1)) {
		z.in.Move(1)
		for isDigit(z.in.Peek(0)) {
			z.in.Move(1)
		}
	}
	if (z.in.Peek(0) == 'e' || z.in.Peek(0) == 'E') &&
		(isDigit(z.in.Peek(1)) || ((z.in.Peek(1) == '+' || z.in.Peek(1) == '-') && isDigit(z.in.Peek(2)))) {
		z.in.Move(1)
		if z.in.Peek(0) == '+' || z.in.Peek(0) == '-' {
			z.in.Move(1)
		}
		for isDigit(z.in.Peek(0)) {
			z.in.Move(1)
		}
	}
	numText := string(z.in.Shift())
	num, _ := strconv.ParseFloat(numText, 64)

	if z.in.Peek(0) == '%' {
		z.in.Move(1)
		z.in.Skip()
		return Token{Type: PercentageToken, Num: num, Loc: loc.Loc{Start: start}}
	}
	if isIdentStart(z.in.Peek(0)) {
		for isIdentChar(z.in.Peek(0)) {
			z.in.Move(1)
		}
		unit := string(z.in.Shift())
		return Token{Type: DimensionToken, Num: num, Unit: unit, Loc: loc.Loc{Start: start}}
	}
	z.in.Skip()
	return Token{Type: NumberToken, Num: num, Loc: loc.Loc{Start: start}}
}
