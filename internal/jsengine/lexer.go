package jsengine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kbrowse/kbrowse/internal/loc"
)

func locAt(pos int) loc.Loc { return loc.Loc{Start: pos} }

// Lexer scans a JS source string into Tokens. It caps total
// iterations to guarantee termination on adversarial input, the same
// discipline every tokenizer in the pipeline follows.
type Lexer struct {
	src     []byte
	pos     int
	iter    int
	maxIter int
	tokens  []Token
}

const defaultMaxIterations = 2_000_000

func NewLexer(src string) *Lexer {
	return &Lexer{src: []byte(src), maxIter: defaultMaxIterations}
}

// Tokenize runs the lexer to completion, always ending with a
// TokEOF.
func (l *Lexer) Tokenize() ([]Token, error) {
	for {
		l.iter++
		if l.iter > l.maxIter {
			return l.tokens, fmt.Errorf("jsengine: lexer exceeded iteration cap")
		}
		tok := l.next()
		l.tokens = append(l.tokens, tok)
		if tok.Kind == TokEOF {
			break
		}
	}
	return l.tokens, nil
}

func (l *Lexer) peekByte() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) byteAt(offset int) byte {
	if l.pos+offset >= len(l.src) {
		return 0
	}
	return l.src[l.pos+offset]
}

func (l *Lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.pos++
		case c == '/' && l.byteAt(1) == '/':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		case c == '/' && l.byteAt(1) == '*':
			l.pos += 2
			for l.pos < len(l.src) && !(l.src[l.pos] == '*' && l.byteAt(1) == '/') {
				l.pos++
			}
			l.pos += 2
			if l.pos > len(l.src) {
				l.pos = len(l.src)
			}
		default:
			return
		}
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (l *Lexer) next() Token {
	l.skipWhitespaceAndComments()
	start := l.pos
	if l.pos >= len(l.src) {
		return Token{Kind: TokEOF, Pos: locAt(start)}
	}
	c := l.src[l.pos]

	switch {
	case isIdentStart(c):
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		lexeme := string(l.src[start:l.pos])
		if keywords[lexeme] {
			return Token{Kind: TokKeyword, Lexeme: lexeme, Pos: locAt(start)}
		}
		return Token{Kind: TokIdentifier, Lexeme: lexeme, Pos: locAt(start)}

	case isDigit(c) || (c == '.' && isDigit(l.byteAt(1))):
		return l.scanNumber(start)

	case c == '"' || c == '\'':
		return l.scanString(start, c)

	default:
		if op, n := l.matchOperator(); n > 0 {
			l.pos += n
			return Token{Kind: TokOperator, Lexeme: op, Pos: locAt(start)}
		}
		if strings.IndexByte(punctuation, c) >= 0 {
			l.pos++
			return Token{Kind: TokPunct, Lexeme: string(c), Pos: locAt(start)}
		}
		// Unrecognized byte: skip it so the lexer always makes
		// progress and still reaches EOF.
		l.pos++
		return l.next()
	}
}

func (l *Lexer) matchOperator() (string, int) {
	rest := l.src[l.pos:]
	for _, op := range multiCharOperators {
		if len(rest) >= len(op) && string(rest[:len(op)]) == op {
			return op, len(op)
		}
	}
	switch l.peekByte() {
	case '=', '<', '>', '!', '+', '-', '*', '/', '%', '&', '|', '^', '~':
		return string(l.peekByte()), 1
	}
	return "", 0
}

func (l *Lexer) scanNumber(start int) Token {
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	if l.peekByte() == '.' && isDigit(l.byteAt(1)) {
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	if c := l.peekByte(); c == 'e' || c == 'E' {
		look := 1
		if n := l.byteAt(1); n == '+' || n == '-' {
			look = 2
		}
		if isDigit(l.byteAt(look)) {
			l.pos += look
			for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
				l.pos++
			}
		}
	}
	lexeme := string(l.src[start:l.pos])
	v, err := strconv.ParseFloat(lexeme, 64)
	if err != nil {
		v = 0
	}
	return Token{Kind: TokNumber, Lexeme: lexeme, Literal: v, Pos: locAt(start)}
}

func (l *Lexer) scanString(start int, quote byte) Token {
	l.pos++ // opening quote
	var sb strings.Builder
	for l.pos < len(l.src) && l.src[l.pos] != quote {
		c := l.src[l.pos]
		if c == '\\' && l.pos+1 < len(l.src) {
			l.pos++
			switch l.src[l.pos] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\':
				sb.WriteByte('\\')
			case '"':
				sb.WriteByte('"')
			case '\'':
				sb.WriteByte('\'')
			case '0':
				sb.WriteByte(0)
			default:
				sb.WriteByte(l.src[l.pos])
			}
			l.pos++
			continue
		}
		sb.WriteByte(c)
		l.pos++
	}
	if l.pos < len(l.src) {
		l.pos++ // closing quote
	}
	return Token{Kind: TokString, Lexeme: string(l.src[start:l.pos]), Literal: sb.String(), Pos: locAt(start)}
}
