// Package jsengine implements the JavaScript engine: a lexer, a
// Pratt parser, and a tree-walking interpreter over a restricted
// subset of JavaScript, plus a DOM binding surface.
package jsengine

import "github.com/kbrowse/kbrowse/internal/loc"

type TokenKind int

const (
	TokEOF TokenKind = iota
	TokIdentifier
	TokKeyword
	TokNumber
	TokString
	TokPunct
	TokOperator
)

// Token is one lexeme with its source position.
type Token struct {
	Kind    TokenKind
	Lexeme  string
	Literal interface{} // float64 for numbers, string for strings
	Pos     loc.Loc
}

var keywords = map[string]bool{
	"var": true, "let": true, "const": true, "function": true, "return": true,
	"if": true, "else": true, "for": true, "while": true, "break": true,
	"continue": true, "true": true, "false": true, "new": true, "typeof": true,
	"instanceof": true, "this": true, "null": true, "undefined": true,
}

// multiCharOperators is checked longest-first so `===` is not
// mis-lexed as `==` followed by `=`.
var multiCharOperators = []string{
	"===", "!==", "**=", "...",
	"==", "!=", "<=", ">=", "&&", "||", "??",
	"+=", "-=", "*=", "/=", "%=", "++", "--", "=>",
}

var punctuation = "(){}[],.;:?"
