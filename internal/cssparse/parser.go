package cssparse

import (
	"strconv"
	"strings"
	"time"

	"github.com/kbrowse/kbrowse/internal/csstok"
	"github.com/kbrowse/kbrowse/internal/handler"
)

const parserDeadline = 1500 * time.Millisecond

func maxSteps(numTokens int) int {
	n := 5 * numTokens
	if n < 100000 {
		n = 100000
	}
	if n > 500000 {
		n = 500000
	}
	return n
}

type parser struct {
	toks     []csstok.Token
	pos      int
	h        *handler.Handler
	steps    int
	maxSteps int
	deadline time.Time
}

// Parse reads src as a CSS stylesheet. Never fails: on a malformed rule
// it recovers by skipping to the next ';' or '}' and keeps going,
// returning a best-effort Stylesheet.
func Parse(src []byte, h *handler.Handler) *Stylesheet {
	toks := csstok.New(src, h).Tokens()
	p := &parser{
		toks:     toks,
		h:        h,
		maxSteps: maxSteps(len(toks)),
		deadline: time.Now().Add(parserDeadline),
	}
	sheet := &Stylesheet{}
	for !p.atEnd() {
		if p.bounded() {
			break
		}
		p.skipWhitespace()
		if p.atEnd() {
			break
		}
		if p.peek().Type == csstok.AtKeywordToken {
			sheet.Rules = append(sheet.Rules, p.parseAtRule()...)
			continue
		}
		if rule, ok := p.parseQualifiedRule(); ok {
			sheet.Rules = append(sheet.Rules, rule)
		}
	}
	return sheet
}

func (p *parser) bounded() bool {
	p.steps++
	if p.steps > p.maxSteps {
		return true
	}
	if p.steps%4096 == 0 && time.Now().After(p.deadline) {
		return true
	}
	return false
}

func (p *parser) atEnd() bool {
	return p.pos >= len(p.toks) || p.toks[p.pos].Type == csstok.EOFToken
}

func (p *parser) peek() csstok.Token {
	if p.pos >= len(p.toks) {
		return csstok.Token{Type: csstok.EOFToken}
	}
	return p.toks[p.pos]
}

func (p *parser) peekAt(off int) csstok.Token {
	if p.pos+off >= len(p.toks) {
		return csstok.Token{Type: csstok.EOFToken}
	}
	return p.toks[p.pos+off]
}

func (p *parser) advance() csstok.Token {
	tok := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return tok
}

func (p *parser) skipWhitespace() {
	for p.peek().Type == csstok.WhitespaceToken {
		p.advance()
	}
}

// recoverToDeclarationEnd implements the declaration-error recovery policy: skip
// to the next top-level ';' or '}' (not nested inside parens/braces).
func (p *parser) recoverToDeclarationEnd() {
	depth := 0
	for !p.atEnd() {
		switch p.peek().Type {
		case csstok.LeftParenToken, csstok.LeftBraceToken, csstok.LeftBracketToken:
			depth++
		case csstok.RightParenToken, csstok.RightBracketToken:
			depth--
		case csstok.SemicolonToken:
			if depth <= 0 {
				p.advance()
				return
			}
		case csstok.RightBraceToken:
			if depth <= 0 {
				return // leave '}' for the caller to consume
			}
			depth--
		}
		p.advance()
	}
}

// parseAtRule reads an at-rule prelude and, if followed by a block,
// its nested rules, tagged with Rule.AtRule but never evaluated.
// CSS conditional rules (@media, @import, ...) are kept as opaque
// parsed structure rather than acted on, mirroring how esbuild's CSS
// parser carries every at-rule even when a given pass ignores most of
// them.
func (p *parser) parseAtRule() []Rule {
	name := p.advance().Data // consumes the AtKeywordToken
	for !p.atEnd() && p.peek().Type != csstok.LeftBraceToken && p.peek().Type != csstok.SemicolonToken {
		p.advance()
	}
	if p.atEnd() {
		return nil
	}
	if p.peek().Type == csstok.SemicolonToken {
		p.advance()
		return []Rule{{AtRule: name}}
	}
	p.advance() // consume '{'
	var nested []Rule
	for !p.atEnd() && p.peek().Type != csstok.RightBraceToken {
		if p.bounded() {
			break
		}
		p.skipWhitespace()
		if p.atEnd() || p.peek().Type == csstok.RightBraceToken {
			break
		}
		if p.peek().Type == csstok.AtKeywordToken {
			nested = append(nested, p.parseAtRule()...)
			continue
		}
		if rule, ok := p.parseQualifiedRule(); ok {
			nested = append(nested, rule)
		}
	}
	if !p.atEnd() {
		p.advance() // consume '}'
	}
	for i := range nested {
		nested[i].AtRule = name
	}
	if len(nested) == 0 {
		return []Rule{{AtRule: name}}
	}
	return nested
}

// parseQualifiedRule reads `selectors { declarations }`.
func (p *parser) parseQualifiedRule() (Rule, bool) {
	selectors, ok := p.parseSelectorList()
	if !ok || p.atEnd() || p.peek().Type != csstok.LeftBraceToken {
		p.recoverToDeclarationEnd()
		if !p.atEnd() && p.peek().Type == csstok.RightBraceToken {
			p.advance()
		}
		return Rule{}, false
	}
	p.advance() // consume '{'
	decls := p.parseDeclarationBlock()
	return Rule{Selectors: selectors, Declarations: decls}, len(selectors) > 0
}

func (p *parser) parseSelectorList() ([]Selector, bool) {
	var out []Selector
	for {
		p.skipWhitespace()
		sel, ok := p.parseSelector()
		if !ok {
			return out, len(out) > 0
		}
		out = append(out, sel)
		p.skipWhitespace()
		if p.peek().Type == csstok.CommaToken {
			p.advance()
			continue
		}
		return out, true
	}
}

// parseSelector reads `simple ( combinator simple )*`: whitespace
// between two simple selectors is itself the descendant combinator
// unless an explicit '>'/'+'/'~' delimiter is present.
func (p *parser) parseSelector() (Selector, bool) {
	var sel Selector
	first := true
	comb := NoCombinator
	for {
		sawSpace := false
		for p.peek().Type == csstok.WhitespaceToken {
			sawSpace = true
			p.advance()
		}
		if tok := p.peek(); tok.Type == csstok.DelimToken && (tok.Data == ">" || tok.Data == "+" || tok.Data == "~") {
			switch tok.Data {
			case ">":
				comb = Child
			case "+":
				comb = AdjacentSibling
			case "~":
				comb = GeneralSibling
			}
			p.advance()
			for p.peek().Type == csstok.WhitespaceToken {
				p.advance()
			}
		} else if !first && sawSpace {
			comb = Descendant
		}

		simple, ok := p.parseSimpleSelector()
		if !ok {
			break
		}
		partComb := comb
		if first {
			partComb = NoCombinator
		}
		sel.Parts = append(sel.Parts, selectorPart{Simple: simple, Combinator: partComb})
		first = false
		comb = NoCombinator
	}
	return sel, len(sel.Parts) > 0
}

func (p *parser) parseSimpleSelector() (SimpleSelector, bool) {
	var s SimpleSelector
	switch {
	case p.peek().Type == csstok.DelimToken && p.peek().Data == "*":
		s.Tag = "*"
		p.advance()
	case p.peek().Type == csstok.IdentToken:
		s.Tag = strings.ToLower(p.advance().Data)
	}
loop:
	for {
		switch p.peek().Type {
		case csstok.HashToken:
			s.ID = p.advance().Data
		case csstok.DelimToken:
			if p.peek().Data == "." && p.peekAt(1).Type == csstok.IdentToken {
				p.advance()
				s.Classes = append(s.Classes, p.advance().Data)
				continue
			}
			break loop
		case csstok.LeftBracketToken:
			attr, ok := p.parseAttrSelector()
			if !ok {
				break loop
			}
			s.Attrs = append(s.Attrs, attr)
		case csstok.ColonToken:
			p.advance()
			if p.peek().Type == csstok.ColonToken {
				p.advance() // tolerate '::' pseudo-elements as single colon
			}
			if p.peek().Type == csstok.IdentToken {
				s.Pseudos = append(s.Pseudos, strings.ToLower(p.advance().Data))
			} else if p.peek().Type == csstok.FunctionToken {
				// :not(...) and similar are unsupported pseudo
				// list; skip the argument list and drop the pseudo.
				p.advance()
				p.skipBalancedParens()
			}
		default:
			break loop
		}
	}
	return s, s.Valid()
}

func (p *parser) parseAttrSelector() (AttrSelector, bool) {
	p.advance() // '['
	p.skipWhitespace()
	if p.peek().Type != csstok.IdentToken {
		p.skipToMatching(csstok.RightBracketToken)
		return AttrSelector{}, false
	}
	attr := AttrSelector{Name: p.advance().Data, CaseSensitive: true}
	p.skipWhitespace()
	kind, ok := p.parseAttrOperator()
	if ok {
		attr.Kind = kind
		p.skipWhitespace()
		switch p.peek().Type {
		case csstok.StringToken, csstok.IdentToken:
			attr.Value = p.advance().Data
		}
		p.skipWhitespace()
		if p.peek().Type == csstok.IdentToken && strings.EqualFold(p.peek().Data, "i") {
			attr.CaseSensitive = false
			p.advance()
			p.skipWhitespace()
		}
	}
	if p.peek().Type == csstok.RightBracketToken {
		p.advance()
	} else {
		p.skipToMatching(csstok.RightBracketToken)
	}
	return attr, true
}

func (p *parser) parseAttrOperator() (AttrMatchKind, bool) {
	if p.peek().Type == csstok.DelimToken && p.peek().Data == "=" {
		p.advance()
		return AttrExact, true
	}
	if p.peek().Type == csstok.DelimToken {
		prefix := p.peek().Data
		var kind AttrMatchKind
		switch prefix {
		case "^":
			kind = AttrPrefix
		case "$":
			kind = AttrSuffix
		case "*":
			kind = AttrContains
		case "~":
			kind = AttrWord
		case "|":
			kind = AttrHyphen
		default:
			return 0, false
		}
		if p.peekAt(1).Type == csstok.DelimToken && p.peekAt(1).Data == "=" {
			p.advance()
			p.advance()
			return kind, true
		}
	}
	return 0, false
}

func (p *parser) skipToMatching(end csstok.TokenType) {
	for !p.atEnd() && p.peek().Type != end && p.peek().Type != csstok.RightBraceToken {
		p.advance()
	}
	if p.peek().Type == end {
		p.advance()
	}
}

func (p *parser) skipBalancedParens() {
	depth := 1
	for !p.atEnd() && depth > 0 {
		switch p.peek().Type {
		case csstok.LeftParenToken, csstok.FunctionToken:
			depth++
		case csstok.RightParenToken:
			depth--
		}
		p.advance()
	}
}

// parseDeclarationBlock reads declarations until the matching '}',
// recovering from malformed declarations by skipping to the next
// ';' or the closing brace.
func (p *parser) parseDeclarationBlock() []Declaration {
	var decls []Declaration
	for !p.atEnd() && p.peek().Type != csstok.RightBraceToken {
		if p.bounded() {
			break
		}
		p.skipWhitespace()
		if p.atEnd() || p.peek().Type == csstok.RightBraceToken {
			break
		}
		if p.peek().Type == csstok.SemicolonToken {
			p.advance()
			continue
		}
		decl, ok := p.parseDeclaration()
		if ok {
			decls = append(decls, decl)
		}
		if !p.atEnd() && p.peek().Type == csstok.SemicolonToken {
			p.advance()
		}
	}
	if !p.atEnd() {
		p.advance() // consume '}'
	}
	return decls
}

func (p *parser) parseDeclaration() (Declaration, bool) {
	if p.peek().Type != csstok.IdentToken {
		p.recoverToDeclarationEnd()
		return Declaration{}, false
	}
	property := strings.ToLower(p.advance().Data)
	p.skipWhitespace()
	if p.peek().Type != csstok.ColonToken {
		p.recoverToDeclarationEnd()
		return Declaration{}, false
	}
	p.advance()
	p.skipWhitespace()

	var values []CSSValue
	important := false
	for !p.atEnd() && p.peek().Type != csstok.SemicolonToken && p.peek().Type != csstok.RightBraceToken {
		if p.peek().Type == csstok.DelimToken && p.peek().Data == "!" {
			save := p.pos
			p.advance()
			p.skipWhitespace()
			if p.peek().Type == csstok.IdentToken && strings.EqualFold(p.peek().Data, "important") {
				p.advance()
				important = true
				p.skipWhitespace()
				continue
			}
			p.pos = save
		}
		val, ok := p.parseValueComponent()
		if !ok {
			p.advance()
			continue
		}
		values = append(values, val)
		p.skipWhitespace()
	}
	if len(values) == 0 {
		return Declaration{}, false // `prop: ;` has no value to apply
	}
	return Declaration{Property: property, Values: values, Important: important}, true
}

func (p *parser) parseValueComponent() (CSSValue, bool) {
	tok := p.peek()
	switch tok.Type {
	case csstok.IdentToken:
		p.advance()
		return CSSValue{Kind: KeywordValue, Str: tok.Data}, true
	case csstok.HashToken:
		p.advance()
		return CSSValue{Kind: ColorValue, Str: tok.Data}, true
	case csstok.StringToken:
		p.advance()
		return CSSValue{Kind: StringValue, Str: tok.Data}, true
	case csstok.NumberToken:
		p.advance()
		return CSSValue{Kind: NumberValue, Num: tok.Num}, true
	case csstok.PercentageToken:
		p.advance()
		return CSSValue{Kind: PercentageValue, Num: tok.Num}, true
	case csstok.DimensionToken:
		p.advance()
		unit := strings.ToLower(tok.Unit)
		if lengthUnits[unit] {
			return CSSValue{Kind: LengthValue, Num: tok.Num, Unit: unit}, true
		}
		return CSSValue{Kind: KeywordValue, Str: formatDimensionKeyword(tok.Num, tok.Unit)}, true
	case csstok.FunctionToken:
		return p.parseFunction(tok.Data)
	case csstok.DelimToken:
		// a bare delimiter (e.g. a stray comma-joining '/') is not a
		// value component on its own; let the caller skip it.
		return CSSValue{}, false
	default:
		return CSSValue{}, false
	}
}

// parseFunction handles `name(...)`. var() is resolved at cascade
// time; every other function is surfaced as the opaque keyword
// "name(...)".
func (p *parser) parseFunction(name string) (CSSValue, bool) {
	p.advance() // consumes the FunctionToken (tokenizer already ate '(')
	if strings.EqualFold(name, "var") {
		return p.parseVarFunction()
	}
	p.skipBalancedParens()
	return CSSValue{Kind: KeywordValue, Str: name + "(...)"}, true
}

func (p *parser) parseVarFunction() (CSSValue, bool) {
	p.skipWhitespace()
	varName := ""
	if p.peek().Type == csstok.IdentToken {
		varName = p.advance().Data
	}
	p.skipWhitespace()
	var fallback []CSSValue
	if p.peek().Type == csstok.CommaToken {
		p.advance()
		p.skipWhitespace()
		for !p.atEnd() && p.peek().Type != csstok.RightParenToken {
			val, ok := p.parseValueComponent()
			if !ok {
				p.advance()
				continue
			}
			fallback = append(fallback, val)
			p.skipWhitespace()
		}
	} else {
		// no fallback: consume to matching ')'
		for !p.atEnd() && p.peek().Type != csstok.RightParenToken {
			p.advance()
		}
	}
	if p.peek().Type == csstok.RightParenToken {
		p.advance()
	}
	return CSSValue{Kind: VarValue, VarName: varName, VarFallback: fallback}, true
}

func formatDimensionKeyword(num float64, unit string) string {
	return strconv.FormatFloat(num, 'g', -1, 64) + unit
}
