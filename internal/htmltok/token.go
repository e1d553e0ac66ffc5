// Package htmltok implements the HTML tokenizer: a finite-state
// machine over a character stream producing a finite token sequence
// that always ends in EOF.
//
// Tokens carry a loc.Loc span into the raw input, and diagnostics are
// routed through a handler.Handler instead of returned as Go errors.
// The state set is a pragmatic WHATWG subset; malformed input degrades
// to a best-effort token stream rather than failing.
package htmltok

import (
	"strconv"
	"strings"
	"time"

	"github.com/kbrowse/kbrowse/internal/handler"
	"github.com/kbrowse/kbrowse/internal/loc"
	"golang.org/x/net/html/atom"
)

type TokenType uint8

const (
	EOFToken TokenType = iota
	TextToken
	StartTagToken
	EndTagToken
	CommentToken
	DoctypeToken
)

func (t TokenType) String() string {
	switch t {
	case EOFToken:
		return "EOF"
	case TextToken:
		return "Text"
	case StartTagToken:
		return "StartTag"
	case EndTagToken:
		return "EndTag"
	case CommentToken:
		return "Comment"
	case DoctypeToken:
		return "Doctype"
	}
	return "Invalid(" + strconv.Itoa(int(t)) + ")"
}

// Attribute is a start-tag attribute, name already lowercased.
type Attribute struct {
	Key string
	Val string
	Loc loc.Loc
}

type Token struct {
	Type         TokenType
	DataAtom     atom.Atom
	Data         string // tag name / text / comment text / doctype name
	Attr         []Attribute
	SelfClosing  bool
	PublicID     string
	SystemID     string
	Loc          loc.Loc
}

func (t Token) String() string {
	switch t.Type {
	case TextToken:
		return t.Data
	case StartTagToken:
		return "<" + t.Data + ">"
	case EndTagToken:
		return "</" + t.Data + ">"
	case CommentToken:
		return "<!--" + t.Data + "-->"
	case DoctypeToken:
		return "<!DOCTYPE " + t.Data + ">"
	}
	return "EOF"
}

// work bound: max(200000, 5*|input|) state-machine steps.
func maxSteps(inputLen int) int {
	n := 5 * inputLen
	if n < 200000 {
		n = 200000
	}
	return n
}

const tokenizerDeadline = 2 * time.Second

// rawTextTags never interpret markup in their content; it is read
// verbatim up to the matching end tag (script/style/textarea/title).
var rawTextTags = map[string]bool{
	"script": true, "style": true, "textarea": true, "title": true,
}

type Tokenizer struct {
	src []byte
	pos int

	h        *handler.Handler
	steps    int
	maxSteps int
	deadline time.Time

	rawTag string // lowercased tag name that must close the next raw-text span

	// pending character buffer: consecutive character emissions
	// coalesce into a single TextToken.
	textStart int
	textBuf   strings.Builder

	done bool
}

func New(src []byte, h *handler.Handler) *Tokenizer {
	return &Tokenizer{
		src:      src,
		h:        h,
		maxSteps: maxSteps(len(src)),
		deadline: time.Now().Add(tokenizerDeadline),
	}
}

// Tokens consumes the entire stream and returns the full token list,
// the normal way the tree builder drives the tokenizer.
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

func (z *Tokenizer) eof() bool { return z.pos >= len(z.src) }

func (z *Tokenizer) peek() byte {
	if z.eof() {
		return 0
	}
	return z.src[z.pos]
}

func (z *Tokenizer) peekAt(off int) byte {
	if z.pos+off >= len(z.src) {
		return 0
	}
	return z.src[z.pos+off]
}

func (z *Tokenizer) advance() byte {
	c := z.peek()
	z.pos++
	return c
}

func (z *Tokenizer) hasPrefixFold(s string) bool {
	if z.pos+len(s) > len(z.src) {
		return false
	}
	return strings.EqualFold(string(z.src[z.pos:z.pos+len(s)]), s)
}

// Next returns the next token. Never fails: malformed input degrades to
// a best-effort token, and the work bound guarantees termination by
// flushing whatever text has been buffered and emitting EOF.
func (z *Tokenizer) Next() Token {
	if z.done {
		return Token{Type: EOFToken, Loc: loc.Loc{Start: z.pos}}
	}
	z.textBuf.Reset()
	z.textStart = z.pos
	for {
		if z.eof() {
			return z.flushOrEOF()
		}
		if z.bounded() {
			z.h.AppendWarning(loc.NewError(loc.ERROR_RUNAWAY_TOKENIZER, loc.Range{Loc: loc.Loc{Start: z.pos}}, "tokenizer exceeded its step/time bound; truncating"))
			z.done = true
			return z.flushOrEOF()
		}
		if z.rawTag != "" {
			if tok, ok := z.tryRawTextEnd(); ok {
				return tok
			}
			z.textBuf.WriteByte(z.advance())
			continue
		}
		if z.peek() == '<' {
			if z.textBuf.Len() > 0 {
				return z.emitText()
			}
			if tok, ok := z.tryMarkup(); ok {
				return tok
			}
			// '<' that didn't open recognizable markup: literal text.
			z.textBuf.WriteByte(z.advance())
			continue
		}
		z.textBuf.WriteByte(z.advance())
	}
}

func (z *Tokenizer) flushOrEOF() Token {
	if z.textBuf.Len() > 0 {
		return z.emitText()
	}
	z.done = true
	return Token{Type: EOFToken, Loc: loc.Loc{Start: z.pos}}
}

func (z *Tokenizer) emitText() Token {
	text := decodeCharacterReferences(z.textBuf.String(), z.h, z.textStart)
	return Token{Type: TextToken, Data: text, Loc: loc.Loc{Start: z.textStart}}
}

// tryRawTextEnd checks for the matching "</tag" close
// (case-insensitive) while inside a raw-text element's content.
func (z *Tokenizer) tryRawTextEnd() (Token, bool) {
	if z.peek() != '<' || z.peekAt(1) != '/' {
		return Token{}, false
	}
	save := z.pos
	z.pos += 2
	start := z.pos
	for !z.eof() && isTagNameChar(z.peek()) {
		z.pos++
	}
	name := strings.ToLower(string(z.src[start:z.pos]))
	if name != z.rawTag {
		z.pos = save
		return Token{}, false
	}
	// consume to '>' to match the close tag fully.
	for !z.eof() && z.peek() != '>' {
		z.pos++
	}
	if !z.eof() {
		z.pos++
	}
	if z.textBuf.Len() > 0 {
		z.pos = save // replay: emit buffered text first, then re-consume the end tag next call
		return z.emitText(), true
	}
	z.rawTag = ""
	return Token{Type: EndTagToken, Data: name, DataAtom: atom.Lookup([]byte(name)), Loc: loc.Loc{Start: save}}, true
}

func isTagNameChar(c byte) bool {
	return c != 0 && c != '>' && c != '/' && c != ' ' && c != '\t' && c != '\n' && c != '\f' && c != '\r'
}

// tryMarkup dispatches on what follows '<': a start tag, end tag,
// comment, doctype, or markup declaration. Returns ok=false to fall
// back to treating '<' as a literal character.
func (z *Tokenizer) tryMarkup() (Token, bool) {
	switch {
	case z.peekAt(1) == '!':
		return z.readMarkupDeclaration()
	case z.peekAt(1) == '/':
		return z.readEndTag()
	case isASCIIAlpha(z.peekAt(1)):
		return z.readStartTag()
	case z.peekAt(1) == '?':
		return z.readBogusComment() // processing instructions treated as bogus comments
	default:
		return Token{}, false
	}
}

func isASCIIAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func (z *Tokenizer) readMarkupDeclaration() (Token, bool) {
	start := z.pos
	if z.hasPrefixFold("<!--") {
		z.pos += 4
		return z.readComment(start)
	}
	if z.hasPrefixFold("<!doctype") {
		z.pos += len("<!doctype")
		return z.readDoctype(start)
	}
	if z.hasPrefixFold("<![cdata[") {
		z.pos += len("<![cdata[")
		return z.readCDATA(start)
	}
	z.pos += 2 // "<!"
	return z.readBogusComment()
}

func (z *Tokenizer) readComment(start int) (Token, bool) {
	contentStart := z.pos
	for {
		if z.eof() {
			z.h.AppendWarning(loc.NewError(loc.WARNING_UNTERMINATED_COMMENT, loc.Range{Loc: loc.Loc{Start: start}}, "unterminated comment"))
			return Token{Type: CommentToken, Data: string(z.src[contentStart:z.pos]), Loc: loc.Loc{Start: start}}, true
		}
		if z.hasPrefixFold("-->") {
			data := string(z.src[contentStart:z.pos])
			z.pos += 3
			return Token{Type: CommentToken, Data: data, Loc: loc.Loc{Start: start}}, true
		}
		z.pos++
	}
}

func (z *Tokenizer) readBogusComment() (Token, bool) {
	start := z.pos
	contentStart := start
	for !z.eof() && z.peek() != '>' {
		z.pos++
	}
	data := string(z.src[contentStart:z.pos])
	if !z.eof() {
		z.pos++
	}
	return Token{Type: CommentToken, Data: data, Loc: loc.Loc{Start: start}}, true
}

func (z *Tokenizer) readCDATA(start int) (Token, bool) {
	contentStart := z.pos
	for !z.eof() && !z.hasPrefixFold("]]>") {
		z.pos++
	}
	data := string(z.src[contentStart:z.pos])
	if z.hasPrefixFold("]]>") {
		z.pos += 3
	}
	// CDATA sections are only meaningful in foreign (SVG/MathML)
	// content; outside it they're treated as bogus comments.
	return Token{Type: CommentToken, Data: " [CDATA[" + data + "]] ", Loc: loc.Loc{Start: start}}, true
}

func (z *Tokenizer) readDoctype(start int) (Token, bool) {
	for !z.eof() && (z.peek() == ' ' || z.peek() == '\t' || z.peek() == '\n') {
		z.pos++
	}
	nameStart := z.pos
	for !z.eof() && z.peek() != '>' && z.peek() != ' ' && z.peek() != '\t' && z.peek() != '\n' {
		z.pos++
	}
	name := string(z.src[nameStart:z.pos])
	tok := Token{Type: DoctypeToken, Data: strings.ToLower(name), Loc: loc.Loc{Start: start}}
	for !z.eof() && z.peek() != '>' {
		z.pos++
	}
	if !z.eof() {
		z.pos++
	}
	return tok, true
}

func (z *Tokenizer) readEndTag() (Token, bool) {
	start := z.pos
	z.pos += 2 // "</"
	nameStart := z.pos
	for !z.eof() && isTagNameChar(z.peek()) {
		z.pos++
	}
	name := strings.ToLower(string(z.src[nameStart:z.pos]))
	for !z.eof() && z.peek() != '>' {
		z.pos++
	}
	if !z.eof() {
		z.pos++
	}
	if name == "" {
		return Token{}, false
	}
	return Token{Type: EndTagToken, Data: name, DataAtom: atom.Lookup([]byte(name)), Loc: loc.Loc{Start: start}}, true
}

func (z *Tokenizer) readStartTag() (Token, bool) {
	start := z.pos
	z.pos++ // '<'
	nameStart := z.pos
	for !z.eof() && isTagNameChar(z.peek()) {
		z.pos++
	}
	name := strings.ToLower(string(z.src[nameStart:z.pos]))
	if name == "" {
		return Token{}, false
	}
	attrs := z.readAttributes()
	selfClosing := false
	z.skipWhitespace()
	if z.peek() == '/' {
		selfClosing = true
		z.pos++
	}
	if z.peek() == '>' {
		z.pos++
	}
	tok := Token{
		Type: StartTagToken, Data: name, DataAtom: atom.Lookup([]byte(name)),
		Attr: attrs, SelfClosing: selfClosing, Loc: loc.Loc{Start: start},
	}
	if !tok.SelfClosing && !isVoidElement(name) && rawTextTags[name] {
		z.rawTag = name
	}
	return tok, true
}

func isVoidElement(name string) bool {
	switch name {
	case "area", "base", "br", "col", "embed", "hr", "img", "input",
		"link", "meta", "param", "source", "track", "wbr":
		return true
	}
	return false
}

func (z *Tokenizer) skipWhitespace() {
	for !z.eof() {
		switch z.peek() {
		case ' ', '\t', '\n', '\f', '\r':
			z.pos++
		default:
			return
		}
	}
}

// readAttributes implements BeforeAttributeName/AttributeName/
// AfterAttributeName/BeforeAttributeValue/AttributeValue{D,S,Unquoted}/
// AfterAttributeValueQuoted collapsed into one loop, since they only
// ever flow forward into each other.
func (z *Tokenizer) readAttributes() []Attribute {
	var attrs []Attribute
	for {
		z.skipWhitespace()
		if z.eof() || z.peek() == '>' || z.peek() == '/' {
			return attrs
		}
		keyStart := z.pos
		loc0 := loc.Loc{Start: z.pos}
		for !z.eof() && z.peek() != '=' && z.peek() != '>' && z.peek() != '/' &&
			z.peek() != ' ' && z.peek() != '\t' && z.peek() != '\n' && z.peek() != '\f' && z.peek() != '\r' {
			z.pos++
		}
		key := strings.ToLower(string(z.src[keyStart:z.pos]))
		if key == "" {
			// A bare '=' before an attribute name starts the
			// next attribute name rather than naming an
			// attribute "=", per standard HTML tokenizer
			// behavior.
			z.pos++
			continue
		}
		z.skipWhitespace()
		val := ""
		if z.peek() == '=' {
			z.pos++
			z.skipWhitespace()
			val = z.readAttributeValue()
		}
		attrs = append(attrs, Attribute{Key: key, Val: val, Loc: loc0})
	}
}

func (z *Tokenizer) readAttributeValue() string {
	switch z.peek() {
	case '"', '\'':
		quote := z.advance()
		start := z.pos
		for !z.eof() && z.peek() != quote {
			z.pos++
		}
		raw := string(z.src[start:z.pos])
		if !z.eof() {
			z.pos++
		}
		return decodeCharacterReferences(raw, z.h, start)
	default:
		start := z.pos
		for !z.eof() && z.peek() != ' ' && z.peek() != '\t' && z.peek() != '\n' &&
			z.peek() != '\f' && z.peek() != '>' {
			z.pos++
		}
		raw := string(z.src[start:z.pos])
		return decodeCharacterReferences(raw, z.h, start)
	}
}

// decodeCharacterReferences resolves &name; / &#NNN; / &#xHH; escapes.
// Decoded output is written directly into the caller's text/attribute
// value buffer, never through a shared return-state buffer.
func decodeCharacterReferences(s string, h *handler.Handler, baseOffset int) string {
	if !strings.ContainsRune(s, '&') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	i := 0
	for i < len(s) {
		if s[i] != '&' {
			b.WriteByte(s[i])
			i++
			continue
		}
		if repl, n := decodeOneReference(s[i:]); n > 0 {
			b.WriteString(repl)
			i += n
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

// decodeOneReference consumes a single reference starting at s[0]=='&'
// and returns its replacement text plus how many bytes of s it consumed
// (0 if s does not start a valid reference).
func decodeOneReference(s string) (string, int) {
	if len(s) < 2 {
		return "", 0
	}
	if s[1] == '#' {
		return decodeNumericReference(s)
	}
	return decodeNamedReference(s)
}

func decodeNumericReference(s string) (string, int) {
	i := 2
	hex := false
	if i < len(s) && (s[i] == 'x' || s[i] == 'X') {
		hex = true
		i++
	}
	digitsStart := i
	for i < len(s) {
		c := s[i]
		if hex {
			if !isHexDigit(c) {
				break
			}
		} else if c < '0' || c > '9' {
			break
		}
		i++
	}
	if i == digitsStart {
		return "", 0
	}
	digits := s[digitsStart:i]
	end := i
	if end < len(s) && s[end] == ';' {
		end++
	}
	base := 10
	if hex {
		base = 16
	}
	n, err := strconv.ParseInt(digits, base, 32)
	if err != nil || n == 0 || n > 0x10FFFF {
		return "�", end
	}
	return string(rune(n)), end
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func decodeNamedReference(s string) (string, int) {
	name, matchLen := longestEntityMatch(s[1:]) // s[1:] skips the leading '&'
	if matchLen == 0 {
		return "", 0
	}
	return namedEntities[name], 1 + matchLen
}
