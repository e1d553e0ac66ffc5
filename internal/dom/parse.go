package dom

import (
	"strings"

	"github.com/kbrowse/kbrowse/internal/handler"
	"github.com/kbrowse/kbrowse/internal/htmltok"
	"github.com/kbrowse/kbrowse/internal/loc"
)

// Parse implements the tree builder: it walks the token stream from
// htmltok and produces a well-formed DOM:
// implicit html/head/body, void elements never get children, orphaned
// end tags are ignored, unclosed elements are closed at EOF, and text
// tokens merge into adjacent text siblings.
func Parse(src []byte, h *handler.Handler) *Document {
	doc := NewDocument()
	b := &builder{doc: doc, h: h}
	tz := htmltok.New(src, h)
	for {
		tok := tz.Next()
		if tok.Type == htmltok.EOFToken {
			break
		}
		b.token(tok)
	}
	b.closeAll()
	return doc
}

// ParseFragment parses src as a sequence of sibling nodes (no implicit
// html/head/body wrapper), used by the JS `innerHTML` setter binding.
func ParseFragment(src []byte) []*Node {
	h := handler.NewHandler(string(src), "<fragment>")
	tz := htmltok.New([]byte(src), h)
	root := &Node{Type: DocumentNode}
	b := &builder{doc: &Document{Root: root}, h: h, fragment: true}
	for {
		tok := tz.Next()
		if tok.Type == htmltok.EOFToken {
			break
		}
		b.token(tok)
	}
	b.closeAll()
	var out []*Node
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

type builder struct {
	doc      *Document
	h        *handler.Handler
	stack    []*Node // open-element stack; stack[0] is the insertion root
	fragment bool

	htmlEl, headEl, bodyEl *Node
	sawBody, sawHtml       bool
}

func (b *builder) top() *Node {
	if len(b.stack) == 0 {
		return b.doc.Root
	}
	return b.stack[len(b.stack)-1]
}

func (b *builder) push(n *Node) { b.stack = append(b.stack, n) }

func (b *builder) pop() {
	if len(b.stack) > 0 {
		b.stack = b.stack[:len(b.stack)-1]
	}
}

// popUntil pops the open-element stack until (and including) the
// nearest element named tag, if any. No-op if tag is not open,
// so unmatched end tags are ignored, with a recorded warning rather
// than a silent drop.
func (b *builder) popUntil(tag string) {
	for i := len(b.stack) - 1; i >= 0; i-- {
		if b.stack[i].Data == tag {
			b.stack = b.stack[:i]
			return
		}
	}
	if b.h != nil {
		b.h.AppendWarning(loc.NewError(loc.WARNING_UNMATCHED_END_TAG, loc.Range{}, "unmatched end tag </%s>", tag))
	}
}

func (b *builder) closeAll() { b.stack = nil }

// ensureHTMLHead makes sure <html> and <head> exist before the first
// non-trivial content, implementing implicit structure creation.
func (b *builder) ensureHTMLHead() {
	if b.fragment {
		return
	}
	if b.htmlEl == nil {
		b.htmlEl = NewElement("html")
		b.doc.Root.AppendChild(b.htmlEl)
		b.sawHtml = true
	}
	if b.headEl == nil {
		b.headEl = NewElement("head")
		b.htmlEl.AppendChild(b.headEl)
	}
}

func (b *builder) ensureBody() {
	if b.fragment {
		return
	}
	b.ensureHTMLHead()
	if b.bodyEl == nil {
		b.bodyEl = NewElement("body")
		b.htmlEl.AppendChild(b.bodyEl)
		b.sawBody = true
	}
}

// headOnlyTags may legally appear inside <head>; anything else implies
// the body has started.
var headOnlyTags = map[string]bool{
	"title": true, "base": true, "link": true, "meta": true, "style": true, "script": true, "noscript": true,
}

func (b *builder) token(tok htmltok.Token) {
	switch tok.Type {
	case htmltok.DoctypeToken:
		if len(b.stack) == 0 && !b.sawHtml {
			dt := &Node{Type: DoctypeNode, Data: tok.Data, PublicID: tok.PublicID, SystemID: tok.SystemID}
			b.doc.Root.AppendChild(dt)
		}
	case htmltok.CommentToken:
		b.top().AppendChild(&Node{Type: CommentNode, Data: tok.Data})
	case htmltok.TextToken:
		b.insertText(tok.Data)
	case htmltok.StartTagToken:
		b.startTag(tok)
	case htmltok.EndTagToken:
		b.endTag(tok)
	}
}

func (b *builder) insertText(text string) {
	if !b.fragment {
		if strings.TrimSpace(text) == "" && len(b.stack) == 0 {
			return // whitespace before <html> is dropped
		}
		if b.top() == b.doc.Root {
			if strings.TrimSpace(text) == "" {
				return
			}
			b.ensureBody()
			b.push(b.bodyEl)
		}
	}
	parent := b.top()
	if last := parent.LastChild; last != nil && last.Type == TextNode {
		last.Data += text // merge into adjacent text sibling
		return
	}
	parent.AppendChild(NewText(text))
}

func (b *builder) startTag(tok htmltok.Token) {
	name := tok.Data
	switch name {
	case "html":
		if !b.fragment && b.htmlEl == nil {
			b.htmlEl = NewElement("html")
			b.applyAttrs(b.htmlEl, tok)
			b.doc.Root.AppendChild(b.htmlEl)
			b.sawHtml = true
		}
		return
	case "head":
		if !b.fragment {
			b.ensureHTMLHead()
			b.applyAttrs(b.headEl, tok)
			b.push(b.headEl)
		}
		return
	case "body":
		if !b.fragment {
			b.ensureBody()
			b.applyAttrs(b.bodyEl, tok)
			b.push(b.bodyEl)
		}
		return
	}

	if !b.fragment {
		if headOnlyTags[name] && b.top() == b.doc.Root {
			// first tag in the document is a head-only element with no
			// explicit <head>/<body> yet: it belongs in the implicit head,
			// not the implicit body.
			b.ensureHTMLHead()
			b.push(b.headEl)
		} else if !headOnlyTags[name] && b.top() != b.bodyEl {
			if b.bodyEl == nil || !b.isDescendantOfBody() {
				b.ensureBody()
				// drop back to body insertion point unless we're
				// already inside head explicitly (e.g. a <script>
				// legitimately placed in <head>).
				if b.top() == b.headEl && headOnlyTags[name] {
					// stay in head
				} else if b.top() != b.bodyEl {
					b.stack = append(b.stack[:0:0], b.bodyEl)
				}
			}
		} else if b.top() == b.doc.Root {
			b.ensureBody()
			b.push(b.bodyEl)
		}
	}

	el := NewElement(name)
	b.applyAttrs(el, tok)
	b.top().AppendChild(el)

	if VoidElements[name] {
		return // void elements never have children; the self-closing
		// flag on a non-void element is accepted but not obeyed
	}
	b.push(el)
}

func (b *builder) isDescendantOfBody() bool {
	for i := len(b.stack) - 1; i >= 0; i-- {
		if b.stack[i] == b.bodyEl {
			return true
		}
		if b.stack[i] == b.headEl {
			return false
		}
	}
	return false
}

func (b *builder) endTag(tok htmltok.Token) {
	name := tok.Data
	if VoidElements[name] {
		return // end tags on void elements are ignored
	}
	if name == "html" {
		return // html is never pushed onto the open-element stack
	}
	b.popUntil(name)
}

func (b *builder) applyAttrs(el *Node, tok htmltok.Token) {
	for _, a := range tok.Attr {
		el.SetAttribute(a.Key, a.Val)
	}
	if style, ok := el.GetAttribute("style"); ok {
		el.InlineStyleText = style
	}
}
