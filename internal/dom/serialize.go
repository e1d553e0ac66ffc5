package dom

import (
	"strings"
)

// namedEntityEscapes covers the characters HTML text/attribute
// serialization must escape; kept minimal and deterministic rather than
// a full re-encoding of every named reference the tokenizer accepts.
var namedEntityEscapes = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

var attrEntityEscapes = strings.NewReplacer(
	"&", "&amp;",
	"\"", "&quot;",
)

// OuterHTML serializes n and its descendants back to an HTML string.
// It is the implementation behind the JS `outerHTML`/`innerHTML`
// bindings.
func (n *Node) OuterHTML() string {
	var b strings.Builder
	writeNode(&b, n)
	return b.String()
}

// InnerHTML serializes only n's children.
func (n *Node) InnerHTML() string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeNode(&b, c)
	}
	return b.String()
}

// SetInnerHTML is a minimal innerHTML setter used by the JS binding:
// it clears n's children and re-parses html as a fragment.
func (n *Node) SetInnerHTML(html string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	for _, c := range ParseFragment([]byte(html)) {
		n.AppendChild(c)
	}
}

func writeNode(b *strings.Builder, n *Node) {
	switch n.Type {
	case DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeNode(b, c)
		}
	case DoctypeNode:
		b.WriteString("<!DOCTYPE ")
		b.WriteString(n.Data)
		b.WriteString(">")
	case CommentNode:
		b.WriteString("<!--")
		b.WriteString(n.Data)
		b.WriteString("-->")
	case TextNode:
		b.WriteString(namedEntityEscapes.Replace(n.Data))
	case ElementNode:
		b.WriteByte('<')
		b.WriteString(n.Data)
		for _, a := range n.Attr {
			b.WriteByte(' ')
			b.WriteString(a.Key)
			b.WriteString(`="`)
			b.WriteString(attrEntityEscapes.Replace(a.Val))
			b.WriteByte('"')
		}
		if VoidElements[n.Data] {
			b.WriteString(" />")
			return
		}
		b.WriteByte('>')
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeNode(b, c)
		}
		b.WriteString("</")
		b.WriteString(n.Data)
		b.WriteByte('>')
	}
}
