// Package dom implements the DOM tree: a tagged-variant Node type plus
// the tree builder that consumes an HTML token stream and produces a
// well-formed document.
//
// Node shape follows golang.org/x/net/html.Node (doubly-linked
// sibling/child pointers, non-owning Parent back-reference).
package dom

import (
	"strings"

	"golang.org/x/net/html/atom"
)

// NodeType tags the DOM node variant.
type NodeType uint32

const (
	DocumentNode NodeType = iota
	ElementNode
	TextNode
	CommentNode
	DoctypeNode
)

func (t NodeType) String() string {
	switch t {
	case DocumentNode:
		return "Document"
	case ElementNode:
		return "Element"
	case TextNode:
		return "Text"
	case CommentNode:
		return "Comment"
	case DoctypeNode:
		return "Doctype"
	}
	return "Invalid"
}

// Attribute is a case-insensitively-keyed name/value pair. Key is
// already lowercased by the tokenizer.
type Attribute struct {
	Key string
	Val string
}

// Node is the tagged variant over {Document, Element, Text, Comment,
// DocumentType}. Parent/PrevSibling are non-owning back-references;
// FirstChild/LastChild/NextSibling form the owning, ordered structure.
type Node struct {
	Parent, FirstChild, LastChild, PrevSibling, NextSibling *Node

	Type     NodeType
	DataAtom atom.Atom
	Data     string // tag name for Element, text for Text/Comment, name for Doctype
	Attr     []Attribute

	PublicID, SystemID string // Doctype only

	// InlineStyleText mirrors the `style` attribute's raw text; kept in
	// sync by SetAttribute/RemoveAttribute and the JS style bindings,
	// reparsed by the style resolver at cascade time.
	InlineStyleText string
}

// NewElement builds a detached element node, as used by the
// document.createElement binding and the tree builder.
func NewElement(tag string) *Node {
	tag = strings.ToLower(tag)
	return &Node{
		Type:     ElementNode,
		DataAtom: atom.Lookup([]byte(tag)),
		Data:     tag,
		Attr:     nil,
	}
}

func NewText(text string) *Node {
	return &Node{Type: TextNode, Data: text}
}

// Attribute case-insensitive accessors. Insertion order is preserved in
// Attr but is not otherwise observable.

func (n *Node) GetAttribute(key string) (string, bool) {
	key = strings.ToLower(key)
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func (n *Node) HasAttribute(key string) bool {
	_, ok := n.GetAttribute(key)
	return ok
}

func (n *Node) SetAttribute(key, val string) {
	key = strings.ToLower(key)
	if key == "style" {
		n.InlineStyleText = val
	}
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, Attribute{Key: key, Val: val})
}

func (n *Node) RemoveAttribute(key string) {
	key = strings.ToLower(key)
	if key == "style" {
		n.InlineStyleText = ""
	}
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

func (n *Node) ID() string {
	v, _ := n.GetAttribute("id")
	return v
}

func (n *Node) ClassList() []string {
	v, ok := n.GetAttribute("class")
	if !ok {
		return nil
	}
	return strings.Fields(v)
}

func (n *Node) HasClass(class string) bool {
	for _, c := range n.ClassList() {
		if c == class {
			return true
		}
	}
	return false
}

// AppendChild attaches child as the new last child of n. child must be
// detached (nil Parent) first.
func (n *Node) AppendChild(child *Node) {
	if child.Parent != nil || child.PrevSibling != nil || child.NextSibling != nil {
		panic("dom: AppendChild called on attached child")
	}
	last := n.LastChild
	if last != nil {
		last.NextSibling = child
	} else {
		n.FirstChild = child
	}
	n.LastChild = child
	child.Parent = n
	child.PrevSibling = last
}

// InsertBefore inserts newChild immediately before oldChild, or at the
// end if oldChild is nil.
func (n *Node) InsertBefore(newChild, oldChild *Node) {
	if newChild.Parent != nil {
		panic("dom: InsertBefore called on attached child")
	}
	if oldChild == nil {
		n.AppendChild(newChild)
		return
	}
	prev := oldChild.PrevSibling
	newChild.Parent = n
	newChild.PrevSibling = prev
	newChild.NextSibling = oldChild
	oldChild.PrevSibling = newChild
	if prev != nil {
		prev.NextSibling = newChild
	} else {
		n.FirstChild = newChild
	}
}

// RemoveChild detaches child from n, relinking its siblings in one
// step so there is never a dangling back-pointer.
func (n *Node) RemoveChild(child *Node) {
	if child.Parent != n {
		panic("dom: RemoveChild called on non-child")
	}
	if child.PrevSibling != nil {
		child.PrevSibling.NextSibling = child.NextSibling
	} else {
		n.FirstChild = child.NextSibling
	}
	if child.NextSibling != nil {
		child.NextSibling.PrevSibling = child.PrevSibling
	} else {
		n.LastChild = child.PrevSibling
	}
	child.Parent = nil
	child.PrevSibling = nil
	child.NextSibling = nil
}

// Children returns the element children only (used by JS `.children`).
func (n *Node) Children() []*Node {
	var out []*Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// ChildNodes returns every child regardless of type (JS `.childNodes`).
func (n *Node) ChildNodes() []*Node {
	var out []*Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

func (n *Node) NextElementSibling() *Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == ElementNode {
			return s
		}
	}
	return nil
}

func (n *Node) PrevElementSibling() *Node {
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == ElementNode {
			return s
		}
	}
	return nil
}

// ParentElement returns Parent if it is an element, else nil (a
// Document parent does not count, matching JS `.parentElement`).
func (n *Node) ParentElement() *Node {
	if n.Parent != nil && n.Parent.Type == ElementNode {
		return n.Parent
	}
	return nil
}

// TextContent concatenates all descendant Text node data, matching JS
// `.textContent`.
func (n *Node) TextContent() string {
	var b strings.Builder
	var walk func(*Node)
	walk = func(node *Node) {
		if node.Type == TextNode {
			b.WriteString(node.Data)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// SetTextContent replaces all children of n with a single text node,
// matching JS `.textContent = "..."`.
func (n *Node) SetTextContent(text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	if text != "" {
		n.AppendChild(NewText(text))
	}
}

// VoidElements never have children; their end tags are ignored.
var VoidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// Walk performs a depth-first pre-order traversal of n and its
// descendants, calling fn on each node in source order.
func Walk(n *Node, fn func(*Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		Walk(c, fn)
	}
}

// Ancestors returns n's ancestor chain starting with its immediate
// parent, used by the style resolver's descendant/child combinators.
func (n *Node) Ancestors() []*Node {
	var out []*Node
	for p := n.Parent; p != nil; p = p.Parent {
		out = append(out, p)
	}
	return out
}
