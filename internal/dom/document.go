package dom

// Document wraps the root Document node with convenience accessors for
// the well-known html/head/body children the tree builder guarantees
// are unique.
type Document struct {
	Root *Node // Type == DocumentNode
}

func NewDocument() *Document {
	return &Document{Root: &Node{Type: DocumentNode}}
}

// Html returns the document's single <html> child, or nil.
func (d *Document) Html() *Node {
	for c := d.Root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == ElementNode && c.Data == "html" {
			return c
		}
	}
	return nil
}

func (d *Document) child(tag string) *Node {
	html := d.Html()
	if html == nil {
		return nil
	}
	for c := html.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == ElementNode && c.Data == tag {
			return c
		}
	}
	return nil
}

func (d *Document) Head() *Node { return d.child("head") }
func (d *Document) Body() *Node { return d.child("body") }

// GetElementByID does a DOM-order depth-first search; the first match
// in source order wins.
func (d *Document) GetElementByID(id string) *Node {
	var found *Node
	Walk(d.Root, func(n *Node) {
		if found != nil {
			return
		}
		if n.Type == ElementNode && n.ID() == id {
			found = n
		}
	})
	return found
}

func (d *Document) GetElementsByTagName(tag string) []*Node {
	var out []*Node
	Walk(d.Root, func(n *Node) {
		if n.Type == ElementNode && (tag == "*" || n.Data == tag) {
			out = append(out, n)
		}
	})
	return out
}

func (d *Document) GetElementsByClassName(class string) []*Node {
	var out []*Node
	Walk(d.Root, func(n *Node) {
		if n.Type == ElementNode && n.HasClass(class) {
			out = append(out, n)
		}
	})
	return out
}
