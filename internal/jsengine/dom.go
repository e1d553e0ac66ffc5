package jsengine

import (
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/kbrowse/kbrowse/internal/dom"
	"github.com/kbrowse/kbrowse/internal/handler"
	"github.com/kbrowse/kbrowse/internal/style"
)

// boundDocument is the live DOM an interpreter's `document`/`window`
// globals are wired to. It is owned by the browser package's
// orchestrator, not a package-level singleton; each Interpreter gets
// its own, scoped to one loaded document.
type boundDocument struct {
	Doc     *dom.Document
	Handler *handler.Handler
	Focus   *dom.Node

	wrappers  map[*dom.Node]*Object
	listeners map[*dom.Node]map[string][]*Object
}

// BindDocument installs `document` and `window` into interp's global
// scope, wired to doc. Call once per load, before running any
// <script> body.
func BindDocument(interp *Interpreter, doc *dom.Document, h *handler.Handler) {
	bd := &boundDocument{
		Doc:       doc,
		Handler:   h,
		wrappers:  map[*dom.Node]*Object{},
		listeners: map[*dom.Node]map[string][]*Object{},
	}
	interp.Document = bd

	docObj := &Object{Props: map[string]interface{}{}, Class: "Document", DOMNode: doc.Root}
	winObj := &Object{Props: map[string]interface{}{}, Class: "Window"}
	winObj.Set("document", docObj)
	winObj.Set("window", winObj)

	interp.Global.bindings["document"] = &Binding{Value: docObj, Kind: "const", Initialized: true}
	interp.Global.bindings["window"] = &Binding{Value: winObj, Kind: "const", Initialized: true}
}

// wrapNode memoizes one *Object wrapper per live *dom.Node so repeated
// property reads (e.g. `el.parentNode.parentNode`) return the same
// identity, so `===` over DOM references behaves by node identity.
func (bd *boundDocument) wrapNode(n *dom.Node) *Object {
	if n == nil {
		return nil
	}
	if obj, ok := bd.wrappers[n]; ok {
		return obj
	}
	obj := &Object{Props: map[string]interface{}{}, Class: "Element", DOMNode: n}
	bd.wrappers[n] = obj
	return obj
}

func wrapOrUndefined(bd *boundDocument, n *dom.Node) interface{} {
	if n == nil {
		return Undefined{}
	}
	return bd.wrapNode(n)
}

func nodeArray(bd *boundDocument, nodes []*dom.Node) *Array {
	elems := make([]interface{}, len(nodes))
	for i, n := range nodes {
		elems[i] = bd.wrapNode(n)
	}
	return &Array{Elements: elems}
}

// jsNodeType maps the dom package's tagged variant to the standard JS
// DOM nodeType integers (ELEMENT_NODE=1, TEXT_NODE=3, COMMENT_NODE=8,
// DOCUMENT_NODE=9, DOCUMENT_TYPE_NODE=10).
func jsNodeType(t dom.NodeType) float64 {
	switch t {
	case dom.ElementNode:
		return 1
	case dom.TextNode:
		return 3
	case dom.CommentNode:
		return 8
	case dom.DocumentNode:
		return 9
	case dom.DoctypeNode:
		return 10
	}
	return 0
}

// domNodeOf extracts the live node a wrapper Object carries. Style and
// ClassList wrappers carry the owning element's node, not their own.
func domNodeOf(obj *Object) *dom.Node {
	if obj == nil || obj.DOMNode == nil {
		return nil
	}
	n, _ := obj.DOMNode.(*dom.Node)
	return n
}

// domPropertyGet implements the non-method half of the binding
// surface for elements/document/window/style/classList.
// interp.Document must be non-nil (BindDocument having been called);
// callers already guard on obj.DOMNode != nil.
func domPropertyGet(interp *Interpreter, obj *Object, key string) (interface{}, bool) {
	bd := interp.Document
	if bd == nil {
		return nil, false
	}
	n := domNodeOf(obj)
	if n == nil {
		return nil, false
	}

	switch obj.Class {
	case "Style":
		return styleGet(n, key)
	case "ClassList":
		return nil, false // ClassList exposes methods only (add/remove/contains/toggle)
	case "Window":
		if key == "document" {
			return wrapOrUndefined(bd, bd.Doc.Root), true
		}
		return nil, false
	}

	// Document and Element share most read-only node properties.
	switch key {
	case "nodeType":
		return jsNodeType(n.Type), true
	case "nodeName":
		if n.Type == dom.ElementNode {
			return strings.ToUpper(n.Data), true
		}
		if n.Type == dom.TextNode {
			return "#text", true
		}
		if n.Type == dom.CommentNode {
			return "#comment", true
		}
		if n.Type == dom.DocumentNode {
			return "#document", true
		}
		return n.Data, true
	case "tagName":
		if n.Type == dom.ElementNode {
			return strings.ToUpper(n.Data), true
		}
		return Undefined{}, true
	case "id":
		return n.ID(), true
	case "className":
		v, _ := n.GetAttribute("class")
		return v, true
	case "textContent":
		return n.TextContent(), true
	case "innerHTML":
		return n.InnerHTML(), true
	case "outerHTML":
		return n.OuterHTML(), true
	case "children":
		return nodeArray(bd, n.Children()), true
	case "childNodes":
		return nodeArray(bd, n.ChildNodes()), true
	case "firstChild":
		return wrapOrUndefined(bd, n.FirstChild), true
	case "lastChild":
		return wrapOrUndefined(bd, n.LastChild), true
	case "parentNode":
		return wrapOrUndefined(bd, n.Parent), true
	case "parentElement":
		return wrapOrUndefined(bd, n.ParentElement()), true
	case "nextSibling":
		return wrapOrUndefined(bd, n.NextSibling), true
	case "previousSibling":
		return wrapOrUndefined(bd, n.PrevSibling), true
	case "style":
		return &Object{Props: map[string]interface{}{}, Class: "Style", DOMNode: n}, true
	case "classList":
		return &Object{Props: map[string]interface{}{}, Class: "ClassList", DOMNode: n}, true
	}

	if obj.Class != "Document" {
		return nil, false
	}

	switch key {
	case "body":
		return wrapOrUndefined(bd, bd.Doc.Body()), true
	case "head":
		return wrapOrUndefined(bd, bd.Doc.Head()), true
	case "documentElement":
		return wrapOrUndefined(bd, bd.Doc.Html()), true
	case "title":
		if head := bd.Doc.Head(); head != nil {
			for c := head.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == dom.ElementNode && c.Data == "title" {
					return c.TextContent(), true
				}
			}
		}
		return "", true
	case "URL", "location":
		return "", true // needs the URL collaborator; not modeled here
	}
	return nil, false
}

// domPropertySet implements the writable half of the binding surface:
// id/className/textContent/innerHTML on elements, and arbitrary
// camelCase properties on `.style`. Returns false for anything it
// doesn't recognize so the generic Object.Set path still runs (e.g. ad
// hoc expando properties JS code attaches to a wrapper).
func domPropertySet(obj *Object, key string, value interface{}) bool {
	n := domNodeOf(obj)
	if n == nil {
		return false
	}
	if obj.Class == "Style" {
		setInlineDecl(n, strcase.ToKebab(key), toStr(value))
		return true
	}
	if obj.Class != "Element" && obj.Class != "Document" {
		return false
	}
	switch key {
	case "id":
		n.SetAttribute("id", toStr(value))
	case "className":
		n.SetAttribute("class", toStr(value))
	case "textContent":
		n.SetTextContent(toStr(value))
	case "innerHTML":
		n.SetInnerHTML(toStr(value))
	default:
		return false
	}
	return true
}

// domMethod resolves the callable half of the binding surface. The
// returned native function re-derives `this`'s node at call time
// rather than closing over n, so the same Object's methods keep
// working if the wrapper outlives a detach/reattach.
func domMethod(obj *Object, key string) (interface{}, bool) {
	switch obj.Class {
	case "ClassList":
		return classListMethod(key)
	case "Style":
		return styleMethod(key)
	}

	switch key {
	case "getAttribute":
		return nativeFn(func(_ *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			n := thisNode(this)
			if n == nil {
				return Undefined{}, nil
			}
			v, ok := n.GetAttribute(toStr(arg(args, 0)))
			if !ok {
				return nil, nil
			}
			return v, nil
		}), true
	case "setAttribute":
		return nativeFn(func(_ *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			if n := thisNode(this); n != nil {
				n.SetAttribute(toStr(arg(args, 0)), toStr(arg(args, 1)))
			}
			return Undefined{}, nil
		}), true
	case "removeAttribute":
		return nativeFn(func(_ *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			if n := thisNode(this); n != nil {
				n.RemoveAttribute(toStr(arg(args, 0)))
			}
			return Undefined{}, nil
		}), true
	case "hasAttribute":
		return nativeFn(func(_ *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			n := thisNode(this)
			return n != nil && n.HasAttribute(toStr(arg(args, 0))), nil
		}), true
	case "querySelector":
		return nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			bd := interp.Document
			n := thisNode(this)
			if bd == nil || n == nil {
				return Undefined{}, nil
			}
			return wrapOrUndefined(bd, style.QuerySelector(n, toStr(arg(args, 0)), bd.Handler)), nil
		}), true
	case "querySelectorAll":
		return nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			bd := interp.Document
			n := thisNode(this)
			if bd == nil || n == nil {
				return NewArray(), nil
			}
			return nodeArray(bd, style.QuerySelectorAll(n, toStr(arg(args, 0)), bd.Handler)), nil
		}), true
	case "matches":
		return nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			bd := interp.Document
			n := thisNode(this)
			if bd == nil || n == nil {
				return false, nil
			}
			return style.Matches(n, toStr(arg(args, 0)), bd.Handler), nil
		}), true
	case "closest":
		return nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			bd := interp.Document
			n := thisNode(this)
			if bd == nil || n == nil {
				return Undefined{}, nil
			}
			return wrapOrUndefined(bd, style.Closest(n, toStr(arg(args, 0)), bd.Handler)), nil
		}), true
	case "focus":
		return nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			if bd := interp.Document; bd != nil {
				bd.Focus = thisNode(this)
				dispatchEvent(interp, bd, bd.Focus, "focus")
			}
			return Undefined{}, nil
		}), true
	case "blur":
		return nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			if bd := interp.Document; bd != nil && bd.Focus == thisNode(this) {
				dispatchEvent(interp, bd, bd.Focus, "blur")
				bd.Focus = nil
			}
			return Undefined{}, nil
		}), true
	case "click":
		return nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			if bd := interp.Document; bd != nil {
				return Undefined{}, dispatchEvent(interp, bd, thisNode(this), "click")
			}
			return Undefined{}, nil
		}), true
	case "addEventListener":
		return nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			bd := interp.Document
			n := thisNode(this)
			fn, ok := arg(args, 1).(*Object)
			if bd == nil || n == nil || !ok {
				return Undefined{}, nil
			}
			typ := toStr(arg(args, 0))
			if bd.listeners[n] == nil {
				bd.listeners[n] = map[string][]*Object{}
			}
			bd.listeners[n][typ] = append(bd.listeners[n][typ], fn)
			return Undefined{}, nil
		}), true
	case "appendChild":
		return nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			n := thisNode(this)
			child, ok := arg(args, 0).(*Object)
			if n == nil || !ok {
				return Undefined{}, nil
			}
			if cn := domNodeOf(child); cn != nil {
				// Appending an already-attached node moves it.
				if cn.Parent != nil {
					cn.Parent.RemoveChild(cn)
				}
				n.AppendChild(cn)
			}
			return child, nil
		}), true
	case "removeChild":
		return nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			n := thisNode(this)
			child, ok := arg(args, 0).(*Object)
			if n == nil || !ok {
				return Undefined{}, nil
			}
			if cn := domNodeOf(child); cn != nil && cn.Parent == n {
				n.RemoveChild(cn)
			}
			return child, nil
		}), true
	case "insertBefore":
		return nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			n := thisNode(this)
			newChild, ok := arg(args, 0).(*Object)
			if n == nil || !ok {
				return Undefined{}, nil
			}
			var ref *dom.Node
			if refObj, ok := arg(args, 1).(*Object); ok {
				ref = domNodeOf(refObj)
			}
			if cn := domNodeOf(newChild); cn != nil {
				// Inserting an already-attached node moves it.
				if cn.Parent != nil {
					cn.Parent.RemoveChild(cn)
				}
				n.InsertBefore(cn, ref)
			}
			return newChild, nil
		}), true
	case "remove":
		return nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			n := thisNode(this)
			if n != nil && n.Parent != nil {
				n.Parent.RemoveChild(n)
			}
			return Undefined{}, nil
		}), true
	case "removeEventListener":
		return nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			bd := interp.Document
			n := thisNode(this)
			fn, ok := arg(args, 1).(*Object)
			if bd == nil || n == nil || !ok || bd.listeners[n] == nil {
				return Undefined{}, nil
			}
			typ := toStr(arg(args, 0))
			list := bd.listeners[n][typ]
			for i, l := range list {
				if l == fn {
					bd.listeners[n][typ] = append(list[:i], list[i+1:]...)
					break
				}
			}
			return Undefined{}, nil
		}), true
	}

	if obj.Class != "Document" {
		return nil, false
	}
	switch key {
	case "getElementById":
		return nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			bd := interp.Document
			if bd == nil {
				return Undefined{}, nil
			}
			return wrapOrUndefined(bd, bd.Doc.GetElementByID(toStr(arg(args, 0)))), nil
		}), true
	case "getElementsByTagName":
		return nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			bd := interp.Document
			if bd == nil {
				return NewArray(), nil
			}
			return nodeArray(bd, bd.Doc.GetElementsByTagName(toStr(arg(args, 0)))), nil
		}), true
	case "getElementsByClassName":
		return nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			bd := interp.Document
			if bd == nil {
				return NewArray(), nil
			}
			return nodeArray(bd, bd.Doc.GetElementsByClassName(toStr(arg(args, 0)))), nil
		}), true
	case "createElement":
		return nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			bd := interp.Document
			if bd == nil {
				return Undefined{}, nil
			}
			return bd.wrapNode(dom.NewElement(toStr(arg(args, 0)))), nil
		}), true
	case "createTextNode":
		return nativeFn(func(interp *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			bd := interp.Document
			if bd == nil {
				return Undefined{}, nil
			}
			return bd.wrapNode(dom.NewText(toStr(arg(args, 0)))), nil
		}), true
	}
	return nil, false
}

// thisNode recovers the receiver node from a bound method call's
// `this`, which is always the Member expression's containing Object.
func thisNode(this interface{}) *dom.Node {
	obj, ok := this.(*Object)
	if !ok {
		return nil
	}
	return domNodeOf(obj)
}

// dispatchEvent synchronously invokes every listener registered for
// typ on n, passing a minimal Event object ({type, target}). There is
// no event loop in this engine: dispatch happens inline,
// on the interpreter's own call stack.
func dispatchEvent(interp *Interpreter, bd *boundDocument, n *dom.Node, typ string) error {
	if n == nil || bd.listeners[n] == nil {
		return nil
	}
	evt := NewObject()
	evt.Set("type", typ)
	evt.Set("target", bd.wrapNode(n))
	for _, fn := range bd.listeners[n][typ] {
		if _, err := interp.callFunction(fn, bd.wrapNode(n), []interface{}{evt}); err != nil {
			return err
		}
	}
	return nil
}

// classListMethod implements Element.classList's add/remove/contains/
// toggle over the `class` attribute's space-separated token list.
func classListMethod(key string) (interface{}, bool) {
	switch key {
	case "add":
		return nativeFn(func(_ *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			n := thisNode(this)
			if n == nil {
				return Undefined{}, nil
			}
			classes := n.ClassList()
			for _, a := range args {
				c := toStr(a)
				if !containsStr(classes, c) {
					classes = append(classes, c)
				}
			}
			n.SetAttribute("class", strings.Join(classes, " "))
			return Undefined{}, nil
		}), true
	case "remove":
		return nativeFn(func(_ *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			n := thisNode(this)
			if n == nil {
				return Undefined{}, nil
			}
			remove := make(map[string]bool, len(args))
			for _, a := range args {
				remove[toStr(a)] = true
			}
			var kept []string
			for _, c := range n.ClassList() {
				if !remove[c] {
					kept = append(kept, c)
				}
			}
			n.SetAttribute("class", strings.Join(kept, " "))
			return Undefined{}, nil
		}), true
	case "contains":
		return nativeFn(func(_ *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			n := thisNode(this)
			return n != nil && n.HasClass(toStr(arg(args, 0))), nil
		}), true
	case "toggle":
		return nativeFn(func(_ *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			n := thisNode(this)
			if n == nil {
				return false, nil
			}
			c := toStr(arg(args, 0))
			if n.HasClass(c) {
				var kept []string
				for _, cls := range n.ClassList() {
					if cls != c {
						kept = append(kept, cls)
					}
				}
				n.SetAttribute("class", strings.Join(kept, " "))
				return false, nil
			}
			n.SetAttribute("class", strings.Join(append(n.ClassList(), c), " "))
			return true, nil
		}), true
	}
	return nil, false
}

func containsStr(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// styleMethod implements the small CSSOM surface (setProperty/
// getPropertyValue/removeProperty) beyond plain camelCase property
// access (domPropertyGet/Set above).
func styleMethod(key string) (interface{}, bool) {
	switch key {
	case "setProperty":
		return nativeFn(func(_ *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			if n := thisNode(this); n != nil {
				setInlineDecl(n, toStr(arg(args, 0)), toStr(arg(args, 1)))
			}
			return Undefined{}, nil
		}), true
	case "getPropertyValue":
		return nativeFn(func(_ *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			n := thisNode(this)
			if n == nil {
				return "", nil
			}
			v, _ := lookupInlineDecl(n, toStr(arg(args, 0)))
			return v, nil
		}), true
	case "removeProperty":
		return nativeFn(func(_ *Interpreter, this interface{}, args []interface{}) (interface{}, error) {
			if n := thisNode(this); n != nil {
				removeInlineDecl(n, toStr(arg(args, 0)))
			}
			return Undefined{}, nil
		}), true
	}
	return nil, false
}

func styleGet(n *dom.Node, key string) (interface{}, bool) {
	v, ok := lookupInlineDecl(n, strcase.ToKebab(key))
	if !ok {
		return "", true
	}
	return v, true
}

// styleDecl is one `property: value` pair from an element's `style`
// attribute text, the plain-text model the JS style bindings read and
// write (the style resolver reparses this same InlineStyleText with
// the full CSS value grammar at cascade time).
type styleDecl struct{ prop, value string }

func inlineDecls(n *dom.Node) []styleDecl {
	var out []styleDecl
	for _, part := range strings.Split(n.InlineStyleText, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		i := strings.IndexByte(part, ':')
		if i < 0 {
			continue
		}
		out = append(out, styleDecl{
			prop:  strings.ToLower(strings.TrimSpace(part[:i])),
			value: strings.TrimSpace(part[i+1:]),
		})
	}
	return out
}

func lookupInlineDecl(n *dom.Node, prop string) (string, bool) {
	for _, d := range inlineDecls(n) {
		if d.prop == prop {
			return d.value, true
		}
	}
	return "", false
}

func setInlineDecl(n *dom.Node, prop, value string) {
	decls := inlineDecls(n)
	for i := range decls {
		if decls[i].prop == prop {
			decls[i].value = value
			writeInlineDecls(n, decls)
			return
		}
	}
	writeInlineDecls(n, append(decls, styleDecl{prop: prop, value: value}))
}

func removeInlineDecl(n *dom.Node, prop string) {
	decls := inlineDecls(n)
	out := decls[:0]
	for _, d := range decls {
		if d.prop != prop {
			out = append(out, d)
		}
	}
	writeInlineDecls(n, out)
}

func writeInlineDecls(n *dom.Node, decls []styleDecl) {
	var b strings.Builder
	for _, d := range decls {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(d.prop)
		b.WriteString(": ")
		b.WriteString(d.value)
		b.WriteByte(';')
	}
	n.SetAttribute("style", b.String())
}
