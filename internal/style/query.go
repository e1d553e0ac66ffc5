package style

import (
	"github.com/kbrowse/kbrowse/internal/cssparse"
	"github.com/kbrowse/kbrowse/internal/dom"
	"github.com/kbrowse/kbrowse/internal/handler"
)

// parseSelectorText parses a bare selector list (no declaration block)
// by wrapping it in an empty rule body and reusing cssparse, the
// same trick Resolve uses for inline style text.
func parseSelectorText(selectorText string, h *handler.Handler) []cssparse.Selector {
	sheet := cssparse.Parse([]byte(selectorText+"{}"), h)
	if len(sheet.Rules) == 0 {
		return nil
	}
	return sheet.Rules[0].Selectors
}

// Matches reports whether n satisfies any selector in selectorText,
// the implementation behind the JS binding's `Element.matches`.
func Matches(n *dom.Node, selectorText string, h *handler.Handler) bool {
	for _, sel := range parseSelectorText(selectorText, h) {
		if matchesSelector(sel, n) {
			return true
		}
	}
	return false
}

// QuerySelector returns the first element under root (root included)
// in document order that matches selectorText, or nil.
func QuerySelector(root *dom.Node, selectorText string, h *handler.Handler) *dom.Node {
	sels := parseSelectorText(selectorText, h)
	var found *dom.Node
	dom.Walk(root, func(n *dom.Node) {
		if found != nil || n.Type != dom.ElementNode {
			return
		}
		for _, sel := range sels {
			if matchesSelector(sel, n) {
				found = n
				return
			}
		}
	})
	return found
}

// QuerySelectorAll returns every element under root (root included) in
// document order matching selectorText.
func QuerySelectorAll(root *dom.Node, selectorText string, h *handler.Handler) []*dom.Node {
	sels := parseSelectorText(selectorText, h)
	var out []*dom.Node
	dom.Walk(root, func(n *dom.Node) {
		if n.Type != dom.ElementNode {
			return
		}
		for _, sel := range sels {
			if matchesSelector(sel, n) {
				out = append(out, n)
				return
			}
		}
	})
	return out
}

// Closest walks n and its ancestors, returning the nearest one matching
// selectorText, or nil.
func Closest(n *dom.Node, selectorText string, h *handler.Handler) *dom.Node {
	sels := parseSelectorText(selectorText, h)
	for cur := n; cur != nil; cur = cur.ParentElement() {
		if cur.Type != dom.ElementNode {
			continue
		}
		for _, sel := range sels {
			if matchesSelector(sel, cur) {
				return cur
			}
		}
	}
	return nil
}
