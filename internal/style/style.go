// Package style implements the style resolver: selector matching,
// cascade, inline-style precedence, and inheritance over a DOM tree and
// a set of parsed stylesheets, producing a StyleMap.
package style

import (
	"sort"
	"strconv"
	"strings"

	"github.com/kbrowse/kbrowse/internal/cssparse"
	"github.com/kbrowse/kbrowse/internal/dom"
	"github.com/kbrowse/kbrowse/internal/handler"
)

// Length is a resolved CSS length: either a concrete unit quantity or
// one of the special Auto/None/Percent states, covering the units this
// engine actually lays out with (px-equivalent cells, %, the em/rem
// relative units, and auto/none).
type Length struct {
	Kind LengthKind
	Num  float64
	Unit string // "px", "em", "rem", "%", "" for Auto/None
}

type LengthKind uint8

const (
	LengthAuto LengthKind = iota
	LengthNone
	LengthAbsolute // px/em/rem, resolved to cells by the caller
	LengthPercent
)

func Auto() Length { return Length{Kind: LengthAuto} }
func None() Length { return Length{Kind: LengthNone} }

func (l Length) IsAuto() bool { return l.Kind == LengthAuto }
func (l Length) IsNone() bool { return l.Kind == LengthNone }

// ComputedStyle is the flat per-element resolved style record,
// covering the properties the layout and render stages actually
// consume.
type ComputedStyle struct {
	Display    string // block, inline, inline-block, flex, inline-flex, list-item, none
	Position   string

	Width, Height       Length
	MinWidth, MaxWidth  Length
	MinHeight, MaxHeight Length

	MarginTop, MarginRight, MarginBottom, MarginLeft   Length
	PaddingTop, PaddingRight, PaddingBottom, PaddingLeft Length
	BoxSizing string // content-box, border-box

	Color      string // keyword or #hex, caller resolves to a terminal color
	FontWeight string // normal, bold, or a numeric string
	FontStyle  string // normal, italic
	TextAlign  string // left, right, center, justify
	TextDecoration string
	WhiteSpace string // normal, pre, nowrap, pre-wrap, pre-line
	ListStyle  string

	BackgroundColor string

	FlexDirection  string
	FlexWrap       string
	JustifyContent string
	AlignItems     string
	FlexGrow       float64
	FlexBasis      Length
	Gap            Length

	// raw holds every declared property keyed by lowercase name, for
	// properties layout/render need that aren't promoted to a typed
	// field above (e.g. border-style, cursor).
	raw map[string]cssparse.CSSValue

	// customProps holds this element's custom properties (`--name`),
	// inherited from the parent and overridden by its own matched
	// declarations, resolved against by var() at cascade time.
	customProps map[string]cssparse.CSSValue
}

func (cs *ComputedStyle) Raw(prop string) (cssparse.CSSValue, bool) {
	v, ok := cs.raw[prop]
	return v, ok
}

// initial returns the default computed style; non-inheritable
// properties fall back to these values when no rule sets them.
func initial() ComputedStyle {
	return ComputedStyle{
		Display:         "inline",
		Position:        "static",
		Width:           Auto(),
		Height:          Auto(),
		MinWidth:        None(),
		MaxWidth:        None(),
		MinHeight:       None(),
		MaxHeight:       None(),
		MarginTop:       Length{Kind: LengthAbsolute},
		MarginRight:     Length{Kind: LengthAbsolute},
		MarginBottom:    Length{Kind: LengthAbsolute},
		MarginLeft:      Length{Kind: LengthAbsolute},
		PaddingTop:      Length{Kind: LengthAbsolute},
		PaddingRight:    Length{Kind: LengthAbsolute},
		PaddingBottom:   Length{Kind: LengthAbsolute},
		PaddingLeft:     Length{Kind: LengthAbsolute},
		BoxSizing:       "content-box",
		Color:           "inherit-root", // replaced by Resolve's root default
		FontWeight:      "normal",
		FontStyle:       "normal",
		TextAlign:       "left",
		TextDecoration:  "none",
		WhiteSpace:      "normal",
		ListStyle:       "disc",
		BackgroundColor: "transparent",
		FlexDirection:   "row",
		FlexWrap:        "nowrap",
		JustifyContent:  "flex-start",
		AlignItems:      "stretch",
		FlexGrow:        0,
		FlexBasis:       Auto(),
		Gap:             Length{Kind: LengthAbsolute},
	}
}

// specialTagDisplay coerces display for tags whose rendering differs
// from the generic inline default, kept here since the resolver is
// where `display` is first assigned.
var specialTagDisplay = map[string]string{
	"div": "block", "p": "block", "h1": "block", "h2": "block", "h3": "block",
	"h4": "block", "h5": "block", "h6": "block", "ul": "block", "ol": "block",
	"li": "list-item", "blockquote": "block", "pre": "block", "hr": "block",
	"center": "block", "table": "block", "thead": "block", "tbody": "block",
	"tfoot": "block", "tr": "block", "td": "block", "th": "block",
	"form": "block", "section": "block", "article": "block", "header": "block",
	"footer": "block", "nav": "block", "main": "block", "figure": "block",
	"input": "inline-block", "select": "inline-block", "button": "inline-block",
	"textarea": "inline-block", "img": "inline-block",
	"script": "none", "style": "none", "head": "none", "title": "none",
	"meta": "none", "link": "none", "base": "none", "noscript": "none",
}

// StyleMap holds every element's computed style, keyed by node
// identity.
type StyleMap struct {
	byNode map[*dom.Node]*ComputedStyle
}

func (m *StyleMap) Get(n *dom.Node) *ComputedStyle { return m.byNode[n] }

// matchedRule pairs a parsed selector with its originating
// declarations and cascade-ordering keys.
type matchedRule struct {
	decls      []cssparse.Declaration
	specificity cssparse.Specificity
	order       int
	important   bool
}

// Resolve walks doc, applying every stylesheet's rules plus each
// element's inline style, and returns the resulting StyleMap.
func Resolve(doc *dom.Document, sheets []*cssparse.Stylesheet, h *handler.Handler) *StyleMap {
	sm := &StyleMap{byNode: map[*dom.Node]*ComputedStyle{}}
	order := 0
	type ruleEntry struct {
		sel cssparse.Selector
		decls []cssparse.Declaration
		important bool
		order int
	}
	var rules []ruleEntry
	for _, sheet := range sheets {
		if sheet == nil {
			continue
		}
		for _, rule := range sheet.Rules {
			if rule.AtRule != "" {
				continue // conditional at-rules are parsed but not evaluated
			}
			for _, sel := range rule.Selectors {
				important := false
				for _, d := range rule.Declarations {
					if d.Important {
						important = true
					}
				}
				rules = append(rules, ruleEntry{sel: sel, decls: rule.Declarations, important: important, order: order})
			}
			order++
		}
	}

	var walk func(n *dom.Node, parent *ComputedStyle)
	walk = func(n *dom.Node, parent *ComputedStyle) {
		if n.Type != dom.ElementNode {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c, parent)
			}
			return
		}

		var matched []matchedRule
		for _, r := range rules {
			if matchesSelector(r.sel, n) {
				matched = append(matched, matchedRule{decls: r.decls, specificity: r.sel.Specificity(), order: r.order, important: r.important})
			}
		}
		sort.SliceStable(matched, func(i, j int) bool {
			if matched[i].important != matched[j].important {
				return !matched[i].important // non-important first, important wins by sorting last
			}
			if matched[i].specificity.Less(matched[j].specificity) {
				return true
			}
			if matched[j].specificity.Less(matched[i].specificity) {
				return false
			}
			return matched[i].order < matched[j].order
		})

		cs := initial()
		cs.raw = map[string]cssparse.CSSValue{}
		cs.customProps = map[string]cssparse.CSSValue{}
		if parent != nil {
			inheritFrom(&cs, parent)
			for k, v := range parent.customProps {
				cs.customProps[k] = v
			}
		} else {
			cs.Color = "black"
		}

		var inlineDecls []cssparse.Declaration
		if n.InlineStyleText != "" {
			inlineSheet := cssparse.Parse([]byte("x{"+n.InlineStyleText+"}"), h)
			if len(inlineSheet.Rules) == 1 {
				inlineDecls = inlineSheet.Rules[0].Declarations
			}
		}

		// Custom properties (`--name`) are collected across the whole
		// cascade (including inline) before any var() is resolved, so
		// declaration order within a rule does not matter.
		for _, m := range matched {
			collectCustomProps(cs.customProps, m.decls)
		}
		collectCustomProps(cs.customProps, inlineDecls)

		for _, m := range matched {
			applyDeclarations(&cs, m.decls)
		}

		// Inline style: specificity (1,0,0,0)-equivalent. Beats any
		// non-important stylesheet rule, loses to any !important one.
		// Modeled by applying it after every
		// non-important rule but checking for !important overrides
		// among already-applied important declarations.
		if len(inlineDecls) > 0 {
			applyInline(&cs, inlineDecls, matched)
		}

		if special, ok := specialTagDisplay[n.Data]; ok {
			if _, explicit := cs.raw["display"]; !explicit {
				cs.Display = special
			}
		}
		if n.Data == "ul" || n.Data == "ol" {
			// UA default: indent list contents so item markers have a
			// gutter to land in.
			_, explicitEdge := cs.raw["padding-left"]
			_, explicitShorthand := cs.raw["padding"]
			if !explicitEdge && !explicitShorthand {
				cs.PaddingLeft = Length{Kind: LengthAbsolute, Num: 2}
			}
		}
		if n.Data == "ol" {
			if _, explicit := cs.raw["list-style"]; !explicit {
				if _, explicit := cs.raw["list-style-type"]; !explicit {
					cs.ListStyle = "decimal"
				}
			}
		}

		sm.byNode[n] = &cs

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, &cs)
		}
	}

	if doc.Root != nil {
		walk(doc.Root, nil)
	}
	return sm
}

// applyInline layers inline declarations on top of cs, respecting
// !important precedence against already-applied stylesheet rules:
// a non-important inline declaration always wins (it was applied
// last), but an !important stylesheet declaration for the same
// property must not be overridden by a non-important inline one.
func applyInline(cs *ComputedStyle, inline []cssparse.Declaration, matched []matchedRule) {
	importantProps := map[string]bool{}
	for _, m := range matched {
		if !m.important {
			continue
		}
		for _, d := range m.decls {
			if d.Important {
				importantProps[d.Property] = true
			}
		}
	}
	var filtered []cssparse.Declaration
	for _, d := range inline {
		if importantProps[d.Property] && !d.Important {
			continue
		}
		filtered = append(filtered, d)
	}
	applyDeclarations(cs, filtered)
}

func inheritFrom(cs *ComputedStyle, parent *ComputedStyle) {
	cs.Color = parent.Color
	cs.FontWeight = parent.FontWeight
	cs.FontStyle = parent.FontStyle
	cs.TextAlign = parent.TextAlign
	cs.TextDecoration = parent.TextDecoration
	cs.WhiteSpace = parent.WhiteSpace
	cs.ListStyle = parent.ListStyle
}

// collectCustomProps records every `--name: value` declaration into
// props, keeping the last one per name (cascade order within decls).
func collectCustomProps(props map[string]cssparse.CSSValue, decls []cssparse.Declaration) {
	for _, d := range decls {
		if strings.HasPrefix(d.Property, "--") && len(d.Values) > 0 {
			props[d.Property] = d.Values[0]
		}
	}
}

// resolveVar substitutes a VarValue against the element's custom
// property registry, falling back to the declared fallback value, or
// to a harmless empty keyword if neither is present.
func resolveVar(v cssparse.CSSValue, customProps map[string]cssparse.CSSValue) cssparse.CSSValue {
	if v.Kind != cssparse.VarValue {
		return v
	}
	if resolved, ok := customProps[v.VarName]; ok {
		return resolved
	}
	if len(v.VarFallback) > 0 {
		return v.VarFallback[0]
	}
	return cssparse.CSSValue{Kind: cssparse.KeywordValue, Str: ""}
}

func applyDeclarations(cs *ComputedStyle, decls []cssparse.Declaration) {
	for _, d := range decls {
		if len(d.Values) == 0 || strings.HasPrefix(d.Property, "--") {
			continue
		}
		v := resolveVar(d.Values[0], cs.customProps)
		cs.raw[d.Property] = v
		switch d.Property {
		case "display":
			cs.Display = v.Str
		case "position":
			cs.Position = v.Str
		case "width":
			cs.Width = lengthFromValue(v)
		case "height":
			cs.Height = lengthFromValue(v)
		case "min-width":
			cs.MinWidth = lengthFromValue(v)
		case "max-width":
			cs.MaxWidth = lengthFromValue(v)
		case "min-height":
			cs.MinHeight = lengthFromValue(v)
		case "max-height":
			cs.MaxHeight = lengthFromValue(v)
		case "margin":
			applyShorthand(d.Values, &cs.MarginTop, &cs.MarginRight, &cs.MarginBottom, &cs.MarginLeft)
		case "margin-top":
			cs.MarginTop = lengthFromValue(v)
		case "margin-right":
			cs.MarginRight = lengthFromValue(v)
		case "margin-bottom":
			cs.MarginBottom = lengthFromValue(v)
		case "margin-left":
			cs.MarginLeft = lengthFromValue(v)
		case "padding":
			applyShorthand(d.Values, &cs.PaddingTop, &cs.PaddingRight, &cs.PaddingBottom, &cs.PaddingLeft)
		case "padding-top":
			cs.PaddingTop = lengthFromValue(v)
		case "padding-right":
			cs.PaddingRight = lengthFromValue(v)
		case "padding-bottom":
			cs.PaddingBottom = lengthFromValue(v)
		case "padding-left":
			cs.PaddingLeft = lengthFromValue(v)
		case "box-sizing":
			cs.BoxSizing = v.Str
		case "color":
			cs.Color = colorFromValue(v)
		case "background-color", "background":
			cs.BackgroundColor = colorFromValue(v)
		case "font-weight":
			cs.FontWeight = keywordOrNumber(v)
		case "font-style":
			cs.FontStyle = v.Str
		case "text-align":
			cs.TextAlign = v.Str
		case "text-decoration":
			cs.TextDecoration = v.Str
		case "white-space":
			cs.WhiteSpace = v.Str
		case "list-style", "list-style-type":
			cs.ListStyle = v.Str
		case "flex-direction":
			cs.FlexDirection = v.Str
		case "flex-wrap":
			cs.FlexWrap = v.Str
		case "justify-content":
			cs.JustifyContent = v.Str
		case "align-items":
			cs.AlignItems = v.Str
		case "flex-grow":
			if v.Kind == cssparse.NumberValue {
				cs.FlexGrow = v.Num
			}
		case "flex-basis":
			cs.FlexBasis = lengthFromValue(v)
		case "gap":
			cs.Gap = lengthFromValue(v)
		}
	}
}

func applyShorthand(vals []cssparse.CSSValue, top, right, bottom, left *Length) {
	ls := make([]Length, len(vals))
	for i, v := range vals {
		ls[i] = lengthFromValue(v)
	}
	switch len(ls) {
	case 1:
		*top, *right, *bottom, *left = ls[0], ls[0], ls[0], ls[0]
	case 2:
		*top, *bottom = ls[0], ls[0]
		*right, *left = ls[1], ls[1]
	case 3:
		*top, *bottom = ls[0], ls[0]
		*right, *left = ls[1], ls[1]
		*bottom = ls[2]
	case 4:
		*top, *right, *bottom, *left = ls[0], ls[1], ls[2], ls[3]
	}
}

func lengthFromValue(v cssparse.CSSValue) Length {
	switch v.Kind {
	case cssparse.LengthValue:
		return Length{Kind: LengthAbsolute, Num: v.Num, Unit: v.Unit}
	case cssparse.PercentageValue:
		return Length{Kind: LengthPercent, Num: v.Num, Unit: "%"}
	case cssparse.NumberValue:
		return Length{Kind: LengthAbsolute, Num: v.Num}
	case cssparse.KeywordValue:
		if v.Str == "auto" {
			return Auto()
		}
		if v.Str == "none" {
			return None()
		}
	}
	return Auto()
}

func colorFromValue(v cssparse.CSSValue) string {
	if v.Kind == cssparse.ColorValue {
		return "#" + v.Str
	}
	return v.Str
}

func keywordOrNumber(v cssparse.CSSValue) string {
	if v.Kind == cssparse.NumberValue {
		return strconv.FormatFloat(v.Num, 'f', 0, 64)
	}
	return v.Str
}

// matchesSelector implements the combinator chain, walking
// the selector's parts from last (closest to the element) to first.
// Combinator checks are non-backtracking: the first ancestor/sibling
// that satisfies a link is taken, which is correct for every
// single-candidate chain and the common case for multi-candidate ones.
func matchesSelector(sel cssparse.Selector, n *dom.Node) bool {
	parts := sel.Parts
	if len(parts) == 0 {
		return false
	}
	idx := len(parts) - 1
	if !matchesSimple(parts[idx].Simple, n) {
		return false
	}
	current := n
	for idx > 0 {
		comb := parts[idx].Combinator
		prevSimple := parts[idx-1].Simple
		switch comb {
		case cssparse.Descendant:
			found := false
			for _, anc := range current.Ancestors() {
				if anc.Type == dom.ElementNode && matchesSimple(prevSimple, anc) {
					current = anc
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case cssparse.Child:
			parent := current.ParentElement()
			if parent == nil || !matchesSimple(prevSimple, parent) {
				return false
			}
			current = parent
		case cssparse.AdjacentSibling:
			prev := current.PrevElementSibling()
			if prev == nil || !matchesSimple(prevSimple, prev) {
				return false
			}
			current = prev
		case cssparse.GeneralSibling:
			found := false
			for s := current.PrevElementSibling(); s != nil; s = s.PrevElementSibling() {
				if matchesSimple(prevSimple, s) {
					current = s
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		idx--
	}
	return true
}

// matchesSimple implements the per-simple-selector match
// rule: tag (or '*'), id, every class, every attribute selector per
// its match kind, and every supported pseudo-class.
func matchesSimple(s cssparse.SimpleSelector, n *dom.Node) bool {
	if s.Tag != "" && s.Tag != "*" && n.Data != s.Tag {
		return false
	}
	if s.ID != "" && n.ID() != s.ID {
		return false
	}
	for _, class := range s.Classes {
		if !n.HasClass(class) {
			return false
		}
	}
	for _, attr := range s.Attrs {
		if !matchesAttr(attr, n) {
			return false
		}
	}
	for _, pseudo := range s.Pseudos {
		if !matchesPseudo(pseudo, n) {
			return false
		}
	}
	return true
}

func matchesAttr(a cssparse.AttrSelector, n *dom.Node) bool {
	val, ok := n.GetAttribute(a.Name)
	if !ok {
		return false
	}
	if a.Kind == cssparse.AttrExists {
		return true
	}
	want := a.Value
	if !a.CaseSensitive {
		val = strings.ToLower(val)
		want = strings.ToLower(want)
	}
	switch a.Kind {
	case cssparse.AttrExact:
		return val == want
	case cssparse.AttrPrefix:
		return strings.HasPrefix(val, want)
	case cssparse.AttrSuffix:
		return strings.HasSuffix(val, want)
	case cssparse.AttrContains:
		return want != "" && strings.Contains(val, want)
	case cssparse.AttrWord:
		for _, w := range strings.Fields(val) {
			if w == want {
				return true
			}
		}
		return false
	case cssparse.AttrHyphen:
		return val == want || strings.HasPrefix(val, want+"-")
	}
	return false
}

func matchesPseudo(pseudo string, n *dom.Node) bool {
	switch pseudo {
	case "first-child":
		return n.PrevElementSibling() == nil
	case "last-child":
		return n.NextElementSibling() == nil
	case "only-child":
		return n.PrevElementSibling() == nil && n.NextElementSibling() == nil
	case "empty":
		return n.FirstChild == nil
	case "root":
		return n.Data == "html"
	}
	return false // unsupported pseudo-classes never match
}
