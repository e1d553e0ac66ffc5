// Package layout implements the layout engine: it builds a box tree
// from a styled DOM and recursively computes positions and sizes in
// terminal cells given an available width.
//
// Block stacking is recursive: a child's top is its parent's content
// top plus the total height of every preceding sibling, and a block's
// content height is the sum of its children's. A box wraps either a
// DOM node or is anonymous, with Text boxes as a distinct leaf
// variant.
package layout

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/kbrowse/kbrowse/internal/dom"
	"github.com/kbrowse/kbrowse/internal/style"
	"github.com/mattn/go-runewidth"
)

// BoxType tags the LayoutBox variant.
type BoxType int

const (
	Block BoxType = iota
	InlineBlock
	Inline
	AnonymousBlock
	TextBox
)

func (t BoxType) isBlockLevel() bool { return t == Block || t == AnonymousBlock }

// Rect is an axis-aligned cell rectangle, origin top-left.
type Rect struct {
	X, Y, Width, Height int
}

// EdgeSizes holds the four edges of a box model layer (margin/border/padding).
type EdgeSizes struct {
	Top, Right, Bottom, Left int
}

func (e EdgeSizes) Horizontal() int { return e.Left + e.Right }
func (e EdgeSizes) Vertical() int   { return e.Top + e.Bottom }

// Dimensions is the full CSS box model for one box, in cells.
type Dimensions struct {
	Content Rect
	Padding EdgeSizes
	Border  EdgeSizes
	Margin  EdgeSizes
}

// PaddingBox expands Content out by Padding.
func (d Dimensions) PaddingBox() Rect { return expand(d.Content, d.Padding) }

// BorderBox expands PaddingBox out by Border.
func (d Dimensions) BorderBox() Rect { return expand(d.PaddingBox(), d.Border) }

// MarginBox expands BorderBox out by Margin; this is the box's
// "totalHeight"/"totalWidth" footprint used for block stacking.
func (d Dimensions) MarginBox() Rect { return expand(d.BorderBox(), d.Margin) }

func expand(r Rect, e EdgeSizes) Rect {
	return Rect{
		X:      r.X - e.Left,
		Y:      r.Y - e.Top,
		Width:  r.Width + e.Horizontal(),
		Height: r.Height + e.Vertical(),
	}
}

// LineItem is one atomic inline placed on a Line: a run of text, or an
// inline-block/form-control/image box measured at its intrinsic size.
type LineItem struct {
	Box   *LayoutBox // nil for a plain text run
	Text  string     // set when Box is nil or Box.Type == TextBox
	Style *style.ComputedStyle
	X, Width int
}

// Line is one wrapped row of inline content within an inline
// formatting context.
type Line struct {
	Items  []LineItem
	Y      int
	Height int
}

// LayoutBox is a node in the box tree. Node is nil for AnonymousBlock
// boxes (pure layout wrappers with no DOM/style identity) and for
// TextBox nodes we still keep Node pointing at the DOM text node so
// the renderer can recover source order, but style is taken from the
// nearest styled ancestor via Style.
type LayoutBox struct {
	Type  BoxType
	Node  *dom.Node
	Style *style.ComputedStyle
	Text  string // TextBox only: this box's literal text content

	Children   []*LayoutBox
	Dimensions Dimensions

	// Lines is populated when this box establishes an inline
	// formatting context (all of its children are inline-level): the
	// wrapped, positioned line boxes of its flattened inline content.
	// Mutually exclusive with Children holding block-level boxes.
	Lines []Line

	// ListMarker/ListIndex are set on list-item boxes: the glyph (or
	// "N." ordinal text) the renderer draws in the list's padding area,
	// and this item's 1-based position among its list-item siblings.
	ListMarker string
	ListIndex  int

	// flexWidth, when set, forces this box's margin-box width during
	// layout, overriding its own width properties. layoutFlexLine sets
	// it for the final placement pass so grown items and their inline
	// content re-wrap at the distributed size.
	flexWidth    int
	flexWidthSet bool
}

// formControlTags always become InlineBlock boxes with an intrinsic
// size computed by intrinsicSize, regardless of their computed
// `display`.
var formControlTags = map[string]bool{
	"input": true, "select": true, "button": true, "textarea": true, "img": true,
}

func boxTypeForDisplay(display string) BoxType {
	switch display {
	case "block", "list-item", "flex":
		return Block
	case "inline-block", "inline-flex":
		return InlineBlock
	default:
		return Inline
	}
}

// Build constructs the box tree rooted at n (typically the document's
// <html> element, or <body>). Returns nil for display:none elements
// and for any text node: text boxes are created by buildChildren,
// which skips whitespace-only text unless the parent's white-space is
// pre or pre-wrap.
func Build(n *dom.Node, sm *style.StyleMap) *LayoutBox {
	switch n.Type {
	case dom.TextNode:
		return nil // text boxes are only created by buildChildren, which has whitespace context
	case dom.ElementNode:
		cs := sm.Get(n)
		if cs.Display == "none" {
			return nil
		}
		bt := boxTypeForDisplay(cs.Display)
		if formControlTags[n.Data] {
			bt = InlineBlock
		}
		box := &LayoutBox{Type: bt, Node: n, Style: cs}
		if cs.Display == "list-item" {
			box.ListIndex = listIndexOf(n, sm)
			box.ListMarker = listMarker(cs.ListStyle, box.ListIndex)
		}
		children := buildChildren(n, sm, cs)
		if cs.Display == "flex" || cs.Display == "inline-flex" {
			// CSS "blockification": a flex container's direct element
			// children are laid out as flex items regardless of their own
			// display, so they never need anonymous inline wrapping.
			for _, c := range children {
				if c.Type == Inline {
					c.Type = Block
				}
			}
			box.Children = children
		} else {
			box.Children = wrapAnonymousBlocks(children)
		}
		return box
	default:
		return nil
	}
}

func buildChildren(n *dom.Node, sm *style.StyleMap, parentStyle *style.ComputedStyle) []*LayoutBox {
	var out []*LayoutBox
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case dom.ElementNode:
			if b := Build(c, sm); b != nil {
				out = append(out, b)
			}
		case dom.TextNode:
			if isWhitespaceOnly(c.Data) && parentStyle.WhiteSpace != "pre" && parentStyle.WhiteSpace != "pre-wrap" {
				continue
			}
			out = append(out, &LayoutBox{Type: TextBox, Node: c, Style: parentStyle, Text: c.Data})
		}
	}
	return out
}

// listIndexOf counts n's position (1-based) among its preceding
// list-item element siblings, the ordinal an ordered list renders.
func listIndexOf(n *dom.Node, sm *style.StyleMap) int {
	idx := 1
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type != dom.ElementNode {
			continue
		}
		if cs := sm.Get(s); cs != nil && cs.Display == "list-item" {
			idx++
		}
	}
	return idx
}

func listMarker(listStyle string, index int) string {
	switch listStyle {
	case "none":
		return ""
	case "decimal":
		return strconv.Itoa(index) + "."
	case "circle":
		return "○"
	case "square":
		return "▪"
	default: // disc
		return "•"
	}
}

func isWhitespaceOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// wrapAnonymousBlocks wraps consecutive inline runs into anonymous
// block boxes when a non-anonymous box contains both block and inline
// children.
// If a box's children are homogeneous (all block-level, or all
// inline-level), they pass through unchanged; the homogeneous-inline
// case is later flattened into Lines by layoutInline.
func wrapAnonymousBlocks(children []*LayoutBox) []*LayoutBox {
	if len(children) == 0 {
		return children
	}
	hasBlock, hasInline := false, false
	for _, c := range children {
		if c.Type.isBlockLevel() {
			hasBlock = true
		} else {
			hasInline = true
		}
	}
	if !hasBlock || !hasInline {
		return children
	}
	var out []*LayoutBox
	var run []*LayoutBox
	flush := func() {
		if len(run) == 0 {
			return
		}
		out = append(out, &LayoutBox{Type: AnonymousBlock, Children: run})
		run = nil
	}
	for _, c := range children {
		if c.Type.isBlockLevel() {
			flush()
			out = append(out, c)
		} else {
			run = append(run, c)
		}
	}
	flush()
	return out
}

// Layout recurses into box, resolving its dimensions given the
// containing block's content width, and positions box's content
// origin at (x, y).
func Layout(box *LayoutBox, x, y, containingWidth int) {
	switch box.Type {
	case Block, AnonymousBlock:
		layoutBlock(box, x, y, containingWidth)
	case InlineBlock:
		layoutBlock(box, x, y, containingWidth) // sized as block, placed as inline by the caller's inline layout
	default:
		// Inline/TextBox boxes never lay out standalone; they are only
		// reached through layoutInline on their containing box.
	}
}

// --- Block layout ---

func layoutBlock(box *LayoutBox, x, y, containingWidth int) {
	cs := box.Style
	computeBlockWidth(box, cs, containingWidth)
	box.Dimensions.Content.X = x + box.Dimensions.Margin.Left + box.Dimensions.Border.Left + box.Dimensions.Padding.Left
	box.Dimensions.Content.Y = y + box.Dimensions.Margin.Top + box.Dimensions.Border.Top + box.Dimensions.Padding.Top

	if box.Node != nil && formControlTags[box.Node.Data] {
		w, h := intrinsicSize(box.Node)
		if !box.flexWidthSet {
			box.Dimensions.Content.Width = w
		}
		box.Dimensions.Content.Height = h
		return
	}

	if cs != nil && (cs.Display == "flex" || cs.Display == "inline-flex") {
		layoutFlex(box)
		return
	}

	if allInline(box.Children) {
		layoutInline(box)
		return
	}

	contentX := box.Dimensions.Content.X
	cursorY := box.Dimensions.Content.Y
	var prevMarginBottom int
	var hasPrev bool
	for _, child := range box.Children {
		// wrapAnonymousBlocks guarantees every child reaching this branch
		// is block-level (Block or AnonymousBlock): mixed content was
		// already partitioned at tree-construction time.
		top := cursorY
		if hasPrev {
			top = collapseMargins(cursorY, prevMarginBottom, child.marginTop())
		}
		Layout(child, contentX, top, box.Dimensions.Content.Width)
		cursorY = top + child.Dimensions.MarginBox().Height
		prevMarginBottom = child.Dimensions.Margin.Bottom
		hasPrev = true
	}
	box.Dimensions.Content.Height = cursorY - box.Dimensions.Content.Y
}

func (b *LayoutBox) marginTop() int {
	if b.Style == nil {
		return 0
	}
	return resolveCells(b.Style.MarginTop, 0)
}

// collapseMargins implements adjacent-vertical-margin
// collapsing. cursorY is the naive next-box margin-box top (prior
// child's content bottom plus its own margin-bottom, with the next
// box's margin-top not yet applied); the result is the margin-box top
// to feed into Layout for the next box, such that once that box adds
// its own margin-top back on, the two margins collapse to a single
// gap of max/min/sum per the rule below rather than stacking in full.
func collapseMargins(cursorY, prevMargin, nextMargin int) int {
	var collapsed int
	switch {
	case prevMargin >= 0 && nextMargin >= 0:
		collapsed = max(prevMargin, nextMargin)
	case prevMargin < 0 && nextMargin < 0:
		collapsed = min(prevMargin, nextMargin)
	default:
		collapsed = prevMargin + nextMargin
	}
	return cursorY - prevMargin - nextMargin + collapsed
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func allInline(children []*LayoutBox) bool {
	if len(children) == 0 {
		return true
	}
	for _, c := range children {
		if c.Type.isBlockLevel() {
			return false
		}
	}
	return true
}

// computeBlockWidth resolves content width and auto margins against
// the containing width.
func computeBlockWidth(box *LayoutBox, cs *style.ComputedStyle, containingWidth int) {
	if cs == nil {
		box.Dimensions.Content.Width = containingWidth
		return
	}
	padL := resolveCells(cs.PaddingLeft, containingWidth)
	padR := resolveCells(cs.PaddingRight, containingWidth)
	borL, borR := 0, 0 // border widths are not modeled as a standalone property in this design
	box.Dimensions.Padding = EdgeSizes{
		Top:    resolveCells(cs.PaddingTop, containingWidth),
		Right:  padR,
		Bottom: resolveCells(cs.PaddingBottom, containingWidth),
		Left:   padL,
	}
	box.Dimensions.Border = EdgeSizes{Left: borL, Right: borR}

	marginL := cs.MarginLeft
	marginR := cs.MarginRight
	usedWidth := resolveCellsAuto(cs.Width, containingWidth)
	autoMargins := marginL.IsAuto() && marginR.IsAuto()

	var contentWidth int
	if usedWidth >= 0 {
		contentWidth = usedWidth
		if cs.BoxSizing == "border-box" {
			contentWidth -= padL + padR + borL + borR
			if contentWidth < 0 {
				contentWidth = 0
			}
		}
	} else {
		contentWidth = containingWidth - padL - padR - borL - borR
	}
	if minW := resolveCellsAuto(cs.MinWidth, containingWidth); minW >= 0 && contentWidth < minW {
		contentWidth = minW
	}
	if maxW := resolveCellsAuto(cs.MaxWidth, containingWidth); maxW >= 0 && contentWidth > maxW {
		contentWidth = maxW
	}
	if contentWidth < 0 {
		contentWidth = 0
	}
	box.Dimensions.Content.Width = contentWidth

	remaining := containingWidth - contentWidth - padL - padR - borL - borR
	switch {
	case autoMargins:
		left := remaining / 2
		box.Dimensions.Margin.Left = left
		box.Dimensions.Margin.Right = remaining - left
	case marginL.IsAuto():
		box.Dimensions.Margin.Left = remaining
		box.Dimensions.Margin.Right = resolveCells(marginR, containingWidth)
	case marginR.IsAuto():
		box.Dimensions.Margin.Left = resolveCells(marginL, containingWidth)
		box.Dimensions.Margin.Right = remaining
	default:
		box.Dimensions.Margin.Left = resolveCells(marginL, containingWidth)
		box.Dimensions.Margin.Right = resolveCells(marginR, containingWidth)
	}
	box.Dimensions.Margin.Top = resolveCells(cs.MarginTop, containingWidth)
	box.Dimensions.Margin.Bottom = resolveCells(cs.MarginBottom, containingWidth)

	if box.flexWidthSet {
		w := box.flexWidth - box.Dimensions.Margin.Horizontal() -
			box.Dimensions.Border.Horizontal() - box.Dimensions.Padding.Horizontal()
		if w < 0 {
			w = 0
		}
		box.Dimensions.Content.Width = w
	}
}

// resolveCells resolves a Length to a cell count against a
// reference size, treating Auto/None as 0.
func resolveCells(l style.Length, reference int) int {
	v := resolveCellsAuto(l, reference)
	if v < 0 {
		return 0
	}
	return v
}

// resolveCellsAuto resolves a Length, returning -1 for Auto/None so
// callers can distinguish "unset" from "explicitly zero".
func resolveCellsAuto(l style.Length, reference int) int {
	switch l.Kind {
	case style.LengthAuto, style.LengthNone:
		return -1
	case style.LengthPercent:
		return int(l.Num/100*float64(reference) + 0.5)
	default:
		return int(l.Num + 0.5)
	}
}

// --- Inline layout ---

func layoutInline(box *LayoutBox) {
	width := box.Dimensions.Content.Width
	items := flattenInline(box.Children, box.Style, width)
	lines := packLines(items, width)
	alignLines(lines, width, textAlignOf(box.Style))

	y := box.Dimensions.Content.Y
	lineHeight := 1
	for i := range lines {
		lines[i].Y = y
		lines[i].Height = lineHeight
		y += lineHeight
	}
	box.Lines = lines
	box.Dimensions.Content.Height = len(lines)
}

func textAlignOf(cs *style.ComputedStyle) string {
	if cs == nil {
		return "left"
	}
	if cs.TextAlign == "justify" {
		return "left" // justify falls back to left
	}
	if cs.TextAlign == "" {
		return "left"
	}
	return cs.TextAlign
}

// flattenInline walks inline elements/text/atomic boxes depth-first,
// producing a flat sequence of LineItems with style merged down
// (bold/italic accumulate; color only inherits when the child's is
// still the default).
func flattenInline(children []*LayoutBox, inherited *style.ComputedStyle, containingWidth int) []LineItem {
	var out []LineItem
	for _, c := range children {
		switch c.Type {
		case TextBox:
			st := c.Style
			if st == nil {
				st = inherited
			}
			out = append(out, splitWords(c.Text, st)...)
		case InlineBlock:
			if c.Node != nil && formControlTags[c.Node.Data] {
				measureIntrinsic(c)
			} else {
				Layout(c, 0, 0, containingWidth)
			}
			out = append(out, LineItem{Box: c, Style: c.Style, Width: c.Dimensions.MarginBox().Width})
		case Inline:
			merged := mergeInlineStyle(inherited, c.Style)
			out = append(out, flattenInline(buildInlineChildren(c), merged, containingWidth)...)
		case AnonymousBlock, Block:
			// Block-level boxes never occur under an inline formatting
			// context; skip rather than panic on a malformed tree.
		}
	}
	return out
}

// buildInlineChildren exposes an Inline box's already-built Children
// (Build already recursed into them); this indirection exists so
// flattenInline's recursive call reads naturally as "flatten my
// children" regardless of box kind.
func buildInlineChildren(c *LayoutBox) []*LayoutBox { return c.Children }

func mergeInlineStyle(parent, child *style.ComputedStyle) *style.ComputedStyle {
	if child == nil {
		return parent
	}
	if parent == nil {
		return child
	}
	merged := *child
	if merged.FontWeight == "" || merged.FontWeight == "normal" {
		merged.FontWeight = parent.FontWeight
	}
	if merged.FontStyle == "" || merged.FontStyle == "normal" {
		merged.FontStyle = parent.FontStyle
	}
	if merged.Color == "" {
		merged.Color = parent.Color
	}
	return &merged
}

// splitWords breaks text on whitespace into word LineItems. Cell
// widths use go-runewidth so wide/combining runes measure correctly.
func splitWords(text string, st *style.ComputedStyle) []LineItem {
	if st != nil && st.WhiteSpace == "pre" {
		return []LineItem{{Text: text, Style: st, Width: runewidth.StringWidth(text)}}
	}
	fields := strings.Fields(text)
	out := make([]LineItem, 0, len(fields))
	for _, w := range fields {
		out = append(out, LineItem{Text: w, Style: st, Width: runewidth.StringWidth(w)})
	}
	return out
}

// packLines greedily packs items into lines of width <= maxWidth,
// separating words by a single-cell space.
func packLines(items []LineItem, maxWidth int) []Line {
	if maxWidth <= 0 {
		maxWidth = 1
	}
	var lines []Line
	var cur []LineItem
	x := 0
	for _, it := range items {
		sep := 0
		if len(cur) > 0 {
			sep = 1
		}
		if len(cur) > 0 && x+sep+it.Width > maxWidth {
			lines = append(lines, Line{Items: cur})
			cur = nil
			x = 0
			sep = 0
		}
		it.X = x + sep
		cur = append(cur, it)
		x += sep + it.Width
	}
	if len(cur) > 0 {
		lines = append(lines, Line{Items: cur})
	}
	return lines
}

func alignLines(lines []Line, containerWidth int, align string) {
	if align != "center" && align != "right" {
		return
	}
	for i := range lines {
		items := lines[i].Items
		if len(items) == 0 {
			continue
		}
		lineWidth := items[len(items)-1].X + items[len(items)-1].Width
		var shift int
		if align == "center" {
			shift = (containerWidth - lineWidth) / 2
		} else {
			shift = containerWidth - lineWidth
		}
		if shift < 0 {
			shift = 0
		}
		for j := range items {
			items[j].X += shift
		}
		lines[i].Items = items
	}
}

// naturalMainWidth is box's max-content margin-box width: the width its
// content would occupy with no line wrapping. Valid only after a
// measuring Layout pass has populated Dimensions and Lines.
func naturalMainWidth(box *LayoutBox) int {
	d := box.Dimensions
	extra := d.Margin.Horizontal() + d.Border.Horizontal() + d.Padding.Horizontal()
	return naturalContentWidth(box) + extra
}

func naturalContentWidth(box *LayoutBox) int {
	if box.Node != nil && formControlTags[box.Node.Data] {
		w, _ := intrinsicSize(box.Node)
		return w
	}
	if box.Type == TextBox {
		return runewidth.StringWidth(strings.TrimSpace(box.Text))
	}
	if box.Lines != nil {
		w, n := 0, 0
		for _, line := range box.Lines {
			for _, it := range line.Items {
				w += it.Width
				n++
			}
		}
		if n > 1 {
			w += n - 1 // single-cell separators between words
		}
		return w
	}
	maxW := 0
	for _, c := range box.Children {
		if w := naturalMainWidth(c); w > maxW {
			maxW = w
		}
	}
	return maxW
}

// --- Intrinsic sizes for form controls and images ---

func measureIntrinsic(box *LayoutBox) {
	if box.Node == nil {
		return
	}
	w, h := intrinsicSize(box.Node)
	box.Dimensions.Content.Width = w
	box.Dimensions.Content.Height = h
}

func intrinsicSize(n *dom.Node) (int, int) {
	switch n.Data {
	case "input":
		typ, _ := n.GetAttribute("type")
		switch strings.ToLower(typ) {
		case "checkbox", "radio":
			return 1, 1
		default:
			size := attrInt(n, "size", 20)
			w := size + 2
			if w > 42 {
				w = 42
			}
			return w, 3
		}
	case "button":
		label := n.TextContent()
		w := len(label) + 4
		if w < 8 {
			w = 8
		}
		return w, 3
	case "select":
		return 15, 3
	case "textarea":
		cols := attrInt(n, "cols", 40)
		rows := attrInt(n, "rows", 4)
		return cols + 2, rows + 2
	case "img":
		w := attrInt(n, "width", 20)
		h := attrInt(n, "height", 10)
		return clampImgDim(w), clampImgDim(h)
	default:
		return 0, 0
	}
}

func clampImgDim(v int) int {
	if v < 1 {
		return 1
	}
	if v > 200 {
		return 200
	}
	return v
}

func attrInt(n *dom.Node, name string, def int) int {
	v, ok := n.GetAttribute(name)
	if !ok {
		return def
	}
	var out int
	var any bool
	for _, r := range v {
		if r < '0' || r > '9' {
			break
		}
		any = true
		out = out*10 + int(r-'0')
	}
	if !any {
		return def
	}
	return out
}
