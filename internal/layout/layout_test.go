package layout

import (
	"testing"

	"github.com/kbrowse/kbrowse/internal/cssparse"
	"github.com/kbrowse/kbrowse/internal/dom"
	"github.com/kbrowse/kbrowse/internal/handler"
	"github.com/kbrowse/kbrowse/internal/style"
	"gotest.tools/v3/assert"
)

func buildStyled(t *testing.T, html, css string) (*dom.Document, *style.StyleMap) {
	t.Helper()
	h := handler.NewHandler(html, "<test>")
	doc := dom.Parse([]byte(html), h)
	var sheets []*cssparse.Stylesheet
	if css != "" {
		sheets = append(sheets, cssparse.Parse([]byte(css), handler.NewHandler(css, "<test>")))
	}
	sm := style.Resolve(doc, sheets, h)
	return doc, sm
}

func findTag(n *dom.Node, tag string) *dom.Node {
	var found *dom.Node
	dom.Walk(n, func(node *dom.Node) {
		if found == nil && node.Type == dom.ElementNode && node.Data == tag {
			found = node
		}
	})
	return found
}

func TestDisplayNoneProducesNoBox(t *testing.T) {
	doc, sm := buildStyled(t, `<div><p style="display:none">hidden</p><span>shown</span></div>`, "")
	div := findTag(doc.Root, "div")
	box := Build(div, sm)
	assert.Equal(t, len(box.Children), 1)
	assert.Equal(t, box.Children[0].Node.Data, "span")
}

func TestWhitespaceOnlyTextSkippedUnlessPre(t *testing.T) {
	doc, sm := buildStyled(t, "<div>  \n  <span>x</span></div>", "")
	div := findTag(doc.Root, "div")
	box := Build(div, sm)
	assert.Equal(t, len(box.Children), 1)

	doc2, sm2 := buildStyled(t, "<div style=\"white-space: pre\">  \n  </div>", "")
	div2 := findTag(doc2.Root, "div")
	box2 := Build(div2, sm2)
	assert.Equal(t, len(box2.Children), 1)
	assert.Equal(t, box2.Children[0].Type, TextBox)
}

func TestMixedInlineAndBlockChildrenWrapIntoAnonymousBlock(t *testing.T) {
	doc, sm := buildStyled(t, `<div>text<p>para</p></div>`, "")
	div := findTag(doc.Root, "div")
	box := Build(div, sm)
	assert.Equal(t, len(box.Children), 2)
	assert.Equal(t, box.Children[0].Type, AnonymousBlock)
	assert.Equal(t, box.Children[1].Node.Data, "p")
}

func TestHomogeneousInlineChildrenAreNotWrapped(t *testing.T) {
	doc, sm := buildStyled(t, `<p>hello <b>world</b></p>`, "")
	p := findTag(doc.Root, "p")
	box := Build(p, sm)
	for _, c := range box.Children {
		assert.Assert(t, c.Type != AnonymousBlock)
	}
}

func TestBlockStackingAccumulatesHeight(t *testing.T) {
	doc, sm := buildStyled(t, `<div><p>a</p><p>b</p></div>`, "")
	div := findTag(doc.Root, "div")
	box := Build(div, sm)
	Layout(box, 0, 0, 40)
	assert.Equal(t, len(box.Children), 2)
	first := box.Children[0]
	second := box.Children[1]
	assert.Assert(t, second.Dimensions.Content.Y >= first.Dimensions.MarginBox().Y+first.Dimensions.MarginBox().Height)
}

func TestMarginCollapseBetweenAdjacentSiblings(t *testing.T) {
	doc, sm := buildStyled(t, `<div><p style="margin-top:2px;margin-bottom:4px">a</p><p style="margin-top:3px">b</p></div>`, "")
	div := findTag(doc.Root, "div")
	box := Build(div, sm)
	Layout(box, 0, 0, 40)
	first := box.Children[0]
	second := box.Children[1]
	// collapsed margin is max(4,3) = 4, not 4+3 = 7
	gap := second.Dimensions.Content.Y - (first.Dimensions.Content.Y + first.Dimensions.Content.Height)
	assert.Equal(t, gap, 4)
}

func TestBlockWidthFillsContainingWidthByDefault(t *testing.T) {
	doc, sm := buildStyled(t, `<div>x</div>`, "")
	div := findTag(doc.Root, "div")
	box := Build(div, sm)
	Layout(box, 0, 0, 30)
	assert.Equal(t, box.Dimensions.Content.Width, 30)
}

func TestExplicitWidthIsClampedByMaxWidth(t *testing.T) {
	doc, sm := buildStyled(t, `<div style="width:50px;max-width:20px">x</div>`, "")
	div := findTag(doc.Root, "div")
	box := Build(div, sm)
	Layout(box, 0, 0, 80)
	assert.Equal(t, box.Dimensions.Content.Width, 20)
}

func TestAutoMarginsCenterBlock(t *testing.T) {
	doc, sm := buildStyled(t, `<div style="width:10px;margin-left:auto;margin-right:auto">x</div>`, "")
	div := findTag(doc.Root, "div")
	box := Build(div, sm)
	Layout(box, 0, 0, 30)
	assert.Equal(t, box.Dimensions.Margin.Left, box.Dimensions.Margin.Right)
}

func TestInlineLineWrapping(t *testing.T) {
	doc, sm := buildStyled(t, `<p>one two three four</p>`, "")
	p := findTag(doc.Root, "p")
	box := Build(p, sm)
	Layout(box, 0, 0, 9) // forces wrapping: "one two" fits, "three" doesn't
	assert.Assert(t, len(box.Lines) > 1)
}

func TestInlineTextAlignCenter(t *testing.T) {
	doc, sm := buildStyled(t, `<p style="text-align:center">hi</p>`, "")
	p := findTag(doc.Root, "p")
	box := Build(p, sm)
	Layout(box, 0, 0, 10)
	assert.Equal(t, len(box.Lines), 1)
	item := box.Lines[0].Items[0]
	assert.Assert(t, item.X > 0)
}

func TestFlexRowJustifyContentSpaceBetween(t *testing.T) {
	doc, sm := buildStyled(t, `<div style="display:flex;justify-content:space-between"><span style="width:2px">a</span><span style="width:2px">b</span></div>`, "")
	div := findTag(doc.Root, "div")
	box := Build(div, sm)
	Layout(box, 0, 0, 20)
	assert.Equal(t, len(box.Children), 2)
	first := box.Children[0]
	second := box.Children[1]
	assert.Assert(t, second.Dimensions.Content.X > first.Dimensions.Content.X+first.Dimensions.Content.Width)
}

func TestFlexGrowDistributesFreeSpace(t *testing.T) {
	doc, sm := buildStyled(t, `<div style="display:flex"><span style="width:2px;flex-grow:1">a</span><span style="width:2px">b</span></div>`, "")
	div := findTag(doc.Root, "div")
	box := Build(div, sm)
	Layout(box, 0, 0, 20)
	grown := box.Children[0]
	assert.Assert(t, grown.Dimensions.Content.Width > 2)
}

func TestFormControlIntrinsicSizes(t *testing.T) {
	doc, sm := buildStyled(t, `<input type="checkbox">`, "")
	input := findTag(doc.Root, "input")
	box := Build(input, sm)
	measureIntrinsic(box)
	assert.Equal(t, box.Dimensions.Content.Width, 1)
	assert.Equal(t, box.Dimensions.Content.Height, 1)
}

func TestListItemsCarryMarkerAndIndex(t *testing.T) {
	doc, sm := buildStyled(t, `<ul><li>a</li><li>b</li></ul>`, "")
	ul := findTag(doc.Root, "ul")
	box := Build(ul, sm)
	assert.Equal(t, len(box.Children), 2)
	assert.Equal(t, box.Children[0].ListMarker, "•")
	assert.Equal(t, box.Children[0].ListIndex, 1)
	assert.Equal(t, box.Children[1].ListIndex, 2)
}

func TestOrderedListUsesDecimalMarkers(t *testing.T) {
	doc, sm := buildStyled(t, `<ol><li>a</li><li>b</li></ol>`, "")
	ol := findTag(doc.Root, "ol")
	box := Build(ol, sm)
	assert.Equal(t, box.Children[0].ListMarker, "1.")
	assert.Equal(t, box.Children[1].ListMarker, "2.")
}

func TestListStyleNoneSuppressesMarker(t *testing.T) {
	doc, sm := buildStyled(t, `<ul style="list-style: none"><li>a</li></ul>`, "")
	ul := findTag(doc.Root, "ul")
	box := Build(ul, sm)
	assert.Equal(t, box.Children[0].ListMarker, "")
}

func TestTextareaIntrinsicSizeUsesColsRows(t *testing.T) {
	w, h := intrinsicSize(dom.NewElement("textarea"))
	assert.Equal(t, w, 42)
	assert.Equal(t, h, 6)
}
