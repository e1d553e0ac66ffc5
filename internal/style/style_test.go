package style

import (
	"testing"

	"github.com/kbrowse/kbrowse/internal/cssparse"
	"github.com/kbrowse/kbrowse/internal/dom"
	"github.com/kbrowse/kbrowse/internal/handler"
	"gotest.tools/v3/assert"
)

func buildDoc(t *testing.T, html string) *dom.Document {
	t.Helper()
	h := handler.NewHandler(html, "<test>")
	return dom.Parse([]byte(html), h)
}

func buildSheet(t *testing.T, css string) *cssparse.Stylesheet {
	t.Helper()
	h := handler.NewHandler(css, "<test>")
	return cssparse.Parse([]byte(css), h)
}

func findByTag(n *dom.Node, tag string) *dom.Node {
	var found *dom.Node
	dom.Walk(n, func(node *dom.Node) {
		if found == nil && node.Type == dom.ElementNode && node.Data == tag {
			found = node
		}
	})
	return found
}

func TestCascadeBySpecificity(t *testing.T) {
	doc := buildDoc(t, `<p id="x" class="y">hi</p>`)
	sheet := buildSheet(t, `p { color: blue; } .y { color: green; } #x { color: red; }`)
	h := handler.NewHandler("", "<test>")
	sm := Resolve(doc, []*cssparse.Stylesheet{sheet}, h)
	p := findByTag(doc.Root, "p")
	cs := sm.Get(p)
	assert.Equal(t, cs.Color, "red")
}

func TestImportantWinsOverSpecificity(t *testing.T) {
	doc := buildDoc(t, `<p id="x">hi</p>`)
	sheet := buildSheet(t, `p { color: blue !important; } #x { color: red; }`)
	h := handler.NewHandler("", "<test>")
	sm := Resolve(doc, []*cssparse.Stylesheet{sheet}, h)
	p := findByTag(doc.Root, "p")
	assert.Equal(t, sm.Get(p).Color, "blue")
}

func TestInlineStyleBeatsNonImportantRule(t *testing.T) {
	doc := buildDoc(t, `<p id="x" style="color: purple">hi</p>`)
	sheet := buildSheet(t, `#x { color: red; }`)
	h := handler.NewHandler("", "<test>")
	sm := Resolve(doc, []*cssparse.Stylesheet{sheet}, h)
	p := findByTag(doc.Root, "p")
	assert.Equal(t, sm.Get(p).Color, "purple")
}

func TestImportantRuleBeatsInlineStyle(t *testing.T) {
	doc := buildDoc(t, `<p id="x" style="color: purple">hi</p>`)
	sheet := buildSheet(t, `#x { color: red !important; }`)
	h := handler.NewHandler("", "<test>")
	sm := Resolve(doc, []*cssparse.Stylesheet{sheet}, h)
	p := findByTag(doc.Root, "p")
	assert.Equal(t, sm.Get(p).Color, "red")
}

func TestInheritanceFallsBackToParent(t *testing.T) {
	doc := buildDoc(t, `<div><p>hi</p></div>`)
	sheet := buildSheet(t, `div { color: teal; }`)
	h := handler.NewHandler("", "<test>")
	sm := Resolve(doc, []*cssparse.Stylesheet{sheet}, h)
	p := findByTag(doc.Root, "p")
	assert.Equal(t, sm.Get(p).Color, "teal")
}

func TestNonInheritablePropertyUsesInitialValue(t *testing.T) {
	doc := buildDoc(t, `<div><p>hi</p></div>`)
	sheet := buildSheet(t, `div { width: 50px; }`)
	h := handler.NewHandler("", "<test>")
	sm := Resolve(doc, []*cssparse.Stylesheet{sheet}, h)
	p := findByTag(doc.Root, "p")
	assert.Assert(t, sm.Get(p).Width.IsAuto())
}

func TestDescendantCombinator(t *testing.T) {
	doc := buildDoc(t, `<div><span><p>hi</p></span></div>`)
	sheet := buildSheet(t, `div p { color: red; }`)
	h := handler.NewHandler("", "<test>")
	sm := Resolve(doc, []*cssparse.Stylesheet{sheet}, h)
	p := findByTag(doc.Root, "p")
	assert.Equal(t, sm.Get(p).Color, "red")
}

func TestChildCombinatorRejectsGrandchild(t *testing.T) {
	doc := buildDoc(t, `<div><span><p>hi</p></span></div>`)
	sheet := buildSheet(t, `div > p { color: red; }`)
	h := handler.NewHandler("", "<test>")
	sm := Resolve(doc, []*cssparse.Stylesheet{sheet}, h)
	p := findByTag(doc.Root, "p")
	assert.Assert(t, sm.Get(p).Color != "red")
}

func TestAdjacentSiblingCombinator(t *testing.T) {
	doc := buildDoc(t, `<div><h1>t</h1><p>hi</p></div>`)
	sheet := buildSheet(t, `h1 + p { color: red; }`)
	h := handler.NewHandler("", "<test>")
	sm := Resolve(doc, []*cssparse.Stylesheet{sheet}, h)
	p := findByTag(doc.Root, "p")
	assert.Equal(t, sm.Get(p).Color, "red")
}

func TestChainedCombinatorSelector(t *testing.T) {
	doc := buildDoc(t, `<div><p>t</p><span class="a">hi</span></div><section><span class="a">no</span></section>`)
	sheet := buildSheet(t, `div > p + span.a { color: red; }`)
	h := handler.NewHandler("", "<test>")
	sm := Resolve(doc, []*cssparse.Stylesheet{sheet}, h)
	spans := doc.GetElementsByClassName("a")
	assert.Equal(t, len(spans), 2)
	assert.Equal(t, sm.Get(spans[0]).Color, "red")
	assert.Assert(t, sm.Get(spans[1]).Color != "red")
}

func TestAttributeSelectorMatchKinds(t *testing.T) {
	doc := buildDoc(t, `<a href="https://example.com/path">link</a>`)
	sheet := buildSheet(t, `a[href^="https"] { color: red; }`)
	h := handler.NewHandler("", "<test>")
	sm := Resolve(doc, []*cssparse.Stylesheet{sheet}, h)
	a := findByTag(doc.Root, "a")
	assert.Equal(t, sm.Get(a).Color, "red")
}

func TestFirstLastOnlyChildPseudos(t *testing.T) {
	doc := buildDoc(t, `<ul><li>a</li><li>b</li><li>c</li></ul>`)
	sheet := buildSheet(t, `li:first-child { color: red; } li:last-child { color: blue; }`)
	h := handler.NewHandler("", "<test>")
	sm := Resolve(doc, []*cssparse.Stylesheet{sheet}, h)
	ul := findByTag(doc.Root, "ul")
	items := ul.Children()
	assert.Equal(t, len(items), 3)
	assert.Equal(t, sm.Get(items[0]).Color, "red")
	assert.Equal(t, sm.Get(items[2]).Color, "blue")
}

func TestSpecialTagDisplayCoercion(t *testing.T) {
	doc := buildDoc(t, `<div>x</div><span>y</span>`)
	h := handler.NewHandler("", "<test>")
	sm := Resolve(doc, nil, h)
	div := findByTag(doc.Root, "div")
	span := findByTag(doc.Root, "span")
	assert.Equal(t, sm.Get(div).Display, "block")
	assert.Equal(t, sm.Get(span).Display, "inline")
}

func TestExplicitDisplayOverridesSpecialTag(t *testing.T) {
	doc := buildDoc(t, `<div style="display: inline">x</div>`)
	h := handler.NewHandler("", "<test>")
	sm := Resolve(doc, nil, h)
	div := findByTag(doc.Root, "div")
	assert.Equal(t, sm.Get(div).Display, "inline")
}

func TestMarginShorthandExpansion(t *testing.T) {
	doc := buildDoc(t, `<div>x</div>`)
	sheet := buildSheet(t, `div { margin: 1px 2px 3px 4px; }`)
	h := handler.NewHandler("", "<test>")
	sm := Resolve(doc, []*cssparse.Stylesheet{sheet}, h)
	div := findByTag(doc.Root, "div")
	cs := sm.Get(div)
	assert.Equal(t, cs.MarginTop.Num, float64(1))
	assert.Equal(t, cs.MarginRight.Num, float64(2))
	assert.Equal(t, cs.MarginBottom.Num, float64(3))
	assert.Equal(t, cs.MarginLeft.Num, float64(4))
}

func TestVarSubstitutionAtCascadeTime(t *testing.T) {
	doc := buildDoc(t, `<html><div>x</div></html>`)
	sheet := buildSheet(t, `html { --main: red; } div { color: var(--main, blue); }`)
	h := handler.NewHandler("", "<test>")
	sm := Resolve(doc, []*cssparse.Stylesheet{sheet}, h)
	div := findByTag(doc.Root, "div")
	assert.Equal(t, sm.Get(div).Color, "red")
}

func TestVarSubstitutionFallsBackWhenUndeclared(t *testing.T) {
	doc := buildDoc(t, `<div>x</div>`)
	sheet := buildSheet(t, `div { color: var(--undeclared, blue); }`)
	h := handler.NewHandler("", "<test>")
	sm := Resolve(doc, []*cssparse.Stylesheet{sheet}, h)
	div := findByTag(doc.Root, "div")
	assert.Equal(t, sm.Get(div).Color, "blue")
}
