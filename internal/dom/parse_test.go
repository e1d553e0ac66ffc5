package dom

import (
	"testing"

	"github.com/kbrowse/kbrowse/internal/handler"
	"gotest.tools/v3/assert"
)

func parse(t *testing.T, html string) *Document {
	t.Helper()
	h := handler.NewHandler(html, "<test>")
	return Parse([]byte(html), h)
}

func TestImplicitHtmlHeadBody(t *testing.T) {
	doc := parse(t, `<p>hi</p>`)
	assert.Assert(t, doc.Html() != nil)
	assert.Assert(t, doc.Head() != nil)
	assert.Assert(t, doc.Body() != nil)
	p := doc.Body().FirstChild
	assert.Equal(t, p.Data, "p")
	assert.Equal(t, p.TextContent(), "hi")
}

func TestImplicitHeadReceivesLeadingHeadOnlyTag(t *testing.T) {
	doc := parse(t, `<title>Foo</title><p>hi</p>`)
	assert.Equal(t, doc.Head().FirstChild.Data, "title")
	assert.Equal(t, doc.Head().FirstChild.TextContent(), "Foo")
	assert.Equal(t, doc.Body().FirstChild.Data, "p")
}

func TestExplicitHtmlHeadBodyNotDuplicated(t *testing.T) {
	doc := parse(t, `<html><head><title>T</title></head><body><p>hi</p></body></html>`)
	// exactly one html, one head, one body
	htmlCount := 0
	for c := doc.Root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == ElementNode && c.Data == "html" {
			htmlCount++
		}
	}
	assert.Equal(t, htmlCount, 1)
	assert.Equal(t, doc.Head().FirstChild.Data, "title")
	assert.Equal(t, doc.Body().FirstChild.Data, "p")
}

func TestVoidElementsNeverHaveChildren(t *testing.T) {
	doc := parse(t, `<br>text`)
	body := doc.Body()
	br := body.FirstChild
	assert.Equal(t, br.Data, "br")
	assert.Assert(t, br.FirstChild == nil)
	assert.Equal(t, br.NextSibling.Data, "text")
}

func TestSelfClosingFlagIgnoredOnNonVoidElement(t *testing.T) {
	doc := parse(t, `<div/>inside</div>`)
	div := doc.Body().FirstChild
	assert.Equal(t, div.Data, "div")
	assert.Equal(t, div.TextContent(), "inside")
}

func TestTextMergesIntoAdjacentSibling(t *testing.T) {
	doc := parse(t, `<p>hello <b>world</b> and friends</p>`)
	p := doc.Body().FirstChild
	assert.Equal(t, p.FirstChild.Data, "hello ")
	assert.Equal(t, p.LastChild.Data, " and friends")
}

func TestUnmatchedEndTagIgnored(t *testing.T) {
	h := handler.NewHandler(`<p>hi</div></p>`, "<test>")
	doc := Parse([]byte(`<p>hi</div></p>`), h)
	assert.Equal(t, doc.Body().FirstChild.Data, "p")
	assert.Equal(t, len(h.Warnings()), 1)
}

func TestUnclosedElementClosedAtEOF(t *testing.T) {
	doc := parse(t, `<div><p>hi`)
	div := doc.Body().FirstChild
	assert.Equal(t, div.Data, "div")
	p := div.FirstChild
	assert.Equal(t, p.Data, "p")
	assert.Equal(t, p.TextContent(), "hi")
}

func TestCommentAttachesUnderInsertionParent(t *testing.T) {
	doc := parse(t, `<div><!-- note --></div>`)
	div := doc.Body().FirstChild
	assert.Equal(t, div.FirstChild.Type, CommentNode)
	assert.Equal(t, div.FirstChild.Data, " note ")
}

func TestDoctypeAttachesBeforeHtml(t *testing.T) {
	doc := parse(t, `<!DOCTYPE html><html><body>hi</body></html>`)
	assert.Equal(t, doc.Root.FirstChild.Type, DoctypeNode)
	assert.Equal(t, doc.Root.FirstChild.NextSibling.Data, "html")
}

func TestOuterHTMLRoundTrips(t *testing.T) {
	doc := parse(t, `<p class="a">hi &amp; bye</p>`)
	p := doc.Body().FirstChild
	assert.Equal(t, p.OuterHTML(), `<p class="a">hi &amp; bye</p>`)
}

func TestRemoveChildRelinksSiblings(t *testing.T) {
	doc := parse(t, `<div><a></a><b></b><c></c></div>`)
	div := doc.Body().FirstChild
	b := div.FirstChild.NextSibling
	div.RemoveChild(b)
	assert.Equal(t, div.FirstChild.Data, "a")
	assert.Equal(t, div.FirstChild.NextSibling.Data, "c")
	assert.Assert(t, b.Parent == nil)
	assert.Assert(t, b.NextSibling == nil)
	assert.Assert(t, b.PrevSibling == nil)
}
