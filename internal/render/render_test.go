package render

import (
	"strings"
	"testing"

	"github.com/kbrowse/kbrowse/internal/cssparse"
	"github.com/kbrowse/kbrowse/internal/dom"
	"github.com/kbrowse/kbrowse/internal/handler"
	kbimage "github.com/kbrowse/kbrowse/internal/image"
	"github.com/kbrowse/kbrowse/internal/layout"
	"github.com/kbrowse/kbrowse/internal/style"
	"github.com/kbrowse/kbrowse/internal/testutil"
	"gotest.tools/v3/assert"
)

func buildAndLayout(t *testing.T, html, css string, width int) *layout.LayoutBox {
	t.Helper()
	h := handler.NewHandler(html, "<test>")
	doc := dom.Parse([]byte(html), h)
	var sheets []*cssparse.Stylesheet
	if css != "" {
		sheets = append(sheets, cssparse.Parse([]byte(css), handler.NewHandler(css, "<test>")))
	}
	sm := style.Resolve(doc, sheets, h)
	target := doc.Html()
	if target == nil {
		target = doc.Body()
	}
	box := layout.Build(target, sm)
	layout.Layout(box, 0, 0, width)
	return box
}

func canvasText(c *Canvas) string {
	var b strings.Builder
	for y, row := range c.Cells {
		if y > 0 {
			b.WriteByte('\n')
		}
		for _, cell := range row {
			b.WriteRune(cell.Rune)
		}
	}
	return b.String()
}

func TestRenderPlainTextAppearsAtOrigin(t *testing.T) {
	box := buildAndLayout(t, `<div>hello</div>`, "", 20)
	canvas := Render(box, 20, 5, Options{})
	assert.Assert(t, strings.Contains(canvasText(canvas), "hello"))
}

func TestRenderScrollOffsetShiftsContentUp(t *testing.T) {
	box := buildAndLayout(t, `<div style="height: 10px">x</div><div>below</div>`, "", 20)
	canvas := Render(box, 20, 20, Options{ScrollY: 3})
	// scrolling down must move later content toward row 0, not push it further down
	unscrolled := Render(box, 20, 20, Options{ScrollY: 0})
	scrolledIdx := strings.Index(canvasText(canvas), "below")
	unscrolledIdx := strings.Index(canvasText(unscrolled), "below")
	assert.Assert(t, scrolledIdx < unscrolledIdx)
}

func TestRenderListItemMarkerInGutter(t *testing.T) {
	box := buildAndLayout(t, `<ul><li>item</li></ul>`, "", 20)
	canvas := Render(box, 20, 5, Options{})
	text := canvasText(canvas)
	assert.Assert(t, strings.Contains(text, "•"))
	assert.Assert(t, strings.Contains(text, "item"))
}

func TestRenderNilBoxProducesBlankCanvas(t *testing.T) {
	canvas := Render(nil, 10, 3, Options{})
	assert.Equal(t, len(canvas.Cells), 3)
	for _, row := range canvas.Cells {
		for _, c := range row {
			assert.Equal(t, c.Rune, ' ')
		}
	}
}

func TestSerializeTrueColorEmitsRGBEscape(t *testing.T) {
	box := buildAndLayout(t, `<div style="color: #ff0000">hi</div>`, "", 10)
	canvas := Render(box, 10, 3, Options{ColorSupport: kbimage.ColorTrueColor})
	out := Serialize(canvas, kbimage.ColorTrueColor)
	assert.Assert(t, strings.Contains(out, "38;2;255;0;0"))
}

func TestSerializeNoneEmitsNoEscapes(t *testing.T) {
	box := buildAndLayout(t, `<div style="color: #ff0000">hi</div>`, "", 10)
	canvas := Render(box, 10, 3, Options{ColorSupport: kbimage.ColorNone})
	out := Serialize(canvas, kbimage.ColorNone)
	assert.Assert(t, !strings.Contains(out, "\x1b["))
}

func TestResolveColorFallsBackOnUnknownKeyword(t *testing.T) {
	got := resolveColor("not-a-color", namedColors["black"])
	assert.Equal(t, got, namedColors["black"])
}

func TestAnsi256IndexIsStableForPureColors(t *testing.T) {
	red := namedColors["red"]
	idx := ansi256Index(red)
	assert.Assert(t, idx >= 16 && idx <= 231)
}

// Two successive renders of the same (box tree, scroll, focus, image
// cache) must produce identical canvases. ANSIDiff (rather than assert.DeepEqual) is used so a
// regression prints a readable colorized field diff instead of a
// dumped struct.
func TestSuccessiveRendersAreIdempotent(t *testing.T) {
	box := buildAndLayout(t, `<div style="color: #ff0000">hello <b>world</b></div>`, "", 24)
	opts := Options{ColorSupport: kbimage.ColorAnsi256, ScrollY: 1}
	first := Render(box, 24, 6, opts)
	second := Render(box, 24, 6, opts)
	assert.Equal(t, testutil.ANSIDiff(first, second), "")
}

// CanvasRowWidth reports the printable (non-escape) column width of a
// serialized row; it must equal the canvas's own column count
// regardless of how much SGR escaping a colorful row carries.
func TestCanvasRowWidthMatchesColumnCountAfterSerialize(t *testing.T) {
	box := buildAndLayout(t, `<div style="color: #ff0000">hi</div>`, "", 10)
	canvas := Render(box, 10, 1, Options{ColorSupport: kbimage.ColorTrueColor})
	out := Serialize(canvas, kbimage.ColorTrueColor)
	row := strings.Split(out, "\n")[0]
	assert.Equal(t, CanvasRowWidth(row), 10)
}
