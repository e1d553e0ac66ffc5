package browser

import (
	"github.com/kbrowse/kbrowse/internal/cssparse"
	"github.com/kbrowse/kbrowse/internal/dom"
	"github.com/kbrowse/kbrowse/internal/handler"
	"github.com/kbrowse/kbrowse/internal/jsengine"
	"github.com/kbrowse/kbrowse/internal/layout"
	"github.com/kbrowse/kbrowse/internal/render"
	"github.com/kbrowse/kbrowse/internal/style"
)

// Browser owns one loaded document's full pipeline state: DOM, computed
// styles, box tree, image cache, JS interpreter, and view state
// (scroll/focus). Parse → style → layout → render is a single
// synchronous transform; only image fetches (fetch.go) run
// concurrently with it.
type Browser struct {
	Handler  *handler.Handler
	Document *dom.Document
	Styles   *style.StyleMap
	Root     *layout.LayoutBox
	Images   *ImageCache
	Interp   *jsengine.Interpreter

	Width, Height int
	ScrollY       int
	Focus         *dom.Node

	// generation increments on every Load, so in-flight image fetches
	// from a superseded document can detect and drop themselves.
	generation int
}

func New() *Browser {
	return &Browser{Images: NewImageCache()}
}

// Load parses src into a DOM, binds and runs every <script> body
// against it, then collects <style> sheets, resolves the cascade, and
// builds+lays out the box tree at width. Scripts run between the parse
// and the first layout, so DOM mutations they make are reflected in
// the box tree.
func (b *Browser) Load(src []byte, width int) {
	b.generation++
	b.Images.Clear()
	b.Focus = nil
	b.ScrollY = 0

	b.Handler = handler.NewHandler(string(src), "<document>")
	b.Document = dom.Parse(src, b.Handler)
	b.runScripts()
	b.Relayout(width)
}

// Relayout re-resolves styles and rebuilds+lays out the box tree at
// width, without re-parsing the document or re-running scripts; this
// is the step a JS DOM mutation or a terminal resize triggers.
func (b *Browser) Relayout(width int) {
	b.Width = width
	if b.Document == nil {
		b.Root = nil
		return
	}
	b.Styles = style.Resolve(b.Document, b.collectStylesheets(), b.Handler)

	target := b.Document.Html()
	if target == nil {
		target = b.Document.Body()
	}
	if target == nil {
		b.Root = nil
		return
	}
	box := layout.Build(target, b.Styles)
	if box != nil {
		layout.Layout(box, 0, 0, width)
	}
	b.Root = box
}

// collectStylesheets parses every <style> element's text content, in
// document order.
func (b *Browser) collectStylesheets() []*cssparse.Stylesheet {
	var sheets []*cssparse.Stylesheet
	if b.Document == nil {
		return sheets
	}
	dom.Walk(b.Document.Root, func(n *dom.Node) {
		if n.Type == dom.ElementNode && n.Data == "style" {
			sheets = append(sheets, cssparse.Parse([]byte(n.TextContent()), b.Handler))
		}
	})
	return sheets
}

// runScripts binds a fresh interpreter to the live DOM and executes
// every <script> body in document order. A thrown, uncaught error is
// routed to the console sink and recorded as a diagnostic; it never
// aborts the load.
func (b *Browser) runScripts() {
	b.Interp = jsengine.NewInterpreter()
	jsengine.BindDocument(b.Interp, b.Document, b.Handler)

	var bodies []string
	dom.Walk(b.Document.Root, func(n *dom.Node) {
		if n.Type == dom.ElementNode && n.Data == "script" {
			if src, ok := n.GetAttribute("src"); ok && src != "" {
				return // external scripts need the HTTP collaborator; inline only here
			}
			bodies = append(bodies, n.TextContent())
		}
	})
	for _, src := range bodies {
		program, err := jsengine.Parse(src)
		if err != nil {
			b.Handler.AppendError(err)
			continue
		}
		if err := b.Interp.Run(program); err != nil {
			if b.Interp.Console != nil {
				b.Interp.Console.Log("error", []interface{}{err.Error()})
			}
			b.Handler.AppendError(err)
		}
	}
}

// Render produces the canvas for the current box tree, scroll
// position, image cache, and focus. Callers set opts.ColorSupport;
// ScrollY/Focus/Images are always taken from the browser's own state.
func (b *Browser) Render(opts render.Options) *render.Canvas {
	opts.ScrollY = b.ScrollY
	opts.Focus = b.Focus
	opts.Images = b.Images
	return render.Render(b.Root, b.Width, b.Height, opts)
}
