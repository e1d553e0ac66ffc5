// Package render implements the renderer: it walks a positioned box
// tree plus scroll offset, image cache, and focus state, and produces
// a fixed-size grid of terminal cells.
//
// Ornament drawing (hr's rule, blockquote's bar, form-control frames)
// composes box-drawing glyphs around block content; cell width
// accounting goes through mattn/go-runewidth + rivo/uniseg so
// multi-rune glyphs and wide runes still occupy the right number of
// cells.
package render

import (
	"image/color"
	stdimage "image"

	"github.com/charmbracelet/x/ansi"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"

	"github.com/kbrowse/kbrowse/internal/dom"
	kbimage "github.com/kbrowse/kbrowse/internal/image"
	"github.com/kbrowse/kbrowse/internal/layout"
	"github.com/kbrowse/kbrowse/internal/style"
)

// Cell is one rendered terminal cell: a glyph plus SGR attributes.
type Cell struct {
	Rune                     rune
	FG, BG                   color.RGBA
	HasBG                    bool
	Bold, Italic, Underline  bool
}

// Canvas is a fixed-size grid of cells for one render.
type Canvas struct {
	Width, Height int
	Cells         [][]Cell
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, Cells: make([][]Cell, h)}
	for y := range c.Cells {
		row := make([]Cell, w)
		for x := range row {
			row[x] = Cell{Rune: ' '}
		}
		c.Cells[y] = row
	}
	return c
}

func (c *Canvas) set(x, y int, cell Cell) {
	if y < 0 || y >= c.Height || x < 0 || x >= c.Width {
		return
	}
	c.Cells[y][x] = cell
}

// ImageSource resolves an <img>'s already-decoded pixels from the
// ImageCache collaborator (internal/browser); Get reports whether the
// image was found (and thus ready to blit) or should fall back to the
// `[alt]` placeholder.
type ImageSource interface {
	Get(url string) (stdimage.Image, bool)
}

// Options bundles the render-time inputs the box tree alone doesn't
// carry: scroll position, focus, and the image collaborator.
type Options struct {
	ScrollY       int
	Focus         *dom.Node
	Images        ImageSource
	ColorSupport  kbimage.ColorSupport
}

// Render produces a canvas of size width×height from root. root may
// be nil (empty document), producing a blank canvas.
func Render(root *layout.LayoutBox, width, height int, opts Options) *Canvas {
	canvas := NewCanvas(width, height)
	if root == nil {
		return canvas
	}
	renderBox(canvas, root, 0, -opts.ScrollY, opts)
	return canvas
}

// renderBox draws box and its descendants into canvas, where (offX,
// offY) translates box's own (locally absolute) coordinate frame into
// canvas space. Every LayoutBox's Dimensions are absolute within the
// frame they were laid out in; a
// new frame only begins when descending into an inline-block LineItem
// laid out at local origin (0,0) by flattenInline, at which point the
// offset is recomputed from that item's packed position (see the
// Lines branch below).
func renderBox(canvas *Canvas, box *layout.LayoutBox, offX, offY int, opts Options) {
	rect := box.Dimensions.BorderBox()
	top := rect.Y + offY
	bottom := top + rect.Height
	if bottom < 0 || top >= canvas.Height {
		return // entirely above or below the viewport
	}

	drawOrnaments(canvas, box, offX, offY, opts)

	if box.Lines != nil {
		renderLines(canvas, box, offX, offY, opts)
		return
	}
	for _, child := range box.Children {
		renderBox(canvas, child, offX, offY, opts)
	}
}

func renderLines(canvas *Canvas, box *layout.LayoutBox, offX, offY int, opts Options) {
	contentX := box.Dimensions.Content.X
	for _, line := range box.Lines {
		y := line.Y + offY
		if y < 0 || y >= canvas.Height {
			continue
		}
		for _, item := range line.Items {
			x := contentX + item.X + offX
			if item.Box != nil {
				// item.Box was laid out at local origin (0,0) by
				// flattenInline/measureIntrinsic, so its own margin box
				// sits at local (0,0); translating by the item's packed
				// position maps every descendant coordinate to canvas
				// space in one step.
				renderBox(canvas, item.Box, contentX+item.X+offX, line.Y+offY, opts)
				continue
			}
			writeText(canvas, x, y, item.Text, item.Style)
		}
	}
}

// writeText places text's grapheme clusters starting at (x,y), one
// cluster per cell, so combining marks/ZWJ sequences don't desync
// column accounting.
func writeText(canvas *Canvas, x, y int, text string, st *style.ComputedStyle) {
	fg, bg, hasBG := cellColors(st)
	bold := st != nil && (st.FontWeight == "bold" || st.FontWeight == "700" || st.FontWeight == "800" || st.FontWeight == "900")
	italic := st != nil && st.FontStyle == "italic"
	underline := st != nil && st.TextDecoration == "underline"

	gr := uniseg.NewGraphemes(text)
	col := x
	for gr.Next() {
		cluster := gr.Runes()
		if len(cluster) == 0 {
			continue
		}
		canvas.set(col, y, Cell{Rune: cluster[0], FG: fg, BG: bg, HasBG: hasBG, Bold: bold, Italic: italic, Underline: underline})
		w := runewidth.RuneWidth(cluster[0])
		if w < 1 {
			w = 1
		}
		col += w
	}
}

func cellColors(st *style.ComputedStyle) (fg, bg color.RGBA, hasBG bool) {
	fg = resolveColor(styleColor(st), color.RGBA{R: 229, G: 229, B: 229, A: 255})
	bgStr := styleBackground(st)
	if bgStr == "" || bgStr == "transparent" {
		return fg, color.RGBA{}, false
	}
	return fg, resolveColor(bgStr, color.RGBA{}), true
}

func styleColor(st *style.ComputedStyle) string {
	if st == nil {
		return ""
	}
	return st.Color
}

func styleBackground(st *style.ComputedStyle) string {
	if st == nil {
		return ""
	}
	return st.BackgroundColor
}

// resolveColor turns a ComputedStyle.Color string (a `#hex` produced
// by colorFromValue, or a bare CSS keyword) into an RGBA, falling back
// to def for anything unrecognized; a bad color never aborts a
// render.
func resolveColor(s string, def color.RGBA) color.RGBA {
	if s == "" || s == "inherit-root" {
		return def
	}
	if s[0] == '#' {
		if c, err := colorful.Hex(s); err == nil {
			r, g, b := c.RGB255()
			return color.RGBA{R: r, G: g, B: b, A: 255}
		}
		return def
	}
	if c, ok := namedColors[s]; ok {
		return c
	}
	return def
}

var namedColors = map[string]color.RGBA{
	"black":   {R: 0, G: 0, B: 0, A: 255},
	"white":   {R: 255, G: 255, B: 255, A: 255},
	"red":     {R: 255, G: 0, B: 0, A: 255},
	"green":   {R: 0, G: 128, B: 0, A: 255},
	"blue":    {R: 0, G: 0, B: 255, A: 255},
	"yellow":  {R: 255, G: 255, B: 0, A: 255},
	"cyan":    {R: 0, G: 255, B: 255, A: 255},
	"magenta": {R: 255, G: 0, B: 255, A: 255},
	"gray":    {R: 128, G: 128, B: 128, A: 255},
	"grey":    {R: 128, G: 128, B: 128, A: 255},
	"orange":  {R: 255, G: 165, B: 0, A: 255},
	"purple":  {R: 128, G: 0, B: 128, A: 255},
	"silver":  {R: 192, G: 192, B: 192, A: 255},
	"navy":    {R: 0, G: 0, B: 128, A: 255},
	"teal":    {R: 0, G: 128, B: 128, A: 255},
	"maroon":  {R: 128, G: 0, B: 0, A: 255},
	"lime":    {R: 0, G: 255, B: 0, A: 255},
	"pink":    {R: 255, G: 192, B: 203, A: 255},
	"brown":   {R: 165, G: 42, B: 42, A: 255},
	"transparent": {},
}

// CanvasRowWidth reports the printable column width of a row already
// serialized to an ANSI string, ignoring its escape sequences.
func CanvasRowWidth(s string) int { return ansi.StringWidth(s) }

// StripANSI removes any SGR sequences from s, used when ColorSupport
// is None so no color codes reach the terminal even if a caller
// accidentally concatenates pre-colored text into a plain render.
func StripANSI(s string) string { return ansi.Strip(s) }
