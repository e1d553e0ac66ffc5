package render

import (
	"image/color"

	"github.com/kbrowse/kbrowse/internal/dom"
	kbimage "github.com/kbrowse/kbrowse/internal/image"
	"github.com/kbrowse/kbrowse/internal/layout"
)

var (
	borderFocused   = color.RGBA{R: 97, G: 175, B: 239, A: 255}
	borderUnfocused = color.RGBA{R: 90, G: 90, B: 90, A: 255}
)

// drawOrnaments draws the non-content decoration for special tags:
// hr's horizontal rule, blockquote's left bar, form
// control box-drawn frames (with a block cursor in the focused text
// input), the cached image for <img>, and focused-link brackets.
func drawOrnaments(canvas *Canvas, box *layout.LayoutBox, offX, offY int, opts Options) {
	if box.ListMarker != "" {
		r := box.Dimensions.Content
		writeText(canvas, r.X+offX-2, r.Y+offY, box.ListMarker, box.Style)
	}
	if box.Node == nil {
		return
	}
	switch box.Node.Data {
	case "hr":
		drawHR(canvas, box, offX, offY)
	case "blockquote":
		drawBlockquote(canvas, box, offX, offY)
	case "input", "select", "button", "textarea":
		drawFormControl(canvas, box, offX, offY, opts)
	case "img":
		drawImage(canvas, box, offX, offY, opts)
	case "a":
		drawFocusBrackets(canvas, box, offX, offY, opts)
	}
}

func drawHR(canvas *Canvas, box *layout.LayoutBox, offX, offY int) {
	r := box.Dimensions.Content
	y := r.Y + offY
	for x := r.X + offX; x < r.X+offX+r.Width; x++ {
		canvas.set(x, y, Cell{Rune: '─', FG: borderUnfocused})
	}
}

func drawBlockquote(canvas *Canvas, box *layout.LayoutBox, offX, offY int) {
	r := box.Dimensions.Content
	x := r.X + offX - 2
	if x < 0 {
		x = 0
	}
	for y := r.Y; y < r.Y+r.Height; y++ {
		canvas.set(x, y+offY, Cell{Rune: '│', FG: borderUnfocused})
	}
}

// drawFormControl frames a form control's border box with box-drawing
// glyphs, using the focused border color when it holds focus, and
// places a block cursor inside an active text input.
func drawFormControl(canvas *Canvas, box *layout.LayoutBox, offX, offY int, opts Options) {
	r := box.Dimensions.BorderBox()
	x0, y0 := r.X+offX, r.Y+offY
	w, h := r.Width, r.Height
	if w < 2 || h < 2 {
		return
	}
	focused := opts.Focus != nil && opts.Focus == box.Node
	fg := borderUnfocused
	if focused {
		fg = borderFocused
	}

	canvas.set(x0, y0, Cell{Rune: '┌', FG: fg})
	canvas.set(x0+w-1, y0, Cell{Rune: '┐', FG: fg})
	canvas.set(x0, y0+h-1, Cell{Rune: '└', FG: fg})
	canvas.set(x0+w-1, y0+h-1, Cell{Rune: '┘', FG: fg})
	for x := x0 + 1; x < x0+w-1; x++ {
		canvas.set(x, y0, Cell{Rune: '─', FG: fg})
		canvas.set(x, y0+h-1, Cell{Rune: '─', FG: fg})
	}
	for y := y0 + 1; y < y0+h-1; y++ {
		canvas.set(x0, y, Cell{Rune: '│', FG: fg})
		canvas.set(x0+w-1, y, Cell{Rune: '│', FG: fg})
	}

	isTextInput := box.Node.Data == "textarea" || (box.Node.Data == "input" && !isCheckLike(box.Node))
	if !isTextInput {
		return
	}
	value, _ := box.Node.GetAttribute("value")
	cx, cy := x0+1, y0+1
	writeText(canvas, cx, cy, value, box.Style)
	if focused {
		cursorX := cx + cellWidth(value)
		if cursorX < x0+w-1 {
			canvas.set(cursorX, cy, Cell{Rune: ' ', FG: color.RGBA{}, BG: fg, HasBG: true})
		}
	}
}

func isCheckLike(n *dom.Node) bool {
	if typ, ok := n.GetAttribute("type"); ok {
		return typ == "checkbox" || typ == "radio"
	}
	return false
}

func cellWidth(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}

// drawImage blits a cached decoded image into box's content rect via
// the image pipeline, falling back to the `[alt]` placeholder text
// when the resource is unavailable.
func drawImage(canvas *Canvas, box *layout.LayoutBox, offX, offY int, opts Options) {
	r := box.Dimensions.Content
	x0, y0 := r.X+offX, r.Y+offY

	src, _ := box.Node.GetAttribute("src")
	if opts.Images != nil {
		if decoded, ok := opts.Images.Get(src); ok {
			cells := kbimage.Render(decoded, kbimage.ImageRenderOptions{
				MaxWidth:            r.Width,
				MaxHeight:           r.Height,
				BlitMode:            kbimage.HalfBlock,
				ColorSupport:        opts.ColorSupport,
				PreserveAspectRatio: true,
			})
			for y, row := range cells {
				for x, c := range row {
					canvas.set(x0+x, y0+y, Cell{Rune: c.Rune, FG: c.FG, BG: c.BG, HasBG: c.HasBG})
				}
			}
			return
		}
	}
	alt, _ := box.Node.GetAttribute("alt")
	if alt == "" {
		alt = "[image]"
	} else {
		alt = "[" + alt + "]"
	}
	writeText(canvas, x0, y0, alt, box.Style)
}

// drawFocusBrackets adds the ›/‹ brackets immediately outside a
// focused link's content rect.
func drawFocusBrackets(canvas *Canvas, box *layout.LayoutBox, offX, offY int, opts Options) {
	if opts.Focus == nil || opts.Focus != box.Node {
		return
	}
	r := box.Dimensions.Content
	y := r.Y + offY
	canvas.set(r.X+offX-1, y, Cell{Rune: '›', FG: borderFocused})
	canvas.set(r.X+offX+r.Width, y, Cell{Rune: '‹', FG: borderFocused})
}
