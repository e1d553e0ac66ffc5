package image

import "image/color"

// blit converts a scaled, optionally dithered PixelBuffer into a grid
// of Cells using the scheme named by opts.BlitMode.
func blit(buf *PixelBuffer, opts ImageRenderOptions) [][]Cell {
	switch opts.BlitMode {
	case Braille:
		return blitBraille(buf, opts)
	case HalfBlock:
		return blitHalfBlock(buf, opts)
	case Quadrant:
		return blitQuadrant(buf, opts)
	default:
		return blitASCII(buf, opts)
	}
}

func grayscale(c color.RGBA) uint8 {
	return uint8((299*int(c.R) + 587*int(c.G) + 114*int(c.B)) / 1000)
}

func threshold(opts ImageRenderOptions) uint8 {
	if opts.Threshold == 0 {
		return 128
	}
	return opts.Threshold
}

// brailleBitTable maps each (col, row) position within a 2×4 cell to
// its dot bit, per the Unicode Braille Patterns block layout: dots 1-6
// form the two left/right columns top-to-bottom, dots 7-8 sit in the
// bottom row.
var brailleBitTable = [2][4]uint16{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

func blitBraille(buf *PixelBuffer, opts ImageRenderOptions) [][]Cell {
	th := threshold(opts)
	cols := (buf.Width + 1) / 2
	rows := (buf.Height + 3) / 4
	out := make([][]Cell, rows)
	for cy := 0; cy < rows; cy++ {
		row := make([]Cell, cols)
		for cx := 0; cx < cols; cx++ {
			var bits uint16
			for dy := 0; dy < 4; dy++ {
				for dx := 0; dx < 2; dx++ {
					px, py := cx*2+dx, cy*4+dy
					if px >= buf.Width || py >= buf.Height {
						continue
					}
					if grayscale(buf.Get(px, py)) >= th {
						bits |= brailleBitTable[dx][dy]
					}
				}
			}
			row[cx] = Cell{Rune: rune(0x2800 | bits), FG: opts.FG, BG: opts.BG}
		}
		out[cy] = row
	}
	return out
}

func blitHalfBlock(buf *PixelBuffer, opts ImageRenderOptions) [][]Cell {
	cols := buf.Width
	rows := (buf.Height + 1) / 2
	out := make([][]Cell, rows)
	for cy := 0; cy < rows; cy++ {
		row := make([]Cell, cols)
		for cx := 0; cx < cols; cx++ {
			top := buf.Get(cx, cy*2)
			var bottom color.RGBA
			if cy*2+1 < buf.Height {
				bottom = buf.Get(cx, cy*2+1)
			} else {
				bottom = top
			}
			if nearlyEqual(top, bottom) {
				row[cx] = Cell{Rune: ' ', FG: top, BG: top}
				continue
			}
			row[cx] = Cell{Rune: '▀', FG: top, BG: bottom, HasBG: true}
		}
		out[cy] = row
	}
	return out
}

func nearlyEqual(a, b color.RGBA) bool {
	d := redmean(a, b)
	return d < 64 // small constant threshold; a near-identical pair collapses to a blank cell
}

// quadrantRunes indexes by a 4-bit mask (TL=1, TR=2, BL=4, BR=8) of
// which quadrants are "on", mapping to the matching Unicode block
// element.
var quadrantRunes = [16]rune{
	' ', '▘', '▝', '▀',
	'▖', '▌', '▞', '▛',
	'▗', '▚', '▐', '▜',
	'▄', '▙', '▟', '█',
}

func blitQuadrant(buf *PixelBuffer, opts ImageRenderOptions) [][]Cell {
	th := threshold(opts)
	cols := (buf.Width + 1) / 2
	rows := (buf.Height + 1) / 2
	out := make([][]Cell, rows)
	for cy := 0; cy < rows; cy++ {
		row := make([]Cell, cols)
		for cx := 0; cx < cols; cx++ {
			on := func(dx, dy int) bool {
				px, py := cx*2+dx, cy*2+dy
				if px >= buf.Width || py >= buf.Height {
					return false
				}
				return grayscale(buf.Get(px, py)) >= th
			}
			mask := 0
			if on(0, 0) {
				mask |= 1
			}
			if on(1, 0) {
				mask |= 2
			}
			if on(0, 1) {
				mask |= 4
			}
			if on(1, 1) {
				mask |= 8
			}
			row[cx] = Cell{Rune: quadrantRunes[mask], FG: opts.FG, BG: opts.BG}
		}
		out[cy] = row
	}
	return out
}

// asciiRamp is a light-to-dark grayscale ramp; index selected by
// scaling the pixel's luminance into the ramp's range.
const asciiRamp = " .:-=+*#%@"

func blitASCII(buf *PixelBuffer, opts ImageRenderOptions) [][]Cell {
	out := make([][]Cell, buf.Height)
	n := len(asciiRamp)
	for y := 0; y < buf.Height; y++ {
		row := make([]Cell, buf.Width)
		for x := 0; x < buf.Width; x++ {
			c := buf.Get(x, y)
			idx := int(grayscale(c)) * (n - 1) / 255
			row[x] = Cell{Rune: rune(asciiRamp[idx]), FG: c, BG: opts.BG}
		}
		out[y] = row
	}
	return out
}
