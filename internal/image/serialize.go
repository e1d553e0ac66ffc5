package image

import (
	"fmt"
	"image/color"
	"strings"
)

const (
	sgrReset = "\x1b[0m"
)

// Serialize turns a blitted cell grid into an ANSI string, choosing
// SGR precision from cs. Rows are newline-separated; a
// reset code ends every non-empty row so a truncated terminal width
// can't bleed color into the next line. ColorNone emits glyphs only,
// with no SGR codes and no reset.
func Serialize(cells [][]Cell, cs ColorSupport) string {
	var b strings.Builder
	for y, row := range cells {
		if y > 0 {
			b.WriteByte('\n')
		}
		for _, cell := range row {
			writeCellSGR(&b, cell, cs)
			b.WriteRune(cell.Rune)
		}
		if len(row) > 0 && cs != ColorNone {
			b.WriteString(sgrReset)
		}
	}
	return b.String()
}

func writeCellSGR(b *strings.Builder, cell Cell, cs ColorSupport) {
	switch cs {
	case ColorNone:
		return
	case ColorTrueColor:
		fmt.Fprintf(b, "\x1b[38;2;%d;%d;%dm", cell.FG.R, cell.FG.G, cell.FG.B)
		if cell.HasBG {
			fmt.Fprintf(b, "\x1b[48;2;%d;%d;%dm", cell.BG.R, cell.BG.G, cell.BG.B)
		}
	case ColorAnsi256:
		fmt.Fprintf(b, "\x1b[38;5;%dm", ansi256Index(cell.FG))
		if cell.HasBG {
			fmt.Fprintf(b, "\x1b[48;5;%dm", ansi256Index(cell.BG))
		}
	case ColorAnsi16, ColorMono:
		fmt.Fprintf(b, "\x1b[%dm", ansi16Code(cell.FG, false))
		if cell.HasBG {
			fmt.Fprintf(b, "\x1b[%dm", ansi16Code(cell.BG, true))
		}
	}
}

// ansi256Index maps an RGB color to an xterm 256-color index: indices
// 16-231 are the 6×6×6 cube {0,95,135,175,215,255}³, and 232-255 are a
// grayscale ramp at 8+(i-232)*10. It takes the cube entry with each
// channel snapped to its closest level and the ramp step
// (gray-8)/10 (clamped to 0..23), and returns whichever is closer by
// redmean. The 16 system colors (indices 0-15) are never returned.
func ansi256Index(c color.RGBA) int {
	level := func(v uint8) int {
		best, bestDist := 0, 256
		for i, l := range ansi256Levels {
			d := int(l) - int(v)
			if d < 0 {
				d = -d
			}
			if d < bestDist {
				best, bestDist = i, d
			}
		}
		return best
	}
	rl, gl, bl := level(c.R), level(c.G), level(c.B)
	cubeColor := color.RGBA{R: ansi256Levels[rl], G: ansi256Levels[gl], B: ansi256Levels[bl], A: 255}
	cubeIdx := 16 + 36*rl + 6*gl + bl

	grayLevel := (int(grayscale(c)) - 8) / 10
	if grayLevel < 0 {
		grayLevel = 0
	}
	if grayLevel > 23 {
		grayLevel = 23
	}
	grayVal := uint8(8 + grayLevel*10)
	grayColor := color.RGBA{R: grayVal, G: grayVal, B: grayVal, A: 255}
	grayIdx := 232 + grayLevel

	if redmean(c, grayColor) < redmean(c, cubeColor) {
		return grayIdx
	}
	return cubeIdx
}

// ansi16Code returns the SGR parameter for the nearest of the 16
// standard colors; bg shifts the foreground codes (30-37/90-97) to
// their background equivalents (40-47/100-107).
func ansi16Code(c color.RGBA, bg bool) int {
	palette := ansi16Palette()
	best, bestDist := 0, -1.0
	for i, p := range palette {
		d := redmean(c, p)
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	var code int
	if best < 8 {
		code = 30 + best
	} else {
		code = 90 + (best - 8)
	}
	if bg {
		code += 10
	}
	return code
}
