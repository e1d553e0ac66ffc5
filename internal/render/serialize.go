package render

import (
	"fmt"
	"image/color"
	"strings"

	kbimage "github.com/kbrowse/kbrowse/internal/image"
)

const sgrReset = "\x1b[0m"

// Serialize turns a rendered canvas into an ANSI byte stream for the
// terminal collaborator at cs's precision, plus the text attributes
// (bold/italic/underline) the box tree's computed styles carry that a
// pixel blit never needs. Its 16-color table (used for Ansi16 and Mono)
// holds xterm's default values, not the image package's palette, so the
// two serializers can pick different codes for the same color.
func Serialize(canvas *Canvas, cs kbimage.ColorSupport) string {
	var b strings.Builder
	for y, row := range canvas.Cells {
		if y > 0 {
			b.WriteByte('\n')
		}
		for _, cell := range row {
			writeSGR(&b, cell, cs)
			b.WriteRune(cell.Rune)
		}
		if len(row) > 0 && cs != kbimage.ColorNone {
			b.WriteString(sgrReset)
		}
	}
	return b.String()
}

func writeSGR(b *strings.Builder, cell Cell, cs kbimage.ColorSupport) {
	if cs == kbimage.ColorNone {
		return
	}
	if cell.Bold {
		b.WriteString("\x1b[1m")
	}
	if cell.Italic {
		b.WriteString("\x1b[3m")
	}
	if cell.Underline {
		b.WriteString("\x1b[4m")
	}
	switch cs {
	case kbimage.ColorTrueColor:
		fmt.Fprintf(b, "\x1b[38;2;%d;%d;%dm", cell.FG.R, cell.FG.G, cell.FG.B)
		if cell.HasBG {
			fmt.Fprintf(b, "\x1b[48;2;%d;%d;%dm", cell.BG.R, cell.BG.G, cell.BG.B)
		}
	case kbimage.ColorAnsi256:
		fmt.Fprintf(b, "\x1b[38;5;%dm", ansi256Index(cell.FG))
		if cell.HasBG {
			fmt.Fprintf(b, "\x1b[48;5;%dm", ansi256Index(cell.BG))
		}
	case kbimage.ColorAnsi16, kbimage.ColorMono:
		fmt.Fprintf(b, "\x1b[%dm", ansi16Code(cell.FG, false))
		if cell.HasBG {
			fmt.Fprintf(b, "\x1b[%dm", ansi16Code(cell.BG, true))
		}
	}
}

var ansi256Levels = [6]uint8{0, 95, 135, 175, 215, 255}

// ansi256Index mirrors image/serialize.go's cube/grayscale nearest
// lookup: indices 16-231 are the 6×6×6 cube, 232-255 a
// grayscale ramp at 8+(i-232)*10.
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

	gray := grayscale(c)
	grayLevel := clampInt((int(gray)-8)/10, 0, 23)
	grayVal := uint8(8 + grayLevel*10)
	grayColor := color.RGBA{R: grayVal, G: grayVal, B: grayVal, A: 255}
	grayIdx := 232 + grayLevel

	if redmean(c, grayColor) < redmean(c, cubeColor) {
		return grayIdx
	}
	return cubeIdx
}

var ansi16Palette = []color.RGBA{
	{R: 0, G: 0, B: 0, A: 255}, {R: 205, G: 0, B: 0, A: 255},
	{R: 0, G: 205, B: 0, A: 255}, {R: 205, G: 205, B: 0, A: 255},
	{R: 0, G: 0, B: 238, A: 255}, {R: 205, G: 0, B: 205, A: 255},
	{R: 0, G: 205, B: 205, A: 255}, {R: 229, G: 229, B: 229, A: 255},
	{R: 127, G: 127, B: 127, A: 255}, {R: 255, G: 0, B: 0, A: 255},
	{R: 0, G: 255, B: 0, A: 255}, {R: 255, G: 255, B: 0, A: 255},
	{R: 92, G: 92, B: 255, A: 255}, {R: 255, G: 0, B: 255, A: 255},
	{R: 0, G: 255, B: 255, A: 255}, {R: 255, G: 255, B: 255, A: 255},
}

// ansi16Code returns the SGR parameter for the nearest of the 16
// standard colors; bg shifts foreground codes (30-37/90-97) to their
// background equivalents (40-47/100-107).
func ansi16Code(c color.RGBA, bg bool) int {
	best, bestDist := 0, -1.0
	for i, p := range ansi16Palette {
		d := redmean(c, p)
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	code := 30 + best
	if best >= 8 {
		code = 90 + (best - 8)
	}
	if bg {
		code += 10
	}
	return code
}

func grayscale(c color.RGBA) uint8 {
	return uint8((299*int(c.R) + 587*int(c.G) + 114*int(c.B)) / 1000)
}

// redmean is the red-mean weighted Euclidean palette distance, the
// same formula the image pipeline uses for its own palette search.
func redmean(a, b color.RGBA) float64 {
	rMean := (float64(a.R) + float64(b.R)) / 2
	dr := float64(a.R) - float64(b.R)
	dg := float64(a.G) - float64(b.G)
	db := float64(a.B) - float64(b.B)
	wr := 2 + rMean/256
	wg := 4.0
	wb := 2 + (255-rMean)/256
	sum := wr*dr*dr + wg*dg*dg + wb*db*db
	if sum < 0 {
		return 0
	}
	return sum
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
