package image

import (
	"image/color"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
)

func solidImage(w, h int, c color.RGBA) *PixelBuffer {
	p := NewPixelBuffer(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p.Set(x, y, c)
		}
	}
	return p
}

func TestScaleNeverUpscalesBeyondOriginal(t *testing.T) {
	src := solidImage(4, 4, color.RGBA{255, 0, 0, 255})
	opts := ImageRenderOptions{MaxWidth: 40, MaxHeight: 40, BlitMode: Braille, PreserveAspectRatio: true}
	out := scale(src, opts)
	assert.Assert(t, out.Width <= 4 && out.Height <= 4)
}

func TestScaleClampsToMaxCells(t *testing.T) {
	src := solidImage(100, 100, color.RGBA{0, 0, 255, 255})
	opts := ImageRenderOptions{MaxWidth: 10, MaxHeight: 10, BlitMode: HalfBlock, PreserveAspectRatio: true}
	out := scale(src, opts)
	// half-block is 1x2 px per cell
	assert.Assert(t, out.Width <= 10)
	assert.Assert(t, out.Height <= 20)
}

func TestScalePreservesAspectRatio(t *testing.T) {
	src := solidImage(200, 100, color.RGBA{0, 255, 0, 255})
	opts := ImageRenderOptions{MaxWidth: 20, MaxHeight: 20, BlitMode: ASCII, PreserveAspectRatio: true}
	out := scale(src, opts)
	// source is 2:1, output should preserve that ratio (within rounding)
	ratio := float64(out.Width) / float64(out.Height)
	assert.Assert(t, ratio > 1.8 && ratio < 2.2)
}

func TestBayerMatrixSizes(t *testing.T) {
	for _, size := range []int{2, 4, 8} {
		m := bayerMatrix(size)
		assert.Equal(t, len(m), size)
		assert.Equal(t, len(m[0]), size)
		seen := make(map[int]bool)
		for _, row := range m {
			for _, v := range row {
				seen[v] = true
			}
		}
		assert.Equal(t, len(seen), size*size)
	}
}

func TestRedmeanIsZeroForIdenticalColors(t *testing.T) {
	c := color.RGBA{120, 80, 200, 255}
	assert.Equal(t, redmean(c, c), 0.0)
}

func TestRedmeanIsSymmetric(t *testing.T) {
	a := color.RGBA{10, 200, 30, 255}
	b := color.RGBA{220, 20, 90, 255}
	assert.Equal(t, redmean(a, b), redmean(b, a))
}

func TestNearestPaletteColorPicksExactMatch(t *testing.T) {
	palette := []color.RGBA{{0, 0, 0, 255}, {255, 255, 255, 255}, {128, 0, 0, 255}}
	got := nearestPaletteColor(color.RGBA{255, 255, 255, 255}, palette)
	assert.Equal(t, got, color.RGBA{255, 255, 255, 255})
}

func TestFloydSteinbergQuantizesToPaletteMembers(t *testing.T) {
	src := solidImage(8, 8, color.RGBA{130, 130, 130, 255})
	palette := []color.RGBA{{0, 0, 0, 255}, {255, 255, 255, 255}}
	floydSteinberg(src, palette)
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			c := src.Get(x, y)
			assert.Assert(t, c == palette[0] || c == palette[1])
		}
	}
}

func TestBrailleBlitProducesBraillePatternRange(t *testing.T) {
	src := solidImage(2, 4, color.RGBA{255, 255, 255, 255}) // white -> above threshold -> all dots on
	cells := blitBraille(src, ImageRenderOptions{})
	assert.Equal(t, len(cells), 1)
	assert.Equal(t, len(cells[0]), 1)
	r := cells[0][0].Rune
	assert.Assert(t, r >= 0x2800 && r <= 0x28FF)
	assert.Equal(t, r, rune(0x28FF)) // all 8 dots set
}

func TestBrailleBlitAllBlackProducesBlankPattern(t *testing.T) {
	src := solidImage(2, 4, color.RGBA{0, 0, 0, 255})
	cells := blitBraille(src, ImageRenderOptions{})
	assert.Equal(t, cells[0][0].Rune, rune(0x2800))
}

func TestBrailleBlitSinglePixelAboveThresholdSetsMatchingDot(t *testing.T) {
	src := NewPixelBuffer(2, 4)
	src.Set(1, 3, color.RGBA{255, 255, 255, 255}) // dot at (1,3) -> bit 0x80
	cells := blitBraille(src, ImageRenderOptions{})
	assert.Equal(t, cells[0][0].Rune, rune(0x2880))
}

func TestHalfBlockCollapsesNearIdenticalRows(t *testing.T) {
	src := solidImage(1, 2, color.RGBA{100, 100, 100, 255})
	cells := blitHalfBlock(src, ImageRenderOptions{})
	assert.Equal(t, cells[0][0].Rune, ' ')
}

func TestHalfBlockKeepsDistinctRows(t *testing.T) {
	src := NewPixelBuffer(1, 2)
	src.Set(0, 0, color.RGBA{255, 255, 255, 255})
	src.Set(0, 1, color.RGBA{0, 0, 0, 255})
	cells := blitHalfBlock(src, ImageRenderOptions{})
	assert.Equal(t, cells[0][0].Rune, '▀')
	assert.Assert(t, cells[0][0].HasBG)
}

func TestQuadrantAllOnProducesFullBlock(t *testing.T) {
	src := solidImage(2, 2, color.RGBA{255, 255, 255, 255})
	cells := blitQuadrant(src, ImageRenderOptions{})
	assert.Equal(t, cells[0][0].Rune, '█')
}

func TestQuadrantAllOffProducesSpace(t *testing.T) {
	src := solidImage(2, 2, color.RGBA{0, 0, 0, 255})
	cells := blitQuadrant(src, ImageRenderOptions{})
	assert.Equal(t, cells[0][0].Rune, ' ')
}

func TestASCIIRampDarkestIsDenseGlyph(t *testing.T) {
	src := solidImage(1, 1, color.RGBA{0, 0, 0, 255})
	cells := blitASCII(src, ImageRenderOptions{})
	assert.Equal(t, cells[0][0].Rune, rune(asciiRamp[0]))
}

func TestASCIIRampLightestIsSparseGlyph(t *testing.T) {
	src := solidImage(1, 1, color.RGBA{255, 255, 255, 255})
	cells := blitASCII(src, ImageRenderOptions{})
	assert.Equal(t, cells[0][0].Rune, rune(asciiRamp[len(asciiRamp)-1]))
}

func TestAnsi256IndexMatchesPureWhite(t *testing.T) {
	idx := ansi256Index(color.RGBA{255, 255, 255, 255})
	assert.Assert(t, idx >= 16 && idx <= 255)
	assert.Equal(t, idx, 231) // cube entry (5,5,5) = rgb(255,255,255)
}

func TestAnsi16CodeForegroundRange(t *testing.T) {
	code := ansi16Code(color.RGBA{255, 0, 0, 255}, false)
	assert.Assert(t, (code >= 30 && code <= 37) || (code >= 90 && code <= 97))
}

func TestAnsi16CodeBackgroundShift(t *testing.T) {
	fg := ansi16Code(color.RGBA{0, 255, 0, 255}, false)
	bg := ansi16Code(color.RGBA{0, 255, 0, 255}, true)
	assert.Equal(t, bg, fg+10)
}

func TestSerializeTrueColorEmitsSGR(t *testing.T) {
	cells := [][]Cell{{{Rune: 'x', FG: color.RGBA{10, 20, 30, 255}}}}
	out := Serialize(cells, ColorTrueColor)
	assert.Assert(t, strings.Contains(out, "38;2;10;20;30"))
	assert.Assert(t, strings.Contains(out, "x"))
	assert.Assert(t, strings.HasSuffix(out, sgrReset))
}

func TestSerializeNoneEmitsOnlyGlyphs(t *testing.T) {
	cells := [][]Cell{{{Rune: 'x', FG: color.RGBA{10, 20, 30, 255}}}}
	out := Serialize(cells, ColorNone)
	assert.Equal(t, out, "x")
}

func TestRenderEndToEndProducesGrid(t *testing.T) {
	src := solidImage(16, 16, color.RGBA{50, 150, 250, 255})
	opts := ImageRenderOptions{
		MaxWidth: 4, MaxHeight: 4, BlitMode: HalfBlock,
		ColorSupport: ColorTrueColor, PreserveAspectRatio: true,
	}
	grid := Render(src, opts)
	assert.Assert(t, len(grid) > 0)
	assert.Assert(t, len(grid[0]) > 0)
}
