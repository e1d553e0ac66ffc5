// Package image implements the terminal image pipeline: scale a
// decoded image, optionally dither it against a color-support palette,
// blit it to a grid of terminal cells, and serialize those cells to
// ANSI escape sequences.
//
// Scaling goes through golang.org/x/image/draw's Scaler interface.
// ANSI SGR sequence construction is built directly from the 6×6×6
// cube index and grayscale-ramp arithmetic rather than routed through
// a terminal-styling library.
package image

import (
	stdimage "image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// PixelBuffer is a decoded image's raw RGBA pixels, implementing
// image.Image/draw.Image so it composes with golang.org/x/image/draw.
type PixelBuffer struct {
	Width, Height int
	Pix           []color.RGBA // row-major, len == Width*Height
}

func NewPixelBuffer(w, h int) *PixelBuffer {
	return &PixelBuffer{Width: w, Height: h, Pix: make([]color.RGBA, w*h)}
}

func (p *PixelBuffer) ColorModel() color.Model { return color.RGBAModel }
func (p *PixelBuffer) Bounds() stdimage.Rectangle {
	return stdimage.Rect(0, 0, p.Width, p.Height)
}
func (p *PixelBuffer) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= p.Width || y >= p.Height {
		return color.RGBA{}
	}
	return p.Pix[y*p.Width+x]
}
func (p *PixelBuffer) Set(x, y int, c color.Color) {
	if x < 0 || y < 0 || x >= p.Width || y >= p.Height {
		return
	}
	r, g, b, a := c.RGBA()
	p.Pix[y*p.Width+x] = color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
}

func (p *PixelBuffer) Get(x, y int) color.RGBA {
	if x < 0 || y < 0 || x >= p.Width || y >= p.Height {
		return color.RGBA{}
	}
	return p.Pix[y*p.Width+x]
}

var _ draw.Image = (*PixelBuffer)(nil)

// BlitMode selects the cell-glyph scheme used to render pixels.
type BlitMode int

const (
	Braille BlitMode = iota
	HalfBlock
	Quadrant
	ASCII
)

// subcell returns the number of source pixels each cell covers on
// (x, y) for a given blit mode.
func (m BlitMode) subcell() (px, py int) {
	switch m {
	case Braille:
		return 2, 4
	case HalfBlock:
		return 1, 2
	case Quadrant:
		return 2, 2
	default: // ASCII
		return 1, 1
	}
}

// Dithering selects the error-diffusion/ordered-threshold strategy
// applied before blitting, when ColorSupport constrains the palette.
type Dithering int

const (
	NoDither Dithering = iota
	FloydSteinberg
	Ordered
)

// ColorSupport both selects the dither palette and the ANSI
// serialization precision.
type ColorSupport int

const (
	ColorNone ColorSupport = iota
	ColorMono
	ColorAnsi16
	ColorAnsi256
	ColorTrueColor
)

type ImageRenderOptions struct {
	TargetWidth, TargetHeight int // in cells; 0 = unconstrained
	MaxWidth, MaxHeight       int // in cells; the hard clamp
	BlitMode                  BlitMode
	Dithering                 Dithering
	ColorSupport              ColorSupport
	PreserveAspectRatio       bool
	Threshold                 uint8 // grayscale on/off threshold for Braille; default 128 if 0
	FG, BG                    color.RGBA
}

// Cell is one rendered terminal cell: a glyph plus its foreground and,
// for modes that emit one, background color.
type Cell struct {
	Rune  rune
	FG    color.RGBA
	BG    color.RGBA
	HasBG bool
}

// Render runs the full pipeline: scale, optional dither, then
// blit, producing a row-major grid of cells sized to fit within
// opts.MaxWidth × opts.MaxHeight.
func Render(src stdimage.Image, opts ImageRenderOptions) [][]Cell {
	scaled := scale(src, opts)
	if opts.ColorSupport != ColorTrueColor && opts.Dithering != NoDither {
		dither(scaled, opts)
	}
	return blit(scaled, opts)
}

// --- Stage 1: scale ---

func scale(src stdimage.Image, opts ImageRenderOptions) *PixelBuffer {
	px, py := opts.BlitMode.subcell()
	maxW, maxH := opts.MaxWidth, opts.MaxHeight
	if w := opts.TargetWidth; w > 0 && w < maxW {
		maxW = w
	}
	if h := opts.TargetHeight; h > 0 && h < maxH {
		maxH = h
	}
	if maxW <= 0 {
		maxW = 1
	}
	if maxH <= 0 {
		maxH = 1
	}
	maxPxW := maxW * px
	maxPxH := maxH * py

	b := src.Bounds()
	srcW, srcH := b.Dx(), b.Dy()
	if srcW <= 0 || srcH <= 0 {
		return NewPixelBuffer(1, 1)
	}

	destW, destH := srcW, srcH
	if opts.PreserveAspectRatio {
		scaleX := float64(maxPxW) / float64(srcW)
		scaleY := float64(maxPxH) / float64(srcH)
		s := scaleX
		if scaleY < s {
			s = scaleY
		}
		if s < 1 { // never upscale beyond 1x
			destW = int(float64(srcW)*s + 0.5)
			destH = int(float64(srcH)*s + 0.5)
		}
	} else {
		if srcW > maxPxW {
			destW = maxPxW
		}
		if srcH > maxPxH {
			destH = maxPxH
		}
	}
	if destW < 1 {
		destW = 1
	}
	if destH < 1 {
		destH = 1
	}
	if destW == srcW && destH == srcH {
		out := NewPixelBuffer(destW, destH)
		draw.Draw(out, out.Bounds(), src, b.Min, draw.Src)
		return out
	}

	out := NewPixelBuffer(destW, destH)
	var scaler xdraw.Interpolator = xdraw.BiLinear
	if opts.BlitMode == ASCII {
		scaler = xdraw.NearestNeighbor
	}
	scaler.Scale(out, out.Bounds(), src, b, xdraw.Over, nil)
	return out
}

// --- Stage 2: dither ---

func dither(buf *PixelBuffer, opts ImageRenderOptions) {
	palette := paletteFor(opts.ColorSupport)
	if len(palette) == 0 {
		return
	}
	switch opts.Dithering {
	case FloydSteinberg:
		floydSteinberg(buf, palette)
	case Ordered:
		ordered(buf, palette)
	}
}

// floydSteinberg implements serpentine error diffusion with weights 7/16 right, 3/16 down-left, 5/16 down, 1/16 down-right
// (mirrored on right-to-left rows).
func floydSteinberg(buf *PixelBuffer, palette []color.RGBA) {
	type errRGB struct{ r, g, b float64 }
	errs := make([]errRGB, buf.Width*buf.Height)

	for y := 0; y < buf.Height; y++ {
		leftToRight := y%2 == 0
		xs := make([]int, buf.Width)
		for i := range xs {
			if leftToRight {
				xs[i] = i
			} else {
				xs[i] = buf.Width - 1 - i
			}
		}
		for _, x := range xs {
			idx := y*buf.Width + x
			orig := buf.Get(x, y)
			r := clamp8(float64(orig.R) + errs[idx].r)
			g := clamp8(float64(orig.G) + errs[idx].g)
			b := clamp8(float64(orig.B) + errs[idx].b)
			adjusted := color.RGBA{R: r, G: g, B: b, A: orig.A}
			quantized := nearestPaletteColor(adjusted, palette)
			buf.Set(x, y, quantized)

			dr := float64(adjusted.R) - float64(quantized.R)
			dg := float64(adjusted.G) - float64(quantized.G)
			db := float64(adjusted.B) - float64(quantized.B)

			fwd := 1
			if !leftToRight {
				fwd = -1
			}
			diffuse := func(dx, dy int, w float64) {
				nx, ny := x+dx*fwd, y+dy
				if nx < 0 || nx >= buf.Width || ny < 0 || ny >= buf.Height {
					return
				}
				ni := ny*buf.Width + nx
				errs[ni].r += dr * w
				errs[ni].g += dg * w
				errs[ni].b += db * w
			}
			diffuse(1, 0, 7.0/16)
			diffuse(-1, 1, 3.0/16)
			diffuse(0, 1, 5.0/16)
			diffuse(1, 1, 1.0/16)
		}
	}
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// ordered implements Bayer ordered dithering; matrix size
// is fixed at 4 (the common middle ground between 2 and 8).
func ordered(buf *PixelBuffer, palette []color.RGBA) {
	matrix := bayerMatrix(4)
	n := len(matrix)
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			orig := buf.Get(x, y)
			threshold := (float64(matrix[y%n][x%n])/float64(n*n) - 0.5) * 64
			r := clamp8(float64(orig.R) + threshold)
			g := clamp8(float64(orig.G) + threshold)
			b := clamp8(float64(orig.B) + threshold)
			buf.Set(x, y, nearestPaletteColor(color.RGBA{R: r, G: g, B: b, A: orig.A}, palette))
		}
	}
}

// bayerMatrix generates a size×size Bayer threshold matrix recursively
// from the base 2×2 matrix. size must be a power of two.
func bayerMatrix(size int) [][]int {
	if size <= 2 {
		return [][]int{{0, 2}, {3, 1}}
	}
	half := bayerMatrix(size / 2)
	n := len(half)
	out := make([][]int, size)
	for i := range out {
		out[i] = make([]int, size)
	}
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			v := half[y][x] * 4
			out[y][x] = v
			out[y][x+n] = v + 2
			out[y+n][x] = v + 3
			out[y+n][x+n] = v + 1
		}
	}
	return out
}

// redmean is the red-mean weighted Euclidean color distance:
// rMean=(a.r+b.r)/2, channel weights (2+rMean/256, 4, 2+(255-rMean)/256).
func redmean(a, b color.RGBA) float64 {
	rMean := (float64(a.R) + float64(b.R)) / 2
	dr := float64(a.R) - float64(b.R)
	dg := float64(a.G) - float64(b.G)
	db := float64(a.B) - float64(b.B)
	wr := 2 + rMean/256
	wg := 4.0
	wb := 2 + (255-rMean)/256
	return wr*dr*dr + wg*dg*dg + wb*db*db
}

func nearestPaletteColor(c color.RGBA, palette []color.RGBA) color.RGBA {
	best := palette[0]
	bestDist := redmean(c, best)
	for _, p := range palette[1:] {
		if d := redmean(c, p); d < bestDist {
			best, bestDist = p, d
		}
	}
	return best
}
