package image

import "image/color"

// ansi256Levels is the 6-step intensity ramp used by both the palette
// cube and the SGR 256-color index formula in serialize.go.
var ansi256Levels = [6]uint8{0, 95, 135, 175, 215, 255}

// paletteFor returns the discrete color set dithering should quantize
// against for a given ColorSupport. TrueColor
// needs no palette (dither is skipped for it in Render); None has no
// color channel at all, so it also returns no palette.
func paletteFor(cs ColorSupport) []color.RGBA {
	switch cs {
	case ColorMono:
		return []color.RGBA{{0, 0, 0, 255}, {255, 255, 255, 255}}
	case ColorAnsi16:
		return ansi16Palette()
	case ColorAnsi256:
		return ansi256Palette()
	default:
		return nil
	}
}

func ansi16Palette() []color.RGBA {
	base := []color.RGBA{
		{0, 0, 0, 255}, {128, 0, 0, 255}, {0, 128, 0, 255}, {128, 128, 0, 255},
		{0, 0, 128, 255}, {128, 0, 128, 255}, {0, 128, 128, 255}, {192, 192, 192, 255},
		{128, 128, 128, 255}, {255, 0, 0, 255}, {0, 255, 0, 255}, {255, 255, 0, 255},
		{0, 0, 255, 255}, {255, 0, 255, 255}, {0, 255, 255, 255}, {255, 255, 255, 255},
	}
	return base
}

// ansi256Palette builds the 256-entry xterm palette: 16 system colors,
// a 6×6×6 RGB cube, and a 24-step grayscale ramp, matching the index
// formulas serialize.go uses for SGR output.
func ansi256Palette() []color.RGBA {
	out := make([]color.RGBA, 0, 256)
	out = append(out, ansi16Palette()...)
	for r := 0; r < 6; r++ {
		for g := 0; g < 6; g++ {
			for b := 0; b < 6; b++ {
				out = append(out, color.RGBA{R: ansi256Levels[r], G: ansi256Levels[g], B: ansi256Levels[b], A: 255})
			}
		}
	}
	for i := 0; i < 24; i++ {
		v := uint8(8 + i*10)
		out = append(out, color.RGBA{R: v, G: v, B: v, A: 255})
	}
	return out
}
