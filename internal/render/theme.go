package render

import "image/color"

// Theme holds colors and spacing of a rendered page.
type Theme struct {
	Page      color.RGBA
	Border    color.RGBA
	Text      color.RGBA
	Accent    color.RGBA
	Muted     color.RGBA
	MarginPx  int
	LineGapPx int
	IndentPx  int
}

func DefaultTheme() Theme {
	return Theme{
		Page:      color.RGBA{0xFF, 0xFF, 0xFF, 0xFF},
		Border:    color.RGBA{0xB2, 0xBF, 0xD0, 0xFF},
		Text:      color.RGBA{0x20, 0x20, 0x20, 0xFF},
		Accent:    color.RGBA{0x2B, 0x57, 0x9A, 0xFF},
		Muted:     color.RGBA{0x5A, 0x64, 0x73, 0xFF},
		MarginPx:  24,
		LineGapPx: 4,
		IndentPx:  24,
	}
}
