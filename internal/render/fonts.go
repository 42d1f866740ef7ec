package render

import (
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

type fontKey struct {
	size   int
	bold   bool
	italic bool
}

// FontBank hands out cached Go font faces by size and variant. When fonts
// cannot be parsed every face is the fixed basic font.
type FontBank struct {
	regular    *opentype.Font
	bold       *opentype.Font
	italic     *opentype.Font
	boldItalic *opentype.Font
	cache      map[fontKey]font.Face
}

func NewFontBank() *FontBank {
	bank := &FontBank{cache: map[fontKey]font.Face{}}
	fonts := make([]*opentype.Font, 0, 4)
	for _, ttf := range [][]byte{goregular.TTF, gobold.TTF, goitalic.TTF, gobolditalic.TTF} {
		f, err := opentype.Parse(ttf)
		if err != nil {
			return bank
		}
		fonts = append(fonts, f)
	}
	bank.regular, bank.bold, bank.italic, bank.boldItalic = fonts[0], fonts[1], fonts[2], fonts[3]
	return bank
}

func (b *FontBank) Face(a Attr) font.Face {
	key := fontKey{size: max(a.SizePt, 1), bold: a.Bold, italic: a.Italic}
	if f, ok := b.cache[key]; ok {
		return f
	}
	var base *opentype.Font
	switch {
	case key.bold && key.italic:
		base = b.boldItalic
	case key.bold:
		base = b.bold
	case key.italic:
		base = b.italic
	default:
		base = b.regular
	}
	if base == nil {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(base, &opentype.FaceOptions{Size: float64(key.size), DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return basicfont.Face7x13
	}
	b.cache[key] = face
	return face
}

// Measure returns the advance of s in whole pixels.
func Measure(face font.Face, s string) int {
	if face == nil || s == "" {
		return 0
	}
	// 26.6 fixed point, rounded
	return max((int(font.MeasureString(face, s))+32)>>6, 0)
}
