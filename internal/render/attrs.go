// Package render turns styled documents into drawable runs: resolved
// rendering attributes, measured line layouts and raster previews.
package render

import (
	"fmt"
	"image/color"
	"strings"

	"spanedit/pkg/style"
)

// Attr is everything needed to draw a run of text.
type Attr struct {
	SizePt    int
	Bold      bool
	Italic    bool
	Underline bool
	Bullet    bool
	Block     string
	Color     color.RGBA
}

func (a Attr) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%dpt", a.SizePt)
	for _, f := range []struct {
		on   bool
		name string
	}{{a.Bold, "bold"}, {a.Italic, "italic"}, {a.Underline, "underline"}, {a.Bullet, "bullet"}} {
		if f.on {
			b.WriteString(" " + f.name)
		}
	}
	if a.Block != "" {
		b.WriteString(" block=" + a.Block)
	}
	fmt.Fprintf(&b, " #%02x%02x%02x", a.Color.R, a.Color.G, a.Color.B)
	return b.String()
}

type transform func(a *Attr, st style.Style, base int, th Theme)

// headerScale is indexed by header level.
var headerScale = [...]float64{1, 2.0, 1.6, 1.35, 1.2, 1.1, 1.0}

func scaled(base int, f float64) int {
	return int(float64(base)*f + 0.5)
}

// kindTable maps every style kind to the change it makes to the attributes.
// Explicit font sizes are applied after all of these.
var kindTable = map[style.Kind]transform{
	style.KindBold:      func(a *Attr, _ style.Style, _ int, _ Theme) { a.Bold = true },
	style.KindItalic:    func(a *Attr, _ style.Style, _ int, _ Theme) { a.Italic = true },
	style.KindUnderline: func(a *Attr, _ style.Style, _ int, _ Theme) { a.Underline = true },
	style.KindBullet: func(a *Attr, _ style.Style, _ int, _ Theme) {
		a.Bullet = true
		a.Block = "bullet"
	},
	style.KindHeader: func(a *Attr, st style.Style, base int, _ Theme) {
		a.SizePt = scaled(base, headerScale[st.Value])
		a.Bold = true
		a.Block = st.Key()
	},
	style.KindTitle: func(a *Attr, _ style.Style, base int, th Theme) {
		a.SizePt = scaled(base, 2.4)
		a.Bold = true
		a.Block = "title"
		a.Color = th.Accent
	},
	style.KindSubtitle: func(a *Attr, _ style.Style, base int, th Theme) {
		a.SizePt = scaled(base, 1.5)
		a.Italic = true
		a.Block = "subtitle"
		a.Color = th.Muted
	},
	style.KindNormal:   func(*Attr, style.Style, int, Theme) {},
	style.KindFontSize: func(*Attr, style.Style, int, Theme) {},
}

// Resolve computes the attributes of text carrying set, with base as the
// implicit font size.
func Resolve(set style.Set, base int, th Theme) Attr {
	a := Attr{SizePt: base, Color: th.Text}
	for _, st := range set.Styles() {
		if fn, ok := kindTable[st.Kind]; ok {
			fn(&a, st, base, th)
		}
	}
	if pt, ok := set.FontSizeValue(); ok {
		a.SizePt = pt
	}
	return a
}
