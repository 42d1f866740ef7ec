package render

import (
	"strings"

	"golang.org/x/image/font"

	"spanedit/internal/editor"
	"spanedit/pkg/spans"
	"spanedit/pkg/style"
)

// Segment is a run of one line sharing a single style set. From and To are
// document rune offsets, To exclusive.
type Segment struct {
	From   int
	To     int
	Text   string
	Styles style.Set
	Attr   Attr
	Width  int

	face font.Face
}

// Line is one paragraph laid out without wrapping. X and Y locate the top
// left corner of the line box.
type Line struct {
	Start    int
	Segments []Segment
	X        int
	Y        int
	Ascent   int
	Height   int
	Width    int
}

func (l Line) Bullet() bool {
	for _, s := range l.Segments {
		if s.Attr.Bullet {
			return true
		}
	}
	return false
}

type Layout struct {
	Lines  []Line
	Width  int
	Height int
}

// NewLayout measures every line of doc. base is the font size of unstyled
// text.
func NewLayout(doc *editor.Document, bank *FontBank, th Theme, base int) *Layout {
	text := []rune(doc.Text())
	in := doc.Spans()
	l := &Layout{}

	y := th.MarginPx
	for start := 0; ; {
		end := start
		for end < len(text) && text[end] != '\n' {
			end++
		}

		line := layoutLine(text, in, start, end, bank, th, base)
		line.Y = y
		l.Lines = append(l.Lines, line)
		l.Width = max(l.Width, line.X+line.Width+th.MarginPx)
		y += line.Height

		if end >= len(text) {
			break
		}
		start = end + 1
	}
	l.Height = y + th.MarginPx
	return l
}

func layoutLine(text []rune, in []spans.Span, start, end int, bank *FontBank, th Theme, base int) Line {
	line := Line{Start: start, X: th.MarginPx}

	var cur *Segment
	for i := start; i < end; i++ {
		set, _ := spans.StylesAt(in, i)
		if cur == nil || !cur.Styles.Equal(set) {
			line.Segments = append(line.Segments, Segment{From: i, To: i, Styles: set})
			cur = &line.Segments[len(line.Segments)-1]
		}
		cur.To = i + 1
	}
	if len(line.Segments) == 0 {
		line.Segments = append(line.Segments, Segment{From: start, To: start})
	}

	descent := 0
	for i := range line.Segments {
		seg := &line.Segments[i]
		seg.Attr = Resolve(seg.Styles, base, th)
		seg.Text = strings.ReplaceAll(string(text[seg.From:seg.To]), string(editor.Placeholder), "")
		seg.face = bank.Face(seg.Attr)
		seg.Width = Measure(seg.face, seg.Text)
		m := seg.face.Metrics()
		line.Ascent = max(line.Ascent, m.Ascent.Round())
		descent = max(descent, m.Descent.Round())
		line.Width += seg.Width
		if seg.Attr.Bullet {
			line.X = th.MarginPx + th.IndentPx
		}
	}
	line.Height = max(line.Ascent+descent+th.LineGapPx, 1)
	return line
}
