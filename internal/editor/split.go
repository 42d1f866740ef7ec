package editor

import (
	"fmt"
	"slices"

	"spanedit/pkg/spans"
)

// Split divides d at pos into two documents. A newline at pos is treated as
// the separator and belongs to neither half, so Merge(Split(d, k)) restores d
// only when k sits on a line break; anywhere else the round trip adds one.
// Options are inherited from d.
func Split(d *Document, pos int) (*Document, *Document, error) {
	if pos < 0 || pos > len(d.text) {
		return nil, nil, fmt.Errorf("%w: split position %d outside [0,%d]", ErrInvalidArgument, pos, len(d.text))
	}
	rightStart := pos
	if pos < len(d.text) && d.text[pos] == '\n' {
		rightStart = pos + 1
	}

	all := d.table.Spans()
	left := spans.Clip(all, 0, pos-1, 0)
	right := spans.Clip(all, rightStart, len(d.text)-1, -rightStart)

	return d.derive(slices.Clone(d.text[:pos]), left), d.derive(slices.Clone(d.text[rightStart:]), right), nil
}

// Merge joins a and b with a newline. The result takes a's options and puts
// the caret on the joint.
func Merge(a, b *Document) *Document {
	text := slices.Concat(a.text, []rune{'\n'}, b.text)
	shift := len(a.text) + 1
	in := a.table.Spans()
	// a run styled identically on both sides of the joint covers the newline
	for _, l := range a.table.Spans() {
		if l.To != len(a.text)-1 {
			continue
		}
		for _, r := range b.table.Spans() {
			if r.From == 0 && r.Styles.Equal(l.Styles) {
				in = append(in, spans.Span{From: len(a.text), To: len(a.text), Styles: l.Styles})
			}
		}
	}
	for _, s := range b.table.Spans() {
		s.From += shift
		s.To += shift
		in = append(in, s)
	}
	out := a.derive(text, in)
	out.selection = Caret(len(a.text))
	return out
}
