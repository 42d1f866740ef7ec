package spans

import (
	"fmt"
	"slices"

	"spanedit/pkg/style"
)

// Span is an inclusive rune range [From, To] carrying a style set.
type Span struct {
	From   int
	To     int
	Styles style.Set
}

func (s Span) Len() int {
	return s.To - s.From + 1
}

func (s Span) Contains(charIndex int) bool {
	return s.From <= charIndex && charIndex <= s.To
}

// Overlaps reports whether the span intersects the half-open range [start, end).
func (s Span) Overlaps(start, end int) bool {
	return s.To+1 > start && s.From < end
}

func (s Span) Equal(o Span) bool {
	return s.From == o.From && s.To == o.To && s.Styles.Equal(o.Styles)
}

func (s Span) String() string {
	return fmt.Sprintf("[%d,%d]%v", s.From, s.To, s.Styles)
}

// Side selects which boundary FindByBoundary matches.
type Side uint8

const (
	Start Side = iota
	End
)

// Table is an ordered span collection. It owns its slice; callers get copies.
type Table struct {
	spans []Span
}

func NewTable(in []Span) *Table {
	return &Table{spans: slices.Clone(in)}
}

func (t *Table) Len() int {
	return len(t.spans)
}

func (t *Table) At(pos int) Span {
	return t.spans[pos]
}

func (t *Table) Set(pos int, s Span) {
	if pos < 0 || pos >= len(t.spans) {
		return
	}
	t.spans[pos] = s
}

// Spans returns a copy of the table contents.
func (t *Table) Spans() []Span {
	return slices.Clone(t.spans)
}

// Replace swaps the whole table contents.
func (t *Table) Replace(in []Span) {
	t.spans = slices.Clone(in)
}

func (t *Table) Insert(pos int, s Span) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(t.spans) {
		pos = len(t.spans)
	}
	t.spans = slices.Insert(t.spans, pos, s)
}

func (t *Table) Delete(pos int) {
	if pos < 0 || pos >= len(t.spans) {
		return
	}
	t.spans = slices.Delete(t.spans, pos, pos+1)
}

// Shift adds by to both bounds of every span at table positions
// [fromIndex, toIndex].
func (t *Table) Shift(fromIndex, toIndex, by int) {
	if fromIndex < 0 {
		fromIndex = 0
	}
	if toIndex >= len(t.spans) {
		toIndex = len(t.spans) - 1
	}
	for i := fromIndex; i <= toIndex; i++ {
		t.spans[i].From += by
		t.spans[i].To += by
	}
}

// ShiftFrom shifts every span starting at or after charIndex.
func (t *Table) ShiftFrom(charIndex, by int) {
	for i := range t.spans {
		if t.spans[i].From >= charIndex {
			t.spans[i].From += by
			t.spans[i].To += by
		}
	}
}

// FindCovering returns the table position of the first span containing
// charIndex.
func (t *Table) FindCovering(charIndex int) (int, bool) {
	for i, s := range t.spans {
		if s.Contains(charIndex) {
			return i, true
		}
	}
	return -1, false
}

// FindByBoundary returns a span starting exactly at charIndex (Start) or ending
// exactly at charIndex-1 (End).
func (t *Table) FindByBoundary(charIndex int, side Side) (int, bool) {
	for i, s := range t.spans {
		switch side {
		case Start:
			if s.From == charIndex {
				return i, true
			}
		case End:
			if s.To == charIndex-1 {
				return i, true
			}
		}
	}
	return -1, false
}

// SplitAt divides the span at pos: left ends at charIndex-1, right starts at
// charIndex. The table itself is not modified.
func (t *Table) SplitAt(pos, charIndex int) (Span, Span) {
	s := t.spans[pos]
	left := Span{From: s.From, To: charIndex - 1, Styles: s.Styles}
	right := Span{From: charIndex, To: s.To, Styles: s.Styles}
	return left, right
}

// InsertionPoint returns the table position at which a span starting at
// charIndex keeps the table sorted.
func (t *Table) InsertionPoint(charIndex int) int {
	for i, s := range t.spans {
		if s.From >= charIndex {
			return i
		}
	}
	return len(t.spans)
}

// Overlapping returns table positions of spans intersecting [start, end).
func (t *Table) Overlapping(start, end int) []int {
	var out []int
	for i, s := range t.spans {
		if s.Overlaps(start, end) {
			out = append(out, i)
		}
	}
	return out
}
