package spans

import (
	"cmp"
	"slices"

	"spanedit/pkg/style"
)

// Apply rewrites the style sets over the inclusive range [from, to] with mut.
// Spans straddling a boundary are split so only the range is affected, and
// runes inside the range that no span covers are treated as unstyled and get
// mut(empty set). The result is sorted but not normalized.
func Apply(in []Span, from, to int, mut func(style.Set) style.Set) []Span {
	if mut == nil || to < from {
		return slices.Clone(in)
	}
	out := make([]Span, 0, len(in)+3)
	covered := make([]Span, 0, len(in))
	for _, s := range in {
		if s.To < from || s.From > to {
			out = append(out, s)
			continue
		}
		if s.From < from {
			out = append(out, Span{From: s.From, To: from - 1, Styles: s.Styles})
		}
		mid := Span{From: max(s.From, from), To: min(s.To, to), Styles: mut(s.Styles)}
		out = append(out, mid)
		covered = append(covered, mid)
		if s.To > to {
			out = append(out, Span{From: to + 1, To: s.To, Styles: s.Styles})
		}
	}

	slices.SortFunc(covered, func(a, b Span) int { return cmp.Compare(a.From, b.From) })
	fill := mut(style.Set{})
	if !fill.Empty() {
		next := from
		for _, c := range covered {
			if c.From > next {
				out = append(out, Span{From: next, To: c.From - 1, Styles: fill})
			}
			if c.To+1 > next {
				next = c.To + 1
			}
		}
		if next <= to {
			out = append(out, Span{From: next, To: to, Styles: fill})
		}
	}

	slices.SortFunc(out, func(a, b Span) int {
		return cmp.Or(cmp.Compare(a.From, b.From), cmp.Compare(a.To, b.To))
	})
	return out
}

// Clip returns the parts of in that fall inside [from, to], rebased by shift.
func Clip(in []Span, from, to, shift int) []Span {
	out := make([]Span, 0, len(in))
	for _, s := range in {
		if s.To < from || s.From > to {
			continue
		}
		out = append(out, Span{From: max(s.From, from) + shift, To: min(s.To, to) + shift, Styles: s.Styles})
	}
	return out
}

// StylesIn returns the union of the style sets of spans intersecting [start, end).
func StylesIn(in []Span, start, end int) style.Set {
	var out style.Set
	for _, s := range in {
		if s.Overlaps(start, end) {
			out = out.Union(s.Styles)
		}
	}
	return out
}

// StylesAt returns the style set of the first span covering charIndex.
func StylesAt(in []Span, charIndex int) (style.Set, bool) {
	for _, s := range in {
		if s.Contains(charIndex) {
			return s.Styles, true
		}
	}
	return style.Set{}, false
}

// HasIn reports whether any span intersecting [start, end) carries st. Unlike
// StylesIn it sees every paragraph style, not just the last one merged.
func HasIn(in []Span, start, end int, st style.Style) bool {
	for _, s := range in {
		if s.Overlaps(start, end) && s.Styles.Has(st) {
			return true
		}
	}
	return false
}
