package spans

import (
	"cmp"
	"slices"
	"strings"

	"spanedit/pkg/style"
)

// Normalize returns the canonical form of in for a text whose last rune index
// is lastIndex (len-1, so -1 for empty text). Bounds are clamped, degenerate
// and unstyled spans dropped, and equal-set spans that touch or overlap merged.
// The input slice is not modified. Normalize is idempotent.
func Normalize(in []Span, lastIndex int) []Span {
	if lastIndex < 0 || len(in) == 0 {
		return nil
	}

	groups := make(map[string][]Span)
	order := make([]string, 0)
	for _, s := range in {
		if s.From < 0 {
			s.From = 0
		}
		if s.To > lastIndex {
			s.To = lastIndex
		}
		if s.To < s.From || s.Styles.Empty() {
			continue
		}
		key := s.Styles.Key()
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], s)
	}

	out := make([]Span, 0, len(in))
	for _, key := range order {
		group := groups[key]
		slices.SortFunc(group, func(a, b Span) int {
			return cmp.Or(cmp.Compare(a.From, b.From), cmp.Compare(a.To, b.To))
		})
		cur := group[0]
		for _, s := range group[1:] {
			if s.From <= cur.To+1 {
				if s.To > cur.To {
					cur.To = s.To
				}
				continue
			}
			out = append(out, cur)
			cur = s
		}
		out = append(out, cur)
	}

	slices.SortFunc(out, func(a, b Span) int {
		return cmp.Or(cmp.Compare(a.From, b.From), cmp.Compare(a.To, b.To), strings.Compare(a.Styles.Key(), b.Styles.Key()))
	})
	if len(out) == 0 {
		return nil
	}
	return out
}

// IsCanonical reports whether Normalize(in, lastIndex) would return in unchanged.
func IsCanonical(in []Span, lastIndex int) bool {
	norm := Normalize(in, lastIndex)
	if len(norm) != len(in) {
		return false
	}
	for i := range in {
		if !in[i].Equal(norm[i]) {
			return false
		}
	}
	return true
}

// Flatten resolves overlapping spans into disjoint ones whose sets are the
// union of every input span covering them. Later spans win conflicts between
// exclusive styles. The result is canonical.
func Flatten(in []Span, lastIndex int) []Span {
	if lastIndex < 0 || len(in) == 0 {
		return nil
	}
	cuts := make([]int, 0, 2*len(in))
	for _, s := range in {
		if s.To < s.From {
			continue
		}
		cuts = append(cuts, max(s.From, 0), min(s.To, lastIndex)+1)
	}
	slices.Sort(cuts)
	cuts = slices.Compact(cuts)

	out := make([]Span, 0, len(cuts))
	for i := 0; i+1 < len(cuts); i++ {
		from, to := cuts[i], cuts[i+1]-1
		var set style.Set
		for _, s := range in {
			if s.Contains(from) {
				set = set.Union(s.Styles)
			}
		}
		out = append(out, Span{From: from, To: to, Styles: set})
	}
	return Normalize(out, lastIndex)
}
