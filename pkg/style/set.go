package style

import (
	"slices"
	"strings"
)

// Set is an immutable, order independent collection of styles. The zero value
// is the empty set. Every method returning a Set returns a new value; the
// receiver is never modified.
type Set struct {
	items []Style // sorted, unique, never contains Normal
}

// NewSet builds a set from styles, applying the same exclusivity rules as With.
func NewSet(styles ...Style) Set {
	var s Set
	for _, st := range styles {
		s = s.With(st)
	}
	return s
}

// ParseKeys builds a set from interchange keys.
func ParseKeys(keys []string) (Set, error) {
	var s Set
	for _, k := range keys {
		st, err := ParseKey(k)
		if err != nil {
			return Set{}, err
		}
		s = s.With(st)
	}
	return s, nil
}

func (s Set) Len() int {
	return len(s.items)
}

func (s Set) Empty() bool {
	return len(s.items) == 0
}

func (s Set) Has(st Style) bool {
	_, ok := slices.BinarySearchFunc(s.items, st, compare)
	return ok
}

// HasKind reports whether any style of the given kind is present.
func (s Set) HasKind(k Kind) bool {
	for _, st := range s.items {
		if st.Kind == k {
			return true
		}
	}
	return false
}

// Paragraph returns the exclusive paragraph style of the set, if any.
func (s Set) Paragraph() (Style, bool) {
	for _, st := range s.items {
		if st.Exclusive() {
			return st, true
		}
	}
	return Style{}, false
}

// FontSizeValue returns the font size carried by the set, if any.
func (s Set) FontSizeValue() (int, bool) {
	for _, st := range s.items {
		if st.Kind == KindFontSize {
			return st.Value, true
		}
	}
	return 0, false
}

// With returns s plus st. Adding an exclusive paragraph style evicts the
// previous one, adding a font size replaces the previous size, and adding
// Normal only evicts.
func (s Set) With(st Style) Set {
	if !st.Valid() {
		return s
	}
	out := make([]Style, 0, len(s.items)+1)
	for _, cur := range s.items {
		if st.Exclusive() && cur.Exclusive() {
			continue
		}
		if st.Kind == KindFontSize && cur.Kind == KindFontSize {
			continue
		}
		if cur == st {
			continue
		}
		out = append(out, cur)
	}
	if st.Kind != KindNormal {
		out = append(out, st)
		slices.SortFunc(out, compare)
	}
	return Set{items: out}
}

// Without returns s minus st. Removing Normal is a no-op.
func (s Set) Without(st Style) Set {
	if !s.Has(st) {
		return s
	}
	out := make([]Style, 0, len(s.items)-1)
	for _, cur := range s.items {
		if cur != st {
			out = append(out, cur)
		}
	}
	return Set{items: out}
}

// WithoutFunc returns s minus every style for which drop reports true.
func (s Set) WithoutFunc(drop func(Style) bool) Set {
	out := make([]Style, 0, len(s.items))
	for _, cur := range s.items {
		if !drop(cur) {
			out = append(out, cur)
		}
	}
	if len(out) == len(s.items) {
		return s
	}
	return Set{items: out}
}

// Union merges o into s. Conflicts (two paragraph styles, two font sizes) are
// resolved in favor of o.
func (s Set) Union(o Set) Set {
	out := s
	for _, st := range o.items {
		out = out.With(st)
	}
	return out
}

// Equal is set equality.
func (s Set) Equal(o Set) bool {
	return slices.Equal(s.items, o.items)
}

// Styles returns a copy of the members in canonical order.
func (s Set) Styles() []Style {
	return slices.Clone(s.items)
}

// Keys returns interchange keys in canonical order.
func (s Set) Keys() []string {
	out := make([]string, len(s.items))
	for i, st := range s.items {
		out[i] = st.Key()
	}
	return out
}

// Key returns a string that is equal for equal sets.
func (s Set) Key() string {
	return strings.Join(s.Keys(), ",")
}

func (s Set) String() string {
	return "{" + s.Key() + "}"
}

func compare(a, b Style) int {
	switch {
	case less(a, b):
		return -1
	case less(b, a):
		return 1
	}
	return 0
}
