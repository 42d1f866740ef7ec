package editor

import (
	"slices"

	"go.uber.org/zap"

	"spanedit/pkg/spans"
	"spanedit/pkg/style"
)

// CurrentStyles reports the styles at the selection. A collapsed caret yields
// the explicit pending set when one is active, otherwise the styles around the
// caret; a range yields the union of all spans it intersects.
func (d *Document) CurrentStyles() style.Set {
	sel := d.selection
	if sel.Collapsed() {
		if d.hasPending {
			return d.pending
		}
		return d.caretStyles(sel.Start)
	}
	return spans.StylesIn(d.table.Spans(), sel.Start, sel.End)
}

// HasStyle reports whether st is active at the selection. Normal is active
// when no exclusive paragraph style is.
func (d *Document) HasStyle(st style.Style) bool {
	sel := d.selection
	if st.Kind == style.KindNormal {
		if sel.Collapsed() {
			_, ok := d.CurrentStyles().Paragraph()
			return !ok
		}
		for _, s := range d.table.Spans() {
			if s.Overlaps(sel.Start, sel.End) {
				if _, ok := s.Styles.Paragraph(); ok {
					return false
				}
			}
		}
		return true
	}
	if sel.Collapsed() {
		return d.CurrentStyles().Has(st)
	}
	return spans.HasIn(d.table.Spans(), sel.Start, sel.End, st)
}

// Toggle removes st when it is active at the selection and adds it otherwise.
func (d *Document) Toggle(st style.Style) {
	if d.HasStyle(st) {
		d.Remove(st)
		return
	}
	d.Add(st)
}

// Add applies st to the selection. On a collapsed caret run styles only
// change the pending set; paragraph styles also rewrite the caret's line.
func (d *Document) Add(st style.Style) {
	if !st.Valid() {
		return
	}
	d.mutate(st.ParagraphScoped(), func(s style.Set) style.Set { return s.With(st) })
	if st == style.Bullet && d.selection.Collapsed() {
		d.ensurePlaceholder()
	}
}

// Remove drops st from the selection, mirroring Add.
func (d *Document) Remove(st style.Style) {
	if !st.Valid() {
		return
	}
	if st == style.Bullet && d.selection.Collapsed() && d.dropPlaceholder() {
		return
	}
	d.mutate(st.ParagraphScoped(), func(s style.Set) style.Set { return s.Without(st) })
}

// SetStyle clears the current style set, then adds st: the pending set on a
// collapsed caret, the selected range otherwise.
func (d *Document) SetStyle(st style.Style) {
	if !st.Valid() {
		return
	}
	d.Clear()
	d.Add(st)
}

// Clear drops every style from the selection, or empties the pending set on
// a collapsed caret.
func (d *Document) Clear() {
	sel := d.selection
	if sel.Collapsed() {
		d.setPending(style.Set{})
		return
	}
	d.applyRange(sel.Start, sel.End-1, func(style.Set) style.Set { return style.Set{} })
	d.normalize()
}

// SetFontSize applies a font size clamped to the document bounds. The default
// size is stored as the absence of a size.
func (d *Document) SetFontSize(pt int) {
	pt = min(max(pt, d.minFont), d.maxFont)
	d.mutate(false, func(s style.Set) style.Set { return d.withFontSize(s, pt) })
}

func (d *Document) IncreaseFontSize() {
	d.stepFontSize(1)
}

func (d *Document) DecreaseFontSize() {
	d.stepFontSize(-1)
}

func (d *Document) stepFontSize(delta int) {
	d.mutate(false, func(s style.Set) style.Set {
		cur, ok := s.FontSizeValue()
		if !ok {
			cur = d.defaultFont
		}
		return d.withFontSize(s, min(max(cur+delta, d.minFont), d.maxFont))
	})
}

func (d *Document) withFontSize(s style.Set, pt int) style.Set {
	if pt == d.defaultFont {
		return s.WithoutFunc(func(st style.Style) bool { return st.Kind == style.KindFontSize })
	}
	return s.With(style.FontSize(pt))
}

// mutate applies fn at the selection. paragraph widens a range to the whole
// lines it touches; on a collapsed caret it rewrites the caret's line as well
// as the pending set.
func (d *Document) mutate(paragraph bool, fn func(style.Set) style.Set) {
	sel := d.selection
	if sel.Collapsed() {
		d.setPending(fn(d.CurrentStyles()))
		if paragraph {
			ps, pe := d.paragraphAt(sel.Start)
			d.applyRange(ps, pe-1, fn)
			d.normalize()
		}
		return
	}
	if !paragraph {
		d.applyRange(sel.Start, sel.End-1, fn)
		d.normalize()
		return
	}
	for _, p := range d.paragraphsIn(sel.Start, sel.End) {
		d.applyRange(p[0], p[1]-1, fn)
	}
	d.normalize()
}

func (d *Document) applyRange(from, to int, fn func(style.Set) style.Set) {
	if to < from {
		return
	}
	d.table.Replace(spans.Apply(d.table.Spans(), from, to, fn))
}

// paragraphsIn lists the non-empty lines intersecting [start, end).
func (d *Document) paragraphsIn(start, end int) [][2]int {
	var out [][2]int
	pos := start
	for {
		ps, pe := d.paragraphAt(pos)
		if pe > ps {
			out = append(out, [2]int{ps, pe})
		}
		if pe >= end || pe >= len(d.text) {
			break
		}
		pos = pe + 1
	}
	return out
}

// ensurePlaceholder inserts Placeholder on an empty line so a bullet has
// something to style.
func (d *Document) ensurePlaceholder() {
	if !d.placeholder {
		return
	}
	at := d.selection.Start
	ps, pe := d.paragraphAt(at)
	if ps != pe {
		return
	}
	set := d.pending.With(style.Bullet)
	d.text = slices.Insert(d.text, at, Placeholder)
	d.openGap(at, 1, -1)
	d.table.Insert(d.table.InsertionPoint(at), spans.Span{From: at, To: at, Styles: set})
	d.selection = Caret(at + 1)
	d.normalize()
	d.log.Debug("Bullet placeholder inserted", zap.Int("at", at))
}

// dropPlaceholder removes the placeholder of a line that holds nothing else.
func (d *Document) dropPlaceholder() bool {
	ps, pe := d.paragraphAt(d.selection.Start)
	if pe-ps != 1 || d.text[ps] != Placeholder {
		return false
	}
	d.text = slices.Delete(d.text, ps, pe)
	d.reconcileDeletion(ps, 1, []rune{Placeholder})
	d.selection = Caret(ps)
	d.clearPending()
	d.normalize()
	d.log.Debug("Bullet placeholder removed", zap.Int("at", ps))
	return true
}
