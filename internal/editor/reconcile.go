package editor

import (
	"slices"

	"go.uber.org/zap"

	"spanedit/pkg/spans"
	"spanedit/pkg/style"
)

// Edit reconciles the span table with a host text change. newText is the full
// text after the edit and sel the selection the host reports with it. The
// changed region is located by diffing against the previous text, anchored at
// the caret; a replacement is handled as a deletion followed by an insertion.
func (d *Document) Edit(newText string, sel Selection) {
	next := []rune(newText)
	old := d.text

	if len(next) == 0 {
		d.text = nil
		d.table.Replace(nil)
		d.selection = Caret(0)
		d.clearPending()
		return
	}

	sel = NewSelection(min(max(sel.Start, 0), len(next)), min(max(sel.End, 0), len(next)))
	start, removed, inserted := diffRunes(old, next, sel.Min())

	if removed > 0 {
		gone := slices.Clone(old[start : start+removed])
		d.text = slices.Concat(old[:start], old[start+removed:])
		d.reconcileDeletion(start, removed, gone)
		if inserted == 0 {
			d.clearPending()
		}
	}
	if inserted > 0 {
		target := d.insertionStyle(start)
		d.text = next
		d.reconcileInsertion(start, inserted, target)
	}
	d.text = next
	d.selection = sel
	d.normalize()
}

// diffRunes returns the start of the changed region, the number of runes
// removed from old and the number inserted from next. The common suffix is
// anchored at caret when possible so repeated characters resolve to the
// position the host actually typed at.
func diffRunes(old, next []rune, caret int) (int, int, int) {
	tail := len(next) - caret
	if caret >= 0 && tail >= 0 && tail <= len(old) && slices.Equal(next[caret:], old[len(old)-tail:]) {
		oldEnd := len(old) - tail
		p := 0
		for p < caret && p < oldEnd && old[p] == next[p] {
			p++
		}
		return p, oldEnd - p, caret - p
	}

	p := 0
	for p < len(old) && p < len(next) && old[p] == next[p] {
		p++
	}
	s := 0
	for s < len(old)-p && s < len(next)-p && old[len(old)-1-s] == next[len(next)-1-s] {
		s++
	}
	return p, len(old) - p - s, len(next) - p - s
}

// insertionStyle resolves the style set for text typed at at. It runs on the
// text before insertion.
func (d *Document) insertionStyle(at int) style.Set {
	if !d.hasPending {
		return d.caretStyles(at)
	}
	target := d.pending
	if !d.pendingFresh && at > 0 && d.text[at-1] == '\n' {
		ps, pe := d.paragraphAt(at)
		para := d.paragraphStyles(ps, pe)
		target = target.WithoutFunc(func(st style.Style) bool {
			return st.Exclusive() && !para.Has(st)
		})
		d.pending = target
	}
	return target
}

// reconcileInsertion opens a gap of n runes at at and styles it with target.
func (d *Document) reconcileInsertion(at, n int, target style.Set) {
	t := d.table
	startPos, hasStart := t.FindCovering(at - 1)
	endPos, hasEnd := t.FindCovering(at)

	switch {
	case hasStart && t.At(startPos).Styles.Equal(target):
		d.openGap(at, n, startPos)
		s := t.At(startPos)
		s.To += n
		t.Set(startPos, s)
	case hasEnd && t.At(endPos).From == at && t.At(endPos).Styles.Equal(target):
		d.openGap(at, n, endPos)
		s := t.At(endPos)
		s.To += n
		t.Set(endPos, s)
	case hasStart && hasEnd && startPos == endPos:
		left, right := t.SplitAt(startPos, at)
		d.openGap(at, n, startPos)
		t.Set(startPos, left)
		t.Insert(startPos+1, spans.Span{From: at, To: at + n - 1, Styles: target})
		right.From += n
		right.To += n
		t.Insert(startPos+2, right)
	default:
		d.openGap(at, n, -1)
		t.Insert(t.InsertionPoint(at), spans.Span{From: at, To: at + n - 1, Styles: target})
	}

	typed := d.text[at : at+n]
	for i, r := range typed {
		if r == '\n' {
			d.breakParagraph(at+i, at+n)
			break
		}
	}
	d.pendingFresh = false
}

// openGap moves every span except skip out of the way of n runes inserted at at.
func (d *Document) openGap(at, n, skip int) {
	t := d.table
	for i := 0; i < t.Len(); i++ {
		if i == skip {
			continue
		}
		s := t.At(i)
		switch {
		case s.From >= at:
			s.From += n
			s.To += n
		case s.To >= at:
			s.To += n
		default:
			continue
		}
		t.Set(i, s)
	}
}

// breakParagraph runs after an insertion containing a newline at brk. The
// line before brk keeps its paragraph styles; from brk to the end of the line
// holding insertEnd exclusive paragraph styles are dropped, and newline runes
// never carry a bullet.
func (d *Document) breakParagraph(brk, insertEnd int) {
	_, end := d.paragraphAt(insertEnd)
	if end-1 >= brk {
		d.table.Replace(spans.Apply(d.table.Spans(), brk, end-1, func(s style.Set) style.Set {
			return s.WithoutFunc(exclusive)
		}))
	}
	for i := brk; i < insertEnd; i++ {
		if d.text[i] == '\n' {
			d.table.Replace(spans.Apply(d.table.Spans(), i, i, func(s style.Set) style.Set {
				return s.Without(style.Bullet)
			}))
		}
	}
	if d.hasPending {
		d.pending = d.pending.WithoutFunc(exclusive)
	}
	d.log.Debug("Paragraph break", zap.Int("at", brk), zap.Int("end", end))
}

// reconcileDeletion shrinks or drops spans for k runes removed at a. d.text is
// already the text after removal.
func (d *Document) reconcileDeletion(a, k int, gone []rune) {
	t := d.table
	b := a + k
	for i := 0; i < t.Len(); {
		s := t.At(i)
		switch {
		case s.To < a:
		case s.From >= b:
			s.From -= k
			s.To -= k
		case s.From >= a && s.To < b:
			t.Delete(i)
			continue
		case s.From >= a:
			s.From = a
			s.To -= k
		case s.To < b:
			s.To = a - 1
		default:
			s.To -= k
		}
		t.Set(i, s)
		i++
	}
	if containsNewline(gone) {
		d.joinParagraphs(a)
	}
}

// joinParagraphs gives the line formed by a deletion across a newline the
// paragraph styles of its upper part. A removal that started exactly on the
// line start keeps the lower line's styles.
func (d *Document) joinParagraphs(at int) {
	ps, pe := d.paragraphAt(at)
	if ps == at || pe <= at {
		return
	}
	upper := d.paragraphStyles(ps, at)
	d.table.Replace(spans.Apply(d.table.Spans(), at, pe-1, func(s style.Set) style.Set {
		return s.WithoutFunc(paragraphScoped).Union(upper)
	}))
}
