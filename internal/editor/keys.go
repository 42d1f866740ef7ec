package editor

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// The operations below play the host's role: they compute the text and caret a
// text widget would report for a key press and feed them through Edit.

// InsertText replaces the selection with input, as typing or pasting would.
func (d *Document) InsertText(input string) error {
	if !utf8.ValidString(input) {
		return fmt.Errorf("%w: input must be valid UTF-8", ErrInvalidArgument)
	}
	input = strings.ReplaceAll(input, "\r\n", "\n")
	sel := d.selection
	typed := []rune(input)
	if len(typed) == 0 && sel.Collapsed() {
		return nil
	}
	next := slices.Concat(d.text[:sel.Start], typed, d.text[sel.End:])
	d.Edit(string(next), Caret(sel.Start+len(typed)))
	return nil
}

// SplitLine inserts a paragraph break at the caret.
func (d *Document) SplitLine() {
	_ = d.InsertText("\n")
}

// DeleteSelection removes the selected text and reports whether there was any.
func (d *Document) DeleteSelection() bool {
	sel := d.selection
	if sel.Collapsed() {
		return false
	}
	d.deleteRange(sel.Start, sel.End)
	return true
}

func (d *Document) Backspace() {
	if d.DeleteSelection() {
		return
	}
	if pos := d.selection.Start; pos > 0 {
		d.deleteRange(pos-1, pos)
	}
}

func (d *Document) DeleteForward() {
	if d.DeleteSelection() {
		return
	}
	if pos := d.selection.Start; pos < len(d.text) {
		d.deleteRange(pos, pos+1)
	}
}

func (d *Document) DeleteWordBackward() {
	if d.DeleteSelection() {
		return
	}
	pos := d.selection.Start
	if pos == 0 {
		return
	}
	start := previousWordBoundary(d.text, pos)
	if start == pos {
		start = pos - 1
	}
	d.deleteRange(start, pos)
}

func (d *Document) DeleteWordForward() {
	if d.DeleteSelection() {
		return
	}
	pos := d.selection.Start
	if pos >= len(d.text) {
		return
	}
	end := nextWordBoundary(d.text, pos)
	if end == pos {
		end = pos + 1
	}
	d.deleteRange(pos, end)
}

func (d *Document) deleteRange(start, end int) {
	next := slices.Concat(d.text[:start], d.text[end:])
	d.Edit(string(next), Caret(start))
}

func previousWordBoundary(text []rune, pos int) int {
	for pos > 0 && unicode.IsSpace(text[pos-1]) {
		pos--
	}
	for pos > 0 && !unicode.IsSpace(text[pos-1]) {
		pos--
	}
	return pos
}

func nextWordBoundary(text []rune, pos int) int {
	for pos < len(text) && unicode.IsSpace(text[pos]) {
		pos++
	}
	for pos < len(text) && !unicode.IsSpace(text[pos]) {
		pos++
	}
	return pos
}
