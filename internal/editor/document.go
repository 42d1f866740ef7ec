package editor

import (
	"errors"
	"slices"
	"unicode"

	"go.uber.org/zap"

	"spanedit/pkg/spans"
	"spanedit/pkg/style"
)

// Placeholder is inserted by a bullet command on an empty line so the list
// marker has a character to attach to. Export strips it.
const Placeholder = '​'

const (
	DefaultFontSize = 14
	MinFontSize     = 8
	MaxFontSize     = 96
)

var ErrInvalidArgument = errors.New("editor: invalid argument")

// Selection is a half-open rune range; Start == End is a collapsed caret.
type Selection struct {
	Start int
	End   int
}

// NewSelection orders its arguments so Start <= End.
func NewSelection(a, b int) Selection {
	if a > b {
		a, b = b, a
	}
	return Selection{Start: a, End: b}
}

func Caret(pos int) Selection {
	return Selection{Start: pos, End: pos}
}

func (s Selection) Collapsed() bool {
	return s.Start == s.End
}

func (s Selection) Min() int {
	return min(s.Start, s.End)
}

func (s Selection) Max() int {
	return max(s.Start, s.End)
}

func (s Selection) Overlaps(o Selection) bool {
	return s.End > o.Start && s.Start < o.End
}

type Option func(*Document)

func WithLogger(log *zap.Logger) Option {
	return func(d *Document) {
		if log != nil {
			d.log = log.Named("editor")
		}
	}
}

// WithPlaceholder controls whether bullet commands on empty lines insert
// Placeholder into the text.
func WithPlaceholder(enabled bool) Option {
	return func(d *Document) { d.placeholder = enabled }
}

// WithFontSizes sets the implicit font size and the bounds used by the font
// size commands.
func WithFontSizes(def, lo, hi int) Option {
	return func(d *Document) {
		if lo <= 0 || hi < lo {
			return
		}
		d.minFont, d.maxFont = lo, hi
		d.defaultFont = min(max(def, lo), hi)
	}
}

// Document aggregates text, the span table, the selection and the pending
// style set. It is not safe for concurrent use; callers serialize edits.
type Document struct {
	text      []rune
	table     *spans.Table
	selection Selection

	pending      style.Set
	hasPending   bool
	pendingFresh bool

	placeholder bool
	defaultFont int
	minFont     int
	maxFont     int
	log         *zap.Logger
}

func New(opts ...Option) *Document {
	d := &Document{
		table:       spans.NewTable(nil),
		placeholder: true,
		defaultFont: DefaultFontSize,
		minFont:     MinFontSize,
		maxFont:     MaxFontSize,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// FromParts builds a document from text and spans. Overlapping spans are
// merged into their union and the caret is placed at the end of the text.
func FromParts(text string, in []spans.Span, opts ...Option) *Document {
	d := New(opts...)
	d.Reset(text, in)
	return d
}

// Reset replaces the whole document state.
func (d *Document) Reset(text string, in []spans.Span) {
	d.text = []rune(text)
	d.table.Replace(spans.Flatten(in, len(d.text)-1))
	d.selection = Caret(len(d.text))
	d.clearPending()
}

func (d *Document) Text() string {
	return string(d.text)
}

// Len returns the text length in runes.
func (d *Document) Len() int {
	return len(d.text)
}

func (d *Document) Spans() []spans.Span {
	return d.table.Spans()
}

func (d *Document) Selection() Selection {
	return d.selection
}

// Pending returns the explicit pending style set, if one is active.
func (d *Document) Pending() (style.Set, bool) {
	return d.pending, d.hasPending
}

func (d *Document) Clone() *Document {
	out := d.derive(slices.Clone(d.text), d.table.Spans())
	out.selection = d.selection
	out.pending, out.hasPending, out.pendingFresh = d.pending, d.hasPending, d.pendingFresh
	return out
}

// Select handles a selection-only change reported by the host. Moving the
// caret drops the explicit pending set.
func (d *Document) Select(sel Selection) {
	sel = d.clampSelection(sel)
	if sel != d.selection {
		d.clearPending()
	}
	d.selection = sel
}

func (d *Document) SelectAll() {
	d.Select(Selection{Start: 0, End: len(d.text)})
}

// SelectWordAt selects the word around pos.
func (d *Document) SelectWordAt(pos int) {
	pos = min(max(pos, 0), len(d.text))
	start, end := pos, pos
	for start > 0 && isWordRune(d.text[start-1]) {
		start--
	}
	for end < len(d.text) && isWordRune(d.text[end]) {
		end++
	}
	d.Select(Selection{Start: start, End: end})
}

func (d *Document) SelectedText() string {
	sel := d.selection
	return string(d.text[sel.Start:sel.End])
}

func (d *Document) clampSelection(sel Selection) Selection {
	n := len(d.text)
	clamp := func(v int) int { return min(max(v, 0), n) }
	out := NewSelection(clamp(sel.Start), clamp(sel.End))
	if out != NewSelection(sel.Start, sel.End) {
		d.log.Debug("Selection clamped", zap.Int("start", sel.Start), zap.Int("end", sel.End), zap.Int("length", n))
	}
	return out
}

func (d *Document) setPending(s style.Set) {
	d.pending = s
	d.hasPending = true
	d.pendingFresh = true
}

func (d *Document) clearPending() {
	d.pending = style.Set{}
	d.hasPending = false
	d.pendingFresh = false
}

func (d *Document) normalize() {
	d.table.Replace(spans.Normalize(d.table.Spans(), len(d.text)-1))
}

// derive creates a document sharing d's options.
func (d *Document) derive(text []rune, in []spans.Span) *Document {
	out := &Document{
		text:        text,
		table:       spans.NewTable(spans.Flatten(in, len(text)-1)),
		placeholder: d.placeholder,
		defaultFont: d.defaultFont,
		minFont:     d.minFont,
		maxFont:     d.maxFont,
		log:         d.log,
	}
	out.selection = Caret(len(out.text))
	return out
}

// paragraphAt returns the half-open rune range of the line containing pos,
// newline excluded.
func (d *Document) paragraphAt(pos int) (int, int) {
	pos = min(max(pos, 0), len(d.text))
	start := pos
	for start > 0 && d.text[start-1] != '\n' {
		start--
	}
	end := pos
	for end < len(d.text) && d.text[end] != '\n' {
		end++
	}
	return start, end
}

// paragraphStyles returns the paragraph-scoped styles of the line [start, end).
func (d *Document) paragraphStyles(start, end int) style.Set {
	if start >= end {
		return style.Set{}
	}
	for pos := start; pos < end; pos++ {
		if s, ok := spans.StylesAt(d.table.Spans(), pos); ok {
			return s.WithoutFunc(runScoped)
		}
	}
	return style.Set{}
}

// caretStyles computes the styles a collapsed caret at pos reports: run styles
// of the character before it (or at it, on a line start) plus the styles of
// its paragraph.
func (d *Document) caretStyles(pos int) style.Set {
	pos = min(max(pos, 0), len(d.text))
	probe := -1
	switch {
	case pos > 0 && d.text[pos-1] != '\n':
		probe = pos - 1
	case pos < len(d.text) && d.text[pos] != '\n':
		probe = pos
	}
	var run style.Set
	if probe >= 0 {
		if s, ok := spans.StylesAt(d.table.Spans(), probe); ok {
			run = s.WithoutFunc(paragraphScoped)
		}
	}
	return run.Union(d.paragraphStyles(d.paragraphAt(pos)))
}

func paragraphScoped(s style.Style) bool {
	return s.ParagraphScoped()
}

func runScoped(s style.Style) bool {
	return !s.ParagraphScoped()
}

func exclusive(s style.Style) bool {
	return s.Exclusive()
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func containsNewline(text []rune) bool {
	return slices.Contains(text, '\n')
}
