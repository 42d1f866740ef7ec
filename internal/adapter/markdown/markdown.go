// Package markdown maps documents onto a small markdown subset. Every text
// line is one markdown line: "#".."######" headers, "- " bullets, "**bold**",
// "_italic_" (or "*italic*"), "<u>underline</u>" and backslash escapes.
//
// The mapping is lossy: titles are written as level one headers, subtitles as
// level two headers and font sizes are dropped.
package markdown

import (
	"errors"
	"strings"
	"unicode/utf8"

	"spanedit/internal/adapter"
	"spanedit/internal/editor"
	"spanedit/pkg/spans"
	"spanedit/pkg/style"
)

const Name = "markdown"

var errInvalidUTF8 = errors.New("invalid UTF-8")

const (
	underlineOpen  = "<u>"
	underlineClose = "</u>"
)

type Adapter struct {
	opts []editor.Option
}

func New(opts ...editor.Option) *Adapter {
	return &Adapter{opts: opts}
}

func (a *Adapter) Name() string {
	return Name
}

func (a *Adapter) Encode(raw []byte) (*editor.Document, error) {
	src := strings.ReplaceAll(string(raw), "\r\n", "\n")
	src = strings.TrimSuffix(src, "\n")

	var (
		text []rune
		out  []spans.Span
	)
	for n, line := range strings.Split(src, "\n") {
		if !utf8.ValidString(line) {
			return adapter.Fail(Name, n+1, errInvalidUTF8, a.opts...)
		}
		if n > 0 {
			text = append(text, '\n')
		}

		para, content := parseLinePrefix(line)
		runes, inline := parseInline([]rune(content), style.Set{})
		start := len(text)
		for _, s := range inline {
			out = append(out, spans.Span{From: s.From + start, To: s.To + start, Styles: s.Styles})
		}
		text = append(text, runes...)
		if !para.Empty() && len(runes) > 0 {
			out = append(out, spans.Span{From: start, To: len(text) - 1, Styles: para})
		}
	}
	return editor.FromParts(string(text), out, a.opts...), nil
}

func (a *Adapter) Decode(doc *editor.Document) ([]byte, error) {
	e := editor.Export(doc)
	if e.Text == "" {
		return nil, nil
	}
	text := []rune(e.Text)
	table := make([]spans.Span, 0, len(e.Spans))
	for _, s := range e.Spans {
		set, err := style.ParseKeys(s.Styles)
		if err != nil {
			return nil, err
		}
		table = append(table, spans.Span{From: s.From, To: s.To, Styles: set})
	}

	var b strings.Builder
	lineStart := 0
	for i := 0; i <= len(text); i++ {
		if i < len(text) && text[i] != '\n' {
			continue
		}
		if i > lineStart {
			set, _ := spans.StylesAt(table, lineStart)
			b.WriteString(linePrefix(set))
		}
		for pos := lineStart; pos < i; {
			set, _ := spans.StylesAt(table, pos)
			end := pos + 1
			for end < i {
				next, _ := spans.StylesAt(table, end)
				if !sameInline(set, next) {
					break
				}
				end++
			}
			writeRun(&b, text[pos:end], set, pos == lineStart)
			pos = end
		}
		b.WriteByte('\n')
		lineStart = i + 1
	}
	return []byte(b.String()), nil
}

// parseLinePrefix strips a header or bullet marker and returns the
// paragraph style it stands for.
func parseLinePrefix(line string) (style.Set, string) {
	if level, content, ok := parseHeading(line); ok {
		return style.NewSet(style.Header(level)), content
	}
	for _, marker := range []string{"- ", "* ", "+ "} {
		if rest, ok := strings.CutPrefix(line, marker); ok {
			return style.NewSet(style.Bullet), rest
		}
	}
	return style.Set{}, line
}

func parseHeading(line string) (int, string, bool) {
	level := countRepeatRune(line, '#')
	if level == 0 || level > style.MaxHeaderLevel {
		return 0, "", false
	}
	rest := line[level:]
	if rest != "" && rest[0] != ' ' {
		return 0, "", false
	}
	return level, strings.TrimSpace(rest), true
}

// parseInline returns the plain runes of src and the spans its emphasis
// markers describe, relative to the start of the returned runes.
func parseInline(src []rune, inherited style.Set) ([]rune, []spans.Span) {
	var (
		text []rune
		out  []spans.Span
	)
	literal := func(r ...rune) {
		if !inherited.Empty() {
			out = append(out, spans.Span{From: len(text), To: len(text) + len(r) - 1, Styles: inherited})
		}
		text = append(text, r...)
	}
	nested := func(content []rune, st style.Style) {
		runes, inner := parseInline(content, inherited.With(st))
		for _, s := range inner {
			out = append(out, spans.Span{From: s.From + len(text), To: s.To + len(text), Styles: s.Styles})
		}
		text = append(text, runes...)
	}

	i := 0
	for i < len(src) {
		r := src[i]
		switch r {
		case '\\':
			if i+1 < len(src) {
				literal(src[i+1])
				i += 2
				continue
			}
			literal(r)
			i++
		case '*', '_':
			run := min(countRepeat(src[i:], r), 2)
			closeIdx := findClosingDelimiter(src, i+run, r, run)
			if closeIdx == -1 || closeIdx == i+run {
				literal(r)
				i++
				continue
			}
			st := style.Italic
			if run == 2 {
				st = style.Bold
			}
			nested(src[i+run:closeIdx], st)
			i = closeIdx + run
		case '<':
			if !hasPrefix(src[i:], underlineOpen) {
				literal(r)
				i++
				continue
			}
			body := i + len(underlineOpen)
			closeIdx := indexOf(src, body, underlineClose)
			if closeIdx == -1 {
				literal(r)
				i++
				continue
			}
			nested(src[body:closeIdx], style.Underline)
			i = closeIdx + len(underlineClose)
		default:
			literal(r)
			i++
		}
	}
	return text, out
}

func linePrefix(set style.Set) string {
	switch {
	case set.Has(style.Title):
		return "# "
	case set.Has(style.Subtitle):
		return "## "
	case set.HasKind(style.KindHeader):
		p, _ := set.Paragraph()
		return strings.Repeat("#", p.Value) + " "
	case set.Has(style.Bullet):
		return "- "
	}
	return ""
}

func sameInline(a, b style.Set) bool {
	return a.Has(style.Bold) == b.Has(style.Bold) &&
		a.Has(style.Italic) == b.Has(style.Italic) &&
		a.Has(style.Underline) == b.Has(style.Underline)
}

func writeRun(b *strings.Builder, run []rune, set style.Set, lineStart bool) {
	var open, closers []string
	if set.Has(style.Underline) {
		open, closers = append(open, underlineOpen), append([]string{underlineClose}, closers...)
	}
	if set.Has(style.Bold) {
		open, closers = append(open, "**"), append([]string{"**"}, closers...)
	}
	if set.Has(style.Italic) {
		open, closers = append(open, "_"), append([]string{"_"}, closers...)
	}
	for _, s := range open {
		b.WriteString(s)
	}
	for i, r := range run {
		switch {
		case r == '\\' || r == '*' || r == '_' || r == '<':
			b.WriteByte('\\')
		case i == 0 && lineStart && len(open) == 0 && (r == '#' || r == '-' || r == '+'):
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	for _, s := range closers {
		b.WriteString(s)
	}
}

func findClosingDelimiter(runes []rune, start int, delim rune, count int) int {
	for i := start; i < len(runes); i++ {
		if runes[i] == '\\' {
			i++
			continue
		}
		if runes[i] != delim {
			continue
		}
		if countRepeat(runes[i:], delim) < count {
			continue
		}
		return i
	}
	return -1
}

func countRepeat(runes []rune, target rune) int {
	n := 0
	for n < len(runes) && runes[n] == target {
		n++
	}
	return n
}

func countRepeatRune(text string, target rune) int {
	n := 0
	for _, r := range text {
		if r != target {
			break
		}
		n++
	}
	return n
}

func hasPrefix(runes []rune, prefix string) bool {
	return strings.HasPrefix(string(runes[:min(len(runes), len(prefix))]), prefix)
}

func indexOf(runes []rune, from int, needle string) int {
	for i := from; i < len(runes); i++ {
		if hasPrefix(runes[i:], needle) {
			return i
		}
	}
	return -1
}
