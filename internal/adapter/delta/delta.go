// Package delta converts documents to and from insert-only rich text deltas:
// {"ops":[{"insert":"Hello","attributes":{"bold":true}},{"insert":"\n"}]}.
// Inline attributes style the inserted text, line attributes (header, list,
// title, subtitle) ride on the newline that ends the line. A delta always ends
// with a newline that is not part of the document text.
package delta

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"spanedit/internal/adapter"
	"spanedit/internal/editor"
	"spanedit/pkg/spans"
	"spanedit/pkg/style"
)

const Name = "delta"

type Op struct {
	Insert     json.RawMessage `json:"insert,omitempty"`
	Retain     *int            `json:"retain,omitempty"`
	Delete     *int            `json:"delete,omitempty"`
	Attributes map[string]any  `json:"attributes,omitempty"`
}

type Delta struct {
	Ops []Op `json:"ops"`
}

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
	var d Delta
	if err := json.Unmarshal(raw, &d); err != nil {
		return adapter.Fail(Name, 0, err, a.opts...)
	}

	var (
		text      []rune
		out       []spans.Span
		lineStart int
		errs      error
	)
	for i, op := range d.Ops {
		if op.Retain != nil || op.Delete != nil || op.Insert == nil {
			errs = multierr.Append(errs, fmt.Errorf("op %d: document deltas may only insert", i))
			continue
		}
		var chunk string
		if err := json.Unmarshal(op.Insert, &chunk); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("op %d: embeds are not supported", i))
			continue
		}
		inline, line, err := parseAttributes(op.Attributes)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("op %d: %w", i, err))
			continue
		}

		for _, part := range splitKeepNewlines(chunk) {
			start := len(text)
			text = append(text, []rune(part)...)
			if part != "\n" {
				out = append(out, spans.Span{From: start, To: len(text) - 1, Styles: inline})
				continue
			}
			if start > lineStart && !line.Empty() {
				out = append(out, spans.Span{From: lineStart, To: start - 1, Styles: line})
			}
			lineStart = len(text)
		}
	}
	if errs != nil {
		return adapter.Fail(Name, 0, errs, a.opts...)
	}
	if len(text) > 0 && text[len(text)-1] == '\n' {
		text = text[:len(text)-1]
	}
	return editor.FromParts(string(text), out, a.opts...), nil
}

func (a *Adapter) Decode(doc *editor.Document) ([]byte, error) {
	e := editor.Export(doc)
	text := []rune(e.Text)
	table := make([]spans.Span, 0, len(e.Spans))
	for _, s := range e.Spans {
		set, err := style.ParseKeys(s.Styles)
		if err != nil {
			return nil, err
		}
		table = append(table, spans.Span{From: s.From, To: s.To, Styles: set})
	}

	var d Delta
	emit := func(chunk string, attrs map[string]any) {
		if n := len(d.Ops); n > 0 && chunk != "\n" && !strings.HasSuffix(insertText(d.Ops[n-1]), "\n") && sameAttrs(d.Ops[n-1].Attributes, attrs) {
			d.Ops[n-1].Insert = quote(insertText(d.Ops[n-1]) + chunk)
			return
		}
		d.Ops = append(d.Ops, Op{Insert: quote(chunk), Attributes: attrs})
	}

	lineStart := 0
	for i := 0; i <= len(text); i++ {
		if i < len(text) && text[i] != '\n' {
			continue
		}
		for pos := lineStart; pos < i; {
			set, _ := spans.StylesAt(table, pos)
			inline := set.WithoutFunc(func(st style.Style) bool { return st.ParagraphScoped() })
			end := pos + 1
			for end < i {
				next, _ := spans.StylesAt(table, end)
				if !next.WithoutFunc(func(st style.Style) bool { return st.ParagraphScoped() }).Equal(inline) {
					break
				}
				end++
			}
			emit(string(text[pos:end]), inlineAttributes(inline))
			pos = end
		}
		var line style.Set
		if i > lineStart {
			set, _ := spans.StylesAt(table, lineStart)
			line = set.WithoutFunc(func(st style.Style) bool { return !st.ParagraphScoped() })
		}
		emit("\n", lineAttributes(line))
		lineStart = i + 1
	}
	return json.Marshal(d)
}

func parseAttributes(attrs map[string]any) (style.Set, style.Set, error) {
	var inline, line style.Set
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		v := attrs[k]
		if v == nil || v == false {
			continue
		}
		switch k {
		case "bold":
			inline = inline.With(style.Bold)
		case "italic":
			inline = inline.With(style.Italic)
		case "underline":
			inline = inline.With(style.Underline)
		case "size":
			pt, err := parseSize(v)
			if err != nil {
				return inline, line, err
			}
			inline = inline.With(style.FontSize(pt))
		case "header":
			level, ok := v.(float64)
			if !ok || level < style.MinHeaderLevel || level > style.MaxHeaderLevel {
				return inline, line, fmt.Errorf("invalid header level %v", v)
			}
			line = line.With(style.Header(int(level)))
		case "list":
			if v != "bullet" {
				return inline, line, fmt.Errorf("unsupported list kind %v", v)
			}
			line = line.With(style.Bullet)
		case "title":
			line = line.With(style.Title)
		case "subtitle":
			line = line.With(style.Subtitle)
		default:
			return inline, line, fmt.Errorf("unsupported attribute %q", k)
		}
	}
	return inline, line, nil
}

func parseSize(v any) (int, error) {
	switch n := v.(type) {
	case float64:
		if n > 0 {
			return int(n), nil
		}
	case string:
		pt, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSuffix(n, "px"), "pt"))
		if err == nil && pt > 0 {
			return pt, nil
		}
	}
	return 0, fmt.Errorf("invalid size %v", v)
}

func inlineAttributes(s style.Set) map[string]any {
	attrs := map[string]any{}
	for _, st := range s.Styles() {
		switch st.Kind {
		case style.KindBold:
			attrs["bold"] = true
		case style.KindItalic:
			attrs["italic"] = true
		case style.KindUnderline:
			attrs["underline"] = true
		case style.KindFontSize:
			attrs["size"] = strconv.Itoa(st.Value) + "pt"
		}
	}
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}

func lineAttributes(s style.Set) map[string]any {
	attrs := map[string]any{}
	for _, st := range s.Styles() {
		switch st.Kind {
		case style.KindHeader:
			attrs["header"] = st.Value
		case style.KindBullet:
			attrs["list"] = "bullet"
		case style.KindTitle:
			attrs["title"] = true
		case style.KindSubtitle:
			attrs["subtitle"] = true
		}
	}
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}

func splitKeepNewlines(s string) []string {
	var out []string
	for s != "" {
		i := strings.IndexByte(s, '\n')
		switch {
		case i < 0:
			out = append(out, s)
			s = ""
		case i == 0:
			out = append(out, "\n")
			s = s[1:]
		default:
			out = append(out, s[:i])
			s = s[i:]
		}
	}
	return out
}

func insertText(op Op) string {
	var s string
	_ = json.Unmarshal(op.Insert, &s)
	return s
}

func quote(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

func sameAttrs(a, b map[string]any) bool {
	ab, _ := json.Marshal(a)
	bb, _ := json.Marshal(b)
	return bytes.Equal(ab, bb)
}
