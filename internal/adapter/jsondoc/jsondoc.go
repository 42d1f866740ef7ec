// Package jsondoc reads and writes documents as JSON: the text plus a list of
// inclusive span records. Records either carry a style list ("styles") or a
// single style ("style"); overlapping single-style records are merged.
package jsondoc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"spanedit/internal/adapter"
	"spanedit/internal/editor"
	"spanedit/pkg/spans"
	"spanedit/pkg/style"
)

const (
	Name          = "json"
	FormatVersion = 1
)

type record struct {
	From   int      `json:"from"`
	To     int      `json:"to"`
	Styles []string `json:"styles,omitempty"`
	Style  string   `json:"style,omitempty"`
}

type document struct {
	Version int      `json:"version"`
	Text    string   `json:"text"`
	Spans   []record `json:"spans"`
}

type Adapter struct {
	singleStyle bool
	indent      bool
	opts        []editor.Option
}

// New returns a JSON adapter. With singleStyle set Decode writes one record
// per style instead of one per span.
func New(singleStyle, indent bool, opts ...editor.Option) *Adapter {
	return &Adapter{singleStyle: singleStyle, indent: indent, opts: opts}
}

func (a *Adapter) Name() string {
	return Name
}

func (a *Adapter) Encode(raw []byte) (*editor.Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var in document
	if err := dec.Decode(&in); err != nil {
		return adapter.Fail(Name, lineOf(raw, err), err, a.opts...)
	}
	if in.Version > FormatVersion {
		return adapter.Fail(Name, 0, fmt.Errorf("unsupported version %d", in.Version), a.opts...)
	}

	length := len([]rune(in.Text))
	out := make([]spans.Span, 0, len(in.Spans))
	var errs error
	for i, r := range in.Spans {
		keys := r.Styles
		if r.Style != "" {
			keys = append(keys, r.Style)
		}
		if r.From < 0 || r.To < r.From || r.To >= length {
			errs = multierr.Append(errs, fmt.Errorf("span %d: range [%d,%d] outside text of %d runes", i, r.From, r.To, length))
			continue
		}
		set, err := style.ParseKeys(keys)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("span %d: %w", i, err))
			continue
		}
		out = append(out, spans.Span{From: r.From, To: r.To, Styles: set})
	}
	if errs != nil {
		return adapter.Fail(Name, 0, errs, a.opts...)
	}
	return editor.FromParts(in.Text, out, a.opts...), nil
}

func (a *Adapter) Decode(doc *editor.Document) ([]byte, error) {
	e := editor.Export(doc)
	out := document{Version: FormatVersion, Text: e.Text, Spans: make([]record, 0, len(e.Spans))}
	for _, s := range e.Spans {
		if !a.singleStyle {
			out.Spans = append(out.Spans, record{From: s.From, To: s.To, Styles: s.Styles})
			continue
		}
		for _, key := range s.Styles {
			out.Spans = append(out.Spans, record{From: s.From, To: s.To, Style: key})
		}
	}
	if a.indent {
		return json.MarshalIndent(out, "", "  ")
	}
	return json.Marshal(out)
}

// lineOf maps a decoder error offset to a 1-based line number.
func lineOf(raw []byte, err error) int {
	var offset int64
	var syntax *json.SyntaxError
	var typed *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntax):
		offset = syntax.Offset
	case errors.As(err, &typed):
		offset = typed.Offset
	default:
		return 0
	}
	offset = min(offset, int64(len(raw)))
	return bytes.Count(raw[:offset], []byte{'\n'}) + 1
}
