// Package iondoc stores documents as Amazon Ion values, binary by default or
// text when asked. Both forms are accepted on input.
package iondoc

import (
	"bytes"
	"fmt"

	"github.com/amazon-ion/ion-go/ion"

	"spanedit/internal/adapter"
	"spanedit/internal/editor"
)

const (
	Name          = "ion"
	FormatVersion = 1
)

// ionBVM is the binary version marker opening every binary Ion stream.
var ionBVM = []byte{0xE0, 0x01, 0x00, 0xEA}

type ionSpan struct {
	From   int      `ion:"from"`
	To     int      `ion:"to"`
	Styles []string `ion:"styles"`
}

type ionDocument struct {
	Version int       `ion:"version"`
	Text    string    `ion:"text"`
	Spans   []ionSpan `ion:"spans"`
}

type Adapter struct {
	text bool
	opts []editor.Option
}

// New returns an Ion adapter writing the text encoding when text is set.
func New(text bool, opts ...editor.Option) *Adapter {
	return &Adapter{text: text, opts: opts}
}

func (a *Adapter) Name() string {
	return Name
}

func (a *Adapter) Encode(raw []byte) (*editor.Document, error) {
	var in ionDocument
	if err := ion.Unmarshal(raw, &in); err != nil {
		return adapter.Fail(Name, 0, err, a.opts...)
	}
	if in.Version > FormatVersion {
		return adapter.Fail(Name, 0, fmt.Errorf("unsupported version %d", in.Version), a.opts...)
	}

	e := editor.Exported{Text: in.Text, Spans: make([]editor.ExportedSpan, 0, len(in.Spans))}
	for _, s := range in.Spans {
		e.Spans = append(e.Spans, editor.ExportedSpan{From: s.From, To: s.To, Styles: s.Styles})
	}
	doc, err := editor.Import(e, a.opts...)
	if err != nil {
		return adapter.Fail(Name, 0, err, a.opts...)
	}
	return doc, nil
}

func (a *Adapter) Decode(doc *editor.Document) ([]byte, error) {
	e := editor.Export(doc)
	out := ionDocument{Version: FormatVersion, Text: e.Text, Spans: make([]ionSpan, 0, len(e.Spans))}
	for _, s := range e.Spans {
		out.Spans = append(out.Spans, ionSpan{From: s.From, To: s.To, Styles: s.Styles})
	}
	if a.text {
		return ion.MarshalText(out)
	}
	return ion.MarshalBinary(out)
}

// IsBinary reports whether b starts with the binary Ion version marker.
func IsBinary(b []byte) bool {
	return bytes.HasPrefix(b, ionBVM)
}
