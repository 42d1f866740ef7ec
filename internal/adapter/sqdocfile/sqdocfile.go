// Package sqdocfile adapts the binary sqdoc container to the editor.
package sqdocfile

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"spanedit/internal/adapter"
	"spanedit/internal/editor"
	"spanedit/pkg/spans"
	"spanedit/pkg/sqdoc"
	"spanedit/pkg/style"
)

const Name = "sqdoc"

const maxTitleRunes = 80

type Options struct {
	Author      string
	Compression bool
	Encrypt     bool
	Password    string
}

type Adapter struct {
	cfg  Options
	opts []editor.Option
}

func New(cfg Options, opts ...editor.Option) *Adapter {
	return &Adapter{cfg: cfg, opts: opts}
}

func (a *Adapter) Name() string {
	return Name
}

func (a *Adapter) Encode(raw []byte) (*editor.Document, error) {
	doc, err := sqdoc.Unmarshal(raw, sqdoc.LoadOptions{Password: a.cfg.Password})
	if err != nil {
		return adapter.Fail(Name, 0, err, a.opts...)
	}
	out := make([]spans.Span, 0, len(doc.Spans))
	for _, s := range doc.Spans {
		out = append(out, spans.Span{From: int(s.Start), To: int(s.End), Styles: s.Styles})
	}
	return editor.FromParts(doc.Text, out, a.opts...), nil
}

func (a *Adapter) Decode(d *editor.Document) ([]byte, error) {
	doc, err := Container(d, a.cfg.Author)
	if err != nil {
		return nil, err
	}
	return sqdoc.Marshal(doc, sqdoc.SaveOptions{
		Compression: a.cfg.Compression,
		Encryption:  sqdoc.EncryptionOptions{Enabled: a.cfg.Encrypt, Password: a.cfg.Password},
	})
}

// Container converts d into a fresh sqdoc document titled after its first
// line.
func Container(d *editor.Document, author string) (*sqdoc.Document, error) {
	e := editor.Export(d)
	doc := sqdoc.NewDocument(author, TitleOf(e.Text))
	doc.Text = e.Text
	doc.Spans = make([]sqdoc.SpanRecord, 0, len(e.Spans))
	for _, s := range e.Spans {
		set, err := style.ParseKeys(s.Styles)
		if err != nil {
			return nil, fmt.Errorf("span [%d,%d]: %w", s.From, s.To, err)
		}
		doc.Spans = append(doc.Spans, sqdoc.SpanRecord{Start: uint32(s.From), End: uint32(s.To), Styles: set})
	}
	return doc, nil
}

// TitleOf returns the first non-empty line of text, shortened to a
// reasonable title length.
func TitleOf(text string) string {
	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) > maxTitleRunes {
			line = string([]rune(line)[:maxTitleRunes])
		}
		return line
	}
	return ""
}
