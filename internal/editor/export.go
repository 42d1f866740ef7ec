package editor

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"spanedit/pkg/spans"
	"spanedit/pkg/style"
)

// ExportedSpan is the interchange form of a span: inclusive bounds and style
// keys such as "bold" or "h2".
type ExportedSpan struct {
	From   int      `json:"from" yaml:"from"`
	To     int      `json:"to" yaml:"to"`
	Styles []string `json:"styles" yaml:"styles"`
}

// Exported is a document as adapters see it.
type Exported struct {
	Text  string         `json:"text" yaml:"text"`
	Spans []ExportedSpan `json:"spans" yaml:"spans"`
}

// Export returns the interchange form of d with bullet placeholders removed
// and span bounds remapped onto the stripped text.
func Export(d *Document) Exported {
	newIndex := make([]int, len(d.text))
	kept := make([]rune, 0, len(d.text))
	for i, r := range d.text {
		newIndex[i] = len(kept)
		if r == Placeholder {
			newIndex[i] = -1
			continue
		}
		kept = append(kept, r)
	}

	out := Exported{Text: string(kept)}
	for _, s := range d.table.Spans() {
		from, to := s.From, s.To
		for from <= to && newIndex[from] < 0 {
			from++
		}
		for to >= from && newIndex[to] < 0 {
			to--
		}
		if from > to {
			continue
		}
		out.Spans = append(out.Spans, ExportedSpan{From: newIndex[from], To: newIndex[to], Styles: s.Styles.Keys()})
	}
	return out
}

// Import builds a document from its interchange form. Every bad span is
// reported; on error the returned document is empty.
func Import(e Exported, opts ...Option) (*Document, error) {
	length := len([]rune(e.Text))
	in := make([]spans.Span, 0, len(e.Spans))
	var errs error
	for i, es := range e.Spans {
		if es.From < 0 || es.To < es.From || es.To >= length {
			errs = multierr.Append(errs, fmt.Errorf("span %d: range [%d,%d] outside text of %d runes: %w", i, es.From, es.To, length, ErrInvalidArgument))
			continue
		}
		set, err := style.ParseKeys(es.Styles)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("span %d: %w", i, err))
			continue
		}
		in = append(in, spans.Span{From: es.From, To: es.To, Styles: set})
	}
	if errs != nil {
		return New(opts...), errs
	}
	return FromParts(e.Text, in, opts...), nil
}

// IsInvalid reports whether err came from rejected input rather than I/O.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidArgument) || errors.Is(err, style.ErrUnknownKey)
}
