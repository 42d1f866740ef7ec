// Package adapter defines how external document formats are turned into
// editor documents and back.
package adapter

import (
	"errors"
	"fmt"

	"spanedit/internal/editor"
)

// Adapter converts between a serialized format and an editor document.
// Encode never returns a partially populated document: on failure the
// document is empty and the error says why.
type Adapter interface {
	Name() string
	Encode(raw []byte) (*editor.Document, error)
	Decode(doc *editor.Document) ([]byte, error)
}

var ErrParse = errors.New("adapter: parse error")

// ParseError reports malformed input. Line is 1-based; zero when the format
// has no meaningful line information.
type ParseError struct {
	Format string
	Line   int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d: %v", e.Format, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// Fail wraps err as a ParseError of format and returns it with an empty
// document.
func Fail(format string, line int, err error, opts ...editor.Option) (*editor.Document, error) {
	return editor.New(opts...), &ParseError{Format: format, Line: line, Err: err}
}
