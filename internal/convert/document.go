package convert

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"

	"spanedit/internal/editor"
	"spanedit/internal/state"
)

// ReadDocument builds a document from data. With FormatAuto the format is
// detected from name and content.
func ReadDocument(env *state.LocalEnv, name string, data []byte, from Format) (*editor.Document, Format, error) {
	if from == FormatAuto {
		var ok bool
		if from, ok = Detect(filepath.Base(name), data[:min(len(data), sniffLen)]); !ok {
			return nil, from, fmt.Errorf("unable to detect format of %s", name)
		}
	}
	in, err := NewAdapter(from, &env.Cfg.Adapters, env.EditorOptions()...)
	if err != nil {
		return nil, from, err
	}
	doc, err := in.Encode(data)
	if err != nil {
		return nil, from, fmt.Errorf("unable to read %s source (%s): %w", from, name, err)
	}
	return doc, from, nil
}

// LoadDocument reads the file at path, see ReadDocument.
func LoadDocument(env *state.LocalEnv, path string, from Format) (*editor.Document, Format, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, from, fmt.Errorf("unable to read source: %w", err)
	}
	return ReadDocument(env, path, data, from)
}

// WriteDocument serializes doc in format to.
func WriteDocument(env *state.LocalEnv, doc *editor.Document, to Format) ([]byte, error) {
	out, err := NewAdapter(to, &env.Cfg.Adapters, env.EditorOptions()...)
	if err != nil {
		return nil, err
	}
	result, err := out.Decode(doc)
	if err != nil {
		return nil, fmt.Errorf("unable to write %s output: %w", to, err)
	}
	return result, nil
}

// CopyToClipboard puts text output on the system clipboard. Binary formats are
// skipped with a warning.
func CopyToClipboard(log *zap.Logger, data []byte, f Format) {
	if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
		log.Warn("Binary output is not copied to clipboard", zap.Stringer("format", f))
		return
	}
	if err := clipboard.WriteAll(string(data)); err != nil {
		log.Warn("Unable to copy output to clipboard", zap.Error(err))
	}
}
