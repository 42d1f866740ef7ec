package convert

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"

	"spanedit/internal/adapter/iondoc"
	"spanedit/pkg/sqdoc"
)

// enough for every matcher filetype knows about
const sniffLen = 262

var (
	sqdocType = filetype.NewType("sqdoc", "application/x-sqdoc")
	ionType   = filetype.NewType("ion", "application/x-amzn-ion")
)

func init() {
	// sealed containers share the prefix
	filetype.AddMatcher(sqdocType, func(b []byte) bool {
		return bytes.HasPrefix(b, []byte(sqdoc.MagicString))
	})
	filetype.AddMatcher(ionType, iondoc.IsBinary)
}

var extFormats = []struct {
	ext    string
	format Format
}{
	// longest first
	{".delta.json", FormatDelta},
	{".json", FormatJSON},
	{".markdown", FormatMarkdown},
	{".md", FormatMarkdown},
	{".txt", FormatMarkdown},
	{".xhtml", FormatXHTML},
	{".html", FormatXHTML},
	{".htm", FormatXHTML},
	{".sqdoc", FormatSqdoc},
	{".ion", FormatIon},
}

// FormatFromPath guesses the format from the file name alone.
func FormatFromPath(name string) (Format, bool) {
	name = strings.ToLower(name)
	for _, e := range extFormats {
		if strings.HasSuffix(name, e.ext) {
			return e.format, true
		}
	}
	return FormatAuto, false
}

// Detect decides the format of a document from its leading bytes and its
// name. Binary signatures win over the name, the name wins over text
// heuristics.
func Detect(name string, head []byte) (Format, bool) {
	if kind, err := filetype.Match(head); err == nil && kind != filetype.Unknown {
		switch kind.Extension {
		case sqdocType.Extension:
			return FormatSqdoc, true
		case ionType.Extension:
			return FormatIon, true
		}
	}
	if f, ok := FormatFromPath(name); ok {
		return f, true
	}
	return sniffText(head)
}

func sniffText(head []byte) (Format, bool) {
	head = bytes.TrimLeft(bytes.TrimPrefix(head, []byte("\xef\xbb\xbf")), " \t\r\n")
	switch {
	case bytes.HasPrefix(head, []byte("$ion_1_0")):
		return FormatIon, true
	case bytes.HasPrefix(head, []byte("<")):
		return FormatXHTML, true
	case bytes.HasPrefix(head, []byte("{")):
		rest := bytes.TrimLeft(head[1:], " \t\r\n")
		if len(rest) > 0 && rest[0] != '"' && rest[0] != '}' {
			// unquoted field names
			return FormatIon, true
		}
		if bytes.Contains(head, []byte(`"ops"`)) {
			return FormatDelta, true
		}
		return FormatJSON, true
	}
	return FormatAuto, false
}

func readHead(r io.Reader) ([]byte, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	return head[:n], nil
}

// isDocumentFile reports the format of the file at path if it is a document
// we can read.
func isDocumentFile(path string) (Format, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatAuto, false, err
	}
	defer f.Close()

	head, err := readHead(f)
	if err != nil {
		return FormatAuto, false, err
	}
	format, ok := Detect(filepath.Base(path), head)
	return format, ok, nil
}

func isArchiveFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head, err := readHead(f)
	if err != nil {
		return false, err
	}
	return filetype.Is(head, "zip"), nil
}
