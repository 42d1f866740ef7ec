package convert

import (
	"errors"
	"fmt"
	"strings"

	"spanedit/internal/adapter"
	"spanedit/internal/adapter/delta"
	"spanedit/internal/adapter/iondoc"
	"spanedit/internal/adapter/jsondoc"
	"spanedit/internal/adapter/markdown"
	"spanedit/internal/adapter/sqdocfile"
	"spanedit/internal/adapter/xhtml"
	"spanedit/internal/config"
	"spanedit/internal/editor"
)

// Format names a supported document format. FormatAuto asks for detection.
type Format int

const (
	FormatAuto Format = iota - 1
	FormatJSON
	FormatDelta
	FormatMarkdown
	FormatXHTML
	FormatSqdoc
	FormatIon
)

var ErrUnknownFormat = errors.New("convert: unknown format")

var formatNames = [...]string{
	FormatJSON:     jsondoc.Name,
	FormatDelta:    delta.Name,
	FormatMarkdown: markdown.Name,
	FormatXHTML:    xhtml.Name,
	FormatSqdoc:    sqdocfile.Name,
	FormatIon:      iondoc.Name,
}

var formatAliases = map[string]Format{
	"md":    FormatMarkdown,
	"html":  FormatXHTML,
	"quill": FormatDelta,
}

func (f Format) String() string {
	if f == FormatAuto {
		return "auto"
	}
	if f < 0 || int(f) >= len(formatNames) {
		return fmt.Sprintf("Format(%d)", int(f))
	}
	return formatNames[f]
}

// Ext returns the file extension used for output in this format.
func (f Format) Ext() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatDelta:
		return ".delta.json"
	case FormatMarkdown:
		return ".md"
	case FormatXHTML:
		return ".xhtml"
	case FormatSqdoc:
		return ".sqdoc"
	case FormatIon:
		return ".ion"
	default:
		// this should never happen
		panic("unsupported format requested")
	}
}

// ParseFormat accepts format names and a few common aliases. Empty string
// and "auto" select detection.
func ParseFormat(name string) (Format, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "auto" {
		return FormatAuto, nil
	}
	for i, n := range formatNames {
		if n == name {
			return Format(i), nil
		}
	}
	if f, ok := formatAliases[name]; ok {
		return f, nil
	}
	return FormatAuto, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

func FormatNames() []string {
	return append([]string(nil), formatNames[:]...)
}

// NewAdapter returns the adapter for f configured from cfg.
func NewAdapter(f Format, cfg *config.AdaptersConfig, opts ...editor.Option) (adapter.Adapter, error) {
	switch f {
	case FormatJSON:
		return jsondoc.New(cfg.JSON.SingleStyle, cfg.JSON.Indent, opts...), nil
	case FormatDelta:
		return delta.New(opts...), nil
	case FormatMarkdown:
		return markdown.New(opts...), nil
	case FormatXHTML:
		return xhtml.New(opts...), nil
	case FormatSqdoc:
		return sqdocfile.New(sqdocfile.Options{
			Author:      cfg.Sqdoc.Author,
			Compression: cfg.Sqdoc.Compress,
			Encrypt:     cfg.Sqdoc.Encrypt,
			Password:    cfg.Sqdoc.Password.Reveal(),
		}, opts...), nil
	case FormatIon:
		return iondoc.New(cfg.Ion.Text, opts...), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, f)
}
