package convert

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"spanedit/internal/config"
	"spanedit/internal/state"
)

// buildOutputPath returns the output file for a document read from src. src
// is relative to the processed directory or archive, or a bare file name.
// The name comes from the configured template when it expands to something,
// otherwise from the source file name.
func buildOutputPath(values Values, src, dst string, format Format, env *state.LocalEnv) string {
	outDir := determineOutputDir(src, dst, env)
	defaultFile := buildDefaultFileName(src, format, env)

	tmpl := env.Cfg.Convert.OutputNameTemplate
	if tmpl == "" {
		return filepath.Join(outDir, defaultFile)
	}

	expanded, err := expandTemplate(values, config.OutputNameTemplateFieldName, tmpl)
	if err != nil {
		env.Log.Warn("Unable to prepare output filename", zap.Error(err))
		return filepath.Join(outDir, defaultFile)
	}
	expanded = strings.TrimSpace(filepath.FromSlash(expanded))
	if expanded == "" {
		return filepath.Join(outDir, defaultFile)
	}
	return assemblePathWithSubdirs(outDir, expanded, format, env)
}

func determineOutputDir(src, dst string, env *state.LocalEnv) string {
	if env.NoDirs {
		return dst
	}
	return filepath.Join(dst, filepath.Dir(src))
}

func buildDefaultFileName(src string, format Format, env *state.LocalEnv) string {
	base := filepath.Base(src)
	if f, ok := FormatFromPath(base); ok {
		for _, e := range extFormats {
			if e.format == f && strings.HasSuffix(strings.ToLower(base), e.ext) {
				base = base[:len(base)-len(e.ext)]
				break
			}
		}
	} else {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return cleanPathSegment(base, env) + format.Ext()
}

// assemblePathWithSubdirs places an expanded name, which may contain
// directories, under outDir cleaning every segment.
func assemblePathWithSubdirs(outDir, expanded string, format Format, env *state.LocalEnv) string {
	segments := splitAndCleanPath(expanded)
	if len(segments) == 0 {
		return outDir
	}

	parts := make([]string, 0, len(segments)+1)
	parts = append(parts, outDir)
	for _, s := range segments[:len(segments)-1] {
		parts = append(parts, cleanPathSegment(s, env))
	}
	parts = append(parts, cleanPathSegment(segments[len(segments)-1], env)+format.Ext())
	return filepath.Join(parts...)
}

func splitAndCleanPath(path string) []string {
	path = strings.TrimSuffix(path, string(os.PathSeparator))
	segments := make([]string, 0, 8)

	for head, tail := filepath.Split(path); tail != ""; head, tail = filepath.Split(head) {
		if tail != "." && tail != ".." {
			segments = slices.Insert(segments, 0, tail)
		}
		head = strings.TrimSuffix(head, string(os.PathSeparator))
		if head == "" {
			break
		}
	}
	return segments
}

func cleanPathSegment(segment string, env *state.LocalEnv) string {
	if env.Cfg.Convert.FileNameTransliterate {
		segment = slug.Make(segment)
	}
	return config.CleanFileName(segment)
}
