package convert

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"spanedit/internal/adapter/jsondoc"
	"spanedit/internal/config"
	"spanedit/internal/state"
)

func runEnv(t *testing.T) (context.Context, *state.LocalEnv) {
	t.Helper()
	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatal(err)
	}
	env.Cfg = cfg
	env.Log = zaptest.NewLogger(t)
	return ctx, env
}

func readJSON(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	doc, err := jsondoc.New(false, false).Encode(data)
	if err != nil {
		t.Fatalf("output is not a json document: %v", err)
	}
	return doc.Text()
}

func TestProcessSingleFile(t *testing.T) {
	ctx, env := runEnv(t)
	src, dst := t.TempDir(), t.TempDir()
	in := filepath.Join(src, "doc.md")
	if err := os.WriteFile(in, []byte("# Hello\nsome **bold** words\n"), 0644); err != nil {
		t.Fatal(err)
	}

	fm := formats{from: FormatAuto, to: FormatJSON}
	if err := process(ctx, in, dst, fm, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if got := readJSON(t, filepath.Join(dst, "Hello.json")); got != "Hello\nsome bold words" {
		t.Errorf("unexpected text: %q", got)
	}

	if err := process(ctx, in, dst, fm, env.Log); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("expected existing output error, got %v", err)
	}
	env.Overwrite = true
	if err := process(ctx, in, dst, fm, env.Log); err != nil {
		t.Errorf("overwrite failed: %v", err)
	}
}

func TestProcessDirectory(t *testing.T) {
	ctx, env := runEnv(t)
	env.Cfg.Convert.OutputNameTemplate = ""
	src, dst := t.TempDir(), t.TempDir()

	files := map[string]string{
		"a.md":                "first",
		"nested/b.xhtml":      "<body><p>second</p></body>",
		"nested/c.delta.json": `{"ops":[{"insert":"third\n"}]}`,
		"skip.bin":            "\x00\x01",
	}
	for name, content := range files {
		path := filepath.Join(src, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	writeZip(t, filepath.Join(src, "more.zip"), map[string]string{"inner/d.md": "fourth"})

	if err := process(ctx, src, dst, formats{from: FormatAuto, to: FormatJSON}, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	for path, want := range map[string]string{
		"a.json":        "first",
		"nested/b.json": "second",
		"nested/c.json": "third",
		"inner/d.json":  "fourth",
	} {
		if got := readJSON(t, filepath.Join(dst, filepath.FromSlash(path))); got != want {
			t.Errorf("%s: unexpected text %q", path, got)
		}
	}
	if _, err := os.Stat(filepath.Join(dst, "skip.json")); !os.IsNotExist(err) {
		t.Errorf("unrecognized file must be skipped")
	}
}

func TestProcessPathInsideArchive(t *testing.T) {
	ctx, env := runEnv(t)
	env.Cfg.Convert.OutputNameTemplate = ""
	env.NoDirs = true
	src, dst := t.TempDir(), t.TempDir()
	arc := filepath.Join(src, "docs.zip")
	writeZip(t, arc, map[string]string{"one/a.md": "alpha", "two/b.md": "beta"})

	if err := process(ctx, filepath.Join(arc, "two"), dst, formats{from: FormatAuto, to: FormatJSON}, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if got := readJSON(t, filepath.Join(dst, "b.json")); got != "beta" {
		t.Errorf("unexpected text: %q", got)
	}
	if _, err := os.Stat(filepath.Join(dst, "a.json")); !os.IsNotExist(err) {
		t.Errorf("entries outside requested path must be skipped")
	}
}

func TestProcessMissingSource(t *testing.T) {
	ctx, env := runEnv(t)
	if err := process(ctx, filepath.Join(t.TempDir(), "nope", "doc.md"), t.TempDir(), formats{to: FormatJSON}, env.Log); err == nil {
		t.Error("expected error for missing source")
	}
}

func TestProcessDocumentReportsBadInput(t *testing.T) {
	ctx, env := runEnv(t)
	err := processDocument(ctx, []byte(`{"text": 1}`), "bad.json", t.TempDir(), formats{from: FormatAuto, to: FormatMarkdown}, env.Log)
	if err == nil || !strings.Contains(err.Error(), "bad.json") {
		t.Errorf("expected read error naming the source, got %v", err)
	}
}
