package convert

import (
	"os"
	"path/filepath"
	"testing"

	fixzip "github.com/hidez8891/zip"

	"spanedit/internal/adapter/iondoc"
	"spanedit/internal/adapter/sqdocfile"
	"spanedit/internal/editor"
)

func TestDetect(t *testing.T) {
	doc := editor.FromParts("hello", nil)
	sq, err := sqdocfile.New(sqdocfile.Options{Compression: true}).Decode(doc)
	if err != nil {
		t.Fatal(err)
	}
	ion, err := iondoc.New(false).Decode(doc)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		head []byte
		want Format
		ok   bool
	}{
		{"doc.bin", sq, FormatSqdoc, true},
		{"doc.json", ion, FormatIon, true},
		{"doc.delta.json", []byte(`{"ops":[]}`), FormatDelta, true},
		{"DOC.MD", []byte("# x"), FormatMarkdown, true},
		{"notes", []byte(`  {"text":"x"}`), FormatJSON, true},
		{"notes", []byte(`{"ops":[{"insert":"x\n"}]}`), FormatDelta, true},
		{"notes", []byte(`{version: 1, text: "x"}`), FormatIon, true},
		{"notes", []byte("$ion_1_0 {}"), FormatIon, true},
		{"notes", []byte("\xef\xbb\xbf<html/>"), FormatXHTML, true},
		{"notes", []byte("plain words"), FormatAuto, false},
	}
	for _, tt := range tests {
		got, ok := Detect(tt.name, tt.head)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Detect(%q) = %v, %v; want %v, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestIsArchiveFile(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "test.zip")
	if err := os.WriteFile(plain, []byte("not a real zip file"), 0644); err != nil {
		t.Fatal(err)
	}
	if got, err := isArchiveFile(plain); err != nil || got {
		t.Errorf("isArchiveFile() = %v, %v; want false", got, err)
	}

	arc := filepath.Join(dir, "docs.zip")
	writeZip(t, arc, map[string]string{"a.md": "# a"})
	if got, err := isArchiveFile(arc); err != nil || !got {
		t.Errorf("isArchiveFile() = %v, %v; want true", got, err)
	}

	if _, err := isArchiveFile(filepath.Join(dir, "nonexistent.zip")); err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestWalkArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.zip")
	writeZip(t, path, map[string]string{"one/a.md": "a", "one/b.md": "b", "two/c.md": "c"})

	var seen []string
	err := walkArchive(path, "one/", func(_ string, f *fixzip.File) error {
		seen = append(seen, f.FileHeader.Name)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 {
		t.Errorf("unexpected entries: %v", seen)
	}

	bad := filepath.Join(t.TempDir(), "bad.zip")
	writeZip(t, bad, map[string]string{"../evil.md": "x"})
	if err := walkArchive(bad, "", func(string, *fixzip.File) error { return nil }); err == nil {
		t.Error("expected unsafe path error")
	}
}

func TestIsSafePath(t *testing.T) {
	for name, want := range map[string]bool{
		"a/b.md":      true,
		"a/../b.md":   false,
		"/etc/passwd": false,
		`\windows`:    false,
		"..":          false,
		"a..b/c":      true,
	} {
		if got := isSafePath(name); got != want {
			t.Errorf("isSafePath(%q) = %v, want %v", name, got, want)
		}
	}
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	w := fixzip.NewWriter(f)
	for name, content := range files {
		fw, err := w.CreateHeader(&fixzip.FileHeader{Name: name, Method: fixzip.Deflate})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}
