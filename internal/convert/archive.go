package convert

import (
	"fmt"
	"path"
	"strings"

	fixzip "github.com/hidez8891/zip"
)

type walkFunc func(archive string, file *fixzip.File) error

// walkArchive calls walkFn for every file in archive whose name starts with
// pattern. Entries escaping the archive root fail the whole walk.
func walkArchive(archive, pattern string, walkFn walkFunc) error {
	r, err := fixzip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		name := f.FileHeader.Name
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if !f.FileInfo().IsDir() && strings.HasPrefix(name, pattern) {
			if err := walkFn(archive, f); err != nil {
				return err
			}
		}
	}
	return nil
}

func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) {
		return false
	}
	for part := range strings.SplitSeq(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
