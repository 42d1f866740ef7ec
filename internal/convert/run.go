package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	fixzip "github.com/hidez8891/zip"

	"spanedit/internal/state"
	"spanedit/internal/textstat"
)

// formats selected for a run
type formats struct {
	from Format
	to   Format
}

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("convert")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	if src, err = filepath.Abs(src); err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	var fm formats
	if fm.from, err = ParseFormat(cmd.String("from")); err != nil {
		return err
	}
	to := cmd.String("to")
	if to == "" {
		to = env.Cfg.Adapters.DefaultFormat
	}
	if fm.to, err = ParseFormat(to); err != nil || fm.to == FormatAuto {
		log.Warn("Unknown output format requested, switching to default", zap.String("requested", to), zap.String("default", env.Cfg.Adapters.DefaultFormat))
		if fm.to, err = ParseFormat(env.Cfg.Adapters.DefaultFormat); err != nil {
			return err
		}
	}

	env.NoDirs, env.Overwrite, env.Clipboard = cmd.Bool("nodirs"), cmd.Bool("overwrite"), cmd.Bool("clipboard")

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst), zap.Stringer("from", fm.from), zap.Stringer("to", fm.to))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, src, dst, fm, log)
}

// process decides whether src is a directory, an archive (possibly with a path
// inside it) or a single document and handles it accordingly.
func process(ctx context.Context, src, dst string, fm formats, log *zap.Logger) error {
	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exist - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			if err := processDir(ctx, head, dst, fm, log); err != nil {
				return fmt.Errorf("unable to process directory: %w", err)
			}
			break
		}

		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		archive, err := isArchiveFile(head)
		if err != nil {
			return fmt.Errorf("unable to check archive type: %w", err)
		}
		if archive {
			tail = strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator))
			if err := processArchive(ctx, head, filepath.ToSlash(tail), "", dst, fm, log); err != nil {
				return fmt.Errorf("unable to process archive: %w", err)
			}
			break
		}

		if len(tail) != 0 {
			return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}
		data, err := os.ReadFile(head)
		if err != nil {
			return fmt.Errorf("unable to read input: %w", err)
		}
		return processDocument(ctx, data, filepath.Base(head), dst, fm, log)
	}
	if len(head) == 0 {
		return fmt.Errorf("input source was not found (%s)", src)
	}
	return nil
}

// processDir converts every recognized document and archive under dir.
// Files are visited in natural name order, failures are logged and skipped.
func processDir(ctx context.Context, dir, dst string, fm formats, log *zap.Logger) error {
	var paths []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if info.Mode().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.Sort(natural.StringSlice(paths))

	count := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))

		archive, err := isArchiveFile(path)
		if err != nil {
			log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			continue
		}
		if archive {
			count++
			if err := processArchive(ctx, path, "", filepath.Dir(rel), dst, fm, log); err != nil {
				log.Error("Unable to process archive", zap.String("file", path), zap.Error(err))
			}
			continue
		}

		if fm.from == FormatAuto {
			if _, ok, err := isDocumentFile(path); err != nil || !ok {
				log.Debug("Skipping file, not recognized as document or archive", zap.String("file", path), zap.Error(err))
				continue
			}
		}

		count++
		data, err := os.ReadFile(path)
		if err != nil {
			log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
			continue
		}
		if err := processDocument(ctx, data, rel, dst, fm, log); err != nil {
			log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
		}
	}
	if count == 0 {
		log.Debug("Nothing to process", zap.String("dir", dir))
	}
	return nil
}

// processArchive converts documents inside the archive at path whose names
// start with pathIn. Outputs go under pathOut relative to dst.
func processArchive(ctx context.Context, path, pathIn, pathOut, dst string, fm formats, log *zap.Logger) error {
	count := 0
	err := walkArchive(path, pathIn, func(archive string, f *fixzip.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		r, err := f.Open()
		if err != nil {
			log.Error("Unable to process file in archive",
				zap.String("archive", archive), zap.String("file", f.FileHeader.Name), zap.Error(err))
			return nil
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			log.Error("Unable to process file in archive",
				zap.String("archive", archive), zap.String("file", f.FileHeader.Name), zap.Error(err))
			return nil
		}

		if fm.from == FormatAuto {
			if _, ok := Detect(f.FileHeader.Name, data[:min(len(data), sniffLen)]); !ok {
				log.Debug("Skipping file, not recognized as document", zap.String("archive", archive), zap.String("file", f.FileHeader.Name))
				return nil
			}
		}

		count++
		if err := processDocument(ctx, data, filepath.Join(pathOut, filepath.FromSlash(f.FileHeader.Name)), dst, fm, log); err != nil {
			log.Error("Unable to process file in archive",
				zap.String("archive", archive), zap.String("file", f.FileHeader.Name), zap.Error(err))
		}
		return nil
	})
	if err == nil && count == 0 {
		log.Debug("Nothing to process", zap.String("archive", path))
	}
	return err
}

// processDocument converts a single document. src is the source path relative
// to the processed directory or archive, or just the file name, and decides
// where under dst the result goes.
func processDocument(ctx context.Context, data []byte, src, dst string, fm formats, log *zap.Logger) (rerr error) {
	env := state.EnvFromContext(ctx)

	var outputName string
	id := uuid.NewString()

	log.Info("Conversion starting", zap.String("from", src), zap.String("id", id))
	defer func(start time.Time) {
		if r := recover(); r != nil {
			log.Error("Conversion ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("conversion panic: %v", r)
		} else if rerr == nil {
			log.Info("Conversion completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName))
		}
	}(time.Now())

	doc, _, err := ReadDocument(env, src, data, fm.from)
	if err != nil {
		return err
	}
	result, err := WriteDocument(env, doc, fm.to)
	if err != nil {
		return err
	}

	stats := textstat.NewCounter(log).Count(doc)
	outputName = buildOutputPath(newValues(doc, src, fm.to, id, stats), src, dst, fm.to, env)

	if _, err := os.Stat(outputName); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", outputName)
		}
		log.Warn("Overwriting existing file", zap.String("file", outputName))
	} else if !os.IsNotExist(err) {
		return err
	} else if err := os.MkdirAll(filepath.Dir(outputName), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	if err := os.WriteFile(outputName, result, 0644); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}

	if env.Clipboard {
		CopyToClipboard(log, result, fm.to)
	}

	if env.Rpt != nil {
		env.Rpt.StoreData(fmt.Sprintf("source-%s%s", id, filepath.Ext(src)), data)
		env.Rpt.Store(fmt.Sprintf("result-%s%s", id, fm.to.Ext()), outputName)
	}
	return nil
}
