package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"spanedit/internal/convert"
	"spanedit/internal/editor"
	"spanedit/internal/render"
	"spanedit/internal/state"
	"spanedit/internal/textstat"
)

// parseRange accepts "from:to" or a single caret position.
func parseRange(s string) (editor.Selection, error) {
	a, b, found := strings.Cut(s, ":")
	from, err := strconv.Atoi(strings.TrimSpace(a))
	if err != nil {
		return editor.Selection{}, fmt.Errorf("bad selection %q: %w", s, err)
	}
	if !found {
		return editor.Caret(from), nil
	}
	to, err := strconv.Atoi(strings.TrimSpace(b))
	if err != nil {
		return editor.Selection{}, fmt.Errorf("bad selection %q: %w", s, err)
	}
	return editor.NewSelection(from, to), nil
}

func inspectDocument(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("inspect")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	from, err := convert.ParseFormat(cmd.String("from"))
	if err != nil {
		return err
	}
	doc, format, err := convert.LoadDocument(env, src, from)
	if err != nil {
		return err
	}
	log.Debug("Document loaded", zap.String("source", src), zap.Stringer("format", format), zap.Int("len", doc.Len()))

	if sel := cmd.String("select"); sel != "" {
		r, err := parseRange(sel)
		if err != nil {
			return err
		}
		doc.Select(r)
	}

	theme := render.DefaultTheme()
	base := env.Cfg.Editor.DefaultFontSize
	if err := describe(os.Stdout, doc, theme, base); err != nil {
		return err
	}
	if cmd.Bool("stats") {
		if err := describeStats(os.Stdout, textstat.NewCounter(log).Count(doc)); err != nil {
			return err
		}
	}

	if !cmd.Bool("metrics") && cmd.String("png") == "" {
		return nil
	}
	layout := render.NewLayout(doc, render.NewFontBank(), theme, base)
	if cmd.Bool("metrics") {
		if err := describeLayout(os.Stdout, layout); err != nil {
			return err
		}
	}
	if fname := cmd.String("png"); fname != "" {
		out, err := os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create preview file '%s': %w", fname, err)
		}
		defer out.Close()
		if err := render.WritePNG(out, render.Draw(layout, theme), int(cmd.Int("width"))); err != nil {
			return fmt.Errorf("unable to write preview: %w", err)
		}
		log.Info("Preview written", zap.String("file", fname), zap.Int("width", layout.Width), zap.Int("height", layout.Height))
		if env.Rpt != nil {
			env.Rpt.Store("preview.png", fname)
		}
	}
	return nil
}

func describe(w io.Writer, doc *editor.Document, theme render.Theme, base int) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "text\t%q\n", doc.Text())
	fmt.Fprintf(tw, "length\t%d\n", doc.Len())
	sel := doc.Selection()
	fmt.Fprintf(tw, "selection\t[%d,%d]\n", sel.Start, sel.End)
	cur := doc.CurrentStyles()
	fmt.Fprintf(tw, "current\t%v\t%v\n", cur, render.Resolve(cur, base, theme))
	if pending, ok := doc.Pending(); ok {
		fmt.Fprintf(tw, "pending\t%v\n", pending)
	}
	fmt.Fprintln(tw, "\nspan\tstyles\trendering\ttext")
	text := []rune(doc.Text())
	for _, s := range doc.Spans() {
		fmt.Fprintf(tw, "[%d,%d]\t%v\t%v\t%q\n", s.From, s.To, s.Styles, render.Resolve(s.Styles, base, theme), string(text[s.From:s.To+1]))
	}
	return tw.Flush()
}

func describeStats(w io.Writer, st textstat.Stats) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "\nrunes\t%d\nlines\t%d\nwords\t%d\nsentences\t%d\n", st.Runes, st.Lines, st.Words, st.Sentences)
	for _, k := range st.StyleKeys() {
		fmt.Fprintf(tw, "%s\t%d\n", k, st.Styles[k])
	}
	return tw.Flush()
}

func describeLayout(w io.Writer, l *render.Layout) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "\npage\t%dx%d\n", l.Width, l.Height)
	for i, line := range l.Lines {
		fmt.Fprintf(tw, "line %d\tx=%d y=%d\tascent=%d height=%d width=%d\n", i+1, line.X, line.Y, line.Ascent, line.Height, line.Width)
		for _, seg := range line.Segments {
			fmt.Fprintf(tw, "\t[%d,%d)\t%v\twidth=%d\t%q\n", seg.From, seg.To, seg.Attr, seg.Width, seg.Text)
		}
	}
	return tw.Flush()
}
