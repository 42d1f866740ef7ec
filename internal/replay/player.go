package replay

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"spanedit/internal/editor"
	"spanedit/pkg/style"
)

// Result is the outcome of playing a script. Parts collects the right halves
// cut off by split steps, in order.
type Result struct {
	Doc    *editor.Document
	Parts  []*editor.Document
	Steps  int
	Failed int
}

// Play applies script to a document built with opts. Failed expectations are
// collected and returned together; a step that cannot be applied stops the
// run.
func Play(ctx context.Context, script *Script, log *zap.Logger, opts ...editor.Option) (*Result, error) {
	if log == nil {
		log = zap.NewNop()
	}
	doc, err := editor.Import(editor.Exported{Text: script.Text, Spans: script.Spans}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initial document: %w", err)
	}
	res := &Result{Doc: doc}

	var failures error
	for i, st := range script.Steps {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		op, err := st.Op()
		if err != nil {
			return res, fmt.Errorf("step %d: %w", i+1, err)
		}
		res.Steps++
		if st.Expect != nil {
			if err := check(res.Doc, st.Expect); err != nil {
				res.Failed++
				failures = multierr.Append(failures, fmt.Errorf("step %d: %w", i+1, err))
			}
			continue
		}
		if err := apply(res, st); err != nil {
			return res, fmt.Errorf("step %d (%s): %w", i+1, op, err)
		}
		log.Debug("Step applied", zap.Int("step", i+1), zap.String("op", op),
			zap.Int("len", res.Doc.Len()), zap.Int("spans", len(res.Doc.Spans())))
	}
	return res, failures
}

func parseStyle(key string) (style.Style, error) {
	return style.ParseKey(strings.TrimSpace(key))
}

func apply(res *Result, st Step) error {
	d := res.Doc
	switch {
	case st.Edit != nil:
		d.Edit(st.Edit.Text, editor.NewSelection(st.Edit.Selection[0], st.Edit.Selection[1]))
	case st.Select != nil:
		d.Select(editor.NewSelection(st.Select[0], st.Select[1]))
	case st.SelectAll:
		d.SelectAll()
	case st.SelectWord != nil:
		d.SelectWordAt(*st.SelectWord)
	case st.Insert != nil:
		return d.InsertText(*st.Insert)
	case st.Enter:
		d.SplitLine()
	case st.Backspace > 0:
		for range st.Backspace {
			d.Backspace()
		}
	case st.Delete > 0:
		for range st.Delete {
			d.DeleteForward()
		}
	case st.Toggle != "", st.Add != "", st.Remove != "", st.Set != "":
		return applyStyle(d, st)
	case st.Clear:
		d.Clear()
	case st.FontSize != 0:
		d.SetFontSize(st.FontSize)
	case st.Increase > 0:
		for range st.Increase {
			d.IncreaseFontSize()
		}
	case st.Decrease > 0:
		for range st.Decrease {
			d.DecreaseFontSize()
		}
	case st.Split != nil:
		left, right, err := editor.Split(d, *st.Split)
		if err != nil {
			return err
		}
		res.Doc = left
		res.Parts = append(res.Parts, right)
	default:
		return fmt.Errorf("%w: nothing to apply", ErrBadStep)
	}
	return nil
}

func applyStyle(d *editor.Document, st Step) error {
	cmds := []struct {
		key string
		fn  func(style.Style)
	}{
		{st.Toggle, d.Toggle},
		{st.Add, d.Add},
		{st.Remove, d.Remove},
		{st.Set, d.SetStyle},
	}
	for _, c := range cmds {
		if c.key == "" {
			continue
		}
		s, err := parseStyle(c.key)
		if err != nil {
			return err
		}
		c.fn(s)
		return nil
	}
	return nil
}

func check(d *editor.Document, want *Expect) (err error) {
	if want.Text != nil && d.Text() != *want.Text {
		err = multierr.Append(err, fmt.Errorf("text is %q, expected %q", d.Text(), *want.Text))
	}
	if want.Spans != nil {
		got := make([]string, 0, len(d.Spans()))
		for _, s := range d.Spans() {
			got = append(got, s.String())
		}
		if !slices.Equal(got, want.Spans) {
			err = multierr.Append(err, fmt.Errorf("spans are %v, expected %v", got, want.Spans))
		}
	}
	if want.Styles != nil {
		expected, perr := style.ParseKeys(want.Styles)
		if perr != nil {
			return multierr.Append(err, perr)
		}
		if got := d.CurrentStyles(); !got.Equal(expected) {
			err = multierr.Append(err, fmt.Errorf("current styles are %v, expected %v", got.Keys(), expected.Keys()))
		}
	}
	if want.Selection != nil {
		sel := d.Selection()
		exp := editor.NewSelection(want.Selection[0], want.Selection[1])
		if sel != exp {
			err = multierr.Append(err, fmt.Errorf("selection is [%d,%d], expected [%d,%d]", sel.Start, sel.End, exp.Start, exp.End))
		}
	}
	return err
}
