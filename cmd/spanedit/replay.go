package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"spanedit/internal/convert"
	"spanedit/internal/editor"
	"spanedit/internal/replay"
	"spanedit/internal/state"
)

// outputFormat returns the format named by flag, falling back to the
// configured default.
func outputFormat(env *state.LocalEnv, cmd *cli.Command, flag string) (convert.Format, error) {
	name := cmd.String(flag)
	if name == "" {
		name = env.Cfg.Adapters.DefaultFormat
	}
	f, err := convert.ParseFormat(name)
	if err != nil {
		return f, err
	}
	if f == convert.FormatAuto {
		return f, fmt.Errorf("%w: output format must be explicit", convert.ErrUnknownFormat)
	}
	return f, nil
}

// writeResult writes data to fname, or to STDOUT when fname is empty.
func writeResult(env *state.LocalEnv, data []byte, fname string, f convert.Format, clip bool) error {
	if clip {
		convert.CopyToClipboard(env.Log, data, f)
	}
	if fname == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(fname, data, 0644); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}
	if env.Rpt != nil {
		env.Rpt.Store("result"+f.Ext(), fname)
	}
	return nil
}

func replayScript(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("replay")

	fname := cmd.Args().Get(0)
	if len(fname) == 0 {
		return errors.New("no script has been specified")
	}
	script, err := replay.Load(fname)
	if err != nil {
		return err
	}
	if env.Rpt != nil {
		if err := env.Rpt.StoreCopy("script.yaml", fname); err != nil {
			log.Warn("Unable to store script in report", zap.Error(err))
		}
	}

	if src := cmd.String("doc"); src != "" {
		doc, _, err := convert.LoadDocument(env, src, convert.FormatAuto)
		if err != nil {
			return err
		}
		e := editor.Export(doc)
		script.Text, script.Spans = e.Text, e.Spans
	}

	to, err := outputFormat(env, cmd, "to")
	if err != nil {
		return err
	}

	res, playErr := replay.Play(ctx, script, log, env.EditorOptions()...)
	if res == nil {
		return playErr
	}
	log.Info("Script played", zap.String("script", fname), zap.Int("steps", res.Steps), zap.Int("failed", res.Failed), zap.Int("parts", len(res.Parts)))

	data, err := convert.WriteDocument(env, res.Doc, to)
	if err != nil {
		return err
	}
	if err := writeResult(env, data, cmd.Args().Get(1), to, cmd.Bool("clipboard")); err != nil {
		return err
	}
	return playErr
}
