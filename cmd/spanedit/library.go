package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"spanedit/internal/adapter/sqdocfile"
	"spanedit/internal/convert"
	"spanedit/internal/state"
	"spanedit/internal/store"
	"spanedit/pkg/sqdoc"
)

func openLibrary(env *state.LocalEnv) (*store.Store, error) {
	s, err := store.Open(env.Cfg.Store.Path, env.Log)
	if err != nil {
		return nil, fmt.Errorf("unable to open library: %w", err)
	}
	return s, nil
}

func storePut(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() == 0 {
		return errors.New("no input source has been specified")
	}
	from, err := convert.ParseFormat(cmd.String("from"))
	if err != nil {
		return err
	}

	lib, err := openLibrary(env)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, lib.Close()) }()

	cfg := env.Cfg.Adapters.Sqdoc
	opts := sqdoc.SaveOptions{
		Compression: cfg.Compress,
		Encryption:  sqdoc.EncryptionOptions{Enabled: cfg.Encrypt, Password: cfg.Password.Reveal()},
	}
	for _, src := range cmd.Args().Slice() {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc, _, err := convert.LoadDocument(env, src, from)
		if err != nil {
			return err
		}
		container, err := sqdocfile.Container(doc, cfg.Author)
		if err != nil {
			return err
		}
		id, err := lib.Put(container, opts)
		if err != nil {
			return err
		}
		env.Log.Info("Document added", zap.String("source", src), zap.Stringer("id", id), zap.String("title", container.Metadata.Title))
		fmt.Fprintln(os.Stdout, id)
	}
	return nil
}

func storeGet(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)
	ref := cmd.Args().Get(0)
	if ref == "" {
		return errors.New("no document id has been specified")
	}
	to, err := outputFormat(env, cmd, "to")
	if err != nil {
		return err
	}

	lib, err := openLibrary(env)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, lib.Close()) }()

	id, err := lib.Resolve(ref)
	if err != nil {
		return err
	}
	raw, err := lib.Raw(id)
	if err != nil {
		return err
	}
	doc, _, err := convert.ReadDocument(env, id.String()+convert.FormatSqdoc.Ext(), raw, convert.FormatSqdoc)
	if err != nil {
		return err
	}
	data, err := convert.WriteDocument(env, doc, to)
	if err != nil {
		return err
	}
	return writeResult(env, data, cmd.Args().Get(1), to, false)
}

func storeList(ctx context.Context, _ *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)
	lib, err := openLibrary(env)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, lib.Close()) }()

	entries, err := lib.List()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tMODIFIED\tSIZE\tSEALED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%v\n", e.ID, e.Title, e.Author, e.Modified.Format(time.DateTime), e.Size, e.Sealed)
	}
	return tw.Flush()
}

func storeDelete(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() == 0 {
		return errors.New("no document id has been specified")
	}
	lib, err := openLibrary(env)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, lib.Close()) }()

	for _, ref := range cmd.Args().Slice() {
		id, err := lib.Resolve(ref)
		if err != nil {
			return err
		}
		if err := lib.Delete(id); err != nil {
			return err
		}
		env.Log.Info("Document removed", zap.Stringer("id", id))
	}
	return nil
}
