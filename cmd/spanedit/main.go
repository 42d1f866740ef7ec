package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"spanedit/internal/config"
	"spanedit/internal/convert"
	"spanedit/internal/misc"
	"spanedit/internal/state"
)

// initializeAppContext prepares application context before command execution but
// after command line has been parsed
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var err error

	if cmd.NArg() == 0 {
		return ctx, nil
	}

	env := state.EnvFromContext(ctx)

	configFile := cmd.String("config")
	if env.Cfg, err = config.LoadConfiguration(configFile); err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	if cmd.Bool("debug") {
		if env.Rpt, err = env.Cfg.Reporting.Prepare(); err != nil {
			return ctx, fmt.Errorf("unable to prepare debug reporter: %w", err)
		}
		if len(configFile) > 0 {
			// password is masked by Dump
			if data, err := config.Dump(env.Cfg); err == nil {
				env.Rpt.StoreData(fmt.Sprintf("config/%s", filepath.Base(configFile)), data)
			}
		}
	}
	if env.Log, err = env.Cfg.Logging.Prepare(env.Rpt); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	env.RedirectStdLog()

	env.Log.Debug("Program started", zap.Strings("args", os.Args), zap.String("ver", misc.GetVersion()), zap.String("runtime", runtime.Version()), zap.String("hash", misc.GetGitHash()))

	if env.Rpt != nil {
		env.Log.Info("Creating debug report", zap.String("location", env.Rpt.Name()))
	}
	if len(configFile) == 0 {
		env.Log.Info("Using defaults (no configuration file)")
	}
	return ctx, nil
}

func destroyAppContext(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)

	env.Log.Debug("Program ended", zap.Duration("elapsed", env.Uptime()), zap.Strings("parsed args", cmd.Args().Slice()))

	env.RestoreStdLog()

	// log is synced now, errors go directly to stderr from here on
	if env.Rpt != nil {
		if er := env.Rpt.Close(); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to close debug report: %w", er))
		}
	}
	if env.Cfg != nil && len(env.Cfg.Logging.FileLogger.Destination) > 0 {
		debug.SetCrashOutput(nil, debug.CrashOptions{})
		fname := filepath.Join(filepath.Dir(env.Cfg.Logging.FileLogger.Destination), misc.GetAppName()+"-panic.log")
		if fi, er := os.Stat(fname); er == nil && fi.Size() == 0 {
			if er := os.Remove(fname); er != nil {
				err = multierr.Append(err, fmt.Errorf("unable to remove empty panic log file '%s': %w", fname, er))
			}
		}
	}
	return
}

// Subcommands return plain errors, cli.Exit is not used.
var errWasHandled bool

// called before the app context is destroyed, so the error still reaches the
// log
func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {
	env := state.EnvFromContext(ctx)
	if env.Cfg != nil {
		env.Log.Error("Program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return err
}

func subcommandNotFoundHandler(ctx context.Context, _ *cli.Command, name string) {
	state.EnvFromContext(ctx).Log.Warn("Unknown command, nothing to do", zap.String("command", name))
}

func formatUsage(what string) string {
	return what + " `FORMAT` (" + strings.Join(convert.FormatNames(), ", ") + ")"
}

func main() {
	ctx, stop := signal.NotifyContext(state.ContextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	app := &cli.Command{
		Name:            misc.GetAppName(),
		Usage:           "styled text documents: conversion, inspection and scripted editing",
		Version:         misc.GetVersion() + " (" + runtime.Version() + ") : " + misc.GetGitHash(),
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		CommandNotFound: subcommandNotFoundHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, DefaultText: "", Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "changes program behavior to help troubleshooting, produces report archive"},
		},
		Commands: []*cli.Command{
			{
				Name:         "convert",
				Usage:        "Converts document(s) between formats",
				OnUsageError: usageErrorHandler,
				Action:       convert.Run,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Value: "auto", Usage: formatUsage("input") + ", auto detects by content and name"},
					&cli.StringFlag{Name: "to", Usage: formatUsage("output") + ", configuration default when absent"},
					&cli.BoolFlag{Name: "nodirs", Aliases: []string{"nd"}, Usage: "when producing output do not keep input directory structure"},
					&cli.BoolFlag{Name: "overwrite", Aliases: []string{"ow"}, Usage: "continue even if destination exits, overwrite files"},
					&cli.BoolFlag{Name: "clipboard", Aliases: []string{"cb"}, Usage: "copy text output to the clipboard as well"},
				},
				ArgsUsage: "SOURCE [DESTINATION]",
				CustomHelpTemplate: fmt.Sprintf(`%s
SOURCE:
    path to document(s) to process:
        path to a file: "[path_to_file]file.json"
        path to a directory: "[path_to_directory]directory" - recursively process all documents under directory
        path to archive with path inside archive: "[path_to_archive]archive.zip[path_in_archive]"

DESTINATION:
    always a path, output file name(s) and extension will be derived from other parameters
    if absent - current working directory
`, cli.CommandHelpTemplate),
			},
			{
				Name:         "inspect",
				Usage:        "Shows text, spans, styles and layout of a document",
				OnUsageError: usageErrorHandler,
				Action:       inspectDocument,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Value: "auto", Usage: formatUsage("input")},
					&cli.StringFlag{Name: "select", Aliases: []string{"s"}, Usage: "report styles at `RANGE` (\"from:to\" or caret position)"},
					&cli.BoolFlag{Name: "metrics", Aliases: []string{"m"}, Usage: "lay the document out and print line and segment metrics"},
					&cli.BoolFlag{Name: "stats", Usage: "print word, sentence and style statistics"},
					&cli.StringFlag{Name: "png", Usage: "render a preview into `FILE`"},
					&cli.IntFlag{Name: "width", Usage: "scale the preview down to `PIXELS` wide"},
				},
				ArgsUsage: "SOURCE",
			},
			{
				Name:         "replay",
				Usage:        "Applies a script of editing events to a document",
				OnUsageError: usageErrorHandler,
				Action:       replayScript,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "doc", Usage: "start from document in `FILE` instead of the script text"},
					&cli.StringFlag{Name: "to", Usage: formatUsage("output")},
					&cli.BoolFlag{Name: "clipboard", Aliases: []string{"cb"}, Usage: "copy text output to the clipboard as well"},
				},
				ArgsUsage: "SCRIPT [DESTINATION]",
				CustomHelpTemplate: fmt.Sprintf(`%s
SCRIPT:
    YAML file with initial "text", optional "spans" and a list of "steps",
    one event per step: edit, select, select_all, select_word, insert, enter,
    backspace, delete, toggle, add, remove, set, clear, font_size, increase,
    decrease, split, expect

DESTINATION:
    file to write resulting document to, if absent - STDOUT
`, cli.CommandHelpTemplate),
			},
			{
				Name:         "store",
				Usage:        "Manages the document library",
				OnUsageError: usageErrorHandler,
				Commands: []*cli.Command{
					{
						Name:         "put",
						Usage:        "Adds document(s) to the library",
						OnUsageError: usageErrorHandler,
						Action:       storePut,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "from", Value: "auto", Usage: formatUsage("input")},
						},
						ArgsUsage: "SOURCE...",
					},
					{
						Name:         "get",
						Usage:        "Extracts a document from the library",
						OnUsageError: usageErrorHandler,
						Action:       storeGet,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "to", Usage: formatUsage("output")},
						},
						ArgsUsage: "ID [DESTINATION]",
					},
					{
						Name:         "list",
						Usage:        "Lists library content",
						OnUsageError: usageErrorHandler,
						Action:       storeList,
					},
					{
						Name:         "delete",
						Usage:        "Removes document(s) from the library",
						OnUsageError: usageErrorHandler,
						Action:       storeDelete,
						ArgsUsage:    "ID...",
					},
				},
			},
			{
				Name:  "dumpconfig",
				Usage: "Dumps either default or actual configuration (YAML)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
				},
				OnUsageError: usageErrorHandler,
				Action:       outputConfiguration,
				ArgsUsage:    "DESTINATION",
				CustomHelpTemplate: fmt.Sprintf(`%s

DESTINATION:
    file name to write configuration to, if absent - STDOUT

Produces file with actual "active" configuration values which is composition of
default values and values specified in configuration file. To see default
configuration embedded into the program use --default flag.
`, cli.CommandHelpTemplate),
			},
		},
	}

	var err error
	// os.Exit below skips deferred calls, keep this the only one
	defer func() {
		stop()
		if err != nil {
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = app.Run(ctx, os.Args)
}

func outputConfiguration(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	fname := cmd.Args().Get(0)

	var (
		err   error
		data  []byte
		state string
	)

	out := os.Stdout
	if len(fname) > 0 {
		out, err = os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer out.Close()
	}

	if cmd.Bool("default") {
		state = "default"
		data, err = config.Prepare()
	} else {
		state = "actual"
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	if len(fname) == 0 {
		fname = "STDOUT"
	}
	env.Log.Info("Outputing configuration", zap.String("state", state), zap.String("file", fname))

	if _, err = out.Write(data); err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}
