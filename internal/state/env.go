// Package state defines shared program state.
package state

import (
	"context"
	"time"

	"go.uber.org/zap"

	"spanedit/internal/config"
	"spanedit/internal/editor"
)

type envKey struct{}

// LocalEnv keeps everything the program needs in a single place.
type LocalEnv struct {
	Cfg *config.Config
	Rpt *config.Report
	Log *zap.Logger

	// used by convert subcommand
	NoDirs    bool
	Overwrite bool
	Clipboard bool

	start         time.Time
	restoreStdLog func()
}

func newLocalEnv() *LocalEnv {
	return &LocalEnv{start: time.Now(), Log: zap.NewNop()}
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, newLocalEnv())
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

// EditorOptions returns document options derived from the configuration.
func (e *LocalEnv) EditorOptions() []editor.Option {
	opts := []editor.Option{editor.WithLogger(e.Log)}
	if e.Cfg != nil {
		ec := e.Cfg.Editor
		opts = append(opts,
			editor.WithPlaceholder(ec.Placeholder),
			editor.WithFontSizes(ec.DefaultFontSize, ec.MinFontSize, ec.MaxFontSize))
	}
	return opts
}

func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}
