package state

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"

	"spanedit/internal/config"
	"spanedit/internal/editor"
	"spanedit/pkg/spans"
)

func TestContextWithEnv(t *testing.T) {
	env := EnvFromContext(ContextWithEnv(context.Background()))
	if env == nil {
		t.Fatal("EnvFromContext() returned nil")
	}
	if env.start.IsZero() {
		t.Error("Environment start time not set")
	}
	if env.Uptime() < 0 {
		t.Error("negative uptime")
	}
}

func TestEnvFromContextPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic when env not in context")
		}
	}()
	EnvFromContext(context.Background())
}

func TestEditorOptions(t *testing.T) {
	env := EnvFromContext(ContextWithEnv(context.Background()))
	env.Log = zaptest.NewLogger(t)
	env.Cfg = &config.Config{Editor: config.EditorConfig{DefaultFontSize: 12, MinFontSize: 10, MaxFontSize: 20}}

	doc := editor.FromParts("hello", []spans.Span{}, env.EditorOptions()...)
	doc.Select(editor.NewSelection(0, 5))
	doc.SetFontSize(99)
	if got := doc.Spans(); len(got) != 1 || got[0].String() != "[0,4]{font-size:20}" {
		t.Fatalf("font size must be clamped to configured bounds: %v", got)
	}
	doc.SetFontSize(12)
	if len(doc.Spans()) != 0 {
		t.Fatalf("configured default size must not be stored: %v", doc.Spans())
	}
}

func TestRedirectStdLog(t *testing.T) {
	env := EnvFromContext(ContextWithEnv(context.Background()))
	env.Log = zaptest.NewLogger(t)
	env.RedirectStdLog()
	env.RestoreStdLog()
}
