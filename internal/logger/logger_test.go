package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/oggyb/rotrade-sync/internal/config"
)

// capture points the global logger at a buffer for the duration of f.
func capture(t *testing.T, c Config, f func()) string {
	t.Helper()

	var buf bytes.Buffer
	c.Output = &buf
	Init(&c)
	t.Cleanup(func() { Init(&Config{Level: "info", Format: FormatText}) })

	f()
	return buf.String()
}

func TestLogger_TextFormat(t *testing.T) {
	out := capture(t, Config{Level: "debug", Format: FormatText, Component: "test"}, func() {
		Info("hello rotrade", "key", "value")
	})

	if !strings.Contains(out, "hello rotrade") {
		t.Errorf("expected message, got: %s", out)
	}
	if !strings.Contains(out, "component=test") {
		t.Errorf("expected component field, got: %s", out)
	}
	if !strings.Contains(out, "key=value") {
		t.Errorf("expected structured field, got: %s", out)
	}
}

func TestLogger_JSONFormat(t *testing.T) {
	out := capture(t, Config{Level: "info", Format: FormatJSON, Component: "json_test"}, func() {
		Info("json log", "foo", "bar")
	})

	if !strings.Contains(out, `"msg":"json log"`) {
		t.Errorf("expected JSON message, got: %s", out)
	}
	if !strings.Contains(out, `"component":"json_test"`) {
		t.Errorf("expected component in JSON, got: %s", out)
	}
	if !strings.Contains(out, `"foo":"bar"`) {
		t.Errorf("expected structured field in JSON, got: %s", out)
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	out := capture(t, Config{Level: "error", Format: FormatText}, func() {
		Info("should not appear")
		Error("should appear")
	})

	if strings.Contains(out, "should not appear") {
		t.Errorf("info log should not appear, got: %s", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("error log should appear, got: %s", out)
	}
}

func TestLogger_WithAndNamed(t *testing.T) {
	out := capture(t, Config{Level: "debug", Format: FormatText}, func() {
		With("session", "abc").Info("refreshing")
		Named("bridge").Warn("tick overrun")
	})

	if !strings.Contains(out, "session=abc") {
		t.Errorf("expected session field, got: %s", out)
	}
	if !strings.Contains(out, "sub=bridge") {
		t.Errorf("expected sub field, got: %s", out)
	}
}

func TestLogger_InitFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Log.Level = "debug"
	cfg.Log.Format = "json"
	cfg.Log.Component = "cfg_test"

	InitFromConfig(cfg)
	t.Cleanup(func() { Init(&Config{Level: "info", Format: FormatText}) })

	if L() == nil {
		t.Fatal("expected non-nil logger")
	}
	if !L().Enabled(context.Background(), slog.LevelDebug) {
		t.Errorf("expected debug level to be enabled")
	}
}
