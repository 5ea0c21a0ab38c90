package obslog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q)=%v want %v", in, got, want)
		}
	}
}

func TestInitWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "evalboard.log")
	if err := Init(Options{Level: "info", Format: "json", File: path}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = Init(Options{Level: "error"}) })

	Named("test").Info("hello")
	Sync()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), `"component":"test"`) || !strings.Contains(string(b), "hello") {
		t.Fatalf("unexpected log content: %s", b)
	}
}

func TestCloseReleasesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evalboard.log")
	if err := Init(Options{Level: "info", Format: "json", File: path}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	f := logFile
	if f == nil {
		t.Fatalf("log file not tracked")
	}
	Named("test").Info("before close")
	if err := Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if logFile != nil {
		t.Fatalf("log file still tracked after Close")
	}
	if _, err := f.Write([]byte("x")); err == nil {
		t.Fatalf("log file still open after Close")
	}
	Named("test").Info("after close")

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), "before close") || strings.Contains(string(b), "after close") {
		t.Fatalf("unexpected log content: %s", b)
	}
	if err := Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestInitFromEnvDefaults(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_TO_FILE", "")
	t.Setenv("LOG_TO_CONSOLE", "false")
	if err := InitFromEnv(); err != nil {
		t.Fatalf("InitFromEnv: %v", err)
	}
	if L() == nil {
		t.Fatalf("nil logger")
	}
}
