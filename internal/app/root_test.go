package app

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blackwell-systems/snaprotate/internal/config"
)

// captureStdout runs f and returns everything it wrote to os.Stdout.
func captureStdout(t *testing.T, f func()) string {
	t.Helper()
	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = origStdout }()

	f()

	w.Close()
	var buf bytes.Buffer
	buf.ReadFrom(r)
	return buf.String()
}

// withConfig writes yaml to a temp config file and points --config at it for
// the duration of the test.
func withConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snaprotate.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	old := configPath
	configPath = path
	t.Cleanup(func() { configPath = old })
	return path
}

func TestRootCommand(t *testing.T) {
	if RootCmd.Use != "snaprotate" {
		t.Errorf("expected Use to be 'snaprotate', got '%s'", RootCmd.Use)
	}

	if RootCmd.Short == "" {
		t.Error("expected Short description to be set")
	}

	if RootCmd.Long == "" {
		t.Error("expected Long description to be set")
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	expectedCommands := []string{"run", "list", "daemon", "history", "doctor"}
	foundCommands := make(map[string]bool)

	for _, cmd := range RootCmd.Commands() {
		foundCommands[cmd.Use] = true
	}

	for _, expected := range expectedCommands {
		if !foundCommands[expected] {
			t.Errorf("expected command '%s' to be registered", expected)
		}
	}
}

func TestRootCommandHasPersistentFlags(t *testing.T) {
	for _, name := range []string{"config", "log-level", "log-format"} {
		flag := RootCmd.PersistentFlags().Lookup(name)
		if flag == nil {
			t.Errorf("expected --%s flag to be registered", name)
			continue
		}
		if flag.Usage == "" {
			t.Errorf("expected --%s flag to have usage text", name)
		}
	}
}

func TestRootCommandHint(t *testing.T) {
	old := configPath
	configPath = filepath.Join(t.TempDir(), "missing.yaml")
	defer func() { configPath = old }()

	out := captureStdout(t, func() {
		if err := RootCmd.RunE(RootCmd, nil); err != nil {
			t.Errorf("RunE() error: %v", err)
		}
	})
	if !strings.Contains(out, "No config found") {
		t.Errorf("expected missing-config hint, got:\n%s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"WARN", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseLevel(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	oldLevel, oldFormat := logLevel, logFormat
	defer func() { logLevel, logFormat = oldLevel, oldFormat }()

	cfg := &config.Config{Logging: config.LoggingConfig{Level: "warn", Format: "json"}}

	// Config supplies defaults.
	logLevel, logFormat = "", ""
	var buf bytes.Buffer
	logger, level, err := newLogger(&buf, cfg)
	if err != nil {
		t.Fatalf("newLogger() error: %v", err)
	}
	if level.Level() != slog.LevelWarn {
		t.Errorf("expected warn level from config, got %v", level.Level())
	}
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("expected info to be filtered at warn level")
	}
	if !strings.Contains(buf.String(), `"msg":"shown"`) {
		t.Errorf("expected JSON output, got %q", buf.String())
	}

	// Flags win over config.
	logLevel, logFormat = "debug", "text"
	buf.Reset()
	logger, level, err = newLogger(&buf, cfg)
	if err != nil {
		t.Fatalf("newLogger() error: %v", err)
	}
	if level.Level() != slog.LevelDebug {
		t.Errorf("expected debug level from flag, got %v", level.Level())
	}
	logger.Debug("text line")
	if !strings.Contains(buf.String(), "msg=\"text line\"") {
		t.Errorf("expected text output, got %q", buf.String())
	}

	logFormat = "xml"
	if _, _, err := newLogger(&buf, cfg); err == nil {
		t.Error("expected error for invalid format")
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", "b", "c"); got != "b" {
		t.Errorf("expected b, got %q", got)
	}
	if got := firstNonEmpty("", ""); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}
