package lgr

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitWritesToRotatingFile(t *testing.T) {
	prev := Logger
	t.Cleanup(func() {
		_ = Close()
		Logger = prev
	})

	path := filepath.Join(t.TempDir(), "tandem.log")
	Init(Options{Level: "debug", File: path, Component: "tracker"})
	Logger.Debug("tracker reseeded", slog.Int("objects", 2))
	if err := Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, "tracker reseeded") || !strings.Contains(text, `"component":"tracker"`) {
		t.Errorf("unexpected log contents: %s", text)
	}
}
