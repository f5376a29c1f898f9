package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
)

func TestDefaultsAreValid(t *testing.T) {
	if err := Validate(Defaults()); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	svc := NewHardCoded()
	if svc.GetDetectInterval() != 100*time.Millisecond {
		t.Errorf("unexpected detect interval %v", svc.GetDetectInterval())
	}
	if svc.GetTrackInterval() != 30*time.Millisecond {
		t.Errorf("unexpected track interval %v", svc.GetTrackInterval())
	}
	if svc.GetFailurePolicy() != FailureIsolate {
		t.Errorf("unexpected failure policy %q", svc.GetFailurePolicy())
	}
}

func TestNewFromFileOverlaysTOML(t *testing.T) {
	custom := Defaults()
	custom.DetectIntervalMS = 250
	custom.Tracker = "echo"
	custom.Renderers = []string{"journal"}

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "tandem.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	svc, err := NewFromFile(path)
	if err != nil {
		t.Fatalf("NewFromFile: %v", err)
	}
	if svc.GetDetectInterval() != 250*time.Millisecond {
		t.Errorf("expected 250ms detect interval, got %v", svc.GetDetectInterval())
	}
	if svc.GetTracker() != "echo" {
		t.Errorf("expected echo tracker, got %q", svc.GetTracker())
	}
	if got := svc.GetRenderers(); len(got) != 1 || got[0] != "journal" {
		t.Errorf("unexpected renderers %v", got)
	}
}

func TestNewFromFileMissingFileUsesDefaults(t *testing.T) {
	svc, err := NewFromFile(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("NewFromFile: %v", err)
	}
	if svc.GetFPS() != 30 {
		t.Errorf("expected default fps, got %d", svc.GetFPS())
	}
}

func TestNewFromFileRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tandem.toml")
	if err := os.WriteFile(path, []byte("detect_interval = 5\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := NewFromFile(path); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TANDEM_TRACK_INTERVAL_MS", "12")
	t.Setenv("TANDEM_RENDERERS", "console, journal")
	t.Setenv("TANDEM_CONFIDENCE_THRESHOLD", "0.25")
	t.Setenv("TANDEM_SUBSTRATE", "multiprocess")

	svc, err := NewFromFile("")
	if err != nil {
		t.Fatalf("NewFromFile: %v", err)
	}
	if svc.GetTrackInterval() != 12*time.Millisecond {
		t.Errorf("expected 12ms track interval, got %v", svc.GetTrackInterval())
	}
	if got := svc.GetRenderers(); len(got) != 2 || got[1] != "journal" {
		t.Errorf("unexpected renderers %v", got)
	}
	if svc.GetConfidenceThreshold() != 0.25 {
		t.Errorf("unexpected confidence threshold %v", svc.GetConfidenceThreshold())
	}
	if svc.GetSubstrate() != SubstrateMultiProcess {
		t.Errorf("unexpected substrate %q", svc.GetSubstrate())
	}
}

func TestEnvOverrideBadNumber(t *testing.T) {
	t.Setenv("TANDEM_FPS", "fast")
	if _, err := NewFromFile(""); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"zero detect interval", func(s *Settings) { s.DetectIntervalMS = 0 }},
		{"negative track interval", func(s *Settings) { s.TrackIntervalMS = -1 }},
		{"unknown detector", func(s *Settings) { s.Detector = "ssd" }},
		{"unknown tracker", func(s *Settings) { s.Tracker = "boosting" }},
		{"tracker without detector", func(s *Settings) { s.Detector = None }},
		{"unknown renderer", func(s *Settings) { s.Renderers = []string{"hud"} }},
		{"bad policy", func(s *Settings) { s.FailurePolicy = "retry" }},
		{"bad substrate", func(s *Settings) { s.Substrate = "cluster" }},
		{"confidence out of range", func(s *Settings) { s.ConfidenceThreshold = 1.5 }},
		{"multiprocess without dir", func(s *Settings) {
			s.Substrate = SubstrateMultiProcess
			s.SharedDir = ""
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := Defaults()
			tc.mutate(&s)
			err := Validate(s)
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestValidateAcceptsDetectorOnly(t *testing.T) {
	s := Defaults()
	s.Tracker = None
	if err := Validate(s); err != nil {
		t.Fatalf("expected detector-only settings to be valid, got %v", err)
	}
	s.Detector = None
	if err := Validate(s); err != nil {
		t.Fatalf("expected coordinator-only settings to be valid, got %v", err)
	}
}

func TestSettingsReturnsCopy(t *testing.T) {
	svc := NewHardCoded()
	s := svc.Settings()
	s.Renderers[0] = "window"
	if svc.GetRenderers()[0] != "console" {
		t.Fatal("Settings leaked internal slice")
	}
}
