package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/xerrors"
)

const envPrefix = "TANDEM_"

var ErrInvalid = xerrors.New("invalid configuration")

// NewFromFile loads defaults, overlays the TOML file at path (a missing file
// is not an error), then TANDEM_* environment variables, and validates.
func NewFromFile(path string) (IService, error) {
	s := Defaults()

	if path != "" {
		file, err := os.Open(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("open config: %w", err)
		default:
			defer file.Close()
			decoder := toml.NewDecoder(file)
			decoder.DisallowUnknownFields()
			if err := decoder.Decode(&s); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := applyEnv(&s, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := Validate(s); err != nil {
		return nil, err
	}

	return NewFromSettings(s), nil
}

// Encode renders settings as TOML.
func Encode(s Settings) ([]byte, error) {
	return toml.Marshal(s)
}

type lookupFunc func(string) (string, bool)

func applyEnv(s *Settings, lookup lookupFunc) error {
	ints := map[string]*int{
		"DETECT_INTERVAL_MS":    &s.DetectIntervalMS,
		"TRACK_INTERVAL_MS":     &s.TrackIntervalMS,
		"POLL_INTERVAL_MS":      &s.PollIntervalMS,
		"FPS":                   &s.FPS,
		"VIDEO_WIDTH":           &s.VideoWidth,
		"VIDEO_HEIGHT":          &s.VideoHeight,
		"SYNTHETIC_FRAMES":      &s.SyntheticFrames,
		"NUM_CLASSES":           &s.NumClasses,
		"MAX_SHUTDOWN_TIME_SEC": &s.MaxShutdownTimeSec,
	}
	for key, dst := range ints {
		raw, ok := lookup(envPrefix + key)
		if !ok {
			continue
		}
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, key, err)
		}
		*dst = v
	}

	floats := map[string]*float32{
		"CONFIDENCE_THRESHOLD":        &s.ConfidenceThreshold,
		"OBJECT_CONFIDENCE_THRESHOLD": &s.ObjectConfidenceThreshold,
	}
	for key, dst := range floats {
		raw, ok := lookup(envPrefix + key)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 32)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, key, err)
		}
		*dst = float32(v)
	}

	strs := map[string]*string{
		"SOURCE":         &s.Source,
		"DETECTOR":       &s.Detector,
		"MODEL_PATH":     &s.ModelPath,
		"NAMES_PATH":     &s.NamesPath,
		"TRACKER":        &s.Tracker,
		"DISPLAY_NAME":   &s.DisplayName,
		"JOURNAL_FILE":   &s.JournalFile,
		"FAILURE_POLICY": &s.FailurePolicy,
		"SUBSTRATE":      &s.Substrate,
		"SHARED_DIR":     &s.SharedDir,
		"STATS_FOLDER":   &s.StatsFolder,
		"LOG_FILE":       &s.LogFile,
		"LOG_LEVEL":      &s.LogLevel,
	}
	for key, dst := range strs {
		if raw, ok := lookup(envPrefix + key); ok {
			*dst = strings.TrimSpace(raw)
		}
	}

	if raw, ok := lookup(envPrefix + "RENDERERS"); ok {
		s.Renderers = splitList(raw)
	}

	return nil
}

func splitList(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
