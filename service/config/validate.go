package config

import (
	"fmt"
	"slices"
)

var (
	knownDetectors = []string{None, "threshold", "yolo5"}
	knownTrackers  = []string{None, "echo", "centroid", "kcf", "csrt", "mil"}
	knownRenderers = []string{"console", "journal", "window"}
)

// Validate ensures the settings are usable.
func Validate(s Settings) error {
	positives := []struct {
		name  string
		value int
	}{
		{"detect_interval_ms", s.DetectIntervalMS},
		{"track_interval_ms", s.TrackIntervalMS},
		{"poll_interval_ms", s.PollIntervalMS},
		{"fps", s.FPS},
		{"video_width", s.VideoWidth},
		{"video_height", s.VideoHeight},
		{"num_classes", s.NumClasses},
		{"max_shutdown_time_sec", s.MaxShutdownTimeSec},
	}
	for _, p := range positives {
		if p.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalid, p.name, p.value)
		}
	}

	if s.SyntheticFrames < 0 {
		return fmt.Errorf("%w: synthetic_frames must not be negative", ErrInvalid)
	}
	if s.Source == "" {
		return fmt.Errorf("%w: source must be set", ErrInvalid)
	}
	if !slices.Contains(knownDetectors, s.Detector) {
		return fmt.Errorf("%w: unknown detector %q", ErrInvalid, s.Detector)
	}
	if !slices.Contains(knownTrackers, s.Tracker) {
		return fmt.Errorf("%w: unknown tracker %q", ErrInvalid, s.Tracker)
	}
	if s.Tracker != None && s.Detector == None {
		return fmt.Errorf("%w: tracker %q needs a detector to seed it", ErrInvalid, s.Tracker)
	}
	for _, r := range s.Renderers {
		if !slices.Contains(knownRenderers, r) {
			return fmt.Errorf("%w: unknown renderer %q", ErrInvalid, r)
		}
	}
	if s.ConfidenceThreshold < 0 || s.ConfidenceThreshold > 1 {
		return fmt.Errorf("%w: confidence_threshold must be between 0 and 1", ErrInvalid)
	}
	if s.ObjectConfidenceThreshold < 0 || s.ObjectConfidenceThreshold > 1 {
		return fmt.Errorf("%w: object_confidence_threshold must be between 0 and 1", ErrInvalid)
	}
	if s.FailurePolicy != FailureIsolate && s.FailurePolicy != FailureFatal {
		return fmt.Errorf("%w: unknown failure_policy %q", ErrInvalid, s.FailurePolicy)
	}
	if s.Substrate != SubstrateInProcess && s.Substrate != SubstrateMultiProcess {
		return fmt.Errorf("%w: unknown substrate %q", ErrInvalid, s.Substrate)
	}
	if s.Substrate == SubstrateMultiProcess && s.SharedDir == "" {
		return fmt.Errorf("%w: shared_dir is required for the multiprocess substrate", ErrInvalid)
	}
	return nil
}
