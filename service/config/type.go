package config

import "time"

const (
	FailureIsolate = "isolate"
	FailureFatal   = "fatal"

	// None disables the detector or the tracker.
	None = "none"

	SubstrateInProcess    = "inprocess"
	SubstrateMultiProcess = "multiprocess"
)

type IService interface {
	GetDetectInterval() time.Duration
	GetTrackInterval() time.Duration
	GetPollInterval() time.Duration
	GetFPS() int
	GetVideoWidth() int
	GetVideoHeight() int
	GetSource() string
	GetSyntheticFrames() int
	GetDetector() string
	GetModelPath() string
	GetNamesPath() string
	GetConfidenceThreshold() float32
	GetObjectConfidenceThreshold() float32
	GetNumClasses() int
	GetTracker() string
	GetRenderers() []string
	GetDisplayName() string
	GetJournalFile() string
	GetFailurePolicy() string
	GetSubstrate() string
	GetSharedDir() string
	GetStatsFolder() string
	GetLogFile() string
	GetLogLevel() string
	GetModeMaxShutdownTime() int
	Settings() Settings
}

// Settings is the on-disk (TOML) shape of the configuration.
type Settings struct {
	DetectIntervalMS          int      `toml:"detect_interval_ms"`
	TrackIntervalMS           int      `toml:"track_interval_ms"`
	PollIntervalMS            int      `toml:"poll_interval_ms"`
	FPS                       int      `toml:"fps"`
	VideoWidth                int      `toml:"video_width"`
	VideoHeight               int      `toml:"video_height"`
	Source                    string   `toml:"source"`
	SyntheticFrames           int      `toml:"synthetic_frames"`
	Detector                  string   `toml:"detector"`
	ModelPath                 string   `toml:"model_path"`
	NamesPath                 string   `toml:"names_path"`
	ConfidenceThreshold       float32  `toml:"confidence_threshold"`
	ObjectConfidenceThreshold float32  `toml:"object_confidence_threshold"`
	NumClasses                int      `toml:"num_classes"`
	Tracker                   string   `toml:"tracker"`
	Renderers                 []string `toml:"renderers"`
	DisplayName               string   `toml:"display_name"`
	JournalFile               string   `toml:"journal_file"`
	FailurePolicy             string   `toml:"failure_policy"`
	Substrate                 string   `toml:"substrate"`
	SharedDir                 string   `toml:"shared_dir"`
	StatsFolder               string   `toml:"stats_folder"`
	LogFile                   string   `toml:"log_file"`
	LogLevel                  string   `toml:"log_level"`
	MaxShutdownTimeSec        int      `toml:"max_shutdown_time_sec"`
}
