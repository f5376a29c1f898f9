package config

import (
	"time"
)

type hardcodedService struct {
	s Settings
}

// NewHardCoded returns the built-in defaults.
func NewHardCoded() IService {
	return &hardcodedService{s: Defaults()}
}

// NewFromSettings wraps already loaded settings. Callers are expected to
// have validated them.
func NewFromSettings(s Settings) IService {
	return &hardcodedService{s: s}
}

func Defaults() Settings {
	return Settings{
		DetectIntervalMS:          100,
		TrackIntervalMS:           30,
		PollIntervalMS:            5,
		FPS:                       30,
		VideoWidth:                1920,
		VideoHeight:               1080,
		Source:                    "synthetic",
		SyntheticFrames:           300,
		Detector:                  "threshold",
		ModelPath:                 "./yolo5/yolov5s.onnx",
		NamesPath:                 "./yolo5/coco.names",
		ConfidenceThreshold:       0.5,
		ObjectConfidenceThreshold: 0.5,
		NumClasses:                80,
		Tracker:                   "centroid",
		Renderers:                 []string{"console"},
		DisplayName:               "tandem",
		JournalFile:               "detections.log",
		FailurePolicy:             FailureIsolate,
		Substrate:                 SubstrateInProcess,
		SharedDir:                 "./blackboard",
		StatsFolder:               "./stats",
		LogFile:                   "",
		LogLevel:                  "info",
		MaxShutdownTimeSec:        5,
	}
}

func (svc *hardcodedService) GetDetectInterval() time.Duration {
	return time.Duration(svc.s.DetectIntervalMS) * time.Millisecond
}

func (svc *hardcodedService) GetTrackInterval() time.Duration {
	return time.Duration(svc.s.TrackIntervalMS) * time.Millisecond
}

func (svc *hardcodedService) GetPollInterval() time.Duration {
	return time.Duration(svc.s.PollIntervalMS) * time.Millisecond
}

func (svc *hardcodedService) GetFPS() int {
	return svc.s.FPS
}

func (svc *hardcodedService) GetVideoWidth() int {
	return svc.s.VideoWidth
}

func (svc *hardcodedService) GetVideoHeight() int {
	return svc.s.VideoHeight
}

func (svc *hardcodedService) GetSource() string {
	return svc.s.Source
}

func (svc *hardcodedService) GetSyntheticFrames() int {
	return svc.s.SyntheticFrames
}

func (svc *hardcodedService) GetDetector() string {
	return svc.s.Detector
}

func (svc *hardcodedService) GetModelPath() string {
	return svc.s.ModelPath
}

func (svc *hardcodedService) GetNamesPath() string {
	return svc.s.NamesPath
}

func (svc *hardcodedService) GetConfidenceThreshold() float32 {
	return svc.s.ConfidenceThreshold
}

func (svc *hardcodedService) GetObjectConfidenceThreshold() float32 {
	return svc.s.ObjectConfidenceThreshold
}

func (svc *hardcodedService) GetNumClasses() int {
	return svc.s.NumClasses
}

func (svc *hardcodedService) GetTracker() string {
	return svc.s.Tracker
}

func (svc *hardcodedService) GetRenderers() []string {
	out := make([]string, len(svc.s.Renderers))
	copy(out, svc.s.Renderers)
	return out
}

func (svc *hardcodedService) GetDisplayName() string {
	return svc.s.DisplayName
}

func (svc *hardcodedService) GetJournalFile() string {
	return svc.s.JournalFile
}

func (svc *hardcodedService) GetFailurePolicy() string {
	return svc.s.FailurePolicy
}

func (svc *hardcodedService) GetSubstrate() string {
	return svc.s.Substrate
}

func (svc *hardcodedService) GetSharedDir() string {
	return svc.s.SharedDir
}

func (svc *hardcodedService) GetStatsFolder() string {
	return svc.s.StatsFolder
}

func (svc *hardcodedService) GetLogFile() string {
	return svc.s.LogFile
}

func (svc *hardcodedService) GetLogLevel() string {
	return svc.s.LogLevel
}

func (svc *hardcodedService) GetModeMaxShutdownTime() int {
	return svc.s.MaxShutdownTimeSec
}

func (svc *hardcodedService) Settings() Settings {
	s := svc.s
	s.Renderers = svc.GetRenderers()
	return s
}
