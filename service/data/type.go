package data

import "github.com/khaledhikmat/tandem-go/model"

type IService interface {
	NewError(err interface{}) error
	NewDetectorStats(stats model.DetectorStats) error
	NewTrackerStats(stats model.TrackerStats) error
	NewCoordinatorStats(stats model.CoordinatorStats) error
	NewEngineStats(stats model.EngineStats) error

	RetrieveErrors() ([]ErrorRecord, error)
	RetrieveDetectorStats() ([]model.DetectorStats, error)
	RetrieveTrackerStats() ([]model.TrackerStats, error)
	RetrieveCoordinatorStats() ([]model.CoordinatorStats, error)
	RetrieveEngineStats() ([]model.EngineStats, error)
}

// ErrorRecord is the persisted form of a reported error.
type ErrorRecord struct {
	Timestamp  int64                  `json:"timestamp"`
	Processor  string                 `json:"processor"`
	Inner      string                 `json:"innerError"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace"`
	Misc       map[string]interface{} `json:"misc"`
}
