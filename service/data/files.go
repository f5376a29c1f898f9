package data

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/khaledhikmat/tandem-go/model"
	"github.com/khaledhikmat/tandem-go/service/config"
)

const (
	errorsEntity      = "errors"
	detectorEntity    = "detector-stats"
	trackerEntity     = "tracker-stats"
	coordinatorEntity = "coordinator-stats"
	engineEntity      = "engine-stats"
)

type filesDBService struct {
	CfgSvc config.IService
}

// NewFilesDB stores errors and stats as JSON arrays, one file per entity
// kind, in the configured stats folder. Worker processes share the folder, so
// every read-modify-write holds a file lock.
func NewFilesDB(cfgsvc config.IService) IService {
	return &filesDBService{
		CfgSvc: cfgsvc,
	}
}

func (svc *filesDBService) NewError(err interface{}) error {
	// Determine if the error is custom
	var customErr model.CustomError
	switch e := err.(type) {
	case model.CustomError:
		customErr = e
	case error:
		customErr = model.CustomError{Processor: "N/A", Inner: e, Message: e.Error(), StackTrace: "N/A"}
	default:
		customErr = model.CustomError{Processor: "N/A", Message: fmt.Sprint(err), StackTrace: "N/A"}
	}

	inner := ""
	if customErr.Inner != nil {
		inner = customErr.Inner.Error()
	}

	return newEntity(ErrorRecord{
		Timestamp:  time.Now().Unix(),
		Processor:  customErr.Processor,
		Inner:      inner,
		Message:    customErr.Message,
		StackTrace: customErr.StackTrace,
		Misc:       customErr.Misc,
	}, errorsEntity, svc.CfgSvc)
}

func (svc *filesDBService) NewDetectorStats(stats model.DetectorStats) error {
	stats.Timestamp = time.Now().Unix()
	return newEntity(stats, detectorEntity, svc.CfgSvc)
}

func (svc *filesDBService) NewTrackerStats(stats model.TrackerStats) error {
	stats.Timestamp = time.Now().Unix()
	return newEntity(stats, trackerEntity, svc.CfgSvc)
}

func (svc *filesDBService) NewCoordinatorStats(stats model.CoordinatorStats) error {
	stats.Timestamp = time.Now().Unix()
	return newEntity(stats, coordinatorEntity, svc.CfgSvc)
}

func (svc *filesDBService) NewEngineStats(stats model.EngineStats) error {
	stats.Timestamp = time.Now().Unix()
	return newEntity(stats, engineEntity, svc.CfgSvc)
}

func (svc *filesDBService) RetrieveErrors() ([]ErrorRecord, error) {
	return retrieveEntities[ErrorRecord](errorsEntity, svc.CfgSvc)
}

func (svc *filesDBService) RetrieveDetectorStats() ([]model.DetectorStats, error) {
	return retrieveEntities[model.DetectorStats](detectorEntity, svc.CfgSvc)
}

func (svc *filesDBService) RetrieveTrackerStats() ([]model.TrackerStats, error) {
	return retrieveEntities[model.TrackerStats](trackerEntity, svc.CfgSvc)
}

func (svc *filesDBService) RetrieveCoordinatorStats() ([]model.CoordinatorStats, error) {
	return retrieveEntities[model.CoordinatorStats](coordinatorEntity, svc.CfgSvc)
}

func (svc *filesDBService) RetrieveEngineStats() ([]model.EngineStats, error) {
	return retrieveEntities[model.EngineStats](engineEntity, svc.CfgSvc)
}

func entityPath(filename string, cfgsvc config.IService) string {
	return filepath.Join(cfgsvc.GetStatsFolder(), filename+".json")
}

func newEntity[T any](entity T, filename string, cfgsvc config.IService) error {
	if err := os.MkdirAll(cfgsvc.GetStatsFolder(), 0o755); err != nil {
		return fmt.Errorf("create stats folder: %w", err)
	}

	output := entityPath(filename, cfgsvc)
	lock := flock.New(output + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", output, err)
	}
	defer lock.Unlock()

	entities, err := readEntities[T](output)
	if err != nil {
		return err
	}
	entities = append(entities, entity)

	data, err := json.MarshalIndent(entities, "", "  ")
	if err != nil {
		return err
	}

	// Write the JSON data to the file (with truncation)
	return os.WriteFile(output, data, 0o644)
}

func retrieveEntities[T any](filename string, cfgsvc config.IService) ([]T, error) {
	output := entityPath(filename, cfgsvc)
	if _, err := os.Stat(cfgsvc.GetStatsFolder()); errors.Is(err, os.ErrNotExist) {
		return []T{}, nil
	}

	lock := flock.New(output + ".lock")
	if err := lock.RLock(); err != nil {
		return nil, fmt.Errorf("lock %s: %w", output, err)
	}
	defer lock.Unlock()

	return readEntities[T](output)
}

func readEntities[T any](path string) ([]T, error) {
	entities := []T{}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		// WARNING: File not found, return empty slice
		return entities, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, &entities); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return entities, nil
}
