package mode

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/khaledhikmat/tandem-go/model"
	"github.com/khaledhikmat/tandem-go/service/config"
	"github.com/khaledhikmat/tandem-go/service/data"
	"github.com/khaledhikmat/tandem-go/service/lgr"
)

type Processor func(canxCtx context.Context, cfgSvc config.IService, dataSvc data.IService) (Summary, error)

// Summary collects the final stats a mode processor saw.
type Summary struct {
	Detector    *model.DetectorStats
	Tracker     *model.TrackerStats
	Coordinator *model.CoordinatorStats
	Engine      *model.EngineStats
	Errors      int
}

// Rows lays the summary out as (component, metric, value) rows.
func (s Summary) Rows() [][]string {
	rows := [][]string{}
	add := func(component, metric string, value interface{}) {
		rows = append(rows, []string{component, metric, fmt.Sprint(value)})
	}
	if s.Engine != nil {
		add("engine", "session", s.Engine.Session)
		add("engine", "substrate", s.Engine.Substrate)
		add("engine", "uptime (s)", s.Engine.Uptime)
	}
	if s.Coordinator != nil {
		add("coordinator", "frames", s.Coordinator.Frames)
		add("coordinator", "rendered", s.Coordinator.Rendered)
		add("coordinator", "fps", s.Coordinator.FPS)
		add("coordinator", "errors", s.Coordinator.Errors)
	}
	if s.Detector != nil {
		add("detector", "cycles", s.Detector.Cycles)
		add("detector", "runs", s.Detector.Runs)
		add("detector", "skipped", s.Detector.Skipped)
		add("detector", "errors", s.Detector.Errors)
		add("detector", "avg run (s)", fmt.Sprintf("%.4f", s.Detector.AvgProcTime))
	}
	if s.Tracker != nil {
		add("tracker", "cycles", s.Tracker.Cycles)
		add("tracker", "reseeds", s.Tracker.Reseeds)
		add("tracker", "updates", s.Tracker.Updates)
		add("tracker", "skipped", s.Tracker.Skipped)
		add("tracker", "errors", s.Tracker.Errors)
		add("tracker", "avg update (s)", fmt.Sprintf("%.4f", s.Tracker.AvgProcTime))
	}
	add("all", "reported errors", s.Errors)
	return rows
}

func procStats(datasvc data.IService, summary *Summary, stats interface{}) {
	var err error
	switch stats := stats.(type) {
	case model.DetectorStats:
		summary.Detector = &stats
		err = datasvc.NewDetectorStats(stats)
	case model.TrackerStats:
		summary.Tracker = &stats
		err = datasvc.NewTrackerStats(stats)
	case model.CoordinatorStats:
		summary.Coordinator = &stats
		err = datasvc.NewCoordinatorStats(stats)
	case model.EngineStats:
		summary.Engine = &stats
		err = datasvc.NewEngineStats(stats)
	default:
		lgr.Logger.Error(
			"unknown stats type",
			slog.Any("stats", stats),
		)
		return
	}

	if err != nil {
		lgr.Logger.Error(
			"failed to store stats",
			slog.Any("stats", stats),
			slog.Any("error", err),
		)
	}
}

func procError(datasvc data.IService, summary *Summary, err interface{}) {
	summary.Errors++
	errTemp := datasvc.NewError(err)
	if errTemp != nil {
		lgr.Logger.Error(
			"failed to store error",
			slog.Any("error", errTemp),
		)
	}
}
