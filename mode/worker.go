package mode

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/khaledhikmat/tandem-go/pipeline"
	"github.com/khaledhikmat/tandem-go/service/blackboard"
	"github.com/khaledhikmat/tandem-go/service/config"
	"github.com/khaledhikmat/tandem-go/service/data"
	"github.com/khaledhikmat/tandem-go/service/lgr"
)

const (
	RoleDetector = "detector"
	RoleTracker  = "tracker"
)

// Worker returns the processor of a child process that runs one worker loop
// against the shared blackboard.
func Worker(role, session string) (Processor, error) {
	if role != RoleDetector && role != RoleTracker {
		return nil, fmt.Errorf("unknown worker role %q", role)
	}

	return func(canxCtx context.Context, cfgSvc config.IService, dataSvc data.IService) (Summary, error) {
		bb, err := blackboard.NewShared(canxCtx, cfgSvc.GetSharedDir())
		if err != nil {
			return Summary{}, err
		}
		defer bb.Close()

		errorStream := make(chan interface{})
		statsStream := make(chan interface{})
		opts := []pipeline.Option{
			pipeline.WithSession(session),
			pipeline.WithStreams(errorStream, statsStream),
		}

		var run func(context.Context) error
		switch role {
		case RoleDetector:
			det, err := newDetector(cfgSvc)
			if err != nil {
				return Summary{}, err
			}
			if det == nil {
				return Summary{}, fmt.Errorf("detector worker started without a detector")
			}
			defer det.Close()
			run = pipeline.NewDetectorWorker(cfgSvc, bb, det, opts...).Run
		case RoleTracker:
			tr, err := newTracker(cfgSvc)
			if err != nil {
				return Summary{}, err
			}
			if tr == nil {
				return Summary{}, fmt.Errorf("tracker worker started without a tracker")
			}
			defer tr.Close()
			run = pipeline.NewTrackerWorker(cfgSvc, bb, tr, opts...).Run
		}

		lgr.Logger.Info("worker process starting",
			slog.String("role", role),
			slog.String("session", session),
			slog.String("sharedDir", cfgSvc.GetSharedDir()),
		)
		return supervise(canxCtx, cfgSvc, dataSvc, role, errorStream, statsStream, run)
	}, nil
}
