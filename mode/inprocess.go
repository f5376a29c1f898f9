package mode

import (
	"context"
	"log/slog"

	"github.com/khaledhikmat/tandem-go/pipeline"
	"github.com/khaledhikmat/tandem-go/service/blackboard"
	"github.com/khaledhikmat/tandem-go/service/config"
	"github.com/khaledhikmat/tandem-go/service/data"
	"github.com/khaledhikmat/tandem-go/service/lgr"
)

// InProcess runs the coordinator, detector and tracker as goroutines of this
// process around an in-memory blackboard.
func InProcess(canxCtx context.Context, cfgSvc config.IService, dataSvc data.IService) (Summary, error) {
	bb := blackboard.NewInMemory()
	defer bb.Close()

	svcs, err := newServices(cfgSvc, bb, true)
	if err != nil {
		return Summary{}, err
	}
	defer func() {
		if err := closeServices(svcs); err != nil {
			lgr.Logger.Warn("error closing services", slog.Any("error", err))
		}
	}()

	errorStream := make(chan interface{})
	statsStream := make(chan interface{})

	engine, err := pipeline.NewEngine(svcs, errorStream, statsStream)
	if err != nil {
		return Summary{}, err
	}

	return supervise(canxCtx, cfgSvc, dataSvc, config.SubstrateInProcess, errorStream, statsStream, engine.Run)
}
