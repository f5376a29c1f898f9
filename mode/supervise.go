package mode

import (
	"context"
	"log/slog"
	"time"

	"github.com/khaledhikmat/tandem-go/service/config"
	"github.com/khaledhikmat/tandem-go/service/data"
	"github.com/khaledhikmat/tandem-go/service/lgr"
)

// supervise runs fn while persisting whatever arrives on the error and stats
// streams. After cancellation it keeps draining until fn returns or the
// shutdown period expires.
func supervise(canxCtx context.Context,
	cfgSvc config.IService,
	dataSvc data.IService,
	name string,
	errorStream chan interface{},
	statsStream chan interface{},
	fn func(ctx context.Context) error) (Summary, error) {
	summary := Summary{}

	result := make(chan error, 1)
	go func() {
		result <- fn(canxCtx)
	}()

	// Wait for cancellation, result, stats or error
	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"mode context cancelled",
				slog.String("mode", name),
			)
			goto resume

		case err := <-result:
			drain(dataSvc, &summary, errorStream, statsStream)
			return summary, err

		case s := <-statsStream:
			procStats(dataSvc, &summary, s)

		case e := <-errorStream:
			procError(dataSvc, &summary, e)
		}
	}

	// Wait in a non-blocking way for the shutdown period for all the go routines to exit
	// This is needed because the go routines may need to report stats as they are exiting
resume:
	lgr.Logger.Info(
		"mode is waiting for all go routines to exit",
		slog.String("mode", name),
	)

	period := time.Duration(cfgSvc.GetModeMaxShutdownTime()) * time.Second
	timer := time.NewTimer(period)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			// Timer expired, proceed with shutdown
			lgr.Logger.Info(
				"mode shutdown waiting period expired. Exiting now",
				slog.String("mode", name),
				slog.Duration("period", period),
			)
			return summary, nil

		case err := <-result:
			drain(dataSvc, &summary, errorStream, statsStream)
			return summary, err

		case s := <-statsStream:
			procStats(dataSvc, &summary, s)

		case e := <-errorStream:
			procError(dataSvc, &summary, e)
		}
	}
}

// drain persists anything still queued without blocking.
func drain(dataSvc data.IService, summary *Summary, errorStream, statsStream chan interface{}) {
	for {
		select {
		case s := <-statsStream:
			procStats(dataSvc, summary, s)
		case e := <-errorStream:
			procError(dataSvc, summary, e)
		default:
			return
		}
	}
}
