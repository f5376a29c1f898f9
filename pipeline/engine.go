package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/tandem-go/model"
	"github.com/khaledhikmat/tandem-go/service/lgr"
)

var (
	ErrTrackerWithoutDetector = xerrors.New("a tracker needs a detector to seed it")
	ErrMissingService         = xerrors.New("missing service")
	ErrShutdownTimeout        = xerrors.New("shutdown timed out")
)

// Engine runs one coordinator and, when composed with them, the detector and
// tracker workers of this process. They start together and stop together.
type Engine struct {
	session     string
	substrate   string
	shutdown    time.Duration
	statsStream chan interface{}

	Detector    *DetectorWorker
	Tracker     *TrackerWorker
	Coordinator *Coordinator
}

func NewEngine(svcs ServicesFactory, errorStream, statsStream chan interface{}, opts ...Option) (*Engine, error) {
	if svcs.CfgSvc == nil || svcs.Blackboard == nil || svcs.Source == nil {
		return nil, fmt.Errorf("%w: config, blackboard and source are required", ErrMissingService)
	}
	if svcs.Tracker != nil && svcs.Detector == nil {
		return nil, ErrTrackerWithoutDetector
	}

	session := uuid.NewString()
	opts = append([]Option{WithSession(session), WithStreams(errorStream, statsStream)}, opts...)

	// A later WithSession wins; read it back for the engine itself.
	probe := &loop{session: session}
	for _, opt := range opts {
		opt(probe)
	}

	e := &Engine{
		session:     probe.session,
		substrate:   svcs.CfgSvc.GetSubstrate(),
		shutdown:    time.Duration(svcs.CfgSvc.GetModeMaxShutdownTime()) * time.Second,
		statsStream: statsStream,
		Coordinator: NewCoordinator(svcs.CfgSvc, svcs.Blackboard, svcs.Source, svcs.Renderer, opts...),
	}
	if svcs.Detector != nil {
		e.Detector = NewDetectorWorker(svcs.CfgSvc, svcs.Blackboard, svcs.Detector, opts...)
		e.Coordinator.Watch(e.Detector)
	}
	if svcs.Tracker != nil {
		e.Tracker = NewTrackerWorker(svcs.CfgSvc, svcs.Blackboard, svcs.Tracker, opts...)
		e.Coordinator.Watch(e.Tracker)
	}
	return e, nil
}

func (e *Engine) Session() string {
	return e.session
}

// Run blocks until the coordinator finishes or ctx is cancelled, then stops
// every loop and waits for them up to the shutdown time. Errors of loops
// that stopped under the fatal policy are returned.
func (e *Engine) Run(ctx context.Context) error {
	started := time.Now()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	lgr.Logger.Info("engine starting",
		slog.String("session", e.session),
		slog.String("substrate", e.substrate),
		slog.Bool("detector", e.Detector != nil),
		slog.Bool("tracker", e.Tracker != nil),
	)

	var mu sync.Mutex
	var errs []error
	record := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	var wg conc.WaitGroup
	if e.Detector != nil {
		wg.Go(func() { record(e.Detector.Run(runCtx)) })
	}
	if e.Tracker != nil {
		wg.Go(func() { record(e.Tracker.Run(runCtx)) })
	}
	wg.Go(func() {
		defer cancel()
		record(e.Coordinator.Run(runCtx))
	})

	<-runCtx.Done()

	joined := make(chan error, 1)
	go func() {
		if r := wg.WaitAndRecover(); r != nil {
			joined <- r.AsError()
			return
		}
		joined <- nil
	}()

	timer := time.NewTimer(e.shutdown)
	defer timer.Stop()

	select {
	case err := <-joined:
		record(err)
	case <-timer.C:
		lgr.Logger.Error("engine shutdown waiting period expired", slog.Duration("period", e.shutdown))
		record(ErrShutdownTimeout)
	}

	emit(e.statsStream, model.EngineStats{
		Session:   e.session,
		Substrate: e.substrate,
		Uptime:    int64(time.Since(started).Seconds()),
	})

	mu.Lock()
	defer mu.Unlock()
	return errors.Join(errs...)
}

// Health reports the loops composed into this engine.
func (e *Engine) Health() []model.WorkerHealth {
	var out []model.WorkerHealth
	if e.Detector != nil {
		out = append(out, e.Detector.Health())
	}
	if e.Tracker != nil {
		out = append(out, e.Tracker.Health())
	}
	return out
}
