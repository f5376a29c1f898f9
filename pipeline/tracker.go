package pipeline

import (
	"context"

	"github.com/khaledhikmat/tandem-go/model"
	"github.com/khaledhikmat/tandem-go/service/blackboard"
	"github.com/khaledhikmat/tandem-go/service/config"
	"github.com/khaledhikmat/tandem-go/service/tracking"
)

// TrackerWorker advances the tracker once per track interval. A pending seed
// re-anchors the tracker and nothing is published in that cycle.
type TrackerWorker struct {
	*loop
	bb      blackboard.IService
	tracker tracking.Tracker
	seeded  bool
	reseeds int64
}

func NewTrackerWorker(cfgSvc config.IService, bb blackboard.IService, tr tracking.Tracker, opts ...Option) *TrackerWorker {
	w := &TrackerWorker{
		loop:    newLoop("tracker", cfgSvc, cfgSvc.GetTrackInterval(), opts),
		bb:      bb,
		tracker: tr,
	}
	w.state = model.TrackerWaitingForSeed.String()
	return w
}

func (w *TrackerWorker) Run(ctx context.Context) error {
	defer func() {
		emit(w.statsStream, w.Stats())
	}()
	return w.run(ctx, w.Cycle)
}

// Cycle performs one tracker iteration. It returns an error only when the
// failure policy says the worker must stop.
func (w *TrackerWorker) Cycle(ctx context.Context) error {
	w.beginCycle()

	now := w.now()
	if w.throttled(now) {
		w.skip(w.State().String())
		return nil
	}

	frame, ok, err := w.bb.GetImage(ctx)
	if err != nil {
		return w.fail(ctx, "read image", err)
	}
	if !ok {
		w.skip(w.State().String())
		return nil
	}

	seed, ok, err := w.bb.TakeSeed(ctx)
	if err != nil {
		return w.fail(ctx, "take seed", err)
	}
	if ok {
		w.setState(model.TrackerReseeding.String())
		err := w.invoke(ctx, "seed", func(ctx context.Context) error {
			return w.tracker.Seed(ctx, frame, seed)
		})
		if err != nil {
			return w.fail(ctx, "seed", err)
		}
		w.mu.Lock()
		w.seeded = true
		w.reseeds++
		w.mu.Unlock()
		return nil
	}

	if !w.isSeeded() {
		w.skip(model.TrackerWaitingForSeed.String())
		return nil
	}

	var set model.DetectionSet
	err = w.invoke(ctx, "update", func(ctx context.Context) error {
		var uerr error
		set, uerr = w.tracker.Update(ctx, frame)
		return uerr
	})
	if err != nil {
		return w.fail(ctx, "update", err)
	}
	if set == nil {
		set = model.DetectionSet{}
	}

	if err := w.bb.PutBoxes(ctx, set); err != nil {
		return w.fail(ctx, "publish boxes", err)
	}

	w.succeeded(now, w.now().Sub(now), true)
	w.setState(model.TrackerTracking.String())
	return nil
}

func (w *TrackerWorker) isSeeded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seeded
}

func (w *TrackerWorker) State() model.TrackerState {
	switch w.health().State {
	case model.TrackerReseeding.String():
		return model.TrackerReseeding
	case model.TrackerTracking.String():
		return model.TrackerTracking
	default:
		return model.TrackerWaitingForSeed
	}
}

func (w *TrackerWorker) Health() model.WorkerHealth {
	return w.health()
}

func (w *TrackerWorker) Stats() model.TrackerStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return model.TrackerStats{
		Name:        w.name,
		Session:     w.session,
		Cycles:      w.cycles,
		Reseeds:     w.reseeds,
		Updates:     w.runs,
		Skipped:     w.skipped,
		Errors:      w.failures,
		Uptime:      w.uptime(),
		AvgProcTime: w.avgProcTime(),
	}
}
