package pipeline

import (
	"context"

	"github.com/khaledhikmat/tandem-go/model"
	"github.com/khaledhikmat/tandem-go/service/blackboard"
	"github.com/khaledhikmat/tandem-go/service/config"
	"github.com/khaledhikmat/tandem-go/service/inference"
)

// DetectorWorker runs the detector at most once per detect interval, and on
// every poll while the published boxes are absent or empty. Every result is
// published both as the current boxes and as a seed for the tracker.
type DetectorWorker struct {
	*loop
	bb       blackboard.IService
	detector inference.Detector
}

func NewDetectorWorker(cfgSvc config.IService, bb blackboard.IService, det inference.Detector, opts ...Option) *DetectorWorker {
	w := &DetectorWorker{
		loop:     newLoop("detector", cfgSvc, cfgSvc.GetDetectInterval(), opts),
		bb:       bb,
		detector: det,
	}
	w.state = model.DetectorIdle.String()
	return w
}

func (w *DetectorWorker) Run(ctx context.Context) error {
	defer func() {
		emit(w.statsStream, w.Stats())
	}()
	return w.run(ctx, w.Cycle)
}

// Cycle performs one detector iteration. It returns an error only when the
// failure policy says the worker must stop.
func (w *DetectorWorker) Cycle(ctx context.Context) error {
	w.beginCycle()

	boxes, ok, err := w.bb.GetBoxes(ctx)
	if err != nil {
		return w.fail(ctx, "read boxes", err)
	}
	warming := !ok || len(boxes) == 0

	now := w.now()
	if !warming && w.throttled(now) {
		w.skip(model.DetectorThrottled.String())
		return nil
	}

	frame, ok, err := w.bb.GetImage(ctx)
	if err != nil {
		return w.fail(ctx, "read image", err)
	}
	if !ok {
		w.skip(model.DetectorIdle.String())
		return nil
	}

	w.setState(model.DetectorRunning.String())
	var set model.DetectionSet
	err = w.invoke(ctx, "detect", func(ctx context.Context) error {
		var derr error
		set, derr = w.detector.Detect(ctx, frame)
		return derr
	})
	if err != nil {
		w.setState(stateAfterDetect(warming))
		return w.fail(ctx, "detect", err)
	}
	if set == nil {
		set = model.DetectionSet{}
	}

	if err := w.bb.PublishDetection(ctx, set); err != nil {
		return w.fail(ctx, "publish detection", err)
	}

	w.succeeded(now, w.now().Sub(now), true)
	w.setState(stateAfterDetect(len(set) == 0))
	return nil
}

func stateAfterDetect(warming bool) string {
	if warming {
		return model.DetectorWarming.String()
	}
	return model.DetectorThrottled.String()
}

func (w *DetectorWorker) State() model.DetectorState {
	switch w.health().State {
	case model.DetectorWarming.String():
		return model.DetectorWarming
	case model.DetectorThrottled.String():
		return model.DetectorThrottled
	case model.DetectorRunning.String():
		return model.DetectorRunning
	default:
		return model.DetectorIdle
	}
}

func (w *DetectorWorker) Health() model.WorkerHealth {
	return w.health()
}

func (w *DetectorWorker) Stats() model.DetectorStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return model.DetectorStats{
		Name:        w.name,
		Session:     w.session,
		Cycles:      w.cycles,
		Runs:        w.runs,
		Skipped:     w.skipped,
		Errors:      w.failures,
		Uptime:      w.uptime(),
		AvgProcTime: w.avgProcTime(),
	}
}
