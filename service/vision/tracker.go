package vision

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"gocv.io/x/gocv"
	"gocv.io/x/gocv/contrib"

	"github.com/khaledhikmat/tandem-go/model"
	"github.com/khaledhikmat/tandem-go/service/tracking"
)

var trackerFactories = map[string]func() gocv.Tracker{
	"kcf":  func() gocv.Tracker { return contrib.NewTrackerKCF() },
	"csrt": func() gocv.Tracker { return contrib.NewTrackerCSRT() },
	"mil":  func() gocv.Tracker { return gocv.NewTrackerMIL() },
}

// TrackerAlgorithms lists the OpenCV tracker names NewTracker accepts.
func TrackerAlgorithms() []string {
	names := make([]string, 0, len(trackerFactories))
	for name := range trackerFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type trackedObject struct {
	classID int
	tracker gocv.Tracker
}

type cvTracker struct {
	mu      sync.Mutex
	factory func() gocv.Tracker
	objects []trackedObject
}

// NewTracker returns a multi-object tracker running one OpenCV tracker of the
// named algorithm per seeded box.
func NewTracker(algorithm string) (tracking.Tracker, error) {
	factory, ok := trackerFactories[algorithm]
	if !ok {
		return nil, fmt.Errorf("unknown tracker algorithm %q", algorithm)
	}
	return &cvTracker{factory: factory}, nil
}

func (t *cvTracker) Seed(_ context.Context, frame model.Frame, set model.DetectionSet) error {
	mat, err := frameToMat(frame)
	if err != nil {
		return err
	}
	defer mat.Close()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.closeObjects()
	for _, d := range tracking.DropDegenerate(set, frame.Bounds()) {
		tr := t.factory()
		if ok := tr.Init(mat, d.Rect()); !ok {
			tr.Close()
			continue
		}
		t.objects = append(t.objects, trackedObject{classID: d.ClassID, tracker: tr})
	}
	return nil
}

func (t *cvTracker) Update(ctx context.Context, frame model.Frame) (model.DetectionSet, error) {
	mat, err := frameToMat(frame)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	set := make(model.DetectionSet, 0, len(t.objects))
	alive := make([]trackedObject, 0, len(t.objects))
	for _, obj := range t.objects {
		rect, ok := obj.tracker.Update(mat)
		if !ok {
			obj.tracker.Close()
			continue
		}
		alive = append(alive, obj)
		set = append(set, model.Detection{ClassID: obj.classID, Confidence: 1}.WithRect(rect))
	}
	t.objects = alive

	return tracking.DropDegenerate(set, frame.Bounds()), nil
}

func (t *cvTracker) closeObjects() error {
	var errs []error
	for _, obj := range t.objects {
		if err := obj.tracker.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	t.objects = nil
	return errors.Join(errs...)
}

func (t *cvTracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeObjects()
}
