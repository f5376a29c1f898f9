package tracking

import (
	"context"
	"image"
	"sync"

	"github.com/khaledhikmat/tandem-go/model"
)

type CentroidOptions struct {
	// Luma at or above which a pixel belongs to the tracked object.
	Threshold int
	// Extra pixels searched around the previous box on each side.
	Margin int
	Stride int
}

func DefaultCentroidOptions() CentroidOptions {
	return CentroidOptions{Threshold: 200, Margin: 24, Stride: 2}
}

type centroidTracker struct {
	mu   sync.Mutex
	opts CentroidOptions
	objs model.DetectionSet
}

// NewCentroid returns a tracker that re-fits every box to the bright pixels
// found in a window around its previous position. Class ids are carried from
// the seed; confidence is reported as 1.
func NewCentroid(opts CentroidOptions) Tracker {
	if opts.Stride <= 0 {
		opts.Stride = 1
	}
	if opts.Margin < 0 {
		opts.Margin = 0
	}
	return &centroidTracker{opts: opts}
}

func (t *centroidTracker) Seed(_ context.Context, frame model.Frame, set model.DetectionSet) error {
	objs := DropDegenerate(set, frame.Bounds())
	for i := range objs {
		objs[i].Confidence = 1
	}

	t.mu.Lock()
	t.objs = objs
	t.mu.Unlock()
	return nil
}

func (t *centroidTracker) Update(ctx context.Context, frame model.Frame) (model.DetectionSet, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := make(model.DetectionSet, 0, len(t.objs))
	for _, obj := range t.objs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, ok := t.refit(frame, obj.Rect())
		if !ok {
			continue
		}
		next = append(next, obj.WithRect(r))
	}

	t.objs = DropDegenerate(next, frame.Bounds())
	return t.objs.Clone(), nil
}

func (t *centroidTracker) Close() error {
	return nil
}

func (t *centroidTracker) refit(frame model.Frame, prev image.Rectangle) (image.Rectangle, bool) {
	window := prev.Inset(-t.opts.Margin).Intersect(frame.Bounds())
	if window.Empty() {
		return image.Rectangle{}, false
	}

	step := t.opts.Stride
	found := false
	var fit image.Rectangle
	for y := window.Min.Y; y < window.Max.Y; y += step {
		for x := window.Min.X; x < window.Max.X; x += step {
			if frame.Luma(x, y) < t.opts.Threshold {
				continue
			}
			cell := image.Rect(x, y, min(x+step, frame.Width), min(y+step, frame.Height))
			if !found {
				fit, found = cell, true
				continue
			}
			fit = fit.Union(cell)
		}
	}
	return fit, found && !fit.Empty()
}
