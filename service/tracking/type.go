// Package tracking defines the tracker capability and the pure-Go trackers.
//
// A tracker is seeded with a detection set and the frame it should be
// anchored to, then advanced one frame at a time. Seeding again discards all
// prior state. Objects whose region collapses are dropped from the output;
// only a fresh seed brings them back.
package tracking

import (
	"context"
	"image"

	"github.com/khaledhikmat/tandem-go/model"
)

type Tracker interface {
	Seed(ctx context.Context, frame model.Frame, set model.DetectionSet) error
	Update(ctx context.Context, frame model.Frame) (model.DetectionSet, error)
	Close() error
}

// DropDegenerate clips every detection to bounds and removes the ones left
// with no area. A zero bounds rectangle disables clipping.
func DropDegenerate(set model.DetectionSet, bounds image.Rectangle) model.DetectionSet {
	out := make(model.DetectionSet, 0, len(set))
	for _, d := range set {
		if !bounds.Empty() {
			d = d.Clip(bounds)
		}
		if d.Area() <= 0 {
			continue
		}
		out = append(out, d)
	}
	return out
}
