package inference

import (
	"context"

	"github.com/khaledhikmat/tandem-go/model"
)

// Detector finds objects in a whole frame. Implementations must return the
// same set for the same frame and must not modify the frame.
type Detector interface {
	Detect(ctx context.Context, frame model.Frame) (model.DetectionSet, error)
	// NumClasses is presentation metadata (palette size); the engine never
	// reads it.
	NumClasses() int
	Close() error
}
