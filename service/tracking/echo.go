package tracking

import (
	"context"
	"sync"

	"github.com/khaledhikmat/tandem-go/model"
)

type echoTracker struct {
	mu  sync.Mutex
	set model.DetectionSet
}

// NewEcho returns a tracker whose every update reports the seed unchanged.
func NewEcho() Tracker {
	return &echoTracker{}
}

func (t *echoTracker) Seed(_ context.Context, frame model.Frame, set model.DetectionSet) error {
	t.mu.Lock()
	t.set = DropDegenerate(set, frame.Bounds())
	t.mu.Unlock()
	return nil
}

func (t *echoTracker) Update(_ context.Context, _ model.Frame) (model.DetectionSet, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.set.Clone(), nil
}

func (t *echoTracker) Close() error {
	return nil
}
