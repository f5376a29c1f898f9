package pipeline

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/khaledhikmat/tandem-go/model"
	"github.com/khaledhikmat/tandem-go/service/blackboard"
	"github.com/khaledhikmat/tandem-go/service/config"
)

var errBoom = errors.New("boom")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testConfig(mutate ...func(*config.Settings)) config.IService {
	s := config.Defaults()
	s.DetectIntervalMS = 100
	s.TrackIntervalMS = 30
	s.PollIntervalMS = 1
	s.FPS = 200
	s.MaxShutdownTimeSec = 2
	for _, m := range mutate {
		m(&s)
	}
	return config.NewFromSettings(s)
}

func testFrame(seq int64) model.Frame {
	return model.Frame{Seq: seq, Width: 32, Height: 32, Channels: 3, Data: make([]byte, 32*32*3)}
}

// Fractional corners catch any rounding between detector and renderer.
var testBox = model.Detection{ClassID: 2, Confidence: 0.9, X1: 4.5, Y1: 4.25, X2: 19.75, Y2: 20.5}

type stubDetector struct {
	mu     sync.Mutex
	calls  int
	result model.DetectionSet
	err    error
	panic  bool
}

func (d *stubDetector) Detect(_ context.Context, _ model.Frame) (model.DetectionSet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.panic {
		panic("detector exploded")
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.result.Clone(), nil
}

func (d *stubDetector) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *stubDetector) set(result model.DetectionSet, err error) {
	d.mu.Lock()
	d.result, d.err = result, err
	d.mu.Unlock()
}

func (d *stubDetector) NumClasses() int { return 80 }
func (d *stubDetector) Close() error    { return nil }

// stubTracker echoes its seed for a fixed number of updates, then loses
// everything until it is seeded again. A negative budget never loses.
type stubTracker struct {
	mu      sync.Mutex
	budget  int
	left    int
	seed    model.DetectionSet
	seeds   int
	updates int
	err     error
}

func (t *stubTracker) Seed(_ context.Context, _ model.Frame, set model.DetectionSet) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seeds++
	t.seed = set.Clone()
	t.left = t.budget
	return nil
}

func (t *stubTracker) Update(_ context.Context, _ model.Frame) (model.DetectionSet, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.updates++
	if t.err != nil {
		return nil, t.err
	}
	if t.budget >= 0 {
		if t.left == 0 {
			return model.DetectionSet{}, nil
		}
		t.left--
	}
	return t.seed.Clone(), nil
}

func (t *stubTracker) counts() (seeds, updates int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seeds, t.updates
}

func (t *stubTracker) Close() error { return nil }

// frameSource yields n frames, or frames forever when n is negative.
type frameSource struct {
	mu sync.Mutex
	n  int
	i  int
}

func (s *frameSource) NextFrame(ctx context.Context) (model.Frame, error) {
	if err := ctx.Err(); err != nil {
		return model.Frame{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.n >= 0 && s.i >= s.n {
		return model.Frame{}, io.EOF
	}
	s.i++
	f := testFrame(0)
	return f, nil
}

func (s *frameSource) Close() error { return nil }

type recordingRenderer struct {
	mu     sync.Mutex
	frames []int64
	sets   []model.DetectionSet
	err    error
}

func (r *recordingRenderer) Render(_ context.Context, frame model.Frame, set model.DetectionSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frame.Seq)
	r.sets = append(r.sets, set.Clone())
	return r.err
}

func (r *recordingRenderer) Close() error { return nil }

func (r *recordingRenderer) snapshot() ([]int64, []model.DetectionSet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.frames...), append([]model.DetectionSet(nil), r.sets...)
}

func backings(t *testing.T) map[string]func() blackboard.IService {
	return map[string]func() blackboard.IService{
		"memory": blackboard.NewInMemory,
		"shared": func() blackboard.IService {
			bb, err := blackboard.NewShared(context.Background(), t.TempDir())
			if err != nil {
				t.Fatalf("NewShared: %v", err)
			}
			return bb
		},
	}
}

func mustBoxes(t *testing.T, bb blackboard.IService) (model.DetectionSet, bool) {
	t.Helper()
	set, ok, err := bb.GetBoxes(context.Background())
	if err != nil {
		t.Fatalf("GetBoxes: %v", err)
	}
	return set, ok
}
