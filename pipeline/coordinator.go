package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/khaledhikmat/tandem-go/model"
	"github.com/khaledhikmat/tandem-go/service/blackboard"
	"github.com/khaledhikmat/tandem-go/service/config"
	"github.com/khaledhikmat/tandem-go/service/lgr"
	"github.com/khaledhikmat/tandem-go/service/renderer"
	"github.com/khaledhikmat/tandem-go/service/source"
)

// Coordinator pulls frames from the source at the configured frame rate,
// publishes each one as the current image and renders it with whatever boxes
// are current at that moment. It is the only writer of the image.
type Coordinator struct {
	bb       blackboard.IService
	src      source.IService
	renderer renderer.IService
	fps      int
	policy   string
	session  string

	errorStream chan interface{}
	statsStream chan interface{}

	mu       sync.Mutex
	watched  []HealthReporter
	healthy  map[string]bool
	frames   int64
	rendered int64
	errors   int64
	lastSeq  int64
	boxes    model.DetectionSet
	started  time.Time
}

func NewCoordinator(cfgSvc config.IService, bb blackboard.IService, src source.IService, r renderer.IService, opts ...Option) *Coordinator {
	// Options are shared with the workers; only streams and session apply.
	l := &loop{}
	for _, opt := range opts {
		opt(l)
	}

	fps := cfgSvc.GetFPS()
	if fps <= 0 {
		fps = 30
	}
	if r == nil {
		r = renderer.NewMulti()
	}
	return &Coordinator{
		bb:          bb,
		src:         src,
		renderer:    r,
		fps:         fps,
		policy:      cfgSvc.GetFailurePolicy(),
		session:     l.session,
		errorStream: l.errorStream,
		statsStream: l.statsStream,
		healthy:     map[string]bool{},
	}
}

// Watch adds loops whose health is checked after every frame. Transitions
// to and from unhealthy are logged.
func (c *Coordinator) Watch(reporters ...HealthReporter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watched = append(c.watched, reporters...)
}

// Run returns nil at end of stream or on cancellation.
func (c *Coordinator) Run(ctx context.Context) error {
	c.mu.Lock()
	c.started = time.Now()
	c.mu.Unlock()

	defer func() {
		emit(c.statsStream, c.Stats())
	}()

	lgr.Logger.Info("coordinator starting",
		slog.String("session", c.session),
		slog.Int("fps", c.fps),
	)

	ticker := time.NewTicker(time.Second / time.Duration(c.fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			lgr.Logger.Info("coordinator context cancelled")
			return nil
		case <-ticker.C:
			done, err := c.Step(ctx)
			if err != nil {
				return err
			}
			if done {
				lgr.Logger.Info("coordinator reached end of stream", slog.Int64("frames", c.Stats().Frames))
				return nil
			}
		}
	}
}

// Step moves one frame through the coordinator. done is true once the source
// is exhausted; a cancelled ctx is not the end of the stream.
func (c *Coordinator) Step(ctx context.Context) (bool, error) {
	frame, err := c.src.NextFrame(ctx)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			// Shutdown, not end of stream; Run observes ctx.Done.
			return false, nil
		}
		return false, c.fail(ctx, "next frame", err)
	}

	c.mu.Lock()
	c.frames++
	if frame.Seq <= c.lastSeq {
		frame.Seq = c.lastSeq + 1
	}
	c.lastSeq = frame.Seq
	c.mu.Unlock()

	if err := c.bb.PutImage(ctx, frame); err != nil {
		return false, c.fail(ctx, "publish image", err)
	}

	boxes, ok, err := c.bb.GetBoxes(ctx)
	if err != nil {
		return false, c.fail(ctx, "read boxes", err)
	}
	if !ok {
		boxes = nil
	}

	if err := c.renderer.Render(ctx, frame, boxes); err != nil {
		return false, c.fail(ctx, "render", err)
	}

	c.mu.Lock()
	c.rendered++
	c.boxes = boxes
	c.mu.Unlock()

	c.checkHealth()
	return false, nil
}

func (c *Coordinator) fail(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return nil
	}

	c.mu.Lock()
	c.errors++
	frames := c.frames
	c.mu.Unlock()

	lgr.Logger.Error("coordinator step failed",
		slog.String("op", op),
		slog.Int64("frame", frames),
		slog.Any("error", err),
	)
	emit(c.errorStream, model.GenError("coordinator", err, map[string]interface{}{
		"op":      op,
		"frame":   frames,
		"session": c.session,
	}, "%s failed", op))

	if c.policy == config.FailureFatal {
		return err
	}
	return nil
}

func (c *Coordinator) checkHealth() {
	c.mu.Lock()
	watched := c.watched
	c.mu.Unlock()

	for _, r := range watched {
		h := r.Health()
		if !h.Alive && h.Cycles == 0 {
			// Not started yet.
			continue
		}
		healthy := h.Healthy()

		c.mu.Lock()
		prev, seen := c.healthy[h.Worker]
		c.healthy[h.Worker] = healthy
		c.mu.Unlock()

		switch {
		case !healthy && (!seen || prev):
			lgr.Logger.Warn("worker unhealthy",
				slog.String("worker", h.Worker),
				slog.String("state", h.State),
				slog.Bool("alive", h.Alive),
				slog.Int64("consecutiveFailures", h.ConsecutiveFailures),
				slog.String("lastError", h.LastError),
			)
		case healthy && seen && !prev:
			lgr.Logger.Info("worker recovered", slog.String("worker", h.Worker))
		}
	}
}

// Boxes returns the set rendered with the latest frame.
func (c *Coordinator) Boxes() model.DetectionSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.boxes.Clone()
}

func (c *Coordinator) Stats() model.CoordinatorStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var uptime int64
	fps := 0
	if !c.started.IsZero() {
		elapsed := time.Since(c.started)
		uptime = int64(elapsed.Seconds())
		if elapsed > 0 {
			fps = int(float64(c.rendered) / elapsed.Seconds())
		}
	}
	return model.CoordinatorStats{
		Name:     "coordinator",
		Session:  c.session,
		Frames:   c.frames,
		Rendered: c.rendered,
		Errors:   c.errors,
		FPS:      fps,
		Uptime:   uptime,
	}
}
