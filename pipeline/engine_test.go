package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/khaledhikmat/tandem-go/model"
	"github.com/khaledhikmat/tandem-go/service/blackboard"
	"github.com/khaledhikmat/tandem-go/service/config"
	"github.com/khaledhikmat/tandem-go/service/tracking"
)

func runEngine(ctx context.Context, t *testing.T, e *Engine) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	select {
	case err := <-done:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("engine did not finish")
		return nil
	}
}

func TestEngineRejectsTrackerWithoutDetector(t *testing.T) {
	_, err := NewEngine(ServicesFactory{
		CfgSvc:     testConfig(),
		Blackboard: blackboard.NewInMemory(),
		Source:     &frameSource{n: 1},
		Tracker:    tracking.NewEcho(),
	}, nil, nil)
	if !errors.Is(err, ErrTrackerWithoutDetector) {
		t.Fatalf("expected ErrTrackerWithoutDetector, got %v", err)
	}

	_, err = NewEngine(ServicesFactory{CfgSvc: testConfig()}, nil, nil)
	if !errors.Is(err, ErrMissingService) {
		t.Fatalf("expected ErrMissingService, got %v", err)
	}
}

// Ten frames through a detector that always sees one box and an echo
// tracker: once seeded, every published set is that box.
func TestEngineDetectAndTrack(t *testing.T) {
	for name, open := range backings(t) {
		t.Run(name, func(t *testing.T) {
			bb := open()
			defer bb.Close()

			cfg := testConfig(func(s *config.Settings) { s.FPS = 100 })
			rend := &recordingRenderer{}
			statsStream := make(chan interface{}, 8)
			e, err := NewEngine(ServicesFactory{
				CfgSvc:     cfg,
				Blackboard: bb,
				Detector:   &stubDetector{result: model.DetectionSet{testBox}},
				Tracker:    tracking.NewEcho(),
				Source:     &frameSource{n: 10},
				Renderer:   rend,
			}, nil, statsStream)
			if err != nil {
				t.Fatalf("NewEngine: %v", err)
			}

			if err := runEngine(context.Background(), t, e); err != nil {
				t.Fatalf("Run: %v", err)
			}

			frames, sets := rend.snapshot()
			if len(frames) != 10 {
				t.Fatalf("expected 10 rendered frames, got %d", len(frames))
			}
			for i, seq := range frames {
				if seq != int64(i+1) {
					t.Fatalf("expected frame %d to carry seq %d, got %d", i, i+1, seq)
				}
			}
			for i, set := range sets {
				if len(set) > 1 || (len(set) == 1 && set[0] != testBox) {
					t.Fatalf("frame %d rendered unexpected boxes %+v", i, set)
				}
			}

			boxes, ok := mustBoxes(t, bb)
			if !ok || len(boxes) != 1 || boxes[0] != testBox {
				t.Fatalf("expected the detected box to be current, got %+v", boxes)
			}

			for _, h := range e.Health() {
				if h.Alive || h.Failures != 0 {
					t.Errorf("unexpected health after run %+v", h)
				}
			}

			kinds := map[string]bool{}
			for len(statsStream) > 0 {
				kinds[typeName(<-statsStream)] = true
			}
			for _, k := range []string{"detectorStats", "trackerStats", "coordinatorStats", "engineStats"} {
				if !kinds[k] {
					t.Errorf("missing %s on the stats stream", k)
				}
			}
		})
	}
}

func TestEngineShutdownReleasesBlackboard(t *testing.T) {
	for name, open := range backings(t) {
		t.Run(name, func(t *testing.T) {
			bb := open()
			defer bb.Close()

			e, err := NewEngine(ServicesFactory{
				CfgSvc:     testConfig(),
				Blackboard: bb,
				Detector:   &stubDetector{result: model.DetectionSet{testBox}},
				Tracker:    &stubTracker{budget: -1},
				Source:     &frameSource{n: -1},
				Renderer:   &recordingRenderer{},
			}, nil, nil)
			if err != nil {
				t.Fatalf("NewEngine: %v", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			time.AfterFunc(100*time.Millisecond, cancel)

			start := time.Now()
			if err := runEngine(ctx, t, e); err != nil {
				t.Fatalf("Run: %v", err)
			}
			if took := time.Since(start); took > 2*time.Second {
				t.Fatalf("shutdown took %v", took)
			}

			opCtx, opCancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer opCancel()
			if _, _, err := bb.TakeSeed(opCtx); err != nil {
				t.Fatalf("result lock still held after shutdown: %v", err)
			}
			if err := bb.PutImage(opCtx, testFrame(99)); err != nil {
				t.Fatalf("image lock still held after shutdown: %v", err)
			}
		})
	}
}

func TestEngineReturnsFatalWorkerError(t *testing.T) {
	bb := blackboard.NewInMemory()
	cfg := testConfig(func(s *config.Settings) {
		s.FailurePolicy = config.FailureFatal
		s.FPS = 100
	})

	rend := &recordingRenderer{}
	e, err := NewEngine(ServicesFactory{
		CfgSvc:     cfg,
		Blackboard: bb,
		Detector:   &stubDetector{err: errBoom},
		Source:     &frameSource{n: 10},
		Renderer:   rend,
	}, nil, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	err = runEngine(context.Background(), t, e)
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected the detector error, got %v", err)
	}

	// The coordinator keeps presenting frames after the worker stops.
	if frames, _ := rend.snapshot(); len(frames) != 10 {
		t.Fatalf("expected all frames rendered, got %d", len(frames))
	}
	h := e.Health()
	if len(h) != 1 || h[0].Alive || h[0].Failures != 1 {
		t.Fatalf("unexpected detector health %+v", h)
	}
}

func TestCoordinatorStep(t *testing.T) {
	ctx := context.Background()
	bb := blackboard.NewInMemory()
	rend := &recordingRenderer{}
	c := NewCoordinator(testConfig(), bb, &frameSource{n: 2}, rend)

	if done, err := c.Step(ctx); done || err != nil {
		t.Fatalf("Step: done=%v err=%v", done, err)
	}
	frame, ok, _ := bb.GetImage(ctx)
	if !ok || frame.Seq != 1 {
		t.Fatalf("expected frame 1 published, got ok=%v seq=%d", ok, frame.Seq)
	}

	_ = bb.PutBoxes(ctx, model.DetectionSet{testBox})
	_, _ = c.Step(ctx)
	if got := c.Boxes(); len(got) != 1 || got[0] != testBox {
		t.Fatalf("expected current boxes rendered, got %+v", got)
	}

	if done, err := c.Step(ctx); !done || err != nil {
		t.Fatalf("expected end of stream, got done=%v err=%v", done, err)
	}

	st := c.Stats()
	if st.Frames != 2 || st.Rendered != 2 {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestCoordinatorStepCancelledIsNotEndOfStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewCoordinator(testConfig(), blackboard.NewInMemory(), &frameSource{n: -1}, &recordingRenderer{})
	done, err := c.Step(ctx)
	if done || err != nil {
		t.Fatalf("expected cancellation to be neither done nor an error, got done=%v err=%v", done, err)
	}
	if st := c.Stats(); st.Frames != 0 || st.Errors != 0 {
		t.Errorf("unexpected stats after cancelled step %+v", st)
	}
}

func TestCoordinatorRenderFailureIsolated(t *testing.T) {
	errorStream := make(chan interface{}, 4)
	rend := &recordingRenderer{err: errBoom}
	c := NewCoordinator(testConfig(), blackboard.NewInMemory(), &frameSource{n: 3}, rend, WithStreams(errorStream, nil))

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st := c.Stats(); st.Errors != 3 || st.Rendered != 0 {
		t.Fatalf("unexpected stats %+v", st)
	}
	if len(errorStream) != 3 {
		t.Fatalf("expected 3 reported errors, got %d", len(errorStream))
	}
}
