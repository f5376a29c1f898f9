package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/khaledhikmat/tandem-go/model"
	"github.com/khaledhikmat/tandem-go/service/config"
	"github.com/khaledhikmat/tandem-go/service/lgr"
)

const (
	tracerName  = "github.com/khaledhikmat/tandem-go/pipeline"
	emitTimeout = 250 * time.Millisecond
)

type Option func(*loop)

// WithClock replaces time.Now as the source of cycle timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *loop) { l.now = now }
}

func WithSession(id string) Option {
	return func(l *loop) { l.session = id }
}

func WithTracer(t trace.Tracer) Option {
	return func(l *loop) { l.tracer = t }
}

// WithStreams routes reported errors and final stats to the given channels.
// Either may be nil.
func WithStreams(errorStream, statsStream chan interface{}) Option {
	return func(l *loop) {
		l.errorStream = errorStream
		l.statsStream = statsStream
	}
}

// loop holds what the detector and tracker workers have in common: timing,
// failure policy, health accounting and reporting.
type loop struct {
	name     string
	session  string
	policy   string
	poll     time.Duration
	interval time.Duration
	now      func() time.Time
	tracer   trace.Tracer

	errorStream chan interface{}
	statsStream chan interface{}

	mu          sync.Mutex
	state       string
	alive       bool
	cycles      int64
	runs        int64
	skipped     int64
	failures    int64
	consecutive int64
	lastError   string
	lastRun     time.Time
	hasRun      bool
	procTime    time.Duration
	startedAt   time.Time
}

func newLoop(name string, cfgSvc config.IService, interval time.Duration, opts []Option) *loop {
	l := &loop{
		name:     name,
		policy:   cfgSvc.GetFailurePolicy(),
		poll:     cfgSvc.GetPollInterval(),
		interval: interval,
		now:      time.Now,
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.poll <= 0 {
		l.poll = time.Millisecond
	}
	return l
}

// run ticks cycle at the poll interval until ctx is done or cycle returns an
// error.
func (l *loop) run(ctx context.Context, cycle func(context.Context) error) error {
	l.mu.Lock()
	l.alive = true
	l.startedAt = l.now()
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.alive = false
		l.mu.Unlock()
	}()

	lgr.Logger.Info("worker starting",
		slog.String("worker", l.name),
		slog.String("session", l.session),
		slog.Duration("interval", l.interval),
		slog.Duration("poll", l.poll),
		slog.String("policy", l.policy),
	)

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			lgr.Logger.Info("worker context cancelled", slog.String("worker", l.name))
			return nil
		case <-ticker.C:
			if err := cycle(ctx); err != nil {
				lgr.Logger.Error("worker stopped", slog.String("worker", l.name), slog.Any("error", err))
				return err
			}
		}
	}
}

func (l *loop) setState(s string) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

func (l *loop) beginCycle() {
	l.mu.Lock()
	l.cycles++
	l.mu.Unlock()
}

func (l *loop) skip(state string) {
	l.mu.Lock()
	l.skipped++
	l.state = state
	l.mu.Unlock()
}

// throttled reports whether less than the interval has passed since the
// last successful run.
func (l *loop) throttled(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hasRun && now.Sub(l.lastRun) < l.interval
}

func (l *loop) succeeded(at time.Time, took time.Duration, resetTimer bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs++
	l.consecutive = 0
	l.procTime += took
	if resetTimer {
		l.lastRun = at
		l.hasRun = true
	}
}

// invoke runs a capability call inside a span, turning a panic into an error.
func (l *loop) invoke(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, span := l.tracer.Start(ctx, l.name+"."+op, trace.WithAttributes(
		attribute.String("tandem.worker", l.name),
		attribute.String("tandem.session", l.session),
	))
	defer span.End()

	var err error
	if r := panics.Try(func() { err = fn(ctx) }); r != nil {
		err = r.AsError()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
	}
	return err
}

// fail accounts for a failed cycle. Under the fatal policy the error is
// returned so the loop ends; otherwise it is reported and swallowed.
func (l *loop) fail(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		// Cancellation interrupted the call; not a failure.
		return nil
	}

	l.mu.Lock()
	l.failures++
	l.consecutive++
	l.lastError = err.Error()
	cycle := l.cycles
	l.mu.Unlock()

	lgr.Logger.Error("worker cycle failed",
		slog.String("worker", l.name),
		slog.String("op", op),
		slog.Int64("cycle", cycle),
		slog.Any("error", err),
	)

	emit(l.errorStream, model.GenError(l.name, err, map[string]interface{}{
		"op":      op,
		"cycle":   cycle,
		"session": l.session,
	}, "%s failed", op))

	if l.policy == config.FailureFatal {
		return err
	}
	return nil
}

func (l *loop) health() model.WorkerHealth {
	l.mu.Lock()
	defer l.mu.Unlock()
	return model.WorkerHealth{
		Worker:              l.name,
		State:               l.state,
		Alive:               l.alive,
		Cycles:              l.cycles,
		Runs:                l.runs,
		Failures:            l.failures,
		ConsecutiveFailures: l.consecutive,
		LastError:           l.lastError,
	}
}

func (l *loop) uptime() int64 {
	if l.startedAt.IsZero() {
		return 0
	}
	return int64(l.now().Sub(l.startedAt).Seconds())
}

func (l *loop) avgProcTime() float64 {
	if l.runs == 0 {
		return 0
	}
	return l.procTime.Seconds() / float64(l.runs)
}

// emit sends v on stream unless nobody picks it up in time.
func emit(stream chan interface{}, v interface{}) {
	if stream == nil {
		return
	}
	select {
	case stream <- v:
	case <-time.After(emitTimeout):
		lgr.Logger.Warn("stream full, dropping", slog.String("type", typeName(v)))
	}
}

func typeName(v interface{}) string {
	switch v.(type) {
	case model.CustomError:
		return "error"
	case model.DetectorStats:
		return "detectorStats"
	case model.TrackerStats:
		return "trackerStats"
	case model.CoordinatorStats:
		return "coordinatorStats"
	case model.EngineStats:
		return "engineStats"
	default:
		return "unknown"
	}
}
