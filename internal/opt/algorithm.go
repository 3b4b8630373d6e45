package opt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrTooFewPoints     = errors.New("opt: at least two points are required")
	ErrTooManyPoints    = errors.New("opt: too many points for this algorithm")
	ErrRunning          = errors.New("opt: a run is already in progress")
	ErrInvalidConfig    = errors.New("opt: invalid configuration")
	ErrUnknownAlgorithm = errors.New("opt: unknown algorithm")
)

// DefaultTick is the runtime accumulator period.
const DefaultTick = 100 * time.Millisecond

const defaultBuffer = 64

type EventKind int

const (
	EventResult EventKind = iota + 1
	EventProgress
	EventFinished
)

func (k EventKind) String() string {
	switch k {
	case EventResult:
		return "result"
	case EventProgress:
		return "progress"
	case EventFinished:
		return "finished"
	}
	return "unknown"
}

// Event is one notification of a run. Tour and Distance are set for
// EventResult, Progress for EventProgress and Summary for EventFinished.
type Event struct {
	Kind     EventKind
	Tour     []Point
	Distance float64
	Progress int
	Summary  *Summary
}

// Metrics are counters a strategy keeps while searching.
type Metrics struct {
	Iterations    int     `json:"iterations"`
	Improvements  int     `json:"improvements"`
	AcceptedWorse int     `json:"acceptedWorse"`
	BestDistance  float64 `json:"bestDistance"`
}

// Summary describes a terminated run. Tour is the last reported tour.
type Summary struct {
	Algorithm string
	Tour      []Point
	Distance  float64
	Runtime   time.Duration
	Cancelled bool
	Err       error
	Metrics   Metrics
}

// Strategy is a search algorithm driven by an Algorithm. Search runs on the
// run's worker goroutine, must poll sink.Cancelled once per iteration and
// return ctx.Err() when it stops early.
type Strategy interface {
	Name() string
	Validate(points []Point) error
	Search(ctx context.Context, points []Point, sink *Sink) error
}

// Sink is the notification surface handed to a Strategy. It is confined to
// the worker goroutine.
type Sink struct {
	ctx      context.Context
	ch       chan<- Event
	progress int
	tour     []Point
	distance float64
	hasBest  bool

	Metrics Metrics
}

// Cancelled reports whether Stop was requested.
func (s *Sink) Cancelled() bool { return s.ctx.Err() != nil }

// Baseline records the starting tour without notifying anyone.
func (s *Sink) Baseline(tour []Point, dist float64) {
	s.tour, s.distance = clonePoints(tour), dist
	s.track(dist)
}

// Result publishes an interim tour. Nothing is sent once the run has been
// cancelled; the return value tells whether the result went out.
func (s *Sink) Result(tour []Point, dist float64) bool {
	if s.Cancelled() {
		return false
	}
	s.tour, s.distance = clonePoints(tour), dist
	s.track(dist)
	s.ch <- Event{Kind: EventResult, Tour: clonePoints(tour), Distance: dist}
	return true
}

// Progress publishes a percentage when it rises above the last one sent.
func (s *Sink) Progress(p int) {
	p = min(max(p, 0), 100)
	if p <= s.progress {
		return
	}
	s.progress = p
	s.ch <- Event{Kind: EventProgress, Progress: p}
}

func (s *Sink) track(dist float64) {
	if !s.hasBest || dist < s.Metrics.BestDistance {
		s.Metrics.BestDistance = dist
		s.hasBest = true
	}
}

// Algorithm runs a Strategy asynchronously, one run at a time.
type Algorithm struct {
	strategy Strategy
	tick     time.Duration
	buffer   int

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	timer   *runTimer

	runtime atomic.Int64
}

type Option func(*Algorithm)

// WithTick sets the runtime accumulator period.
func WithTick(d time.Duration) Option {
	return func(a *Algorithm) {
		if d > 0 {
			a.tick = d
		}
	}
}

// WithBuffer sets how many events a run may queue ahead of its consumer.
func WithBuffer(n int) Option {
	return func(a *Algorithm) {
		if n >= 0 {
			a.buffer = n
		}
	}
}

func NewAlgorithm(s Strategy, opts ...Option) *Algorithm {
	a := &Algorithm{strategy: s, tick: DefaultTick, buffer: defaultBuffer}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *Algorithm) Name() string { return a.strategy.Name() }

// Runtime is the wall-clock time accumulated by the current or last run.
func (a *Algorithm) Runtime() time.Duration { return time.Duration(a.runtime.Load()) }

func (a *Algorithm) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// Run starts a search over a copy of points. Events are delivered on the
// returned channel, which is closed after EventFinished; callers must drain
// it. Canceling ctx has the same effect as Stop.
func (a *Algorithm) Run(ctx context.Context, points []Point) (<-chan Event, error) {
	if len(points) < 2 {
		return nil, ErrTooFewPoints
	}
	if err := a.strategy.Validate(points); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return nil, ErrRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	a.running = true
	a.cancel = cancel
	a.runtime.Store(0)
	a.timer = a.startTimer()

	ch := make(chan Event, a.buffer)
	out := make(chan Event)
	go a.work(runCtx, a.timer, clonePoints(points), ch)
	go relay(runCtx, cancel, ch, out)
	return out, nil
}

// relay hands queued events to the consumer. Results still queued when the
// run is cancelled are dropped, so after Stop the consumer sees at most the
// one result that was already being handed over.
func relay(ctx context.Context, cancel context.CancelFunc, in <-chan Event, out chan<- Event) {
	defer cancel()
	defer close(out)
	for ev := range in {
		if ev.Kind == EventResult && ctx.Err() != nil {
			continue
		}
		out <- ev
	}
}

// Stop requests cooperative cancellation and halts the runtime timer. The
// worker notices within one iteration. Stop on an idle Algorithm is a no-op.
func (a *Algorithm) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return
	}
	a.cancel()
	a.timer.stop()
}

func (a *Algorithm) work(ctx context.Context, timer *runTimer, pts []Point, ch chan<- Event) {
	defer close(ch)

	sink := &Sink{ctx: ctx, ch: ch, progress: -1}
	err := a.search(ctx, pts, sink)
	timer.stop()
	sink.Progress(100)

	summary := Summary{
		Algorithm: a.strategy.Name(),
		Tour:      clonePoints(sink.tour),
		Distance:  sink.distance,
		Runtime:   a.Runtime(),
		Metrics:   sink.Metrics,
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		summary.Cancelled = true
	case err != nil:
		summary.Err = err
	}

	a.mu.Lock()
	a.running = false
	a.cancel = nil
	a.timer = nil
	a.mu.Unlock()

	ch <- Event{Kind: EventFinished, Summary: &summary}
}

func (a *Algorithm) search(ctx context.Context, pts []Point, sink *Sink) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("opt: %s search failed: %v", a.strategy.Name(), r)
		}
	}()
	return a.strategy.Search(ctx, pts, sink)
}

// runTimer adds the tick to the runtime accumulator until stopped.
type runTimer struct {
	once sync.Once
	quit chan struct{}
	done chan struct{}
}

func (a *Algorithm) startTimer() *runTimer {
	t := &runTimer{quit: make(chan struct{}), done: make(chan struct{})}
	tick := a.tick
	go func() {
		defer close(t.done)
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		for {
			select {
			case <-t.quit:
				return
			case <-ticker.C:
				a.runtime.Add(int64(tick))
			}
		}
	}()
	return t
}

func (t *runTimer) stop() {
	t.once.Do(func() { close(t.quit) })
	<-t.done
}
