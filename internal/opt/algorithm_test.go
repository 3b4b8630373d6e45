package opt

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"slices"
	"strings"
	"testing"
	"time"
)

type runLog struct {
	results  []Event
	progress []int
	summary  *Summary
	finished int
}

// drain collects every event until the channel closes.
func drain(t *testing.T, ch <-chan Event) runLog {
	t.Helper()
	var log runLog
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return log
			}
			switch ev.Kind {
			case EventResult:
				log.results = append(log.results, ev)
			case EventProgress:
				log.progress = append(log.progress, ev.Progress)
			case EventFinished:
				log.finished++
				log.summary = ev.Summary
			}
		case <-timeout:
			t.Fatal("run did not finish")
		}
	}
}

func requireCompleted(t *testing.T, log runLog) {
	t.Helper()
	if log.finished != 1 || log.summary == nil {
		t.Fatalf("finished events = %d, summary = %v", log.finished, log.summary)
	}
	if len(log.progress) == 0 || log.progress[len(log.progress)-1] != 100 {
		t.Fatalf("progress must end at 100: %v", log.progress)
	}
	for i := 1; i < len(log.progress); i++ {
		if log.progress[i] <= log.progress[i-1] {
			t.Fatalf("progress not increasing: %v", log.progress)
		}
	}
}

func randomPoints(n int, seed int64) []Point {
	rng := rand.New(rand.NewSource(seed))
	pts := make([]Point, n)
	for i := range pts {
		pts[i] = Point{X: rng.Float64() * 100, Y: rng.Float64() * 100}
	}
	return pts
}

// endless reports the same tour until cancelled.
type endless struct{}

func (endless) Name() string { return "endless" }
func (endless) Validate([]Point) error { return nil }
func (endless) Search(ctx context.Context, pts []Point, sink *Sink) error {
	for {
		if sink.Cancelled() {
			return ctx.Err()
		}
		sink.Result(pts, Distance(pts))
	}
}

// waiting blocks until cancelled or released.
type waiting struct{ release chan struct{} }

func (waiting) Name() string { return "waiting" }
func (waiting) Validate([]Point) error { return nil }
func (w waiting) Search(ctx context.Context, pts []Point, sink *Sink) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.release:
		sink.Result(pts, Distance(pts))
		return nil
	}
}

// burst queues n results and finishes without waiting for the consumer.
type burst struct{ n int }

func (burst) Name() string { return "burst" }
func (burst) Validate([]Point) error { return nil }
func (b burst) Search(_ context.Context, pts []Point, sink *Sink) error {
	for i := range b.n {
		sink.Result(pts, float64(b.n-i))
	}
	return nil
}

type panicking struct{}

func (panicking) Name() string { return "panicking" }
func (panicking) Validate([]Point) error { return nil }
func (panicking) Search(context.Context, []Point, *Sink) error { panic("boom") }

func TestRunRejectsTooFewPoints(t *testing.T) {
	a := NewAlgorithm(&BruteForce{})
	if _, err := a.Run(context.Background(), nil); !errors.Is(err, ErrTooFewPoints) {
		t.Fatalf("nil points: %v", err)
	}
	if _, err := a.Run(context.Background(), []Point{{1, 1}}); !errors.Is(err, ErrTooFewPoints) {
		t.Fatalf("one point: %v", err)
	}
	if a.Running() {
		t.Fatal("rejected run left the algorithm running")
	}
}

func TestRunWhileRunning(t *testing.T) {
	w := waiting{release: make(chan struct{})}
	a := NewAlgorithm(w)
	ch, err := a.Run(context.Background(), square())
	if err != nil {
		t.Fatal(err)
	}
	if !a.Running() {
		t.Fatal("expected running")
	}
	if _, err := a.Run(context.Background(), square()); !errors.Is(err, ErrRunning) {
		t.Fatalf("second run: %v", err)
	}

	close(w.release)
	log := drain(t, ch)
	requireCompleted(t, log)
	if log.summary.Cancelled || len(log.results) != 1 || a.Running() {
		t.Fatalf("cancelled=%v results=%d running=%v", log.summary.Cancelled, len(log.results), a.Running())
	}

	// idle again
	ch, err = a.Run(context.Background(), square())
	if err != nil {
		t.Fatal(err)
	}
	drain(t, ch)
}

func TestStopIdleIsNoop(t *testing.T) {
	a := NewAlgorithm(&BruteForce{})
	a.Stop()
	a.Stop()
	if a.Running() || a.Runtime() != 0 {
		t.Fatalf("running=%v runtime=%v", a.Running(), a.Runtime())
	}
}

func TestStopMidRun(t *testing.T) {
	a := NewAlgorithm(endless{}, WithBuffer(0))
	ch, err := a.Run(context.Background(), square())
	if err != nil {
		t.Fatal(err)
	}

	if first := <-ch; first.Kind != EventResult {
		t.Fatalf("first event: %v", first.Kind)
	}
	a.Stop()

	log := drain(t, ch)
	// at most the one result already in flight
	if len(log.results) > 1 {
		t.Fatalf("%d results after Stop", len(log.results))
	}
	requireCompleted(t, log)
	if !log.summary.Cancelled || log.summary.Err != nil || a.Running() {
		t.Fatalf("summary %+v running=%v", log.summary, a.Running())
	}
}

func TestStopDropsQueuedResults(t *testing.T) {
	// default options queue events ahead of a slow consumer
	a, err := New(KeySimulatedAnnealing, Options{Annealing: AnnealConfig{
		InitialTemperature:        50,
		MinTemperature:            1e-8,
		Alpha:                     0.99999,
		SameTemperatureIterations: 10,
		MaxIterations:             1 << 40,
		Seed:                      3,
	}})
	if err != nil {
		t.Fatal(err)
	}
	ch, err := a.Run(context.Background(), randomPoints(50, 9))
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	a.Stop()

	log := drain(t, ch)
	if len(log.results) > 1 {
		t.Fatalf("%d results delivered after Stop, want at most 1", len(log.results))
	}
	requireCompleted(t, log)
	if !log.summary.Cancelled {
		t.Fatal("expected a cancelled summary")
	}
}

func TestQueuedResultsSurviveCompletion(t *testing.T) {
	a := NewAlgorithm(burst{n: 40}, WithBuffer(64))
	ch, err := a.Run(context.Background(), square())
	if err != nil {
		t.Fatal(err)
	}
	// let the search finish with everything still queued
	time.Sleep(20 * time.Millisecond)
	log := drain(t, ch)
	requireCompleted(t, log)
	if len(log.results) != 40 || log.summary.Cancelled {
		t.Fatalf("results=%d cancelled=%v", len(log.results), log.summary.Cancelled)
	}
}

func TestStopBruteForce(t *testing.T) {
	a, err := New(KeyBruteForce, Options{})
	if err != nil {
		t.Fatal(err)
	}
	ch, err := a.Run(context.Background(), randomPoints(11, 3))
	if err != nil {
		t.Fatal(err)
	}

	stopped := false
	afterStop := 0
	var log runLog
	for ev := range ch {
		switch ev.Kind {
		case EventResult:
			if stopped {
				afterStop++
			}
		case EventProgress:
			log.progress = append(log.progress, ev.Progress)
			if !stopped {
				a.Stop()
				stopped = true
			}
		case EventFinished:
			log.finished++
			log.summary = ev.Summary
		}
	}
	if !stopped || afterStop > 1 {
		t.Fatalf("stopped=%v results after stop=%d", stopped, afterStop)
	}
	requireCompleted(t, log)
	if !log.summary.Cancelled || log.summary.Metrics.Iterations >= Factorial(11) {
		t.Fatalf("summary %+v", log.summary)
	}
}

func TestParentContextCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := NewAlgorithm(waiting{release: make(chan struct{})})
	ch, err := a.Run(ctx, square())
	if err != nil {
		t.Fatal(err)
	}
	cancel()

	log := drain(t, ch)
	requireCompleted(t, log)
	if !log.summary.Cancelled {
		t.Fatal("expected a cancelled summary")
	}
}

func TestPanicEndsRunOnly(t *testing.T) {
	a := NewAlgorithm(panicking{})
	ch, err := a.Run(context.Background(), square())
	if err != nil {
		t.Fatal(err)
	}

	log := drain(t, ch)
	requireCompleted(t, log)
	if len(log.results) != 0 || log.summary.Cancelled || a.Running() {
		t.Fatalf("results=%d summary=%+v", len(log.results), log.summary)
	}
	if log.summary.Err == nil || !strings.Contains(log.summary.Err.Error(), "boom") {
		t.Fatalf("err = %v", log.summary.Err)
	}
}

func TestRuntimeFrozenAndReset(t *testing.T) {
	w := waiting{release: make(chan struct{})}
	a := NewAlgorithm(w, WithTick(5*time.Millisecond))
	ch, err := a.Run(context.Background(), square())
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(60 * time.Millisecond)
	close(w.release)
	log := drain(t, ch)

	first := a.Runtime()
	if first < 20*time.Millisecond || first != log.summary.Runtime {
		t.Fatalf("runtime %v, summary %v", first, log.summary.Runtime)
	}
	time.Sleep(30 * time.Millisecond)
	if got := a.Runtime(); got != first {
		t.Fatalf("runtime advanced after completion: %v -> %v", first, got)
	}

	ch, err = a.Run(context.Background(), square())
	if err != nil {
		t.Fatal(err)
	}
	if a.Runtime() >= first {
		t.Fatalf("runtime not reset: %v", a.Runtime())
	}
	a.Stop()
	drain(t, ch)
}

func TestSuccessiveRunsIndependent(t *testing.T) {
	a := NewAlgorithm(&BruteForce{})
	pts := randomPoints(6, 11)

	var logs []runLog
	for range 2 {
		ch, err := a.Run(context.Background(), pts)
		if err != nil {
			t.Fatal(err)
		}
		log := drain(t, ch)
		requireCompleted(t, log)
		if log.progress[0] >= 100 {
			t.Fatalf("progress: %v", log.progress)
		}
		logs = append(logs, log)
	}
	if logs[0].summary.Distance != logs[1].summary.Distance ||
		len(logs[0].results) != len(logs[1].results) ||
		logs[0].summary.Metrics != logs[1].summary.Metrics {
		t.Fatalf("runs differ: %+v vs %+v", logs[0].summary, logs[1].summary)
	}
}

func TestRunDoesNotMutateInput(t *testing.T) {
	pts := randomPoints(7, 5)
	orig := clonePoints(pts)
	a, err := New(KeySimulatedAnnealing, Options{})
	if err != nil {
		t.Fatal(err)
	}
	ch, err := a.Run(context.Background(), pts)
	if err != nil {
		t.Fatal(err)
	}
	drain(t, ch)
	if !reflect.DeepEqual(orig, pts) {
		t.Fatal("input points were modified")
	}
}

func TestNew(t *testing.T) {
	a, err := New(KeyBruteForce, Options{FixStart: true})
	if err != nil || a.Name() != "Brute Force" {
		t.Fatalf("brute force: %v %v", a, err)
	}
	a, err = New(KeySimulatedAnnealing, Options{})
	if err != nil || a.Name() != "Simulated Annealing" {
		t.Fatalf("annealing: %v %v", a, err)
	}
	if _, err := New("genetic", Options{}); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Fatalf("unknown key: %v", err)
	}

	bad := DefaultAnnealConfig()
	bad.Alpha = 1.5
	if _, err := New(KeySimulatedAnnealing, Options{Annealing: bad}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("bad config: %v", err)
	}

	names := slices.Sorted(slices.Values(Names()))
	if !slices.Equal(names, []string{KeyBruteForce, KeySimulatedAnnealing}) {
		t.Fatalf("names: %v", names)
	}
}

func TestEventKindString(t *testing.T) {
	for k, want := range map[EventKind]string{
		EventResult:   "result",
		EventProgress: "progress",
		EventFinished: "finished",
		EventKind(0):  "unknown",
	} {
		if got := k.String(); got != want {
			t.Fatalf("%d: %q, want %q", k, got, want)
		}
	}
}
