package api

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"tourlab/internal/logging"
	"tourlab/internal/metrics"
	"tourlab/internal/model"
	"tourlab/internal/opt"
	"tourlab/internal/store"
	"tourlab/internal/sysinfo"
	"tourlab/internal/webhooks"
)

var (
	ErrTooManyRuns = errors.New("too many concurrent runs")
	ErrRunNotFound = errors.New("run not found")
)

// RunManager owns the live and recently finished tour searches. Every run
// gets its own opt.Algorithm and a consumer goroutine that drains its events.
type RunManager struct {
	Store  store.Store
	Broker EventBroker
	Pub    *webhooks.Publisher
	// MaxActive caps concurrently running searches; History bounds how many
	// finished runs stay queryable.
	MaxActive int
	History   int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	runs     map[string]*run
	finished []string
	active   int
}

type run struct {
	alg  *opt.Algorithm
	done chan struct{}

	mu     sync.Mutex
	status model.RunStatus
}

func NewRunManager(st store.Store, broker EventBroker, pub *webhooks.Publisher, maxActive, history int) *RunManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &RunManager{
		Store:     st,
		Broker:    broker,
		Pub:       pub,
		MaxActive: maxActive,
		History:   history,
		ctx:       ctx,
		cancel:    cancel,
		runs:      map[string]*run{},
	}
}

// Start launches algorithm over pts and returns the initial status.
func (m *RunManager) Start(algorithm string, pts []opt.Point, o opt.Options) (model.RunStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx.Err() != nil {
		return model.RunStatus{}, errors.New("run manager is shut down")
	}
	if m.active >= m.MaxActive {
		return model.RunStatus{}, ErrTooManyRuns
	}
	alg, err := opt.New(algorithm, o)
	if err != nil {
		return model.RunStatus{}, err
	}
	events, err := alg.Run(m.ctx, pts)
	if err != nil {
		return model.RunStatus{}, err
	}

	r := &run{
		alg:  alg,
		done: make(chan struct{}),
		status: model.RunStatus{
			ID:         uuid.NewString(),
			Algorithm:  algorithm,
			State:      model.RunRunning,
			PointCount: len(pts),
			StartedAt:  time.Now().UTC(),
		},
	}
	m.runs[r.status.ID] = r
	m.active++
	metrics.RunsStarted.WithLabelValues(algorithm).Inc()
	metrics.ActiveRuns.Inc()
	logging.Info("run started", "run", r.status.ID, "algorithm", algorithm, "points", len(pts))

	m.wg.Add(1)
	go m.consume(r, events)
	return r.snapshot(), nil
}

func (m *RunManager) consume(r *run, events <-chan opt.Event) {
	defer m.wg.Done()
	defer close(r.done)
	id, key := r.status.ID, r.status.Algorithm
	for evt := range events {
		switch evt.Kind {
		case opt.EventResult:
			edges := opt.Edges(evt.Tour)
			r.mu.Lock()
			r.status.Tour, r.status.Edges, r.status.Distance = evt.Tour, edges, evt.Distance
			r.status.Results++
			n := r.status.Results
			r.mu.Unlock()
			metrics.InterimResults.WithLabelValues(key).Inc()
			m.Broker.Publish(id, SSEEvent{Type: EventTourImproved, Data: map[string]any{
				"runId": id, "result": n, "distance": evt.Distance, "tour": evt.Tour,
			}})
		case opt.EventProgress:
			r.mu.Lock()
			r.status.Progress = evt.Progress
			r.mu.Unlock()
			m.Broker.Publish(id, SSEEvent{Type: EventRunProgress, Data: map[string]any{
				"runId": id, "progress": evt.Progress,
			}})
		case opt.EventFinished:
			m.finish(r, evt.Summary)
		}
	}
}

func (m *RunManager) finish(r *run, s *opt.Summary) {
	state := model.RunCompleted
	switch {
	case s.Err != nil:
		state = model.RunFailed
	case s.Cancelled:
		state = model.RunCancelled
	}
	now := time.Now().UTC()

	r.mu.Lock()
	r.status.State = state
	r.status.Tour, r.status.Edges, r.status.Distance = s.Tour, opt.Edges(s.Tour), s.Distance
	r.status.RuntimeSec = s.Runtime.Seconds()
	r.status.Metrics = s.Metrics
	r.status.FinishedAt = &now
	if s.Err != nil {
		r.status.Error = s.Err.Error()
	}
	st := r.status
	r.mu.Unlock()

	metrics.RunsFinished.WithLabelValues(st.Algorithm, string(state)).Inc()
	metrics.RunDuration.WithLabelValues(st.Algorithm).Observe(st.RuntimeSec)
	metrics.ActiveRuns.Dec()

	data := finishedEventData(st)
	if state == model.RunFailed {
		logging.Error("run failed", "run", st.ID, "algorithm", st.Algorithm, "err", s.Err)
	} else {
		if sid, err := m.record(st, r.alg.Name()); err != nil {
			logging.Error("save statistic", "run", st.ID, "err", err)
		} else {
			data["statisticId"] = sid
		}
		logging.Info("run finished", "run", st.ID, "state", state, "distance", st.Distance, "runtime", s.Runtime)
	}
	m.Broker.Publish(st.ID, SSEEvent{Type: EventRunFinished, Data: data})
	m.Pub.Emit(EventRunFinished, data)

	m.mu.Lock()
	m.active--
	m.finished = append(m.finished, st.ID)
	for len(m.finished) > max(m.History, 1) {
		delete(m.runs, m.finished[0])
		m.finished = m.finished[1:]
	}
	m.mu.Unlock()
}

// finishedEventData is the payload of run.finished for a terminated run.
func finishedEventData(st model.RunStatus) map[string]any {
	data := map[string]any{
		"runId":      st.ID,
		"algorithm":  st.Algorithm,
		"state":      st.State,
		"distance":   st.Distance,
		"runtimeSec": st.RuntimeSec,
		"results":    st.Results,
		"tour":       st.Tour,
	}
	if st.Error != "" {
		data["error"] = st.Error
	}
	return data
}

// record saves the statistic of a terminated run under the algorithm's
// display name.
func (m *RunManager) record(st model.RunStatus, name string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	saved, err := m.Store.SaveStatistic(ctx, model.Statistic{
		RunID:      st.ID,
		Algorithm:  name,
		Distance:   st.Distance,
		RuntimeSec: st.RuntimeSec,
		Tour:       st.Tour,
		PointCount: st.PointCount,
		Cancelled:  st.State == model.RunCancelled,
		Iterations: st.Metrics.Iterations,
		System:     sysinfo.Collect(),
	})
	return saved.ID, err
}

func (m *RunManager) lookup(id string) (*run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return r, nil
}

func (m *RunManager) Get(id string) (model.RunStatus, error) {
	r, err := m.lookup(id)
	if err != nil {
		return model.RunStatus{}, err
	}
	return r.snapshot(), nil
}

// List returns every known run, newest first.
func (m *RunManager) List() []model.RunStatus {
	m.mu.Lock()
	rs := make([]*run, 0, len(m.runs))
	for _, r := range m.runs {
		rs = append(rs, r)
	}
	m.mu.Unlock()
	out := make([]model.RunStatus, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.snapshot())
	}
	slices.SortFunc(out, func(a, b model.RunStatus) int { return b.StartedAt.Compare(a.StartedAt) })
	return out
}

func (m *RunManager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Stop requests cancellation. Stopping a finished run is a no-op.
func (m *RunManager) Stop(id string) (model.RunStatus, error) {
	r, err := m.lookup(id)
	if err != nil {
		return model.RunStatus{}, err
	}
	r.alg.Stop()
	return r.snapshot(), nil
}

// Done returns a channel closed once the run's final status is recorded.
func (m *RunManager) Done(id string) (<-chan struct{}, error) {
	r, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return r.done, nil
}

// Shutdown cancels every live run and waits for their consumers.
func (m *RunManager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.cancel()
	m.mu.Unlock()
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *run) snapshot() model.RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.status
	if s.State == model.RunRunning {
		s.RuntimeSec = r.alg.Runtime().Seconds()
	}
	return s
}
