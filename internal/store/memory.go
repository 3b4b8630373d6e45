package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"tourlab/internal/model"
)

// Memory is a simple in-memory store used when no database is configured.
type Memory struct {
	mu    sync.Mutex
	sets  []model.PointSet  // insertion order
	setBy map[string]int    // id -> index into sets
	stats []model.Statistic // insertion order
}

func NewMemory() *Memory {
	return &Memory{setBy: map[string]int{}}
}

func (m *Memory) SavePointSet(ctx context.Context, in model.PointSetIn) (model.PointSet, error) {
	ps := model.PointSet{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Points:    slices.Clone(in.Points),
		CreatedAt: time.Now().UTC(),
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setBy[ps.ID] = len(m.sets)
	m.sets = append(m.sets, ps)
	return clonePointSet(ps), nil
}

func (m *Memory) GetPointSet(ctx context.Context, id string) (model.PointSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.setBy[id]
	if !ok {
		return model.PointSet{}, ErrNotFound
	}
	return clonePointSet(m.sets[i]), nil
}

func (m *Memory) ListPointSets(ctx context.Context, cursor string, limit int) ([]model.PointSet, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	start := 0
	if cursor != "" {
		i, ok := m.setBy[cursor]
		if !ok {
			return nil, "", fmt.Errorf("%w: %q", ErrInvalidCursor, cursor)
		}
		start = i + 1
	}
	limit = clampLimit(limit)
	out := []model.PointSet{}
	for i := start; i < len(m.sets) && len(out) < limit; i++ {
		out = append(out, clonePointSet(m.sets[i]))
	}
	next := ""
	if len(out) == limit && start+limit < len(m.sets) {
		next = out[len(out)-1].ID
	}
	return out, next, nil
}

func (m *Memory) SaveStatistic(ctx context.Context, st model.Statistic) (model.Statistic, error) {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now().UTC()
	}
	st.Tour = slices.Clone(st.Tour)
	m.mu.Lock()
	m.stats = append(m.stats, st)
	m.mu.Unlock()
	return st, nil
}

func (m *Memory) ListStatistics(ctx context.Context, algorithm, cursor string, limit int) ([]model.Statistic, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	start := 0
	if cursor != "" {
		start = -1
		for i := range m.stats {
			if m.stats[i].ID == cursor {
				start = i + 1
				break
			}
		}
		if start < 0 {
			return nil, "", fmt.Errorf("%w: %q", ErrInvalidCursor, cursor)
		}
	}
	limit = clampLimit(limit)
	out := []model.Statistic{}
	next := ""
	for i := start; i < len(m.stats); i++ {
		st := m.stats[i]
		if algorithm != "" && st.Algorithm != algorithm {
			continue
		}
		if len(out) == limit {
			next = out[len(out)-1].ID
			break
		}
		st.Tour = slices.Clone(st.Tour)
		out = append(out, st)
	}
	return out, next, nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

func clonePointSet(ps model.PointSet) model.PointSet {
	ps.Points = slices.Clone(ps.Points)
	return ps
}
