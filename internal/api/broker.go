package api

import (
	"sync"
)

// Event types published for a run.
const (
	EventTourImproved = "tour.improved"
	EventRunProgress  = "run.progress"
	EventRunFinished  = "run.finished"
)

type SSEEvent struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// EventBroker fans run events out to stream subscribers. Publish never
// blocks; a subscriber that falls behind loses events.
type EventBroker interface {
	Subscribe(runID string) chan SSEEvent
	Unsubscribe(runID string, ch chan SSEEvent)
	Publish(runID string, evt SSEEvent)
}

type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan SSEEvent]struct{} // runId -> set of channels
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan SSEEvent]struct{}{}}
}

func (b *Broker) Subscribe(runID string) chan SSEEvent {
	ch := make(chan SSEEvent, 32)
	b.mu.Lock()
	if b.subs[runID] == nil {
		b.subs[runID] = map[chan SSEEvent]struct{}{}
	}
	b.subs[runID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(runID string, ch chan SSEEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.subs[runID]
	if _, ok := m[ch]; !ok {
		return
	}
	delete(m, ch)
	if len(m) == 0 {
		delete(b.subs, runID)
	}
	close(ch)
}

func (b *Broker) Publish(runID string, evt SSEEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[runID] {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Subscribers reports how many channels listen on runID.
func (b *Broker) Subscribers(runID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[runID])
}
