package webhooks

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Target is a URL notified of run events. Deliveries carry an
// X-Signature header when Secret is set.
type Target struct {
	URL    string   `yaml:"url" json:"url"`
	Secret string   `yaml:"secret" json:"-"`
	Events []string `yaml:"events" json:"events,omitempty"` // empty means all
}

func (t Target) wants(eventType string) bool {
	if len(t.Events) == 0 {
		return true
	}
	for _, e := range t.Events {
		if e == eventType {
			return true
		}
	}
	return false
}

// Delivery is one pending POST of an event to a target.
type Delivery struct {
	ID            string
	EventType     string
	URL           string
	Secret        string
	Payload       []byte
	Attempts      int
	NextAttemptAt time.Time
}

// Publisher queues event deliveries in memory for the Worker.
type Publisher struct {
	targets []Target

	mu    sync.Mutex
	queue []*Delivery
}

func NewPublisher(targets []Target) *Publisher {
	return &Publisher{targets: targets}
}

// Emit enqueues eventType for every interested target and returns how many
// deliveries were queued.
func (p *Publisher) Emit(eventType string, data any) int {
	if p == nil || len(p.targets) == 0 {
		return 0
	}
	payload := map[string]any{
		"id":   "evt_" + uuid.NewString(),
		"type": eventType,
		"ts":   time.Now().UTC().Format(time.RFC3339),
		"data": data,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0
	}
	now := time.Now()
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, t := range p.targets {
		if !t.wants(eventType) {
			continue
		}
		p.queue = append(p.queue, &Delivery{
			ID:            uuid.NewString(),
			EventType:     eventType,
			URL:           t.URL,
			Secret:        t.Secret,
			Payload:       body,
			NextAttemptAt: now,
		})
		n++
	}
	return n
}

// Pending reports the number of queued deliveries.
func (p *Publisher) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// due removes and returns up to limit deliveries whose attempt time has come.
func (p *Publisher) due(now time.Time, limit int) []*Delivery {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*Delivery
	keep := p.queue[:0]
	for _, d := range p.queue {
		if len(out) < limit && !d.NextAttemptAt.After(now) {
			out = append(out, d)
			continue
		}
		keep = append(keep, d)
	}
	p.queue = keep
	return out
}

func (p *Publisher) requeue(d *Delivery) {
	p.mu.Lock()
	p.queue = append(p.queue, d)
	p.mu.Unlock()
}
