package api

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"tourlab/internal/logging"
)

// RedisBroker implements EventBroker over Redis Pub/Sub so that several API
// replicas can stream events of runs hosted by any of them.
type RedisBroker struct {
	rdb *redis.Client

	mu   sync.Mutex
	subs map[chan SSEEvent]*redis.PubSub
}

func NewRedisBroker(url string) (*RedisBroker, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisBroker{rdb: redis.NewClient(opt), subs: map[chan SSEEvent]*redis.PubSub{}}, nil
}

func (b *RedisBroker) Subscribe(runID string) chan SSEEvent {
	ch := make(chan SSEEvent, 32)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ps := b.rdb.Subscribe(ctx, b.chanName(runID))
	// wait for the subscription confirmation so no publish is missed
	if _, err := ps.Receive(ctx); err != nil {
		logging.Warn("redis subscribe", "run", runID, "err", err)
	}
	b.mu.Lock()
	b.subs[ch] = ps
	b.mu.Unlock()
	go func() {
		defer close(ch)
		for msg := range ps.Channel() {
			var evt SSEEvent
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				continue
			}
			select {
			case ch <- evt:
			default:
			}
		}
	}()
	return ch
}

// Unsubscribe closes the underlying PubSub; the forwarding goroutine then
// closes ch.
func (b *RedisBroker) Unsubscribe(runID string, ch chan SSEEvent) {
	b.mu.Lock()
	ps, ok := b.subs[ch]
	delete(b.subs, ch)
	b.mu.Unlock()
	if ok {
		_ = ps.Close()
	}
}

func (b *RedisBroker) Publish(runID string, evt SSEEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	if err := b.rdb.Publish(ctx, b.chanName(runID), data).Err(); err != nil {
		logging.Warn("redis publish", "run", runID, "type", evt.Type, "err", err)
	}
}

func (b *RedisBroker) Ping(ctx context.Context) error { return b.rdb.Ping(ctx).Err() }

func (b *RedisBroker) Close() error { return b.rdb.Close() }

func (b *RedisBroker) chanName(runID string) string { return "tour:run:" + runID }
