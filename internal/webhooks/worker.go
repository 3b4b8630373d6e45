package webhooks

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"tourlab/internal/logging"
	"tourlab/internal/metrics"
)

type Worker struct {
	Pub         *Publisher
	HTTP        *http.Client
	MaxAttempts int
	Interval    time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewWorker(p *Publisher, maxAttempts int) *Worker {
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &Worker{
		Pub:         p,
		HTTP:        &http.Client{Timeout: 5 * time.Second},
		MaxAttempts: maxAttempts,
		Interval:    time.Second,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

func (w *Worker) Start() {
	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-w.stop:
				return
			case <-ticker.C:
				w.processOnce()
			}
		}
	}()
}

// Stop ends the delivery loop and waits for it to exit. Undelivered events
// are dropped.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.done
}

func (w *Worker) processOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, d := range w.Pub.due(time.Now(), 50) {
		w.deliver(ctx, d)
	}
}

func (w *Worker) deliver(ctx context.Context, d *Delivery) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader(d.Payload))
	if err != nil {
		logging.Warn("webhook dropped", "url", d.URL, "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", d.EventType)
	if d.Secret != "" {
		req.Header.Set("X-Signature", SignHMAC(d.Secret, d.Payload))
	}
	start := time.Now()
	resp, err := w.HTTP.Do(req)
	latency := time.Since(start)
	code := 0
	if err == nil {
		code = resp.StatusCode
		_ = resp.Body.Close()
	}
	success := err == nil && code >= 200 && code < 300
	status := "ok"
	if !success {
		status = "error"
	}
	metrics.WebhookDeliveries.WithLabelValues(d.EventType, status).Inc()
	metrics.WebhookLatency.WithLabelValues(d.EventType, status).Observe(float64(latency.Milliseconds()))
	if success {
		return
	}

	d.Attempts++
	if d.Attempts >= w.MaxAttempts {
		logging.Warn("webhook gave up", "url", d.URL, "event", d.EventType, "attempts", d.Attempts, "code", code, "err", err)
		return
	}
	d.NextAttemptAt = time.Now().Add(nextBackoff(d.Attempts - 1))
	logging.Debug("webhook retry scheduled", "url", d.URL, "code", strconv.Itoa(code), "next", d.NextAttemptAt)
	w.Pub.requeue(d)
}

func nextBackoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 10 {
		attempts = 10
	}
	base := time.Second * time.Duration(1<<attempts)
	if base > time.Hour {
		base = time.Hour
	}
	return base
}
