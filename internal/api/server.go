package api

import (
	"context"
	"net/http"

	"golang.org/x/time/rate"

	"tourlab/internal/config"
	"tourlab/internal/logging"
	"tourlab/internal/opt"
	"tourlab/internal/store"
	"tourlab/internal/webhooks"
)

type Server struct {
	Cfg     config.Config
	Store   store.Store
	Broker  EventBroker
	Runs    *RunManager
	Pub     *webhooks.Publisher
	Limiter *rate.Limiter
}

// NewServer wires the store, broker and run manager selected by cfg. With no
// DATABASE_URL or SQLITE_PATH the in-memory store is used.
func NewServer(ctx context.Context, cfg config.Config) (*Server, error) {
	st, err := store.Open(ctx, cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	// Broker selection
	var broker EventBroker
	if cfg.RedisURL != "" {
		if rb, err := NewRedisBroker(cfg.RedisURL); err == nil {
			broker = rb
		} else {
			logging.Warn("redis broker unavailable, using in-memory broker", "err", err)
			broker = NewBroker()
		}
	} else {
		broker = NewBroker()
	}
	pub := webhooks.NewPublisher(cfg.Webhooks)
	return &Server{
		Cfg:     cfg,
		Store:   st,
		Broker:  broker,
		Runs:    NewRunManager(st, broker, pub, cfg.MaxConcurrentRuns, cfg.RunHistory),
		Pub:     pub,
		Limiter: rate.NewLimiter(rate.Limit(cfg.RateRPS), cfg.RateBurst),
	}, nil
}

// Routes registers every endpoint on a new mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/runs", s.RunsHandler)
	mux.HandleFunc("/v1/runs/", s.RunByIDHandler) // includes /stop, /events/stream
	mux.HandleFunc("/v1/pointsets", s.PointSetsHandler)
	mux.HandleFunc("/v1/pointsets/", s.PointSetByIDHandler)
	mux.HandleFunc("/v1/statistics", s.StatisticsHandler)
	mux.HandleFunc("/v1/algorithms", s.AlgorithmsHandler)
	mux.HandleFunc("/v1/ws", s.RunEventsWSHandler)
	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.HandleFunc("/readyz", s.ReadyHandler)
	mux.HandleFunc("/debug/info", s.DebugJSON)
	return mux
}

// runOptions merges per-request tuning over the configured defaults.
func (s *Server) runOptions(fixStart bool, annealing *opt.AnnealConfig) opt.Options {
	o := opt.Options{
		FixStart:            fixStart,
		MaxExhaustivePoints: s.Cfg.MaxExhaustivePoints,
		Annealing:           s.Cfg.Annealing,
		Tick:                s.Cfg.Tick,
	}
	if annealing != nil {
		o.Annealing = *annealing
	}
	return o
}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Pub, s.Cfg.WebhookMaxAttempts)
}

// StopRuns cancels every run and waits until each has published its final
// event and recorded its statistic. The store and broker stay usable.
func (s *Server) StopRuns(ctx context.Context) error {
	return s.Runs.Shutdown(ctx)
}

// Close releases the broker and store. Call it once the HTTP server has
// drained so no handler touches a closed store.
func (s *Server) Close() error {
	var err error
	if c, ok := s.Broker.(interface{ Close() error }); ok {
		err = c.Close()
	}
	if cerr := s.Store.Close(); err == nil {
		err = cerr
	}
	return err
}
