package api

import (
	"net/http"
	"time"

	"tourlab/internal/buildinfo"
	"tourlab/internal/sysinfo"
)

func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"build":  buildinfo.Info(),
		"system": sysinfo.Collect(),
		"time":   time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"PORT":                  s.Cfg.Port,
			"RATE_RPS":              s.Cfg.RateRPS,
			"RATE_BURST":            s.Cfg.RateBurst,
			"MAX_CONCURRENT_RUNS":   s.Cfg.MaxConcurrentRuns,
			"MAX_POINTS":            s.Cfg.MaxPoints,
			"MAX_EXHAUSTIVE_POINTS": s.Cfg.MaxExhaustivePoints,
			"WEBHOOK_MAX_ATTEMPTS":  s.Cfg.WebhookMaxAttempts,
			"WEBHOOK_TARGETS":       len(s.Cfg.Webhooks),
			"HAS_DATABASE_URL":      s.Cfg.DatabaseURL != "",
			"HAS_REDIS_URL":         s.Cfg.RedisURL != "",
			"HAS_SQLITE_PATH":       s.Cfg.SQLitePath != "",
		},
		"activeRuns": s.Runs.Active(),
	})
}
