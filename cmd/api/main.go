package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tourlab/internal/api"
	"tourlab/internal/buildinfo"
	"tourlab/internal/config"
	"tourlab/internal/logging"
	"tourlab/internal/metrics"
)

func main() {
	configPath := flag.String("config", os.Getenv("TOURLAB_CONFIG"), "path to a YAML config file")
	flag.Parse()
	_ = logging.Init("info", "text", os.Stderr)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Fatal("failed to load config", "err", err)
	}
	if err := logging.Init(cfg.Log.Level, cfg.Log.Format, os.Stderr); err != nil {
		logging.Fatal("failed to init logging", "err", err)
	}
	metrics.RegisterDefault()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srvDeps, err := api.NewServer(ctx, cfg)
	if err != nil {
		logging.Fatal("failed to init server", "err", err)
	}

	mux := srvDeps.Routes()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           metricsMiddleware(logMiddleware(mux)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Start webhook worker
	worker := srvDeps.NewWebhookWorker()
	worker.Start()

	go func() {
		logging.Info("API listening", "addr", srv.Addr, "version", buildinfo.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("server error", "err", err)
		}
	}()

	<-ctx.Done()
	logging.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// SSE streams end once their runs are cancelled, so stop the runs first
	if err := srvDeps.StopRuns(shutdownCtx); err != nil {
		logging.Warn("run shutdown", "err", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Warn("http shutdown", "err", err)
	}
	worker.Stop()
	if err := srvDeps.Close(); err != nil {
		logging.Warn("close store", "err", err)
	}
}

// statusWriter records the response status while keeping streaming and
// websocket upgrades working.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(p)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijacking not supported")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		if sw.status == 0 {
			sw.status = http.StatusOK
		}
		labels := []string{r.Method, routeLabel(r.URL.Path), strconv.Itoa(sw.status)}
		metrics.HTTPRequests.WithLabelValues(labels...).Inc()
		metrics.HTTPDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
	})
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.Debug("request", "remote", r.RemoteAddr, "method", r.Method, "path", r.URL.Path, "dur", time.Since(start))
	})
}

// routeLabel collapses ids so metric labels stay bounded.
func routeLabel(path string) string {
	for _, prefix := range []string{"/v1/runs/", "/v1/pointsets/"} {
		rest, ok := strings.CutPrefix(path, prefix)
		if !ok || rest == "" {
			continue
		}
		if _, sub, found := strings.Cut(rest, "/"); found {
			return prefix + "{id}/" + sub
		}
		return prefix + "{id}"
	}
	return path
}
