package api

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"tourlab/internal/integrations/csvfile"
	"tourlab/internal/model"
	"tourlab/internal/opt"
)

const maxBodyBytes = 8 << 20

// RunsHandler handles POST/GET /v1/runs
func (s *Server) RunsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.startRun(w, r)
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"items": s.Runs.List()})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) startRun(w http.ResponseWriter, r *http.Request) {
	if !s.Limiter.Allow() {
		writeProblem(w, http.StatusTooManyRequests, "Rate Limited", "too many run requests", r.URL.Path)
		return
	}
	var req model.RunRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateRunRequest(&req); err != nil {
		writeError(w, r, err)
		return
	}
	pts := req.Points
	if req.PointSetID != "" {
		ps, err := s.Store.GetPointSet(r.Context(), req.PointSetID)
		if err != nil {
			writeError(w, r, fmt.Errorf("point set %s: %w", req.PointSetID, err))
			return
		}
		pts = ps.Points
	}
	if err := validatePoints(pts, s.Cfg.MaxPoints); err != nil {
		writeError(w, r, err)
		return
	}
	st, err := s.Runs.Start(req.Algorithm, pts, s.runOptions(req.FixStart, req.Annealing))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/runs/"+st.ID)
	writeJSON(w, http.StatusAccepted, map[string]any{"runId": st.ID, "state": st.State})
}

// RunByIDHandler handles GET /v1/runs/{id}, POST /v1/runs/{id}/stop and
// GET /v1/runs/{id}/events/stream
func (s *Server) RunByIDHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	rest := strings.TrimPrefix(path, "/v1/runs/")
	if rest == path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", path)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	switch {
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		st, err := s.Runs.Get(id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	case len(parts) == 2 && parts[1] == "stop":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		st, err := s.Runs.Stop(id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, st)
	case len(parts) == 3 && parts[1] == "events" && parts[2] == "stream":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.streamRunEvents(w, r, id)
	default:
		writeProblem(w, http.StatusNotFound, "Not Found", "", path)
	}
}

// streamRunEvents serves SSE for one run until it finishes or the client
// goes away. A run that already finished gets its final event immediately.
func (s *Server) streamRunEvents(w http.ResponseWriter, r *http.Request, id string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	done, err := s.Runs.Done(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	// subscribe before reading the status so the final event cannot slip between
	ch := s.Broker.Subscribe(id)
	defer s.Broker.Unsubscribe(id, ch)
	st, err := s.Runs.Get(id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	heartbeat := func() {
		fmt.Fprintf(w, "event: heartbeat\n")
		fmt.Fprintf(w, "data: {\"runId\":\"%s\",\"ts\":\"%s\"}\n\n", id, time.Now().Format(time.RFC3339))
		flusher.Flush()
	}
	send := func(evt SSEEvent) {
		b, _ := json.Marshal(evt.Data)
		fmt.Fprintf(w, "event: %s\n", evt.Type)
		fmt.Fprintf(w, "data: %s\n\n", string(b))
		flusher.Flush()
	}
	heartbeat()
	if st.State != model.RunRunning {
		send(SSEEvent{Type: EventRunFinished, Data: finishedEventData(st)})
		return
	}

	ticker := time.NewTicker(s.Cfg.Heartbeat)
	defer ticker.Stop()
	notify := r.Context().Done()
	for {
		select {
		case <-notify:
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			send(evt)
			if evt.Type == EventRunFinished {
				return
			}
		case <-done:
			// the final event may still be queued, or was dropped on a full channel
			for {
				select {
				case evt, ok := <-ch:
					if !ok {
						return
					}
					send(evt)
					if evt.Type == EventRunFinished {
						return
					}
				default:
					if st, err := s.Runs.Get(id); err == nil {
						send(SSEEvent{Type: EventRunFinished, Data: finishedEventData(st)})
					}
					return
				}
			}
		case <-ticker.C:
			heartbeat()
		}
	}
}

// PointSetsHandler handles POST/GET /v1/pointsets. POST accepts JSON or a
// text/csv body of "x,y" lines.
func (s *Server) PointSetsHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/pointsets" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodPost:
		var in model.PointSetIn
		body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); ct == "text/csv" {
			pts, err := csvfile.Read(body)
			if err != nil {
				writeProblem(w, http.StatusBadRequest, "Invalid CSV", err.Error(), r.URL.Path)
				return
			}
			in = model.PointSetIn{Name: r.URL.Query().Get("name"), Points: pts}
		} else if err := json.NewDecoder(body).Decode(&in); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validatePoints(in.Points, s.Cfg.MaxPoints); err != nil {
			writeError(w, r, err)
			return
		}
		ps, err := s.Store.SavePointSet(r.Context(), in)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Save point set failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, ps)
	case http.MethodGet:
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListPointSets(r.Context(), cursor, limit)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// PointSetByIDHandler handles GET /v1/pointsets/{id}; ?format=csv returns
// the points as CSV.
func (s *Server) PointSetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/pointsets/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ps, err := s.Store.GetPointSet(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".csv"))
		_ = csvfile.Write(w, ps.Points)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

// StatisticsHandler handles GET /v1/statistics
func (s *Server) StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	limit := 100
	if v := q.Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	// statistics carry display names; accept a registry key too
	algorithm := q.Get("algorithm")
	if name, ok := opt.DisplayName(algorithm); ok {
		algorithm = name
	}
	items, next, err := s.Store.ListStatistics(r.Context(), algorithm, q.Get("cursor"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// AlgorithmsHandler handles GET /v1/algorithms
func (s *Server) AlgorithmsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	type algorithm struct {
		Key  string `json:"key"`
		Name string `json:"name"`
	}
	var items []algorithm
	for _, key := range opt.Names() {
		a, err := opt.New(key, s.runOptions(false, nil))
		if err != nil {
			writeError(w, r, err)
			return
		}
		items = append(items, algorithm{Key: key, Name: a.Name()})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":               items,
		"annealing":           s.Cfg.Annealing,
		"maxExhaustivePoints": s.Cfg.MaxExhaustivePoints,
		"maxPoints":           s.Cfg.MaxPoints,
	})
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	type pinger interface{ Ping(ctx context.Context) error }
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	for _, dep := range []any{s.Store, s.Broker} {
		if p, ok := dep.(pinger); ok {
			if err := p.Ping(ctx); err != nil {
				writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
				return
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
