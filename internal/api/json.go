package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"tourlab/internal/opt"
	"tourlab/internal/store"
)

// Problem represents an RFC7807 problem details response body.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	writeJSON(w, status, Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// writeError maps domain errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, title := http.StatusInternalServerError, "Internal Error"
	switch {
	case errors.Is(err, errInvalidRequest),
		errors.Is(err, opt.ErrTooFewPoints),
		errors.Is(err, opt.ErrTooManyPoints),
		errors.Is(err, opt.ErrInvalidConfig),
		errors.Is(err, opt.ErrUnknownAlgorithm),
		errors.Is(err, store.ErrInvalidCursor):
		status, title = http.StatusBadRequest, "Invalid Request"
	case errors.Is(err, store.ErrNotFound), errors.Is(err, ErrRunNotFound):
		status, title = http.StatusNotFound, "Not Found"
	case errors.Is(err, ErrTooManyRuns):
		status, title = http.StatusTooManyRequests, "Too Many Runs"
	}
	writeProblem(w, status, title, err.Error(), r.URL.Path)
}
