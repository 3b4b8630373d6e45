package metrics

import "testing"

func TestRegisterDefaultIdempotent(t *testing.T) {
	RegisterDefault()
	RegisterDefault()

	RunsStarted.WithLabelValues("brute-force").Inc()
	RunsFinished.WithLabelValues("brute-force", "completed").Inc()
	HTTPRequests.WithLabelValues("GET", "/healthz", "200").Inc()

	families, err := Registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"tour_runs_started_total",
		"tour_runs_finished_total",
		"tour_active_runs",
		"tourlab_http_requests_total",
		"go_goroutines",
	} {
		if !names[want] {
			t.Fatalf("missing metric %s", want)
		}
	}
}
