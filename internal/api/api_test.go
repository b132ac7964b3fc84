package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"talkative-backend/internal/queue"

	"github.com/prometheus/client_golang/prometheus"
)

// Two servers on the same address must be able to coexist in one process as
// long as each gets its own registry. A shared registry would panic on the
// second MustRegister.
func TestServersUseIsolatedRegistries(t *testing.T) {
	queueManager := queue.NewRequestQueueManager(10, 1)
	defer queueManager.Shutdown()

	first := NewAPIServerWithRegisterer(":0", queueManager, nil, nil, prometheus.NewRegistry())
	second := NewAPIServerWithRegisterer(":0", queueManager, nil, nil, prometheus.NewRegistry())

	for _, server := range []*APIServer{first, second} {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		rec := httptest.NewRecorder()
		server.metrics.metricsHandler().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("metrics endpoint returned %d", rec.Code)
		}
	}
}

func TestMetricsServeFromOwnRegistry(t *testing.T) {
	queueManager := queue.NewRequestQueueManager(10, 1)
	defer queueManager.Shutdown()

	server := NewAPIServerWithRegisterer(":0", queueManager, nil, nil, prometheus.NewRegistry())

	handler := server.metrics.instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	server.metrics.metricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics endpoint returned %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "talkative_http_requests_total") {
		t.Fatalf("expected request counter in metrics output, got:\n%s", body)
	}
}
