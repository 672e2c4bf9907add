package adminhttp

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pixelflutd/pixelflutd/internal/canvas"
	"github.com/pixelflutd/pixelflutd/internal/taskpool"
)

func TestMetricsMiddlewareServesMetricsPath(t *testing.T) {
	grid, err := canvas.New(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	tracker := taskpool.NewTracker(0, nil)
	tracker.AcquireFlood()
	m := NewMetrics(tracker, grid)
	m.RecordEncode(false)
	m.RecordEncode(true)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not be invoked for the metrics path")
	})
	handler := m.Middleware("/metrics")(next)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()

	wantSubstrings := []string{
		"pixelflutd_admin_requests_active 0",
		"pixelflutd_flood_connections_active 1",
		"pixelflutd_snapshot_encodes_total 2",
		"pixelflutd_snapshot_encodes_reused_total 1",
		"pixelflutd_canvas_version",
		"pixelflutd_go_goroutines",
	}
	for _, want := range wantSubstrings {
		if !strings.Contains(body, want) {
			t.Errorf("expected metrics body to contain %q, got:\n%s", want, body)
		}
	}
}

func TestMetricsMiddlewareTracksActiveRequests(t *testing.T) {
	m := NewMetrics(nil, nil)

	blocking := make(chan struct{})
	release := make(chan struct{})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(blocking)
		<-release
	})
	handler := m.Middleware("/metrics")(next)

	done := make(chan struct{})
	go func() {
		req := httptest.NewRequest("GET", "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		close(done)
	}()

	<-blocking
	if got := m.activeRequests.Load(); got != 1 {
		t.Fatalf("expected 1 active request mid-flight, got %d", got)
	}
	close(release)
	<-done

	if got := m.activeRequests.Load(); got != 0 {
		t.Fatalf("expected 0 active requests after completion, got %d", got)
	}
}
