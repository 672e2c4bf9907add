package adminhttp

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/pixelflutd/pixelflutd/internal/canvas"
	"github.com/pixelflutd/pixelflutd/internal/taskpool"
)

func TestLivenessAlwaysOK(t *testing.T) {
	h := NewHealthHandler(nil, nil)
	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Fatalf("expected status ok, got %v", body["status"])
	}
}

func TestReadinessNotReadyWithoutGrid(t *testing.T) {
	h := NewHealthHandler(nil, nil)
	req := httptest.NewRequest("GET", "/readyz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != 503 {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "not_ready" {
		t.Fatalf("expected not_ready, got %v", body["status"])
	}
	if _, ok := body["canvas"]; ok {
		t.Fatalf("expected no canvas section without a grid")
	}
}

func TestReadinessReadyWithGrid(t *testing.T) {
	grid, err := canvas.New(4, 3)
	if err != nil {
		t.Fatal(err)
	}
	tracker := taskpool.NewTracker(0, nil)
	tracker.AcquireFlood()

	h := NewHealthHandler(tracker, grid)
	req := httptest.NewRequest("GET", "/ready", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ready" {
		t.Fatalf("expected ready, got %v", body["status"])
	}

	canvasInfo, ok := body["canvas"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected canvas section, got %#v", body["canvas"])
	}
	if canvasInfo["width"].(float64) != 4 || canvasInfo["height"].(float64) != 3 {
		t.Fatalf("unexpected canvas dims: %#v", canvasInfo)
	}

	conns, ok := body["connections"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected connections section, got %#v", body["connections"])
	}
	if conns["flood_active"].(float64) != 1 {
		t.Fatalf("expected 1 active flood connection, got %#v", conns["flood_active"])
	}
}
