package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
)

func newHealthRouter(opts ...HealthOption) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewHealthHandler(opts...)

	r := gin.New()
	r.GET("/healthz", handler.Status)
	r.GET("/readyz", handler.Readiness)
	return r
}

func TestHealthHandler_Status(t *testing.T) {
	r := newHealthRouter()

	w := doJSON(r, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" || resp.StartedAt.IsZero() {
		t.Fatalf("unexpected health payload: %+v", resp)
	}
}

func TestHealthHandler_ReadinessAllChecksPass(t *testing.T) {
	r := newHealthRouter(WithReadinessCheck("redis", func(context.Context) error { return nil }))

	w := doJSON(r, http.MethodGet, "/readyz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp ReadyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ready" || resp.Checks["redis"] != "ok" {
		t.Fatalf("unexpected readiness payload: %+v", resp)
	}
}

func TestHealthHandler_ReadinessFailingCheck(t *testing.T) {
	r := newHealthRouter(WithReadinessCheck("redis", func(context.Context) error {
		return errors.New("connection refused")
	}))

	w := doJSON(r, http.MethodGet, "/readyz", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}

	var resp ReadyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "not_ready" || resp.Checks["redis"] != "connection refused" {
		t.Fatalf("unexpected readiness payload: %+v", resp)
	}
}
