package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/arklim/social-platform-liveqa/internal/usecase"
)

func newStreamRouter(t *testing.T, fixture *handlerFixture, cfg usecase.StreamConfig) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)
	streams := usecase.NewStreamService(fixture.questions, fixture.bus, cfg, zaptest.NewLogger(t))
	handler := NewStreamHandler(streams, zaptest.NewLogger(t))

	r := gin.New()
	r.GET("/api/stream", handler.Subscribe)
	return r
}

// serveStream runs the SSE handler until the request context expires and
// returns the raw body.
func serveStream(t *testing.T, r *gin.Engine, wait time.Duration) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.ServeHTTP(w, req)
	}()

	select {
	case <-done:
	case <-time.After(wait + 2*time.Second):
		t.Fatalf("stream handler did not stop after context expiry")
	}

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected text/event-stream content type, got %q", ct)
	}

	return w.Body.String()
}

// parseFrames decodes every "data: <json>" line in an SSE body.
func parseFrames(t *testing.T, body string) []map[string]any {
	t.Helper()

	var frames []map[string]any
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var frame map[string]any
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &frame); err != nil {
			t.Fatalf("decode frame %q: %v", line, err)
		}
		frames = append(frames, frame)
	}
	return frames
}

func TestStreamHandler_InitialStatePushedAsFrames(t *testing.T) {
	fixture := newHandlerFixture(t)

	q, err := fixture.questions.Create(context.Background(), "streamed")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	r := newStreamRouter(t, fixture, usecase.StreamConfig{
		HeartbeatInterval: time.Hour,
		ReconcileInterval: time.Hour,
	})

	body := serveStream(t, r, 200*time.Millisecond)
	if !strings.Contains(body, "}\n\n") {
		t.Fatalf("SSE events must be blank-line delimited: %q", body)
	}

	frames := parseFrames(t, body)
	if len(frames) == 0 {
		t.Fatalf("expected at least one frame, body: %q", body)
	}

	frame := frames[0]
	if frame["type"] != "new-question" {
		t.Fatalf("expected new-question frame, got %+v", frame)
	}
	payload, ok := frame["payload"].(map[string]any)
	if !ok {
		t.Fatalf("expected object payload, got %+v", frame)
	}
	if payload["id"] != q.ID || payload["text"] != "streamed" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if _, ok := payload["likes"]; !ok {
		t.Fatalf("expected likes in payload: %+v", payload)
	}
	if _, ok := payload["createdAt"]; !ok {
		t.Fatalf("expected createdAt in payload: %+v", payload)
	}
}

func TestStreamHandler_PingFrames(t *testing.T) {
	fixture := newHandlerFixture(t)
	r := newStreamRouter(t, fixture, usecase.StreamConfig{
		HeartbeatInterval: 20 * time.Millisecond,
		ReconcileInterval: time.Hour,
	})

	frames := parseFrames(t, serveStream(t, r, 150*time.Millisecond))

	for _, frame := range frames {
		if frame["type"] != "ping" {
			continue
		}
		ts, ok := frame["t"].(float64)
		if !ok || ts <= 0 {
			t.Fatalf("ping frame must carry a millisecond timestamp, got %+v", frame)
		}
		if _, hasPayload := frame["payload"]; hasPayload {
			t.Fatalf("ping frame must not carry a payload, got %+v", frame)
		}
		return
	}
	t.Fatalf("expected at least one ping frame, got %+v", frames)
}

func TestStreamHandler_ReconcileDeliversMissedDelete(t *testing.T) {
	fixture := newHandlerFixture(t)

	q, err := fixture.questions.Create(context.Background(), "doomed")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	r := newStreamRouter(t, fixture, usecase.StreamConfig{
		HeartbeatInterval: time.Hour,
		ReconcileInterval: 20 * time.Millisecond,
	})

	// Delete shortly after the stream attaches; the frame may arrive via the
	// bus or via reconciliation, either path must produce question-delete.
	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = fixture.questions.Delete(context.Background(), q.ID)
	}()

	frames := parseFrames(t, serveStream(t, r, 300*time.Millisecond))

	for _, frame := range frames {
		if frame["type"] != "question-delete" {
			continue
		}
		payload, ok := frame["payload"].(map[string]any)
		if !ok || payload["id"] != q.ID {
			t.Fatalf("unexpected delete payload: %+v", frame)
		}
		return
	}
	t.Fatalf("expected a question-delete frame, got %+v", frames)
}
