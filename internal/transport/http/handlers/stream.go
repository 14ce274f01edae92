package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-liveqa/internal/usecase"
)

// StreamHandler exposes the live event stream over SSE and websocket.
// Both transports drive the same stream session; only the sink differs.
type StreamHandler struct {
	streams  *usecase.StreamService
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewStreamHandler constructs a stream handler.
func NewStreamHandler(streams *usecase.StreamService, logger *zap.Logger) *StreamHandler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &StreamHandler{
		streams: streams,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Browser clients connect cross-origin during development.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Subscribe handles GET /api/stream as a server-sent event stream. The
// request context carries the disconnect signal that ends the session.
func (h *StreamHandler) Subscribe(c *gin.Context) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "streaming unsupported"))
		return
	}

	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache, no-transform")
	header.Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	sink := &sseSink{w: c.Writer, flusher: flusher}
	if err := h.streams.Attach(c.Request.Context(), sink); err != nil {
		h.logger.Warn("stream session ended with error", zap.Error(err))
	}
}

// SubscribeWS handles GET /api/stream/ws, delivering the same frames as
// JSON text messages over a websocket.
func (h *StreamHandler) SubscribeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Drain client frames so close handshakes and pongs are processed; the
	// stream is one-directional otherwise.
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	sink := &wsSink{conn: conn}
	if err := h.streams.Attach(ctx, sink); err != nil {
		h.logger.Warn("websocket stream session ended with error", zap.Error(err))
	}
}

// sseSink writes frames as blank-line-delimited SSE data events.
type sseSink struct {
	w       gin.ResponseWriter
	flusher http.Flusher
}

func (s *sseSink) Send(frame usecase.Frame) error {
	raw, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", raw); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (s *sseSink) Flush() error {
	s.flusher.Flush()
	return nil
}

// wsSink writes frames as websocket text messages.
type wsSink struct {
	conn *websocket.Conn
}

func (s *wsSink) Send(frame usecase.Frame) error {
	if err := s.conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (s *wsSink) Flush() error { return nil }
