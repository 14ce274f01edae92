package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-liveqa/internal/core/domain"
)

// ErrorResponse is the generic failure payload. Every error body carries
// ok=false so streaming-aware clients can branch on a single field.
type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		OK:      false,
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// CreateQuestionRequest defines the payload for posting a question.
type CreateQuestionRequest struct {
	Text string `json:"text"`
}

// CreateQuestionResponse wraps the created record.
type CreateQuestionResponse struct {
	OK   bool            `json:"ok"`
	Data domain.Question `json:"data"`
}

// LikeQuestionRequest defines the payload for liking a question.
type LikeQuestionRequest struct {
	ID string `json:"id"`
}

// LikeQuestionResponse returns the incremented counter.
type LikeQuestionResponse struct {
	OK    bool   `json:"ok"`
	ID    string `json:"id"`
	Likes int64  `json:"likes"`
}

// DeleteQuestionRequest defines the payload for deleting a question.
type DeleteQuestionRequest struct {
	ID string `json:"id"`
}

// DeleteQuestionResponse acknowledges a removal.
type DeleteQuestionResponse struct {
	OK bool   `json:"ok"`
	ID string `json:"id"`
}

// ListQuestionsResponse is the latest-questions view, tagged with where the
// read was served from ("cache" or "origin").
type ListQuestionsResponse struct {
	Source string            `json:"source"`
	Data   []domain.Question `json:"data"`
}

// LoginRequest defines the stub login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// OKResponse is the minimal success acknowledgement.
type OKResponse struct {
	OK bool `json:"ok"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
