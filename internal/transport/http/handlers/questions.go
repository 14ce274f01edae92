package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-liveqa/internal/core/domain"
	"github.com/arklim/social-platform-liveqa/internal/usecase"
)

// QuestionHandler exposes the question board's write and read endpoints.
type QuestionHandler struct {
	questions *usecase.QuestionService
}

// NewQuestionHandler constructs a question handler.
func NewQuestionHandler(questions *usecase.QuestionService) *QuestionHandler {
	return &QuestionHandler{questions: questions}
}

// Create handles POST /api/questions/new.
func (h *QuestionHandler) Create(c *gin.Context) {
	var req CreateQuestionRequest
	// A malformed body falls through to the empty-text validation below,
	// matching the original endpoint's tolerant parse.
	_ = c.ShouldBindJSON(&req)

	q, err := h.questions.Create(c.Request.Context(), req.Text)
	if err != nil {
		if errors.Is(err, usecase.ErrEmptyText) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "Text required"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to create question"))
		return
	}

	c.JSON(http.StatusOK, CreateQuestionResponse{OK: true, Data: q})
}

// Like handles POST /api/actions/like.
func (h *QuestionHandler) Like(c *gin.Context) {
	var req LikeQuestionRequest
	_ = c.ShouldBindJSON(&req)
	if req.ID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "Missing id"))
		return
	}

	likes, err := h.questions.Like(c.Request.Context(), req.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to like question"))
		return
	}

	c.JSON(http.StatusOK, LikeQuestionResponse{OK: true, ID: req.ID, Likes: likes})
}

// Delete handles POST /api/actions/delete.
func (h *QuestionHandler) Delete(c *gin.Context) {
	var req DeleteQuestionRequest
	_ = c.ShouldBindJSON(&req)
	if req.ID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "Missing id"))
		return
	}

	if err := h.questions.Delete(c.Request.Context(), req.ID); err != nil {
		cases := []ErrorCase{{Err: usecase.ErrQuestionNotFound, Status: http.StatusNotFound, Message: "Question not found"}}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "failed to delete question")
		return
	}

	c.JSON(http.StatusOK, DeleteQuestionResponse{OK: true, ID: req.ID})
}

// List handles GET /api/questions.
func (h *QuestionHandler) List(c *gin.Context) {
	items, source, err := h.questions.ListLatest(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list questions"))
		return
	}

	if items == nil {
		items = []domain.Question{}
	}

	c.JSON(http.StatusOK, ListQuestionsResponse{Source: string(source), Data: items})
}
