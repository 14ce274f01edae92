package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-liveqa/internal/core/domain"
	"github.com/arklim/social-platform-liveqa/internal/core/port"
	"github.com/arklim/social-platform-liveqa/internal/repository"
)

// ListSource tags where a latest-questions read was served from.
type ListSource string

const (
	ListSourceCache  ListSource = "cache"
	ListSourceOrigin ListSource = "origin"
)

var (
	// ErrEmptyText rejects create requests whose text trims to nothing.
	ErrEmptyText = errors.New("question text is required")
	// ErrQuestionNotFound is returned for operations against an absent record.
	ErrQuestionNotFound = errors.New("question not found")
)

// QuestionService owns the write path (create, like, delete) and the cached
// read path over the question record store.
//
// Within one write the ordering is fixed: store mutation first, cache
// invalidation second, event publish last. Invalidating before the mutation
// commits would let a concurrent read repopulate the cache with stale state.
type QuestionService struct {
	records   port.QuestionRepository
	cache     port.ViewCache
	bus       port.EventBus
	cacheTTL  time.Duration
	listLimit int64
	logger    *zap.Logger
	now       func() time.Time
}

// NewQuestionService constructs the question service.
func NewQuestionService(records port.QuestionRepository, cache port.ViewCache, eventBus port.EventBus, cacheTTL time.Duration, listLimit int64, logger *zap.Logger) *QuestionService {
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	if listLimit <= 0 {
		listLimit = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &QuestionService{
		records:   records,
		cache:     cache,
		bus:       eventBus,
		cacheTTL:  cacheTTL,
		listLimit: listLimit,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (s *QuestionService) WithClock(now func() time.Time) *QuestionService {
	if now != nil {
		s.now = now
	}
	return s
}

// Create validates and stores a new question, then invalidates the cached view
// and announces the record on the bus.
func (s *QuestionService) Create(ctx context.Context, text string) (domain.Question, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Question{}, ErrEmptyText
	}

	q := domain.Question{
		ID:        uuid.NewString(),
		Text:      text,
		Likes:     0,
		CreatedAt: s.now().UnixMilli(),
	}

	if err := s.records.Insert(ctx, q); err != nil {
		return domain.Question{}, fmt.Errorf("insert question: %w", err)
	}

	s.invalidateView(ctx)
	s.bus.Publish(ctx, domain.NewQuestionCreated(q))

	return q, nil
}

// Like increments the like counter and returns the new value.
//
// A like against an unknown id silently materialises a likes-only record
// instead of failing. Kept deliberately: the client may race a like against a
// concurrent delete, and losing the like is preferable to failing the tap.
func (s *QuestionService) Like(ctx context.Context, id string) (int64, error) {
	if id == "" {
		return 0, ErrQuestionNotFound
	}

	likes, err := s.records.IncrementLikes(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("increment likes: %w", err)
	}

	s.invalidateView(ctx)
	s.bus.Publish(ctx, domain.NewQuestionUpdated(id, likes))

	return likes, nil
}

// Delete removes the question and its index entry.
func (s *QuestionService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrQuestionNotFound
	}

	if err := s.records.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("delete question: %w", err)
	}

	s.invalidateView(ctx)
	s.bus.Publish(ctx, domain.NewQuestionDeleted(id))

	return nil
}

// ListLatest serves the newest questions, read-through cached. The returned
// source tag tells the caller whether the view came from cache or origin.
func (s *QuestionService) ListLatest(ctx context.Context) ([]domain.Question, ListSource, error) {
	items, err := s.cache.GetLatest(ctx)
	if err == nil {
		return items, ListSourceCache, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		// A broken cache degrades to origin reads rather than failing the request.
		s.logger.Warn("latest view cache read failed", zap.Error(err))
	}

	items, err = s.records.LatestQuestions(ctx, s.listLimit)
	if err != nil {
		return nil, "", fmt.Errorf("read latest questions: %w", err)
	}

	if err := s.cache.SetLatest(ctx, items, s.cacheTTL); err != nil {
		s.logger.Warn("latest view cache write failed", zap.Error(err))
	}

	return items, ListSourceOrigin, nil
}

// LatestSnapshot reads current state straight from the record store, bypassing
// the cache. Stream reconciliation diffs against this.
func (s *QuestionService) LatestSnapshot(ctx context.Context) ([]domain.Question, error) {
	return s.records.LatestQuestions(ctx, s.listLimit)
}

func (s *QuestionService) invalidateView(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		// Best-effort: a stale view lives at most one cache TTL and the
		// event path compensates in the meantime.
		s.logger.Warn("latest view invalidation failed", zap.Error(err))
	}
}
