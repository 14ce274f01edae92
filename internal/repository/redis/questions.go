package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	red "github.com/redis/go-redis/v9"

	"github.com/arklim/social-platform-liveqa/internal/core/domain"
	"github.com/arklim/social-platform-liveqa/internal/core/port"
	"github.com/arklim/social-platform-liveqa/internal/repository"
)

const (
	questionKeyPrefix = "question:"
	indexKey          = "questions:byTime"

	fieldText      = "text"
	fieldLikes     = "likes"
	fieldCreatedAt = "createdAt"
)

// QuestionRepository stores question records as Redis hashes and maintains the
// questions:byTime sorted set keyed by creation timestamp.
type QuestionRepository struct {
	client *red.Client
}

// NewQuestionRepository constructs a repository over the provided Redis client.
func NewQuestionRepository(client *red.Client) *QuestionRepository {
	return &QuestionRepository{client: client}
}

// Insert stores the record hash and indexes the id under its CreatedAt score.
// The two writes are not transactional; the narrow window between them is part
// of the documented consistency contract and self-heals via placeholders.
func (r *QuestionRepository) Insert(ctx context.Context, q domain.Question) error {
	key := questionKey(q.ID)

	if err := r.client.HSet(ctx, key,
		fieldText, q.Text,
		fieldLikes, q.Likes,
		fieldCreatedAt, q.CreatedAt,
	).Err(); err != nil {
		return fmt.Errorf("redis hset question: %w", err)
	}

	member := red.Z{Score: float64(q.CreatedAt), Member: q.ID}
	if err := r.client.ZAdd(ctx, indexKey, member).Err(); err != nil {
		return fmt.Errorf("redis zadd index: %w", err)
	}

	return nil
}

// IncrementLikes initialises the counter to zero when absent, then increments.
// The absent-field initialisation deliberately tolerates unknown ids.
func (r *QuestionRepository) IncrementLikes(ctx context.Context, id string) (int64, error) {
	key := questionKey(id)

	if err := r.client.HSetNX(ctx, key, fieldLikes, 0).Err(); err != nil {
		return 0, fmt.Errorf("redis hsetnx likes: %w", err)
	}

	likes, err := r.client.HIncrBy(ctx, key, fieldLikes, 1).Result()
	if err != nil {
		return 0, fmt.Errorf("redis hincrby likes: %w", err)
	}

	return likes, nil
}

// Delete removes the record hash and its index entry.
func (r *QuestionRepository) Delete(ctx context.Context, id string) error {
	key := questionKey(id)

	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis exists question: %w", err)
	}
	if exists == 0 {
		return repository.ErrNotFound
	}

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del question: %w", err)
	}

	// If this removal fails the index carries a dangling id; the next list
	// hydration substitutes a placeholder rather than erroring.
	if err := r.client.ZRem(ctx, indexKey, id).Err(); err != nil {
		return fmt.Errorf("redis zrem index: %w", err)
	}

	return nil
}

// LatestQuestions reads the top ids from the ordered index (newest first) and
// hydrates each record.
func (r *QuestionRepository) LatestQuestions(ctx context.Context, limit int64) ([]domain.Question, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}

	ids, err := r.client.ZRevRange(ctx, indexKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zrevrange index: %w", err)
	}

	items := make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		q, err := r.hydrate(ctx, id)
		if err != nil {
			return nil, err
		}
		items = append(items, q)
	}

	return items, nil
}

func (r *QuestionRepository) hydrate(ctx context.Context, id string) (domain.Question, error) {
	values, err := r.client.HGetAll(ctx, questionKey(id)).Result()
	if err != nil {
		return domain.Question{}, fmt.Errorf("redis hgetall question: %w", err)
	}

	if len(values) == 0 {
		return domain.PlaceholderQuestion(id), nil
	}

	q := domain.Question{ID: id, Text: values[fieldText]}
	if q.Text == "" {
		q.Text = "Untitled"
	}
	if raw, ok := values[fieldLikes]; ok {
		if likes, parseErr := strconv.ParseInt(raw, 10, 64); parseErr == nil {
			q.Likes = likes
		}
	}
	if raw, ok := values[fieldCreatedAt]; ok {
		if createdAt, parseErr := strconv.ParseInt(raw, 10, 64); parseErr == nil {
			q.CreatedAt = createdAt
		}
	}

	return q, nil
}

func questionKey(id string) string {
	return questionKeyPrefix + id
}

var _ port.QuestionRepository = (*QuestionRepository)(nil)
