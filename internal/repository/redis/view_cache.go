package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/arklim/social-platform-liveqa/internal/core/domain"
	"github.com/arklim/social-platform-liveqa/internal/core/port"
	"github.com/arklim/social-platform-liveqa/internal/repository"
)

const defaultViewCacheKey = "questions:latest"

// ViewCacheRepository caches the materialised latest-questions view as a JSON
// blob under a single key with a short TTL.
type ViewCacheRepository struct {
	client *red.Client
	key    string
}

// NewViewCacheRepository constructs the view cache helper.
func NewViewCacheRepository(client *red.Client, key string) *ViewCacheRepository {
	if key == "" {
		key = defaultViewCacheKey
	}
	return &ViewCacheRepository{client: client, key: key}
}

// GetLatest returns the cached view or repository.ErrNotFound on a miss.
func (c *ViewCacheRepository) GetLatest(ctx context.Context) ([]domain.Question, error) {
	raw, err := c.client.Get(ctx, c.key).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis get latest view: %w", err)
	}

	var items []domain.Question
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode latest view: %w", err)
	}

	return items, nil
}

// SetLatest stores the assembled view with the provided TTL.
func (c *ViewCacheRepository) SetLatest(ctx context.Context, items []domain.Question, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}

	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode latest view: %w", err)
	}

	if err := c.client.Set(ctx, c.key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set latest view: %w", err)
	}

	return nil
}

// Invalidate drops the cached view.
func (c *ViewCacheRepository) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("redis del latest view: %w", err)
	}
	return nil
}

var _ port.ViewCache = (*ViewCacheRepository)(nil)
