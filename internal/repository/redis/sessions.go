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

const sessionKeyPrefix = "session:"

// SessionRepository stores login sessions as JSON blobs under session:<sid>
// with a TTL matching the cookie lifetime.
type SessionRepository struct {
	client *red.Client
}

// NewSessionRepository constructs the session store helper.
func NewSessionRepository(client *red.Client) *SessionRepository {
	return &SessionRepository{client: client}
}

// Save persists the session with the provided TTL.
func (r *SessionRepository) Save(ctx context.Context, sid string, session domain.Session, ttl time.Duration) error {
	if sid == "" {
		return errors.New("session id is required")
	}
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}

	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := r.client.Set(ctx, sessionKey(sid), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}

	return nil
}

// Get fetches the session or repository.ErrNotFound when absent or expired.
func (r *SessionRepository) Get(ctx context.Context, sid string) (domain.Session, error) {
	raw, err := r.client.Get(ctx, sessionKey(sid)).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return domain.Session{}, repository.ErrNotFound
		}
		return domain.Session{}, fmt.Errorf("redis get session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return domain.Session{}, fmt.Errorf("decode session: %w", err)
	}

	return session, nil
}

// Delete removes the session record.
func (r *SessionRepository) Delete(ctx context.Context, sid string) error {
	if err := r.client.Del(ctx, sessionKey(sid)).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}

func sessionKey(sid string) string {
	return sessionKeyPrefix + sid
}

var _ port.SessionRepository = (*SessionRepository)(nil)
