package port

import (
	"context"
	"time"

	"github.com/arklim/social-platform-liveqa/internal/core/domain"
)

// SessionRepository stores cookie-backed login sessions with a TTL.
type SessionRepository interface {
	Save(ctx context.Context, sid string, session domain.Session, ttl time.Duration) error
	// Get returns repository.ErrNotFound when the session is absent or expired.
	Get(ctx context.Context, sid string) (domain.Session, error)
	Delete(ctx context.Context, sid string) error
}
