package port

import (
	"context"
	"time"

	"github.com/arklim/social-platform-liveqa/internal/core/domain"
)

// ViewCache holds the materialised "latest questions" view for a short TTL.
// Entries are transient and possibly stale; invalidation is best-effort and
// issued only after the underlying mutation commits.
type ViewCache interface {
	// GetLatest returns the cached view. Returns repository.ErrNotFound on a miss.
	GetLatest(ctx context.Context) ([]domain.Question, error)
	// SetLatest stores the assembled view with the provided TTL.
	SetLatest(ctx context.Context, items []domain.Question, ttl time.Duration) error
	// Invalidate drops the cached view.
	Invalidate(ctx context.Context) error
}
