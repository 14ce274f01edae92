package port

import (
	"context"

	"github.com/arklim/social-platform-liveqa/internal/core/domain"
)

// QuestionRepository is the authoritative store for question records plus the
// time-ordered index used for "latest first" queries.
type QuestionRepository interface {
	// Insert stores the record and adds it to the ordered index keyed by CreatedAt.
	Insert(ctx context.Context, q domain.Question) error
	// IncrementLikes atomically increments the like counter, initialising it
	// to zero first when absent. A like against an unknown id therefore
	// materialises a ghost record; see the questions service for rationale.
	IncrementLikes(ctx context.Context, id string) (int64, error)
	// Delete removes the record and its index entry. Returns
	// repository.ErrNotFound when the record key is absent.
	Delete(ctx context.Context, id string) error
	// LatestQuestions reads the newest records straight from the index,
	// bypassing any cache. Ids whose record fails to hydrate are substituted
	// with a placeholder instead of failing the whole read.
	LatestQuestions(ctx context.Context, limit int64) ([]domain.Question, error)
}
