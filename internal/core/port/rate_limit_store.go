package port

import (
	"context"
	"time"
)

// RateLimitStore persists sliding-window attempt markers per identity.
// Every admission check records a marker first (rejected calls included) so
// abusive identities keep their window alive.
type RateLimitStore interface {
	// RecordAttempt stores a timestamped marker and refreshes the identity's TTL.
	RecordAttempt(ctx context.Context, identifier string, at time.Time) error
	// TrimWindow purges markers older than reference-window.
	TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error
	// CountAttempts counts markers inside the window ending at reference.
	CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error)
	// OldestAttempt returns the oldest marker still inside the window, used to
	// derive Retry-After for rejected callers.
	OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error)
}
