package port

import (
	"context"

	"github.com/arklim/social-platform-liveqa/internal/core/domain"
)

// EventBus fans question lifecycle events out to live subscribers.
//
// Publish is non-blocking and fire-and-forget: it never fails the originating
// write, and a slow or broken subscriber must not affect the publisher or
// other subscribers. Delivery is at-least-once at best; subscribers treat
// events as idempotent hints and reconcile against store state.
type EventBus interface {
	Publish(ctx context.Context, event domain.QuestionEvent)
	Subscribe() Subscription
}

// Subscription is one subscriber's view of the bus. Close is idempotent and
// must be called when the subscriber goes away.
type Subscription interface {
	Events() <-chan domain.QuestionEvent
	Close()
}
