package bus

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/arklim/social-platform-liveqa/internal/core/domain"
	"github.com/arklim/social-platform-liveqa/internal/core/port"
)

// LocalBus fans events out to subscribers within one process.
//
// Publish never blocks: each subscriber owns a buffered channel and events are
// dropped for subscribers that cannot keep up. Dropped events are recovered by
// the stream session's reconciliation pass, so the bus can stay lossy.
type LocalBus struct {
	mu      sync.Mutex
	subs    map[uint64]*localSubscription
	nextID  uint64
	buffer  int
	closed  bool
	logger  *zap.Logger
	dropped uint64
}

// NewLocalBus constructs a bus whose subscriber channels hold up to buffer events.
func NewLocalBus(buffer int, logger *zap.Logger) *LocalBus {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalBus{
		subs:   make(map[uint64]*localSubscription),
		buffer: buffer,
		logger: logger,
	}
}

// Publish delivers the event to every current subscriber without blocking.
func (b *LocalBus) Publish(_ context.Context, event domain.QuestionEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for _, sub := range b.subs {
		select {
		case sub.ch <- event:
		default:
			b.dropped++
			b.logger.Debug("subscriber buffer full, dropping event",
				zap.String("event_type", string(event.Type)),
				zap.String("question_id", event.ID),
			)
		}
	}
}

// Subscribe registers a new subscriber and returns its subscription handle.
func (b *LocalBus) Subscribe() port.Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &localSubscription{
		bus: b,
		ch:  make(chan domain.QuestionEvent, b.buffer),
	}

	if b.closed {
		close(sub.ch)
		sub.detached = true
		return sub
	}

	b.nextID++
	sub.id = b.nextID
	b.subs[sub.id] = sub

	return sub
}

// Close detaches all subscribers. Further publishes are no-ops.
func (b *LocalBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for id, sub := range b.subs {
		delete(b.subs, id)
		sub.detached = true
		close(sub.ch)
	}
}

type localSubscription struct {
	bus      *LocalBus
	id       uint64
	ch       chan domain.QuestionEvent
	once     sync.Once
	detached bool
}

// Events returns the subscriber's delivery channel. The channel is closed when
// the subscription or the bus is closed.
func (s *localSubscription) Events() <-chan domain.QuestionEvent {
	return s.ch
}

// Close detaches the subscriber. Safe to call multiple times and safe to race
// with Publish.
func (s *localSubscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()

		if s.detached {
			return
		}
		s.detached = true
		delete(s.bus.subs, s.id)
		close(s.ch)
	})
}

var _ port.EventBus = (*LocalBus)(nil)
