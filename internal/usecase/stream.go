package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/social-platform-liveqa/internal/core/domain"
	"github.com/arklim/social-platform-liveqa/internal/core/port"
)

// Frame is one message pushed down a client stream. Event frames carry a
// payload; ping frames carry only the server timestamp in milliseconds.
type Frame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
	T       int64  `json:"t,omitempty"`
}

// FrameTypePing is the advisory liveness frame type.
const FrameTypePing = "ping"

// QuestionUpdatePayload is the wire payload for question-update frames.
type QuestionUpdatePayload struct {
	ID    string `json:"id"`
	Likes int64  `json:"likes"`
}

// QuestionDeletePayload is the wire payload for question-delete frames.
type QuestionDeletePayload struct {
	ID string `json:"id"`
}

// StreamSink abstracts the transport a session pushes frames into. Both the
// SSE and the websocket endpoints implement it.
type StreamSink interface {
	Send(frame Frame) error
	Flush() error
}

// StreamConfig tunes per-connection session timers.
type StreamConfig struct {
	HeartbeatInterval time.Duration
	ReconcileInterval time.Duration
}

// StreamService attaches long-lived client subscriptions to the event bus and
// keeps them consistent through periodic reconciliation against store state.
type StreamService struct {
	questions *QuestionService
	bus       port.EventBus
	cfg       StreamConfig
	logger    *zap.Logger
}

// NewStreamService constructs the stream service.
func NewStreamService(questions *QuestionService, eventBus port.EventBus, cfg StreamConfig, logger *zap.Logger) *StreamService {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 5 * time.Second
	}
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = 1500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &StreamService{
		questions: questions,
		bus:       eventBus,
		cfg:       cfg,
		logger:    logger,
	}
}

// Session states. Transitions are one-way: connecting -> open -> closed.
const (
	stateConnecting int32 = iota
	stateOpen
	stateClosed
)

type streamSession struct {
	svc  *StreamService
	sink StreamSink
	sub  port.Subscription

	state     atomic.Int32
	closeOnce sync.Once

	// snapshot maps question id to the likes value last pushed to this
	// client. Ephemeral and per-connection, never authoritative.
	snapshot map[string]int64
}

// Attach runs a stream session over the sink until ctx is cancelled, which is
// how transport disconnects surface. One reconciliation pass runs before the
// timers start so a fresh client is never blank until the first tick.
func (s *StreamService) Attach(ctx context.Context, sink StreamSink) error {
	session := &streamSession{
		svc:      s,
		sink:     sink,
		snapshot: make(map[string]int64),
	}
	return session.run(ctx)
}

func (s *streamSession) run(ctx context.Context) error {
	s.sub = s.svc.bus.Subscribe()
	defer s.close()

	s.state.Store(stateOpen)

	s.reconcile(ctx)

	heartbeat := time.NewTicker(s.svc.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	reconcile := time.NewTicker(s.svc.cfg.ReconcileInterval)
	defer reconcile.Stop()

	events := s.sub.Events()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-events:
			if !ok {
				// Bus torn down (process shutdown); reconciliation alone
				// keeps the session correct until the client drops.
				events = nil
				continue
			}
			s.deliver(event)

		case <-heartbeat.C:
			s.emit(Frame{Type: FrameTypePing, T: time.Now().UnixMilli()})

		case <-reconcile.C:
			s.reconcile(ctx)
		}
	}
}

// close releases the subscription exactly once, regardless of which trigger
// ended the session.
func (s *streamSession) close() {
	s.closeOnce.Do(func() {
		s.state.Store(stateClosed)
		if s.sub != nil {
			s.sub.Close()
		}
	})
}

// deliver pushes a bus event and folds it into the snapshot so the next
// reconciliation pass does not repeat it.
func (s *streamSession) deliver(event domain.QuestionEvent) {
	if !s.emit(frameFromEvent(event)) {
		return
	}

	switch event.Type {
	case domain.EventQuestionCreated:
		if event.Question != nil {
			s.snapshot[event.ID] = event.Question.Likes
		}
	case domain.EventQuestionUpdated:
		s.snapshot[event.ID] = event.Likes
	case domain.EventQuestionDeleted:
		delete(s.snapshot, event.ID)
	}
}

// reconcile diffs current store state against the last pushed snapshot and
// synthesizes the events the bus path may have missed. Store errors skip the
// tick; the session stays alive and retries on the next one.
func (s *streamSession) reconcile(ctx context.Context) {
	if s.state.Load() == stateClosed {
		return
	}

	items, err := s.svc.questions.LatestSnapshot(ctx)
	if err != nil {
		s.svc.logger.Warn("stream reconciliation failed", zap.Error(err))
		return
	}

	current := make(map[string]int64, len(items))
	for _, q := range items {
		current[q.ID] = q.Likes
	}

	// Deletions first so clients drop rows before any reordering inserts.
	for id := range s.snapshot {
		if _, ok := current[id]; !ok {
			s.emit(frameFromEvent(domain.NewQuestionDeleted(id)))
		}
	}

	for _, q := range items {
		prev, seen := s.snapshot[q.ID]
		switch {
		case !seen:
			s.emit(frameFromEvent(domain.NewQuestionCreated(q)))
		case prev != q.Likes:
			s.emit(frameFromEvent(domain.NewQuestionUpdated(q.ID, q.Likes)))
		}
	}

	s.snapshot = current
}

// emit sends one frame unless the session is already closed. Send failures
// are logged and swallowed; the transport context ends the session when the
// connection is actually gone.
func (s *streamSession) emit(frame Frame) bool {
	if s.state.Load() == stateClosed {
		return false
	}

	if err := s.sink.Send(frame); err != nil {
		s.svc.logger.Debug("stream delivery failed", zap.String("frame_type", frame.Type), zap.Error(err))
		return false
	}
	if err := s.sink.Flush(); err != nil {
		s.svc.logger.Debug("stream flush failed", zap.Error(err))
		return false
	}

	return true
}

// frameFromEvent maps a bus event onto its client frame shape.
func frameFromEvent(event domain.QuestionEvent) Frame {
	switch event.Type {
	case domain.EventQuestionCreated:
		var payload any
		if event.Question != nil {
			payload = *event.Question
		} else {
			payload = QuestionUpdatePayload{ID: event.ID, Likes: event.Likes}
		}
		return Frame{Type: string(event.Type), Payload: payload}

	case domain.EventQuestionUpdated:
		return Frame{Type: string(event.Type), Payload: QuestionUpdatePayload{ID: event.ID, Likes: event.Likes}}

	default:
		return Frame{Type: string(event.Type), Payload: QuestionDeletePayload{ID: event.ID}}
	}
}
