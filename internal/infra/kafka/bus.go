package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-liveqa/internal/core/domain"
	"github.com/arklim/social-platform-liveqa/internal/core/port"
	"github.com/arklim/social-platform-liveqa/internal/infra/bus"
	"github.com/arklim/social-platform-liveqa/internal/infra/config"
)

const schemaVersion = "1.0"

// Bus bridges the in-process fan-out bus across server instances through a
// Kafka topic. Publishes go to the local bus immediately and to the topic
// asynchronously; envelopes consumed from the topic are replayed into the
// local bus so subscribers on other instances observe every mutation.
//
// Each instance consumes with a unique group id, so the topic behaves as a
// broadcast channel rather than a work queue. A subscriber may see the same
// logical event twice (local delivery plus replay of another instance's
// envelope is fine; self-origin envelopes are skipped); stream sessions treat
// events as idempotent hints.
type Bus struct {
	local    *bus.LocalBus
	producer *Producer
	group    sarama.ConsumerGroup
	topic    string
	instance string
	appCfg   config.AppSettings
	logger   *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string               `json:"event_id"`
	EventType domain.EventType     `json:"event_type"`
	Origin    string               `json:"origin"`
	Timestamp time.Time            `json:"timestamp"`
	Version   string               `json:"version"`
	Payload   domain.QuestionEvent `json:"payload"`
	Metadata  envelopeMetadata     `json:"metadata,omitempty"`
}

// NewBus constructs the Kafka bridge over the provided local bus and starts
// the consumer loop.
func NewBus(cfg config.KafkaSettings, appCfg config.AppSettings, local *bus.LocalBus, logger *zap.Logger) (*Bus, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	producer, err := NewProducer(cfg, logger)
	if err != nil {
		return nil, err
	}

	instance := uuid.NewString()

	groupConfig := sarama.NewConfig()
	groupConfig.Version = sarama.V3_5_0_0
	// Start at the newest offset: a fresh instance reconciles current state
	// from the record store, it does not need the event history.
	groupConfig.Consumer.Offsets.Initial = sarama.OffsetNewest

	group, err := sarama.NewConsumerGroup(cfg.Brokers, "liveqa-stream-"+instance, groupConfig)
	if err != nil {
		_ = producer.Close()
		return nil, fmt.Errorf("create kafka consumer group: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	b := &Bus{
		local:    local,
		producer: producer,
		group:    group,
		topic:    cfg.Topic,
		instance: instance,
		appCfg:   appCfg,
		logger:   logger,
		cancel:   cancel,
	}

	b.wg.Add(1)
	go b.consumeLoop(ctx)

	logger.Info("Kafka event bus initialized",
		zap.String("topic", cfg.Topic),
		zap.String("instance", instance),
	)

	return b, nil
}

// Publish delivers locally and enqueues the envelope for the topic. Neither
// path blocks the caller; broker failures only surface in the producer's
// error monitor.
func (b *Bus) Publish(ctx context.Context, event domain.QuestionEvent) {
	b.local.Publish(ctx, event)

	metadata := envelopeMetadata{
		"service":     b.appCfg.Name,
		"environment": b.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   uuid.NewString(),
		EventType: event.Type,
		Origin:    b.instance,
		Timestamp: time.Now().UTC(),
		Version:   schemaVersion,
		Payload:   event,
		Metadata:  metadata,
	}

	raw, err := json.Marshal(envelope)
	if err != nil {
		b.logger.Error("marshal event envelope", zap.Error(err))
		return
	}

	message := &sarama.ProducerMessage{
		Topic: b.topic,
		Key:   sarama.StringEncoder(event.ID),
		Value: sarama.ByteEncoder(raw),
	}

	select {
	case b.producer.Producer().Input() <- message:
	default:
		b.logger.Warn("Kafka producer input full, dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("question_id", event.ID),
		)
	}
}

// Subscribe attaches to the local fan-out; remote envelopes arrive on the
// same channel once the consumer replays them.
func (b *Bus) Subscribe() port.Subscription {
	return b.local.Subscribe()
}

// Close stops the consumer loop and shuts the producer down.
func (b *Bus) Close() error {
	b.cancel()
	b.wg.Wait()

	if err := b.group.Close(); err != nil {
		b.logger.Warn("close kafka consumer group", zap.Error(err))
	}

	return b.producer.Close()
}

func (b *Bus) consumeLoop(ctx context.Context) {
	defer b.wg.Done()

	handler := &replayHandler{bus: b}
	for {
		if err := b.group.Consume(ctx, []string{b.topic}, handler); err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Warn("kafka consume error, retrying", zap.Error(err))
			time.Sleep(time.Second)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// replayHandler republishes consumed envelopes into the local bus.
type replayHandler struct {
	bus *Bus
}

func (h *replayHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *replayHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *replayHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if err := h.bus.handleMessage(session.Context(), msg); err != nil {
			h.bus.logger.Warn("failed to replay event envelope", zap.Error(err))
		}
		session.MarkMessage(msg, "")
	}
	return nil
}

func (b *Bus) handleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	if msg == nil {
		return fmt.Errorf("message is nil")
	}

	var envelope eventEnvelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		return fmt.Errorf("decode event envelope: %w", err)
	}

	// Local subscribers already saw self-origin events.
	if envelope.Origin == b.instance {
		return nil
	}

	b.local.Publish(ctx, envelope.Payload)
	return nil
}

var _ port.EventBus = (*Bus)(nil)
