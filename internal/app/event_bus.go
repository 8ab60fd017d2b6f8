package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/stocks/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/stocks/internal/health"
	"github.com/vladislavdragonenkov/stocks/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/stocks/internal/messaging/redis"
)

// eventBus — выбранный транспорт событий outbox.
type eventBus struct {
	publisher    domain.OutboxPublisher
	dlqPublisher domain.OutboxPublisher
	producer     *kafka.Producer
	checker      healthcheck.Checker
	closeFn      func() error
}

func initEventBus(ctx context.Context, cfg Config, logger *log.Entry) (*eventBus, error) {
	switch cfg.EventBus {
	case "", EventBusNone:
		logger.Info("event bus disabled, outbox events are only logged")
		return &eventBus{publisher: newLogPublisher(logger.WithField("layer", "outbox-log"))}, nil
	case EventBusKafka:
		producer, err := kafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			return nil, fmt.Errorf("init kafka producer: %w", err)
		}
		logger.WithField("brokers", cfg.KafkaBrokers).Info("kafka producer initialized")

		return &eventBus{
			publisher:    kafka.NewOutboxPublisher(producer, cfg.KafkaEventsTopic),
			dlqPublisher: kafka.NewOutboxPublisher(producer, cfg.KafkaDLQTopic),
			producer:     producer,
			closeFn:      producer.Close,
		}, nil
	case EventBusRedis:
		publisher, err := redis.NewEventPublisher(ctx, cfg.RedisAddr, cfg.RedisChannel, logger.WithField("layer", "redis"))
		if err != nil {
			return nil, fmt.Errorf("init redis publisher: %w", err)
		}
		logger.WithField("addr", cfg.RedisAddr).Info("redis publisher initialized")

		return &eventBus{
			publisher: publisher,
			checker:   healthcheck.NewPingChecker("redis", publisher),
			closeFn:   publisher.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported event bus %q", cfg.EventBus)
	}
}

func (b *eventBus) close(logger *log.Entry) {
	if b == nil || b.closeFn == nil {
		return
	}
	if err := b.closeFn(); err != nil {
		logger.WithError(err).Warn("failed to close event bus")
		return
	}
	logger.Info("event bus closed")
}

// logPublisher подтверждает события без внешнего брокера.
type logPublisher struct {
	logger *log.Entry
}

func newLogPublisher(logger *log.Entry) *logPublisher {
	return &logPublisher{logger: logger}
}

func (p *logPublisher) Publish(event domain.OutboxMessage) error {
	p.logger.WithFields(log.Fields{
		"outbox_id":    event.ID,
		"event_type":   event.EventType,
		"aggregate_id": event.AggregateID,
	}).Debug("outbox event")
	return nil
}
