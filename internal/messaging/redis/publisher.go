// Package redis публикует события outbox в Redis Pub/Sub.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/stocks/internal/domain"
	"github.com/vladislavdragonenkov/stocks/internal/messaging"
)

const (
	// DefaultChannel — канал событий размещения по умолчанию.
	DefaultChannel = "stocks:allocation:events"

	publishTimeout = 3 * time.Second
)

type publisherCmdable interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
	Close() error
}

// EventPublisher реализует domain.OutboxPublisher поверх PUBLISH.
type EventPublisher struct {
	client  publisherCmdable
	channel string
	logger  *log.Entry
}

// NewEventPublisher подключается к Redis по адресу addr и проверяет соединение.
func NewEventPublisher(ctx context.Context, addr, channel string, logger *log.Entry) (*EventPublisher, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  publishTimeout,
		WriteTimeout: publishTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return newEventPublisher(client, channel, logger), nil
}

func newEventPublisher(client publisherCmdable, channel string, logger *log.Entry) *EventPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = log.WithField("component", "redis-publisher")
	}
	return &EventPublisher{client: client, channel: channel, logger: logger}
}

// Publish отправляет envelope события в канал. Отсутствие подписчиков не ошибка.
func (p *EventPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.client == nil {
		return errors.New("redis event publisher is not initialized")
	}

	data, err := json.Marshal(messaging.NewEnvelope(event, time.Now()))
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	receivers, err := p.client.Publish(ctx, p.channel, data).Result()
	if err != nil {
		return fmt.Errorf("publish to redis channel %s: %w", p.channel, err)
	}

	p.logger.WithFields(log.Fields{
		"channel":    p.channel,
		"outbox_id":  event.ID,
		"event_type": event.EventType,
		"receivers":  receivers,
	}).Debug("event published to redis")
	return nil
}

// Ping проверяет доступность Redis (для readiness).
func (p *EventPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close закрывает соединение с Redis.
func (p *EventPublisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}

var _ domain.OutboxPublisher = (*EventPublisher)(nil)
