package kafka

import (
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/stocks/internal/domain"
	"github.com/vladislavdragonenkov/stocks/internal/messaging"
)

// OutboxTopicPublisher публикует outbox-сообщения в заданный Kafka topic.
type OutboxTopicPublisher struct {
	producer *Producer
	topic    string
}

// NewOutboxPublisher создаёт Kafka-паблишер для transactional outbox.
func NewOutboxPublisher(producer *Producer, topic string) *OutboxTopicPublisher {
	if topic == "" {
		topic = TopicAllocationEvents
	}
	return &OutboxTopicPublisher{
		producer: producer,
		topic:    topic,
	}
}

// Publish отправляет событие с ключом aggregate id, чтобы события одной
// партии попадали в одну partition и сохраняли порядок.
func (p *OutboxTopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}

	return p.producer.PublishEnvelope(p.topic, messaging.NewEnvelope(event, time.Now()))
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
