package kafka

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/stocks/internal/domain"
	"github.com/vladislavdragonenkov/stocks/internal/messaging"
)

func TestOutboxPublisher_Publish(t *testing.T) {
	t.Parallel()

	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var env messaging.Envelope
		if err := json.Unmarshal(val, &env); err != nil {
			return err
		}
		if env.EventType != domain.EventTypeAllocated || env.AggregateID != "batch-123" {
			return fmt.Errorf("unexpected envelope: %+v", env)
		}
		if string(env.Payload) != `{"order_id":"order-1"}` {
			return fmt.Errorf("unexpected payload: %s", env.Payload)
		}
		return nil
	})

	producer := NewProducerWithSyncProducer(mockProducer, log.WithField("component", "kafka-outbox-publisher-test"))
	publisher := NewOutboxPublisher(producer, TopicAllocationEvents)

	err := publisher.Publish(domain.OutboxMessage{
		ID:            "outbox-1",
		AggregateType: domain.AggregateTypeBatch,
		AggregateID:   "batch-123",
		EventType:     domain.EventTypeAllocated,
		Payload:       []byte(`{"order_id":"order-1"}`),
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOutboxPublisher_PublishProducerError(t *testing.T) {
	t.Parallel()

	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	producer := NewProducerWithSyncProducer(mockProducer, log.WithField("component", "kafka-outbox-publisher-test"))
	publisher := NewOutboxPublisher(producer, "")

	if publisher.topic != TopicAllocationEvents {
		t.Fatalf("expected default topic, got %s", publisher.topic)
	}

	err := publisher.Publish(domain.OutboxMessage{
		ID:            "outbox-2",
		AggregateType: domain.AggregateTypeBatch,
		AggregateID:   "batch-234",
		EventType:     domain.EventTypeDeallocated,
		Payload:       []byte(`{"order_id":"order-2"}`),
	})
	if err == nil {
		t.Fatal("expected publish error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOutboxPublisher_PublishNilProducer(t *testing.T) {
	t.Parallel()

	publisher := NewOutboxPublisher(nil, TopicAllocationEvents)
	if err := publisher.Publish(domain.OutboxMessage{ID: "outbox-3"}); err == nil {
		t.Fatal("expected error for nil producer")
	}
}
