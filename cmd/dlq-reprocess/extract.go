package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/stocks/internal/domain"
	"github.com/vladislavdragonenkov/stocks/internal/messaging"
	"github.com/vladislavdragonenkov/stocks/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/stocks/internal/service/outbox"
)

const headerReplayedFrom = "x-replayed-from"

type dlqSource string

const (
	sourceConsumer dlqSource = "consumer"
	sourceOutbox   dlqSource = "outbox"
)

var errUnknownFormat = errors.New("unknown dlq message format")

type replayMessage struct {
	source    dlqSource
	topic     string
	key       string
	value     []byte
	eventType string
}

// extractReplayMessage восстанавливает исходное сообщение из записи DLQ.
// Команды возвращаются в свой топик (заголовок x-original-topic, затем поле
// original_topic), события outbox (payload — outbox.DeadEvent)
// переупаковываются в свежий envelope и уходят в eventsTopic.
func extractReplayMessage(msg *sarama.ConsumerMessage, eventsTopic string, now time.Time) (replayMessage, error) {
	if msg == nil || len(msg.Value) == 0 {
		return replayMessage{}, errUnknownFormat
	}

	var record kafka.DeadLetter
	if err := json.Unmarshal(msg.Value, &record); err == nil && record.OriginalValue != "" {
		topic := firstNonEmpty(headerValue(msg, kafka.HeaderOriginalTopic), record.OriginalTopic, eventsTopic)
		return replayMessage{
			source: sourceConsumer,
			topic:  topic,
			key:    record.OriginalKey,
			value:  []byte(record.OriginalValue),
		}, nil
	}

	var envelope messaging.Envelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil || len(envelope.Payload) == 0 {
		return replayMessage{}, errUnknownFormat
	}

	var dead outbox.DeadEvent
	if err := json.Unmarshal(envelope.Payload, &dead); err != nil {
		return replayMessage{}, fmt.Errorf("decode outbox dlq payload: %w", err)
	}
	if len(dead.Payload) == 0 || string(dead.Payload) == "null" {
		return replayMessage{}, errors.New("outbox dlq payload does not contain original event payload")
	}

	original := messaging.NewEnvelope(domain.OutboxMessage{
		ID:            firstNonEmpty(dead.OutboxID, envelope.ID),
		AggregateType: firstNonEmpty(dead.AggregateType, envelope.AggregateType),
		AggregateID:   firstNonEmpty(dead.AggregateID, envelope.AggregateID),
		EventType:     firstNonEmpty(dead.EventType, envelope.EventType),
		Payload:       dead.Payload,
	}, now)

	encoded, err := json.Marshal(original)
	if err != nil {
		return replayMessage{}, fmt.Errorf("encode replay envelope: %w", err)
	}

	return replayMessage{
		source:    sourceOutbox,
		topic:     eventsTopic,
		key:       original.Key(),
		value:     encoded,
		eventType: original.EventType,
	}, nil
}

// producerMessage собирает сообщение для переотправки. Счётчик ретраев
// не переносится: команда начинает обработку заново.
func (m replayMessage) producerMessage(origin *sarama.ConsumerMessage, now time.Time) *sarama.ProducerMessage {
	headers := []sarama.RecordHeader{{
		Key:   []byte(headerReplayedFrom),
		Value: []byte(fmt.Sprintf("%s/%d/%d", origin.Topic, origin.Partition, origin.Offset)),
	}}
	if m.eventType != "" {
		headers = append(headers, sarama.RecordHeader{Key: []byte(kafka.HeaderEventType), Value: []byte(m.eventType)})
	}

	return &sarama.ProducerMessage{
		Topic:     m.topic,
		Key:       sarama.StringEncoder(m.key),
		Value:     sarama.ByteEncoder(m.value),
		Headers:   headers,
		Timestamp: now,
	}
}

func headerValue(msg *sarama.ConsumerMessage, key string) string {
	for _, h := range msg.Headers {
		if h != nil && string(h.Key) == key {
			return strings.TrimSpace(string(h.Value))
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
