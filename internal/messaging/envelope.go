// Package messaging содержит общий формат событий, публикуемых во внешние шины.
package messaging

import (
	"encoding/json"
	"time"

	"github.com/vladislavdragonenkov/stocks/internal/domain"
)

// Envelope — формат outbox-события на проводе (Kafka, Redis).
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// NewEnvelope оборачивает outbox-сообщение. Payload, не являющийся JSON,
// передаётся как JSON-строка.
func NewEnvelope(msg domain.OutboxMessage, publishedAt time.Time) Envelope {
	payload := json.RawMessage(msg.Payload)
	switch {
	case len(msg.Payload) == 0:
		payload = json.RawMessage("null")
	case !json.Valid(msg.Payload):
		quoted, _ := json.Marshal(string(msg.Payload))
		payload = quoted
	}

	return Envelope{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       payload,
		PublishedAt:   publishedAt.UTC(),
	}
}

// Key возвращает ключ партиционирования: aggregate id, иначе id сообщения.
func (e Envelope) Key() string {
	if e.AggregateID != "" {
		return e.AggregateID
	}
	return e.ID
}
