package domain

import "time"

// AllocationJournal хранит историю размещений по заказам (read model).
type AllocationJournal interface {
	Append(record AllocationRecord) error
	// ListByOrder возвращает записи заказа в хронологическом порядке.
	ListByOrder(orderID string) ([]AllocationRecord, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// OutboxPurger удаляет доставленные события, обновлённые не позже before,
// не более limit за вызов. Возвращает число удалённых записей.
type OutboxPurger interface {
	PurgeSent(before time.Time, limit int) (int, error)
}

// AllocationAction — тип записи в журнале размещений.
type AllocationAction string

const (
	AllocationActionAllocated   AllocationAction = "allocated"
	AllocationActionDeallocated AllocationAction = "deallocated"
)

// AllocationRecord фиксирует, в какую партию попала (или откуда ушла) строка заказа.
type AllocationRecord struct {
	ID         string
	OrderID    string
	SKU        string
	Qty        int32
	BatchRef   string
	Action     AllocationAction
	OccurredAt time.Time
}

// Типы агрегатов и событий для outbox.
const (
	AggregateTypeBatch = "batch"

	EventTypeBatchCreated = "batch.created"
	EventTypeAllocated    = "allocation.allocated"
	EventTypeDeallocated  = "allocation.deallocated"
	EventTypeOutOfStock   = "allocation.out_of_stock"
)

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
