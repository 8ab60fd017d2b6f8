package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/stocks/internal/domain"
)

// allocationJournalInMemory хранит историю размещений в памяти (для разработки/тестов).
type allocationJournalInMemory struct {
	mu      sync.RWMutex
	records map[string][]domain.AllocationRecord
}

// NewAllocationJournal создаёт in-memory реализацию AllocationJournal.
func NewAllocationJournal() domain.AllocationJournal {
	return &allocationJournalInMemory{records: make(map[string][]domain.AllocationRecord)}
}

// Append добавляет запись в журнал заказа.
func (j *allocationJournalInMemory) Append(record domain.AllocationRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now().UTC()
	}

	records := append(j.records[record.OrderID], record)
	sort.SliceStable(records, func(a, b int) bool {
		return records[a].OccurredAt.Before(records[b].OccurredAt)
	})
	j.records[record.OrderID] = records

	return nil
}

// ListByOrder возвращает записи заказа в хронологическом порядке.
func (j *allocationJournalInMemory) ListByOrder(orderID string) ([]domain.AllocationRecord, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	records := j.records[orderID]
	result := make([]domain.AllocationRecord, len(records))
	copy(result, records)
	return result, nil
}

var _ domain.AllocationJournal = (*allocationJournalInMemory)(nil)
