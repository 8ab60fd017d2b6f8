package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/stocks/internal/domain"
)

// batchRepositoryInMemory — in-memory реализация BatchRepository.
// Хранит снимки состояния, поэтому вызывающие никогда не делят один *domain.Batch.
type batchRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.BatchState
}

// NewBatchRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewBatchRepository() domain.BatchRepository {
	return &batchRepositoryInMemory{
		items: make(map[string]domain.BatchState),
	}
}

// Add сохраняет новую партию, если reference ещё не занят.
func (r *batchRepositoryInMemory) Add(batch *domain.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[batch.Reference()]; exists {
		return domain.ErrBatchAlreadyExists
	}
	state := batch.State()
	state.Version = 0
	r.items[state.Reference] = state
	return nil
}

// Get возвращает копию партии или ErrBatchNotFound.
func (r *batchRepositoryInMemory) Get(reference string) (*domain.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.items[reference]
	if !ok {
		return nil, domain.ErrBatchNotFound
	}
	return domain.RestoreBatch(state), nil
}

// ListBySKU возвращает копии партий SKU, упорядоченные по reference.
func (r *batchRepositoryInMemory) ListBySKU(sku string) ([]*domain.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Batch, 0)
	for _, state := range r.items {
		if state.SKU != sku {
			continue
		}
		result = append(result, domain.RestoreBatch(state))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Reference() < result[j].Reference()
	})

	return result, nil
}

// Save перезаписывает размещения партии, проверяя версию (optimistic locking).
func (r *batchRepositoryInMemory) Save(batch *domain.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[batch.Reference()]
	if !ok {
		return domain.ErrBatchNotFound
	}
	if current.Version != batch.Version() {
		return domain.ErrBatchVersionConflict
	}

	state := batch.State()
	// Инкрементируем версию перед сохранением.
	state.Version++
	r.items[state.Reference] = state
	return nil
}

var _ domain.BatchRepository = (*batchRepositoryInMemory)(nil)
