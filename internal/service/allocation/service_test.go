package allocation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/stocks/internal/domain"
	"github.com/vladislavdragonenkov/stocks/internal/metrics"
	"github.com/vladislavdragonenkov/stocks/internal/storage/memory"
)

var (
	fixedNow = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	tomorrow = fixedNow.AddDate(0, 0, 1)
	later    = fixedNow.AddDate(0, 0, 10)
)

type fixture struct {
	svc     *Service
	batches domain.BatchRepository
	journal domain.AllocationJournal
	outbox  *memory.OutboxRepository
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()

	batches := memory.NewBatchRepository()
	journal := memory.NewAllocationJournal()
	outbox := memory.NewOutboxRepository()

	logger := log.New()
	logger.SetLevel(log.PanicLevel)

	base := []Option{
		WithLogger(logger.WithField("component", "allocation-test")),
		WithMetrics(metrics.NewAllocationMetricsWithRegisterer(prometheus.NewRegistry())),
		WithClock(func() time.Time { return fixedNow }),
		WithRetryConfig(RetryConfig{MaxAttempts: 3, InitialDelay: 0, MaxDelay: time.Millisecond, BackoffFactor: 2}),
	}

	return fixture{
		svc:     NewService(batches, journal, outbox, append(base, opts...)...),
		batches: batches,
		journal: journal,
		outbox:  outbox,
	}
}

func (f fixture) mustAddBatch(t *testing.T, ref, sku string, qty int32, eta *time.Time) {
	t.Helper()
	_, err := f.svc.AddBatch(context.Background(), ref, sku, qty, eta)
	require.NoError(t, err)
}

func TestService_AllocatePrefersWarehouseStock(t *testing.T) {
	f := newFixture(t)
	f.mustAddBatch(t, "shipment-batch", "RETRO-CLOCK", 100, &tomorrow)
	f.mustAddBatch(t, "in-stock-batch", "RETRO-CLOCK", 100, nil)

	ref, err := f.svc.Allocate(context.Background(), domain.OrderLine{OrderID: "oref", SKU: "RETRO-CLOCK", Qty: 10})
	require.NoError(t, err)
	assert.Equal(t, "in-stock-batch", ref)

	inStock, err := f.batches.Get("in-stock-batch")
	require.NoError(t, err)
	assert.EqualValues(t, 90, inStock.AvailableQuantity())
	assert.EqualValues(t, 1, inStock.Version())

	shipment, err := f.batches.Get("shipment-batch")
	require.NoError(t, err)
	assert.EqualValues(t, 100, shipment.AvailableQuantity())
}

func TestService_AllocatePrefersEarlierBatches(t *testing.T) {
	f := newFixture(t)
	f.mustAddBatch(t, "slow", "MINIMALIST-SPOON", 100, &later)
	f.mustAddBatch(t, "speedy", "MINIMALIST-SPOON", 100, &fixedNow)
	f.mustAddBatch(t, "normal", "MINIMALIST-SPOON", 100, &tomorrow)

	ref, err := f.svc.Allocate(context.Background(), domain.OrderLine{OrderID: "order1", SKU: "MINIMALIST-SPOON", Qty: 10})
	require.NoError(t, err)
	assert.Equal(t, "speedy", ref)
}

func TestService_AllocateOutOfStock(t *testing.T) {
	f := newFixture(t)
	f.mustAddBatch(t, "batch1", "SMALL-FORK", 10, &fixedNow)

	_, err := f.svc.Allocate(context.Background(), domain.OrderLine{OrderID: "order1", SKU: "SMALL-FORK", Qty: 10})
	require.NoError(t, err)

	_, err = f.svc.Allocate(context.Background(), domain.OrderLine{OrderID: "order2", SKU: "SMALL-FORK", Qty: 1})
	require.Error(t, err)

	var oos *domain.OutOfStockError
	require.True(t, errors.As(err, &oos))
	assert.Equal(t, "SMALL-FORK", oos.SKU)
	assert.Contains(t, err.Error(), "SMALL-FORK")

	batch, err := f.batches.Get("batch1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, batch.AvailableQuantity())

	events := eventTypes(f.outbox.AllPending())
	assert.Contains(t, events, domain.EventTypeOutOfStock)
}

func TestService_AllocateUnknownSKUIsOutOfStock(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Allocate(context.Background(), domain.OrderLine{OrderID: "o", SKU: "NOPE", Qty: 1})
	assert.True(t, domain.IsOutOfStock(err))
}

func TestService_AllocateSameLineTwiceReturnsHolder(t *testing.T) {
	f := newFixture(t)
	f.mustAddBatch(t, "b1", "LAMP", 10, nil)
	line := domain.OrderLine{OrderID: "o1", SKU: "LAMP", Qty: 3}

	first, err := f.svc.Allocate(context.Background(), line)
	require.NoError(t, err)
	second, err := f.svc.Allocate(context.Background(), line)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	batch, err := f.batches.Get("b1")
	require.NoError(t, err)
	assert.EqualValues(t, 7, batch.AvailableQuantity())
	assert.EqualValues(t, 1, batch.Version(), "duplicate allocation must not be persisted")

	records, err := f.svc.OrderAllocations(context.Background(), "o1")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestService_AllocateValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Allocate(context.Background(), domain.OrderLine{})
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))
	assert.ErrorIs(t, err, domain.ErrOrderIDRequired)
	assert.ErrorIs(t, err, domain.ErrSKURequired)
	assert.ErrorIs(t, err, domain.ErrQtyInvalid)
}

func TestService_Deallocate(t *testing.T) {
	f := newFixture(t)
	f.mustAddBatch(t, "b1", "LAMP", 10, nil)
	line := domain.OrderLine{OrderID: "o1", SKU: "LAMP", Qty: 4}

	_, err := f.svc.Allocate(context.Background(), line)
	require.NoError(t, err)

	ref, err := f.svc.Deallocate(context.Background(), line)
	require.NoError(t, err)
	assert.Equal(t, "b1", ref)

	batch, err := f.batches.Get("b1")
	require.NoError(t, err)
	assert.EqualValues(t, 10, batch.AvailableQuantity())

	_, err = f.svc.Deallocate(context.Background(), line)
	assert.ErrorIs(t, err, domain.ErrAllocationNotFound)

	records, err := f.svc.OrderAllocations(context.Background(), "o1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, domain.AllocationActionAllocated, records[0].Action)
	assert.Equal(t, domain.AllocationActionDeallocated, records[1].Action)
	assert.Equal(t, "b1", records[1].BatchRef)
}

func TestService_AddBatch(t *testing.T) {
	f := newFixture(t)

	batch, err := f.svc.AddBatch(context.Background(), "b1", "LAMP", 5, &tomorrow)
	require.NoError(t, err)
	assert.Equal(t, "b1", batch.Reference())

	_, err = f.svc.AddBatch(context.Background(), "b1", "LAMP", 5, nil)
	assert.ErrorIs(t, err, domain.ErrBatchAlreadyExists)

	_, err = f.svc.AddBatch(context.Background(), "", "LAMP", 0, nil)
	assert.True(t, domain.IsValidationError(err))

	pending := f.outbox.AllPending()
	require.Len(t, pending, 1)
	assert.Equal(t, domain.EventTypeBatchCreated, pending[0].EventType)
	assert.Equal(t, "b1", pending[0].AggregateID)

	var event BatchCreatedEvent
	require.NoError(t, json.Unmarshal(pending[0].Payload, &event))
	assert.Equal(t, "LAMP", event.SKU)
	assert.Equal(t, tomorrow.Format(ETALayout), event.ETA)
}

func TestService_AllocateEnqueuesEvent(t *testing.T) {
	f := newFixture(t)
	f.mustAddBatch(t, "b1", "LAMP", 10, nil)

	_, err := f.svc.Allocate(context.Background(), domain.OrderLine{OrderID: "o1", SKU: "LAMP", Qty: 2})
	require.NoError(t, err)

	pending := f.outbox.AllPending()
	require.Len(t, pending, 2)
	assert.Equal(t, domain.EventTypeAllocated, pending[1].EventType)

	var event AllocationEvent
	require.NoError(t, json.Unmarshal(pending[1].Payload, &event))
	assert.Equal(t, "o1", event.OrderID)
	assert.Equal(t, "b1", event.BatchRef)
	assert.EqualValues(t, 2, event.Qty)
	assert.True(t, event.OccurredAt.Equal(fixedNow))
}

func TestService_ListAndGetBatches(t *testing.T) {
	f := newFixture(t)
	f.mustAddBatch(t, "a-late", "LAMP", 10, &later)
	f.mustAddBatch(t, "b-stock", "LAMP", 10, nil)
	f.mustAddBatch(t, "c-soon", "LAMP", 10, &tomorrow)

	batches, err := f.svc.ListBatches(context.Background(), "LAMP")
	require.NoError(t, err)
	require.Len(t, batches, 3)
	assert.Equal(t, []string{"b-stock", "c-soon", "a-late"}, references(batches))

	_, err = f.svc.ListBatches(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrSKURequired)

	got, err := f.svc.GetBatch(context.Background(), "c-soon")
	require.NoError(t, err)
	assert.Equal(t, "LAMP", got.SKU())

	_, err = f.svc.GetBatch(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrBatchNotFound)
}

func TestService_RetriesOnVersionConflict(t *testing.T) {
	repo := &conflictingRepo{BatchRepository: memory.NewBatchRepository(), conflicts: 2}
	reg := prometheus.NewRegistry()
	svc := NewService(repo, nil, nil,
		WithMetrics(metrics.NewAllocationMetricsWithRegisterer(reg)),
		WithRetryConfig(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, BackoffFactor: 2}),
	)
	_, err := svc.AddBatch(context.Background(), "b1", "LAMP", 10, nil)
	require.NoError(t, err)

	ref, err := svc.Allocate(context.Background(), domain.OrderLine{OrderID: "o1", SKU: "LAMP", Qty: 1})
	require.NoError(t, err)
	assert.Equal(t, "b1", ref)
	assert.Equal(t, 3, repo.saves)
}

func TestService_GivesUpAfterMaxAttempts(t *testing.T) {
	repo := &conflictingRepo{BatchRepository: memory.NewBatchRepository(), conflicts: 10}
	svc := NewService(repo, nil, nil,
		WithRetryConfig(RetryConfig{MaxAttempts: 2, MaxDelay: time.Millisecond, BackoffFactor: 2}),
	)
	_, err := svc.AddBatch(context.Background(), "b1", "LAMP", 10, nil)
	require.NoError(t, err)

	_, err = svc.Allocate(context.Background(), domain.OrderLine{OrderID: "o1", SKU: "LAMP", Qty: 1})
	assert.ErrorIs(t, err, domain.ErrBatchVersionConflict)
	assert.Equal(t, 2, repo.saves)
}

func TestService_ConcurrentAllocationsNeverOversell(t *testing.T) {
	f := newFixture(t)
	f.mustAddBatch(t, "b1", "LAMP", 10, nil)
	f.mustAddBatch(t, "b2", "LAMP", 5, &tomorrow)

	const workers = 30
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		allocated int
		oos       int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			line := domain.OrderLine{OrderID: "order-" + string(rune('A'+i)), SKU: "LAMP", Qty: 1}
			_, err := f.svc.Allocate(context.Background(), line)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				allocated++
			case domain.IsOutOfStock(err):
				oos++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 15, allocated)
	assert.Equal(t, workers-15, oos)

	batches, err := f.svc.ListBatches(context.Background(), "LAMP")
	require.NoError(t, err)
	for _, b := range batches {
		assert.EqualValues(t, 0, b.AvailableQuantity(), b.Reference())
	}
	assert.Equal(t, 0, f.svc.locks.size())
}

func TestService_AllocateHonoursCanceledContext(t *testing.T) {
	f := newFixture(t)
	f.mustAddBatch(t, "b1", "LAMP", 10, nil)

	release, err := f.svc.locks.Acquire(context.Background(), "LAMP")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = f.svc.Allocate(ctx, domain.OrderLine{OrderID: "o1", SKU: "LAMP", Qty: 1})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestService_OrderAllocationsRequiresOrderID(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.OrderAllocations(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrOrderIDRequired)

	records, err := f.svc.OrderAllocations(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, records)
}

// conflictingRepo возвращает ErrBatchVersionConflict на первые conflicts вызовов Save.
type conflictingRepo struct {
	domain.BatchRepository
	mu        sync.Mutex
	conflicts int
	saves     int
}

func (r *conflictingRepo) Save(batch *domain.Batch) error {
	r.mu.Lock()
	r.saves++
	conflict := r.saves <= r.conflicts
	r.mu.Unlock()

	if conflict {
		return domain.ErrBatchVersionConflict
	}
	return r.BatchRepository.Save(batch)
}

func eventTypes(messages []domain.OutboxMessage) []string {
	out := make([]string, 0, len(messages))
	for _, msg := range messages {
		out = append(out, msg.EventType)
	}
	return out
}

func references(batches []*domain.Batch) []string {
	out := make([]string, 0, len(batches))
	for _, b := range batches {
		out = append(out, b.Reference())
	}
	return out
}
