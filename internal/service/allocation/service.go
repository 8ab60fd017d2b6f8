package allocation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/stocks/internal/domain"
	"github.com/vladislavdragonenkov/stocks/internal/metrics"
)

// Service размещает строки заказов по партиям и фиксирует результат в
// хранилище, журнале размещений и outbox.
//
// Все изменения партий одного SKU выполняются под блокировкой SKU;
// конфликты версий с другими процессами повторяются по RetryConfig.
type Service struct {
	batches domain.BatchRepository
	journal domain.AllocationJournal
	outbox  domain.OutboxRepository

	locks   *skuLocks
	retry   RetryConfig
	logger  *log.Entry
	metrics *metrics.AllocationMetrics
	now     func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithLogger задаёт logger сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics задаёт prometheus-метрики сервиса.
func WithMetrics(m *metrics.AllocationMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithRetryConfig задаёт политику повторов при конфликте версий.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(s *Service) {
		s.retry = cfg.normalized()
	}
}

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService создаёт сервис размещения. journal и outbox могут быть nil.
func NewService(batches domain.BatchRepository, journal domain.AllocationJournal, outbox domain.OutboxRepository, options ...Option) *Service {
	s := &Service{
		batches: batches,
		journal: journal,
		outbox:  outbox,
		locks:   newSKULocks(),
		retry:   DefaultRetryConfig(),
		logger:  log.WithField("component", "allocation-service"),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// AddBatch добавляет новую партию без размещений.
func (s *Service) AddBatch(ctx context.Context, reference, sku string, qty int32, eta *time.Time) (*domain.Batch, error) {
	defer s.observe("add_batch", s.now())

	batch := domain.NewBatch(reference, sku, qty, eta)
	if errs := batch.Validate(); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	release, err := s.locks.Acquire(ctx, sku)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.batches.Add(batch); err != nil {
		return nil, fmt.Errorf("add batch %s: %w", reference, err)
	}

	s.metrics.RecordBatchCreated()
	s.logger.WithFields(log.Fields{
		"batch_ref": reference,
		"sku":       sku,
		"qty":       qty,
		"eta":       FormatETA(eta),
	}).Info("batch added")

	s.enqueue(domain.EventTypeBatchCreated, reference, BatchCreatedEvent{
		Reference: reference,
		SKU:       sku,
		Qty:       qty,
		ETA:       FormatETA(eta),
		CreatedAt: s.now(),
	})

	return batch, nil
}

// Allocate размещает строку заказа и возвращает reference выбранной партии.
//
// Если строка уже размещена в одной из партий SKU, возвращается reference
// этой партии без изменений. При отсутствии подходящей партии возвращается
// *domain.OutOfStockError.
func (s *Service) Allocate(ctx context.Context, line domain.OrderLine) (string, error) {
	defer s.observe("allocate", s.now())

	if errs := line.Validate(); len(errs) > 0 {
		s.metrics.RecordAllocation(metrics.ResultInvalid)
		return "", errors.Join(errs...)
	}

	release, err := s.locks.Acquire(ctx, line.SKU)
	if err != nil {
		s.metrics.RecordAllocation(metrics.ResultError)
		return "", err
	}
	defer release()

	fields := lineFields(line)

	var (
		reference string
		duplicate bool
	)
	err = s.withRetry(ctx, "allocate", fields, func() error {
		batches, err := s.batches.ListBySKU(line.SKU)
		if err != nil {
			return fmt.Errorf("list batches for sku %s: %w", line.SKU, err)
		}

		if holder := findHolder(batches, line); holder != nil {
			reference, duplicate = holder.Reference(), true
			return nil
		}

		reference, err = domain.Allocate(line, batches)
		if err != nil {
			return err
		}

		chosen := findByReference(batches, reference)
		if err := s.batches.Save(chosen); err != nil {
			return fmt.Errorf("save batch %s: %w", reference, err)
		}
		return nil
	})

	switch {
	case err == nil && duplicate:
		s.metrics.RecordAllocation(metrics.ResultDuplicate)
		s.logger.WithFields(fields).WithField("batch_ref", reference).Debug("line already allocated")
		return reference, nil
	case err == nil:
	case domain.IsOutOfStock(err):
		s.metrics.RecordAllocation(metrics.ResultOutOfStock)
		s.logger.WithFields(fields).Info("out of stock")
		s.enqueue(domain.EventTypeOutOfStock, line.SKU, OutOfStockEvent{
			OrderID:    line.OrderID,
			SKU:        line.SKU,
			Qty:        line.Qty,
			OccurredAt: s.now(),
		})
		return "", err
	default:
		s.metrics.RecordAllocation(metrics.ResultError)
		s.logger.WithFields(fields).WithError(err).Error("allocate failed")
		return "", err
	}

	s.metrics.RecordAllocation(metrics.ResultAllocated)
	s.logger.WithFields(fields).WithField("batch_ref", reference).Info("line allocated")
	s.record(line, reference, domain.AllocationActionAllocated, domain.EventTypeAllocated)

	return reference, nil
}

// Deallocate снимает строку заказа с партии, в которой она размещена, и
// возвращает reference этой партии или domain.ErrAllocationNotFound.
func (s *Service) Deallocate(ctx context.Context, line domain.OrderLine) (string, error) {
	defer s.observe("deallocate", s.now())

	if errs := line.Validate(); len(errs) > 0 {
		s.metrics.RecordDeallocation(metrics.ResultInvalid)
		return "", errors.Join(errs...)
	}

	release, err := s.locks.Acquire(ctx, line.SKU)
	if err != nil {
		s.metrics.RecordDeallocation(metrics.ResultError)
		return "", err
	}
	defer release()

	fields := lineFields(line)

	var reference string
	err = s.withRetry(ctx, "deallocate", fields, func() error {
		batches, err := s.batches.ListBySKU(line.SKU)
		if err != nil {
			return fmt.Errorf("list batches for sku %s: %w", line.SKU, err)
		}

		holder := findHolder(batches, line)
		if holder == nil {
			return domain.ErrAllocationNotFound
		}

		holder.Deallocate(line)
		reference = holder.Reference()
		if err := s.batches.Save(holder); err != nil {
			return fmt.Errorf("save batch %s: %w", reference, err)
		}
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, domain.ErrAllocationNotFound):
		s.metrics.RecordDeallocation(metrics.ResultNotFound)
		return "", err
	default:
		s.metrics.RecordDeallocation(metrics.ResultError)
		s.logger.WithFields(fields).WithError(err).Error("deallocate failed")
		return "", err
	}

	s.metrics.RecordDeallocation(metrics.ResultOK)
	s.logger.WithFields(fields).WithField("batch_ref", reference).Info("line deallocated")
	s.record(line, reference, domain.AllocationActionDeallocated, domain.EventTypeDeallocated)

	return reference, nil
}

// GetBatch возвращает партию по reference.
func (s *Service) GetBatch(ctx context.Context, reference string) (*domain.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if reference == "" {
		return nil, domain.ErrBatchReferenceRequired
	}
	return s.batches.Get(reference)
}

// ListBatches возвращает партии SKU в порядке предпочтения при размещении.
func (s *Service) ListBatches(ctx context.Context, sku string) ([]*domain.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if sku == "" {
		return nil, domain.ErrSKURequired
	}

	batches, err := s.batches.ListBySKU(sku)
	if err != nil {
		return nil, fmt.Errorf("list batches for sku %s: %w", sku, err)
	}
	domain.SortBatches(batches)
	return batches, nil
}

// OrderAllocations возвращает историю размещений заказа.
func (s *Service) OrderAllocations(ctx context.Context, orderID string) ([]domain.AllocationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if orderID == "" {
		return nil, domain.ErrOrderIDRequired
	}
	if s.journal == nil {
		return nil, nil
	}
	return s.journal.ListByOrder(orderID)
}

// record пишет журнал и outbox после успешного сохранения партии.
// Ошибки журналируются: партия уже сохранена, откатывать её нельзя.
func (s *Service) record(line domain.OrderLine, reference string, action domain.AllocationAction, eventType string) {
	occurredAt := s.now()

	if s.journal != nil {
		if err := s.journal.Append(domain.AllocationRecord{
			OrderID:    line.OrderID,
			SKU:        line.SKU,
			Qty:        line.Qty,
			BatchRef:   reference,
			Action:     action,
			OccurredAt: occurredAt,
		}); err != nil {
			s.logger.WithFields(lineFields(line)).WithError(err).Error("failed to append allocation journal")
		}
	}

	s.enqueue(eventType, reference, AllocationEvent{
		OrderID:    line.OrderID,
		SKU:        line.SKU,
		Qty:        line.Qty,
		BatchRef:   reference,
		OccurredAt: occurredAt,
	})
}

func (s *Service) enqueue(eventType, aggregateID string, event any) {
	if s.outbox == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.WithError(err).WithField("event_type", eventType).Error("failed to marshal outbox event")
		return
	}

	if _, err := s.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: domain.AggregateTypeBatch,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
	}); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"event_type":   eventType,
			"aggregate_id": aggregateID,
		}).Error("failed to enqueue outbox event")
		return
	}
	s.metrics.RecordOutboxEvent()
}

func (s *Service) observe(operation string, started time.Time) {
	s.metrics.ObserveDuration(operation, s.now().Sub(started))
}

func findHolder(batches []*domain.Batch, line domain.OrderLine) *domain.Batch {
	for _, b := range batches {
		if b != nil && b.IsAllocated(line) {
			return b
		}
	}
	return nil
}

func findByReference(batches []*domain.Batch, reference string) *domain.Batch {
	for _, b := range batches {
		if b != nil && b.Reference() == reference {
			return b
		}
	}
	return nil
}

func lineFields(line domain.OrderLine) log.Fields {
	return log.Fields{
		"order_id": line.OrderID,
		"sku":      line.SKU,
		"qty":      line.Qty,
	}
}
