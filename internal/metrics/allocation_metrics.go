package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты операций для label "result".
const (
	ResultAllocated  = "allocated"
	ResultDuplicate  = "duplicate"
	ResultOutOfStock = "out_of_stock"
	ResultNotFound   = "not_found"
	ResultInvalid    = "invalid"
	ResultError      = "error"
	ResultOK         = "ok"
)

// AllocationMetrics содержит метрики сервиса размещения.
// Все методы безопасны для nil-получателя.
type AllocationMetrics struct {
	allocations    *prometheus.CounterVec
	deallocations  *prometheus.CounterVec
	batchesCreated prometheus.Counter
	conflicts      prometheus.Counter
	outboxEvents   prometheus.Counter

	duration *prometheus.HistogramVec
}

// NewAllocationMetrics регистрирует метрики в prometheus.DefaultRegisterer.
func NewAllocationMetrics() *AllocationMetrics {
	return NewAllocationMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewAllocationMetricsWithRegisterer регистрирует метрики в переданном registerer.
func NewAllocationMetricsWithRegisterer(registerer prometheus.Registerer) *AllocationMetrics {
	return &AllocationMetrics{
		allocations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "stocks_allocations_total",
			Help: "Total number of allocation requests grouped by result",
		}, []string{"result"}),
		deallocations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "stocks_deallocations_total",
			Help: "Total number of deallocation requests grouped by result",
		}, []string{"result"}),
		batchesCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "stocks_batches_created_total",
			Help: "Total number of batches added",
		}),
		conflicts: registerCounter(registerer, prometheus.CounterOpts{
			Name: "stocks_batch_version_conflicts_total",
			Help: "Total number of optimistic locking conflicts while saving batches",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "stocks_outbox_events_enqueued_total",
			Help: "Total number of events written to the outbox",
		}),
		duration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "stocks_operation_duration_seconds",
			Help:    "Duration of allocation service operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"operation"}),
	}
}

// RecordAllocation увеличивает счётчик размещений с указанным результатом.
func (m *AllocationMetrics) RecordAllocation(result string) {
	if m == nil {
		return
	}
	m.allocations.WithLabelValues(result).Inc()
}

// RecordDeallocation увеличивает счётчик снятий с указанным результатом.
func (m *AllocationMetrics) RecordDeallocation(result string) {
	if m == nil {
		return
	}
	m.deallocations.WithLabelValues(result).Inc()
}

func (m *AllocationMetrics) RecordBatchCreated() {
	if m == nil {
		return
	}
	m.batchesCreated.Inc()
}

func (m *AllocationMetrics) RecordVersionConflict() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}

func (m *AllocationMetrics) RecordOutboxEvent() {
	if m == nil {
		return
	}
	m.outboxEvents.Inc()
}

// ObserveDuration записывает длительность операции.
func (m *AllocationMetrics) ObserveDuration(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(operation).Observe(duration.Seconds())
}
