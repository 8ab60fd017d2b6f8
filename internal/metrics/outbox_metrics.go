package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics описывает состояние доставки событий из transactional outbox.
type OutboxMetrics struct {
	publishAttempts *prometheus.CounterVec
	pending         prometheus.Gauge
	oldestAge       prometheus.Gauge
	purgeRuns       *prometheus.CounterVec
	purged          prometheus.Counter
}

// NewOutboxMetrics регистрирует outbox-метрики в переданном registerer (nil — default).
func NewOutboxMetrics(registerer prometheus.Registerer) *OutboxMetrics {
	return &OutboxMetrics{
		publishAttempts: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "stocks_outbox_publish_attempts_total",
			Help: "Total number of outbox publish attempts grouped by result.",
		}, []string{"result"}),
		pending: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "stocks_outbox_pending_records",
			Help: "Current number of pending records in transactional outbox.",
		}),
		oldestAge: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "stocks_outbox_oldest_pending_age_seconds",
			Help: "Age in seconds of the oldest pending outbox record.",
		}),
		purgeRuns: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "stocks_outbox_purge_runs_total",
			Help: "Total number of outbox retention runs grouped by result.",
		}, []string{"result"}),
		purged: registerCounter(registerer, prometheus.CounterOpts{
			Name: "stocks_outbox_purged_total",
			Help: "Total number of delivered outbox records removed by retention.",
		}),
	}
}

// RecordPublish увеличивает счётчик попыток публикации (sent, retry_error, failed, dlq_failed).
func (m *OutboxMetrics) RecordPublish(result string) {
	if m == nil {
		return
	}
	m.publishAttempts.WithLabelValues(result).Inc()
}

// SetBacklog обновляет gauges backlog по количеству и возрасту старейшего сообщения.
func (m *OutboxMetrics) SetBacklog(pending int, oldestAge time.Duration) {
	if m == nil {
		return
	}
	m.pending.Set(float64(pending))
	if oldestAge < 0 {
		oldestAge = 0
	}
	m.oldestAge.Set(oldestAge.Seconds())
}

// RecordPurge учитывает один прогон очистки outbox (ok, error) и число удалённых записей.
func (m *OutboxMetrics) RecordPurge(result string, deleted int) {
	if m == nil {
		return
	}
	m.purgeRuns.WithLabelValues(result).Inc()
	if deleted > 0 {
		m.purged.Add(float64(deleted))
	}
}
