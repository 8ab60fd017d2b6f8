// Package retention очищает доставленные события transactional outbox.
package retention

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/stocks/internal/domain"
	"github.com/vladislavdragonenkov/stocks/internal/metrics"
)

const (
	defaultInterval  = 10 * time.Minute
	defaultRetention = 24 * time.Hour
	defaultBatchSize = 500
)

// Options задаёт параметры воркера очистки.
type Options struct {
	Logger    *log.Entry
	Metrics   *metrics.OutboxMetrics
	Interval  time.Duration
	Retention time.Duration
	BatchSize int
}

// Option настраивает Worker.
type Option func(*Options)

// WithLogger задаёт logger для воркера.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithMetrics включает учёт прогонов очистки.
func WithMetrics(m *metrics.OutboxMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// WithInterval задаёт интервал между прогонами.
func WithInterval(interval time.Duration) Option {
	return func(opts *Options) {
		opts.Interval = interval
	}
}

// WithRetention задаёт, сколько хранятся доставленные события.
func WithRetention(retention time.Duration) Option {
	return func(opts *Options) {
		opts.Retention = retention
	}
}

// WithBatchSize задаёт размер одного удаления.
func WithBatchSize(batchSize int) Option {
	return func(opts *Options) {
		opts.BatchSize = batchSize
	}
}

// Worker периодически удаляет доставленные события старше retention.
// Pending и failed события не трогает.
type Worker struct {
	purger    domain.OutboxPurger
	logger    *log.Entry
	metrics   *metrics.OutboxMetrics
	interval  time.Duration
	retention time.Duration
	batchSize int
	now       func() time.Time
}

// NewWorker создаёт воркер очистки outbox.
func NewWorker(purger domain.OutboxPurger, options ...Option) *Worker {
	opts := Options{
		Interval:  defaultInterval,
		Retention: defaultRetention,
		BatchSize: defaultBatchSize,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "outbox-retention")
	}

	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.Retention <= 0 {
		opts.Retention = defaultRetention
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}

	return &Worker{
		purger:    purger,
		logger:    logger,
		metrics:   opts.Metrics,
		interval:  opts.Interval,
		retention: opts.Retention,
		batchSize: opts.BatchSize,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run запускает периодическую очистку до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	if w.purger == nil {
		w.logger.Warn("outbox retention worker is disabled: purger is nil")
		return
	}

	w.cleanup(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.cleanup(ctx)
		}
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	deleted, err := w.Purge(ctx, w.now().Add(-w.retention))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		w.metrics.RecordPurge("error", deleted)
		w.logger.WithError(err).Warn("outbox retention run failed")
		return
	}

	w.metrics.RecordPurge("ok", deleted)
	if deleted > 0 {
		w.logger.WithField("deleted", deleted).Info("outbox retention completed")
	}
}

// Purge удаляет все доставленные события, обновлённые не позже before,
// порциями batchSize.
func (w *Worker) Purge(ctx context.Context, before time.Time) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		deleted, err := w.purger.PurgeSent(before, w.batchSize)
		if err != nil {
			return total, err
		}
		total += deleted

		if deleted < w.batchSize {
			return total, nil
		}
	}
}
