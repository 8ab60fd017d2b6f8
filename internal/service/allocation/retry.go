package allocation

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/stocks/internal/domain"
)

// RetryConfig конфигурация повторов при конфликте версий партии.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig возвращает конфигурацию по умолчанию.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  20 * time.Millisecond,
		MaxDelay:      500 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

func (c RetryConfig) normalized() RetryConfig {
	def := DefaultRetryConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.InitialDelay < 0 {
		c.InitialDelay = 0
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = def.MaxDelay
	}
	if c.BackoffFactor < 1 {
		c.BackoffFactor = def.BackoffFactor
	}
	return c
}

// withRetry повторяет fn, пока она возвращает ErrBatchVersionConflict.
// Любая другая ошибка возвращается сразу.
func (s *Service) withRetry(ctx context.Context, operation string, fields log.Fields, fn func() error) error {
	var lastErr error
	delay := s.retry.InitialDelay

	for attempt := 1; attempt <= s.retry.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				s.logger.WithFields(fields).WithFields(log.Fields{
					"operation": operation,
					"attempt":   attempt,
				}).Info("operation succeeded after retry")
			}
			return nil
		}
		if !errors.Is(err, domain.ErrBatchVersionConflict) {
			return err
		}

		lastErr = err
		s.metrics.RecordVersionConflict()

		if attempt == s.retry.MaxAttempts {
			break
		}

		s.logger.WithFields(fields).WithFields(log.Fields{
			"operation": operation,
			"attempt":   attempt,
			"delay":     delay,
		}).Warn("batch version conflict, retrying")

		if delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		// Экспоненциальная задержка с ограничением
		delay = time.Duration(float64(delay) * s.retry.BackoffFactor)
		if delay > s.retry.MaxDelay {
			delay = s.retry.MaxDelay
		}
	}

	s.logger.WithFields(fields).WithFields(log.Fields{
		"operation":    operation,
		"max_attempts": s.retry.MaxAttempts,
	}).Error("operation failed after all retry attempts")
	return lastErr
}
