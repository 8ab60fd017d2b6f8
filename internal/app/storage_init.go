package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/stocks/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/stocks/internal/health"
	"github.com/vladislavdragonenkov/stocks/internal/storage/memory"
	"github.com/vladislavdragonenkov/stocks/internal/storage/postgres"
)

type runtimeDependencies struct {
	batches        domain.BatchRepository
	journal        domain.AllocationJournal
	outbox         domain.OutboxRepository
	storageChecker healthcheck.Checker
	closeFn        func() error
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	switch cfg.StorageDriver {
	case "", StorageDriverMemory:
		logger.Info("using in-memory storage")
		return &runtimeDependencies{
			batches: memory.NewBatchRepository(),
			journal: memory.NewAllocationJournal(),
			outbox:  memory.NewOutboxRepository(),
		}, nil
	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres dsn is required for storage driver %q", cfg.StorageDriver)
		}

		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}

		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("migrate postgres schema: %w", err)
			}
			logger.Info("postgres schema is up to date")
		}

		logger.Info("using postgres storage")
		return &runtimeDependencies{
			batches:        postgres.NewBatchRepository(store),
			journal:        postgres.NewAllocationJournal(store),
			outbox:         postgres.NewOutboxRepository(store),
			storageChecker: healthcheck.NewPingChecker("postgres", store),
			closeFn:        store.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func (d *runtimeDependencies) close(logger *log.Entry) {
	if d == nil || d.closeFn == nil {
		return
	}
	if err := d.closeFn(); err != nil {
		logger.WithError(err).Warn("failed to close storage")
	}
}
