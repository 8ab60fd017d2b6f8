package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	stocksv1 "github.com/vladislavdragonenkov/stocks/proto/stocks/v1"
)

// runner гоняет сценарии размещения по одному SKU, уникальному для прогона,
// чтобы после нагрузки можно было сверить остатки.
type runner struct {
	cfg     config
	clients []stocksv1.AllocationServiceClient
	col     *collector
	runID   string
	sku     string

	netAllocated atomic.Int64
}

func newRunner(cfg config, clients []stocksv1.AllocationServiceClient, runID string) (*runner, error) {
	if len(clients) == 0 {
		return nil, errors.New("at least one client is required")
	}
	return &runner{
		cfg:     cfg,
		clients: clients,
		col:     newCollector(codes.FailedPrecondition),
		runID:   runID,
		sku:     fmt.Sprintf("%s-%s", cfg.skuPrefix, runID),
	}, nil
}

func (r *runner) run(ctx context.Context) (report, error) {
	if err := r.seed(ctx); err != nil {
		return report{}, err
	}

	startedAt := time.Now()
	jobs := make(chan int, r.cfg.concurrency*2)

	var wg sync.WaitGroup
	for workerID := 0; workerID < r.cfg.concurrency; workerID++ {
		wg.Add(1)
		go func(client stocksv1.AllocationServiceClient) {
			defer wg.Done()
			for index := range jobs {
				r.runScenario(ctx, client, index)
			}
		}(r.clients[workerID%len(r.clients)])
	}

	dispatchJobs(ctx, jobs, r.cfg)
	wg.Wait()

	result := r.col.buildReport(startedAt, time.Since(startedAt))
	if r.cfg.verify {
		check, err := r.verify(ctx)
		if err != nil {
			return result, err
		}
		result.Stock = &check
	}
	return result, nil
}

func (r *runner) seed(ctx context.Context) error {
	for i := 0; i < r.cfg.batches; i++ {
		_, err := r.call(ctx, "AddBatch", func(ctx context.Context) error {
			_, err := r.clients[0].AddBatch(ctx, &stocksv1.AddBatchRequest{
				Reference: fmt.Sprintf("lt-%s-b%d", r.runID, i),
				Sku:       r.sku,
				Qty:       r.cfg.batchQty,
			})
			return err
		})
		if err != nil {
			return fmt.Errorf("seed batch %d: %w", i, err)
		}
	}
	return nil
}

func (r *runner) runScenario(ctx context.Context, client stocksv1.AllocationServiceClient, index int) {
	start := time.Now()
	code := codes.OK
	defer func() { r.col.record(scenarioMethod, time.Since(start), code) }()

	orderID := fmt.Sprintf("lt-%s-o%d", r.runID, index)

	code, err := r.call(ctx, "Allocate", func(ctx context.Context) error {
		_, err := client.Allocate(ctx, &stocksv1.AllocateRequest{OrderId: orderID, Sku: r.sku, Qty: r.cfg.qty})
		return err
	})
	if err != nil {
		return
	}
	r.netAllocated.Add(int64(r.cfg.qty))

	if r.cfg.mode != modeAllocateDeallocate && !shouldDeallocate(index, r.cfg.deallocateRate) {
		return
	}

	code, err = r.call(ctx, "Deallocate", func(ctx context.Context) error {
		_, err := client.Deallocate(ctx, &stocksv1.DeallocateRequest{OrderId: orderID, Sku: r.sku, Qty: r.cfg.qty})
		return err
	})
	if err == nil {
		r.netAllocated.Add(-int64(r.cfg.qty))
	}
}

// call выполняет RPC с таймаутом и записывает метрику метода.
func (r *runner) call(ctx context.Context, method string, fn func(ctx context.Context) error) (codes.Code, error) {
	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.timeout)
	defer cancel()

	err := fn(callCtx)
	code := grpcCode(err)
	r.col.record(method, time.Since(start), code)
	return code, err
}

func (r *runner) verify(ctx context.Context) (stockCheck, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.timeout)
	defer cancel()

	resp, err := r.clients[0].ListBatches(callCtx, &stocksv1.ListBatchesRequest{Sku: r.sku})
	if err != nil {
		return stockCheck{}, fmt.Errorf("list batches for verification: %w", err)
	}

	check := stockCheck{ExpectAllocated: r.netAllocated.Load()}
	for _, batch := range resp.GetBatches() {
		check.Purchased += int64(batch.GetPurchasedQty())
		check.Allocated += int64(batch.GetAllocatedQty())
	}
	check.Oversold = check.Allocated > check.Purchased
	check.Consistent = check.Allocated == check.ExpectAllocated
	return check, nil
}

func dispatchJobs(ctx context.Context, jobs chan<- int, cfg config) {
	defer close(jobs)

	var deadline <-chan time.Time
	if cfg.duration > 0 {
		timer := time.NewTimer(cfg.duration)
		defer timer.Stop()
		deadline = timer.C
	}

	for i := 0; ; i++ {
		if (cfg.duration <= 0 || cfg.totalSet) && i >= cfg.total {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case jobs <- i:
		}
	}
}

func grpcCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	return status.Code(err)
}

func shouldDeallocate(index, rate int) bool {
	if rate <= 0 {
		return false
	}
	if rate >= 100 {
		return true
	}
	return index%100 < rate
}
