// Команда loadtest создаёт нагрузку на сервис размещения по gRPC и
// проверяет, что под конкурентными Allocate остатки не уходят в минус.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	stocksv1 "github.com/vladislavdragonenkov/stocks/proto/stocks/v1"
)

type loadMode string

const (
	modeAllocate           loadMode = "allocate"
	modeAllocateDeallocate loadMode = "allocate-deallocate"
)

type config struct {
	addr           string
	total          int
	totalSet       bool
	duration       time.Duration
	concurrency    int
	connections    int
	timeout        time.Duration
	mode           loadMode
	deallocateRate int
	skuPrefix      string
	qty            int32
	batches        int
	batchQty       int32
	verify         bool
	outputPath     string
}

func parseConfig(args []string) (config, error) {
	var (
		cfg       config
		modeValue string
		qty       int
		batchQty  int
	)

	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.addr, "addr", "localhost:50051", "gRPC target address")
	fs.IntVar(&cfg.total, "total", 400, "total scenarios in count mode; with -duration only used when explicitly set")
	fs.DurationVar(&cfg.duration, "duration", 0, "optional time-based run duration (e.g. 1m)")
	fs.IntVar(&cfg.concurrency, "concurrency", 40, "number of concurrent workers")
	fs.IntVar(&cfg.connections, "connections", 8, "number of gRPC client connections")
	fs.DurationVar(&cfg.timeout, "timeout", 5*time.Second, "per-RPC timeout")
	fs.StringVar(&modeValue, "mode", string(modeAllocate), "load mode: allocate | allocate-deallocate")
	fs.IntVar(&cfg.deallocateRate, "deallocate-rate", 0, "percent of allocate scenarios that also deallocate (0..100)")
	fs.StringVar(&cfg.skuPrefix, "sku", "LT-SKU", "SKU prefix; the run id is appended")
	fs.IntVar(&qty, "qty", 1, "quantity per order line")
	fs.IntVar(&cfg.batches, "batches", 4, "batches to seed before the run")
	fs.IntVar(&batchQty, "batch-qty", 100, "purchased quantity per seeded batch")
	fs.BoolVar(&cfg.verify, "verify", true, "compare allocated stock with successful calls after the run")
	fs.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})
	cfg.qty = int32(qty)
	cfg.batchQty = int32(batchQty)
	cfg.skuPrefix = strings.TrimSpace(cfg.skuPrefix)

	switch loadMode(strings.TrimSpace(modeValue)) {
	case modeAllocate:
		cfg.mode = modeAllocate
	case modeAllocateDeallocate:
		cfg.mode = modeAllocateDeallocate
	default:
		return config{}, fmt.Errorf("unsupported mode: %s", modeValue)
	}

	var errs []error
	if cfg.duration < 0 {
		errs = append(errs, errors.New("duration must be >= 0"))
	}
	if (cfg.duration == 0 || cfg.totalSet) && cfg.total <= 0 {
		errs = append(errs, errors.New("total must be > 0"))
	}
	if cfg.concurrency <= 0 {
		errs = append(errs, errors.New("concurrency must be > 0"))
	}
	if cfg.connections <= 0 {
		errs = append(errs, errors.New("connections must be > 0"))
	}
	if cfg.timeout <= 0 {
		errs = append(errs, errors.New("timeout must be > 0"))
	}
	if cfg.deallocateRate < 0 || cfg.deallocateRate > 100 {
		errs = append(errs, errors.New("deallocate-rate must be between 0 and 100"))
	}
	if cfg.skuPrefix == "" {
		errs = append(errs, errors.New("sku is required"))
	}
	if qty <= 0 {
		errs = append(errs, errors.New("qty must be > 0"))
	}
	if cfg.batches <= 0 {
		errs = append(errs, errors.New("batches must be > 0"))
	}
	if batchQty <= 0 {
		errs = append(errs, errors.New("batch-qty must be > 0"))
	}

	return cfg, errors.Join(errs...)
}

func dialClients(cfg config) ([]stocksv1.AllocationServiceClient, func(), error) {
	conns := make([]*grpc.ClientConn, 0, cfg.connections)
	closeAll := func() {
		for _, conn := range conns {
			_ = conn.Close()
		}
	}

	clients := make([]stocksv1.AllocationServiceClient, 0, cfg.connections)
	for i := 0; i < cfg.connections; i++ {
		conn, err := grpc.NewClient(cfg.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("create grpc client connection: %w", err)
		}
		conns = append(conns, conn)
		clients = append(clients, stocksv1.NewAllocationServiceClient(conn))
	}
	return clients, closeAll, nil
}

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(2)
	}

	clients, closeClients, err := dialClients(cfg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer closeClients()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := newRunner(cfg, clients, fmt.Sprintf("%d-%d", time.Now().UnixNano(), os.Getpid()))
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	result, err := r.run(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "load test failed: %v\n", err)
		os.Exit(1)
	}

	printReport(os.Stdout, result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}

	if result.failed() {
		os.Exit(1)
	}
}
