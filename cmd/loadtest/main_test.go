package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/vladislavdragonenkov/stocks/internal/service/allocation"
	grpcsvc "github.com/vladislavdragonenkov/stocks/internal/service/grpc"
	"github.com/vladislavdragonenkov/stocks/internal/storage/memory"
	stocksv1 "github.com/vladislavdragonenkov/stocks/proto/stocks/v1"
)

func newBufconnClient(t *testing.T) stocksv1.AllocationServiceClient {
	t.Helper()

	logger := log.New()
	logger.SetOutput(io.Discard)
	entry := logger.WithField("component", "loadtest-test")

	svc := allocation.NewService(
		memory.NewBatchRepository(),
		memory.NewAllocationJournal(),
		memory.NewOutboxRepository(),
		allocation.WithLogger(entry),
	)

	listener := bufconn.Listen(1024 * 1024)
	server := grpc.NewServer()
	stocksv1.RegisterAllocationServiceServer(server, grpcsvc.NewAllocationService(svc, entry))
	go func() { _ = server.Serve(listener) }()

	dialer := func(context.Context, string) (net.Conn, error) { return listener.Dial() }

	//nolint:staticcheck // grpc.Dial is required for bufconn testing
	conn, err := grpc.Dial("bufnet", grpc.WithContextDialer(dialer), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		server.Stop()
	})
	return stocksv1.NewAllocationServiceClient(conn)
}

func testConfig() config {
	return config{
		total:       60,
		concurrency: 8,
		connections: 1,
		timeout:     2 * time.Second,
		mode:        modeAllocate,
		skuPrefix:   "LT",
		qty:         1,
		batches:     2,
		batchQty:    20,
		verify:      true,
	}
}

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := parseConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, "localhost:50051", cfg.addr)
	assert.Equal(t, 400, cfg.total)
	assert.False(t, cfg.totalSet)
	assert.Equal(t, modeAllocate, cfg.mode)
	assert.Equal(t, int32(1), cfg.qty)
	assert.True(t, cfg.verify)
}

func TestParseConfig_Overrides(t *testing.T) {
	cfg, err := parseConfig([]string{
		"-mode=allocate-deallocate",
		"-total=10",
		"-duration=30s",
		"-qty=3",
		"-batch-qty=50",
		"-verify=false",
	})
	require.NoError(t, err)

	assert.Equal(t, modeAllocateDeallocate, cfg.mode)
	assert.True(t, cfg.totalSet)
	assert.Equal(t, 30*time.Second, cfg.duration)
	assert.Equal(t, int32(3), cfg.qty)
	assert.Equal(t, int32(50), cfg.batchQty)
	assert.False(t, cfg.verify)
}

func TestParseConfig_Errors(t *testing.T) {
	tests := map[string][]string{
		"bad mode":        {"-mode=reserve"},
		"zero total":      {"-total=0"},
		"negative rate":   {"-deallocate-rate=-1"},
		"rate above 100":  {"-deallocate-rate=101"},
		"zero qty":        {"-qty=0"},
		"zero batches":    {"-batches=0"},
		"zero batch qty":  {"-batch-qty=0"},
		"empty sku":       {"-sku= "},
		"zero timeout":    {"-timeout=0s"},
		"no connections":  {"-connections=0"},
		"unknown flag":    {"-price=10"},
		"negative period": {"-duration=-1s"},
	}

	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parseConfig(args)
			assert.Error(t, err)
		})
	}
}

func TestDispatchJobs_CountMode(t *testing.T) {
	jobs := make(chan int, 10)
	dispatchJobs(context.Background(), jobs, config{total: 5})

	var got []int
	for id := range jobs {
		got = append(got, id)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestDispatchJobs_DurationStops(t *testing.T) {
	jobs := make(chan int)
	done := make(chan struct{})
	go func() {
		dispatchJobs(context.Background(), jobs, config{duration: 30 * time.Millisecond})
		close(done)
	}()

	count := 0
	for range jobs {
		count++
	}
	<-done
	assert.Positive(t, count)
}

func TestDispatchJobs_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobs := make(chan int)
	dispatchJobs(ctx, jobs, config{total: 1000})
	_, ok := <-jobs
	assert.False(t, ok)
}

func TestCollector_AcceptedCodesAreNotFailures(t *testing.T) {
	col := newCollector(codes.FailedPrecondition)
	col.record(scenarioMethod, time.Millisecond, codes.OK)
	col.record(scenarioMethod, 2*time.Millisecond, codes.FailedPrecondition)
	col.record(scenarioMethod, 3*time.Millisecond, codes.Unavailable)
	col.record("Allocate", time.Millisecond, codes.OK)

	result := col.buildReport(time.Now(), time.Second)
	assert.Equal(t, int64(3), result.TotalScenarios)
	assert.Equal(t, int64(1), result.FailedScenarios)
	assert.Equal(t, int64(1), result.OutOfStock)
	assert.InDelta(t, 3.0, result.RPS, 0.001)
	assert.NotContains(t, result.Methods, scenarioMethod)
	assert.Equal(t, int64(1), result.Methods["Allocate"].Calls)
	assert.True(t, result.failed())
}

func TestReport_FailedOnStockViolation(t *testing.T) {
	assert.False(t, report{Stock: &stockCheck{Consistent: true}}.failed())
	assert.True(t, report{Stock: &stockCheck{Consistent: true, Oversold: true}}.failed())
	assert.True(t, report{Stock: &stockCheck{Consistent: false}}.failed())
}

func TestPercentileAndSummary(t *testing.T) {
	assert.Zero(t, percentile(nil, 50))
	assert.Equal(t, 7.0, percentile([]float64{7}, 99))
	assert.InDelta(t, 2.5, percentile([]float64{1, 2, 3, 4}, 50), 0.0001)

	summary := buildLatencySummary([]float64{4, 1, 3, 2})
	assert.Equal(t, 1.0, summary.Min)
	assert.Equal(t, 4.0, summary.Max)
	assert.InDelta(t, 2.5, summary.Avg, 0.0001)
	assert.Equal(t, latencySummary{}, buildLatencySummary(nil))
}

func TestShouldDeallocate(t *testing.T) {
	assert.False(t, shouldDeallocate(5, 0))
	assert.True(t, shouldDeallocate(99, 100))
	assert.True(t, shouldDeallocate(124, 25))
	assert.False(t, shouldDeallocate(125, 25))
}

func TestGRPCCode(t *testing.T) {
	assert.Equal(t, codes.OK, grpcCode(nil))
	assert.Equal(t, codes.NotFound, grpcCode(status.Error(codes.NotFound, "missing")))
	assert.Equal(t, codes.Unknown, grpcCode(errors.New("plain")))
}

func TestWriteJSONReport(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	require.Error(t, writeJSONReport(".", report{}))
	require.Error(t, writeJSONReport("../escape.json", report{}))

	require.NoError(t, writeJSONReport("report.json", report{TotalScenarios: 3}))
	raw, err := os.ReadFile(filepath.Join(dir, "report.json"))
	require.NoError(t, err)

	var decoded report
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, int64(3), decoded.TotalScenarios)
}

func TestNewRunner_RequiresClients(t *testing.T) {
	_, err := newRunner(testConfig(), nil, "run")
	assert.Error(t, err)
}

func TestRunner_OutOfStockIsNotOversold(t *testing.T) {
	client := newBufconnClient(t)
	cfg := testConfig()

	r, err := newRunner(cfg, []stocksv1.AllocationServiceClient{client}, "oos")
	require.NoError(t, err)

	result, err := r.run(context.Background())
	require.NoError(t, err)

	require.NotNil(t, result.Stock)
	assert.Equal(t, int64(60), result.TotalScenarios)
	assert.Equal(t, int64(0), result.FailedScenarios)
	assert.Equal(t, int64(40), result.Stock.Purchased)
	assert.Equal(t, int64(40), result.Stock.Allocated)
	assert.Equal(t, int64(20), result.OutOfStock)
	assert.False(t, result.Stock.Oversold)
	assert.True(t, result.Stock.Consistent)
	assert.False(t, result.failed())
}

func TestRunner_AllocateDeallocateReturnsStock(t *testing.T) {
	client := newBufconnClient(t)
	cfg := testConfig()
	cfg.mode = modeAllocateDeallocate
	cfg.total = 30

	r, err := newRunner(cfg, []stocksv1.AllocationServiceClient{client}, "churn")
	require.NoError(t, err)

	result, err := r.run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(0), result.FailedScenarios)
	assert.Equal(t, int64(30), result.Methods["Deallocate"].Calls)
	require.NotNil(t, result.Stock)
	assert.Equal(t, int64(0), result.Stock.Allocated)
	assert.True(t, result.Stock.Consistent)

	var out bytes.Buffer
	printReport(&out, result, cfg)
	assert.Contains(t, out.String(), "mode=allocate-deallocate run=count:30")
	assert.Contains(t, out.String(), "Deallocate: calls=30")
	assert.Contains(t, out.String(), "consistent=true")
}
