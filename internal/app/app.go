// Package app собирает сервис размещения заказов из конфигурации.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/vladislavdragonenkov/stocks/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/stocks/internal/health"
	"github.com/vladislavdragonenkov/stocks/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/stocks/internal/metrics"
	"github.com/vladislavdragonenkov/stocks/internal/service/allocation"
	grpcsvc "github.com/vladislavdragonenkov/stocks/internal/service/grpc"
	"github.com/vladislavdragonenkov/stocks/internal/service/outbox"
	"github.com/vladislavdragonenkov/stocks/internal/service/retention"
	"github.com/vladislavdragonenkov/stocks/internal/version"
	stocksv1 "github.com/vladislavdragonenkov/stocks/proto/stocks/v1"
)

const grpcStopTimeout = 5 * time.Second

// Run поднимает gRPC API, служебный HTTP-сервер, outbox worker и, при
// EVENT_BUS=kafka, consumer команд. Блокируется до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	if err := cfg.Validate(); err != nil {
		return err
	}

	deps, err := initRuntimeDependencies(ctx, cfg, logger.WithField("layer", "storage"))
	if err != nil {
		return err
	}
	defer deps.close(logger)

	bus, err := initEventBus(ctx, cfg, logger.WithField("layer", "events"))
	if err != nil {
		return err
	}
	defer bus.close(logger)

	retry := allocation.DefaultRetryConfig()
	retry.MaxAttempts = cfg.AllocationMaxAttempts
	retry.InitialDelay = cfg.AllocationRetryDelay

	service := allocation.NewService(
		deps.batches,
		deps.journal,
		deps.outbox,
		allocation.WithLogger(logger.WithField("layer", "allocation")),
		allocation.WithMetrics(metrics.NewAllocationMetrics()),
		allocation.WithRetryConfig(retry),
	)

	background, stopBackground := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		stopBackground()
		wg.Wait()
	}()

	outboxMetrics := metrics.NewOutboxMetrics(nil)
	workerOptions := []outbox.Option{
		outbox.WithLogger(logger.WithField("layer", "outbox")),
		outbox.WithMetrics(outboxMetrics),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
	}
	if bus.dlqPublisher != nil {
		workerOptions = append(workerOptions, outbox.WithDLQPublisher(bus.dlqPublisher))
	}
	worker := outbox.NewWorker(deps.outbox, bus.publisher, workerOptions...)
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(background)
	}()

	if purger, ok := deps.outbox.(domain.OutboxPurger); ok && cfg.OutboxRetention > 0 {
		cleaner := retention.NewWorker(purger,
			retention.WithLogger(logger.WithField("layer", "outbox-retention")),
			retention.WithMetrics(outboxMetrics),
			retention.WithRetention(cfg.OutboxRetention),
			retention.WithInterval(cfg.OutboxRetentionInterval),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			cleaner.Run(background)
		}()
	}

	if bus.producer != nil {
		consumer, err := startCommandConsumer(background, cfg, service, bus.producer, logger.WithField("layer", "kafka-consumer"))
		if err != nil {
			return err
		}
		defer func() {
			if err := consumer.Stop(); err != nil {
				logger.WithError(err).Warn("failed to stop kafka consumer")
			}
		}()
	}

	grpcMetrics := promgrpc.NewServerMetrics()
	if err := prometheus.Register(grpcMetrics); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*promgrpc.ServerMetrics); ok {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))
	stocksv1.RegisterAllocationServiceServer(grpcServer, grpcsvc.NewAllocationService(service, logger.WithField("layer", "grpc")))

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(stocksv1.AllocationService_ServiceDesc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	grpcMetrics.InitializeMetrics(grpcServer)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("outbox", healthcheck.NewOutboxBacklogChecker(deps.outbox, cfg.OutboxMaxAge))
	if deps.storageChecker != nil {
		healthHandler.RegisterChecker("storage", deps.storageChecker)
	}
	if bus.checker != nil {
		healthHandler.RegisterChecker("event_bus", bus.checker)
	}

	opsSrv := startOpsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		shutdownHTTP(opsSrv, logger)
		return fmt.Errorf("listen grpc %s: %w", cfg.GRPCAddr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("version", version.String()).Infof("gRPC сервер слушает %s", cfg.GRPCAddr)
		errCh <- grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем gRPC сервер")
		healthServer.Shutdown()
		stopGRPC(grpcServer, logger)
		shutdownHTTP(opsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(opsSrv, logger)
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

func startCommandConsumer(
	ctx context.Context,
	cfg Config,
	service kafka.AllocationService,
	producer *kafka.Producer,
	logger *log.Entry,
) (*kafka.Consumer, error) {
	handler := kafka.NewCommandHandler(service, logger.WithField("layer", "commands"))
	consumer, err := kafka.NewConsumer(
		cfg.KafkaBrokers,
		cfg.KafkaConsumerGroup,
		[]string{cfg.KafkaCommandsTopic},
		handler.Handle,
		kafka.ConsumerOptions{
			DLQProducer: producer,
			DLQTopic:    cfg.KafkaDLQTopic,
			Logger:      logger,
		},
	)
	if err != nil {
		return nil, err
	}

	if err := consumer.Start(ctx); err != nil {
		_ = consumer.Stop()
		return nil, err
	}
	return consumer, nil
}

// stopGRPC пытается завершить сервер gracefully, затем принудительно.
func stopGRPC(server *grpc.Server, logger *log.Entry) {
	stopped := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(grpcStopTimeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		server.Stop()
	}
}
