package grpcsvc

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/stocks/internal/domain"
	"github.com/vladislavdragonenkov/stocks/internal/service/allocation"
	stocksv1 "github.com/vladislavdragonenkov/stocks/proto/stocks/v1"
)

// Allocator — операции сервиса размещения, доступные через gRPC.
type Allocator interface {
	AddBatch(ctx context.Context, reference, sku string, qty int32, eta *time.Time) (*domain.Batch, error)
	Allocate(ctx context.Context, line domain.OrderLine) (string, error)
	Deallocate(ctx context.Context, line domain.OrderLine) (string, error)
	GetBatch(ctx context.Context, reference string) (*domain.Batch, error)
	ListBatches(ctx context.Context, sku string) ([]*domain.Batch, error)
	OrderAllocations(ctx context.Context, orderID string) ([]domain.AllocationRecord, error)
}

// AllocationService реализует stocks.v1.AllocationService поверх сервиса размещения.
type AllocationService struct {
	stocksv1.UnimplementedAllocationServiceServer

	allocator Allocator
	logger    *log.Entry
}

// NewAllocationService конструирует gRPC-обработчик.
func NewAllocationService(allocator Allocator, logger *log.Entry) *AllocationService {
	if logger == nil {
		logger = log.New().WithField("component", "allocation-grpc")
	}
	return &AllocationService{allocator: allocator, logger: logger}
}

// AddBatch регистрирует новую партию.
func (s *AllocationService) AddBatch(ctx context.Context, req *stocksv1.AddBatchRequest) (*stocksv1.AddBatchResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	eta, err := allocation.ParseETA(req.GetEta())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	batch, err := s.allocator.AddBatch(ctx, req.GetReference(), req.GetSku(), req.GetQty(), eta)
	if err != nil {
		return nil, s.toStatus(err, "AddBatch", log.Fields{"batch_ref": req.GetReference(), "sku": req.GetSku()})
	}

	return &stocksv1.AddBatchResponse{Batch: toProtoBatch(batch)}, nil
}

// Allocate размещает строку заказа и возвращает reference выбранной партии.
func (s *AllocationService) Allocate(ctx context.Context, req *stocksv1.AllocateRequest) (*stocksv1.AllocateResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	line := domain.NewOrderLine(req.GetOrderId(), req.GetSku(), req.GetQty())
	reference, err := s.allocator.Allocate(ctx, line)
	if err != nil {
		return nil, s.toStatus(err, "Allocate", lineFields(line))
	}

	return &stocksv1.AllocateResponse{BatchReference: reference}, nil
}

// Deallocate снимает строку заказа с партии.
func (s *AllocationService) Deallocate(ctx context.Context, req *stocksv1.DeallocateRequest) (*stocksv1.DeallocateResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	line := domain.NewOrderLine(req.GetOrderId(), req.GetSku(), req.GetQty())
	reference, err := s.allocator.Deallocate(ctx, line)
	if err != nil {
		return nil, s.toStatus(err, "Deallocate", lineFields(line))
	}

	return &stocksv1.DeallocateResponse{BatchReference: reference}, nil
}

// GetBatch возвращает партию с текущими размещениями.
func (s *AllocationService) GetBatch(ctx context.Context, req *stocksv1.GetBatchRequest) (*stocksv1.GetBatchResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	batch, err := s.allocator.GetBatch(ctx, req.GetReference())
	if err != nil {
		return nil, s.toStatus(err, "GetBatch", log.Fields{"batch_ref": req.GetReference()})
	}

	return &stocksv1.GetBatchResponse{Batch: toProtoBatch(batch)}, nil
}

// ListBatches возвращает партии SKU в порядке предпочтения.
func (s *AllocationService) ListBatches(ctx context.Context, req *stocksv1.ListBatchesRequest) (*stocksv1.ListBatchesResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	batches, err := s.allocator.ListBatches(ctx, req.GetSku())
	if err != nil {
		return nil, s.toStatus(err, "ListBatches", log.Fields{"sku": req.GetSku()})
	}

	result := make([]*stocksv1.Batch, 0, len(batches))
	for _, batch := range batches {
		result = append(result, toProtoBatch(batch))
	}
	return &stocksv1.ListBatchesResponse{Batches: result}, nil
}

// GetOrderAllocations возвращает журнал размещений заказа.
func (s *AllocationService) GetOrderAllocations(ctx context.Context, req *stocksv1.GetOrderAllocationsRequest) (*stocksv1.GetOrderAllocationsResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	records, err := s.allocator.OrderAllocations(ctx, req.GetOrderId())
	if err != nil {
		return nil, s.toStatus(err, "GetOrderAllocations", log.Fields{"order_id": req.GetOrderId()})
	}

	result := make([]*stocksv1.AllocationRecord, 0, len(records))
	for _, record := range records {
		result = append(result, &stocksv1.AllocationRecord{
			Id:             record.ID,
			OrderId:        record.OrderID,
			Sku:            record.SKU,
			Qty:            record.Qty,
			BatchReference: record.BatchRef,
			Action:         string(record.Action),
			UnixTime:       record.OccurredAt.Unix(),
		})
	}
	return &stocksv1.GetOrderAllocationsResponse{Records: result}, nil
}

// toStatus переводит доменную ошибку в gRPC-статус.
func (s *AllocationService) toStatus(err error, operation string, fields log.Fields) error {
	entry := s.logger.WithError(err).WithFields(fields).WithField("operation", operation)

	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case domain.IsValidationError(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case domain.IsOutOfStock(err):
		entry.Info("allocation rejected")
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrBatchNotFound):
		return status.Error(codes.NotFound, domain.ErrBatchNotFound.Error())
	case errors.Is(err, domain.ErrAllocationNotFound):
		return status.Error(codes.NotFound, domain.ErrAllocationNotFound.Error())
	case errors.Is(err, domain.ErrBatchAlreadyExists):
		return status.Error(codes.AlreadyExists, domain.ErrBatchAlreadyExists.Error())
	case domain.IsVersionConflict(err):
		entry.Warn("batch version conflict persisted after retries")
		return status.Error(codes.Aborted, domain.ErrBatchVersionConflict.Error())
	default:
		entry.Error("allocation request failed")
		return status.Error(codes.Internal, "internal error")
	}
}

func toProtoBatch(batch *domain.Batch) *stocksv1.Batch {
	if batch == nil {
		return nil
	}

	lines := batch.Allocations()
	allocations := make([]*stocksv1.OrderLine, 0, len(lines))
	for _, line := range lines {
		allocations = append(allocations, &stocksv1.OrderLine{
			OrderId: line.OrderID,
			Sku:     line.SKU,
			Qty:     line.Qty,
		})
	}

	return &stocksv1.Batch{
		Reference:    batch.Reference(),
		Sku:          batch.SKU(),
		Eta:          allocation.FormatETA(batch.ETA()),
		PurchasedQty: batch.PurchasedQuantity(),
		AllocatedQty: batch.AllocatedQuantity(),
		AvailableQty: batch.AvailableQuantity(),
		Version:      batch.Version(),
		Allocations:  allocations,
	}
}

func lineFields(line domain.OrderLine) log.Fields {
	return log.Fields{
		"order_id": line.OrderID,
		"sku":      line.SKU,
		"qty":      line.Qty,
	}
}

var _ stocksv1.AllocationServiceServer = (*AllocationService)(nil)
var _ Allocator = (*allocation.Service)(nil)
