package stocksv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	AllocationService_AddBatch_FullMethodName            = "/stocks.v1.AllocationService/AddBatch"
	AllocationService_Allocate_FullMethodName            = "/stocks.v1.AllocationService/Allocate"
	AllocationService_Deallocate_FullMethodName          = "/stocks.v1.AllocationService/Deallocate"
	AllocationService_GetBatch_FullMethodName            = "/stocks.v1.AllocationService/GetBatch"
	AllocationService_ListBatches_FullMethodName         = "/stocks.v1.AllocationService/ListBatches"
	AllocationService_GetOrderAllocations_FullMethodName = "/stocks.v1.AllocationService/GetOrderAllocations"
)

// AllocationServiceClient — клиент stocks.v1.AllocationService.
type AllocationServiceClient interface {
	AddBatch(ctx context.Context, in *AddBatchRequest, opts ...grpc.CallOption) (*AddBatchResponse, error)
	Allocate(ctx context.Context, in *AllocateRequest, opts ...grpc.CallOption) (*AllocateResponse, error)
	Deallocate(ctx context.Context, in *DeallocateRequest, opts ...grpc.CallOption) (*DeallocateResponse, error)
	GetBatch(ctx context.Context, in *GetBatchRequest, opts ...grpc.CallOption) (*GetBatchResponse, error)
	ListBatches(ctx context.Context, in *ListBatchesRequest, opts ...grpc.CallOption) (*ListBatchesResponse, error)
	GetOrderAllocations(ctx context.Context, in *GetOrderAllocationsRequest, opts ...grpc.CallOption) (*GetOrderAllocationsResponse, error)
}

type allocationServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAllocationServiceClient создаёт клиента; вызовы идут с JSON-кодеком.
func NewAllocationServiceClient(cc grpc.ClientConnInterface) AllocationServiceClient {
	return &allocationServiceClient{cc}
}

func callOptions(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func (c *allocationServiceClient) AddBatch(ctx context.Context, in *AddBatchRequest, opts ...grpc.CallOption) (*AddBatchResponse, error) {
	out := new(AddBatchResponse)
	if err := c.cc.Invoke(ctx, AllocationService_AddBatch_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *allocationServiceClient) Allocate(ctx context.Context, in *AllocateRequest, opts ...grpc.CallOption) (*AllocateResponse, error) {
	out := new(AllocateResponse)
	if err := c.cc.Invoke(ctx, AllocationService_Allocate_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *allocationServiceClient) Deallocate(ctx context.Context, in *DeallocateRequest, opts ...grpc.CallOption) (*DeallocateResponse, error) {
	out := new(DeallocateResponse)
	if err := c.cc.Invoke(ctx, AllocationService_Deallocate_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *allocationServiceClient) GetBatch(ctx context.Context, in *GetBatchRequest, opts ...grpc.CallOption) (*GetBatchResponse, error) {
	out := new(GetBatchResponse)
	if err := c.cc.Invoke(ctx, AllocationService_GetBatch_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *allocationServiceClient) ListBatches(ctx context.Context, in *ListBatchesRequest, opts ...grpc.CallOption) (*ListBatchesResponse, error) {
	out := new(ListBatchesResponse)
	if err := c.cc.Invoke(ctx, AllocationService_ListBatches_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *allocationServiceClient) GetOrderAllocations(ctx context.Context, in *GetOrderAllocationsRequest, opts ...grpc.CallOption) (*GetOrderAllocationsResponse, error) {
	out := new(GetOrderAllocationsResponse)
	if err := c.cc.Invoke(ctx, AllocationService_GetOrderAllocations_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// AllocationServiceServer — серверная часть stocks.v1.AllocationService.
type AllocationServiceServer interface {
	AddBatch(context.Context, *AddBatchRequest) (*AddBatchResponse, error)
	Allocate(context.Context, *AllocateRequest) (*AllocateResponse, error)
	Deallocate(context.Context, *DeallocateRequest) (*DeallocateResponse, error)
	GetBatch(context.Context, *GetBatchRequest) (*GetBatchResponse, error)
	ListBatches(context.Context, *ListBatchesRequest) (*ListBatchesResponse, error)
	GetOrderAllocations(context.Context, *GetOrderAllocationsRequest) (*GetOrderAllocationsResponse, error)
	mustEmbedUnimplementedAllocationServiceServer()
}

// UnimplementedAllocationServiceServer отвечает Unimplemented на все методы.
type UnimplementedAllocationServiceServer struct{}

func (UnimplementedAllocationServiceServer) AddBatch(context.Context, *AddBatchRequest) (*AddBatchResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method AddBatch not implemented")
}

func (UnimplementedAllocationServiceServer) Allocate(context.Context, *AllocateRequest) (*AllocateResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Allocate not implemented")
}

func (UnimplementedAllocationServiceServer) Deallocate(context.Context, *DeallocateRequest) (*DeallocateResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Deallocate not implemented")
}

func (UnimplementedAllocationServiceServer) GetBatch(context.Context, *GetBatchRequest) (*GetBatchResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetBatch not implemented")
}

func (UnimplementedAllocationServiceServer) ListBatches(context.Context, *ListBatchesRequest) (*ListBatchesResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListBatches not implemented")
}

func (UnimplementedAllocationServiceServer) GetOrderAllocations(context.Context, *GetOrderAllocationsRequest) (*GetOrderAllocationsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetOrderAllocations not implemented")
}

func (UnimplementedAllocationServiceServer) mustEmbedUnimplementedAllocationServiceServer() {}

// RegisterAllocationServiceServer регистрирует реализацию на gRPC-сервере.
func RegisterAllocationServiceServer(s grpc.ServiceRegistrar, srv AllocationServiceServer) {
	s.RegisterService(&AllocationService_ServiceDesc, srv)
}

func _AllocationService_AddBatch_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(AddBatchRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AllocationServiceServer).AddBatch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: AllocationService_AddBatch_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AllocationServiceServer).AddBatch(ctx, req.(*AddBatchRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _AllocationService_Allocate_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(AllocateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AllocationServiceServer).Allocate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: AllocationService_Allocate_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AllocationServiceServer).Allocate(ctx, req.(*AllocateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _AllocationService_Deallocate_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(DeallocateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AllocationServiceServer).Deallocate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: AllocationService_Deallocate_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AllocationServiceServer).Deallocate(ctx, req.(*DeallocateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _AllocationService_GetBatch_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetBatchRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AllocationServiceServer).GetBatch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: AllocationService_GetBatch_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AllocationServiceServer).GetBatch(ctx, req.(*GetBatchRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _AllocationService_ListBatches_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListBatchesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AllocationServiceServer).ListBatches(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: AllocationService_ListBatches_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AllocationServiceServer).ListBatches(ctx, req.(*ListBatchesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _AllocationService_GetOrderAllocations_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetOrderAllocationsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AllocationServiceServer).GetOrderAllocations(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: AllocationService_GetOrderAllocations_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AllocationServiceServer).GetOrderAllocations(ctx, req.(*GetOrderAllocationsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// AllocationService_ServiceDesc — дескриптор сервиса для grpc.RegisterService.
var AllocationService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "stocks.v1.AllocationService",
	HandlerType: (*AllocationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "AddBatch",
			Handler:    _AllocationService_AddBatch_Handler,
		},
		{
			MethodName: "Allocate",
			Handler:    _AllocationService_Allocate_Handler,
		},
		{
			MethodName: "Deallocate",
			Handler:    _AllocationService_Deallocate_Handler,
		},
		{
			MethodName: "GetBatch",
			Handler:    _AllocationService_GetBatch_Handler,
		},
		{
			MethodName: "ListBatches",
			Handler:    _AllocationService_ListBatches_Handler,
		},
		{
			MethodName: "GetOrderAllocations",
			Handler:    _AllocationService_GetOrderAllocations_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "proto/stocks/v1/allocation.proto",
}
