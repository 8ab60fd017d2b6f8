// Package stocksv1 описывает gRPC-контракт stocks.v1.AllocationService.
//
// Сообщения передаются в JSON через кодек с content-subtype "json"
// (content-type application/grpc+json). Типы пакета не реализуют
// proto.Message, поэтому вызов с кодеком по умолчанию (proto) завершается
// ошибкой сериализации.
//
// Клиент из NewAllocationServiceClient сам добавляет
// grpc.CallContentSubtype(CodecName) к каждому вызову. Остальные клиенты
// (прямой conn.Invoke, generic-прокси) должны передать его явно:
//
//	conn, err := grpc.NewClient(addr,
//		grpc.WithTransportCredentials(insecure.NewCredentials()),
//		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(stocksv1.CodecName)),
//	)
//
// Кодек регистрируется в init, поэтому пакет нужно импортировать и на
// стороне сервера, и на стороне клиента.
package stocksv1

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// CodecName — content-subtype, под которым зарегистрирован кодек.
const CodecName = "json"

// Codec сериализует сообщения контракта в JSON.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}
	return data, nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %T: %w", v, err)
	}
	return nil
}

func (Codec) Name() string { return CodecName }

func init() {
	encoding.RegisterCodec(Codec{})
}
