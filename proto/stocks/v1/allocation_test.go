package stocksv1

import (
	"reflect"
	"strings"
	"testing"

	"google.golang.org/grpc/encoding"
)

func TestMessageGetters(t *testing.T) {
	messages := []any{
		&OrderLine{OrderId: "order-1", Sku: "LAMP", Qty: 1},
		&Batch{Reference: "b-1", Sku: "LAMP", Eta: "2026-11-03", PurchasedQty: 10, AllocatedQty: 1, AvailableQty: 9, Version: 2, Allocations: []*OrderLine{{OrderId: "order-1", Sku: "LAMP", Qty: 1}}},
		&AllocationRecord{Id: "r-1", OrderId: "order-1", Sku: "LAMP", Qty: 1, BatchReference: "b-1", Action: "allocated", UnixTime: 1},
		&AddBatchRequest{Reference: "b-1", Sku: "LAMP", Qty: 10, Eta: "2026-11-03"},
		&AddBatchResponse{Batch: &Batch{Reference: "b-1"}},
		&AllocateRequest{OrderId: "order-1", Sku: "LAMP", Qty: 1},
		&AllocateResponse{BatchReference: "b-1"},
		&DeallocateRequest{OrderId: "order-1", Sku: "LAMP", Qty: 1},
		&DeallocateResponse{BatchReference: "b-1"},
		&GetBatchRequest{Reference: "b-1"},
		&GetBatchResponse{Batch: &Batch{Reference: "b-1"}},
		&ListBatchesRequest{Sku: "LAMP"},
		&ListBatchesResponse{Batches: []*Batch{{Reference: "b-1"}}},
		&GetOrderAllocationsRequest{OrderId: "order-1"},
		&GetOrderAllocationsResponse{Records: []*AllocationRecord{{Id: "r-1"}}},
	}

	for _, msg := range messages {
		t.Run(reflect.TypeOf(msg).Elem().Name(), func(t *testing.T) {
			v := reflect.ValueOf(msg)
			callGetterMethods(t, v, false)
			callGetterMethods(t, reflect.Zero(v.Type()), true)
		})
	}
}

func TestCodecRegistered(t *testing.T) {
	codec := encoding.GetCodec(CodecName)
	if codec == nil {
		t.Fatal("json codec is not registered")
	}
	if codec.Name() != CodecName {
		t.Fatalf("unexpected codec name %q", codec.Name())
	}
}

func TestCodecRoundTrip(t *testing.T) {
	codec := Codec{}
	in := &AddBatchRequest{Reference: "b-1", Sku: "LAMP", Qty: 10}

	data, err := codec.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got := string(data); got != `{"reference":"b-1","sku":"LAMP","qty":10}` {
		t.Fatalf("unexpected wire form %s", got)
	}

	out := new(AddBatchRequest)
	if err := codec.Unmarshal(data, out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if *out != *in {
		t.Fatalf("round trip mismatch: %+v", out)
	}

	if err := codec.Unmarshal(nil, out); err != nil {
		t.Fatalf("empty payload must decode to zero message: %v", err)
	}
	if err := codec.Unmarshal([]byte(`{`), out); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}

func callGetterMethods(t *testing.T, v reflect.Value, wantZero bool) {
	t.Helper()

	typ := v.Type()
	for i := 0; i < typ.NumMethod(); i++ {
		m := typ.Method(i)
		if !strings.HasPrefix(m.Name, "Get") || m.Type.NumIn() != 1 || m.Type.NumOut() != 1 {
			continue
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("method %s panicked: %v", m.Name, r)
				}
			}()
			out := v.Method(i).Call(nil)[0]
			if wantZero && !out.IsZero() {
				t.Fatalf("%s on nil receiver returned %v", m.Name, out)
			}
			if !wantZero && out.IsZero() {
				t.Fatalf("%s returned zero value", m.Name)
			}
		}()
	}
}
