package stocksv1

// OrderLine — строка заказа.
type OrderLine struct {
	OrderId string `json:"order_id,omitempty"`
	Sku     string `json:"sku,omitempty"`
	Qty     int32  `json:"qty,omitempty"`
}

func (x *OrderLine) GetOrderId() string {
	if x != nil {
		return x.OrderId
	}
	return ""
}

func (x *OrderLine) GetSku() string {
	if x != nil {
		return x.Sku
	}
	return ""
}

func (x *OrderLine) GetQty() int32 {
	if x != nil {
		return x.Qty
	}
	return 0
}

// Batch — партия товара с текущими размещениями.
type Batch struct {
	Reference    string       `json:"reference,omitempty"`
	Sku          string       `json:"sku,omitempty"`
	Eta          string       `json:"eta,omitempty"`
	PurchasedQty int32        `json:"purchased_qty,omitempty"`
	AllocatedQty int32        `json:"allocated_qty,omitempty"`
	AvailableQty int32        `json:"available_qty,omitempty"`
	Version      int64        `json:"version,omitempty"`
	Allocations  []*OrderLine `json:"allocations,omitempty"`
}

func (x *Batch) GetReference() string {
	if x != nil {
		return x.Reference
	}
	return ""
}

func (x *Batch) GetSku() string {
	if x != nil {
		return x.Sku
	}
	return ""
}

func (x *Batch) GetEta() string {
	if x != nil {
		return x.Eta
	}
	return ""
}

func (x *Batch) GetPurchasedQty() int32 {
	if x != nil {
		return x.PurchasedQty
	}
	return 0
}

func (x *Batch) GetAllocatedQty() int32 {
	if x != nil {
		return x.AllocatedQty
	}
	return 0
}

func (x *Batch) GetAvailableQty() int32 {
	if x != nil {
		return x.AvailableQty
	}
	return 0
}

func (x *Batch) GetVersion() int64 {
	if x != nil {
		return x.Version
	}
	return 0
}

func (x *Batch) GetAllocations() []*OrderLine {
	if x != nil {
		return x.Allocations
	}
	return nil
}

// AllocationRecord — запись журнала размещений заказа.
type AllocationRecord struct {
	Id             string `json:"id,omitempty"`
	OrderId        string `json:"order_id,omitempty"`
	Sku            string `json:"sku,omitempty"`
	Qty            int32  `json:"qty,omitempty"`
	BatchReference string `json:"batch_reference,omitempty"`
	Action         string `json:"action,omitempty"`
	UnixTime       int64  `json:"unix_time,omitempty"`
}

func (x *AllocationRecord) GetId() string {
	if x != nil {
		return x.Id
	}
	return ""
}

func (x *AllocationRecord) GetOrderId() string {
	if x != nil {
		return x.OrderId
	}
	return ""
}

func (x *AllocationRecord) GetSku() string {
	if x != nil {
		return x.Sku
	}
	return ""
}

func (x *AllocationRecord) GetQty() int32 {
	if x != nil {
		return x.Qty
	}
	return 0
}

func (x *AllocationRecord) GetBatchReference() string {
	if x != nil {
		return x.BatchReference
	}
	return ""
}

func (x *AllocationRecord) GetAction() string {
	if x != nil {
		return x.Action
	}
	return ""
}

func (x *AllocationRecord) GetUnixTime() int64 {
	if x != nil {
		return x.UnixTime
	}
	return 0
}

type AddBatchRequest struct {
	Reference string `json:"reference,omitempty"`
	Sku       string `json:"sku,omitempty"`
	Qty       int32  `json:"qty,omitempty"`
	Eta       string `json:"eta,omitempty"`
}

func (x *AddBatchRequest) GetReference() string {
	if x != nil {
		return x.Reference
	}
	return ""
}

func (x *AddBatchRequest) GetSku() string {
	if x != nil {
		return x.Sku
	}
	return ""
}

func (x *AddBatchRequest) GetQty() int32 {
	if x != nil {
		return x.Qty
	}
	return 0
}

func (x *AddBatchRequest) GetEta() string {
	if x != nil {
		return x.Eta
	}
	return ""
}

type AddBatchResponse struct {
	Batch *Batch `json:"batch,omitempty"`
}

func (x *AddBatchResponse) GetBatch() *Batch {
	if x != nil {
		return x.Batch
	}
	return nil
}

type AllocateRequest struct {
	OrderId string `json:"order_id,omitempty"`
	Sku     string `json:"sku,omitempty"`
	Qty     int32  `json:"qty,omitempty"`
}

func (x *AllocateRequest) GetOrderId() string {
	if x != nil {
		return x.OrderId
	}
	return ""
}

func (x *AllocateRequest) GetSku() string {
	if x != nil {
		return x.Sku
	}
	return ""
}

func (x *AllocateRequest) GetQty() int32 {
	if x != nil {
		return x.Qty
	}
	return 0
}

type AllocateResponse struct {
	BatchReference string `json:"batch_reference,omitempty"`
}

func (x *AllocateResponse) GetBatchReference() string {
	if x != nil {
		return x.BatchReference
	}
	return ""
}

type DeallocateRequest struct {
	OrderId string `json:"order_id,omitempty"`
	Sku     string `json:"sku,omitempty"`
	Qty     int32  `json:"qty,omitempty"`
}

func (x *DeallocateRequest) GetOrderId() string {
	if x != nil {
		return x.OrderId
	}
	return ""
}

func (x *DeallocateRequest) GetSku() string {
	if x != nil {
		return x.Sku
	}
	return ""
}

func (x *DeallocateRequest) GetQty() int32 {
	if x != nil {
		return x.Qty
	}
	return 0
}

type DeallocateResponse struct {
	BatchReference string `json:"batch_reference,omitempty"`
}

func (x *DeallocateResponse) GetBatchReference() string {
	if x != nil {
		return x.BatchReference
	}
	return ""
}

type GetBatchRequest struct {
	Reference string `json:"reference,omitempty"`
}

func (x *GetBatchRequest) GetReference() string {
	if x != nil {
		return x.Reference
	}
	return ""
}

type GetBatchResponse struct {
	Batch *Batch `json:"batch,omitempty"`
}

func (x *GetBatchResponse) GetBatch() *Batch {
	if x != nil {
		return x.Batch
	}
	return nil
}

type ListBatchesRequest struct {
	Sku string `json:"sku,omitempty"`
}

func (x *ListBatchesRequest) GetSku() string {
	if x != nil {
		return x.Sku
	}
	return ""
}

type ListBatchesResponse struct {
	Batches []*Batch `json:"batches,omitempty"`
}

func (x *ListBatchesResponse) GetBatches() []*Batch {
	if x != nil {
		return x.Batches
	}
	return nil
}

type GetOrderAllocationsRequest struct {
	OrderId string `json:"order_id,omitempty"`
}

func (x *GetOrderAllocationsRequest) GetOrderId() string {
	if x != nil {
		return x.OrderId
	}
	return ""
}

type GetOrderAllocationsResponse struct {
	Records []*AllocationRecord `json:"records,omitempty"`
}

func (x *GetOrderAllocationsResponse) GetRecords() []*AllocationRecord {
	if x != nil {
		return x.Records
	}
	return nil
}
