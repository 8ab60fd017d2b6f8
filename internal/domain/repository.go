package domain

// BatchRepository описывает требования к хранилищу партий.
type BatchRepository interface {
	// Add сохраняет новую партию. Возвращает ErrBatchAlreadyExists, если reference занят.
	Add(batch *Batch) error
	// Get возвращает партию по reference или ErrBatchNotFound.
	Get(reference string) (*Batch, error)
	// ListBySKU возвращает все партии SKU. Порядок не гарантируется.
	ListBySKU(sku string) ([]*Batch, error)
	// Save сохраняет размещения партии с учётом optimistic locking.
	Save(batch *Batch) error
}
