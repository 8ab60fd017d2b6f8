package domain

import (
	"sort"
	"time"
)

// Batch — закупленная партия товара одного SKU.
//
// Партия — сущность: две партии равны, если совпадает reference, независимо
// от текущих размещений. Изменяется только через Allocate/Deallocate.
//
// Batch не потокобезопасна. Вызывающий код обязан сериализовать работу с
// партиями одного SKU (например, блокировкой на SKU), иначе конкурентные
// Allocate могут нарушить инвариант AvailableQuantity >= 0.
type Batch struct {
	reference    string
	sku          string
	purchasedQty int32
	eta          *time.Time
	allocations  map[OrderLine]struct{}
	version      int64
}

// BatchState — плоское представление партии для хранилищ и транспорта.
type BatchState struct {
	Reference    string
	SKU          string
	PurchasedQty int32
	// ETA == nil означает, что товар уже на складе.
	ETA         *time.Time
	Allocations []OrderLine
	Version     int64
}

// NewBatch создаёт партию без размещений. ETA хранится с точностью до дня
// (полночь UTC), как и в postgres-колонке DATE.
func NewBatch(reference, sku string, qty int32, eta *time.Time) *Batch {
	return &Batch{
		reference:    reference,
		sku:          sku,
		purchasedQty: qty,
		eta:          etaDate(eta),
		allocations:  make(map[OrderLine]struct{}),
	}
}

// RestoreBatch восстанавливает партию из сохранённого состояния.
// Размещения принимаются как есть: проверка доступного количества уже была
// выполнена в момент их добавления.
func RestoreBatch(state BatchState) *Batch {
	b := NewBatch(state.Reference, state.SKU, state.PurchasedQty, state.ETA)
	for _, line := range state.Allocations {
		b.allocations[line] = struct{}{}
	}
	b.version = state.Version
	return b
}

// State возвращает снимок партии. Размещения отсортированы детерминированно.
func (b *Batch) State() BatchState {
	return BatchState{
		Reference:    b.reference,
		SKU:          b.sku,
		PurchasedQty: b.purchasedQty,
		ETA:          copyTime(b.eta),
		Allocations:  b.Allocations(),
		Version:      b.version,
	}
}

// Clone возвращает независимую копию партии.
func (b *Batch) Clone() *Batch {
	return RestoreBatch(b.State())
}

func (b *Batch) Reference() string { return b.reference }

func (b *Batch) SKU() string { return b.sku }

// ETA возвращает копию даты поступления или nil для партии на складе.
func (b *Batch) ETA() *time.Time { return copyTime(b.eta) }

// InWarehouse сообщает, что товар партии уже находится на складе.
func (b *Batch) InWarehouse() bool { return b.eta == nil }

func (b *Batch) PurchasedQuantity() int32 { return b.purchasedQty }

// Version — счётчик optimistic locking, которым управляет репозиторий.
func (b *Batch) Version() int64 { return b.version }

// AllocatedQuantity суммирует количество по всем размещённым строкам.
func (b *Batch) AllocatedQuantity() int32 {
	var total int32
	for line := range b.allocations {
		total += line.Qty
	}
	return total
}

// AvailableQuantity — сколько единиц партии ещё можно разместить.
func (b *Batch) AvailableQuantity() int32 {
	return b.purchasedQty - b.AllocatedQuantity()
}

// CanAllocate проверяет совпадение SKU, положительное количество строки и
// достаточный остаток. Без побочных эффектов.
func (b *Batch) CanAllocate(line OrderLine) bool {
	return b.sku == line.SKU && line.Qty > 0 && b.AvailableQuantity() >= line.Qty
}

// Allocate размещает строку в партии, если это возможно.
// Если CanAllocate возвращает false, вызов ничего не делает; повторное
// размещение той же строки тоже ничего не меняет.
func (b *Batch) Allocate(line OrderLine) {
	if !b.CanAllocate(line) {
		return
	}
	b.allocations[line] = struct{}{}
}

// Deallocate снимает строку с партии; для неразмещённой строки — no-op.
func (b *Batch) Deallocate(line OrderLine) {
	delete(b.allocations, line)
}

// IsAllocated сообщает, размещена ли строка в этой партии.
func (b *Batch) IsAllocated(line OrderLine) bool {
	_, ok := b.allocations[line]
	return ok
}

// Allocations возвращает размещённые строки, отсортированные по order_id, sku, qty.
func (b *Batch) Allocations() []OrderLine {
	lines := make([]OrderLine, 0, len(b.allocations))
	for line := range b.allocations {
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].OrderID != lines[j].OrderID {
			return lines[i].OrderID < lines[j].OrderID
		}
		if lines[i].SKU != lines[j].SKU {
			return lines[i].SKU < lines[j].SKU
		}
		return lines[i].Qty < lines[j].Qty
	})
	return lines
}

// Equal сравнивает партии по идентичности (reference).
func (b *Batch) Equal(other *Batch) bool {
	if b == nil || other == nil {
		return b == other
	}
	return b.reference == other.reference
}

// Validate проверяет поля, заданные при создании партии.
func (b *Batch) Validate() []error {
	var errs []error

	if b.reference == "" {
		errs = append(errs, ErrBatchReferenceRequired)
	}
	if b.sku == "" {
		errs = append(errs, ErrSKURequired)
	}
	if b.purchasedQty <= 0 {
		errs = append(errs, ErrQtyInvalid)
	}

	return errs
}

func etaDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	y, m, d := t.UTC().Date()
	v := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &v
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
