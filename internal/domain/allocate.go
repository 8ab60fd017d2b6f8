package domain

import "sort"

// CompareBatches задаёт порядок предпочтения партий при размещении:
// партии на складе идут раньше любых поставок, среди поставок — по возрастанию ETA.
// Две партии на складе (или с одинаковым ETA) считаются равными.
//
// Порядок используется только для сортировки и никогда для равенства.
func CompareBatches(a, b *Batch) int {
	switch {
	case a.eta == nil && b.eta == nil:
		return 0
	case a.eta == nil:
		return -1
	case b.eta == nil:
		return 1
	case a.eta.Before(*b.eta):
		return -1
	case b.eta.Before(*a.eta):
		return 1
	default:
		return 0
	}
}

// SortBatches стабильно сортирует партии по CompareBatches.
// Равные партии сохраняют исходный порядок.
func SortBatches(batches []*Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		return CompareBatches(batches[i], batches[j]) < 0
	})
}

// Allocate выбирает лучшую партию для строки и размещает её.
//
// Кандидаты сортируются по CompareBatches (исходный слайс не меняется),
// строка уходит в первую партию, для которой CanAllocate == true.
// Возвращает reference выбранной партии или *OutOfStockError; во втором
// случае ни одна партия не изменяется.
func Allocate(line OrderLine, batches []*Batch) (string, error) {
	sorted := make([]*Batch, 0, len(batches))
	for _, b := range batches {
		if b != nil {
			sorted = append(sorted, b)
		}
	}
	SortBatches(sorted)

	for _, b := range sorted {
		if b.CanAllocate(line) {
			b.Allocate(line)
			return b.reference, nil
		}
	}

	return "", &OutOfStockError{SKU: line.SKU}
}
