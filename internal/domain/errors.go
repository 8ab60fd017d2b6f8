package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствующего идентификатора заказа в строке.
	ErrOrderIDRequired = errors.New("order_id is required")
	// Ошибка отсутствующего SKU.
	ErrSKURequired = errors.New("sku is required")
	// Ошибка при некорректном количестве (<= 0).
	ErrQtyInvalid = errors.New("qty must be greater than zero")
	// Ошибка отсутствующего reference у партии.
	ErrBatchReferenceRequired = errors.New("batch reference is required")
	// Ошибка некорректной даты поступления.
	ErrETAInvalid = errors.New("eta must be a date in YYYY-MM-DD format")
	// ErrBatchNotFound возвращается, если партия не найдена в репозитории.
	ErrBatchNotFound = errors.New("batch not found")
	// ErrBatchAlreadyExists возвращается при повторном добавлении партии с тем же reference.
	ErrBatchAlreadyExists = errors.New("batch already exists")
	// ErrBatchVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrBatchVersionConflict = errors.New("batch version conflict")
	// ErrAllocationNotFound — строка заказа не размещена ни в одной партии.
	ErrAllocationNotFound = errors.New("allocation not found")
	// ErrOutOfStock — ни одна партия не может удовлетворить строку заказа.
	ErrOutOfStock = errors.New("out of stock")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// OutOfStockError несёт SKU, для которого не нашлось подходящей партии.
type OutOfStockError struct {
	SKU string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("out of stock for sku %s", e.SKU)
}

// Is позволяет сравнивать ошибку с ErrOutOfStock через errors.Is.
func (e *OutOfStockError) Is(target error) bool {
	return target == ErrOutOfStock
}

// IsOutOfStock проверяет, означает ли ошибка отсутствие стока.
func IsOutOfStock(err error) bool {
	return errors.Is(err, ErrOutOfStock)
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrBatchVersionConflict)
}

// IsValidationError проверяет, относится ли ошибка к некорректным входным данным.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrOrderIDRequired) ||
		errors.Is(err, ErrSKURequired) ||
		errors.Is(err, ErrQtyInvalid) ||
		errors.Is(err, ErrBatchReferenceRequired) ||
		errors.Is(err, ErrETAInvalid)
}
