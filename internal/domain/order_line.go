package domain

// OrderLine — запрошенное количество SKU в рамках заказа.
//
// Это value object: у строки нет собственной идентичности, две строки с
// одинаковыми полями взаимозаменяемы. Структура сравнима через ==, поэтому
// её можно использовать как ключ map.
type OrderLine struct {
	OrderID string
	SKU     string
	Qty     int32
}

// NewOrderLine собирает строку заказа.
func NewOrderLine(orderID, sku string, qty int32) OrderLine {
	return OrderLine{OrderID: orderID, SKU: sku, Qty: qty}
}

// Validate проверяет обязательные поля строки и возвращает список замечаний.
func (l OrderLine) Validate() []error {
	var errs []error

	if l.OrderID == "" {
		errs = append(errs, ErrOrderIDRequired)
	}
	if l.SKU == "" {
		errs = append(errs, ErrSKURequired)
	}
	if l.Qty <= 0 {
		errs = append(errs, ErrQtyInvalid)
	}

	return errs
}
