package allocation

import (
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/stocks/internal/domain"
)

// ETALayout — формат даты поступления в событиях и транспорте.
const ETALayout = "2006-01-02"

// BatchCreatedEvent публикуется после добавления партии.
type BatchCreatedEvent struct {
	Reference string    `json:"reference"`
	SKU       string    `json:"sku"`
	Qty       int32     `json:"qty"`
	ETA       string    `json:"eta,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AllocationEvent публикуется при размещении и снятии строки заказа.
type AllocationEvent struct {
	OrderID    string    `json:"order_id"`
	SKU        string    `json:"sku"`
	Qty        int32     `json:"qty"`
	BatchRef   string    `json:"batch_ref"`
	OccurredAt time.Time `json:"occurred_at"`
}

// OutOfStockEvent публикуется, когда строку не удалось разместить.
type OutOfStockEvent struct {
	OrderID    string    `json:"order_id"`
	SKU        string    `json:"sku"`
	Qty        int32     `json:"qty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// FormatETA возвращает дату в ETALayout или пустую строку для партии на складе.
func FormatETA(eta *time.Time) string {
	if eta == nil {
		return ""
	}
	return eta.Format(ETALayout)
}

// ParseETA разбирает дату в ETALayout; пустая строка означает "на складе".
func ParseETA(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(ETALayout, value, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrETAInvalid, value)
	}
	return &t, nil
}
