package kafka

// Topics для Kafka
const (
	TopicAllocationEvents = "stocks.allocation.events"
	TopicCommands         = "stocks.commands"
	TopicDeadLetterQueue  = "stocks.dlq" // Dead Letter Queue для failed messages
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
	HeaderEventType     = "x-event-type"
)

// DeadLetter — запись, которую Consumer кладёт в DLQ, когда команда не
// обработана после всех попыток. Исходное сообщение сохраняется как есть,
// чтобы его можно было переиграть в TopicCommands.
type DeadLetter struct {
	OriginalTopic     string `json:"original_topic"`
	OriginalPartition int32  `json:"original_partition"`
	OriginalOffset    int64  `json:"original_offset"`
	OriginalKey       string `json:"original_key"`
	OriginalValue     string `json:"original_value"`
	ErrorMessage      string `json:"error_message"`
	FailedAt          string `json:"failed_at"`
	RetryCount        int    `json:"retry_count"`
}

// CommandType — вид входящей команды из TopicCommands.
type CommandType string

const (
	CommandAllocate   CommandType = "allocate"
	CommandDeallocate CommandType = "deallocate"
	CommandAddBatch   CommandType = "add_batch"
)

// Command — входящая команда сервиса размещения.
//
// Для allocate/deallocate обязательны order_id, sku и qty; для add_batch —
// batch_ref, sku, qty и опциональная eta в формате YYYY-MM-DD.
type Command struct {
	Type     CommandType `json:"type" validate:"required,oneof=allocate deallocate add_batch"`
	OrderID  string      `json:"order_id" validate:"required_unless=Type add_batch"`
	SKU      string      `json:"sku" validate:"required"`
	Qty      int32       `json:"qty" validate:"gt=0"`
	BatchRef string      `json:"batch_ref" validate:"required_if=Type add_batch"`
	ETA      string      `json:"eta,omitempty" validate:"omitempty,datetime=2006-01-02"`
}
