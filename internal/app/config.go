package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/vladislavdragonenkov/stocks/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/stocks/internal/messaging/redis"
)

// EnvPrefix — префикс переменных окружения сервиса (STOCKS_GRPC_ADDR и т.д.).
const EnvPrefix = "STOCKS"

const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"

	EventBusNone  = "none"
	EventBusKafka = "kafka"
	EventBusRedis = "redis"

	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config описывает настройки запуска приложения.
type Config struct {
	GRPCAddr    string `envconfig:"GRPC_ADDR"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`

	StorageDriver       string `envconfig:"STORAGE_DRIVER"`
	PostgresDSN         string `envconfig:"POSTGRES_DSN"`
	PostgresAutoMigrate bool   `envconfig:"POSTGRES_AUTO_MIGRATE"`

	EventBus           string   `envconfig:"EVENT_BUS"`
	KafkaBrokers       []string `envconfig:"KAFKA_BROKERS"`
	KafkaEventsTopic   string   `envconfig:"KAFKA_EVENTS_TOPIC"`
	KafkaCommandsTopic string   `envconfig:"KAFKA_COMMANDS_TOPIC"`
	KafkaDLQTopic      string   `envconfig:"KAFKA_DLQ_TOPIC"`
	KafkaConsumerGroup string   `envconfig:"KAFKA_CONSUMER_GROUP"`
	RedisAddr          string   `envconfig:"REDIS_ADDR"`
	RedisChannel       string   `envconfig:"REDIS_CHANNEL"`

	OutboxPollInterval      time.Duration `envconfig:"OUTBOX_POLL_INTERVAL"`
	OutboxBatchSize         int           `envconfig:"OUTBOX_BATCH_SIZE"`
	OutboxMaxAttempts       int           `envconfig:"OUTBOX_MAX_ATTEMPTS"`
	OutboxRetryDelay        time.Duration `envconfig:"OUTBOX_RETRY_DELAY"`
	OutboxMaxAge            time.Duration `envconfig:"OUTBOX_MAX_PENDING_AGE"`
	OutboxRetention         time.Duration `envconfig:"OUTBOX_RETENTION"`
	OutboxRetentionInterval time.Duration `envconfig:"OUTBOX_RETENTION_INTERVAL"`

	AllocationMaxAttempts int           `envconfig:"ALLOCATION_MAX_ATTEMPTS"`
	AllocationRetryDelay  time.Duration `envconfig:"ALLOCATION_RETRY_DELAY"`

	LogLevel  string `envconfig:"LOG_LEVEL"`
	LogFormat string `envconfig:"LOG_FORMAT"`
}

// DefaultConfig возвращает настройки для локального запуска без внешних зависимостей.
func DefaultConfig() Config {
	return Config{
		GRPCAddr:    ":50051",
		MetricsAddr: ":9090",

		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,

		EventBus:           EventBusNone,
		KafkaEventsTopic:   kafka.TopicAllocationEvents,
		KafkaCommandsTopic: kafka.TopicCommands,
		KafkaDLQTopic:      kafka.TopicDeadLetterQueue,
		KafkaConsumerGroup: "stocks-service",
		RedisAddr:          "localhost:6379",
		RedisChannel:       redis.DefaultChannel,

		OutboxPollInterval:      time.Second,
		OutboxBatchSize:         100,
		OutboxMaxAttempts:       5,
		OutboxRetryDelay:        100 * time.Millisecond,
		OutboxMaxAge:            5 * time.Minute,
		OutboxRetention:         24 * time.Hour,
		OutboxRetentionInterval: 10 * time.Minute,

		AllocationMaxAttempts: 3,
		AllocationRetryDelay:  20 * time.Millisecond,

		LogLevel:  "info",
		LogFormat: LogFormatText,
	}
}

// LoadConfig накладывает переменные окружения STOCKS_* на DefaultConfig.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	cfg.EventBus = strings.ToLower(strings.TrimSpace(cfg.EventBus))
	cfg.PostgresDSN = strings.TrimSpace(cfg.PostgresDSN)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	var errs []error

	if c.GRPCAddr == "" {
		errs = append(errs, errors.New("grpc address is required"))
	}
	if c.MetricsAddr == "" {
		errs = append(errs, errors.New("metrics address is required"))
	}

	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("postgres dsn is required for postgres storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver %q", c.StorageDriver))
	}

	switch c.EventBus {
	case "", EventBusNone:
	case EventBusKafka:
		if len(c.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("kafka brokers are required for kafka event bus"))
		}
	case EventBusRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("redis address is required for redis event bus"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported event bus %q", c.EventBus))
	}

	switch c.LogFormat {
	case "", LogFormatText, LogFormatJSON:
	default:
		errs = append(errs, fmt.Errorf("unsupported log format %q", c.LogFormat))
	}

	if c.OutboxBatchSize <= 0 {
		errs = append(errs, errors.New("outbox batch size must be greater than zero"))
	}
	if c.OutboxMaxAttempts <= 0 {
		errs = append(errs, errors.New("outbox max attempts must be greater than zero"))
	}
	if c.OutboxRetention < 0 {
		errs = append(errs, errors.New("outbox retention must not be negative"))
	}
	if c.AllocationMaxAttempts <= 0 {
		errs = append(errs, errors.New("allocation max attempts must be greater than zero"))
	}

	return errors.Join(errs...)
}
