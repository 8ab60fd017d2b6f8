package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/stocks/internal/domain"
	"github.com/vladislavdragonenkov/stocks/internal/service/allocation"
)

// AllocationService — операции сервиса размещения, доступные из команд.
type AllocationService interface {
	AddBatch(ctx context.Context, reference, sku string, qty int32, eta *time.Time) (*domain.Batch, error)
	Allocate(ctx context.Context, line domain.OrderLine) (string, error)
	Deallocate(ctx context.Context, line domain.OrderLine) (string, error)
}

// CommandHandler декодирует команды из TopicCommands и вызывает сервис размещения.
type CommandHandler struct {
	service  AllocationService
	validate *validator.Validate
	logger   *log.Entry
}

// NewCommandHandler создаёт обработчик команд.
func NewCommandHandler(service AllocationService, logger *log.Entry) *CommandHandler {
	if logger == nil {
		logger = log.WithField("component", "kafka-command-handler")
	}
	return &CommandHandler{
		service:  service,
		validate: newValidator(),
		logger:   logger,
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// Handle реализует MessageHandler.
//
// Бизнес-исходы (нет стока, строка уже снята, партия уже существует) не
// считаются ошибкой обработки. Некорректные команды возвращают ErrPermanent.
func (h *CommandHandler) Handle(ctx context.Context, message *sarama.ConsumerMessage) error {
	cmd, err := h.Decode(message.Value)
	if err != nil {
		return err
	}

	fields := log.Fields{
		"command":  cmd.Type,
		"order_id": cmd.OrderID,
		"sku":      cmd.SKU,
		"qty":      cmd.Qty,
	}

	switch cmd.Type {
	case CommandAllocate:
		ref, err := h.service.Allocate(ctx, domain.OrderLine{OrderID: cmd.OrderID, SKU: cmd.SKU, Qty: cmd.Qty})
		switch {
		case err == nil:
			h.logger.WithFields(fields).WithField("batch_ref", ref).Debug("allocate command applied")
			return nil
		case domain.IsOutOfStock(err):
			h.logger.WithFields(fields).Info("allocate command: out of stock")
			return nil
		default:
			return h.classify(err)
		}

	case CommandDeallocate:
		_, err := h.service.Deallocate(ctx, domain.OrderLine{OrderID: cmd.OrderID, SKU: cmd.SKU, Qty: cmd.Qty})
		if err == nil || errors.Is(err, domain.ErrAllocationNotFound) {
			return nil
		}
		return h.classify(err)

	case CommandAddBatch:
		eta, err := allocation.ParseETA(cmd.ETA)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPermanent, err)
		}
		_, err = h.service.AddBatch(ctx, cmd.BatchRef, cmd.SKU, cmd.Qty, eta)
		if err == nil || errors.Is(err, domain.ErrBatchAlreadyExists) {
			// Повторная доставка той же команды не должна попадать в DLQ.
			return nil
		}
		return h.classify(err)
	}

	return fmt.Errorf("%w: unsupported command type %q", ErrPermanent, cmd.Type)
}

// Decode разбирает и валидирует команду.
func (h *CommandHandler) Decode(raw []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return Command{}, fmt.Errorf("%w: decode command: %v", ErrPermanent, err)
	}
	if err := h.validate.Struct(cmd); err != nil {
		return Command{}, fmt.Errorf("%w: %s", ErrPermanent, describeValidation(err))
	}
	return cmd, nil
}

func (h *CommandHandler) classify(err error) error {
	if domain.IsValidationError(err) {
		return fmt.Errorf("%w: %v", ErrPermanent, err)
	}
	return err
}

func describeValidation(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err.Error()
	}
	parts := make([]string, 0, len(errs))
	for _, fieldErr := range errs {
		parts = append(parts, fmt.Sprintf("%s failed on %s", fieldErr.Field(), fieldErr.Tag()))
	}
	return "invalid command: " + strings.Join(parts, ", ")
}
