package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/gometeo/weatherapp/internal/model"
)

// Store - куда агрегатор сохраняет наблюдения
type Store interface {
	Save(ctx context.Context, obs model.Observation) error
}

func NewConsumerGroup(brokers []string, group string) (sarama.ConsumerGroup, error) {
	config := sarama.NewConfig()
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	consumer, err := sarama.NewConsumerGroup(brokers, group, config)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Kafka consumer: %w", err)
	}
	return consumer, nil
}

// DefaultRetryDelay - пауза перед завершением сессии после ошибки БД
const DefaultRetryDelay = 2 * time.Second

// ConsumerHandler пишет наблюдения из топика в хранилище.
type ConsumerHandler struct {
	logger     *slog.Logger
	store      Store
	retryDelay time.Duration
}

func NewConsumerHandler(store Store, logger *slog.Logger) *ConsumerHandler {
	return &ConsumerHandler{logger: logger, store: store, retryDelay: DefaultRetryDelay}
}

func (h *ConsumerHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *ConsumerHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim помечает сообщения строго по порядку. Если запись в БД
// не удалась, обработка партиции прекращается: сессия завершается, и после
// перебалансировки чтение продолжится с последнего закоммиченного offset,
// то есть с неудавшегося сообщения.
func (h *ConsumerHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if err := h.handle(sess.Context(), msg.Value); err != nil {
			h.logger.Warn("Чтение партиции остановлено до повтора",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset)
			h.backoff(sess.Context())
			return fmt.Errorf("offset %d: %w", msg.Offset, err)
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}

// handle возвращает ошибку, только если сообщение нужно прочитать снова.
func (h *ConsumerHandler) handle(ctx context.Context, value []byte) error {
	var obs model.Observation
	if err := json.Unmarshal(value, &obs); err != nil {
		// Битое сообщение не станет валидным при повторе
		h.logger.Error("Битый JSON", "error", err)
		return nil
	}
	if obs.ID == "" || obs.City == "" {
		h.logger.Error("Наблюдение без id или города", "id", obs.ID, "city", obs.City)
		return nil
	}

	if err := h.store.Save(ctx, obs); err != nil {
		h.logger.Error("Ошибка записи в БД", "city", obs.City, "error", err)
		return err
	}

	h.logger.Info("Наблюдение сохранено в БД",
		"city", obs.City,
		"temp", obs.Temp)
	return nil
}

func (h *ConsumerHandler) backoff(ctx context.Context) {
	if h.retryDelay <= 0 {
		return
	}
	t := time.NewTimer(h.retryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Consume читает топик, пока не отменен ctx.
func Consume(ctx context.Context, group sarama.ConsumerGroup, topic string, handler sarama.ConsumerGroupHandler, logger *slog.Logger) {
	go func() {
		for err := range group.Errors() {
			logger.Error("Ошибка consumer group", "error", err)
		}
	}()

	for {
		if err := group.Consume(ctx, []string{topic}, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return
			}
			logger.Error("Ошибка при чтении Kafka", "error", err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}
