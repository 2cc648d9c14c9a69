// Package events - доставка наблюдений через Kafka:
// клиент публикует, агрегатор читает и пишет в Postgres.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IBM/sarama"

	"github.com/gometeo/weatherapp/internal/model"
)

const DefaultTopic = "weather_data"

type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

func NewPublisher(brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	// Ждем подтверждения от всех реплик, что сообщение записано
	config.Producer.RequiredAcks = sarama.WaitForAll

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к Kafka: %w", err)
	}

	return NewPublisherWithProducer(producer, topic, logger), nil
}

func NewPublisherWithProducer(producer sarama.SyncProducer, topic string, logger *slog.Logger) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{producer: producer, topic: topic, logger: logger}
}

// Publish отправляет наблюдение; ключ - город, чтобы наблюдения
// одного города попадали в одну партицию.
func (p *Publisher) Publish(ctx context.Context, obs model.Observation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	bytes, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("ошибка JSON: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strings.ToLower(obs.City)),
		Value: sarama.ByteEncoder(bytes),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("не удалось отправить сообщение: %w", err)
	}

	p.logger.Info("Наблюдение отправлено",
		"city", obs.City,
		"temp", obs.Temp,
		"partition", partition,
		"offset", offset)
	return nil
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}
