package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gometeo/weatherapp/internal/config"
	"github.com/gometeo/weatherapp/internal/events"
	"github.com/gometeo/weatherapp/internal/logger"
	"github.com/gometeo/weatherapp/internal/storage"
)

const maxRetries = 5

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(os.Stdout, cfg.Env, cfg.LogLevel, "weather-aggregator")
	log.Info("Запуск Weather Aggregator...")

	// 1. Подключение к Postgres с повторами: БД может подниматься дольше нас
	var store *storage.ObservationStorage
	for i := 0; i < maxRetries; i++ {
		store, err = storage.New(cfg.DBDSN, log)
		if err == nil {
			break
		}
		log.Warn("Не удалось подключиться к БД. Повторная попытка через 3с...",
			"attempt", i+1, "max", maxRetries, "error", err)
		time.Sleep(3 * time.Second)
	}

	if store == nil {
		log.Error("Не удалось подключиться к БД после всех попыток. Выход.", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	log.Info("Успешное подключение к Postgres")

	// 2. Настройка Kafka Consumer
	consumer, err := events.NewConsumerGroup(cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup)
	if err != nil {
		log.Error("Ошибка создания Kafka consumer", "error", err)
		os.Exit(1)
	}

	// 3. Запуск цикла чтения
	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	wg.Add(1)

	go func() {
		defer wg.Done()
		handler := events.NewConsumerHandler(store, log)
		events.Consume(ctx, consumer, cfg.Kafka.Topic, handler, log)
	}()

	// 4. Graceful Shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Остановка сервиса...")
	cancel()
	wg.Wait()
	if err := consumer.Close(); err != nil {
		log.Error("Ошибка при закрытии consumer", "error", err)
	}
}
