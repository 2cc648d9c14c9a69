package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gometeo/weatherapp/internal/api"
	"github.com/gometeo/weatherapp/internal/api/handlers"
	"github.com/gometeo/weatherapp/internal/config"
	"github.com/gometeo/weatherapp/internal/logger"
	"github.com/gometeo/weatherapp/internal/openweather"
	"github.com/gometeo/weatherapp/internal/snapshot"
	"github.com/gometeo/weatherapp/internal/storage"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(os.Stdout, cfg.Env, cfg.LogLevel, "weather-api")
	log.Info("Запуск Weather API сервиса...")

	if err := cfg.ValidateClient(); err != nil {
		log.Error("Некорректная конфигурация", "error", err)
		os.Exit(1)
	}

	log.Info("Конфигурация загружена",
		"port", cfg.HTTPPort,
		"redis_enabled", cfg.Redis.Enabled,
		"owm_timeout", cfg.OpenWeather.Timeout)

	client := openweather.NewClient(openweather.Config{
		APIKey:  cfg.OpenWeather.APIKey,
		BaseURL: cfg.OpenWeather.BaseURL,
		Units:   cfg.OpenWeather.Units,
		Timeout: cfg.OpenWeather.Timeout,
	})

	// 1. Подключение к Postgres
	store, err := storage.New(cfg.DBDSN, log)
	if err != nil {
		log.Error("Не удалось подключиться к БД", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	log.Info("Успешное подключение к Postgres")

	// 2. Подключение к Redis (последняя погода клиента)
	var snapshots handlers.SnapshotStore
	if cfg.Redis.Enabled {
		snapStore, err := snapshot.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Profile, log)
		if err != nil {
			log.Error("Не удалось подключиться к Redis", "error", err)
			os.Exit(1)
		}
		defer snapStore.Close()
		snapshots = snapStore
	}

	// 3. Настройка маршрутизатора
	weatherHandler := handlers.NewWeatherHandler(client, store, snapshots, log)
	router := api.NewRouter(weatherHandler, log)

	// 4. Настройка HTTP сервера
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 5. Graceful shutdown
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("Сервер запущен", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Ошибка сервера", "error", err)
		}
	}()

	<-stopChan
	log.Info("Получен сигнал завершения...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Ошибка при остановке сервера", "error", err)
	} else {
		log.Info("Сервер остановлен")
	}
}
