package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/gometeo/weatherapp/internal/config"
	"github.com/gometeo/weatherapp/internal/events"
	"github.com/gometeo/weatherapp/internal/location"
	"github.com/gometeo/weatherapp/internal/logger"
	"github.com/gometeo/weatherapp/internal/mainloop"
	"github.com/gometeo/weatherapp/internal/manager"
	"github.com/gometeo/weatherapp/internal/openweather"
	"github.com/gometeo/weatherapp/internal/snapshot"
	"github.com/gometeo/weatherapp/internal/ui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Экран пишет в stdout, логи - в stderr
	log := logger.New(os.Stderr, cfg.Env, cfg.LogLevel, "weather")

	if err := cfg.ValidateClient(); err != nil {
		log.Error("Некорректная конфигурация", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, os.Stdin, os.Stdout); err != nil {
		log.Error("Клиент завершился с ошибкой", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger, in io.Reader, out io.Writer) error {
	client := openweather.NewClient(openweather.Config{
		APIKey:  cfg.OpenWeather.APIKey,
		BaseURL: cfg.OpenWeather.BaseURL,
		Units:   cfg.OpenWeather.Units,
		Timeout: cfg.OpenWeather.Timeout,
	})

	loop := mainloop.New()

	var managerOpts []manager.Option
	if cfg.Kafka.Enabled {
		publisher, err := events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			// Без Kafka клиент работает, наблюдения просто не публикуются
			log.Warn("Kafka недоступна, публикация отключена", "error", err)
		} else {
			defer func() {
				if err := publisher.Close(); err != nil {
					log.Error("Ошибка при закрытии продюсера", "error", err)
				}
			}()
			managerOpts = append(managerOpts, manager.WithSink(publisher))
		}
	}

	weatherManager := manager.New(client, loop, log, managerOpts...)
	defer weatherManager.Close()

	var ctrlOpts []ui.Option
	if cfg.Redis.Enabled {
		store, err := snapshot.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Profile, log)
		if err != nil {
			log.Warn("Redis недоступен, последняя погода не сохраняется", "error", err)
		} else {
			defer store.Close()
			ctrlOpts = append(ctrlOpts, ui.WithSnapshots(store))
		}
	}

	locator := location.NewStatic(cfg.Location.Coordinates(), location.WithFixDelay(cfg.Location.FixDelay))
	display := ui.NewTerminal(out)
	ctrl := ui.New(weatherManager, locator, display, loop, log, ctrlOpts...)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	repl := &repl{
		ctx:     ctx,
		ctrl:    ctrl,
		display: display,
		loop:    loop,
		manager: weatherManager,
		locator: locator,
		quit:    cancel,
		log:     log,
	}

	fmt.Fprintln(out, "Weather CLI - введите город, /location или /quit")

	loop.Dispatch(func() {
		ctrl.Load(ctx)
		display.Prompt()
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return repl.run(gctx, readLines(in, gctx.Done()))
	})
	g.Go(func() error {
		err := loop.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	return g.Wait()
}
