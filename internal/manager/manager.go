// Package manager выполняет запросы погоды и доставляет результат
// обработчику в UI-горутине.
//
// Каждый вызов FetchByCity/FetchByCoordinates получает монотонный номер.
// Результат доставляется, только если его номер больше номера последнего
// доставленного: поздний ответ на более старый запрос отбрасывается и не
// затирает свежие данные. Предыдущий запрос при этом не отменяется.
package manager

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gometeo/weatherapp/internal/mainloop"
	"github.com/gometeo/weatherapp/internal/model"
	"github.com/gometeo/weatherapp/internal/openweather"
)

// ErrClosed - менеджер закрыт, новые запросы не принимаются
var ErrClosed = errors.New("менеджер погоды закрыт")

const publishTimeout = 5 * time.Second

// Fetcher выполняет один запрос к провайдеру погоды.
type Fetcher interface {
	Current(ctx context.Context, q openweather.Query) (model.Weather, error)
}

// Sink получает успешные наблюдения (например, топик Kafka).
type Sink interface {
	Publish(ctx context.Context, obs model.Observation) error
}

// Result - итог одного запроса: либо Weather, либо Err.
type Result struct {
	RequestID uint64
	Query     openweather.Query
	Weather   model.Weather
	Err       error
}

func (r Result) OK() bool {
	return r.Err == nil
}

// Handler получает результаты в UI-горутине.
type Handler interface {
	HandleWeather(res Result)
}

type HandlerFunc func(res Result)

func (f HandlerFunc) HandleWeather(res Result) {
	f(res)
}

type Option func(*Manager)

// WithSink публикует каждое успешное наблюдение.
func WithSink(sink Sink) Option {
	return func(m *Manager) {
		m.sink = sink
	}
}

type Manager struct {
	fetcher    Fetcher
	dispatcher mainloop.Dispatcher
	sink       Sink
	logger     *slog.Logger

	nextID atomic.Uint64

	mu        sync.Mutex
	handler   Handler
	delivered uint64
	closed    bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(fetcher Fetcher, dispatcher mainloop.Dispatcher, logger *slog.Logger, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		fetcher:    fetcher,
		dispatcher: dispatcher,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetHandler назначает получателя результатов.
func (m *Manager) SetHandler(h Handler) {
	m.mu.Lock()
	m.handler = h
	m.mu.Unlock()
}

// FetchByCity запускает запрос по названию города и сразу возвращает его номер.
func (m *Manager) FetchByCity(name string) uint64 {
	return m.perform(openweather.ByCity(name))
}

// FetchByCoordinates запускает запрос по координатам.
func (m *Manager) FetchByCoordinates(lat, lon float64) uint64 {
	return m.perform(openweather.ByCoordinates(lat, lon))
}

func (m *Manager) perform(q openweather.Query) uint64 {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.logger.Warn("Запрос отклонен", "query", q.String(), "error", ErrClosed)
		return 0
	}
	id := m.nextID.Add(1)
	m.wg.Add(1)
	m.mu.Unlock()

	m.logger.Debug("Запрос погоды", "request_id", id, "query", q.String())

	go func() {
		defer m.wg.Done()

		start := time.Now()
		w, err := m.fetcher.Current(m.ctx, q)
		res := Result{RequestID: id, Query: q, Weather: w, Err: err}

		if err != nil {
			m.logger.Warn("Не удалось получить погоду",
				"request_id", id,
				"query", q.String(),
				"duration_ms", time.Since(start).Milliseconds(),
				"error", err)
		} else {
			m.logger.Info("Погода получена",
				"request_id", id,
				"city", w.CityName,
				"temp", w.Temperature,
				"condition", w.ConditionName(),
				"duration_ms", time.Since(start).Milliseconds())
		}

		if err := m.dispatcher.Dispatch(func() { m.deliver(res) }); err != nil {
			m.logger.Warn("Результат не доставлен", "request_id", id, "error", err)
		}

		if res.OK() && m.sink != nil {
			m.publish(q, w)
		}
	}()

	return id
}

func (m *Manager) deliver(res Result) {
	m.mu.Lock()
	if res.RequestID <= m.delivered {
		latest := m.delivered
		m.mu.Unlock()
		m.logger.Debug("Устаревший ответ отброшен",
			"request_id", res.RequestID,
			"delivered_id", latest)
		return
	}
	m.delivered = res.RequestID
	h := m.handler
	m.mu.Unlock()

	if h != nil {
		h.HandleWeather(res)
	}
}

func (m *Manager) publish(q openweather.Query, w model.Weather) {
	obs := model.Observation{
		ID:          uuid.NewString(),
		City:        w.CityName,
		Temp:        w.Temperature,
		ConditionID: w.ConditionID,
		Condition:   w.ConditionName(),
		Query:       q.String(),
		Provider:    openweather.ProviderName,
		Timestamp:   time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(m.ctx, publishTimeout)
	defer cancel()

	if err := m.sink.Publish(ctx, obs); err != nil {
		m.logger.Warn("Не удалось опубликовать наблюдение", "city", obs.City, "error", err)
	}
}

// Drain перестает принимать новые запросы и ждет завершения запросов
// в полете, не отменяя их. После Drain FetchBy* возвращают 0.
func (m *Manager) Drain() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.wg.Wait()
}

// Close отменяет запросы в полете и ждет их завершения.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
}
