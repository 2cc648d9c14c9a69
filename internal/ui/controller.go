// Package ui - логика экрана погоды, независимая от конкретного вывода.
//
// Все методы Controller вызываются только из UI-горутины (mainloop).
package ui

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gometeo/weatherapp/internal/location"
	"github.com/gometeo/weatherapp/internal/mainloop"
	"github.com/gometeo/weatherapp/internal/manager"
	"github.com/gometeo/weatherapp/internal/model"
)

const (
	EmptyInputPlaceholder = "Type something"
	snapshotTimeout       = 3 * time.Second
)

type State int

const (
	StateIdle State = iota
	StateAwaitingLocation
)

func (s State) String() string {
	if s == StateAwaitingLocation {
		return "awaiting_location_permission"
	}
	return "idle"
}

// Display - три поля экрана плюс строка ввода.
type Display interface {
	SetTemperature(text string)
	SetConditionIcon(icon model.Icon)
	SetCity(name string)
	SetPlaceholder(text string)
	ClearInput()
}

// WeatherManager - то, что контроллеру нужно от manager.Manager.
type WeatherManager interface {
	SetHandler(h manager.Handler)
	FetchByCity(name string) uint64
	FetchByCoordinates(lat, lon float64) uint64
}

// Snapshots хранит последнюю показанную погоду между запусками.
type Snapshots interface {
	Last(ctx context.Context) (*model.Weather, error)
	Save(ctx context.Context, w model.Weather) error
	Delete(ctx context.Context) error
}

type Controller struct {
	manager    WeatherManager
	locator    location.Provider
	display    Display
	dispatcher mainloop.Dispatcher
	snapshots  Snapshots
	logger     *slog.Logger

	state   State
	current *model.Weather
	lastErr error
}

type Option func(*Controller)

func WithSnapshots(s Snapshots) Option {
	return func(c *Controller) {
		c.snapshots = s
	}
}

// New создает контроллер и назначает его обработчиком результатов менеджера.
func New(m WeatherManager, locator location.Provider, display Display, dispatcher mainloop.Dispatcher, logger *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		manager:    m,
		locator:    locator,
		display:    display,
		dispatcher: dispatcher,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	m.SetHandler(c)
	return c
}

// Load - аналог загрузки экрана: восстановить последнее состояние,
// запросить разрешение и одноразовый фикс геолокации.
func (c *Controller) Load(ctx context.Context) {
	c.restoreSnapshot(ctx)

	auth := c.locator.RequestAuthorization(ctx)
	c.logger.Info("Статус геолокации", "authorization", auth.String())

	c.requestLocation(ctx)
}

// LocationButtonPressed запрашивает новый фикс геолокации.
func (c *Controller) LocationButtonPressed(ctx context.Context) {
	c.requestLocation(ctx)
}

// ShouldEndEditing отклоняет пустой ввод и показывает подсказку.
func (c *Controller) ShouldEndEditing(text string) bool {
	if strings.TrimSpace(text) != "" {
		return true
	}
	c.display.SetPlaceholder(EmptyInputPlaceholder)
	return false
}

// Submit запускает поиск по городу и очищает строку ввода.
func (c *Controller) Submit(text string) bool {
	if !c.ShouldEndEditing(text) {
		return false
	}
	id := c.manager.FetchByCity(text)
	c.logger.Debug("Поиск города", "city", text, "request_id", id)
	c.display.ClearInput()
	return true
}

// Forget удаляет сохраненную погоду, экран при этом не меняется.
func (c *Controller) Forget(ctx context.Context) {
	if c.snapshots == nil {
		c.display.SetPlaceholder("Сохранение погоды выключено")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()

	if err := c.snapshots.Delete(ctx); err != nil {
		c.lastErr = err
		c.logger.Warn("Не удалось удалить последнюю погоду", "error", err)
		return
	}
	c.display.SetPlaceholder("Последняя погода забыта")
}

// HandleWeather вызывается менеджером в UI-горутине.
func (c *Controller) HandleWeather(res manager.Result) {
	if !res.OK() {
		// Ошибка только логируется, экран сохраняет прежнюю погоду.
		c.lastErr = res.Err
		c.logger.Error("Ошибка получения погоды",
			"request_id", res.RequestID,
			"query", res.Query.String(),
			"error", res.Err)
		return
	}

	c.lastErr = nil
	c.render(res.Weather)
	c.saveSnapshot(res.Weather)
}

func (c *Controller) State() State {
	return c.state
}

// Current возвращает показанную погоду, если она есть.
func (c *Controller) Current() (model.Weather, bool) {
	if c.current == nil {
		return model.Weather{}, false
	}
	return *c.current, true
}

func (c *Controller) LastError() error {
	return c.lastErr
}

func (c *Controller) requestLocation(ctx context.Context) {
	c.state = StateAwaitingLocation
	c.locator.RequestLocation(ctx, func(u location.Update) {
		if err := c.dispatcher.Dispatch(func() { c.didUpdateLocation(u) }); err != nil {
			c.logger.Warn("Координаты не доставлены", "error", err)
		}
	})
}

func (c *Controller) didUpdateLocation(u location.Update) {
	c.state = StateIdle

	if u.Err != nil {
		c.lastErr = u.Err
		c.logger.Error("Ошибка геолокации", "error", u.Err)
		return
	}

	c.locator.StopUpdatingLocation()
	id := c.manager.FetchByCoordinates(u.Coordinates.Latitude, u.Coordinates.Longitude)
	c.logger.Debug("Поиск по координатам",
		"lat", u.Coordinates.Latitude,
		"lon", u.Coordinates.Longitude,
		"request_id", id)
}

func (c *Controller) render(w model.Weather) {
	c.current = &w
	c.display.SetTemperature(w.TemperatureString())
	c.display.SetConditionIcon(w.ConditionName())
	c.display.SetCity(w.CityName)
}

func (c *Controller) restoreSnapshot(ctx context.Context) {
	if c.snapshots == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()

	w, err := c.snapshots.Last(ctx)
	if err != nil {
		c.logger.Warn("Не удалось прочитать последнюю погоду", "error", err)
		return
	}
	if w == nil {
		return
	}

	c.logger.Info("Восстановлена последняя погода", "city", w.CityName)
	c.render(*w)
}

func (c *Controller) saveSnapshot(w model.Weather) {
	if c.snapshots == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
		defer cancel()

		if err := c.snapshots.Save(ctx, w); err != nil {
			c.logger.Warn("Не удалось сохранить последнюю погоду", "city", w.CityName, "error", err)
		}
	}()
}

var _ manager.Handler = (*Controller)(nil)
