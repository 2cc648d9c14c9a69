// Package location - источник координат устройства.
package location

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrPermissionDenied - пользователь не разрешил доступ к геолокации
var ErrPermissionDenied = errors.New("доступ к геолокации запрещен")

type Authorization int

const (
	NotDetermined Authorization = iota
	Denied
	AuthorizedWhenInUse
)

func (a Authorization) String() string {
	switch a {
	case Denied:
		return "denied"
	case AuthorizedWhenInUse:
		return "authorized_when_in_use"
	default:
		return "not_determined"
	}
}

type Coordinates struct {
	Latitude  float64 `json:"lat" yaml:"lat"`
	Longitude float64 `json:"lon" yaml:"lon"`
}

// Update - результат одного запроса координат: Coordinates или Err.
type Update struct {
	Coordinates Coordinates
	Err         error
}

// Provider выдает координаты асинхронно, по одному фиксу на запрос.
type Provider interface {
	RequestAuthorization(ctx context.Context) Authorization
	// RequestLocation вызывает fn ровно один раз, если обновления
	// не были остановлены раньше.
	RequestLocation(ctx context.Context, fn func(Update))
	StopUpdatingLocation()
}

// Static отдает заранее заданные координаты (из конфигурации).
// Без координат ведет себя как устройство с запрещенной геолокацией.
type Static struct {
	coords *Coordinates
	delay  time.Duration

	mu         sync.Mutex
	generation uint64
	wg         sync.WaitGroup
}

type StaticOption func(*Static)

// WithFixDelay задерживает выдачу фикса, как у настоящего GPS.
func WithFixDelay(d time.Duration) StaticOption {
	return func(s *Static) {
		s.delay = d
	}
}

func NewStatic(coords *Coordinates, opts ...StaticOption) *Static {
	s := &Static{coords: coords}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Static) RequestAuthorization(_ context.Context) Authorization {
	if s.coords == nil {
		return Denied
	}
	return AuthorizedWhenInUse
}

func (s *Static) RequestLocation(ctx context.Context, fn func(Update)) {
	s.mu.Lock()
	gen := s.generation
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()

		update := Update{Err: ErrPermissionDenied}
		if s.coords != nil {
			update = Update{Coordinates: *s.coords}
		}
		s.sleep(ctx)
		if err := ctx.Err(); err != nil {
			update = Update{Err: err}
		}

		s.mu.Lock()
		stopped := gen != s.generation
		s.mu.Unlock()
		if stopped {
			return
		}
		fn(update)
	}()
}

func (s *Static) sleep(ctx context.Context) {
	if s.delay <= 0 {
		return
	}
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// StopUpdatingLocation отменяет еще не доставленные фиксы.
func (s *Static) StopUpdatingLocation() {
	s.mu.Lock()
	s.generation++
	s.mu.Unlock()
}

// Wait ждет завершения всех выданных запросов.
func (s *Static) Wait() {
	s.wg.Wait()
}

var _ Provider = (*Static)(nil)
