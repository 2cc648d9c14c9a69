// Package mainloop - единственная "UI-горутина" приложения.
//
// Все изменения состояния экрана выполняются через Loop.Dispatch:
// сетевые ответы и события геолокации приходят из других горутин
// и ставятся в очередь, а Loop.Run выполняет их по одной в порядке FIFO.
package mainloop

import (
	"context"
	"errors"
	"sync"
)

// ErrStopped - цикл уже остановлен, задача не будет выполнена
var ErrStopped = errors.New("цикл остановлен")

// Dispatcher ставит функцию на выполнение в UI-горутине.
type Dispatcher interface {
	Dispatch(fn func()) error
}

// Loop - очередь задач для UI-горутины
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped bool
}

func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Dispatch никогда не блокируется: очередь не ограничена.
func (l *Loop) Dispatch(fn func()) error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return ErrStopped
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// Run выполняет задачи в вызывающей горутине, пока не отменен ctx.
// Задачи, поставленные до отмены, но не выполненные, отбрасываются.
func (l *Loop) Run(ctx context.Context) error {
	defer l.stop()

	for {
		for _, fn := range l.drain() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fn()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

func (l *Loop) drain() []func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	batch := l.queue
	l.queue = nil
	return batch
}

func (l *Loop) stop() {
	l.mu.Lock()
	l.stopped = true
	l.queue = nil
	l.mu.Unlock()
}

// Immediate выполняет функцию сразу в вызывающей горутине.
// Используется в тестах, где очередь не нужна.
type Immediate struct{}

func (Immediate) Dispatch(fn func()) error {
	fn()
	return nil
}

var (
	_ Dispatcher = (*Loop)(nil)
	_ Dispatcher = Immediate{}
)
