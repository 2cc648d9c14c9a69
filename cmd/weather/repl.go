package main

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/gometeo/weatherapp/internal/mainloop"
	"github.com/gometeo/weatherapp/internal/manager"
	"github.com/gometeo/weatherapp/internal/ui"
)

// repl переводит строки ввода в действия контроллера.
// Сам контроллер трогается только через loop.
type repl struct {
	ctx     context.Context
	ctrl    *ui.Controller
	display *ui.Terminal
	loop    mainloop.Dispatcher
	manager *manager.Manager
	locator waiter
	quit    context.CancelFunc
	log     *slog.Logger
}

type waiter interface {
	Wait()
}

func (r *repl) run(ctx context.Context, lines <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				r.shutdown()
				return nil
			}
			if !r.handle(strings.TrimSpace(line)) {
				r.shutdown()
				return nil
			}
		}
	}
}

// handle возвращает false на команду выхода
func (r *repl) handle(line string) bool {
	switch line {
	case "/quit", "/exit":
		return false
	case "/location":
		r.dispatch(func() {
			r.ctrl.LocationButtonPressed(r.ctx)
			r.display.Prompt()
		})
	case "/forget":
		r.dispatch(func() {
			r.ctrl.Forget(r.ctx)
			r.display.Prompt()
		})
	case "/help":
		r.dispatch(func() {
			r.display.SetPlaceholder("город - поиск, /location - погода здесь, /forget - забыть последнюю погоду, /quit - выход")
			r.display.Prompt()
		})
	default:
		r.dispatch(func() {
			r.ctrl.Submit(line)
			r.display.Prompt()
		})
	}
	return true
}

// shutdown дожидается ответов на уже отправленные запросы
// и останавливает цикл после их отрисовки.
// Сначала ждем фикс геолокации из Load: его обработка в цикле
// еще может запустить запрос по координатам. Только потом менеджер
// перестает принимать запросы и дожидается тех, что в полете.
func (r *repl) shutdown() {
	r.waitThen(r.locator.Wait, func() {
		r.waitThen(r.manager.Drain, r.quit)
	})
}

// waitThen ставит в очередь задачу, которая запускает wait вне цикла
// после всего, что уже в очереди, а затем выполняет then в цикле.
func (r *repl) waitThen(wait func(), then func()) {
	r.dispatch(func() {
		go func() {
			wait()
			r.dispatch(then)
		}()
	})
}

func (r *repl) dispatch(fn func()) {
	if err := r.loop.Dispatch(fn); err != nil {
		r.log.Warn("Команда не выполнена", "error", err)
	}
}

// readLines читает ввод построчно в отдельной горутине.
// Канал закрывается на EOF или после закрытия done.
func readLines(in io.Reader, done <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()
	return lines
}
