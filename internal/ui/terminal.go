package ui

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"github.com/gometeo/weatherapp/internal/model"
)

// Terminal выводит экран погоды в текстовый поток.
// Контроллер обновляет поля в порядке температура, иконка, город,
// поэтому карточка печатается на SetCity.
type Terminal struct {
	mu          sync.Mutex
	out         io.Writer
	temperature string
	icon        model.Icon
	city        string
	placeholder string
}

func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out, temperature: "--", city: "-"}
}

func (t *Terminal) SetTemperature(text string) {
	t.mu.Lock()
	t.temperature = text
	t.mu.Unlock()
}

func (t *Terminal) SetConditionIcon(icon model.Icon) {
	t.mu.Lock()
	t.icon = icon
	t.mu.Unlock()
}

func (t *Terminal) SetCity(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.city = name
	t.print()
}

func (t *Terminal) SetPlaceholder(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.placeholder = text
	fmt.Fprintf(t.out, "(%s)\n", text)
}

func (t *Terminal) ClearInput() {
	t.mu.Lock()
	t.placeholder = ""
	t.mu.Unlock()
}

// Prompt печатает приглашение ко вводу
func (t *Terminal) Prompt() {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprint(t.out, "weather> ")
}

func (t *Terminal) print() {
	fmt.Fprintf(t.out, "\n%s  %s\n", t.icon.Emoji(), t.city)

	tw := tabwriter.NewWriter(t.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Температура:\t%s°C\n", t.temperature)
	fmt.Fprintf(tw, "Состояние:\t%s\n", t.icon)
	tw.Flush()

	fmt.Fprintln(t.out)
}

var _ Display = (*Terminal)(nil)
