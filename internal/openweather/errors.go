package openweather

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyConditionList - в ответе пустой список weather, индексировать нечего
	ErrEmptyConditionList = errors.New("пустой список погодных условий")
	// ErrEmptyCity - пустое название города, запрос не отправляется
	ErrEmptyCity = errors.New("не указан город")
	// ErrInvalidCoordinates - координаты вне допустимого диапазона
	ErrInvalidCoordinates = errors.New("некорректные координаты")
)

// TransportError - запрос не дошел до провайдера или ответ не удалось прочитать
// (DNS, сеть, таймаут, отмена контекста).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "ошибка сети: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError - тело ответа не соответствует ожидаемой схеме.
type DecodeError struct {
	Field string // отсутствующее поле, если ошибка в схеме
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("ошибка декодирования: нет поля %q", e.Field)
	}
	return "ошибка декодирования: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// APIError - ответ провайдера с кодом, отличным от 2xx.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ошибка API (HTTP %d)", e.StatusCode)
	}
	return fmt.Sprintf("ошибка API (HTTP %d): %s", e.StatusCode, e.Message)
}
