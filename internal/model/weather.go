package model

import (
	"math"
	"strconv"
	"time"
)

// Icon - идентификатор иконки погодного состояния
type Icon string

const (
	IconThunderstorm Icon = "cloud.bolt"
	IconRain         Icon = "cloud.rain"
	IconSnow         Icon = "cloud.snow"
	IconAtmosphere   Icon = "sun.haze"
	IconClear        Icon = "sun.max"
	IconCloud        Icon = "cloud"
)

// Weather - текущая погода, полученная из одного успешного ответа провайдера.
// Значение неизменяемо: на каждый ответ создается новое.
type Weather struct {
	ConditionID int     `json:"condition_id"`
	CityName    string  `json:"city_name"`
	Temperature float64 `json:"temperature"`
}

// TemperatureString округляет температуру до ближайшего целого.
func (w Weather) TemperatureString() string {
	rounded := math.Round(w.Temperature)
	if rounded == 0 {
		rounded = 0 // -0 -> 0
	}
	return strconv.FormatFloat(rounded, 'f', 0, 64)
}

// ConditionName выбирает иконку по диапазону кода состояния
func (w Weather) ConditionName() Icon {
	return IconFor(w.ConditionID)
}

// IconFor сопоставляет код состояния OpenWeatherMap с иконкой.
func IconFor(conditionID int) Icon {
	switch {
	case conditionID < 300:
		return IconThunderstorm
	case conditionID < 600:
		return IconRain
	case conditionID < 700:
		return IconSnow
	case conditionID < 800:
		return IconAtmosphere
	case conditionID == 800:
		return IconClear
	default:
		return IconCloud
	}
}

// Emoji - представление иконки для терминала
func (i Icon) Emoji() string {
	switch i {
	case IconThunderstorm:
		return "⛈️"
	case IconRain:
		return "🌧️"
	case IconSnow:
		return "❄️"
	case IconAtmosphere:
		return "🌫️"
	case IconClear:
		return "☀️"
	case IconCloud:
		return "☁️"
	default:
		return "🌡️"
	}
}

// Observation - успешный запрос погоды, который летает через Kafka
type Observation struct {
	ID          string    `json:"id"`
	City        string    `json:"city"`
	Temp        float64   `json:"temperature"`
	ConditionID int       `json:"condition_id"`
	Condition   Icon      `json:"condition"`
	Query       string    `json:"query"`
	Provider    string    `json:"provider"`
	Timestamp   time.Time `json:"timestamp"`
}

// Weather восстанавливает модель из наблюдения
func (o Observation) Weather() Weather {
	return Weather{
		ConditionID: o.ConditionID,
		CityName:    o.City,
		Temperature: o.Temp,
	}
}
