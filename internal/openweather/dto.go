package openweather

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/gometeo/weatherapp/internal/model"
)

// WeatherData повторяет JSON ответа /data/2.5/weather.
// Указатели отличают отсутствующее поле от нулевого значения.
type WeatherData struct {
	Name    *string     `json:"name"`
	Main    *Main       `json:"main"`
	Weather []Condition `json:"weather"`
}

type Main struct {
	Temp *float64 `json:"temp"`
}

type Condition struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// apiErrorBody - тело ошибки провайдера, cod бывает числом или строкой
type apiErrorBody struct {
	Cod     any    `json:"cod"`
	Message string `json:"message"`
}

// Decode разбирает тело ответа и строит модель погоды.
func Decode(body []byte) (model.Weather, error) {
	var data WeatherData
	if err := json.Unmarshal(body, &data); err != nil {
		return model.Weather{}, &DecodeError{Err: err}
	}
	return data.Model()
}

// Model проверяет обязательные поля и возвращает плоскую модель.
func (d WeatherData) Model() (model.Weather, error) {
	switch {
	case d.Name == nil:
		return model.Weather{}, &DecodeError{Field: "name"}
	case d.Main == nil:
		return model.Weather{}, &DecodeError{Field: "main"}
	case d.Main.Temp == nil:
		return model.Weather{}, &DecodeError{Field: "main.temp"}
	case d.Weather == nil:
		return model.Weather{}, &DecodeError{Field: "weather"}
	}

	if len(d.Weather) == 0 {
		return model.Weather{}, ErrEmptyConditionList
	}

	temp := *d.Main.Temp
	if math.IsNaN(temp) || math.IsInf(temp, 0) {
		return model.Weather{}, &DecodeError{Err: fmt.Errorf("температура не является конечным числом: %v", temp)}
	}

	return model.Weather{
		ConditionID: d.Weather[0].ID,
		CityName:    *d.Name,
		Temperature: temp,
	}, nil
}
