package model

import "time"

// WeatherResponse - ответ API с текущей погодой
type WeatherResponse struct {
	Weather
	TemperatureString string `json:"temperature_string"`
	ConditionName     Icon   `json:"condition_name"`
	Source            string `json:"source"`
}

// NewWeatherResponse заполняет производные поля модели
func NewWeatherResponse(w Weather, source string) WeatherResponse {
	return WeatherResponse{
		Weather:           w,
		TemperatureString: w.TemperatureString(),
		ConditionName:     w.ConditionName(),
		Source:            source,
	}
}

// ObservationsResponse - история наблюдений по городу
type ObservationsResponse struct {
	City         string        `json:"city"`
	Observations []Observation `json:"observations"`
	Total        int           `json:"total"`
}

// CitiesResponse - список городов, по которым есть наблюдения
type CitiesResponse struct {
	Cities []string `json:"cities"`
	Total  int      `json:"total"`
}

// LastKnownResponse - последняя показанная клиентом погода
type LastKnownResponse struct {
	WeatherResponse
	SavedAt time.Time `json:"saved_at"`
}

// ErrorResponse - тело ответа с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
