package openweather

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Query описывает, для какого места запрашивается погода:
// по названию города или по координатам.
type Query struct {
	City      string
	Latitude  float64
	Longitude float64
	byCoords  bool
}

// ByCity - запрос по названию города
func ByCity(name string) Query {
	return Query{City: strings.TrimSpace(name)}
}

// ByCoordinates - запрос по географическим координатам
func ByCoordinates(lat, lon float64) Query {
	return Query{Latitude: lat, Longitude: lon, byCoords: true}
}

// IsCoordinates сообщает, что запрос построен по координатам
func (q Query) IsCoordinates() bool {
	return q.byCoords
}

// Validate проверяет запрос до сетевого вызова.
func (q Query) Validate() error {
	if q.byCoords {
		if !validCoordinates(q.Latitude, q.Longitude) {
			return fmt.Errorf("%w: lat=%v lon=%v", ErrInvalidCoordinates, q.Latitude, q.Longitude)
		}
		return nil
	}
	if q.City == "" {
		return ErrEmptyCity
	}
	return nil
}

func (q Query) String() string {
	if q.byCoords {
		return "lat=" + formatCoord(q.Latitude) + "&lon=" + formatCoord(q.Longitude)
	}
	return "q=" + q.City
}

func (q Query) apply(values url.Values) {
	if q.byCoords {
		values.Set("lat", formatCoord(q.Latitude))
		values.Set("lon", formatCoord(q.Longitude))
		return
	}
	values.Set("q", q.City)
}

// NaN не проходит ни одно сравнение, поэтому проверяется отдельно
func validCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
