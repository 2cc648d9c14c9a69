package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/gometeo/weatherapp/internal/model"
	"github.com/gometeo/weatherapp/internal/openweather"
	"github.com/gometeo/weatherapp/internal/snapshot"
	"github.com/gometeo/weatherapp/internal/storage"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type WeatherFetcher interface {
	Current(ctx context.Context, q openweather.Query) (model.Weather, error)
}

type ObservationStore interface {
	History(ctx context.Context, city string, limit int) ([]model.Observation, error)
	Cities(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}

type SnapshotStore interface {
	Entry(ctx context.Context) (*snapshot.Entry, error)
	Ping(ctx context.Context) error
}

// WeatherHandler - HTTP-обертка над клиентом погоды и журналом наблюдений.
// store и snapshots необязательны: без них соответствующие маршруты отвечают 503.
type WeatherHandler struct {
	fetcher   WeatherFetcher
	store     ObservationStore
	snapshots SnapshotStore
	logger    *slog.Logger
}

func NewWeatherHandler(fetcher WeatherFetcher, store ObservationStore, snapshots SnapshotStore, logger *slog.Logger) *WeatherHandler {
	return &WeatherHandler{
		fetcher:   fetcher,
		store:     store,
		snapshots: snapshots,
		logger:    logger,
	}
}

// Register вешает маршруты на роутер
func (h *WeatherHandler) Register(api *mux.Router) {
	api.HandleFunc("/weather", h.GetWeatherByCoordinates).Methods("GET").Queries("lat", "{lat}", "lon", "{lon}")
	api.HandleFunc("/weather/{city}", h.GetWeather).Methods("GET")
	api.HandleFunc("/observations/{city}", h.GetObservations).Methods("GET")
	api.HandleFunc("/cities", h.GetAllCities).Methods("GET")
	api.HandleFunc("/last-known", h.GetLastKnown).Methods("GET")
	api.HandleFunc("/health", h.HealthCheck).Methods("GET")
}

// GetWeather возвращает текущую погоду для города
func (h *WeatherHandler) GetWeather(w http.ResponseWriter, r *http.Request) {
	city := mux.Vars(r)["city"]
	h.lookup(w, r, openweather.ByCity(city))
}

// GetWeatherByCoordinates возвращает текущую погоду по координатам
func (h *WeatherHandler) GetWeatherByCoordinates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	if errLat != nil || errLon != nil {
		sendError(w, http.StatusBadRequest, "Некорректные координаты", "lat и lon должны быть числами")
		return
	}
	query := openweather.ByCoordinates(lat, lon)
	if err := query.Validate(); err != nil {
		sendError(w, http.StatusBadRequest, "Некорректные координаты", err.Error())
		return
	}
	h.lookup(w, r, query)
}

func (h *WeatherHandler) lookup(w http.ResponseWriter, r *http.Request, q openweather.Query) {
	start := time.Now()

	weather, err := h.fetcher.Current(r.Context(), q)
	if err != nil {
		status, msg := statusFor(err)
		h.logger.Warn("Ошибка запроса погоды", "query", q.String(), "status", status, "error", err)
		sendError(w, status, msg, err.Error())
		return
	}

	sendJSON(w, http.StatusOK, model.NewWeatherResponse(weather, openweather.ProviderName))

	h.logger.Info("Погода отдана",
		"query", q.String(),
		"city", weather.CityName,
		"duration_ms", time.Since(start).Milliseconds())
}

// GetObservations возвращает историю запросов по городу
func (h *WeatherHandler) GetObservations(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		sendError(w, http.StatusServiceUnavailable, "Журнал наблюдений отключен", "")
		return
	}

	city := strings.ToLower(mux.Vars(r)["city"])
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			sendError(w, http.StatusBadRequest, "Некорректный limit", v)
			return
		}
		limit = min(parsed, maxHistoryLimit)
	}

	observations, err := h.store.History(r.Context(), city, limit)
	if errors.Is(err, storage.ErrNotFound) {
		sendError(w, http.StatusNotFound, "Город не найден", city)
		return
	}
	if err != nil {
		h.logger.Error("Ошибка чтения из БД", "city", city, "error", err)
		sendError(w, http.StatusInternalServerError, "Внутренняя ошибка сервера", "")
		return
	}

	sendJSON(w, http.StatusOK, model.ObservationsResponse{
		City:         city,
		Observations: observations,
		Total:        len(observations),
	})
}

// GetAllCities возвращает список всех городов из журнала
func (h *WeatherHandler) GetAllCities(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		sendError(w, http.StatusServiceUnavailable, "Журнал наблюдений отключен", "")
		return
	}

	cities, err := h.store.Cities(r.Context())
	if err != nil {
		h.logger.Error("Ошибка получения городов из БД", "error", err)
		sendError(w, http.StatusInternalServerError, "Внутренняя ошибка сервера", "")
		return
	}

	sendJSON(w, http.StatusOK, model.CitiesResponse{
		Cities: cities,
		Total:  len(cities),
	})
}

// GetLastKnown возвращает последнюю погоду, показанную клиентом
func (h *WeatherHandler) GetLastKnown(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		sendError(w, http.StatusServiceUnavailable, "Redis отключен", "")
		return
	}

	entry, err := h.snapshots.Entry(r.Context())
	if err != nil {
		h.logger.Error("Ошибка чтения из Redis", "error", err)
		sendError(w, http.StatusInternalServerError, "Внутренняя ошибка сервера", "")
		return
	}
	if entry == nil {
		sendError(w, http.StatusNotFound, "Последняя погода не сохранена", "")
		return
	}

	sendJSON(w, http.StatusOK, model.LastKnownResponse{
		WeatherResponse: model.NewWeatherResponse(entry.Weather, "snapshot"),
		SavedAt:         entry.SavedAt,
	})
}

// HealthCheck проверяет доступность зависимостей
func (h *WeatherHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	health := map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	}

	check := func(name string, ping func(context.Context) error) {
		if err := ping(ctx); err != nil {
			health[name] = "unhealthy"
			health["status"] = "degraded"
			h.logger.Error("Health check: зависимость недоступна", "dependency", name, "error", err)
			return
		}
		health[name] = "healthy"
	}

	if h.store != nil {
		check("database", h.store.Ping)
	}
	if h.snapshots != nil {
		check("redis", h.snapshots.Ping)
	}

	status := http.StatusOK
	if health["status"] == "degraded" {
		status = http.StatusServiceUnavailable
	}

	sendJSON(w, status, health)
}

// statusFor переводит ошибку клиента погоды в HTTP-статус
func statusFor(err error) (int, string) {
	var (
		apiErr       *openweather.APIError
		transportErr *openweather.TransportError
		decodeErr    *openweather.DecodeError
	)

	switch {
	case errors.Is(err, openweather.ErrEmptyCity), errors.Is(err, openweather.ErrInvalidCoordinates):
		return http.StatusBadRequest, "Некорректный запрос"
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound:
		return http.StatusNotFound, "Город не найден"
	case errors.As(err, &transportErr) && isTimeout(err):
		return http.StatusGatewayTimeout, "Провайдер погоды не ответил"
	case errors.As(err, &apiErr), errors.As(err, &transportErr):
		return http.StatusBadGateway, "Провайдер погоды недоступен"
	case errors.As(err, &decodeErr), errors.Is(err, openweather.ErrEmptyConditionList):
		return http.StatusBadGateway, "Некорректный ответ провайдера"
	default:
		return http.StatusInternalServerError, "Внутренняя ошибка сервера"
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Вспомогательные функции
func sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func sendError(w http.ResponseWriter, status int, errorMsg, details string) {
	sendJSON(w, status, model.ErrorResponse{
		Error:   errorMsg,
		Message: details,
	})
}
