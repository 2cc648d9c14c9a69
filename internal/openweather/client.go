package openweather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gometeo/weatherapp/internal/model"
)

const (
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5/weather"
	DefaultUnits   = "metric"
	ProviderName   = "OpenWeatherMap"

	maxBodySize = 1 << 20
)

// Config - параметры клиента OpenWeatherMap
type Config struct {
	APIKey  string
	BaseURL string
	Units   string
	Timeout time.Duration
}

// Client выполняет один GET на каждый запрос погоды.
type Client struct {
	apiKey     string
	baseURL    string
	units      string
	httpClient *http.Client
}

// NewClient создает клиент с явным таймаутом вместо http.DefaultClient.
func NewClient(cfg Config) *Client {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	units := cfg.Units
	if units == "" {
		units = DefaultUnits
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    base,
		units:      units,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// URL собирает адрес запроса; пользовательские значения экранируются.
func (c *Client) URL(q Query) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("ошибка разбора базового URL: %w", err)
	}

	values := u.Query()
	values.Set("units", c.units)
	values.Set("appid", c.apiKey)
	q.apply(values)
	u.RawQuery = values.Encode()

	return u.String(), nil
}

// Current запрашивает текущую погоду. Ошибки:
// *TransportError, *APIError, *DecodeError, ErrEmptyConditionList,
// а также ErrEmptyCity / ErrInvalidCoordinates до отправки запроса.
func (c *Client) Current(ctx context.Context, q Query) (model.Weather, error) {
	if err := q.Validate(); err != nil {
		return model.Weather{}, err
	}

	endpoint, err := c.URL(q)
	if err != nil {
		return model.Weather{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.Weather{}, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.Weather{}, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return model.Weather{}, &TransportError{Err: fmt.Errorf("ошибка чтения ответа: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload apiErrorBody
		if json.Unmarshal(body, &payload) == nil {
			apiErr.Message = payload.Message
		}
		return model.Weather{}, apiErr
	}

	return Decode(body)
}
