package openweather

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gometeo/weatherapp/internal/model"
)

const testAPIKey = "test-key"

func newTestClient(baseURL string) *Client {
	return NewClient(Config{APIKey: testAPIKey, BaseURL: baseURL, Timeout: 5 * time.Second})
}

func writeWeather(w http.ResponseWriter, name string, temp float64, id int) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":    name,
		"main":    map[string]any{"temp": temp},
		"weather": []map[string]any{{"id": id, "description": "test"}},
	})
}

func TestCurrentByCity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "New York", q.Get("q"))
		require.Equal(t, testAPIKey, q.Get("appid"))
		require.Equal(t, "metric", q.Get("units"))
		require.Empty(t, q.Get("lat"))
		writeWeather(w, "New York", 21.6, 500)
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).Current(context.Background(), ByCity("  New York "))
	require.NoError(t, err)
	require.Equal(t, model.Weather{ConditionID: 500, CityName: "New York", Temperature: 21.6}, got)
	require.Equal(t, "22", got.TemperatureString())
}

func TestCurrentByCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "43.2567", q.Get("lat"))
		require.Equal(t, "76.9286", q.Get("lon"))
		require.Empty(t, q.Get("q"))
		writeWeather(w, "Almaty", -5.2, 803)
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).Current(context.Background(), ByCoordinates(43.2567, 76.9286))
	require.NoError(t, err)
	require.Equal(t, "Almaty", got.CityName)
	require.Equal(t, model.IconCloud, got.ConditionName())
}

func TestURLEncodesCity(t *testing.T) {
	u, err := newTestClient(DefaultBaseURL).URL(ByCity("São Paulo&units=imperial"))
	require.NoError(t, err)
	require.Equal(t,
		DefaultBaseURL+"?appid=test-key&q=S%C3%A3o+Paulo%26units%3Dimperial&units=metric", u)
}

func TestCurrentNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"cod":"404","message":"city not found"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Current(context.Background(), ByCity("Atlantis"))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	require.Equal(t, "city not found", apiErr.Message)
}

func TestCurrentUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"cod":401,"message":"Invalid API key"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Current(context.Background(), ByCity("Almaty"))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "ошибка API (HTTP 401): Invalid API key", apiErr.Error())
}

func TestCurrentMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"London","weather":[{"id":800}]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Current(context.Background(), ByCity("London"))

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	require.Equal(t, "main", decodeErr.Field)
}

func TestCurrentEmptyConditionList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"London","main":{"temp":10},"weather":[]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Current(context.Background(), ByCity("London"))
	require.ErrorIs(t, err, ErrEmptyConditionList)
}

func TestCurrentTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url).Current(context.Background(), ByCity("London"))

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
}

func TestCurrentContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(srv.URL).Current(ctx, ByCity("London"))

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCurrentRejectsInvalidQuery(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	_, err := client.Current(context.Background(), ByCity("   "))
	require.ErrorIs(t, err, ErrEmptyCity)

	_, err = client.Current(context.Background(), ByCoordinates(91, 0))
	require.ErrorIs(t, err, ErrInvalidCoordinates)

	_, err = client.Current(context.Background(), ByCoordinates(0, -180.5))
	require.ErrorIs(t, err, ErrInvalidCoordinates)

	_, err = client.Current(context.Background(), ByCoordinates(math.NaN(), 0))
	require.ErrorIs(t, err, ErrInvalidCoordinates)

	_, err = client.Current(context.Background(), ByCoordinates(0, math.NaN()))
	require.ErrorIs(t, err, ErrInvalidCoordinates)

	require.Zero(t, calls)
}

func TestQueryString(t *testing.T) {
	require.Equal(t, "q=Paris", ByCity("Paris").String())
	require.Equal(t, "lat=51.5&lon=-0.12", ByCoordinates(51.5, -0.12).String())
	require.True(t, ByCoordinates(1, 2).IsCoordinates())
	require.False(t, ByCity("Rome").IsCoordinates())
}
