// Package snapshot хранит в Redis последнюю показанную клиентом погоду,
// чтобы при следующем запуске экран не был пустым.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gometeo/weatherapp/internal/model"
)

// Entry - то, что лежит под ключом профиля
type Entry struct {
	Weather model.Weather `json:"weather"`
	SavedAt time.Time     `json:"saved_at"`
}

type Store struct {
	client  *redis.Client
	profile string
	logger  *slog.Logger
}

func New(addr, password string, db int, profile string, logger *slog.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Проверка подключения
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("не удалось подключиться к Redis: %w", err)
	}

	logger.Info("Успешное подключение к Redis", "addr", addr, "profile", profile)

	return NewWithClient(client, profile, logger), nil
}

// NewWithClient оборачивает уже созданный клиент.
func NewWithClient(client *redis.Client, profile string, logger *slog.Logger) *Store {
	return &Store{client: client, profile: profile, logger: logger}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Save перезаписывает последнюю погоду профиля. Срок жизни не ограничен.
func (s *Store) Save(ctx context.Context, w model.Weather) error {
	bytes, err := json.Marshal(Entry{Weather: w, SavedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("ошибка сериализации: %w", err)
	}

	if err := s.client.Set(ctx, LastKnownKey(s.profile), bytes, 0).Err(); err != nil {
		return fmt.Errorf("ошибка записи в Redis: %w", err)
	}

	s.logger.Debug("Последняя погода сохранена", "profile", s.profile, "city", w.CityName)
	return nil
}

// Entry возвращает nil, nil, если ничего не сохранено.
func (s *Store) Entry(ctx context.Context) (*Entry, error) {
	val, err := s.client.Get(ctx, LastKnownKey(s.profile)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil // Ключ не найден - это не ошибка
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из Redis: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(val, &entry); err != nil {
		return nil, fmt.Errorf("ошибка десериализации: %w", err)
	}
	return &entry, nil
}

// Last - последняя погода без метаданных
func (s *Store) Last(ctx context.Context) (*model.Weather, error) {
	entry, err := s.Entry(ctx)
	if err != nil || entry == nil {
		return nil, err
	}
	return &entry.Weather, nil
}

// Delete забывает последнюю погоду профиля.
func (s *Store) Delete(ctx context.Context) error {
	if err := s.client.Del(ctx, LastKnownKey(s.profile)).Err(); err != nil {
		return fmt.Errorf("ошибка удаления из Redis: %w", err)
	}
	return nil
}

func LastKnownKey(profile string) string {
	return "weather:last-known:" + profile
}
