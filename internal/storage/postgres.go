package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // Регистрируем драйвер pgx

	"github.com/gometeo/weatherapp/internal/model"
)

// ErrNotFound - по городу нет ни одного наблюдения
var ErrNotFound = errors.New("наблюдения не найдены")

// ObservationStorage - журнал успешных запросов погоды
type ObservationStorage struct {
	db     *sql.DB
	logger *slog.Logger
}

func New(dsn string, logger *slog.Logger) (*ObservationStorage, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия БД: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	// Автоматическая миграция (создание таблицы) для простоты
	query := `
	CREATE TABLE IF NOT EXISTS observations (
		id UUID PRIMARY KEY,
		city VARCHAR(100) NOT NULL,
		temp DOUBLE PRECISION NOT NULL,
		condition_id INTEGER NOT NULL,
		condition VARCHAR(32) NOT NULL,
		query VARCHAR(255) NOT NULL,
		provider VARCHAR(100) NOT NULL,
		observed_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS observations_city_time ON observations (city, observed_at DESC);`

	if _, err := db.Exec(query); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка создания таблицы: %w", err)
	}

	return &ObservationStorage{db: db, logger: logger}, nil
}

func (s *ObservationStorage) Close() {
	s.db.Close()
}

func (s *ObservationStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Save записывает наблюдение. Повторная доставка того же сообщения
// из Kafka не создает дубликат.
func (s *ObservationStorage) Save(ctx context.Context, obs model.Observation) error {
	query := `
		INSERT INTO observations (id, city, temp, condition_id, condition, query, provider, observed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING;
	`

	_, err := s.db.ExecContext(ctx, query,
		obs.ID,
		normalizeCity(obs.City),
		obs.Temp,
		obs.ConditionID,
		string(obs.Condition),
		obs.Query,
		obs.Provider,
		obs.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("ошибка сохранения наблюдения для %s: %w", obs.City, err)
	}

	return nil
}

// History - последние limit наблюдений по городу, новые первыми
func (s *ObservationStorage) History(ctx context.Context, city string, limit int) ([]model.Observation, error) {
	query := `
		SELECT id, city, temp, condition_id, condition, query, provider, observed_at
		FROM observations
		WHERE city = $1
		ORDER BY observed_at DESC
		LIMIT $2;
	`

	rows, err := s.db.QueryContext(ctx, query, normalizeCity(city), limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения наблюдений для %s: %w", city, err)
	}
	defer rows.Close()

	var result []model.Observation
	for rows.Next() {
		var (
			obs       model.Observation
			condition string
		)
		if err := rows.Scan(&obs.ID, &obs.City, &obs.Temp, &obs.ConditionID, &condition, &obs.Query, &obs.Provider, &obs.Timestamp); err != nil {
			return nil, fmt.Errorf("ошибка разбора строки: %w", err)
		}
		obs.Condition = model.Icon(condition)
		result = append(result, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения наблюдений: %w", err)
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}

// Cities - список городов, по которым есть наблюдения
func (s *ObservationStorage) Cities(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT city FROM observations ORDER BY city;`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения городов: %w", err)
	}
	defer rows.Close()

	cities := []string{}
	for rows.Next() {
		var city string
		if err := rows.Scan(&city); err != nil {
			return nil, fmt.Errorf("ошибка разбора строки: %w", err)
		}
		cities = append(cities, city)
	}
	return cities, rows.Err()
}

func normalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}
