package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskBoard/internal/logger"
	repo "taskBoard/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Storage - общее хранилище настроек в PostgreSQL
type Storage struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, connString string) (*Storage, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		logger.Error("Repository: Ошибка загрузки конфига", err)
		return nil, fmt.Errorf("загрузка конфига: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnIdleTime = time.Minute * 5

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Repository: Ошибка создания пула", err)
		return nil, fmt.Errorf("создание пула: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		logger.Error("Repository: Неудачная проверка ping", err)
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	if err := Migrate(connString); err != nil {
		pool.Close()
		logger.Error("Repository: Ошибка миграции", err)
		return nil, err
	}

	logger.Info("Repository: Успешное создание подключения к PostgreSQL")
	return &Storage{pool: pool}, nil
}

func (s *Storage) Close() error {
	s.pool.Close()
	logger.Info("Repository: Закрытие всех соединений PostgreSQL")
	return nil
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	err := s.pool.Ping(ctx)
	if err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	return nil
}

func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM preferences WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", repo.ErrNotFound
		}
		return "", fmt.Errorf("чтение настройки: %w", err)
	}
	return value, nil
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return repo.ErrInvalidKey
	}
	start := time.Now()

	query := `INSERT INTO preferences (key, value, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (key) DO UPDATE
				SET value = EXCLUDED.value,
				updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, key, value); err != nil {
		logger.Error("Repository: Запись настройки", err, zap.String("key", key), zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("запись настройки: %w", err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленная операция", zap.Duration("ms", time.Since(start)))
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM preferences WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("удаление настройки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) All(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, value FROM preferences`)
	if err != nil {
		return nil, fmt.Errorf("чтение настроек: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("чтение настроек: %w", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("чтение настроек: %w", err)
	}
	return out, nil
}

// Clear удаляет все настройки
func (s *Storage) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM preferences`); err != nil {
		return fmt.Errorf("очистка настроек: %w", err)
	}
	return nil
}
