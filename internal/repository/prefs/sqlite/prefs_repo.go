package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskBoard/internal/logger"
	repo "taskBoard/internal/repository"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaFS embed.FS

// Storage - локальное хранилище настроек в файле SQLite
type Storage struct {
	db *sql.DB
}

func New(ctx context.Context, path string) (*Storage, error) {
	if path == "" {
		return nil, fmt.Errorf("путь к базе не задан")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		logger.Error("Repository: Ошибка открытия SQLite", err)
		return nil, fmt.Errorf("открытие базы: %w", err)
	}
	// один писатель, чтобы не ловить SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := applySchema(ctx, db); err != nil {
		_ = db.Close()
		logger.Error("Repository: Ошибка применения схемы", err)
		return nil, err
	}

	logger.Info("Repository: Хранилище настроек SQLite открыто", zap.String("path", path))
	return &Storage{db: db}, nil
}

func applySchema(ctx context.Context, db *sql.DB) error {
	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("чтение схемы: %w", err)
	}
	if _, err := db.ExecContext(ctx, string(schemaSQL)); err != nil {
		return fmt.Errorf("применение схемы: %w", err)
	}
	return nil
}

func (s *Storage) Close() error {
	logger.Info("Repository: Закрытие SQLite")
	return s.db.Close()
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	return nil
}

func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", repo.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("чтение настройки: %w", err)
	}
	return value, nil
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return repo.ErrInvalidKey
	}
	start := time.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value, updated_at)
		VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		logger.Error("Repository: Запись настройки", err, zap.String("key", key))
		return fmt.Errorf("запись настройки: %w", err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленная операция", zap.Duration("ms", time.Since(start)))
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM preferences WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("удаление настройки: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("удаление настройки: %w", err)
	}
	if n == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) All(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM preferences`)
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
