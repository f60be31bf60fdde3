package inmemory

import (
	"context"
	"strings"
	"sync"

	"taskBoard/internal/logger"
	repo "taskBoard/internal/repository"
)

type PrefsStorage struct {
	storage map[string]string
	mtx     *sync.RWMutex
}

func NewPrefsStorage() *PrefsStorage {
	return &PrefsStorage{
		storage: make(map[string]string),
		mtx:     &sync.RWMutex{},
	}
}

func (s *PrefsStorage) HealthCheck(ctx context.Context) error {
	logger.Debug("Repository: Соединение стабильно")
	return nil
}

func (s *PrefsStorage) Get(ctx context.Context, key string) (string, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	v, ok := s.storage[key]
	if !ok {
		return "", repo.ErrNotFound
	}
	return v, nil
}

func (s *PrefsStorage) Set(ctx context.Context, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return repo.ErrInvalidKey
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.storage[key] = value
	return nil
}

func (s *PrefsStorage) Delete(ctx context.Context, key string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[key]; !ok {
		return repo.ErrNotFound
	}
	delete(s.storage, key)
	return nil
}

func (s *PrefsStorage) All(ctx context.Context) (map[string]string, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	out := make(map[string]string, len(s.storage))
	for k, v := range s.storage {
		out[k] = v
	}
	return out, nil
}

func (s *PrefsStorage) Close() error {
	return nil
}
