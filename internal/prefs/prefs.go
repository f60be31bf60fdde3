package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"taskBoard/internal/logger"
	"taskBoard/internal/models/task"
	"taskBoard/internal/repository"

	"go.uber.org/zap"
)

const (
	KeyTheme       = "themeMode"
	KeyPageSize    = "pageSize"
	KeyFilterPanel = "filterPanel"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Store - хранилище настроек ключ-значение
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	All(ctx context.Context) (map[string]string, error)
	HealthCheck(ctx context.Context) error
	Close() error
}

// FilterPanel - выбранные в панели фильтры
type FilterPanel struct {
	StatusID   int64  `json:"statusId,omitempty"`
	PriorityID int64  `json:"priorityId,omitempty"`
	SearchTerm string `json:"searchTerm,omitempty"`
}

type Preferences struct {
	Theme       Theme       `json:"themeMode"`
	PageSize    int         `json:"pageSize"`
	FilterPanel FilterPanel `json:"filterPanel"`
}

func Default() Preferences {
	return Preferences{Theme: ThemeLight, PageSize: task.DefaultPageSize}
}

func (p Preferences) Validate() error {
	if p.Theme != ThemeLight && p.Theme != ThemeDark {
		return fmt.Errorf("тема %q не поддерживается", p.Theme)
	}
	if !slices.Contains(task.PageSizes, p.PageSize) {
		return fmt.Errorf("размер страницы %d не поддерживается", p.PageSize)
	}
	if p.FilterPanel.StatusID < 0 || p.FilterPanel.PriorityID < 0 {
		return fmt.Errorf("id фильтра не может быть отрицательным")
	}
	if len([]rune(p.FilterPanel.SearchTerm)) > task.SearchTermMaxLength {
		return fmt.Errorf("строка поиска длиннее %d символов", task.SearchTermMaxLength)
	}
	return nil
}

// Filter - фильтр первой страницы по сохранённым настройкам
func (p Preferences) Filter() task.Filter {
	return task.NewFilter(
		task.WithSize(p.PageSize),
		task.WithStatusID(p.FilterPanel.StatusID),
		task.WithPriorityID(p.FilterPanel.PriorityID),
		task.WithSearch(p.FilterPanel.SearchTerm),
	)
}

// Load читает настройки, отсутствующие и испорченные значения заменяются умолчаниями
func Load(ctx context.Context, store Store) (Preferences, error) {
	p := Default()

	all, err := store.All(ctx)
	if err != nil {
		return p, fmt.Errorf("чтение настроек: %w", err)
	}

	if v, ok := all[KeyTheme]; ok {
		if t := Theme(v); t == ThemeLight || t == ThemeDark {
			p.Theme = t
		} else {
			logger.Warn("Prefs: Неизвестная тема проигнорирована", zap.String("value", v))
		}
	}
	if v, ok := all[KeyPageSize]; ok {
		if n, err := strconv.Atoi(v); err == nil && slices.Contains(task.PageSizes, n) {
			p.PageSize = n
		} else {
			logger.Warn("Prefs: Некорректный размер страницы проигнорирован", zap.String("value", v))
		}
	}
	if v, ok := all[KeyFilterPanel]; ok {
		var fp FilterPanel
		if err := json.Unmarshal([]byte(v), &fp); err == nil {
			p.FilterPanel = fp
		} else {
			logger.Warn("Prefs: Некорректные фильтры проигнорированы", zap.Error(err))
		}
	}
	return p, nil
}

func Save(ctx context.Context, store Store, p Preferences) error {
	if err := p.Validate(); err != nil {
		return err
	}

	panel, err := json.Marshal(p.FilterPanel)
	if err != nil {
		return fmt.Errorf("кодирование фильтров: %w", err)
	}

	values := map[string]string{
		KeyTheme:       string(p.Theme),
		KeyPageSize:    strconv.Itoa(p.PageSize),
		KeyFilterPanel: string(panel),
	}
	for _, k := range []string{KeyTheme, KeyPageSize, KeyFilterPanel} {
		if err := store.Set(ctx, k, values[k]); err != nil {
			return fmt.Errorf("сохранение %s: %w", k, err)
		}
	}
	return nil
}

// Reset удаляет сохранённые настройки
func Reset(ctx context.Context, store Store) error {
	for _, k := range []string{KeyTheme, KeyPageSize, KeyFilterPanel} {
		if err := store.Delete(ctx, k); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("удаление %s: %w", k, err)
		}
	}
	return nil
}
