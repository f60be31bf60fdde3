package service

import (
	"context"
	"time"

	"taskBoard/internal/cache"
	"taskBoard/internal/notify"
)

// Policies - окна свежести по видам ключей
type Policies struct {
	List       cache.Policy `mapstructure:"list" yaml:"list"`
	Task       cache.Policy `mapstructure:"task" yaml:"task"`
	Statistics cache.Policy `mapstructure:"statistics" yaml:"statistics"`
	Reference  cache.Policy `mapstructure:"reference" yaml:"reference"`
}

func DefaultPolicies() Policies {
	return Policies{
		List:       cache.Policy{StaleAfter: 30 * time.Second, ExpireAfter: 5 * time.Minute},
		Task:       cache.Policy{StaleAfter: 2 * time.Minute, ExpireAfter: 15 * time.Minute},
		Statistics: cache.Policy{StaleAfter: 30 * time.Second, ExpireAfter: 5 * time.Minute},
		Reference:  cache.Policy{StaleAfter: 5 * time.Minute, ExpireAfter: time.Hour},
	}
}

const DefaultBulkConcurrency = 4

type Option func(*TaskService)

func WithPolicies(p Policies) Option {
	return func(s *TaskService) {
		s.policies = p
	}
}

func WithNotifier(n notify.Notifier) Option {
	return func(s *TaskService) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithMutationObserver(o MutationObserver) Option {
	return func(s *TaskService) {
		s.observer = o
	}
}

func WithBulkConcurrency(n int) Option {
	if n <= 0 {
		return nil
	}
	return func(s *TaskService) {
		s.bulkConcurrency = n
	}
}

// WithBaseContext задаёт контекст фоновых запросов
func WithBaseContext(ctx context.Context) Option {
	return func(s *TaskService) {
		s.baseCtx = ctx
	}
}
