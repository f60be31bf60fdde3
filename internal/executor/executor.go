package executor

import (
	"context"
	"fmt"
	"time"

	"taskBoard/internal/logger"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	DefaultAttempts   = 3
	DefaultBaseDelay  = 1000 * time.Millisecond
	DefaultMultiplier = 2.0
	DefaultTimeout    = 10 * time.Second
)

type Config struct {
	Attempts   int           `mapstructure:"attempts" yaml:"attempts"`
	BaseDelay  time.Duration `mapstructure:"base_delay" yaml:"base_delay"`
	Multiplier float64       `mapstructure:"multiplier" yaml:"multiplier"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

func DefaultConfig() Config {
	return Config{
		Attempts:   DefaultAttempts,
		BaseDelay:  DefaultBaseDelay,
		Multiplier: DefaultMultiplier,
		Timeout:    DefaultTimeout,
	}
}

// Sleeper ждёт d или отмены контекста
type Sleeper func(ctx context.Context, d time.Duration) error

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Executor оборачивает каждый вызов шлюза: таймаут, повтор чтений, классификация ошибок
type Executor struct {
	cfg   Config
	sleep Sleeper
}

type Option func(*Executor)

func WithSleeper(s Sleeper) Option {
	return func(e *Executor) {
		e.sleep = s
	}
}

func New(cfg Config, options ...Option) *Executor {
	def := DefaultConfig()
	if cfg.Attempts <= 0 {
		cfg.Attempts = def.Attempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = def.Multiplier
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	e := &Executor{cfg: cfg, sleep: sleep}
	for _, opt := range options {
		opt(e)
	}
	return e
}

func (e *Executor) Config() Config {
	return e.cfg
}

func (e *Executor) schedule() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.cfg.BaseDelay
	b.Multiplier = e.cfg.Multiplier
	b.RandomizationFactor = 0
	b.MaxInterval = e.cfg.BaseDelay << uint(e.cfg.Attempts)
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Read выполняет идемпотентную операцию, повторяя её при ServerError и NetworkError
func (e *Executor) Read(ctx context.Context, name string, op func(ctx context.Context) error) error {
	delays := e.schedule()

	var last *Error
	for attempt := 1; attempt <= e.cfg.Attempts; attempt++ {
		err := e.attempt(ctx, op)
		if err == nil {
			if attempt > 1 {
				logger.Info("Executor: Чтение успешно после повтора",
					zap.String("op", name),
					zap.Int("attempt", attempt))
			}
			return nil
		}

		last = Classify(err)
		if !last.Kind.Transient() || attempt == e.cfg.Attempts || ctx.Err() != nil {
			break
		}

		delay := delays.NextBackOff()
		logger.Warn("Executor: Повтор чтения",
			zap.String("op", name),
			zap.Int("attempt", attempt),
			zap.String("kind", string(last.Kind)),
			zap.Duration("delay", delay),
			zap.Error(err))

		if err := e.sleep(ctx, delay); err != nil {
			return Classify(fmt.Errorf("ожидание повтора: %w", err))
		}
	}
	return last
}

// Write выполняет операцию один раз, ошибка сразу уходит вызывающему
func (e *Executor) Write(ctx context.Context, name string, op func(ctx context.Context) error) error {
	err := e.attempt(ctx, op)
	if err == nil {
		return nil
	}
	classified := Classify(err)
	logger.Warn("Executor: Ошибка записи",
		zap.String("op", name),
		zap.String("kind", string(classified.Kind)),
		zap.Error(err))
	return classified
}

func (e *Executor) attempt(ctx context.Context, op func(ctx context.Context) error) error {
	attemptCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()
	return op(attemptCtx)
}

// Query - типизированная обёртка над Read
func Query[T any](ctx context.Context, e *Executor, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := e.Read(ctx, name, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// Mutate - типизированная обёртка над Write
func Mutate[T any](ctx context.Context, e *Executor, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := e.Write(ctx, name, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
