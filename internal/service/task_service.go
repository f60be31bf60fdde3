package service

import (
	"context"
	"fmt"
	"sync"

	"taskBoard/internal/cache"
	"taskBoard/internal/executor"
	"taskBoard/internal/logger"
	"taskBoard/internal/models/task"
	"taskBoard/internal/notify"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// TaskService держит реплику задач в кэше и синхронизирует её с сервисом:
// чтение через кэш, оптимистичные изменения с откатом, инвалидация зависимых ключей.
type TaskService struct {
	gateway         Gateway
	exec            *executor.Executor
	cache           *cache.Cache
	notifier        notify.Notifier
	observer        MutationObserver
	policies        Policies
	bulkConcurrency int
	baseCtx         context.Context

	group singleflight.Group

	mtx     *sync.Mutex
	slots   map[int64]*slot
	seq     map[int64]uint64
	issued  uint64
	pending map[int64]*pendingWrite
	epoch   uint64
	lastErr map[cache.Key]error

	wg *sync.WaitGroup
}

func NewTaskService(gw Gateway, exec *executor.Executor, c *cache.Cache, options ...Option) *TaskService {
	s := &TaskService{
		gateway:         gw,
		exec:            exec,
		cache:           c,
		notifier:        notify.Multi{},
		policies:        DefaultPolicies(),
		bulkConcurrency: DefaultBulkConcurrency,
		baseCtx:         context.Background(),
		mtx:             &sync.Mutex{},
		slots:           make(map[int64]*slot),
		seq:             make(map[int64]uint64),
		pending:         make(map[int64]*pendingWrite),
		lastErr:         make(map[cache.Key]error),
		wg:              &sync.WaitGroup{},
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *TaskService) Cache() *cache.Cache {
	return s.cache
}

// HealthCheck проверяет доступность сервиса задач одним запросом
func (s *TaskService) HealthCheck(ctx context.Context) error {
	err := s.exec.Write(ctx, "health", func(ctx context.Context) error {
		_, err := s.gateway.StatusTypes(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("проверка здоровья сервиса: %w", err)
	}
	return nil
}

// Tasks возвращает страницу списка: свежую из кэша, устаревшую с фоновым обновлением
// или загруженную заново
func (s *TaskService) Tasks(ctx context.Context, f task.Filter) (*task.Page, error) {
	f = f.Normalize()
	if err := f.Validate(); err != nil {
		return nil, NewValidationError("searchTerm", err.Error())
	}
	page, err := read(ctx, s, cache.ListKey(f), s.listLoader(f))
	if err != nil {
		return nil, err
	}
	return page.Clone(), nil
}

func (s *TaskService) SearchTasks(ctx context.Context, term string, f task.Filter) (*task.Page, error) {
	f.SearchTerm = term
	return s.Tasks(ctx, f)
}

func (s *TaskService) TasksByStatus(ctx context.Context, statusID int64, f task.Filter) (*task.Page, error) {
	f.StatusID = statusID
	return s.Tasks(ctx, f)
}

func (s *TaskService) TasksByPriority(ctx context.Context, priorityID int64, f task.Filter) (*task.Page, error) {
	f.PriorityID = priorityID
	return s.Tasks(ctx, f)
}

func (s *TaskService) Task(ctx context.Context, id int64) (*task.Task, error) {
	if id < 1 {
		return nil, NewValidationError("id", "id должен быть положительным")
	}
	t, err := read(ctx, s, cache.TaskKey(id), s.taskLoader(id))
	if err != nil {
		return nil, err
	}
	return t.Clone(), nil
}

func (s *TaskService) Statistics(ctx context.Context) (*task.Statistics, error) {
	st, err := read(ctx, s, cache.KeyStatistics, s.statisticsLoader())
	if err != nil {
		return nil, err
	}
	out := *st
	return &out, nil
}

// RefreshStatistics загружает сводку в обход свежести кэша
func (s *TaskService) RefreshStatistics(ctx context.Context) (*task.Statistics, error) {
	return fetch(ctx, s, cache.KeyStatistics, s.statisticsLoader())
}

func (s *TaskService) PriorityTypes(ctx context.Context) ([]task.PriorityType, error) {
	return read(ctx, s, cache.KeyPriorityTypes, loader[[]task.PriorityType]{
		name:  "priority-types",
		fetch: s.gateway.PriorityTypes,
		store: func(v []task.PriorityType, _ ticket) ([]task.PriorityType, error) {
			s.cache.Put(cache.KeyPriorityTypes, v, s.policies.Reference)
			return v, nil
		},
	})
}

func (s *TaskService) StatusTypes(ctx context.Context) ([]task.TaskStatusType, error) {
	return read(ctx, s, cache.KeyStatusTypes, loader[[]task.TaskStatusType]{
		name:  "task-status-types",
		fetch: s.gateway.StatusTypes,
		store: func(v []task.TaskStatusType, _ ticket) ([]task.TaskStatusType, error) {
			s.cache.Put(cache.KeyStatusTypes, v, s.policies.Reference)
			return v, nil
		},
	})
}

// References загружает оба справочника параллельно
func (s *TaskService) References(ctx context.Context) (task.References, error) {
	var refs task.References
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.PriorityTypes(gctx)
		refs.Priorities = p
		return err
	})
	g.Go(func() error {
		st, err := s.StatusTypes(gctx)
		refs.Statuses = st
		return err
	})
	if err := g.Wait(); err != nil {
		return task.References{}, err
	}
	return refs, nil
}

// LoadInitial - первая загрузка: список, сводка и справочники одновременно
func (s *TaskService) LoadInitial(ctx context.Context, f task.Filter) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.Tasks(gctx, f)
		return err
	})
	g.Go(func() error {
		_, err := s.Statistics(gctx)
		return err
	})
	g.Go(func() error {
		_, err := s.References(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Warn("Service: Первая загрузка завершилась с ошибкой", zap.Error(err))
		return fmt.Errorf("первая загрузка: %w", err)
	}
	logger.Info("Service: Первая загрузка завершена")
	return nil
}

// Refetch запускает фоновую загрузку страницы, повторные вызовы объединяются
func (s *TaskService) Refetch(f task.Filter) {
	f = f.Normalize()
	key := cache.ListKey(f)
	s.background(func(ctx context.Context) {
		if _, err := fetch(ctx, s, key, s.listLoader(f)); err != nil {
			logger.Warn("Service: Фоновая загрузка списка не удалась", zap.String("key", string(key)), zap.Error(err))
		}
	})
}

// LastError - ошибка последней загрузки ключа, nil после успешной
func (s *TaskService) LastError(key cache.Key) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.lastErr[key]
}

// WaitIdle ждёт завершения фоновых загрузок
func (s *TaskService) WaitIdle() {
	s.wg.Wait()
}

func (s *TaskService) background(fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(s.baseCtx)
	}()
}

func (s *TaskService) listLoader(f task.Filter) loader[*task.Page] {
	key := cache.ListKey(f)
	return loader[*task.Page]{
		name: "list",
		fetch: func(ctx context.Context) (*task.Page, error) {
			return s.gateway.ListTasks(ctx, f)
		},
		store: func(p *task.Page, t ticket) (*task.Page, error) {
			if err := p.Validate(); err != nil {
				return nil, executor.NewUnknown("Некорректная страница от сервиса", err)
			}

			s.mtx.Lock()
			defer s.mtx.Unlock()

			p = s.overlayLocked(p)
			s.cache.Put(key, p, s.policies.List)
			if t.epoch != s.epoch {
				s.cache.Invalidate(cache.Exact(key))
			}
			return p, nil
		},
	}
}

func (s *TaskService) taskLoader(id int64) loader[*task.Task] {
	key := cache.TaskKey(id)
	return loader[*task.Task]{
		name: "task",
		id:   id,
		fetch: func(ctx context.Context) (*task.Task, error) {
			return s.gateway.GetTask(ctx, id)
		},
		store: func(tk *task.Task, t ticket) (*task.Task, error) {
			s.mtx.Lock()
			defer s.mtx.Unlock()

			if _, busy := s.pending[id]; busy || s.seq[id] != t.seq {
				logger.Info("Service: Ответ устарел и отброшен", zap.Int64("task_id", id))
				if cur, _, ok := cache.Value[*task.Task](s.cache, key); ok {
					return cur, nil
				}
				return tk, nil
			}
			s.cache.Put(key, tk, s.policies.Task)
			return tk, nil
		},
		failed: func(err error) {
			if executor.KindOf(err) == executor.KindNotFound {
				s.evict(id)
			}
		},
		pinned: func() bool {
			s.mtx.Lock()
			defer s.mtx.Unlock()
			_, busy := s.pending[id]
			return busy
		},
	}
}

func (s *TaskService) statisticsLoader() loader[*task.Statistics] {
	return loader[*task.Statistics]{
		name:  "statistics",
		fetch: s.gateway.Statistics,
		store: func(st *task.Statistics, t ticket) (*task.Statistics, error) {
			if !st.Consistent() {
				logger.Warn("Service: Несогласованная сводка отклонена",
					zap.Int64("total", st.TotalTasks),
					zap.Int64("completed", st.CompletedTasks),
					zap.Int64("active", st.ActiveTasks))
				return nil, executor.NewUnknown("Несогласованная сводка от сервиса", nil)
			}

			s.mtx.Lock()
			defer s.mtx.Unlock()

			s.cache.Put(cache.KeyStatistics, st, s.policies.Statistics)
			if t.epoch != s.epoch {
				s.cache.Invalidate(cache.Exact(cache.KeyStatistics))
			}
			return st, nil
		},
	}
}

// ticket фиксирует состояние на момент отправки запроса
type ticket struct {
	epoch uint64
	seq   uint64
}

func (s *TaskService) ticket(id int64) ticket {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return ticket{epoch: s.epoch, seq: s.seq[id]}
}

type loader[T any] struct {
	name   string
	id     int64
	fetch  func(ctx context.Context) (T, error)
	store  func(v T, t ticket) (T, error)
	failed func(err error)
	pinned func() bool
}

func read[T any](ctx context.Context, s *TaskService, key cache.Key, l loader[T]) (T, error) {
	v, fr, ok := cache.Value[T](s.cache, key)
	if ok {
		switch {
		case fr == cache.Fresh:
			return v, nil
		case fr == cache.Stale:
			s.background(func(ctx context.Context) {
				if _, err := fetch(ctx, s, key, l); err != nil {
					logger.Warn("Service: Фоновое обновление не удалось", zap.String("key", string(key)), zap.Error(err))
				}
			})
			return v, nil
		case l.pinned != nil && l.pinned():
			return v, nil
		}
	}
	return fetch(ctx, s, key, l)
}

func fetch[T any](ctx context.Context, s *TaskService, key cache.Key, l loader[T]) (T, error) {
	var zero T

	ch := s.group.DoChan(string(key), func() (any, error) {
		t := s.ticket(l.id)
		v, err := executor.Query(s.baseCtx, s.exec, l.name, l.fetch)
		if err == nil {
			v, err = l.store(v, t)
		}
		if err != nil && l.failed != nil {
			l.failed(err)
		}

		s.mtx.Lock()
		if err != nil {
			s.lastErr[key] = err
		} else {
			delete(s.lastErr, key)
		}
		s.mtx.Unlock()
		return v, err
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(T)
		return v, nil
	case <-ctx.Done():
		return zero, executor.Classify(ctx.Err())
	}
}
