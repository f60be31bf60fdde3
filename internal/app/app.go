package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"taskBoard/internal/cache"
	"taskBoard/internal/config"
	"taskBoard/internal/executor"
	"taskBoard/internal/gateway"
	"taskBoard/internal/handlers"
	"taskBoard/internal/logger"
	"taskBoard/internal/middleware"
	"taskBoard/internal/models/task"
	"taskBoard/internal/notify"
	"taskBoard/internal/prefs"
	"taskBoard/internal/repository/prefs/inmemory"
	"taskBoard/internal/repository/prefs/postgres"
	"taskBoard/internal/repository/prefs/sqlite"
	"taskBoard/internal/service"
	"taskBoard/internal/view"
	"taskBoard/internal/worker"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const journalLimit = 200

type App struct {
	config    *config.Config
	server    *http.Server
	router    *chi.Mux
	cache     *cache.Cache
	service   *service.TaskService
	projector *view.Projector
	journal   *notify.Journal
	hub       *notify.Hub
	poller    *worker.StatisticsPoller
	store     prefs.Store
	shutdowns []func() // функции для graceful shutdown
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

// Init собирает зависимости; ctx отменяет фоновые загрузки сервиса
func (a *App) Init(ctx context.Context) (*App, error) {
	if err := logger.Init(a.config.Logging); err != nil {
		return nil, fmt.Errorf("инициализация логгера: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Завершение работы логгирования...")
		logger.Sync()
	})

	gw, err := gateway.New(a.config.Gateway.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("клиент сервиса задач: %w", err)
	}

	store, err := openStore(ctx, a.config.Repository)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Закрытие хранилища настроек...")
		if err := store.Close(); err != nil {
			logger.Error("App: Ошибка закрытия хранилища", err)
		}
	})

	a.cache = cache.New()
	a.journal = notify.NewJournal(journalLimit)
	a.hub = notify.NewHub()

	a.service = service.NewTaskService(gw, executor.New(a.config.Retry), a.cache,
		service.WithPolicies(a.config.Cache),
		service.WithBulkConcurrency(a.config.Sync.BulkConcurrency),
		service.WithNotifier(notify.Multi{a.journal, a.hub}),
		service.WithMutationObserver(func(m service.Mutation) {
			a.hub.Broadcast("mutation", m)
		}),
		service.WithBaseContext(ctx),
	)
	a.projector = view.NewProjector(a.cache, a.service)

	interval := a.config.Sync.PollInterval
	a.poller = worker.NewStatisticsPoller(a.service, &interval, func(st *task.Statistics) {
		a.hub.Broadcast("statistics", st)
	})

	h := handlers.NewTaskHandler(a.service, a.projector, a.journal, a.store)
	a.router = handlers.NewRouter(h, http.HandlerFunc(a.hub.ServeWS),
		middleware.RequestID,
		middleware.Logging,
		chimw.Recoverer,
		middleware.RateLimit(a.config.Server.RateLimit),
		cors.Handler(cors.Options{
			AllowedOrigins: a.config.Server.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders: []string{middleware.RequestIDHeader},
			MaxAge:         300,
		}),
	)

	a.server = &http.Server{
		Addr:         a.config.GetServerAddr(),
		Handler:      otelhttp.NewHandler(a.router, "taskboard"),
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}
	return a, nil
}

func openStore(ctx context.Context, cfg config.RepositoryConfig) (prefs.Store, error) {
	switch cfg.Type {
	case config.RepositorySQLite:
		s, err := sqlite.New(ctx, cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("хранилище sqlite: %w", err)
		}
		return s, nil
	case config.RepositoryPostgres:
		s, err := postgres.New(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("хранилище postgres: %w", err)
		}
		return s, nil
	default:
		return inmemory.NewPrefsStorage(), nil
	}
}

func (a *App) Service() *service.TaskService {
	return a.service
}

func (a *App) Projector() *view.Projector {
	return a.projector
}

func (a *App) Journal() *notify.Journal {
	return a.journal
}

func (a *App) Store() prefs.Store {
	return a.store
}

func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run поднимает HTTP сервер и фоновые воркеры, блокирует до отмены ctx
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		a.poller.Start(gctx)
		return nil
	})
	g.Go(func() error {
		a.pruneLoop(gctx)
		return nil
	})
	g.Go(func() error {
		p, err := prefs.Load(gctx, a.store)
		if err != nil {
			logger.Warn("App: Настройки недоступны, используются значения по умолчанию", zap.Error(err))
		}
		// ошибка первой загрузки уже в журнале, сервер продолжает работу
		_ = a.service.LoadInitial(gctx, p.Filter())
		return nil
	})

	g.Go(func() error {
		logger.Info("Сервер запущен", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http сервер: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("Остановка сервера...")
		return a.server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	a.service.WaitIdle()
	return err
}

func (a *App) pruneLoop(ctx context.Context) {
	interval := a.config.Sync.PruneInterval
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := a.cache.Prune(interval); n > 0 {
				logger.Debug("App: Удалены просроченные записи кэша", zap.Int("count", n))
			}
		case <-ctx.Done():
			return
		}
	}
}

// Shutdown выполняет функции завершения в обратном порядке
func (a *App) Shutdown() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
	a.shutdowns = nil
}
