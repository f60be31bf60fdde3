package worker

import (
	"context"
	"time"

	"taskBoard/internal/logger"
	"taskBoard/internal/models/task"

	"go.uber.org/zap"
)

const DefaultPollInterval = 30 * time.Second

// StatisticsSource - то, что умеет перечитать сводку в обход кэша
type StatisticsSource interface {
	RefreshStatistics(ctx context.Context) (*task.Statistics, error)
}

// StatisticsPoller раз в interval обновляет сводку независимо от мутаций
type StatisticsPoller struct {
	source   StatisticsSource
	interval time.Duration
	onUpdate func(*task.Statistics)
}

func NewStatisticsPoller(source StatisticsSource, interval *time.Duration, onUpdate func(*task.Statistics)) *StatisticsPoller {
	var intervalToSet time.Duration
	if interval == nil || *interval <= 0 {
		intervalToSet = DefaultPollInterval
	} else {
		intervalToSet = *interval
	}

	return &StatisticsPoller{
		source:   source,
		interval: intervalToSet,
		onUpdate: onUpdate,
	}
}

func (w *StatisticsPoller) Interval() time.Duration {
	return w.interval
}

// Start блокирует до отмены ctx
func (w *StatisticsPoller) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logger.Info("Worker: Опрос сводки запущен", zap.Duration("interval", w.interval))
	for {
		select {
		case <-ticker.C:
			w.Check(ctx)
		case <-ctx.Done():
			logger.Info("Worker: Опрос сводки останавливается")
			return
		}
	}
}

func (w *StatisticsPoller) Check(ctx context.Context) {
	start := time.Now()

	st, err := w.source.RefreshStatistics(ctx)
	if err != nil {
		logger.Warn("Worker: Ошибка обновления сводки", zap.Error(err))
		return
	}
	if w.onUpdate != nil {
		w.onUpdate(st)
	}

	logger.Debug("Worker: Сводка обновлена",
		zap.Duration("ms", time.Since(start)),
		zap.Int64("total", st.TotalTasks),
		zap.Int64("completed", st.CompletedTasks),
		zap.Int64("active", st.ActiveTasks),
	)
}
