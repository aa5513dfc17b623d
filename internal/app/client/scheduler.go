package client

import (
	"context"
	"errors"
	"time"

	"golang.org/x/exp/slog"

	"offsync/internal/domain/sync"
)

type syncRunner interface {
	SyncNow(ctx context.Context) (sync.FullResult, error)
}

// Scheduler запускает синхронизацию по интервалу и при восстановлении сети
type Scheduler struct {
	runner      syncRunner
	interval    time.Duration
	reconnected <-chan struct{}
	log         *slog.Logger
	onResult    func(sync.FullResult)
}

// NewScheduler reconnected может быть nil, тогда работает только интервал
func NewScheduler(runner syncRunner, interval time.Duration, reconnected <-chan struct{}, log *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:      runner,
		interval:    interval,
		reconnected: reconnected,
		log:         log,
	}
}

// OnResult вызывается после каждого завершенного запуска
func (s *Scheduler) OnResult(fn func(sync.FullResult)) {
	s.onResult = fn
}

// Run блокирует до отмены ctx
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("Запуск автоматической синхронизации", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Автоматическая синхронизация остановлена")
			return
		case <-ticker.C:
			s.trigger(ctx, "interval")
		case <-s.reconnected:
			s.trigger(ctx, "reconnect")
		}
	}
}

func (s *Scheduler) trigger(ctx context.Context, reason string) {
	result, err := s.runner.SyncNow(ctx)
	if errors.Is(err, sync.ErrSyncInProgress) {
		s.log.Debug("Синхронизация уже выполняется, запуск пропущен", "reason", reason)
		return
	}
	if err != nil {
		s.log.Error("Ошибка автоматической синхронизации", "reason", reason, "error", err)
		return
	}

	s.log.Debug("Автоматическая синхронизация завершена",
		"reason", reason,
		"success", result.Success(),
	)
	if s.onResult != nil {
		s.onResult(result)
	}
}
