package sync

import (
	"context"
	stdsync "sync"
	"time"

	"golang.org/x/exp/slog"

	"offsync/internal/domain/codec"
	"offsync/internal/model"
)

// Servicer единственная точка входа в синхронизацию для остального приложения
type Servicer interface {
	// Enqueue регистрирует локальное изменение
	Enqueue(ctx context.Context, table, recordID string, action Action, data model.Entity) (*SyncRecord, error)

	// FullSync выполняет push, затем pull. Параллельные вызовы выполняются по очереди.
	FullSync(ctx context.Context) FullResult

	// SyncNow как FullSync, но отказывает, если синхронизация уже идет
	SyncNow(ctx context.Context) (FullResult, error)

	Push(ctx context.Context) PushResult
	Pull(ctx context.Context) PullResult

	Status(ctx context.Context) (*SyncStatus, error)
	Outbox(ctx context.Context, includeSynced bool, limit int) ([]SyncRecord, error)
}

// Service оркестратор синхронизации узла
type Service struct {
	outbox *Outbox
	status *StatusStore
	pusher *Pusher
	puller *Puller
	log    *slog.Logger
	config *Config

	mu stdsync.Mutex
}

// NewService собирает движок из локального хранилища, транспорта и детектора сети
func NewService(store Store, transport Transport, online OnlineDetector, cdc *codec.Codec, log *slog.Logger, config *Config) *Service {
	cfg := DefaultConfig()
	if config != nil {
		*cfg = *config
	}
	cfg.normalize()

	status := NewStatusStore(store, log)
	outbox := NewOutbox(store, cdc.Catalog(), log)

	return &Service{
		outbox: outbox,
		status: status,
		pusher: NewPusher(outbox, status, cdc, transport, online, log, cfg),
		puller: NewPuller(status, store, cdc, transport, online, log, cfg),
		log:    log.With(slog.String("component", "sync")),
		config: cfg,
	}
}

// Init создает запись статуса при первом запуске
func (s *Service) Init(ctx context.Context) error {
	return s.status.EnsureInitialized(ctx, s.config.DefaultServerURL)
}

// NewRecord строит запись очереди для атомарной записи вместе с данными приложения
func (s *Service) NewRecord(table, recordID string, action Action, data model.Entity) (*SyncRecord, error) {
	return s.outbox.NewRecord(table, recordID, action, data)
}

func (s *Service) Enqueue(ctx context.Context, table, recordID string, action Action, data model.Entity) (*SyncRecord, error) {
	return s.outbox.Enqueue(ctx, table, recordID, action, data)
}

func (s *Service) FullSync(ctx context.Context) FullResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.run(ctx)
}

func (s *Service) SyncNow(ctx context.Context) (FullResult, error) {
	if !s.mu.TryLock() {
		s.log.Info("sync request rejected: already running")
		return FullResult{}, ErrSyncInProgress
	}
	defer s.mu.Unlock()

	return s.run(ctx), nil
}

func (s *Service) Push(ctx context.Context) PushResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pusher.Push(ctx)
}

func (s *Service) Pull(ctx context.Context) PullResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.puller.Pull(ctx)
}

func (s *Service) Status(ctx context.Context) (*SyncStatus, error) {
	return s.status.Read(ctx)
}

func (s *Service) Outbox(ctx context.Context, includeSynced bool, limit int) ([]SyncRecord, error) {
	return s.outbox.List(ctx, includeSynced, limit)
}

// run push всегда завершается до начала pull
func (s *Service) run(ctx context.Context) FullResult {
	start := time.Now()
	s.log.Info("sync started")

	var result FullResult
	result.Push = s.pusher.Push(ctx)
	result.Pull = s.puller.Pull(ctx)

	if result.Success() {
		s.log.Info("sync finished",
			slog.Duration("duration", time.Since(start)),
			slog.Int("pushed", result.Push.Synced),
			slog.Int("pulled", result.Pull.Synced),
		)
	} else {
		s.log.Warn("sync finished with errors",
			slog.Duration("duration", time.Since(start)),
			slog.Int("push_failed", result.Push.Failed),
			slog.Int("pull_failed", result.Pull.Failed),
			slog.Int("errors", len(result.Push.Errors)+len(result.Pull.Errors)),
		)
	}
	return result
}
