package sync

import (
	"context"
	"fmt"

	"golang.org/x/exp/slog"
)

// StatusStore доступ к записи статуса синхронизации
type StatusStore struct {
	repo StatusRepository
	log  *slog.Logger
}

func NewStatusStore(repo StatusRepository, log *slog.Logger) *StatusStore {
	return &StatusStore{
		repo: repo,
		log:  log.With(slog.String("component", "sync_status")),
	}
}

// Read возвращает текущий статус
func (s *StatusStore) Read(ctx context.Context) (*SyncStatus, error) {
	status, err := s.repo.GetStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("read sync status: %w", err)
	}
	return status, nil
}

// Update применяет частичное обновление
func (s *StatusStore) Update(ctx context.Context, upd StatusUpdate) error {
	if err := s.repo.UpdateStatus(ctx, upd); err != nil {
		return fmt.Errorf("update sync status: %w", err)
	}
	return nil
}

// EnsureInitialized создает запись статуса, если ее еще нет. Повторный вызов ничего не меняет.
func (s *StatusStore) EnsureInitialized(ctx context.Context, defaultServerURL string) error {
	created, err := s.repo.CreateStatus(ctx, SyncStatus{ServerURL: defaultServerURL})
	if err != nil {
		return fmt.Errorf("init sync status: %w", err)
	}
	if created {
		s.log.Info("sync status initialized", slog.String("server_url", defaultServerURL))
	}
	return nil
}
