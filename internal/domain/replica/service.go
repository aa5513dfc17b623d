package replica

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"offsync/internal/domain/catalog"
	"offsync/internal/domain/codec"
	"offsync/internal/domain/sync"
	"offsync/internal/model"
)

// Servicer серверная сторона протокола синхронизации
type Servicer interface {
	Push(ctx context.Context, tenant string, payload sync.PushPayload) error
	Pull(ctx context.Context, tenant string, req sync.PullRequest) (*Changes, error)
	Status(ctx context.Context, tenant string) (*Status, error)
}

// DefaultCursorLag запас курсора pull по умолчанию
const DefaultCursorLag = 10 * time.Second

// Config настройки серверной стороны синхронизации
type Config struct {
	// CursorLag насколько курсор pull отстает от времени сервера. Запись
	// получает updated_at до коммита и может стать видимой позже, чем
	// параллельный pull прочитал таблицу. Такие записи приходят повторно
	// в следующий pull, повторное применение на клиенте идемпотентно.
	CursorLag time.Duration
}

type Service struct {
	repo   Repository
	codec  *codec.Codec
	log    *slog.Logger
	config Config
	clock  func() time.Time
}

// NewService config может быть nil, тогда используется DefaultCursorLag
func NewService(repo Repository, cdc *codec.Codec, log *slog.Logger, config *Config) *Service {
	cfg := Config{CursorLag: DefaultCursorLag}
	if config != nil {
		cfg = *config
	}
	if cfg.CursorLag < 0 {
		cfg.CursorLag = 0
	}

	return &Service{
		repo:   repo,
		codec:  cdc,
		log:    log.With(slog.String("component", "replica")),
		config: cfg,
		clock:  time.Now,
	}
}

// Push применяет одну запись клиента. Строковые составные поля сохраняются
// как нативный JSON.
func (s *Service) Push(ctx context.Context, tenant string, payload sync.PushPayload) error {
	if err := s.validate(payload); err != nil {
		return err
	}

	now := s.clock().UTC()
	if payload.Action == sync.ActionDelete {
		if err := s.repo.Tombstone(ctx, tenant, payload.TableName, payload.RecordID, now); err != nil {
			return fmt.Errorf("tombstone %s/%s: %w", payload.TableName, payload.RecordID, err)
		}
		s.log.Debug("record deleted",
			slog.String("tenant", tenant),
			slog.String("table", payload.TableName),
			slog.String("record_id", payload.RecordID),
		)
		return nil
	}

	data, fieldErrs := s.codec.ToLocal(payload.TableName, payload.Data)
	for _, fe := range fieldErrs {
		s.log.Warn("composite field kept as string",
			slog.String("tenant", tenant),
			slog.String("record_id", payload.RecordID),
			slog.String("error", fe.Error()),
		)
	}
	data = data.Without(model.FieldLastSynced, model.FieldNeedsSync, model.FieldDeletedAt, model.FieldUpdatedAt)
	data[model.FieldID] = payload.RecordID

	if err := s.repo.Upsert(ctx, tenant, payload.TableName, payload.RecordID, data, now); err != nil {
		return fmt.Errorf("upsert %s/%s: %w", payload.TableName, payload.RecordID, err)
	}
	s.log.Debug("record stored",
		slog.String("tenant", tenant),
		slog.String("table", payload.TableName),
		slog.String("record_id", payload.RecordID),
		slog.String("action", string(payload.Action)),
	)
	return nil
}

func (s *Service) validate(p sync.PushPayload) error {
	if !s.codec.Catalog().Contains(p.TableName) {
		return fmt.Errorf("%w: unknown table %q", ErrValidation, p.TableName)
	}
	if !p.Action.Valid() {
		return fmt.Errorf("%w: invalid action %q", ErrValidation, p.Action)
	}
	if p.RecordID == "" {
		return fmt.Errorf("%w: recordId is required", ErrValidation)
	}
	if id := p.Data.ID(); id != "" && id != p.RecordID {
		return fmt.Errorf("%w: data id %q does not match recordId %q", ErrValidation, id, p.RecordID)
	}
	return nil
}

// Pull возвращает изменения запрошенных таблиц после lastSyncAt. Курсор
// фиксируется до чтения и сдвинут назад на CursorLag, но никогда не
// становится меньше lastSyncAt.
func (s *Service) Pull(ctx context.Context, tenant string, req sync.PullRequest) (*Changes, error) {
	serverTime := s.cursor(req.LastSyncAt)
	cat := s.codec.Catalog()

	tables := req.Tables
	if len(tables) == 0 {
		tables = cat.Names()
	}

	out := &Changes{Tables: make(map[string][]model.Entity), ServerTime: serverTime}
	for _, table := range tables {
		if !cat.Contains(table) {
			s.log.Debug("pull: skipping unknown table", slog.String("table", table))
			continue
		}
		rows, err := s.repo.ChangedSince(ctx, tenant, table, req.LastSyncAt)
		if err != nil {
			return nil, fmt.Errorf("pull %s: %w", table, err)
		}
		records := make([]model.Entity, 0, len(rows))
		for _, r := range rows {
			records = append(records, r.Entity())
		}
		out.Tables[table] = records
	}
	return out, nil
}

func (s *Service) cursor(lastSyncAt *time.Time) time.Time {
	cursor := s.clock().UTC().Add(-s.config.CursorLag)
	if lastSyncAt != nil && cursor.Before(*lastSyncAt) {
		return lastSyncAt.UTC()
	}
	return cursor
}

func (s *Service) Status(ctx context.Context, tenant string) (*Status, error) {
	counts, err := s.repo.Counts(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	return &Status{Tenant: tenant, ServerTime: s.clock().UTC(), Tables: counts}, nil
}

// IsValidation сообщает, что ошибка вызвана данными клиента
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, catalog.ErrUnknownTable)
}
