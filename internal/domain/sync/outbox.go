package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"offsync/internal/domain/catalog"
	"offsync/internal/model"
)

// Outbox очередь локальных изменений, еще не подтвержденных сервером
type Outbox struct {
	repo    OutboxRepository
	catalog *catalog.Catalog
	log     *slog.Logger
	clock   func() time.Time
}

func NewOutbox(repo OutboxRepository, c *catalog.Catalog, log *slog.Logger) *Outbox {
	return &Outbox{
		repo:    repo,
		catalog: c,
		log:     log.With(slog.String("component", "outbox")),
		clock:   time.Now,
	}
}

// Enqueue добавляет ожидающую запись. pendingChanges увеличивается в той же транзакции.
func (o *Outbox) Enqueue(ctx context.Context, table, recordID string, action Action, data model.Entity) (*SyncRecord, error) {
	rec, err := o.NewRecord(table, recordID, action, data)
	if err != nil {
		return nil, err
	}
	if err := o.repo.AppendRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", rec.Key(), err)
	}

	o.log.Debug("record enqueued",
		slog.String("table", table),
		slog.String("record_id", recordID),
		slog.String("action", string(action)),
	)
	return rec, nil
}

// NewRecord проверяет и строит запись очереди, не сохраняя ее.
// Нужна хранилищам, которые пишут запись вместе с данными приложения.
func (o *Outbox) NewRecord(table, recordID string, action Action, data model.Entity) (*SyncRecord, error) {
	if !o.catalog.Contains(table) {
		return nil, fmt.Errorf("enqueue: %w: %s", catalog.ErrUnknownTable, table)
	}
	if !action.Valid() {
		return nil, fmt.Errorf("enqueue: %w: %q", ErrInvalidAction, action)
	}
	if recordID == "" {
		return nil, fmt.Errorf("enqueue: %w", ErrEmptyRecordID)
	}

	if len(data) == 0 {
		data = model.Entity{model.FieldID: recordID}
	}

	return &SyncRecord{
		ID:        uuid.NewString(),
		TableName: table,
		RecordID:  recordID,
		Action:    action,
		Data:      data.Clone(),
		CreatedAt: o.clock().UTC(),
	}, nil
}

// DrainPending снимает срез ожидающих записей. Записи, добавленные позже,
// в срез не попадают и не могут быть отмечены отправленными в этом запуске.
func (o *Outbox) DrainPending(ctx context.Context) (*Snapshot, error) {
	records, err := o.repo.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("drain pending: %w", err)
	}

	snap := &Snapshot{Records: records, TakenAt: o.clock().UTC()}
	for _, r := range records {
		if r.Seq > snap.HighWater {
			snap.HighWater = r.Seq
		}
	}
	return snap, nil
}

// MarkSynced отмечает отправленными ожидающие записи того же ключа, не новее rec
func (o *Outbox) MarkSynced(ctx context.Context, rec SyncRecord) error {
	if err := o.repo.MarkRecordsSynced(ctx, rec.TableName, rec.RecordID, rec.Seq, o.clock().UTC()); err != nil {
		return fmt.Errorf("mark synced %s: %w", rec.Key(), err)
	}
	return nil
}

// MarkFailed увеличивает retries и сохраняет ошибку; запись остается ожидающей
func (o *Outbox) MarkFailed(ctx context.Context, rec SyncRecord, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if err := o.repo.MarkRecordsFailed(ctx, rec.TableName, rec.RecordID, rec.Seq, msg); err != nil {
		return fmt.Errorf("mark failed %s: %w", rec.Key(), err)
	}
	return nil
}

func (o *Outbox) CountPending(ctx context.Context) (int, error) {
	n, err := o.repo.CountPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("count pending: %w", err)
	}
	return n, nil
}

// List возвращает записи очереди для просмотра
func (o *Outbox) List(ctx context.Context, includeSynced bool, limit int) ([]SyncRecord, error) {
	records, err := o.repo.ListRecords(ctx, includeSynced, limit)
	if err != nil {
		return nil, fmt.Errorf("list outbox: %w", err)
	}
	return records, nil
}
