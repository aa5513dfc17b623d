package sync

import (
	"context"
	"time"

	"offsync/internal/model"
)

// OutboxRepository хранилище очереди исходящих изменений
type OutboxRepository interface {
	// AppendRecord добавляет запись и увеличивает pendingChanges в одной транзакции
	AppendRecord(ctx context.Context, rec *SyncRecord) error
	// ListPending возвращает неотправленные записи по возрастанию createdAt
	ListPending(ctx context.Context) ([]SyncRecord, error)
	// MarkRecordsSynced отмечает отправленными записи ключа с seq не больше upToSeq
	MarkRecordsSynced(ctx context.Context, table, recordID string, upToSeq int64, at time.Time) error
	// MarkRecordsFailed увеличивает retries и запоминает ошибку
	MarkRecordsFailed(ctx context.Context, table, recordID string, upToSeq int64, lastError string) error
	CountPending(ctx context.Context) (int, error)
	ListRecords(ctx context.Context, includeSynced bool, limit int) ([]SyncRecord, error)
}

// StatusRepository хранилище единственной записи статуса
type StatusRepository interface {
	GetStatus(ctx context.Context) (*SyncStatus, error)
	// CreateStatus создает запись, если ее нет. Возвращает true, если запись создана.
	CreateStatus(ctx context.Context, status SyncStatus) (bool, error)
	UpdateStatus(ctx context.Context, upd StatusUpdate) error
}

// EntityStore локальные бизнес-таблицы, доступные только через обобщенные операции
type EntityStore interface {
	// UpsertEntity идемпотентно записывает сущность по id (или syncId)
	UpsertEntity(ctx context.Context, table string, e model.Entity, syncedAt time.Time) error
	DeleteEntity(ctx context.Context, table, key string) error
}

// Store все локальные порты движка синхронизации
type Store interface {
	OutboxRepository
	StatusRepository
	EntityStore
}

// Transport удаленные push и pull endpoints
type Transport interface {
	Push(ctx context.Context, payload PushPayload) error
	Pull(ctx context.Context, req PullRequest) (*PullResponse, error)
}

// OnlineDetector дешевая проверка доступности сети без побочных эффектов
type OnlineDetector interface {
	IsOnline() bool
}
