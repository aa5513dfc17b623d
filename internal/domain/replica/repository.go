package replica

import (
	"context"
	"time"

	"offsync/internal/model"
)

// Repository хранилище записей всех арендаторов
type Repository interface {
	// Upsert создает запись или заменяет ее данные; снимает отметку удаления
	Upsert(ctx context.Context, tenant, table, id string, data model.Entity, at time.Time) error
	// Tombstone отмечает запись удаленной. Неизвестная запись сохраняется как удаленная.
	Tombstone(ctx context.Context, tenant, table, id string, at time.Time) error

	// ChangedSince возвращает записи таблицы, измененные после since.
	// При since == nil только живые записи.
	ChangedSince(ctx context.Context, tenant, table string, since *time.Time) ([]Row, error)
	Get(ctx context.Context, tenant, table, id string) (*Row, error)
	// Counts число живых записей по таблицам
	Counts(ctx context.Context, tenant string) (map[string]int, error)
}
