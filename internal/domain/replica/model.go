package replica

import (
	"time"

	"offsync/internal/model"
)

// DefaultTenant арендатор для клиентов без заголовка X-Tenant-ID
const DefaultTenant = "default"

// Row сохраненная на сервере запись
type Row struct {
	Table     string
	ID        string
	Data      model.Entity
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// Entity возвращает запись в виде для ответа pull
func (r Row) Entity() model.Entity {
	e := r.Data.Clone()
	e[model.FieldID] = r.ID
	e[model.FieldUpdatedAt] = r.UpdatedAt.UTC().Format(time.RFC3339Nano)
	if r.DeletedAt != nil {
		e[model.FieldDeletedAt] = r.DeletedAt.UTC().Format(time.RFC3339Nano)
	} else {
		delete(e, model.FieldDeletedAt)
	}
	return e
}

// Changes ответ pull: записи по таблицам и момент, к которому они актуальны
type Changes struct {
	Tables     map[string][]model.Entity
	ServerTime time.Time
}

// Status сводка по данным арендатора
type Status struct {
	Tenant     string
	ServerTime time.Time
	Tables     map[string]int
}
