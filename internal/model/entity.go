package model

import "fmt"

const (
	FieldID         = "id"
	FieldSyncID     = "syncId"
	FieldLastSynced = "lastSynced"
	FieldNeedsSync  = "needsSync"
	FieldDeletedAt  = "deletedAt"
	FieldUpdatedAt  = "updatedAt"
)

// Entity запись бизнес-таблицы в обобщенном виде
type Entity map[string]any

// ID возвращает первичный ключ записи
func (e Entity) ID() string {
	return e.stringField(FieldID)
}

// SyncID возвращает вторичный идентификатор синхронизации
func (e Entity) SyncID() string {
	return e.stringField(FieldSyncID)
}

// Key возвращает id, а при его отсутствии syncId
func (e Entity) Key() string {
	if id := e.ID(); id != "" {
		return id
	}
	return e.SyncID()
}

// IsTombstone сообщает, помечена ли запись как удаленная
func (e Entity) IsTombstone() bool {
	v, ok := e[FieldDeletedAt]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	return true
}

// Clone делает поверхностную копию записи
func (e Entity) Clone() Entity {
	out := make(Entity, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Without возвращает копию записи без указанных полей
func (e Entity) Without(fields ...string) Entity {
	out := e.Clone()
	for _, f := range fields {
		delete(out, f)
	}
	return out
}

func (e Entity) stringField(name string) string {
	v, ok := e[name]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// JSON numbers
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
