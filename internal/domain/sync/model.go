package sync

import (
	"time"

	"offsync/internal/model"
)

// Action вид локального изменения
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// SyncRecord запись очереди исходящих изменений.
// После установки SyncedAt запись неизменяема и не участвует в выгрузке.
type SyncRecord struct {
	ID        string       `json:"id"`
	Seq       int64        `json:"seq"`
	TableName string       `json:"tableName"`
	RecordID  string       `json:"recordId"`
	Action    Action       `json:"action"`
	Data      model.Entity `json:"data"`
	CreatedAt time.Time    `json:"createdAt"`
	SyncedAt  *time.Time   `json:"syncedAt"`
	Retries   int          `json:"retries"`
	LastError string       `json:"lastError,omitempty"`
}

func (r SyncRecord) Pending() bool {
	return r.SyncedAt == nil
}

// Key ключ сущности, к которой относится запись
func (r SyncRecord) Key() string {
	return r.TableName + "/" + r.RecordID
}

// Snapshot срез очереди, снятый один раз за запуск синхронизации
type Snapshot struct {
	Records   []SyncRecord
	HighWater int64
	TakenAt   time.Time
}

// SyncStatus единственная запись статуса синхронизации узла
type SyncStatus struct {
	LastSyncAt      *time.Time `json:"lastSyncAt"`
	LastSyncSuccess bool       `json:"lastSyncSuccess"`
	PendingChanges  int        `json:"pendingChanges"`
	ServerURL       string     `json:"serverUrl"`
	// LastPullAt курсор выгрузки: серверное время последнего безошибочного pull
	LastPullAt *time.Time `json:"lastPullAt"`
}

// StatusUpdate частичное обновление статуса: nil поля не меняются
type StatusUpdate struct {
	LastSyncAt      *time.Time
	LastSyncSuccess *bool
	PendingChanges  *int
	ServerURL       *string
	LastPullAt      *time.Time
}

// PushPayload тело запроса к push endpoint
type PushPayload struct {
	TableName string       `json:"tableName"`
	RecordID  string       `json:"recordId"`
	Action    Action       `json:"action"`
	Data      model.Entity `json:"data"`
}

// PullRequest тело запроса к pull endpoint
type PullRequest struct {
	LastSyncAt *time.Time `json:"lastSyncAt"`
	Tables     []string   `json:"tables"`
}

// PullResponse изменения по таблицам и серверное время ответа
type PullResponse struct {
	Tables     map[string][]model.Entity
	ServerTime time.Time
}

// PushResult итог выгрузки очереди
type PushResult struct {
	Success  bool          `json:"success"`
	Synced   int           `json:"synced"`
	Failed   int           `json:"failed"`
	Errors   []string      `json:"errors"`
	Failures []RecordError `json:"-"`
}

// PullResult итог применения удаленных изменений
type PullResult struct {
	Success  bool          `json:"success"`
	Synced   int           `json:"synced"`
	Failed   int           `json:"failed"`
	Deleted  int           `json:"deleted"`
	Errors   []string      `json:"errors"`
	Failures []RecordError `json:"-"`
}

// FullResult итог полной синхронизации
type FullResult struct {
	Push PushResult `json:"push"`
	Pull PullResult `json:"pull"`
}

func (r FullResult) Success() bool {
	return r.Push.Success && r.Pull.Success
}

// PendingMode способ расчета pendingChanges после push
type PendingMode string

const (
	// PendingRun число ошибок текущего запуска
	PendingRun PendingMode = "run"
	// PendingRecount фактическое число неотправленных записей
	PendingRecount PendingMode = "recount"
)
