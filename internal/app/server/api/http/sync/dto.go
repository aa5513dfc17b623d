package sync

import (
	"time"

	"offsync/internal/model"
)

type pushInput struct {
	Body PushRequest
}

type pushOutput struct {
	Body PushResponse
}

// PushRequest одна запись очереди клиента
type PushRequest struct {
	TableName string         `json:"tableName" minLength:"1" doc:"Table from the catalog"`
	RecordID  string         `json:"recordId" minLength:"1" doc:"Primary key of the record"`
	Action    string         `json:"action" enum:"create,update,delete"`
	Data      map[string]any `json:"data,omitempty" doc:"Full record for create/update, key fields for delete"`
}

type PushResponse struct {
	Status string `json:"status" example:"Ok"`
}

type pullInput struct {
	Body PullRequest
}

type pullOutput struct {
	ServerTime string `header:"X-Server-Time" doc:"Cursor for the next pull (RFC 3339)"`
	Body       map[string][]model.Entity
}

type PullRequest struct {
	LastSyncAt *time.Time `json:"lastSyncAt,omitempty" format:"date-time" doc:"Changes after this moment; all live records when empty"`
	Tables     []string   `json:"tables,omitempty" doc:"Tables to return; all catalog tables when empty"`
}

type statusInput struct{}

type statusOutput struct {
	Body StatusResponse
}

type StatusResponse struct {
	Tenant     string         `json:"tenant"`
	ServerTime time.Time      `json:"serverTime"`
	Tables     map[string]int `json:"tables" doc:"Live records per table"`
}
