package sync

import (
	"errors"
	"fmt"
)

var (
	ErrOffline              = errors.New("network is unavailable")
	ErrSyncInProgress       = errors.New("sync already in progress")
	ErrRejected             = errors.New("rejected by remote")
	ErrInvalidAction        = errors.New("invalid action")
	ErrMissingID            = errors.New("record has no id or syncId")
	ErrStatusNotInitialized = errors.New("sync status is not initialized")
	ErrEmptyRecordID        = errors.New("record id is empty")
)

// Kind класс ошибки синхронизации
type Kind string

const (
	KindConnectivity Kind = "connectivity"
	KindTransport    Kind = "transport"
	KindRejection    Kind = "rejection"
	KindDecode       Kind = "decode"
	KindApply        Kind = "apply"
	KindStorage      Kind = "storage"
)

// RecordError ошибка обработки одной записи
type RecordError struct {
	Kind     Kind
	Table    string
	RecordID string
	Err      error
}

func (e RecordError) Error() string {
	if e.Table == "" && e.RecordID == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s/%s: %v", e.Table, e.RecordID, e.Err)
}

func (e RecordError) Unwrap() error {
	return e.Err
}

// RemoteError ответ сервера с ошибкой. Текст тела ответа является причиной.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("remote returned status %d", e.Status)
}

// Is относит ответы 4xx к отказам удаленной стороны
func (e *RemoteError) Is(target error) bool {
	return target == ErrRejected && e.Status >= 400 && e.Status < 500
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, ErrOffline):
		return KindConnectivity
	case errors.Is(err, ErrRejected):
		return KindRejection
	default:
		return KindTransport
	}
}

func connectivityFailure() RecordError {
	return RecordError{Kind: KindConnectivity, Err: ErrOffline}
}
