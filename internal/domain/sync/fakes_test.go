package sync

import (
	"context"
	"errors"
	"io"
	"sort"
	stdsync "sync"
	"time"

	"github.com/stretchr/testify/mock"
	"golang.org/x/exp/slog"

	"offsync/internal/domain/catalog"
	"offsync/internal/domain/codec"
	"offsync/internal/model"
)

// memStore хранилище в памяти для тестов движка
type memStore struct {
	mu       stdsync.Mutex
	seq      int64
	records  []SyncRecord
	status   *SyncStatus
	entities map[string]map[string]model.Entity
	applied  []string // порядок операций "table/key"
	failOn   map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		entities: make(map[string]map[string]model.Entity),
		failOn:   make(map[string]error),
	}
}

func (m *memStore) AppendRecord(_ context.Context, rec *SyncRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	rec.Seq = m.seq
	m.records = append(m.records, *rec)
	if m.status != nil {
		m.status.PendingChanges++
	}
	return nil
}

func (m *memStore) ListPending(_ context.Context) ([]SyncRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []SyncRecord
	for _, r := range m.records {
		if r.SyncedAt == nil {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Seq < out[j].Seq
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memStore) MarkRecordsSynced(_ context.Context, table, recordID string, upToSeq int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		r := &m.records[i]
		if r.TableName == table && r.RecordID == recordID && r.SyncedAt == nil && r.Seq <= upToSeq {
			t := at
			r.SyncedAt = &t
		}
	}
	return nil
}

func (m *memStore) MarkRecordsFailed(_ context.Context, table, recordID string, upToSeq int64, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		r := &m.records[i]
		if r.TableName == table && r.RecordID == recordID && r.SyncedAt == nil && r.Seq <= upToSeq {
			r.Retries++
			r.LastError = lastError
		}
	}
	return nil
}

func (m *memStore) CountPending(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.records {
		if r.SyncedAt == nil {
			n++
		}
	}
	return n, nil
}

func (m *memStore) ListRecords(_ context.Context, includeSynced bool, _ int) ([]SyncRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []SyncRecord
	for _, r := range m.records {
		if includeSynced || r.SyncedAt == nil {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) record(seq int64) SyncRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.Seq == seq {
			return r
		}
	}
	return SyncRecord{}
}

func (m *memStore) GetStatus(_ context.Context) (*SyncStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == nil {
		return nil, ErrStatusNotInitialized
	}
	cp := *m.status
	return &cp, nil
}

func (m *memStore) CreateStatus(_ context.Context, status SyncStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != nil {
		return false, nil
	}
	m.status = &status
	return true, nil
}

func (m *memStore) UpdateStatus(_ context.Context, upd StatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == nil {
		return ErrStatusNotInitialized
	}
	if upd.LastSyncAt != nil {
		m.status.LastSyncAt = upd.LastSyncAt
	}
	if upd.LastSyncSuccess != nil {
		m.status.LastSyncSuccess = *upd.LastSyncSuccess
	}
	if upd.PendingChanges != nil {
		m.status.PendingChanges = *upd.PendingChanges
	}
	if upd.ServerURL != nil {
		m.status.ServerURL = *upd.ServerURL
	}
	if upd.LastPullAt != nil {
		m.status.LastPullAt = upd.LastPullAt
	}
	return nil
}

func (m *memStore) UpsertEntity(_ context.Context, table string, e model.Entity, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := e.Key()
	if err, ok := m.failOn[table+"/"+key]; ok {
		return err
	}
	if m.entities[table] == nil {
		m.entities[table] = make(map[string]model.Entity)
	}
	m.entities[table][key] = e.Clone()
	m.applied = append(m.applied, "upsert:"+table+"/"+key)
	return nil
}

func (m *memStore) DeleteEntity(_ context.Context, table, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failOn[table+"/"+key]; ok {
		return err
	}
	delete(m.entities[table], key)
	m.applied = append(m.applied, "delete:"+table+"/"+key)
	return nil
}

// MockTransport мок удаленных endpoints
type MockTransport struct {
	mock.Mock
	mu    stdsync.Mutex
	calls []string
}

func (m *MockTransport) Push(ctx context.Context, payload PushPayload) error {
	m.mu.Lock()
	m.calls = append(m.calls, "push:"+payload.TableName+"/"+payload.RecordID)
	m.mu.Unlock()
	args := m.Called(ctx, payload)
	return args.Error(0)
}

func (m *MockTransport) Pull(ctx context.Context, req PullRequest) (*PullResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, "pull")
	m.mu.Unlock()
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PullResponse), args.Error(1)
}

func (m *MockTransport) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

type staticOnline bool

func (s staticOnline) IsOnline() bool { return bool(s) }

var errBoom = errors.New("boom")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCatalog() *catalog.Catalog {
	return catalog.MustNew(
		catalog.Table{Name: "Organization"},
		catalog.Table{Name: "User", Composite: []catalog.Field{{Name: "preferences"}}},
		catalog.Table{Name: "Invoice"},
	)
}

func testCodec() *codec.Codec {
	return codec.New(testCatalog(), codec.Options{StringComposite: true})
}

// fixedClock возвращает монотонно растущее время с шагом в секунду
func fixedClock(start time.Time) func() time.Time {
	var mu stdsync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(time.Second)
		return cur
	}
}
