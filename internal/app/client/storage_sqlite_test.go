package client

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offsync/internal/domain/sync"
	"offsync/internal/model"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func appendRecord(t *testing.T, s *SQLiteStorage, table, id string, at time.Time) *sync.SyncRecord {
	t.Helper()
	rec := &sync.SyncRecord{
		ID:        table + "-" + id + "-" + at.Format("150405.000"),
		TableName: table,
		RecordID:  id,
		Action:    sync.ActionUpdate,
		Data:      model.Entity{"id": id},
		CreatedAt: at,
	}
	require.NoError(t, s.AppendRecord(context.Background(), rec))
	return rec
}

func TestSQLiteStorage_Status(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.GetStatus(ctx)
	assert.ErrorIs(t, err, sync.ErrStatusNotInitialized)

	created, err := s.CreateStatus(ctx, sync.SyncStatus{ServerURL: "http://a"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.CreateStatus(ctx, sync.SyncStatus{ServerURL: "http://b"})
	require.NoError(t, err)
	assert.False(t, created)

	at := time.Date(2024, 1, 2, 3, 4, 5, 600, time.UTC)
	success := true
	pending := 7
	require.NoError(t, s.UpdateStatus(ctx, sync.StatusUpdate{
		LastSyncAt:      &at,
		LastSyncSuccess: &success,
		PendingChanges:  &pending,
	}))

	st, err := s.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, "http://a", st.ServerURL)
	assert.True(t, st.LastSyncSuccess)
	assert.Equal(t, 7, st.PendingChanges)
	require.NotNil(t, st.LastSyncAt)
	assert.True(t, at.Equal(*st.LastSyncAt))
	assert.Nil(t, st.LastPullAt)
}

func TestSQLiteStorage_UpdateStatusUninitialized(t *testing.T) {
	s := newTestStorage(t)
	success := false

	err := s.UpdateStatus(context.Background(), sync.StatusUpdate{LastSyncSuccess: &success})

	assert.ErrorIs(t, err, sync.ErrStatusNotInitialized)
}

func TestSQLiteStorage_Queue(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	_, err := s.CreateStatus(ctx, sync.SyncStatus{})
	require.NoError(t, err)

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r1 := appendRecord(t, s, "User", "u1", t0)
	r2 := appendRecord(t, s, "User", "u2", t0.Add(time.Second))
	// та же метка времени: порядок по seq
	r3 := appendRecord(t, s, "User", "u1", t0.Add(time.Second))
	assert.Less(t, r1.Seq, r2.Seq)
	assert.Less(t, r2.Seq, r3.Seq)

	st, err := s.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.PendingChanges)

	pending, err := s.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, []int64{r1.Seq, r2.Seq, r3.Seq}, []int64{pending[0].Seq, pending[1].Seq, pending[2].Seq})
	assert.Equal(t, model.Entity{"id": "u1"}, pending[0].Data)
	assert.True(t, t0.Equal(pending[0].CreatedAt))

	// только записи не новее r1
	require.NoError(t, s.MarkRecordsFailed(ctx, "User", "u1", r1.Seq, "boom"))
	require.NoError(t, s.MarkRecordsSynced(ctx, "User", "u1", r1.Seq, t0.Add(time.Minute)))

	pending, err = s.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, r2.Seq, pending[0].Seq)
	assert.Equal(t, r3.Seq, pending[1].Seq)
	assert.Zero(t, pending[1].Retries)

	n, err := s.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := s.ListRecords(ctx, true, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.NotNil(t, all[0].SyncedAt)
	assert.Equal(t, 1, all[0].Retries)
	assert.Equal(t, "boom", all[0].LastError)

	limited, err := s.ListRecords(ctx, false, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLiteStorage_CreateStatusCountsQueue(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	appendRecord(t, s, "User", "u1", time.Now())

	_, err := s.CreateStatus(ctx, sync.SyncStatus{})
	require.NoError(t, err)

	st, err := s.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.PendingChanges)
}

func TestSQLiteStorage_UpsertEntity(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("by id", func(t *testing.T) {
		require.NoError(t, s.UpsertEntity(ctx, "User", model.Entity{"id": "u1", "name": "Ann"}, now))
		require.NoError(t, s.UpsertEntity(ctx, "User", model.Entity{"id": "u1", "name": "Anna"}, now))

		list, err := s.ListEntities(ctx, "User")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "Anna", list[0].Data["name"])
		assert.False(t, list[0].NeedsSync)
		require.NotNil(t, list[0].LastSynced)
	})

	t.Run("by existing sync id", func(t *testing.T) {
		require.NoError(t, s.UpsertEntity(ctx, "Invoice", model.Entity{"id": "i1", "syncId": "s1", "n": 1.0}, now))
		require.NoError(t, s.UpsertEntity(ctx, "Invoice", model.Entity{"syncId": "s1", "n": 2.0}, now))

		e, err := s.GetEntity(ctx, "Invoice", "i1")
		require.NoError(t, err)
		assert.Equal(t, 2.0, e.Data["n"])

		list, err := s.ListEntities(ctx, "Invoice")
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("sync id becomes id", func(t *testing.T) {
		require.NoError(t, s.UpsertEntity(ctx, "Message", model.Entity{"syncId": "m-sync"}, now))

		e, err := s.GetEntity(ctx, "Message", "m-sync")
		require.NoError(t, err)
		assert.Equal(t, "m-sync", e.Data.ID())
	})

	t.Run("no key", func(t *testing.T) {
		err := s.UpsertEntity(ctx, "Message", model.Entity{"text": "hi"}, now)

		assert.ErrorIs(t, err, sync.ErrMissingID)
	})

	t.Run("delete by key", func(t *testing.T) {
		require.NoError(t, s.DeleteEntity(ctx, "Invoice", "s1"))
		require.NoError(t, s.DeleteEntity(ctx, "Invoice", "missing"))

		_, err := s.GetEntity(ctx, "Invoice", "i1")
		assert.ErrorIs(t, err, ErrEntityNotFound)
	})
}

// recordFor фабрика записей очереди без каталога
func recordFor(table, id string, data model.Entity) RecordFactory {
	return func(action sync.Action) (*sync.SyncRecord, error) {
		return &sync.SyncRecord{
			ID:        uuid.NewString(),
			TableName: table,
			RecordID:  id,
			Action:    action,
			Data:      data,
			CreatedAt: time.Now(),
		}, nil
	}
}

func TestSQLiteStorage_PutEntity(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	_, err := s.CreateStatus(ctx, sync.SyncStatus{})
	require.NoError(t, err)

	ann := model.Entity{"id": "u1", "name": "Ann"}
	rec, err := s.PutEntity(ctx, "User", ann, recordFor("User", "u1", ann))
	require.NoError(t, err)
	assert.Equal(t, sync.ActionCreate, rec.Action)
	assert.NotZero(t, rec.Seq)

	anna := model.Entity{"id": "u1", "name": "Anna"}
	rec, err = s.PutEntity(ctx, "User", anna, recordFor("User", "u1", anna))
	require.NoError(t, err)
	assert.Equal(t, sync.ActionUpdate, rec.Action)

	e, err := s.GetEntity(ctx, "User", "u1")
	require.NoError(t, err)
	assert.True(t, e.NeedsSync)
	assert.Equal(t, "Anna", e.Data["name"])

	st, err := s.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.PendingChanges)

	// запись перестает требовать синхронизации после отправки всех изменений
	require.NoError(t, s.MarkRecordsSynced(ctx, "User", "u1", rec.Seq, time.Now()))
	e, err = s.GetEntity(ctx, "User", "u1")
	require.NoError(t, err)
	assert.False(t, e.NeedsSync)
	assert.NotNil(t, e.LastSynced)

	rec, err = s.RemoveEntity(ctx, "User", "u1", recordFor("User", "u1", model.Entity{"id": "u1"}))
	require.NoError(t, err)
	assert.Equal(t, sync.ActionDelete, rec.Action)
	_, err = s.RemoveEntity(ctx, "User", "u1", recordFor("User", "u1", model.Entity{"id": "u1"}))
	assert.ErrorIs(t, err, ErrEntityNotFound)

	_, err = s.PutEntity(ctx, "User", model.Entity{"name": "nobody"}, recordFor("User", "", nil))
	assert.ErrorIs(t, err, sync.ErrMissingID)

	pending, err := s.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1, "only the delete stays pending")
}

func TestSQLiteStorage_PutEntityAtomic(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		factory func(s *SQLiteStorage) RecordFactory
	}{
		{
			name: "record construction fails",
			factory: func(*SQLiteStorage) RecordFactory {
				return func(sync.Action) (*sync.SyncRecord, error) { return nil, errors.New("boom") }
			},
		},
		{
			name: "queue insert fails",
			factory: func(s *SQLiteStorage) RecordFactory {
				// запись с тем же id уже в очереди, UNIQUE не даст вставить вторую
				dup := appendRecord(t, s, "User", "other", time.Now())
				return func(action sync.Action) (*sync.SyncRecord, error) {
					rec, _ := recordFor("User", "u1", nil)(action)
					rec.ID = dup.ID
					return rec, nil
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStorage(t)
			_, err := s.CreateStatus(ctx, sync.SyncStatus{})
			require.NoError(t, err)

			ann := model.Entity{"id": "u2", "name": "Ann"}
			_, err = s.PutEntity(ctx, "User", ann, recordFor("User", "u2", ann))
			require.NoError(t, err)

			factory := tt.factory(s)
			before, err := s.GetStatus(ctx)
			require.NoError(t, err)

			_, err = s.PutEntity(ctx, "User", model.Entity{"id": "u1", "name": "Bob"}, factory)
			require.Error(t, err)
			_, err = s.GetEntity(ctx, "User", "u1")
			assert.ErrorIs(t, err, ErrEntityNotFound, "entity write must be rolled back")

			_, err = s.RemoveEntity(ctx, "User", "u2", factory)
			require.Error(t, err)
			_, err = s.GetEntity(ctx, "User", "u2")
			assert.NoError(t, err, "delete must be rolled back")

			after, err := s.GetStatus(ctx)
			require.NoError(t, err)
			assert.Equal(t, before.PendingChanges, after.PendingChanges)
		})
	}
}

func TestSQLiteStorage_Engine(t *testing.T) {
	// хранилище подходит движку синхронизации целиком
	s := newTestStorage(t)
	var store sync.Store = s
	assert.NotNil(t, store)
}
