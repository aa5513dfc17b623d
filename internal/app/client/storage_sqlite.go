package client

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"offsync/internal/domain/sync"
	"offsync/internal/model"
)

// timeLayout фиксированной ширины, чтобы строки сортировались как время
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var ErrEntityNotFound = errors.New("запись не найдена")

// SQLiteStorage локальная база узла: очередь изменений, статус синхронизации и
// записи таблиц каталога
type SQLiteStorage struct {
	db    *sql.DB
	clock func() time.Time
}

var _ sync.Store = (*SQLiteStorage)(nil)

func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия базы данных: %w", err)
	}
	// одна запись за раз; параллельные push-воркеры ждут соединение
	db.SetMaxOpenConns(1)

	storage := &SQLiteStorage{db: db, clock: time.Now}

	if err := storage.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка инициализации таблиц: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) initTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sync_queue (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			table_name TEXT NOT NULL,
			record_id TEXT NOT NULL,
			action TEXT NOT NULL,
			data TEXT NOT NULL,
			created_at TEXT NOT NULL,
			synced_at TEXT,
			retries INTEGER NOT NULL DEFAULT 0,
			last_error TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_sync_queue_pending ON sync_queue(synced_at, created_at, seq);
		CREATE INDEX IF NOT EXISTS idx_sync_queue_key ON sync_queue(table_name, record_id);

		CREATE TABLE IF NOT EXISTS sync_status (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			last_sync_at TEXT,
			last_sync_success BOOLEAN NOT NULL DEFAULT 0,
			pending_changes INTEGER NOT NULL DEFAULT 0,
			server_url TEXT NOT NULL DEFAULT '',
			last_pull_at TEXT
		);

		CREATE TABLE IF NOT EXISTS entities (
			table_name TEXT NOT NULL,
			id TEXT NOT NULL,
			sync_id TEXT,
			data TEXT NOT NULL,
			last_synced TEXT,
			needs_sync BOOLEAN NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (table_name, id)
		);

		CREATE INDEX IF NOT EXISTS idx_entities_sync_id ON entities(table_name, sync_id);
	`)

	return err
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Очередь изменений

func (s *SQLiteStorage) AppendRecord(ctx context.Context, rec *sync.SyncRecord) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return appendRecordTx(ctx, tx, rec)
	})
}

// appendRecordTx пишет запись очереди и увеличивает pendingChanges в транзакции tx
func appendRecordTx(ctx context.Context, tx *sql.Tx, rec *sync.SyncRecord) error {
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("ошибка сериализации записи: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO sync_queue (id, table_name, record_id, action, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.TableName, rec.RecordID, string(rec.Action), string(data), formatTime(rec.CreatedAt))
	if err != nil {
		return fmt.Errorf("ошибка добавления в очередь: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("ошибка получения seq: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE sync_status SET pending_changes = pending_changes + 1 WHERE id = 1`,
	); err != nil {
		return fmt.Errorf("ошибка обновления счетчика: %w", err)
	}

	rec.Seq = seq
	return nil
}

const queueColumns = `seq, id, table_name, record_id, action, data, created_at, synced_at, retries, last_error`

func (s *SQLiteStorage) ListPending(ctx context.Context) ([]sync.SyncRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+queueColumns+`
		FROM sync_queue
		WHERE synced_at IS NULL
		ORDER BY created_at, seq
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения очереди: %w", err)
	}
	defer rows.Close()

	return scanQueue(rows)
}

func (s *SQLiteStorage) ListRecords(ctx context.Context, includeSynced bool, limit int) ([]sync.SyncRecord, error) {
	query := `SELECT ` + queueColumns + ` FROM sync_queue`
	args := []interface{}{}

	if !includeSynced {
		query += " WHERE synced_at IS NULL"
	}
	query += " ORDER BY created_at, seq"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения очереди: %w", err)
	}
	defer rows.Close()

	return scanQueue(rows)
}

// MarkRecordsSynced отмечает отправленными ожидающие записи ключа с seq <= upToSeq.
// Локальная запись перестает требовать синхронизации, когда для нее не осталось ожидающих изменений.
func (s *SQLiteStorage) MarkRecordsSynced(ctx context.Context, table, recordID string, upToSeq int64, at time.Time) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE sync_queue SET synced_at = ?
			WHERE table_name = ? AND record_id = ? AND synced_at IS NULL AND seq <= ?
		`, formatTime(at), table, recordID, upToSeq); err != nil {
			return fmt.Errorf("ошибка отметки отправки: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE entities SET needs_sync = 0, last_synced = ?
			WHERE table_name = ? AND id = ?
			  AND NOT EXISTS (
				SELECT 1 FROM sync_queue
				WHERE table_name = ? AND record_id = ? AND synced_at IS NULL
			  )
		`, formatTime(at), table, recordID, table, recordID); err != nil {
			return fmt.Errorf("ошибка обновления записи: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStorage) MarkRecordsFailed(ctx context.Context, table, recordID string, upToSeq int64, lastError string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sync_queue SET retries = retries + 1, last_error = ?
		WHERE table_name = ? AND record_id = ? AND synced_at IS NULL AND seq <= ?
	`, lastError, table, recordID, upToSeq)
	if err != nil {
		return fmt.Errorf("ошибка отметки неудачи: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) CountPending(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sync_queue WHERE synced_at IS NULL").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчета очереди: %w", err)
	}
	return count, nil
}

// Статус синхронизации

func (s *SQLiteStorage) GetStatus(ctx context.Context) (*sync.SyncStatus, error) {
	var (
		st                     sync.SyncStatus
		lastSyncAt, lastPullAt sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT last_sync_at, last_sync_success, pending_changes, server_url, last_pull_at
		FROM sync_status WHERE id = 1
	`).Scan(&lastSyncAt, &st.LastSyncSuccess, &st.PendingChanges, &st.ServerURL, &lastPullAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sync.ErrStatusNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения статуса: %w", err)
	}

	if st.LastSyncAt, err = parseNullTime(lastSyncAt); err != nil {
		return nil, err
	}
	if st.LastPullAt, err = parseNullTime(lastPullAt); err != nil {
		return nil, err
	}
	return &st, nil
}

// CreateStatus создает строку статуса, если ее нет. Счетчик берется из очереди.
func (s *SQLiteStorage) CreateStatus(ctx context.Context, status sync.SyncStatus) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO sync_status (id, last_sync_at, last_sync_success, pending_changes, server_url, last_pull_at)
		VALUES (1, ?, ?, (SELECT COUNT(*) FROM sync_queue WHERE synced_at IS NULL), ?, ?)
	`, nullTime(status.LastSyncAt), status.LastSyncSuccess, status.ServerURL, nullTime(status.LastPullAt))
	if err != nil {
		return false, fmt.Errorf("ошибка создания статуса: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ошибка создания статуса: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStorage) UpdateStatus(ctx context.Context, upd sync.StatusUpdate) error {
	var (
		sets []string
		args []interface{}
	)
	if upd.LastSyncAt != nil {
		sets = append(sets, "last_sync_at = ?")
		args = append(args, formatTime(*upd.LastSyncAt))
	}
	if upd.LastSyncSuccess != nil {
		sets = append(sets, "last_sync_success = ?")
		args = append(args, *upd.LastSyncSuccess)
	}
	if upd.PendingChanges != nil {
		sets = append(sets, "pending_changes = ?")
		args = append(args, *upd.PendingChanges)
	}
	if upd.ServerURL != nil {
		sets = append(sets, "server_url = ?")
		args = append(args, *upd.ServerURL)
	}
	if upd.LastPullAt != nil {
		sets = append(sets, "last_pull_at = ?")
		args = append(args, formatTime(*upd.LastPullAt))
	}
	if len(sets) == 0 {
		return nil
	}

	res, err := s.db.ExecContext(ctx, "UPDATE sync_status SET "+strings.Join(sets, ", ")+" WHERE id = 1", args...)
	if err != nil {
		return fmt.Errorf("ошибка обновления статуса: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sync.ErrStatusNotInitialized
	}
	return nil
}

// Записи таблиц

// UpsertEntity сохраняет запись с сервера. Ключ: id, иначе существующая строка
// с тем же syncId, иначе syncId становится id.
func (s *SQLiteStorage) UpsertEntity(ctx context.Context, table string, e model.Entity, syncedAt time.Time) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		id := e.ID()
		syncID := e.SyncID()
		if id == "" {
			if syncID == "" {
				return sync.ErrMissingID
			}
			err := tx.QueryRowContext(ctx,
				`SELECT id FROM entities WHERE table_name = ? AND sync_id = ?`, table, syncID,
			).Scan(&id)
			if errors.Is(err, sql.ErrNoRows) {
				id = syncID
			} else if err != nil {
				return fmt.Errorf("ошибка поиска по syncId: %w", err)
			}
		}

		row := e.Clone()
		row[model.FieldID] = id
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("ошибка сериализации записи: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO entities (table_name, id, sync_id, data, last_synced, needs_sync, updated_at)
			VALUES (?, ?, ?, ?, ?, 0, ?)
			ON CONFLICT (table_name, id) DO UPDATE SET
				sync_id = excluded.sync_id,
				data = excluded.data,
				last_synced = excluded.last_synced,
				needs_sync = 0,
				updated_at = excluded.updated_at
		`, table, id, nullString(syncID), string(data), formatTime(syncedAt), formatTime(s.clock()))
		if err != nil {
			return fmt.Errorf("ошибка сохранения записи: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStorage) DeleteEntity(ctx context.Context, table, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM entities WHERE table_name = ? AND (id = ? OR sync_id = ?)`, table, key, key)
	if err != nil {
		return fmt.Errorf("ошибка удаления записи: %w", err)
	}
	return nil
}

// LocalEntity запись с локальными полями синхронизации
type LocalEntity struct {
	Table      string
	Data       model.Entity
	NeedsSync  bool
	LastSynced *time.Time
	UpdatedAt  time.Time
}

// RecordFactory строит запись очереди для действия, выбранного по состоянию локальной записи
type RecordFactory func(action sync.Action) (*sync.SyncRecord, error)

// PutEntity сохраняет изменение приложения и ставит его в очередь одной транзакцией.
// Действие create, если записи раньше не было, иначе update.
func (s *SQLiteStorage) PutEntity(ctx context.Context, table string, e model.Entity, newRecord RecordFactory) (*sync.SyncRecord, error) {
	id := e.ID()
	if id == "" {
		return nil, sync.ErrMissingID
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации записи: %w", err)
	}

	var rec *sync.SyncRecord
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM entities WHERE table_name = ? AND id = ?)`, table, id,
		).Scan(&exists); err != nil {
			return fmt.Errorf("ошибка проверки существования записи: %w", err)
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO entities (table_name, id, sync_id, data, needs_sync, updated_at)
			VALUES (?, ?, ?, ?, 1, ?)
			ON CONFLICT (table_name, id) DO UPDATE SET
				sync_id = COALESCE(excluded.sync_id, entities.sync_id),
				data = excluded.data,
				needs_sync = 1,
				updated_at = excluded.updated_at
		`, table, id, nullString(e.SyncID()), string(data), formatTime(s.clock()))
		if err != nil {
			return fmt.Errorf("ошибка сохранения записи: %w", err)
		}

		action := sync.ActionUpdate
		if !exists {
			action = sync.ActionCreate
		}
		if rec, err = newRecord(action); err != nil {
			return err
		}
		return appendRecordTx(ctx, tx, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// RemoveEntity удаляет запись по изменению приложения и ставит удаление в очередь
// одной транзакцией. Отсутствующая запись дает ErrEntityNotFound.
func (s *SQLiteStorage) RemoveEntity(ctx context.Context, table, id string, newRecord RecordFactory) (*sync.SyncRecord, error) {
	var rec *sync.SyncRecord
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE table_name = ? AND id = ?`, table, id)
		if err != nil {
			return fmt.Errorf("ошибка удаления записи: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("ошибка удаления записи: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s/%s", ErrEntityNotFound, table, id)
		}

		if rec, err = newRecord(sync.ActionDelete); err != nil {
			return err
		}
		return appendRecordTx(ctx, tx, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

const entityColumns = `table_name, data, needs_sync, last_synced, updated_at`

func (s *SQLiteStorage) GetEntity(ctx context.Context, table, id string) (*LocalEntity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE table_name = ? AND id = ?`, table, id)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrEntityNotFound, table, id)
	}
	return e, err
}

func (s *SQLiteStorage) ListEntities(ctx context.Context, table string) ([]LocalEntity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE table_name = ? ORDER BY id`, table)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer rows.Close()

	var out []LocalEntity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (s *SQLiteStorage) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanQueue(rows *sql.Rows) ([]sync.SyncRecord, error) {
	var out []sync.SyncRecord
	for rows.Next() {
		var (
			rec       sync.SyncRecord
			action    string
			data      string
			createdAt string
			syncedAt  sql.NullString
		)
		if err := rows.Scan(&rec.Seq, &rec.ID, &rec.TableName, &rec.RecordID, &action, &data,
			&createdAt, &syncedAt, &rec.Retries, &rec.LastError); err != nil {
			return nil, fmt.Errorf("ошибка сканирования очереди: %w", err)
		}
		rec.Action = sync.Action(action)
		if err := json.Unmarshal([]byte(data), &rec.Data); err != nil {
			return nil, fmt.Errorf("ошибка разбора записи %d: %w", rec.Seq, err)
		}
		var err error
		if rec.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("ошибка разбора времени: %w", err)
		}
		if rec.SyncedAt, err = parseNullTime(syncedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanEntity(row scanner) (*LocalEntity, error) {
	var (
		e          LocalEntity
		data       string
		lastSynced sql.NullString
		updatedAt  string
	)
	if err := row.Scan(&e.Table, &data, &e.NeedsSync, &lastSynced, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("ошибка сканирования записи: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &e.Data); err != nil {
		return nil, fmt.Errorf("ошибка разбора записи: %w", err)
	}
	var err error
	if e.LastSynced, err = parseNullTime(lastSynced); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("ошибка разбора времени: %w", err)
	}
	return &e, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора времени: %w", err)
	}
	return &t, nil
}
