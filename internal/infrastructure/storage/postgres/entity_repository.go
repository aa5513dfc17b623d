package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/exp/slog"

	"offsync/internal/domain/replica"
	"offsync/internal/model"
)

// querier общая часть pgxpool.Pool и pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EntityRepository хранит записи всех таблиц каталога в одной таблице entities
type EntityRepository struct {
	db  querier
	log *slog.Logger
}

func NewEntityRepository(db querier, log *slog.Logger) *EntityRepository {
	return &EntityRepository{
		db:  db,
		log: log.With("component", "entity_repository"),
	}
}

func (r *EntityRepository) Upsert(ctx context.Context, tenant, table, id string, data model.Entity, at time.Time) error {
	const query = `
		INSERT INTO entities (tenant_id, table_name, id, data, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, NULL)
		ON CONFLICT (tenant_id, table_name, id) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at,
			deleted_at = NULL`

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal data: %w", err)
	}

	if _, err := r.db.Exec(ctx, query, tenant, table, id, raw, at); err != nil {
		r.log.Error("failed to upsert entity",
			"tenant", tenant, "table", table, "id", id, "error", err)
		return fmt.Errorf("upsert entity: %w", err)
	}
	return nil
}

func (r *EntityRepository) Tombstone(ctx context.Context, tenant, table, id string, at time.Time) error {
	const query = `
		INSERT INTO entities (tenant_id, table_name, id, data, updated_at, deleted_at)
		VALUES ($1, $2, $3, jsonb_build_object('id', $3::text), $4, $4)
		ON CONFLICT (tenant_id, table_name, id) DO UPDATE SET
			updated_at = EXCLUDED.updated_at,
			deleted_at = EXCLUDED.deleted_at`

	if _, err := r.db.Exec(ctx, query, tenant, table, id, at); err != nil {
		r.log.Error("failed to tombstone entity",
			"tenant", tenant, "table", table, "id", id, "error", err)
		return fmt.Errorf("tombstone entity: %w", err)
	}
	return nil
}

func (r *EntityRepository) ChangedSince(ctx context.Context, tenant, table string, since *time.Time) ([]replica.Row, error) {
	const (
		live = `
		SELECT table_name, id, data, updated_at, deleted_at
		FROM entities
		WHERE tenant_id = $1 AND table_name = $2 AND deleted_at IS NULL
		ORDER BY updated_at, id`
		changed = `
		SELECT table_name, id, data, updated_at, deleted_at
		FROM entities
		WHERE tenant_id = $1 AND table_name = $2 AND updated_at > $3
		ORDER BY updated_at, id`
	)

	var (
		rows pgx.Rows
		err  error
	)
	if since == nil {
		rows, err = r.db.Query(ctx, live, tenant, table)
	} else {
		rows, err = r.db.Query(ctx, changed, tenant, table, *since)
	}
	if err != nil {
		r.log.Error("failed to query changes", "tenant", tenant, "table", table, "error", err)
		return nil, fmt.Errorf("query changes: %w", err)
	}
	defer rows.Close()

	var out []replica.Row
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate changes: %w", err)
	}
	return out, nil
}

func (r *EntityRepository) Get(ctx context.Context, tenant, table, id string) (*replica.Row, error) {
	const query = `
		SELECT table_name, id, data, updated_at, deleted_at
		FROM entities
		WHERE tenant_id = $1 AND table_name = $2 AND id = $3`

	row, err := scanRow(r.db.QueryRow(ctx, query, tenant, table, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, replica.ErrNotFound
		}
		return nil, fmt.Errorf("get entity: %w", err)
	}
	return row, nil
}

func (r *EntityRepository) Counts(ctx context.Context, tenant string) (map[string]int, error) {
	const query = `
		SELECT table_name, count(*)
		FROM entities
		WHERE tenant_id = $1 AND deleted_at IS NULL
		GROUP BY table_name`

	rows, err := r.db.Query(ctx, query, tenant)
	if err != nil {
		return nil, fmt.Errorf("count entities: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			table string
			n     int
		)
		if err := rows.Scan(&table, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[table] = n
	}
	return counts, rows.Err()
}

func scanRow(row pgx.Row) (*replica.Row, error) {
	var (
		out replica.Row
		raw []byte
	)
	if err := row.Scan(&out.Table, &out.ID, &raw, &out.UpdatedAt, &out.DeletedAt); err != nil {
		return nil, fmt.Errorf("scan entity: %w", err)
	}
	if err := json.Unmarshal(raw, &out.Data); err != nil {
		return nil, fmt.Errorf("decode entity %s/%s: %w", out.Table, out.ID, err)
	}
	return &out, nil
}
