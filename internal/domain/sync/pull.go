package sync

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"offsync/internal/domain/codec"
	"offsync/internal/model"
)

// bookkeepingFields поля синхронизации, не имеющие смысла локально
var bookkeepingFields = []string{model.FieldLastSynced, model.FieldNeedsSync, model.FieldDeletedAt}

// Puller получает изменения с сервера и применяет их в порядке каталога
type Puller struct {
	status    *StatusStore
	store     EntityStore
	codec     *codec.Codec
	transport Transport
	online    OnlineDetector
	cfg       Config
	log       *slog.Logger
	clock     func() time.Time
}

func NewPuller(status *StatusStore, store EntityStore, cdc *codec.Codec, transport Transport, online OnlineDetector, log *slog.Logger, cfg *Config) *Puller {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	c.normalize()

	return &Puller{
		status:    status,
		store:     store,
		codec:     cdc,
		transport: transport,
		online:    online,
		cfg:       c,
		log:       log.With(slog.String("component", "pull")),
		clock:     time.Now,
	}
}

// Pull запрашивает изменения после курсора и применяет их таблица за таблицей
// строго в порядке каталога, независимо от порядка в ответе.
func (p *Puller) Pull(ctx context.Context) PullResult {
	if !p.online.IsOnline() {
		p.log.Info("pull skipped: offline")
		f := connectivityFailure()
		return PullResult{Success: false, Errors: []string{f.Error()}, Failures: []RecordError{f}}
	}

	var result PullResult

	status, err := p.status.Read(ctx)
	if err != nil {
		p.log.Error("pull: read status", slog.String("error", err.Error()))
		result.fail(RecordError{Kind: KindStorage, Err: err})
		return result
	}

	cat := p.codec.Catalog()
	requestedAt := p.clock().UTC()

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	resp, err := p.transport.Pull(callCtx, PullRequest{
		LastSyncAt: status.LastPullAt,
		Tables:     cat.Names(),
	})
	cancel()
	if err != nil {
		p.log.Warn("pull: request failed", slog.String("error", err.Error()))
		result.fail(RecordError{Kind: classify(err), Err: fmt.Errorf("pull: %w", err)})
		success := false
		if err := p.status.Update(ctx, StatusUpdate{LastSyncSuccess: &success}); err != nil {
			p.log.Error("pull: update status", slog.String("error", err.Error()))
		}
		return result
	}

	for table := range resp.Tables {
		if !cat.Contains(table) {
			p.log.Warn("pull: ignoring table outside catalog", slog.String("table", table))
		}
	}

	now := p.clock().UTC()
	deferred := make(map[string][]model.Entity)
	for _, table := range cat.Names() {
		for _, rec := range resp.Tables[table] {
			if rec.IsTombstone() {
				if p.cfg.ReverseDeletes {
					deferred[table] = append(deferred[table], rec)
					continue
				}
				p.applyDelete(ctx, table, rec, &result)
				continue
			}
			p.applyUpsert(ctx, table, rec, now, &result)
		}
	}
	if p.cfg.ReverseDeletes {
		for _, table := range cat.Reversed() {
			for _, rec := range deferred[table] {
				p.applyDelete(ctx, table, rec, &result)
			}
		}
	}

	result.Success = result.Failed == 0
	p.finish(ctx, &result, resp.ServerTime, requestedAt)

	p.log.Info("pull finished",
		slog.Int("synced", result.Synced),
		slog.Int("deleted", result.Deleted),
		slog.Int("failed", result.Failed),
	)
	return result
}

func (p *Puller) applyUpsert(ctx context.Context, table string, rec model.Entity, now time.Time, result *PullResult) {
	local, fieldErrs := p.codec.ToLocal(table, rec)
	local = local.Without(bookkeepingFields...)
	key := local.Key()

	// ошибки декодирования не мешают сохранить остальную запись
	for _, fe := range fieldErrs {
		result.warn(RecordError{Kind: KindDecode, Table: table, RecordID: key, Err: fe})
	}

	if key == "" {
		result.fail(RecordError{Kind: KindApply, Table: table, RecordID: "?", Err: ErrMissingID})
		return
	}
	if err := p.store.UpsertEntity(ctx, table, local, now); err != nil {
		result.fail(RecordError{Kind: KindApply, Table: table, RecordID: key, Err: err})
		return
	}
	result.Synced++
}

func (p *Puller) applyDelete(ctx context.Context, table string, rec model.Entity, result *PullResult) {
	key := rec.Key()
	if key == "" {
		result.fail(RecordError{Kind: KindApply, Table: table, RecordID: "?", Err: ErrMissingID})
		return
	}
	if err := p.store.DeleteEntity(ctx, table, key); err != nil {
		result.fail(RecordError{Kind: KindApply, Table: table, RecordID: key, Err: err})
		return
	}
	result.Synced++
	result.Deleted++
}

// finish обновляет статус. Курсор сдвигается только после запуска без ошибок,
// чтобы неудачные записи пришли снова.
func (p *Puller) finish(ctx context.Context, result *PullResult, serverTime, requestedAt time.Time) {
	now := p.clock().UTC()
	success := result.Failed == 0
	upd := StatusUpdate{
		LastSyncAt:      &now,
		LastSyncSuccess: &success,
	}
	if success {
		cursor := serverTime.UTC()
		if serverTime.IsZero() {
			cursor = requestedAt
		}
		upd.LastPullAt = &cursor
	}
	if err := p.status.Update(ctx, upd); err != nil {
		p.log.Error("pull: update status", slog.String("error", err.Error()))
	}
}

func (r *PullResult) fail(e RecordError) {
	r.Failed++
	r.Success = false
	r.Failures = append(r.Failures, e)
	r.Errors = append(r.Errors, e.Error())
}

func (r *PullResult) warn(e RecordError) {
	r.Failures = append(r.Failures, e)
	r.Errors = append(r.Errors, e.Error())
}
