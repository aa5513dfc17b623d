package sync

import (
	"context"
	stdsync "sync"
	"time"

	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"

	"offsync/internal/domain/codec"
)

// Pusher выгружает очередь на сервер
type Pusher struct {
	outbox    *Outbox
	status    *StatusStore
	codec     *codec.Codec
	transport Transport
	online    OnlineDetector
	cfg       Config
	log       *slog.Logger
	clock     func() time.Time
}

func NewPusher(outbox *Outbox, status *StatusStore, cdc *codec.Codec, transport Transport, online OnlineDetector, log *slog.Logger, cfg *Config) *Pusher {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	c.normalize()

	return &Pusher{
		outbox:    outbox,
		status:    status,
		codec:     cdc,
		transport: transport,
		online:    online,
		cfg:       c,
		log:       log.With(slog.String("component", "push")),
		clock:     time.Now,
	}
}

// outcome результат отправки одной записи
type outcome struct {
	done bool
	err  *RecordError
}

// Push отправляет срез очереди по одной записи. Ошибка одной записи не
// прерывает обработку остальных. Статус обновляется один раз в конце.
func (p *Pusher) Push(ctx context.Context) PushResult {
	if !p.online.IsOnline() {
		p.log.Info("push skipped: offline")
		f := connectivityFailure()
		return PushResult{Success: false, Errors: []string{f.Error()}, Failures: []RecordError{f}}
	}

	snap, err := p.outbox.DrainPending(ctx)
	if err != nil {
		p.log.Error("push: drain pending", slog.String("error", err.Error()))
		f := RecordError{Kind: KindStorage, Err: err}
		return PushResult{Success: false, Errors: []string{f.Error()}, Failures: []RecordError{f}}
	}

	outcomes := make([]outcome, len(snap.Records))
	if p.cfg.Workers <= 1 {
		for i, rec := range snap.Records {
			outcomes[i] = p.pushOne(ctx, rec)
		}
	} else {
		p.pushParallel(ctx, snap, outcomes)
	}

	var result PushResult
	for _, o := range outcomes {
		if o.err != nil {
			result.Failed++
			result.Failures = append(result.Failures, *o.err)
			result.Errors = append(result.Errors, o.err.Error())
			continue
		}
		result.Synced++
	}
	result.Success = result.Failed == 0

	p.finish(ctx, &result)

	p.log.Info("push finished",
		slog.Int("synced", result.Synced),
		slog.Int("failed", result.Failed),
	)
	return result
}

// pushParallel отправляет группы записей разных ключей параллельно.
// Внутри группы сохраняется порядок создания.
func (p *Pusher) pushParallel(ctx context.Context, snap *Snapshot, outcomes []outcome) {
	groups := make(map[string][]int)
	var order []string
	for i, rec := range snap.Records {
		k := rec.Key()
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}

	var mu stdsync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(p.cfg.Workers)
	for _, k := range order {
		idx := groups[k]
		g.Go(func() error {
			for _, i := range idx {
				o := p.pushOne(ctx, snap.Records[i])
				mu.Lock()
				outcomes[i] = o
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (p *Pusher) pushOne(ctx context.Context, rec SyncRecord) outcome {
	fail := func(kind Kind, err error) outcome {
		if markErr := p.outbox.MarkFailed(ctx, rec, err); markErr != nil {
			p.log.Warn("push: mark failed", slog.String("key", rec.Key()), slog.String("error", markErr.Error()))
		}
		return outcome{err: &RecordError{Kind: kind, Table: rec.TableName, RecordID: rec.RecordID, Err: err}}
	}

	data, err := p.codec.ToRemote(rec.TableName, rec.Data)
	if err != nil {
		return fail(KindDecode, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	err = p.transport.Push(callCtx, PushPayload{
		TableName: rec.TableName,
		RecordID:  rec.RecordID,
		Action:    rec.Action,
		Data:      data,
	})
	cancel()
	if err != nil {
		p.log.Debug("push: record failed", slog.String("key", rec.Key()), slog.String("error", err.Error()))
		return fail(classify(err), err)
	}

	if err := p.outbox.MarkSynced(ctx, rec); err != nil {
		// запись уже на сервере, повторная отправка безопасна
		return outcome{err: &RecordError{Kind: KindStorage, Table: rec.TableName, RecordID: rec.RecordID, Err: err}}
	}
	return outcome{done: true}
}

func (p *Pusher) finish(ctx context.Context, result *PushResult) {
	pending := result.Failed
	if p.cfg.PendingMode == PendingRecount {
		n, err := p.outbox.CountPending(ctx)
		if err != nil {
			p.log.Warn("push: recount pending", slog.String("error", err.Error()))
		} else {
			pending = n
		}
	}

	now := p.clock().UTC()
	success := result.Failed == 0
	err := p.status.Update(ctx, StatusUpdate{
		LastSyncAt:      &now,
		LastSyncSuccess: &success,
		PendingChanges:  &pending,
	})
	if err != nil {
		p.log.Error("push: update status", slog.String("error", err.Error()))
	}
}
