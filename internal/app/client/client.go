package client

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"offsync/internal/app/client/config"
	"offsync/internal/app/client/online"
	sharedConfig "offsync/internal/config"
	"offsync/internal/domain/catalog"
	"offsync/internal/domain/codec"
	"offsync/internal/domain/sync"
	"offsync/internal/model"
)

// App локальный узел: хранилище, транспорт и движок синхронизации
type App struct {
	config    *config.Config
	log       *slog.Logger
	catalog   *catalog.Catalog
	storage   *SQLiteStorage
	transport *httpClient
	detector  online.Detector
	probe     *online.Probe
	sync      *sync.Service
	closers   []io.Closer
}

// New открывает локальное хранилище и создает запись статуса, если ее еще нет
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	cat, err := sharedConfig.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки каталога: %w", err)
	}

	storage, err := NewSQLiteStorage(cfg.DBPath())
	if err != nil {
		return nil, err
	}

	transport := NewHTTPClient(cfg, log)

	app := &App{
		config:    cfg,
		log:       log,
		catalog:   cat,
		storage:   storage,
		transport: transport,
		closers:   []io.Closer{storage},
	}

	if cfg.ForceOffline {
		app.detector = online.Forced(false)
	} else {
		app.probe = online.NewProbe(transport.HealthCheck, cfg.ProbeInterval, log)
		app.detector = app.probe
	}

	cdc := codec.New(cat, codec.Options{StringComposite: cfg.StringComposite})
	app.sync = sync.NewService(storage, transport, app.detector, cdc, log, cfg.SyncConfig())

	if err := app.sync.Init(ctx); err != nil {
		storage.Close()
		return nil, fmt.Errorf("ошибка инициализации статуса: %w", err)
	}

	return app, nil
}

// AddCloser закрывается вместе с приложением, например файл лога
func (a *App) AddCloser(c io.Closer) {
	a.closers = append(a.closers, c)
}

// Init создает запись статуса при первом запуске и возвращает ее
func (a *App) Init(ctx context.Context) (*sync.SyncStatus, error) {
	if err := a.sync.Init(ctx); err != nil {
		return nil, fmt.Errorf("ошибка инициализации статуса: %w", err)
	}
	return a.sync.Status(ctx)
}

func (a *App) Catalog() *catalog.Catalog {
	return a.catalog
}

// Put сохраняет запись локально и ставит изменение в очередь.
// Пустой id заменяется на новый uuid.
func (a *App) Put(ctx context.Context, table, id string, data model.Entity) (*sync.SyncRecord, error) {
	if !a.catalog.Contains(table) {
		return nil, fmt.Errorf("%w: %s", catalog.ErrUnknownTable, table)
	}
	if id == "" {
		id = data.ID()
	}
	if id == "" {
		id = uuid.NewString()
	}

	row := data.Clone()
	row[model.FieldID] = id

	return a.storage.PutEntity(ctx, table, row, func(action sync.Action) (*sync.SyncRecord, error) {
		return a.sync.NewRecord(table, id, action, row)
	})
}

// Delete удаляет запись локально и ставит удаление в очередь
func (a *App) Delete(ctx context.Context, table, id string) (*sync.SyncRecord, error) {
	if !a.catalog.Contains(table) {
		return nil, fmt.Errorf("%w: %s", catalog.ErrUnknownTable, table)
	}

	return a.storage.RemoveEntity(ctx, table, id, func(action sync.Action) (*sync.SyncRecord, error) {
		return a.sync.NewRecord(table, id, action, model.Entity{model.FieldID: id})
	})
}

func (a *App) Get(ctx context.Context, table, id string) (*LocalEntity, error) {
	return a.storage.GetEntity(ctx, table, id)
}

func (a *App) List(ctx context.Context, table string) ([]LocalEntity, error) {
	if !a.catalog.Contains(table) {
		return nil, fmt.Errorf("%w: %s", catalog.ErrUnknownTable, table)
	}
	return a.storage.ListEntities(ctx, table)
}

func (a *App) Outbox(ctx context.Context, includeSynced bool, limit int) ([]sync.SyncRecord, error) {
	return a.sync.Outbox(ctx, includeSynced, limit)
}

func (a *App) Status(ctx context.Context) (*sync.SyncStatus, error) {
	st, err := a.sync.Status(ctx)
	if errors.Is(err, sync.ErrStatusNotInitialized) {
		return nil, fmt.Errorf("статус не создан. Выполните: offsync init")
	}
	return st, err
}

// IsOnline последний известный результат проверки сети
func (a *App) IsOnline() bool {
	return a.detector.IsOnline()
}

// SyncNow одна полная синхронизация. Перед запуском сеть проверяется заново.
func (a *App) SyncNow(ctx context.Context) (sync.FullResult, error) {
	if a.probe != nil {
		a.probe.Check(ctx)
	}
	return a.sync.SyncNow(ctx)
}

// Watch синхронизирует по расписанию до отмены ctx. Первый успешный
// ответ сервера тоже считается восстановлением сети и запускает синхронизацию.
func (a *App) Watch(ctx context.Context, onResult func(sync.FullResult)) {
	var reconnected <-chan struct{}
	if a.probe != nil {
		a.probe.Start(ctx)
		reconnected = a.probe.Reconnected()
	}

	scheduler := NewScheduler(a.sync, a.config.SyncInterval, reconnected, a.log)
	if onResult != nil {
		scheduler.OnResult(onResult)
	}

	scheduler.Run(ctx)
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
