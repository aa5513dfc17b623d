package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/exp/slog"

	"offsync/internal/app/server/api"
	serverConfig "offsync/internal/app/server/config"
	"offsync/internal/config"
	"offsync/internal/domain/codec"
	"offsync/internal/domain/replica"
	"offsync/internal/infrastructure/storage/postgres"
	"offsync/internal/utils/logger"
)

func main() {
	cfg := serverConfig.MustLoad()
	log := logger.New(cfg.Env)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *serverConfig.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := config.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return err
	}

	storage, err := postgres.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer storage.Close()

	repo := postgres.NewEntityRepository(storage.Pool(), log)
	// сервер хранит составные поля нативным JSON
	service := replica.NewService(repo, codec.New(cat, codec.Options{}), log,
		&replica.Config{CursorLag: cfg.Sync.CursorLag})

	srv := &http.Server{
		Addr:    cfg.Server.RunAddress,
		Handler: api.New(api.Deps{Replica: service, DB: storage.Pool()}, cfg, log),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started",
			slog.String("address", cfg.Server.RunAddress),
			slog.String("env", cfg.Env),
			slog.Int("tables", cat.Len()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
