// POST /api/sync/push    # Применить одно изменение клиента
// POST /api/sync/pull    # Изменения после курсора клиента
// GET  /api/sync/status  # Время сервера и число записей по таблицам
// GET  /api/v1/health    # Проверка доступности (probe клиента)

package api

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/exp/slog"

	"offsync/internal/app/server/api/http/health"
	"offsync/internal/app/server/api/http/middleware"
	"offsync/internal/app/server/api/http/middleware/logger"
	"offsync/internal/app/server/api/http/middleware/ratelimit"
	"offsync/internal/app/server/api/http/middleware/tenant"
	syncAPI "offsync/internal/app/server/api/http/sync"
	"offsync/internal/app/server/config"
	"offsync/internal/domain/replica"
)

type Handlers struct {
	Health *health.Handler
	Sync   *syncAPI.Handler
}

// Deps зависимости API, собранные в main
type Deps struct {
	Replica replica.Servicer
	DB      health.Pinger
}

// New создает *chi.Mux со всеми операциями через huma.Register
func New(deps Deps, cfg *config.Config, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()
	mux.Use(chimw.RealIP, chimw.Recoverer)

	humaConfig := huma.DefaultConfig("offsync API", "1.0.0")
	API := humachi.New(mux, humaConfig)

	h := handlers(deps, cfg, log)
	h.Health.SetupRoutes(API)
	h.Sync.SetupRoutes(API)

	return mux
}

func handlers(deps Deps, cfg *config.Config, log *slog.Logger) *Handlers {
	loggerMW := logger.New(log)
	tenantMW := tenant.New(log)
	limiter := ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst, log)
	middlewares := middleware.NewContainer()

	middlewares.Add(loggerMW.Middleware())
	healthHandler := health.NewHandler(deps.DB, log, middlewares.GetAllAndClear())

	middlewares.Add(loggerMW.Middleware())
	middlewares.Add(tenantMW.Middleware())
	middlewares.Add(limiter.Middleware())
	syncHandler := syncAPI.NewHandler(deps.Replica, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health: healthHandler,
		Sync:   syncHandler,
	}
}
