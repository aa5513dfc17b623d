package tenant

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"offsync/internal/domain/replica"
)

const Header = "X-Tenant-ID"

var validID = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

type contextKey string

const tenantKey contextKey = "tenant"

// Tenant определяет арендатора запроса по заголовку X-Tenant-ID
type Tenant struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Tenant {
	return &Tenant{
		log: log.With(slog.String("component", "tenant_middleware")),
	}
}

// Middleware возвращает middleware для Huma с сигнатурой func(ctx Context, next func(Context))
func (t *Tenant) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		id := FromHeader(ctx)
		if !validID.MatchString(id) {
			t.log.Warn("invalid tenant id", slog.String("tenant", id))
			ctx.SetStatus(http.StatusBadRequest)
			ctx.SetHeader("Content-Type", "application/json")
			if err := json.NewEncoder(ctx.BodyWriter()).Encode(map[string]string{
				"error": "invalid " + Header,
			}); err != nil {
				t.log.Error("encode error response", slog.String("error", err.Error()))
			}
			return
		}

		next(huma.WithContext(ctx, context.WithValue(ctx.Context(), tenantKey, id)))
	}
}

// FromContext возвращает арендатора запроса или арендатора по умолчанию
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(tenantKey).(string); ok && id != "" {
		return id
	}
	return replica.DefaultTenant
}

// FromHeader читает арендатора прямо из заголовка запроса
func FromHeader(ctx huma.Context) string {
	if id := ctx.Header(Header); id != "" {
		return id
	}
	return replica.DefaultTenant
}
