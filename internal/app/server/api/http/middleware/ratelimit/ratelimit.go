package ratelimit

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
	"golang.org/x/time/rate"

	"offsync/internal/app/server/api/http/middleware/tenant"
)

// Limiter ограничивает частоту запросов отдельно для каждого арендатора
type Limiter struct {
	rps   rate.Limit
	burst int
	log   *slog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New создает ограничитель; rps <= 0 отключает ограничение
func New(rps float64, burst int, log *slog.Logger) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		log:      log.With(slog.String("component", "rate_limit")),
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *Limiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.limiters[key] = lim
	}
	return lim
}

// Middleware должен стоять после tenant middleware
func (l *Limiter) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if l.rps <= 0 {
			next(ctx)
			return
		}

		key := tenant.FromContext(ctx.Context())
		if !l.limiter(key).Allow() {
			retry := int(math.Ceil(1 / float64(l.rps)))
			l.log.Warn("rate limit exceeded", slog.String("tenant", key))
			ctx.SetHeader("Retry-After", strconv.Itoa(retry))
			ctx.SetHeader("Content-Type", "application/json")
			ctx.SetStatus(http.StatusTooManyRequests)
			if err := json.NewEncoder(ctx.BodyWriter()).Encode(map[string]string{
				"error": "too many requests",
			}); err != nil {
				l.log.Error("encode error response", slog.String("error", err.Error()))
			}
			return
		}

		next(ctx)
	}
}
