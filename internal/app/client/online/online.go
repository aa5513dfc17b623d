package online

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/exp/slog"
)

// Detector дешевая проверка сети: без ввода-вывода и побочных эффектов
type Detector interface {
	IsOnline() bool
}

type static bool

func (s static) IsOnline() bool {
	return bool(s)
}

// Always для окружений без сигнала о сети
func Always() Detector {
	return static(true)
}

// Forced фиксированное состояние сети, например для FORCE_OFFLINE
func Forced(online bool) Detector {
	return static(online)
}

// CheckFunc проверка доступности сервера
type CheckFunc func(ctx context.Context) error

// Probe периодически проверяет сервер и хранит последний результат.
// IsOnline только читает флаг.
type Probe struct {
	check    CheckFunc
	interval time.Duration
	timeout  time.Duration
	log      *slog.Logger

	online      atomic.Bool
	reconnected chan struct{}
	once        sync.Once
}

func NewProbe(check CheckFunc, interval time.Duration, log *slog.Logger) *Probe {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Probe{
		check:       check,
		interval:    interval,
		timeout:     interval,
		log:         log.With(slog.String("component", "online")),
		reconnected: make(chan struct{}, 1),
	}
}

func (p *Probe) IsOnline() bool {
	return p.online.Load()
}

// Reconnected сигнализирует о переходах offline -> online. Сигналы не копятся.
func (p *Probe) Reconnected() <-chan struct{} {
	return p.reconnected
}

// Start запускает цикл проверки до отмены ctx. Первая проверка выполняется сразу.
func (p *Probe) Start(ctx context.Context) {
	p.once.Do(func() {
		p.Check(ctx)
		go p.loop(ctx)
	})
}

func (p *Probe) loop(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}

// Check выполняет одну проверку и возвращает новое состояние
func (p *Probe) Check(ctx context.Context) bool {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.check(callCtx)
	now := err == nil
	was := p.online.Swap(now)

	switch {
	case now && !was:
		p.log.Info("server reachable")
		select {
		case p.reconnected <- struct{}{}:
		default:
		}
	case !now && was:
		p.log.Warn("server unreachable", slog.String("error", err.Error()))
	}
	return now
}
