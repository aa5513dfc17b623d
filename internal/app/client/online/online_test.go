package online

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStatic(t *testing.T) {
	assert.True(t, Always().IsOnline())
	assert.False(t, Forced(false).IsOnline())
	assert.True(t, Forced(true).IsOnline())
}

func TestProbe_Transitions(t *testing.T) {
	var fail atomic.Bool
	p := NewProbe(func(context.Context) error {
		if fail.Load() {
			return errors.New("down")
		}
		return nil
	}, time.Hour, discardLogger())

	assert.False(t, p.IsOnline())

	fail.Store(true)
	assert.False(t, p.Check(context.Background()))
	assert.Empty(t, p.Reconnected())

	fail.Store(false)
	assert.True(t, p.Check(context.Background()))
	assert.True(t, p.IsOnline())
	require.Len(t, p.Reconnected(), 1)
	<-p.Reconnected()

	// повторный успех не сигналит
	p.Check(context.Background())
	assert.Empty(t, p.Reconnected())

	fail.Store(true)
	p.Check(context.Background())
	assert.False(t, p.IsOnline())
}

func TestProbe_SignalsDoNotAccumulate(t *testing.T) {
	var fail atomic.Bool
	p := NewProbe(func(context.Context) error {
		if fail.Load() {
			return errors.New("down")
		}
		return nil
	}, time.Hour, discardLogger())

	for i := 0; i < 3; i++ {
		fail.Store(false)
		p.Check(context.Background())
		fail.Store(true)
		p.Check(context.Background())
	}

	assert.Len(t, p.Reconnected(), 1)
}

func TestProbe_StartLoop(t *testing.T) {
	var calls atomic.Int32
	p := NewProbe(func(context.Context) error {
		calls.Add(1)
		return nil
	}, 10*time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p.Start(ctx)
	p.Start(ctx)
	assert.True(t, p.IsOnline())

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	cancel()
	time.Sleep(30 * time.Millisecond)
	n := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, calls.Load())
}
