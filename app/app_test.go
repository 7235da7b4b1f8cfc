package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubServer struct {
	started atomic.Bool
	err     error
}

func (s *stubServer) Start(ctx context.Context) error {
	s.started.Store(true)
	if s.err != nil {
		return s.err
	}
	<-ctx.Done()
	return nil
}

func (s *stubServer) Stop(context.Context) error { return nil }

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	srv := &stubServer{}
	var order []string
	var workerStopped atomic.Bool

	a := New("test", discard(),
		WithServer(srv),
		WithWorker("janitor", func(ctx context.Context) {
			<-ctx.Done()
			workerStopped.Store(true)
		}),
		WithCleanup(func() { order = append(order, "first") }),
		WithCleanup(func() { order = append(order, "second") }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, srv.started.Load, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.True(t, workerStopped.Load())
	assert.Equal(t, []string{"second", "first"}, order)
}

func TestRun_ServerFailureCancelsOthers(t *testing.T) {
	boom := errors.New("listen failed")
	healthy := &stubServer{}
	cleaned := false

	a := New("test", discard(),
		WithServer(healthy, &stubServer{err: boom}),
		WithCleanup(func() { cleaned = true }),
	)

	err := a.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, cleaned)
}
