package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wyfcoding/bloomlab/bloom"
	"github.com/wyfcoding/bloomlab/config"
	"github.com/wyfcoding/bloomlab/idgen"
	"github.com/wyfcoding/bloomlab/metrics"
	"github.com/wyfcoding/bloomlab/xerrors"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager(t *testing.T, cfg config.SessionConfig) (*Manager, *metrics.Metrics, *fakeClock) {
	t.Helper()
	gen, err := idgen.NewSnowflakeGenerator(config.SnowflakeConfig{MachineID: 5})
	require.NoError(t, err)
	m := metrics.NewMetrics("session-test")
	mgr := NewManager(cfg, gen, m)
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	mgr.now = clock.Now
	return mgr, m, clock
}

func TestGet_BeforeCreate(t *testing.T) {
	mgr, _, _ := newTestManager(t, config.SessionConfig{})
	_, err := mgr.Get("nobody")
	assert.True(t, errors.Is(err, xerrors.ErrFilterNotCreated))
	assert.Equal(t, 400, xerrors.ErrFilterNotCreated.HTTPStatus())
}

func TestCreate_IsolatesAndReplaces(t *testing.T) {
	mgr, m, _ := newTestManager(t, config.SessionConfig{})
	ctx := context.Background()

	a, err := mgr.Create(ctx, "a", bloom.Params{Size: 100, NumHashes: 3})
	require.NoError(t, err)
	b, err := mgr.Create(ctx, "b", bloom.Params{Size: 50, NumHashes: 2})
	require.NoError(t, err)

	a.Add("user_123")
	assert.Equal(t, 0, b.Count())

	replaced, err := mgr.Create(ctx, "a", bloom.Params{Size: 64, NumHashes: 4})
	require.NoError(t, err)
	got, err := mgr.Get("a")
	require.NoError(t, err)
	assert.Same(t, replaced, got)
	assert.Equal(t, 0, got.Count())
	assert.Equal(t, 2, mgr.Len())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SessionsActive))

	// 非法参数不影响已有会话
	_, err = mgr.Create(ctx, "a", bloom.Params{Size: 0, NumHashes: 4})
	assert.True(t, errors.Is(err, xerrors.ErrInvalidFilterConfig))
	got, err = mgr.Get("a")
	require.NoError(t, err)
	assert.Same(t, replaced, got)
}

func TestCreate_RespectsMaxSessions(t *testing.T) {
	mgr, _, _ := newTestManager(t, config.SessionConfig{MaxSessions: 2})
	ctx := context.Background()
	p := bloom.Params{Size: 10, NumHashes: 1}

	_, err := mgr.Create(ctx, "a", p)
	require.NoError(t, err)
	_, err = mgr.Create(ctx, "b", p)
	require.NoError(t, err)

	_, err = mgr.Create(ctx, "c", p)
	require.True(t, errors.Is(err, xerrors.ErrTooManySessions))
	xe, ok := xerrors.FromError(err)
	require.True(t, ok)
	assert.Equal(t, 429, xe.HTTPStatus())
	assert.Equal(t, "c", xe.Context["session_id"])

	// 已存在的会话可以重建
	_, err = mgr.Create(ctx, "a", p)
	assert.NoError(t, err)

	mgr.Delete("b")
	_, err = mgr.Create(ctx, "c", p)
	assert.NoError(t, err)
}

func TestSweep_EvictsIdleSessions(t *testing.T) {
	mgr, m, clock := newTestManager(t, config.SessionConfig{TTL: time.Minute})
	ctx := context.Background()
	p := bloom.Params{Size: 10, NumHashes: 1}

	_, err := mgr.Create(ctx, "idle", p)
	require.NoError(t, err)
	_, err = mgr.Create(ctx, "busy", p)
	require.NoError(t, err)

	clock.Advance(45 * time.Second)
	_, err = mgr.Get("busy")
	require.NoError(t, err)
	clock.Advance(30 * time.Second)

	assert.Equal(t, 1, mgr.Sweep())
	_, err = mgr.Get("idle")
	assert.True(t, errors.Is(err, xerrors.ErrFilterNotCreated))
	_, err = mgr.Get("busy")
	assert.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsActive))
}

func TestRun_StopsWithContext(t *testing.T) {
	mgr, _, clock := newTestManager(t, config.SessionConfig{TTL: time.Millisecond, JanitorInterval: 5 * time.Millisecond})
	_, err := mgr.Create(context.Background(), "x", bloom.Params{Size: 10, NumHashes: 1})
	require.NoError(t, err)
	clock.Advance(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		mgr.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return mgr.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestNewID_Unique(t *testing.T) {
	mgr, _, _ := newTestManager(t, config.SessionConfig{})
	seen := make(map[string]struct{})
	for range 100 {
		id, err := mgr.NewID()
		require.NoError(t, err)
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}
