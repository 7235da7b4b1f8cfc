// Package session 维护会话到布隆过滤器的映射，每个会话独占一个过滤器实例.
// 生成摘要:
// 1) Create 整体替换会话的过滤器，Get 在尚未创建时返回 ErrFilterNotCreated。
// 2) 会话数受 max_sessions 限制，空闲超过 TTL 的会话由 Run 启动的清理协程回收。
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/wyfcoding/bloomlab/bloom"
	"github.com/wyfcoding/bloomlab/config"
	"github.com/wyfcoding/bloomlab/idgen"
	"github.com/wyfcoding/bloomlab/metrics"
	"github.com/wyfcoding/bloomlab/xerrors"
)

type entry struct {
	filter   *bloom.Filter
	lastSeen time.Time
}

// Manager 会话注册表，并发安全。
type Manager struct {
	mu       sync.Mutex
	entries  map[string]*entry
	gen      idgen.Generator
	metrics  *metrics.Metrics
	now      func() time.Time
	ttl      time.Duration
	interval time.Duration
	max      int
}

// NewManager 创建会话注册表。m 可为 nil。
func NewManager(cfg config.SessionConfig, gen idgen.Generator, m *metrics.Metrics) *Manager {
	return &Manager{
		entries:  make(map[string]*entry),
		gen:      gen,
		metrics:  m,
		now:      time.Now,
		ttl:      cfg.TTL,
		interval: cfg.JanitorInterval,
		max:      cfg.MaxSessions,
	}
}

// NewID 生成新的会话 ID。
func (m *Manager) NewID() (string, error) {
	id, err := idgen.SessionIDFrom(m.gen)
	if err != nil {
		return "", xerrors.WrapInternal(err, "generate session id")
	}
	return id, nil
}

// Create 为会话构造新的过滤器并替换旧实例。
// 参数非法时返回过滤器的配置错误，且不影响已有会话状态。
func (m *Manager) Create(ctx context.Context, id string, p bloom.Params, opts ...bloom.Option) (*bloom.Filter, error) {
	f, err := bloom.NewFromParams(p, opts...)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[id]; !exists && m.max > 0 && len(m.entries) >= m.max {
		return nil, xerrors.ErrTooManySessions.Derive("limit=%d", m.max).WithContext("session_id", id)
	}
	m.entries[id] = &entry{filter: f, lastSeen: m.now()}
	m.metrics.SetSessions(len(m.entries))

	slog.DebugContext(ctx, "session filter created", "session_id", id, "size", p.Size, "num_hashes", p.NumHashes)
	return f, nil
}

// Get 返回会话的过滤器并刷新最近访问时间。
func (m *Manager) Get(id string) (*bloom.Filter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, xerrors.ErrFilterNotCreated
	}
	e.lastSeen = m.now()
	return e.filter, nil
}

// Delete 移除会话。
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, id)
	m.metrics.SetSessions(len(m.entries))
}

// Len 返回当前会话数。
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.entries)
}

// Sweep 回收空闲超过 TTL 的会话，返回回收数量。TTL 非正时不回收。
func (m *Manager) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	deadline := m.now().Add(-m.ttl)
	evicted := 0
	for id, e := range m.entries {
		if e.lastSeen.Before(deadline) {
			delete(m.entries, id)
			evicted++
		}
	}
	m.metrics.SetSessions(len(m.entries))
	return evicted
}

// Run 周期性调用 Sweep，直到 ctx 结束。清理间隔非正时立即返回。
func (m *Manager) Run(ctx context.Context) {
	if m.interval <= 0 || m.ttl <= 0 {
		return
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				slog.Info("expired sessions evicted", "count", n, "remaining", m.Len())
			}
		}
	}
}
