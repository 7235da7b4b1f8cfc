package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/wyfcoding/bloomlab/config"

	"github.com/allegro/bigcache/v3"
)

// BigCache 实现了 `Cache` 接口，使用 `allegro/bigcache` 作为底层存储。
// 所有条目共享同一个 LifeWindow，不支持逐键过期。
type BigCache struct {
	cache *bigcache.BigCache
}

// NewBigCache 根据配置创建 BigCache 实例。
// cfg.Enabled 为 false 时调用方应改用 Noop。
func NewBigCache(ctx context.Context, cfg config.BigCacheConfig) (*BigCache, error) {
	conf := bigcache.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.Shards > 0 {
		conf.Shards = cfg.Shards
	}
	conf.HardMaxCacheSize = cfg.HardMaxCacheSize
	conf.Verbose = false

	c, err := bigcache.New(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("init bigcache failed: %w", err)
	}

	return &BigCache{cache: c}, nil
}

// New 按配置返回 BigCache 或 Noop。
func New(ctx context.Context, cfg config.BigCacheConfig) (Cache, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}
	return NewBigCache(ctx, cfg)
}

// Get 获取指定键的值，未命中时返回 ErrCacheMiss。
func (c *BigCache) Get(_ context.Context, key string) ([]byte, error) {
	data, err := c.cache.Get(key)
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	return data, nil
}

// Set 写入键值对，bigcache 内部会复制 value。
func (c *BigCache) Set(_ context.Context, key string, value []byte) error {
	return c.cache.Set(key, value)
}

// Delete 删除一个或多个键，键不存在不视为错误。
func (c *BigCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		if err := c.cache.Delete(key); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
			return err
		}
	}
	return nil
}

// Len 返回当前条目数。
func (c *BigCache) Len() int {
	return c.cache.Len()
}

// Close 关闭 BigCache 实例，释放其占用的资源。
func (c *BigCache) Close() error {
	return c.cache.Close()
}
