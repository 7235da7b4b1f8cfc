// Package cache 提供了本地字节缓存抽象，当前用于缓存渲染后的 PNG 图像.
package cache

import (
	"context"
	"errors"
)

// ErrCacheMiss 表示键不存在或已过期.
var ErrCacheMiss = errors.New("cache miss")

// Cache 定义字节缓存接口。实现需并发安全.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	Len() int
	Close() error
}

// Noop 是禁用缓存时使用的空实现，Get 总是未命中.
type Noop struct{}

// Get 总是返回 ErrCacheMiss.
func (Noop) Get(context.Context, string) ([]byte, error) { return nil, ErrCacheMiss }

// Set 丢弃写入.
func (Noop) Set(context.Context, string, []byte) error { return nil }

// Delete 无操作.
func (Noop) Delete(context.Context, ...string) error { return nil }

// Len 总是 0.
func (Noop) Len() int { return 0 }

// Close 无操作.
func (Noop) Close() error { return nil }
