// Package render 将过滤器快照与对比结果绘制为 PNG 图像.
// 生成摘要:
// 1) 只读取 bloom.Snapshot、哈希位置与 analysis.Result，从不修改过滤器。
// 2) 位格边长 min(上限, 可用宽度/位数)，至少 1 像素，超出单行时换行。
// 3) 过滤器图与查询图按快照指纹缓存于 bigcache。
package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"log/slog"
	"strings"
	"time"

	"github.com/wyfcoding/bloomlab/analysis"
	"github.com/wyfcoding/bloomlab/bloom"
	"github.com/wyfcoding/bloomlab/cache"
	"github.com/wyfcoding/bloomlab/config"
	"github.com/wyfcoding/bloomlab/metrics"
	"github.com/wyfcoding/bloomlab/tracing"
	"github.com/wyfcoding/bloomlab/xerrors"
)

// 渲染种类，用作指标标签与缓存键前缀.
const (
	KindFilter      = "filter"
	KindQuery       = "query"
	KindComparison  = "comparison"
	KindPerformance = "performance"
)

// Renderer 按配置尺寸渲染图像并返回 base64 编码的 PNG.
type Renderer struct {
	cfg     config.RenderConfig
	cache   cache.Cache
	metrics *metrics.Metrics
}

// NewRenderer 创建渲染器。c 为 nil 时不缓存，m 可为 nil.
func NewRenderer(cfg config.RenderConfig, c cache.Cache, m *metrics.Metrics) *Renderer {
	if c == nil {
		c = cache.Noop{}
	}
	return &Renderer{cfg: cfg, cache: c, metrics: m}
}

// Filter 渲染过滤器位数组.
func (r *Renderer) Filter(ctx context.Context, snap bloom.Snapshot) (string, error) {
	key := KindFilter + ":" + snap.Fingerprint()
	return r.cached(ctx, KindFilter, key, func() image.Image {
		return FilterImage(snap, r.cfg.Width, r.cfg.Height)
	})
}

// Query 渲染一次成员查询.
func (r *Renderer) Query(ctx context.Context, snap bloom.Snapshot, element string, positions []int, mightContain bool) (string, error) {
	var b strings.Builder
	b.WriteString(KindQuery)
	b.WriteByte(':')
	b.WriteString(snap.Fingerprint())
	b.WriteByte(':')
	b.WriteString(base64.RawURLEncoding.EncodeToString([]byte(element)))
	return r.cached(ctx, KindQuery, b.String(), func() image.Image {
		return QueryImage(snap, element, positions, mightContain, r.cfg.Width, r.cfg.Height)
	})
}

// Comparison 渲染多组过滤器对比图，不缓存.
func (r *Renderer) Comparison(ctx context.Context, results []analysis.Result) (string, error) {
	return r.uncached(ctx, KindComparison, func() image.Image {
		return ComparisonImage(results, r.cfg.ComparisonWidth, r.cfg.ComparisonHeight)
	})
}

// Performance 渲染性能分析图，不缓存.
func (r *Renderer) Performance(ctx context.Context, results []analysis.Result) (string, error) {
	return r.uncached(ctx, KindPerformance, func() image.Image {
		return PerformanceImage(results, r.cfg.PerformanceWidth, r.cfg.PerformanceHeight)
	})
}

func (r *Renderer) cached(ctx context.Context, kind, key string, build func() image.Image) (string, error) {
	data, err := r.cache.Get(ctx, key)
	if err == nil {
		r.metrics.ObserveRenderCache(true)
		return base64.StdEncoding.EncodeToString(data), nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		slog.WarnContext(ctx, "render cache get failed", "kind", kind, "error", err)
	}
	r.metrics.ObserveRenderCache(false)

	data, err = r.draw(ctx, kind, build)
	if err != nil {
		return "", err
	}
	if setErr := r.cache.Set(ctx, key, data); setErr != nil {
		slog.WarnContext(ctx, "render cache set failed", "kind", kind, "error", setErr)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func (r *Renderer) uncached(ctx context.Context, kind string, build func() image.Image) (string, error) {
	data, err := r.draw(ctx, kind, build)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func (r *Renderer) draw(ctx context.Context, kind string, build func() image.Image) ([]byte, error) {
	ctx, span := tracing.StartSpan(ctx, "render."+kind)
	defer span.End()

	start := time.Now()
	data, err := EncodePNG(build())
	r.metrics.ObserveRender(kind, time.Since(start))
	if err != nil {
		tracing.SetError(ctx, err)
		return nil, xerrors.ErrRenderFailed.Derive("%s: %v", kind, err)
	}
	return data, nil
}

// EncodePNG 将图像编码为 PNG 字节.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeBase64 将图像编码为 PNG 后再做标准 base64 编码.
func EncodeBase64(img image.Image) (string, error) {
	data, err := EncodePNG(img)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
