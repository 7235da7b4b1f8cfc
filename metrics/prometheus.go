// Package metrics 封装了基于 Prometheus 私有注册表的指标采集.
// 生成摘要:
// 1) 预定义 HTTP 标准指标与布隆过滤器领域指标。
// 2) 各方法对 nil 接收者安全，便于在测试中省略指标。
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 封装了基于 Prometheus 的指标采集注册表及预定义的标准监控指标。
type Metrics struct {
	registry *prometheus.Registry // 内部独立的 Prometheus 注册中心

	HTTPRequestsTotal     *prometheus.CounterVec   // HTTP 请求总量 (维度: method, path, status)
	HTTPRequestDuration   *prometheus.HistogramVec // HTTP 请求耗时分布
	HTTPInFlight          *prometheus.GaugeVec     // 处理中的 HTTP 请求数
	HTTPSlowRequestsTotal *prometheus.CounterVec   // 超过慢请求阈值的请求数
	RateLimitedTotal      *prometheus.CounterVec   // 被限流拒绝的请求数 (维度: backend)

	BloomInsertsTotal    prometheus.Counter       // 插入元素总数
	BloomQueriesTotal    *prometheus.CounterVec   // 成员查询总数 (维度: verdict)
	SessionsActive       prometheus.Gauge         // 活跃会话数
	RenderDuration       *prometheus.HistogramVec // 渲染耗时 (维度: kind)
	RenderCacheTotal     *prometheus.CounterVec   // 渲染缓存命中情况 (维度: result)
	ComparisonsTotal     prometheus.Counter       // 对比分析次数
	BuildInfo            *prometheus.GaugeVec
	RedisCommandDuration *prometheus.HistogramVec // Redis 命令耗时 (维度: command)
}

// NewMetrics 初始化并返回一个新的指标采集器。
// 它会自动注册 Go 运行时指标和进程指标。
func NewMetrics(serviceName string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: reg}

	m.HTTPRequestsTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "http_server_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	m.HTTPRequestDuration = m.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_server_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	m.HTTPInFlight = m.NewGaugeVec(prometheus.GaugeOpts{
		Name: "http_server_requests_in_flight",
		Help: "Number of HTTP requests currently being served",
	}, []string{"method", "path"})

	m.HTTPSlowRequestsTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "http_server_slow_requests_total",
		Help: "Total number of HTTP requests slower than the configured threshold",
	}, []string{"method", "path"})

	m.RateLimitedTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "http_server_rate_limited_total",
		Help: "Total number of HTTP requests rejected by the rate limiter",
	}, []string{"backend"})

	m.registerDomainMetrics()

	slog.Info("unified metrics registry initialized", "service", serviceName)
	return m
}

func (m *Metrics) registerDomainMetrics() {
	m.BloomInsertsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bloom_inserts_total",
		Help: "Total number of elements inserted into bloom filters",
	})
	m.registry.MustRegister(m.BloomInsertsTotal)

	m.BloomQueriesTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "bloom_queries_total",
		Help: "Total number of membership queries by verdict",
	}, []string{"verdict"})

	m.SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bloom_sessions_active",
		Help: "Number of sessions currently owning a bloom filter",
	})
	m.registry.MustRegister(m.SessionsActive)

	m.RenderDuration = m.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bloom_render_duration_seconds",
		Help:    "Time spent rendering visualizations",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"kind"})

	m.RenderCacheTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "bloom_render_cache_total",
		Help: "Render cache lookups by result",
	}, []string{"result"})

	m.ComparisonsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bloom_comparisons_total",
		Help: "Total number of comparison and performance analyses",
	})
	m.registry.MustRegister(m.ComparisonsTotal)
}

// NewCounterVec 创建并注册一个新的计数器指标。
func (m *Metrics) NewCounterVec(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
	cv := prometheus.NewCounterVec(opts, labelNames)
	m.registry.MustRegister(cv)
	return cv
}

// NewGaugeVec 创建并注册一个新的仪表盘指标。
func (m *Metrics) NewGaugeVec(opts prometheus.GaugeOpts, labelNames []string) *prometheus.GaugeVec {
	gv := prometheus.NewGaugeVec(opts, labelNames)
	m.registry.MustRegister(gv)
	return gv
}

// NewHistogramVec 创建并注册一个新的直方图指标。
func (m *Metrics) NewHistogramVec(opts prometheus.HistogramOpts, labelNames []string) *prometheus.HistogramVec {
	hv := prometheus.NewHistogramVec(opts, labelNames)
	m.registry.MustRegister(hv)
	return hv
}

// Registry 返回内部注册表，测试中用于读取指标值。
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveInsert 记录 n 次插入。
func (m *Metrics) ObserveInsert(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.BloomInsertsTotal.Add(float64(n))
}

// ObserveQuery 记录一次查询结果。
func (m *Metrics) ObserveQuery(mightContain bool) {
	if m == nil {
		return
	}
	verdict := "definitely_not"
	if mightContain {
		verdict = "might_contain"
	}
	m.BloomQueriesTotal.WithLabelValues(verdict).Inc()
}

// ObserveRender 记录一次渲染耗时。
func (m *Metrics) ObserveRender(kind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RenderDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// ObserveRenderCache 记录渲染缓存命中或未命中。
func (m *Metrics) ObserveRenderCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.RenderCacheTotal.WithLabelValues(result).Inc()
}

// ObserveComparison 记录一次对比实验。
func (m *Metrics) ObserveComparison() {
	if m == nil {
		return
	}
	m.ComparisonsTotal.Inc()
}

// SetSessions 设置活跃会话数。
func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(n))
}

// Handler 返回用于暴露指标的 HTTP 处理器。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ExposeHTTP 在指定端口启动一个独立的 HTTP 服务器用于暴露指标数据。
// 返回一个清理函数用于优雅关闭该服务器。
func (m *Metrics) ExposeHTTP(port, path string) func() {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown metrics server", "error", err)
		}
	}
}
