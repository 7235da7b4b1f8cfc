package metrics

import "github.com/prometheus/client_golang/prometheus"

// RegisterBuildInfo 注册构建信息指标，重复调用无副作用。
func (m *Metrics) RegisterBuildInfo(serviceName, version string) {
	if m == nil || m.BuildInfo != nil {
		return
	}
	if serviceName == "" {
		serviceName = "unknown"
	}
	if version == "" {
		version = "unknown"
	}

	m.BuildInfo = m.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bloomlab_build_info",
		Help: "Build information for the service",
	}, []string{"service", "version"})

	m.BuildInfo.WithLabelValues(serviceName, version).Set(1)
}

// RegisterRedisMetrics 注册 Redis 命令耗时指标，仅在启用 Redis 后端时调用。
func (m *Metrics) RegisterRedisMetrics() {
	if m == nil || m.RedisCommandDuration != nil {
		return
	}

	m.RedisCommandDuration = m.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "redis_command_duration_seconds",
		Help:    "Redis command latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 10),
	}, []string{"command"})
}
