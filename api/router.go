package api

import (
	_ "embed"

	"github.com/wyfcoding/bloomlab/health"
	"github.com/wyfcoding/bloomlab/metrics"

	"github.com/gin-gonic/gin"
)

//go:embed index.html
var indexHTML []byte

// RegisterRoutes 注册全部路由。hr 与 m 为 nil 时跳过 /healthz 与指标路由。
func RegisterRoutes(r gin.IRouter, h *Handler, hr *health.Registry, m *metrics.Metrics, metricsPath string) {
	r.GET("/", h.Index)

	r.POST("/create_filter", h.CreateFilter)
	r.POST("/add_element", h.AddElement)
	r.POST("/check_element", h.CheckElement)
	r.POST("/add_multiple", h.AddMultiple)
	r.GET("/snapshot", h.Snapshot)
	r.GET("/suggest", h.Suggest)

	r.POST("/compare_filters", h.CompareFilters)
	r.POST("/performance_analysis", h.PerformanceAnalysis)

	if hr != nil {
		r.GET("/healthz", hr.Handler())
	}
	if m != nil {
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		r.GET(metricsPath, gin.WrapH(m.Handler()))
	}
}
