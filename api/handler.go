// Package api 实现布隆过滤器可视化服务的 HTTP 接口.
// 生成摘要:
// 1) 每个会话独占一个过滤器，会话 ID 取自 X-Session-ID 头或 Cookie。
// 2) 处理器只调用引擎的公开操作，图像由 render 生成并以 base64 返回。
// 3) 参数上限来自 filter 配置，超限返回 ErrFilterTooLarge。
package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/wyfcoding/bloomlab/analysis"
	"github.com/wyfcoding/bloomlab/bloom"
	"github.com/wyfcoding/bloomlab/config"
	"github.com/wyfcoding/bloomlab/contextx"
	"github.com/wyfcoding/bloomlab/metrics"
	"github.com/wyfcoding/bloomlab/render"
	"github.com/wyfcoding/bloomlab/response"
	"github.com/wyfcoding/bloomlab/session"
	"github.com/wyfcoding/bloomlab/tracing"
	"github.com/wyfcoding/bloomlab/xerrors"

	"github.com/gin-gonic/gin"
)

// HeaderXSessionID 会话 ID 头，优先于 Cookie。
const HeaderXSessionID = "X-Session-ID"

// Handler 持有处理器依赖。
type Handler struct {
	sessions *session.Manager
	renderer *render.Renderer
	metrics  *metrics.Metrics
	filter   config.FilterConfig
	session  config.SessionConfig
	digest   bloom.Digest
}

// NewHandler 创建处理器。m 可为 nil。
func NewHandler(cfg *config.Config, sessions *session.Manager, renderer *render.Renderer, m *metrics.Metrics) (*Handler, error) {
	digest, err := bloom.ParseDigest(cfg.Filter.Digest)
	if err != nil {
		return nil, err
	}
	return &Handler{
		sessions: sessions,
		renderer: renderer,
		metrics:  m,
		filter:   cfg.Filter,
		session:  cfg.Session,
		digest:   digest,
	}, nil
}

// sessionID 解析会话 ID 并注入请求上下文。
func (h *Handler) sessionID(c *gin.Context) string {
	id := strings.TrimSpace(c.GetHeader(HeaderXSessionID))
	if id == "" {
		if v, err := c.Cookie(h.session.CookieName); err == nil {
			id = v
		}
	}
	if id != "" {
		c.Request = c.Request.WithContext(contextx.WithSessionID(c.Request.Context(), id))
	}
	return id
}

// current 返回当前会话的过滤器，未创建时返回 ErrFilterNotCreated。
func (h *Handler) current(c *gin.Context) (*bloom.Filter, error) {
	id := h.sessionID(c)
	if id == "" {
		return nil, xerrors.ErrFilterNotCreated
	}
	return h.sessions.Get(id)
}

func (h *Handler) checkLimits(p bloom.Params) error {
	if (h.filter.MaxSize > 0 && p.Size > h.filter.MaxSize) || (h.filter.MaxHashes > 0 && p.NumHashes > h.filter.MaxHashes) {
		return xerrors.ErrFilterTooLarge.Derive("size=%d num_hashes=%d, max_size=%d max_hashes=%d",
			p.Size, p.NumHashes, h.filter.MaxSize, h.filter.MaxHashes)
	}
	return nil
}

func bindJSON(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return xerrors.ErrInvalidRequest.Derive("%v", err)
	}
	return nil
}

// Index 返回内嵌的前端页面。
func (h *Handler) Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

// CreateFilter 为当前会话创建 (或整体替换) 过滤器。无会话时分配新 ID 并写入 Cookie。
func (h *Handler) CreateFilter(c *gin.Context) {
	var req CreateFilterRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	p := bloom.Params{Size: req.Size, NumHashes: req.NumHashes}
	if err := p.Validate(); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.checkLimits(p); err != nil {
		response.Error(c, err)
		return
	}
	digest := h.digest
	if req.Digest != "" {
		d, err := bloom.ParseDigest(req.Digest)
		if err != nil {
			response.Error(c, err)
			return
		}
		digest = d
	}

	id := h.sessionID(c)
	if id == "" {
		newID, err := h.sessions.NewID()
		if err != nil {
			response.Error(c, err)
			return
		}
		id = newID
		c.Request = c.Request.WithContext(contextx.WithSessionID(c.Request.Context(), id))
	}

	ctx := c.Request.Context()
	tracing.AddTag(ctx, "bloom.size", p.Size)
	tracing.AddTag(ctx, "bloom.num_hashes", p.NumHashes)

	f, err := h.sessions.Create(ctx, id, p, bloom.WithDigest(digest))
	if err != nil {
		response.Error(c, err)
		return
	}

	vis, err := h.renderer.Filter(ctx, f.Snapshot())
	if err != nil {
		response.Error(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.session.CookieName, id, int(h.session.TTL.Seconds()), "/", "", false, true)
	c.Header(HeaderXSessionID, id)

	response.Success(c, CreateFilterResponse{
		Visualization: vis,
		SessionID:     id,
		Digest:        string(digest),
		Size:          p.Size,
		NumHashes:     p.NumHashes,
	})
}

// AddElement 插入单个元素。
func (h *Handler) AddElement(c *gin.Context) {
	var req ElementRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	if strings.TrimSpace(req.Element) == "" {
		response.Error(c, xerrors.ErrEmptyElement)
		return
	}
	f, err := h.current(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	f.Add(req.Element)
	h.metrics.ObserveInsert(1)

	snap := f.Snapshot()
	vis, err := h.renderer.Filter(c.Request.Context(), snap)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, AddElementResponse{
		Visualization:     vis,
		Element:           req.Element,
		ElementsCount:     snap.Count,
		FalsePositiveRate: snap.FalsePositiveRate,
	})
}

// CheckElement 查询元素并返回其哈希位置。
func (h *Handler) CheckElement(c *gin.Context) {
	var req ElementRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	if strings.TrimSpace(req.Element) == "" {
		response.Error(c, xerrors.ErrEmptyElement)
		return
	}
	f, err := h.current(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	mightContain := f.Contains(req.Element)
	positions := f.Positions(req.Element)
	h.metrics.ObserveQuery(mightContain)

	vis, err := h.renderer.Query(c.Request.Context(), f.Snapshot(), req.Element, positions, mightContain)
	if err != nil {
		response.Error(c, err)
		return
	}

	verdict := render.VerdictDefinitelyNotSwiped
	if mightContain {
		verdict = render.VerdictMightBeSwiped
	}
	response.Success(c, CheckElementResponse{
		Visualization: vis,
		Element:       req.Element,
		Verdict:       verdict,
		HashPositions: positions,
		IsInFilter:    mightContain,
	})
}

// AddMultiple 插入逗号分隔的多个元素，空白项被丢弃。
func (h *Handler) AddMultiple(c *gin.Context) {
	var req MultipleRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	f, err := h.current(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	added := f.AddMany(strings.Split(req.Elements, ","))
	h.metrics.ObserveInsert(added)

	snap := f.Snapshot()
	vis, err := h.renderer.Filter(c.Request.Context(), snap)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, AddMultipleResponse{
		Visualization:     vis,
		ElementsAdded:     added,
		TotalElements:     snap.Count,
		FalsePositiveRate: snap.FalsePositiveRate,
	})
}

// Snapshot 返回当前会话过滤器的快照。
func (h *Handler) Snapshot(c *gin.Context) {
	f, err := h.current(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	snap := f.Snapshot()
	response.Success(c, SnapshotResponse{
		Snapshot:  snap,
		Bits:      snap.BitString(),
		FillRatio: snap.FillRatio(),
	})
}

func (h *Handler) compareParams(c *gin.Context) ([]bloom.Params, error) {
	var req CompareRequest
	if err := bindJSON(c, &req); err != nil {
		return nil, err
	}
	if h.filter.MaxConfigs > 0 && len(req.Configurations) > h.filter.MaxConfigs {
		return nil, xerrors.ErrTooManyConfigurations.Derive("configurations=%d max=%d", len(req.Configurations), h.filter.MaxConfigs)
	}
	params := req.params()
	for _, p := range params {
		if err := h.checkLimits(p); err != nil {
			return nil, err
		}
	}
	return params, nil
}

// CompareFilters 对多组参数运行对比实验并渲染对比图。
func (h *Handler) CompareFilters(c *gin.Context) {
	params, err := h.compareParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	ctx := c.Request.Context()
	results, err := analysis.CompareFilters(ctx, params, bloom.WithDigest(h.digest))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.ObserveComparison()

	vis, err := h.renderer.Comparison(ctx, results)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, CompareResponse{Visualization: vis, Configurations: len(results)})
}

// PerformanceAnalysis 运行性能分析并渲染精确率、召回率与误报率图表。
func (h *Handler) PerformanceAnalysis(c *gin.Context) {
	params, err := h.compareParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	ctx := c.Request.Context()
	results, err := analysis.PerformanceAnalysis(ctx, params, bloom.WithDigest(h.digest))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.ObserveComparison()

	vis, err := h.renderer.Performance(ctx, results)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, PerformanceResponse{Visualization: vis, Results: results})
}

// Suggest 根据预估容量 n 与目标误报率 p 推荐参数。
func (h *Handler) Suggest(c *gin.Context) {
	n, errN := strconv.Atoi(c.Query("n"))
	p, errP := strconv.ParseFloat(c.Query("p"), 64)
	if err := errors.Join(errN, errP); err != nil {
		response.Error(c, xerrors.ErrInvalidRequest.Derive("query parameters n and p are required: %v", err))
		return
	}

	params, err := bloom.SuggestParams(n, p)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, params)
}
