package api

import (
	"github.com/wyfcoding/bloomlab/analysis"
	"github.com/wyfcoding/bloomlab/bloom"
)

// CreateFilterRequest 创建过滤器请求。Digest 为空时使用配置的默认算法。
type CreateFilterRequest struct {
	Size      int    `json:"size"`
	NumHashes int    `json:"num_hashes"`
	Digest    string `json:"digest"`
}

// ElementRequest 单元素请求。
type ElementRequest struct {
	Element string `json:"element" binding:"required"`
}

// MultipleRequest 批量插入请求，elements 为逗号分隔的字符串。
type MultipleRequest struct {
	Elements string `json:"elements" binding:"required"`
}

// Configuration 对比实验中的一组参数。
type Configuration struct {
	Size   int `json:"size"`
	Hashes int `json:"hashes"`
}

// CompareRequest 对比与性能分析请求。
type CompareRequest struct {
	Configurations []Configuration `json:"configurations" binding:"required,dive"`
}

func (r CompareRequest) params() []bloom.Params {
	out := make([]bloom.Params, len(r.Configurations))
	for i, c := range r.Configurations {
		out[i] = bloom.Params{Size: c.Size, NumHashes: c.Hashes}
	}
	return out
}

// CreateFilterResponse 创建过滤器响应。
type CreateFilterResponse struct {
	Visualization string `json:"visualization"`
	SessionID     string `json:"session_id"`
	Digest        string `json:"digest"`
	Size          int    `json:"size"`
	NumHashes     int    `json:"num_hashes"`
}

// AddElementResponse 插入单元素响应。
type AddElementResponse struct {
	Visualization     string  `json:"visualization"`
	Element           string  `json:"element"`
	ElementsCount     int     `json:"elements_count"`
	FalsePositiveRate float64 `json:"false_positive_rate"`
}

// CheckElementResponse 成员查询响应。
type CheckElementResponse struct {
	Visualization string `json:"visualization"`
	Element       string `json:"element"`
	Verdict       string `json:"verdict"`
	HashPositions []int  `json:"hash_positions"`
	IsInFilter    bool   `json:"is_in_filter"`
}

// AddMultipleResponse 批量插入响应。
type AddMultipleResponse struct {
	Visualization     string  `json:"visualization"`
	ElementsAdded     int     `json:"elements_added"`
	TotalElements     int     `json:"total_elements"`
	FalsePositiveRate float64 `json:"false_positive_rate"`
}

// SnapshotResponse 过滤器快照，位数组以 "0"/"1" 字符串表示。
type SnapshotResponse struct {
	bloom.Snapshot
	Bits      string  `json:"bits"`
	FillRatio float64 `json:"fill_ratio"`
}

// CompareResponse 对比实验响应。
type CompareResponse struct {
	Visualization  string `json:"visualization"`
	Configurations int    `json:"configurations"`
}

// PerformanceResponse 性能分析响应。
type PerformanceResponse struct {
	Visualization string            `json:"visualization"`
	Results       []analysis.Result `json:"results"`
}
