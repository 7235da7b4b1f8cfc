// Package analysis 提供多组过滤器参数的对比实验.
// 生成摘要:
// 1) 每组参数构造独立的过滤器，插入前 insertCount 个元素后查询全部元素。
// 2) 以过滤器自身的真值集合计算混淆矩阵、精确率、召回率与经验误报比例。
// 3) 各组配置并发执行，结果顺序与输入一致。
package analysis

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/wyfcoding/bloomlab/bloom"
	"github.com/wyfcoding/bloomlab/tracing"
	"github.com/wyfcoding/bloomlab/xerrors"

	"github.com/sourcegraph/conc/iter"
)

// DefaultElements 固定的 16 个测试资料 ID.
var DefaultElements = []string{
	"user_123", "sarah_456", "mike_789", "emma_321",
	"john_654", "lisa_987", "dave_147", "anna_258",
	"tom_369", "jessica_741", "alex_852", "rachel_963",
	"chris_159", "megan_357", "ryan_753", "ashley_951",
}

const (
	compareElements     = 8
	compareInserted     = 4
	performanceInserted = 8
)

// Confusion 混淆矩阵计数.
type Confusion struct {
	TruePositives  int `json:"true_positives"`
	FalsePositives int `json:"false_positives"`
	TrueNegatives  int `json:"true_negatives"`
	FalseNegatives int `json:"false_negatives"`
}

// Precision 返回 TP/(TP+FP)，分母为 0 时返回 0.
func (c Confusion) Precision() float64 {
	d := c.TruePositives + c.FalsePositives
	if d == 0 {
		return 0
	}
	return float64(c.TruePositives) / float64(d)
}

// Recall 返回 TP/(TP+FN)，分母为 0 时返回 0.
func (c Confusion) Recall() float64 {
	d := c.TruePositives + c.FalseNegatives
	if d == 0 {
		return 0
	}
	return float64(c.TruePositives) / float64(d)
}

// ObservedFalsePositiveRate 返回未插入元素中被判为可能存在的比例.
func (c Confusion) ObservedFalsePositiveRate() float64 {
	d := c.FalsePositives + c.TrueNegatives
	if d == 0 {
		return 0
	}
	return float64(c.FalsePositives) / float64(d)
}

// Result 单组配置的实验结果.
type Result struct {
	Name      string         `json:"name"`
	Params    bloom.Params   `json:"params"`
	Confusion Confusion      `json:"confusion"`
	Precision float64        `json:"precision"`
	Recall    float64        `json:"recall"`
	Observed  float64        `json:"observed_false_positive_rate"`
	Estimated float64        `json:"false_positive_rate"`
	Snapshot  bloom.Snapshot `json:"-"`
}

// Compare 对每组参数运行一次实验。
// configs 为空时返回 ErrNoConfigurations；任一参数非法时返回过滤器的配置错误，不运行任何实验。
func Compare(ctx context.Context, configs []bloom.Params, elements []string, insertCount int, opts ...bloom.Option) ([]Result, error) {
	if len(configs) == 0 {
		return nil, xerrors.ErrNoConfigurations
	}
	for _, p := range configs {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	insertCount = max(0, min(insertCount, len(elements)))

	ctx, span := tracing.StartSpan(ctx, "analysis.Compare")
	defer span.End()
	tracing.AddTag(ctx, "configurations", len(configs))
	tracing.AddTag(ctx, "elements", len(elements))

	mapper := iter.Mapper[bloom.Params, Result]{MaxGoroutines: runtime.GOMAXPROCS(0)}
	results, err := mapper.MapErr(configs, func(p *bloom.Params) (Result, error) {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		return run(*p, elements, insertCount, opts...)
	})
	if err != nil {
		tracing.SetError(ctx, err)
		return nil, err
	}

	slog.DebugContext(ctx, "comparison finished", "configurations", len(configs), "inserted", insertCount)
	return results, nil
}

// CompareFilters 使用前 8 个默认元素、插入其中前 4 个.
func CompareFilters(ctx context.Context, configs []bloom.Params, opts ...bloom.Option) ([]Result, error) {
	return Compare(ctx, configs, DefaultElements[:compareElements], compareInserted, opts...)
}

// PerformanceAnalysis 使用全部 16 个默认元素、插入其中前 8 个.
func PerformanceAnalysis(ctx context.Context, configs []bloom.Params, opts ...bloom.Option) ([]Result, error) {
	return Compare(ctx, configs, DefaultElements, performanceInserted, opts...)
}

func run(p bloom.Params, elements []string, insertCount int, opts ...bloom.Option) (Result, error) {
	f, err := bloom.NewFromParams(p, opts...)
	if err != nil {
		return Result{}, err
	}
	for _, e := range elements[:insertCount] {
		f.Add(e)
	}

	var c Confusion
	for _, e := range elements {
		actual := f.Inserted(e)
		detected := f.Contains(e)
		switch {
		case actual && detected:
			c.TruePositives++
		case actual && !detected:
			c.FalseNegatives++
		case !actual && detected:
			c.FalsePositives++
		default:
			c.TrueNegatives++
		}
	}

	snap := f.Snapshot()
	return Result{
		Name:      p.String(),
		Params:    p,
		Confusion: c,
		Precision: c.Precision(),
		Recall:    c.Recall(),
		Observed:  c.ObservedFalsePositiveRate(),
		Estimated: snap.FalsePositiveRate,
		Snapshot:  snap,
	}, nil
}
