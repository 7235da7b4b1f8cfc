package bloom

import (
	"fmt"
	"math"

	"github.com/wyfcoding/bloomlab/xerrors"
)

// Params 是过滤器配置 (size, num_hashes)，在实例生命周期内不可变。
type Params struct {
	Size      int `json:"size"`
	NumHashes int `json:"num_hashes"`
}

// Validate 在边界处拒绝非法组合。
func (p Params) Validate() error {
	if p.Size <= 0 || p.NumHashes <= 0 {
		return xerrors.ErrInvalidFilterConfig.Derive("size=%d num_hashes=%d", p.Size, p.NumHashes)
	}
	return nil
}

// String 返回对比图与分析结果中使用的展示名。
func (p Params) String() string {
	return fmt.Sprintf("Size:%d, Hashes:%d", p.Size, p.NumHashes)
}

// SuggestParams 根据预估容量 n 与目标误报率 p 计算最优的 m 与 k。
// m = -n*ln(p) / (ln2)^2，k = (m/n) * ln2。
func SuggestParams(expectedElements int, falsePositiveRate float64) (Params, error) {
	if expectedElements <= 0 {
		return Params{}, xerrors.ErrInvalidFilterConfig.Derive("expected_elements=%d", expectedElements)
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		return Params{}, xerrors.ErrInvalidFilterConfig.Derive("false_positive_rate=%g", falsePositiveRate)
	}

	n := float64(expectedElements)
	m := math.Ceil(-n * math.Log(falsePositiveRate) / (math.Ln2 * math.Ln2))
	k := math.Ceil(m / n * math.Ln2)
	if k < 1 {
		k = 1
	}

	return Params{Size: int(m), NumHashes: int(k)}, nil
}
