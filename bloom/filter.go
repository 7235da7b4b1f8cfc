// Package bloom 实现了经典布隆过滤器引擎：定长位数组、带盐哈希族以及插入、查询与误报率估算。
//
// 保证：
// 1. 无假阴性：插入过的元素查询必为 true。
// 2. 位单调：位一旦置 1 永不清零，不支持删除。
// 3. 并发安全：写操作持写锁串行化，读操作在读锁下观察到一致的位数组与真值集合。
//
// 复杂度：Add / Contains / Positions 均为 O(k)。
package bloom

import (
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// Filter 是布隆过滤器引擎实例。
// 真值集合 elements 只用于诊断与分析，Contains 从不读取它。
type Filter struct {
	mu       sync.RWMutex
	params   Params
	family   *HashFamily
	bits     *bitset.BitSet
	elements map[string]struct{}
}

type options struct {
	digest Digest
}

// Option 配置过滤器的可选参数。
type Option func(*options)

// WithDigest 指定哈希族使用的摘要算法，默认 MD5。
func WithDigest(d Digest) Option {
	return func(o *options) {
		o.digest = d
	}
}

// New 创建一个 size 位、numHashes 个哈希函数的过滤器。
// 任一参数非正时返回 xerrors.ErrInvalidFilterConfig，不会产生部分构造的实例。
func New(size, numHashes int, opts ...Option) (*Filter, error) {
	return NewFromParams(Params{Size: size, NumHashes: numHashes}, opts...)
}

// NewFromParams 使用 Params 创建过滤器。
func NewFromParams(p Params, opts ...Option) (*Filter, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	o := options{digest: DigestMD5}
	for _, opt := range opts {
		opt(&o)
	}

	family, err := NewHashFamily(p.Size, p.NumHashes, o.digest)
	if err != nil {
		return nil, err
	}

	slog.Debug("bloom filter initialized", "size", p.Size, "num_hashes", p.NumHashes, "digest", o.digest)

	return &Filter{
		params:   p,
		family:   family,
		bits:     bitset.New(uint(p.Size)),
		elements: make(map[string]struct{}),
	}, nil
}

// Add 插入元素：置位 k 个索引并记录到真值集合。重复插入是幂等的。
func (f *Filter) Add(element string) {
	positions := f.family.Positions(element)

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, idx := range positions {
		f.bits.Set(uint(idx))
	}
	f.elements[element] = struct{}{}
}

// AddMany 依次插入元素，去除首尾空白并丢弃空白项，返回实际处理的元素数（含重复）。
func (f *Filter) AddMany(elements []string) int {
	added := 0
	for _, e := range elements {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		f.Add(e)
		added++
	}
	return added
}

// Contains 执行成员检查。
// 返回 false 表示元素一定不存在；返回 true 表示元素可能存在。
func (f *Filter) Contains(element string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for i := 0; i < f.family.Len(); i++ {
		if !f.bits.Test(uint(f.family.Index(element, i))) {
			return false
		}
	}
	return true
}

// Positions 返回 element 映射到的 k 个索引，无副作用。
func (f *Filter) Positions(element string) []int {
	return f.family.Positions(element)
}

// Inserted 报告 element 是否真的被插入过（诊断用，与位数组无关）。
func (f *Filter) Inserted(element string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	_, ok := f.elements[element]
	return ok
}

// Count 返回真值集合大小 n。
func (f *Filter) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return len(f.elements)
}

// SetBits 返回当前为 1 的位数。
func (f *Filter) SetBits() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return int(f.bits.Count())
}

// FillRatio 返回已置位比例。
func (f *Filter) FillRatio() float64 {
	return float64(f.SetBits()) / float64(f.params.Size)
}

// Params 返回构造参数。
func (f *Filter) Params() Params { return f.params }

// Digest 返回哈希族摘要算法。
func (f *Filter) Digest() Digest { return f.family.Digest() }

// Family 返回哈希族，可用于检查盐值。
func (f *Filter) Family() *HashFamily { return f.family }

// EstimatedFalsePositiveRate 返回解析式误报率估计 p^k，
// 其中 p = 1 - (1 - 1/m)^(k*n)。尚无插入时返回 0。
// 这是基于当前 n 的近似值，真实碰撞取决于实际哈希输出。
func (f *Filter) EstimatedFalsePositiveRate() float64 {
	f.mu.RLock()
	n := len(f.elements)
	f.mu.RUnlock()

	return estimateFalsePositiveRate(f.params.Size, f.params.NumHashes, n)
}

func estimateFalsePositiveRate(m, k, n int) float64 {
	if n == 0 {
		return 0.0
	}
	p := 1 - math.Pow(1-1/float64(m), float64(k*n))
	return math.Pow(p, float64(k))
}

// Snapshot 在读锁下复制当前状态，返回值与过滤器不再共享内存。
func (f *Filter) Snapshot() Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()

	bits := make([]bool, f.params.Size)
	for i, ok := f.bits.NextSet(0); ok; i, ok = f.bits.NextSet(i + 1) {
		bits[i] = true
	}
	n := len(f.elements)

	return Snapshot{
		Size:              f.params.Size,
		NumHashes:         f.params.NumHashes,
		Digest:            f.family.Digest(),
		Count:             n,
		SetBits:           int(f.bits.Count()),
		FalsePositiveRate: estimateFalsePositiveRate(f.params.Size, f.params.NumHashes, n),
		Bits:              bits,
	}
}
