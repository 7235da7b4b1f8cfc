package bloom

import (
	"crypto/md5"
	"crypto/sha256"
	"math/bits"
	"strconv"
	"strings"

	"github.com/twmb/murmur3"
	"github.com/wyfcoding/bloomlab/xerrors"
	"github.com/zeebo/xxh3"
)

// Digest 标识哈希族使用的摘要算法。
type Digest string

const (
	// DigestMD5 默认算法，索引布局与历史可视化数据保持一致。
	DigestMD5 Digest = "md5"
	// DigestSHA256 更长的摘要，分布特性与 MD5 相同。
	DigestSHA256 Digest = "sha256"
	// DigestXXH3 非密码学哈希，吞吐最高。
	DigestXXH3 Digest = "xxh3"
	// DigestMurmur3 非密码学哈希。
	DigestMurmur3 Digest = "murmur3"
)

const saltPrefix = "salt"

// ParseDigest 将配置或请求中的字符串解析为 Digest，空串返回默认值。
func ParseDigest(s string) (Digest, error) {
	switch d := Digest(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return DigestMD5, nil
	case DigestMD5, DigestSHA256, DigestXXH3, DigestMurmur3:
		return d, nil
	default:
		return "", xerrors.ErrUnknownDigest.Derive("digest=%q", s)
	}
}

// HashFamily 是 k 个互相独立的索引函数。
// 每个函数由一个固定盐值区分：h_i(x) = digest(x + salt_i) mod size。
type HashFamily struct {
	salts  []string
	size   uint64
	digest Digest
}

// NewHashFamily 构造一个哈希族。size 与 numHashes 必须为正。
func NewHashFamily(size, numHashes int, digest Digest) (*HashFamily, error) {
	if size <= 0 || numHashes <= 0 {
		return nil, xerrors.ErrInvalidFilterConfig.Derive("size=%d num_hashes=%d", size, numHashes)
	}
	if digest == "" {
		digest = DigestMD5
	}
	if _, err := ParseDigest(string(digest)); err != nil {
		return nil, err
	}

	salts := make([]string, numHashes)
	for i := range salts {
		salts[i] = saltPrefix + strconv.Itoa(i+1)
	}

	return &HashFamily{
		salts:  salts,
		size:   uint64(size),
		digest: digest,
	}, nil
}

// Index 计算第 i 个函数对 element 的索引，结果位于 [0, size)。
func (f *HashFamily) Index(element string, i int) int {
	key := element + f.salts[i]

	var idx uint64
	switch f.digest {
	case DigestSHA256:
		sum := sha256.Sum256([]byte(key))
		idx = reduce(sum[:], f.size)
	case DigestXXH3:
		idx = xxh3.HashString(key) % f.size
	case DigestMurmur3:
		idx = murmur3.Sum64([]byte(key)) % f.size
	default:
		sum := md5.Sum([]byte(key))
		idx = reduce(sum[:], f.size)
	}

	return int(idx)
}

// Positions 返回 element 在全部 k 个函数下的索引，顺序与函数顺序一致。
func (f *HashFamily) Positions(element string) []int {
	positions := make([]int, len(f.salts))
	for i := range f.salts {
		positions[i] = f.Index(element, i)
	}
	return positions
}

// Len 返回函数个数 k。
func (f *HashFamily) Len() int { return len(f.salts) }

// Digest 返回摘要算法。
func (f *HashFamily) Digest() Digest { return f.digest }

// Salts 返回盐值副本。
func (f *HashFamily) Salts() []string {
	out := make([]string, len(f.salts))
	copy(out, f.salts)
	return out
}

// reduce 把大端字节序的摘要视为一个无符号大整数，对 m 取模。
// 逐字节做 (r*256 + b) mod m，128 位中间值避免溢出。
func reduce(digest []byte, m uint64) uint64 {
	var r uint64
	for _, b := range digest {
		hi, lo := bits.Mul64(r, 256)
		var carry uint64
		lo, carry = bits.Add64(lo, uint64(b), 0)
		r = bits.Rem64(hi+carry, lo, m)
	}
	return r
}
