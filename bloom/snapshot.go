package bloom

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strings"
)

// Snapshot 是过滤器某一时刻的只读副本，供渲染层与 Web 层使用。
type Snapshot struct {
	Digest            Digest  `json:"digest"`
	Bits              []bool  `json:"-"`
	FalsePositiveRate float64 `json:"false_positive_rate"`
	Size              int     `json:"size"`
	NumHashes         int     `json:"num_hashes"`
	Count             int     `json:"elements_count"`
	SetBits           int     `json:"set_bits"`
}

// BitString 以 "0"/"1" 字符串形式返回位数组。
func (s Snapshot) BitString() string {
	var b strings.Builder
	b.Grow(len(s.Bits))
	for _, bit := range s.Bits {
		if bit {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// FillRatio 返回已置位比例。
func (s Snapshot) FillRatio() float64 {
	if s.Size == 0 {
		return 0
	}
	return float64(s.SetBits) / float64(s.Size)
}

// Fingerprint 返回快照内容的摘要，相同状态得到相同指纹，用作渲染缓存键。
func (s Snapshot) Fingerprint() string {
	h := sha256.New()
	var buf [8]byte
	for _, v := range []int{s.Size, s.NumHashes, s.Count} {
		binary.BigEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	h.Write([]byte(s.Digest))
	h.Write([]byte(s.BitString()))
	return hex.EncodeToString(h.Sum(nil))
}
