package bloom

import (
	"crypto/md5"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/bloomlab/xerrors"
)

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cases := []struct{ size, k int }{
		{0, 3},
		{10, 0},
		{-5, 2},
		{-1, -1},
	}
	for _, tc := range cases {
		f, err := New(tc.size, tc.k)
		require.Error(t, err, "size=%d k=%d", tc.size, tc.k)
		assert.Nil(t, f)
		assert.True(t, errors.Is(err, xerrors.ErrInvalidFilterConfig))
	}
}

func TestNew_EmptyFilter(t *testing.T) {
	f, err := New(100, 3)
	require.NoError(t, err)

	snap := f.Snapshot()
	assert.Equal(t, 100, snap.Size)
	assert.Equal(t, 3, snap.NumHashes)
	assert.Equal(t, 0, snap.Count)
	assert.Equal(t, 0, snap.SetBits)
	assert.Len(t, snap.Bits, 100)
	for _, b := range snap.Bits {
		assert.False(t, b)
	}
	assert.Equal(t, 0.0, f.EstimatedFalsePositiveRate())
}

func TestAdd_SetsAtMostKBits(t *testing.T) {
	f, err := New(100, 3)
	require.NoError(t, err)

	f.Add("user_123")

	assert.True(t, f.Contains("user_123"))
	assert.Equal(t, 1, f.Count())
	assert.LessOrEqual(t, f.SetBits(), 3)
	assert.GreaterOrEqual(t, f.SetBits(), 1)
	for _, idx := range f.Positions("user_123") {
		assert.True(t, f.Snapshot().Bits[idx])
	}
}

func TestPositions_MatchesSaltedMD5Layout(t *testing.T) {
	f, err := New(100, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{63, 8, 67}, f.Positions("user_123"))

	g, err := New(50, 5)
	require.NoError(t, err)
	assert.Equal(t, []int{16, 30, 49, 18, 40}, g.Positions("sarah_456"))
}

func TestAddMany_DiscardsBlanks(t *testing.T) {
	f, err := New(100, 3)
	require.NoError(t, err)

	n := f.AddMany([]string{"a", " b ", "", "   ", "c"})

	assert.Equal(t, 3, n)
	assert.Equal(t, 3, f.Count())
	for _, e := range []string{"a", "b", "c"} {
		assert.True(t, f.Contains(e), e)
		assert.True(t, f.Inserted(e), e)
	}
	assert.False(t, f.Inserted(" b "))
}

func TestAdd_DuplicateKeepsGroundTruthCount(t *testing.T) {
	f, err := New(64, 4)
	require.NoError(t, err)

	f.Add("dup")
	bitsAfterFirst := f.SetBits()
	f.Add("dup")

	assert.Equal(t, 1, f.Count())
	assert.Equal(t, bitsAfterFirst, f.SetBits())
	assert.True(t, f.Contains("dup"))
}

func TestNoFalseNegatives(t *testing.T) {
	for _, d := range []Digest{DigestMD5, DigestSHA256, DigestXXH3, DigestMurmur3} {
		t.Run(string(d), func(t *testing.T) {
			f, err := New(257, 4, WithDigest(d))
			require.NoError(t, err)

			inserted := make([]string, 0, 300)
			for i := 0; i < 300; i++ {
				e := fmt.Sprintf("item_%d", i)
				f.Add(e)
				inserted = append(inserted, e)
				// 此前插入的全部元素仍需命中
				if i%50 == 0 {
					for _, prev := range inserted {
						require.True(t, f.Contains(prev), prev)
					}
				}
			}
			for _, e := range inserted {
				require.True(t, f.Contains(e), e)
			}
		})
	}
}

func TestDeterminismAcrossInstances(t *testing.T) {
	a, err := New(500, 6)
	require.NoError(t, err)
	b, err := New(500, 6)
	require.NoError(t, err)

	for i := 0; i < 40; i++ {
		e := fmt.Sprintf("profile_%d", i)
		a.Add(e)
		b.Add(e)
		assert.Equal(t, a.Positions(e), b.Positions(e))
		assert.Equal(t, a.Positions(e), a.Positions(e))
	}
	assert.Equal(t, a.Snapshot().Bits, b.Snapshot().Bits)
	assert.Equal(t, a.Snapshot().Fingerprint(), b.Snapshot().Fingerprint())
}

func TestPositionsWithinBounds(t *testing.T) {
	for _, size := range []int{1, 2, 7, 100, 1 << 20} {
		for _, d := range []Digest{DigestMD5, DigestSHA256, DigestXXH3, DigestMurmur3} {
			f, err := New(size, 8, WithDigest(d))
			require.NoError(t, err)
			for i := 0; i < 50; i++ {
				for _, idx := range f.Positions(fmt.Sprintf("e%d", i)) {
					require.GreaterOrEqual(t, idx, 0)
					require.Less(t, idx, size)
				}
			}
		}
	}
}

func TestHashFamily_BeyondEightFunctions(t *testing.T) {
	f, err := New(1000, 12)
	require.NoError(t, err)
	assert.Len(t, f.Positions("x"), 12)

	salts := f.Family().Salts()
	assert.Equal(t, "salt1", salts[0])
	assert.Equal(t, "salt12", salts[11])
}

func TestMonotonicBits(t *testing.T) {
	f, err := New(128, 3)
	require.NoError(t, err)

	prev := f.Snapshot().Bits
	for i := 0; i < 100; i++ {
		f.Add(fmt.Sprintf("m_%d", i))
		cur := f.Snapshot().Bits
		for j := range prev {
			if prev[j] {
				require.True(t, cur[j], "bit %d cleared", j)
			}
		}
		prev = cur
	}
}

func TestEstimatedFalsePositiveRate_Bounds(t *testing.T) {
	f, err := New(100, 3)
	require.NoError(t, err)
	assert.Equal(t, 0.0, f.EstimatedFalsePositiveRate())

	last := 0.0
	for i := 0; i < 200; i++ {
		f.Add(fmt.Sprintf("fp_%d", i))
		rate := f.EstimatedFalsePositiveRate()
		require.Greater(t, rate, 0.0)
		require.Less(t, rate, 1.0)
		require.GreaterOrEqual(t, rate, last)
		last = rate
	}
	assert.Greater(t, last, 0.99)
}

func TestEstimatedFalsePositiveRate_Formula(t *testing.T) {
	f, err := New(1000, 5)
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		f.Add(fmt.Sprintf("k_%d", i))
	}

	p := 1 - math.Pow(1-1.0/1000, 5*8)
	assert.InDelta(t, math.Pow(p, 5), f.EstimatedFalsePositiveRate(), 1e-15)
	assert.InDelta(t, math.Pow(p, 5), f.Snapshot().FalsePositiveRate, 1e-15)
}

func TestObservedFalsePositivesTrackEstimate(t *testing.T) {
	f, err := New(1000, 5)
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		f.Add(fmt.Sprintf("known_%d", i))
	}
	fp := 0
	for i := 0; i < 1000; i++ {
		if f.Contains(fmt.Sprintf("unseen_%d", i)) {
			fp++
		}
	}
	// 估计值约 1e-7，1000 次查询中不应出现误报
	assert.LessOrEqual(t, fp, 1)

	dense, err := New(1000, 5)
	require.NoError(t, err)
	for i := 0; i < 150; i++ {
		dense.Add(fmt.Sprintf("known_%d", i))
	}
	const trials = 5000
	fp = 0
	for i := 0; i < trials; i++ {
		if dense.Contains(fmt.Sprintf("unseen_%d", i)) {
			fp++
		}
	}
	observed := float64(fp) / trials
	estimated := dense.EstimatedFalsePositiveRate()
	t.Logf("observed=%.4f estimated=%.4f", observed, estimated)
	assert.Greater(t, observed, estimated/3)
	assert.Less(t, observed, estimated*3)
}

func TestConcurrentAddAndContains(t *testing.T) {
	f, err := New(4096, 4)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				e := fmt.Sprintf("w%d_%d", w, i)
				f.Add(e)
				if !f.Contains(e) {
					t.Errorf("false negative for %s", e)
				}
				_ = f.Snapshot()
			}
		}(w)
	}
	wg.Wait()
	assert.Equal(t, 1600, f.Count())
}

func TestReduceMatchesBigInt(t *testing.T) {
	for i := 0; i < 200; i++ {
		sum := md5.Sum([]byte(fmt.Sprintf("r%d", i)))
		for _, m := range []uint64{1, 3, 100, 1 << 31, math.MaxUint64} {
			want := new(big.Int).Mod(new(big.Int).SetBytes(sum[:]), new(big.Int).SetUint64(m))
			require.Equal(t, want.Uint64(), reduce(sum[:], m))
		}
	}
}

func TestParseDigest(t *testing.T) {
	d, err := ParseDigest("")
	require.NoError(t, err)
	assert.Equal(t, DigestMD5, d)

	d, err = ParseDigest(" XXH3 ")
	require.NoError(t, err)
	assert.Equal(t, DigestXXH3, d)

	_, err = ParseDigest("crc32")
	assert.True(t, errors.Is(err, xerrors.ErrUnknownDigest))

	_, err = New(10, 2, WithDigest("crc32"))
	assert.True(t, errors.Is(err, xerrors.ErrUnknownDigest))
}

func TestSuggestParams(t *testing.T) {
	p, err := SuggestParams(1000, 0.01)
	require.NoError(t, err)
	assert.Equal(t, 9586, p.Size)
	assert.Equal(t, 7, p.NumHashes)

	_, err = SuggestParams(0, 0.01)
	assert.True(t, errors.Is(err, xerrors.ErrInvalidFilterConfig))
	_, err = SuggestParams(10, 1.5)
	assert.True(t, errors.Is(err, xerrors.ErrInvalidFilterConfig))
}

func TestSnapshotIsDetached(t *testing.T) {
	f, err := New(32, 2)
	require.NoError(t, err)

	snap := f.Snapshot()
	f.Add("later")

	assert.Equal(t, 0, snap.SetBits)
	for _, b := range snap.Bits {
		assert.False(t, b)
	}
	assert.Equal(t, "Size:32, Hashes:2", f.Params().String())
	assert.Len(t, snap.BitString(), 32)
}
