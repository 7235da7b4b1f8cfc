package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/wyfcoding/bloomlab/bloom"
	"github.com/wyfcoding/bloomlab/xerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfusionRatios(t *testing.T) {
	var zero Confusion
	assert.Equal(t, 0.0, zero.Precision())
	assert.Equal(t, 0.0, zero.Recall())
	assert.Equal(t, 0.0, zero.ObservedFalsePositiveRate())

	c := Confusion{TruePositives: 3, FalsePositives: 1, TrueNegatives: 3, FalseNegatives: 0}
	assert.Equal(t, 0.75, c.Precision())
	assert.Equal(t, 1.0, c.Recall())
	assert.Equal(t, 0.25, c.ObservedFalsePositiveRate())
}

func TestCompare_PreservesOrderAndNames(t *testing.T) {
	configs := []bloom.Params{
		{Size: 50, NumHashes: 2},
		{Size: 100, NumHashes: 3},
		{Size: 200, NumHashes: 5},
		{Size: 10000, NumHashes: 3},
	}
	results, err := CompareFilters(context.Background(), configs)
	require.NoError(t, err)
	require.Len(t, results, len(configs))

	for i, r := range results {
		assert.Equal(t, configs[i].String(), r.Name)
		assert.Equal(t, configs[i], r.Params)
		assert.Equal(t, 4, r.Snapshot.Count)
		// 已插入元素必然命中
		assert.Equal(t, 4, r.Confusion.TruePositives)
		assert.Equal(t, 0, r.Confusion.FalseNegatives)
		assert.Equal(t, 1.0, r.Recall)
		assert.Equal(t, 8, r.Confusion.TruePositives+r.Confusion.FalsePositives+
			r.Confusion.TrueNegatives+r.Confusion.FalseNegatives)
		assert.Equal(t, r.Snapshot.FalsePositiveRate, r.Estimated)
	}

	sparse := results[3]
	assert.Equal(t, 1.0, sparse.Precision)
	assert.Equal(t, 0.0, sparse.Observed)
	assert.Equal(t, 4, sparse.Confusion.TrueNegatives)
}

func TestCompare_SaturatedFilter(t *testing.T) {
	results, err := PerformanceAnalysis(context.Background(), []bloom.Params{{Size: 1, NumHashes: 1}})
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, Confusion{TruePositives: 8, FalsePositives: 8}, r.Confusion)
	assert.Equal(t, 0.5, r.Precision)
	assert.Equal(t, 1.0, r.Observed)
	assert.Equal(t, 1.0, r.Estimated)
}

func TestCompare_Errors(t *testing.T) {
	_, err := Compare(context.Background(), nil, DefaultElements, 4)
	assert.True(t, errors.Is(err, xerrors.ErrNoConfigurations))

	_, err = Compare(context.Background(), []bloom.Params{{Size: 10, NumHashes: 2}, {Size: 0, NumHashes: 2}}, DefaultElements, 4)
	assert.True(t, errors.Is(err, xerrors.ErrInvalidFilterConfig))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Compare(ctx, []bloom.Params{{Size: 10, NumHashes: 2}}, DefaultElements, 4)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompare_ClampsInsertCount(t *testing.T) {
	results, err := Compare(context.Background(), []bloom.Params{{Size: 500, NumHashes: 4}}, DefaultElements[:3], 10)
	require.NoError(t, err)
	assert.Equal(t, 3, results[0].Snapshot.Count)
	assert.Equal(t, 0, results[0].Confusion.TrueNegatives+results[0].Confusion.FalsePositives)
	assert.Equal(t, 0.0, results[0].Observed)
}

func TestDefaultElements(t *testing.T) {
	assert.Len(t, DefaultElements, 16)
	assert.Equal(t, "user_123", DefaultElements[0])
	assert.Equal(t, "ashley_951", DefaultElements[15])
}
