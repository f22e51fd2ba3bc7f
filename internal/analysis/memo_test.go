package analysis

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoCachesByIdentity(t *testing.T) {
	ctx := context.Background()
	m := NewMemo(2)
	ds := fixture()
	opt := DefaultOptions()

	first, cached, err := m.Build(ctx, ds, opt)
	require.NoError(t, err)
	assert.False(t, cached)

	again, cached, err := m.Build(ctx, fixture(), opt)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Same(t, first, again)

	opt.Columns = []string{"x"}
	narrow, cached, err := m.Build(ctx, ds, opt)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.NotSame(t, first, narrow)

	// one more row changes the identity
	grown := fixture()
	grown.Rows = append(grown.Rows, grown.Rows[0])
	_, cached, err = m.Build(ctx, grown, DefaultOptions())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, m.Len())

	// the first entry was evicted
	_, cached, err = m.Build(ctx, ds, DefaultOptions())
	require.NoError(t, err)
	assert.False(t, cached)

	hits, misses := m.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 4, misses)
}

func TestMemoCollapsesConcurrentBuilds(t *testing.T) {
	m := NewMemo(4)
	ds := fixture()
	const n = 8
	reports := make([]*Report, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, _, err := m.Build(context.Background(), ds, DefaultOptions())
			if err != nil {
				t.Errorf("build: %v", err)
				return
			}
			reports[i] = r
		}()
	}
	wg.Wait()
	for _, r := range reports {
		assert.Same(t, reports[0], r)
	}
	assert.Equal(t, 1, m.Len())
}

func TestMemoKeyDependsOnSelection(t *testing.T) {
	ds := fixture()
	a := DefaultOptions()
	b := DefaultOptions()
	b.Columns = []string{"x", "y"}
	assert.NotEqual(t, MemoKey(ds, a), MemoKey(ds, b))
	assert.Equal(t, MemoKey(ds, a), MemoKey(fixture(), a))

	edited := fixture()
	edited.Rows[0] = map[string]any{"x": "100", "y": "2", "region": "north"}
	assert.NotEqual(t, MemoKey(ds, a), MemoKey(edited, a), "same shape, different cells")

	trimmed := DefaultOptions()
	trimmed.Histogram.Fixed = false
	assert.NotEqual(t, MemoKey(ds, a), MemoKey(ds, trimmed), "label precision")
}

func TestMemoKeyDependsOnTruncation(t *testing.T) {
	opt := DefaultOptions()
	full := fixture()

	truncated := fixture()
	truncated.Total = 5000
	truncated.Warnings = []string{"processed only 5/5000 rows due to MaxRows"}
	assert.NotEqual(t, MemoKey(full, opt), MemoKey(truncated, opt))

	rep, err := Build(context.Background(), truncated, opt)
	require.NoError(t, err)
	m := NewMemo(4)
	_, _, err = m.Build(context.Background(), full, opt)
	require.NoError(t, err)
	got, cached, err := m.Build(context.Background(), truncated, opt)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, rep.Total, got.Total)
	assert.Equal(t, rep.Warnings, got.Warnings)
}
