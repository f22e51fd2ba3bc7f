package ratelimit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock {
	return &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func exerciseWindow(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	c := newClock()
	l := New(store, 3, time.Minute)
	l.Now = c.now

	start := c.t
	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, "cli")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 2-i, d.Remaining)
		assert.True(t, d.ResetAt.Equal(start.Add(time.Minute)), "reset %v", d.ResetAt)
		c.advance(10 * time.Second)
	}

	d, err := l.Allow(ctx, "cli")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	// other clients have their own window
	d, err = l.Allow(ctx, "other")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	// the first request slides out after a minute
	c.t = start.Add(time.Minute + time.Millisecond)
	d, err = l.Allow(ctx, "cli")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.True(t, d.ResetAt.Equal(start.Add(10*time.Second+time.Minute)))

	err = l.Check(ctx, "cli")
	var ex *ExceededError
	require.True(t, errors.As(err, &ex))
	assert.Equal(t, "cli", ex.ClientID)
}

func TestMemoryStoreWindow(t *testing.T) {
	exerciseWindow(t, NewMemoryStore())
}

func TestFileStoreWindow(t *testing.T) {
	exerciseWindow(t, NewFileStore(filepath.Join(t.TempDir(), "ratelimit.json")))
}

func TestFileStoreSharedAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "ratelimit.json")
	c := newClock()

	first := PerMinute(NewFileStore(path), 1)
	first.Now = c.now
	require.NoError(t, first.Check(ctx, "cli"))

	second := PerMinute(NewFileStore(path), 1)
	second.Now = c.now
	assert.Error(t, second.Check(ctx, "cli"))
}

func TestDisabledLimiter(t *testing.T) {
	l := New(NewMemoryStore(), 0, time.Minute)
	for i := 0; i < 100; i++ {
		d, err := l.Allow(context.Background(), "x")
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}
}

type failingStore struct{}

func (failingStore) Load(context.Context, string) ([]time.Time, error) {
	return nil, errors.New("disk gone")
}

func (failingStore) Save(context.Context, string, []time.Time) error { return nil }

func TestStoreErrorsPropagate(t *testing.T) {
	_, err := New(failingStore{}, 1, time.Minute).Allow(context.Background(), "x")
	assert.ErrorContains(t, err, "disk gone")
}
