package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func TestMemoryCacheSetGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	defer c.Close()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	ok, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c := newMemoryCache(time.Hour, clock.Now)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	clock.Advance(2 * time.Minute)

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	ok, _ := c.Exists(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryCacheTakeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	defer c.Close()

	require.NoError(t, c.Set(ctx, "nonce", []byte("n1"), time.Minute))

	got, err := c.Take(ctx, "nonce")
	require.NoError(t, err)
	assert.Equal(t, []byte("n1"), got)

	_, err = c.Take(ctx, "nonce")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheRemoveExpired(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c := newMemoryCache(time.Hour, clock.Now)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "short", []byte("a"), time.Second))
	require.NoError(t, c.Set(ctx, "long", []byte("b"), time.Hour))
	clock.Advance(time.Minute)

	c.removeExpired()

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Len(t, c.entries, 1)
	assert.Contains(t, c.entries, "long")
}
