package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestLRUCache_PerEntryTTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](10, time.Hour).WithClock(clock.now)

	c.Set("short", "a", 10*time.Minute)
	c.Set("long", "b", time.Hour)
	c.Set("default", "c", 0)

	clock.advance(11 * time.Minute)

	_, ok := c.Get("short")
	assert.False(t, ok, "short entry expired")

	v, ok := c.Get("long")
	require.True(t, ok)
	assert.Equal(t, "b", v)

	_, ok = c.Get("default")
	assert.True(t, ok)

	clock.advance(time.Hour)
	assert.Equal(t, 2, c.CleanExpired())
	assert.Zero(t, c.Size())
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Hour)

	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	_, _ = c.Get("a")
	c.Set("c", 3, 0)

	_, ok := c.Get("b")
	assert.False(t, ok, "b was least recently used")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestLRUCache_OverwriteAndDelete(t *testing.T) {
	c := NewLRUCache[int](5, time.Hour)

	c.Set("a", 1, 0)
	c.Set("a", 2, 0)
	v, _ := c.Get("a")
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Size())

	c.Set("b", 3, 0)
	c.Delete("a", "b", "missing")
	assert.Zero(t, c.Size())
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(10)

	_, ok, err := s.Get(ctx, "months:all")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "months:all", []byte(`[]`), time.Hour))
	val, ok, err := s.Get(ctx, "months:all")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[]`, string(val))

	require.NoError(t, s.Delete(ctx, "months:all"))
	_, ok, _ = s.Get(ctx, "months:all")
	assert.False(t, ok)
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewMemoryStore(10)
	_, _, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Set(ctx, "k", nil, time.Minute), context.Canceled)
}

func TestManager_CleanNowAndStop(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	s := NewMemoryStore(10)
	s.LRU().WithClock(clock.now)
	require.NoError(t, s.Set(context.Background(), "k", []byte("v"), time.Minute))

	m := NewManager(nil)
	m.Register(s)
	m.StartCleanup(time.Hour)

	clock.advance(2 * time.Minute)
	assert.Equal(t, 1, m.CleanNow())

	m.Stop()
	m.Stop()
}

func TestNoop(t *testing.T) {
	var s Store = Noop{}
	require.NoError(t, s.Set(context.Background(), "k", []byte("v"), time.Minute))
	_, ok, err := s.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
