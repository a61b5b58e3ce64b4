package badgercache

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache(t *testing.T, opts Options) (*Cache, *fakeClock) {
	t.Helper()
	clk := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	opts.Now = clk.Now
	c, err := Open(zerolog.Nop(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, clk
}

func TestCache_GetWithinTTLReturnsStoredValue(t *testing.T) {
	ctx := context.Background()
	c, clk := newTestCache(t, Options{TTL: time.Hour})

	value := []byte(`[{"id":"v17","title":"Ever17"}]`)
	c.Set(ctx, "vndb:v2:search:ever17", value)

	clk.Advance(59 * time.Minute)
	got, ok := c.Get(ctx, "vndb:v2:search:ever17")
	require.True(t, ok)
	assert.Equal(t, value, got)

	// Limite incluse : now - storedAt == ttl est encore valide.
	clk.Advance(time.Minute)
	_, ok = c.Get(ctx, "vndb:v2:search:ever17")
	assert.True(t, ok)
}

func TestCache_ExpiredEntryIsPurgedOnRead(t *testing.T) {
	ctx := context.Background()
	c, clk := newTestCache(t, Options{TTL: time.Hour})

	c.Set(ctx, "vndb:v2:vn:v17", []byte(`{"id":"v17"}`))
	require.Equal(t, 1, c.count())

	clk.Advance(time.Hour + time.Millisecond)
	_, ok := c.Get(ctx, "vndb:v2:vn:v17")
	assert.False(t, ok)
	assert.Equal(t, 0, c.count(), "stale entry should be evicted on read")
}

func TestCache_MissingKey(t *testing.T) {
	c, _ := newTestCache(t, Options{})
	_, ok := c.Get(context.Background(), "nope")
	assert.False(t, ok)
}

func TestCache_OversizedWriteIsSwallowed(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, Options{MaxEntryBytes: 16})

	c.Set(ctx, "big", []byte(`"`+strings.Repeat("x", 64)+`"`))
	_, ok := c.Get(ctx, "big")
	assert.False(t, ok)
	assert.Equal(t, 0, c.count())
}

func TestCache_ValueAtQuotaRoundTrips(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, Options{})

	value := bytes.Repeat([]byte("x"), DefaultMaxEntryBytes)
	c.Set(ctx, "vndb:v2:search:long", value)

	got, ok := c.Get(ctx, "vndb:v2:search:long")
	require.True(t, ok, "a value at the quota must be stored")
	assert.Equal(t, value, got)
}

func TestCache_QuotaIsClampedToStoreLimit(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, Options{MaxEntryBytes: 4 << 20})
	assert.Equal(t, MaxEntryBytes, c.max)

	c.Set(ctx, "big", bytes.Repeat([]byte("x"), 2<<20))
	_, ok := c.Get(ctx, "big")
	assert.False(t, ok)
}

func TestCache_RejectedOverwriteEvictsPreviousValue(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, Options{MaxEntryBytes: 32})

	c.Set(ctx, "vndb:v2:vn:v17", []byte(`{"id":"v17"}`))
	_, ok := c.Get(ctx, "vndb:v2:vn:v17")
	require.True(t, ok)

	c.Set(ctx, "vndb:v2:vn:v17", bytes.Repeat([]byte("y"), 64))
	_, ok = c.Get(ctx, "vndb:v2:vn:v17")
	assert.False(t, ok, "stale value must not outlive a dropped write")
	assert.Equal(t, 0, c.count())
}

func TestCache_OversizedKeyIsSwallowed(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, Options{})

	key := "vndb:v2:search:" + strings.Repeat("q", maxKeyBytes)
	c.Set(ctx, key, []byte(`[]`))
	_, ok := c.Get(ctx, key)
	assert.False(t, ok)
	assert.Equal(t, 0, c.count())
}
