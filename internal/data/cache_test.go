package data

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"InferGate/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/durationpb"
)

func TestBuildKeyStable(t *testing.T) {
	params := map[string]string{"prompt": "hello", "capability": "text"}

	k1 := BuildKey("analyze", params, 0)
	k2 := BuildKey("analyze", map[string]string{"capability": "text", "prompt": "hello"}, 0)
	assert.Equal(t, k1, k2, "key must not depend on map iteration order")

	// different operation, different key
	assert.NotEqual(t, k1, BuildKey("summarize", params, 0))

	// different value, different key
	assert.NotEqual(t, k1, BuildKey("analyze", map[string]string{"prompt": "bye", "capability": "text"}, 0))
}

func TestBuildKeyTruncation(t *testing.T) {
	long := strings.Repeat("a", 300) + "tail-one"
	other := strings.Repeat("a", 300) + "tail-two"

	// with truncation, values sharing a 256-byte prefix collide on purpose
	assert.Equal(t,
		BuildKey("analyze", map[string]string{"image": long}, 256),
		BuildKey("analyze", map[string]string{"image": other}, 256))

	// without truncation they stay distinct
	assert.NotEqual(t,
		BuildKey("analyze", map[string]string{"image": long}, 0),
		BuildKey("analyze", map[string]string{"image": other}, 0))

	// short values are unaffected by the limit
	assert.Equal(t,
		BuildKey("analyze", map[string]string{"prompt": "hi"}, 256),
		BuildKey("analyze", map[string]string{"prompt": "hi"}, 0))
}

func newMemoryCache(t *testing.T, cache *conf.Data_Cache) *ResponseCache {
	t.Helper()
	return NewResponseCache(&conf.Data{Cache: cache}, nil, log.NewStdLogger(os.Stdout))
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := newMemoryCache(t, &conf.Data_Cache{Backend: "memory"})
	ctx := context.Background()
	params := map[string]string{"prompt": "hello"}

	_, ok := c.Get(ctx, "analyze", params)
	assert.False(t, ok)

	c.Put(ctx, "analyze", params, "payload")
	got, ok := c.Get(ctx, "analyze", params)
	require.True(t, ok)
	assert.Equal(t, "payload", got)

	// a different operation with the same params is a distinct entry
	_, ok = c.Get(ctx, "summarize", params)
	assert.False(t, ok)
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	c := newMemoryCache(t, &conf.Data_Cache{
		Backend: "memory",
		Ttl:     durationpb.New(50 * time.Millisecond),
	})
	ctx := context.Background()
	params := map[string]string{"prompt": "x"}

	c.Put(ctx, "analyze", params, "payload")
	_, ok := c.Get(ctx, "analyze", params)
	require.True(t, ok)

	time.Sleep(80 * time.Millisecond)
	_, ok = c.Get(ctx, "analyze", params)
	assert.False(t, ok, "entry past its TTL must not be returned")
}

func TestMemoryCacheEvictsOldestWhenFull(t *testing.T) {
	c := newMemoryCache(t, &conf.Data_Cache{
		Backend:  "memory",
		Capacity: 2,
		Ttl:      durationpb.New(time.Hour),
	})
	ctx := context.Background()

	c.Put(ctx, "analyze", map[string]string{"prompt": "one"}, "1")
	c.Put(ctx, "analyze", map[string]string{"prompt": "two"}, "2")
	c.Put(ctx, "analyze", map[string]string{"prompt": "three"}, "3")

	_, ok := c.Get(ctx, "analyze", map[string]string{"prompt": "one"})
	assert.False(t, ok, "oldest entry is evicted once capacity is exceeded")

	_, ok = c.Get(ctx, "analyze", map[string]string{"prompt": "two"})
	assert.True(t, ok)
	_, ok = c.Get(ctx, "analyze", map[string]string{"prompt": "three"})
	assert.True(t, ok)
}

func TestRedisBackendFallsBackWithoutClient(t *testing.T) {
	// backend "redis" with no client degrades to memory rather than failing
	c := NewResponseCache(&conf.Data{Cache: &conf.Data_Cache{Backend: "redis"}}, nil, log.NewStdLogger(os.Stdout))
	ctx := context.Background()
	params := map[string]string{"prompt": "x"}

	c.Put(ctx, "analyze", params, "payload")
	got, ok := c.Get(ctx, "analyze", params)
	require.True(t, ok)
	assert.Equal(t, "payload", got)
}
