package data

import (
	"context"
	"os"
	"testing"
	"time"

	"InferGate/internal/conf"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/durationpb"
)

func newRedisCache(t *testing.T, ttl time.Duration) (*ResponseCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	c := NewResponseCache(&conf.Data{
		Cache: &conf.Data_Cache{
			Backend: "redis",
			Ttl:     durationpb.New(ttl),
		},
	}, rdb, log.NewStdLogger(os.Stdout))
	return c, mr
}

func TestRedisCacheRoundTrip(t *testing.T) {
	c, mr := newRedisCache(t, time.Minute)
	ctx := context.Background()
	params := map[string]string{"prompt": "hello"}

	_, ok := c.Get(ctx, "analyze", params)
	assert.False(t, ok)

	c.Put(ctx, "analyze", params, "payload")
	got, ok := c.Get(ctx, "analyze", params)
	require.True(t, ok)
	assert.Equal(t, "payload", got)

	// entries live under the expected key namespace
	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Contains(t, keys[0], redisKeyPrefix)
}

func TestRedisCacheTTLExpiry(t *testing.T) {
	c, mr := newRedisCache(t, 30*time.Second)
	ctx := context.Background()
	params := map[string]string{"prompt": "x"}

	c.Put(ctx, "analyze", params, "payload")
	_, ok := c.Get(ctx, "analyze", params)
	require.True(t, ok)

	mr.FastForward(time.Minute)
	_, ok = c.Get(ctx, "analyze", params)
	assert.False(t, ok)
}

func TestRedisCacheTreatsFailureAsMiss(t *testing.T) {
	c, mr := newRedisCache(t, time.Minute)
	ctx := context.Background()
	params := map[string]string{"prompt": "x"}

	c.Put(ctx, "analyze", params, "payload")
	mr.Close()

	// a dead Redis degrades to a miss, never an error on the request path
	_, ok := c.Get(ctx, "analyze", params)
	assert.False(t, ok)

	// writes against the dead backend are silently dropped
	c.Put(ctx, "analyze", params, "payload")
}
