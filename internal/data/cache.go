package data

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"time"

	"InferGate/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

const (
	defaultCacheTTL      = 30 * time.Minute
	defaultCacheCapacity = 1000
)

// ResponseCache is the bounded, TTL-based response cache. Keys are a stable
// hash over the operation name and a normalized parameter representation;
// the backend is either an in-memory expirable LRU (oldest evicted first when
// full) or Redis for multi-instance deployments.
type ResponseCache struct {
	backend       cacheBackend
	maxParamBytes int
	logger        *log.Helper
}

type cacheBackend interface {
	get(ctx context.Context, key string) (string, bool)
	put(ctx context.Context, key, payload string)
}

// NewResponseCache builds the cache from config. Backend "redis" falls back
// to memory when no Redis client is available.
func NewResponseCache(c *conf.Data, rdb *redis.Client, logger log.Logger) *ResponseCache {
	helper := log.NewHelper(logger)

	ttl := defaultCacheTTL
	capacity := defaultCacheCapacity
	maxParamBytes := 0
	backendName := "memory"
	if c != nil && c.Cache != nil {
		if c.Cache.Ttl != nil && c.Cache.Ttl.AsDuration() > 0 {
			ttl = c.Cache.Ttl.AsDuration()
		}
		if c.Cache.Capacity > 0 {
			capacity = int(c.Cache.Capacity)
		}
		maxParamBytes = int(c.Cache.MaxParamBytes)
		if c.Cache.Backend != "" {
			backendName = c.Cache.Backend
		}
	}

	var backend cacheBackend
	switch {
	case backendName == "redis" && rdb != nil:
		backend = &redisBackend{rdb: rdb, ttl: ttl, logger: helper}
		helper.Infow("msg", "response cache using redis backend", "ttl", ttl.String())
	case backendName == "redis":
		helper.Warn("redis cache backend configured but no Redis client available, falling back to memory")
		fallthrough
	default:
		backend = &memoryBackend{
			lru: expirable.NewLRU[string, string](capacity, nil, ttl),
		}
		helper.Infow("msg", "response cache using memory backend",
			"ttl", ttl.String(),
			"capacity", capacity)
	}

	return &ResponseCache{
		backend:       backend,
		maxParamBytes: maxParamBytes,
		logger:        helper,
	}
}

// Get returns the cached payload for (operation, params), if fresh.
func (c *ResponseCache) Get(ctx context.Context, operation string, params map[string]string) (string, bool) {
	return c.backend.get(ctx, BuildKey(operation, params, c.maxParamBytes))
}

// Put stores the payload for (operation, params).
func (c *ResponseCache) Put(ctx context.Context, operation string, params map[string]string, payload string) {
	c.backend.put(ctx, BuildKey(operation, params, c.maxParamBytes), payload)
}

// BuildKey computes the stable cache key: sha256 over the operation name and
// the sorted k=v parameter pairs.
//
// maxParamBytes > 0 truncates each parameter value to that many bytes before
// hashing. Oversized params (e.g. base64 image payloads) sharing a prefix
// then intentionally collide, which deduplicates near-identical analysis
// requests; set it to 0 to hash full values.
func BuildKey(operation string, params map[string]string, maxParamBytes int) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	h.Write([]byte(operation))
	for _, k := range keys {
		v := params[k]
		if maxParamBytes > 0 && len(v) > maxParamBytes {
			v = v[:maxParamBytes]
		}
		h.Write([]byte{0})
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(v))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// memoryBackend wraps the expirable LRU: entries past TTL are never returned
// even while physically present, and the oldest entry is evicted when full.
type memoryBackend struct {
	lru *expirable.LRU[string, string]
}

func (m *memoryBackend) get(_ context.Context, key string) (string, bool) {
	return m.lru.Get(key)
}

func (m *memoryBackend) put(_ context.Context, key, payload string) {
	m.lru.Add(key, payload)
}

// redisBackend stores payloads under a prefixed key with the cache TTL.
// Redis failures degrade to a miss; they never block the request path.
type redisBackend struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *log.Helper
}

const redisKeyPrefix = "infergate:response:"

func (r *redisBackend) get(ctx context.Context, key string) (string, bool) {
	val, err := r.rdb.Get(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warnf("redis cache get failed: %v (treated as miss)", err)
		}
		return "", false
	}
	return val, true
}

func (r *redisBackend) put(ctx context.Context, key, payload string) {
	if err := r.rdb.Set(ctx, redisKeyPrefix+key, payload, r.ttl).Err(); err != nil {
		r.logger.Warnf("redis cache set failed: %v (entry dropped)", err)
	}
}
