package biz

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"InferGate/internal/conf"
)

// ExponentialBackoff generates per-provider delays between fallback attempts:
// min(base * multiplier^attempt, max) with +/-jitter uniform randomization.
// Every GetDelay call increments the attempt counter; Reset zeroes it on a
// successful request to the provider.
type ExponentialBackoff struct {
	mu sync.Mutex

	attempts   int
	base       time.Duration
	multiplier float64
	max        time.Duration
	jitter     float64
	rng        *rand.Rand
}

// NewExponentialBackoff creates a backoff generator. jitter is the +/-
// fraction applied to each delay (0.25 means +/-25%); 0 disables jitter,
// which makes the delay sequence deterministic and non-decreasing until it
// saturates at max.
func NewExponentialBackoff(base time.Duration, multiplier float64, max time.Duration, jitter float64) *ExponentialBackoff {
	if base <= 0 {
		base = time.Second
	}
	if multiplier < 1 {
		multiplier = 2
	}
	if max <= 0 {
		max = 60 * time.Second
	}
	return &ExponentialBackoff{
		base:       base,
		multiplier: multiplier,
		max:        max,
		jitter:     jitter,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Seed reseeds the jitter source. Test hook.
func (b *ExponentialBackoff) Seed(seed int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rng = rand.New(rand.NewSource(seed))
}

// GetDelay returns the delay for the current attempt and increments the
// attempt counter.
func (b *ExponentialBackoff) GetDelay() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	d := float64(b.base) * math.Pow(b.multiplier, float64(b.attempts))
	if d > float64(b.max) {
		d = float64(b.max)
	}
	b.attempts++

	if b.jitter > 0 {
		// uniform in [d*(1-jitter), d*(1+jitter)]
		d *= 1 + b.jitter*(2*b.rng.Float64()-1)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// Reset zeroes the attempt counter.
func (b *ExponentialBackoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attempts = 0
}

// Attempts returns the current attempt counter.
func (b *ExponentialBackoff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}

// BackoffGroup owns one backoff generator per provider.
type BackoffGroup struct {
	mu       sync.Mutex
	backoffs map[string]*ExponentialBackoff

	base       time.Duration
	multiplier float64
	max        time.Duration
	jitter     float64
}

// NewBackoffGroup creates a backoff group from the resilience config.
func NewBackoffGroup(c *conf.Resilience) *BackoffGroup {
	g := &BackoffGroup{
		backoffs:   make(map[string]*ExponentialBackoff),
		base:       time.Second,
		multiplier: 2,
		max:        60 * time.Second,
		jitter:     0.25,
	}
	if c != nil && c.Backoff != nil {
		if c.Backoff.Base != nil && c.Backoff.Base.AsDuration() > 0 {
			g.base = c.Backoff.Base.AsDuration()
		}
		if c.Backoff.Multiplier >= 1 {
			g.multiplier = c.Backoff.Multiplier
		}
		if c.Backoff.Max != nil && c.Backoff.Max.AsDuration() > 0 {
			g.max = c.Backoff.Max.AsDuration()
		}
		g.jitter = c.Backoff.Jitter
	}
	return g
}

// For returns the backoff generator owning the given provider's state.
func (g *BackoffGroup) For(provider string) *ExponentialBackoff {
	g.mu.Lock()
	defer g.mu.Unlock()

	b, ok := g.backoffs[provider]
	if !ok {
		b = NewExponentialBackoff(g.base, g.multiplier, g.max, g.jitter)
		g.backoffs[provider] = b
	}
	return b
}
