package biz

import (
	"sync"
	"time"

	"InferGate/internal/conf"
	"InferGate/internal/metrics"
	"InferGate/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// CircuitBreaker is the per-provider failure/recovery state machine. It is a
// pure state machine with no external I/O; callers own the side-effecting
// network call.
//
// CLOSED -> OPEN when consecutive failures reach the threshold.
// OPEN -> HALF_OPEN on the first CanAttempt after the recovery timeout.
// HALF_OPEN allows exactly one trial; the next RecordSuccess/RecordFailure
// resolves it to CLOSED or back to OPEN.
type CircuitBreaker struct {
	mu sync.Mutex

	provider        string
	state           model.CircuitBreakerState
	failureCount    int
	lastFailureTime time.Time
	lastSuccessTime time.Time

	failureThreshold int
	recoveryTimeout  time.Duration

	now           func() time.Time
	onStateChange func(provider string, from, to model.CircuitBreakerState)
	logger        *log.Helper
}

// NewCircuitBreaker creates a CLOSED breaker for one provider.
func NewCircuitBreaker(provider string, threshold int, recoveryTimeout time.Duration, logger log.Logger) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 3
	}
	return &CircuitBreaker{
		provider:         provider,
		state:            model.CircuitClosed,
		failureThreshold: threshold,
		recoveryTimeout:  recoveryTimeout,
		now:              time.Now,
		logger:           log.NewHelper(logger),
	}
}

// SetNow overrides the breaker's clock. Test hook.
func (b *CircuitBreaker) SetNow(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// CanAttempt reports whether a call may be sent to the provider right now.
// In OPEN state it flips to HALF_OPEN (and returns true) only once the
// recovery timeout has elapsed since the last failure.
func (b *CircuitBreaker) CanAttempt() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case model.CircuitClosed:
		return true
	case model.CircuitOpen:
		if b.now().Sub(b.lastFailureTime) > b.recoveryTimeout {
			b.transition(model.CircuitHalfOpen)
			return true
		}
		return false
	case model.CircuitHalfOpen:
		return true
	default:
		return true
	}
}

// RecordSuccess resets the failure count and forces CLOSED.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount = 0
	b.lastSuccessTime = b.now()
	if b.state != model.CircuitClosed {
		b.transition(model.CircuitClosed)
	}
}

// RecordFailure increments the failure count; at the threshold (or on a
// failed HALF_OPEN trial) the breaker opens and stamps the failure time.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailureTime = b.now()

	if b.state == model.CircuitHalfOpen || b.failureCount >= b.failureThreshold {
		if b.state != model.CircuitOpen {
			b.transition(model.CircuitOpen)
		}
	}
}

// Reset forces the breaker back to CLOSED. Administrative override.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount = 0
	if b.state != model.CircuitClosed {
		b.transition(model.CircuitClosed)
	}
}

// Snapshot returns a read-only view of the breaker.
func (b *CircuitBreaker) Snapshot() model.CircuitSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return model.CircuitSnapshot{
		State:           b.state,
		FailureCount:    b.failureCount,
		LastFailureTime: b.lastFailureTime,
		LastSuccessTime: b.lastSuccessTime,
	}
}

// transition moves the state machine. Caller holds the lock.
func (b *CircuitBreaker) transition(to model.CircuitBreakerState) {
	from := b.state
	b.state = to
	b.logger.Infow("msg", "circuit breaker state change",
		"provider", b.provider,
		"from", string(from),
		"to", string(to),
		"failures", b.failureCount)
	if b.onStateChange != nil {
		b.onStateChange(b.provider, from, to)
	}
}

// BreakerGroup owns one breaker per provider, created lazily from the shared
// configuration.
type BreakerGroup struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker

	threshold       int
	recoveryTimeout time.Duration
	metrics         *metrics.Metrics
	logger          log.Logger
}

// NewBreakerGroup creates a breaker group from the resilience config.
func NewBreakerGroup(c *conf.Resilience, m *metrics.Metrics, logger log.Logger) *BreakerGroup {
	threshold := 3
	recoveryTimeout := 5 * time.Minute
	if c != nil && c.Breaker != nil {
		if c.Breaker.FailureThreshold > 0 {
			threshold = int(c.Breaker.FailureThreshold)
		}
		if c.Breaker.RecoveryTimeout != nil && c.Breaker.RecoveryTimeout.AsDuration() > 0 {
			recoveryTimeout = c.Breaker.RecoveryTimeout.AsDuration()
		}
	}
	return &BreakerGroup{
		breakers:        make(map[string]*CircuitBreaker),
		threshold:       threshold,
		recoveryTimeout: recoveryTimeout,
		metrics:         m,
		logger:          logger,
	}
}

// For returns the breaker owning the given provider's state.
func (g *BreakerGroup) For(provider string) *CircuitBreaker {
	g.mu.Lock()
	defer g.mu.Unlock()

	b, ok := g.breakers[provider]
	if !ok {
		b = NewCircuitBreaker(provider, g.threshold, g.recoveryTimeout, g.logger)
		if g.metrics != nil {
			b.onStateChange = func(provider string, from, to model.CircuitBreakerState) {
				g.metrics.BreakerTransitions.WithLabelValues(provider, string(to)).Inc()
			}
		}
		g.breakers[provider] = b
	}
	return b
}
