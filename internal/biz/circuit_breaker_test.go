package biz

import (
	"os"
	"testing"
	"time"

	"InferGate/internal/conf"
	"InferGate/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"google.golang.org/protobuf/types/known/durationpb"
)

func newTestBreaker(threshold int, recovery time.Duration, now *time.Time) *CircuitBreaker {
	b := NewCircuitBreaker("test-provider", threshold, recovery, log.NewStdLogger(os.Stdout))
	b.SetNow(func() time.Time { return *now })
	return b
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b := newTestBreaker(3, time.Minute, &now)

	assert.Equal(t, model.CircuitClosed, b.Snapshot().State)

	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, model.CircuitClosed, b.Snapshot().State)
	assert.True(t, b.CanAttempt())

	b.RecordFailure()
	snap := b.Snapshot()
	assert.Equal(t, model.CircuitOpen, snap.State)
	assert.Equal(t, 3, snap.FailureCount)
	assert.False(t, b.CanAttempt())
}

func TestBreakerHalfOpenAfterRecoveryTimeout(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b := newTestBreaker(3, time.Minute, &now)

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	assert.False(t, b.CanAttempt())

	// The very next CanAttempt after the timeout flips to HALF_OPEN.
	now = now.Add(61 * time.Second)
	assert.True(t, b.CanAttempt())
	assert.Equal(t, model.CircuitHalfOpen, b.Snapshot().State)

	// HALF_OPEN allows the trial; a failure resolves it back to OPEN.
	assert.True(t, b.CanAttempt())
	b.RecordFailure()
	assert.Equal(t, model.CircuitOpen, b.Snapshot().State)
	assert.False(t, b.CanAttempt())
}

func TestBreakerHalfOpenSuccessCloses(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b := newTestBreaker(3, time.Minute, &now)

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	now = now.Add(2 * time.Minute)
	assert.True(t, b.CanAttempt())
	assert.Equal(t, model.CircuitHalfOpen, b.Snapshot().State)

	b.RecordSuccess()
	snap := b.Snapshot()
	assert.Equal(t, model.CircuitClosed, snap.State)
	assert.Equal(t, 0, snap.FailureCount)
	assert.Equal(t, now, snap.LastSuccessTime)
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b := newTestBreaker(3, time.Minute, &now)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()

	// Counting restarts: two more failures must not open the breaker.
	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, model.CircuitClosed, b.Snapshot().State)
}

func TestBreakerReset(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b := newTestBreaker(3, time.Minute, &now)

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	assert.Equal(t, model.CircuitOpen, b.Snapshot().State)

	b.Reset()
	assert.Equal(t, model.CircuitClosed, b.Snapshot().State)
	assert.True(t, b.CanAttempt())
}

func TestBreakerGroupOnePerProvider(t *testing.T) {
	c := &conf.Resilience{
		Breaker: &conf.Resilience_Breaker{
			FailureThreshold: 2,
			RecoveryTimeout:  durationpb.New(time.Minute),
		},
	}
	g := NewBreakerGroup(c, nil, log.NewStdLogger(os.Stdout))

	a := g.For("alpha")
	assert.Same(t, a, g.For("alpha"))
	assert.NotSame(t, a, g.For("beta"))

	a.RecordFailure()
	a.RecordFailure()
	assert.Equal(t, model.CircuitOpen, a.Snapshot().State)
	assert.Equal(t, model.CircuitClosed, g.For("beta").Snapshot().State)
}
