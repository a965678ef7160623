package biz

import (
	"testing"
	"time"

	"InferGate/internal/conf"

	"github.com/stretchr/testify/assert"
	"google.golang.org/protobuf/types/known/durationpb"
)

func TestBackoffDeterministicWithoutJitter(t *testing.T) {
	b := NewExponentialBackoff(time.Second, 2, 10*time.Second, 0)

	assert.Equal(t, time.Second, b.GetDelay())
	assert.Equal(t, 2*time.Second, b.GetDelay())
	assert.Equal(t, 4*time.Second, b.GetDelay())
	assert.Equal(t, 8*time.Second, b.GetDelay())
	// saturates at max
	assert.Equal(t, 10*time.Second, b.GetDelay())
	assert.Equal(t, 10*time.Second, b.GetDelay())
	assert.Equal(t, 6, b.Attempts())
}

func TestBackoffResetRestoresFirstDelay(t *testing.T) {
	b := NewExponentialBackoff(time.Second, 2, time.Minute, 0)

	_ = b.GetDelay()
	_ = b.GetDelay()
	_ = b.GetDelay()

	b.Reset()
	assert.Equal(t, 0, b.Attempts())
	assert.Equal(t, time.Second, b.GetDelay())
}

func TestBackoffJitterStaysInBand(t *testing.T) {
	b := NewExponentialBackoff(time.Second, 2, time.Minute, 0.25)
	b.Seed(42)

	for i := 0; i < 20; i++ {
		b.Reset()
		d := b.GetDelay()
		assert.GreaterOrEqual(t, d, 750*time.Millisecond)
		assert.LessOrEqual(t, d, 1250*time.Millisecond)
	}
}

func TestBackoffGroupPerProvider(t *testing.T) {
	g := NewBackoffGroup(&conf.Resilience{
		Backoff: &conf.Resilience_Backoff{
			Base:       durationpb.New(time.Second),
			Multiplier: 2,
			Max:        durationpb.New(time.Minute),
			Jitter:     0,
		},
	})

	a := g.For("alpha")
	assert.Same(t, a, g.For("alpha"))

	_ = a.GetDelay()
	assert.Equal(t, 1, a.Attempts())
	assert.Equal(t, 0, g.For("beta").Attempts())
}
