package data

import (
	"context"
	"os"
	"testing"
	"time"

	"InferGate/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditorLogOnlyWithoutDB(t *testing.T) {
	a := NewFailureAuditor(nil, log.NewStdLogger(os.Stdout))

	// nil DB: records are logged, never queued, and nothing blocks
	a.RecordFailure(&model.ErrorRecord{
		Time:     time.Now(),
		Kind:     model.ErrorKindRateLimit,
		Provider: "alpha",
		Model:    "a-1",
		Message:  "429 Too Many Requests",
	})
	assert.Len(t, a.logChan, 0)

	deleted, err := a.PurgeOlderThan(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestProviderFailureTableName(t *testing.T) {
	assert.Equal(t, "provider_failures", ProviderFailure{}.TableName())
}
