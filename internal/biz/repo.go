package biz

import (
	"context"
	"time"

	"InferGate/internal/model"
)

// ResponseCache avoids repeating identical, expensive upstream calls. Keys
// are derived from the operation name and a normalized/truncated parameter
// representation; the cached payload is provider-agnostic text.
// Implementations live in the data layer (in-memory LRU or Redis).
type ResponseCache interface {
	Get(ctx context.Context, operation string, params map[string]string) (string, bool)
	Put(ctx context.Context, operation string, params map[string]string, payload string)
}

// FailureAuditor persists classified failures for offline analysis. Writes
// are asynchronous and best-effort; a nil database degrades to log-only.
type FailureAuditor interface {
	RecordFailure(rec *model.ErrorRecord)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
