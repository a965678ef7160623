package model

import "time"

// CircuitBreakerState enumerates the breaker state machine positions.
type CircuitBreakerState string

const (
	CircuitClosed   CircuitBreakerState = "CLOSED"
	CircuitOpen     CircuitBreakerState = "OPEN"
	CircuitHalfOpen CircuitBreakerState = "HALF_OPEN"
)

// CircuitSnapshot is a read-only view of one provider's breaker.
type CircuitSnapshot struct {
	State           CircuitBreakerState `json:"state"`
	FailureCount    int                 `json:"failure_count"`
	LastFailureTime time.Time           `json:"last_failure_time,omitzero"`
	LastSuccessTime time.Time           `json:"last_success_time,omitzero"`
}

// ModelSnapshot is a read-only view of one model's tracker state.
type ModelSnapshot struct {
	Model            string    `json:"model"`
	MinuteCount      int       `json:"minute_count"`
	DayCount         int       `json:"day_count"`
	RateLimitedUntil time.Time `json:"rate_limited_until,omitzero"`
	Successes        int64     `json:"successes"`
	Failures         int64     `json:"failures"`
}

// ProviderSnapshot aggregates everything the ops endpoint reports about one
// provider: limits, window counts, breaker, backoff and recent error counts.
type ProviderSnapshot struct {
	Provider          string            `json:"provider"`
	Priority          int               `json:"priority"`
	RequestsPerMinute int               `json:"requests_per_minute"`
	RequestsPerDay    int               `json:"requests_per_day"`
	Health            HealthState       `json:"health"`
	Circuit           CircuitSnapshot   `json:"circuit"`
	BackoffAttempts   int               `json:"backoff_attempts"`
	Models            []ModelSnapshot   `json:"models"`
	ErrorCounts       map[ErrorKind]int `json:"error_counts,omitempty"`
}
