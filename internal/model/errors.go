package model

import "time"

// ErrorKind is the closed taxonomy of upstream failure categories.
type ErrorKind string

const (
	ErrorKindRateLimit       ErrorKind = "RATE_LIMIT"
	ErrorKindQuotaExceeded   ErrorKind = "QUOTA_EXCEEDED"
	ErrorKindAuthentication  ErrorKind = "AUTHENTICATION"
	ErrorKindAuthorization   ErrorKind = "AUTHORIZATION"
	ErrorKindNotFound        ErrorKind = "NOT_FOUND"
	ErrorKindServerError     ErrorKind = "SERVER_ERROR"
	ErrorKindNetworkError    ErrorKind = "NETWORK_ERROR"
	ErrorKindTimeout         ErrorKind = "TIMEOUT"
	ErrorKindPaymentRequired ErrorKind = "PAYMENT_REQUIRED"
	ErrorKindInvalidRequest  ErrorKind = "INVALID_REQUEST"
	ErrorKindUnknown         ErrorKind = "UNKNOWN"
)

// Severity ranks how alarming a classified failure is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// RecoveryPolicy is the fixed response strategy for one error kind.
type RecoveryPolicy struct {
	// Retryable means the same provider may be retried after backoff.
	Retryable bool
	// SwitchProvider means fallback to the next candidate is worthwhile.
	SwitchProvider bool
	// SwitchCredential means the same provider must not be retried with the
	// same credential (auth/payment failures).
	SwitchCredential bool
	Severity         Severity
	BackoffBase      time.Duration
	BackoffMax       time.Duration
}

// Classification is the classifier's verdict for one raw error.
type Classification struct {
	Kind   ErrorKind
	Policy RecoveryPolicy
	// RetryAfter is the explicit "retry after N seconds" hint parsed from the
	// error text; zero when absent. When present it overrides computed backoff.
	RetryAfter time.Duration
	// DailyLimit is set when the text indicates a per-day rather than
	// per-minute limit, implying a 24h reset window.
	DailyLimit bool
}

// ErrorRecord is one classified failure retained in the bounded history.
type ErrorRecord struct {
	Time      time.Time `json:"time"`
	Kind      ErrorKind `json:"kind"`
	Severity  Severity  `json:"severity"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	RequestID string    `json:"request_id"`
	Message   string    `json:"message"`
}
