package biz

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"InferGate/internal/model"
)

// Classifier maps raw upstream failure text to the closed error taxonomy and
// its fixed recovery policy. Classification is pattern-based: case-insensitive
// substring and regex matching against known phrasings per kind, checked in
// order of specificity; the first matching kind wins and unmatched text is
// UNKNOWN. The orchestrator never inspects raw error text itself.
type Classifier struct {
	rules    []classifierRule
	policies map[model.ErrorKind]model.RecoveryPolicy

	retryAfterPatterns []*regexp.Regexp
}

type classifierRule struct {
	kind       model.ErrorKind
	substrings []string
	patterns   []*regexp.Regexp
}

// statusPattern matches an HTTP status code standing alone in the text. Bare
// substring matching misreads ports and numeric ids ("dial tcp 127.0.0.1:4000"
// is not a 400), so a code must follow a delimiter and end at a word boundary.
func statusPattern(codes string) *regexp.Regexp {
	return regexp.MustCompile(`(^|[\s"'=,(\[])(` + codes + `)\b`)
}

// NewClassifier builds the classifier with the built-in pattern tables.
func NewClassifier() *Classifier {
	return &Classifier{
		// Quota must be checked before rate limit: quota exhaustion messages
		// often also carry a 429 status.
		rules: []classifierRule{
			{
				kind: model.ErrorKindQuotaExceeded,
				substrings: []string{
					"insufficient_quota", "quota exceeded", "exceeded your current quota",
					"quota_exceeded", "daily limit", "out of credits", "credit balance",
					"usage limit",
				},
				patterns: []*regexp.Regexp{
					regexp.MustCompile(`(?i)quota.*(exceed|exhaust|reached)`),
				},
			},
			{
				kind: model.ErrorKindRateLimit,
				substrings: []string{
					"rate limit", "rate_limit", "too many requests",
					"requests per minute", "throttl", "slow down",
				},
				patterns: []*regexp.Regexp{statusPattern("429")},
			},
			// Transport-level failures come before the status-code kinds:
			// dial and read errors carry addresses, ports and response
			// fragments whose digits must never be read as a status.
			{
				kind: model.ErrorKindTimeout,
				substrings: []string{
					"timeout", "timed out", "deadline exceeded",
				},
				patterns: []*regexp.Regexp{statusPattern("408")},
			},
			{
				kind: model.ErrorKindNetworkError,
				substrings: []string{
					"connection refused", "connection reset", "no such host",
					"network", "dns", "broken pipe", "unexpected eof",
					"connection closed", "connection broken",
				},
			},
			{
				kind: model.ErrorKindPaymentRequired,
				substrings: []string{
					"payment required", "billing", "payment method",
					"subscription expired",
				},
				patterns: []*regexp.Regexp{statusPattern("402")},
			},
			{
				kind: model.ErrorKindAuthentication,
				substrings: []string{
					"unauthorized", "invalid api key", "invalid_api_key",
					"incorrect api key", "authentication", "invalid x-api-key",
					"api key not valid", "token expired",
				},
				patterns: []*regexp.Regexp{statusPattern("401")},
			},
			{
				kind: model.ErrorKindAuthorization,
				substrings: []string{
					"forbidden", "permission denied", "not authorized",
					"access denied",
				},
				patterns: []*regexp.Regexp{statusPattern("403")},
			},
			{
				kind: model.ErrorKindNotFound,
				substrings: []string{
					"not found", "model_not_found", "no such model",
					"does not exist",
				},
				patterns: []*regexp.Regexp{statusPattern("404")},
			},
			{
				kind: model.ErrorKindInvalidRequest,
				substrings: []string{
					"invalid request", "invalid_request_error", "bad request",
					"malformed", "validation error", "unsupported parameter",
					"context length", "context_length_exceeded",
				},
				patterns: []*regexp.Regexp{statusPattern("400")},
			},
			{
				kind: model.ErrorKindServerError,
				substrings: []string{
					"internal server error", "bad gateway",
					"service unavailable", "overloaded",
					"server_error", "internal error",
				},
				patterns: []*regexp.Regexp{statusPattern("500|502|503|504")},
			},
		},
		policies: map[model.ErrorKind]model.RecoveryPolicy{
			model.ErrorKindRateLimit: {
				Retryable: true, SwitchProvider: true, SwitchCredential: true,
				Severity: model.SeverityMedium, BackoffBase: 2 * time.Second, BackoffMax: 60 * time.Second,
			},
			model.ErrorKindQuotaExceeded: {
				Retryable: false, SwitchProvider: true, SwitchCredential: true,
				Severity: model.SeverityHigh, BackoffBase: time.Minute, BackoffMax: 24 * time.Hour,
			},
			model.ErrorKindAuthentication: {
				Retryable: false, SwitchProvider: true, SwitchCredential: true,
				Severity: model.SeverityCritical, BackoffBase: 0, BackoffMax: 0,
			},
			model.ErrorKindAuthorization: {
				Retryable: false, SwitchProvider: true, SwitchCredential: true,
				Severity: model.SeverityCritical, BackoffBase: 0, BackoffMax: 0,
			},
			model.ErrorKindNotFound: {
				Retryable: false, SwitchProvider: true, SwitchCredential: false,
				Severity: model.SeverityMedium, BackoffBase: 0, BackoffMax: 0,
			},
			model.ErrorKindServerError: {
				Retryable: true, SwitchProvider: true, SwitchCredential: false,
				Severity: model.SeverityMedium, BackoffBase: 5 * time.Second, BackoffMax: 2 * time.Minute,
			},
			model.ErrorKindNetworkError: {
				Retryable: true, SwitchProvider: true, SwitchCredential: false,
				Severity: model.SeverityMedium, BackoffBase: 2 * time.Second, BackoffMax: 30 * time.Second,
			},
			model.ErrorKindTimeout: {
				Retryable: true, SwitchProvider: true, SwitchCredential: false,
				Severity: model.SeverityMedium, BackoffBase: 2 * time.Second, BackoffMax: 30 * time.Second,
			},
			model.ErrorKindPaymentRequired: {
				Retryable: false, SwitchProvider: true, SwitchCredential: true,
				Severity: model.SeverityCritical, BackoffBase: 0, BackoffMax: 0,
			},
			model.ErrorKindInvalidRequest: {
				// Caller error: must propagate unchanged rather than trigger fallback.
				Retryable: false, SwitchProvider: false, SwitchCredential: false,
				Severity: model.SeverityLow, BackoffBase: 0, BackoffMax: 0,
			},
			model.ErrorKindUnknown: {
				Retryable: true, SwitchProvider: true, SwitchCredential: false,
				Severity: model.SeverityMedium, BackoffBase: 5 * time.Second, BackoffMax: time.Minute,
			},
		},
		retryAfterPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)retry[-_ ]?after[:=\s]+(\d+)`),
			regexp.MustCompile(`(?i)retry in (\d+(?:\.\d+)?)\s*s`),
			regexp.MustCompile(`(?i)try again in (\d+(?:\.\d+)?)\s*s`),
			regexp.MustCompile(`(?i)please wait (\d+)\s*seconds`),
		},
	}
}

// Classify returns the taxonomy verdict for one raw error message.
func (c *Classifier) Classify(raw string) model.Classification {
	lower := strings.ToLower(raw)

	kind := model.ErrorKindUnknown
	for _, rule := range c.rules {
		if rule.matches(lower) {
			kind = rule.kind
			break
		}
	}

	return model.Classification{
		Kind:       kind,
		Policy:     c.policies[kind],
		RetryAfter: c.extractRetryAfter(raw),
		DailyLimit: strings.Contains(lower, "daily") || strings.Contains(lower, " day"),
	}
}

// Policy returns the fixed recovery policy for a kind.
func (c *Classifier) Policy(kind model.ErrorKind) model.RecoveryPolicy {
	return c.policies[kind]
}

func (r classifierRule) matches(lower string) bool {
	for _, s := range r.substrings {
		if strings.Contains(lower, s) {
			return true
		}
	}
	for _, p := range r.patterns {
		if p.MatchString(lower) {
			return true
		}
	}
	return false
}

// extractRetryAfter parses an explicit "retry after N seconds" hint from the
// error text. When present it overrides the computed backoff.
func (c *Classifier) extractRetryAfter(raw string) time.Duration {
	for _, p := range c.retryAfterPatterns {
		if m := p.FindStringSubmatch(raw); len(m) > 1 {
			if secs, err := strconv.ParseFloat(m[1], 64); err == nil && secs > 0 {
				return time.Duration(secs * float64(time.Second))
			}
		}
	}
	return 0
}
