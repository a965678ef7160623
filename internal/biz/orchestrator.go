package biz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"InferGate/internal/conf"
	"InferGate/internal/metrics"
	"InferGate/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// AttemptError records one failed candidate attempt inside a fallback run.
type AttemptError struct {
	Provider string          `json:"provider"`
	Model    string          `json:"model"`
	Kind     model.ErrorKind `json:"kind"`
	Message  string          `json:"message"`
}

// FallbackError is the terminal failure returned when every candidate has
// been exhausted. It carries the per-candidate errors and a safe retry-after
// hint (the minimum of all candidates' reset windows, or a default).
type FallbackError struct {
	Operation string          `json:"operation"`
	RequestID string          `json:"request_id"`
	Attempts  []AttemptError  `json:"attempts"`
	Dominant  model.ErrorKind `json:"dominant_kind"`
	// SwitchCredential is true when the dominant kind requires a different
	// credential before the same provider may be used again.
	SwitchCredential bool          `json:"switch_credential"`
	RetryAfter       time.Duration `json:"retry_after"`
}

// Error implements the error interface.
func (e *FallbackError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s/%s: %s", a.Provider, a.Model, a.Kind))
	}
	return fmt.Sprintf("all candidates exhausted for %s (retry after %s): [%s]",
		e.Operation, e.RetryAfter, strings.Join(parts, ", "))
}

// defaultRetryAfter is the safe hint when no candidate reported a reset window.
const defaultRetryAfter = 60 * time.Second

// Orchestrator ties the resilience components together: given ranked
// candidates it applies admission control, circuit breaking, backoff,
// classification-driven fallback and response caching, and returns the first
// success or an aggregated terminal failure.
//
// It never calls a provider currently inside an OPEN circuit or over its
// admitted rate, except for exactly one HALF_OPEN probe per recovery window.
type Orchestrator struct {
	registry   *Registry
	tracker    *RateLimitTracker
	breakers   *BreakerGroup
	backoffs   *BackoffGroup
	classifier *Classifier
	history    *ErrorHistory
	health     *HealthMonitor
	cache      ResponseCache
	audit      FailureAuditor
	metrics    *metrics.Metrics

	attemptTimeout time.Duration
	logger         *log.Helper
}

// NewOrchestrator wires the orchestrator from its injected components.
func NewOrchestrator(
	registry *Registry,
	tracker *RateLimitTracker,
	breakers *BreakerGroup,
	backoffs *BackoffGroup,
	classifier *Classifier,
	history *ErrorHistory,
	health *HealthMonitor,
	cache ResponseCache,
	audit FailureAuditor,
	m *metrics.Metrics,
	c *conf.Resilience,
	logger log.Logger,
) *Orchestrator {
	attemptTimeout := 60 * time.Second
	if c != nil && c.Request != nil && c.Request.AttemptTimeout != nil && c.Request.AttemptTimeout.AsDuration() > 0 {
		attemptTimeout = c.Request.AttemptTimeout.AsDuration()
	}
	return &Orchestrator{
		registry:       registry,
		tracker:        tracker,
		breakers:       breakers,
		backoffs:       backoffs,
		classifier:     classifier,
		history:        history,
		health:         health,
		cache:          cache,
		audit:          audit,
		metrics:        m,
		attemptTimeout: attemptTimeout,
		logger:         log.NewHelper(logger),
	}
}

// ExecuteWithFallback attempts the candidates in order until one succeeds.
//
// A fresh cache hit for (operation, params) returns immediately; this is the
// only synchronous short-circuit. Each candidate is skipped when admission or
// the breaker denies it, waits out the provider's backoff delay when its
// attempt counter is nonzero, and runs under a bounded per-attempt timeout so
// one slow provider cannot stall the run past the caller's budget. Failures
// are classified, recorded in breaker/history/audit, and drive either an
// explicit rate-limit stamp, an immediate INVALID_REQUEST propagation, or
// fallback to the next candidate.
func (o *Orchestrator) ExecuteWithFallback(
	ctx context.Context,
	operation string,
	candidates []model.Candidate,
	fn RequestFunc,
	params map[string]string,
) (string, error) {
	requestID := uuid.NewString()

	if payload, ok := o.cache.Get(ctx, operation, params); ok {
		o.metrics.CacheHits.Inc()
		o.logger.Debugw("msg", "cache hit", "operation", operation, "request_id", requestID)
		return payload, nil
	}
	o.metrics.CacheMisses.Inc()

	var attempts []AttemptError
	// Providers struck by an auth/payment failure are never retried with the
	// same credential within this run.
	fatal := make(map[string]bool)

	for i, c := range candidates {
		if ctx.Err() != nil {
			break
		}

		pname := c.Provider.Name
		if fatal[pname] {
			continue
		}
		if o.health != nil && o.health.State(pname) == model.HealthUnhealthy {
			o.logger.Debugw("msg", "skipping unhealthy provider",
				"provider", pname, "request_id", requestID)
			continue
		}
		// The breaker gate runs before admission: Admit consumes a burst
		// token, and a provider the breaker refuses must not drain burst
		// capacity it never got to use.
		breaker := o.breakers.For(pname)
		if !breaker.CanAttempt() {
			o.metrics.Attempts.WithLabelValues(pname, "circuit_open").Inc()
			o.logger.Debugw("msg", "circuit open",
				"provider", pname, "request_id", requestID)
			continue
		}
		if !o.tracker.Admit(c) {
			o.metrics.Attempts.WithLabelValues(pname, "denied").Inc()
			o.logger.Debugw("msg", "admission denied",
				"provider", pname, "model", c.Model.ID, "request_id", requestID)
			continue
		}

		backoff := o.backoffs.For(pname)
		if backoff.Attempts() > 0 {
			delay := backoff.GetDelay()
			if err := sleepContext(ctx, delay); err != nil {
				// Caller budget exhausted while waiting; stop here.
				attempts = append(attempts, AttemptError{
					Provider: pname, Model: c.Model.ID,
					Kind: model.ErrorKindTimeout, Message: err.Error(),
				})
				break
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, o.attemptTimeout)
		result, err := fn(attemptCtx, c, params)
		cancel()

		if err == nil {
			o.tracker.Record(c)
			o.tracker.RecordSuccess(c)
			breaker.RecordSuccess()
			backoff.Reset()
			o.cache.Put(ctx, operation, params, result)
			o.metrics.Attempts.WithLabelValues(pname, "success").Inc()
			o.logger.Infow("msg", "request served",
				"operation", operation,
				"provider", pname,
				"model", c.Model.ID,
				"request_id", requestID)
			return result, nil
		}

		cls := o.classifier.Classify(err.Error())
		o.tracker.RecordFailure(c)
		breaker.RecordFailure()
		o.metrics.Attempts.WithLabelValues(pname, string(cls.Kind)).Inc()

		rec := model.ErrorRecord{
			Time:      time.Now(),
			Kind:      cls.Kind,
			Severity:  cls.Policy.Severity,
			Provider:  pname,
			Model:     c.Model.ID,
			RequestID: requestID,
			Message:   err.Error(),
		}
		o.history.Add(rec)
		if o.audit != nil {
			o.audit.RecordFailure(&rec)
		}

		o.logger.Warnw("msg", "candidate attempt failed",
			"operation", operation,
			"provider", pname,
			"model", c.Model.ID,
			"kind", string(cls.Kind),
			"request_id", requestID,
			"error", err.Error())

		// Caller error: propagate unchanged, retrying a malformed request
		// against every provider wastes quota and hides a bug.
		if cls.Kind == model.ErrorKindInvalidRequest {
			return "", err
		}

		if cls.Kind == model.ErrorKindRateLimit || cls.Kind == model.ErrorKindQuotaExceeded {
			o.tracker.MarkLimited(c, resetWindow(cls, c.Provider))
		}
		if cls.Policy.SwitchCredential {
			fatal[pname] = true
		}

		attempts = append(attempts, AttemptError{
			Provider: pname,
			Model:    c.Model.ID,
			Kind:     cls.Kind,
			Message:  err.Error(),
		})

		// Advance the provider's backoff; an explicit retry-after hint
		// overrides the computed delay. The wait only blocks this run when
		// the next candidate reuses the same provider, otherwise it merely
		// paces later runs via the attempt counter.
		if cls.Policy.Retryable {
			delay := backoff.GetDelay()
			if cls.RetryAfter > 0 {
				delay = cls.RetryAfter
			}
			if i+1 < len(candidates) && candidates[i+1].Provider.Name == pname {
				if err := sleepContext(ctx, delay); err != nil {
					break
				}
			}
		}
	}

	ferr := o.terminalError(operation, requestID, candidates, attempts)
	o.metrics.FallbackExhausted.Inc()
	o.logger.Errorw("msg", "all candidates exhausted",
		"operation", operation,
		"request_id", requestID,
		"attempts", len(attempts),
		"dominant", string(ferr.Dominant),
		"retry_after", ferr.RetryAfter.String())
	return "", ferr
}

// resetWindow decides how long a rate-limited candidate stays blocked: an
// explicit retry-after hint wins, "daily"/"day" phrasing implies a 24h reset,
// otherwise the provider cooldown (default one minute).
func resetWindow(cls model.Classification, p *model.ProviderConfig) time.Duration {
	if cls.RetryAfter > 0 {
		return cls.RetryAfter
	}
	if cls.DailyLimit {
		return dayWindow
	}
	if p.Cooldown > 0 {
		return p.Cooldown
	}
	return minuteWindow
}

// terminalError aggregates the per-candidate failures into the structured
// terminal error, with the dominant kind and the minimum reset window.
func (o *Orchestrator) terminalError(operation, requestID string, candidates []model.Candidate, attempts []AttemptError) *FallbackError {
	counts := make(map[model.ErrorKind]int)
	for _, a := range attempts {
		counts[a.Kind]++
	}
	dominant := model.ErrorKindUnknown
	best := 0
	for kind, n := range counts {
		if n > best {
			dominant, best = kind, n
		}
	}

	retryAfter := time.Duration(0)
	for _, c := range candidates {
		if until := o.tracker.ResetUntil(c); until > 0 {
			if retryAfter == 0 || until < retryAfter {
				retryAfter = until
			}
		}
	}
	if retryAfter == 0 {
		retryAfter = defaultRetryAfter
	}

	return &FallbackError{
		Operation:        operation,
		RequestID:        requestID,
		Attempts:         attempts,
		Dominant:         dominant,
		SwitchCredential: o.classifier.Policy(dominant).SwitchCredential,
		RetryAfter:       retryAfter,
	}
}

// sleepContext waits out the delay unless the context expires first.
func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
