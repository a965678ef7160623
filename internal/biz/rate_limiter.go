package biz

import (
	"sync"
	"time"

	"InferGate/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/time/rate"
)

const (
	minuteWindow = time.Minute
	dayWindow    = 24 * time.Hour
)

// RateLimitTracker maintains per provider/model sliding-window counters and
// decides instantaneous admission. All state is in-memory and guarded by a
// single mutex; concurrent requests touching the same provider serialize here.
type RateLimitTracker struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
	bursts  map[string]*rate.Limiter
	now     func() time.Time
	logger  *log.Helper
}

// windowEntry tracks completed requests for one (provider, model) pair.
type windowEntry struct {
	// stamps holds completion times within the trailing 24h, oldest first.
	stamps []time.Time
	// rateLimitedUntil short-circuits admission independent of the counters.
	rateLimitedUntil time.Time
	successes        int64
	failures         int64
}

// NewRateLimitTracker creates an empty tracker.
func NewRateLimitTracker(logger log.Logger) *RateLimitTracker {
	return &RateLimitTracker{
		entries: make(map[string]*windowEntry),
		bursts:  make(map[string]*rate.Limiter),
		now:     time.Now,
		logger:  log.NewHelper(logger),
	}
}

// SetNow overrides the tracker's clock. Test hook.
func (t *RateLimitTracker) SetNow(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

func (t *RateLimitTracker) entry(key string) *windowEntry {
	e, ok := t.entries[key]
	if !ok {
		e = &windowEntry{}
		t.entries[key] = e
	}
	return e
}

// prune drops stamps older than the 24h window. Caller holds the lock.
func (e *windowEntry) prune(now time.Time) {
	cutoff := now.Add(-dayWindow)
	i := 0
	for i < len(e.stamps) && !e.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		e.stamps = e.stamps[i:]
	}
}

// countSince returns how many stamps fall inside the trailing window ending
// at now. Caller holds the lock and has pruned.
func (e *windowEntry) countSince(now time.Time, window time.Duration) int {
	cutoff := now.Add(-window)
	// stamps are ordered; scan back from the newest.
	n := 0
	for i := len(e.stamps) - 1; i >= 0; i-- {
		if !e.stamps[i].After(cutoff) {
			break
		}
		n++
	}
	return n
}

// effectiveLimits resolves the per-model rpm/rpd, inheriting the provider
// limits when the model declares zero.
func effectiveLimits(c model.Candidate) (rpm, rpd int) {
	rpm = c.Model.RequestsPerMinute
	if rpm == 0 {
		rpm = c.Provider.RequestsPerMinute
	}
	rpd = c.Model.RequestsPerDay
	if rpd == 0 {
		rpd = c.Provider.RequestsPerDay
	}
	return rpm, rpd
}

// Admit reports whether the candidate may take one more request right now.
// It prunes the 24h window, honors an explicit rate_limited_until stamp, then
// compares the trailing 60s and 24h counts against the effective limits and
// finally consults the provider's burst bucket. Zero limits mean unlimited.
func (t *RateLimitTracker) Admit(c model.Candidate) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	e := t.entry(c.Key())
	e.prune(now)

	if now.Before(e.rateLimitedUntil) {
		return false
	}

	rpm, rpd := effectiveLimits(c)
	if rpm > 0 && e.countSince(now, minuteWindow) >= rpm {
		return false
	}
	if rpd > 0 && len(e.stamps) >= rpd {
		return false
	}

	if c.Provider.Burst > 0 {
		b, ok := t.bursts[c.Provider.Name]
		if !ok {
			perSecond := rate.Limit(float64(c.Provider.RequestsPerMinute) / 60.0)
			if c.Provider.RequestsPerMinute == 0 {
				perSecond = rate.Inf
			}
			b = rate.NewLimiter(perSecond, c.Provider.Burst)
			t.bursts[c.Provider.Name] = b
		}
		if !b.AllowN(now, 1) {
			t.logger.Debugw("msg", "burst limit reached",
				"provider", c.Provider.Name,
				"burst", c.Provider.Burst)
			return false
		}
	}

	return true
}

// Record registers one completed request for the candidate.
func (t *RateLimitTracker) Record(c model.Candidate) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	e := t.entry(c.Key())
	e.prune(now)
	e.stamps = append(e.stamps, now)
}

// MarkLimited sets an explicit reset stamp for the candidate, independent of
// the window counters. Used when the upstream explicitly reports retry-after
// or a daily quota exhaustion.
func (t *RateLimitTracker) MarkLimited(c model.Candidate, reset time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	until := t.now().Add(reset)
	e := t.entry(c.Key())
	if until.After(e.rateLimitedUntil) {
		e.rateLimitedUntil = until
	}

	t.logger.Warnw("msg", "candidate marked rate limited",
		"provider", c.Provider.Name,
		"model", c.Model.ID,
		"reset", reset.String(),
		"until", until.UTC().Format(time.RFC3339))
}

// RecordSuccess bumps the candidate's cumulative success counter.
func (t *RateLimitTracker) RecordSuccess(c model.Candidate) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entry(c.Key()).successes++
}

// RecordFailure bumps the candidate's cumulative failure counter.
func (t *RateLimitTracker) RecordFailure(c model.Candidate) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entry(c.Key()).failures++
}

// ResetUntil returns how long until the candidate's explicit limit stamp
// clears; zero when the candidate is not explicitly limited.
func (t *RateLimitTracker) ResetUntil(c model.Candidate) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	e := t.entry(c.Key())
	if e.rateLimitedUntil.After(now) {
		return e.rateLimitedUntil.Sub(now)
	}
	return 0
}

// Snapshot returns the tracker state for every model of the given provider.
func (t *RateLimitTracker) Snapshot(p *model.ProviderConfig) []model.ModelSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	snaps := make([]model.ModelSnapshot, 0, len(p.Models))
	for _, m := range p.Models {
		key := p.Name + "/" + m.ID
		e, ok := t.entries[key]
		if !ok {
			snaps = append(snaps, model.ModelSnapshot{Model: m.ID})
			continue
		}
		e.prune(now)
		snaps = append(snaps, model.ModelSnapshot{
			Model:            m.ID,
			MinuteCount:      e.countSince(now, minuteWindow),
			DayCount:         len(e.stamps),
			RateLimitedUntil: e.rateLimitedUntil,
			Successes:        e.successes,
			Failures:         e.failures,
		})
	}
	return snaps
}

// ResetProvider clears all window state for the provider's models.
// Administrative override.
func (t *RateLimitTracker) ResetProvider(p *model.ProviderConfig) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, m := range p.Models {
		delete(t.entries, p.Name+"/"+m.ID)
	}
	delete(t.bursts, p.Name)
	t.logger.Infow("msg", "rate limit state reset", "provider", p.Name)
}
