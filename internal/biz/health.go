package biz

import (
	"context"
	"sync"
	"time"

	"InferGate/internal/conf"
	"InferGate/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// HealthMonitor periodically exercises each provider with a minimal probe
// through the provider client and tracks healthy/degraded/unhealthy status.
// The probe loop runs off the request path (cron-driven) and never blocks it.
type HealthMonitor struct {
	mu       sync.Mutex
	statuses map[string]*model.ProviderHealth

	registry *Registry
	client   ProviderClient

	probeTimeout     time.Duration
	recheckAfter     time.Duration
	failureThreshold int

	now    func() time.Time
	logger *log.Helper
}

// NewHealthMonitor creates a monitor with every provider in unknown state.
func NewHealthMonitor(registry *Registry, client ProviderClient, c *conf.Resilience, logger log.Logger) *HealthMonitor {
	m := &HealthMonitor{
		statuses:         make(map[string]*model.ProviderHealth),
		registry:         registry,
		client:           client,
		probeTimeout:     10 * time.Second,
		recheckAfter:     5 * time.Minute,
		failureThreshold: 3,
		now:              time.Now,
		logger:           log.NewHelper(logger),
	}
	if c != nil && c.Health != nil {
		if c.Health.ProbeTimeout != nil && c.Health.ProbeTimeout.AsDuration() > 0 {
			m.probeTimeout = c.Health.ProbeTimeout.AsDuration()
		}
		if c.Health.RecheckAfter != nil && c.Health.RecheckAfter.AsDuration() > 0 {
			m.recheckAfter = c.Health.RecheckAfter.AsDuration()
		}
		if c.Health.FailureThreshold > 0 {
			m.failureThreshold = int(c.Health.FailureThreshold)
		}
	}
	for _, p := range registry.Providers() {
		m.statuses[p.Name] = &model.ProviderHealth{
			Provider: p.Name,
			State:    model.HealthUnknown,
		}
	}
	return m
}

// SetNow overrides the monitor's clock. Test hook.
func (m *HealthMonitor) SetNow(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// CheckAll probes every provider whose last check is older than the recheck
// interval. Called periodically by the cron loop.
func (m *HealthMonitor) CheckAll(ctx context.Context) {
	for _, p := range m.registry.Providers() {
		if !m.due(p.Name) {
			continue
		}
		m.Check(ctx, p)
	}
}

func (m *HealthMonitor) due(provider string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.statuses[provider]
	if !ok {
		return true
	}
	return st.LastChecked.IsZero() || m.now().Sub(st.LastChecked) >= m.recheckAfter
}

// Check issues one minimal probe against the provider under a bounded timeout
// and updates its status. Success marks healthy and resets the failure count;
// at the failure threshold the provider is marked unhealthy, below it
// degraded. Returns true on probe success.
func (m *HealthMonitor) Check(ctx context.Context, p *model.ProviderConfig) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()

	err := m.client.Probe(probeCtx, p)

	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.statuses[p.Name]
	if !ok {
		st = &model.ProviderHealth{Provider: p.Name}
		m.statuses[p.Name] = st
	}
	st.LastChecked = m.now()

	if err != nil {
		st.ConsecutiveFailures++
		st.LastError = err.Error()
		if st.ConsecutiveFailures >= m.failureThreshold {
			st.State = model.HealthUnhealthy
		} else {
			st.State = model.HealthDegraded
		}
		m.logger.Warnw("msg", "health probe failed",
			"provider", p.Name,
			"state", string(st.State),
			"consecutive_failures", st.ConsecutiveFailures,
			"error", err.Error())
		return false
	}

	st.ConsecutiveFailures = 0
	st.LastError = ""
	st.State = model.HealthHealthy
	m.logger.Debugw("msg", "health probe ok", "provider", p.Name)
	return true
}

// State returns the current health verdict for one provider.
func (m *HealthMonitor) State(provider string) model.HealthState {
	m.mu.Lock()
	defer m.mu.Unlock()

	if st, ok := m.statuses[provider]; ok {
		return st.State
	}
	return model.HealthUnknown
}

// GetHealthyProvider returns the first provider in the given order whose
// status is healthy, falling back to the first degraded (or unknown, which
// has simply not been probed yet) provider when no healthy one exists. The
// second return is false when every provider is unhealthy.
func (m *HealthMonitor) GetHealthyProvider(order []string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fallback := ""
	for _, name := range order {
		st, ok := m.statuses[name]
		if !ok {
			continue
		}
		switch st.State {
		case model.HealthHealthy:
			return name, true
		case model.HealthDegraded, model.HealthUnknown:
			if fallback == "" {
				fallback = name
			}
		}
	}
	if fallback != "" {
		return fallback, true
	}
	return "", false
}

// StatusReport returns the per-provider health summary in registry order.
func (m *HealthMonitor) StatusReport() []model.ProviderHealth {
	m.mu.Lock()
	defer m.mu.Unlock()

	report := make([]model.ProviderHealth, 0, len(m.statuses))
	for _, p := range m.registry.Providers() {
		if st, ok := m.statuses[p.Name]; ok {
			report = append(report, *st)
		}
	}
	return report
}

// ResetProvider clears the provider's probe state back to unknown.
// Administrative override.
func (m *HealthMonitor) ResetProvider(provider string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if st, ok := m.statuses[provider]; ok {
		st.State = model.HealthUnknown
		st.ConsecutiveFailures = 0
		st.LastError = ""
	}
}
