package biz

import (
	"fmt"

	"InferGate/internal/model"
)

// GetProviderStats returns the observability snapshot for every provider:
// limits, current window counts, breaker state, backoff attempt counter,
// health verdict and recent error counts.
func (o *Orchestrator) GetProviderStats() []model.ProviderSnapshot {
	providers := o.registry.Providers()
	snaps := make([]model.ProviderSnapshot, 0, len(providers))

	for _, p := range providers {
		health := model.HealthUnknown
		if o.health != nil {
			health = o.health.State(p.Name)
		}
		snaps = append(snaps, model.ProviderSnapshot{
			Provider:          p.Name,
			Priority:          p.Priority,
			RequestsPerMinute: p.RequestsPerMinute,
			RequestsPerDay:    p.RequestsPerDay,
			Health:            health,
			Circuit:           o.breakers.For(p.Name).Snapshot(),
			BackoffAttempts:   o.backoffs.For(p.Name).Attempts(),
			Models:            o.tracker.Snapshot(p),
			ErrorCounts:       o.history.CountsByProvider(p.Name),
		})
	}
	return snaps
}

// ResetProvider clears all runtime state for one provider: window counters,
// explicit limit stamps, breaker and backoff, and probe status.
// Administrative override.
func (o *Orchestrator) ResetProvider(name string) error {
	p, ok := o.registry.Provider(name)
	if !ok {
		return fmt.Errorf("unknown provider %q", name)
	}

	o.tracker.ResetProvider(p)
	o.breakers.For(p.Name).Reset()
	o.backoffs.For(p.Name).Reset()
	if o.health != nil {
		o.health.ResetProvider(p.Name)
	}
	o.logger.Infow("msg", "provider state reset", "provider", p.Name)
	return nil
}

// ResetAllProviders resets every provider in the registry.
func (o *Orchestrator) ResetAllProviders() {
	for _, p := range o.registry.Providers() {
		_ = o.ResetProvider(p.Name)
	}
}
