package biz

import (
	"fmt"
	"sort"

	"InferGate/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// Registry is the static catalogue of providers and the models each exposes.
// It is loaded once at startup from the declarative providers.yaml and is
// read-only thereafter; runtime counters live in the tracker and breaker.
type Registry struct {
	providers []*model.ProviderConfig
	byName    map[string]*model.ProviderConfig
	logger    *log.Helper
}

// NewRegistry builds a registry from the loaded catalogue. Providers are kept
// sorted by priority rank (lower = preferred); load order breaks ties.
func NewRegistry(providers []*model.ProviderConfig, logger log.Logger) (*Registry, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("registry: no providers configured")
	}

	sorted := make([]*model.ProviderConfig, len(providers))
	copy(sorted, providers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	byName := make(map[string]*model.ProviderConfig, len(sorted))
	for _, p := range sorted {
		byName[p.Name] = p
	}

	r := &Registry{
		providers: sorted,
		byName:    byName,
		logger:    log.NewHelper(logger),
	}

	r.logger.Infow("msg", "provider registry loaded",
		"providers", len(sorted),
		"models", r.modelCount())

	return r, nil
}

func (r *Registry) modelCount() int {
	n := 0
	for _, p := range r.providers {
		n += len(p.Models)
	}
	return n
}

// RankCandidates returns every (provider, model) pair satisfying the given
// capability, ordered by provider priority then model priority. An empty
// capability matches all models.
func (r *Registry) RankCandidates(capability model.Capability) []model.Candidate {
	var candidates []model.Candidate
	for _, p := range r.providers {
		models := make([]*model.ModelConfig, 0, len(p.Models))
		for _, m := range p.Models {
			if capability == "" || m.HasCapability(capability) {
				models = append(models, m)
			}
		}
		sort.SliceStable(models, func(i, j int) bool {
			return models[i].Priority < models[j].Priority
		})
		for _, m := range models {
			candidates = append(candidates, model.Candidate{Provider: p, Model: m})
		}
	}
	return candidates
}

// Provider looks up a provider by name.
func (r *Registry) Provider(name string) (*model.ProviderConfig, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// Providers returns all providers in priority order.
func (r *Registry) Providers() []*model.ProviderConfig {
	return r.providers
}
