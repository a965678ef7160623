package conf

import (
	"fmt"

	"InferGate/internal/model"

	"github.com/spf13/viper"
)

// LoadCatalog reads the declarative provider/model catalogue from the given
// YAML file and returns the immutable provider configs in load order.
//
// Validation performed here so the rest of the system can trust the catalogue:
// provider names are unique and non-empty, every provider exposes at least one
// model, model IDs are unique within their provider. Each model's Provider
// back-reference is filled in, and zero per-model limits inherit the provider
// limits at read time (not here), keeping the structs read-mostly.
func LoadCatalog(path string) ([]*model.ProviderConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read provider catalogue %s: %w", path, err)
	}

	var catalog struct {
		Providers []*model.ProviderConfig `mapstructure:"providers"`
	}
	if err := v.Unmarshal(&catalog); err != nil {
		return nil, fmt.Errorf("failed to parse provider catalogue %s: %w", path, err)
	}

	if len(catalog.Providers) == 0 {
		return nil, fmt.Errorf("provider catalogue %s declares no providers", path)
	}

	seen := make(map[string]bool, len(catalog.Providers))
	for _, p := range catalog.Providers {
		if p.Name == "" {
			return nil, fmt.Errorf("provider catalogue %s: provider with empty name", path)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("provider catalogue %s: duplicate provider %q", path, p.Name)
		}
		seen[p.Name] = true

		if len(p.Models) == 0 {
			return nil, fmt.Errorf("provider catalogue %s: provider %q declares no models", path, p.Name)
		}

		modelSeen := make(map[string]bool, len(p.Models))
		for _, m := range p.Models {
			if m.ID == "" {
				return nil, fmt.Errorf("provider catalogue %s: provider %q has a model with empty id", path, p.Name)
			}
			if modelSeen[m.ID] {
				return nil, fmt.Errorf("provider catalogue %s: provider %q duplicates model %q", path, p.Name, m.ID)
			}
			modelSeen[m.ID] = true
			m.Provider = p.Name
		}
	}

	return catalog.Providers, nil
}
