package model

import "time"

// Capability is a property a model must satisfy to be eligible for a request.
type Capability string

const (
	CapabilityText      Capability = "text"
	CapabilityVision    Capability = "vision"
	CapabilityReasoning Capability = "reasoning"
	CapabilityMedical   Capability = "medical"
)

// ProviderConfig describes one upstream provider. Immutable after load;
// runtime counters live in the tracker and breaker, not here.
type ProviderConfig struct {
	Name     string `mapstructure:"name" json:"name"`
	Priority int    `mapstructure:"priority" json:"priority"` // lower = preferred

	// Provider-level admission limits.
	RequestsPerMinute int `mapstructure:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerDay    int `mapstructure:"requests_per_day" json:"requests_per_day"`
	Burst             int `mapstructure:"burst" json:"burst"`

	// Cooldown applied when the provider is explicitly rate limited and the
	// upstream gave no retry-after hint.
	Cooldown time.Duration `mapstructure:"cooldown" json:"cooldown"`

	// BaseURL is the OpenAI-compatible endpoint root used by the default
	// upstream client. Vendor-specific clients may ignore it.
	BaseURL string `mapstructure:"base_url" json:"base_url,omitempty"`

	// APIKeyEnv names the environment variable holding this provider's key.
	// The key itself never appears in config or logs.
	APIKeyEnv string `mapstructure:"api_key_env" json:"-"`

	// ProbeURL is the endpoint the health monitor exercises. Empty falls back
	// to a minimal generation call through the upstream client.
	ProbeURL string `mapstructure:"probe_url" json:"probe_url,omitempty"`

	Models []*ModelConfig `mapstructure:"models" json:"models"`
}

// ModelConfig describes one model exposed by a provider.
type ModelConfig struct {
	ID            string       `mapstructure:"id" json:"id"`
	Provider      string       `mapstructure:"-" json:"provider"`
	ContextLength int          `mapstructure:"context_length" json:"context_length"`
	Capabilities  []Capability `mapstructure:"capabilities" json:"capabilities"`
	Priority      int          `mapstructure:"priority" json:"priority"`

	// Per-model limits; zero means "inherit the provider limit".
	RequestsPerMinute int `mapstructure:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerDay    int `mapstructure:"requests_per_day" json:"requests_per_day"`
}

// HasCapability reports whether the model declares the given capability.
func (m *ModelConfig) HasCapability(c Capability) bool {
	for _, have := range m.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// Candidate is one (provider, model) pair in fallback order.
type Candidate struct {
	Provider *ProviderConfig
	Model    *ModelConfig
}

// Key returns the tracker key for this candidate.
func (c Candidate) Key() string {
	return c.Provider.Name + "/" + c.Model.ID
}
