package model

import "time"

// HealthState is the coarse availability verdict for a provider.
type HealthState string

const (
	HealthUnknown   HealthState = "unknown"
	HealthHealthy   HealthState = "healthy"
	HealthDegraded  HealthState = "degraded"
	HealthUnhealthy HealthState = "unhealthy"
)

// ProviderHealth is a point-in-time snapshot of one provider's probe state,
// safe to serialize for the ops endpoint.
type ProviderHealth struct {
	Provider            string      `json:"provider"`
	State               HealthState `json:"state"`
	LastChecked         time.Time   `json:"last_checked"`
	ConsecutiveFailures int         `json:"consecutive_failures"`
	LastError           string      `json:"last_error,omitempty"`
}
