// Package conf provides configuration management using Viper.
// It supports loading configuration from YAML files and environment variables,
// with CLI flag overrides, plus the declarative provider/model catalogue.
package conf

import (
	"google.golang.org/protobuf/types/known/durationpb"
)

// Bootstrap is the root configuration for the InferGate service.
type Bootstrap struct {
	Server     *Server
	Data       *Data
	Resilience *Resilience
	Log        *Log
	// ProviderCatalog is the path to the providers.yaml catalogue.
	ProviderCatalog string
}

// Server holds transport configuration.
type Server struct {
	Http *Server_HTTP
}

// Server_HTTP configures the kratos HTTP server.
type Server_HTTP struct {
	Network string
	Addr    string
	Timeout *durationpb.Duration
}

// Data holds data-layer configuration.
type Data struct {
	Database *Data_Database
	Redis    *Data_Redis
	Cache    *Data_Cache
}

// Data_Database configures the MySQL connection for the failure audit trail.
// An empty Source disables persistence (audit degrades to log-only).
type Data_Database struct {
	Driver string
	Source string
}

// Data_Redis configures the optional Redis connection.
type Data_Redis struct {
	Network      string
	Addr         string
	ReadTimeout  *durationpb.Duration
	WriteTimeout *durationpb.Duration
}

// Data_Cache configures the response cache.
type Data_Cache struct {
	// Backend selects "memory" (expirable LRU) or "redis".
	Backend  string
	Ttl      *durationpb.Duration
	Capacity int32
	// MaxParamBytes truncates each cache-key parameter to this many bytes
	// before hashing. 0 hashes full values. See cache.BuildKey.
	MaxParamBytes int32
}

// Resilience holds the tunables of the fallback machinery.
type Resilience struct {
	Breaker *Resilience_Breaker
	Backoff *Resilience_Backoff
	Health  *Resilience_Health
	Request *Resilience_Request
	// HistorySize bounds the in-memory classified-failure ring buffer.
	HistorySize int32
}

// Resilience_Breaker configures the per-provider circuit breaker.
type Resilience_Breaker struct {
	FailureThreshold int32
	RecoveryTimeout  *durationpb.Duration
}

// Resilience_Backoff configures the per-provider exponential backoff.
type Resilience_Backoff struct {
	Base       *durationpb.Duration
	Multiplier float64
	Max        *durationpb.Duration
	// Jitter is the +/- fraction applied to each delay; 0 disables jitter.
	Jitter float64
}

// Resilience_Health configures the background health monitor.
type Resilience_Health struct {
	// Interval is how often the monitor wakes up.
	Interval *durationpb.Duration
	// RecheckAfter is the minimum age of a provider's last check before it
	// is probed again.
	RecheckAfter *durationpb.Duration
	ProbeTimeout *durationpb.Duration
	// FailureThreshold marks a provider unhealthy after this many
	// consecutive probe failures; below it the provider is degraded.
	FailureThreshold int32
}

// Resilience_Request bounds individual fallback attempts.
type Resilience_Request struct {
	AttemptTimeout *durationpb.Duration
}

// Log configures the zap logger.
type Log struct {
	Level      string
	Format     string
	Env        string
	OutputFile string
}
