package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"google.golang.org/protobuf/types/known/durationpb"
)

// NewBootstrap creates and initializes a Bootstrap configuration.
// It loads configuration from the specified config file path, applies defaults,
// and allows overrides from environment variables prefixed with INFERGATE_.
//
// Configuration priority: CLI flags > Environment variables > Config file > Defaults
//
// The MySQL DSN (MYSQL_DSN or INFERGATE_DATA_DATABASE_SOURCE) is optional:
// when absent the failure audit trail degrades to log-only.
func NewBootstrap(configPath string) (*Bootstrap, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("INFERGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Allow direct environment variable names (without INFERGATE_ prefix) for
	// deployment compatibility.
	_ = v.BindEnv("data.database.source", "MYSQL_DSN", "INFERGATE_DATA_DATABASE_SOURCE")
	_ = v.BindEnv("data.redis.addr", "INFERGATE_DATA_REDIS_ADDR")
	_ = v.BindEnv("provider_catalog", "INFERGATE_PROVIDER_CATALOG")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	bc := &Bootstrap{
		Server: &Server{
			Http: &Server_HTTP{
				Network: v.GetString("server.http.network"),
				Addr:    v.GetString("server.http.addr"),
				Timeout: durationpb.New(v.GetDuration("server.http.timeout")),
			},
		},
		Data: &Data{
			Database: &Data_Database{
				Driver: v.GetString("data.database.driver"),
				Source: v.GetString("data.database.source"),
			},
			Redis: &Data_Redis{
				Network:      v.GetString("data.redis.network"),
				Addr:         v.GetString("data.redis.addr"),
				ReadTimeout:  durationpb.New(v.GetDuration("data.redis.read_timeout")),
				WriteTimeout: durationpb.New(v.GetDuration("data.redis.write_timeout")),
			},
			Cache: &Data_Cache{
				Backend:       v.GetString("data.cache.backend"),
				Ttl:           durationpb.New(v.GetDuration("data.cache.ttl")),
				Capacity:      v.GetInt32("data.cache.capacity"),
				MaxParamBytes: v.GetInt32("data.cache.max_param_bytes"),
			},
		},
		Resilience: &Resilience{
			Breaker: &Resilience_Breaker{
				FailureThreshold: v.GetInt32("resilience.breaker.failure_threshold"),
				RecoveryTimeout:  durationpb.New(v.GetDuration("resilience.breaker.recovery_timeout")),
			},
			Backoff: &Resilience_Backoff{
				Base:       durationpb.New(v.GetDuration("resilience.backoff.base")),
				Multiplier: v.GetFloat64("resilience.backoff.multiplier"),
				Max:        durationpb.New(v.GetDuration("resilience.backoff.max")),
				Jitter:     v.GetFloat64("resilience.backoff.jitter"),
			},
			Health: &Resilience_Health{
				Interval:         durationpb.New(v.GetDuration("resilience.health.interval")),
				RecheckAfter:     durationpb.New(v.GetDuration("resilience.health.recheck_after")),
				ProbeTimeout:     durationpb.New(v.GetDuration("resilience.health.probe_timeout")),
				FailureThreshold: v.GetInt32("resilience.health.failure_threshold"),
			},
			Request: &Resilience_Request{
				AttemptTimeout: durationpb.New(v.GetDuration("resilience.request.attempt_timeout")),
			},
			HistorySize: v.GetInt32("resilience.history_size"),
		},
		Log: &Log{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Env:        v.GetString("log.env"),
			OutputFile: v.GetString("log.output_file"),
		},
		ProviderCatalog: v.GetString("provider_catalog"),
	}

	if err := Validate(bc); err != nil {
		return nil, err
	}

	return bc, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.http.network", "tcp")
	v.SetDefault("server.http.addr", ":8080")
	v.SetDefault("server.http.timeout", 5*time.Minute)

	// Data defaults
	v.SetDefault("data.database.driver", "mysql")
	// Note: data.database.source (MYSQL_DSN) is optional; audit degrades to log-only

	v.SetDefault("data.redis.network", "tcp")
	v.SetDefault("data.redis.addr", "")
	v.SetDefault("data.redis.read_timeout", 200*time.Millisecond)
	v.SetDefault("data.redis.write_timeout", 200*time.Millisecond)

	v.SetDefault("data.cache.backend", "memory")
	v.SetDefault("data.cache.ttl", 30*time.Minute)
	v.SetDefault("data.cache.capacity", 1000)
	v.SetDefault("data.cache.max_param_bytes", 256)

	// Resilience defaults
	v.SetDefault("resilience.breaker.failure_threshold", 3)
	v.SetDefault("resilience.breaker.recovery_timeout", 5*time.Minute)

	v.SetDefault("resilience.backoff.base", 1*time.Second)
	v.SetDefault("resilience.backoff.multiplier", 2.0)
	v.SetDefault("resilience.backoff.max", 60*time.Second)
	v.SetDefault("resilience.backoff.jitter", 0.25)

	v.SetDefault("resilience.health.interval", 60*time.Second)
	v.SetDefault("resilience.health.recheck_after", 5*time.Minute)
	v.SetDefault("resilience.health.probe_timeout", 10*time.Second)
	v.SetDefault("resilience.health.failure_threshold", 3)

	v.SetDefault("resilience.request.attempt_timeout", 60*time.Second)
	v.SetDefault("resilience.history_size", 1000)

	// Catalogue defaults
	v.SetDefault("provider_catalog", "../../configs/providers.yaml")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that all required configuration fields are present and valid.
// It returns an error listing all missing required fields.
func Validate(bc *Bootstrap) error {
	var missingFields []string

	if bc.ProviderCatalog == "" {
		missingFields = append(missingFields, "provider_catalog (INFERGATE_PROVIDER_CATALOG)")
	}

	if bc.Data == nil || bc.Data.Cache == nil || bc.Data.Cache.Backend == "" {
		missingFields = append(missingFields, "data.cache.backend")
	} else if b := bc.Data.Cache.Backend; b != "memory" && b != "redis" {
		return fmt.Errorf("invalid data.cache.backend %q: must be \"memory\" or \"redis\"", b)
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing required configuration fields: %s", strings.Join(missingFields, ", "))
	}

	return nil
}
