package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewBootstrapDefaults(t *testing.T) {
	bc, err := NewBootstrap("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", bc.Server.Http.Addr)
	assert.Equal(t, 5*time.Minute, bc.Server.Http.Timeout.AsDuration())

	assert.Equal(t, "memory", bc.Data.Cache.Backend)
	assert.Equal(t, 30*time.Minute, bc.Data.Cache.Ttl.AsDuration())
	assert.Equal(t, int32(1000), bc.Data.Cache.Capacity)
	assert.Equal(t, int32(256), bc.Data.Cache.MaxParamBytes)

	assert.Equal(t, int32(3), bc.Resilience.Breaker.FailureThreshold)
	assert.Equal(t, 5*time.Minute, bc.Resilience.Breaker.RecoveryTimeout.AsDuration())
	assert.Equal(t, time.Second, bc.Resilience.Backoff.Base.AsDuration())
	assert.Equal(t, 2.0, bc.Resilience.Backoff.Multiplier)
	assert.Equal(t, 60*time.Second, bc.Resilience.Backoff.Max.AsDuration())
	assert.Equal(t, 0.25, bc.Resilience.Backoff.Jitter)
	assert.Equal(t, 60*time.Second, bc.Resilience.Request.AttemptTimeout.AsDuration())
	assert.Equal(t, int32(1000), bc.Resilience.HistorySize)

	assert.Equal(t, "info", bc.Log.Level)
	assert.Equal(t, "json", bc.Log.Format)

	// audit trail is optional: empty DSN means log-only
	assert.Empty(t, bc.Data.Database.Source)
}

func TestNewBootstrapFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  http:
    addr: ":9100"
    timeout: 30s
data:
  cache:
    backend: redis
    ttl: 5m
resilience:
  breaker:
    failure_threshold: 7
provider_catalog: /etc/infergate/providers.yaml
`)

	bc, err := NewBootstrap(path)
	require.NoError(t, err)

	assert.Equal(t, ":9100", bc.Server.Http.Addr)
	assert.Equal(t, 30*time.Second, bc.Server.Http.Timeout.AsDuration())
	assert.Equal(t, "redis", bc.Data.Cache.Backend)
	assert.Equal(t, 5*time.Minute, bc.Data.Cache.Ttl.AsDuration())
	assert.Equal(t, int32(7), bc.Resilience.Breaker.FailureThreshold)
	assert.Equal(t, "/etc/infergate/providers.yaml", bc.ProviderCatalog)

	// untouched keys keep their defaults
	assert.Equal(t, 60*time.Second, bc.Resilience.Backoff.Max.AsDuration())
}

func TestNewBootstrapEnvOverrides(t *testing.T) {
	t.Setenv("INFERGATE_SERVER_HTTP_ADDR", ":7070")
	t.Setenv("MYSQL_DSN", "user:pass@tcp(localhost:3306)/infergate")
	t.Setenv("INFERGATE_DATA_REDIS_ADDR", "localhost:6379")
	t.Setenv("INFERGATE_PROVIDER_CATALOG", "/opt/catalog.yaml")

	bc, err := NewBootstrap("")
	require.NoError(t, err)

	assert.Equal(t, ":7070", bc.Server.Http.Addr)
	assert.Equal(t, "user:pass@tcp(localhost:3306)/infergate", bc.Data.Database.Source)
	assert.Equal(t, "localhost:6379", bc.Data.Redis.Addr)
	assert.Equal(t, "/opt/catalog.yaml", bc.ProviderCatalog)
}

func TestNewBootstrapMissingFile(t *testing.T) {
	_, err := NewBootstrap(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestNewBootstrapRejectsBadCacheBackend(t *testing.T) {
	path := writeConfig(t, `
data:
  cache:
    backend: memcached
`)
	_, err := NewBootstrap(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data.cache.backend")
}

func TestValidateMissingFields(t *testing.T) {
	err := Validate(&Bootstrap{
		Data: &Data{Cache: &Data_Cache{Backend: "memory"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider_catalog")
}
