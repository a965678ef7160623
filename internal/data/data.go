// Package data provides data access layer implementations: the response
// cache backends, the Redis and MySQL clients, the failure audit trail and
// the default upstream provider client.
package data

import (
	"github.com/google/wire"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewRedisClient,
	NewMySQLClient,
	NewResponseCache,
	NewFailureAuditor,
	NewUpstreamClient,
)
