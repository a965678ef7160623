// Package biz contains the resilience business logic: provider registry,
// admission control, circuit breaking, backoff, error classification, health
// probing and the fallback orchestrator.
package biz

import (
	"InferGate/internal/data"

	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewRegistry,
	NewRateLimitTracker,
	NewBreakerGroup,
	NewBackoffGroup,
	NewClassifier,
	NewErrorHistory,
	NewHealthMonitor,
	NewOrchestrator,
	// Bind data layer implementations to biz layer interfaces
	wire.Bind(new(ResponseCache), new(*data.ResponseCache)),
	wire.Bind(new(FailureAuditor), new(*data.FailureAuditor)),
	wire.Bind(new(ProviderClient), new(*data.UpstreamClient)),
)
