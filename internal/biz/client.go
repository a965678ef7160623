package biz

import (
	"context"

	"InferGate/internal/model"
)

// RequestFunc performs one upstream call against a candidate and returns the
// generated text. The concrete per-vendor clients live outside this layer;
// the orchestrator only needs this single call contract.
type RequestFunc func(ctx context.Context, c model.Candidate, params map[string]string) (string, error)

// ProviderClient is the opaque vendor-client collaborator: given a prompt,
// optional image payload and a model identifier, return generated text or
// fail. Probe issues one minimal test call for the health monitor.
type ProviderClient interface {
	Generate(ctx context.Context, c model.Candidate, prompt string, image []byte) (string, error)
	Probe(ctx context.Context, p *model.ProviderConfig) error
}
