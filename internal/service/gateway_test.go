package service

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"InferGate/internal/biz"
	"InferGate/internal/conf"
	"InferGate/internal/data"
	"InferGate/internal/metrics"
	"InferGate/internal/model"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/durationpb"
)

// scriptedClient is a minimal ProviderClient whose Generate is supplied per test.
type scriptedClient struct {
	generate func(c model.Candidate, prompt string, image []byte) (string, error)
}

func (s *scriptedClient) Generate(_ context.Context, c model.Candidate, prompt string, image []byte) (string, error) {
	return s.generate(c, prompt, image)
}

func (s *scriptedClient) Probe(context.Context, *model.ProviderConfig) error {
	return nil
}

func newTestGateway(t *testing.T, client biz.ProviderClient) *GatewayService {
	t.Helper()
	logger := log.NewStdLogger(os.Stdout)

	alpha := &model.ProviderConfig{Name: "alpha", Priority: 1}
	alpha.Models = []*model.ModelConfig{
		{ID: "a-text", Provider: "alpha", Capabilities: []model.Capability{model.CapabilityText}},
	}

	registry, err := biz.NewRegistry([]*model.ProviderConfig{alpha}, logger)
	require.NoError(t, err)

	rc := &conf.Resilience{
		Breaker: &conf.Resilience_Breaker{FailureThreshold: 3, RecoveryTimeout: durationpb.New(time.Minute)},
		Backoff: &conf.Resilience_Backoff{Base: durationpb.New(time.Millisecond), Multiplier: 2, Max: durationpb.New(5 * time.Millisecond)},
		Health:  &conf.Resilience_Health{ProbeTimeout: durationpb.New(time.Second), FailureThreshold: 3},
		Request: &conf.Resilience_Request{AttemptTimeout: durationpb.New(time.Second)},
	}

	m := metrics.New(prometheus.NewRegistry())
	cache := data.NewResponseCache(&conf.Data{Cache: &conf.Data_Cache{Backend: "memory"}}, nil, logger)
	auditor := data.NewFailureAuditor(nil, logger)

	tracker := biz.NewRateLimitTracker(logger)
	breakers := biz.NewBreakerGroup(rc, m, logger)
	backoffs := biz.NewBackoffGroup(rc)
	health := biz.NewHealthMonitor(registry, client, rc, logger)
	orch := biz.NewOrchestrator(registry, tracker, breakers, backoffs,
		biz.NewClassifier(), biz.NewErrorHistory(rc), health, cache, auditor, m, rc, logger)

	return NewGatewayService(orch, registry, health, client, logger)
}

func TestInferServesResult(t *testing.T) {
	client := &scriptedClient{
		generate: func(_ model.Candidate, prompt string, _ []byte) (string, error) {
			return "echo: " + prompt, nil
		},
	}
	gw := newTestGateway(t, client)

	resp, err := gw.Infer(context.Background(), &InferenceRequest{Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", resp.Result)
}

func TestInferValidatesRequest(t *testing.T) {
	gw := newTestGateway(t, &scriptedClient{})

	_, err := gw.Infer(context.Background(), &InferenceRequest{})
	require.Error(t, err)
	assert.Equal(t, "MISSING_PROMPT", kerrors.FromError(err).Reason)

	_, err = gw.Infer(context.Background(), &InferenceRequest{Prompt: "x", Capability: "vision"})
	require.Error(t, err)
	assert.Equal(t, "NO_CAPABLE_MODEL", kerrors.FromError(err).Reason)

	_, err = gw.Infer(context.Background(), &InferenceRequest{Prompt: "x", Image: "not-base64!!!"})
	require.Error(t, err)
	assert.Equal(t, "INVALID_IMAGE", kerrors.FromError(err).Reason)
}

func TestInferMapsExhaustionTo429(t *testing.T) {
	client := &scriptedClient{
		generate: func(model.Candidate, string, []byte) (string, error) {
			return "", errors.New("429 Too Many Requests")
		},
	}
	gw := newTestGateway(t, client)

	_, err := gw.Infer(context.Background(), &InferenceRequest{Prompt: "hello"})
	require.Error(t, err)

	ke := kerrors.FromError(err)
	assert.Equal(t, int32(429), ke.Code)
	assert.Equal(t, "ALL_PROVIDERS_RATE_LIMITED", ke.Reason)
	assert.Equal(t, string(model.ErrorKindRateLimit), ke.Metadata["dominant_kind"])
	assert.NotEmpty(t, ke.Metadata["retry_after"])
	assert.NotEmpty(t, ke.Metadata["request_id"])
}

func TestInferMapsCallerErrorTo400(t *testing.T) {
	client := &scriptedClient{
		generate: func(model.Candidate, string, []byte) (string, error) {
			return "", errors.New("400 invalid_request_error: bad payload")
		},
	}
	gw := newTestGateway(t, client)

	_, err := gw.Infer(context.Background(), &InferenceRequest{Prompt: "hello"})
	require.Error(t, err)

	ke := kerrors.FromError(err)
	assert.Equal(t, int32(400), ke.Code)
	assert.Equal(t, "INVALID_REQUEST", ke.Reason)
}
