// Package service exposes the gateway's HTTP surface: the generic inference
// entrypoint and the ops endpoints (stats, health, resets).
package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"InferGate/internal/biz"
	"InferGate/internal/model"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// GatewayService fronts the orchestrator for in-process callers and the ops
// HTTP endpoints.
type GatewayService struct {
	orch     *biz.Orchestrator
	registry *biz.Registry
	health   *biz.HealthMonitor
	client   biz.ProviderClient
	logger   *log.Helper
}

// NewGatewayService creates a new GatewayService instance.
func NewGatewayService(
	orch *biz.Orchestrator,
	registry *biz.Registry,
	health *biz.HealthMonitor,
	client biz.ProviderClient,
	logger log.Logger,
) *GatewayService {
	return &GatewayService{
		orch:     orch,
		registry: registry,
		health:   health,
		client:   client,
		logger:   log.NewHelper(logger),
	}
}

// InferenceRequest is the generic inference entrypoint payload.
type InferenceRequest struct {
	// Operation names the logical operation for cache keying, e.g.
	// "consultation.analyze". Defaults to "generate".
	Operation string `json:"operation"`
	// Capability filters candidates, e.g. "vision". Empty matches all models.
	Capability string `json:"capability"`
	Prompt     string `json:"prompt"`
	// Image is an optional base64-encoded image payload.
	Image string `json:"image,omitempty"`
}

// InferenceResponse carries the generated text.
type InferenceResponse struct {
	Result string `json:"result"`
}

// ResetResponse acknowledges an administrative reset.
type ResetResponse struct {
	Reset []string `json:"reset"`
}

// Infer runs one request through the fallback orchestrator.
func (s *GatewayService) Infer(ctx context.Context, req *InferenceRequest) (*InferenceResponse, error) {
	if req.Prompt == "" {
		return nil, kerrors.New(400, "MISSING_PROMPT", "prompt is required")
	}

	operation := req.Operation
	if operation == "" {
		operation = "generate"
	}

	capability := model.Capability(req.Capability)
	candidates := s.registry.RankCandidates(capability)
	if len(candidates) == 0 {
		return nil, kerrors.New(400, "NO_CAPABLE_MODEL",
			fmt.Sprintf("no model satisfies capability %q", req.Capability))
	}

	var image []byte
	if req.Image != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.Image)
		if err != nil {
			return nil, kerrors.New(400, "INVALID_IMAGE", "image is not valid base64")
		}
		image = decoded
	}

	params := map[string]string{
		"capability": req.Capability,
		"prompt":     req.Prompt,
	}
	if req.Image != "" {
		params["image"] = req.Image
	}

	fn := func(ctx context.Context, c model.Candidate, _ map[string]string) (string, error) {
		return s.client.Generate(ctx, c, req.Prompt, image)
	}

	result, err := s.orch.ExecuteWithFallback(ctx, operation, candidates, fn, params)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &InferenceResponse{Result: result}, nil
}

// mapError translates orchestrator failures to the service boundary. The
// aggregated terminal error becomes 429/503 with a Retry-After hint; anything
// else propagated unchanged by the orchestrator is a caller error.
func (s *GatewayService) mapError(err error) error {
	var ferr *biz.FallbackError
	if errors.As(err, &ferr) {
		code := 503
		reason := "ALL_PROVIDERS_EXHAUSTED"
		if ferr.Dominant == model.ErrorKindRateLimit || ferr.Dominant == model.ErrorKindQuotaExceeded {
			code = 429
			reason = "ALL_PROVIDERS_RATE_LIMITED"
		}
		return kerrors.New(code, reason, ferr.Error()).WithMetadata(map[string]string{
			"dominant_kind":     string(ferr.Dominant),
			"switch_credential": fmt.Sprintf("%t", ferr.SwitchCredential),
			"retry_after":       fmt.Sprintf("%.0f", ferr.RetryAfter.Seconds()),
			"request_id":        ferr.RequestID,
		})
	}
	return kerrors.New(400, "INVALID_REQUEST", err.Error())
}

// RegisterRoutes attaches the HTTP surface to the kratos server.
func (s *GatewayService) RegisterRoutes(srv *khttp.Server) {
	r := srv.Route("/v1")
	r.POST("/inference", s.handleInference)
	r.GET("/providers/stats", s.handleStats)
	r.GET("/providers/health", s.handleHealth)
	r.POST("/providers/reset", s.handleResetAll)
	r.POST("/providers/{name}/reset", s.handleResetProvider)
}

func (s *GatewayService) handleInference(ctx khttp.Context) error {
	var req InferenceRequest
	if err := ctx.Bind(&req); err != nil {
		return kerrors.New(400, "INVALID_BODY", err.Error())
	}

	resp, err := s.Infer(ctx, &req)
	if err != nil {
		return err
	}
	return ctx.Result(200, resp)
}

func (s *GatewayService) handleStats(ctx khttp.Context) error {
	return ctx.Result(200, s.orch.GetProviderStats())
}

func (s *GatewayService) handleHealth(ctx khttp.Context) error {
	return ctx.Result(200, s.health.StatusReport())
}

func (s *GatewayService) handleResetProvider(ctx khttp.Context) error {
	name := ctx.Vars().Get("name")
	if err := s.orch.ResetProvider(name); err != nil {
		return kerrors.New(404, "UNKNOWN_PROVIDER", err.Error())
	}
	s.logger.Infow("msg", "provider reset via ops endpoint", "provider", name)
	return ctx.Result(200, &ResetResponse{Reset: []string{name}})
}

func (s *GatewayService) handleResetAll(ctx khttp.Context) error {
	s.orch.ResetAllProviders()
	names := make([]string, 0)
	for _, p := range s.registry.Providers() {
		names = append(names, p.Name)
	}
	s.logger.Info("all providers reset via ops endpoint")
	return ctx.Result(200, &ResetResponse{Reset: names})
}
