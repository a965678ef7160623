package data

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"InferGate/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// UpstreamClient is the default provider client: a minimal OpenAI-compatible
// chat-completions caller. It is deliberately thin; vendor-specific clients
// can replace it behind the same interface. Failed responses surface the
// status line and a body snippet so the classifier sees the upstream phrasing
// ("429 Too Many Requests", "invalid api key", ...).
type UpstreamClient struct {
	httpClient *http.Client
	logger     *log.Helper
}

// NewUpstreamClient creates the client. Per-attempt deadlines come from the
// caller's context, so the transport itself carries no timeout.
func NewUpstreamClient(logger log.Logger) *UpstreamClient {
	return &UpstreamClient{
		httpClient: &http.Client{},
		logger:     log.NewHelper(logger),
	}
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type contentPart struct {
	Type     string         `json:"type"`
	Text     string         `json:"text,omitempty"`
	ImageURL *imageURLValue `json:"image_url,omitempty"`
}

type imageURLValue struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate performs one chat-completions call against the candidate's
// provider and returns the generated text.
func (u *UpstreamClient) Generate(ctx context.Context, c model.Candidate, prompt string, image []byte) (string, error) {
	if c.Provider.BaseURL == "" {
		return "", fmt.Errorf("provider %s has no base_url configured", c.Provider.Name)
	}

	var content interface{} = prompt
	if len(image) > 0 {
		content = []contentPart{
			{Type: "text", Text: prompt},
			{Type: "image_url", ImageURL: &imageURLValue{
				URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image),
			}},
		}
	}

	body, err := json.Marshal(chatRequest{
		Model:    c.Model.ID,
		Messages: []chatMessage{{Role: "user", Content: content}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	return u.post(ctx, c.Provider, body)
}

// Probe issues one minimal test call: a GET against the configured probe URL
// when present, otherwise a one-token generation on the provider's first
// model. The caller bounds the context.
func (u *UpstreamClient) Probe(ctx context.Context, p *model.ProviderConfig) error {
	if p.ProbeURL != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.ProbeURL, nil)
		if err != nil {
			return fmt.Errorf("failed to build probe request: %w", err)
		}
		u.authorize(req, p)

		resp, err := u.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("probe failed: %w", err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

		if resp.StatusCode >= 500 {
			return fmt.Errorf("probe returned %s", resp.Status)
		}
		return nil
	}

	if len(p.Models) == 0 {
		return fmt.Errorf("provider %s exposes no models to probe", p.Name)
	}

	body, err := json.Marshal(chatRequest{
		Model:     p.Models[0].ID,
		Messages:  []chatMessage{{Role: "user", Content: "ping"}},
		MaxTokens: 1,
	})
	if err != nil {
		return fmt.Errorf("failed to encode probe request: %w", err)
	}

	_, err = u.post(ctx, p, body)
	return err
}

// post sends the chat request and decodes the first choice.
func (u *UpstreamClient) post(ctx context.Context, p *model.ProviderConfig, body []byte) (string, error) {
	url := p.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	u.authorize(req, p)

	start := time.Now()
	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request to %s failed: %w", p.Name, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response from %s: %w", p.Name, err)
	}

	if resp.StatusCode != http.StatusOK {
		snippet := string(respBody)
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		return "", fmt.Errorf("%s returned %s: %s", p.Name, resp.Status, snippet)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response from %s: %w", p.Name, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", p.Name)
	}

	u.logger.Debugw("msg", "upstream call completed",
		"provider", p.Name,
		"duration_ms", time.Since(start).Milliseconds())

	return parsed.Choices[0].Message.Content, nil
}

func (u *UpstreamClient) authorize(req *http.Request, p *model.ProviderConfig) {
	if p.APIKeyEnv == "" {
		return
	}
	if key := os.Getenv(p.APIKeyEnv); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
}
