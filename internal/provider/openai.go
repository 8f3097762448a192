// OpenAI-compatible chat completions client.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/CHULJU-KIM/Excelly/internal/errors"
)

// OpenAIConfig configures the OpenAI client.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // Default: https://api.openai.com/v1
	Model   string // e.g., "gpt-4o-mini"
	Tier    Tier
	Timeout time.Duration
}

// OpenAIClient implements Provider using the OpenAI chat completions API.
type OpenAIClient struct {
	cfg    *OpenAIConfig
	client *http.Client
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(cfg *OpenAIConfig) *OpenAIClient {
	if cfg == nil {
		return nil
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &OpenAIClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Complete sends a prompt to the API and returns the generated text.
func (c *OpenAIClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	if c == nil || !c.Available() {
		return nil, apperrors.System(apperrors.CodeProviderUnavailable, "openai client not configured")
	}

	messages := []map[string]string{}
	if req.System != "" {
		messages = append(messages, map[string]string{"role": "system", "content": req.System})
	}
	messages = append(messages, map[string]string{"role": "user", "content": req.Prompt})

	body := map[string]any{
		"model":    c.cfg.Model,
		"messages": messages,
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	if req.Temperature > 0 {
		body["temperature"] = req.Temperature
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeProviderBadResponse, "failed to marshal request", apperrors.CategoryPermanent)
	}

	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeProviderUnavailable, "failed to create request", apperrors.CategoryTemporary)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err, c.Name(), time.Since(start))
	}

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, apperrors.Temporary(apperrors.CodeProviderUnavailable, "failed to read response").
			WithProvider(c.Name(), time.Since(start))
	}

	if err := classifyHTTPStatus(resp.StatusCode, respBody, c.Name(), time.Since(start)); err != nil {
		return nil, err
	}

	var parsed openAIResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeProviderBadResponse, "failed to parse response", apperrors.CategoryTemporary)
	}
	if len(parsed.Choices) == 0 {
		return nil, apperrors.Temporary(apperrors.CodeProviderBadResponse, "no choices in response").
			WithProvider(c.Name(), time.Since(start))
	}

	return &Response{
		Text:       parsed.Choices[0].Message.Content,
		TokensUsed: parsed.Usage.TotalTokens,
		Model:      parsed.Model,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

// Available checks if the client is configured.
func (c *OpenAIClient) Available() bool {
	return c != nil && c.cfg != nil && c.cfg.APIKey != ""
}

// Name returns the provider identifier.
func (c *OpenAIClient) Name() string {
	if c.cfg != nil && c.cfg.Model != "" {
		return "openai/" + c.cfg.Model
	}
	return "openai"
}

// Tier returns the provider's rank.
func (c *OpenAIClient) Tier() Tier {
	return c.cfg.Tier
}

// Status returns the current provider status.
func (c *OpenAIClient) Status() *Status {
	return &Status{
		Name:      c.Name(),
		Tier:      c.cfg.Tier.String(),
		Available: c.Available(),
	}
}

// ============================================================
// OpenAI API Types
// ============================================================

type openAIResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// ============================================================
// Shared error mapping
// ============================================================

// classifyTransportError maps transport failures, distinguishing timeouts.
func classifyTransportError(err error, provider string, latency time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return apperrors.Temporary(apperrors.CodeProviderTimeout, "provider call timed out").
			WithProvider(provider, latency)
	}
	return apperrors.Wrap(err, apperrors.CodeProviderUnavailable, "provider request failed", apperrors.CategoryTemporary).
		WithProvider(provider, latency)
}

// classifyHTTPStatus maps non-200 statuses to error kinds.
func classifyHTTPStatus(status int, body []byte, provider string, latency time.Duration) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperrors.User(apperrors.CodeProviderAuthFailed, "provider rejected credentials").
			WithProvider(provider, latency)
	case status == http.StatusGatewayTimeout:
		return apperrors.Temporary(apperrors.CodeProviderTimeout, "provider gateway timeout").
			WithProvider(provider, latency)
	default:
		return apperrors.Temporary(apperrors.CodeProviderUnavailable,
			fmt.Sprintf("provider error (status %d): %s", status, truncateBody(body))).
			WithProvider(provider, latency)
	}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func truncateBody(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
