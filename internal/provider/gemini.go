// Gemini generateContent client. The flash-tier model is image-capable.
package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	apperrors "github.com/CHULJU-KIM/Excelly/internal/errors"
)

// GeminiConfig configures a Gemini client.
type GeminiConfig struct {
	APIKey  string
	BaseURL string // Default: https://generativelanguage.googleapis.com/v1beta
	Model   string // e.g., "gemini-2.0-flash"
	Tier    Tier
	Image   bool // whether this model accepts inline image parts
	Timeout time.Duration
}

// GeminiClient implements Provider using the Gemini REST API.
type GeminiClient struct {
	cfg    *GeminiConfig
	client *http.Client
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(cfg *GeminiConfig) *GeminiClient {
	if cfg == nil {
		return nil
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &GeminiClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Complete sends a prompt (and optional image) and returns the response.
func (c *GeminiClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	if c == nil || !c.Available() {
		return nil, apperrors.System(apperrors.CodeProviderUnavailable, "gemini client not configured")
	}

	parts := []map[string]any{}
	text := req.Prompt
	if req.System != "" {
		text = req.System + "\n\n" + text
	}
	parts = append(parts, map[string]any{"text": text})

	if len(req.Image) > 0 && c.cfg.Image {
		mime := req.ImageMIME
		if mime == "" {
			mime = "image/png"
		}
		parts = append(parts, map[string]any{
			"inline_data": map[string]string{
				"mime_type": mime,
				"data":      base64.StdEncoding.EncodeToString(req.Image),
			},
		})
	}

	body := map[string]any{
		"contents": []map[string]any{
			{"parts": parts},
		},
	}
	genCfg := map[string]any{}
	if req.MaxTokens > 0 {
		genCfg["maxOutputTokens"] = req.MaxTokens
	}
	if req.Temperature > 0 {
		genCfg["temperature"] = req.Temperature
	}
	if len(genCfg) > 0 {
		body["generationConfig"] = genCfg
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeProviderBadResponse, "failed to marshal request", apperrors.CategoryPermanent)
	}

	endpoint := c.cfg.BaseURL + "/models/" + url.PathEscape(c.cfg.Model) + ":generateContent?key=" + url.QueryEscape(c.cfg.APIKey)

	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeProviderUnavailable, "failed to create request", apperrors.CategoryTemporary)
	}
	httpReq.Header.Set("Content-Type", "application/json")

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

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeProviderBadResponse, "failed to parse response", apperrors.CategoryTemporary)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, apperrors.Temporary(apperrors.CodeProviderBadResponse, "no candidates in response").
			WithProvider(c.Name(), time.Since(start))
	}

	var out bytes.Buffer
	for _, p := range parsed.Candidates[0].Content.Parts {
		out.WriteString(p.Text)
	}

	return &Response{
		Text:       out.String(),
		TokensUsed: parsed.UsageMetadata.TotalTokenCount,
		Model:      c.cfg.Model,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

// Available checks if the client is configured.
func (c *GeminiClient) Available() bool {
	return c != nil && c.cfg != nil && c.cfg.APIKey != ""
}

// Name returns the provider identifier.
func (c *GeminiClient) Name() string {
	if c.cfg != nil && c.cfg.Model != "" {
		return "gemini/" + c.cfg.Model
	}
	return "gemini"
}

// Tier returns the provider's rank.
func (c *GeminiClient) Tier() Tier {
	return c.cfg.Tier
}

// Status returns the current provider status.
func (c *GeminiClient) Status() *Status {
	return &Status{
		Name:      c.Name(),
		Tier:      c.cfg.Tier.String(),
		Available: c.Available(),
		Image:     c.cfg.Image,
	}
}

// ============================================================
// Gemini API Types
// ============================================================

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}
