// Package provider manages completion-provider clients and tiers.
//
// Providers are ranked by tier (fast/cheap through max-capability). The
// router selects a tier; the registry resolves it to a concrete client.
package provider

import "context"

// Tier represents a ranked quality/cost/latency class.
type Tier int

const (
	// TierFast is the fastest, cheapest tier. The fast-tier client in this
	// fleet is also the image-capable one.
	TierFast Tier = iota

	// TierStandard is the mid-tier, context-optimized class used for
	// analytical and planning work.
	TierStandard

	// TierPrecise is the code-precise tier used for formula and VBA
	// generation and debugging remediation text.
	TierPrecise

	// TierMax is the highest-capability tier with the largest context
	// window, used for complex multi-step requests.
	TierMax
)

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case TierFast:
		return "fast"
	case TierStandard:
		return "standard"
	case TierPrecise:
		return "precise"
	case TierMax:
		return "max"
	default:
		return "unknown"
	}
}

// Request represents one completion request.
type Request struct {
	System      string  `json:"system,omitempty"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`

	// Image is optional attached image bytes for image-capable providers.
	Image     []byte `json:"-"`
	ImageMIME string `json:"-"`
}

// Response represents one completion response.
type Response struct {
	Text       string `json:"text"`
	TokensUsed int    `json:"tokens_used"`
	Model      string `json:"model"`
	DurationMs int64  `json:"duration_ms"`
}

// Status reports one provider's availability.
type Status struct {
	Name      string `json:"name"`
	Tier      string `json:"tier"`
	Available bool   `json:"available"`
	Image     bool   `json:"image_capable"`
}

// Provider is a completion provider client.
type Provider interface {
	// Complete runs one completion. Calls are bounded by the context
	// deadline and surface timeout and auth failures as distinct kinds.
	Complete(ctx context.Context, req *Request) (*Response, error)

	// Name returns the provider identifier for logs and metadata.
	Name() string

	// Tier returns the provider's rank.
	Tier() Tier

	// Available reports whether the provider is configured.
	Available() bool

	// Status returns the current provider status.
	Status() *Status
}
