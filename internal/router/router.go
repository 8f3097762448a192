// Package router selects completion providers and executes calls.
//
// Routing is a policy table over the classifier output; execution is
// strictly sequential with a bounded timeout per call and a single
// one-tier failover before the error is surfaced.
package router

import (
	"context"
	"log/slog"
	"time"

	"github.com/CHULJU-KIM/Excelly/internal/classifier"
	"github.com/CHULJU-KIM/Excelly/internal/conversation"
	apperrors "github.com/CHULJU-KIM/Excelly/internal/errors"
	"github.com/CHULJU-KIM/Excelly/internal/prompt"
	"github.com/CHULJU-KIM/Excelly/internal/provider"
)

// RouteInput is everything the routing table looks at.
type RouteInput struct {
	Category  classifier.Category
	Skill     classifier.SkillLevel
	State     conversation.State
	HasFile   bool
	HasImage  bool
	LargeFile bool
}

// Plan is a routing decision: which tier answers, and whether the turn
// needs the two-stage hybrid strategy or an image-analysis first pass.
type Plan struct {
	Tier provider.Tier

	// Hybrid runs a context-summarization call on the standard tier
	// before the generation call on the precise tier.
	Hybrid bool

	// ImageFirst runs the attached image through the image-capable
	// fast-tier model before the remediation call.
	ImageFirst bool

	// Reason explains the decision, for logs.
	Reason string
}

// CallRecord is the observability record of one provider invocation.
type CallRecord struct {
	Provider   string `json:"provider"`
	Tier       string `json:"tier"`
	Template   string `json:"template"`
	ElapsedMs  int64  `json:"elapsed_ms"`
	TokensUsed int    `json:"tokens_used,omitempty"`
	FailedOver bool   `json:"failed_over,omitempty"`
}

// ExecRequest carries the payloads for one turn's provider calls.
type ExecRequest struct {
	// Payload is the main generation payload.
	Payload *prompt.Payload

	// Summarize is the hybrid first-stage payload, required when the
	// plan has Hybrid set.
	Summarize *prompt.Payload

	// ImageProbe is the image-analysis payload, required when the plan
	// has ImageFirst set.
	ImageProbe *prompt.Payload
	Image      []byte
	ImageMIME  string
}

// Outcome is the generated text plus the per-call records.
type Outcome struct {
	Text    string
	Records []CallRecord
}

// Router routes turns to providers.
type Router struct {
	reg       *provider.Registry
	timeout   time.Duration
	maxTokens int
	log       *slog.Logger
}

// New creates a router over the given provider registry.
func New(reg *provider.Registry, timeout time.Duration, maxTokens int, log *slog.Logger) *Router {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Router{reg: reg, timeout: timeout, maxTokens: maxTokens, log: log}
}

// Route applies the routing table to one turn.
func (r *Router) Route(in RouteInput) *Plan {
	// Beginner signal wins over classification: friendliest, cheapest
	// tier. Advanced keywords suppress the signal upstream.
	if in.Skill == classifier.SkillBeginner && in.Category != classifier.CategoryDebugging {
		return &Plan{Tier: provider.TierFast, Reason: "beginner signal"}
	}

	switch {
	case in.Category == classifier.CategoryDebugging && in.HasImage:
		return &Plan{Tier: provider.TierPrecise, ImageFirst: true, Reason: "debugging with screenshot"}

	case in.Category == classifier.CategoryDebugging:
		return &Plan{Tier: provider.TierPrecise, Reason: "debugging"}

	case in.Category == classifier.CategoryComplex && in.HasFile && in.LargeFile:
		return &Plan{Tier: provider.TierPrecise, Hybrid: true, Reason: "complex request over large file"}

	case in.Category == classifier.CategoryComplex:
		return &Plan{Tier: provider.TierMax, Reason: "complex/VBA request"}

	case in.State == conversation.StatePlanning,
		in.Category == classifier.CategoryAnalytical,
		in.Category == classifier.CategoryCreative:
		return &Plan{Tier: provider.TierStandard, Reason: "analytical/planning"}

	default:
		return &Plan{Tier: provider.TierFast, Reason: "simple question"}
	}
}

// Execute runs the plan's provider calls sequentially and returns the
// final text. Hybrid summarization completes before generation starts;
// there is no parallel fan-out.
func (r *Router) Execute(ctx context.Context, plan *Plan, req *ExecRequest) (*Outcome, error) {
	out := &Outcome{}
	payload := *req.Payload

	if plan.ImageFirst && len(req.Image) > 0 && req.ImageProbe != nil {
		probe := &provider.Request{
			Prompt:    req.ImageProbe.Prompt,
			Image:     req.Image,
			ImageMIME: req.ImageMIME,
			MaxTokens: r.maxTokens,
		}
		resp, rec, err := r.callWithFailover(ctx, provider.TierFast, probe, req.ImageProbe.Template)
		if err != nil {
			// Image analysis is best-effort: the remediation call still
			// runs, with a note that analysis was unavailable.
			r.log.Warn("image analysis failed", "error", err)
			payload.Prompt += "\n\n--- 첨부 이미지 분석 ---\n(이미지 분석을 사용할 수 없습니다)"
		} else {
			out.Records = append(out.Records, rec)
			payload.Prompt += "\n\n--- 첨부 이미지 분석 ---\n" + resp.Text
		}
	}

	if plan.Hybrid && req.Summarize != nil {
		sum := &provider.Request{
			System:    req.Summarize.System,
			Prompt:    req.Summarize.Prompt,
			MaxTokens: r.maxTokens,
		}
		resp, rec, err := r.callWithFailover(ctx, provider.TierStandard, sum, req.Summarize.Template)
		if err != nil {
			return nil, err
		}
		out.Records = append(out.Records, rec)
		payload.Prompt += "\n\n--- AI 요약 정보 ---\n" + resp.Text
	}

	gen := &provider.Request{
		System:    payload.System,
		Prompt:    payload.Prompt,
		MaxTokens: r.maxTokens,
	}
	resp, rec, err := r.callWithFailover(ctx, plan.Tier, gen, payload.Template)
	if err != nil {
		return nil, err
	}
	out.Records = append(out.Records, rec)
	out.Text = resp.Text

	return out, nil
}

// callWithFailover invokes the provider at the given tier with a bounded
// timeout; on failure it drops one tier and tries exactly once more. Both
// failures surface as a single normalized ProviderUnavailable error with
// the originating provider preserved for logs.
func (r *Router) callWithFailover(ctx context.Context, tier provider.Tier, req *provider.Request, tmpl prompt.Template) (*provider.Response, CallRecord, error) {
	primary := r.reg.ByTier(tier)
	if primary == nil || !primary.Available() {
		if primary = r.reg.NextLower(tier); primary == nil {
			return nil, CallRecord{}, apperrors.System(apperrors.CodeProviderUnavailable, "no completion provider available")
		}
	}

	resp, err := r.call(ctx, primary, req)
	if err == nil {
		return resp, record(primary, tmpl, resp, false), nil
	}
	r.logProviderError(primary.Name(), err)

	fallback := r.reg.NextLower(primary.Tier())
	if fallback == nil {
		return nil, CallRecord{}, normalize(err, primary.Name())
	}

	resp, err = r.call(ctx, fallback, req)
	if err != nil {
		r.logProviderError(fallback.Name(), err)
		return nil, CallRecord{}, normalize(err, fallback.Name())
	}
	return resp, record(fallback, tmpl, resp, true), nil
}

func (r *Router) call(ctx context.Context, p provider.Provider, req *provider.Request) (*provider.Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return p.Complete(callCtx, req)
}

// logProviderError logs provider name and latency before normalization.
func (r *Router) logProviderError(name string, err error) {
	var latency time.Duration
	if appErr, ok := err.(*apperrors.AppError); ok {
		latency = appErr.Latency
	}
	r.log.Error("provider call failed",
		"provider", name,
		"latency_ms", latency.Milliseconds(),
		"error", err,
	)
}

// normalize folds every provider error into the single user-facing
// "AI service unavailable" kind, keeping the origin in the chain.
func normalize(err error, providerName string) error {
	norm := apperrors.Wrap(err, apperrors.CodeProviderUnavailable,
		"AI 서비스를 일시적으로 사용할 수 없습니다", apperrors.CategoryTemporary)
	norm.Provider = providerName
	return norm
}

func record(p provider.Provider, tmpl prompt.Template, resp *provider.Response, failedOver bool) CallRecord {
	return CallRecord{
		Provider:   p.Name(),
		Tier:       p.Tier().String(),
		Template:   string(tmpl),
		ElapsedMs:  resp.DurationMs,
		TokensUsed: resp.TokensUsed,
		FailedOver: failedOver,
	}
}
