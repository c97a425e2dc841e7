package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/scenariod/internal/scenario"
)

// ClientConfig configures the langchaingo-backed oracle client.
type ClientConfig struct {
	// Model is the model identifier sent to the endpoint.
	// Default: "gpt-4o-mini"
	Model string `koanf:"model"`

	// BaseURL points at an openai-compatible endpoint. Empty uses the
	// provider default.
	BaseURL string `koanf:"base_url"`

	// Token is the API token. Empty falls back to the provider's
	// environment variable.
	Token string `koanf:"token"`

	// Temperature for generation. Default: 0.7.
	Temperature float64 `koanf:"temperature"`

	// MaxTokens per completion. Default: 1024.
	MaxTokens int `koanf:"max_tokens"`

	// RequestsPerMinute rate-limits outbound calls. Default: 30.
	RequestsPerMinute int `koanf:"requests_per_minute"`

	// Retry bounds the transient-error backoff loop.
	Retry RetryConfig `koanf:"retry"`
}

// ApplyDefaults sets default values for unset fields.
func (c *ClientConfig) ApplyDefaults() {
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 1024
	}
	if c.RequestsPerMinute == 0 {
		c.RequestsPerMinute = 30
	}
	c.Retry.ApplyDefaults()
}

// Client implements Oracle against an openai-compatible endpoint.
type Client struct {
	llm     llms.Model
	cfg     ClientConfig
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient builds a client from config.
func NewClient(cfg ClientConfig, logger *zap.Logger) (*Client, error) {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []openai.Option{openai.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Token != "" {
		opts = append(opts, openai.WithToken(cfg.Token))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating oracle llm: %w", err)
	}

	return newClientWithModel(llm, cfg, logger), nil
}

// newClientWithModel wires an existing model, used by tests to inject fakes.
func newClientWithModel(llm llms.Model, cfg ClientConfig, logger *zap.Logger) *Client {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		llm:     llm,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1),
		logger:  logger,
	}
}

// Plan implements Oracle.
func (c *Client) Plan(ctx context.Context, req PlanRequest) (Plan, error) {
	raw, err := c.generate(ctx, RolePlan, planPrompt(req))
	if err != nil {
		return Plan{Raw: raw}, err
	}

	var wire struct {
		Direction      string   `json:"direction"`
		SuggestedPhase string   `json:"suggested_phase"`
		FocusEntities  []string `json:"focus_entities"`
	}
	if err := decodeInto(RolePlan, raw, &wire); err != nil {
		return Plan{Raw: raw}, err
	}
	return Plan{
		Direction:      wire.Direction,
		SuggestedPhase: scenario.Phase(wire.SuggestedPhase),
		FocusEntities:  wire.FocusEntities,
		Raw:            raw,
	}, nil
}

// Draft implements Oracle.
func (c *Client) Draft(ctx context.Context, req DraftRequest) (DraftResult, error) {
	raw, err := c.generate(ctx, RoleDraft, draftPrompt(req))
	if err != nil {
		return DraftResult{Raw: raw}, err
	}

	var wire struct {
		TimeOffset       string   `json:"time_offset"`
		Phase            string   `json:"phase"`
		Source           string   `json:"source"`
		Target           string   `json:"target"`
		Modality         string   `json:"modality"`
		Content          string   `json:"content"`
		TechniqueID      string   `json:"technique_id"`
		AffectedEntities []string `json:"affected_entities"`
		Severity         string   `json:"severity"`
		ComplianceTag    string   `json:"compliance_tag"`
	}
	if err := decodeInto(RoleDraft, raw, &wire); err != nil {
		return DraftResult{Raw: raw}, err
	}

	in := scenario.Inject{
		ID:               uuid.NewString(),
		TimeOffset:       wire.TimeOffset,
		Phase:            scenario.Phase(wire.Phase),
		Source:           wire.Source,
		Target:           wire.Target,
		Modality:         scenario.Modality(wire.Modality),
		Content:          wire.Content,
		TechniqueID:      wire.TechniqueID,
		AffectedEntities: wire.AffectedEntities,
		Severity:         scenario.Severity(wire.Severity),
		ComplianceTag:    wire.ComplianceTag,
		Status:           scenario.StatusDraft,
		CreatedAt:        time.Now().UTC(),
	}
	if !in.Phase.Valid() {
		in.Phase = req.Phase
	}
	if !in.Severity.Valid() {
		in.Severity = scenario.SeverityMedium
	}
	if in.TechniqueID == "" {
		in.TechniqueID = req.Technique.ID
	}
	return DraftResult{Inject: in, Raw: raw}, nil
}

// Verify implements Oracle.
func (c *Client) Verify(ctx context.Context, req VerifyRequest) (VerifyResult, error) {
	raw, err := c.generate(ctx, RoleVerify, verifyPrompt(req))
	if err != nil {
		return VerifyResult{Raw: raw}, err
	}

	var result VerifyResult
	if err := decodeInto(RoleVerify, raw, &result); err != nil {
		return VerifyResult{Raw: raw}, err
	}
	result.Raw = raw
	return result, nil
}

// generate runs one rate-limited completion under the retry policy.
func (c *Client) generate(ctx context.Context, role Role, prompt string) (string, error) {
	var completion string
	err := withRetry(ctx, c.cfg.Retry, c.logger, role, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		out, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt,
			llms.WithTemperature(c.cfg.Temperature),
			llms.WithMaxTokens(c.cfg.MaxTokens))
		if err != nil {
			return err
		}
		completion = out
		return nil
	})
	return completion, err
}

// decodeInto extracts the first balanced JSON object and unmarshals it.
func decodeInto(role Role, raw string, v any) error {
	span, err := ExtractJSON(raw)
	if err != nil {
		return &ParseError{Role: role, Raw: raw, Err: err}
	}
	if err := json.Unmarshal([]byte(span), v); err != nil {
		return &ParseError{Role: role, Raw: raw, Err: err}
	}
	return nil
}
