// Package gemini provides the narrative-synthesis client for the Google
// Gemini API. Synthesis failures are reported as values, never as errors
// that could interrupt the numeric pipeline.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/tavendale/equity-council/internal/domain"
)

// DefaultModel is used when no model override is configured.
const DefaultModel = "gemini-2.0-flash"

// DefaultTimeout bounds a single synthesis call.
const DefaultTimeout = 30 * time.Second

// Request carries the structured findings the narrative is written around.
type Request struct {
	Symbol            string                `json:"symbol"`
	Recommendation    domain.Recommendation `json:"recommendation"`
	WeightedScore     float64               `json:"weightedScore"`
	ConsensusStrength float64               `json:"consensusStrength"`
	RiskRating        string                `json:"riskRating"`
	ValuationSummary  string                `json:"valuationSummary"`
	Dissents          []string              `json:"dissents,omitempty"`
}

// Narrative is the fixed JSON schema the model must produce.
type Narrative struct {
	Reasoning   string   `json:"reasoning"`
	KeyInsights []string `json:"keyInsights"`
	RiskFactors []string `json:"riskFactors"`
}

// Result is the explicit success-or-fallback outcome of a synthesis call.
// When OK is false the caller continues with its own deterministic reasoning
// string; FallbackReason records why.
type Result struct {
	OK             bool      `json:"ok"`
	Narrative      Narrative `json:"narrative"`
	FallbackReason string    `json:"fallbackReason,omitempty"`
}

// Client calls the Gemini API for narrative synthesis.
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	log     zerolog.Logger
}

// Option configures the client.
type Option func(*Client)

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// NewClient creates a Gemini narrative client.
func NewClient(ctx context.Context, apiKey string, log zerolog.Logger, opts ...Option) (*Client, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	c := &Client{
		client:  genaiClient,
		model:   DefaultModel,
		timeout: DefaultTimeout,
		log:     log.With().Str("client", "gemini").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Synthesize asks the model for a narrative around already-computed findings.
// Call or parse failures degrade to a fallback result.
func (c *Client) Synthesize(ctx context.Context, req Request) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(buildPrompt(req)), nil)
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", req.Symbol).Msg("Narrative synthesis call failed")
		return Result{FallbackReason: fmt.Sprintf("synthesis call failed: %v", err)}
	}

	text := resp.Text()
	if text == "" {
		return Result{FallbackReason: "synthesis returned empty response"}
	}

	narrative, err := parseNarrative(text)
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", req.Symbol).Msg("Narrative response unparseable")
		return Result{FallbackReason: fmt.Sprintf("narrative parse failed: %v", err)}
	}

	return Result{OK: true, Narrative: narrative}
}

// parseNarrative decodes model output into the fixed schema, repairing the
// usual LLM JSON damage (markdown fences, single quotes, trailing commas)
// first.
func parseNarrative(text string) (Narrative, error) {
	repaired, err := jsonrepair.RepairJSON(text)
	if err != nil {
		return Narrative{}, fmt.Errorf("repair: %w", err)
	}

	var n Narrative
	if err := json.Unmarshal([]byte(repaired), &n); err != nil {
		return Narrative{}, fmt.Errorf("decode: %w", err)
	}
	if n.Reasoning == "" {
		return Narrative{}, fmt.Errorf("reasoning field missing")
	}
	return n, nil
}

func buildPrompt(req Request) string {
	var sb strings.Builder
	sb.WriteString("You are a sell-side analyst summarizing an already-completed quantitative analysis. ")
	sb.WriteString("Do not change any numbers or the recommendation.\n\n")

	payload, _ := json.Marshal(req)
	sb.WriteString("Findings:\n")
	sb.Write(payload)
	sb.WriteString("\n\nRespond with JSON only, exactly this schema:\n")
	sb.WriteString(`{"reasoning": "two or three sentences", "keyInsights": ["..."], "riskFactors": ["..."]}`)
	return sb.String()
}
