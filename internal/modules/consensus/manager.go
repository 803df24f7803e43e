// Package consensus merges the agent roster's votes into a single
// recommendation for each security. The vote math is fully deterministic;
// the LLM only contributes prose around an already-final decision.
package consensus

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tavendale/equity-council/internal/clients/gemini"
	"github.com/tavendale/equity-council/internal/domain"
	"github.com/tavendale/equity-council/internal/modules/risk"
	"github.com/tavendale/equity-council/internal/modules/valuation"
)

// Numeric values each recommendation contributes to the weighted mean.
const (
	voteValueBuy   = 1.0
	voteValueHold  = 0.5
	voteValueSell  = 0.0
	voteValueAvoid = -1.0
)

// Weighted-mean thresholds, applied before the display rescale.
const (
	buyThreshold  = 0.75
	holdThreshold = 0.25
	sellThreshold = -0.25
)

// Override names recorded on the result when the risk rating forces the
// recommendation down.
const (
	overrideCriticalRisk = "CRITICAL_RISK_AVOID"
	overrideHighRiskBuy  = "HIGH_RISK_BUY_TO_HOLD"
)

// Synthesizer writes the narrative around a finished consensus. The noop
// implementation keeps the pipeline fully offline.
type Synthesizer interface {
	Synthesize(ctx context.Context, req gemini.Request) gemini.Result
}

// NoopSynthesizer always reports fallback, leaving the deterministic
// reasoning in place.
type NoopSynthesizer struct{}

// Synthesize implements Synthesizer.
func (NoopSynthesizer) Synthesize(context.Context, gemini.Request) gemini.Result {
	return gemini.Result{FallbackReason: "narrative synthesis disabled"}
}

// Dissent records a minority opinion small enough to flag rather than to
// move the consensus.
type Dissent struct {
	Recommendation domain.Recommendation `json:"recommendation"`
	Count          int                   `json:"count"`
	Agents         []string              `json:"agents"`
}

// VoteTally counts raw recommendations per bucket.
type VoteTally struct {
	Buy   int `json:"buy"`
	Hold  int `json:"hold"`
	Sell  int `json:"sell"`
	Avoid int `json:"avoid"`
	Total int `json:"total"`
}

// Result is the final per-security consensus.
type Result struct {
	Symbol              string                `json:"symbol"`
	Votes               []domain.AgentVote    `json:"votes"`
	Tally               VoteTally             `json:"voteTally"`
	WeightedScore       float64               `json:"weightedScore"` // 0-100 display scale
	FinalRecommendation domain.Recommendation `json:"finalRecommendation"`
	ConsensusStrength   float64               `json:"consensusStrength"` // 0-100
	Dissents            []Dissent             `json:"dissents,omitempty"`
	OverrideApplied     string                `json:"overrideApplied,omitempty"`
	Reasoning           string                `json:"reasoning"`
	KeyInsights         []string              `json:"keyInsights,omitempty"`
	RiskFactors         []string              `json:"riskFactors,omitempty"`
	NarrativeSource     string                `json:"narrativeSource"` // "llm" or "fallback"
}

// Manager builds consensus results from votes and risk findings.
type Manager struct {
	synth Synthesizer
	log   zerolog.Logger
}

// NewManager creates a consensus manager. A nil synthesizer disables
// narrative synthesis.
func NewManager(synth Synthesizer, log zerolog.Logger) *Manager {
	if synth == nil {
		synth = NoopSynthesizer{}
	}
	return &Manager{
		synth: synth,
		log:   log.With().Str("module", "consensus").Logger(),
	}
}

// Build merges all votes, including the risk manager's, into a final
// recommendation and attaches the narrative.
func (m *Manager) Build(ctx context.Context, symbol string, votes []domain.AgentVote, riskOut risk.Output, val valuation.Findings) Result {
	res := Result{
		Symbol: symbol,
		Votes:  votes,
		Tally:  tally(votes),
	}

	mean := weightedMean(votes)
	res.WeightedScore = displayScore(mean)
	res.FinalRecommendation = recommend(mean)
	res.ConsensusStrength = strength(res.Tally)
	res.Dissents = dissents(votes, res.Tally)

	// Risk overrides are monotonic: they only ever move the recommendation
	// toward caution, never toward BUY.
	switch {
	case riskOut.Metrics.Rating == risk.RatingCritical && res.FinalRecommendation != domain.RecommendationAvoid:
		res.FinalRecommendation = domain.RecommendationAvoid
		res.OverrideApplied = overrideCriticalRisk
	case riskOut.Metrics.Rating == risk.RatingHigh && res.FinalRecommendation == domain.RecommendationBuy:
		res.FinalRecommendation = domain.RecommendationHold
		res.OverrideApplied = overrideHighRiskBuy
	}

	m.attachNarrative(ctx, &res, riskOut, val)

	m.log.Info().
		Str("symbol", symbol).
		Str("recommendation", string(res.FinalRecommendation)).
		Float64("weighted_score", res.WeightedScore).
		Float64("consensus_strength", res.ConsensusStrength).
		Str("override", res.OverrideApplied).
		Str("narrative_source", res.NarrativeSource).
		Msg("Consensus built")

	return res
}

// tally counts votes per recommendation bucket.
func tally(votes []domain.AgentVote) VoteTally {
	t := VoteTally{Total: len(votes)}
	for _, v := range votes {
		switch v.Recommendation {
		case domain.RecommendationBuy:
			t.Buy++
		case domain.RecommendationHold:
			t.Hold++
		case domain.RecommendationSell:
			t.Sell++
		case domain.RecommendationAvoid:
			t.Avoid++
		}
	}
	return t
}

// weightedMean computes the confidence-weighted mean vote value in [-1, 1],
// normalized by the weight actually present so missing agents never skew the
// scale.
func weightedMean(votes []domain.AgentVote) float64 {
	var weighted, totalWeight float64
	for _, v := range votes {
		weighted += voteValue(v.Recommendation) * v.Weight * v.Confidence / 100
		totalWeight += v.Weight
	}
	if totalWeight == 0 {
		return 0
	}
	return weighted / totalWeight
}

func voteValue(rec domain.Recommendation) float64 {
	switch rec {
	case domain.RecommendationBuy:
		return voteValueBuy
	case domain.RecommendationHold:
		return voteValueHold
	case domain.RecommendationSell:
		return voteValueSell
	default:
		return voteValueAvoid
	}
}

// recommend applies the pre-rescale thresholds to the weighted mean.
func recommend(mean float64) domain.Recommendation {
	switch {
	case mean > buyThreshold:
		return domain.RecommendationBuy
	case mean > holdThreshold:
		return domain.RecommendationHold
	case mean > sellThreshold:
		return domain.RecommendationSell
	default:
		return domain.RecommendationAvoid
	}
}

// displayScore rescales the [-1, 1] weighted mean onto [0, 100] for display.
func displayScore(mean float64) float64 {
	return (mean + 1) / 2 * 100
}

// strength is the plurality bucket's share of all votes, as a percentage.
func strength(t VoteTally) float64 {
	if t.Total == 0 {
		return 0
	}
	plurality := t.Buy
	for _, n := range []int{t.Hold, t.Sell, t.Avoid} {
		if n > plurality {
			plurality = n
		}
	}
	return float64(plurality) / float64(t.Total) * 100
}

// dissents flags recommendation buckets held by a small minority: more than
// zero agents but fewer than a third of the roster.
func dissents(votes []domain.AgentVote, t VoteTally) []Dissent {
	threshold := float64(t.Total) / 3

	byRec := make(map[domain.Recommendation][]string)
	for _, v := range votes {
		byRec[v.Recommendation] = append(byRec[v.Recommendation], v.Agent)
	}

	var out []Dissent
	for _, rec := range []domain.Recommendation{
		domain.RecommendationBuy, domain.RecommendationHold,
		domain.RecommendationSell, domain.RecommendationAvoid,
	} {
		agents := byRec[rec]
		if n := len(agents); n > 0 && float64(n) < threshold {
			sort.Strings(agents)
			out = append(out, Dissent{Recommendation: rec, Count: n, Agents: agents})
		}
	}
	return out
}

// attachNarrative asks the synthesizer for prose and falls back to a
// deterministic summary when synthesis is unavailable or unparseable.
func (m *Manager) attachNarrative(ctx context.Context, res *Result, riskOut risk.Output, val valuation.Findings) {
	req := gemini.Request{
		Symbol:            res.Symbol,
		Recommendation:    res.FinalRecommendation,
		WeightedScore:     res.WeightedScore,
		ConsensusStrength: res.ConsensusStrength,
		RiskRating:        string(riskOut.Metrics.Rating),
		ValuationSummary:  valuationSummary(val),
	}
	for _, d := range res.Dissents {
		req.Dissents = append(req.Dissents,
			fmt.Sprintf("%d agent(s) voted %s: %s", d.Count, d.Recommendation, strings.Join(d.Agents, ", ")))
	}

	if out := m.synth.Synthesize(ctx, req); out.OK {
		res.Reasoning = out.Narrative.Reasoning
		res.KeyInsights = out.Narrative.KeyInsights
		res.RiskFactors = out.Narrative.RiskFactors
		res.NarrativeSource = "llm"
		return
	} else if out.FallbackReason != "" {
		m.log.Debug().Str("symbol", res.Symbol).Str("reason", out.FallbackReason).Msg("Narrative fell back")
	}

	res.Reasoning = fallbackReasoning(res, riskOut, val)
	res.NarrativeSource = "fallback"
}

// fallbackReasoning writes a plain deterministic summary of the decision.
func fallbackReasoning(res *Result, riskOut risk.Output, val valuation.Findings) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s consensus: %s with a weighted score of %.1f/100 and %.0f%% agreement (%d BUY / %d HOLD / %d SELL / %d AVOID).",
		res.Symbol, res.FinalRecommendation, res.WeightedScore, res.ConsensusStrength,
		res.Tally.Buy, res.Tally.Hold, res.Tally.Sell, res.Tally.Avoid)

	fmt.Fprintf(&sb, " Valuation reads %s with %s method agreement.",
		val.OverallAssessment, val.MethodAgreement)

	fmt.Fprintf(&sb, " Risk rating is %s at %.0f%% annualized volatility.",
		riskOut.Metrics.Rating, riskOut.Metrics.Volatility*100)

	switch res.OverrideApplied {
	case overrideCriticalRisk:
		sb.WriteString(" The recommendation was forced to AVOID by the critical risk rating.")
	case overrideHighRiskBuy:
		sb.WriteString(" The BUY consensus was reduced to HOLD because of the high risk rating.")
	}

	return sb.String()
}

// valuationSummary condenses the valuation findings for the narrative prompt.
func valuationSummary(val valuation.Findings) string {
	if val.OverallAssessment == valuation.UnableToValue {
		return "valuation unavailable"
	}
	return fmt.Sprintf("%s; fair value range %.2f-%.2f (midpoint %.2f) vs price %.2f; method agreement %s",
		val.OverallAssessment, val.Consensus.Low, val.Consensus.High, val.Consensus.Midpoint,
		val.CurrentPrice, val.MethodAgreement)
}
