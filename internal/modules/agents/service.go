package agents

import (
	"github.com/rs/zerolog"

	"github.com/tavendale/equity-council/internal/domain"
	"github.com/tavendale/equity-council/internal/modules/growth"
	"github.com/tavendale/equity-council/internal/modules/valuation"
	"github.com/tavendale/equity-council/pkg/formulas"
)

// Input is the immutable evidence every agent votes on.
type Input struct {
	Data      *domain.FinancialData
	Growth    growth.Analysis
	Valuation valuation.Findings
}

// Service evaluates the persona and technical agent rosters for one security.
type Service struct {
	personas []persona
	log      zerolog.Logger
}

// NewService creates the agent roster.
func NewService(log zerolog.Logger) *Service {
	return &Service{
		personas: personaRoster(),
		log:      log.With().Str("module", "agents").Logger(),
	}
}

// Evaluate runs every persona and technical agent and returns their votes.
// Votes are deterministic functions of the input.
func (s *Service) Evaluate(in Input) []domain.AgentVote {
	votes := make([]domain.AgentVote, 0, len(s.personas)+4)

	for _, p := range s.personas {
		score := p.score(in)
		votes = append(votes, voteFromScore(p.name, domain.VoteCategoryPersona, domain.WeightPersonaAgent, score))
	}

	votes = append(votes, s.technicalVotes(in.Data.PriceHistory)...)

	s.log.Debug().
		Str("symbol", in.Data.Symbol).
		Int("votes", len(votes)).
		Float64("avg_score", AverageScore(votes)).
		Msg("Agents evaluated")

	return votes
}

// AverageScore returns the 0-100 mean conviction score across votes. This is
// the risk manager's expected-return input.
func AverageScore(votes []domain.AgentVote) float64 {
	if len(votes) == 0 {
		return 0
	}
	var sum float64
	for _, v := range votes {
		sum += v.Score()
	}
	return sum / float64(len(votes))
}

// voteFromScore maps a 0-1 evidence score onto a recommendation. Confidence
// grows with distance from the neutral midpoint.
func voteFromScore(name string, category domain.VoteCategory, weight, score float64) domain.AgentVote {
	score = formulas.Clamp(score, 0, 1)

	var rec domain.Recommendation
	switch {
	case score >= 0.70:
		rec = domain.RecommendationBuy
	case score >= 0.45:
		rec = domain.RecommendationHold
	case score >= 0.25:
		rec = domain.RecommendationSell
	default:
		rec = domain.RecommendationAvoid
	}

	confidence := formulas.Clamp(40+absFloat(score-0.5)*120, 40, 95)

	return domain.AgentVote{
		Agent:          name,
		Category:       category,
		Recommendation: rec,
		Confidence:     round1(confidence),
		Weight:         weight,
	}
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func round1(f float64) float64 {
	return float64(int(f*10+0.5)) / 10
}

func round3(f float64) float64 {
	return float64(int(f*1000+0.5)) / 1000
}
