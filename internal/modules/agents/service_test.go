package agents

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/tavendale/equity-council/internal/domain"
	"github.com/tavendale/equity-council/internal/modules/growth"
	"github.com/tavendale/equity-council/internal/modules/valuation"
)

func testInput() Input {
	return Input{
		Data: &domain.FinancialData{
			Symbol: "TEST",
			Price:  domain.PriceQuote{Current: 100},
			Ratios: domain.Ratios{
				PE:        15,
				ROE:       18,
				NetMargin: 12,
			},
			BalanceSheet: domain.BalanceSheet{
				TotalAssets: 100,
				TotalEquity: 45,
				Cash:        20,
				TotalDebt:   10,
			},
		},
		Growth: growth.Analysis{
			Metrics: map[string]growth.Result{
				"revenue":      {GrowthRate: 12, CurrentValue: 100},
				"netIncome":    {GrowthRate: 10, CurrentValue: 12},
				"freeCashFlow": {GrowthRate: 8, CurrentValue: 11},
			},
		},
		Valuation: valuation.Findings{
			CurrentPrice:      100,
			Consensus:         valuation.ConsensusRange{Low: 110, Midpoint: 120, High: 130},
			MethodAgreement:   valuation.AgreementModerate,
			OverallAssessment: valuation.Undervalued,
		},
	}
}

func TestEvaluateRosterIsStable(t *testing.T) {
	s := NewService(zerolog.Nop())
	in := testInput()

	votes := s.Evaluate(in)

	// 12 personas plus 4 technical agents, even with no price history.
	if len(votes) != 16 {
		t.Fatalf("got %d votes, want 16", len(votes))
	}

	personas, technical := 0, 0
	for _, v := range votes {
		switch v.Category {
		case domain.VoteCategoryPersona:
			personas++
			if v.Weight != domain.WeightPersonaAgent {
				t.Errorf("%s: Weight = %v, want %v", v.Agent, v.Weight, domain.WeightPersonaAgent)
			}
		case domain.VoteCategoryTechnical:
			technical++
			if v.Weight != domain.WeightTechnicalAgent {
				t.Errorf("%s: Weight = %v, want %v", v.Agent, v.Weight, domain.WeightTechnicalAgent)
			}
		default:
			t.Errorf("%s: unexpected category %s", v.Agent, v.Category)
		}
		if v.Confidence < 40 || v.Confidence > 95 {
			t.Errorf("%s: Confidence = %v, want within [40, 95]", v.Agent, v.Confidence)
		}
	}
	if personas != 12 || technical != 4 {
		t.Errorf("roster split = %d personas / %d technical, want 12/4", personas, technical)
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	s := NewService(zerolog.Nop())
	in := testInput()

	first := s.Evaluate(in)
	second := s.Evaluate(in)

	for i := range first {
		if first[i] != second[i] {
			t.Errorf("vote %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestVoteFromScore(t *testing.T) {
	tests := []struct {
		score   float64
		wantRec domain.Recommendation
	}{
		{0.9, domain.RecommendationBuy},
		{0.70, domain.RecommendationBuy},
		{0.6, domain.RecommendationHold},
		{0.45, domain.RecommendationHold},
		{0.3, domain.RecommendationSell},
		{0.25, domain.RecommendationSell},
		{0.1, domain.RecommendationAvoid},
		{0.0, domain.RecommendationAvoid},
	}

	for _, tt := range tests {
		v := voteFromScore("test", domain.VoteCategoryPersona, domain.WeightPersonaAgent, tt.score)
		if v.Recommendation != tt.wantRec {
			t.Errorf("voteFromScore(%v) = %s, want %s", tt.score, v.Recommendation, tt.wantRec)
		}
	}
}

func TestVoteFromScoreConfidenceGrowsWithConviction(t *testing.T) {
	neutral := voteFromScore("n", domain.VoteCategoryPersona, domain.WeightPersonaAgent, 0.5)
	strong := voteFromScore("s", domain.VoteCategoryPersona, domain.WeightPersonaAgent, 0.95)

	if neutral.Confidence != 40 {
		t.Errorf("neutral Confidence = %v, want 40", neutral.Confidence)
	}
	if strong.Confidence <= neutral.Confidence {
		t.Errorf("strong Confidence = %v, want > %v", strong.Confidence, neutral.Confidence)
	}
}

func TestAverageScore(t *testing.T) {
	votes := []domain.AgentVote{
		{Recommendation: domain.RecommendationBuy, Confidence: 80},  // 80
		{Recommendation: domain.RecommendationHold, Confidence: 60}, // 30
		{Recommendation: domain.RecommendationSell, Confidence: 50}, // 10
		{Recommendation: domain.RecommendationAvoid, Confidence: 90},
	}

	if got := AverageScore(votes); got != 30 {
		t.Errorf("AverageScore = %v, want 30", got)
	}
	if got := AverageScore(nil); got != 0 {
		t.Errorf("AverageScore(nil) = %v, want 0", got)
	}
}

func TestTechnicalVotesNeutralWithoutHistory(t *testing.T) {
	s := NewService(zerolog.Nop())

	votes := s.technicalVotes(nil)

	if len(votes) != 4 {
		t.Fatalf("got %d technical votes, want 4", len(votes))
	}
	for _, v := range votes {
		if v.Recommendation != domain.RecommendationHold {
			t.Errorf("%s: Recommendation = %s, want HOLD for missing history", v.Agent, v.Recommendation)
		}
	}
}
