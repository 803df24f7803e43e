package domain

// VoteCategory identifies which class of agent cast a vote.
type VoteCategory string

const (
	VoteCategoryPersona   VoteCategory = "persona"
	VoteCategoryTechnical VoteCategory = "technical"
	VoteCategoryRisk      VoteCategory = "risk"
)

// Nominal vote weights per agent category. With a full roster (12 personas,
// 4 technical, 1 risk manager) these sum to ~1.08 rather than 1.0; the
// consensus manager always normalizes by the actual total weight present, so
// the sum is intentionally left as-is.
const (
	WeightPersonaAgent   = 0.08
	WeightTechnicalAgent = 0.02
	WeightRiskManager    = 0.04
)

// AgentVote is one agent's recommendation with its confidence and nominal
// weight.
type AgentVote struct {
	Agent          string         `json:"agent"`
	Category       VoteCategory   `json:"category"`
	Recommendation Recommendation `json:"recommendation"`
	Confidence     float64        `json:"confidence"` // 0-100
	Weight         float64        `json:"weight"`
}

// Score converts an agent vote to a 0-100 conviction score used by the risk
// manager's expected-return input. BUY maps to the vote's confidence, HOLD to
// half of it, SELL and AVOID to a fraction approaching zero.
func (v AgentVote) Score() float64 {
	switch v.Recommendation {
	case RecommendationBuy:
		return v.Confidence
	case RecommendationHold:
		return v.Confidence * 0.5
	case RecommendationSell:
		return v.Confidence * 0.2
	default:
		return 0
	}
}
