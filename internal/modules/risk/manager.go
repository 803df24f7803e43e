package risk

import (
	"github.com/rs/zerolog"

	"github.com/tavendale/equity-council/internal/domain"
	"github.com/tavendale/equity-council/pkg/formulas"
)

// Rating buckets annualized volatility into monotonic, non-overlapping tiers.
type Rating string

const (
	RatingLow      Rating = "LOW"
	RatingMedium   Rating = "MEDIUM"
	RatingHigh     Rating = "HIGH"
	RatingCritical Rating = "CRITICAL"
)

// Single-factor market assumptions. These are documented simplifications,
// not fitted parameters.
const (
	assumedMarketVolatility = 0.15
	assumedCorrelation      = 0.7
	riskFreeRate            = 0.04
	expectedReturnCeiling   = 0.20
)

// Metrics are the volatility-derived risk measures for one security.
type Metrics struct {
	Volatility     float64 `json:"volatility"`
	Beta           float64 `json:"beta"`
	Sharpe         float64 `json:"sharpe"`
	MaxDrawdown    float64 `json:"maxDrawdown"`
	VaR95          float64 `json:"var95"`
	CVaR95         float64 `json:"cvar95"`
	ExpectedReturn float64 `json:"expectedReturn"`
	Rating         Rating  `json:"riskRating"`
}

// PositionSizing holds recommended exposure and exit levels.
type PositionSizing struct {
	RecommendedPercent float64 `json:"recommendedPercent"`
	MaxPercent         float64 `json:"maxPercent"`
	MinPercent         float64 `json:"minPercent"`
	StopLossLevel      float64 `json:"stopLossLevel"`
	TakeProfitLevel    float64 `json:"takeProfitLevel"`
	RiskRewardRatio    float64 `json:"riskRewardRatio"`
}

// Output is the risk manager's full finding for one security.
type Output struct {
	Symbol  string           `json:"symbol"`
	Metrics Metrics          `json:"metrics"`
	Sizing  PositionSizing   `json:"positionSizing"`
	Vote    domain.AgentVote `json:"vote"`
}

// Manager derives risk metrics and position sizing from a price history and
// the average upstream agent score.
type Manager struct {
	log zerolog.Logger
}

// NewManager creates a risk manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		log: log.With().Str("module", "risk").Logger(),
	}
}

// Assess computes risk metrics for a security. avgAgentScore is the 0-100
// mean score across upstream persona and technical agents.
func (m *Manager) Assess(symbol string, price float64, priceHistory []float64, avgAgentScore float64) Output {
	returns := formulas.CalculateReturns(priceHistory)
	volatility := formulas.AnnualizedVolatility(returns)

	// Single-factor beta proxy against an assumed market volatility and
	// correlation.
	beta := volatility / assumedMarketVolatility * assumedCorrelation

	expectedReturn := avgAgentScore / 100 * expectedReturnCeiling

	metrics := Metrics{
		Volatility:     volatility,
		Beta:           beta,
		ExpectedReturn: expectedReturn,
		Sharpe:         formulas.Sharpe(expectedReturn, riskFreeRate, volatility),
		VaR95:          formulas.ValueAtRisk95(expectedReturn, volatility),
		CVaR95:         formulas.ConditionalValueAtRisk95(expectedReturn, volatility),
		Rating:         rate(volatility),
	}

	if dd := formulas.CalculateMaxDrawdown(priceHistory); dd != nil {
		metrics.MaxDrawdown = *dd
	}

	out := Output{
		Symbol:  symbol,
		Metrics: metrics,
		Sizing:  size(price, volatility, avgAgentScore),
		Vote:    vote(metrics.Rating),
	}

	m.log.Debug().
		Str("symbol", symbol).
		Float64("volatility", volatility).
		Str("rating", string(metrics.Rating)).
		Float64("recommended_pct", out.Sizing.RecommendedPercent).
		Msg("Risk assessed")

	return out
}

// rate maps volatility onto the rating tiers.
func rate(volatility float64) Rating {
	switch {
	case volatility > 0.5:
		return RatingCritical
	case volatility > 0.35:
		return RatingHigh
	case volatility > 0.2:
		return RatingMedium
	default:
		return RatingLow
	}
}

// size derives position sizing from volatility and conviction. Base size is
// inverse to volatility, clamped to 1-5%, then scaled by the agent score.
// Stop and target use an ATR proxy (volatility × price) with a deliberate
// 2:3 risk skew.
func size(price, volatility, avgAgentScore float64) PositionSizing {
	base := 5.0
	if volatility > 0 {
		base = formulas.Clamp(100/volatility/100, 1, 5)
	}

	recommended := base * avgAgentScore / 100
	sizing := PositionSizing{
		RecommendedPercent: recommended,
		MaxPercent:         min(10, recommended*2),
		MinPercent:         max(0.5, recommended*0.5),
	}

	atr := volatility * price
	sizing.StopLossLevel = price - 2*atr
	sizing.TakeProfitLevel = price + 3*atr
	if price-sizing.StopLossLevel > 0 {
		sizing.RiskRewardRatio = (sizing.TakeProfitLevel - price) / (price - sizing.StopLossLevel)
	}

	return sizing
}

// vote converts the risk rating into the risk manager's consensus vote.
func vote(rating Rating) domain.AgentVote {
	v := domain.AgentVote{
		Agent:    "risk_manager",
		Category: domain.VoteCategoryRisk,
		Weight:   domain.WeightRiskManager,
	}
	switch rating {
	case RatingCritical:
		v.Recommendation = domain.RecommendationAvoid
		v.Confidence = 90
	case RatingHigh:
		v.Recommendation = domain.RecommendationSell
		v.Confidence = 70
	case RatingMedium:
		v.Recommendation = domain.RecommendationHold
		v.Confidence = 60
	default:
		v.Recommendation = domain.RecommendationBuy
		v.Confidence = 60
	}
	return v
}
