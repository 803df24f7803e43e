package agents

import (
	"github.com/tavendale/equity-council/internal/domain"
	"github.com/tavendale/equity-council/pkg/formulas"
)

// technicalVotes runs the four technical agents over the daily closing
// prices. Agents with insufficient history vote neutral at low confidence
// rather than dropping out, so the roster size stays stable.
func (s *Service) technicalVotes(closes []float64) []domain.AgentVote {
	return []domain.AgentVote{
		voteFromScore("trend_follower", domain.VoteCategoryTechnical, domain.WeightTechnicalAgent, scoreTrend(closes)),
		voteFromScore("rsi_momentum", domain.VoteCategoryTechnical, domain.WeightTechnicalAgent, scoreRSI(closes)),
		voteFromScore("macd_crossover", domain.VoteCategoryTechnical, domain.WeightTechnicalAgent, scoreMACD(closes)),
		voteFromScore("volatility_regime", domain.VoteCategoryTechnical, domain.WeightTechnicalAgent, scoreVolatilityRegime(closes)),
	}
}

// scoreTrend compares price to the 50- and 200-day moving averages.
func scoreTrend(closes []float64) float64 {
	if len(closes) == 0 {
		return 0.5
	}
	price := closes[len(closes)-1]

	sma50 := formulas.CalculateSMA(closes, 50)
	sma200 := formulas.CalculateSMA(closes, 200)

	switch {
	case sma50 == nil:
		return 0.5
	case sma200 == nil:
		if price > *sma50 {
			return 0.65
		}
		return 0.35
	case price > *sma50 && *sma50 > *sma200:
		return 0.85
	case price > *sma200:
		return 0.65
	case price < *sma50 && *sma50 < *sma200:
		return 0.15
	default:
		return 0.35
	}
}

// scoreRSI reads the 14-day RSI, oversold is an entry and overbought an
// exit, then tilts the score by 90-day momentum.
func scoreRSI(closes []float64) float64 {
	rsi := formulas.CalculateRSI(closes, 14)
	if rsi == nil {
		return 0.5
	}

	var score float64
	switch {
	case *rsi < 30:
		score = 0.8
	case *rsi < 45:
		score = 0.65
	case *rsi <= 60:
		score = 0.5
	case *rsi <= 70:
		score = 0.35
	default:
		score = 0.2
	}

	if mom := formulas.CalculateMomentum(closes, 90); mom != nil {
		if *mom > 0.10 {
			score += 0.1
		} else if *mom < -0.10 {
			score -= 0.1
		}
	}

	return formulas.Clamp(score, 0, 1)
}

// scoreMACD reads the MACD line against its signal line.
func scoreMACD(closes []float64) float64 {
	macd, signal := formulas.CalculateMACD(closes)
	if macd == nil || signal == nil {
		return 0.5
	}
	switch {
	case *macd > *signal && *macd > 0:
		return 0.8
	case *macd > *signal:
		return 0.65
	case *macd < *signal && *macd < 0:
		return 0.2
	default:
		return 0.35
	}
}

// scoreVolatilityRegime penalizes stretched, volatile charts: deep drawdowns
// from the 52-week high combined with high realized volatility.
func scoreVolatilityRegime(closes []float64) float64 {
	vol := formulas.CalculateVolatility(closes)
	dist := formulas.CalculateDistanceFrom52WeekHigh(closes)
	if vol == nil || dist == nil {
		return 0.5
	}

	score := 0.6
	if *vol > 0.5 {
		score -= 0.35
	} else if *vol > 0.3 {
		score -= 0.15
	}

	if *dist > 0.4 {
		score -= 0.15
	} else if *dist < 0.05 {
		score += 0.1
	}

	return formulas.Clamp(score, 0, 1)
}
