// Package signals turns a consensus decision and its risk findings into an
// actionable trading signal, and rolls per-security signals up to portfolio
// exposure.
package signals

import (
	"github.com/rs/zerolog"

	"github.com/tavendale/equity-council/internal/domain"
	"github.com/tavendale/equity-council/internal/modules/consensus"
	"github.com/tavendale/equity-council/internal/modules/risk"
)

// Timeframe buckets a signal by its strength.
type Timeframe string

const (
	TimeframeLong   Timeframe = "LONG_TERM"
	TimeframeMedium Timeframe = "MEDIUM_TERM"
	TimeframeShort  Timeframe = "SHORT_TERM"
)

// Entry offsets relative to the current price: buys wait for a small dip,
// sells for a small pop.
const (
	buyEntryFactor  = 0.98
	sellEntryFactor = 1.02
)

// TradingSignal is the actionable output for one security.
type TradingSignal struct {
	Ticker                string                `json:"ticker"`
	Signal                domain.Recommendation `json:"signal"`
	EntryPrice            float64               `json:"entryPrice"`
	StopLoss              float64               `json:"stopLoss"`
	TargetPrice           float64               `json:"targetPrice"`
	PositionSizePercent   float64               `json:"positionSizePercent"`
	ExpectedReturnPercent float64               `json:"expectedReturnPercent"`
	MaxRiskPercent        float64               `json:"maxRiskPercent"`
	Strength              float64               `json:"strength"` // 0-100
	Timeframe             Timeframe             `json:"timeframe"`
}

// PortfolioSummary aggregates exposure across actionable signals. HOLD and
// AVOID carry no new exposure, so only BUY and SELL contribute.
type PortfolioSummary struct {
	Signals              []TradingSignal `json:"signals"`
	BuyCount             int             `json:"buyCount"`
	HoldCount            int             `json:"holdCount"`
	SellCount            int             `json:"sellCount"`
	AvoidCount           int             `json:"avoidCount"`
	TotalExposurePercent float64         `json:"totalExposurePercent"`
	AggregateRiskPercent float64         `json:"aggregateRiskPercent"`
}

// Generator builds trading signals from consensus and risk findings.
type Generator struct {
	log zerolog.Logger
}

// NewGenerator creates a signal generator.
func NewGenerator(log zerolog.Logger) *Generator {
	return &Generator{
		log: log.With().Str("module", "signals").Logger(),
	}
}

// Generate derives the trading signal for one security.
func (g *Generator) Generate(symbol string, price float64, cons consensus.Result, riskOut risk.Output) TradingSignal {
	sig := TradingSignal{
		Ticker:              symbol,
		Signal:              cons.FinalRecommendation,
		EntryPrice:          entryPrice(cons.FinalRecommendation, price),
		StopLoss:            riskOut.Sizing.StopLossLevel,
		TargetPrice:         riskOut.Sizing.TakeProfitLevel,
		PositionSizePercent: riskOut.Sizing.RecommendedPercent,
		// Max loss at the stop, as a percent of the position.
		MaxRiskPercent:        maxRiskPercent(price, riskOut.Sizing.StopLossLevel),
		ExpectedReturnPercent: riskOut.Metrics.ExpectedReturn * 100,
		Strength:              (cons.WeightedScore + cons.ConsensusStrength) / 2,
	}
	sig.Timeframe = timeframe(sig.Strength)

	// AVOID carries no position.
	if sig.Signal == domain.RecommendationAvoid {
		sig.PositionSizePercent = 0
	}

	g.log.Debug().
		Str("symbol", symbol).
		Str("signal", string(sig.Signal)).
		Float64("entry", sig.EntryPrice).
		Float64("strength", sig.Strength).
		Str("timeframe", string(sig.Timeframe)).
		Msg("Signal generated")

	return sig
}

// Summarize rolls individual signals up into portfolio exposure. Exposure and
// aggregate risk count only BUY and SELL signals.
func (g *Generator) Summarize(sigs []TradingSignal) PortfolioSummary {
	summary := PortfolioSummary{Signals: sigs}
	for _, s := range sigs {
		switch s.Signal {
		case domain.RecommendationBuy:
			summary.BuyCount++
		case domain.RecommendationHold:
			summary.HoldCount++
		case domain.RecommendationSell:
			summary.SellCount++
		case domain.RecommendationAvoid:
			summary.AvoidCount++
		}

		if s.Signal == domain.RecommendationBuy || s.Signal == domain.RecommendationSell {
			summary.TotalExposurePercent += s.PositionSizePercent
			summary.AggregateRiskPercent += s.PositionSizePercent * s.MaxRiskPercent / 100
		}
	}

	g.log.Info().
		Int("signals", len(sigs)).
		Float64("total_exposure_pct", summary.TotalExposurePercent).
		Float64("aggregate_risk_pct", summary.AggregateRiskPercent).
		Msg("Portfolio summarized")

	return summary
}

func entryPrice(rec domain.Recommendation, price float64) float64 {
	switch rec {
	case domain.RecommendationBuy:
		return price * buyEntryFactor
	case domain.RecommendationSell:
		return price * sellEntryFactor
	default:
		return price
	}
}

func maxRiskPercent(price, stopLoss float64) float64 {
	if price <= 0 || stopLoss >= price {
		return 0
	}
	return (price - stopLoss) / price * 100
}

func timeframe(strength float64) Timeframe {
	switch {
	case strength > 75:
		return TimeframeLong
	case strength > 50:
		return TimeframeMedium
	default:
		return TimeframeShort
	}
}
