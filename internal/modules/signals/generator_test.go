package signals

import (
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tavendale/equity-council/internal/domain"
	"github.com/tavendale/equity-council/internal/modules/consensus"
	"github.com/tavendale/equity-council/internal/modules/risk"
)

func approx(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func testRisk() risk.Output {
	return risk.Output{
		Metrics: risk.Metrics{ExpectedReturn: 0.14, Volatility: 0.25},
		Sizing: risk.PositionSizing{
			RecommendedPercent: 3.0,
			StopLossLevel:      50,
			TakeProfitLevel:    175,
		},
	}
}

func TestGenerateEntryPrices(t *testing.T) {
	g := NewGenerator(zerolog.Nop())

	tests := []struct {
		rec       domain.Recommendation
		wantEntry float64
	}{
		{domain.RecommendationBuy, 98},   // wait for a 2% dip
		{domain.RecommendationSell, 102}, // wait for a 2% pop
		{domain.RecommendationHold, 100},
		{domain.RecommendationAvoid, 100},
	}

	for _, tt := range tests {
		cons := consensus.Result{FinalRecommendation: tt.rec, WeightedScore: 60, ConsensusStrength: 60}
		sig := g.Generate("TEST", 100, cons, testRisk())
		if !approx(sig.EntryPrice, tt.wantEntry, 1e-9) {
			t.Errorf("%s: EntryPrice = %v, want %v", tt.rec, sig.EntryPrice, tt.wantEntry)
		}
	}
}

func TestGenerateCarriesRiskLevels(t *testing.T) {
	g := NewGenerator(zerolog.Nop())
	cons := consensus.Result{
		FinalRecommendation: domain.RecommendationBuy,
		WeightedScore:       80,
		ConsensusStrength:   70,
	}

	sig := g.Generate("TEST", 100, cons, testRisk())

	if sig.StopLoss != 50 || sig.TargetPrice != 175 {
		t.Errorf("stop/target = %v/%v, want 50/175", sig.StopLoss, sig.TargetPrice)
	}
	if sig.PositionSizePercent != 3.0 {
		t.Errorf("PositionSizePercent = %v, want 3.0", sig.PositionSizePercent)
	}
	// Stop 50% below price caps the loss at 50% of the position.
	if !approx(sig.MaxRiskPercent, 50, 1e-9) {
		t.Errorf("MaxRiskPercent = %v, want 50", sig.MaxRiskPercent)
	}
	if !approx(sig.ExpectedReturnPercent, 14, 1e-9) {
		t.Errorf("ExpectedReturnPercent = %v, want 14", sig.ExpectedReturnPercent)
	}
	if !approx(sig.Strength, 75, 1e-9) {
		t.Errorf("Strength = %v, want 75", sig.Strength)
	}
}

func TestGenerateTimeframes(t *testing.T) {
	g := NewGenerator(zerolog.Nop())

	tests := []struct {
		weighted, strength float64
		want               Timeframe
	}{
		{90, 80, TimeframeLong},   // strength 85
		{60, 60, TimeframeMedium}, // strength 60
		{40, 40, TimeframeShort},  // strength 40
		{50, 50, TimeframeShort},  // strength 50 is not > 50
	}

	for _, tt := range tests {
		cons := consensus.Result{
			FinalRecommendation: domain.RecommendationHold,
			WeightedScore:       tt.weighted,
			ConsensusStrength:   tt.strength,
		}
		sig := g.Generate("TEST", 100, cons, testRisk())
		if sig.Timeframe != tt.want {
			t.Errorf("strength %v: Timeframe = %s, want %s", sig.Strength, sig.Timeframe, tt.want)
		}
	}
}

func TestGenerateAvoidHasNoPosition(t *testing.T) {
	g := NewGenerator(zerolog.Nop())
	cons := consensus.Result{FinalRecommendation: domain.RecommendationAvoid, WeightedScore: 10, ConsensusStrength: 80}

	sig := g.Generate("TEST", 100, cons, testRisk())

	if sig.PositionSizePercent != 0 {
		t.Errorf("PositionSizePercent = %v, want 0 for AVOID", sig.PositionSizePercent)
	}
}

func TestSummarizeCountsOnlyActionableExposure(t *testing.T) {
	g := NewGenerator(zerolog.Nop())

	sigs := []TradingSignal{
		{Signal: domain.RecommendationBuy, PositionSizePercent: 3, MaxRiskPercent: 20},
		{Signal: domain.RecommendationSell, PositionSizePercent: 2, MaxRiskPercent: 10},
		{Signal: domain.RecommendationHold, PositionSizePercent: 4, MaxRiskPercent: 30},
		{Signal: domain.RecommendationAvoid, PositionSizePercent: 0, MaxRiskPercent: 0},
	}

	summary := g.Summarize(sigs)

	if summary.BuyCount != 1 || summary.SellCount != 1 || summary.HoldCount != 1 || summary.AvoidCount != 1 {
		t.Errorf("counts = %+v", summary)
	}
	// HOLD and AVOID add no new exposure.
	if !approx(summary.TotalExposurePercent, 5, 1e-9) {
		t.Errorf("TotalExposurePercent = %v, want 5", summary.TotalExposurePercent)
	}
	// 3 * 0.20 + 2 * 0.10 = 0.8.
	if !approx(summary.AggregateRiskPercent, 0.8, 1e-9) {
		t.Errorf("AggregateRiskPercent = %v, want 0.8", summary.AggregateRiskPercent)
	}
}

func TestMaxRiskPercentEdgeCases(t *testing.T) {
	if got := maxRiskPercent(0, 10); got != 0 {
		t.Errorf("zero price: got %v, want 0", got)
	}
	if got := maxRiskPercent(100, 110); got != 0 {
		t.Errorf("stop above price: got %v, want 0", got)
	}
}
