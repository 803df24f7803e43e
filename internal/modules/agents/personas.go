package agents

import (
	"math"

	"github.com/tavendale/equity-council/internal/modules/valuation"
	"github.com/tavendale/equity-council/pkg/formulas"
)

// persona is a deterministic investor archetype. Each scores the same
// evidence with its own weighting; the LLM narrative layer only writes prose
// around these votes, it never changes them.
type persona struct {
	name  string
	score func(Input) float64
}

func personaRoster() []persona {
	return []persona{
		{"value_investor", scoreValueInvestor},
		{"growth_investor", scoreGrowthInvestor},
		{"quality_investor", scoreQualityInvestor},
		{"dividend_investor", scoreDividendInvestor},
		{"contrarian", scoreContrarian},
		{"garp_investor", scoreGARP},
		{"deep_value", scoreDeepValue},
		{"turnaround_hunter", scoreTurnaround},
		{"conservative_allocator", scoreConservative},
		{"cashflow_purist", scoreCashflowPurist},
		{"macro_skeptic", scoreMacroSkeptic},
		{"earnings_quality", scoreEarningsQuality},
	}
}

// scoreValueInvestor: valuation upside (50%), multiple cheapness (30%),
// balance-sheet strength (20%).
func scoreValueInvestor(in Input) float64 {
	upside := upsideScore(in.Valuation)

	cheap := 0.5
	if in.Data.Ratios.Reported("pe") && in.Data.Ratios.PE > 0 {
		// P/E 10 or below reads as cheap, 30+ as expensive.
		cheap = formulas.Clamp(1.5-in.Data.Ratios.PE/20, 0, 1)
	}

	strength := balanceSheetScore(in)

	return round3(upside*0.50 + cheap*0.30 + strength*0.20)
}

// scoreGrowthInvestor: revenue growth (60%), earnings growth (40%).
func scoreGrowthInvestor(in Input) float64 {
	rev := growthScore(in, "revenue")
	earn := growthScore(in, "netIncome")
	return round3(rev*0.60 + earn*0.40)
}

// scoreQualityInvestor: return on equity (40%), margins (40%), leverage (20%).
func scoreQualityInvestor(in Input) float64 {
	roe := 0.5
	if in.Data.Ratios.Reported("roe") && in.Data.Ratios.ROE != 0 {
		roe = formulas.Clamp(in.Data.Ratios.ROE/30, 0, 1)
	}

	margin := 0.5
	if in.Data.Ratios.Reported("netMargin") && in.Data.Ratios.NetMargin != 0 {
		margin = formulas.Clamp(0.5+in.Data.Ratios.NetMargin/40, 0, 1)
	}

	return round3(roe*0.40 + margin*0.40 + leverageScore(in)*0.20)
}

// scoreDividendInvestor: yield (50%), payout support from profitability
// (30%), leverage (20%).
func scoreDividendInvestor(in Input) float64 {
	yield := 0.0
	if in.Data.Ratios.Reported("dividendYield") {
		// 4% yield scores full marks.
		yield = formulas.Clamp(in.Data.Ratios.DividendYield/4, 0, 1)
	}

	support := 0.5
	if in.Data.Ratios.Reported("netMargin") {
		if in.Data.Ratios.NetMargin > 0 {
			support = 0.8
		} else if in.Data.Ratios.NetMargin < 0 {
			support = 0.2
		}
	}

	return round3(yield*0.50 + support*0.30 + leverageScore(in)*0.20)
}

// scoreContrarian: undervaluation (60%) plus depressed recent growth (40%) -
// weakness the market may be over-punishing.
func scoreContrarian(in Input) float64 {
	upside := upsideScore(in.Valuation)

	depressed := 0.5
	if g, ok := in.Growth.Metrics["revenue"]; ok && !g.Flags.AnomalousValues {
		// Negative growth raises contrarian interest only when the valuation
		// bracket says the price already reflects worse.
		if g.GrowthRate < 0 && upside > 0.6 {
			depressed = 0.8
		} else if g.GrowthRate < 0 {
			depressed = 0.3
		}
	}

	return round3(upside*0.60 + depressed*0.40)
}

// scoreGARP: growth at a reasonable price - geometric blend of growth and
// value evidence.
func scoreGARP(in Input) float64 {
	g := growthScore(in, "revenue")
	v := upsideScore(in.Valuation)
	return round3(math.Sqrt(formulas.Clamp(g*v, 0, 1)))
}

// scoreDeepValue: price against tangible book (70%), equity cushion (30%).
func scoreDeepValue(in Input) float64 {
	priceToBook := 0.5
	tbvps := in.Data.BalanceSheet.TangibleBookValuePerShare
	if tbvps > 0 && in.Data.Price.Current > 0 {
		// Below tangible book scores high, 3x book and above scores zero.
		ratio := in.Data.Price.Current / tbvps
		priceToBook = formulas.Clamp(1.5-ratio/2, 0, 1)
	}

	return round3(priceToBook*0.70 + balanceSheetScore(in)*0.30)
}

// scoreTurnaround: free-cash-flow trajectory (50%), upside (30%), quality
// flags penalty (20%).
func scoreTurnaround(in Input) float64 {
	fcf := growthScore(in, "freeCashFlow")
	upside := upsideScore(in.Valuation)
	clean := flagPenaltyScore(in)
	return round3(fcf*0.50 + upside*0.30 + clean*0.20)
}

// scoreConservative: low leverage (40%), liquidity (30%), fair valuation
// preference (30%) - punishes both directions of mispricing.
func scoreConservative(in Input) float64 {
	liquidity := 0.5
	if in.Data.Ratios.Reported("currentRatio") && in.Data.Ratios.CurrentRatio > 0 {
		liquidity = formulas.Clamp(in.Data.Ratios.CurrentRatio/2, 0, 1)
	}

	fair := 0.5
	switch in.Valuation.OverallAssessment {
	case valuation.FairlyValued:
		fair = 0.9
	case valuation.Undervalued:
		fair = 0.7
	case valuation.Overvalued:
		fair = 0.2
	case valuation.UnableToValue:
		fair = 0.3
	}

	return round3(leverageScore(in)*0.40 + liquidity*0.30 + fair*0.30)
}

// scoreCashflowPurist: FCF growth (50%), positive TTM FCF (30%), upside (20%).
func scoreCashflowPurist(in Input) float64 {
	g := growthScore(in, "freeCashFlow")

	positive := 0.5
	if fcf, ok := in.Growth.Metrics["freeCashFlow"]; ok {
		if fcf.CurrentValue > 0 {
			positive = 0.9
		} else if fcf.CurrentValue < 0 {
			positive = 0.1
		}
	}

	return round3(g*0.50 + positive*0.30 + upsideScore(in.Valuation)*0.20)
}

// scoreMacroSkeptic: starts neutral and mostly subtracts - data anomalies and
// weak method agreement read as reasons to stand aside.
func scoreMacroSkeptic(in Input) float64 {
	score := 0.55

	score -= float64(countIngestionFlags(in)) * 0.06

	switch in.Valuation.MethodAgreement {
	case valuation.AgreementStrong:
		score += 0.15
	case valuation.AgreementDivergent:
		score -= 0.10
	case valuation.AgreementWeak:
		score -= 0.20
	}

	if in.Growth.Availability.Flags.TTMNotAvailable {
		score -= 0.05
	}

	return round3(formulas.Clamp(score, 0, 1))
}

// scoreEarningsQuality: agreement between reported earnings and cash flow
// (60%), margin sanity (40%). Wide accrual gaps read as manufactured
// earnings.
func scoreEarningsQuality(in Input) float64 {
	accrual := 0.5
	ni, niOK := in.Growth.Metrics["netIncome"]
	fcf, fcfOK := in.Growth.Metrics["freeCashFlow"]
	if niOK && fcfOK && ni.CurrentValue > 0 {
		ratio := fcf.CurrentValue / ni.CurrentValue
		switch {
		case ratio >= 0.8:
			accrual = 0.9
		case ratio >= 0.5:
			accrual = 0.65
		case ratio >= 0:
			accrual = 0.4
		default:
			accrual = 0.15
		}
	}

	sanity := 0.5
	if in.Data.Ratios.Reported("netMargin") && in.Data.Ratios.Reported("grossMargin") {
		if in.Data.Ratios.NetMargin > in.Data.Ratios.GrossMargin && in.Data.Ratios.GrossMargin > 0 {
			// Net margin above gross margin is an accounting red flag.
			sanity = 0.1
		} else if in.Data.Ratios.NetMargin > 0 {
			sanity = 0.7
		}
	}

	return round3(accrual*0.60 + sanity*0.40)
}

// upsideScore maps the valuation bracket midpoint's upside onto 0-1:
// 0% upside is neutral, +20% and beyond approaches 1, -20% approaches 0.
func upsideScore(v valuation.Findings) float64 {
	if v.OverallAssessment == valuation.UnableToValue || v.CurrentPrice <= 0 {
		return 0.4
	}
	upside := (v.Consensus.Midpoint - v.CurrentPrice) / v.CurrentPrice
	return formulas.Clamp(0.5+upside*2.5, 0, 1)
}

// growthScore maps a metric's growth rate onto 0-1; 0% is neutral, +20% and
// beyond approaches 1. Anomalous results stay neutral.
func growthScore(in Input, metric string) float64 {
	g, ok := in.Growth.Metrics[metric]
	if !ok || g.Flags.AnomalousValues {
		return 0.5
	}
	return formulas.Clamp(0.5+g.GrowthRate/40, 0, 1)
}

// leverageScore rewards low debt-to-equity; 200 and above scores zero.
func leverageScore(in Input) float64 {
	if !in.Data.Ratios.Reported("debtToEquity") {
		return 0.5
	}
	de := math.Min(200, math.Max(0, in.Data.Ratios.DebtToEquity))
	return formulas.Clamp(1-de/200, 0, 1)
}

// balanceSheetScore blends equity cushion and cash against debt.
func balanceSheetScore(in Input) float64 {
	bs := in.Data.BalanceSheet
	if bs.TotalAssets == 0 && bs.TotalEquity == 0 {
		return 0.5
	}
	if bs.TotalEquity <= 0 {
		return 0.1
	}

	score := 0.5
	if bs.TotalAssets > 0 {
		score = formulas.Clamp(bs.TotalEquity/bs.TotalAssets*1.5, 0, 1)
	}
	if bs.Cash > bs.TotalDebt {
		score = formulas.Clamp(score+0.2, 0, 1)
	}
	return score
}

// flagPenaltyScore converts ingestion anomalies into a cleanliness score.
func flagPenaltyScore(in Input) float64 {
	return formulas.Clamp(1-float64(countIngestionFlags(in))*0.15, 0, 1)
}

func countIngestionFlags(in Input) int {
	f := in.Data.IngestionFlags
	count := 0
	for _, set := range []bool{
		f.DebtToEquityAnomalous, f.PENegative, f.MarketCapZero,
		f.PBAnomalous, f.PEAnomalous, f.ROENegative, f.CurrentRatioAnomalous,
	} {
		if set {
			count++
		}
	}
	return count
}
