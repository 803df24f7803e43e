package valuation

import (
	"fmt"
	"math"

	"github.com/tavendale/equity-council/internal/domain"
	"github.com/tavendale/equity-council/internal/modules/growth"
)

// comparableMethod values the security on a justified multiple: a
// return-on-equity-anchored price-to-book when book value is available,
// otherwise a growth-adjusted price-to-earnings on TTM EPS. Estimated
// (non-reported) ratios never enter the computation.
func comparableMethod(fd *domain.FinancialData, ga growth.Analysis) Method {
	price := fd.Price.Current

	revGrowth := 0.0
	if rg, ok := ga.Metrics["revenue"]; ok && !rg.Flags.AnomalousValues {
		revGrowth = rg.GrowthRate
	}

	bvps := fd.BalanceSheet.BookValuePerShare
	if bvps == 0 && fd.Profile.DilutedSharesOutstanding > 0 {
		bvps = fd.BalanceSheet.TotalEquity / fd.Profile.DilutedSharesOutstanding
	}

	roe := 0.0
	roeKnown := false
	if fd.Ratios.Reported("roe") && fd.Ratios.ROE != 0 {
		roe = fd.Ratios.ROE
		roeKnown = true
	}

	if bvps > 0 && roeKnown {
		// Justified P/B anchored on ROE: 10% ROE supports book value,
		// proportionally more above it, adjusted for revenue growth.
		fairPB := roe / 10.0
		fairPB = math.Max(0.5, math.Min(8.0, fairPB))
		fairPB *= 1 + revGrowth/200

		m := Method{
			Name:           MethodComparable,
			IntrinsicValue: fairPB * bvps,
			Confidence:     0.6,
			Assumptions: []string{
				fmt.Sprintf("justified P/B %.2f from ROE %.1f%%", fairPB, roe),
				fmt.Sprintf("revenue growth adjustment %.1f%%", revGrowth),
			},
		}
		if roe < 0 {
			m.Confidence = 0.3
			m.Limitations = append(m.Limitations, "negative return on equity")
		}
		classify(&m, price)
		return m
	}

	// P/E path on trailing EPS.
	epsTTM := trailingEPS(fd)
	if epsTTM > 0 {
		fairPE := 8 + revGrowth
		fairPE = math.Max(5, math.Min(40, fairPE))

		m := Method{
			Name:           MethodComparable,
			IntrinsicValue: fairPE * epsTTM,
			Confidence:     0.5,
			Assumptions: []string{
				fmt.Sprintf("fair P/E %.1f from revenue growth %.1f%%", fairPE, revGrowth),
			},
		}
		classify(&m, price)
		return m
	}

	return unableToValue(MethodComparable, "no book value or positive trailing EPS")
}

// trailingEPS sums EPS over the four most recent quarters, falling back to
// the latest annual EPS.
func trailingEPS(fd *domain.FinancialData) float64 {
	var sum float64
	n := 0
	for _, q := range fd.QuarterlyFinancials {
		if q.EPS != 0 {
			sum += q.EPS
			n++
		}
		if n == 4 {
			return sum
		}
	}
	if n > 0 {
		return sum
	}
	if a := fd.LatestAnnual(); a != nil {
		return a.EPS
	}
	return 0
}
