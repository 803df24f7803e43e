package valuation

import (
	"fmt"
	"math"

	"github.com/tavendale/equity-council/internal/domain"
	"github.com/tavendale/equity-council/internal/modules/growth"
)

const (
	ddmDiscountRate  = 0.09
	ddmMaxGrowth     = 0.05
	ddmGrowthHaircut = 0.5
)

// ddmMethod applies a Gordon dividend-discount model. The dividend growth
// assumption is half the earnings growth, floored at zero and capped at 5% so
// the model stays below the discount rate.
func ddmMethod(fd *domain.FinancialData, ga growth.Analysis) Method {
	if !fd.Ratios.Reported("dividendYield") || fd.Ratios.DividendYield <= 0 {
		return unableToValue(MethodDDM, "no dividend data")
	}
	price := fd.Price.Current
	if price <= 0 {
		return unableToValue(MethodDDM, "no current price")
	}

	// Dividend per share implied by the yield.
	dividend := price * fd.Ratios.DividendYield / 100

	g := 0.0
	if ni, ok := ga.Metrics["netIncome"]; ok && !ni.Flags.AnomalousValues {
		g = ni.GrowthRate / 100 * ddmGrowthHaircut
	}
	g = math.Max(0, math.Min(ddmMaxGrowth, g))

	m := Method{
		Name:           MethodDDM,
		IntrinsicValue: dividend * (1 + g) / (ddmDiscountRate - g),
		Confidence:     0.55,
		Assumptions: []string{
			fmt.Sprintf("dividend %.2f/share from %.2f%% yield", dividend, fd.Ratios.DividendYield),
			fmt.Sprintf("dividend growth %.1f%%, discount rate %.1f%%", g*100, ddmDiscountRate*100),
		},
	}
	classify(&m, price)
	return m
}
