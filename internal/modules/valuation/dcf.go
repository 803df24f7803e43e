package valuation

import (
	"fmt"
	"math"

	"github.com/tavendale/equity-council/internal/domain"
	"github.com/tavendale/equity-council/internal/modules/growth"
)

// DCF assumptions. WACC and terminal growth are fixed policy constants, not
// fitted per company.
const (
	dcfWACC            = 0.09
	dcfTerminalGrowth  = 0.025
	dcfProjectionYears = 5
)

// dcfMethod projects five years of operating cash flow from the
// current-TTM-vs-prior-TTM cash-flow growth and discounts them plus a Gordon
// terminal value. Negative cash flow and negative growth propagate unclamped:
// hiding distress behind a floor would misstate the range.
func dcfMethod(fd *domain.FinancialData, ga growth.Analysis) Method {
	shares := fd.Profile.DilutedSharesOutstanding
	if shares <= 0 {
		return unableToValue(MethodDCF, "shares outstanding unavailable")
	}

	cf, ok := ga.Metrics["freeCashFlow"]
	if !ok || cf.CurrentValue == 0 {
		return unableToValue(MethodDCF, "no operating cash flow data")
	}

	baseCashFlow := cf.CurrentValue // billions
	confidence := 0.7

	m := Method{
		Name: MethodDCF,
		Assumptions: []string{
			fmt.Sprintf("WACC %.1f%%, terminal growth %.1f%%", dcfWACC*100, dcfTerminalGrowth*100),
			fmt.Sprintf("base cash flow %s", cf.CurrentPeriodLabel),
		},
	}

	growthRate := 0.0
	if cf.Flags.AnomalousValues {
		m.Limitations = append(m.Limitations, "cash flow growth not computable; projecting flat")
		confidence -= 0.2
	} else {
		growthRate = cf.GrowthRate / 100
		m.Assumptions = append(m.Assumptions, fmt.Sprintf("cash flow growth %.1f%% (%s)", cf.GrowthRate, cf.ComparisonType))
	}
	if cf.Flags.TTMPartial {
		m.Limitations = append(m.Limitations, "TTM cash flow summed from fewer than 4 quarters")
		confidence -= 0.1
	}

	var pv float64
	projected := baseCashFlow
	discount := 1.0
	for year := 1; year <= dcfProjectionYears; year++ {
		projected *= 1 + growthRate
		discount /= 1 + dcfWACC
		pv += projected * discount
	}

	// Gordon growth terminal value on the final projected year, discounted at
	// the final year's factor.
	terminal := projected * (1 + dcfTerminalGrowth) / (dcfWACC - dcfTerminalGrowth)
	pv += terminal * discount

	m.IntrinsicValue = pv / shares
	if math.IsNaN(m.IntrinsicValue) || math.IsInf(m.IntrinsicValue, 0) {
		return unableToValue(MethodDCF, "projection produced a non-finite value")
	}

	m.Confidence = confidence
	classify(&m, fd.Price.Current)
	return m
}
