package formulas

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// z-score for the 95% confidence level.
const z95 = 1.645

// Sharpe calculates the Sharpe ratio from an expected annual return and
// annualized volatility. Returns 0 when volatility is 0.
func Sharpe(expectedReturn, riskFreeRate, volatility float64) float64 {
	if volatility == 0 {
		return 0
	}
	return (expectedReturn - riskFreeRate) / volatility
}

// ValueAtRisk95 computes the parametric 95% VaR:
//
//	VaR = expectedReturn - 1.645 × volatility
func ValueAtRisk95(expectedReturn, volatility float64) float64 {
	return expectedReturn - z95*volatility
}

// ConditionalValueAtRisk95 computes the 95% CVaR using the standard-normal
// density at the 95% z-score:
//
//	CVaR = expectedReturn - volatility × 1.645 × φ(1.645) / 0.05
func ConditionalValueAtRisk95(expectedReturn, volatility float64) float64 {
	phi := distuv.UnitNormal.Prob(z95)
	return expectedReturn - volatility*z95*phi/0.05
}
