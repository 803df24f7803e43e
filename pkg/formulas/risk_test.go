package formulas

import (
	"math"
	"testing"
)

func TestSharpe(t *testing.T) {
	if got := Sharpe(0.16, 0.04, 0.25); math.Abs(got-0.48) > 1e-9 {
		t.Errorf("Sharpe = %v, want 0.48", got)
	}
	if got := Sharpe(0.16, 0.04, 0); got != 0 {
		t.Errorf("Sharpe with zero volatility = %v, want 0", got)
	}
}

func TestValueAtRisk95(t *testing.T) {
	got := ValueAtRisk95(0.10, 0.20)
	want := 0.10 - 1.645*0.20
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("ValueAtRisk95 = %v, want %v", got, want)
	}
}

func TestConditionalValueAtRisk95BelowVaR(t *testing.T) {
	er, vol := 0.10, 0.20
	cvar := ConditionalValueAtRisk95(er, vol)
	varr := ValueAtRisk95(er, vol)

	if cvar >= varr {
		t.Errorf("CVaR %v should sit below VaR %v", cvar, varr)
	}
	// Scales linearly in volatility.
	if got := ConditionalValueAtRisk95(er, 0); math.Abs(got-er) > 1e-9 {
		t.Errorf("CVaR at zero volatility = %v, want %v", got, er)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		value, lo, hi, want float64
	}{
		{5, 0, 10, 5},
		{-1, 0, 10, 0},
		{11, 0, 10, 10},
		{0, 0, 10, 0},
	}
	for _, tt := range tests {
		if got := Clamp(tt.value, tt.lo, tt.hi); got != tt.want {
			t.Errorf("Clamp(%v, %v, %v) = %v, want %v", tt.value, tt.lo, tt.hi, got, tt.want)
		}
	}
}

func TestAnnualizedVolatility(t *testing.T) {
	// Constant returns have zero variance.
	if got := AnnualizedVolatility([]float64{0.01, 0.01, 0.01, 0.01}); got != 0 {
		t.Errorf("AnnualizedVolatility of constant returns = %v, want 0", got)
	}

	returns := []float64{0.01, -0.02, 0.015, -0.005, 0.02}
	got := AnnualizedVolatility(returns)
	want := StdDev(returns) * math.Sqrt(252)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("AnnualizedVolatility = %v, want %v", got, want)
	}
}
