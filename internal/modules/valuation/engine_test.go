package valuation

import (
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tavendale/equity-council/internal/domain"
	"github.com/tavendale/equity-council/internal/modules/availability"
	"github.com/tavendale/equity-council/internal/modules/growth"
)

func approxEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func growthWith(metrics map[string]growth.Result) growth.Analysis {
	return growth.Analysis{Symbol: "TEST", Metrics: metrics}
}

func TestClassifyThresholds(t *testing.T) {
	tests := []struct {
		name      string
		intrinsic float64
		price     float64
		want      Assessment
	}{
		{"well above price", 130, 100, Undervalued},
		{"exactly at threshold stays fair", 120, 100, FairlyValued},
		{"near price", 105, 100, FairlyValued},
		{"well below price", 75, 100, Overvalued},
		{"exactly at lower threshold stays fair", 80, 100, FairlyValued},
		{"non-positive intrinsic", 0, 100, UnableToValue},
		{"non-positive price", 50, 0, UnableToValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Method{IntrinsicValue: tt.intrinsic}
			classify(&m, tt.price)
			if m.Assessment != tt.want {
				t.Errorf("classify(%v vs %v) = %s, want %s", tt.intrinsic, tt.price, m.Assessment, tt.want)
			}
		})
	}
}

func TestDCFMethod(t *testing.T) {
	fd := &domain.FinancialData{
		Symbol:  "TEST",
		Price:   domain.PriceQuote{Current: 100},
		Profile: domain.CompanyProfile{DilutedSharesOutstanding: 1},
	}
	ga := growthWith(map[string]growth.Result{
		"freeCashFlow": {CurrentValue: 10, GrowthRate: 0, CurrentPeriodLabel: "FY2024"},
	})

	m := dcfMethod(fd, ga)

	if m.Assessment == UnableToValue {
		t.Fatalf("unexpected UNABLE_TO_VALUE: %v", m.Limitations)
	}
	// Flat 10/yr for 5 years at 9% plus a 2.5% Gordon terminal:
	// 10 * 3.8897 + 157.69 * 0.64993 = 141.39 per share.
	if !approxEqual(m.IntrinsicValue, 141.39, 0.05) {
		t.Errorf("IntrinsicValue = %v, want ~141.39", m.IntrinsicValue)
	}
	if m.Assessment != Undervalued {
		t.Errorf("Assessment = %s, want UNDERVALUED", m.Assessment)
	}
	if m.Confidence != 0.7 {
		t.Errorf("Confidence = %v, want 0.7", m.Confidence)
	}
}

func TestDCFMethodAnomalousGrowthProjectsFlat(t *testing.T) {
	fd := &domain.FinancialData{
		Symbol:  "TEST",
		Price:   domain.PriceQuote{Current: 100},
		Profile: domain.CompanyProfile{DilutedSharesOutstanding: 1},
	}
	ga := growthWith(map[string]growth.Result{
		"freeCashFlow": {
			CurrentValue: 10,
			GrowthRate:   math.Inf(1),
			Flags:        availability.QualityFlags{AnomalousValues: true},
		},
	})

	m := dcfMethod(fd, ga)

	if m.Assessment == UnableToValue {
		t.Fatalf("unexpected UNABLE_TO_VALUE: %v", m.Limitations)
	}
	// Same flat projection as zero growth, at reduced confidence.
	if !approxEqual(m.IntrinsicValue, 141.39, 0.05) {
		t.Errorf("IntrinsicValue = %v, want ~141.39", m.IntrinsicValue)
	}
	if !approxEqual(m.Confidence, 0.5, 1e-9) {
		t.Errorf("Confidence = %v, want 0.5", m.Confidence)
	}
}

func TestDCFMethodRequiresSharesAndCashFlow(t *testing.T) {
	noShares := &domain.FinancialData{Price: domain.PriceQuote{Current: 100}}
	if m := dcfMethod(noShares, growthWith(nil)); m.Assessment != UnableToValue {
		t.Errorf("no shares: Assessment = %s, want UNABLE_TO_VALUE", m.Assessment)
	}

	withShares := &domain.FinancialData{
		Price:   domain.PriceQuote{Current: 100},
		Profile: domain.CompanyProfile{DilutedSharesOutstanding: 1},
	}
	if m := dcfMethod(withShares, growthWith(nil)); m.Assessment != UnableToValue {
		t.Errorf("no cash flow: Assessment = %s, want UNABLE_TO_VALUE", m.Assessment)
	}
}

func TestComparableMethodJustifiedPB(t *testing.T) {
	fd := &domain.FinancialData{
		Symbol:       "TEST",
		Price:        domain.PriceQuote{Current: 100},
		BalanceSheet: domain.BalanceSheet{BookValuePerShare: 50},
		Ratios:       domain.Ratios{ROE: 20},
	}
	ga := growthWith(map[string]growth.Result{
		"revenue": {GrowthRate: 10},
	})

	m := comparableMethod(fd, ga)

	// fairPB = clamp(20/10, 0.5, 8) * (1 + 10/200) = 2.1; IV = 2.1 * 50.
	if !approxEqual(m.IntrinsicValue, 105, 1e-9) {
		t.Errorf("IntrinsicValue = %v, want 105", m.IntrinsicValue)
	}
	if m.Assessment != FairlyValued {
		t.Errorf("Assessment = %s, want FAIRLY_VALUED", m.Assessment)
	}
}

func TestComparableMethodIgnoresEstimatedROE(t *testing.T) {
	fd := &domain.FinancialData{
		Symbol:       "TEST",
		Price:        domain.PriceQuote{Current: 100},
		BalanceSheet: domain.BalanceSheet{BookValuePerShare: 50},
		Ratios: domain.Ratios{
			ROE:        20,
			Provenance: map[string]domain.RatioProvenance{"roe": domain.ProvenanceEstimated},
		},
		QuarterlyFinancials: []domain.FinancialStatement{
			{EPS: 2.5}, {EPS: 2.4}, {EPS: 2.3}, {EPS: 2.2},
		},
	}
	ga := growthWith(map[string]growth.Result{
		"revenue": {GrowthRate: 12},
	})

	m := comparableMethod(fd, ga)

	// Estimated ROE is gated out, so the method uses the P/E path:
	// fair P/E = 8 + 12 = 20 on TTM EPS 9.4.
	if !approxEqual(m.IntrinsicValue, 188, 1e-9) {
		t.Errorf("IntrinsicValue = %v, want 188 (P/E path)", m.IntrinsicValue)
	}
}

func TestDDMMethod(t *testing.T) {
	fd := &domain.FinancialData{
		Symbol: "TEST",
		Price:  domain.PriceQuote{Current: 100},
		Ratios: domain.Ratios{DividendYield: 4},
	}
	ga := growthWith(map[string]growth.Result{
		"netIncome": {GrowthRate: 8},
	})

	m := ddmMethod(fd, ga)

	// Dividend 4.00, growth min(5%, 8%/2) = 4%: 4*1.04/(0.09-0.04) = 83.2.
	if !approxEqual(m.IntrinsicValue, 83.2, 1e-9) {
		t.Errorf("IntrinsicValue = %v, want 83.2", m.IntrinsicValue)
	}
}

func TestDDMMethodRequiresReportedDividend(t *testing.T) {
	noYield := &domain.FinancialData{Price: domain.PriceQuote{Current: 100}}
	if m := ddmMethod(noYield, growthWith(nil)); m.Assessment != UnableToValue {
		t.Errorf("no yield: Assessment = %s, want UNABLE_TO_VALUE", m.Assessment)
	}

	estimated := &domain.FinancialData{
		Price: domain.PriceQuote{Current: 100},
		Ratios: domain.Ratios{
			DividendYield: 3,
			Provenance:    map[string]domain.RatioProvenance{"dividendYield": domain.ProvenanceEstimated},
		},
	}
	if m := ddmMethod(estimated, growthWith(nil)); m.Assessment != UnableToValue {
		t.Errorf("estimated yield: Assessment = %s, want UNABLE_TO_VALUE", m.Assessment)
	}
}

func TestAssetBasedMethodNegativeEquity(t *testing.T) {
	fd := &domain.FinancialData{
		Symbol: "TEST",
		Price:  domain.PriceQuote{Current: 50},
		BalanceSheet: domain.BalanceSheet{
			TotalAssets: 80,
			TotalEquity: -12,
		},
	}

	m := assetBasedMethod(fd)

	if m.Assessment != UnableToValue {
		t.Fatalf("Assessment = %s, want UNABLE_TO_VALUE", m.Assessment)
	}
	if len(m.Limitations) == 0 || m.Limitations[0] != "negative equity" {
		t.Errorf("Limitations = %v, want [negative equity]", m.Limitations)
	}
}

func TestEvaluateReconcilesAroundInapplicableMethods(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	// Negative equity knocks out AssetBased; no dividend knocks out DDM.
	// DCF and Comparable still bracket a consensus.
	fd := &domain.FinancialData{
		Symbol:  "TEST",
		Price:   domain.PriceQuote{Current: 100},
		Profile: domain.CompanyProfile{DilutedSharesOutstanding: 1},
		BalanceSheet: domain.BalanceSheet{
			TotalAssets: 80,
			TotalEquity: -12,
		},
		Ratios: domain.Ratios{ROE: 15},
		QuarterlyFinancials: []domain.FinancialStatement{
			{EPS: 2.0}, {EPS: 2.0}, {EPS: 2.0}, {EPS: 2.0},
		},
	}
	ga := growthWith(map[string]growth.Result{
		"freeCashFlow": {CurrentValue: 10, GrowthRate: 5},
		"revenue":      {GrowthRate: 5},
	})

	findings := engine.Evaluate(fd, ga)

	if len(findings.Methods) != 4 {
		t.Fatalf("got %d methods, want 4", len(findings.Methods))
	}
	for _, m := range findings.Methods {
		if m.Name == MethodAssetBased && m.Assessment != UnableToValue {
			t.Errorf("AssetBased Assessment = %s, want UNABLE_TO_VALUE", m.Assessment)
		}
		if m.Name == MethodDCF && m.Assessment == UnableToValue {
			t.Error("DCF should be unaffected by negative equity")
		}
	}

	c := findings.Consensus
	if !(c.Low <= c.Midpoint && c.Midpoint <= c.High) {
		t.Errorf("bracket violated: low=%v mid=%v high=%v", c.Low, c.Midpoint, c.High)
	}
	if !approxEqual(c.Midpoint, (c.Low+c.High)/2, 1e-9) {
		t.Errorf("Midpoint = %v, want mean of bounds", c.Midpoint)
	}
	if findings.OverallAssessment == UnableToValue {
		t.Error("OverallAssessment = UNABLE_TO_VALUE with applicable methods present")
	}
}

func TestReconcileAgreement(t *testing.T) {
	tests := []struct {
		name    string
		methods []Method
		want    Agreement
	}{
		{
			"all agree",
			[]Method{
				{IntrinsicValue: 130, Assessment: Undervalued},
				{IntrinsicValue: 125, Assessment: Undervalued},
			},
			AgreementStrong,
		},
		{
			"two camps",
			[]Method{
				{IntrinsicValue: 130, Assessment: Undervalued},
				{IntrinsicValue: 100, Assessment: FairlyValued},
			},
			AgreementModerate,
		},
		{
			"three camps",
			[]Method{
				{IntrinsicValue: 130, Assessment: Undervalued},
				{IntrinsicValue: 100, Assessment: FairlyValued},
				{IntrinsicValue: 60, Assessment: Overvalued},
			},
			AgreementDivergent,
		},
		{
			"nothing applicable",
			[]Method{
				{Assessment: UnableToValue},
				{Assessment: UnableToValue},
			},
			AgreementWeak,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := reconcile("TEST", 100, tt.methods)
			if findings.MethodAgreement != tt.want {
				t.Errorf("MethodAgreement = %s, want %s", findings.MethodAgreement, tt.want)
			}
		})
	}
}
