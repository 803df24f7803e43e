package domain

import "time"

// Recommendation is the final vote a component can cast for a security.
type Recommendation string

const (
	RecommendationBuy   Recommendation = "BUY"
	RecommendationHold  Recommendation = "HOLD"
	RecommendationSell  Recommendation = "SELL"
	RecommendationAvoid Recommendation = "AVOID"
)

// RatioProvenance describes how a ratio value was obtained.
// Sector-based estimates from legacy data adapters are tagged so the
// deterministic scoring path can gate them out.
type RatioProvenance string

const (
	ProvenanceReported  RatioProvenance = "reported"
	ProvenanceEstimated RatioProvenance = "estimated"
)

// PriceQuote is the latest market quote for a security.
type PriceQuote struct {
	Current       float64   `json:"current"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`
	Volume        int64     `json:"volume"`
	PreviousClose float64   `json:"previousClose"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	Timestamp     time.Time `json:"timestamp"`
}

// CompanyProfile holds descriptive company data.
// Shares outstanding are expressed in billions, matching the statement units.
type CompanyProfile struct {
	CompanyName              string  `json:"companyName"`
	Sector                   string  `json:"sector"`
	Industry                 string  `json:"industry"`
	Description              string  `json:"description,omitempty"`
	Employees                int64   `json:"employees,omitempty"`
	Website                  string  `json:"website,omitempty"`
	MarketCap                float64 `json:"marketCap"`
	DilutedSharesOutstanding float64 `json:"dilutedSharesOutstanding"`
}

// FinancialStatement is one reporting period, annual or quarterly.
// Monetary values are in billions of the reporting currency (converted to USD
// at ingestion when the source reports in another currency).
type FinancialStatement struct {
	Period          string  `json:"period"`            // ISO date of period end, e.g. "2024-12-31"
	Quarter         string  `json:"quarter,omitempty"` // "Q1".."Q4", quarterly rows only
	FiscalYear      int     `json:"fiscalYear"`
	Revenue         float64 `json:"revenue"`
	NetIncome       float64 `json:"netIncome"`
	EPS             float64 `json:"eps"`
	OperatingIncome float64 `json:"operatingIncome"`
	FreeCashFlow    float64 `json:"freeCashFlow"`
}

// BalanceSheet is the most recent balance-sheet snapshot, in billions.
type BalanceSheet struct {
	TotalAssets               float64 `json:"totalAssets"`
	TotalLiabilities          float64 `json:"totalLiabilities"`
	TotalEquity               float64 `json:"totalEquity"`
	BookValuePerShare         float64 `json:"bookValuePerShare"`
	TangibleBookValuePerShare float64 `json:"tangibleBookValuePerShare"`
	TotalDebt                 float64 `json:"totalDebt"`
	Cash                      float64 `json:"cash"`
}

// Ratios is the normalized ratios bag. Margin and return fields are
// percentages (e.g. 23.5 for 23.5%).
type Ratios struct {
	PE               float64 `json:"pe"`
	PB               float64 `json:"pb"`
	PS               float64 `json:"ps"`
	CurrentRatio     float64 `json:"currentRatio"`
	DebtToEquity     float64 `json:"debtToEquity"`
	InterestCoverage float64 `json:"interestCoverage"`
	ROE              float64 `json:"roe"`
	ROIC             float64 `json:"roic"`
	ROA              float64 `json:"roa"`
	GrossMargin      float64 `json:"grossMargin"`
	OperatingMargin  float64 `json:"operatingMargin"`
	NetMargin        float64 `json:"netMargin"`
	DividendYield    float64 `json:"dividendYield"`
	RevenueGrowth    float64 `json:"revenueGrowth"`
	EarningsGrowth   float64 `json:"earningsGrowth"`

	// Provenance marks ratios whose values were estimated rather than
	// reported by the data source. Estimated ratios are excluded from
	// deterministic scoring and only surfaced for display.
	Provenance map[string]RatioProvenance `json:"provenance,omitempty"`
}

// Reported returns true when the named ratio carries reported (not estimated)
// provenance. Ratios without an entry are treated as reported.
func (r *Ratios) Reported(name string) bool {
	if r.Provenance == nil {
		return true
	}
	p, ok := r.Provenance[name]
	return !ok || p == ProvenanceReported
}

// IngestionFlags are data-quality observations made at the ingestion boundary.
type IngestionFlags struct {
	DebtToEquityAnomalous bool `json:"debtToEquityAnomalous"`
	ROICZero              bool `json:"roicZero"`
	InterestCoverageZero  bool `json:"interestCoverageZero"`
	PENegative            bool `json:"peNegative"`
	MarketCapZero         bool `json:"marketCapZero"`
	PBAnomalous           bool `json:"pbAnomalous"`
	PEAnomalous           bool `json:"peAnomalous"`
	ROENegative           bool `json:"roeNegative"`
	CurrentRatioAnomalous bool `json:"currentRatioAnomalous"`
}

// CurrencyInfo records the detected reporting currency and any conversion
// applied at ingestion.
type CurrencyInfo struct {
	ReportingCurrency string  `json:"reportingCurrency"`
	ConversionApplied bool    `json:"conversionApplied"`
	ConversionRate    float64 `json:"conversionRate"`
}

// FinancialData is the immutable per-security snapshot the analysis pipeline
// consumes. Annual statements are ordered descending by fiscal year and
// quarterly statements descending by period end. Missing fields resolve to
// zero values; the pipeline never branches on the snapshot's cache source.
type FinancialData struct {
	Symbol              string               `json:"symbol"`
	Price               PriceQuote           `json:"price"`
	Profile             CompanyProfile       `json:"profile"`
	Ratios              Ratios               `json:"ratios"`
	Financials          []FinancialStatement `json:"financials"`          // annual, desc by fiscalYear
	QuarterlyFinancials []FinancialStatement `json:"quarterlyFinancials"` // desc by period end
	BalanceSheet        BalanceSheet         `json:"balanceSheet"`
	CurrencyInfo        CurrencyInfo         `json:"currencyInfo"`
	IngestionFlags      IngestionFlags       `json:"dataQualityFlags"`

	// PriceHistory holds daily closing prices, oldest first, for risk and
	// technical computations (typically one year of trading days).
	PriceHistory []float64 `json:"priceHistory,omitempty"`
}

// LatestAnnual returns the most recent annual statement, or nil.
func (fd *FinancialData) LatestAnnual() *FinancialStatement {
	if len(fd.Financials) == 0 {
		return nil
	}
	return &fd.Financials[0]
}

// AnnualByOffset returns the annual statement n positions back from the
// latest, or nil when out of range.
func (fd *FinancialData) AnnualByOffset(n int) *FinancialStatement {
	if n < 0 || n >= len(fd.Financials) {
		return nil
	}
	return &fd.Financials[n]
}
