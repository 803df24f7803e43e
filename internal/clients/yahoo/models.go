package yahoo

// rawValue is Yahoo's number envelope: {"raw": 394328000000, "fmt": "394.33B"}.
type rawValue struct {
	Raw float64 `json:"raw"`
	Fmt string  `json:"fmt"`
}

// quoteSummaryResponse is the v10 quoteSummary envelope for the statement,
// key-statistics, and profile modules.
type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []quoteSummaryResult `json:"result"`
		Error  interface{}          `json:"error"`
	} `json:"quoteSummary"`
}

type quoteSummaryResult struct {
	IncomeStatementHistory struct {
		Statements []incomeStatement `json:"incomeStatementHistory"`
	} `json:"incomeStatementHistory"`
	IncomeStatementHistoryQuarterly struct {
		Statements []incomeStatement `json:"incomeStatementHistory"`
	} `json:"incomeStatementHistoryQuarterly"`
	CashflowStatementHistory struct {
		Statements []cashflowStatement `json:"cashflowStatements"`
	} `json:"cashflowStatementHistory"`
	CashflowStatementHistoryQuarterly struct {
		Statements []cashflowStatement `json:"cashflowStatements"`
	} `json:"cashflowStatementHistoryQuarterly"`
	BalanceSheetHistory struct {
		Statements []balanceSheetStatement `json:"balanceSheetStatements"`
	} `json:"balanceSheetHistory"`
	DefaultKeyStatistics keyStatistics  `json:"defaultKeyStatistics"`
	FinancialData        financialsData `json:"financialData"`
	SummaryProfile       summaryProfile `json:"summaryProfile"`
}

type incomeStatement struct {
	EndDate         rawValue `json:"endDate"` // Raw is epoch seconds, Fmt is ISO date
	TotalRevenue    rawValue `json:"totalRevenue"`
	NetIncome       rawValue `json:"netIncome"`
	OperatingIncome rawValue `json:"operatingIncome"`
	GrossProfit     rawValue `json:"grossProfit"`
}

type cashflowStatement struct {
	EndDate                 rawValue `json:"endDate"`
	OperatingCashFlow       rawValue `json:"totalCashFromOperatingActivities"`
	CapitalExpenditures     rawValue `json:"capitalExpenditures"` // negative by convention
	DividendsPaid           rawValue `json:"dividendsPaid"`
	RepurchaseOfStock       rawValue `json:"repurchaseOfStock"`
	NetBorrowings           rawValue `json:"netBorrowings"`
	ChangeInCashAndEquiv    rawValue `json:"changeInCash"`
	EffectOfExchangeRate    rawValue `json:"effectOfExchangeRate"`
	TotalCashflowsInvesting rawValue `json:"totalCashflowsFromInvestingActivities"`
}

type balanceSheetStatement struct {
	EndDate               rawValue `json:"endDate"`
	TotalAssets           rawValue `json:"totalAssets"`
	TotalLiabilities      rawValue `json:"totalLiab"`
	TotalStockholderEquity rawValue `json:"totalStockholderEquity"`
	Cash                  rawValue `json:"cash"`
	ShortTermInvestments  rawValue `json:"shortTermInvestments"`
	ShortLongTermDebt     rawValue `json:"shortLongTermDebt"`
	LongTermDebt          rawValue `json:"longTermDebt"`
	IntangibleAssets      rawValue `json:"intangibleAssets"`
	GoodWill              rawValue `json:"goodWill"`
}

type keyStatistics struct {
	TrailingEPS       rawValue `json:"trailingEps"`
	ForwardEPS        rawValue `json:"forwardEps"`
	BookValue         rawValue `json:"bookValue"` // per share
	PriceToBook       rawValue `json:"priceToBook"`
	SharesOutstanding rawValue `json:"sharesOutstanding"`
	Beta              rawValue `json:"beta"`
}

type financialsData struct {
	CurrentPrice      rawValue `json:"currentPrice"`
	TotalCash         rawValue `json:"totalCash"`
	TotalDebt         rawValue `json:"totalDebt"`
	CurrentRatio      rawValue `json:"currentRatio"`
	DebtToEquity      rawValue `json:"debtToEquity"`
	ReturnOnEquity    rawValue `json:"returnOnEquity"`
	ReturnOnAssets    rawValue `json:"returnOnAssets"`
	GrossMargins      rawValue `json:"grossMargins"`
	OperatingMargins  rawValue `json:"operatingMargins"`
	ProfitMargins     rawValue `json:"profitMargins"`
	RevenueGrowth     rawValue `json:"revenueGrowth"`
	EarningsGrowth    rawValue `json:"earningsGrowth"`
	FinancialCurrency string   `json:"financialCurrency"`
}

type summaryProfile struct {
	Sector            string `json:"sector"`
	Industry          string `json:"industry"`
	LongBusinessSummary string `json:"longBusinessSummary"`
	FullTimeEmployees int64  `json:"fullTimeEmployees"`
	Website           string `json:"website"`
}

// usdRates converts common reporting currencies to USD at ingestion. Rates
// are indicative, refreshed with releases rather than fetched live; unknown
// currencies pass through at 1.0 with conversionApplied left false.
var usdRates = map[string]float64{
	"USD": 1.0,
	"EUR": 1.08,
	"GBP": 1.27,
	"JPY": 0.0067,
	"CNY": 0.14,
	"HKD": 0.128,
	"TWD": 0.031,
	"KRW": 0.00073,
	"CHF": 1.13,
	"CAD": 0.73,
	"AUD": 0.65,
	"SEK": 0.095,
	"NOK": 0.093,
	"DKK": 0.145,
	"INR": 0.0119,
	"BRL": 0.18,
}

// sectorBaseline holds per-sector fallback multiples used when the provider
// reports no value. Estimates are tagged so scoring can ignore them.
type sectorBaseline struct {
	PE float64
	PB float64
}

var sectorBaselines = map[string]sectorBaseline{
	"Technology":             {PE: 28, PB: 6.5},
	"Communication Services": {PE: 20, PB: 3.2},
	"Consumer Cyclical":      {PE: 22, PB: 4.0},
	"Consumer Defensive":     {PE: 21, PB: 4.5},
	"Healthcare":             {PE: 24, PB: 4.2},
	"Financial Services":     {PE: 13, PB: 1.4},
	"Industrials":            {PE: 20, PB: 3.5},
	"Energy":                 {PE: 12, PB: 1.8},
	"Utilities":              {PE: 17, PB: 1.9},
	"Real Estate":            {PE: 30, PB: 2.0},
	"Basic Materials":        {PE: 15, PB: 2.2},
}

// defaultBaseline applies when the sector is unknown.
var defaultBaseline = sectorBaseline{PE: 18, PB: 2.5}
