// Package yahoo fetches market and statement data from the Yahoo Finance
// endpoints and normalizes it into the pipeline's snapshot shape: monetary
// values in billions, margins as percentages, ratios tagged with provenance,
// and anomalies recorded as flags instead of being silently dropped.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tavendale/equity-council/internal/domain"
)

const (
	quoteURL        = "https://query1.finance.yahoo.com/v7/finance/quote"
	quoteSummaryURL = "https://query1.finance.yahoo.com/v10/finance/quoteSummary"
	chartURL        = "https://query1.finance.yahoo.com/v8/finance/chart"

	// One trading year of daily closes for risk and technical agents.
	defaultHistoryRange = "1y"

	billion = 1e9
)

var quoteSummaryModules = strings.Join([]string{
	"incomeStatementHistory",
	"incomeStatementHistoryQuarterly",
	"cashflowStatementHistory",
	"cashflowStatementHistoryQuarterly",
	"balanceSheetHistory",
	"defaultKeyStatistics",
	"financialData",
	"summaryProfile",
}, ",")

// Client fetches and normalizes Yahoo Finance data.
type Client struct {
	client *http.Client
	log    zerolog.Logger
}

// NewClient creates a new Yahoo Finance client.
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("client", "yahoo").Logger(),
	}
}

// FetchSnapshot retrieves everything the analysis pipeline needs for one
// security and normalizes it into the canonical snapshot.
func (c *Client) FetchSnapshot(ctx context.Context, symbol string) (*domain.FinancialData, error) {
	quote, err := c.getQuoteInfo(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("quote for %s: %w", symbol, err)
	}

	summary, err := c.getQuoteSummary(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("statements for %s: %w", symbol, err)
	}

	closes, err := c.GetHistoricalCloses(ctx, symbol, defaultHistoryRange)
	if err != nil {
		// Price history degrades the technical agents to neutral votes but
		// never blocks the fundamental pipeline.
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("Price history unavailable")
	}

	fd := normalize(symbol, quote, summary)
	fd.PriceHistory = closes

	c.log.Info().
		Str("symbol", symbol).
		Int("annual_statements", len(fd.Financials)).
		Int("quarterly_statements", len(fd.QuarterlyFinancials)).
		Int("price_history", len(fd.PriceHistory)).
		Str("currency", fd.CurrencyInfo.ReportingCurrency).
		Msg("Snapshot fetched")

	return fd, nil
}

// GetCurrentPrice fetches the latest price with exponential-backoff retries.
func (c *Client) GetCurrentPrice(ctx context.Context, symbol string, maxRetries int) (float64, error) {
	if maxRetries == 0 {
		maxRetries = 3
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		info, err := c.getQuoteInfo(ctx, symbol)
		if err == nil {
			if price := getFloat64OrZero(info, "currentPrice"); price > 0 {
				return price, nil
			}
			if price := getFloat64OrZero(info, "regularMarketPrice"); price > 0 {
				return price, nil
			}
			err = fmt.Errorf("price missing or zero")
		}

		lastErr = err
		if attempt < maxRetries-1 {
			waitTime := time.Duration(1<<uint(attempt)) * time.Second
			c.log.Warn().Err(err).
				Str("symbol", symbol).
				Int("attempt", attempt+1).
				Dur("wait", waitTime).
				Msg("Failed to get price, retrying")
			select {
			case <-time.After(waitTime):
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}
	}

	return 0, fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}

// GetHistoricalCloses fetches daily closing prices, oldest first.
func (c *Client) GetHistoricalCloses(ctx context.Context, symbol, period string) ([]float64, error) {
	reqURL := chartURL + "/" + url.PathEscape(symbol)

	params := url.Values{}
	params.Add("interval", "1d")
	params.Add("range", period)

	body, err := c.get(ctx, reqURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var result struct {
		Chart struct {
			Result []struct {
				Indicators struct {
					Quote []struct {
						Close []float64 `json:"close"`
					} `json:"quote"`
				} `json:"indicators"`
			} `json:"result"`
			Error interface{} `json:"error"`
		} `json:"chart"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse chart response: %w", err)
	}
	if result.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error: %v", result.Chart.Error)
	}
	if len(result.Chart.Result) == 0 || len(result.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}

	var closes []float64
	for _, close := range result.Chart.Result[0].Indicators.Quote[0].Close {
		// Yahoo pads non-trading days with zeros.
		if close > 0 {
			closes = append(closes, close)
		}
	}
	return closes, nil
}

// getQuoteInfo fetches the v7 quote map for a symbol.
func (c *Client) getQuoteInfo(ctx context.Context, symbol string) (map[string]interface{}, error) {
	params := url.Values{}
	params.Add("symbols", symbol)
	params.Add("fields", "symbol,regularMarketPrice,currentPrice,regularMarketOpen,regularMarketDayHigh,"+
		"regularMarketDayLow,regularMarketVolume,regularMarketPreviousClose,currency,"+
		"trailingPE,priceToBook,marketCap,dividendYield,trailingAnnualDividendYield,"+
		"longName,shortName,sharesOutstanding")

	body, err := c.get(ctx, quoteURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var result struct {
		QuoteResponse struct {
			Result []map[string]interface{} `json:"result"`
			Error  interface{}              `json:"error"`
		} `json:"quoteResponse"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse quote response: %w", err)
	}
	if result.QuoteResponse.Error != nil {
		return nil, fmt.Errorf("quote API error: %v", result.QuoteResponse.Error)
	}
	if len(result.QuoteResponse.Result) == 0 {
		return nil, fmt.Errorf("no quote data returned for symbol %s", symbol)
	}

	return result.QuoteResponse.Result[0], nil
}

// getQuoteSummary fetches the statement and profile modules for a symbol.
func (c *Client) getQuoteSummary(ctx context.Context, symbol string) (*quoteSummaryResult, error) {
	params := url.Values{}
	params.Add("modules", quoteSummaryModules)

	body, err := c.get(ctx, quoteSummaryURL+"/"+url.PathEscape(symbol)+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var result quoteSummaryResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse quoteSummary response: %w", err)
	}
	if result.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("quoteSummary API error: %v", result.QuoteSummary.Error)
	}
	if len(result.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("no statement data returned for symbol %s", symbol)
	}

	return &result.QuoteSummary.Result[0], nil
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Yahoo Finance API returned status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// normalize converts raw API shapes into the canonical snapshot.
func normalize(symbol string, quote map[string]interface{}, summary *quoteSummaryResult) *domain.FinancialData {
	currency := currencyInfo(summary.FinancialData.FinancialCurrency)
	rate := 1.0
	if currency.ConversionApplied {
		rate = currency.ConversionRate
	}

	shares := summary.DefaultKeyStatistics.SharesOutstanding.Raw / billion

	fd := &domain.FinancialData{
		Symbol:              symbol,
		Price:               priceQuote(quote),
		Profile:             profile(quote, summary, shares),
		Financials:          statements(summary.IncomeStatementHistory.Statements, summary.CashflowStatementHistory.Statements, rate, shares, false),
		QuarterlyFinancials: statements(summary.IncomeStatementHistoryQuarterly.Statements, summary.CashflowStatementHistoryQuarterly.Statements, rate, shares, true),
		BalanceSheet:        balanceSheet(summary, rate, shares),
		CurrencyInfo:        currency,
	}

	fd.Ratios, fd.IngestionFlags = ratios(quote, summary)

	return fd
}

func priceQuote(quote map[string]interface{}) domain.PriceQuote {
	current := getFloat64OrZero(quote, "currentPrice")
	if current == 0 {
		current = getFloat64OrZero(quote, "regularMarketPrice")
	}
	previous := getFloat64OrZero(quote, "regularMarketPreviousClose")

	pq := domain.PriceQuote{
		Current:       current,
		Open:          getFloat64OrZero(quote, "regularMarketOpen"),
		High:          getFloat64OrZero(quote, "regularMarketDayHigh"),
		Low:           getFloat64OrZero(quote, "regularMarketDayLow"),
		Close:         current,
		Volume:        getInt64OrZero(quote, "regularMarketVolume"),
		PreviousClose: previous,
		Timestamp:     time.Now().UTC(),
	}
	if previous > 0 {
		pq.Change = current - previous
		pq.ChangePercent = pq.Change / previous * 100
	}
	return pq
}

func profile(quote map[string]interface{}, summary *quoteSummaryResult, shares float64) domain.CompanyProfile {
	name := getString(quote, "longName", "")
	if name == "" {
		name = getString(quote, "shortName", "")
	}
	return domain.CompanyProfile{
		CompanyName:              name,
		Sector:                   summary.SummaryProfile.Sector,
		Industry:                 summary.SummaryProfile.Industry,
		Description:              summary.SummaryProfile.LongBusinessSummary,
		Employees:                summary.SummaryProfile.FullTimeEmployees,
		Website:                  summary.SummaryProfile.Website,
		MarketCap:                getFloat64OrZero(quote, "marketCap") / billion,
		DilutedSharesOutstanding: shares,
	}
}

// statements merges income and cashflow rows by period end into normalized
// statement rows, newest first. EPS is derived from net income and the
// current share count when the provider reports none per period.
func statements(income []incomeStatement, cashflow []cashflowStatement, rate, shares float64, quarterly bool) []domain.FinancialStatement {
	fcfByPeriod := make(map[string]float64, len(cashflow))
	for _, cf := range cashflow {
		// Capex is negative by provider convention, so addition subtracts it.
		fcfByPeriod[cf.EndDate.Fmt] = (cf.OperatingCashFlow.Raw + cf.CapitalExpenditures.Raw) / billion * rate
	}

	out := make([]domain.FinancialStatement, 0, len(income))
	for _, is := range income {
		period := is.EndDate.Fmt
		if period == "" {
			continue
		}

		st := domain.FinancialStatement{
			Period:          period,
			FiscalYear:      fiscalYear(period),
			Revenue:         is.TotalRevenue.Raw / billion * rate,
			NetIncome:       is.NetIncome.Raw / billion * rate,
			OperatingIncome: is.OperatingIncome.Raw / billion * rate,
			FreeCashFlow:    fcfByPeriod[period],
		}
		if quarterly {
			st.Quarter = quarterLabel(period)
		}
		if shares > 0 {
			st.EPS = st.NetIncome / shares
		}
		out = append(out, st)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Period > out[j].Period })
	return out
}

func balanceSheet(summary *quoteSummaryResult, rate, shares float64) domain.BalanceSheet {
	if len(summary.BalanceSheetHistory.Statements) == 0 {
		return domain.BalanceSheet{}
	}
	raw := summary.BalanceSheetHistory.Statements[0]

	bs := domain.BalanceSheet{
		TotalAssets:      raw.TotalAssets.Raw / billion * rate,
		TotalLiabilities: raw.TotalLiabilities.Raw / billion * rate,
		TotalEquity:      raw.TotalStockholderEquity.Raw / billion * rate,
		Cash:             (raw.Cash.Raw + raw.ShortTermInvestments.Raw) / billion * rate,
		TotalDebt:        (raw.ShortLongTermDebt.Raw + raw.LongTermDebt.Raw) / billion * rate,
	}
	if summary.FinancialData.TotalDebt.Raw > 0 {
		bs.TotalDebt = summary.FinancialData.TotalDebt.Raw / billion * rate
	}

	if shares > 0 {
		bs.BookValuePerShare = bs.TotalEquity / shares
		intangibles := (raw.IntangibleAssets.Raw + raw.GoodWill.Raw) / billion * rate
		bs.TangibleBookValuePerShare = (bs.TotalEquity - intangibles) / shares
	}
	if summary.DefaultKeyStatistics.BookValue.Raw > 0 {
		bs.BookValuePerShare = summary.DefaultKeyStatistics.BookValue.Raw * rate
	}

	return bs
}

// ratios normalizes the ratio bag. Missing valuation multiples fall back to
// sector baselines tagged as estimated; anomalies set flags rather than
// zeroing values.
func ratios(quote map[string]interface{}, summary *quoteSummaryResult) (domain.Ratios, domain.IngestionFlags) {
	fin := summary.FinancialData

	r := domain.Ratios{
		PE:              getFloat64OrZero(quote, "trailingPE"),
		PB:              getFloat64OrZero(quote, "priceToBook"),
		CurrentRatio:    fin.CurrentRatio.Raw,
		DebtToEquity:    fin.DebtToEquity.Raw,
		ROE:             fin.ReturnOnEquity.Raw * 100,
		ROA:             fin.ReturnOnAssets.Raw * 100,
		GrossMargin:     fin.GrossMargins.Raw * 100,
		OperatingMargin: fin.OperatingMargins.Raw * 100,
		NetMargin:       fin.ProfitMargins.Raw * 100,
		RevenueGrowth:   fin.RevenueGrowth.Raw * 100,
		EarningsGrowth:  fin.EarningsGrowth.Raw * 100,
		DividendYield:   getFloat64OrZero(quote, "dividendYield"),
		Provenance:      make(map[string]domain.RatioProvenance),
	}

	if r.PB == 0 && summary.DefaultKeyStatistics.PriceToBook.Raw > 0 {
		r.PB = summary.DefaultKeyStatistics.PriceToBook.Raw
	}

	marketCap := getFloat64OrZero(quote, "marketCap")
	if revenue := latestAnnualRevenue(summary); revenue > 0 && marketCap > 0 {
		r.PS = marketCap / revenue
	}

	baseline := defaultBaseline
	if b, ok := sectorBaselines[summary.SummaryProfile.Sector]; ok {
		baseline = b
	}

	var flags domain.IngestionFlags

	if r.PE == 0 {
		r.PE = baseline.PE
		r.Provenance["pe"] = domain.ProvenanceEstimated
	} else if r.PE < 0 {
		flags.PENegative = true
	}
	if r.PE > 500 {
		flags.PEAnomalous = true
	}

	if r.PB == 0 {
		r.PB = baseline.PB
		r.Provenance["pb"] = domain.ProvenanceEstimated
	} else if r.PB > 100 || r.PB < 0 {
		flags.PBAnomalous = true
	}

	if marketCap == 0 {
		flags.MarketCapZero = true
	}
	if r.ROE < 0 {
		flags.ROENegative = true
	}
	if r.DebtToEquity < 0 || r.DebtToEquity > 1000 {
		flags.DebtToEquityAnomalous = true
	}
	if r.CurrentRatio > 50 || r.CurrentRatio < 0 {
		flags.CurrentRatioAnomalous = true
	}

	// Yahoo does not expose these; zero values are recorded so downstream
	// scoring knows they were never reported.
	flags.ROICZero = true
	flags.InterestCoverageZero = true
	r.Provenance["roic"] = domain.ProvenanceEstimated
	r.Provenance["interestCoverage"] = domain.ProvenanceEstimated

	return r, flags
}

func latestAnnualRevenue(summary *quoteSummaryResult) float64 {
	best := ""
	var revenue float64
	for _, is := range summary.IncomeStatementHistory.Statements {
		if is.EndDate.Fmt > best {
			best = is.EndDate.Fmt
			revenue = is.TotalRevenue.Raw
		}
	}
	return revenue
}

func currencyInfo(reported string) domain.CurrencyInfo {
	if reported == "" {
		reported = "USD"
	}
	info := domain.CurrencyInfo{ReportingCurrency: reported, ConversionRate: 1.0}
	if reported == "USD" {
		return info
	}
	if rate, ok := usdRates[reported]; ok {
		info.ConversionApplied = true
		info.ConversionRate = rate
	}
	return info
}

// fiscalYear extracts the year from an ISO period-end date.
func fiscalYear(period string) int {
	t, err := time.Parse("2006-01-02", period)
	if err != nil {
		return 0
	}
	return t.Year()
}

// quarterLabel maps a period-end month onto its calendar quarter.
func quarterLabel(period string) string {
	t, err := time.Parse("2006-01-02", period)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("Q%d", (int(t.Month())-1)/3+1)
}

// Helper functions to safely extract values from the quote map.

func getFloat64OrZero(m map[string]interface{}, key string) float64 {
	if val, ok := m[key]; ok && val != nil {
		switch v := val.(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case int64:
			return float64(v)
		}
	}
	return 0
}

func getInt64OrZero(m map[string]interface{}, key string) int64 {
	return int64(getFloat64OrZero(m, key))
}

func getString(m map[string]interface{}, key string, defaultVal string) string {
	if val, ok := m[key]; ok && val != nil {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return defaultVal
}
