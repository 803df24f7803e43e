package analysis

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tavendale/equity-council/internal/clients/yahoo"
	"github.com/tavendale/equity-council/internal/database"
	"github.com/tavendale/equity-council/internal/database/repositories"
	"github.com/tavendale/equity-council/internal/domain"
	"github.com/tavendale/equity-council/internal/events"
	"github.com/tavendale/equity-council/internal/modules/agents"
	"github.com/tavendale/equity-council/internal/modules/availability"
	"github.com/tavendale/equity-council/internal/modules/consensus"
	"github.com/tavendale/equity-council/internal/modules/growth"
	"github.com/tavendale/equity-council/internal/modules/risk"
	"github.com/tavendale/equity-council/internal/modules/signals"
	"github.com/tavendale/equity-council/internal/modules/valuation"
)

// newTestService wires a full pipeline against a temp database. Every input
// ticker must be pre-cached; the upstream API is never reached.
func newTestService(t *testing.T) (*Service, *repositories.SnapshotRepository, *repositories.RunRepository) {
	t.Helper()

	log := zerolog.Nop()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	snapshots := repositories.NewSnapshotRepository(db.Conn(), log)
	runs := repositories.NewRunRepository(db.Conn(), log)

	svc := NewService(Config{
		Yahoo:       yahoo.NewClient(log),
		Snapshots:   snapshots,
		Runs:        runs,
		Growth:      growth.NewCalculator(availability.NewDetector(log), log),
		Valuation:   valuation.NewEngine(log),
		Agents:      agents.NewService(log),
		Risk:        risk.NewManager(log),
		Consensus:   consensus.NewManager(nil, log),
		Signals:     signals.NewGenerator(log),
		Events:      events.NewManager(log),
		Concurrency: 2,
		Log:         log,
	})
	return svc, snapshots, runs
}

func cachedSnapshot(symbol string) *domain.FinancialData {
	prices := make([]float64, 0, 260)
	p := 100.0
	for i := 0; i < 260; i++ {
		if i%2 == 0 {
			p *= 1.008
		} else {
			p *= 0.996
		}
		prices = append(prices, p)
	}

	return &domain.FinancialData{
		Symbol: symbol,
		Price:  domain.PriceQuote{Current: prices[len(prices)-1]},
		Profile: domain.CompanyProfile{
			DilutedSharesOutstanding: 2.0,
			MarketCap:                250,
		},
		Ratios: domain.Ratios{
			PE:            18,
			ROE:           16,
			NetMargin:     11,
			DividendYield: 2.0,
		},
		Financials: []domain.FinancialStatement{
			{Period: "2024-12-31", FiscalYear: 2024, Revenue: 110, NetIncome: 12, OperatingIncome: 16, FreeCashFlow: 13, EPS: 6},
			{Period: "2023-12-31", FiscalYear: 2023, Revenue: 100, NetIncome: 10, OperatingIncome: 14, FreeCashFlow: 11, EPS: 5},
		},
		QuarterlyFinancials: []domain.FinancialStatement{
			{Period: "2025-09-30", Quarter: "Q3", FiscalYear: 2025, Revenue: 31, NetIncome: 3.5, OperatingIncome: 4.5, FreeCashFlow: 3.8, EPS: 1.75},
			{Period: "2025-06-30", Quarter: "Q2", FiscalYear: 2025, Revenue: 30, NetIncome: 3.3, OperatingIncome: 4.3, FreeCashFlow: 3.6, EPS: 1.65},
			{Period: "2025-03-31", Quarter: "Q1", FiscalYear: 2025, Revenue: 29, NetIncome: 3.1, OperatingIncome: 4.1, FreeCashFlow: 3.4, EPS: 1.55},
			{Period: "2024-12-31", Quarter: "Q4", FiscalYear: 2024, Revenue: 28, NetIncome: 3.0, OperatingIncome: 4.0, FreeCashFlow: 3.3, EPS: 1.5},
		},
		BalanceSheet: domain.BalanceSheet{
			TotalAssets:       150,
			TotalLiabilities:  80,
			TotalEquity:       70,
			BookValuePerShare: 35,
			Cash:              25,
			TotalDebt:         20,
		},
		CurrencyInfo: domain.CurrencyInfo{ReportingCurrency: "USD", ConversionRate: 1},
		PriceHistory: prices,
	}
}

func TestAnalyzeFromCache(t *testing.T) {
	svc, snapshots, runs := newTestService(t)
	require.NoError(t, snapshots.Put("TEST", cachedSnapshot("TEST")))

	report, err := svc.Analyze(context.Background(), "TEST")
	require.NoError(t, err)

	assert.Equal(t, "TEST", report.Symbol)
	assert.Equal(t, SourceCache, report.Source)
	assert.NotEmpty(t, report.RunID)

	// Growth resolved a TTM comparison from three fresh quarters.
	assert.Equal(t, availability.ComparisonTTMvsFY, report.Growth.Availability.ComparisonType)

	// All four valuation methods ran; the roster voted; a final decision
	// and signal exist.
	assert.Len(t, report.Valuation.Methods, 4)
	assert.Len(t, report.Consensus.Votes, 17) // 12 personas + 4 technical + risk manager
	assert.NotEmpty(t, report.Consensus.FinalRecommendation)
	assert.NotEmpty(t, report.Consensus.Reasoning)
	assert.Equal(t, "fallback", report.Consensus.NarrativeSource)
	assert.Equal(t, report.Consensus.FinalRecommendation, report.Signal.Signal)

	// The run was persisted.
	var persisted Report
	require.NoError(t, runs.Latest("TEST", &persisted))
	assert.Equal(t, report.RunID, persisted.RunID)
}

func TestAnalyzeIsDeterministicFromSameSnapshot(t *testing.T) {
	svc, snapshots, _ := newTestService(t)
	require.NoError(t, snapshots.Put("TEST", cachedSnapshot("TEST")))

	first, err := svc.Analyze(context.Background(), "TEST")
	require.NoError(t, err)
	second, err := svc.Analyze(context.Background(), "TEST")
	require.NoError(t, err)

	assert.Equal(t, first.Consensus.FinalRecommendation, second.Consensus.FinalRecommendation)
	assert.InDelta(t, first.Consensus.WeightedScore, second.Consensus.WeightedScore, 1e-9)
	assert.InDelta(t, first.Signal.Strength, second.Signal.Strength, 1e-9)
}

func TestAnalyzeAllAggregates(t *testing.T) {
	svc, snapshots, _ := newTestService(t)
	require.NoError(t, snapshots.Put("AAA", cachedSnapshot("AAA")))
	require.NoError(t, snapshots.Put("BBB", cachedSnapshot("BBB")))

	out := svc.AnalyzeAll(context.Background(), []string{"AAA", "BBB"})

	assert.Len(t, out.Reports, 2)
	assert.Empty(t, out.Failed)
	assert.Len(t, out.Portfolio.Signals, 2)

	total := out.Portfolio.BuyCount + out.Portfolio.HoldCount + out.Portfolio.SellCount + out.Portfolio.AvoidCount
	assert.Equal(t, 2, total)
}
