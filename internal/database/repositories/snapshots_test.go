package repositories

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tavendale/equity-council/internal/database"
	"github.com/tavendale/equity-council/internal/domain"
)

func testDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())
	return db
}

func sampleSnapshot(symbol string) *domain.FinancialData {
	return &domain.FinancialData{
		Symbol: symbol,
		Price:  domain.PriceQuote{Current: 100.5},
		Financials: []domain.FinancialStatement{
			{Period: "2024-12-31", FiscalYear: 2024, Revenue: 391.04},
		},
		CurrencyInfo: domain.CurrencyInfo{ReportingCurrency: "USD", ConversionRate: 1},
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	db := testDB(t)
	repo := NewSnapshotRepository(db.Conn(), zerolog.Nop())

	miss, err := repo.Get("AAPL")
	require.NoError(t, err)
	assert.False(t, miss.Found)

	require.NoError(t, repo.Put("AAPL", sampleSnapshot("AAPL")))

	hit, err := repo.Get("AAPL")
	require.NoError(t, err)
	require.True(t, hit.Found)
	assert.False(t, hit.Stale)
	assert.Equal(t, "AAPL", hit.Data.Symbol)
	assert.InDelta(t, 100.5, hit.Data.Price.Current, 1e-9)
	require.Len(t, hit.Data.Financials, 1)
	assert.InDelta(t, 391.04, hit.Data.Financials[0].Revenue, 1e-9)
}

func TestSnapshotPutReplaces(t *testing.T) {
	db := testDB(t)
	repo := NewSnapshotRepository(db.Conn(), zerolog.Nop())

	require.NoError(t, repo.Put("BIDU", sampleSnapshot("BIDU")))

	updated := sampleSnapshot("BIDU")
	updated.Price.Current = 123.4
	require.NoError(t, repo.Put("BIDU", updated))

	hit, err := repo.Get("BIDU")
	require.NoError(t, err)
	assert.InDelta(t, 123.4, hit.Data.Price.Current, 1e-9)
}

func TestSnapshotStaleness(t *testing.T) {
	db := testDB(t)
	// A zero-ish TTL makes every stored snapshot immediately stale.
	repo := NewSnapshotRepository(db.Conn(), zerolog.Nop()).WithTTL(time.Nanosecond)

	require.NoError(t, repo.Put("MSFT", sampleSnapshot("MSFT")))
	time.Sleep(time.Millisecond)

	hit, err := repo.Get("MSFT")
	require.NoError(t, err)
	require.True(t, hit.Found)
	assert.True(t, hit.Stale)

	stale, err := repo.StaleTickers()
	require.NoError(t, err)
	assert.Equal(t, []string{"MSFT"}, stale)
}

func TestRunRepositoryRoundTrip(t *testing.T) {
	db := testDB(t)
	repo := NewRunRepository(db.Conn(), zerolog.Nop())

	type report struct {
		RunID string  `msgpack:"runId"`
		Score float64 `msgpack:"score"`
	}

	var missing report
	assert.ErrorIs(t, repo.Latest("AAPL", &missing), ErrNoRuns)

	require.NoError(t, repo.Save("run-1", "AAPL", report{RunID: "run-1", Score: 61.5}))
	require.NoError(t, repo.Save("run-2", "AAPL", report{RunID: "run-2", Score: 64.0}))

	var latest report
	require.NoError(t, repo.Latest("AAPL", &latest))
	assert.Equal(t, "run-2", latest.RunID)
	assert.InDelta(t, 64.0, latest.Score, 1e-9)
}

func TestRunRepositoryPrune(t *testing.T) {
	db := testDB(t)
	repo := NewRunRepository(db.Conn(), zerolog.Nop())

	require.NoError(t, repo.Save("run-1", "AAPL", map[string]string{"k": "v"}))

	deleted, err := repo.Prune(time.Hour)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	deleted, err = repo.Prune(-time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
