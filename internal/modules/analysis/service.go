// Package analysis orchestrates the per-security pipeline: snapshot
// ingestion, data availability, growth, valuation, the agent roster, risk,
// consensus, and the final trading signal.
package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tavendale/equity-council/internal/clients/yahoo"
	"github.com/tavendale/equity-council/internal/database/repositories"
	"github.com/tavendale/equity-council/internal/domain"
	"github.com/tavendale/equity-council/internal/events"
	"github.com/tavendale/equity-council/internal/modules/agents"
	"github.com/tavendale/equity-council/internal/modules/consensus"
	"github.com/tavendale/equity-council/internal/modules/growth"
	"github.com/tavendale/equity-council/internal/modules/risk"
	"github.com/tavendale/equity-council/internal/modules/signals"
	"github.com/tavendale/equity-council/internal/modules/valuation"
)

// SnapshotSource records where the pipeline's input data came from.
type SnapshotSource string

const (
	SourceCache      SnapshotSource = "cache"
	SourceStaleCache SnapshotSource = "stale_cache"
	SourceAPI        SnapshotSource = "api"
)

// Report is the complete per-security analysis output.
type Report struct {
	RunID       string                `json:"runId"`
	Symbol      string                `json:"symbol"`
	GeneratedAt time.Time             `json:"generatedAt"`
	Source      SnapshotSource        `json:"snapshotSource"`
	Growth      growth.Analysis       `json:"growth"`
	Valuation   valuation.Findings    `json:"valuation"`
	Risk        risk.Output           `json:"risk"`
	Consensus   consensus.Result      `json:"consensus"`
	Signal      signals.TradingSignal `json:"signal"`
}

// PortfolioReport aggregates reports across a watchlist run.
type PortfolioReport struct {
	RunID       string                   `json:"runId"`
	GeneratedAt time.Time                `json:"generatedAt"`
	Reports     []*Report                `json:"reports"`
	Failed      map[string]string        `json:"failed,omitempty"` // ticker -> error
	Portfolio   signals.PortfolioSummary `json:"portfolio"`
}

// Service wires the pipeline modules together.
type Service struct {
	yahoo       *yahoo.Client
	snapshots   *repositories.SnapshotRepository
	runs        *repositories.RunRepository
	growth      *growth.Calculator
	valuation   *valuation.Engine
	agents      *agents.Service
	risk        *risk.Manager
	consensus   *consensus.Manager
	signals     *signals.Generator
	events      *events.Manager
	concurrency int
	log         zerolog.Logger
}

// Config holds the orchestrator's dependencies.
type Config struct {
	Yahoo       *yahoo.Client
	Snapshots   *repositories.SnapshotRepository
	Runs        *repositories.RunRepository
	Growth      *growth.Calculator
	Valuation   *valuation.Engine
	Agents      *agents.Service
	Risk        *risk.Manager
	Consensus   *consensus.Manager
	Signals     *signals.Generator
	Events      *events.Manager
	Concurrency int
	Log         zerolog.Logger
}

// NewService creates the analysis orchestrator.
func NewService(cfg Config) *Service {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Service{
		yahoo:       cfg.Yahoo,
		snapshots:   cfg.Snapshots,
		runs:        cfg.Runs,
		growth:      cfg.Growth,
		valuation:   cfg.Valuation,
		agents:      cfg.Agents,
		risk:        cfg.Risk,
		consensus:   cfg.Consensus,
		signals:     cfg.Signals,
		events:      cfg.Events,
		concurrency: concurrency,
		log:         cfg.Log.With().Str("module", "analysis").Logger(),
	}
}

// Analyze runs the full pipeline for one ticker.
func (s *Service) Analyze(ctx context.Context, ticker string) (*Report, error) {
	runID := uuid.New().String()
	s.events.Emit(events.AnalysisStart, "analysis", map[string]interface{}{
		"ticker": ticker, "run_id": runID,
	})

	fd, source, err := s.snapshot(ctx, ticker)
	if err != nil {
		s.events.EmitError("analysis", err, map[string]interface{}{"ticker": ticker})
		return nil, err
	}

	report := s.evaluate(ctx, runID, fd, source)

	if err := s.runs.Save(runID, ticker, report); err != nil {
		// Persistence is best-effort; the report itself is still valid.
		s.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to persist run")
	}

	s.events.Emit(events.AnalysisComplete, "analysis", map[string]interface{}{
		"ticker":         ticker,
		"run_id":         runID,
		"recommendation": string(report.Consensus.FinalRecommendation),
	})

	return report, nil
}

// AnalyzeAll runs the pipeline for a watchlist with bounded concurrency and
// rolls the signals up into portfolio exposure. Individual failures are
// recorded without aborting the batch.
func (s *Service) AnalyzeAll(ctx context.Context, tickers []string) *PortfolioReport {
	out := &PortfolioReport{
		RunID:       uuid.New().String(),
		GeneratedAt: time.Now().UTC(),
		Failed:      make(map[string]string),
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.concurrency)
	)

	for _, ticker := range tickers {
		wg.Add(1)
		go func(ticker string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			report, err := s.Analyze(ctx, ticker)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				out.Failed[ticker] = err.Error()
				return
			}
			out.Reports = append(out.Reports, report)
		}(ticker)
	}
	wg.Wait()

	sigs := make([]signals.TradingSignal, 0, len(out.Reports))
	for _, r := range out.Reports {
		sigs = append(sigs, r.Signal)
	}
	out.Portfolio = s.signals.Summarize(sigs)

	s.events.Emit(events.PortfolioSummarized, "analysis", map[string]interface{}{
		"run_id":       out.RunID,
		"analyzed":     len(out.Reports),
		"failed":       len(out.Failed),
		"exposure_pct": out.Portfolio.TotalExposurePercent,
	})

	return out
}

// RefreshSnapshot force-fetches a ticker and updates the cache. Used by the
// scheduled refresh job.
func (s *Service) RefreshSnapshot(ticker string) error {
	fd, err := s.yahoo.FetchSnapshot(context.Background(), ticker)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", ticker, err)
	}
	return s.snapshots.Put(ticker, fd)
}

// evaluate runs the deterministic pipeline stages over a snapshot.
func (s *Service) evaluate(ctx context.Context, runID string, fd *domain.FinancialData, source SnapshotSource) *Report {
	growthAnalysis := s.growth.Analyze(fd)
	findings := s.valuation.Evaluate(fd, growthAnalysis)

	votes := s.agents.Evaluate(agents.Input{
		Data:      fd,
		Growth:    growthAnalysis,
		Valuation: findings,
	})
	avgScore := agents.AverageScore(votes)

	riskOut := s.risk.Assess(fd.Symbol, fd.Price.Current, fd.PriceHistory, avgScore)
	votes = append(votes, riskOut.Vote)

	cons := s.consensus.Build(ctx, fd.Symbol, votes, riskOut, findings)
	if cons.OverrideApplied != "" {
		s.events.Emit(events.RiskOverrideApplied, "analysis", map[string]interface{}{
			"ticker":   fd.Symbol,
			"override": cons.OverrideApplied,
		})
	}
	if cons.NarrativeSource == "fallback" {
		s.events.Emit(events.NarrativeFallback, "analysis", map[string]interface{}{
			"ticker": fd.Symbol,
		})
	}

	signal := s.signals.Generate(fd.Symbol, fd.Price.Current, cons, riskOut)
	s.events.Emit(events.SignalGenerated, "analysis", map[string]interface{}{
		"ticker": fd.Symbol,
		"signal": string(signal.Signal),
	})

	return &Report{
		RunID:       runID,
		Symbol:      fd.Symbol,
		GeneratedAt: time.Now().UTC(),
		Source:      source,
		Growth:      growthAnalysis,
		Valuation:   findings,
		Risk:        riskOut,
		Consensus:   cons,
		Signal:      signal,
	}
}

// snapshot resolves the pipeline's input: fresh cache first, then the
// upstream API, then a stale cache entry as the degraded fallback.
func (s *Service) snapshot(ctx context.Context, ticker string) (*domain.FinancialData, SnapshotSource, error) {
	cached, err := s.snapshots.Get(ticker)
	if err != nil {
		return nil, "", err
	}

	if cached.Found && !cached.Stale {
		s.events.Emit(events.CacheHit, "analysis", map[string]interface{}{"ticker": ticker})
		return cached.Data, SourceCache, nil
	}

	fd, fetchErr := s.yahoo.FetchSnapshot(ctx, ticker)
	if fetchErr == nil {
		if err := s.snapshots.Put(ticker, fd); err != nil {
			s.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to cache snapshot")
		}
		return fd, SourceAPI, nil
	}

	if cached.Found {
		s.events.Emit(events.CacheStale, "analysis", map[string]interface{}{
			"ticker":     ticker,
			"fetched_at": cached.FetchedAt,
		})
		s.log.Warn().Err(fetchErr).Str("ticker", ticker).Msg("Fetch failed, serving stale snapshot")
		return cached.Data, SourceStaleCache, nil
	}

	return nil, "", fmt.Errorf("no data available for %s: %w", ticker, fetchErr)
}
