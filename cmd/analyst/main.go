package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tavendale/equity-council/internal/clients/gemini"
	"github.com/tavendale/equity-council/internal/clients/yahoo"
	"github.com/tavendale/equity-council/internal/config"
	"github.com/tavendale/equity-council/internal/database"
	"github.com/tavendale/equity-council/internal/database/repositories"
	"github.com/tavendale/equity-council/internal/events"
	"github.com/tavendale/equity-council/internal/modules/agents"
	"github.com/tavendale/equity-council/internal/modules/analysis"
	"github.com/tavendale/equity-council/internal/modules/availability"
	"github.com/tavendale/equity-council/internal/modules/consensus"
	"github.com/tavendale/equity-council/internal/modules/growth"
	"github.com/tavendale/equity-council/internal/modules/risk"
	"github.com/tavendale/equity-council/internal/modules/signals"
	"github.com/tavendale/equity-council/internal/modules/valuation"
	"github.com/tavendale/equity-council/internal/scheduler"
	"github.com/tavendale/equity-council/pkg/logger"
)

func main() {
	tickersFlag := flag.String("tickers", "", "comma-separated tickers to analyze (overrides WATCHLIST)")
	daemon := flag.Bool("daemon", false, "keep running and refresh snapshots on the configured schedule")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		errLog := logger.New(logger.Config{Level: "error", Pretty: true})
		errLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting equity council")

	tickers := cfg.Watchlist
	if *tickersFlag != "" {
		tickers = nil
		for _, t := range strings.Split(*tickersFlag, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tickers = append(tickers, strings.ToUpper(t))
			}
		}
	}
	if len(tickers) == 0 {
		log.Fatal().Msg("No tickers: set WATCHLIST or pass -tickers")
	}

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eventManager := events.NewManager(log)
	snapshots := repositories.NewSnapshotRepository(db.Conn(), log).
		WithTTL(time.Duration(cfg.SnapshotTTLHrs) * time.Hour)
	runs := repositories.NewRunRepository(db.Conn(), log)

	svc := buildService(ctx, cfg, snapshots, runs, eventManager, log)

	report := svc.AnalyzeAll(ctx, tickers)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Error().Err(err).Msg("Failed to write report")
	}

	if !*daemon {
		return
	}

	// Daemon mode: keep snapshots fresh and history bounded.
	sched := scheduler.New(log)

	refreshJob := scheduler.NewRefreshSnapshotsJob(log, snapshots, eventManager, svc.RefreshSnapshot)
	if err := sched.AddJob(cfg.RefreshSchedule, refreshJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register refresh job")
	}
	pruneJob := scheduler.NewPruneRunsJob(log, runs, scheduler.DefaultRunRetention)
	if err := sched.AddJob("0 0 3 * * *", pruneJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register prune job")
	}

	sched.Start()
	defer sched.Stop()

	log.Info().Int("tickers", len(tickers)).Msg("Daemon running")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")
}

// buildService wires the full pipeline. Narrative synthesis is enabled only
// when a Gemini key is configured; without one the consensus manager falls
// back to deterministic reasoning.
func buildService(
	ctx context.Context,
	cfg *config.Config,
	snapshots *repositories.SnapshotRepository,
	runs *repositories.RunRepository,
	eventManager *events.Manager,
	log zerolog.Logger,
) *analysis.Service {
	var synth consensus.Synthesizer
	if cfg.GeminiAPIKey != "" {
		var opts []gemini.Option
		if cfg.GeminiModel != "" {
			opts = append(opts, gemini.WithModel(cfg.GeminiModel))
		}
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, log, opts...)
		if err != nil {
			log.Warn().Err(err).Msg("Gemini unavailable, narrative synthesis disabled")
		} else {
			synth = client
		}
	}

	detector := availability.NewDetector(log)

	return analysis.NewService(analysis.Config{
		Yahoo:       yahoo.NewClient(log),
		Snapshots:   snapshots,
		Runs:        runs,
		Growth:      growth.NewCalculator(detector, log),
		Valuation:   valuation.NewEngine(log),
		Agents:      agents.NewService(log),
		Risk:        risk.NewManager(log),
		Consensus:   consensus.NewManager(synth, log),
		Signals:     signals.NewGenerator(log),
		Events:      eventManager,
		Concurrency: cfg.MaxConcurrency,
		Log:         log,
	})
}
