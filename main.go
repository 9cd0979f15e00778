package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"mbingest/internal/config"
	"mbingest/internal/coordinator"
	"mbingest/internal/logger"
	"mbingest/internal/mercadobitcoin"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init(cfg.LogLevel)

	// Stop between jobs on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	coord := coordinator.New(buildJobs(cfg))

	results, err := coord.Run(ctx)
	if err != nil {
		slog.Error("ingestion aborted", "error", err)
		os.Exit(1)
	}

	if failed := coordinator.Failed(results); failed > 0 {
		slog.Error("ingestion finished with failures", "failed", failed, "total", len(results))
		os.Exit(1)
	}
}

// buildJobs creates one day-summary and one trades job per configured coin
func buildJobs(cfg *config.Config) []coordinator.Job {
	period := mercadobitcoin.Period{From: cfg.TradesFrom, To: cfg.TradesTo}

	var jobs []coordinator.Job
	for _, coin := range cfg.Coins {
		daySummary := mercadobitcoin.NewDaySummaryAPI(coin, mercadobitcoin.WithBaseURL(cfg.BaseURL))
		trades := mercadobitcoin.NewTradesAPI(coin, mercadobitcoin.WithBaseURL(cfg.BaseURL))

		jobs = append(jobs,
			coordinator.NewJob(daySummary.For(cfg.DaySummaryDate), cfg.OutputDir),
			coordinator.NewJob(trades.For(period), cfg.OutputDir),
		)
	}
	return jobs
}
