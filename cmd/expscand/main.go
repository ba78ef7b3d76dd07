package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/expscan/expscan/internal/async"
	"github.com/expscan/expscan/internal/common"
	"github.com/expscan/expscan/internal/currency"
	"github.com/expscan/expscan/internal/dedup"
	"github.com/expscan/expscan/internal/extract"
	"github.com/expscan/expscan/internal/ingest"
	"github.com/expscan/expscan/internal/learning"
	"github.com/expscan/expscan/internal/ocr"
	"github.com/expscan/expscan/internal/pipeline"
	"github.com/expscan/expscan/internal/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "expscand <directory>")
		os.Exit(2)
	}
	root := os.Args[1]

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.Database.DSN == "" {
		logger.Error("DB_URL required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pool, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("open db", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	expenses := repository.NewExpenseRepository(pool, logger)

	store := learning.NewStore(cfg.Pipeline.DataDir, logger)
	if err := store.Load(); err != nil {
		logger.Error("load learning store", "error", err)
		os.Exit(1)
	}
	enhancer := learning.NewEnhancer(store, logger)

	rates := currency.NewRateTable(cfg.Pipeline.DataDir, cfg.Currency.BaseCurrency, cfg.Currency.RatesRefresh, logger)
	if err := rates.Load(); err != nil {
		logger.Error("load exchange rates", "error", err)
		os.Exit(1)
	}

	proc := pipeline.NewProcessor(
		ocr.NewExtractor(ocr.Config{
			Pdftotext: cfg.OCR.Pdftotext,
			Tesseract: cfg.OCR.Tesseract,
			Language:  cfg.OCR.Language,
		}, logger),
		extract.NewExtractor(logger),
		enhancer,
		currency.NewDetector(cfg.Currency.BaseCurrency, logger),
		dedup.NewDetector(expenses, cfg.Pipeline.DuplicateThreshold, logger),
		logger,
	)

	queue := async.NewProcessorQueue(proc, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.Size),
		async.WithProcessTimeout(cfg.Queue.ProcessTimeout),
	)

	walker := ingest.NewWalker(queue, logger)
	stats, err := walker.WalkDirectory(ctx, root, nil)
	if err != nil {
		logger.Error("walk failed", "root", root, "error", err)
		os.Exit(1)
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	queue.Shutdown(drainCtx)

	logger.Info("batch complete",
		"root", root,
		"scanned", stats.Scanned,
		"enqueued", stats.Enqueued,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"corrections", store.CorrectionCount(),
	)
}
