package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/expscan/expscan/internal/common"
	"github.com/expscan/expscan/internal/currency"
	"github.com/expscan/expscan/internal/dedup"
	"github.com/expscan/expscan/internal/entity"
	"github.com/expscan/expscan/internal/extract"
	"github.com/expscan/expscan/internal/learning"
	"github.com/expscan/expscan/internal/ocr"
	"github.com/expscan/expscan/internal/pipeline"
	"github.com/expscan/expscan/internal/repository"
)

// noHistory is the duplicate-detection history when no database is
// configured: every document looks new.
type noHistory struct{}

func (noHistory) ListRecords(ctx context.Context) ([]entity.ExpenseRecord, error) {
	return nil, nil
}

type output struct {
	*pipeline.ProcessResult
	BaseCurrency    string  `json:"base_currency"`
	AmountBase      float64 `json:"amount_base"`
	FormattedAmount string  `json:"formatted_amount"`
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "scanfile <path-to-pdf-or-image>")
		os.Exit(2)
	}
	path := os.Args[1]

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

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

	var history dedup.History = noHistory{}
	if cfg.Database.DSN != "" {
		pool, err := repository.Open(ctx, cfg.Database, logger)
		if err != nil {
			logger.Error("open db", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		history = repository.NewExpenseRepository(pool, logger)
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
		dedup.NewDetector(history, cfg.Pipeline.DuplicateThreshold, logger),
		logger,
	)

	res, err := proc.ProcessFile(ctx, path)
	if err != nil {
		logger.Error("processing failed", "path", path, "error", err)
		os.Exit(1)
	}

	out := output{
		ProcessResult:   res,
		BaseCurrency:    cfg.Currency.BaseCurrency,
		AmountBase:      rates.ConvertToBase(res.Extraction.Amount, res.Extraction.CurrencyCode),
		FormattedAmount: currency.FormatAmount(res.Extraction.Amount, res.Extraction.CurrencyCode),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Error("encode result", "error", err)
		os.Exit(1)
	}
}
