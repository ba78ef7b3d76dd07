package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/expscan/expscan/internal/common"
	"github.com/expscan/expscan/internal/dedup"
	"github.com/expscan/expscan/internal/entity"
	"github.com/expscan/expscan/internal/ocr"
)

// TextExtractor is the OCR capability as the orchestrator sees it.
// Failure here is fatal for the document.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (ocr.Result, error)
}

// FieldExtractor derives structured fields from raw text.
type FieldExtractor interface {
	Extract(rawText string) entity.ExtractionResult
}

// Enhancer re-applies learned correction patterns.
type Enhancer interface {
	Trained() bool
	EnhanceExtraction(extraction entity.ExtractionResult, rawText string) entity.ExtractionResult
}

// CurrencyDetector finds a currency-labelled amount in raw text.
type CurrencyDetector interface {
	ExtractAmountWithCurrency(text string) entity.CurrencyMatch
}

// DuplicateChecker compares a document against stored history.
type DuplicateChecker interface {
	CheckDuplicate(ctx context.Context, path string, extraction entity.ExtractionResult) (dedup.CheckResult, error)
}

// ProcessResult is everything one document yields: the enriched
// extraction, the currency read, the fingerprints, and the duplicate
// verdict for the caller to act on before committing the record.
type ProcessResult struct {
	Extraction          entity.ExtractionResult `json:"extraction"`
	Currency            entity.CurrencyMatch    `json:"currency"`
	OCRMethod           string                  `json:"ocr_method"`
	OCRConfidence       float32                 `json:"ocr_confidence"`
	FileHash            string                  `json:"file_hash"`
	ImageHashes         *entity.ImageHashes     `json:"image_hashes,omitempty"`
	IsDuplicate         bool                    `json:"is_duplicate"`
	Signal              *entity.DuplicateSignal `json:"signal,omitempty"`
	DuplicateConfidence int                     `json:"duplicate_confidence"`
}

// Processor runs the per-document enrichment chain. The stages execute
// sequentially, each feeding the next; there is no concurrency inside a
// single document's pass.
type Processor struct {
	text     TextExtractor
	fields   FieldExtractor
	enhancer Enhancer
	currency CurrencyDetector
	dedup    DuplicateChecker
	logger   *slog.Logger
}

func NewProcessor(text TextExtractor, fields FieldExtractor, enhancer Enhancer, currency CurrencyDetector, dup DuplicateChecker, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		text:     text,
		fields:   fields,
		enhancer: enhancer,
		currency: currency,
		dedup:    dup,
		logger:   logger,
	}
}

// ProcessFile runs OCR, field extraction, enhancement (only once the
// enhancer has training data), currency detection, and the duplicate
// check, in that order. Only OCR and file I/O failures abort; every
// other stage degrades confidence instead of failing.
func (p *Processor) ProcessFile(ctx context.Context, path string) (*ProcessResult, error) {
	ocrRes, err := p.text.Extract(ctx, path)
	if err != nil {
		p.logger.Error("pipeline.ocr.failed", "path", path, "error", err)
		return nil, common.NewAppError("EXTRACTION_FAILURE", "text extraction failed",
			fmt.Errorf("%w: %w", common.ErrExtractionFailure, err))
	}
	p.logger.Info("pipeline.ocr.ok",
		"path", path, "method", ocrRes.Method, "pages", ocrRes.Pages, "chars", len(ocrRes.Text))

	extraction := p.fields.Extract(ocrRes.Text)

	if p.enhancer != nil && p.enhancer.Trained() {
		extraction = p.enhancer.EnhanceExtraction(extraction, ocrRes.Text)
	}

	match := p.currency.ExtractAmountWithCurrency(ocrRes.Text)
	// a currency-tagged amount beats the field extractor's bare-number fallback
	if match.Amount > 0 {
		extraction.Amount = match.Amount
	}
	extraction.CurrencyCode = match.CurrencyCode

	check, err := p.dedup.CheckDuplicate(ctx, path, extraction)
	if err != nil {
		p.logger.Error("pipeline.dedup.failed", "path", path, "error", err)
		return nil, common.WrapError(err, "duplicate check failed")
	}
	if check.IsDuplicate {
		p.logger.Warn("pipeline.duplicate",
			"path", path, "signal", string(check.Signal.Type), "confidence", check.Confidence)
	}

	result := &ProcessResult{
		Extraction:          extraction,
		Currency:            match,
		OCRMethod:           ocrRes.Method,
		OCRConfidence:       ocrRes.Confidence,
		FileHash:            check.FileHash,
		ImageHashes:         check.ImageHashes,
		IsDuplicate:         check.IsDuplicate,
		Signal:              check.Signal,
		DuplicateConfidence: check.Confidence,
	}
	p.logger.Info("pipeline.done",
		"path", path,
		"vendor", extraction.Vendor,
		"amount", extraction.Amount,
		"currency", extraction.CurrencyCode,
		"confidence", extraction.Confidence,
		"duplicate", check.IsDuplicate)
	return result, nil
}
