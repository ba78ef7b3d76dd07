package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/expscan/expscan/constants"
)

// minEmbeddedTextLen decides when a PDF's embedded text layer is too thin
// to trust and the pages get rasterized and OCRed instead.
const minEmbeddedTextLen = 40

type Config struct {
	Pdftotext string // binary name or absolute path; empty -> "pdftotext"
	Pdftoppm  string // empty -> "pdftoppm"
	Tesseract string // empty -> "tesseract"

	Language string // tesseract language, default "eng"
	DPI      int    // rasterization DPI for scanned PDFs, default 300
	MaxPages int    // 0 = no limit
}

// Result is the raw text pulled out of a document before any field
// extraction happens.
type Result struct {
	Text       string
	Pages      int
	Format     string // constants.PDF | constants.IMAGE
	Method     string // "pdf-text" | "pdf-ocr" | "image-ocr"
	Duration   time.Duration
	Warnings   []string
	Confidence float32 // 0..1 heuristic quality of the decoded text
}

// Extractor turns PDFs and images into text via external tools. PDFs try
// the embedded text layer first and fall back to rasterize-and-OCR.
type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// Extract picks a strategy based on file extension.
func (e *Extractor) Extract(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))

	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		res, err := e.extractPDF(ctx, path)
		res.Duration = time.Since(start)
		return res, err
	case constants.IMAGE:
		res, err := e.extractImage(ctx, path)
		res.Duration = time.Since(start)
		return res, err
	default:
		e.logger.Error("ocr.unsupported_extension", "extension", ext, "path", path)
		return Result{}, fmt.Errorf("unsupported extension: %q", ext)
	}
}

func (e *Extractor) extractPDF(ctx context.Context, path string) (Result, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return Result{Format: constants.PDF, Warnings: []string{string(errb)}}, fmt.Errorf("pdftotext: %w", err)
	}

	text := normalizeText(string(out))
	if len(strings.TrimSpace(text)) >= minEmbeddedTextLen {
		// form feed separates pages in pdftotext output
		pages := 1 + strings.Count(string(out), "\f")
		return Result{
			Text:       text,
			Pages:      pages,
			Format:     constants.PDF,
			Method:     "pdf-text",
			Confidence: heuristicConfidence(text),
		}, nil
	}

	e.logger.Info("ocr.pdf.no_text_layer", "path", path, "text_len", len(text))
	return e.pdfToOCR(ctx, path)
}

// pdfToOCR rasterizes the PDF with pdftoppm and runs tesseract per page.
func (e *Extractor) pdfToOCR(ctx context.Context, path string) (Result, error) {
	tmpDir, err := os.MkdirTemp("", "expscan-pp-*")
	if err != nil {
		return Result{Format: constants.PDF}, err
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return Result{Format: constants.PDF, Warnings: []string{string(errb)}}, fmt.Errorf("pdftoppm: %w", err)
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return Result{Format: constants.PDF}, fmt.Errorf("no pages rendered from %s", path)
	}

	var b strings.Builder
	var warns []string
	for _, img := range matches {
		txt, err := e.tesseract(ctx, img)
		if err != nil {
			warns = append(warns, err.Error())
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\f\n")
		}
		b.WriteString(txt)
	}

	text := normalizeText(b.String())
	return Result{
		Text:       text,
		Pages:      len(matches),
		Format:     constants.PDF,
		Method:     "pdf-ocr",
		Warnings:   warns,
		Confidence: heuristicConfidence(text),
	}, nil
}

func (e *Extractor) extractImage(ctx context.Context, path string) (Result, error) {
	txt, err := e.tesseract(ctx, path)
	if err != nil {
		return Result{Format: constants.IMAGE}, err
	}

	text := normalizeText(txt)
	return Result{
		Text:       text,
		Pages:      1,
		Format:     constants.IMAGE,
		Method:     "image-ocr",
		Confidence: heuristicConfidence(text),
	}, nil
}

func (e *Extractor) tesseract(ctx context.Context, path string) (string, error) {
	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, path, "stdout", "-l", e.cfg.Language)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w (%s)", err, truncate(string(errb), 256))
	}
	return string(out), nil
}
