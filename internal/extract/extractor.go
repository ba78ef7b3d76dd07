package extract

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/expscan/expscan/constants"
	"github.com/expscan/expscan/internal/entity"
)

// Extractor derives structured expense fields from raw OCR text using
// ordered heuristic pattern lists. Extraction is best-effort and never
// fails: every field has a documented fallback and ambiguity degrades the
// confidence score instead of erroring.
type Extractor struct {
	logger *slog.Logger
	now    func() time.Time // injectable for tests
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger, now: time.Now}
}

// Extract parses rawText into an ExtractionResult.
func (e *Extractor) Extract(rawText string) entity.ExtractionResult {
	res := entity.ExtractionResult{
		Vendor:        e.extractVendor(rawText),
		Amount:        e.extractAmount(rawText),
		Date:          e.extractDate(rawText),
		InvoiceNumber: e.extractInvoiceNumber(rawText),
		Description:   e.extractDescription(rawText),
		RawText:       rawText,
		Confidence:    e.calculateConfidence(rawText),
	}
	e.logger.Debug("extract.fields",
		"vendor", res.Vendor,
		"amount", res.Amount,
		"date", res.Date,
		"invoice_number", res.InvoiceNumber,
		"confidence", res.Confidence,
	)
	return res
}

// extractVendor tries labeled patterns first, then falls back to the first
// plausible line near the top of the document.
func (e *Extractor) extractVendor(text string) string {
	for _, re := range vendorPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			vendor := whitespace.ReplaceAllString(strings.TrimSpace(m[1]), " ")
			if len(vendor) > 2 && len(vendor) < 50 {
				return vendor
			}
		}
	}

	// The company name is usually one of the first lines. Skip bare dates
	// and document-type headers like "INVOICE #123".
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if i >= 5 {
			break
		}
		line = strings.TrimSpace(line)
		if len(line) <= 2 || len(line) >= 50 {
			continue
		}
		if bareDate.MatchString(line) || vendorNoise.MatchString(line) {
			continue
		}
		return line
	}

	return "Unknown Vendor"
}

// extractAmount collects every in-range match across the amount patterns
// and returns the maximum.
func (e *Extractor) extractAmount(text string) float64 {
	var best float64
	for _, re := range amountPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
			if err != nil {
				continue
			}
			if v > 0 && v < 1_000_000 && v > best {
				best = v
			}
		}
	}
	return best
}

// extractDate returns the first date-shaped hit that parses under one of
// the known layouts, normalized to ISO. Falls back to today: a record
// with a slightly wrong date beats one with no date at all.
func (e *Extractor) extractDate(text string) string {
	for _, re := range datePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if iso, ok := parseDate(m[1]); ok {
				return iso
			}
		}
	}
	return e.now().Format("2006-01-02")
}

// parseDate tries the known layouts in order and normalizes to YYYY-MM-DD.
func parseDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

func (e *Extractor) extractInvoiceNumber(text string) string {
	for _, re := range invoicePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			num := strings.TrimSpace(m[1])
			if len(num) > 2 && len(num) < 30 {
				return num
			}
		}
	}
	return ""
}

// extractDescription joins up to three line items: lines carrying both an
// alphabetic run and a numeric token.
func (e *Extractor) extractDescription(text string) string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !alphaRun.MatchString(line) || !numericToken.MatchString(line) {
			continue
		}
		clean := whitespace.ReplaceAllString(line, " ")
		if len(clean) > 5 && len(clean) < 100 {
			items = append(items, clean)
		}
		if len(items) == 3 {
			break
		}
	}
	if len(items) > 0 {
		return strings.Join(items, "; ")
	}
	return "Expense"
}

// calculateConfidence scores how much the text looks like a real invoice
// or receipt. Additive, capped at 100.
func (e *Extractor) calculateConfidence(text string) int {
	score := 0
	if len(text) > 50 {
		score += 30
	}

	lower := strings.ToLower(text)
	keywordHits := 0
	for _, kw := range constants.ConfidenceKeywords {
		if strings.Contains(lower, kw) {
			keywordHits++
		}
	}
	score += min(keywordHits*10, 40)

	if amountLike.MatchString(text) {
		score += 15
	}
	if dateLike.MatchString(text) {
		score += 15
	}

	return min(score, 100)
}
