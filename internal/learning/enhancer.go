package learning

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/expscan/expscan/constants"
	"github.com/expscan/expscan/internal/entity"
)

// retrainEvery is the corrections interval at which the vendor-frequency
// index is rebuilt automatically.
const retrainEvery = 10

// minContextCount is how many recorded contexts a learned pattern needs
// before the enhancer trusts it.
const minContextCount = 3

var lineAmount = regexp.MustCompile(`\$?\s*(\d+[,.]?\d*\.?\d{2})`)

// dateFormatProbes detect which shape a document writes its dates in.
var dateFormatProbes = []struct {
	re   *regexp.Regexp
	name string
}{
	{regexp.MustCompile(`\d{4}-\d{2}-\d{2}`), "YYYY-MM-DD"},
	{regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}`), "MM/DD/YYYY"},
	{regexp.MustCompile(`\d{1,2}-\d{1,2}-\d{4}`), "MM-DD-YYYY"},
	{regexp.MustCompile(`\w+ \d{1,2}, \d{4}`), "Month DD, YYYY"},
}

// Enhancer improves extractions using patterns learned from user
// corrections. It owns all writes to the store; nothing else mutates the
// corrections log or the learned patterns.
type Enhancer struct {
	store  *Store
	logger *slog.Logger
	now    func() time.Time
}

func NewEnhancer(store *Store, logger *slog.Logger) *Enhancer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enhancer{store: store, logger: logger, now: time.Now}
}

// Trained reports whether any corrections have been accumulated; the
// orchestrator skips enhancement entirely until then.
func (e *Enhancer) Trained() bool {
	return e.store.CorrectionCount() > 0
}

// AddCorrection appends one correction event and updates the learned
// patterns. Fields left nil or unchanged from the extraction are silently
// skipped. Every 10th correction triggers a retrain.
func (e *Enhancer) AddCorrection(rawText string, extracted entity.ExtractionResult, corrected entity.CorrectedFields) error {
	correction := entity.Correction{
		Timestamp: e.now().UTC(),
		RawText:   rawText,
		Extracted: extracted,
		Corrected: corrected,
	}

	// Mutate a copy; the store swaps it in atomically with the log entry.
	updated := e.store.Patterns()
	e.learnVendor(updated, rawText, extracted.Vendor, corrected.Vendor)
	e.learnAmount(updated, rawText, extracted.Amount, corrected.Amount)
	e.learnDate(updated, rawText, extracted.Date, corrected.Date)

	count, err := e.store.AppendCorrection(correction, updated)
	if err != nil {
		return err
	}
	e.logger.Info("learning.correction.added", "total", count)

	if count >= retrainEvery && count%retrainEvery == 0 {
		return e.Retrain()
	}
	return nil
}

// learnVendor records the line the corrected vendor appears on, plus its
// immediate neighbors, as a context sample for that vendor.
func (e *Enhancer) learnVendor(p *entity.LearnedPatterns, rawText, extracted string, corrected *string) {
	if corrected == nil || *corrected == "" || *corrected == extracted {
		return
	}
	lines := strings.Split(rawText, "\n")
	needle := strings.ToLower(*corrected)
	for i, line := range lines {
		if !strings.Contains(strings.ToLower(line), needle) {
			continue
		}
		ctx := entity.VendorContext{
			LineNumber:  i,
			TotalLines:  len(lines),
			LineContent: strings.TrimSpace(line),
		}
		if i > 0 {
			ctx.Before = strings.TrimSpace(lines[i-1])
		}
		if i < len(lines)-1 {
			ctx.After = strings.TrimSpace(lines[i+1])
		}
		p.VendorPatterns[*corrected] = append(p.VendorPatterns[*corrected], ctx)
		break
	}
}

// learnAmount classifies every line carrying the corrected amount by the
// keyword lexicon and bumps that keyword's counter.
func (e *Enhancer) learnAmount(p *entity.LearnedPatterns, rawText string, extracted float64, corrected *float64) {
	if corrected == nil || *corrected == 0 || *corrected == extracted {
		return
	}
	decStr := strconv.FormatFloat(*corrected, 'f', 2, 64)
	intStr := strconv.Itoa(int(*corrected))
	for _, line := range strings.Split(rawText, "\n") {
		if !strings.Contains(line, decStr) && !strings.Contains(line, intStr) {
			continue
		}
		if kw := amountContextKeyword(line); kw != "" {
			p.AmountContexts[kw]++
		}
	}
}

// amountContextKeyword returns the first lexicon keyword present in the
// line, or empty.
func amountContextKeyword(line string) string {
	lower := strings.ToLower(line)
	for _, kw := range constants.AmountContextKeywords {
		if strings.Contains(lower, kw) {
			return kw
		}
	}
	return ""
}

// learnDate reinforces a date format only when the extraction already
// agreed with the correction. Mistakes teach nothing here; only successes
// do. Asymmetric on purpose, pending a product call on learning from
// wrong dates.
func (e *Enhancer) learnDate(p *entity.LearnedPatterns, rawText, extracted string, corrected *string) {
	if corrected == nil || *corrected == "" {
		return
	}
	if extracted != *corrected {
		return
	}
	for _, probe := range dateFormatProbes {
		if probe.re.MatchString(rawText) {
			p.DateFormats[probe.name]++
			return
		}
	}
}

// EnhanceExtraction returns an enhanced copy of the extraction. The input
// is never mutated, and enhancing an already-enhanced result again is a
// no-op beyond recomputing the same values.
func (e *Enhancer) EnhanceExtraction(extraction entity.ExtractionResult, rawText string) entity.ExtractionResult {
	enhanced := extraction
	patterns := e.store.Patterns()
	samples := e.store.CorrectionCount()

	// Confidence boost from accumulated training, applied once.
	if !enhanced.Enhanced {
		enhanced.Confidence = min(100, enhanced.Confidence+min(20, 2*samples))
	}

	if vendor, conf := e.vendorOverride(patterns, rawText); vendor != "" {
		enhanced.Vendor = vendor
		if conf > enhanced.Confidence {
			enhanced.Confidence = conf
		}
	}

	if enhanced.Amount == 0 {
		if amount := e.amountFromContexts(patterns, rawText); amount > 0 {
			enhanced.Amount = amount
		}
	}

	enhanced.Enhanced = true
	enhanced.TrainingSamples = samples

	e.logger.Debug("learning.enhance",
		"vendor", enhanced.Vendor,
		"amount", enhanced.Amount,
		"confidence", enhanced.Confidence,
		"samples", samples,
	)
	return enhanced
}

// vendorOverride returns a learned vendor when it appears in the text and
// at least one stored context line closely matches the corresponding line
// here. Confidence scales with how often the vendor was confirmed.
func (e *Enhancer) vendorOverride(p *entity.LearnedPatterns, rawText string) (string, int) {
	lowerText := strings.ToLower(rawText)
	lines := strings.Split(rawText, "\n")
	for vendor, contexts := range p.VendorPatterns {
		if len(contexts) < minContextCount {
			continue
		}
		if !strings.Contains(lowerText, strings.ToLower(vendor)) {
			continue
		}
		for _, ctx := range contexts {
			if ctx.LineNumber >= len(lines) {
				continue
			}
			if jaccardSimilarity(lines[ctx.LineNumber], ctx.LineContent) > 0.7 {
				return vendor, min(95, 70+5*len(contexts))
			}
		}
	}
	return "", 0
}

// amountFromContexts extracts the first in-range numeric token on a line
// matching a sufficiently-learned keyword.
func (e *Enhancer) amountFromContexts(p *entity.LearnedPatterns, rawText string) float64 {
	for kw, count := range p.AmountContexts {
		if count < minContextCount {
			continue
		}
		for _, line := range strings.Split(rawText, "\n") {
			if !strings.Contains(strings.ToLower(line), kw) {
				continue
			}
			m := lineAmount.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
			if err != nil {
				continue
			}
			if v > 0 && v < 1_000_000 {
				return v
			}
		}
	}
	return 0
}

// jaccardSimilarity is word-overlap similarity over whitespace-tokenized,
// lowercased words.
func jaccardSimilarity(a, b string) float64 {
	al := strings.TrimSpace(strings.ToLower(a))
	bl := strings.TrimSpace(strings.ToLower(b))
	if al == bl {
		if al == "" {
			return 0
		}
		return 1
	}
	aWords := map[string]struct{}{}
	for _, w := range strings.Fields(al) {
		aWords[w] = struct{}{}
	}
	bWords := map[string]struct{}{}
	for _, w := range strings.Fields(bl) {
		bWords[w] = struct{}{}
	}
	if len(aWords) == 0 || len(bWords) == 0 {
		return 0
	}
	inter := 0
	for w := range aWords {
		if _, ok := bWords[w]; ok {
			inter++
		}
	}
	union := len(aWords) + len(bWords) - inter
	return float64(inter) / float64(union)
}

// Retrain rebuilds the vendor-frequency ranking from the full corrections
// log. Pure aggregation, no model fitting.
func (e *Enhancer) Retrain() error {
	corrections := e.store.Corrections()

	freq := map[string]int{}
	for _, c := range corrections {
		if c.Corrected.Vendor != nil && *c.Corrected.Vendor != "" {
			freq[*c.Corrected.Vendor]++
		}
	}

	patterns := e.store.Patterns()
	patterns.VendorFrequency = freq
	if err := e.store.SetPatterns(patterns); err != nil {
		return err
	}
	e.logger.Info("learning.retrain.ok", "samples", len(corrections), "vendors", len(freq))
	return nil
}

// Statistics summarizes the training state.
type Statistics struct {
	TotalCorrections      int `json:"total_corrections"`
	LearnedVendors        int `json:"learned_vendors"`
	LearnedAmountContexts int `json:"learned_amount_contexts"`
	LearnedDateFormats    int `json:"learned_date_formats"`
	RetrainCount          int `json:"retrain_count"`
}

func (e *Enhancer) Statistics() Statistics {
	p := e.store.Patterns()
	total := e.store.CorrectionCount()
	return Statistics{
		TotalCorrections:      total,
		LearnedVendors:        len(p.VendorPatterns),
		LearnedAmountContexts: len(p.AmountContexts),
		LearnedDateFormats:    len(p.DateFormats),
		RetrainCount:          total / retrainEvery,
	}
}
