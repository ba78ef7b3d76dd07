package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/agext/levenshtein"

	"github.com/expscan/expscan/constants"
	"github.com/expscan/expscan/internal/entity"
)

const (
	// visualDistanceLimit is the maximum Hamming distance between two
	// perceptual hashes still treated as the same document.
	visualDistanceLimit = 10

	// metadataFloor is the minimum additive metadata score that produces
	// a candidate signal.
	metadataFloor = 70

	// DefaultThreshold is the confidence a best candidate must reach to
	// declare a duplicate.
	DefaultThreshold = 85
)

var levParams = levenshtein.NewParams()

// History provides read access to previously stored expense records.
type History interface {
	ListRecords(ctx context.Context) ([]entity.ExpenseRecord, error)
}

// CheckResult is the outcome of a duplicate check, including the
// fingerprints computed along the way so callers can attach them to the
// record without rehashing the file.
type CheckResult struct {
	IsDuplicate bool
	Signal      *entity.DuplicateSignal
	Confidence  int
	FileHash    string
	ImageHashes *entity.ImageHashes
}

// Detector runs duplicate checks against historical records, combining an
// exact file hash, a perceptual image hash, and extracted metadata into a
// single best signal.
type Detector struct {
	history   History
	threshold int
	logger    *slog.Logger

	// hashing is injectable for tests
	fileHash  func(path string) (string, error)
	imageHash func(path string) (*entity.ImageHashes, error)
}

func NewDetector(history History, threshold int, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Detector{
		history:   history,
		threshold: threshold,
		logger:    logger,
		fileHash:  FileSHA256,
		imageHash: ComputeImageHashes,
	}
}

// CheckDuplicate fingerprints the file and compares it against history.
//
// An exact file-hash match is conclusive and short-circuits the remaining
// checks at confidence 100. Otherwise a perceptual-hash match within the
// distance limit yields a 95-confidence candidate, and metadata scoring a
// 70..100 candidate. The single best candidate wins, and only a best at
// or above the configured threshold declares a duplicate.
func (d *Detector) CheckDuplicate(ctx context.Context, path string, extraction entity.ExtractionResult) (CheckResult, error) {
	fileHash, err := d.fileHash(path)
	if err != nil {
		return CheckResult{}, fmt.Errorf("fingerprint %s: %w", path, err)
	}

	records, err := d.history.ListRecords(ctx)
	if err != nil {
		return CheckResult{}, fmt.Errorf("load history: %w", err)
	}

	for _, rec := range records {
		if rec.FileHash != "" && rec.FileHash == fileHash {
			sig := &entity.DuplicateSignal{
				Type:       entity.SignalExactMatch,
				Confidence: 100,
				MatchedID:  rec.ID,
				Reasons:    []string{"identical file content"},
			}
			d.logger.Info("dedup.exact_match", "matched_id", rec.ID)
			return CheckResult{IsDuplicate: true, Signal: sig, Confidence: 100, FileHash: fileHash}, nil
		}
	}

	var candidates []entity.DuplicateSignal

	imgHashes, err := d.imageHash(path)
	if err != nil {
		// visual check degrades to skipped, the other signals still run
		d.logger.Warn("dedup.image_hash_failed", "path", path, "error", err)
		imgHashes = nil
	}
	if imgHashes != nil {
		for _, rec := range records {
			if rec.ImageHashes == nil {
				continue
			}
			dist := HammingDistance(imgHashes.PerceptualHash, rec.ImageHashes.PerceptualHash)
			if dist < visualDistanceLimit {
				candidates = append(candidates, entity.DuplicateSignal{
					Type:       entity.SignalVisualSimilarity,
					Confidence: 95,
					MatchedID:  rec.ID,
					Reasons:    []string{fmt.Sprintf("perceptual hash distance %d", dist)},
				})
				break
			}
		}
	}

	for _, rec := range records {
		score, reasons := metadataScore(extraction, rec)
		if score >= metadataFloor {
			candidates = append(candidates, entity.DuplicateSignal{
				Type:       entity.SignalMetadataSimilarity,
				Confidence: min(score, 100),
				MatchedID:  rec.ID,
				Reasons:    reasons,
			})
		}
	}

	best := bestSignal(candidates)
	if best == nil || best.Confidence < d.threshold {
		return CheckResult{FileHash: fileHash, ImageHashes: imgHashes}, nil
	}

	d.logger.Info("dedup.duplicate_found",
		"signal", string(best.Type), "confidence", best.Confidence, "matched_id", best.MatchedID)
	return CheckResult{
		IsDuplicate: true,
		Signal:      best,
		Confidence:  best.Confidence,
		FileHash:    fileHash,
		ImageHashes: imgHashes,
	}, nil
}

func bestSignal(candidates []entity.DuplicateSignal) *entity.DuplicateSignal {
	var best *entity.DuplicateSignal
	for i := range candidates {
		if best == nil || candidates[i].Confidence > best.Confidence {
			best = &candidates[i]
		}
	}
	return best
}

// metadataScore adds up field-level agreement between a fresh extraction
// and a stored record: a shared invoice number earns 50, vendor
// similarity above 85% earns 20, amounts equal to the cent 20 (within 5%
// 10), and dates the same day 15 (within a week 5).
func metadataScore(extraction entity.ExtractionResult, rec entity.ExpenseRecord) (int, []string) {
	score := 0
	var reasons []string

	if extraction.InvoiceNumber != "" && rec.InvoiceNumber != "" &&
		strings.EqualFold(extraction.InvoiceNumber, rec.InvoiceNumber) {
		score += 50
		reasons = append(reasons, "same invoice number")
	}

	if extraction.Vendor != "" && rec.Vendor != "" {
		sim := levenshtein.Similarity(normalizeVendor(extraction.Vendor), normalizeVendor(rec.Vendor), levParams)
		if sim*100 > 85 {
			score += 20
			reasons = append(reasons, fmt.Sprintf("vendor match (%.0f%%)", sim*100))
		}
	}

	if extraction.Amount > 0 && rec.Amount > 0 {
		diff := math.Abs(extraction.Amount - rec.Amount)
		switch {
		case diff < 0.01:
			score += 20
			reasons = append(reasons, "same amount")
		case diff < extraction.Amount*0.05:
			score += 10
			reasons = append(reasons, "amounts within 5%")
		}
	}

	if days, ok := daysBetween(extraction.Date, rec.Date); ok {
		switch {
		case days == 0:
			score += 15
			reasons = append(reasons, "same date")
		case days <= 7:
			score += 5
			reasons = append(reasons, fmt.Sprintf("dates %d days apart", days))
		}
	}

	return score, reasons
}

func normalizeVendor(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// sameCategory compares categories on the fixed taxonomy so free-form
// spellings of the same category still count. Two strings that both fail
// to canonicalize only match verbatim.
func sameCategory(a, b string) bool {
	ca, okA := constants.Canonicalize(a)
	cb, okB := constants.Canonicalize(b)
	if okA && okB {
		return ca == cb
	}
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func daysBetween(a, b string) (int, bool) {
	ta, errA := time.Parse("2006-01-02", a)
	tb, errB := time.Parse("2006-01-02", b)
	if errA != nil || errB != nil {
		return 0, false
	}
	days := int(math.Abs(ta.Sub(tb).Hours()) / 24)
	return days, true
}

// SimilarExpense pairs a stored record with a 0..100 similarity score.
type SimilarExpense struct {
	Record     entity.ExpenseRecord
	Similarity float64
}

// FindSimilar ranks stored records by resemblance to the given one:
// vendor similarity contributes up to 40 points, an exact category match
// 30, and amount closeness up to 30. Records scoring below 50 are
// dropped; at most limit results come back, best first.
func (d *Detector) FindSimilar(ctx context.Context, record entity.ExpenseRecord, limit int) ([]SimilarExpense, error) {
	records, err := d.history.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	var out []SimilarExpense
	for _, rec := range records {
		if rec.ID == record.ID {
			continue
		}
		score := 0.0
		if record.Vendor != "" && rec.Vendor != "" {
			score += levenshtein.Similarity(normalizeVendor(record.Vendor), normalizeVendor(rec.Vendor), levParams) * 100 * 0.4
		}
		if record.Category != "" && rec.Category != "" && sameCategory(record.Category, rec.Category) {
			score += 30
		}
		if record.Amount > 0 && rec.Amount > 0 {
			larger := math.Max(record.Amount, rec.Amount)
			closeness := 1 - math.Min(math.Abs(record.Amount-rec.Amount)/larger, 1)
			score += closeness * 30
		}
		if score >= 50 {
			out = append(out, SimilarExpense{Record: rec, Similarity: score})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Statistics summarizes the fingerprint coverage of the history.
type Statistics struct {
	TotalRecords    int `json:"total_records"`
	WithFileHash    int `json:"with_file_hash"`
	WithImageHashes int `json:"with_image_hashes"`
	Threshold       int `json:"threshold"`
}

func (d *Detector) Statistics(ctx context.Context) (Statistics, error) {
	records, err := d.history.ListRecords(ctx)
	if err != nil {
		return Statistics{}, fmt.Errorf("load history: %w", err)
	}
	stats := Statistics{TotalRecords: len(records), Threshold: d.threshold}
	for _, rec := range records {
		if rec.FileHash != "" {
			stats.WithFileHash++
		}
		if rec.ImageHashes != nil {
			stats.WithImageHashes++
		}
	}
	return stats, nil
}
