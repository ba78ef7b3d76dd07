package ocr

import (
	"regexp"
	"strings"
)

var (
	reDateish   = regexp.MustCompile(`\b20\d{2}\b|\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`)
	reCurrency  = regexp.MustCompile(`\b(usd|eur|gbp|cad|aud|chf|cny|inr|jpy|mxn)\b|[$£€¥₹]`)
	reAmountish = regexp.MustCompile(`\b\d{1,3}(,\d{3})*\.\d{2}\b|\b\d+\.\d{2}\b`)

	reCtrlNoise = regexp.MustCompile(`[\x00-\x08\x0b\x0e-\x1f]`)
	reBlankRuns = regexp.MustCompile(`\n{3,}`)
)

// normalizeText strips control noise from decoded output and collapses
// runs of blank lines so downstream line-based heuristics see clean input.
func normalizeText(s string) string {
	s = reCtrlNoise.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = reBlankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// heuristicConfidence estimates decode quality from receipt-ish artifacts
// in the text: date, currency, and amount shapes each add a bump.
func heuristicConfidence(txt string) float32 {
	lower := strings.ToLower(txt)
	score := float32(0.2)
	if reDateish.MatchString(lower) {
		score += 0.2
	}
	if reCurrency.MatchString(lower) {
		score += 0.15
	}
	if reAmountish.MatchString(lower) {
		score += 0.15
	}
	if len(txt) > 120 {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
