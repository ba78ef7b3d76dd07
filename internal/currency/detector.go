package currency

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/expscan/expscan/constants"
	"github.com/expscan/expscan/internal/entity"
)

// bareNumber finds untagged amounts for the last-resort fallback.
var bareNumber = regexp.MustCompile(`(\d+[,.]?\d*\.?\d{2})`)

type compiledSpec struct {
	constants.CurrencySpec
	re *regexp.Regexp
}

// Detector recognizes currency symbols and codes in raw document text and
// extracts a monetary amount with a currency label. It never fails: with
// no evidence at all it returns a zero amount in the base currency at
// floor confidence.
type Detector struct {
	base   string
	specs  []compiledSpec
	logger *slog.Logger
}

func NewDetector(baseCurrency string, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	specs := make([]compiledSpec, 0, len(constants.Currencies))
	for _, c := range constants.Currencies {
		specs = append(specs, compiledSpec{CurrencySpec: c, re: regexp.MustCompile(c.Pattern)})
	}
	return &Detector{base: baseCurrency, specs: specs, logger: logger}
}

// ExtractAmountWithCurrency returns the highest-confidence currency-tagged
// amount in the text. Confidence starts at 70 per match and gains 20 when
// a total/amount/due/balance keyword sits within 20 characters of it.
//
// With no tagged match it falls back to separate currency detection plus
// the last bare number in the text (totals tend to come after line
// items), capped at confidence 60. With nothing at all: (0, base, 30).
func (d *Detector) ExtractAmountWithCurrency(text string) entity.CurrencyMatch {
	var best entity.CurrencyMatch

	for _, spec := range d.specs {
		for _, idx := range spec.re.FindAllStringSubmatchIndex(text, -1) {
			amount, err := parseAmount(text[idx[2]:idx[3]])
			if err != nil || amount <= 0 || amount >= 1_000_000 {
				continue
			}
			confidence := 70
			if hasProximityKeyword(text, idx[0], idx[1]) {
				confidence += 20
			}
			if confidence > best.Confidence {
				best = entity.CurrencyMatch{Amount: amount, CurrencyCode: spec.Code, Confidence: confidence}
			}
		}
	}
	if best.Confidence > 0 {
		return best
	}

	// No currency-tagged amount: detect the currency from symbol/code/name
	// evidence and take the last bare number.
	code, codeConf := d.DetectCurrency(text)
	if nums := bareNumber.FindAllStringSubmatch(text, -1); len(nums) > 0 {
		amount, err := parseAmount(nums[len(nums)-1][1])
		if err == nil && amount > 0 && amount < 1_000_000 {
			return entity.CurrencyMatch{Amount: amount, CurrencyCode: code, Confidence: min(codeConf, 60)}
		}
	}

	return entity.CurrencyMatch{Amount: 0, CurrencyCode: d.base, Confidence: 30}
}

// DetectCurrency scores each supported currency by weighted evidence:
// symbol occurrences weigh 3, code 2, name 1. Defaults to the base
// currency at confidence 50 when nothing matches.
func (d *Detector) DetectCurrency(text string) (string, int) {
	lower := strings.ToLower(text)

	bestCode, bestScore := "", 0
	for _, spec := range d.specs {
		score := 0
		if strings.Contains(text, spec.Symbol) {
			score += 3
		}
		if strings.Contains(text, spec.Code) {
			score += 2
		}
		if strings.Contains(lower, strings.ToLower(spec.Name)) {
			score++
		}
		if score > bestScore {
			bestCode, bestScore = spec.Code, score
		}
	}

	if bestScore == 0 {
		return d.base, 50
	}
	return bestCode, min(95, 60+bestScore*10)
}

func hasProximityKeyword(text string, start, end int) bool {
	lo := max(0, start-20)
	hi := min(len(text), end+20)
	window := strings.ToLower(text[lo:hi])
	for _, kw := range constants.AmountProximityKeywords {
		if strings.Contains(window, kw) {
			return true
		}
	}
	return false
}

func parseAmount(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}
