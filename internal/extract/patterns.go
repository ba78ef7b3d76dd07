package extract

import "regexp"

// Field patterns are tried in order; the first acceptable hit wins unless
// noted otherwise. All patterns operate on raw OCR text, so they tolerate
// the usual OCR noise (stray spaces, mixed case, comma thousand marks).

var vendorPatterns = []*regexp.Regexp{
	// Capture stays on one line; OCR text is line-oriented.
	regexp.MustCompile(`(?im)(?:from|pay to|vendor|merchant|seller|sold by|billed from):[ \t]*([A-Za-z0-9&.,\- ]+)`),
}

// vendorNoise rejects fallback lines that are document headers rather
// than a company name.
var vendorNoise = regexp.MustCompile(`(?i)^(?:invoice|receipt|statement|bill|estimate|quote)\b`)

// bareDate rejects fallback lines that are just a date.
var bareDate = regexp.MustCompile(`^\d+[/-]\d+`)

// amountPatterns are matched exhaustively; the extractor keeps the
// maximum in-range value, since the total is typically the largest
// number on an invoice.
var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:total|amount|sum|balance|due)[\s:$]*\$?\s*(\d+[,.]?\d*\.?\d{2})`),
	regexp.MustCompile(`\$\s*(\d+[,.]?\d*\.?\d{2})`),
	regexp.MustCompile(`(?i)(\d+[,.]?\d*\.?\d{2})\s*(?:USD|\$)`),
}

// The unambiguous year-first shape is tried before the short forms so an
// ISO date is never half-consumed by the MM/DD pattern.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{4}[/-]\d{1,2}[/-]\d{1,2})`),
	regexp.MustCompile(`(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`),
	regexp.MustCompile(`((?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{1,2},?\s+\d{4})`),
	regexp.MustCompile(`(\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{4})`),
}

// dateLayouts are tried in order against every date-shaped hit. US order
// first, matching the documents this was tuned on.
var dateLayouts = []string{
	"1/2/2006", "1-2-2006", "1/2/06", "1-2-06",
	"2006/1/2", "2006-1-2",
	"2/1/2006", "2-1-2006", "2/1/06", "2-1-06",
	"January 2, 2006", "Jan 2, 2006", "2 January 2006", "2 Jan 2006",
	"January 2 2006", "Jan 2 2006",
}

var invoicePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:invoice|receipt|order|ref|reference|no|#)[\s#:]*([A-Z0-9\-]+)`),
}

var (
	alphaRun     = regexp.MustCompile(`[A-Za-z]{3,}`)
	numericToken = regexp.MustCompile(`\d+\.?\d*`)
	whitespace   = regexp.MustCompile(`\s+`)
	amountLike   = regexp.MustCompile(`\d+\.?\d{2}`)
	dateLike     = regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`)
)
