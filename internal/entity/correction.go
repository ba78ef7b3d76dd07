package entity

import "time"

// CorrectedFields holds the user-supplied fixes for one extraction.
// Nil means the user left the field untouched.
type CorrectedFields struct {
	Vendor *string  `json:"vendor,omitempty"`
	Amount *float64 `json:"amount,omitempty"`
	Date   *string  `json:"date,omitempty"`
}

// Correction is one append-only training log entry: what was extracted
// against what the user corrected it to. Never mutated after creation.
type Correction struct {
	Timestamp time.Time        `json:"timestamp"`
	RawText   string           `json:"raw_text"`
	Extracted ExtractionResult `json:"extracted"`
	Corrected CorrectedFields  `json:"corrected"`
}
