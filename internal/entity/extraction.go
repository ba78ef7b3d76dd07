package entity

// ExtractionResult is the per-document output of the field extractor,
// enriched in place by the later pipeline stages and frozen once it is
// handed off for persistence.
type ExtractionResult struct {
	Vendor        string  `json:"vendor"`
	Amount        float64 `json:"amount"`
	Date          string  `json:"date"` // ISO YYYY-MM-DD, never empty
	InvoiceNumber string  `json:"invoice_number,omitempty"`
	Description   string  `json:"description"`
	RawText       string  `json:"raw_text"`
	Confidence    int     `json:"confidence"` // 0-100
	CurrencyCode  string  `json:"currency_code,omitempty"`

	// Set by the correction-learning enhancer.
	Enhanced        bool `json:"enhanced,omitempty"`
	TrainingSamples int  `json:"training_samples,omitempty"`
}

// CurrencyMatch is a detected monetary amount with its currency label.
// It lives for one extraction call and is merged into the ExtractionResult.
type CurrencyMatch struct {
	Amount       float64 `json:"amount"`
	CurrencyCode string  `json:"currency_code"`
	Confidence   int     `json:"confidence"` // 0-100
}
