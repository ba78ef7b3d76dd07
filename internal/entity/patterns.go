package entity

// VendorContext is one observed occurrence of a vendor name in document
// text: the matching line plus its immediate neighbors.
type VendorContext struct {
	LineNumber  int    `json:"line_number"`
	TotalLines  int    `json:"total_lines"`
	LineContent string `json:"line_content"`
	Before      string `json:"before,omitempty"`
	After       string `json:"after,omitempty"`
}

// LearnedPatterns is the knowledge base the enhancer accumulates from user
// corrections. Counts only grow except on explicit reset; a failed
// correction never leaves the structure partially updated.
type LearnedPatterns struct {
	VendorPatterns  map[string][]VendorContext `json:"vendor_patterns"`
	AmountContexts  map[string]int             `json:"amount_contexts"`
	DateFormats     map[string]int             `json:"date_formats"`
	VendorFrequency map[string]int             `json:"vendor_frequency,omitempty"`
}

// NewLearnedPatterns returns an empty, fully initialized knowledge base.
func NewLearnedPatterns() *LearnedPatterns {
	return &LearnedPatterns{
		VendorPatterns:  map[string][]VendorContext{},
		AmountContexts:  map[string]int{},
		DateFormats:     map[string]int{},
		VendorFrequency: map[string]int{},
	}
}

// Clone returns a deep copy, used to make per-correction updates
// all-or-nothing: mutate the copy, swap it in only on success.
func (p *LearnedPatterns) Clone() *LearnedPatterns {
	out := NewLearnedPatterns()
	for vendor, ctxs := range p.VendorPatterns {
		cp := make([]VendorContext, len(ctxs))
		copy(cp, ctxs)
		out.VendorPatterns[vendor] = cp
	}
	for k, v := range p.AmountContexts {
		out.AmountContexts[k] = v
	}
	for k, v := range p.DateFormats {
		out.DateFormats[k] = v
	}
	for k, v := range p.VendorFrequency {
		out.VendorFrequency[k] = v
	}
	return out
}
