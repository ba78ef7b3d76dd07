package entity

import (
	"time"

	"github.com/google/uuid"
)

// ImageHashes carries the visual fingerprints of a stored document image,
// each encoded as 16 hex characters (64 bits).
type ImageHashes struct {
	AverageHash    string `json:"average_hash"`
	PerceptualHash string `json:"perceptual_hash"`
}

// ExpenseRecord is a previously stored expense as seen by the pipeline.
// Optional fields are pointers; records coming from external collaborators
// are validated at the boundary before the core compares against them.
type ExpenseRecord struct {
	ID            uuid.UUID    `json:"id"`
	Vendor        string       `json:"vendor"`
	Amount        float64      `json:"amount"`
	Date          string       `json:"date"` // ISO YYYY-MM-DD
	InvoiceNumber string       `json:"invoice_number,omitempty"`
	Category      string       `json:"category,omitempty"`
	CurrencyCode  string       `json:"currency_code,omitempty"`
	FileHash      string       `json:"file_hash,omitempty"` // SHA-256 hex
	ImageHashes   *ImageHashes `json:"image_hashes,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}
