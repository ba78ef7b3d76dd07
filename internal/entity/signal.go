package entity

import "github.com/google/uuid"

// SignalType names the duplicate-detection strategy that produced a signal.
type SignalType string

const (
	SignalExactMatch         SignalType = "exact_match"
	SignalVisualSimilarity   SignalType = "visual_similarity"
	SignalMetadataSimilarity SignalType = "metadata_similarity"
)

// DuplicateSignal is the outcome of comparing a new document against one
// stored record. The detector returns at most one final signal per check:
// the maximum-confidence candidate, never a merged composite.
type DuplicateSignal struct {
	Type       SignalType `json:"type"`
	Confidence int        `json:"confidence"` // 0-100
	MatchedID  uuid.UUID  `json:"matched_id"`
	Reasons    []string   `json:"reasons,omitempty"`
}
