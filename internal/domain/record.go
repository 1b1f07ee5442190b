package domain

import "time"

// Record is everything persisted for one processed request.
type Record struct {
	RequestID       string                `json:"request_id"`
	SubmitterID     string                `json:"submitter_id,omitempty"`
	Format          Format                `json:"format"`
	Payload         map[string]any        `json:"payload,omitempty"`
	Text            string                `json:"text,omitempty"`
	State           RequestState          `json:"state"`
	Classification  *ClassificationResult `json:"classification,omitempty"`
	Validation      *ValidationReport     `json:"validation,omitempty"`
	Bundle          *AssignmentBundle     `json:"bundle,omitempty"`
	Error           string                `json:"error,omitempty"`
	SnapshotVersion string                `json:"snapshot_version"`
	ProcessedAt     time.Time             `json:"processed_at"`
}
