package api

import (
	"time"

	"github.com/jonesrussell/north-cloud/categorizer/internal/catalog"
	"github.com/jonesrussell/north-cloud/categorizer/internal/database"
	"github.com/jonesrussell/north-cloud/categorizer/internal/domain"
	"github.com/jonesrussell/north-cloud/categorizer/internal/processor"
)

// BatchCategorizeRequest represents a batch categorization request.
type BatchCategorizeRequest struct {
	Requests []processor.Request `json:"requests" binding:"required,min=1"`
}

// ValidateRequest represents a standalone validation request.
type ValidateRequest struct {
	Category string         `json:"category" binding:"required"`
	Payload  map[string]any `json:"payload"`
}

// PrimaryResponse is the primary assignment of a categorized record.
type PrimaryResponse struct {
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
	Confidence  float64 `json:"confidence"`
}

// SecondaryResponse is one secondary assignment.
type SecondaryResponse struct {
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
	Confidence  float64 `json:"confidence"`
}

// ValidationResponse summarises a validation report.
type ValidationResponse struct {
	Category    string   `json:"category"`
	Valid       bool     `json:"valid"`
	Confidence  float64  `json:"confidence"`
	Skipped     bool     `json:"skipped"`
	Violations  []string `json:"violations"`
	Suggestions []string `json:"suggestions"`
	Warnings    []string `json:"warnings,omitempty"`
}

// CategorizeResponse represents the outcome of one request.
type CategorizeResponse struct {
	ID              string                  `json:"id"`
	State           domain.RequestState     `json:"state"`
	Primary         *PrimaryResponse        `json:"primary,omitempty"`
	Secondary       []SecondaryResponse     `json:"secondary"`
	ManualReview    bool                    `json:"manual_review"`
	ReviewReason    domain.ReviewReason     `json:"review_reason,omitempty"`
	Validation      *ValidationResponse     `json:"validation,omitempty"`
	CrossReferences []domain.CrossReference `json:"cross_references,omitempty"`
	StoragePlan     *domain.StoragePlan     `json:"storage_plan,omitempty"`
	ConfigVersion   string                  `json:"config_version"`
	Error           string                  `json:"error,omitempty"`
}

// BatchResult is one entry of a batch response.
type BatchResult struct {
	Result *CategorizeResponse `json:"result,omitempty"`
	Error  string              `json:"error,omitempty"`
}

// BatchCategorizeResponse represents a batch categorization response.
type BatchCategorizeResponse struct {
	Results      []BatchResult `json:"results"`
	Total        int           `json:"total"`
	Completed    int           `json:"completed"`
	ManualReview int           `json:"manual_review"`
	Failed       int           `json:"failed"`
}

// ConfigResponse describes the active configuration snapshot.
type ConfigResponse struct {
	Version       string                 `json:"version"`
	Generation    uint64                 `json:"generation"`
	LoadedAt      time.Time              `json:"loaded_at"`
	Configuration *catalog.Configuration `json:"configuration,omitempty"`
}

// RecordsListResponse represents a list of stored records.
type RecordsListResponse struct {
	Records []database.RecordRow `json:"records"`
	Total   int                  `json:"total"`
}

// toCategorizeResponse converts a processed record to an API response.
func toCategorizeResponse(record *domain.Record) *CategorizeResponse {
	resp := &CategorizeResponse{
		ID:            record.RequestID,
		State:         record.State,
		Secondary:     []SecondaryResponse{},
		ConfigVersion: record.SnapshotVersion,
		Error:         record.Error,
	}

	if record.Classification != nil {
		resp.ManualReview = record.Classification.ManualReview
		resp.ReviewReason = record.Classification.ReviewReason
	}
	if record.Bundle != nil {
		b := record.Bundle
		resp.Primary = &PrimaryResponse{
			Category:    b.Primary.Category,
			Subcategory: b.Primary.Subcategory,
			Confidence:  b.Primary.Confidence,
		}
		for _, s := range b.Secondary {
			resp.Secondary = append(resp.Secondary, SecondaryResponse{
				Category:    s.Category,
				Subcategory: s.Subcategory,
				Confidence:  s.Confidence,
			})
		}
		resp.CrossReferences = b.CrossReferences
		plan := b.Storage
		resp.StoragePlan = &plan
	}
	if record.Validation != nil {
		v := toValidationResponse(record.Validation)
		resp.Validation = &v
	}
	return resp
}

func toValidationResponse(report *domain.ValidationReport) ValidationResponse {
	suggestions := report.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	return ValidationResponse{
		Category:    report.Category,
		Valid:       report.Valid,
		Confidence:  report.Confidence,
		Skipped:     report.Skipped,
		Violations:  report.Violations(),
		Suggestions: suggestions,
		Warnings:    report.Warnings,
	}
}

func toConfigResponse(snap *catalog.Snapshot, withSource bool) ConfigResponse {
	resp := ConfigResponse{
		Version:    snap.Version,
		Generation: snap.Generation,
		LoadedAt:   snap.LoadedAt,
	}
	if withSource {
		resp.Configuration = snap.Source()
	}
	return resp
}
