package domain

// AssignmentType distinguishes the primary assignment from cross-category ones.
type AssignmentType string

const (
	AssignmentPrimary   AssignmentType = "primary"
	AssignmentSecondary AssignmentType = "secondary"
)

// RelationshipPrimary tags the primary assignment.
const RelationshipPrimary = "primary_record"

// DefaultSubcategory is used when no subcategory evidence is found.
const DefaultSubcategory = "general"

// CategoryAssignment places a record in one category.
type CategoryAssignment struct {
	Category         string           `json:"category"`
	Subcategory      string           `json:"subcategory"`
	Confidence       float64          `json:"confidence"`
	AssignmentType   AssignmentType   `json:"assignment_type"`
	Relationship     string           `json:"relationship"`
	ValidationStatus ValidationStatus `json:"validation_status"`
}

// CrossReference links the record to a secondary category.
type CrossReference struct {
	Description  string `json:"description"`
	Category     string `json:"category"`
	Relationship string `json:"relationship"`
}

// CrossLink is one storage-level link row for a secondary assignment.
type CrossLink struct {
	Category     string `json:"category"`
	Table        string `json:"table"`
	Relationship string `json:"relationship"`
}

// StoragePlan tells persistence collaborators where the record goes.
type StoragePlan struct {
	PrimaryTable      string      `json:"table"`
	VectorCollections []string    `json:"collections"`
	CrossLinks        []CrossLink `json:"cross_links"`
}

// AssignmentBundle is the orchestrator output.
type AssignmentBundle struct {
	Primary          CategoryAssignment   `json:"primary"`
	Secondary        []CategoryAssignment `json:"secondary"`
	CrossReferences  []CrossReference     `json:"cross_references"`
	Storage          StoragePlan          `json:"storage_plan"`
	TotalAssignments int                  `json:"total_assignments"`
}
