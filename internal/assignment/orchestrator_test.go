package assignment_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/categorizer/internal/assignment"
	"github.com/jonesrussell/north-cloud/categorizer/internal/catalog"
	"github.com/jonesrussell/north-cloud/categorizer/internal/classifier"
	"github.com/jonesrussell/north-cloud/categorizer/internal/domain"
	"github.com/jonesrussell/north-cloud/categorizer/internal/testhelpers"
	"github.com/jonesrussell/north-cloud/categorizer/internal/validation"
)

// run drives an input through classification, validation and assembly.
func run(t *testing.T, snap *catalog.Snapshot, payload map[string]any) (
	*domain.ClassificationResult, domain.ValidationReport, domain.AssignmentBundle,
) {
	t.Helper()
	in := domain.NewStructuredInput("req", "", payload)

	result, err := classifier.New(nil).Classify(context.Background(), snap, in)
	require.NoError(t, err)
	report := validation.NewEngine(nil).Validate(snap, result.Primary.Category, in)
	bundle := assignment.New(nil).Assemble(snap, result, &report, in)
	return result, report, bundle
}

func primaryOnly(category string, confidence float64) *domain.ClassificationResult {
	return &domain.ClassificationResult{
		Primary:  domain.CategoryScore{Category: category, Confidence: confidence},
		Evidence: map[domain.Method]domain.ScoreMap{},
	}
}

func TestAssemble_InventoryRecordWithItemReference(t *testing.T) {
	t.Parallel()
	snap := testhelpers.Snapshot(t)

	result, report, bundle := run(t, snap, map[string]any{"item_id": "SKU123", "quantity": 100})

	want := domain.AssignmentBundle{
		Primary: domain.CategoryAssignment{
			Category:         "inventory_management",
			Subcategory:      "stock_level",
			Confidence:       0.95,
			AssignmentType:   domain.AssignmentPrimary,
			Relationship:     domain.RelationshipPrimary,
			ValidationStatus: domain.StatusValid,
		},
		Secondary: []domain.CategoryAssignment{{
			Category:         "items",
			Subcategory:      domain.DefaultSubcategory,
			Confidence:       0.7,
			AssignmentType:   domain.AssignmentSecondary,
			Relationship:     "references_item",
			ValidationStatus: domain.StatusUnvalidated,
		}},
		CrossReferences: []domain.CrossReference{{
			Description:  "inventory management record references item items",
			Category:     "items",
			Relationship: "references_item",
		}},
		Storage: domain.StoragePlan{
			PrimaryTable:      "inventory_transactions",
			VectorCollections: []string{"inventory_docs", "item_catalog", "wms_knowledge"},
			CrossLinks:        []domain.CrossLink{{Category: "items", Table: "items", Relationship: "references_item"}},
		},
		TotalAssignments: 2,
	}

	if diff := cmp.Diff(want, bundle, cmpFloat()); diff != "" {
		t.Errorf("bundle mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, domain.StateCompleted, assignment.TerminalState(snap, result, &report))
}

func TestAssemble_EmptyObject(t *testing.T) {
	t.Parallel()
	snap := testhelpers.Snapshot(t)

	result, report, bundle := run(t, snap, map[string]any{})

	assert.Equal(t, "general", bundle.Primary.Category)
	assert.InDelta(t, 0.5, bundle.Primary.Confidence, 1e-12)
	assert.Equal(t, domain.StatusSkipped, bundle.Primary.ValidationStatus)
	assert.Empty(t, bundle.Secondary)
	assert.Equal(t, "general_records", bundle.Storage.PrimaryTable)
	assert.Equal(t, []string{"wms_knowledge"}, bundle.Storage.VectorCollections)
	assert.Equal(t, 1, bundle.TotalAssignments)
	assert.Equal(t, domain.StateManualReview, assignment.TerminalState(snap, result, &report))
}

func TestAssemble_LocationCodeOnly(t *testing.T) {
	t.Parallel()
	snap := testhelpers.Snapshot(t)

	result, report, bundle := run(t, snap, map[string]any{"location_id": "A-01-B-03"})

	assert.Equal(t, "locations", bundle.Primary.Category)
	assert.InDelta(t, 0.8, bundle.Primary.Confidence, 1e-12)
	assert.Equal(t, domain.StatusValid, bundle.Primary.ValidationStatus)
	// The location detector never duplicates the primary category.
	assert.Empty(t, bundle.Secondary)
	assert.Equal(t, []string{"warehouse_layout", "wms_knowledge"}, bundle.Storage.VectorCollections)
	assert.Equal(t, domain.StateCompleted, assignment.TerminalState(snap, result, &report))
}

func TestAssemble_DetectorsCappedAndOrdered(t *testing.T) {
	t.Parallel()
	snap := testhelpers.Snapshot(t)
	in := domain.NewStructuredInput("req", "", map[string]any{
		"item_id":     "SKU1",
		"location_id": "A-01-B-03",
		"supplier_id": "SUP-9",
		"po_number":   "PO-1234",
		"shipment_id": "S-1",
	})

	bundle := assignment.New(nil).Assemble(snap, primaryOnly("inventory_management", 0.9), nil, in)

	require.Len(t, bundle.Secondary, snap.MaxSecondary)
	got := make([]string, 0, len(bundle.Secondary))
	for _, s := range bundle.Secondary {
		got = append(got, s.Category+"/"+s.Subcategory)
	}
	assert.Equal(t, []string{"items/general", "locations/bin_location", "receiving/purchase_receipt"}, got)
	assert.Equal(t, domain.StatusUnvalidated, bundle.Primary.ValidationStatus)
	assert.Len(t, bundle.CrossReferences, len(bundle.Secondary))
	assert.Len(t, bundle.Storage.CrossLinks, len(bundle.Secondary))
	assert.Equal(t,
		[]string{"inventory_docs", "item_catalog", "warehouse_layout", "inbound_docs", "wms_knowledge"},
		bundle.Storage.VectorCollections)
	assert.Equal(t, 1+snap.MaxSecondary, bundle.TotalAssignments)
}

func TestAssemble_StrongestDetectorWinsPerCategory(t *testing.T) {
	t.Parallel()
	snap := testhelpers.Snapshot(t)
	in := domain.NewStructuredInput("req", "", map[string]any{
		"location_id": "B-02-C-04",
		"note":        "transfer to overflow",
	})

	bundle := assignment.New(nil).Assemble(snap, primaryOnly("items", 0.9), nil, in)

	require.Len(t, bundle.Secondary, 1)
	assert.Equal(t, "locations", bundle.Secondary[0].Category)
	assert.Equal(t, "stored_at", bundle.Secondary[0].Relationship)
	assert.InDelta(t, 0.7, bundle.Secondary[0].Confidence, 1e-12)
}

func TestAssemble_TransitionKeyword(t *testing.T) {
	t.Parallel()
	snap := testhelpers.Snapshot(t)
	in := domain.NewTextInput("req", "", "Pallet shipped to the customer this morning")

	bundle := assignment.New(nil).Assemble(snap, primaryOnly("picking", 0.85), nil, in)

	require.Len(t, bundle.Secondary, 1)
	assert.Equal(t, "shipping", bundle.Secondary[0].Category)
	assert.Equal(t, "outbound_transition", bundle.Secondary[0].Relationship)
	// picking and shipping share a collection.
	assert.Equal(t, []string{"outbound_docs", "wms_knowledge"}, bundle.Storage.VectorCollections)
}

func TestElevate(t *testing.T) {
	t.Parallel()
	snap := testhelpers.Snapshot(t)

	withSchema := func(category string, confidence float64, schema domain.ScoreMap) *domain.ClassificationResult {
		r := primaryOnly(category, confidence)
		r.Evidence[domain.MethodSchema] = schema
		return r
	}

	testCases := []struct {
		name   string
		result *domain.ClassificationResult
		want   float64
	}{
		{
			name:   "strong unambiguous schema",
			result: withSchema("inventory_management", 0.9, domain.ScoreMap{"inventory_management": 0.9, "items": 0.425}),
			want:   0.95,
		},
		{
			name:   "margin too small",
			result: withSchema("inventory_management", 0.75, domain.ScoreMap{"inventory_management": 0.85, "items": 0.6}),
			want:   0.75,
		},
		{
			name:   "schema score too low",
			result: withSchema("items", 0.7, domain.ScoreMap{"items": 0.6}),
			want:   0.7,
		},
		{
			name:   "schema names another category",
			result: withSchema("locations", 0.8, domain.ScoreMap{"items": 0.85}),
			want:   0.8,
		},
		{
			name:   "no schema evidence",
			result: primaryOnly("locations", 0.8),
			want:   0.8,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tc.want, assignment.Elevate(snap, tc.result), 1e-12)
		})
	}
}

func TestElevate_FactorIsConfigurable(t *testing.T) {
	t.Parallel()

	result := primaryOnly("inventory_management", 0.6)
	result.Evidence[domain.MethodSchema] = domain.ScoreMap{"inventory_management": 0.9}

	for factor, want := range map[float64]float64{0: 0.6, 0.25: 0.7, 1: 1} {
		cfg := testhelpers.Configuration(t)
		cfg.Elevation.Factor = factor
		snap, err := catalog.Compile(cfg, validation.NewRegistry())
		require.NoError(t, err)
		assert.InDelta(t, want, assignment.Elevate(snap, result), 1e-12, "factor %v", factor)
	}
}

func TestTerminalState(t *testing.T) {
	t.Parallel()
	snap := testhelpers.Snapshot(t)

	cfg := testhelpers.Configuration(t)
	cfg.InvalidRecords = catalog.InvalidAccept
	lenient, err := catalog.Compile(cfg, validation.NewRegistry())
	require.NoError(t, err)

	confident := primaryOnly("inventory_management", 0.9)
	review := primaryOnly("inventory_management", 0.6)
	review.ManualReview = true

	valid := &domain.ValidationReport{Valid: true, Confidence: 1}
	invalid := &domain.ValidationReport{Valid: false, Confidence: 0.6}

	testCases := []struct {
		name   string
		snap   *catalog.Snapshot
		result *domain.ClassificationResult
		report *domain.ValidationReport
		want   domain.RequestState
	}{
		{"confident and valid", snap, confident, valid, domain.StateCompleted},
		{"low confidence", snap, review, valid, domain.StateManualReview},
		{"invalid goes to review by default", snap, confident, invalid, domain.StateManualReview},
		{"invalid accepted by policy", lenient, confident, invalid, domain.StateCompleted},
		{"unvalidated", snap, confident, nil, domain.StateCompleted},
		{"rejected", snap, nil, nil, domain.StateFailed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, assignment.TerminalState(tc.snap, tc.result, tc.report))
		})
	}
}
