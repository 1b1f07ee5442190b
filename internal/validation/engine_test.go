package validation_test

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infralogger "github.com/jonesrussell/north-cloud/categorizer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/categorizer/internal/domain"
	"github.com/jonesrussell/north-cloud/categorizer/internal/testhelpers"
	"github.com/jonesrussell/north-cloud/categorizer/internal/validation"
)

func TestValidate_NegativeQuantityWithoutItem(t *testing.T) {
	t.Parallel()

	engine := validation.NewEngine(infralogger.NewNop())
	snap := testhelpers.Snapshot(t)

	in := domain.NewStructuredInput("r1", "", map[string]any{"quantity": -5})
	report := engine.Validate(snap, "inventory_management", in)

	assert.False(t, report.Valid)
	assert.False(t, report.Skipped)
	assert.Len(t, report.Violations(), 2)
	assert.InDelta(t, 0.6, report.Confidence, 1e-9)
	assert.Equal(t, []string{
		"Add the missing field item_id",
		"Ensure quantity is a positive value",
	}, report.Suggestions)
}

func TestValidate_ValidRecord(t *testing.T) {
	t.Parallel()

	engine := validation.NewEngine(nil)
	report := engine.ValidatePayload(testhelpers.Snapshot(t), "inventory_management", map[string]any{
		"item_id":  "SKU123",
		"quantity": 100,
	})

	assert.True(t, report.Valid)
	assert.Equal(t, 1.0, report.Confidence)
	assert.Empty(t, report.Violations())
	assert.Empty(t, report.Suggestions)
	assert.Equal(t, domain.StatusValid, report.Status())
}

func TestValidate_RuleOrderFollowsPriority(t *testing.T) {
	t.Parallel()

	report := validation.NewEngine(nil).ValidatePayload(testhelpers.Snapshot(t), "inventory_management", map[string]any{})

	ids := make([]string, 0, len(report.Outcomes))
	for _, o := range report.Outcomes {
		ids = append(ids, o.RuleID)
	}
	assert.Equal(t, []string{
		"inv-required-item", "inv-required-quantity",
		"inv-item-type", "inv-quantity-type",
		"inv-quantity-positive", "inv-item-shape",
	}, ids)
}

func TestValidate_TypeAndShapeViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		category    string
		payload     map[string]any
		wantClasses []domain.ViolationClass
	}{
		{
			name:        "quantity as text",
			category:    "inventory_management",
			payload:     map[string]any{"item_id": "SKU123", "quantity": "ten"},
			wantClasses: []domain.ViolationClass{domain.ViolationTypeMismatch, domain.ViolationNumericConstraint},
		},
		{
			name:        "malformed location",
			category:    "locations",
			payload:     map[string]any{"location_id": "dock door 4"},
			wantClasses: []domain.ViolationClass{domain.ViolationShapeMismatch},
		},
		{
			name:        "unknown unit of measure",
			category:    "items",
			payload:     map[string]any{"item_id": "SKU9", "unit_of_measure": "bushel"},
			wantClasses: []domain.ViolationClass{domain.ViolationValueConstraint},
		},
		{
			name:        "null counts as missing",
			category:    "shipping",
			payload:     map[string]any{"shipment_id": nil},
			wantClasses: []domain.ViolationClass{domain.ViolationMissingField},
		},
	}

	engine := validation.NewEngine(nil)
	snap := testhelpers.Snapshot(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			report := engine.ValidatePayload(snap, tt.category, tt.payload)

			var classes []domain.ViolationClass
			for _, o := range report.Outcomes {
				if !o.Passed {
					classes = append(classes, o.Class)
				}
			}
			assert.Equal(t, tt.wantClasses, classes)
			assert.InDelta(t, validation.Confidence(len(tt.wantClasses)), report.Confidence, 1e-12)
		})
	}
}

func TestValidate_MissingRuleSetIsSkipped(t *testing.T) {
	t.Parallel()

	report := validation.NewEngine(nil).ValidatePayload(testhelpers.Snapshot(t), "general", map[string]any{"note": "x"})

	assert.True(t, report.Skipped)
	assert.True(t, report.Valid)
	assert.Equal(t, 1.0, report.Confidence)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "general")
	assert.Equal(t, domain.StatusSkipped, report.Status())
}

func TestValidate_TextInputIsSkipped(t *testing.T) {
	t.Parallel()

	in := domain.NewTextInput("r1", "", "cycle count finished for aisle 4")
	report := validation.NewEngine(nil).Validate(testhelpers.Snapshot(t), "inventory_management", in)

	assert.True(t, report.Skipped)
	assert.NotEmpty(t, report.Warnings)
}

func TestConfidence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		violations int
		floor      bool
	}{
		{violations: 0},
		{violations: 1},
		{violations: 2},
		{violations: 5, floor: true},
		{violations: 7, floor: true},
	}

	for _, tt := range tests {
		got := validation.Confidence(tt.violations)
		assert.Equal(t, math.Max(0, 1-0.2*float64(tt.violations)), got, "violations=%d", tt.violations)
		if tt.floor {
			assert.Equal(t, 0.0, got, "violations=%d", tt.violations)
		}
	}
	assert.Equal(t, 1.0, validation.Confidence(0))
}

func TestReload_DroppingRequiredFieldValidatesRecord(t *testing.T) {
	t.Parallel()

	store := testhelpers.Store(t)
	engine := validation.NewEngine(nil)
	record := map[string]any{"quantity": 5}

	before := store.Current()
	assert.False(t, engine.ValidatePayload(before, "inventory_management", record).Valid)

	cfg := testhelpers.Configuration(t)
	cfg.RuleSets["inventory_management"] = slices.DeleteFunc(cfg.RuleSets["inventory_management"], func(r domain.ValidationRule) bool {
		return r.ID == "inv-required-item"
	})
	after, err := store.Reload(cfg)
	require.NoError(t, err)

	assert.True(t, engine.ValidatePayload(after, "inventory_management", record).Valid)
	assert.True(t, engine.ValidatePayload(store.Current(), "inventory_management", record).Valid)
	// a request that captured the old snapshot keeps seeing the old rules
	assert.False(t, engine.ValidatePayload(before, "inventory_management", record).Valid)
}
