package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/categorizer/internal/catalog"
	"github.com/jonesrussell/north-cloud/categorizer/internal/database"
	"github.com/jonesrussell/north-cloud/categorizer/internal/domain"
	"github.com/jonesrussell/north-cloud/categorizer/internal/testhelpers"
	"github.com/jonesrussell/north-cloud/categorizer/internal/validation"
)

func TestRulesRepository_UpsertListDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := database.NewRulesRepository(newTestDB(t))

	shape := domain.ValidationRule{
		ID: "loc-shape", Category: "locations", Kind: domain.RuleBusiness, Priority: 5,
		Definition: domain.RuleDefinition{Field: "location_id", Rule: "matches_shape", Params: map[string]string{"shape": "location_code"}},
	}
	required := domain.ValidationRule{
		ID: "loc-required", Category: "locations", Kind: domain.RuleRequiredField, Priority: 10,
		Definition: domain.RuleDefinition{Field: "location_id"},
	}
	disabled := domain.ValidationRule{
		ID: "loc-disabled", Category: "locations", Kind: domain.RuleRequiredField,
		Definition: domain.RuleDefinition{Field: "zone"},
	}

	require.NoError(t, repo.Upsert(ctx, shape, true))
	require.NoError(t, repo.Upsert(ctx, required, true))
	require.NoError(t, repo.Upsert(ctx, disabled, false))

	sets, err := repo.ListEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, sets["locations"], 2)
	assert.Equal(t, required, sets["locations"][0])
	assert.Equal(t, shape, sets["locations"][1])

	shape.Priority = 20
	require.NoError(t, repo.Upsert(ctx, shape, true))
	require.NoError(t, repo.Delete(ctx, "loc-required"))
	require.NoError(t, repo.Delete(ctx, "never-existed"))

	sets, err = repo.ListEnabled(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.ValidationRule{shape}, sets["locations"])
}

func TestRulesRepository_OverlayReplacesRuleSets(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := database.NewRulesRepository(newTestDB(t))

	require.NoError(t, repo.Upsert(ctx, domain.ValidationRule{
		ID: "inv-required-lot", Category: "inventory_management", Kind: domain.RuleRequiredField, Priority: 1,
		Definition: domain.RuleDefinition{Field: "lot_number"},
	}, true))

	base := catalog.FileLoader(testhelpers.ConfigPath(t))
	cfg, err := repo.Overlay(base)(ctx)
	require.NoError(t, err)

	require.Len(t, cfg.RuleSets["inventory_management"], 1)
	assert.Equal(t, "inv-required-lot", cfg.RuleSets["inventory_management"][0].ID)
	assert.NotEmpty(t, cfg.RuleSets["items"], "categories without overrides keep file rules")

	store := testhelpers.Store(t)
	snap, err := store.ReloadFrom(ctx, repo.Overlay(base))
	require.NoError(t, err)

	report := validation.NewEngine(nil).ValidatePayload(snap, "inventory_management", map[string]any{"quantity": -1})
	assert.False(t, report.Valid)
	assert.Len(t, report.Violations(), 1)
}

func TestRulesRepository_OverlayPropagatesErrors(t *testing.T) {
	t.Parallel()
	repo := database.NewRulesRepository(newTestDB(t))

	_, err := repo.Overlay(func(context.Context) (*catalog.Configuration, error) {
		return nil, errors.New("file missing")
	})(context.Background())
	require.Error(t, err)
}
