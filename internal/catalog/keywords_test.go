package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/north-cloud/categorizer/internal/catalog"
	"github.com/jonesrussell/north-cloud/categorizer/internal/testhelpers"
)

func TestNormalizeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "Cycle-Count: Aisle 4", want: " cycle count aisle 4 "},
		{in: "Réception  à quai", want: " reception a quai "},
		{in: "", want: " "},
		{in: "!!!", want: " "},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, catalog.NormalizeText(tt.in))
		})
	}
}

func TestKeywordIndex_MatchesWholeWords(t *testing.T) {
	t.Parallel()

	idx := testhelpers.Snapshot(t).Keywords

	hits := idx.Match("SKU123")
	assert.Empty(t, hits, "keywords must not match inside identifiers")

	hits = idx.Match("Stock level low", "check the BIN")
	terms := make(map[string]string)
	for _, h := range hits {
		terms[h.Term] = h.Category
	}
	assert.Equal(t, "inventory_management", terms["stock"])
	assert.Equal(t, "inventory_management", terms["stock level"])
	assert.Equal(t, "locations", terms["bin"])

	// Repeated occurrences count once.
	assert.Len(t, idx.Match("pick pick pick"), 1)
	assert.Equal(t, 8, idx.Total("inventory_management"))
}

func TestKeywordIndex_NoBoundaryAcrossValues(t *testing.T) {
	t.Parallel()

	idx := testhelpers.Snapshot(t).Keywords
	// "lead" and "time" in separate values must not form "lead time".
	for _, h := range idx.Match("lead", "time") {
		assert.NotEqual(t, "lead time", h.Term)
	}
}
