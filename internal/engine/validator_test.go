package engine

import (
	"testing"

	"github.com/draftworks/draftd/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	legal := []models.CatalogEntry{
		{Name: "Pikachu", Cost: 10},
		{Name: "Charizard", Cost: 50},
	}
	inCatalog := func(name string) bool {
		return name == "Pikachu" || name == "Charizard" || name == "Mewtwo"
	}

	tests := []struct {
		name      string
		pick      string
		remaining int
		wantItem  string
		wantWhy   RejectReason
	}{
		{"exact match", "Pikachu", 30, "Pikachu", ""},
		{"case insensitive", "pIkAcHu", 30, "Pikachu", ""},
		{"whitespace trimmed", "  Charizard ", 60, "Charizard", ""},
		{"cost equals budget", "Charizard", 50, "Charizard", ""},
		{"over budget", "Charizard", 49, "", ReasonInsufficientBudget},
		{"in catalog but not legal", "Mewtwo", 100, "", ReasonItemNotLegal},
		{"unknown everywhere", "Missingno", 100, "", ReasonItemUnknown},
		{"empty input", "", 100, "", ReasonItemUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Validate(tt.pick, legal, inCatalog, tt.remaining)
			if tt.wantItem != "" {
				assert.True(t, v.Accepted())
				assert.Equal(t, tt.wantItem, v.Entry.Name)
			} else {
				assert.False(t, v.Accepted())
				assert.Equal(t, tt.wantWhy, v.Reason)
			}
		})
	}
}

func TestValidateDoesNotMutateLegalSet(t *testing.T) {
	legal := []models.CatalogEntry{{Name: "Pikachu", Cost: 10}}
	v := Validate("pikachu", legal, nil, 100)
	assert.True(t, v.Accepted())

	// The verdict carries a copy, not a pointer into the legal set.
	v.Entry.Cost = 999
	assert.Equal(t, 10, legal[0].Cost)
}

func TestValidateNilCatalogProbe(t *testing.T) {
	v := Validate("Anything", nil, nil, 100)
	assert.Equal(t, ReasonItemUnknown, v.Reason)
}
