package catalog

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/draftworks/draftd/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapRepo is a minimal in-memory Repository for app-level tests.
type mapRepo struct {
	mu      sync.Mutex
	entries map[string]models.CatalogEntry
}

func newMapRepo() *mapRepo {
	return &mapRepo{entries: make(map[string]models.CatalogEntry)}
}

func (r *mapRepo) CreateEntry(ctx context.Context, entry models.CatalogEntry) (*models.CatalogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[strings.ToLower(entry.Name)] = entry
	out := entry
	return &out, nil
}

func (r *mapRepo) GetEntryByName(ctx context.Context, name string) (*models.CatalogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[strings.ToLower(name)]
	if !ok {
		return nil, ErrEntryNotFound
	}
	out := entry
	return &out, nil
}

func (r *mapRepo) ListEntries(ctx context.Context) ([]models.CatalogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.CatalogEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out, nil
}

func TestCreateEntry(t *testing.T) {
	ctx := context.Background()
	app := NewApp(newMapRepo())

	entry, err := app.CreateEntry(ctx, "Pikachu", 10)
	require.NoError(t, err)
	assert.Equal(t, "Pikachu", entry.Name)
	assert.Equal(t, 10, entry.Cost)
	assert.NotEqual(t, entry.ID.String(), "00000000-0000-0000-0000-000000000000")
}

func TestCreateEntryRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	app := NewApp(newMapRepo())

	_, err := app.CreateEntry(ctx, "", 10)
	assert.Error(t, err)

	_, err = app.CreateEntry(ctx, "   ", 10)
	assert.Error(t, err)

	_, err = app.CreateEntry(ctx, "Pikachu", -1)
	assert.Error(t, err)
}

func TestCreateEntryRejectsDuplicateName(t *testing.T) {
	ctx := context.Background()
	app := NewApp(newMapRepo())

	_, err := app.CreateEntry(ctx, "Pikachu", 10)
	require.NoError(t, err)

	// Duplicates are case-insensitive.
	_, err = app.CreateEntry(ctx, "PIKACHU", 20)
	assert.Error(t, err)
}

func TestLookupAndContains(t *testing.T) {
	ctx := context.Background()
	app := NewApp(newMapRepo())

	_, err := app.CreateEntry(ctx, "Charizard", 50)
	require.NoError(t, err)

	entry, err := app.Lookup(ctx, " charizard ")
	require.NoError(t, err)
	assert.Equal(t, "Charizard", entry.Name)

	assert.True(t, app.Contains(ctx, "CHARIZARD"))
	assert.False(t, app.Contains(ctx, "Mewtwo"))
}
