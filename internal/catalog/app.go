package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/draftworks/draftd/internal/models"
	"github.com/google/uuid"
)

// ErrEntryNotFound is returned when no catalog entry matches a name.
var ErrEntryNotFound = errors.New("catalog entry not found")

// Repository defines what the catalog app layer needs from storage. Name
// lookups are case-insensitive.
type Repository interface {
	CreateEntry(ctx context.Context, entry models.CatalogEntry) (*models.CatalogEntry, error)
	GetEntryByName(ctx context.Context, name string) (*models.CatalogEntry, error)
	ListEntries(ctx context.Context) ([]models.CatalogEntry, error)
}

// App handles catalog business logic. The catalog is immutable while any
// session referencing it is running; only setup paths create entries.
type App struct {
	repo Repository
}

// NewApp creates a new catalog App.
func NewApp(repo Repository) *App {
	return &App{repo: repo}
}

// CreateEntry validates and stores a new catalog entry.
func (a *App) CreateEntry(ctx context.Context, name string, cost int) (*models.CatalogEntry, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if cost < 0 {
		return nil, fmt.Errorf("cost cannot be negative")
	}
	if _, err := a.repo.GetEntryByName(ctx, name); err == nil {
		return nil, fmt.Errorf("catalog entry %q already exists", name)
	} else if !errors.Is(err, ErrEntryNotFound) {
		return nil, fmt.Errorf("failed to check existing entry: %w", err)
	}

	entry, err := a.repo.CreateEntry(ctx, models.CatalogEntry{
		ID:   uuid.New(),
		Name: name,
		Cost: cost,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog entry: %w", err)
	}
	return entry, nil
}

// Lookup resolves an entry by name, case-insensitively.
func (a *App) Lookup(ctx context.Context, name string) (*models.CatalogEntry, error) {
	entry, err := a.repo.GetEntryByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Contains reports whether a name resolves to any catalog entry.
func (a *App) Contains(ctx context.Context, name string) bool {
	_, err := a.repo.GetEntryByName(ctx, strings.TrimSpace(name))
	return err == nil
}

// ListEntries returns every catalog entry.
func (a *App) ListEntries(ctx context.Context) ([]models.CatalogEntry, error) {
	entries, err := a.repo.ListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog entries: %w", err)
	}
	return entries, nil
}
