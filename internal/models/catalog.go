package models

import (
	"github.com/google/uuid"
)

// CatalogEntry represents a draftable item and its point cost. Entries are
// immutable once created and shared by reference across sessions.
type CatalogEntry struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Cost int       `json:"cost"`
}
