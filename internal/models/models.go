// package models defines the data model for the listing walker
package models

import (
	"time"
)

// Model is a row the item cache can persist. The storage ID is assigned on insert and Validate runs before
// every write. [CachedItem] is the only implementation.
type Model interface {
	ID() string
	CreatedAt() time.Time
	UpdatedAt() time.Time
	Validate() error
}

// Repository is CRUD storage for one [Model] type.
//
// Get, Update and Delete address rows by storage ID and ignore soft-deleted rows. List filters by
// implementation-defined criteria keys (for items: "listing" and "limit").
type Repository[T Model] interface {
	Create(model T) error
	Get(id string) (T, error)
	Update(model T) error
	Delete(id string) error
	List(criteria map[string]any) ([]T, error)
}
