package models

import (
	"fmt"
	"time"
)

var _ Model = (*CachedItem)(nil)

// CachedItem is an eligible [Item] persisted by the item cache, scoped to the listing it was fetched from.
type CachedItem struct {
	id        string
	sequence  int
	listing   string
	item      Item
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewCachedItem creates a CachedItem for the given listing. The ID is assigned by the repository on create.
func NewCachedItem(sequence int, listing string, item Item) *CachedItem {
	now := time.Now()
	return &CachedItem{
		sequence:  sequence,
		listing:   listing,
		item:      item,
		createdAt: now,
		updatedAt: now,
	}
}

// RestoreCachedItem rebuilds a CachedItem from stored columns.
func RestoreCachedItem(id string, sequence int, listing string, item Item, createdAt, updatedAt time.Time, deletedAt *time.Time) *CachedItem {
	return &CachedItem{
		id:        id,
		sequence:  sequence,
		listing:   listing,
		item:      item,
		createdAt: createdAt,
		updatedAt: updatedAt,
		deletedAt: deletedAt,
	}
}

func (c *CachedItem) ID() string            { return c.id }
func (c *CachedItem) Sequence() int         { return c.sequence }
func (c *CachedItem) Listing() string       { return c.listing }
func (c *CachedItem) Item() Item            { return c.item }
func (c *CachedItem) CreatedAt() time.Time  { return c.createdAt }
func (c *CachedItem) UpdatedAt() time.Time  { return c.updatedAt }
func (c *CachedItem) DeletedAt() *time.Time { return c.deletedAt }

func (c *CachedItem) SetID(id string)           { c.id = id }
func (c *CachedItem) SetSequence(seq int)       { c.sequence = seq }
func (c *CachedItem) SetItem(item Item)         { c.item = item }
func (c *CachedItem) SetUpdatedAt(t time.Time)  { c.updatedAt = t }
func (c *CachedItem) SetDeletedAt(t *time.Time) { c.deletedAt = t }

// Validate checks that the cached item can be stored.
func (c *CachedItem) Validate() error {
	if c.listing == "" {
		return fmt.Errorf("listing is required")
	}
	if c.item.ID == "" {
		return fmt.Errorf("item id is required")
	}
	return nil
}
