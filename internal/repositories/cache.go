package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/pagewalk/internal/models"
	"github.com/mattn/go-sqlite3"
)

// ItemCacheAdapter implements tasks.ItemCacher using ItemRepository.
//
// Duplicates are silently ignored via the (listing, item_id) constraint.
type ItemCacheAdapter struct {
	repo *ItemRepository
}

// NewItemCacheAdapter creates a new ItemCacheAdapter with the given repository
func NewItemCacheAdapter(repo *ItemRepository) *ItemCacheAdapter {
	return &ItemCacheAdapter{repo: repo}
}

// CacheItems stores items for listing, skipping ones already cached.
// Stops early with ctx.Err() when ctx is done; items stored before that are kept.
func (a *ItemCacheAdapter) CacheItems(ctx context.Context, listing string, items []models.Item) error {
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.cacheItem(listing, item); err != nil {
			return err
		}
	}
	return nil
}

func (a *ItemCacheAdapter) cacheItem(listing string, item models.Item) error {
	existing, err := a.repo.GetByItemID(listing, item.ID)
	if err == nil && existing != nil {
		return nil
	}

	err = a.repo.Create(models.NewCachedItem(0, listing, item))
	if err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("failed to cache item %s: %w", item.ID, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
