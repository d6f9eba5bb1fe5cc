package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/pagewalk/internal/models"
	"github.com/desertthunder/pagewalk/internal/shared"
	tu "github.com/desertthunder/pagewalk/internal/testing"
)

var ghostTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.OpenDatabase(shared.DatabaseConfig{})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "items")
		if err != nil {
			t.Fatalf("failed to get sequence: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	if _, err := NextSequence(db, "missing"); err == nil {
		t.Error("expected error for unknown sequence table")
	}
}

func TestItemRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		repo := NewItemRepository(setupTestDB(t))
		item := models.NewCachedItem(0, "search:lofi", tu.Playable("42"))

		if err := repo.Create(item); err != nil {
			t.Fatalf("failed to create item: %v", err)
		}

		if item.ID() == "" {
			t.Error("item ID should be set after creation")
		}
		if item.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", item.Sequence())
		}
	})

	t.Run("Get", func(t *testing.T) {
		repo := NewItemRepository(setupTestDB(t))
		source := tu.Playable("42")
		source.Genre = "ambient"
		item := models.NewCachedItem(0, "search:lofi", source)

		if err := repo.Create(item); err != nil {
			t.Fatalf("failed to create item: %v", err)
		}

		retrieved, err := repo.Get(item.ID())
		if err != nil {
			t.Fatalf("failed to get item: %v", err)
		}

		if retrieved.Listing() != "search:lofi" {
			t.Errorf("expected listing search:lofi, got %s", retrieved.Listing())
		}
		if retrieved.Item() != source {
			t.Errorf("payload not preserved: %+v", retrieved.Item())
		}

		byItem, err := repo.GetByItemID("search:lofi", "42")
		if err != nil {
			t.Fatalf("failed to get item by item id: %v", err)
		}
		if byItem.ID() != item.ID() {
			t.Errorf("expected ID %s, got %s", item.ID(), byItem.ID())
		}
	})

	t.Run("Update", func(t *testing.T) {
		repo := NewItemRepository(setupTestDB(t))
		item := models.NewCachedItem(0, "likes", tu.Playable("1"))
		if err := repo.Create(item); err != nil {
			t.Fatalf("failed to create item: %v", err)
		}

		changed := item.Item()
		changed.Title = "Renamed"
		item.SetItem(changed)
		if err := repo.Update(item); err != nil {
			t.Fatalf("failed to update item: %v", err)
		}

		retrieved, err := repo.Get(item.ID())
		if err != nil {
			t.Fatalf("failed to get item: %v", err)
		}
		if retrieved.Item().Title != "Renamed" {
			t.Errorf("expected updated title, got %s", retrieved.Item().Title)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewItemRepository(setupTestDB(t))
		item := models.NewCachedItem(0, "likes", tu.Playable("1"))
		if err := repo.Create(item); err != nil {
			t.Fatalf("failed to create item: %v", err)
		}

		if err := repo.Delete(item.ID()); err != nil {
			t.Fatalf("failed to delete item: %v", err)
		}

		if _, err := repo.Get(item.ID()); !errors.Is(err, ErrItemNotFound) {
			t.Errorf("expected ErrItemNotFound for deleted item, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewItemRepository(setupTestDB(t))
		for _, c := range []struct{ listing, id string }{
			{"likes", "1"}, {"search:x", "2"}, {"likes", "3"}, {"likes", "4"},
		} {
			if err := repo.Create(models.NewCachedItem(0, c.listing, tu.Playable(c.id))); err != nil {
				t.Fatalf("failed to create item: %v", err)
			}
		}

		all, err := repo.List(nil)
		if err != nil {
			t.Fatalf("failed to list items: %v", err)
		}
		if len(all) != 4 {
			t.Errorf("expected 4 items, got %d", len(all))
		}

		likes, err := repo.ListByListing("likes")
		if err != nil {
			t.Fatalf("failed to list items: %v", err)
		}
		if len(likes) != 3 || likes[0].Item().ID != "1" || likes[2].Item().ID != "4" {
			t.Errorf("expected likes in insertion order, got %d items", len(likes))
		}

		limited, err := repo.List(map[string]any{"listing": "likes", "limit": 2})
		if err != nil {
			t.Fatalf("failed to list items: %v", err)
		}
		if len(limited) != 2 {
			t.Errorf("expected 2 items, got %d", len(limited))
		}

		counts, err := repo.Listings()
		if err != nil {
			t.Fatalf("failed to count listings: %v", err)
		}
		if counts["likes"] != 3 || counts["search:x"] != 1 {
			t.Errorf("unexpected counts %v", counts)
		}
	})
}

func TestItemRepositoryErrors(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		t.Run("ValidationError", func(t *testing.T) {
			repo := NewItemRepository(setupTestDB(t))
			if err := repo.Create(models.NewCachedItem(0, "", tu.Playable("1"))); err == nil {
				t.Error("expected validation error for empty listing")
			}
			if err := repo.Create(models.NewCachedItem(0, "likes", models.Item{})); err == nil {
				t.Error("expected validation error for empty item id")
			}
		})

		t.Run("Duplicate", func(t *testing.T) {
			repo := NewItemRepository(setupTestDB(t))
			if err := repo.Create(models.NewCachedItem(0, "likes", tu.Playable("1"))); err != nil {
				t.Fatalf("failed to create item: %v", err)
			}

			err := repo.Create(models.NewCachedItem(0, "likes", tu.Playable("1")))
			if !isUniqueViolation(err) {
				t.Errorf("expected unique violation, got %v", err)
			}

			if err := repo.Create(models.NewCachedItem(0, "search:x", tu.Playable("1"))); err != nil {
				t.Errorf("same item in another listing should be allowed: %v", err)
			}
		})
	})

	t.Run("NotFound errors", func(t *testing.T) {
		repo := NewItemRepository(setupTestDB(t))

		if _, err := repo.GetByItemID("likes", "missing"); !errors.Is(err, ErrItemNotFound) {
			t.Errorf("expected ErrItemNotFound, got %v", err)
		}
		if err := repo.Delete("missing"); !errors.Is(err, ErrItemNotFound) {
			t.Errorf("expected ErrItemNotFound, got %v", err)
		}

		ghost := models.RestoreCachedItem("missing", 1, "likes", tu.Playable("1"), ghostTime, ghostTime, nil)
		if err := repo.Update(ghost); !errors.Is(err, ErrItemNotFound) {
			t.Errorf("expected ErrItemNotFound, got %v", err)
		}
	})

	t.Run("Closed database", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewItemRepository(db)
		db.Close()

		if err := repo.Create(models.NewCachedItem(0, "likes", tu.Playable("1"))); err == nil {
			t.Error("expected error on closed database")
		}
		if _, err := repo.List(nil); err == nil {
			t.Error("expected error on closed database")
		}
		if _, err := repo.Listings(); err == nil {
			t.Error("expected error on closed database")
		}
	})
}

func TestItemCacheAdapter(t *testing.T) {
	ctx := context.Background()

	t.Run("Skips Duplicates", func(t *testing.T) {
		repo := NewItemRepository(setupTestDB(t))
		cache := NewItemCacheAdapter(repo)

		if err := cache.CacheItems(ctx, "likes", tu.Items("1", "2")); err != nil {
			t.Fatalf("failed to cache items: %v", err)
		}
		if err := cache.CacheItems(ctx, "likes", tu.Items("2", "3")); err != nil {
			t.Fatalf("failed to cache items: %v", err)
		}

		items, err := repo.ListByListing("likes")
		if err != nil {
			t.Fatalf("failed to list items: %v", err)
		}
		var ids []string
		for _, item := range items {
			ids = append(ids, item.Item().ID)
		}
		if len(ids) != 3 || ids[0] != "1" || ids[2] != "3" {
			t.Errorf("unexpected cached ids %v", ids)
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		repo := NewItemRepository(setupTestDB(t))
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		if err := NewItemCacheAdapter(repo).CacheItems(cctx, "likes", tu.Items("1")); !errors.Is(err, context.Canceled) {
			t.Errorf("expected cancellation, got %v", err)
		}
	})

	t.Run("Invalid Item", func(t *testing.T) {
		repo := NewItemRepository(setupTestDB(t))
		if err := NewItemCacheAdapter(repo).CacheItems(ctx, "likes", []models.Item{{}}); err == nil {
			t.Error("expected error for item without id")
		}
	})
}
