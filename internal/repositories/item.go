package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/pagewalk/internal/models"
	"github.com/desertthunder/pagewalk/internal/shared"
)

// ErrItemNotFound is returned when no live cached item matches a lookup.
var ErrItemNotFound = errors.New("cached item not found")

var _ models.Repository[*models.CachedItem] = (*ItemRepository)(nil)

const itemColumns = `id, sequence, listing, item_id, payload, created_at, updated_at, deleted_at`

// ItemRepository implements models.Repository[*models.CachedItem] over the items table.
//
// Items are unique per (listing, item_id). The full item is stored as a JSON payload, with title and artist
// copied into columns for listing output.
type ItemRepository struct {
	db *sql.DB
}

// NewItemRepository creates a new ItemRepository with the given database connection
func NewItemRepository(db *sql.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Create inserts a new [models.CachedItem] with a generated ID and sequence
func (r *ItemRepository) Create(item *models.CachedItem) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "items")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	payload, err := json.Marshal(item.Item())
	if err != nil {
		return fmt.Errorf("failed to encode item: %w", err)
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO items (id, sequence, listing, item_id, title, artist, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		item.Listing(),
		item.Item().ID,
		item.Item().Title,
		item.Item().Artist,
		string(payload),
		item.CreatedAt(),
		item.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}

	item.SetID(id)
	item.SetSequence(sequence)
	return nil
}

// Get retrieves a cached item by ID, excluding soft-deleted items
func (r *ItemRepository) Get(id string) (*models.CachedItem, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = ? AND deleted_at IS NULL`
	return scanItem(r.db.QueryRow(query, id))
}

// GetByItemID retrieves the cached copy of a listing item
func (r *ItemRepository) GetByItemID(listing, itemID string) (*models.CachedItem, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE listing = ? AND item_id = ? AND deleted_at IS NULL`
	return scanItem(r.db.QueryRow(query, listing, itemID))
}

// Update replaces the stored item payload
func (r *ItemRepository) Update(item *models.CachedItem) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	payload, err := json.Marshal(item.Item())
	if err != nil {
		return fmt.Errorf("failed to encode item: %w", err)
	}

	now := time.Now()
	item.SetUpdatedAt(now)

	query := `
		UPDATE items
		SET title = ?, artist = ?, payload = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, item.Item().Title, item.Item().Artist, string(payload), now, item.ID())
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	return expectOneRow(result, item.ID())
}

// Delete soft-deletes a cached item by ID
func (r *ItemRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE items SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return expectOneRow(result, id)
}

// List retrieves cached items in insertion order. Supported criteria: "listing" (string), "limit" (int).
func (r *ItemRepository) List(criteria map[string]any) ([]*models.CachedItem, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE deleted_at IS NULL`
	args := []any{}

	if listing, ok := criteria["listing"].(string); ok && listing != "" {
		query += " AND listing = ?"
		args = append(args, listing)
	}

	query += " ORDER BY sequence ASC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []*models.CachedItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return items, nil
}

// ListByListing retrieves the cached items of one listing
func (r *ItemRepository) ListByListing(listing string) ([]*models.CachedItem, error) {
	return r.List(map[string]any{"listing": listing})
}

// Listings returns each cached listing name with its live item count.
func (r *ItemRepository) Listings() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT listing, COUNT(*) FROM items WHERE deleted_at IS NULL GROUP BY listing`)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			listing string
			count   int
		)
		if err := rows.Scan(&listing, &count); err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		counts[listing] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return counts, nil
}

// scanner is satisfied by both [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*models.CachedItem, error) {
	var (
		id        string
		sequence  int
		listing   string
		itemID    string
		payload   string
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := s.Scan(&id, &sequence, &listing, &itemID, &payload, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan item: %w", err)
	}

	var item models.Item
	if err := json.Unmarshal([]byte(payload), &item); err != nil {
		return nil, fmt.Errorf("failed to decode item %s: %w", id, err)
	}
	item.ID = itemID

	var deleted *time.Time
	if deletedAt.Valid {
		deleted = &deletedAt.Time
	}
	return models.RestoreCachedItem(id, sequence, listing, item, createdAt, updatedAt, deleted), nil
}

func expectOneRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	return nil
}
