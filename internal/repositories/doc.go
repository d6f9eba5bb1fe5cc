// Package repositories implements SQLite persistence for cached listing items.
//
// [ItemRepository] implements models.Repository[*models.CachedItem] with soft deletes via deleted_at; deleted
// rows are excluded from every query. Items are unique per (listing, item_id).
//
// [ItemCacheAdapter] plugs the repository into the fetch engine as its item cacher. Items already cached for a
// listing are skipped, and unique constraint violations from concurrent sessions are ignored.
//
// Sequence numbers provide stable insertion order. The [NextSequence] function atomically increments the
// single-row counter in items_sequence.
package repositories
