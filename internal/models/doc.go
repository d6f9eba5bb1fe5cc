// Package models defines the entities shared by the walker, the fetch tasks and the persistence layer.
//
// The package contains two categories of types:
//
// 1. Listing values: plain structs passed between the walker and its collaborators
//   - [Item] : one entry of a remote listing with its eligibility attributes
//   - [Page] : an ordered slice of items plus the continuation [Cursor]
//   - [FetchQuota] : how many eligible items a caller needs
//   - [Credential] : a short-lived access token, read-only to the walker
//   - [FetchOutcome] : the aggregate returned by a quota fetch
//   - [Chunk] : one filtered page delivered by the stream dispatcher
//
// 2. Persistent entities: database-backed models
//   - [CachedItem] : an eligible item stored by the optional item cache
//
// Persistent entities implement the [Model] interface; [Repository] defines standard CRUD operations for database access.
package models
