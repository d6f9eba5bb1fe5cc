// Package tasks runs fetch sessions over cursor-paginated listings with real-time progress reporting.
//
// # Core Operations
//
// [Engine] exposes three operations, each built on a [pagination.Walker]:
//
//  1. [Engine.FetchUntilQuota] : collect a minimum number of eligible items
//     - Pulls pages until the quota is met (checked between pages) or the listing ends
//     - Deduplicates once over everything collected
//     - Returns a resume cursor so a later call can continue without re-fetching
//
//  2. [Engine.StreamChunks] : deliver eligible items page by page
//     - Sends one [models.Chunk] per page on a caller-owned channel, then a Completed chunk
//     - Pauses briefly between chunks; the pause is also a cancellation point
//
//  3. [Engine.FetchMany] : run several quota sessions concurrently
//     - Worker pool with rate-limited session starts
//     - Optional per-session output files and a batch manifest
//
// # Failure Policy
//
// A failure on the first page of a session is returned as an error and nothing is produced.
// A failure on any later page ends the session normally with a short result.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Item Caching
//
// The optional [ItemCacher] interface persists eligible items of named listings as they are fetched.
// Cache errors are logged and never interrupt a session.
package tasks
