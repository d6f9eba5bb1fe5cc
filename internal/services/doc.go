// Package services adapts a paginated music API to the pagination interfaces.
//
// # Listings
//
// [ListingClient] builds [Listing] values for track search, playlist tracks, liked tracks, related tracks or any
// collection path. A Listing is a [pagination.PageFetcher]: the first request goes to the listing path with
// linked partitioning enabled, and every later request follows the next_href of the previous page, so the cursor
// is the URL itself. Entries wrapped as {"track": {...}} are unwrapped and ids may be numbers or strings.
//
// # Transport Retries
//
// Network errors and 408, 429, 500, 502, 503 and 504 responses are retried with exponential backoff
// (3 attempts, starting at 500ms by default). This is separate from, and below, the walker's retry policy.
//
// # Error Mapping
//
//   - 401 : [shared.ErrTokenExpired], which makes the walker refresh and re-issue once
//   - 503 : [shared.ErrServiceUnavailable] wrapped in [shared.ErrRequestFailed]
//   - other non-2xx : [shared.ErrRequestFailed]
//   - malformed JSON : [shared.ErrDecodeFailed]
//
// # Credentials
//
// [OAuthCredentials] implements [pagination.CredentialProvider] on top of [oauth2.Config]. Tokens that expire
// within [ExpirySkew] are treated as expired, and refreshed tokens are handed to a callback so the CLI can save
// them to the config file. [StaticCredentials] serves a fixed token.
package services
