// Package pagination walks cursor-paginated listings through two injected capabilities:
// a [CredentialProvider] that owns access tokens and a [PageFetcher] that performs one request.
//
// # Walker
//
// A [Walker] fetches pages strictly in sequence, one request per page. Its lifecycle is
//
//	Idle -> Fetching -> {PageReady, Exhausted, AuthFailed, RequestFailed}
//
// PageReady returns to Fetching when another page is requested and a continuation exists.
// The last three states are terminal.
//
// # Failure Policy
//
// A failure on the first page of a walk is fatal and returned as a [*FetchError].
// A failure on any later page ends the walk as if the listing were exhausted; [Walker.Cause] keeps the error.
//
// # Credentials
//
// [RetryPolicy] bounds recovery. With [DefaultRetryPolicy] a walk refreshes its credential at most once,
// either because the provider holds none or because the server rejected it with [shared.ErrTokenExpired];
// in the latter case the same request is re-issued once. Other request failures are not retried.
//
// # Cancellation
//
// The caller's context is checked before each request. Requests receive a context detached from
// cancellation, so a request in flight always completes.
package pagination
