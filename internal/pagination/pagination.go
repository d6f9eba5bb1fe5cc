package pagination

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/pagewalk/internal/models"
	"github.com/desertthunder/pagewalk/internal/shared"
)

// CredentialProvider supplies access tokens to a walk.
//
// Current reports false when no usable credential is held (missing or expired).
// Implementations are shared between sessions and must be safe for concurrent use.
type CredentialProvider interface {
	Current() (models.Credential, bool)
	Refresh(ctx context.Context) (models.Credential, error)
}

// PageFetcher retrieves one page of a listing.
//
// A fetcher reports a credential the server rejected with [shared.ErrTokenExpired].
// Other failures should wrap [shared.ErrRequestFailed] or [shared.ErrDecodeFailed].
type PageFetcher interface {
	FetchPage(ctx context.Context, cursor models.Cursor, cred models.Credential) (models.Page, error)
}

// PageFetcherFunc adapts a function to [PageFetcher].
type PageFetcherFunc func(ctx context.Context, cursor models.Cursor, cred models.Credential) (models.Page, error)

func (f PageFetcherFunc) FetchPage(ctx context.Context, cursor models.Cursor, cred models.Credential) (models.Page, error) {
	return f(ctx, cursor, cred)
}

// Sizer is implemented by fetchers that accept a page size hint.
// WithPageSize returns a new fetcher and leaves the receiver unchanged.
type Sizer interface {
	WithPageSize(n int) PageFetcher
}

// Sized applies a page size hint when the fetcher supports one. A non-positive size keeps the fetcher as is.
func Sized(f PageFetcher, n int) PageFetcher {
	if n <= 0 {
		return f
	}
	if s, ok := f.(Sizer); ok {
		return s.WithPageSize(n)
	}
	return f
}

// RetryPolicy bounds the recovery a walk may attempt.
type RetryPolicy struct {
	MaxRefreshes   int // credential refreshes per walk
	RequestRetries int // re-issues of a failed request, not counting auth retries
}

// DefaultRetryPolicy allows one credential refresh per walk and never retries a failed request.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRefreshes: 1, RequestRetries: 0}
}

// State is a walker lifecycle state.
type State int

const (
	Idle State = iota
	Fetching
	PageReady
	Exhausted
	AuthFailed
	RequestFailed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case PageReady:
		return "page_ready"
	case Exhausted:
		return "exhausted"
	case AuthFailed:
		return "auth_failed"
	case RequestFailed:
		return "request_failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further pages can be produced.
func (s State) Terminal() bool {
	return s == Exhausted || s == AuthFailed || s == RequestFailed
}

// FetchError describes why a page could not be produced.
//
// Kind is one of [shared.ErrAuthFailed], [shared.ErrRequestFailed] or [shared.ErrDecodeFailed];
// errors.Is matches both Kind and the underlying cause.
type FetchError struct {
	Kind error
	Page int // 1-based position in the walk
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("page %d: %v", e.Page, e.Kind)
	}
	return fmt.Sprintf("page %d: %v: %v", e.Page, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// classify maps a fetcher error onto a [FetchError] kind.
func classify(err error) error {
	switch {
	case errors.Is(err, shared.ErrTokenExpired),
		errors.Is(err, shared.ErrAuthFailed),
		errors.Is(err, shared.ErrNotAuthenticated):
		return shared.ErrAuthFailed
	case errors.Is(err, shared.ErrDecodeFailed):
		return shared.ErrDecodeFailed
	default:
		return shared.ErrRequestFailed
	}
}
