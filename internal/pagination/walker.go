package pagination

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/pagewalk/internal/metrics"
	"github.com/desertthunder/pagewalk/internal/models"
	"github.com/desertthunder/pagewalk/internal/shared"
)

// Walker walks one cursor-paginated listing, page by page.
//
// A Walker belongs to a single session and is not safe for concurrent use.
type Walker struct {
	fetcher PageFetcher
	creds   CredentialProvider
	policy  RetryPolicy
	logger  *log.Logger

	state     State
	cursor    models.Cursor
	pages     int
	refreshes int
	cause     error
}

// Option configures a [Walker].
type Option func(*Walker)

// WithStartCursor resumes a listing from a cursor returned by an earlier walk.
func WithStartCursor(c models.Cursor) Option {
	return func(w *Walker) { w.cursor = c }
}

// WithRetryPolicy replaces [DefaultRetryPolicy].
func WithRetryPolicy(p RetryPolicy) Option {
	return func(w *Walker) {
		if p.MaxRefreshes < 0 {
			p.MaxRefreshes = 0
		}
		if p.RequestRetries < 0 {
			p.RequestRetries = 0
		}
		w.policy = p
	}
}

// WithLogger sets the logger. Walkers are silent by default.
func WithLogger(l *log.Logger) Option {
	return func(w *Walker) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWalker creates an idle [Walker] positioned at the first page (or the start cursor).
func NewWalker(fetcher PageFetcher, creds CredentialProvider, opts ...Option) *Walker {
	w := &Walker{
		fetcher: fetcher,
		creds:   creds,
		policy:  DefaultRetryPolicy(),
		logger:  shared.DiscardLogger(),
		state:   Idle,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// NextPage fetches the next page.
//
// It returns ok == false with a nil error once the walk has ended: the listing is exhausted or a page after
// the first failed (see [Walker.Cause]). A failure on the first page is returned as a [*FetchError].
// Cancellation is observed before each request; a request already issued runs to completion.
func (w *Walker) NextPage(ctx context.Context) (models.Page, bool, error) {
	switch {
	case w.state.Terminal():
		return models.Page{}, false, nil
	case w.state == PageReady && w.cursor.IsZero():
		w.state = Exhausted
		w.logger.Debug("listing exhausted", "pages", w.pages)
		return models.Page{}, false, nil
	}

	if err := ctx.Err(); err != nil {
		return models.Page{}, false, err
	}

	w.state = Fetching
	page, err := w.fetch(context.WithoutCancel(ctx))
	if err != nil {
		return models.Page{}, false, w.fail(err)
	}

	w.pages++
	w.cursor = page.Next
	w.state = PageReady
	w.logger.Debug("page fetched", "page", w.pages, "items", len(page.Items), "has_next", page.HasNext())
	return page, true, nil
}

// Pages returns an iterator over the remaining pages. A fatal error is yielded once, as the final element.
func (w *Walker) Pages(ctx context.Context) iter.Seq2[models.Page, error] {
	return func(yield func(models.Page, error) bool) {
		for {
			page, ok, err := w.NextPage(ctx)
			if err != nil {
				yield(models.Page{}, err)
				return
			}
			if !ok || !yield(page, nil) {
				return
			}
		}
	}
}

// State returns the current lifecycle state.
func (w *Walker) State() State { return w.state }

// Cursor returns the cursor the next request would use: the continuation of the last page fetched, or the
// cursor of the page that failed. It is empty once the listing is exhausted.
func (w *Walker) Cursor() models.Cursor { return w.cursor }

// PagesFetched returns the number of pages produced so far.
func (w *Walker) PagesFetched() int { return w.pages }

// Cause returns the failure that ended the walk, or nil.
func (w *Walker) Cause() error { return w.cause }

func (w *Walker) fetch(ctx context.Context) (models.Page, error) {
	cred, err := w.credential(ctx)
	if err != nil {
		return models.Page{}, w.fetchError(shared.ErrAuthFailed, err)
	}

	retries := w.policy.RequestRetries
	for {
		start := time.Now()
		page, err := w.fetcher.FetchPage(ctx, w.cursor, cred)
		metrics.ObservePage(time.Since(start), err)
		if err == nil {
			return page, nil
		}

		if errors.Is(err, shared.ErrTokenExpired) {
			if !w.canRefresh() {
				return models.Page{}, w.fetchError(shared.ErrAuthFailed, err)
			}
			w.logger.Info("credential rejected, refreshing", "page", w.pages+1)
			if cred, err = w.refresh(ctx); err != nil {
				return models.Page{}, w.fetchError(shared.ErrAuthFailed, err)
			}
			continue
		}

		kind := classify(err)
		if kind == shared.ErrAuthFailed || retries <= 0 {
			return models.Page{}, w.fetchError(kind, err)
		}
		retries--
		w.logger.Debug("retrying page request", "page", w.pages+1, "err", err)
	}
}

func (w *Walker) credential(ctx context.Context) (models.Credential, error) {
	if cred, ok := w.creds.Current(); ok && cred.AccessToken != "" {
		return cred, nil
	}
	if !w.canRefresh() {
		return models.Credential{}, shared.ErrNotAuthenticated
	}
	return w.refresh(ctx)
}

func (w *Walker) canRefresh() bool {
	return w.refreshes < w.policy.MaxRefreshes
}

func (w *Walker) refresh(ctx context.Context) (models.Credential, error) {
	w.refreshes++
	cred, err := w.creds.Refresh(ctx)
	if err == nil && cred.AccessToken == "" {
		err = shared.ErrMissingCredentials
	}
	metrics.ObserveRefresh(err)
	if err != nil {
		return models.Credential{}, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}
	return cred, nil
}

func (w *Walker) fetchError(kind, err error) *FetchError {
	return &FetchError{Kind: kind, Page: w.pages + 1, Err: err}
}

// fail records a terminal state. Only a first-page failure is returned.
func (w *Walker) fail(err error) error {
	var fe *FetchError
	if !errors.As(err, &fe) {
		fe = w.fetchError(classify(err), err)
	}

	if errors.Is(fe.Kind, shared.ErrAuthFailed) {
		w.state = AuthFailed
	} else {
		w.state = RequestFailed
	}
	w.cause = fe

	if w.pages == 0 {
		w.logger.Error("first page failed", "state", w.state, "err", fe)
		return fe
	}
	w.logger.Warn("page failed, ending walk early", "state", w.state, "pages", w.pages, "err", fe)
	return nil
}
