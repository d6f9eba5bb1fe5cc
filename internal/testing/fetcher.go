package testing

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/desertthunder/pagewalk/internal/models"
	"github.com/desertthunder/pagewalk/internal/shared"
)

// Playable returns an item that passes every eligibility rule.
func Playable(id string) models.Item {
	return models.Item{
		ID:         id,
		Title:      "Track " + id,
		Artist:     "Artist",
		DurationMS: 180_000,
		Streamable: true,
		StreamURL:  "https://stream.example.com/" + id,
	}
}

// Blocked returns an item excluded by its geo policy.
func Blocked(id string) models.Item {
	item := Playable(id)
	item.Policy = "BLOCK"
	return item
}

// Items builds playable items for the given ids.
func Items(ids ...string) []models.Item {
	items := make([]models.Item, 0, len(ids))
	for _, id := range ids {
		items = append(items, Playable(id))
	}
	return items
}

// IDs extracts item ids in order.
func IDs(items []models.Item) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}

// ScriptedFetcher serves a fixed set of pages keyed by cursor.
//
// Errors queued for a cursor are returned (in order) before its page is served.
// Requests made with RejectToken fail with [shared.ErrTokenExpired].
type ScriptedFetcher struct {
	mu          sync.Mutex
	pages       map[models.Cursor]models.Page
	errs        map[models.Cursor][]error
	calls       []models.Cursor
	tokens      []string
	RejectToken string
	// OnFetch runs before each request is answered, with the request context.
	OnFetch func(ctx context.Context, cursor models.Cursor)
}

// NewPagedFetcher chains pages with cursors "", "page-2", "page-3", ...; the last page has no continuation.
func NewPagedFetcher(pages ...[]models.Item) *ScriptedFetcher {
	f := &ScriptedFetcher{
		pages: make(map[models.Cursor]models.Page),
		errs:  make(map[models.Cursor][]error),
	}
	for i, items := range pages {
		var next models.Cursor
		if i < len(pages)-1 {
			next = PageCursor(i + 2)
		}
		f.pages[PageCursor(i+1)] = models.Page{Items: items, Next: next}
	}
	return f
}

// PageCursor returns the cursor used by [NewPagedFetcher] for the n-th page (1-based).
func PageCursor(n int) models.Cursor {
	if n <= 1 {
		return ""
	}
	return models.Cursor("page-" + strconv.Itoa(n))
}

// FailOn queues errors for the page requested with cursor.
func (f *ScriptedFetcher) FailOn(cursor models.Cursor, errs ...error) *ScriptedFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[cursor] = append(f.errs[cursor], errs...)
	return f
}

func (f *ScriptedFetcher) FetchPage(ctx context.Context, cursor models.Cursor, cred models.Credential) (models.Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cursor)
	f.tokens = append(f.tokens, cred.AccessToken)
	hook := f.OnFetch
	f.mu.Unlock()

	if hook != nil {
		hook(ctx, cursor)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.RejectToken != "" && cred.AccessToken == f.RejectToken {
		return models.Page{}, shared.ErrTokenExpired
	}
	if queued := f.errs[cursor]; len(queued) > 0 {
		f.errs[cursor] = queued[1:]
		return models.Page{}, queued[0]
	}
	page, ok := f.pages[cursor]
	if !ok {
		return models.Page{}, fmt.Errorf("%w: unknown cursor %q", shared.ErrRequestFailed, cursor)
	}
	return page, nil
}

// Calls returns the cursors requested so far.
func (f *ScriptedFetcher) Calls() []models.Cursor {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Cursor(nil), f.calls...)
}

// Tokens returns the access tokens presented so far.
func (f *ScriptedFetcher) Tokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tokens...)
}

// EndlessFetcher serves fully eligible pages forever. Item ids are sequential from 1.
type EndlessFetcher struct {
	mu       sync.Mutex
	PageSize int
	calls    int
}

func (f *EndlessFetcher) FetchPage(_ context.Context, cursor models.Cursor, _ models.Credential) (models.Page, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	offset := 0
	if !cursor.IsZero() {
		n, err := strconv.Atoi(string(cursor))
		if err != nil {
			return models.Page{}, fmt.Errorf("%w: bad cursor %q", shared.ErrDecodeFailed, cursor)
		}
		offset = n
	}

	size := f.PageSize
	if size <= 0 {
		size = 10
	}

	items := make([]models.Item, 0, size)
	for i := 1; i <= size; i++ {
		items = append(items, Playable(strconv.Itoa(offset+i)))
	}
	return models.Page{Items: items, Next: models.Cursor(strconv.Itoa(offset + size))}, nil
}

// Calls returns the number of requests served.
func (f *EndlessFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// MockCredentials is a scripted credential provider.
type MockCredentials struct {
	mu         sync.Mutex
	cred       models.Credential
	valid      bool
	next       models.Credential
	refreshErr error
	refreshes  int
}

// NewMockCredentials returns a provider holding a valid token.
func NewMockCredentials(token string) *MockCredentials {
	return &MockCredentials{
		cred:  models.Credential{AccessToken: token, RefreshToken: "refresh"},
		valid: true,
		next:  models.Credential{AccessToken: token + "-refreshed", RefreshToken: "refresh"},
	}
}

// Invalidate makes Current report no usable credential.
func (m *MockCredentials) Invalidate() *MockCredentials {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.valid = false
	return m
}

// FailRefresh makes every Refresh return err.
func (m *MockCredentials) FailRefresh(err error) *MockCredentials {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshErr = err
	return m
}

// RefreshTo sets the token issued by the next successful refresh.
func (m *MockCredentials) RefreshTo(token string) *MockCredentials {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next = models.Credential{AccessToken: token, RefreshToken: "refresh"}
	return m
}

func (m *MockCredentials) Current() (models.Credential, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cred, m.valid
}

func (m *MockCredentials) Refresh(_ context.Context) (models.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshes++
	if m.refreshErr != nil {
		return models.Credential{}, m.refreshErr
	}
	m.cred, m.valid = m.next, true
	return m.cred, nil
}

// Refreshes returns the number of refresh attempts.
func (m *MockCredentials) Refreshes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshes
}
