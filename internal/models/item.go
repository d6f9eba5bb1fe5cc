package models

import "time"

// Cursor is an opaque continuation token returned by a page.
//
// The empty cursor means "first page" when passed to a fetcher and "end of listing" when returned in a [Page].
type Cursor string

// IsZero reports whether the cursor is empty.
func (c Cursor) IsZero() bool {
	return c == ""
}

// Item represents a single entry of a remote listing (usually a track).
//
// Eligibility attributes use zero values for "absent": an empty StreamURL, Policy or Access means the attribute was not present.
type Item struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Artist        string `json:"artist,omitempty"`
	DurationMS    int    `json:"duration_ms,omitempty"`
	Genre         string `json:"genre,omitempty"`
	PermalinkURL  string `json:"permalink_url,omitempty"`
	ArtworkURL    string `json:"artwork_url,omitempty"`
	PlaybackCount int    `json:"playback_count,omitempty"`
	Streamable    bool   `json:"streamable"`
	StreamURL     string `json:"stream_url,omitempty"`
	Policy        string `json:"policy,omitempty"` // ALLOW, MONETIZE, SNIP, BLOCK
	Access        string `json:"access,omitempty"` // playable, preview, blocked
}

// Page is one page of a paginated listing.
type Page struct {
	Items []Item
	Next  Cursor
}

// HasNext reports whether the listing continues after this page.
//
// A continuation does not guarantee that more eligible items remain.
func (p Page) HasNext() bool {
	return !p.Next.IsZero()
}

// FetchQuota describes how many eligible items a caller needs.
type FetchQuota struct {
	MinimumEligible int // 0 means first page only
	PageSizeHint    int // 0 keeps the fetcher default
}

// Normalize clamps negative values to zero.
func (q FetchQuota) Normalize() FetchQuota {
	if q.MinimumEligible < 0 {
		q.MinimumEligible = 0
	}
	if q.PageSizeHint < 0 {
		q.PageSizeHint = 0
	}
	return q
}

// Credential is a short-lived access token owned by a credential provider.
type Credential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time // zero means no known expiry
}

// Expired reports whether the credential is unusable at now, treating tokens that expire within skew as already expired.
func (c Credential) Expired(now time.Time, skew time.Duration) bool {
	if c.AccessToken == "" {
		return true
	}
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(skew).Before(c.ExpiresAt)
}

// FetchOutcome is the aggregate produced by a quota fetch.
//
// ResumeCursor lets a caller continue pagination later without re-fetching pages already seen; it is empty when the listing was exhausted.
type FetchOutcome struct {
	Items        []Item `json:"items"`
	ResumeCursor Cursor `json:"resume_cursor,omitempty"`
}

// Chunk is one filtered page delivered by the stream dispatcher.
//
// Completed marks end of stream. A chunk with no items and Completed == false is a page whose items were all filtered out.
type Chunk struct {
	Index     int
	Items     []Item
	Completed bool
}
