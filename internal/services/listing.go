package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/pagewalk/internal/models"
	"github.com/desertthunder/pagewalk/internal/pagination"
)

// Listing is one paginated collection endpoint. It implements [pagination.PageFetcher] and [pagination.Sizer].
//
// The first page is requested from the listing path; later pages follow the next_href returned by the API,
// which is used as the cursor.
type Listing struct {
	client *ListingClient
	name   string
	path   string
	query  url.Values
	size   int
}

// SearchTracks lists playable tracks matching q.
func (c *ListingClient) SearchTracks(q string) Listing {
	return c.Listing("search:"+q, "/tracks", url.Values{
		"q":      {q},
		"access": {"playable"},
	})
}

// PlaylistTracks lists the tracks of a playlist.
func (c *ListingClient) PlaylistTracks(playlistID string) Listing {
	return c.Listing("playlist:"+playlistID, "/playlists/"+url.PathEscape(playlistID)+"/tracks", url.Values{
		"access": {"playable"},
	})
}

// LikedTracks lists the authenticated user's liked tracks, including ones that may not be playable.
func (c *ListingClient) LikedTracks() Listing {
	return c.Listing("likes", "/me/likes/tracks", url.Values{
		"access": {"playable,preview,blocked"},
	})
}

// RelatedTracks lists tracks related to trackID. A "soundcloud:tracks:" URN prefix is accepted.
func (c *ListingClient) RelatedTracks(trackID string) Listing {
	trackID = strings.TrimPrefix(trackID, "soundcloud:tracks:")
	return c.Listing("related:"+trackID, "/tracks/"+url.PathEscape(trackID)+"/related", url.Values{
		"access": {"playable"},
	})
}

// Listing builds a listing for an arbitrary collection path relative to the base URL.
func (c *ListingClient) Listing(name, path string, query url.Values) Listing {
	if query == nil {
		query = url.Values{}
	}
	return Listing{client: c, name: name, path: path, query: query}
}

// Name labels the listing for logs, caching and exports.
func (l Listing) Name() string { return l.name }

// WithPageSize returns a copy that requests n items per page (capped at 200).
func (l Listing) WithPageSize(n int) pagination.PageFetcher {
	l.size = n
	return l
}

// FetchPage requests the page at cursor.
func (l Listing) FetchPage(ctx context.Context, cursor models.Cursor, cred models.Credential) (models.Page, error) {
	target, err := l.url(cursor)
	if err != nil {
		return models.Page{}, err
	}

	body, err := l.client.get(ctx, target, cred)
	if err != nil {
		return models.Page{}, err
	}

	page, skipped, err := decodePage(body)
	if err != nil {
		return models.Page{}, err
	}
	if skipped > 0 {
		l.client.logger.Debug("skipped undecodable entries", "listing", l.name, "skipped", skipped)
	}
	return page, nil
}

// url returns the first-page URL or resolves a next_href cursor against the base URL.
func (l Listing) url(cursor models.Cursor) (string, error) {
	base, err := url.Parse(l.client.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	if !cursor.IsZero() {
		next, err := url.Parse(string(cursor))
		if err != nil {
			return "", fmt.Errorf("invalid cursor %q: %w", cursor, err)
		}
		return base.ResolveReference(next).String(), nil
	}

	q := url.Values{}
	for k, v := range l.query {
		q[k] = append([]string(nil), v...)
	}
	q.Set("limit", strconv.Itoa(l.pageSize()))
	q.Set("linked_partitioning", "true")

	u := base.JoinPath(l.path)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (l Listing) pageSize() int {
	switch {
	case l.size <= 0:
		return defaultPageSize
	case l.size > maxPageSize:
		return maxPageSize
	default:
		return l.size
	}
}
