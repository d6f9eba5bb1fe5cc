package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/pagewalk/internal/models"
	"github.com/desertthunder/pagewalk/internal/pagination"
	"github.com/desertthunder/pagewalk/internal/shared"
	th "github.com/desertthunder/pagewalk/internal/testing"
)

var (
	_ pagination.PageFetcher = Listing{}
	_ pagination.Sizer       = Listing{}
)

const firstPage = `{
	"collection": [
		{"id": 1, "title": "One", "duration": 1000, "streamable": true, "stream_url": "https://s/1", "user": {"username": "ann"}},
		{"track": {"id": "2", "title": "Two", "streamable": true, "stream_url": "https://s/2", "policy": "BLOCK"}},
		{"title": "no id"},
		42
	],
	"next_href": "%s/tracks?cursor=abc"
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*ListingClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewListingClient(shared.APIConfig{
		BaseURL:     srv.URL,
		MaxAttempts: 3,
		BaseDelayMS: 1,
	})
	return client, srv
}

func TestListingClient(t *testing.T) {
	ctx := context.Background()
	cred := models.Credential{AccessToken: "tok"}

	t.Run("Defaults", func(t *testing.T) {
		c := NewListingClient(shared.APIConfig{})
		if c.baseURL != defaultBaseURL || c.authScheme != "OAuth" || c.attempts != 3 {
			t.Errorf("unexpected defaults: %+v", c)
		}
	})

	t.Run("First Page", func(t *testing.T) {
		var srvURL string
		client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/tracks" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			q := r.URL.Query()
			if q.Get("q") != "lofi" || q.Get("limit") != "50" || q.Get("linked_partitioning") != "true" || q.Get("access") != "playable" {
				t.Errorf("unexpected query %s", r.URL.RawQuery)
			}
			if got := r.Header.Get("Authorization"); got != "OAuth tok" {
				t.Errorf("unexpected authorization header %q", got)
			}
			fmt.Fprintf(w, firstPage, srvURL)
		})
		srvURL = srv.URL

		page, err := client.SearchTracks("lofi").FetchPage(ctx, "", cred)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(page.Items) != 2 {
			t.Fatalf("expected 2 decoded items, got %d", len(page.Items))
		}
		if page.Items[0].ID != "1" || page.Items[0].Artist != "ann" || !page.Items[0].Streamable {
			t.Errorf("unexpected first item %+v", page.Items[0])
		}
		if page.Items[1].ID != "2" || page.Items[1].Policy != "BLOCK" {
			t.Errorf("nested track not unwrapped: %+v", page.Items[1])
		}
		if want := models.Cursor(srv.URL + "/tracks?cursor=abc"); page.Next != want {
			t.Errorf("next = %q, want %q", page.Next, want)
		}
	})

	t.Run("Follows Cursor", func(t *testing.T) {
		client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("cursor") != "abc" {
				t.Errorf("cursor not followed: %s", r.URL.RawQuery)
			}
			fmt.Fprint(w, `{"collection": [], "next_href": null}`)
		})

		page, err := client.LikedTracks().FetchPage(ctx, models.Cursor(srv.URL+"/tracks?cursor=abc"), cred)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.HasNext() {
			t.Errorf("expected last page, got next %q", page.Next)
		}
	})

	t.Run("Relative Cursor", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/me/likes/tracks" || r.URL.Query().Get("cursor") != "x" {
				t.Errorf("unexpected request %s", r.URL)
			}
			fmt.Fprint(w, `{"collection": []}`)
		})

		if _, err := client.LikedTracks().FetchPage(ctx, "/me/likes/tracks?cursor=x", cred); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("Page Size", func(t *testing.T) {
		var limits []string
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			limits = append(limits, r.URL.Query().Get("limit"))
			fmt.Fprint(w, `{"collection": []}`)
		})

		listing := client.PlaylistTracks("99")
		for _, f := range []pagination.PageFetcher{listing.WithPageSize(25), listing.WithPageSize(500), listing} {
			if _, err := f.FetchPage(ctx, "", cred); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		if want := []string{"25", "200", "50"}; !reflect.DeepEqual(limits, want) {
			t.Errorf("limits = %v, want %v", limits, want)
		}
	})

	t.Run("Listing Names", func(t *testing.T) {
		client := NewListingClient(shared.APIConfig{})
		cases := map[string]Listing{
			"search:lofi": client.SearchTracks("lofi"),
			"playlist:7":  client.PlaylistTracks("7"),
			"likes":       client.LikedTracks(),
			"related:42":  client.RelatedTracks("soundcloud:tracks:42"),
			"custom":      client.Listing("custom", "/users/1/tracks", nil),
		}
		for want, l := range cases {
			if l.Name() != want {
				t.Errorf("expected name %q, got %q", want, l.Name())
			}
		}
		if path := client.RelatedTracks("soundcloud:tracks:42").path; path != "/tracks/42/related" {
			t.Errorf("unexpected related path %q", path)
		}
	})

	t.Run("Unauthorized", func(t *testing.T) {
		var calls atomic.Int32
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		})

		_, err := client.LikedTracks().FetchPage(ctx, "", cred)
		if !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}
		if calls.Load() != 1 {
			t.Errorf("401 must not be retried, got %d calls", calls.Load())
		}
	})

	t.Run("Retries Transient Status", func(t *testing.T) {
		var calls atomic.Int32
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			fmt.Fprint(w, `{"collection": [{"id": 5, "streamable": true}]}`)
		})

		page, err := client.LikedTracks().FetchPage(ctx, "", cred)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls.Load() != 2 || len(page.Items) != 1 {
			t.Errorf("expected success on the second attempt, got %d calls and %d items", calls.Load(), len(page.Items))
		}
	})

	t.Run("Gives Up After Max Attempts", func(t *testing.T) {
		var calls atomic.Int32
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		_, err := client.LikedTracks().FetchPage(ctx, "", cred)
		if !errors.Is(err, shared.ErrRequestFailed) || !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected service unavailable request failure, got %v", err)
		}
		if calls.Load() != 3 {
			t.Errorf("expected 3 attempts, got %d", calls.Load())
		}
	})

	t.Run("Client Error", func(t *testing.T) {
		var calls atomic.Int32
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		})

		_, err := client.PlaylistTracks("missing").FetchPage(ctx, "", cred)
		if !errors.Is(err, shared.ErrRequestFailed) {
			t.Errorf("expected ErrRequestFailed, got %v", err)
		}
		if calls.Load() != 1 {
			t.Errorf("404 must not be retried, got %d calls", calls.Load())
		}
	})

	t.Run("Malformed JSON", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"collection": [`)
		})

		_, err := client.LikedTracks().FetchPage(ctx, "", cred)
		if !errors.Is(err, shared.ErrDecodeFailed) {
			t.Errorf("expected ErrDecodeFailed, got %v", err)
		}
	})

	t.Run("Network Error", func(t *testing.T) {
		rt := th.NewMockRoundTripper(nil, errors.New("connection refused"))
		client := NewListingClient(shared.APIConfig{BaseDelayMS: 1}, WithHTTPClient(&http.Client{Transport: rt}))

		_, err := client.LikedTracks().FetchPage(ctx, "", cred)
		if !errors.Is(err, shared.ErrRequestFailed) {
			t.Errorf("expected ErrRequestFailed, got %v", err)
		}
		if n := len(rt.Requests()); n != 3 {
			t.Errorf("expected 3 attempts, got %d", n)
		}
	})

	t.Run("Body Read Error", func(t *testing.T) {
		rt := th.NewMockRoundTripper(&http.Response{StatusCode: http.StatusOK, Body: &th.FCloser{}}, nil)
		client := NewListingClient(shared.APIConfig{BaseDelayMS: 1, MaxAttempts: 1}, WithHTTPClient(&http.Client{Transport: rt}))

		_, err := client.LikedTracks().FetchPage(ctx, "", cred)
		if !errors.Is(err, shared.ErrRequestFailed) {
			t.Errorf("expected ErrRequestFailed, got %v", err)
		}
	})

	t.Run("Walks Every Page", func(t *testing.T) {
		var srvURL string
		client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("cursor") == "" {
				fmt.Fprintf(w, `{"collection": [{"id": 1}], "next_href": "%s/tracks?cursor=2"}`, srvURL)
				return
			}
			fmt.Fprint(w, `{"collection": [{"id": 2}]}`)
		})
		srvURL = srv.URL

		w := pagination.NewWalker(client.SearchTracks("x"), StaticCredentials{Token: "tok"})
		var ids []string
		for page, err := range w.Pages(ctx) {
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, item := range page.Items {
				ids = append(ids, item.ID)
			}
		}

		if want := []string{"1", "2"}; !reflect.DeepEqual(ids, want) {
			t.Errorf("ids = %v, want %v", ids, want)
		}
		if w.State() != pagination.Exhausted {
			t.Errorf("expected exhausted walker, got %s", w.State())
		}
	})
}

func TestDecodePage(t *testing.T) {
	t.Run("Missing Streamable", func(t *testing.T) {
		page, skipped, err := decodePage([]byte(`{"collection": [{"id": 1, "stream_url": "u"}]}`))
		if err != nil || skipped != 0 {
			t.Fatalf("unexpected result: skipped=%d err=%v", skipped, err)
		}
		if page.Items[0].Streamable {
			t.Error("absent streamable flag should decode as false")
		}
	})

	t.Run("Skips Undecodable Entries", func(t *testing.T) {
		page, skipped, err := decodePage([]byte(`{"collection": [{"id": {}}, {"title": "x"}, {"id": 3}]}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if skipped != 2 || len(page.Items) != 1 || page.Items[0].ID != "3" {
			t.Errorf("unexpected page %+v (skipped %d)", page, skipped)
		}
	})

	t.Run("Large Numeric IDs", func(t *testing.T) {
		page, _, err := decodePage([]byte(`{"collection": [{"id": 18446744073709551615}]}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.Items[0].ID != "18446744073709551615" {
			t.Errorf("id lost precision: %s", page.Items[0].ID)
		}
	})
}
