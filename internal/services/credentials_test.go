package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/pagewalk/internal/pagination"
	"github.com/desertthunder/pagewalk/internal/shared"
	"golang.org/x/oauth2"
)

var (
	_ pagination.CredentialProvider = (*OAuthCredentials)(nil)
	_ pagination.CredentialProvider = StaticCredentials{}
)

func tokenServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		if r.Form.Get("grant_type") != "refresh_token" || r.Form.Get("refresh_token") != "r1" {
			t.Errorf("unexpected token request: %v", r.Form)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOAuthCredentials(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	newCreds := func(t *testing.T, m map[string]string) *OAuthCredentials {
		t.Helper()
		c, err := NewOAuthCredentials(m, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		c.now = func() time.Time { return now }
		return c
	}

	t.Run("Missing Client ID", func(t *testing.T) {
		_, err := NewOAuthCredentials(map[string]string{"client_secret": "s"}, nil)
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Invalid Expiry", func(t *testing.T) {
		_, err := NewOAuthCredentials(map[string]string{"client_id": "id", "expiry": "tomorrow"}, nil)
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("Defaults", func(t *testing.T) {
		c := newCreds(t, map[string]string{"client_id": "id"})
		cfg := c.Config()
		if cfg.RedirectURL != defaultRedirectURI || cfg.Endpoint.TokenURL != defaultTokenURL || cfg.Endpoint.AuthURL != defaultAuthURL {
			t.Errorf("unexpected defaults: %+v", cfg)
		}
	})

	t.Run("Auth Code URL", func(t *testing.T) {
		c := newCreds(t, map[string]string{"client_id": "id"})
		u := c.AuthCodeURL("xyz")
		if !strings.Contains(u, "client_id=id") || !strings.Contains(u, "state=xyz") {
			t.Errorf("unexpected auth URL %s", u)
		}
	})

	t.Run("Current", func(t *testing.T) {
		cases := []struct {
			name  string
			creds map[string]string
			ok    bool
		}{
			{"no token", map[string]string{"client_id": "id"}, false},
			{"no expiry", map[string]string{"client_id": "id", "access_token": "a"}, true},
			{"valid", map[string]string{"client_id": "id", "access_token": "a", "expiry": now.Add(time.Hour).Format(time.RFC3339)}, true},
			{"within skew", map[string]string{"client_id": "id", "access_token": "a", "expiry": now.Add(2 * time.Minute).Format(time.RFC3339)}, false},
			{"expired", map[string]string{"client_id": "id", "access_token": "a", "expiry": now.Add(-time.Hour).Format(time.RFC3339)}, false},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, ok := newCreds(t, tc.creds).Current()
				if ok != tc.ok {
					t.Errorf("expected ok=%v, got %v", tc.ok, ok)
				}
			})
		}
	})

	t.Run("Refresh", func(t *testing.T) {
		srv := tokenServer(t, `{"access_token": "a2", "token_type": "bearer", "expires_in": 3600}`, http.StatusOK)

		var saved *oauth2.Token
		c, err := NewOAuthCredentials(map[string]string{
			"client_id":     "id",
			"client_secret": "secret",
			"token_url":     srv.URL,
			"access_token":  "a1",
			"refresh_token": "r1",
		}, func(tok *oauth2.Token) error {
			saved = tok
			return errors.New("read-only config")
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		cred, err := c.Refresh(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if cred.AccessToken != "a2" || cred.RefreshToken != "r1" {
			t.Errorf("unexpected credential %+v", cred)
		}
		if cred.ExpiresAt.IsZero() {
			t.Error("expected an expiry")
		}
		if saved == nil || saved.AccessToken != "a2" {
			t.Errorf("callback did not receive the new token: %+v", saved)
		}

		current, ok := c.Current()
		if !ok || current.AccessToken != "a2" {
			t.Errorf("expected refreshed token to be current, got %+v (ok=%v)", current, ok)
		}
	})

	t.Run("Refresh Rejected", func(t *testing.T) {
		srv := tokenServer(t, `{"error": "invalid_grant"}`, http.StatusBadRequest)
		c := newCreds(t, map[string]string{"client_id": "id", "token_url": srv.URL, "access_token": "a1", "refresh_token": "r1"})

		if _, err := c.Refresh(context.Background()); err == nil {
			t.Error("expected an error")
		}
		if current, _ := c.Current(); current.AccessToken != "a1" {
			t.Errorf("failed refresh must keep the old token, got %q", current.AccessToken)
		}
	})

	t.Run("No Refresh Token", func(t *testing.T) {
		c := newCreds(t, map[string]string{"client_id": "id", "access_token": "a1"})
		if _, err := c.Refresh(context.Background()); !errors.Is(err, shared.ErrNoRefreshToken) {
			t.Errorf("expected ErrNoRefreshToken, got %v", err)
		}
	})

	t.Run("Set Token", func(t *testing.T) {
		c := newCreds(t, map[string]string{"client_id": "id"})
		c.SetToken(&oauth2.Token{AccessToken: "fresh"})
		if cred, ok := c.Current(); !ok || cred.AccessToken != "fresh" {
			t.Errorf("unexpected credential %+v (ok=%v)", cred, ok)
		}
	})
}

func TestStaticCredentials(t *testing.T) {
	if _, ok := (StaticCredentials{}).Current(); ok {
		t.Error("empty static token should not be usable")
	}
	if cred, ok := (StaticCredentials{Token: "t"}).Current(); !ok || cred.AccessToken != "t" {
		t.Errorf("unexpected credential %+v", cred)
	}
	if _, err := (StaticCredentials{Token: "t"}).Refresh(context.Background()); !errors.Is(err, shared.ErrNoRefreshToken) {
		t.Errorf("expected ErrNoRefreshToken, got %v", err)
	}
}
