package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/pagewalk/internal/models"
	"github.com/desertthunder/pagewalk/internal/shared"
	"golang.org/x/oauth2"
)

const (
	defaultAuthURL     = "https://secure.soundcloud.com/authorize"
	defaultTokenURL    = "https://secure.soundcloud.com/oauth/token"
	defaultRedirectURI = "http://localhost:3000/callback"

	// ExpirySkew is how early a token is treated as expired.
	ExpirySkew = 5 * time.Minute
)

// OAuthCredentials is a refreshable credential provider backed by an OAuth2 token pair.
//
// Refresh exchanges the refresh token for a new pair. Concurrent refreshes are allowed; the last successful one
// becomes current. The optional callback receives every new token so it can be persisted.
type OAuthCredentials struct {
	mu        sync.Mutex
	config    *oauth2.Config
	token     *oauth2.Token
	onRefresh func(*oauth2.Token) error
	now       func() time.Time
	logger    *log.Logger
}

// NewOAuthCredentials creates a provider from an OAuth settings map (see [shared.OAuthConfig.Map]).
//
// client_id is required. A stored access_token, refresh_token and RFC 3339 expiry are loaded when present.
func NewOAuthCredentials(credentials map[string]string, onRefresh func(*oauth2.Token) error) (*OAuthCredentials, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id in credentials", shared.ErrMissingCredentials)
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: credentials["client_secret"],
		RedirectURL:  valueOr(credentials["redirect_uri"], defaultRedirectURI),
		Endpoint: oauth2.Endpoint{
			AuthURL:   valueOr(credentials["auth_url"], defaultAuthURL),
			TokenURL:  valueOr(credentials["token_url"], defaultTokenURL),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	token := &oauth2.Token{
		AccessToken:  credentials["access_token"],
		RefreshToken: credentials["refresh_token"],
	}
	if raw := credentials["expiry"]; raw != "" {
		expiry, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid expiry %q", shared.ErrInvalidConfig, raw)
		}
		token.Expiry = expiry
	}

	return &OAuthCredentials{
		config:    config,
		token:     token,
		onRefresh: onRefresh,
		now:       time.Now,
		logger:    shared.DiscardLogger(),
	}, nil
}

// SetLogger sets the logger used for refresh events.
func (c *OAuthCredentials) SetLogger(l *log.Logger) {
	if l != nil {
		c.logger = l
	}
}

// Config returns the OAuth2 client configuration used for the authorization code flow.
func (c *OAuthCredentials) Config() *oauth2.Config {
	return c.config
}

// AuthCodeURL returns the URL the user visits to authorize this client.
func (c *OAuthCredentials) AuthCodeURL(state string) string {
	return c.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// SetToken replaces the current token, e.g. after an authorization code exchange.
func (c *OAuthCredentials) SetToken(token *oauth2.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Current returns the stored credential. A token expiring within [ExpirySkew] is reported as unusable.
func (c *OAuthCredentials) Current() (models.Credential, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == nil {
		return models.Credential{}, false
	}
	cred := credential(c.token)
	return cred, !cred.Expired(c.now(), ExpirySkew)
}

// Refresh exchanges the refresh token for a new token pair.
func (c *OAuthCredentials) Refresh(ctx context.Context) (models.Credential, error) {
	c.mu.Lock()
	var refreshToken string
	if c.token != nil {
		refreshToken = c.token.RefreshToken
	}
	c.mu.Unlock()

	if refreshToken == "" {
		return models.Credential{}, shared.ErrNoRefreshToken
	}

	src := c.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return models.Credential{}, fmt.Errorf("token exchange failed: %w", err)
	}
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}

	c.mu.Lock()
	c.token = token
	onRefresh := c.onRefresh
	c.mu.Unlock()

	c.logger.Info("access token refreshed", "expiry", token.Expiry)
	if onRefresh != nil {
		if err := onRefresh(token); err != nil {
			c.logger.Warn("failed to persist refreshed token", "err", err)
		}
	}
	return credential(token), nil
}

// StaticCredentials serves a fixed token and cannot refresh.
type StaticCredentials struct {
	Token string
}

func (s StaticCredentials) Current() (models.Credential, bool) {
	return models.Credential{AccessToken: s.Token}, s.Token != ""
}

func (s StaticCredentials) Refresh(context.Context) (models.Credential, error) {
	return models.Credential{}, shared.ErrNoRefreshToken
}

func credential(t *oauth2.Token) models.Credential {
	return models.Credential{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    t.Expiry,
	}
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
