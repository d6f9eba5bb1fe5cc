package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	API         APIConfig         `toml:"api"`
	Fetch       FetchConfig       `toml:"fetch"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service credentials.
type CredentialsConfig struct {
	OAuth OAuthConfig `toml:"oauth"`
}

// OAuthConfig contains the OAuth2 client registration and the last issued token pair.
type OAuthConfig struct {
	ClientID     string    `toml:"client_id"`
	ClientSecret string    `toml:"client_secret"`
	AuthURL      string    `toml:"auth_url"`
	TokenURL     string    `toml:"token_url"`
	RedirectURI  string    `toml:"redirect_uri"`
	AccessToken  string    `toml:"access_token"`
	RefreshToken string    `toml:"refresh_token"`
	Expiry       time.Time `toml:"expiry,omitempty"`
}

// Update copies an issued token into the config. A token without a refresh token keeps the stored one.
func (c *OAuthConfig) Update(token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("token cannot be nil")
	}

	c.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		c.RefreshToken = token.RefreshToken
	}
	c.Expiry = token.Expiry
	return nil
}

// Map returns the OAuth settings as a string map, the form accepted by the credential constructors.
func (c OAuthConfig) Map() map[string]string {
	m := map[string]string{
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
		"auth_url":      c.AuthURL,
		"token_url":     c.TokenURL,
		"redirect_uri":  c.RedirectURI,
		"access_token":  c.AccessToken,
		"refresh_token": c.RefreshToken,
	}
	if !c.Expiry.IsZero() {
		m["expiry"] = c.Expiry.Format(time.RFC3339)
	}
	return m
}

// Token returns the stored token pair as an [oauth2.Token].
func (c OAuthConfig) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       c.Expiry,
	}
}

// APIConfig contains settings for the listing HTTP client.
type APIConfig struct {
	BaseURL        string  `toml:"base_url"`
	AuthScheme     string  `toml:"auth_scheme"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	MaxAttempts    int     `toml:"max_attempts"`
	BaseDelayMS    int     `toml:"base_delay_ms"`
	RateLimit      float64 `toml:"rate_limit"`
}

// Timeout returns the request timeout, defaulting to 30 seconds.
func (c APIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BaseDelay returns the first transport backoff, defaulting to 500ms.
func (c APIConfig) BaseDelay() time.Duration {
	if c.BaseDelayMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.BaseDelayMS) * time.Millisecond
}

// FetchConfig contains pagination defaults used by the CLI.
type FetchConfig struct {
	PageSize        int `toml:"page_size"`
	MinimumEligible int `toml:"minimum_eligible"`
	ChunkDelayMS    int `toml:"chunk_delay_ms"`
	Workers         int `toml:"workers"`
}

// ChunkDelay returns the pause between streamed chunks, defaulting to 50ms.
func (c FetchConfig) ChunkDelay() time.Duration {
	if c.ChunkDelayMS <= 0 {
		return 50 * time.Millisecond
	}
	return time.Duration(c.ChunkDelayMS) * time.Millisecond
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the local OAuth callback and metrics servers.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// SaveConfig writes the config to path as TOML, replacing any existing file.
func SaveConfig(path string, config *Config) error {
	if config == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
