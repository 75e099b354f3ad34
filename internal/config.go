package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/linktitle/internal/linkfmt"
	"github.com/starford/linktitle/internal/title"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
	Titles TitlesConfig      `yaml:"titles"`
	Format FormatConfig      `yaml:"format"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Titles.Validate(); err != nil {
		return err
	}
	return c.Format.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the directory pages are mirrored to. Mirror and Watch
// can be switched off independently.
type VaultConfig struct {
	Path   string `yaml:"path"`
	Mirror bool   `yaml:"mirror"`
	Watch  bool   `yaml:"watch"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// TitlesConfig controls how page titles are fetched.
type TitlesConfig struct {
	UserAgent    string        `yaml:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	Timeout      time.Duration `yaml:"timeout"` // zero means no timeout
	Reddit       RedditConfig  `yaml:"reddit"`
}

// RedditConfig controls the Reddit thread title provider.
type RedditConfig struct {
	Enabled   bool   `yaml:"enabled"`
	APIBase   string `yaml:"api_base"`
	Separator string `yaml:"separator"`
}

// Validate validates the titles configuration.
func (c *TitlesConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.MaxBodyBytes, validation.Min(int64(0))),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
	if c.Reddit.Enabled {
		return validation.ValidateStruct(&c.Reddit,
			validation.Field(&c.Reddit.APIBase, validation.Required),
		)
	}
	return nil
}

// ProviderConfig converts the section into title provider settings.
func (c *TitlesConfig) ProviderConfig() title.Config {
	return title.Config{
		UserAgent:       c.UserAgent,
		MaxBodyBytes:    c.MaxBodyBytes,
		Timeout:         c.Timeout,
		RedditEnabled:   c.Reddit.Enabled,
		RedditAPIBase:   c.Reddit.APIBase,
		RedditSeparator: c.Reddit.Separator,
	}
}

// FormatConfig holds the preferred link syntax written to a fresh store.
// An existing preference is never overwritten.
type FormatConfig struct {
	Default string `yaml:"default"`
}

// Validate validates the format configuration.
func (c *FormatConfig) Validate() error {
	if c.Default == "" {
		return nil
	}
	if _, ok := linkfmt.LookupFormat(c.Default); !ok {
		return fmt.Errorf("format: default %q is not one of %v", c.Default, linkfmt.FormatNames())
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path:   "./vault",
			Mirror: true,
			Watch:  true,
		},
		SQLite: SQLiteConfig{
			Path: "./linktitle.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Titles: TitlesConfig{
			UserAgent:    title.DefaultUserAgent,
			MaxBodyBytes: title.DefaultMaxBodyBytes,
			Reddit: RedditConfig{
				Enabled:   true,
				APIBase:   title.DefaultRedditAPI,
				Separator: title.DefaultRedditSeparator,
			},
		},
	}
}
