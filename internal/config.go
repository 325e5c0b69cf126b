// Package internal provides the application configuration and the serve-mode
// runtime.
package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Index backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Journal JournalConfig     `yaml:"journal"`
	Index   IndexConfig       `yaml:"index"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Journal.Validate(); err != nil {
		return err
	}
	if err := c.Index.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
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

// HTTPConfig holds HTTP server configuration for serve mode.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns the HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// JournalConfig holds the root path containing the per-kind document
// subdirectories (sessions/, plans/, patterns/).
type JournalConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the journal configuration.
func (c *JournalConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// IndexConfig selects and configures the index backend.
//
// Backend is a deployment-time choice between the JSON flat-file index and
// the embedded SQLite index; both answer the same queries. Path overrides
// the artifact location, which otherwise defaults to index.json / index.db
// inside the journal root. AutoRebuild, when disabled, makes the caller
// responsible for explicit rebuilds. WarnAfter, when positive, logs rebuilds
// slower than the given duration (observability only, never an abort).
type IndexConfig struct {
	Backend     string        `yaml:"backend"`
	Path        string        `yaml:"path"`
	AutoRebuild bool          `yaml:"auto_rebuild"`
	WarnAfter   time.Duration `yaml:"warn_after"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendJSON, BackendSQLite)),
		validation.Field(&c.WarnAfter, validation.Min(time.Duration(0))),
	)
}

// ArtifactPath returns the index artifact location for the configured
// backend, named distinctly from all document files so tree scans skip it.
func (c *IndexConfig) ArtifactPath(journalRoot string) string {
	if c.Path != "" {
		return c.Path
	}
	name := "index.json"
	if c.Backend == BackendSQLite {
		name = "index.db"
	}
	return filepath.Join(journalRoot, name)
}

// AuthConfig holds authentication configuration for the serve-mode API.
//
//   - "disabled" (default): no authentication, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
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

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Journal: JournalConfig{
			Path: "./journal",
		},
		Index: IndexConfig{
			Backend:     BackendJSON,
			AutoRebuild: true,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
