package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/noteport/internal/graph"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Formats accepted by export.formats. Markdown is always produced.
var knownFormats = []any{"md", "markdown", "docx", "odt", "html", "pdf", "epub", "rtf"}

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Graph   GraphConfig       `yaml:"graph"`
	Export  ExportConfig      `yaml:"export"`
	Catalog CatalogConfig     `yaml:"catalog"`
	Sync    SyncConfig        `yaml:"sync"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Graph.Validate(); err != nil {
		return fmt.Errorf("graph: %w", err)
	}
	if err := c.Export.Validate(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if c.Sync.IndexOnly && c.Export.Notebook == "" {
		return fmt.Errorf("sync: index_only needs export.notebook to locate the notebook root")
	}
	return c.Auth.Validate()
}

// CatalogPath returns the catalog database path, defaulting to
// <export.output>/catalog.sqlite.
func (c *Config) CatalogPath() string {
	if c.Catalog.Path != "" {
		return c.Catalog.Path
	}
	return filepath.Join(c.Export.Output, "catalog.sqlite")
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

// GraphConfig holds the content source connection settings.
type GraphConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// Validate validates the graph configuration. The token is checked only
// when a live export needs it.
func (c *GraphConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// ExportConfig selects the notebook and the artifacts to produce.
type ExportConfig struct {
	Output     string   `yaml:"output"`
	Notebook   string   `yaml:"notebook"`
	NotebookID string   `yaml:"notebook_id"`
	Merge      bool     `yaml:"merge"`
	Formats    []string `yaml:"formats"`
	Pandoc     string   `yaml:"pandoc"`
}

// Validate validates the export configuration.
func (c *ExportConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Output, validation.Required),
		validation.Field(&c.Formats, validation.Each(validation.In(knownFormats...))),
	)
}

// CatalogConfig controls the SQLite catalog. With Enabled unset every page is
// rendered on every run and nothing is recorded.
type CatalogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// SyncConfig controls incremental behaviour.
//
// Since is an ISO-8601 lower bound for pages never exported before; a value
// that does not parse is ignored with a warning. IndexOnly rebuilds the
// catalog from existing artifacts without contacting the source. Watch, if
// set, is a notebook export root that serve keeps reconciled.
type SyncConfig struct {
	Since     string `yaml:"since"`
	IndexOnly bool   `yaml:"index_only"`
	Watch     string `yaml:"watch"`
}

// AuthConfig holds authentication configuration for the browse API.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required.
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
		Graph: GraphConfig{
			BaseURL: graph.DefaultBaseURL,
			Timeout: 60 * time.Second,
		},
		Export: ExportConfig{
			Output:  "./output",
			Formats: []string{"docx"},
			Pandoc:  "pandoc",
		},
		Catalog: CatalogConfig{
			Enabled: true,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
