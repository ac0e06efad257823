// Package config holds the application configuration, loaded by viper from
// config file, environment and command-line flags (in increasing
// precedence).
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config is the root of the application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Catalog  CatalogConfig  `mapstructure:"catalog" yaml:"catalog"`
	Generate GenerateConfig `mapstructure:"generate" yaml:"generate"`
	Load     LoadConfig     `mapstructure:"load" yaml:"load"`
}

// LoggerConfig controls the zap logger set up by internal/observability.
type LoggerConfig struct {
	// Level is a zap level string: debug, info, warn, error.
	Level string `mapstructure:"level" yaml:"level"`
	// Format selects "console" (colorized, human readable) or "json".
	Format      string `mapstructure:"format" yaml:"format"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	// LogFile, when set, mirrors all output as JSON into a rotating file.
	LogFile    string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
	AddSource  bool   `mapstructure:"add_source" yaml:"add_source"`
}

// CatalogConfig describes the external metadata catalog session.
type CatalogConfig struct {
	// URL is the REST base, e.g. "https://igc.example.com:9443".
	URL      string `mapstructure:"url" yaml:"url"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	// AuthFile points at a JSON credentials file ({"username": ..,
	// "password": ..}); "~" expands to the home directory. Explicit
	// username/password win over the file.
	AuthFile string `mapstructure:"auth_file" yaml:"auth_file"`
	// PageSize bounds each search page.
	PageSize int           `mapstructure:"page_size" yaml:"page_size"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// RateLimit caps outgoing requests per second; zero disables the cap.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	// InsecureSkipVerify disables TLS verification for self-signed catalog
	// installations.
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

// Validate checks the fields a session cannot be established without.
func (c *CatalogConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("catalog.url is required")
	}
	if _, err := url.Parse(c.URL); err != nil {
		return fmt.Errorf("catalog.url is not a valid URL: %w", err)
	}
	return nil
}

// GenerateConfig controls the term-graph-to-schema direction.
type GenerateConfig struct {
	// Output is the directory schema documents and sidecars are written to.
	Output string `mapstructure:"output" yaml:"output"`
	// Namespace prefixes every generated document identifier.
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
	// Category, when set, scopes the term search to one category subtree.
	Category string `mapstructure:"category" yaml:"category"`
	// MultivaluedMarkers is the cardinality truthy whitelist. The default
	// set is fixed; override only if the catalog uses other markers.
	MultivaluedMarkers []string `mapstructure:"multivalued_markers" yaml:"multivalued_markers"`
}

// LoadConfig controls the schema-to-asset-bundle direction.
type LoadConfig struct {
	// Input is a schema file or a directory of schema files.
	Input string `mapstructure:"input" yaml:"input"`
	// BundleID names the bundle the assets are created under.
	BundleID string `mapstructure:"bundle_id" yaml:"bundle_id"`
	// Output, when set, writes the bundle document to a file.
	Output string `mapstructure:"output" yaml:"output"`
	// DryRun builds the bundle without posting it to the catalog.
	DryRun bool `mapstructure:"dry_run" yaml:"dry_run"`
}

// Default returns a Config populated with sensible defaults; viper overlays
// file, env and flag values on top of it.
func Default() *Config {
	return &Config{
		Logger: LoggerConfig{
			Level:       "info",
			Format:      "console",
			ServiceName: "igc-x-json-schema",
			MaxSize:     50,
			MaxBackups:  3,
			MaxAge:      14,
		},
		Catalog: CatalogConfig{
			PageSize: 100,
			Timeout:  60 * time.Second,
		},
		Generate: GenerateConfig{
			Output:    ".",
			Namespace: "https://localhost/jsonSchema",
		},
		Load: LoadConfig{
			BundleID: "JSchema",
		},
	}
}
