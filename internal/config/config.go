// Package config provides configuration loading for github-reader.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (GITHUB_TOKEN, SERVER_PORT, ...)
//  2. YAML config file (~/.config/github-reader/config.yaml)
//  3. Hardcoded defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Transport names accepted by ServerConfig.Transport.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// DefaultEndpoint is the GitHub GraphQL v4 endpoint.
const DefaultEndpoint = "https://api.github.com/graphql"

// Config is the root configuration, constructed once at process start and
// passed explicitly to the components that need it.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	GitHub  GitHubConfig  `koanf:"github"`
	Logging LoggingConfig `koanf:"logging"`
	Storage StorageConfig `koanf:"storage"`
}

// ServerConfig holds transport selection and HTTP listener settings.
type ServerConfig struct {
	// Transport is "stdio" (default) or "http".
	Transport string `koanf:"transport"`

	// Host and Port apply to the http transport only.
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// GitHubConfig holds credentials and client settings for the GraphQL API.
// Read-only after startup.
type GitHubConfig struct {
	// Token is the GitHub access token. Tools tagged "api" refuse to run
	// without it.
	Token Secret `koanf:"token"`

	// Endpoint is the GraphQL endpoint URL.
	Endpoint string `koanf:"endpoint"`

	// Timeout bounds a single outbound request.
	Timeout Duration `koanf:"timeout"`
}

// IsConfigured reports whether a usable (non-whitespace) token is present.
func (g *GitHubConfig) IsConfigured() bool {
	return strings.TrimSpace(g.Token.Value()) != ""
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is "json" or "console".
	Format string `koanf:"format"`
}

// StorageConfig holds the usage statistics store location.
type StorageConfig struct {
	// Path is the root directory for persisted JSON records.
	Path string `koanf:"path"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Transport == "" {
		cfg.Server.Transport = TransportStdio
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.GitHub.Endpoint == "" {
		cfg.GitHub.Endpoint = DefaultEndpoint
	}
	if cfg.GitHub.Timeout == 0 {
		cfg.GitHub.Timeout = Duration(60 * time.Second)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Storage.Path == "" {
		cfg.Storage.Path = defaultStoragePath()
	}
}

// defaultStoragePath returns the per-user stats directory. Falls back to a
// relative path when the home directory cannot be resolved.
func defaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "database"
	}
	return filepath.Join(home, ".local", "share", "github-reader", "database")
}

// Validate checks configuration consistency. A missing token is not an
// error here: unauthenticated startup is allowed and enforced per-tool by
// the authorization gate.
func (c *Config) Validate() error {
	switch c.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("invalid server.transport %q (want %q or %q)",
			c.Server.Transport, TransportStdio, TransportHTTP)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}

	if c.GitHub.Endpoint == "" {
		return fmt.Errorf("github.endpoint cannot be empty")
	}
	if !strings.HasPrefix(c.GitHub.Endpoint, "http://") && !strings.HasPrefix(c.GitHub.Endpoint, "https://") {
		return fmt.Errorf("github.endpoint must be an http(s) URL")
	}
	if c.GitHub.Timeout.Duration() <= 0 {
		return fmt.Errorf("github.timeout must be positive")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging.format %q", c.Logging.Format)
	}

	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path cannot be empty")
	}

	return nil
}
