// Package config provides configuration loading and management for the gallery server.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BuckysMyHero/openvsx/internal/registry"
	"github.com/BuckysMyHero/openvsx/internal/telemetry"
)

// Storage backend names accepted by the storage configuration.
const (
	StorageBackendDatabase = "database"
	StorageBackendLocal    = "local"
)

// EnvPrefix is the prefix for environment variables that configure the
// server process itself (for example OVSX_LOG_LEVEL).
const EnvPrefix = "OVSX"

// Environment variables consulted when the corresponding file-based setting
// is absent.
const (
	EnvDatabasePassword = "OVSX_DATABASE_PASSWORD"
	EnvPublishTokens    = "OVSX_PUBLISH_TOKENS"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		// Validate the path to prevent path traversal attacks
		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	Server    ServerConfig      `yaml:"server,omitempty"`
	Database  *DatabaseConfig   `yaml:"database,omitempty"`
	Gallery   GalleryConfig     `yaml:"gallery,omitempty"`
	Storage   StorageConfig     `yaml:"storage,omitempty"`
	Publish   PublishConfig     `yaml:"publish,omitempty"`
	Signing   SigningConfig     `yaml:"signing,omitempty"`
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
}

// ServerConfig defines the HTTP listener and external URL settings
type ServerConfig struct {
	// Host is the listen address, empty means all interfaces
	Host string `yaml:"host,omitempty"`

	// Port is the listen port
	Port int `yaml:"port,omitempty"`

	// BaseURL is the externally visible base URL of this server
	// (scheme://host[:port]). When empty, URLs are derived from the
	// incoming request.
	BaseURL string `yaml:"baseUrl,omitempty"`

	// WebUIURL is the base URL of the web frontend used for item
	// redirects. When empty, redirects are service-relative.
	WebUIURL string `yaml:"webuiUrl,omitempty"`
}

// GalleryConfig tunes the VS Code gallery adapter
type GalleryConfig struct {
	// BuiltinNamespaces are namespaces reserved for editor built-ins.
	// Requests naming them are rejected and search never returns them.
	// Defaults to ["vscode"].
	BuiltinNamespaces []string `yaml:"builtinNamespaces,omitempty"`

	// UpstreamURL is an optional upstream gallery consulted when a local
	// lookup finds nothing (e.g. https://open-vsx.org)
	UpstreamURL string `yaml:"upstreamUrl,omitempty"`
}

// StorageConfig selects where published file content lives
type StorageConfig struct {
	// Backend is "database" (content in the file_resource table) or
	// "local" (content under LocalDir). Defaults to "database".
	Backend string `yaml:"backend,omitempty"`

	// LocalDir is the data directory for the local backend
	LocalDir string `yaml:"localDir,omitempty"`
}

// PublishConfig controls the publish endpoint
type PublishConfig struct {
	// Tokens lists accepted personal access tokens
	Tokens []string `yaml:"tokens,omitempty"`

	// TokenFile is the path to a file with one token per line.
	// This is the recommended approach for production deployments.
	TokenFile string `yaml:"tokenFile,omitempty"`

	// RequireLicense rejects packages without a license when true
	RequireLicense bool `yaml:"requireLicense,omitempty"`
}

// SigningConfig controls package signing
type SigningConfig struct {
	// Enabled turns on sigzip creation at publish time
	Enabled bool `yaml:"enabled,omitempty"`
}

// DatabaseConfig defines database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname or IP address
	Host string `yaml:"host"`

	// Port is the database server port
	Port int `yaml:"port"`

	// User is the database username
	User string `yaml:"user"`

	// PasswordFile is the path to a file containing the database password.
	// This is the recommended approach for production deployments.
	// The file should contain only the password with optional trailing whitespace.
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Database is the database name
	Database string `yaml:"database"`

	// MigrationUser is an optional separate role with DDL privileges used
	// by the migrate commands. Defaults to User.
	MigrationUser string `yaml:"migrationUser,omitempty"`

	// MigrationPasswordFile is the password file for MigrationUser.
	// Defaults to PasswordFile.
	MigrationPasswordFile string `yaml:"migrationPasswordFile,omitempty"`

	// SSLMode is the SSL mode for the connection (disable, require, verify-ca, verify-full)
	SSLMode string `yaml:"sslMode,omitempty"`

	// MaxOpenConns is the maximum number of open connections to the database
	MaxOpenConns int32 `yaml:"maxOpenConns,omitempty"`

	// MaxIdleConns is the maximum number of idle connections in the pool
	MaxIdleConns int32 `yaml:"maxIdleConns,omitempty"`

	// ConnMaxLifetime is the maximum lifetime of a connection (e.g., "1h", "30m")
	ConnMaxLifetime string `yaml:"connMaxLifetime,omitempty"`

	// DynamicAuth configures short-lived credentials resolved at connect
	// time instead of a static password
	DynamicAuth *DynamicAuthConfig `yaml:"dynamicAuth,omitempty"`
}

// DynamicAuthConfig selects a dynamic database authentication method.
// Exactly one method should be set.
type DynamicAuthConfig struct {
	// AWSRDSIAM authenticates with AWS RDS IAM tokens
	AWSRDSIAM *AWSRDSIAMConfig `yaml:"awsRdsIam,omitempty"`
}

// AWSRDSIAMConfig configures AWS RDS IAM authentication
type AWSRDSIAMConfig struct {
	// Region is the AWS region of the RDS instance, or "detect" to
	// resolve it from the instance metadata service
	Region string `yaml:"region"`
}

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from OVSX_DATABASE_PASSWORD environment variable
//
// The password from file will have leading/trailing whitespace trimmed.
func (d *DatabaseConfig) GetPassword() (string, error) {
	// Priority 1: Read from file if specified
	if d.PasswordFile != "" {
		// Use filepath.Clean to prevent path traversal attacks
		cleanPath := filepath.Clean(d.PasswordFile)

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", d.PasswordFile, err)
		}

		password := strings.TrimSpace(string(data))
		return password, nil
	}

	// Priority 2: Check environment variable
	if envPassword := os.Getenv(EnvDatabasePassword); envPassword != "" {
		return envPassword, nil
	}

	return "", fmt.Errorf(
		"no database password configured: set passwordFile or %s environment variable",
		EnvDatabasePassword,
	)
}

// GetConnectionString builds a PostgreSQL connection string with proper password handling.
// The password is URL-escaped to handle special characters safely.
//
// With dynamic auth configured the string carries no password; credentials
// are resolved per connection via a pgx BeforeConnect hook.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	if d.DynamicAuth != nil {
		return d.BuildConnectionStringWithAuth(d.User, ""), nil
	}

	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	return d.BuildConnectionStringWithAuth(d.User, password), nil
}

// BuildConnectionStringWithAuth builds a PostgreSQL connection string for the
// given user and password. An empty password yields a passwordless string,
// leaving authentication to a BeforeConnect hook or pgpass.
func (d *DatabaseConfig) BuildConnectionStringWithAuth(user, password string) string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	userInfo := url.User(user)
	if password != "" {
		userInfo = url.UserPassword(user, password)
	}

	return fmt.Sprintf(
		"postgres://%s@%s:%d/%s?sslmode=%s",
		userInfo.String(),
		d.Host,
		d.Port,
		d.Database,
		sslMode,
	)
}

// GetMigrationUser returns the role the migrate commands connect as.
func (d *DatabaseConfig) GetMigrationUser() string {
	if d.MigrationUser == "" {
		return d.User
	}
	return d.MigrationUser
}

// GetMigrationConnectionString builds the connection string for the
// migration user. Without a dedicated migration user it falls back to the
// regular connection string.
func (d *DatabaseConfig) GetMigrationConnectionString() (string, error) {
	if d.MigrationUser == "" {
		return d.GetConnectionString()
	}

	migration := *d
	migration.User = d.MigrationUser
	if d.MigrationPasswordFile != "" {
		migration.PasswordFile = d.MigrationPasswordFile
	}
	return migration.GetConnectionString()
}

// GetConnMaxLifetime parses the configured connection lifetime, defaulting
// to one hour.
func (d *DatabaseConfig) GetConnMaxLifetime() (time.Duration, error) {
	if d.ConnMaxLifetime == "" {
		return time.Hour, nil
	}
	lifetime, err := time.ParseDuration(d.ConnMaxLifetime)
	if err != nil {
		return 0, fmt.Errorf("invalid connMaxLifetime %q: %w", d.ConnMaxLifetime, err)
	}
	return lifetime, nil
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	// As of now, this is required because there's no other options to load
	// configuration. Once we add more options, we can remove this check.
	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// GetPort returns the listen port, using 8080 if not specified
func (s *ServerConfig) GetPort() int {
	if s.Port == 0 {
		return 8080
	}
	return s.Port
}

// GetBuiltinNamespaces returns the reserved namespaces, using ["vscode"]
// if not specified
func (g *GalleryConfig) GetBuiltinNamespaces() []string {
	if len(g.BuiltinNamespaces) == 0 {
		return []string{"vscode"}
	}
	return g.BuiltinNamespaces
}

// GetBackend returns the storage backend, using the database backend if
// not specified
func (s *StorageConfig) GetBackend() string {
	if s.Backend == "" {
		return StorageBackendDatabase
	}
	return s.Backend
}

// GetTokens returns the accepted publish tokens using the following priority:
// 1. Read from TokenFile if specified (one token per line)
// 2. Read from OVSX_PUBLISH_TOKENS environment variable (comma-separated)
// 3. The inline token list
func (p *PublishConfig) GetTokens() ([]string, error) {
	if p.TokenFile != "" {
		cleanPath := filepath.Clean(p.TokenFile)

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read tokens from file %s: %w", p.TokenFile, err)
		}

		var tokens []string
		for _, line := range strings.Split(string(data), "\n") {
			if token := strings.TrimSpace(line); token != "" {
				tokens = append(tokens, token)
			}
		}
		return tokens, nil
	}

	if envTokens := os.Getenv(EnvPublishTokens); envTokens != "" {
		var tokens []string
		for _, token := range strings.Split(envTokens, ",") {
			if token = strings.TrimSpace(token); token != "" {
				tokens = append(tokens, token)
			}
		}
		return tokens, nil
	}

	return p.Tokens, nil
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got %d", c.Server.Port)
	}
	if err := validateOptionalURL(c.Server.BaseURL, "server.baseUrl"); err != nil {
		return err
	}
	if err := validateOptionalURL(c.Server.WebUIURL, "server.webuiUrl"); err != nil {
		return err
	}
	if err := validateOptionalURL(c.Gallery.UpstreamURL, "gallery.upstreamUrl"); err != nil {
		return err
	}

	switch c.Storage.GetBackend() {
	case StorageBackendDatabase:
	case StorageBackendLocal:
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.localDir is required for the local backend")
		}
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q",
			StorageBackendDatabase, StorageBackendLocal, c.Storage.Backend)
	}

	if c.Database != nil {
		if err := c.validateDatabase(); err != nil {
			return err
		}
	}

	if c.Telemetry != nil {
		if err := c.Telemetry.Validate(); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
	}

	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("database.port must be between 1 and 65535, got %d", c.Database.Port)
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database.database is required")
	}
	if _, err := c.Database.GetConnMaxLifetime(); err != nil {
		return err
	}
	return nil
}

func validateOptionalURL(value, field string) error {
	if value == "" {
		return nil
	}
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", field, value)
	}
	return nil
}

// IsBuiltinNamespace reports whether name is reserved for editor built-ins.
// Comparison is case-insensitive, matching namespace lookup semantics.
func (c *Config) IsBuiltinNamespace(name string) bool {
	for _, ns := range c.Gallery.GetBuiltinNamespaces() {
		if strings.EqualFold(ns, name) {
			return true
		}
	}
	return false
}

// StorageType maps the configured backend to the file resource storage type
// recorded for newly published content.
func (c *Config) StorageType() string {
	if c.Storage.GetBackend() == StorageBackendLocal {
		return registry.StorageLocal
	}
	return registry.StorageDatabase
}
