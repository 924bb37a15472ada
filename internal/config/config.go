// Package config handles the XDG configuration directory, config.toml and
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	// AppName is the application directory name.
	AppName = "quicktasks"

	// ConfigFile is the settings filename.
	ConfigFile = "config.toml"

	// OAuthClientFile is the Google OAuth client credentials filename.
	OAuthClientFile = "oauth_client.json"

	// GoogleTokenFile is the stored Google OAuth token filename.
	GoogleTokenFile = "google_token.json"

	// SessionFile is the stored session token filename.
	SessionFile = "session.json"

	// DefaultSessionTTL is how long a session token stays valid.
	DefaultSessionTTL = 30 * 24 * time.Hour

	// DefaultAddr is the listen address of the HTTP server.
	DefaultAddr = ":8080"
)

// Environment variables that override config.toml.
const (
	EnvDatabaseURL = "QUICKTASKS_DATABASE_URL"
	EnvAuthSecret  = "QUICKTASKS_AUTH_SECRET"
	EnvAddr        = "QUICKTASKS_ADDR"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string `toml:"-"`

	// Debug enables debug logging.
	Debug bool `toml:"-"`

	// Quiet suppresses informational output.
	Quiet bool `toml:"-"`

	Database Database `toml:"database"`
	Auth     Auth     `toml:"auth"`
	Server   Server   `toml:"server"`
}

// Database configures the task store.
type Database struct {
	URL string `toml:"url"`
}

// Auth configures the identity gateway.
type Auth struct {
	// Secret signs session tokens.
	Secret string `toml:"secret"`

	// SessionTTL is a Go duration string, e.g. "720h".
	SessionTTL string `toml:"session-ttl"`

	// AllowEmailSignup enables email/password registration.
	// Nil means enabled.
	AllowEmailSignup *bool `toml:"allow-email-signup"`
}

// Server configures the HTTP surface.
type Server struct {
	Addr           string   `toml:"addr"`
	AllowedOrigins []string `toml:"allowed-origins"`
}

// New creates a new Config with the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/quicktasks or $HOME/.config/quicktasks.
// Settings are read from config.toml when present and then overridden by
// the environment.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := &Config{Dir: dir}
	if err := cfg.load(); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

func (c *Config) load() error {
	data, err := os.ReadFile(c.FilePath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file %s: %w", c.FilePath(), err)
	}
	if _, err := toml.Decode(string(data), c); err != nil {
		return fmt.Errorf("parse config file %s: %w", c.FilePath(), err)
	}
	c.Database.URL = strings.TrimSpace(c.Database.URL)
	c.Server.Addr = strings.TrimSpace(c.Server.Addr)
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv(EnvAuthSecret); v != "" {
		c.Auth.Secret = v
	}
	if v := os.Getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
}

// FilePath returns the path to config.toml.
func (c *Config) FilePath() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// GoogleTokenPath returns the path to the stored Google OAuth token file.
func (c *Config) GoogleTokenPath() string {
	return filepath.Join(c.Dir, GoogleTokenFile)
}

// SessionPath returns the path to the stored session token file.
func (c *Config) SessionPath() string {
	return filepath.Join(c.Dir, SessionFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}

// HasGoogleToken checks if the Google token file exists.
func (c *Config) HasGoogleToken() bool {
	_, err := os.Stat(c.GoogleTokenPath())
	return err == nil
}

// SessionTTL returns the configured session lifetime.
func (c *Config) SessionTTL() (time.Duration, error) {
	if strings.TrimSpace(c.Auth.SessionTTL) == "" {
		return DefaultSessionTTL, nil
	}
	d, err := time.ParseDuration(c.Auth.SessionTTL)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid auth.session-ttl: %s", c.Auth.SessionTTL)
	}
	return d, nil
}

// EmailSignupAllowed reports whether email/password registration is enabled.
func (c *Config) EmailSignupAllowed() bool {
	return c.Auth.AllowEmailSignup == nil || *c.Auth.AllowEmailSignup
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	if c.Server.Addr == "" {
		return DefaultAddr
	}
	return c.Server.Addr
}
