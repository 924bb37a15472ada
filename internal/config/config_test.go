package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNew_NoConfigFile(t *testing.T) {
	t.Setenv(EnvDatabaseURL, "")
	t.Setenv(EnvAuthSecret, "")
	t.Setenv(EnvAddr, "")

	cfg, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.URL != "" {
		t.Errorf("expected empty database url, got %q", cfg.Database.URL)
	}
	if cfg.Addr() != DefaultAddr {
		t.Errorf("expected default addr, got %q", cfg.Addr())
	}
	ttl, err := cfg.SessionTTL()
	if err != nil || ttl != DefaultSessionTTL {
		t.Errorf("expected default ttl, got %v (%v)", ttl, err)
	}
	if !cfg.EmailSignupAllowed() {
		t.Error("expected email signup to default to allowed")
	}
}

func TestNew_ReadsTOML(t *testing.T) {
	t.Setenv(EnvDatabaseURL, "")
	t.Setenv(EnvAuthSecret, "")
	t.Setenv(EnvAddr, "")

	dir := t.TempDir()
	content := `
[database]
url = " postgres://localhost/quicktasks "

[auth]
secret = "s3cret"
session-ttl = "2h"
allow-email-signup = false

[server]
addr = ":9090"
allowed-origins = ["http://localhost:3000"]
`
	if err := os.WriteFile(filepath.Join(dir, ConfigFile), []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := New(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.URL != "postgres://localhost/quicktasks" {
		t.Errorf("unexpected database url %q", cfg.Database.URL)
	}
	if cfg.Auth.Secret != "s3cret" {
		t.Errorf("unexpected secret %q", cfg.Auth.Secret)
	}
	ttl, err := cfg.SessionTTL()
	if err != nil || ttl != 2*time.Hour {
		t.Errorf("expected 2h ttl, got %v (%v)", ttl, err)
	}
	if cfg.EmailSignupAllowed() {
		t.Error("expected email signup disabled")
	}
	if cfg.Addr() != ":9090" {
		t.Errorf("unexpected addr %q", cfg.Addr())
	}
	if len(cfg.Server.AllowedOrigins) != 1 {
		t.Errorf("unexpected origins %v", cfg.Server.AllowedOrigins)
	}
}

func TestNew_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ConfigFile), []byte("[database]\nurl = \"from-file\"\n"), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv(EnvDatabaseURL, "from-env")
	t.Setenv(EnvAuthSecret, "env-secret")
	t.Setenv(EnvAddr, ":7000")

	cfg, err := New(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.URL != "from-env" {
		t.Errorf("expected env database url, got %q", cfg.Database.URL)
	}
	if cfg.Auth.Secret != "env-secret" {
		t.Errorf("expected env secret, got %q", cfg.Auth.Secret)
	}
	if cfg.Addr() != ":7000" {
		t.Errorf("expected env addr, got %q", cfg.Addr())
	}
}

func TestNew_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ConfigFile), []byte("[database\n"), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := New(dir); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSessionTTL_Invalid(t *testing.T) {
	cfg := &Config{Auth: Auth{SessionTTL: "soon"}}
	if _, err := cfg.SessionTTL(); err == nil {
		t.Error("expected error for invalid ttl")
	}
}

func TestDefaultConfigDir_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := DefaultConfigDir(); got != filepath.Join("/tmp/xdg", AppName) {
		t.Errorf("unexpected dir %q", got)
	}
}
