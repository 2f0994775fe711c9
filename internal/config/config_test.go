package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var envKeys = []string{
	"FUNIMATION_BASE_URL", "FUNIMATION_USERNAME", "FUNIMATION_PASSWORD",
	"FUNIMATION_TERRITORY", "FUNIMATION_PLATFORM", "FUNIMATION_USER_AGENT",
	"FUNIMATION_TIMEOUT", "FUNIMATION_RATE_LIMIT", "FUNIMATION_RATE_BURST",
	"FUNIMATION_RETRY", "FUNIMATION_MAX_PER_HOST", "FUNIMATION_PAGE_LIMIT",
	"FUNIMATION_METRICS_ADDR", "FUNIMATION_DB", "FUNIMATION_LOG_LEVEL",
	"FUNIMATION_LOG_FORMAT", "FUNIMATION_CREDENTIALS_FILE",
}

// clearEnv blanks every FUNIMATION_* variable for the test; getEnv treats
// empty as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_defaults(t *testing.T) {
	clearEnv(t)
	c := Load()
	if c.BaseURL != DefaultBaseURL || c.Territory != "US" || c.Platform != "ios" || c.PageLimit != 20 {
		t.Errorf("defaults = %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
	if c.HasCredentials() {
		t.Error("defaults carry credentials")
	}
}

func TestLoad_env(t *testing.T) {
	clearEnv(t)
	t.Setenv("FUNIMATION_BASE_URL", "http://localhost:8080/xml")
	t.Setenv("FUNIMATION_USERNAME", "u")
	t.Setenv("FUNIMATION_PASSWORD", "p")
	t.Setenv("FUNIMATION_TIMEOUT", "5s")
	t.Setenv("FUNIMATION_RATE_LIMIT", "2.5")
	t.Setenv("FUNIMATION_RETRY", "false")
	t.Setenv("FUNIMATION_PAGE_LIMIT", "not-a-number")
	c := Load()
	if c.BaseURL != "http://localhost:8080/xml" || !c.HasCredentials() {
		t.Errorf("config = %+v", c)
	}
	if c.Timeout != 5*time.Second || c.RateLimit != 2.5 || c.Retry {
		t.Errorf("timeout=%v rate=%v retry=%v", c.Timeout, c.RateLimit, c.Retry)
	}
	if c.PageLimit != 20 {
		t.Errorf("bad int should keep default; got %d", c.PageLimit)
	}
}

func TestLoadFile_yamlThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "funimation.yaml")
	yml := "base_url: https://staging.example.com/xml\nplatform: android\ntimeout: 10s\npage_limit: 50\nlog_format: json\n"
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FUNIMATION_PLATFORM", "tvos")
	c, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.BaseURL != "https://staging.example.com/xml" || c.Timeout != 10*time.Second || c.PageLimit != 50 || c.LogFormat != "json" {
		t.Errorf("config = %+v", c)
	}
	if c.Platform != "tvos" {
		t.Errorf("env should override file; platform = %q", c.Platform)
	}
	if c.Territory != "US" {
		t.Errorf("unset keys keep defaults; territory = %q", c.Territory)
	}
	if c.ConfigSource != path {
		t.Errorf("ConfigSource = %q", c.ConfigSource)
	}
}

func TestLoadFile_errors(t *testing.T) {
	clearEnv(t)
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file err = %v", err)
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("page_limit: [1, 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("malformed yaml accepted")
	}
}

func TestLoad_credentialsFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "creds.txt")
	if err := os.WriteFile(path, []byte("Username: spike@example.com\nPassword: swordfish\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FUNIMATION_CREDENTIALS_FILE", path)
	t.Setenv("FUNIMATION_USERNAME", "jet@example.com")
	c := Load()
	if c.Username != "jet@example.com" || c.Password != "swordfish" {
		t.Errorf("user=%q pass=%q", c.Username, c.Password)
	}
}

func TestReadCredentialsFile_incomplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.txt")
	if err := os.WriteFile(path, []byte("Username: only\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := readCredentialsFile(path); err == nil {
		t.Error("expected error for missing password")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Config)
	}{
		{"scheme", func(c *Config) { c.BaseURL = "ftp://example.com/xml" }},
		{"no host", func(c *Config) { c.BaseURL = "https://" }},
		{"timeout", func(c *Config) { c.Timeout = 0 }},
		{"rate", func(c *Config) { c.RateLimit = -1 }},
		{"page", func(c *Config) { c.PageLimit = 0 }},
		{"per host", func(c *Config) { c.MaxPerHost = 0 }},
		{"format", func(c *Config) { c.LogFormat = "xml" }},
		{"level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		c := Default()
		tt.mod(c)
		if err := c.Validate(); !errors.Is(err, ErrInvalid) {
			t.Errorf("%s: err = %v, want ErrInvalid", tt.name, err)
		}
	}
}

func TestSlogLevel(t *testing.T) {
	c := Default()
	c.LogLevel = "DEBUG"
	l, err := c.SlogLevel()
	if err != nil || l != slog.LevelDebug {
		t.Errorf("SlogLevel = %v, %v", l, err)
	}
}
