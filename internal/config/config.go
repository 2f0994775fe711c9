package config

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/snapetech/funimationlater/internal/safeurl"
)

const DefaultBaseURL = "https://api-funimation.dadcdigital.com/xml"

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("config: invalid")

// Config holds API, session and CLI settings.
// Defaults, then an optional YAML file, then FUNIMATION_* env vars.
type Config struct {
	// API
	BaseURL   string `yaml:"base_url"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Territory string `yaml:"territory"` // e.g. US
	Platform  string `yaml:"platform"`  // picks platform alternates: ios, android, ...

	// Session
	UserAgent    string        `yaml:"user_agent"`
	Timeout      time.Duration `yaml:"timeout"`
	RateLimit    float64       `yaml:"rate_limit"` // requests/second; 0 = unpaced
	RateBurst    int           `yaml:"rate_burst"`
	Retry        bool          `yaml:"retry"`      // retry 429/5xx once
	MaxPerHost   int           `yaml:"max_per_host"`
	PageLimit    int           `yaml:"page_limit"`
	MetricsAddr  string        `yaml:"metrics_addr"` // e.g. :9090; "" = off
	DBPath       string        `yaml:"db_path"`      // sqlite snapshot written by sync
	LogLevel     string        `yaml:"log_level"`    // debug|info|warn|error
	LogFormat    string        `yaml:"log_format"`   // text|json
	CredsFile    string        `yaml:"credentials_file"`
	ConfigSource string        `yaml:"-"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		BaseURL:    DefaultBaseURL,
		Territory:  "US",
		Platform:   "ios",
		Timeout:    30 * time.Second,
		RateLimit:  0,
		RateBurst:  1,
		Retry:      true,
		MaxPerHost: 4,
		PageLimit:  20,
		DBPath:     "./funimation.db",
		LogLevel:   "info",
		LogFormat:  "text",
	}
}

// Load reads config from environment. Call LoadEnvFile(".env") before Load() to use a .env file.
// If Username or Password are empty, Load tries FUNIMATION_CREDENTIALS_FILE with "Username:" / "Password:" lines.
func Load() *Config {
	c := Default()
	c.applyEnv()
	c.fillCredentials()
	return c
}

// LoadFile reads a YAML config file, then applies env overrides.
func LoadFile(path string) (*Config, error) {
	c := Default()
	path = filepath.Clean(path)
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	c.ConfigSource = path
	c.applyEnv()
	c.fillCredentials()
	return c, nil
}

func (c *Config) applyEnv() {
	c.BaseURL = getEnv("FUNIMATION_BASE_URL", c.BaseURL)
	c.Username = getEnv("FUNIMATION_USERNAME", c.Username)
	c.Password = getEnv("FUNIMATION_PASSWORD", c.Password)
	c.Territory = getEnv("FUNIMATION_TERRITORY", c.Territory)
	c.Platform = getEnv("FUNIMATION_PLATFORM", c.Platform)
	c.UserAgent = getEnv("FUNIMATION_USER_AGENT", c.UserAgent)
	c.Timeout = getEnvDuration("FUNIMATION_TIMEOUT", c.Timeout)
	c.RateLimit = getEnvFloat("FUNIMATION_RATE_LIMIT", c.RateLimit)
	c.RateBurst = getEnvInt("FUNIMATION_RATE_BURST", c.RateBurst)
	c.Retry = getEnvBool("FUNIMATION_RETRY", c.Retry)
	c.MaxPerHost = getEnvInt("FUNIMATION_MAX_PER_HOST", c.MaxPerHost)
	c.PageLimit = getEnvInt("FUNIMATION_PAGE_LIMIT", c.PageLimit)
	c.MetricsAddr = getEnv("FUNIMATION_METRICS_ADDR", c.MetricsAddr)
	c.DBPath = getEnv("FUNIMATION_DB", c.DBPath)
	c.LogLevel = getEnv("FUNIMATION_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("FUNIMATION_LOG_FORMAT", c.LogFormat)
	c.CredsFile = getEnv("FUNIMATION_CREDENTIALS_FILE", c.CredsFile)
}

func (c *Config) fillCredentials() {
	if c.CredsFile == "" || (c.Username != "" && c.Password != "") {
		return
	}
	user, pass, err := readCredentialsFile(c.CredsFile)
	if err != nil {
		return
	}
	if c.Username == "" {
		c.Username = user
	}
	if c.Password == "" {
		c.Password = pass
	}
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch {
	case !safeurl.IsHTTPOrHTTPS(c.BaseURL):
		return fmt.Errorf("%w: base_url %q must be http(s)", ErrInvalid, c.BaseURL)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive", ErrInvalid)
	case c.RateLimit < 0:
		return fmt.Errorf("%w: rate_limit must not be negative", ErrInvalid)
	case c.PageLimit <= 0:
		return fmt.Errorf("%w: page_limit must be positive", ErrInvalid)
	case c.MaxPerHost <= 0:
		return fmt.Errorf("%w: max_per_host must be positive", ErrInvalid)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format %q (want text or json)", ErrInvalid, c.LogFormat)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}
	return l, nil
}

// HasCredentials reports whether both username and password are set.
func (c *Config) HasCredentials() bool { return c.Username != "" && c.Password != "" }

// readCredentialsFile reads "Username: x" and "Password: x" from path.
func readCredentialsFile(path string) (user, pass string, err error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", "", err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "Username:") {
			user = strings.TrimSpace(strings.TrimPrefix(line, "Username:"))
		} else if strings.HasPrefix(line, "Password:") {
			pass = strings.TrimSpace(strings.TrimPrefix(line, "Password:"))
		}
	}
	if err := sc.Err(); err != nil {
		return "", "", err
	}
	if user == "" || pass == "" {
		return "", "", fmt.Errorf("credentials file: missing Username or Password")
	}
	return user, pass, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
