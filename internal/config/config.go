package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Config holds process configuration for the auth service.
//
// Environment variables:
//   - PORT: listen port (default: 5050)
//   - DATABASE_URL: Postgres DSN (required)
//   - APP_ENV: "production" enables Secure cookies
//   - ACCESS_TOKEN_SECRET / REFRESH_TOKEN_SECRET: distinct signing secrets (required)
//   - ACCESS_TOKEN_TTL / REFRESH_TOKEN_TTL: Go durations (default: 15m / 168h)
//   - CLOUDINARY_URL: avatar host; avatars are disabled when empty
//   - TRUSTED_PROXIES: comma-separated CIDRs whose X-Forwarded-For is believed
//   - CONFIG_FILE: optional YAML file with allowed_origins, rate_limit and trusted_proxies
type Config struct {
	Port          string
	DatabaseURL   string
	Env           string
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	CloudinaryURL string

	AllowedOrigins []string
	RateLimit      RateLimit
	TrustedProxies []string
}

// RateLimit bounds credential entry points per client IP.
type RateLimit struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

type fileConfig struct {
	AllowedOrigins []string   `yaml:"allowed_origins"`
	RateLimit      *RateLimit `yaml:"rate_limit"`
	TrustedProxies []string   `yaml:"trusted_proxies"`
}

var defaultOrigins = []string{
	"http://localhost:5173",
	"http://localhost:5174",
}

func Load() (Config, error) {
	cfg := Config{
		Port:           getenv("PORT", "5050"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		Env:            strings.ToLower(getenv("APP_ENV", "development")),
		AccessSecret:   os.Getenv("ACCESS_TOKEN_SECRET"),
		RefreshSecret:  os.Getenv("REFRESH_TOKEN_SECRET"),
		AccessTTL:      getenvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTTL:     getenvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		CloudinaryURL:  os.Getenv("CLOUDINARY_URL"),
		AllowedOrigins: append([]string(nil), defaultOrigins...),
		RateLimit:      RateLimit{PerSecond: 1, Burst: 10},
		TrustedProxies: splitList(os.Getenv("TRUSTED_PROXIES")),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(fc.AllowedOrigins) > 0 {
		c.AllowedOrigins = fc.AllowedOrigins
	}
	if fc.RateLimit != nil {
		c.RateLimit = *fc.RateLimit
	}
	if len(fc.TrustedProxies) > 0 {
		c.TrustedProxies = fc.TrustedProxies
	}
	return nil
}

func (c Config) Production() bool { return c.Env == "production" }

func (c Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is empty"))
	}
	if c.AccessSecret == "" || c.RefreshSecret == "" {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET are required"))
	} else if c.AccessSecret == c.RefreshSecret {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ"))
	}
	if c.RateLimit.PerSecond <= 0 || c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("rate_limit per_second and burst must be positive"))
	}
	return errors.Join(errs...)
}

func splitList(val string) []string {
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
