// Package config loads process configuration. Payment and email provider
// settings live in the database settings table and are not read here.
// Environment variables take precedence over values from the optional YAML file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	DefaultPort                = 8080
	DefaultEnv                 = "development"
	DefaultCurrency            = "EUR"
	DefaultReconcileInterval   = time.Minute
	DefaultReconcileStaleAfter = 15 * time.Minute
	DefaultReconcileBatchSize  = 50
)

var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL or BLUEPRINT_DB_* is required")
	ErrMissingJWTSecret   = errors.New("JWT_SECRET is required")
	ErrInvalidPort        = errors.New("port must be between 1 and 65535")
	ErrInvalidCurrency    = errors.New("DEFAULT_CURRENCY must be a 3-letter ISO code")
	ErrInvalidInterval    = errors.New("reconciliation durations must be positive")
	ErrInvalidBatchSize   = errors.New("RECONCILE_BATCH_SIZE must be positive")
)

type Config struct {
	Env         string
	Port        int
	DatabaseURL string
	JWTSecret   string

	DefaultCurrency string
	RunMigrations   bool

	ReconcileInterval   time.Duration
	ReconcileStaleAfter time.Duration
	ReconcileBatchSize  int

	CORSAllowedOrigins []string

	// PayPalBaseURLOverride replaces the mode-derived PayPal host. Sandboxes only.
	PayPalBaseURLOverride string
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load returns the config and every problem found, so operators can fix them
// in one go. A file that cannot be read is reported on its own.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	var errs []error
	port, err := intSetting("PORT", k, "port", DefaultPort)
	if err != nil {
		errs = append(errs, err)
	}
	batch, err := intSetting("RECONCILE_BATCH_SIZE", k, "reconcile_batch_size", DefaultReconcileBatchSize)
	if err != nil {
		errs = append(errs, err)
	}
	interval, err := durationSetting("RECONCILE_INTERVAL", k, "reconcile_interval", DefaultReconcileInterval)
	if err != nil {
		errs = append(errs, err)
	}
	staleAfter, err := durationSetting("RECONCILE_STALE_AFTER", k, "reconcile_stale_after", DefaultReconcileStaleAfter)
	if err != nil {
		errs = append(errs, err)
	}

	cfg := &Config{
		Env:                   strings.ToLower(stringSetting("APP_ENV", k, "env", DefaultEnv)),
		Port:                  port,
		DatabaseURL:           stringSetting("DATABASE_URL", k, "database_url", ""),
		JWTSecret:             stringSetting("JWT_SECRET", k, "jwt_secret", ""),
		DefaultCurrency:       strings.ToUpper(stringSetting("DEFAULT_CURRENCY", k, "default_currency", DefaultCurrency)),
		RunMigrations:         boolSetting("RUN_MIGRATIONS", k, "run_migrations", true),
		ReconcileInterval:     interval,
		ReconcileStaleAfter:   staleAfter,
		ReconcileBatchSize:    batch,
		CORSAllowedOrigins:    splitList(stringSetting("CORS_ALLOWED_ORIGINS", k, "cors_allowed_origins", "*")),
		PayPalBaseURLOverride: stringSetting("PAYPAL_BASE_URL_OVERRIDE", k, "paypal_base_url_override", ""),
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = blueprintDSN()
	}

	return cfg, append(errs, cfg.Validate()...)
}

func (c *Config) Validate() []error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, ErrInvalidPort)
	}
	if len(c.DefaultCurrency) != 3 {
		errs = append(errs, ErrInvalidCurrency)
	}
	if c.ReconcileInterval <= 0 || c.ReconcileStaleAfter <= 0 {
		errs = append(errs, ErrInvalidInterval)
	}
	if c.ReconcileBatchSize <= 0 {
		errs = append(errs, ErrInvalidBatchSize)
	}
	return errs
}

// LogSummary returns the config with secrets masked.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"env":                   c.Env,
		"port":                  strconv.Itoa(c.Port),
		"database_url":          maskDatabaseURL(c.DatabaseURL),
		"jwt_secret":            maskSecret(c.JWTSecret),
		"default_currency":      c.DefaultCurrency,
		"run_migrations":        strconv.FormatBool(c.RunMigrations),
		"reconcile_interval":    c.ReconcileInterval.String(),
		"reconcile_stale_after": c.ReconcileStaleAfter.String(),
		"reconcile_batch_size":  strconv.Itoa(c.ReconcileBatchSize),
		"cors_allowed_origins":  strings.Join(c.CORSAllowedOrigins, ","),
	}
}

// blueprintDSN assembles a DSN from the BLUEPRINT_DB_* variables used by
// local docker-compose setups.
func blueprintDSN() string {
	host := os.Getenv("BLUEPRINT_DB_HOST")
	if host == "" {
		return ""
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(os.Getenv("BLUEPRINT_DB_USERNAME"), os.Getenv("BLUEPRINT_DB_PASSWORD")),
		Host:   host + ":" + os.Getenv("BLUEPRINT_DB_PORT"),
		Path:   "/" + os.Getenv("BLUEPRINT_DB_DATABASE"),
	}
	q := url.Values{"sslmode": {"disable"}}
	if schema := os.Getenv("BLUEPRINT_DB_SCHEMA"); schema != "" {
		q.Set("search_path", schema)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func stringSetting(envKey string, k *koanf.Koanf, koanfKey, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if val := k.String(koanfKey); val != "" {
		return val
	}
	return defaultVal
}

func intSetting(envKey string, k *koanf.Koanf, koanfKey string, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, err)
		}
		return i, nil
	}
	if k.Exists(koanfKey) {
		return k.Int(koanfKey), nil
	}
	return defaultVal, nil
}

func durationSetting(envKey string, k *koanf.Koanf, koanfKey string, defaultVal time.Duration) (time.Duration, error) {
	raw := os.Getenv(envKey)
	if raw == "" {
		raw = k.String(koanfKey)
	}
	if raw == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration such as 1m: %w", envKey, err)
	}
	return d, nil
}

func boolSetting(envKey string, k *koanf.Koanf, koanfKey string, defaultVal bool) bool {
	if val := os.Getenv(envKey); val != "" {
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	if k.Exists(koanfKey) {
		return k.Bool(koanfKey)
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}
	u, err := url.Parse(s)
	if err != nil || u.User == nil {
		return maskSecret(s)
	}
	return u.Redacted()
}
