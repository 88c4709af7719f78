// Package config reads proxy settings from the environment and widget
// settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Proxy holds the chat proxy configuration.
type Proxy struct {
	APIKey      string
	APIKeyParam string

	BaseURL         string
	Model           string
	Temperature     float64
	UpstreamTimeout time.Duration

	RelayMode string

	RateLimit RateLimit

	AllowedOrigin string
	Port          string
	MaxBodyBytes  int

	LogLevel  string
	LogFormat string
}

// RateLimit configures the sliding-window limiter.
type RateLimit struct {
	Enabled bool
	Max     int
	Window  time.Duration
	Backend string
	Table   string
}

const (
	BackendMemory   = "memory"
	BackendDynamoDB = "dynamodb"
)

// LoadProxy reads configuration from environment variables. relayDefault is
// used when RELAY_MODE is unset. A missing credential is not an error here;
// it is reported per request.
func LoadProxy(relayDefault string) (*Proxy, error) {
	var errs []error
	cfg := &Proxy{
		APIKey:          strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		APIKeyParam:     strings.TrimSpace(os.Getenv("OPENAI_API_KEY_PARAM")),
		BaseURL:         getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		Model:           getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
		Temperature:     getEnvFloat("OPENAI_TEMPERATURE", 0.4, &errs),
		UpstreamTimeout: getEnvDuration("UPSTREAM_TIMEOUT", 25*time.Second, &errs),
		RelayMode:       strings.ToLower(getEnv("RELAY_MODE", relayDefault)),
		RateLimit: RateLimit{
			Enabled: getEnvBool("RATE_LIMIT_ENABLED", true, &errs),
			Max:     getEnvInt("RATE_LIMIT_MAX", 30, &errs),
			Window:  getEnvDuration("RATE_LIMIT_WINDOW", 60*time.Second, &errs),
			Backend: strings.ToLower(getEnv("RATE_LIMIT_BACKEND", BackendMemory)),
			Table:   getEnv("RATE_LIMIT_TABLE", ""),
		},
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "*"),
		Port:          getEnv("PORT", "8080"),
		MaxBodyBytes:  getEnvInt("MAX_BODY_BYTES", 1<<20, &errs),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges and cross-field requirements.
func (c *Proxy) Validate() error {
	if c.Model == "" {
		return errors.New("OPENAI_MODEL cannot be empty")
	}
	if c.Temperature <= 0 || c.Temperature > 2 {
		return fmt.Errorf("OPENAI_TEMPERATURE must be in (0, 2], got %v", c.Temperature)
	}
	if c.UpstreamTimeout <= 0 {
		return errors.New("UPSTREAM_TIMEOUT must be > 0")
	}
	switch c.RelayMode {
	case "buffered", "streamed":
	default:
		return fmt.Errorf("RELAY_MODE must be buffered or streamed, got %q", c.RelayMode)
	}
	if c.Port == "" {
		return errors.New("PORT cannot be empty")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("MAX_BODY_BYTES must be > 0")
	}
	if !c.RateLimit.Enabled {
		return nil
	}
	if c.RateLimit.Max <= 0 {
		return errors.New("RATE_LIMIT_MAX must be > 0")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("RATE_LIMIT_WINDOW must be > 0")
	}
	switch c.RateLimit.Backend {
	case BackendMemory:
	case BackendDynamoDB:
		if c.RateLimit.Table == "" {
			return errors.New("RATE_LIMIT_TABLE is required for the dynamodb backend")
		}
	default:
		return fmt.Errorf("RATE_LIMIT_BACKEND must be memory or dynamodb, got %q", c.RateLimit.Backend)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvBool(key string, fallback bool, errs *[]error) bool {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	*errs = append(*errs, fmt.Errorf("%s: invalid boolean %q", key, value))
	return fallback
}

func getEnvInt(key string, fallback int, errs *[]error) int {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid integer %q", key, value))
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64, errs *[]error) float64 {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid number %q", key, value))
		return fallback
	}
	return f
}

// getEnvDuration accepts Go durations ("45s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	value = strings.TrimSpace(value)
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid duration %q", key, value))
		return fallback
	}
	return d
}
