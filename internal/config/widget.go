package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Widget configures the terminal chat widget.
type Widget struct {
	Endpoint       string   `toml:"endpoint"`
	StorePath      string   `toml:"store_path"`
	PersonaPrompt  string   `toml:"persona_prompt"`
	RequestTimeout Duration `toml:"request_timeout"`
	NoticeDelay    Duration `toml:"notice_delay"`
	LogLevel       string   `toml:"log_level"`
}

// Duration decodes TOML strings such as "90s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func DefaultWidget() Widget {
	store := "widget.db"
	if dir, err := os.UserConfigDir(); err == nil {
		store = filepath.Join(dir, "portfolio-chat", "widget.db")
	}
	return Widget{
		Endpoint:       "http://localhost:8080/api/chat",
		StorePath:      store,
		RequestTimeout: Duration{60 * time.Second},
		NoticeDelay:    Duration{2 * time.Second},
		LogLevel:       "warn",
	}
}

// LoadWidget reads path over the defaults. A missing file yields the
// defaults. CHAT_ENDPOINT overrides the endpoint.
func LoadWidget(path string) (Widget, error) {
	cfg := DefaultWidget()
	if path != "" {
		_, err := toml.DecodeFile(path, &cfg)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Widget{}, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}
	cfg.Endpoint = getEnv("CHAT_ENDPOINT", cfg.Endpoint)
	if err := cfg.Validate(); err != nil {
		return Widget{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c Widget) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint cannot be empty")
	}
	if strings.TrimSpace(c.StorePath) == "" {
		return errors.New("store_path cannot be empty")
	}
	if c.RequestTimeout.Duration <= 0 {
		return errors.New("request_timeout must be > 0")
	}
	if c.NoticeDelay.Duration <= 0 {
		return errors.New("notice_delay must be > 0")
	}
	return nil
}
