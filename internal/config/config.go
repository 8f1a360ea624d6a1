package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config drives the tracker client. One parameterized configuration
// replaces the parallel requireAuth / chat-only / announcement-only
// builds of the original frontend.
type Config struct {
	BackendURL          string
	WSURL               string
	TokenPath           string
	PollInterval        time.Duration
	RequestTimeout      time.Duration
	HighlightFor        time.Duration
	RequireAuth         bool
	EnableChat          bool
	EnableAnnouncements bool
}

// fileConfig is the YAML shape; durations are strings like "1s".
type fileConfig struct {
	BackendURL          string `yaml:"backend_url"`
	WSURL               string `yaml:"ws_url"`
	TokenPath           string `yaml:"token_path"`
	PollInterval        string `yaml:"poll_interval"`
	RequestTimeout      string `yaml:"request_timeout"`
	Highlight           string `yaml:"highlight"`
	RequireAuth         *bool  `yaml:"require_auth"`
	EnableChat          *bool  `yaml:"enable_chat"`
	EnableAnnouncements *bool  `yaml:"enable_announcements"`
}

func Default() Config {
	return Config{
		BackendURL:          "http://localhost:8080",
		WSURL:               "ws://localhost:8080/ws",
		PollInterval:        time.Second,
		RequestTimeout:      10 * time.Second,
		HighlightFor:        5 * time.Second,
		RequireAuth:         true,
		EnableChat:          true,
		EnableAnnouncements: true,
	}
}

// Load reads a YAML config file over the defaults. A missing file is not
// an error; a present-but-broken one is.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if fc.BackendURL != "" {
		cfg.BackendURL = fc.BackendURL
	}
	if fc.WSURL != "" {
		cfg.WSURL = fc.WSURL
	}
	if fc.TokenPath != "" {
		cfg.TokenPath = fc.TokenPath
	}
	if err := overrideDuration(&cfg.PollInterval, fc.PollInterval, "poll_interval"); err != nil {
		return cfg, err
	}
	if err := overrideDuration(&cfg.RequestTimeout, fc.RequestTimeout, "request_timeout"); err != nil {
		return cfg, err
	}
	if err := overrideDuration(&cfg.HighlightFor, fc.Highlight, "highlight"); err != nil {
		return cfg, err
	}
	if fc.RequireAuth != nil {
		cfg.RequireAuth = *fc.RequireAuth
	}
	if fc.EnableChat != nil {
		cfg.EnableChat = *fc.EnableChat
	}
	if fc.EnableAnnouncements != nil {
		cfg.EnableAnnouncements = *fc.EnableAnnouncements
	}

	return cfg, nil
}

// FromEnv applies WALLETTRACK_* environment overrides on top of cfg.
// Only the URLs and token path make sense per-environment; behavior
// switches stay in the file.
func FromEnv(cfg Config) Config {
	if v := os.Getenv("WALLETTRACK_BACKEND_URL"); v != "" {
		cfg.BackendURL = v
	}
	if v := os.Getenv("WALLETTRACK_WS_URL"); v != "" {
		cfg.WSURL = v
	}
	if v := os.Getenv("WALLETTRACK_TOKEN_PATH"); v != "" {
		cfg.TokenPath = v
	}
	return cfg
}

// DefaultTokenPath resolves the persisted-token location when the config
// does not pin one. Falls back to the working directory if the user
// config dir is unavailable.
func DefaultTokenPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".wallettrack-token.json"
	}
	return filepath.Join(dir, "wallettrack", "token.json")
}

func overrideDuration(dst *time.Duration, raw, field string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse %s: %w", field, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", field, d)
	}
	*dst = d
	return nil
}
