// Package config loads Hooksend settings from a TOML file over built-in
// defaults.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap/zapcore"

	"github.com/SmitUplenchwar2687/Hooksend/internal/limiter"
	"github.com/SmitUplenchwar2687/Hooksend/internal/sender"
	"github.com/SmitUplenchwar2687/Hooksend/internal/store"
	"github.com/SmitUplenchwar2687/Hooksend/internal/validate"
)

// Config is the top-level configuration.
type Config struct {
	Webhook    WebhookConfig    `koanf:"webhook"`
	Server     ServerConfig     `koanf:"server"`
	Store      store.Config     `koanf:"store"`
	Limiter    limiter.Config   `koanf:"limiter"`
	Sender     sender.Config    `koanf:"sender"`
	Validation ValidationConfig `koanf:"validation"`
	Log        LogConfig        `koanf:"log"`
}

// WebhookConfig holds delivery defaults.
type WebhookConfig struct {
	// DefaultURL is used when a send names no webhook. HOOKSEND_WEBHOOK_URL
	// overrides it.
	DefaultURL string `koanf:"default_url"`
}

// ServerConfig holds local API settings.
type ServerConfig struct {
	Addr              string        `koanf:"addr"`
	CountdownInterval time.Duration `koanf:"countdown_interval"`
	AllowedOrigins    []string      `koanf:"allowed_origins"`
	// AuditLog, when set, receives every security event as a JSON line.
	AuditLog string `koanf:"audit_log"`
}

// ValidationConfig tunes the validation rules. Zero limits keep defaults.
type ValidationConfig struct {
	MaxContentLength          int      `koanf:"max_content_length"`
	MaxUsernameLength         int      `koanf:"max_username_length"`
	MaxEmbedTitleLength       int      `koanf:"max_embed_title_length"`
	MaxEmbedDescriptionLength int      `koanf:"max_embed_description_length"`
	MaxImageBytes             int64    `koanf:"max_image_bytes"`
	BlockSpamMarkers          bool     `koanf:"block_spam_markers"`
	WebhookPattern            string   `koanf:"webhook_pattern"`
	BlockedTerms              []string `koanf:"blocked_terms"`
}

// Options converts the settings for validate.New.
func (v ValidationConfig) Options() validate.Options {
	return validate.Options{
		MaxContentLength:          v.MaxContentLength,
		MaxUsernameLength:         v.MaxUsernameLength,
		MaxEmbedTitleLength:       v.MaxEmbedTitleLength,
		MaxEmbedDescriptionLength: v.MaxEmbedDescriptionLength,
		MaxImageBytes:             v.MaxImageBytes,
		BlockSpamMarkers:          v.BlockSpamMarkers,
		WebhookPattern:            v.WebhookPattern,
		BlockedTerms:              v.BlockedTerms,
	}
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level       string `koanf:"level"`
	Development bool   `koanf:"development"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	opts := validate.DefaultOptions()
	return Config{
		Server: ServerConfig{
			Addr:              "127.0.0.1:8080",
			CountdownInterval: time.Second,
		},
		Store:   store.DefaultConfig(),
		Limiter: limiter.DefaultConfig(),
		Sender:  sender.DefaultConfig(),
		Validation: ValidationConfig{
			MaxContentLength:          opts.MaxContentLength,
			MaxUsernameLength:         opts.MaxUsernameLength,
			MaxEmbedTitleLength:       opts.MaxEmbedTitleLength,
			MaxEmbedDescriptionLength: opts.MaxEmbedDescriptionLength,
			MaxImageBytes:             opts.MaxImageBytes,
			BlockSpamMarkers:          opts.BlockSpamMarkers,
			WebhookPattern:            opts.WebhookPattern,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks that the config is valid.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.CountdownInterval <= 0 {
		return fmt.Errorf("server.countdown_interval must be positive, got %s", c.Server.CountdownInterval)
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Limiter.Validate(); err != nil {
		return fmt.Errorf("limiter: %w", err)
	}
	if err := c.Sender.Validate(); err != nil {
		return fmt.Errorf("sender: %w", err)
	}
	if c.Validation.WebhookPattern != "" {
		if _, err := regexp.Compile(c.Validation.WebhookPattern); err != nil {
			return fmt.Errorf("validation.webhook_pattern: %w", err)
		}
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// LoadFile reads a TOML config file and merges it over defaults.
// Fields not specified in the file retain their default values.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return cfg, fmt.Errorf("loading config file: %w", err)
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// WriteExample writes an example config file to the given path.
func WriteExample(path string) error {
	example := `# Hooksend configuration. Every key is optional.

[webhook]
# default_url = "https://discord.com/api/webhooks/<id>/<token>"

[server]
addr = "127.0.0.1:8080"
countdown_interval = "1s"
allowed_origins = []
# audit_log = "hooksend-audit.jsonl"

[store]
backend = "file" # memory, file or redis
# path = "/home/me/.config/hooksend/state.json"

[store.redis]
host = "localhost"
port = 6379
db = 0
prefix = "hooksend:"

[limiter]
quota = 10
window = "5m"
sweep_interval = "1m"

[sender]
send_timeout = "15s"
strike_limit = 3
strike_window = "5m"

[validation]
max_content_length = 2000
max_username_length = 80
block_spam_markers = true
# blocked_terms = ["discord", "admin"]

[log]
level = "info"
development = false
`
	return os.WriteFile(path, []byte(example), 0o644)
}
