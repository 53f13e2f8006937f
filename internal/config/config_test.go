package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/SmitUplenchwar2687/Hooksend/internal/limiter"
	"github.com/SmitUplenchwar2687/Hooksend/internal/sender"
	"github.com/SmitUplenchwar2687/Hooksend/internal/store"
	"github.com/SmitUplenchwar2687/Hooksend/internal/validate"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.Addr != "127.0.0.1:8080" {
		t.Errorf("default addr = %q, want %q", cfg.Server.Addr, "127.0.0.1:8080")
	}
	if cfg.Limiter.Quota != limiter.DefaultQuota {
		t.Errorf("default quota = %d, want %d", cfg.Limiter.Quota, limiter.DefaultQuota)
	}
	if cfg.Limiter.Window != 5*time.Minute {
		t.Errorf("default window = %s, want 5m", cfg.Limiter.Window)
	}
	if cfg.Store.Backend != store.BackendFile {
		t.Errorf("default store backend = %q, want file", cfg.Store.Backend)
	}
	if cfg.Sender.StrikeLimit != sender.DefaultStrikeLimit {
		t.Errorf("default strike limit = %d, want %d", cfg.Sender.StrikeLimit, sender.DefaultStrikeLimit)
	}
	if !cfg.Validation.BlockSpamMarkers {
		t.Error("spam markers should be blocked by default")
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid, got %v", err)
	}
}

func TestValidate_BadQuota(t *testing.T) {
	cfg := Default()
	cfg.Limiter.Quota = 0
	if err := cfg.Validate(); err == nil {
		t.Error("quota=0 should be invalid")
	}
}

func TestValidate_BadWindow(t *testing.T) {
	cfg := Default()
	cfg.Limiter.Window = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Error("negative window should be invalid")
	}
}

func TestValidate_BadStrikeLimit(t *testing.T) {
	cfg := Default()
	cfg.Sender.StrikeLimit = 0
	if err := cfg.Validate(); err == nil {
		t.Error("strike_limit=0 should be invalid")
	}
}

func TestValidate_UnknownBackend(t *testing.T) {
	cfg := Default()
	cfg.Store.Backend = "etcd"
	err := cfg.Validate()
	if !errors.Is(err, store.ErrUnknownBackend) {
		t.Errorf("Validate() = %v, want ErrUnknownBackend", err)
	}
}

func TestValidate_EmptyAddr(t *testing.T) {
	cfg := Default()
	cfg.Server.Addr = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty addr should be invalid")
	}
}

func TestValidate_BadCountdownInterval(t *testing.T) {
	cfg := Default()
	cfg.Server.CountdownInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero countdown interval should be invalid")
	}
}

func TestValidate_BadWebhookPattern(t *testing.T) {
	cfg := Default()
	cfg.Validation.WebhookPattern = "(unclosed"
	if err := cfg.Validate(); err == nil {
		t.Error("invalid webhook pattern should be rejected")
	}
}

func TestValidate_BadLogLevel(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "chatty"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown log level should be invalid")
	}
}

func TestValidationOptions(t *testing.T) {
	cfg := Default()
	cfg.Validation.BlockedTerms = []string{"acme"}
	opts := cfg.Validation.Options()
	if opts.MaxContentLength != validate.DefaultMaxContentLength {
		t.Errorf("MaxContentLength = %d, want %d", opts.MaxContentLength, validate.DefaultMaxContentLength)
	}
	if len(opts.BlockedTerms) != 1 || opts.BlockedTerms[0] != "acme" {
		t.Errorf("BlockedTerms = %v, want [acme]", opts.BlockedTerms)
	}
	if _, err := validate.New(opts); err != nil {
		t.Errorf("validate.New(default options) = %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hooksend.toml")

	content := `
[limiter]
quota = 3
window = "1m"

[store]
backend = "memory"

[log]
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Limiter.Quota != 3 {
		t.Errorf("quota = %d, want 3", cfg.Limiter.Quota)
	}
	if cfg.Limiter.Window != time.Minute {
		t.Errorf("window = %s, want 1m", cfg.Limiter.Window)
	}
	if cfg.Store.Backend != store.BackendMemory {
		t.Errorf("backend = %q, want memory", cfg.Store.Backend)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
	// Unspecified fields keep their defaults.
	if cfg.Server.Addr != "127.0.0.1:8080" {
		t.Errorf("addr = %q, want default", cfg.Server.Addr)
	}
	if cfg.Sender.SendTimeout != sender.DefaultSendTimeout {
		t.Errorf("send timeout = %s, want default", cfg.Sender.SendTimeout)
	}
	if cfg.Store.Redis.Port != 6379 {
		t.Errorf("redis port = %d, want default 6379", cfg.Store.Redis.Port)
	}
}

func TestLoadFile_NotFound(t *testing.T) {
	if _, err := LoadFile("/nonexistent/hooksend.toml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadFile_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(path, []byte("[limiter\nquota = "), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("expected error for invalid TOML")
	}
}

func TestWriteExample(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "example.toml")

	if err := WriteExample(path); err != nil {
		t.Fatalf("WriteExample() error = %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile(example) error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("example config should be valid, got %v", err)
	}
	if cfg.Limiter.Quota != 10 {
		t.Errorf("example quota = %d, want 10", cfg.Limiter.Quota)
	}
	if cfg.Store.Redis.Prefix != "hooksend:" {
		t.Errorf("example redis prefix = %q, want hooksend:", cfg.Store.Redis.Prefix)
	}
}
