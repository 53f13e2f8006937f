package cli

import (
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/Hooksend/internal/store"
)

func TestNormalizeRedisHostPort(t *testing.T) {
	host, port, err := normalizeRedisHostPort("localhost:6380", 6379)
	if err != nil {
		t.Fatalf("normalizeRedisHostPort() error = %v", err)
	}
	if host != "localhost" || port != 6380 {
		t.Fatalf("normalizeRedisHostPort() = %s:%d, want localhost:6380", host, port)
	}

	host, port, err = normalizeRedisHostPort("redis.internal", 6379)
	if err != nil {
		t.Fatalf("normalizeRedisHostPort() error = %v", err)
	}
	if host != "redis.internal" || port != 6379 {
		t.Fatalf("normalizeRedisHostPort() = %s:%d, want redis.internal:6379", host, port)
	}
}

func TestNormalizeRedisHostPort_Invalid(t *testing.T) {
	if _, _, err := normalizeRedisHostPort("", 6379); err == nil {
		t.Fatal("expected error for empty host")
	}
	if _, _, err := normalizeRedisHostPort("localhost", 0); err == nil {
		t.Fatal("expected error for non-positive port")
	}
	if _, _, err := normalizeRedisHostPort("localhost:abc", 6379); err == nil {
		t.Fatal("expected error for non-numeric port")
	}
}

func parseStoreFlags(t *testing.T, args ...string) (*cobra.Command, *storeOptions) {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	o := defaultStoreOptions()
	o.addFlags(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	return cmd, &o
}

func TestStoreOptions_FlagsOverrideConfig(t *testing.T) {
	cmd, o := parseStoreFlags(t, "--store", "redis", "--redis-host", "cache:6380", "--redis-prefix", "team-a:")

	cfg := store.DefaultConfig()
	cfg.Redis.Password = "from-config"
	if err := o.apply(cmd, &cfg); err != nil {
		t.Fatalf("apply() error = %v", err)
	}

	if cfg.Backend != store.BackendRedis {
		t.Errorf("backend = %q, want redis", cfg.Backend)
	}
	if cfg.Redis.Host != "cache" || cfg.Redis.Port != 6380 {
		t.Errorf("redis addr = %s:%d, want cache:6380", cfg.Redis.Host, cfg.Redis.Port)
	}
	if cfg.Redis.Prefix != "team-a:" {
		t.Errorf("prefix = %q, want team-a:", cfg.Redis.Prefix)
	}
	if cfg.Redis.Password != "from-config" {
		t.Errorf("password = %q, want config value kept", cfg.Redis.Password)
	}
}

func TestStoreOptions_UnsetFlagsKeepConfig(t *testing.T) {
	cmd, o := parseStoreFlags(t)

	cfg := store.Config{
		Backend: store.BackendMemory,
		Path:    "/tmp/from-config.json",
		Redis:   store.RedisConfig{Host: "cfg-host", Port: 7000, DialTimeout: time.Second},
	}
	if err := o.apply(cmd, &cfg); err != nil {
		t.Fatalf("apply() error = %v", err)
	}

	if cfg.Backend != store.BackendMemory {
		t.Errorf("backend = %q, want memory", cfg.Backend)
	}
	if cfg.Path != "/tmp/from-config.json" {
		t.Errorf("path = %q, want config value", cfg.Path)
	}
	if cfg.Redis.Host != "cfg-host" || cfg.Redis.Port != 7000 {
		t.Errorf("redis addr = %s:%d, want cfg-host:7000", cfg.Redis.Host, cfg.Redis.Port)
	}
}

func TestStoreOptions_StateFile(t *testing.T) {
	cmd, o := parseStoreFlags(t, "--state-file", "/tmp/custom.json")

	cfg := store.DefaultConfig()
	if err := o.apply(cmd, &cfg); err != nil {
		t.Fatalf("apply() error = %v", err)
	}
	if cfg.Path != "/tmp/custom.json" {
		t.Errorf("path = %q, want /tmp/custom.json", cfg.Path)
	}
}
