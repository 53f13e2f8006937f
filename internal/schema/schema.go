// Package schema owns every persisted key name and its encoding. The limiter,
// blocker, event log and draft profile read and write through it so writer and
// reader of a key can never drift apart.
package schema

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/Hooksend/internal/store"
)

// Persisted key names. The first six match the keys the browser build used,
// so an exported local-storage dump can be imported as a file store.
const (
	KeyProfile          = "webhook-data"
	KeyUsageHistory     = "webhook-usage-history"
	KeyViolations       = "webhook-security-violations"
	KeyBlockedUntil     = "webhook-blocked-until"
	KeySecurityLog      = "webhook-security-logs"
	KeyAlertShown       = "webhook-security-alert-shown"
	KeySuspiciousStrike = "webhook-suspicious-strikes"
)

// AllKeys lists every key the schema owns.
var AllKeys = []string{
	KeyProfile,
	KeyUsageHistory,
	KeyViolations,
	KeyBlockedUntil,
	KeySecurityLog,
	KeyAlertShown,
	KeySuspiciousStrike,
}

// Schema reads and writes typed values against a Store. Reads never fail:
// a missing, unreadable or unparseable value yields the caller's default and
// is logged at warn level. Writes return their error.
type Schema struct {
	store  store.Store
	logger *zap.Logger
}

// New creates a Schema over s. A nil logger discards warnings.
func New(s store.Store, logger *zap.Logger) *Schema {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Schema{
		store:  s,
		logger: logger,
	}
}

// Store returns the underlying store.
func (s *Schema) Store() store.Store {
	return s.store
}

// Load decodes key into a value of type T, returning def when the key is
// missing or its value cannot be read or decoded.
func Load[T any](ctx context.Context, s *Schema, key string, def T) T {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		s.logger.Warn("Failed to read persisted state, using default",
			zap.String("key", key),
			zap.Error(err))
		return def
	}
	if data == nil {
		return def
	}

	v := def
	if err := sonic.Unmarshal(data, &v); err != nil {
		s.logger.Warn("Persisted state is corrupted, using default",
			zap.String("key", key),
			zap.Error(err))
		return def
	}
	return v
}

// Save encodes v and stores it under key.
func Save[T any](ctx context.Context, s *Schema, key string, v T) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := s.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *Schema) Delete(ctx context.Context, key string) error {
	if err := s.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Timestamps loads an epoch-millisecond list such as the usage history.
func (s *Schema) Timestamps(ctx context.Context, key string) []int64 {
	ts := Load(ctx, s, key, []int64{})
	if ts == nil {
		return []int64{}
	}
	return ts
}

// SetTimestamps stores an epoch-millisecond list.
func (s *Schema) SetTimestamps(ctx context.Context, key string, ts []int64) error {
	if ts == nil {
		ts = []int64{}
	}
	return Save(ctx, s, key, ts)
}

// Violations loads the violation counter. Negative values read as zero.
func (s *Schema) Violations(ctx context.Context) int {
	n := Load(ctx, s, KeyViolations, 0)
	if n < 0 {
		return 0
	}
	return n
}

// SetViolations stores the violation counter.
func (s *Schema) SetViolations(ctx context.Context, n int) error {
	return Save(ctx, s, KeyViolations, n)
}

// BlockedUntil loads the active block expiry in epoch milliseconds.
func (s *Schema) BlockedUntil(ctx context.Context) (int64, bool) {
	ms := Load[*int64](ctx, s, KeyBlockedUntil, nil)
	if ms == nil || *ms <= 0 {
		return 0, false
	}
	return *ms, true
}

// SetBlockedUntil stores the block expiry in epoch milliseconds.
func (s *Schema) SetBlockedUntil(ctx context.Context, ms int64) error {
	return Save(ctx, s, KeyBlockedUntil, ms)
}

// ClearBlockedUntil removes the block expiry.
func (s *Schema) ClearBlockedUntil(ctx context.Context) error {
	return s.Delete(ctx, KeyBlockedUntil)
}

// SecurityLog loads the security-event log, oldest first.
func (s *Schema) SecurityLog(ctx context.Context) []LogEntry {
	entries := Load(ctx, s, KeySecurityLog, []LogEntry{})
	if entries == nil {
		return []LogEntry{}
	}
	return entries
}

// SetSecurityLog stores the security-event log.
func (s *Schema) SetSecurityLog(ctx context.Context, entries []LogEntry) error {
	if entries == nil {
		entries = []LogEntry{}
	}
	return Save(ctx, s, KeySecurityLog, entries)
}

// Profile loads the persisted draft identity fields.
func (s *Schema) Profile(ctx context.Context) Profile {
	p := Load(ctx, s, KeyProfile, DefaultProfile())
	if p.EmbedColor == "" {
		p.EmbedColor = DefaultEmbedColor
	}
	return p
}

// SetProfile stores the draft identity fields.
func (s *Schema) SetProfile(ctx context.Context, p Profile) error {
	return Save(ctx, s, KeyProfile, p)
}

// AlertShown reports whether the one-time responsible-use notice was
// acknowledged.
func (s *Schema) AlertShown(ctx context.Context) bool {
	return Load(ctx, s, KeyAlertShown, false)
}

// SetAlertShown records acknowledgement of the responsible-use notice.
func (s *Schema) SetAlertShown(ctx context.Context, shown bool) error {
	return Save(ctx, s, KeyAlertShown, shown)
}
