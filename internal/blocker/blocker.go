// Package blocker implements progressive blocking: each violation extends the
// next block, doubling from a base duration up to a ceiling.
package blocker

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/Hooksend/internal/clock"
	"github.com/SmitUplenchwar2687/Hooksend/internal/schema"
)

const (
	// BaseDuration is the length of the first block.
	BaseDuration = 10 * time.Minute
	// MaxDoublings caps growth at BaseDuration * 2^MaxDoublings.
	MaxDoublings = 3
)

// Reasons used by the send flow when requesting a block.
const (
	ReasonSecurityViolation = "Security violation detected."
	ReasonSuspiciousContent = "Repeated suspicious content."
)

// Notice describes a block that was just applied.
type Notice struct {
	Reason     string        `json:"reason"`
	Message    string        `json:"message"`
	Violations int           `json:"violations"`
	Duration   time.Duration `json:"duration"`
	Until      time.Time     `json:"until"`
}

// Status is a point-in-time view of the block state.
type Status struct {
	Blocked    bool          `json:"blocked"`
	Violations int           `json:"violations"`
	Until      *time.Time    `json:"until,omitempty"`
	Remaining  time.Duration `json:"remaining"`
	Countdown  string        `json:"countdown"`
	NextBlock  time.Duration `json:"next_block"`
}

// Blocker reads and writes the violation count and block expiry.
type Blocker struct {
	mu     sync.Mutex
	schema *schema.Schema
	logger *zap.Logger
}

// New creates a Blocker over sch. A nil logger discards output.
func New(sch *schema.Schema, logger *zap.Logger) *Blocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Blocker{
		schema: sch,
		logger: logger,
	}
}

// Duration returns the block length for the n-th violation. n <= 0 is
// treated as the first violation.
func Duration(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	return BaseDuration * time.Duration(1<<min(n-1, MaxDoublings))
}

// FormatBlockTime renders milliseconds as "M:SS". Negative input renders as
// "0:00".
func FormatBlockTime(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	minutes := ms / 60000
	seconds := (ms % 60000) / 1000
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// FormatDuration is FormatBlockTime for a time.Duration.
func FormatDuration(d time.Duration) string {
	return FormatBlockTime(d.Milliseconds())
}

// IsBlocked reports whether a block is active at now. A block that has
// expired is cleared as a side effect.
func (b *Blocker) IsBlocked(ctx context.Context, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.isBlocked(ctx, now)
}

func (b *Blocker) isBlocked(ctx context.Context, now time.Time) bool {
	until, ok := b.schema.BlockedUntil(ctx)
	if !ok {
		return false
	}
	if until > clock.Millis(now) {
		return true
	}
	if err := b.schema.ClearBlockedUntil(ctx); err != nil {
		b.logger.Warn("failed to clear expired block", zap.Error(err))
	} else {
		b.logger.Info("block expired", zap.Time("until", clock.FromMillis(until)))
	}
	return false
}

// Remaining returns how long the active block has left, or zero.
func (b *Blocker) Remaining(ctx context.Context, now time.Time) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.isBlocked(ctx, now) {
		return 0
	}
	until, _ := b.schema.BlockedUntil(ctx)
	return time.Duration(until-clock.Millis(now)) * time.Millisecond
}

// FormattedRemaining returns Remaining as "M:SS".
func (b *Blocker) FormattedRemaining(ctx context.Context, now time.Time) string {
	return FormatDuration(b.Remaining(ctx, now))
}

// Violations returns the persisted violation count.
func (b *Blocker) Violations(ctx context.Context) int {
	return b.schema.Violations(ctx)
}

// ApplyBlock records a violation and blocks until now plus the escalated
// duration. A persistence failure is logged; the notice is still returned so
// the caller can tell the user.
func (b *Blocker) ApplyBlock(ctx context.Context, reason string, now time.Time) Notice {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.schema.Violations(ctx) + 1
	d := Duration(n)
	until := now.Add(d)

	if err := b.schema.SetViolations(ctx, n); err != nil {
		b.logger.Error("failed to persist violation count", zap.Error(err))
	}
	if err := b.schema.SetBlockedUntil(ctx, clock.Millis(until)); err != nil {
		b.logger.Error("failed to persist block", zap.Error(err))
	}

	minutes := int(math.Ceil(d.Minutes()))
	notice := Notice{
		Reason:     reason,
		Message:    fmt.Sprintf("%s You're temporarily blocked for %d minutes.", reason, minutes),
		Violations: n,
		Duration:   d,
		Until:      until,
	}

	b.logger.Warn("block applied",
		zap.String("reason", reason),
		zap.Int("violations", n),
		zap.Duration("duration", d),
		zap.Time("until", until),
	)
	return notice
}

// ClearBlock lifts the active block but keeps the violation count, so the
// next block still escalates.
func (b *Blocker) ClearBlock(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.schema.ClearBlockedUntil(ctx); err != nil {
		return fmt.Errorf("clearing block: %w", err)
	}
	return nil
}

// Reset lifts the active block and forgets every violation.
func (b *Blocker) Reset(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.schema.ClearBlockedUntil(ctx); err != nil {
		return fmt.Errorf("clearing block: %w", err)
	}
	if err := b.schema.Delete(ctx, schema.KeyViolations); err != nil {
		return fmt.Errorf("clearing violations: %w", err)
	}
	return nil
}

// Status returns a snapshot of the block state at now.
func (b *Blocker) Status(ctx context.Context, now time.Time) Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	violations := b.schema.Violations(ctx)
	st := Status{
		Violations: violations,
		Countdown:  FormatBlockTime(0),
		NextBlock:  Duration(violations + 1),
	}
	if !b.isBlocked(ctx, now) {
		return st
	}

	ms, _ := b.schema.BlockedUntil(ctx)
	until := clock.FromMillis(ms)
	st.Blocked = true
	st.Until = &until
	st.Remaining = until.Sub(now)
	st.Countdown = FormatDuration(st.Remaining)
	return st
}
