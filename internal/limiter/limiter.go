// Package limiter enforces the send quota: at most Quota successful sends in
// any sliding Window. Exceeding the quota escalates to a block.
package limiter

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/Hooksend/internal/blocker"
	"github.com/SmitUplenchwar2687/Hooksend/internal/clock"
	"github.com/SmitUplenchwar2687/Hooksend/internal/schema"
)

const (
	DefaultQuota         = 10
	DefaultWindow        = 5 * time.Minute
	DefaultSweepInterval = time.Minute
)

// ReasonRateLimit is the block reason used when the quota is exceeded.
const ReasonRateLimit = "Rate limit exceeded."

// Gate reports and applies blocks. *blocker.Blocker satisfies it.
type Gate interface {
	IsBlocked(ctx context.Context, now time.Time) bool
	ApplyBlock(ctx context.Context, reason string, now time.Time) blocker.Notice
}

// Config holds the quota parameters.
type Config struct {
	Quota         int           `json:"quota" koanf:"quota"`
	Window        time.Duration `json:"window" koanf:"window"`
	SweepInterval time.Duration `json:"sweep_interval" koanf:"sweep_interval"`
}

// DefaultConfig returns the canonical quota.
func DefaultConfig() Config {
	return Config{
		Quota:         DefaultQuota,
		Window:        DefaultWindow,
		SweepInterval: DefaultSweepInterval,
	}
}

// Validate checks the quota parameters.
func (c Config) Validate() error {
	if c.Quota <= 0 {
		return fmt.Errorf("quota must be positive, got %d", c.Quota)
	}
	if c.Window <= 0 {
		return fmt.Errorf("window must be positive, got %s", c.Window)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %s", c.SweepInterval)
	}
	return nil
}

// Decision captures the result of a quota check. Blocked means a block was
// already active and nothing was counted. RetryAt is when the oldest send
// leaves the window and is set only when denied by the quota. Notice is set
// when this check applied a block.
type Decision struct {
	Allowed   bool            `json:"allowed"`
	Blocked   bool            `json:"blocked"`
	Used      int             `json:"used"`
	Remaining int             `json:"remaining"`
	Limit     int             `json:"limit"`
	RetryAt   time.Time       `json:"retry_at"`
	Notice    *blocker.Notice `json:"notice,omitempty"`
}

// Limiter checks and records sends against the quota.
type Limiter struct {
	cfg    Config
	usage  *Window
	gate   Gate
	clock  clock.Clock
	logger *zap.Logger
}

// New creates a Limiter storing usage under the usage-history key.
func New(sch *schema.Schema, gate Gate, clk clock.Clock, cfg Config, logger *zap.Logger) (*Limiter, error) {
	if gate == nil {
		return nil, fmt.Errorf("gate is required")
	}
	if clk == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{
		cfg:    cfg,
		usage:  NewWindow(sch, schema.KeyUsageHistory, cfg.Window),
		gate:   gate,
		clock:  clk,
		logger: logger,
	}, nil
}

// Config returns the active quota parameters.
func (l *Limiter) Config() Config {
	return l.cfg
}

// Count returns the number of successful sends inside the window at now.
func (l *Limiter) Count(ctx context.Context, now time.Time) int {
	return l.usage.Count(ctx, now)
}

// Remaining returns how many sends are left at now.
func (l *Limiter) Remaining(ctx context.Context, now time.Time) int {
	return max(0, l.cfg.Quota-l.usage.Count(ctx, now))
}

// Check decides whether a send may proceed at now. It never counts the send;
// call RecordSuccess once delivery succeeds. When the quota is already used
// up, Check applies a block through the gate.
func (l *Limiter) Check(ctx context.Context, now time.Time) Decision {
	if l.gate.IsBlocked(ctx, now) {
		return Decision{Blocked: true, Limit: l.cfg.Quota}
	}

	used := l.usage.Count(ctx, now)
	d := Decision{
		Allowed:   used < l.cfg.Quota,
		Used:      used,
		Remaining: max(0, l.cfg.Quota-used),
		Limit:     l.cfg.Quota,
	}
	if d.Allowed {
		return d
	}

	if oldest, ok := l.usage.Oldest(ctx, now); ok {
		d.RetryAt = oldest.Add(l.cfg.Window)
	}
	notice := l.gate.ApplyBlock(ctx, ReasonRateLimit, now)
	d.Notice = &notice

	l.logger.Warn("send quota exceeded",
		zap.Int("used", used),
		zap.Int("quota", l.cfg.Quota),
		zap.Duration("window", l.cfg.Window),
	)
	return d
}

// CheckQuota reports whether a send may proceed at now.
func (l *Limiter) CheckQuota(ctx context.Context, now time.Time) bool {
	return l.Check(ctx, now).Allowed
}

// RecordSuccess counts a delivered send.
func (l *Limiter) RecordSuccess(ctx context.Context, now time.Time) error {
	return l.usage.Append(ctx, now)
}

// Sweep drops usage entries that left the window.
func (l *Limiter) Sweep(ctx context.Context, now time.Time) (int, error) {
	n, err := l.usage.Sweep(ctx, now)
	if err != nil {
		l.logger.Warn("usage sweep failed", zap.Error(err))
		return 0, err
	}
	if n > 0 {
		l.logger.Debug("swept expired usage", zap.Int("removed", n))
	}
	return n, nil
}

// Run sweeps every SweepInterval until ctx is cancelled.
func (l *Limiter) Run(ctx context.Context) {
	ticker := l.clock.NewTicker(l.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C():
			l.Sweep(ctx, now)
		}
	}
}

// Reset forgets all usage.
func (l *Limiter) Reset(ctx context.Context) error {
	return l.usage.Reset(ctx)
}
