package sender

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SmitUplenchwar2687/Hooksend/internal/blocker"
)

// Snapshot is the state shown by status surfaces.
type Snapshot struct {
	Now         time.Time      `json:"now"`
	Used        int            `json:"used"`
	Quota       int            `json:"quota"`
	Remaining   int            `json:"remaining"`
	Window      time.Duration  `json:"window"`
	Strikes     int            `json:"strikes"`
	StrikeLimit int            `json:"strike_limit"`
	Block       blocker.Status `json:"block"`
	NoticeShown bool           `json:"notice_shown"`
	Busy        bool           `json:"busy"`
	LogEntries  int            `json:"log_entries"`
}

// Status returns the current limiter, strike and block state.
func (s *Sender) Status(ctx context.Context) Snapshot {
	now := s.clock.Now()
	cfg := s.limiter.Config()
	used := s.limiter.Count(ctx, now)
	return Snapshot{
		Now:         now,
		Used:        used,
		Quota:       cfg.Quota,
		Remaining:   max(0, cfg.Quota-used),
		Window:      cfg.Window,
		Strikes:     s.strikes.Count(ctx, now),
		StrikeLimit: s.cfg.StrikeLimit,
		Block:       s.blocker.Status(ctx, now),
		NoticeShown: s.drafts.NoticeShown(ctx),
		Busy:        s.Busy(),
		LogEntries:  len(s.events.ReadAll(ctx)),
	}
}

// ResetScope selects what ResetAll clears.
type ResetScope struct {
	Usage      bool
	Violations bool
	Block      bool
	Logs       bool
}

// ResetEverything clears all security state.
var ResetEverything = ResetScope{Usage: true, Violations: true, Block: true, Logs: true}

// Reset clears the selected state. Clearing violations also lifts the block
// and forgets strikes. Intended for administrators and tests.
func (s *Sender) Reset(ctx context.Context, scope ResetScope) error {
	var errs []error
	if scope.Usage {
		errs = append(errs, s.limiter.Reset(ctx))
	}
	if scope.Violations {
		errs = append(errs, s.blocker.Reset(ctx), s.strikes.Reset(ctx))
	} else if scope.Block {
		errs = append(errs, s.blocker.ClearBlock(ctx))
	}
	if scope.Logs {
		errs = append(errs, s.events.Clear(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("resetting security state: %w", err)
	}
	return nil
}

// ResetAll clears usage, violations, the block, strikes and the event log.
func (s *Sender) ResetAll(ctx context.Context) error {
	return s.Reset(ctx, ResetEverything)
}

// AcknowledgeNotice records that the responsible-use notice was shown.
func (s *Sender) AcknowledgeNotice(ctx context.Context) error {
	return s.drafts.SetNoticeShown(ctx, true)
}
