// Package sender runs the guarded send flow: block check, validation,
// quota, delivery and escalation, in that order.
package sender

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/Hooksend/internal/blocker"
	"github.com/SmitUplenchwar2687/Hooksend/internal/clock"
	"github.com/SmitUplenchwar2687/Hooksend/internal/draft"
	"github.com/SmitUplenchwar2687/Hooksend/internal/eventlog"
	"github.com/SmitUplenchwar2687/Hooksend/internal/limiter"
	"github.com/SmitUplenchwar2687/Hooksend/internal/schema"
	"github.com/SmitUplenchwar2687/Hooksend/internal/validate"
	"github.com/SmitUplenchwar2687/Hooksend/internal/webhook"
)

// ErrSendInProgress is reported when a send is attempted while another one
// is still running.
var ErrSendInProgress = errors.New("a message is already being sent")

// Status is the kind of outcome a send produced.
type Status string

const (
	StatusSent        Status = "sent"
	StatusRejected    Status = "rejected"
	StatusBlocked     Status = "blocked"
	StatusRateLimited Status = "rate_limited"
	StatusFailed      Status = "failed"
	StatusBusy        Status = "busy"
)

// Outcome is what the user is told after a send attempt. Notice is set when
// the attempt applied a block.
type Outcome struct {
	Status   Status          `json:"status"`
	Message  string          `json:"message"`
	Field    string          `json:"field,omitempty"`
	Kind     validate.Kind   `json:"kind,omitempty"`
	Notice   *blocker.Notice `json:"notice,omitempty"`
	Delivery *webhook.Result `json:"delivery,omitempty"`
}

// OK reports whether the message was delivered.
func (o Outcome) OK() bool {
	return o.Status == StatusSent
}

// Deliverer posts a payload. *webhook.Client satisfies it.
type Deliverer interface {
	Send(ctx context.Context, url string, p webhook.Payload) webhook.Result
}

const (
	DefaultSendTimeout  = webhook.DefaultTimeout
	DefaultStrikeLimit  = 3
	DefaultStrikeWindow = 5 * time.Minute
)

// Config tunes the send flow.
type Config struct {
	SendTimeout  time.Duration `json:"send_timeout" koanf:"send_timeout"`
	StrikeLimit  int           `json:"strike_limit" koanf:"strike_limit"`
	StrikeWindow time.Duration `json:"strike_window" koanf:"strike_window"`
}

// DefaultConfig returns the canonical send-flow settings.
func DefaultConfig() Config {
	return Config{
		SendTimeout:  DefaultSendTimeout,
		StrikeLimit:  DefaultStrikeLimit,
		StrikeWindow: DefaultStrikeWindow,
	}
}

// Validate checks the send-flow settings.
func (c Config) Validate() error {
	if c.SendTimeout <= 0 {
		return fmt.Errorf("send timeout must be positive, got %s", c.SendTimeout)
	}
	if c.StrikeLimit <= 0 {
		return fmt.Errorf("strike limit must be positive, got %d", c.StrikeLimit)
	}
	if c.StrikeWindow <= 0 {
		return fmt.Errorf("strike window must be positive, got %s", c.StrikeWindow)
	}
	return nil
}

// Screen is an extra check run after the webhook, terms and presence checks
// and before the per-field checks. It returns the failing field and result,
// or a valid result to let the draft through.
type Screen func(d *draft.Draft) (field string, r validate.Result)

// Deps are the collaborators a Sender drives.
type Deps struct {
	Schema    *schema.Schema
	Validator *validate.Validator
	Limiter   *limiter.Limiter
	Blocker   *blocker.Blocker
	Events    *eventlog.Log
	Drafts    *draft.Store
	Delivery  Deliverer
	Screen    Screen // optional
	Clock     clock.Clock
	Logger    *zap.Logger
}

// Sender runs one send at a time.
type Sender struct {
	cfg       Config
	validator *validate.Validator
	limiter   *limiter.Limiter
	blocker   *blocker.Blocker
	events    *eventlog.Log
	drafts    *draft.Store
	delivery  Deliverer
	screen    Screen
	strikes   *limiter.Window
	clock     clock.Clock
	logger    *zap.Logger

	inFlight atomic.Bool
}

// New creates a Sender.
func New(deps Deps, cfg Config) (*Sender, error) {
	switch {
	case deps.Schema == nil:
		return nil, fmt.Errorf("schema is required")
	case deps.Limiter == nil:
		return nil, fmt.Errorf("limiter is required")
	case deps.Blocker == nil:
		return nil, fmt.Errorf("blocker is required")
	case deps.Events == nil:
		return nil, fmt.Errorf("event log is required")
	case deps.Delivery == nil:
		return nil, fmt.Errorf("delivery is required")
	case deps.Clock == nil:
		return nil, fmt.Errorf("clock is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Validator == nil {
		deps.Validator = validate.Default()
	}
	if deps.Drafts == nil {
		deps.Drafts = draft.NewStore(deps.Schema)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &Sender{
		cfg:       cfg,
		validator: deps.Validator,
		limiter:   deps.Limiter,
		blocker:   deps.Blocker,
		events:    deps.Events,
		drafts:    deps.Drafts,
		delivery:  deps.Delivery,
		screen:    deps.Screen,
		strikes:   limiter.NewWindow(deps.Schema, schema.KeySuspiciousStrike, cfg.StrikeWindow),
		clock:     deps.Clock,
		logger:    deps.Logger,
	}, nil
}

// Busy reports whether a send is running.
func (s *Sender) Busy() bool {
	return s.inFlight.Load()
}

// Send validates d and delivers it. The identity fields are remembered
// before anything else, whatever the outcome. On success the draft's content
// is cleared; on any other outcome the draft is left as is so the user can
// edit and retry.
func (s *Sender) Send(ctx context.Context, d *draft.Draft) Outcome {
	if !s.inFlight.CompareAndSwap(false, true) {
		return Outcome{Status: StatusBusy, Message: ErrSendInProgress.Error()}
	}
	defer s.inFlight.Store(false)

	now := s.clock.Now()

	if err := s.drafts.Save(ctx, d); err != nil {
		s.logger.Warn("failed to remember draft profile", zap.Error(err))
	}

	if s.blocker.IsBlocked(ctx, now) {
		return Outcome{
			Status:  StatusBlocked,
			Message: fmt.Sprintf("You're temporarily blocked. Try again in %s.", s.blocker.FormattedRemaining(ctx, now)),
		}
	}

	if field, r := s.validateDraft(d); !r.Valid {
		return s.reject(ctx, field, r, now)
	}

	decision := s.limiter.Check(ctx, now)
	switch {
	case decision.Blocked:
		return Outcome{
			Status:  StatusBlocked,
			Message: fmt.Sprintf("You're temporarily blocked. Try again in %s.", s.blocker.FormattedRemaining(ctx, now)),
		}
	case !decision.Allowed:
		s.record(ctx, eventlog.RateLimit,
			fmt.Sprintf("Rate limit exceeded: %d messages in %s.", decision.Used, s.limiter.Config().Window),
			map[string]string{"used": strconv.Itoa(decision.Used), "limit": strconv.Itoa(decision.Limit)})
		s.recordBlock(ctx, decision.Notice)
		return Outcome{Status: StatusRateLimited, Message: decision.Notice.Message, Notice: decision.Notice}
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	res := s.delivery.Send(sendCtx, d.WebhookURL, d.Payload())
	cancel()

	if res.Success {
		if err := s.limiter.RecordSuccess(ctx, s.clock.Now()); err != nil {
			s.logger.Error("failed to record usage", zap.Error(err))
		}
		d.ResetContent()
		s.logger.Info("message sent", zap.Int("status", res.StatusCode))
		return Outcome{Status: StatusSent, Message: res.Message, Delivery: &res}
	}

	return s.deliveryFailed(ctx, res)
}

// validateDraft runs the checks in order and returns the first failure
// together with the field it concerns.
func (s *Sender) validateDraft(d *draft.Draft) (string, validate.Result) {
	if r := s.validator.WebhookURL(d.WebhookURL); !r.Valid {
		return "webhookUrl", validate.Result{Kind: validate.KindInput, Reason: "Please enter a valid webhook URL"}
	}
	if !d.TermsAccepted {
		return "termsAccepted", validate.Result{Kind: validate.KindInput, Reason: "You must accept the terms before sending"}
	}
	if !d.HasBody() {
		if d.UseEmbed {
			return "embed", validate.Result{Kind: validate.KindInput, Reason: "Embed must have at least a title, description, or image"}
		}
		return "content", validate.Result{Kind: validate.KindInput, Reason: "Message content or image is required when not using embeds"}
	}
	if s.screen != nil {
		if field, r := s.screen(d); !r.Valid {
			return field, r
		}
	}

	checks := []struct {
		field string
		skip  bool
		run   func() validate.Result
	}{
		{"content", isBlank(d.Content), func() validate.Result { return s.validator.Content(d.Content) }},
		{"username", d.Username == "", func() validate.Result { return s.validator.Username(d.Username) }},
		{"avatarUrl", d.AvatarURL == "", func() validate.Result { return s.validator.AvatarURL(d.AvatarURL) }},
		{"contentImageUrl", d.ContentImageURL == "", func() validate.Result { return s.validator.ImageURL(d.ContentImageURL) }},
		{"embed", !d.UseEmbed, func() validate.Result { return s.validateEmbed(d) }},
	}
	for _, c := range checks {
		if c.skip {
			continue
		}
		if r := c.run(); !r.Valid {
			return c.field, r
		}
	}
	return "", validate.OK
}

func (s *Sender) validateEmbed(d *draft.Draft) validate.Result {
	if _, err := draft.ParseColor(d.EmbedColor); err != nil {
		return validate.Result{Kind: validate.KindInput, Reason: "Embed color must look like #RRGGBB."}
	}
	return s.validator.Embed(d.Embed())
}

// reject logs a validation failure. Policy failures count as strikes and
// enough strikes inside the strike window escalate to a block.
func (s *Sender) reject(ctx context.Context, field string, r validate.Result, now time.Time) Outcome {
	out := Outcome{Status: StatusRejected, Message: r.Reason, Field: field, Kind: r.Kind}
	meta := map[string]string{"field": field}

	if r.Kind != validate.KindPolicy {
		s.record(ctx, eventlog.ValidationFailure, r.Reason, meta)
		return out
	}

	s.record(ctx, eventlog.Suspicious, r.Reason, meta)
	if err := s.strikes.Append(ctx, now); err != nil {
		s.logger.Warn("failed to record strike", zap.Error(err))
	}
	if s.strikes.Count(ctx, now) < s.cfg.StrikeLimit {
		return out
	}

	notice := s.blocker.ApplyBlock(ctx, blocker.ReasonSuspiciousContent, now)
	s.recordBlock(ctx, &notice)
	if err := s.strikes.Reset(ctx); err != nil {
		s.logger.Warn("failed to reset strikes", zap.Error(err))
	}
	out.Notice = &notice
	return out
}

// deliveryFailed logs a failed delivery. Only a remote refusal escalates;
// transport errors and remote rate limits never do.
func (s *Sender) deliveryFailed(ctx context.Context, res webhook.Result) Outcome {
	out := Outcome{Status: StatusFailed, Message: res.Message, Delivery: &res}

	if res.SecurityAction {
		notice := s.blocker.ApplyBlock(ctx, blocker.ReasonSecurityViolation, s.clock.Now())
		s.recordBlock(ctx, &notice)
		out.Notice = &notice
		return out
	}

	meta := map[string]string{"stage": "delivery"}
	if res.StatusCode != 0 {
		meta["status"] = strconv.Itoa(res.StatusCode)
	}
	if res.Err != nil {
		meta["error"] = res.Err.Error()
	}
	s.record(ctx, eventlog.ValidationFailure, res.Message, meta)
	return out
}

func (s *Sender) recordBlock(ctx context.Context, n *blocker.Notice) {
	s.record(ctx, eventlog.Blocked, n.Message, map[string]string{
		"violations": strconv.Itoa(n.Violations),
		"duration":   n.Duration.String(),
	})
}

func (s *Sender) record(ctx context.Context, typ eventlog.Type, reason string, meta map[string]string) {
	if _, err := s.events.Record(ctx, typ, reason, meta); err != nil {
		s.logger.Warn("failed to record security event", zap.Error(err))
	}
}

func isBlank(v string) bool {
	return strings.TrimSpace(v) == ""
}
