// Package app wires the abuse-prevention core together from configuration.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/Hooksend/internal/blocker"
	"github.com/SmitUplenchwar2687/Hooksend/internal/clock"
	"github.com/SmitUplenchwar2687/Hooksend/internal/config"
	"github.com/SmitUplenchwar2687/Hooksend/internal/draft"
	"github.com/SmitUplenchwar2687/Hooksend/internal/eventlog"
	"github.com/SmitUplenchwar2687/Hooksend/internal/limiter"
	"github.com/SmitUplenchwar2687/Hooksend/internal/schema"
	"github.com/SmitUplenchwar2687/Hooksend/internal/sender"
	"github.com/SmitUplenchwar2687/Hooksend/internal/store"
	"github.com/SmitUplenchwar2687/Hooksend/internal/validate"
	"github.com/SmitUplenchwar2687/Hooksend/internal/webhook"
)

// App bundles the core components. Every surface drives the same App.
type App struct {
	Config    config.Config
	Logger    *zap.Logger
	Clock     clock.Clock
	Store     store.Store
	Schema    *schema.Schema
	Validator *validate.Validator
	Events    *eventlog.Log
	Blocker   *blocker.Blocker
	Limiter   *limiter.Limiter
	Drafts    *draft.Store
	Sender    *sender.Sender
}

type options struct {
	clock    clock.Clock
	store    store.Store
	delivery sender.Deliverer
	screen   sender.Screen
}

// Option overrides a collaborator, mostly for tests.
type Option func(*options)

// WithClock replaces the real clock.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithStore uses s instead of opening the configured backend. The App takes
// ownership and closes it.
func WithStore(s store.Store) Option {
	return func(o *options) { o.store = s }
}

// WithDeliverer replaces the HTTP webhook client.
func WithDeliverer(d sender.Deliverer) Option {
	return func(o *options) { o.delivery = d }
}

// WithScreen adds a check ahead of the per-field validation.
func WithScreen(fn sender.Screen) Option {
	return func(o *options) { o.screen = fn }
}

// New builds an App in dependency order: store, schema, validator, event
// log, blocker, limiter, sender.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = clock.NewRealClock()
	}

	if err := cfg.Validate(); err != nil {
		if o.store != nil {
			o.store.Close()
		}
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	st := o.store
	if st == nil {
		var err error
		st, err = store.Open(ctx, cfg.Store, logger.Named("store"))
		if err != nil {
			return nil, err
		}
	}

	a, err := build(cfg, logger, o, st)
	if err != nil {
		st.Close()
		return nil, err
	}
	return a, nil
}

func build(cfg config.Config, logger *zap.Logger, o options, st store.Store) (*App, error) {
	clk, delivery := o.clock, o.delivery

	sch := schema.New(st, logger.Named("schema"))

	v, err := validate.New(cfg.Validation.Options())
	if err != nil {
		return nil, fmt.Errorf("building validator: %w", err)
	}

	events := eventlog.New(sch, clk, logger.Named("events"))
	b := blocker.New(sch, logger.Named("blocker"))

	lim, err := limiter.New(sch, b, clk, cfg.Limiter, logger.Named("limiter"))
	if err != nil {
		return nil, fmt.Errorf("building limiter: %w", err)
	}

	if delivery == nil {
		delivery = webhook.NewClient(cfg.Sender.SendTimeout, logger.Named("webhook"))
	}

	drafts := draft.NewStore(sch)
	snd, err := sender.New(sender.Deps{
		Schema:    sch,
		Validator: v,
		Limiter:   lim,
		Blocker:   b,
		Events:    events,
		Drafts:    drafts,
		Delivery:  delivery,
		Screen:    o.screen,
		Clock:     clk,
		Logger:    logger.Named("sender"),
	}, cfg.Sender)
	if err != nil {
		return nil, fmt.Errorf("building sender: %w", err)
	}

	return &App{
		Config:    cfg,
		Logger:    logger,
		Clock:     clk,
		Store:     st,
		Schema:    sch,
		Validator: v,
		Events:    events,
		Blocker:   b,
		Limiter:   lim,
		Drafts:    drafts,
		Sender:    snd,
	}, nil
}

// NewDraft returns a draft seeded with the remembered profile and, when no
// webhook was remembered, the configured default webhook.
func (a *App) NewDraft(ctx context.Context) *draft.Draft {
	d := a.Drafts.Load(ctx)
	if d.WebhookURL == "" {
		d.WebhookURL = a.Config.Webhook.DefaultURL
	}
	return d
}

// Close releases the store. It is safe to call more than once.
func (a *App) Close() error {
	if err := a.Store.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}
	return nil
}
