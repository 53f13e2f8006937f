package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/Hooksend/internal/app"
	"github.com/SmitUplenchwar2687/Hooksend/internal/config"
	"github.com/SmitUplenchwar2687/Hooksend/internal/logging"
)

// Environment variables read at startup, after .env is loaded.
const (
	EnvConfig     = "HOOKSEND_CONFIG"
	EnvWebhookURL = "HOOKSEND_WEBHOOK_URL"
)

// globalOptions holds the persistent flags every command shares.
type globalOptions struct {
	configPath string
	envFile    string
	logLevel   string
	store      storeOptions

	// appOptions lets tests swap the clock, store or delivery.
	appOptions []app.Option

	cfg    config.Config
	logger *zap.Logger
}

// NewRootCmd creates the root hooksend command.
func NewRootCmd() *cobra.Command {
	return newRootCmd()
}

func newRootCmd(appOptions ...app.Option) *cobra.Command {
	g := &globalOptions{
		store:      defaultStoreOptions(),
		appOptions: appOptions,
	}

	root := &cobra.Command{
		Use:   "hooksend",
		Short: "Send webhook messages with built-in abuse prevention",
		Long: `Hooksend composes and sends messages to a chat webhook. Every send is
validated, checked for suspicious content and rate limited. Repeated abuse
triggers progressively longer temporary blocks.

State (usage history, violations, blocks and the security log) is kept in a
local file by default, or in memory or Redis.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if g.logger != nil {
				_ = g.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "path to TOML config file (env "+EnvConfig+")")
	pf.StringVar(&g.envFile, "env-file", ".env", "dotenv file loaded when present")
	pf.StringVar(&g.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	g.store.addFlags(root)

	root.AddCommand(
		newSendCmd(g),
		newStatusCmd(g),
		newLogsCmd(g),
		newResetCmd(g),
		newWatchCmd(g),
		newServeCmd(g),
		newReplayCmd(g),
		newConfigCmd(),
	)

	return root
}

// load resolves configuration: defaults, then the config file, then the
// environment, then explicitly set flags.
func (g *globalOptions) load(cmd *cobra.Command) error {
	if err := godotenv.Load(g.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", g.envFile, err)
	}

	path := g.configPath
	if path == "" {
		path = os.Getenv(EnvConfig)
	}

	cfg := config.Default()
	if path != "" {
		var err error
		cfg, err = config.LoadFile(path)
		if err != nil {
			return err
		}
	}

	if url := os.Getenv(EnvWebhookURL); url != "" {
		cfg.Webhook.DefaultURL = url
	}
	if flagChanged(cmd, "log-level") {
		cfg.Log.Level = g.logLevel
	}
	if err := g.store.apply(cmd, &cfg.Store); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	g.cfg = cfg
	g.logger = logger
	return nil
}

// openApp builds the core from the resolved configuration. Callers close it.
func (g *globalOptions) openApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, g.cfg, g.logger, g.appOptions...)
}

// flagChanged reports whether a local or inherited flag was set explicitly.
func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flag(name)
	return f != nil && f.Changed
}
