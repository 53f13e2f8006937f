package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/Hooksend/internal/recorder"
	"github.com/SmitUplenchwar2687/Hooksend/internal/server"
)

func newServeCmd(g *globalOptions) *cobra.Command {
	var (
		addr       string
		auditLog   string
		recordFile string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local HTTP and WebSocket API",
		Long: `Starts a local API over the same send pipeline the CLI uses.

Endpoints:
  GET  /health            Health check
  GET  /api/status        Quota, strikes, violations and block countdown
  POST /api/send          Send a JSON draft
  GET  /api/logs          Security event log (?type= to filter)
  POST /api/notice/ack    Acknowledge the responsible-use notice
  WS   /ws                Live security events and a once-a-second status`,
		Example: `  hooksend serve
  hooksend serve --addr 127.0.0.1:9090 --audit-log audit.jsonl
  hooksend serve --record attempts.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagChanged(cmd, "addr") {
				g.cfg.Server.Addr = addr
			}
			if flagChanged(cmd, "audit-log") {
				g.cfg.Server.AuditLog = auditLog
			}

			// Graceful shutdown on SIGINT/SIGTERM.
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := g.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if path := g.cfg.Server.AuditLog; path != "" {
				f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
				if err != nil {
					return fmt.Errorf("opening audit log: %w", err)
				}
				defer f.Close()
				a.Events.StreamTo(f)
			}

			srv := server.New(a)
			var rec *recorder.Recorder
			if recordFile != "" {
				rec = recorder.New(nil)
				srv.SetRecorder(rec)
			}
			srv.Run(ctx)

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				stop()
				srv.Wait()
				return err
			case <-ctx.Done():
				g.logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				err := srv.Shutdown(shutdownCtx)
				srv.Wait()
				if err != nil {
					g.logger.Error("shutdown failed", zap.Error(err))
				}

				if rec != nil {
					g.logger.Info("exporting recorded attempts",
						zap.Int("count", rec.Len()),
						zap.String("file", recordFile))
					if err := rec.ExportFile(recordFile); err != nil {
						g.logger.Error("failed to export recorded attempts", zap.Error(err))
					}
				}
				return err
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "address to listen on")
	cmd.Flags().StringVar(&auditLog, "audit-log", "", "append every security event as a JSON line to this file")
	cmd.Flags().StringVar(&recordFile, "record", "", "record send attempts to a JSON file (exported on shutdown)")

	return cmd
}
