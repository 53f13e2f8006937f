package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/Hooksend/internal/app"
)

func newWatchCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Show a live countdown until an active block is lifted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := g.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			return watchBlock(ctx, cmd.OutOrStdout(), a)
		},
	}
}

// watchBlock redraws the remaining block time once a second and returns when
// the block expires or ctx is cancelled.
func watchBlock(ctx context.Context, w io.Writer, a *app.App) error {
	now := a.Clock.Now()
	if !a.Blocker.IsBlocked(ctx, now) {
		fmt.Fprintln(w, "Not blocked.")
		return nil
	}

	ticker := a.Clock.NewTicker(time.Second)
	defer ticker.Stop()

	fmt.Fprintf(w, "\rBlocked: %s remaining ", a.Blocker.FormattedRemaining(ctx, now))
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(w)
			return nil
		case now := <-ticker.C():
			if !a.Blocker.IsBlocked(ctx, now) {
				fmt.Fprintln(w, "\nBlock lifted. You can send again.")
				return nil
			}
			fmt.Fprintf(w, "\rBlocked: %s remaining ", a.Blocker.FormattedRemaining(ctx, now))
		}
	}
}
