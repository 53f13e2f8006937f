package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/Hooksend/internal/sender"
)

func newResetCmd(g *globalOptions) *cobra.Command {
	var (
		scope sender.ResetScope
		all   bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear security state (administrators only)",
		Long: `Clears the selected security state. Clearing violations also lifts any
active block and forgets suspicious-content strikes.`,
		Example: `  hooksend reset --block
  hooksend reset --usage --logs
  hooksend reset --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				scope = sender.ResetEverything
			}
			if scope == (sender.ResetScope{}) {
				return fmt.Errorf("nothing to reset: pass --all or at least one of --usage, --violations, --block, --logs")
			}

			a, err := g.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Sender.Reset(cmd.Context(), scope); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Security state reset.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&scope.Usage, "usage", false, "clear the usage history")
	cmd.Flags().BoolVar(&scope.Violations, "violations", false, "clear violations, strikes and any block")
	cmd.Flags().BoolVar(&scope.Block, "block", false, "lift the active block, keeping violations")
	cmd.Flags().BoolVar(&scope.Logs, "logs", false, "clear the security event log")
	cmd.Flags().BoolVar(&all, "all", false, "clear everything")
	return cmd
}
