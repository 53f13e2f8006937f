package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/Hooksend/internal/sender"
)

func newStatusCmd(g *globalOptions) *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show quota usage, violations and any active block",
		Example: `  hooksend status
  hooksend status --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			snap := a.Sender.Status(cmd.Context())
			if outputJSON {
				return printJSON(cmd.OutOrStdout(), snap)
			}
			printStatus(cmd.OutOrStdout(), snap)
			return nil
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false, "output as JSON")
	return cmd
}

func printStatus(w io.Writer, s sender.Snapshot) {
	fmt.Fprintf(w, "Usage:        %d/%d messages in the last %s (%d remaining)\n", s.Used, s.Quota, s.Window, s.Remaining)
	fmt.Fprintf(w, "Strikes:      %d/%d\n", s.Strikes, s.StrikeLimit)
	fmt.Fprintf(w, "Violations:   %d (next block %s)\n", s.Block.Violations, s.Block.NextBlock)
	if s.Block.Blocked {
		fmt.Fprintf(w, "Block:        active, %s remaining\n", s.Block.Countdown)
	} else {
		fmt.Fprintln(w, "Block:        none")
	}
	fmt.Fprintf(w, "Log entries:  %d\n", s.LogEntries)
}
