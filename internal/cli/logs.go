package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/Hooksend/internal/eventlog"
)

func newLogsCmd(g *globalOptions) *cobra.Command {
	var (
		outputJSON bool
		typ        string
		export     string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the security event log",
		Long: `Shows the most recent security events, oldest first. At most 100 entries
are kept.

Types: validation_failure, rate_limit, blocked, suspicious`,
		Example: `  hooksend logs
  hooksend logs --type suspicious
  hooksend logs --export security-log.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := eventlog.Type(typ)
			if t != "" && !t.Valid() {
				return fmt.Errorf("unknown event type %q", typ)
			}

			ctx := cmd.Context()
			a, err := g.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if export != "" {
				f, err := os.Create(export)
				if err != nil {
					return fmt.Errorf("creating export file: %w", err)
				}
				defer f.Close()
				if err := a.Events.ExportJSON(ctx, f); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported security log to %s\n", export)
				return nil
			}

			entries := a.Events.ReadAll(ctx)
			if t != "" {
				entries = a.Events.Filter(ctx, t)
			}

			if outputJSON {
				return printJSON(cmd.OutOrStdout(), entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No security events.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tTYPE\tREASON")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Timestamp, e.Type, e.Reason)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false, "output as JSON")
	cmd.Flags().StringVar(&typ, "type", "", "only show events of this type")
	cmd.Flags().StringVar(&export, "export", "", "write the full log as JSON to this file")
	return cmd
}
