package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/Hooksend/internal/replay"
	"github.com/SmitUplenchwar2687/Hooksend/internal/sender"
)

func newReplayCmd(g *globalOptions) *cobra.Command {
	var (
		file       string
		quota      int
		window     time.Duration
		speed      float64
		outcomes   []string
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay recorded send attempts against the current rules",
		Long: `Replays attempts recorded with --record through a fresh in-memory core.

Attempts are replayed in timestamp order on a virtual clock, so quotas and
blocks behave as they did live. Each delivery answers the way the webhook
originally did, and nothing is sent. Use --quota and --window to see how
different limits would have treated the same traffic.

Speed: 0 = instant, 1 = real-time, 10 = 10x`,
		Example: `  hooksend replay --file attempts.json
  hooksend replay --file attempts.json --quota 5 --window 1m
  hooksend replay --file attempts.json --outcomes sent,rate_limited --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}

			cfg := g.cfg
			if flagChanged(cmd, "quota") {
				cfg.Limiter.Quota = quota
			}
			if flagChanged(cmd, "window") {
				cfg.Limiter.Window = window
			}
			if err := cfg.Limiter.Validate(); err != nil {
				return err
			}

			filter := replay.Filter{}
			for _, o := range outcomes {
				filter.Outcomes = append(filter.Outcomes, sender.Status(strings.TrimSpace(o)))
			}

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("opening file: %w", err)
			}
			defer f.Close()

			r := replay.New(cfg, g.logger, speed, filter)
			if err := r.Load(f); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if !outputJSON {
				fmt.Fprintf(w, "Replaying %s at %gx speed...\n\n", file, speed)
			}

			var results []replay.Result
			summary, err := r.Run(cmd.Context(), func(res replay.Result) {
				if outputJSON {
					results = append(results, res)
					return
				}
				marker := " "
				if res.Changed() {
					marker = "*"
				}
				fmt.Fprintf(w, " %s[%-12s] %s %s\n",
					marker,
					res.Outcome.Status,
					res.Time.Format("15:04:05"),
					res.Outcome.Message)
			})
			if err != nil {
				return err
			}

			if outputJSON {
				if results == nil {
					results = []replay.Result{}
				}
				return printJSON(w, map[string]any{
					"results": results,
					"summary": summary,
				})
			}
			printSummary(w, summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to a recorded attempts JSON file (required)")
	cmd.Flags().IntVar(&quota, "quota", 0, "override the send quota")
	cmd.Flags().DurationVar(&window, "window", 0, "override the quota window")
	cmd.Flags().Float64Var(&speed, "speed", 0, "replay speed (0=instant, 1=real-time, 10=10x)")
	cmd.Flags().StringSliceVar(&outcomes, "outcomes", nil, "only replay attempts that originally ended this way (comma-separated)")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "output results as JSON")

	return cmd
}

func printSummary(w io.Writer, s *replay.Summary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "--- Replay Summary ---")
	fmt.Fprintf(w, "  Total records:  %d\n", s.TotalRecords)
	fmt.Fprintf(w, "  Filtered:       %d\n", s.Filtered)
	fmt.Fprintf(w, "  Replayed:       %d\n", s.Replayed)
	fmt.Fprintf(w, "  Changed:        %d\n", s.Changed)
	fmt.Fprintf(w, "  Violations:     %d\n", s.Violations)
	fmt.Fprintf(w, "  Virtual time:   %s\n", s.Duration)
	fmt.Fprintf(w, "  Wall time:      %s\n", s.WallDuration.Round(time.Millisecond))

	if len(s.PerStatus) > 0 {
		statuses := make([]string, 0, len(s.PerStatus))
		for st := range s.PerStatus {
			statuses = append(statuses, string(st))
		}
		sort.Strings(statuses)

		fmt.Fprintln(w)
		fmt.Fprintln(w, "  Per outcome:")
		for _, st := range statuses {
			fmt.Fprintf(w, "    %s: %d\n", st, s.PerStatus[sender.Status(st)])
		}
	}
}
