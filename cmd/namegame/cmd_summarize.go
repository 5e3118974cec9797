package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/nvandessel/namegame/internal/metrics"
	"github.com/nvandessel/namegame/internal/runlog"
	"github.com/nvandessel/namegame/internal/store"
	"github.com/spf13/cobra"
)

func newSummarizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summarize [path]",
		Short: "Summarize run logs into convergence metrics",
		Long: `Summarize a JSONL run log, a directory of logs, or a stored run.

Reports per-seed rounds-to-target, token totals, final naming entropy and
agreement, and their cross-seed mean and standard deviation.

Examples:
  namegame summarize data/logs_schema_N24_R100_S5_20260101_120000.jsonl
  namegame summarize data/ --target 0.8
  namegame summarize --db data/namegame.db             # list stored runs
  namegame summarize --db data/namegame.db --run <id>`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			dbPath, _ := cmd.Flags().GetString("db")
			runID, _ := cmd.Flags().GetString("run")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			target := cfg.Run.Target
			if cmd.Flags().Changed("target") {
				target, _ = cmd.Flags().GetFloat64("target")
			}
			if target <= 0 || target > 1 {
				return fmt.Errorf("target must be in (0, 1], got %v", target)
			}

			var log *runlog.Log
			switch {
			case len(args) == 1 && dbPath != "":
				return errors.New("give either a log path or --db, not both")
			case len(args) == 1:
				if log, err = runlog.Load(args[0]); err != nil {
					return err
				}
			case dbPath != "":
				s, err := store.Open(dbPath)
				if err != nil {
					return fmt.Errorf("failed to open run store: %w", err)
				}
				defer s.Close()
				if runID == "" {
					runs, err := s.ListRuns(cmd.Context())
					if err != nil {
						return err
					}
					return printRuns(cmd.OutOrStdout(), runs, jsonOut)
				}
				if log, err = s.LoadRun(cmd.Context(), runID); err != nil {
					return err
				}
			default:
				return errors.New("a log path or --db is required")
			}

			sum := metrics.Summarize(log, target)
			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(sum)
			}
			printSummary(cmd.OutOrStdout(), sum)
			return nil
		},
	}

	cmd.Flags().String("db", "", "SQLite run store to read instead of a JSONL path")
	cmd.Flags().String("run", "", "Run id in the --db store")
	cmd.Flags().Float64("target", 0, "Agreement threshold for rounds-to-target (default from config)")

	return cmd
}

func printSummary(w io.Writer, sum metrics.Summary) {
	fmt.Fprintf(w, "Target agreement: %.2f\n\n", sum.Target)
	if len(sum.Seeds) == 0 {
		fmt.Fprintln(w, "No round aggregates found.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEED\tROUNDS\tTO TARGET\tTOKENS\tENTROPY\tAGREEMENT\tSUCCESS")
	for _, s := range sum.Seeds {
		rtt := "-"
		if s.RoundsToTarget != nil {
			rtt = fmt.Sprintf("%d", *s.RoundsToTarget)
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%.3f\t%.3f\t%.3f\n",
			s.Seed, s.Rounds, rtt, humanize.Comma(int64(s.TokensTotal)),
			s.FinalEntropy, s.FinalAgreement, s.SuccessRate)
	}
	tw.Flush()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "rounds_to_target: %s ± %s\n", formatStat(sum.RoundsToTargetMean), formatStat(sum.RoundsToTargetStd))
	fmt.Fprintf(w, "tokens_total:     %s\n", formatTokens(sum.TokensTotalMean))
	fmt.Fprintf(w, "final_entropy:    %s ± %s\n", formatStat(sum.FinalEntropyMean), formatStat(sum.FinalEntropyStd))
}

func printRuns(w io.Writer, runs []store.Run, jsonOut bool) error {
	if jsonOut {
		if runs == nil {
			runs = []store.Run{}
		}
		return json.NewEncoder(w).Encode(map[string]any{"runs": runs, "count": len(runs)})
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No stored runs.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tCONDITION\tN\tR\tS\tSOURCE")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID, humanize.Time(r.StartedAt), r.Condition, r.Population, r.Rounds, r.Seeds, r.Source)
	}
	return tw.Flush()
}

// formatStat renders NaN as "n/a".
func formatStat(f float64) string {
	if math.IsNaN(f) {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", f)
}

// formatTokens rounds to one decimal; CommafWithDigits alone truncates.
func formatTokens(f float64) string {
	if math.IsNaN(f) {
		return "n/a"
	}
	return humanize.CommafWithDigits(math.Round(f*10)/10, 1)
}
