package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/featureforge/internal/analytics"
	"github.com/lucasnoah/featureforge/internal/db"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate pipeline stats from the event journal",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfigWithFlags(cmd)
		if err != nil {
			return err
		}

		database, err := db.Open(cfg.Paths.DB)
		if err != nil {
			return err
		}
		defer database.Close()
		if err := database.Migrate(); err != nil {
			return err
		}

		since, _ := cmd.Flags().GetString("since")
		w := cmd.OutOrStdout()

		stages, err := analytics.QueryStageStats(database, since)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "Stage invocations:")
		fmt.Fprintf(w, "  %-20s %-6s %-6s %-9s %-9s %s\n", "STAGE", "RUNS", "FAIL", "AVG(s)", "P50(s)", "P95(s)")
		for _, s := range stages {
			fmt.Fprintf(w, "  %-20s %-6d %-6d %-9.1f %-9.1f %.1f\n",
				s.Stage, s.Count, s.Failures, s.AvgSec, s.P50Sec, s.P95Sec)
		}

		churn, err := analytics.QueryFeatureChurn(database, since)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "\nFeature churn:")
		fmt.Fprintf(w, "  %-20s %-8s %-8s %s\n", "FEATURE", "INVOKES", "FAIL", "FAIL%")
		for _, c := range churn {
			fmt.Fprintf(w, "  %-20s %-8d %-8d %.1f\n", c.Feature, c.Invocations, c.Failures, c.FailurePct)
		}

		signals, err := analytics.QuerySignalBreakdown(database, since)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "\nSignal breakdown:")
		for _, s := range signals {
			fmt.Fprintf(w, "  %-26s %-6d %.1f%%\n", s.Signal, s.Count, s.Pct)
		}

		runs, err := analytics.QueryRunSummaries(database, 10)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "\nRecent runs:")
		for _, r := range runs {
			id := r.RunID
			if len(id) > 8 {
				id = id[:8]
			}
			fmt.Fprintf(w, "  %-10s %-20s %-17s invocations=%-4d completed=%d\n",
				id, r.StartedAt, r.Status, r.Invocations, r.Completed)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().String("since", "", "Only include journal rows at or after this timestamp")
	statsCmd.Flags().String("config", "", "Path to forge.yaml")
	statsCmd.Flags().String("db", "", "Path to the event journal database")
}
