package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/featureforge/internal/db"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show the journal timeline for one feature",
	RunE: func(cmd *cobra.Command, args []string) error {
		feature, _ := cmd.Flags().GetString("feature")
		if feature == "" {
			return fmt.Errorf("--feature is required")
		}

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

		events, err := database.GetFeatureHistory(feature)
		if err != nil {
			return err
		}
		invs, err := database.GetFeatureInvocations(feature)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if len(events) == 0 && len(invs) == 0 {
			fmt.Fprintf(w, "No journal entries for feature %q.\n", feature)
			return nil
		}

		fmt.Fprintf(w, "Events for %s:\n", feature)
		for _, e := range events {
			line := fmt.Sprintf("  %s  %-16s %-24s cycle=%d", e.Timestamp, e.Event, e.Stage, e.Cycle)
			if e.Detail != "" {
				line += "  " + e.Detail
			}
			fmt.Fprintln(w, line)
		}

		if len(invs) > 0 {
			fmt.Fprintf(w, "\nWorker invocations:\n")
			for _, inv := range invs {
				fmt.Fprintf(w, "  %s  %-24s %-24s exit=%d %dms\n",
					inv.Timestamp, inv.Stage, inv.Signal, inv.ExitCode, inv.DurationMs)
			}
		}
		return nil
	},
}

func init() {
	eventsCmd.Flags().String("feature", "", "Feature id to show")
	eventsCmd.Flags().String("config", "", "Path to forge.yaml")
	eventsCmd.Flags().String("db", "", "Path to the event journal database")
}
