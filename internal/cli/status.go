package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/featureforge/internal/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the pipeline state of every tracked feature",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfigWithFlags(cmd)
		if err != nil {
			return err
		}

		store := state.NewFileStore(cfg.Paths.State)
		if !store.Exists() {
			fmt.Fprintln(cmd.OutOrStdout(), "No state file found. Run `forge run` to initialize the pipeline.")
			return nil
		}
		p, err := store.Load()
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		if format == "json" {
			data, _ := json.MarshalIndent(p, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		ids := make([]string, 0, len(p.Features))
		for id := range p.Features {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		w := cmd.OutOrStdout()
		if p.CurrentFeatureID != "" {
			fmt.Fprintf(w, "Current feature: %s\n\n", p.CurrentFeatureID)
		}
		fmt.Fprintf(w, "%-20s %-24s %-7s %-7s %s\n", "FEATURE", "STATE", "CYCLES", "ISSUES", "SANDBOX")
		fmt.Fprintf(w, "%-20s %-24s %-7s %-7s %s\n",
			strings.Repeat("-", 20),
			strings.Repeat("-", 24),
			strings.Repeat("-", 7),
			strings.Repeat("-", 7),
			strings.Repeat("-", 7))
		for _, id := range ids {
			f := p.Features[id]
			fmt.Fprintf(w, "%-20s %-24s %-7d %-7d %s\n",
				id, f.State, f.ReviewCycleCount, len(f.CurrentIssues), f.SandboxHandle)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().String("format", "text", "Output format: text or json")
	statusCmd.Flags().String("config", "", "Path to forge.yaml")
	statusCmd.Flags().String("state", "", "Path to the pipeline state file")
}
