package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/featureforge/internal/requirements"
	"github.com/lucasnoah/featureforge/internal/state"
)

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "List the requirements in scheduling order with pipeline progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfigWithFlags(cmd)
		if err != nil {
			return err
		}

		reqs, err := requirements.Load(cfg.Paths.Requirements)
		if err != nil {
			return err
		}

		var p *state.Pipeline
		store := state.NewFileStore(cfg.Paths.State)
		if store.Exists() {
			if p, err = store.Load(); err != nil {
				return err
			}
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-20s %-4s %-10s %-24s %s\n", "FEATURE", "PRI", "DONE", "STATE", "TITLE")
		fmt.Fprintf(w, "%-20s %-4s %-10s %-24s %s\n",
			strings.Repeat("-", 20),
			strings.Repeat("-", 4),
			strings.Repeat("-", 10),
			strings.Repeat("-", 24),
			strings.Repeat("-", 5))
		for _, d := range reqs.Ordered() {
			done := ""
			if d.Completed {
				done = "yes"
			}
			stage := ""
			if p != nil {
				if f := p.Feature(d.ID); f != nil {
					stage = string(f.State)
				}
			}
			title := d.Title
			if len(title) > 40 {
				title = title[:37] + "..."
			}
			fmt.Fprintf(w, "%-20s %-4d %-10s %-24s %s\n", d.ID, d.Priority, done, stage, title)
		}
		return nil
	},
}

func init() {
	featuresCmd.Flags().String("config", "", "Path to forge.yaml")
	featuresCmd.Flags().String("requirements", "", "Path to the requirements list")
	featuresCmd.Flags().String("state", "", "Path to the pipeline state file")
}
