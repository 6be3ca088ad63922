package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "forge",
	Short: "featureforge — a feature pipeline orchestrator",
	Long: `featureforge drives features through implementation, review, and QA
stages executed by external worker tools, one feature at a time, each in
its own sandboxed environment.

Pipeline state lives in a single JSON file written atomically after every
transition; a SQLite journal records every run, event, and invocation.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(featuresCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(initCmd)
}
