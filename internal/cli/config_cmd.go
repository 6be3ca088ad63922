package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lucasnoah/featureforge/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and validate the orchestrator configuration",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and report every problem found",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfigWithFlags(cmd)
		if err != nil {
			return err
		}

		errs := config.Validate(cfg)
		if len(errs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid.")
			return nil
		}
		for _, e := range errs {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", e)
		}
		return fmt.Errorf("%d validation error(s)", len(errs))
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration after defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfigWithFlags(cmd)
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
	configValidateCmd.Flags().String("config", "", "Path to forge.yaml")
	configShowCmd.Flags().String("config", "", "Path to forge.yaml")
}
