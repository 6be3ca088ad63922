package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/featureforge/internal/instructions"
)

const starterConfig = `# featureforge configuration
tool: claude
# model: claude-sonnet-4-5

max_iterations: 50

cycles:
  max_review: 3
  max_qa: 3
  skip_after_max_review: false
  skip_after_max_qa: false

sandbox:
  disabled: false
  image: node:22-bookworm
  keep_on_success: false

paths:
  state: .forge/state.json
  requirements: requirements.json
  db: .forge/forge.db
`

const starterRequirements = `[
  {
    "id": "example-feature",
    "title": "Example feature",
    "description": "Replace this with a real feature description.",
    "acceptance": [
      "Describe what must be true for this feature to pass QA."
    ],
    "priority": 1,
    "requiresBackendWork": true,
    "requiresFrontendWork": true,
    "completed": false
  }
]
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter forge.yaml and requirements.json and install the built-in templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()

		for _, f := range []struct {
			path    string
			content string
		}{
			{"forge.yaml", starterConfig},
			{"requirements.json", starterRequirements},
		} {
			if _, err := os.Stat(f.path); err == nil {
				fmt.Fprintf(w, "%s already exists, leaving it untouched\n", f.path)
				continue
			}
			if err := os.WriteFile(f.path, []byte(f.content), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", f.path, err)
			}
			fmt.Fprintf(w, "wrote %s\n", f.path)
		}

		if err := instructions.InstallBuiltinTemplates(); err != nil {
			return err
		}
		fmt.Fprintln(w, "installed built-in stage templates under ~/.forge/templates")
		return nil
	},
}
