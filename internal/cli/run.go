package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lucasnoah/featureforge/internal/config"
	"github.com/lucasnoah/featureforge/internal/db"
	"github.com/lucasnoah/featureforge/internal/instructions"
	"github.com/lucasnoah/featureforge/internal/orchestrator"
	"github.com/lucasnoah/featureforge/internal/requirements"
	"github.com/lucasnoah/featureforge/internal/sandbox"
	"github.com/lucasnoah/featureforge/internal/state"
	"github.com/lucasnoah/featureforge/internal/worker"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline until all features complete or the budget runs out",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfigWithFlags(cmd)
		if err != nil {
			return err
		}
		if errs := config.Validate(cfg); len(errs) > 0 {
			for _, e := range errs {
				fmt.Fprintf(cmd.ErrOrStderr(), "config: %s\n", e)
			}
			return fmt.Errorf("invalid configuration (%d error(s))", len(errs))
		}

		tool, err := worker.Lookup(cfg.Tool)
		if err != nil {
			return err
		}
		// Credential preflight happens before any sandbox is created.
		if err := tool.Preflight(); err != nil {
			return err
		}

		reqs, err := requirements.Load(cfg.Paths.Requirements)
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

		runID := uuid.NewString()
		if err := database.BeginRun(runID); err != nil {
			return err
		}

		workdir, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}

		var sandboxes orchestrator.SandboxManager
		if cfg.Sandbox.Disabled {
			sandboxes = sandbox.Disabled{}
		} else {
			sandboxes = sandbox.NewManager(&sandbox.ExecDocker{}, cfg.Sandbox.Image, workdir, tool, cmd.ErrOrStderr())
		}

		keep, _ := cmd.Flags().GetBool("keep-sandboxes")
		orch := orchestrator.New(orchestrator.Options{
			Store:        state.NewFileStore(cfg.Paths.State),
			Requirements: reqs,
			Sandboxes:    sandboxes,
			Invoker:      worker.NewExecInvoker(tool, cfg.Model, workdir, cmd.ErrOrStderr()),
			Instructions: instructions.NewBuilder(cfg.Paths.Templates),
			Journal:      database.NewRunJournal(runID),
			Progress:     cmd.ErrOrStderr(),
			Actor:        tool.Name,
			InitConfig: state.Config{
				MaxReviewCycles:    cfg.Cycles.MaxReview,
				MaxQACycles:        cfg.Cycles.MaxQA,
				SkipAfterMaxReview: cfg.Cycles.SkipAfterMaxReview,
				SkipAfterMaxQA:     cfg.Cycles.SkipAfterMaxQA,
			},
			KeepSandboxes: keep || cfg.Sandbox.KeepOnSuccess,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		runErr := orch.Run(ctx, cfg.MaxIterations)
		status := runStatus(runErr)
		detail := ""
		if runErr != nil {
			detail = runErr.Error()
		}
		_ = database.FinishRun(runID, status, detail)

		if runErr == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "run complete: all features finished")
		}
		return runErr
	},
}

// runStatus maps the orchestrator's outcome onto the runs table vocabulary.
func runStatus(err error) string {
	switch {
	case err == nil:
		return "completed"
	case errors.Is(err, orchestrator.ErrBudgetExhausted):
		return "budget_exhausted"
	case errors.Is(err, orchestrator.ErrInterrupted):
		return "interrupted"
	default:
		return "fatal"
	}
}

// loadConfigWithFlags loads the config file (explicit path or default
// search) and overlays any flags the user set.
func loadConfigWithFlags(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}

	if v, _ := cmd.Flags().GetString("state"); v != "" {
		cfg.Paths.State = v
	}
	if v, _ := cmd.Flags().GetString("requirements"); v != "" {
		cfg.Paths.Requirements = v
	}
	if v, _ := cmd.Flags().GetString("db"); v != "" {
		cfg.Paths.DB = v
	}
	if v, _ := cmd.Flags().GetString("tool"); v != "" {
		cfg.Tool = v
	}
	if v, _ := cmd.Flags().GetString("model"); v != "" {
		cfg.Model = v
	}
	if cmd.Flags().Changed("max-iterations") {
		v, _ := cmd.Flags().GetInt("max-iterations")
		cfg.MaxIterations = v
	}
	if noSandbox, _ := cmd.Flags().GetBool("no-sandbox"); noSandbox {
		cfg.Sandbox.Disabled = true
	}
	if v, _ := cmd.Flags().GetString("image"); v != "" {
		cfg.Sandbox.Image = v
	}
	return cfg, nil
}

func init() {
	runCmd.Flags().String("config", "", "Path to forge.yaml (default: search standard locations)")
	runCmd.Flags().String("state", "", "Path to the pipeline state file")
	runCmd.Flags().String("requirements", "", "Path to the requirements list")
	runCmd.Flags().String("db", "", "Path to the event journal database")
	runCmd.Flags().String("tool", "", "Worker tool to invoke (claude, codex)")
	runCmd.Flags().String("model", "", "Model selection passed through to the worker untouched")
	runCmd.Flags().Int("max-iterations", 0, "Maximum worker invocations before halting")
	runCmd.Flags().Bool("no-sandbox", false, "Run workers directly against the shared tree")
	runCmd.Flags().Bool("keep-sandboxes", false, "Skip sandbox teardown on feature completion")
	runCmd.Flags().String("image", "", "Sandbox container image")
}
