// Package worker executes the external worker process that performs the
// actual development work. The orchestrator treats the worker as a black
// box: it feeds in an instruction document and captures whatever text
// comes back for classification.
package worker

import (
	"fmt"
	"os"
	"sort"
)

// Tool describes one supported worker tool.
type Tool struct {
	Name string
	// Command is the argv prefix that runs the tool non-interactively
	// with instructions piped on stdin.
	Command []string
	// ModelFlag, when non-empty, is appended with the selected model.
	ModelFlag string
	// CredentialEnv is the environment variable the tool authenticates
	// with. Its absence is a fatal precondition, checked before any
	// sandbox is created.
	CredentialEnv string
	// Install is the shell command that installs the tool binary inside
	// a sandbox that lacks it.
	Install string
}

var tools = map[string]Tool{
	"claude": {
		Name:          "claude",
		Command:       []string{"claude", "-p", "--dangerously-skip-permissions"},
		ModelFlag:     "--model",
		CredentialEnv: "ANTHROPIC_API_KEY",
		Install:       "npm install -g @anthropic-ai/claude-code",
	},
	"codex": {
		Name:          "codex",
		Command:       []string{"codex", "exec", "--skip-git-repo-check"},
		ModelFlag:     "--model",
		CredentialEnv: "OPENAI_API_KEY",
		Install:       "npm install -g @openai/codex",
	},
}

// Lookup returns the tool registered under name.
func Lookup(name string) (Tool, error) {
	t, ok := tools[name]
	if !ok {
		return Tool{}, fmt.Errorf("unknown worker tool %q (known: %v)", name, Names())
	}
	return t, nil
}

// Names returns the registered tool names, sorted.
func Names() []string {
	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preflight verifies the tool's credential is present in the environment.
func (t Tool) Preflight() error {
	if t.CredentialEnv == "" {
		return nil
	}
	if os.Getenv(t.CredentialEnv) == "" {
		return fmt.Errorf("%s is not set; the %s tool cannot authenticate without it", t.CredentialEnv, t.Name)
	}
	return nil
}

// Argv returns the full command line for the tool, with the model
// selection appended untouched when set.
func (t Tool) Argv(model string) []string {
	argv := make([]string, len(t.Command))
	copy(argv, t.Command)
	if model != "" && t.ModelFlag != "" {
		argv = append(argv, t.ModelFlag, model)
	}
	return argv
}
