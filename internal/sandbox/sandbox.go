// Package sandbox manages the isolated execution environment bound to a
// feature for the duration of its worker invocations. The provider is
// docker behind a narrow Runner interface so tests inject a fake.
package sandbox

import (
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strings"

	"github.com/lucasnoah/featureforge/internal/worker"
)

// Runner executes docker commands. Interface for testing.
type Runner interface {
	Run(args ...string) (string, error)
}

// ExecDocker implements Runner using exec.Command.
type ExecDocker struct{}

func (d *ExecDocker) Run(args ...string) (string, error) {
	out, err := exec.Command("docker", args...).CombinedOutput()
	if err != nil {
		return strings.TrimSpace(string(out)), fmt.Errorf("docker %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// ProvisionError is a fatal environment failure. It carries remediation
// text because these failures are never auto-retried: the run aborts and
// the operator fixes the host.
type ProvisionError struct {
	Handle      string
	Remediation string
	Err         error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provision sandbox %s: %v (%s)", e.Handle, e.Err, e.Remediation)
}

func (e *ProvisionError) Unwrap() error { return e.Err }

// Manager creates, reuses, and tears down per-feature containers.
type Manager struct {
	runner  Runner
	image   string
	workdir string // host tree mounted at /workspace
	tool    worker.Tool
	log     io.Writer
}

// NewManager creates a Manager that provisions containers from image,
// mounting workdir as the container's workspace.
func NewManager(runner Runner, image string, workdir string, tool worker.Tool, log io.Writer) *Manager {
	if log == nil {
		log = io.Discard
	}
	return &Manager{runner: runner, image: image, workdir: workdir, tool: tool, log: log}
}

var invalidHandleChars = regexp.MustCompile(`[^a-z0-9-]+`)

// HandleFor derives the deterministic container name for a feature.
func HandleFor(featureID string) string {
	s := invalidHandleChars.ReplaceAllString(strings.ToLower(featureID), "-")
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = s[:50]
	}
	return "forge-" + s
}

// Ensure makes sure a healthy environment exists for the feature and
// returns its handle. Idempotent: a recorded handle whose container is
// still running is reused untouched; a recorded handle whose container
// was externally deleted is recreated transparently.
func (m *Manager) Ensure(featureID string, recorded string) (string, error) {
	handle := recorded
	if handle == "" {
		handle = HandleFor(featureID)
	}

	out, err := m.runner.Run("inspect", "-f", "{{.State.Running}}", handle)
	if err == nil {
		if out == "true" {
			return handle, nil
		}
		// Container exists but is stopped.
		if _, err := m.runner.Run("start", handle); err != nil {
			return "", &ProvisionError{
				Handle:      handle,
				Remediation: fmt.Sprintf("remove the stale container with: docker rm -f %s", handle),
				Err:         err,
			}
		}
		return handle, nil
	}

	if _, err := m.runner.Run("run", "-d", "--name", handle,
		"-v", m.workdir+":/workspace", "-w", "/workspace",
		m.image, "sleep", "infinity"); err != nil {
		return "", &ProvisionError{
			Handle:      handle,
			Remediation: "check that the docker daemon is running and the image is pullable",
			Err:         err,
		}
	}

	if err := m.provision(handle); err != nil {
		return "", err
	}
	return handle, nil
}

// provision verifies the worker's dependencies inside a fresh container,
// installing the worker tool itself when the image lacks it.
func (m *Manager) provision(handle string) error {
	for _, dep := range []string{"git", "jq"} {
		if _, err := m.runner.Run("exec", handle, "sh", "-c", "command -v "+dep); err != nil {
			return &ProvisionError{
				Handle:      handle,
				Remediation: fmt.Sprintf("use a sandbox image with %s preinstalled", dep),
				Err:         fmt.Errorf("%s not found in image %s", dep, m.image),
			}
		}
	}

	if _, err := m.runner.Run("exec", handle, "sh", "-c", "command -v "+m.tool.Name); err != nil {
		fmt.Fprintf(m.log, "  → installing %s in %s\n", m.tool.Name, handle)
		if _, err := m.runner.Run("exec", handle, "sh", "-c", m.tool.Install); err != nil {
			return &ProvisionError{
				Handle:      handle,
				Remediation: fmt.Sprintf("install manually with: docker exec %s sh -c %q", handle, m.tool.Install),
				Err:         err,
			}
		}
	}
	return nil
}

// Teardown removes the container. Best-effort: a leaked container is the
// safer failure mode, so the error is returned for logging only and must
// not block pipeline progress.
func (m *Manager) Teardown(handle string) error {
	if handle == "" {
		return nil
	}
	if _, err := m.runner.Run("rm", "-f", handle); err != nil {
		return fmt.Errorf("remove sandbox %s: %w", handle, err)
	}
	return nil
}

// List returns the handles of all forge-managed containers.
func (m *Manager) List() ([]string, error) {
	out, err := m.runner.Run("ps", "-a", "--filter", "name=forge-", "--format", "{{.Names}}")
	if err != nil {
		return nil, fmt.Errorf("list sandboxes: %w", err)
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// Disabled is the no-isolation mode: workers run directly against the
// shared tree and no handle lifecycle exists.
type Disabled struct{}

func (Disabled) Ensure(featureID string, recorded string) (string, error) { return "", nil }

func (Disabled) Teardown(handle string) error { return nil }
