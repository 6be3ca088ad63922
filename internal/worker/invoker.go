package worker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/lucasnoah/featureforge/internal/state"
)

// Task is one worker invocation: the stage being executed and the
// assembled instruction document for it.
type Task struct {
	FeatureID     string
	Stage         state.Stage
	Instructions  string
	SandboxHandle string // empty when sandboxing is disabled
}

// Result is the captured outcome of a worker invocation. A non-zero
// ExitCode is not an error: partial output may still carry a valid
// completion signal, so classification always runs on Output.
type Result struct {
	Output   string
	ExitCode int
	Duration time.Duration
}

// Invoker runs a worker to completion. Implementations block until the
// worker terminates.
type Invoker interface {
	Invoke(ctx context.Context, task Task) (Result, error)
}

// ExecInvoker runs the worker tool as a subprocess, inside the task's
// sandbox when one is attached, directly in Dir otherwise. Output is
// streamed live to Progress and captured in full.
type ExecInvoker struct {
	Tool     Tool
	Model    string
	Dir      string
	Progress io.Writer
}

// NewExecInvoker creates an ExecInvoker for the given tool.
func NewExecInvoker(tool Tool, model string, dir string, progress io.Writer) *ExecInvoker {
	if progress == nil {
		progress = io.Discard
	}
	return &ExecInvoker{Tool: tool, Model: model, Dir: dir, Progress: progress}
}

// Invoke executes the worker and returns its full combined output.
// An error is returned only when the worker could not be executed at
// all, or the context was cancelled mid-run.
func (e *ExecInvoker) Invoke(ctx context.Context, task Task) (Result, error) {
	argv := e.argv(task)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = strings.NewReader(task.Instructions)
	if task.SandboxHandle == "" && e.Dir != "" {
		cmd.Dir = e.Dir
	}

	var buf lockedBuffer
	// A single writer value on both streams keeps os/exec from writing
	// to it concurrently.
	sink := io.MultiWriter(&buf, e.Progress)
	cmd.Stdout = sink
	cmd.Stderr = sink

	start := time.Now()
	err := cmd.Run()
	res := Result{Output: buf.String(), Duration: time.Since(start)}

	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("exec %s: %w", e.Tool.Name, err)
	}
	return res, nil
}

// argv assembles the command line. Inside a sandbox the tool runs via
// docker exec with the credential passed through; otherwise it runs
// directly against the shared tree.
func (e *ExecInvoker) argv(task Task) []string {
	tool := e.Tool.Argv(e.Model)
	if task.SandboxHandle == "" {
		return tool
	}
	argv := []string{"docker", "exec", "-i"}
	if env := e.Tool.CredentialEnv; env != "" {
		argv = append(argv, "-e", fmt.Sprintf("%s=%s", env, os.Getenv(env)))
	}
	argv = append(argv, task.SandboxHandle)
	return append(argv, tool...)
}

// lockedBuffer is a bytes.Buffer safe for the writer fan-in above.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
