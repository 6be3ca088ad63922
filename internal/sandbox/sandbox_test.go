package sandbox

import (
	"errors"
	"strings"
	"testing"

	"github.com/lucasnoah/featureforge/internal/worker"
)

// fakeRunner plays back scripted docker results keyed by call order.
type fakeRunner struct {
	results []fakeResult
	calls   [][]string
}

type fakeResult struct {
	out string
	err error
}

func (r *fakeRunner) Run(args ...string) (string, error) {
	r.calls = append(r.calls, args)
	if len(r.calls) > len(r.results) {
		return "", nil
	}
	res := r.results[len(r.calls)-1]
	return res.out, res.err
}

func (r *fakeRunner) call(i int) string {
	if i >= len(r.calls) {
		return ""
	}
	return strings.Join(r.calls[i], " ")
}

func newTestManager(runner *fakeRunner) *Manager {
	tool, _ := worker.Lookup("claude")
	return NewManager(runner, "node:22-bookworm", "/repo", tool, nil)
}

func TestHandleForSanitizes(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"auth", "forge-auth"},
		{"User Login!", "forge-user-login"},
		{"a__b..c", "forge-a-b-c"},
		{"--weird--", "forge-weird"},
		{strings.Repeat("x", 80), "forge-" + strings.Repeat("x", 50)},
	}
	for _, tc := range tests {
		if got := HandleFor(tc.in); got != tc.want {
			t.Errorf("HandleFor(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEnsureReusesRunningContainer(t *testing.T) {
	runner := &fakeRunner{results: []fakeResult{
		{out: "true"}, // inspect
	}}
	m := newTestManager(runner)

	handle, err := m.Ensure("auth", "forge-auth")
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if handle != "forge-auth" {
		t.Errorf("handle = %q, want forge-auth", handle)
	}
	if len(runner.calls) != 1 {
		t.Errorf("docker calls = %d, want 1 (inspect only)", len(runner.calls))
	}
}

func TestEnsureRestartsStoppedContainer(t *testing.T) {
	runner := &fakeRunner{results: []fakeResult{
		{out: "false"}, // inspect: exists, not running
		{},             // start
	}}
	m := newTestManager(runner)

	handle, err := m.Ensure("auth", "forge-auth")
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if handle != "forge-auth" {
		t.Errorf("handle = %q, want forge-auth", handle)
	}
	if got := runner.call(1); got != "start forge-auth" {
		t.Errorf("second call = %q, want start", got)
	}
}

func TestEnsureRecreatesDeletedContainer(t *testing.T) {
	runner := &fakeRunner{results: []fakeResult{
		{err: errors.New("no such container")}, // inspect
		{},                                     // run
		{out: "/usr/bin/git"},                  // command -v git
		{out: "/usr/bin/jq"},                   // command -v jq
		{out: "/usr/local/bin/claude"},         // command -v claude
	}}
	m := newTestManager(runner)

	handle, err := m.Ensure("auth", "forge-auth")
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if handle != "forge-auth" {
		t.Errorf("handle = %q, want the recorded handle back", handle)
	}

	create := runner.call(1)
	for _, fragment := range []string{"run -d", "--name forge-auth", "-v /repo:/workspace", "node:22-bookworm", "sleep infinity"} {
		if !strings.Contains(create, fragment) {
			t.Errorf("create call %q missing %q", create, fragment)
		}
	}
}

func TestEnsureDerivesHandleWhenNoneRecorded(t *testing.T) {
	runner := &fakeRunner{results: []fakeResult{
		{err: errors.New("no such container")},
		{}, {out: "ok"}, {out: "ok"}, {out: "ok"},
	}}
	m := newTestManager(runner)

	handle, err := m.Ensure("User Auth", "")
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if handle != "forge-user-auth" {
		t.Errorf("handle = %q, want forge-user-auth", handle)
	}
}

func TestEnsureInstallsMissingTool(t *testing.T) {
	runner := &fakeRunner{results: []fakeResult{
		{err: errors.New("no such container")}, // inspect
		{},                                     // run
		{out: "/usr/bin/git"},
		{out: "/usr/bin/jq"},
		{err: errors.New("exit 127")}, // command -v claude fails
		{},                            // install
	}}
	m := newTestManager(runner)

	if _, err := m.Ensure("auth", ""); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	install := runner.call(5)
	if !strings.Contains(install, "npm install -g") {
		t.Errorf("install call = %q, want the tool's npm install", install)
	}
}

func TestEnsureFatalWhenImageLacksGit(t *testing.T) {
	runner := &fakeRunner{results: []fakeResult{
		{err: errors.New("no such container")},
		{},
		{err: errors.New("exit 127")}, // git missing
	}}
	m := newTestManager(runner)

	_, err := m.Ensure("auth", "")
	var pe *ProvisionError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProvisionError, got %v", err)
	}
	if !strings.Contains(pe.Remediation, "git") {
		t.Errorf("remediation = %q, want it to name the missing dependency", pe.Remediation)
	}
}

func TestEnsureFatalWhenDaemonUnavailable(t *testing.T) {
	runner := &fakeRunner{results: []fakeResult{
		{err: errors.New("no such container")},
		{err: errors.New("cannot connect to the docker daemon")},
	}}
	m := newTestManager(runner)

	_, err := m.Ensure("auth", "")
	var pe *ProvisionError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProvisionError, got %v", err)
	}
	if pe.Handle != "forge-auth" {
		t.Errorf("error handle = %q, want forge-auth", pe.Handle)
	}
}

func TestTeardown(t *testing.T) {
	runner := &fakeRunner{}
	m := newTestManager(runner)

	if err := m.Teardown("forge-auth"); err != nil {
		t.Fatalf("Teardown: %v", err)
	}
	if got := runner.call(0); got != "rm -f forge-auth" {
		t.Errorf("call = %q, want rm -f", got)
	}

	if err := m.Teardown(""); err != nil {
		t.Errorf("empty handle must be a no-op, got %v", err)
	}
	if len(runner.calls) != 1 {
		t.Errorf("docker calls = %d, want 1", len(runner.calls))
	}
}

func TestTeardownReturnsErrorForLogging(t *testing.T) {
	runner := &fakeRunner{results: []fakeResult{
		{err: errors.New("daemon gone")},
	}}
	m := newTestManager(runner)

	if err := m.Teardown("forge-auth"); err == nil {
		t.Error("expected the removal error back")
	}
}

func TestList(t *testing.T) {
	runner := &fakeRunner{results: []fakeResult{
		{out: "forge-auth\nforge-billing"},
	}}
	m := newTestManager(runner)

	handles, err := m.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(handles) != 2 || handles[0] != "forge-auth" || handles[1] != "forge-billing" {
		t.Errorf("handles = %v, want [forge-auth forge-billing]", handles)
	}
}

func TestDisabledIsNoOp(t *testing.T) {
	var d Disabled
	handle, err := d.Ensure("auth", "stale-handle")
	if err != nil || handle != "" {
		t.Errorf("Ensure = (%q, %v), want empty no-op", handle, err)
	}
	if err := d.Teardown("anything"); err != nil {
		t.Errorf("Teardown: %v", err)
	}
}
