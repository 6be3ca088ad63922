// Package orchestrator drives features through the pipeline: it reads
// the persisted state, decides whether to route, invoke a worker, or
// complete, applies classified signals, and writes the new state back
// after every mutation.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/lucasnoah/featureforge/internal/cycle"
	"github.com/lucasnoah/featureforge/internal/instructions"
	"github.com/lucasnoah/featureforge/internal/requirements"
	"github.com/lucasnoah/featureforge/internal/signal"
	"github.com/lucasnoah/featureforge/internal/state"
	"github.com/lucasnoah/featureforge/internal/worker"
)

// ErrUnrecognizedSignal means the worker's output contained no token
// from the completion-marker vocabulary. This is fatal: inventing a
// transition would corrupt feature state, so the state is left exactly
// as persisted for manual inspection.
var ErrUnrecognizedSignal = errors.New("worker output contained no recognized completion marker")

// ErrBudgetExhausted means the iteration budget ran out before all
// features completed. State was persisted after every iteration, so a
// subsequent run resumes where this one halted.
var ErrBudgetExhausted = errors.New("iteration budget exhausted")

// ErrInterrupted means the run was cancelled externally. The in-flight
// feature's sandbox was torn down; persisted state remains the
// resumption point.
var ErrInterrupted = errors.New("run interrupted")

// FatalError wraps a fatal condition with the feature id and stage it
// occurred at, which every fatal path must report since the state file
// is the resumption point.
type FatalError struct {
	FeatureID string
	Stage     state.Stage
	Err       error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("feature %s (state %s): %v", e.FeatureID, e.Stage, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// SandboxManager is the environment lifecycle the orchestrator depends on.
type SandboxManager interface {
	Ensure(featureID string, recorded string) (string, error)
	Teardown(handle string) error
}

// InstructionSource renders the instruction document for a worker task.
type InstructionSource interface {
	Build(req instructions.Request) (string, error)
}

// Journal receives durable observability rows. May be nil.
type Journal interface {
	LogEvent(feature string, event string, stage string, cycle int, detail string) error
	LogInvocation(feature string, stage string, signal string, exitCode int, durationMs int) error
}

// Options wires an Orchestrator.
type Options struct {
	Store        state.Store
	Requirements *requirements.List
	Sandboxes    SandboxManager
	Invoker      worker.Invoker
	Instructions InstructionSource
	Journal      Journal
	Progress     io.Writer
	// Actor is the worker tool name recorded in history entries.
	Actor string
	// InitConfig is stamped into the state file when it does not exist
	// yet. A resumed run uses the stamped config, not this one.
	InitConfig state.Config
	// KeepSandboxes skips teardown on feature completion.
	KeepSandboxes bool
	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// Orchestrator is the single-threaded pipeline loop. It never
// interleaves two features.
type Orchestrator struct {
	store         state.Store
	reqs          *requirements.List
	sandboxes     SandboxManager
	invoker       worker.Invoker
	instructions  InstructionSource
	journal       Journal
	progress      io.Writer
	actor         string
	initCfg       state.Config
	keepSandboxes bool
	now           func() time.Time
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.Progress == nil {
		opts.Progress = io.Discard
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		store:         opts.Store,
		reqs:          opts.Requirements,
		sandboxes:     opts.Sandboxes,
		invoker:       opts.Invoker,
		instructions:  opts.Instructions,
		journal:       opts.Journal,
		progress:      opts.Progress,
		actor:         opts.Actor,
		initCfg:       opts.InitConfig,
		keepSandboxes: opts.KeepSandboxes,
		now:           opts.Now,
	}
}

// Run executes the pipeline loop until all features complete, the
// iteration budget is exhausted, a fatal condition arises, or ctx is
// cancelled. The budget counts worker invocations; routing rewrites are
// bookkeeping and consume none of it.
func (o *Orchestrator) Run(ctx context.Context, maxIterations int) error {
	if maxIterations <= 0 {
		return fmt.Errorf("max iterations must be positive, got %d", maxIterations)
	}

	p, err := o.loadOrInit()
	if err != nil {
		return err
	}
	guard := cycle.NewGuard(p.Config)

	iterations := 0
	for {
		if ctx.Err() != nil {
			return o.interrupted(p)
		}

		if p.CurrentFeatureID == "" {
			id, ok := o.selectNext(p)
			if !ok {
				fmt.Fprintln(o.progress, "all features complete")
				return nil
			}
			p.CurrentFeatureID = id
			if err := o.store.Save(p); err != nil {
				return err
			}
			fmt.Fprintf(o.progress, "→ %s: selected\n", id)
			o.logEvent(id, "selected", p.Feature(id).State, guard.Count(p.Feature(id)), "")
		}

		id := p.CurrentFeatureID
		f := p.Feature(id)

		if f.State.Terminal() {
			if err := o.complete(p, id, f); err != nil {
				return err
			}
			continue
		}

		if next, ok := routed(f); ok {
			prev := f.State
			f.State = next
			if err := o.store.Save(p); err != nil {
				return err
			}
			fmt.Fprintf(o.progress, "  → %s: %s → %s\n", id, prev, next)
			o.logEvent(id, "routed", next, guard.Count(f), "from="+string(prev))
			continue
		}

		if !f.State.WorkerStage() {
			return &FatalError{FeatureID: id, Stage: f.State, Err: fmt.Errorf("no handler for stage")}
		}

		if iterations >= maxIterations {
			o.logEvent(id, "budget_exhausted", f.State, guard.Count(f), "")
			return &FatalError{FeatureID: id, Stage: f.State, Err: ErrBudgetExhausted}
		}
		iterations++

		handle, err := o.sandboxes.Ensure(id, f.SandboxHandle)
		if err != nil {
			return &FatalError{FeatureID: id, Stage: f.State, Err: err}
		}
		if handle != f.SandboxHandle {
			f.SandboxHandle = handle
			if err := o.store.Save(p); err != nil {
				return err
			}
		}

		instr, err := o.buildInstructions(id, f, guard)
		if err != nil {
			return &FatalError{FeatureID: id, Stage: f.State, Err: err}
		}

		fmt.Fprintf(o.progress, "  → %s: invoking worker for %s (iteration %d/%d)\n", id, f.State, iterations, maxIterations)
		res, err := o.invoker.Invoke(ctx, worker.Task{
			FeatureID:     id,
			Stage:         f.State,
			Instructions:  instr,
			SandboxHandle: handle,
		})
		if err != nil {
			if ctx.Err() != nil {
				return o.interrupted(p)
			}
			return &FatalError{FeatureID: id, Stage: f.State, Err: err}
		}

		sig := signal.Classify(res.Output)
		o.logInvocation(id, f.State, sig, res)
		if sig == signal.Unrecognized {
			// State stays exactly as persisted for manual inspection.
			return &FatalError{FeatureID: id, Stage: f.State, Err: ErrUnrecognizedSignal}
		}

		invoked := f.State
		if err := o.applySignal(f, guard, sig, res.Output); err != nil {
			return &FatalError{FeatureID: id, Stage: invoked, Err: err}
		}
		if err := o.store.Save(p); err != nil {
			return err
		}
		fmt.Fprintf(o.progress, "  → %s: %s → %s (%s, cycles=%d)\n", id, invoked, f.State, sig, f.ReviewCycleCount)
		o.logEvent(id, "signal_applied", f.State, f.ReviewCycleCount, string(sig))
	}
}

// loadOrInit loads the persisted pipeline, creating a fresh one stamped
// with the init config when no state file exists, and seeds feature
// records for requirements not yet tracked.
func (o *Orchestrator) loadOrInit() (*state.Pipeline, error) {
	p, err := o.store.Load()
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		p = state.NewPipeline(o.initCfg)
	}

	for _, d := range o.reqs.Items() {
		if d.Completed || p.Feature(d.ID) != nil {
			continue
		}
		p.Features[d.ID] = &state.Feature{
			State:                state.StagePending,
			History:              []state.HistoryEntry{},
			CurrentIssues:        []string{},
			RequiresBackendWork:  d.RequiresBackendWork,
			RequiresFrontendWork: d.RequiresFrontendWork,
		}
	}

	if err := o.store.Save(p); err != nil {
		return nil, err
	}
	return p, nil
}

// selectNext picks the next incomplete feature in scheduling order:
// ascending priority, ties broken by requirements-list position.
func (o *Orchestrator) selectNext(p *state.Pipeline) (string, bool) {
	for _, d := range o.reqs.Ordered() {
		if d.Completed {
			continue
		}
		f := p.Feature(d.ID)
		if f == nil || f.State.Terminal() {
			continue
		}
		return d.ID, true
	}
	return "", false
}

// applySignal mutates the feature for one classified worker signal:
// exactly one history entry, cycle accounting on failures, issue capture
// or clearing, and the transition itself.
func (o *Orchestrator) applySignal(f *state.Feature, guard *cycle.Guard, sig signal.Signal, output string) error {
	next, err := Transition(f.State, sig)
	if err != nil {
		return err
	}

	entry := state.HistoryEntry{
		Stage:     f.State,
		Actor:     o.actor,
		Timestamp: o.now().UTC().Format(time.RFC3339),
		Summary:   summarize(output, sig),
		NoWork:    sig.NoWork(),
	}
	switch f.State {
	case state.StageBackendReview, state.StageFrontendReview, state.StageQATesting:
		approved := !sig.Failure()
		entry.Approved = &approved
	}

	if sig.Failure() {
		guard.RecordFailure(f)
		issues := signal.ExtractIssues(output)
		if issues == nil {
			issues = []string{}
		}
		f.CurrentIssues = issues
	} else {
		f.CurrentIssues = []string{}
	}

	f.History = append(f.History, entry)
	f.State = next
	return nil
}

// complete handles a feature that reached its terminal stage: flip the
// requirement's completion flag, tear down the sandbox per policy, and
// release the current-feature slot so the next pending feature is
// selected.
func (o *Orchestrator) complete(p *state.Pipeline, id string, f *state.Feature) error {
	if err := o.reqs.MarkComplete(id); err != nil {
		return &FatalError{FeatureID: id, Stage: f.State, Err: err}
	}

	if f.SandboxHandle != "" && !o.keepSandboxes {
		if err := o.sandboxes.Teardown(f.SandboxHandle); err != nil {
			// Leaked sandbox is the safer failure mode; never block progress.
			fmt.Fprintf(o.progress, "  → %s: sandbox teardown failed, leaking: %v\n", id, err)
		}
		f.SandboxHandle = ""
	}

	p.CurrentFeatureID = ""
	if err := o.store.Save(p); err != nil {
		return err
	}
	fmt.Fprintf(o.progress, "→ %s: complete\n", id)
	o.logEvent(id, "completed", f.State, f.ReviewCycleCount, "")
	return nil
}

// interrupted tears down the in-flight feature's sandbox so an external
// interrupt never orphans an isolated environment. No other cleanup is
// attempted: state as last persisted remains the source of truth.
func (o *Orchestrator) interrupted(p *state.Pipeline) error {
	if id := p.CurrentFeatureID; id != "" {
		if f := p.Feature(id); f != nil && f.SandboxHandle != "" {
			if err := o.sandboxes.Teardown(f.SandboxHandle); err != nil {
				fmt.Fprintf(o.progress, "→ %s: sandbox teardown on interrupt failed: %v\n", id, err)
			} else {
				f.SandboxHandle = ""
				_ = o.store.Save(p)
			}
			o.logEvent(id, "interrupted", f.State, f.ReviewCycleCount, "")
		}
	}
	return ErrInterrupted
}

func (o *Orchestrator) buildInstructions(id string, f *state.Feature, guard *cycle.Guard) (string, error) {
	d, ok := o.reqs.Get(id)
	if !ok {
		return "", fmt.Errorf("feature %q missing from requirements list", id)
	}

	phase := cycle.PhaseReview
	if f.State == state.StageQATesting {
		phase = cycle.PhaseQA
	}

	return o.instructions.Build(instructions.Request{
		FeatureID:    id,
		Title:        d.Title,
		Description:  d.Description,
		Acceptance:   d.Acceptance,
		Stage:        f.State,
		Issues:       f.CurrentIssues,
		CycleCount:   guard.Count(f),
		CycleLimit:   guard.LimitFor(phase),
		SkipAfterMax: guard.SkipAfterMax(phase),
	})
}

func (o *Orchestrator) logEvent(feature string, event string, stage state.Stage, cycleCount int, detail string) {
	if o.journal == nil {
		return
	}
	_ = o.journal.LogEvent(feature, event, string(stage), cycleCount, detail)
}

func (o *Orchestrator) logInvocation(feature string, stage state.Stage, sig signal.Signal, res worker.Result) {
	if o.journal == nil {
		return
	}
	_ = o.journal.LogInvocation(feature, string(stage), string(sig), res.ExitCode, int(res.Duration.Milliseconds()))
}

// summarize pulls the line carrying the completion marker out of the
// worker's output for the history record, falling back to the bare
// token.
func summarize(output string, sig signal.Signal) string {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.Contains(line, string(sig)) {
			return line
		}
	}
	return string(sig)
}
