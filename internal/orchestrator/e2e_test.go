package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/lucasnoah/featureforge/internal/requirements"
	"github.com/lucasnoah/featureforge/internal/state"
)

func TestHappyPathFullStack(t *testing.T) {
	env := setupTest(t, []requirements.Descriptor{fullStackFeature("auth")},
		state.Config{MaxReviewCycles: 3, MaxQACycles: 3},
		[]string{
			"added login endpoint and session middleware\nDEV_COMPLETE",
			"clean diff, tests cover the flows\nREVIEW_PASSED",
			"wired the login form to the new endpoint\nDEV_COMPLETE",
			"REVIEW_PASSED",
			"all acceptance criteria verified\nQA_COMPLETE",
		})

	t.Log("run the full pipeline to completion")
	if err := env.orch.Run(context.Background(), 10); err != nil {
		t.Fatalf("Run: %v", err)
	}

	t.Log("worker saw the five stages in order")
	wantStages := []state.Stage{
		state.StageBackendDev, state.StageBackendReview,
		state.StageFrontendDev, state.StageFrontendReview,
		state.StageQATesting,
	}
	got := env.invoker.stages()
	if len(got) != len(wantStages) {
		t.Fatalf("invocations = %v, want %v", got, wantStages)
	}
	for i := range wantStages {
		if got[i] != wantStages[i] {
			t.Errorf("invocation %d at %s, want %s", i, got[i], wantStages[i])
		}
	}

	t.Log("persisted state: terminal, clean counters, five history entries")
	f := env.loadState().Feature("auth")
	if f.State != state.StageQAPassed {
		t.Errorf("state = %s, want %s", f.State, state.StageQAPassed)
	}
	if f.ReviewCycleCount != 0 {
		t.Errorf("cycle count = %d, want 0 (routing is not a failure)", f.ReviewCycleCount)
	}
	if len(f.History) != 5 {
		t.Errorf("history length = %d, want 5 (one entry per invocation)", len(f.History))
	}
	if len(f.CurrentIssues) != 0 {
		t.Errorf("issues = %v, want empty", f.CurrentIssues)
	}

	d, _ := env.reqs.Get("auth")
	if !d.Completed {
		t.Error("requirement not marked complete")
	}
	if env.loadState().CurrentFeatureID != "" {
		t.Error("current feature slot not released")
	}
}

func TestReviewFailureLoopsBackToDev(t *testing.T) {
	env := setupTest(t, []requirements.Descriptor{fullStackFeature("auth")},
		state.Config{MaxReviewCycles: 3, MaxQACycles: 3},
		[]string{
			"DEV_COMPLETE",
			"ISSUE: token expiry is never checked\nREVIEW_FAILED",
			"fixed the expiry check\nDEV_COMPLETE",
			"REVIEW_PASSED",
			"DEV_COMPLETE",
			"REVIEW_PASSED",
			"QA_COMPLETE",
		})

	if err := env.orch.Run(context.Background(), 10); err != nil {
		t.Fatalf("Run: %v", err)
	}

	t.Log("backend dev was revisited exactly once")
	devVisits := 0
	for _, s := range env.invoker.stages() {
		if s == state.StageBackendDev {
			devVisits++
		}
	}
	if devVisits != 2 {
		t.Errorf("backend_dev invocations = %d, want 2", devVisits)
	}

	f := env.loadState().Feature("auth")
	if f.State != state.StageQAPassed {
		t.Errorf("state = %s, want %s", f.State, state.StageQAPassed)
	}
	if f.ReviewCycleCount != 1 {
		t.Errorf("cycle count = %d, want 1 (one failed review)", f.ReviewCycleCount)
	}
	if len(f.History) != 7 {
		t.Errorf("history length = %d, want 7", len(f.History))
	}

	t.Log("the retry invocation carried the review findings")
	retry := env.instr.reqs[2]
	if len(retry.Issues) != 1 || retry.Issues[0] != "token expiry is never checked" {
		t.Errorf("retry issues = %v, want the review finding", retry.Issues)
	}
}

func TestBackendOnlyFeatureSkipsFrontend(t *testing.T) {
	env := setupTest(t, []requirements.Descriptor{{
		ID: "indexing", Title: "Rebuild search index", Priority: 1,
		RequiresBackendWork: true,
	}},
		state.Config{MaxReviewCycles: 3, MaxQACycles: 3},
		[]string{
			"DEV_COMPLETE",
			"REVIEW_PASSED",
			"ISSUE: stale entries survive a rebuild\nQA_ISSUES_BACKEND",
			"DEV_COMPLETE",
			"REVIEW_PASSED",
			"QA_COMPLETE",
		})

	if err := env.orch.Run(context.Background(), 10); err != nil {
		t.Fatalf("Run: %v", err)
	}

	t.Log("no frontend stage was ever entered")
	for _, s := range env.invoker.stages() {
		if s == state.StageFrontendDev || s == state.StageFrontendReview {
			t.Errorf("frontend stage %s invoked for a backend-only feature", s)
		}
	}

	f := env.loadState().Feature("indexing")
	if f.State != state.StageQAPassed {
		t.Errorf("state = %s, want %s", f.State, state.StageQAPassed)
	}
	if f.ReviewCycleCount != 1 {
		t.Errorf("cycle count = %d, want 1 (QA issues count as a cycle)", f.ReviewCycleCount)
	}
}

func TestFrontendOnlyFeatureSkipsBackend(t *testing.T) {
	env := setupTest(t, []requirements.Descriptor{{
		ID: "theme", Title: "Dark mode", Priority: 1,
		RequiresFrontendWork: true,
	}},
		state.Config{MaxReviewCycles: 3, MaxQACycles: 3},
		[]string{"DEV_COMPLETE", "REVIEW_PASSED", "QA_COMPLETE"})

	if err := env.orch.Run(context.Background(), 10); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := env.invoker.stages()
	if len(got) == 0 || got[0] != state.StageFrontendDev {
		t.Errorf("first invocation = %v, want %s", got, state.StageFrontendDev)
	}
	for _, s := range got {
		if s == state.StageBackendDev || s == state.StageBackendReview {
			t.Errorf("backend stage %s invoked for a frontend-only feature", s)
		}
	}
}

func TestNoWorkFeatureGoesStraightToQA(t *testing.T) {
	env := setupTest(t, []requirements.Descriptor{{
		ID: "docs-check", Title: "Verify docs build", Priority: 1,
	}},
		state.Config{}, []string{"QA_COMPLETE"})

	if err := env.orch.Run(context.Background(), 5); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := env.invoker.stages()
	if len(got) != 1 || got[0] != state.StageQATesting {
		t.Errorf("invocations = %v, want exactly one QA invocation", got)
	}
}

func TestBudgetExhaustionHaltsWithResumableState(t *testing.T) {
	env := setupTest(t, []requirements.Descriptor{fullStackFeature("auth")},
		state.Config{MaxReviewCycles: 10},
		[]string{
			"DEV_COMPLETE",
			"ISSUE: still wrong\nREVIEW_FAILED",
			"DEV_COMPLETE",
		})

	err := env.orch.Run(context.Background(), 3)
	if !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("expected ErrBudgetExhausted, got %v", err)
	}
	var fatal *FatalError
	if !errors.As(err, &fatal) || fatal.FeatureID != "auth" {
		t.Fatalf("budget exhaustion must name the halted feature, got %v", err)
	}

	t.Log("state persists the in-flight stage and counters")
	f := env.loadState().Feature("auth")
	if f.State != state.StageBackendReview {
		t.Errorf("state = %s, want %s", f.State, state.StageBackendReview)
	}
	if f.ReviewCycleCount != 1 {
		t.Errorf("cycle count = %d, want 1", f.ReviewCycleCount)
	}
	if len(f.History) != 3 {
		t.Errorf("history length = %d, want 3 (one per spent iteration)", len(f.History))
	}
}

func TestCrashResumeProducesSameTrajectory(t *testing.T) {
	outputs := []string{
		"DEV_COMPLETE", "REVIEW_PASSED",
		"DEV_COMPLETE", "REVIEW_PASSED",
		"QA_COMPLETE",
	}

	t.Log("first run halts after two iterations")
	env := setupTest(t, []requirements.Descriptor{fullStackFeature("auth")},
		state.Config{MaxReviewCycles: 3, MaxQACycles: 3}, outputs[:2])
	if err := env.orch.Run(context.Background(), 2); !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("expected budget exhaustion, got %v", err)
	}

	t.Log("second run over the same state file finishes the pipeline")
	resumed := &scriptedInvoker{t: t, outputs: outputs[2:]}
	orch2 := New(Options{
		Store:        env.store,
		Requirements: env.reqs,
		Sandboxes:    env.sandboxes,
		Invoker:      resumed,
		Instructions: env.instr,
		Actor:        "claude",
		// A different init config must not matter: the stamped one wins.
		InitConfig: state.Config{MaxReviewCycles: 99},
	})
	if err := orch2.Run(context.Background(), 10); err != nil {
		t.Fatalf("resumed run: %v", err)
	}

	t.Log("the combined trajectory matches an uninterrupted run")
	f := env.loadState().Feature("auth")
	if f.State != state.StageQAPassed {
		t.Errorf("state = %s, want %s", f.State, state.StageQAPassed)
	}
	if len(f.History) != 5 {
		t.Errorf("history length = %d, want 5", len(f.History))
	}
	if got := resumed.stages(); len(got) != 3 || got[0] != state.StageFrontendDev {
		t.Errorf("resumed run stages = %v, want to pick up at %s", got, state.StageFrontendDev)
	}
	if env.loadState().Config.MaxReviewCycles != 3 {
		t.Errorf("stamped config overwritten: max review = %d, want 3",
			env.loadState().Config.MaxReviewCycles)
	}
}

func TestFeaturesProcessedInPriorityOrder(t *testing.T) {
	descriptors := []requirements.Descriptor{
		{ID: "later", Title: "Later", Priority: 2},
		{ID: "first", Title: "First", Priority: 1},
	}
	env := setupTest(t, descriptors, state.Config{},
		[]string{"QA_COMPLETE", "QA_COMPLETE"})

	if err := env.orch.Run(context.Background(), 5); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(env.invoker.calls) != 2 {
		t.Fatalf("invocations = %d, want 2", len(env.invoker.calls))
	}
	if env.invoker.calls[0].FeatureID != "first" || env.invoker.calls[1].FeatureID != "later" {
		t.Errorf("order = [%s %s], want [first later]",
			env.invoker.calls[0].FeatureID, env.invoker.calls[1].FeatureID)
	}
	for _, id := range []string{"first", "later"} {
		d, _ := env.reqs.Get(id)
		if !d.Completed {
			t.Errorf("%s not marked complete", id)
		}
	}
}

func TestCompletedRequirementsAreNotScheduled(t *testing.T) {
	descriptors := []requirements.Descriptor{
		{ID: "done", Title: "Done", Priority: 1, Completed: true},
		{ID: "open", Title: "Open", Priority: 2},
	}
	env := setupTest(t, descriptors, state.Config{}, []string{"QA_COMPLETE"})

	if err := env.orch.Run(context.Background(), 5); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(env.invoker.calls) != 1 || env.invoker.calls[0].FeatureID != "open" {
		t.Errorf("calls = %v, want only the open feature", env.invoker.calls)
	}
	if env.loadState().Feature("done") != nil {
		t.Error("completed requirement must not be seeded into state")
	}
}

func TestForcedPassAfterMaxCycles(t *testing.T) {
	env := setupTest(t, []requirements.Descriptor{{
		ID: "flaky", Title: "Flaky", Priority: 1,
		RequiresBackendWork: true,
	}},
		state.Config{MaxReviewCycles: 2, SkipAfterMaxReview: true},
		[]string{
			"DEV_COMPLETE",
			"ISSUE: a\nREVIEW_FAILED",
			"DEV_COMPLETE",
			"ISSUE: b\nREVIEW_FAILED",
			"DEV_COMPLETE",
			"cycle ceiling reached, accepting as-is\nREVIEW_PASSED_MAX_CYCLES",
			"QA_COMPLETE",
		})

	if err := env.orch.Run(context.Background(), 10); err != nil {
		t.Fatalf("Run: %v", err)
	}

	f := env.loadState().Feature("flaky")
	if f.State != state.StageQAPassed {
		t.Errorf("state = %s, want %s", f.State, state.StageQAPassed)
	}
	if f.ReviewCycleCount != 2 {
		t.Errorf("cycle count = %d, want 2 (forced pass does not count)", f.ReviewCycleCount)
	}

	t.Log("the ceiling invocation was told the limit had been reached")
	last := env.instr.reqs[len(env.instr.reqs)-2] // the forced review build
	if last.CycleCount != 2 || last.CycleLimit != 2 {
		t.Errorf("forced review build: cycles %d/%d, want 2/2", last.CycleCount, last.CycleLimit)
	}
}
