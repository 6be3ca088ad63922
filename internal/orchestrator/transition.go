package orchestrator

import (
	"fmt"

	"github.com/lucasnoah/featureforge/internal/signal"
	"github.com/lucasnoah/featureforge/internal/state"
)

// Transition is the pure stage transition function: given the stage a
// worker was invoked for and the classified signal it emitted, it yields
// exactly one next stage. The function is total over every (stage,
// signal) pair the orchestrator applies; any other pair is an error and
// mutates nothing.
func Transition(s state.Stage, sig signal.Signal) (state.Stage, error) {
	switch s {
	case state.StageBackendDev:
		switch sig {
		case signal.DevComplete:
			return state.StageBackendReview, nil
		case signal.DevNoWork:
			// No work means no review either; the passed stage routes onward.
			return state.StageBackendReviewPassed, nil
		case signal.ReviewFailed:
			return state.StageBackendReviewFailed, nil
		}

	case state.StageBackendReview:
		switch sig {
		case signal.ReviewPassed, signal.ReviewPassedNoWork, signal.ReviewPassedMaxCycles:
			return state.StageBackendReviewPassed, nil
		case signal.ReviewFailed:
			return state.StageBackendReviewFailed, nil
		}

	case state.StageFrontendDev:
		switch sig {
		case signal.DevComplete:
			return state.StageFrontendReview, nil
		case signal.DevNoWork:
			return state.StageFrontendReviewPassed, nil
		case signal.ReviewFailed:
			return state.StageFrontendReviewFailed, nil
		}

	case state.StageFrontendReview:
		switch sig {
		case signal.ReviewPassed, signal.ReviewPassedNoWork, signal.ReviewPassedMaxCycles:
			return state.StageFrontendReviewPassed, nil
		case signal.ReviewFailed:
			return state.StageFrontendReviewFailed, nil
		}

	case state.StageQATesting:
		switch sig {
		case signal.QAComplete, signal.QANoTesting, signal.QAPassedMaxCycles:
			return state.StageQAPassed, nil
		case signal.QAIssuesBackend:
			return state.StageQAIssuesBackend, nil
		case signal.QAIssuesFrontend:
			return state.StageQAIssuesFrontend, nil
		}
	}

	return "", fmt.Errorf("no transition from stage %q on signal %q", s, sig)
}

// routed returns the deterministic rewrite for the feature's current
// stage when that stage invokes no worker: entry routing from pending,
// pass-through after reviews, and loop-back after failures and QA
// issues. These rewrites are bookkeeping and consume no iteration
// budget.
func routed(f *state.Feature) (state.Stage, bool) {
	switch f.State {
	case state.StagePending:
		if f.RequiresBackendWork {
			return state.StageBackendDev, true
		}
		if f.RequiresFrontendWork {
			return state.StageFrontendDev, true
		}
		return state.StageQATesting, true
	case state.StageBackendReviewPassed:
		if f.RequiresFrontendWork {
			return state.StageFrontendDev, true
		}
		return state.StageQATesting, true
	case state.StageBackendReviewFailed:
		return state.StageBackendDev, true
	case state.StageFrontendReviewPassed:
		return state.StageQATesting, true
	case state.StageFrontendReviewFailed:
		return state.StageFrontendDev, true
	case state.StageQAIssuesBackend:
		return state.StageBackendDev, true
	case state.StageQAIssuesFrontend:
		return state.StageFrontendDev, true
	}
	return "", false
}
