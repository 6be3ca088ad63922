// Package signal defines the completion-marker vocabulary workers emit
// and the classifier that maps raw worker output onto it. The token set
// is a wire protocol between worker and orchestrator; changing a token
// breaks every instruction template that mentions it.
package signal

// Signal is one classified worker outcome.
type Signal string

const (
	// Unrecognized means no vocabulary token was found in the output.
	// It is never coerced to a real signal; callers must treat it as fatal.
	Unrecognized Signal = "UNRECOGNIZED"

	DevComplete           Signal = "DEV_COMPLETE"
	DevNoWork             Signal = "DEV_NO_WORK"
	ReviewPassed          Signal = "REVIEW_PASSED"
	ReviewFailed          Signal = "REVIEW_FAILED"
	ReviewPassedNoWork    Signal = "REVIEW_PASSED_NO_WORK"
	ReviewPassedMaxCycles Signal = "REVIEW_PASSED_MAX_CYCLES"
	QAComplete            Signal = "QA_COMPLETE"
	QANoTesting           Signal = "QA_NO_TESTING"
	QAIssuesBackend       Signal = "QA_ISSUES_BACKEND"
	QAIssuesFrontend      Signal = "QA_ISSUES_FRONTEND"
	QAPassedMaxCycles     Signal = "QA_PASSED_MAX_CYCLES"
)

// Priority is the fixed classification order. Matching is first-match-wins:
// an output containing several tokens classifies as the earliest entry here,
// not the last one the worker printed. Longer variants sit before their
// prefixes so REVIEW_PASSED_NO_WORK is never swallowed by REVIEW_PASSED.
var Priority = []Signal{
	ReviewPassedMaxCycles,
	ReviewPassedNoWork,
	ReviewPassed,
	ReviewFailed,
	DevNoWork,
	DevComplete,
	QAPassedMaxCycles,
	QAIssuesBackend,
	QAIssuesFrontend,
	QANoTesting,
	QAComplete,
}

// Failure reports whether the signal denotes a failed review or QA issues,
// i.e. the outcomes that increment the feature's cycle counter.
func (s Signal) Failure() bool {
	switch s {
	case ReviewFailed, QAIssuesBackend, QAIssuesFrontend:
		return true
	}
	return false
}

// NoWork reports whether the worker declared the stage inapplicable.
func (s Signal) NoWork() bool {
	switch s {
	case DevNoWork, ReviewPassedNoWork, QANoTesting:
		return true
	}
	return false
}

// Forced reports whether the worker passed the stage only because the
// cycle ceiling was reached.
func (s Signal) Forced() bool {
	return s == ReviewPassedMaxCycles || s == QAPassedMaxCycles
}
