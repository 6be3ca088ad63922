package state

// Stage is a pipeline state for a feature.
type Stage string

const (
	StagePending              Stage = "pending"
	StageBackendDev           Stage = "backend_dev"
	StageBackendReview        Stage = "backend_review"
	StageBackendReviewPassed  Stage = "backend_review_passed"
	StageBackendReviewFailed  Stage = "backend_review_failed"
	StageFrontendDev          Stage = "frontend_dev"
	StageFrontendReview       Stage = "frontend_review"
	StageFrontendReviewPassed Stage = "frontend_review_passed"
	StageFrontendReviewFailed Stage = "frontend_review_failed"
	StageQATesting            Stage = "qa_testing"
	StageQAPassed             Stage = "qa_passed"
	StageQAIssuesBackend      Stage = "qa_issues_backend"
	StageQAIssuesFrontend     Stage = "qa_issues_frontend"
)

var allStages = map[Stage]bool{
	StagePending:              true,
	StageBackendDev:           true,
	StageBackendReview:        true,
	StageBackendReviewPassed:  true,
	StageBackendReviewFailed:  true,
	StageFrontendDev:          true,
	StageFrontendReview:       true,
	StageFrontendReviewPassed: true,
	StageFrontendReviewFailed: true,
	StageQATesting:            true,
	StageQAPassed:             true,
	StageQAIssuesBackend:      true,
	StageQAIssuesFrontend:     true,
}

// Valid reports whether s is a member of the stage set.
func (s Stage) Valid() bool {
	return allStages[s]
}

// Terminal reports whether a feature in this stage is complete.
func (s Stage) Terminal() bool {
	return s == StageQAPassed
}

// WorkerStage reports whether reaching this stage invokes a worker.
func (s Stage) WorkerStage() bool {
	switch s {
	case StageBackendDev, StageBackendReview, StageFrontendDev, StageFrontendReview, StageQATesting:
		return true
	}
	return false
}

// HistoryEntry records one applied worker signal for a feature.
// The history is append-only; entries are never rewritten.
type HistoryEntry struct {
	Stage     Stage  `json:"stage"`
	Actor     string `json:"actor"`
	Timestamp string `json:"timestamp"`
	Summary   string `json:"summary"`
	Approved  *bool  `json:"approved,omitempty"`
	NoWork    bool   `json:"noWork,omitempty"`
}

// Feature is the per-feature record in the state file.
type Feature struct {
	State                Stage          `json:"state"`
	ReviewCycleCount     int            `json:"reviewCycleCount"`
	History              []HistoryEntry `json:"history"`
	CurrentIssues        []string       `json:"currentIssues"`
	SandboxHandle        string         `json:"sandboxHandle,omitempty"`
	RequiresBackendWork  bool           `json:"requiresBackendWork"`
	RequiresFrontendWork bool           `json:"requiresFrontendWork"`
}

// Config is the per-run pipeline configuration stamped into the state
// file at initialization. Immutable for the lifetime of the file so a
// resumed run behaves identically.
type Config struct {
	MaxReviewCycles    int  `json:"maxReviewCycles"`
	MaxQACycles        int  `json:"maxQACycles"`
	SkipAfterMaxReview bool `json:"skipAfterMaxReview"`
	SkipAfterMaxQA     bool `json:"skipAfterMaxQA"`
}

// Pipeline is the full contents of the state file.
type Pipeline struct {
	CurrentFeatureID string              `json:"currentFeatureId"`
	Features         map[string]*Feature `json:"features"`
	Config           Config              `json:"config"`
}

// NewPipeline returns an empty pipeline with the given config.
func NewPipeline(cfg Config) *Pipeline {
	return &Pipeline{
		Features: make(map[string]*Feature),
		Config:   cfg,
	}
}

// Feature returns the record for id, or nil if absent.
func (p *Pipeline) Feature(id string) *Feature {
	return p.Features[id]
}
