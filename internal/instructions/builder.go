package instructions

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lucasnoah/featureforge/internal/state"
)

// Request carries everything a stage template can reference.
type Request struct {
	FeatureID    string
	Title        string
	Description  string
	Acceptance   []string
	Stage        state.Stage
	Issues       []string
	CycleCount   int
	CycleLimit   int
	SkipAfterMax bool
}

// Builder renders stage instruction documents, preferring templates from
// the project override directory.
type Builder struct {
	overrideDir string
}

// NewBuilder creates a Builder. overrideDir may be empty.
func NewBuilder(overrideDir string) *Builder {
	return &Builder{overrideDir: overrideDir}
}

var stageTemplates = map[state.Stage]string{
	state.StageBackendDev:     "backend_dev.md",
	state.StageFrontendDev:    "frontend_dev.md",
	state.StageBackendReview:  "backend_review.md",
	state.StageFrontendReview: "frontend_review.md",
	state.StageQATesting:      "qa.md",
}

// Build renders the instruction document for the request's stage.
func (b *Builder) Build(req Request) (string, error) {
	name, ok := stageTemplates[req.Stage]
	if !ok {
		return "", fmt.Errorf("no instruction template for stage %q", req.Stage)
	}

	tmpl, err := LoadTemplate(name, b.overrideDir)
	if err != nil {
		return "", err
	}

	skipPolicy := ""
	if req.SkipAfterMax && req.CycleLimit > 0 && req.CycleCount >= req.CycleLimit {
		skipPolicy = "reached"
	}

	return Render(tmpl, Vars{
		"feature_id":          req.FeatureID,
		"feature_title":       req.Title,
		"feature_description": req.Description,
		"acceptance_criteria": bulleted(req.Acceptance),
		"prior_issues":        bulleted(req.Issues),
		"cycle_count":         strconv.Itoa(req.CycleCount),
		"cycle_limit":         strconv.Itoa(req.CycleLimit),
		"max_cycles_reached":  skipPolicy,
	})
}

func bulleted(items []string) string {
	if len(items) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString("- ")
		sb.WriteString(item)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
