// Package cycle counts retry cycles against configured ceilings.
// The guard only counts and reports; whether to stop retrying is the
// worker's call, made visible to it through its task context.
package cycle

import "github.com/lucasnoah/featureforge/internal/state"

// Phase selects which ceiling applies to a worker invocation.
type Phase string

const (
	PhaseReview Phase = "review"
	PhaseQA     Phase = "qa"
)

// Guard exposes a feature's cumulative failure count and the configured
// ceilings. The count is shared across backend, frontend, and QA phases
// for the lifetime of the feature; it is never reset.
type Guard struct {
	cfg state.Config
}

// NewGuard creates a Guard over the given pipeline config.
func NewGuard(cfg state.Config) *Guard {
	return &Guard{cfg: cfg}
}

// RecordFailure increments the feature's cycle counter and returns the
// new count. The counter is monotonic.
func (g *Guard) RecordFailure(f *state.Feature) int {
	f.ReviewCycleCount++
	return f.ReviewCycleCount
}

// Count returns the feature's current cycle count.
func (g *Guard) Count(f *state.Feature) int {
	return f.ReviewCycleCount
}

// LimitFor returns the configured ceiling for a phase.
func (g *Guard) LimitFor(p Phase) int {
	if p == PhaseQA {
		return g.cfg.MaxQACycles
	}
	return g.cfg.MaxReviewCycles
}

// SkipAfterMax reports whether workers are told they may pass a stage
// once the phase ceiling is reached.
func (g *Guard) SkipAfterMax(p Phase) bool {
	if p == PhaseQA {
		return g.cfg.SkipAfterMaxQA
	}
	return g.cfg.SkipAfterMaxReview
}

// AtLimit reports whether the feature's count has reached the phase
// ceiling. A ceiling of zero never trips.
func (g *Guard) AtLimit(f *state.Feature, p Phase) bool {
	limit := g.LimitFor(p)
	return limit > 0 && f.ReviewCycleCount >= limit
}
