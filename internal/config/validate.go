package config

import (
	"fmt"

	"github.com/lucasnoah/featureforge/internal/worker"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a Config for structural and semantic errors.
// It returns a slice of all validation errors found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError

	if _, err := worker.Lookup(cfg.Tool); err != nil {
		errs = append(errs, ValidationError{
			Field:   "tool",
			Message: fmt.Sprintf("unrecognized tool %q (known: %v)", cfg.Tool, worker.Names()),
		})
	}

	if cfg.MaxIterations <= 0 {
		errs = append(errs, ValidationError{
			Field:   "max_iterations",
			Message: "must be a positive integer",
		})
	}
	if cfg.Cycles.MaxReview < 0 {
		errs = append(errs, ValidationError{
			Field:   "cycles.max_review",
			Message: "must not be negative",
		})
	}
	if cfg.Cycles.MaxQA < 0 {
		errs = append(errs, ValidationError{
			Field:   "cycles.max_qa",
			Message: "must not be negative",
		})
	}

	if !cfg.Sandbox.Disabled && cfg.Sandbox.Image == "" {
		errs = append(errs, ValidationError{
			Field:   "sandbox.image",
			Message: "is required when sandboxing is enabled",
		})
	}

	if cfg.Paths.State == "" {
		errs = append(errs, ValidationError{Field: "paths.state", Message: "is required"})
	}
	if cfg.Paths.Requirements == "" {
		errs = append(errs, ValidationError{Field: "paths.requirements", Message: "is required"})
	}

	return errs
}
