package schema

import (
	"fmt"
	"strings"
)

// ValidationError is returned by capture when a hard constraint is
// violated. Soft constraints only ever produce warnings; any system must
// be able to contribute without being silently rejected over them.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "pattern validation failed: " + strings.Join(e.Problems, "; ")
}

// ValidationResult separates hard failures from advisory warnings.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// Err converts a failed result into a *ValidationError, or nil when valid.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return &ValidationError{Problems: r.Errors}
}

// Validate checks a pattern against the schema.
//
// Errors: missing title or axiom, title over MaxTitleLen, an empty tag.
// Warnings: long axiom, malformed ID, stability or transferability outside
// [0,1], negative validation count. Validation is advisory beyond the
// required fields: warnings never block a capture.
func Validate(p *Pattern) ValidationResult {
	var errs, warns []string

	if p.Title == "" {
		errs = append(errs, "missing required field: title")
	}
	if p.Axiom == "" {
		errs = append(errs, "missing required field: axiom")
	}

	if len(p.Title) > MaxTitleLen {
		errs = append(errs, fmt.Sprintf("title too long (%d chars, max %d)", len(p.Title), MaxTitleLen))
	}
	if len(p.Axiom) > MaxAxiomLen {
		warns = append(warns, fmt.Sprintf("axiom is long (%d chars, recommended max %d)", len(p.Axiom), MaxAxiomLen))
	}

	if p.ID != "" && !IDPattern.MatchString(p.ID) {
		warns = append(warns, fmt.Sprintf("id %q does not match %s pattern", p.ID, IDPrefix))
	}

	for _, tag := range p.Tags {
		if tag == "" {
			errs = append(errs, "tags must be non-empty strings")
			break
		}
	}

	if p.Metrics.StabilityScore < 0 || p.Metrics.StabilityScore > 1 {
		warns = append(warns, fmt.Sprintf("stability_score %.3f is outside normal range [0, 1]", p.Metrics.StabilityScore))
	}
	if p.Metrics.Transferability < 0 || p.Metrics.Transferability > 1 {
		warns = append(warns, fmt.Sprintf("transferability %.3f is outside normal range [0, 1]", p.Metrics.Transferability))
	}
	if p.Metrics.ValidationCount < 0 {
		warns = append(warns, "validation_count is negative")
	}

	return ValidationResult{
		Valid:    len(errs) == 0,
		Errors:   errs,
		Warnings: warns,
	}
}
