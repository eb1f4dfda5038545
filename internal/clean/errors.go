// Package clean implements the record pipeline: field normalization,
// identity deduplication, webinar metadata enrichment and schema projection
// for Zoom webinar exports.
package clean

import (
	"errors"
	"fmt"
)

// FormatError reports a structurally unusable input file: a missing required
// section, a header that deviates from the SOP, or a column-count violation.
// Fatal; raised before any normalization output is produced.
type FormatError struct {
	msg string
}

func (e *FormatError) Error() string { return e.msg }

func formatErrorf(format string, args ...any) *FormatError {
	return &FormatError{msg: fmt.Sprintf(format, args...)}
}

// ThresholdError reports that too few join/leave timestamps parsed for the
// file to be trusted. Fatal; raised after normalization, before dedup.
type ThresholdError struct {
	Field     string
	Ratio     float64
	Threshold float64
}

func (e *ThresholdError) Error() string {
	return fmt.Sprintf("%s datetime parse success %.2f below configured threshold %.2f", e.Field, e.Ratio, e.Threshold)
}

// ValidationError reports a broken internal invariant in the final output
// (wrong column set or non-canonical values). Fatal; seeing one means the
// pipeline itself misbehaved.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// IsInputError reports whether err is one of the fatal pipeline errors a
// caller should present as a bad-input failure rather than a server fault.
func IsInputError(err error) bool {
	var fe *FormatError
	var te *ThresholdError
	var ve *ValidationError
	return errors.As(err, &fe) || errors.As(err, &te) || errors.As(err, &ve)
}
