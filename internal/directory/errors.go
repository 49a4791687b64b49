package directory

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound        = errors.New("employee not found")
	ErrForbidden       = errors.New("acting identity may not assign this permission level")
	ErrUnknownActor    = errors.New("acting identity does not match any employee")
	ErrHasSubordinates = errors.New("employee is still referenced as a manager")
)

// FieldIssue is one caller-fixable problem with a named input field.
type FieldIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError collects every field issue found in a request so the
// caller can fix them in one round trip.
type ValidationError struct {
	Issues []FieldIssue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Field+": "+issue.Reason)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ConflictError reports a uniqueness violation or a rejected manager
// assignment (cycle). Distinct from not-found.
type ConflictError struct {
	Field  string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s: %s", e.Field, e.Reason)
}

type validator struct {
	issues []FieldIssue
}

func (v *validator) add(field, reason string) {
	v.issues = append(v.issues, FieldIssue{Field: field, Reason: reason})
}

func (v *validator) err() error {
	if len(v.issues) == 0 {
		return nil
	}
	out := make([]FieldIssue, len(v.issues))
	copy(out, v.issues)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Field == out[j].Field {
			return out[i].Reason < out[j].Reason
		}
		return out[i].Field < out[j].Field
	})
	return &ValidationError{Issues: out}
}
