package signal

import (
	"fmt"
	"strings"
)

// Constraint identifiers carried by a Violation.
const (
	ConstraintRequired     = "required"
	ConstraintType         = "type"
	ConstraintRange        = "range"
	ConstraintNonEmpty     = "non_empty"
	ConstraintUnknownField = "unknown_field"
	ConstraintWellFormed   = "well_formed_json"
)

// Violation is one failed field constraint. Field is a dotted path such as
// "geo_center.lat"; "$" refers to the record itself.
type Violation struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
	Message    string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// ValidationError lists every constraint a raw signal violated.
type ValidationError struct {
	Violations []Violation `json:"violations"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return "invalid risk signal: " + strings.Join(parts, "; ")
}

// Has reports whether field violated constraint.
func (e *ValidationError) Has(field, constraint string) bool {
	for _, v := range e.Violations {
		if v.Field == field && v.Constraint == constraint {
			return true
		}
	}
	return false
}

// Fields returns the violated field paths in report order.
func (e *ValidationError) Fields() []string {
	fields := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		fields[i] = v.Field
	}
	return fields
}
