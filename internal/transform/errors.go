package transform

import "fmt"

// ValidationError reports a record field that failed validation.
// A validation failure rejects the group that contains the record
// before any shared state is touched for it.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func validationErr(field, value, reason string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}
