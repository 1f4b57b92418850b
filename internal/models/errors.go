package models

import "fmt"

// ValidationError reports a malformed raw input field.
// It is user-facing: the prediction is not attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
