package engine

import "fmt"

// InvalidTransitionError is returned when an operation is invoked from a
// status that does not permit it. No state mutation occurs.
type InvalidTransitionError struct {
	Entity string
	From   string
	Action string
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s %s in status %s", e.Action, e.Entity, e.From)
}

// ValidationError is returned for malformed input, before any store access.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}
