package types

import "fmt"

// ValidationError reports a term, identifier or document shape that
// the caller supplied but that cannot be used where it was given.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid term: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
