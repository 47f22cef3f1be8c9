package lesson

import "fmt"

// DataIntegrityError reports a missing precondition (lesson, profile, theme)
// or malformed lesson data. It is never retryable.
type DataIntegrityError struct {
	Op     string
	Reason string
	Err    error
}

func (e *DataIntegrityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *DataIntegrityError) Unwrap() error { return e.Err }
