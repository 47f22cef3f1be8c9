package personalize

import "fmt"

// FormatValidationError describes one generation response that broke the
// response contract. The pipeline retries these.
type FormatValidationError struct {
	Want   int    // expected line or item count
	Got    int    // actual line or item count
	Line   int    // 1-based line of the first bad line, 0 when not line-specific
	Reason string
}

func (e *FormatValidationError) Error() string {
	switch {
	case e.Line > 0:
		return fmt.Sprintf("malformed response at line %d: %s", e.Line, e.Reason)
	case e.Reason != "":
		return fmt.Sprintf("malformed response: %s", e.Reason)
	default:
		return fmt.Sprintf("malformed response: want %d, got %d", e.Want, e.Got)
	}
}

// ExternalFormatError is returned when every attempt produced a malformed
// response. The stored lesson is untouched.
type ExternalFormatError struct {
	Attempts int
	Last     error
}

func (e *ExternalFormatError) Error() string {
	return fmt.Sprintf("no well-formed response after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExternalFormatError) Unwrap() error { return e.Last }

// Retryable reports whether trying again later may succeed.
func (e *ExternalFormatError) Retryable() bool { return true }

// ExternalServiceError wraps transport, quota, auth and timeout failures of
// the generation service. The stored lesson is untouched.
type ExternalServiceError struct {
	Attempts int
	Err      error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("generation service failed on attempt %d: %v", e.Attempts, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// Retryable reports whether trying again later may succeed.
func (e *ExternalServiceError) Retryable() bool { return true }
