package httpclient

import "fmt"

// StatusError is returned when a response carries a non-success status code
// that the caller asked to be treated as an error.
type StatusError struct {
	StatusCode int
	Body       []byte
}

// Error returns the string representation of the error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	se, ok := err.(*StatusError)
	return ok && se.StatusCode == code
}
