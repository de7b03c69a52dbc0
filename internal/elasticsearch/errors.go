package elasticsearch

import "fmt"

// TransportError is returned when a request could not be completed because of
// a network failure, after the retry budget has been used up.
type TransportError struct {
	Method   string
	Path     string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s failed after %d attempt(s): %v", e.Method, e.Path, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError is returned when Elasticsearch answered with a status code the
// caller did not accept, after the retry budget has been used up. Body holds
// the raw response for diagnostics.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Expected   []int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected response status (%d) for %s %s, expected %v: %s",
		e.StatusCode, e.Method, e.Path, e.Expected, e.Body)
}
