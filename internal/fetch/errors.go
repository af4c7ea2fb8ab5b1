package fetch

import (
	"errors"
	"fmt"
)

// StatusError is returned for a non-2xx HTTP response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// RequestFailure is returned once every attempt for a request has failed. Err
// holds the failure of the final attempt.
type RequestFailure struct {
	Endpoint   string
	Attempts   int
	StatusCode int
	Err        error
}

func (e *RequestFailure) Error() string {
	return fmt.Sprintf("request to %s failed after %d attempt(s): %v", e.Endpoint, e.Attempts, e.Err)
}

func (e *RequestFailure) Unwrap() error { return e.Err }

func newRequestFailure(endpoint string, attempts int, err error) *RequestFailure {
	rf := &RequestFailure{Endpoint: endpoint, Attempts: attempts, Err: err}
	var status *StatusError
	if errors.As(err, &status) {
		rf.StatusCode = status.Code
	}
	return rf
}
