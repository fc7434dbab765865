package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies the outcome of a single gateway attempt.
type Kind string

const (
	KindSuccess     Kind = "success"
	KindRateLimited Kind = "rate_limited"
	KindClientError Kind = "client_error"
	KindServerError Kind = "server_error"
	KindTransport   Kind = "transport_error"
	KindParse       Kind = "parse_error"
	KindTimeout     Kind = "timeout"
)

// RequestError is the terminal failure returned by Do once the retry budget
// is spent or the caller's context expires first. It records the
// classification of the last attempt alongside enough request identity to
// diagnose the call without replaying it.
type RequestError struct {
	Provider string
	Method   string
	Endpoint string
	Kind     Kind
	// Status is the HTTP status of the last attempt, zero when the failure
	// never produced a response.
	Status   int
	Attempts int
	Err      error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %s %s failed after %d attempts (%s): %v",
		e.Provider, e.Method, e.Endpoint, e.Attempts, e.Kind, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a terminal request failure for an HTTP
// 404. Adapters treat these as identity misses rather than provider faults.
func IsNotFound(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.Status == http.StatusNotFound
}
