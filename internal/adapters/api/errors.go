package api

import (
	"errors"
	"fmt"
)

// TransportError reports that no HTTP response was obtained at all: DNS
// failure, refused connection, or a timeout before any response arrived.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("could not reach server: %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AuthError reports a failure to obtain a bearer token from the identity
// service. Status is zero when no login call was made (missing credentials,
// malformed success body).
type AuthError struct {
	Status int
	Detail string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("authentication failed: %d - %s", e.Status, e.Detail)
	}
	return "authentication failed: " + e.Detail
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// HTTPStatusError reports a response whose status falls outside the set the
// operation accepts. Detail carries the server-supplied message, empty when
// the body had none.
type HTTPStatusError struct {
	Status int
	Detail string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("server rejected request: %d - %s", e.Status, e.Detail)
}

// UploadError reports that a part upload failed after exhausting its retry
// budget.
type UploadError struct {
	PartNumber int
	Attempts   int
	Err        error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf(
		"upload of part %d failed after %d attempts: %v", e.PartNumber, e.Attempts, e.Err,
	)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// ErrPollTimeout is returned by a Poller that exhausted its attempt limit
// without observing a terminal status.
var ErrPollTimeout = errors.New("request timeout when fetching status")

// PollError wraps a fatal polling failure together with the number of
// attempts consumed.
type PollError struct {
	Attempts int
	Err      error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("polling failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *PollError) Unwrap() error {
	return e.Err
}

// detailFromDocument extracts the server's "detail" message from an error
// body, defaulting to the empty string.
func detailFromDocument(doc Document) string {
	detail, _ := doc["detail"].(string)
	return detail
}
