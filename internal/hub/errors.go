// Package hub is a small REST client for the remote content service the
// reconciliation engine synchronizes against.
package hub

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors, mostly from HTTP status code classification; use
// errors.Is to branch on them. ErrUnexpectedResponse wraps decode failures,
// and ErrAlreadyExists is not returned by this package (a create collision
// is an *AlreadyExistsError). The engine's handler does not import this
// package and classifies hub failures through HubStatusCode instead.
var (
	ErrBadRequest        = errors.New("hub: bad request")
	ErrUnauthorized      = errors.New("hub: unauthorized")
	ErrForbidden         = errors.New("hub: forbidden")
	ErrNotFound          = errors.New("hub: not found")
	ErrAlreadyExists     = errors.New("hub: content already exists")
	ErrConflict          = errors.New("hub: conflict")
	ErrThrottled         = errors.New("hub: throttled")
	ErrServerError       = errors.New("hub: server error")
	ErrUnexpectedResponse = errors.New("hub: unexpected response shape")
)

// Error wraps a sentinel with the HTTP status, request id, and response
// body for debugging.
type Error struct {
	StatusCode int
	RequestID  string
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("hub: HTTP %d (request-id: %s): %s", e.StatusCode, e.RequestID, e.Message)
	}

	return fmt.Sprintf("hub: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HubStatusCode satisfies engine.HubStatusCoder, letting the engine classify
// hub failures by HTTP status without importing this package.
func (e *Error) HubStatusCode() int {
	return e.StatusCode
}

// classifyStatus maps an HTTP status code to a sentinel error. The hub
// signals "content already exists" as 409 Conflict with a content id in
// the body — see CreateContent, which inspects the body before falling
// back to this classification.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

func isRetryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
