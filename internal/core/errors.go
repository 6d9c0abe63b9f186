package core

import (
	"errors"
	"fmt"
)

var (
	ErrTransport            = errors.New("transport error")
	ErrBackpressure         = errors.New("backpressure")
	ErrDeviceUnavailable    = errors.New("capture device unavailable")
	ErrPermissionDenied     = errors.New("capture permission denied")
	ErrNoActiveConversation = errors.New("no active conversation")
	ErrInvalidMessage       = errors.New("invalid message")
)

// RequestError is a non-2xx response from a request/response collaborator.
type RequestError struct {
	Op     string
	Status int
	Body   string
}

func (e *RequestError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Body)
}
