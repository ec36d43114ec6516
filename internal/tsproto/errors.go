package tsproto

import (
	"errors"
	"fmt"
)

// Standard errors returned by the protocol client.
var (
	// ErrNotStarted indicates the client has not been started.
	ErrNotStarted = errors.New("tsserver client not started")

	// ErrAlreadyStarted indicates the client is already running.
	ErrAlreadyStarted = errors.New("tsserver client already started")

	// ErrServerTerminated indicates the tsserver process exited or its
	// stream closed while requests were outstanding. Recoverable only by
	// an explicit restart.
	ErrServerTerminated = errors.New("tsserver terminated")

	// ErrShutdown indicates the client has been shut down.
	ErrShutdown = errors.New("tsserver client shut down")

	// ErrInvalidResponse indicates a response body could not be decoded.
	ErrInvalidResponse = errors.New("invalid response from tsserver")
)

// ServiceError represents a response with success=false. The operation was
// rejected by tsserver (rename not possible, no definition, etc.); it is a
// user-facing condition, not a transport fault.
type ServiceError struct {
	Command string
	Message string
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s failed", e.Command)
	}
	return fmt.Sprintf("%s: %s", e.Command, e.Message)
}

// IsServiceError reports whether err is a protocol-level failure and
// returns its user-facing message.
func IsServiceError(err error) (string, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Message, true
	}
	return "", false
}
