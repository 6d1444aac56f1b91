package kgchat

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates an input failed validation (empty or oversized question).
	ErrValidation = errors.New("validation error")

	// ErrConflict indicates an operation that is already in progress
	// (a streaming turn is open, or a memory candidate is in flight).
	ErrConflict = errors.New("conflict: operation already in progress")

	// ErrInvalidState indicates an operation that is invalid for the
	// current state, e.g. appending a chunk to a finalized turn.
	ErrInvalidState = errors.New("invalid state for operation")

	// ErrEmptySelection indicates a turn selection with no entries.
	ErrEmptySelection = errors.New("empty selection")

	// ErrOutOfRange indicates a turn index outside the log.
	ErrOutOfRange = errors.New("turn index out of range")

	// ErrEmptyLog indicates the turn log has no turns to operate on.
	ErrEmptyLog = errors.New("turn log is empty")

	// ErrMissingMemoryID indicates a commit attempted without a memory ID.
	ErrMissingMemoryID = errors.New("missing memory id")

	// ErrTimeout indicates the answer stream exceeded the absolute ceiling.
	ErrTimeout = errors.New("answer stream timed out")

	// ErrProtocol indicates a malformed or missing expected payload.
	ErrProtocol = errors.New("protocol error")

	// ErrStreamClosed indicates an operation on a closed answer stream.
	ErrStreamClosed = errors.New("stream closed")
)

// ServerError is a non-2xx response carrying the server's decoded message.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("server error: HTTP %d: %s", e.StatusCode, e.Message)
}
