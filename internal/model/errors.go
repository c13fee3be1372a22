package model

import (
	"errors"
	"fmt"
)

// Error categories. Every error a mutation returns before touching the cache
// wraps one of these.
var (
	// ErrValidation is returned when input fails local constraints.
	ErrValidation = errors.New("validation failed")

	// ErrPrecondition is returned when a mutation cannot be attempted at all.
	ErrPrecondition = errors.New("precondition failed")
)

var (
	ErrContentEmpty     = fmt.Errorf("%w: content must be at least %d character", ErrValidation, MinPostContentLength)
	ErrContentTooLong   = fmt.Errorf("%w: content must not exceed %d characters", ErrValidation, MaxPostContentLength)
	ErrCannotFollowSelf = fmt.Errorf("%w: cannot follow yourself", ErrValidation)

	ErrUnauthenticated    = fmt.Errorf("%w: not authenticated", ErrPrecondition)
	ErrPostNotCached      = fmt.Errorf("%w: post is not in any cached view", ErrPrecondition)
	ErrFollowStateUnknown = fmt.Errorf("%w: follow state has not been fetched", ErrPrecondition)
)

// RemoteRejection wraps any failure of a remote mutation call. The optimistic
// patch has already been rolled back when a caller sees one.
type RemoteRejection struct {
	Mutation string
	Err      error
}

func (e *RemoteRejection) Error() string {
	return fmt.Sprintf("%s rejected: %v", e.Mutation, e.Err)
}

func (e *RemoteRejection) Unwrap() error {
	return e.Err
}

// Error codes returned by the local API alongside the HTTP status.
const (
	CodeValidation     = "VALIDATION_FAILED"
	CodeNotCached      = "NOT_CACHED"
	CodeRemoteRejected = "REMOTE_REJECTED"
	CodeTokenExpired   = "TOKEN_EXPIRED"
	CodeTokenInvalid   = "TOKEN_INVALID"
)
