package robot

import "errors"

// Error taxonomy for the motion layer. Callers match with errors.Is;
// every failure carries additional context via wrapping.
var (
	// ErrNotFound indicates an unknown item or position name.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates a joint angle out of range or a malformed
	// position value. Invalid values are rejected, never clamped.
	ErrValidation = errors.New("validation failed")

	// ErrMotion indicates a servo driver write failure or an invalid
	// motion target.
	ErrMotion = errors.New("motion failed")

	// ErrBusy indicates a transaction was rejected because another
	// transaction is already in flight. Requests are never queued.
	ErrBusy = errors.New("operation in progress")
)
