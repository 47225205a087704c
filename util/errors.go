package util

import "errors"

// ErrKind classifies a PetroError along the recoverable/fatal axis: a
// caller can switch on Kind to decide whether to retry, surface a bool,
// or let the error propagate to a panic at the call site that knows it
// can't happen.
type ErrKind int

const (
	ErrKindUnknown ErrKind = iota
	// ErrKindOutOfMemory means every frame in the pool is pinned.
	// Recoverable: callers see it as a checked operation returning ok=false.
	ErrKindOutOfMemory
	// ErrKindInvalidArgument means a caller violated a precondition
	// (bad page ID, an object whose encoding exceeds a page). Fatal:
	// returned as an error, nothing in petro retries or recovers from it.
	ErrKindInvalidArgument
	// ErrKindIOFailure means the underlying disk I/O failed or a page's
	// bytes could not be decoded. Fatal for the storage core: returned as
	// an error, nothing in petro retries or recovers from it.
	ErrKindIOFailure
	// ErrKindDuplicateKey means an insert collided with an existing key.
	// Recoverable: surfaced as a bool/error return, never a panic.
	ErrKindDuplicateKey
	// ErrKindNotFound means a lookup found no matching entry.
	// Recoverable: surfaced as a bool/error return, never a panic.
	ErrKindNotFound
)

// PetroError wraps an underlying error (if any) with a human-readable
// message and a Kind a caller can switch on.
type PetroError struct {
	Message string
	Err     error
	Kind    ErrKind
}

func (e *PetroError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *PetroError) Unwrap() error {
	return e.Err
}

func NewOutOfMemoryError(message string) *PetroError {
	return &PetroError{Message: message, Kind: ErrKindOutOfMemory}
}

func NewIOFailureError(message string, cause error) *PetroError {
	return &PetroError{Message: message, Err: cause, Kind: ErrKindIOFailure}
}

func NewDuplicateKeyError(message string) *PetroError {
	return &PetroError{Message: message, Kind: ErrKindDuplicateKey}
}

func NewNotFoundError(message string) *PetroError {
	return &PetroError{Message: message, Kind: ErrKindNotFound}
}

// IsKind reports whether err is a *PetroError of the given kind,
// unwrapping along the way via errors.As.
func IsKind(err error, kind ErrKind) bool {
	var pe *PetroError
	if !errors.As(err, &pe) {
		return false
	}
	return pe.Kind == kind
}

// BufferpoolExhaustedError is kept as a named subtype for call sites
// that want to errors.As against it specifically rather than check Kind.
type BufferpoolExhaustedError struct {
	*PetroError
}

func NewBufferpoolExhaustedError(message string) *BufferpoolExhaustedError {
	return &BufferpoolExhaustedError{NewOutOfMemoryError(message)}
}
