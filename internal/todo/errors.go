package todo

import "errors"

var (
	// ErrInvalidInput is the parent of every validation failure.
	// Handlers report it as a client error.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStorageUnavailable wraps failures of the underlying store.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

var (
	ErrInvalidText   = &InputError{Message: "Invalid text"}
	ErrInvalidIntent = &InputError{Message: "Invalid intent"}
	ErrInvalidColumn = &InputError{Message: "Invalid column"}
)

// InputError is a validation failure carrying the message shown to the client.
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}
