package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthRequired is returned by admin-only operations when the caller
	// carries no verified admin identity.
	ErrAuthRequired = errors.New("authentication required")

	// ErrInvalidCredentials covers both unknown usernames and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// ValidationError reports a missing or malformed required field.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError reports an update or targeted read on a missing id.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// StorageError wraps a backend read/write failure with the failing operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// WrapStorage returns nil for a nil err, otherwise a *StorageError. Domain
// errors pass through untouched.
func WrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	var nf *NotFoundError
	var se *StorageError
	if errors.As(err, &ve) || errors.As(err, &nf) || errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
