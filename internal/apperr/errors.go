// Package apperr defines the error taxonomy shared by the store, the
// invariant layer and the auth subsystem. Callers distinguish failures
// with errors.Is against the sentinel values; Error adds a code and a
// human readable message without hiding the sentinel.
package apperr

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound                 = errors.New("not found")
	ErrAlreadyLiked             = errors.New("already liked")
	ErrValidation               = errors.New("validation error")
	ErrInvalidCredentials       = errors.New("invalid credentials")
	ErrInvalidCurrentCredential = errors.New("invalid current credential")
	ErrUnauthorized             = errors.New("unauthorized")
	ErrStorageUnavailable       = errors.New("storage unavailable")
	ErrConflict                 = errors.New("conflict")
)

// Error carries a stable code and a message alongside the sentinel it
// wraps.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

// Constructors
func NotFound(format string, args ...any) *Error {
	return &Error{Code: "NOT_FOUND", Message: fmt.Sprintf(format, args...), Err: ErrNotFound}
}

func AlreadyLiked(format string, args ...any) *Error {
	return &Error{Code: "ALREADY_LIKED", Message: fmt.Sprintf(format, args...), Err: ErrAlreadyLiked}
}

func Validation(format string, args ...any) *Error {
	return &Error{Code: "VALIDATION_ERROR", Message: fmt.Sprintf(format, args...), Err: ErrValidation}
}

func InvalidCredentials() *Error {
	return &Error{Code: "INVALID_CREDENTIALS", Message: "invalid username or password", Err: ErrInvalidCredentials}
}

func InvalidCurrentCredential() *Error {
	return &Error{Code: "INVALID_CURRENT_CREDENTIAL", Message: "current username/password incorrect", Err: ErrInvalidCurrentCredential}
}

func Unauthorized(msg string) *Error {
	return &Error{Code: "UNAUTHORIZED", Message: msg, Err: ErrUnauthorized}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Code: "CONFLICT", Message: fmt.Sprintf(format, args...), Err: ErrConflict}
}

// StorageUnavailable wraps a backend failure. The cause stays reachable
// through errors.Unwrap on the joined error.
func StorageUnavailable(op string, cause error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrStorageUnavailable, cause))
}

// Code returns the code of the first *Error in err's chain, or a code
// derived from the sentinel it matches.
func Code(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Code != "" {
		return ae.Code
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrAlreadyLiked):
		return "ALREADY_LIKED"
	case errors.Is(err, ErrValidation):
		return "VALIDATION_ERROR"
	case errors.Is(err, ErrInvalidCredentials):
		return "INVALID_CREDENTIALS"
	case errors.Is(err, ErrInvalidCurrentCredential):
		return "INVALID_CURRENT_CREDENTIAL"
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, ErrStorageUnavailable):
		return "STORAGE_UNAVAILABLE"
	}
	return "INTERNAL_ERROR"
}
