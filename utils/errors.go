package utils

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable error taxonomy surfaced to the transport
// layer. Controllers map kinds to status codes; services never return
// bare errors for expected failures.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindNotFound      ErrorKind = "not_found"
	KindAuthorization ErrorKind = "authorization"
	KindConflict      ErrorKind = "conflict"
	KindExpired       ErrorKind = "expired"
	KindTooLarge      ErrorKind = "size_exceeded"
	KindStorage       ErrorKind = "storage"
)

type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func ValidationError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFoundError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func AuthorizationError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

func ConflictError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func ExpiredError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindExpired, Message: fmt.Sprintf(format, args...)}
}

func TooLargeError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindTooLarge, Message: fmt.Sprintf(format, args...)}
}

func StorageError(message string, err error) *AppError {
	return &AppError{Kind: KindStorage, Message: message, Err: err}
}

// MaskAsNotFound hides an authorization failure behind a not-found
// error so callers cannot probe for the existence of other users'
// files. The original cause stays reachable through Unwrap for logging
// and tests.
func MaskAsNotFound(message string, cause error) *AppError {
	return &AppError{Kind: KindNotFound, Message: message, Err: cause}
}

// KindOf returns the kind of the outermost AppError in err's chain, or
// an empty kind for unexpected errors.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// IsKind reports whether the outermost AppError has the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// HasKind walks the whole chain, so a masked authorization error is
// still detectable internally.
func HasKind(err error, kind ErrorKind) bool {
	for err != nil {
		var appErr *AppError
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Kind == kind {
			return true
		}
		err = appErr.Err
	}
	return false
}
