package apperr

import (
	"errors"
	"fmt"
)

// AuthError is the deliberately vague "not authenticated / invalid token"
// error. The message never distinguishes why, so callers cannot enumerate
// accounts or token states.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

func Auth(message string) error { return &AuthError{Message: message} }

func IsAuth(err error) bool {
	var e *AuthError
	return errors.As(err, &e)
}

// ArgumentError marks malformed client input (non-positive id, nil model).
type ArgumentError struct {
	Message string
}

func (e *ArgumentError) Error() string { return e.Message }

func Argument(format string, args ...any) error {
	return &ArgumentError{Message: fmt.Sprintf(format, args...)}
}

func IsArgument(err error) bool {
	var e *ArgumentError
	return errors.As(err, &e)
}

// ConfigError marks a broken deployment precondition (missing seed roles,
// exhausted token generation). Not recoverable by retrying the request.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

func Config(format string, args ...any) error {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

func IsConfig(err error) bool {
	var e *ConfigError
	return errors.As(err, &e)
}

// NotFoundError marks a referenced entity that does not exist.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

func NotFound(format string, args ...any) error {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// StorageError wraps an object-store failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

func Storage(op string, err error) error { return &StorageError{Op: op, Err: err} }

func IsStorage(err error) bool {
	var e *StorageError
	return errors.As(err, &e)
}
