package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors for the error kinds the API can produce.
//
// Services wrap these inside an *AppError; HTTP handlers use errors.Is
// against the sentinels to pick a status code. The split between "caller
// fault" (validation, not found, ...) and "infrastructure fault"
// (transaction, store, geocoding) is what decides 4xx vs 5xx.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidToken = errors.New("invalid token")
	ErrGeocoding    = errors.New("geocoding failed")
	ErrTransaction  = errors.New("transaction failed")
	ErrStore        = errors.New("store unavailable")
	ErrHashFormat   = errors.New("malformed password hash")
)

// AppError is the error type services return to handlers.
//
// Message is safe to show to API clients. The wrapped Err (and anything
// it wraps in turn) is for logs and errors.Is checks only — store errors,
// SQL text, and upstream detail must never reach the response body.
type AppError struct {
	Err     error  // sentinel (possibly wrapping an internal cause)
	Message string // Human-readable, client-safe message
	Field   string // Optional: field causing a validation error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Unauthorized returns the uniform credential-failure error.
//
// The SAME message is used whether the email is unknown or the password is
// wrong. Distinguishing the two lets an attacker enumerate registered
// accounts, so callers must not construct more specific variants.
func Unauthorized() *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: "email or password is incorrect",
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// InvalidToken covers malformed, tampered, and expired identity tokens.
// The cause is wrapped for logging; the client only sees the generic message.
func InvalidToken(cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrInvalidToken, cause),
		Message: "valid authentication required",
	}
}

// GeocodingFailed wraps a geocoder failure. The upstream error (HTTP
// status, network detail) stays log-only.
func GeocodingFailed(cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrGeocoding, cause),
		Message: "could not resolve the address to a location",
	}
}

// TransactionFailed wraps a multi-record write that did not commit.
// By the time this is returned the transaction has been rolled back, so
// no partial state is visible to readers.
func TransactionFailed(cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrTransaction, cause),
		Message: "could not complete the operation, please try again",
	}
}

// StoreUnavailable wraps a store read/write failure outside a transaction.
func StoreUnavailable(cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrStore, cause),
		Message: "something went wrong, please try again",
	}
}

// HashFormat reports a stored password digest that bcrypt cannot parse.
// This is a data-corruption signal, not a wrong-password signal.
func HashFormat(cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrHashFormat, cause),
		Message: "something went wrong, please try again",
	}
}
