package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes the catalog can report.
//
//	ErrLoad            — dataset fetch or parse failed; catalog keeps prior state
//	ErrSync            — an external store call failed; local cache may be diverged
//	ErrUnauthenticated — the action requires a session that is absent
//	ErrValidation      — caller input rejected (empty comment text, bad params)
//	ErrAuth            — sign-in/sign-out against the identity provider failed
//	ErrNotFound        — lookup by id matched nothing
//
// None of these are fatal to the process: every external-boundary failure is
// caught at the call site, logged, and surfaced to the caller. Nothing is
// retried automatically — retries are user-initiated.
var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrLoad            = errors.New("load failure")
	ErrSync            = errors.New("sync failure")
	ErrAuth            = errors.New("auth failure")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
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

// Unauthenticated returns an AppError for actions that require a signed-in
// user. HTTP handlers map this to 401 Unauthorized.
func Unauthenticated(action string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: fmt.Sprintf("sign in required to %s", action),
	}
}

// LoadFailed wraps a dataset fetch/parse error. The catalog stays in its
// prior state when this is returned.
func LoadFailed(cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrLoad, cause),
		Message: "failed to load the snippet dataset",
	}
}

// SyncFailed wraps an external store error raised during a favorites or
// comments operation. The local cache is NOT rolled back by default — see
// the favorites service for the divergence this implies.
func SyncFailed(op string, cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrSync, cause),
		Message: fmt.Sprintf("could not %s — the change may not be saved", op),
	}
}

// AuthFailed wraps an identity-provider error during sign-in or sign-out.
func AuthFailed(provider string, cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrAuth, cause),
		Message: fmt.Sprintf("authentication with %s failed", provider),
	}
}
