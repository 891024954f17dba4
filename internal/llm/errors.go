package llm

import (
	"errors"
	"fmt"
)

// Kind classifies a provider failure. Callers only ever see these three
// kinds; provider-specific error types never cross the adapter boundary.
type Kind string

const (
	// KindRateLimit maps a provider's too-many-requests response.
	KindRateLimit Kind = "rate_limit"
	// KindInvalidRequest maps a provider's bad-request response.
	KindInvalidRequest Kind = "invalid_request"
	// KindUnavailable covers every other transport or provider failure,
	// including timeouts.
	KindUnavailable Kind = "unavailable"
)

// Error is the typed LLM error surfaced by provider adapters.
type Error struct {
	Kind     Kind
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("llm %s: %s: %v", e.Provider, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// AsError returns the *Error wrapped in err, if any.
func AsError(err error) (*Error, bool) {
	var le *Error
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// IsRateLimit reports whether err is a rate-limit error.
func IsRateLimit(err error) bool {
	le, ok := AsError(err)
	return ok && le.Kind == KindRateLimit
}

// IsInvalidRequest reports whether err is an invalid-request error.
func IsInvalidRequest(err error) bool {
	le, ok := AsError(err)
	return ok && le.Kind == KindInvalidRequest
}
