package ledger

import (
	"errors"
	"fmt"
)

// Code classifies a ledger error so callers can decide between retry,
// reload-and-reapply, and surfacing the failure.
type Code string

const (
	// CodeNotFound means the identity has no records.
	CodeNotFound Code = "not_found"
	// CodeStaleWrite means the supplied previous ref is no longer the head.
	CodeStaleWrite Code = "stale_write"
	// CodeInvalid means the runtime rejected the payload (failed validation).
	CodeInvalid Code = "invalid"
	// CodeTimeout means the call missed its deadline; the caller must treat
	// the call as if it never started.
	CodeTimeout Code = "timeout"
	// CodeInternal is an opaque passthrough for every other runtime failure.
	CodeInternal Code = "internal"
)

// Error is the structured error returned by the ledger boundary.
type Error struct {
	Code   Code
	Domain string
	Fn     string
	Msg    string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("ledger: %s/%s: %s", e.Domain, e.Fn, e.Code)
	}
	return fmt.Sprintf("ledger: %s/%s: %s: %s", e.Domain, e.Fn, e.Code, e.Msg)
}

// Errf builds a ledger error with a formatted message.
func Errf(code Code, domain, fn, format string, args ...any) *Error {
	return &Error{Code: code, Domain: domain, Fn: fn, Msg: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the error code, or CodeInternal for non-ledger errors.
func CodeOf(err error) Code {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return CodeInternal
}

// IsNotFound reports whether err is a ledger not-found error.
func IsNotFound(err error) bool {
	var le *Error
	return errors.As(err, &le) && le.Code == CodeNotFound
}

// IsStaleWrite reports whether err is a stale-write rejection.
func IsStaleWrite(err error) bool {
	var le *Error
	return errors.As(err, &le) && le.Code == CodeStaleWrite
}

// IsTimeout reports whether err is a missed-deadline error.
func IsTimeout(err error) bool {
	var le *Error
	return errors.As(err, &le) && le.Code == CodeTimeout
}
