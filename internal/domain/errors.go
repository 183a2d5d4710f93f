package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrBadRequest         = errors.New("bad request")
	ErrPaymentRequired    = errors.New("payment required")
	ErrCorrelationTimeout = errors.New("correlation timeout")
	ErrStore              = errors.New("store failure")
	ErrUnknownEvent       = errors.New("unknown event")
)

// Diagnostic codes returned in the errorCode field of error envelopes.
const (
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeSignatureMissing    = "SIGNATURE_MISSING"
	CodeSignatureMismatch   = "SIGNATURE_MISMATCH"
	CodeSecretNotConfigured = "SECRET_NOT_CONFIGURED"
	CodeUserNotFound        = "USER_NOT_FOUND"
	CodePaymentRequired     = "PAYMENT_REQUIRED"
	CodeValidation          = "VALIDATION_ERROR"
	CodeCorrelationTimeout  = "CORRELATION_TIMEOUT"
	CodeStore               = "STORE_ERROR"
	CodeServer              = "SERVER_ERROR"
	CodeMethodNotAllowed    = "METHOD_NOT_ALLOWED"
	CodeTooManyRequests     = "TOO_MANY_REQUESTS"
	CodeNotFound            = "NOT_FOUND"
)

// Error attaches a stable diagnostic code and the failing operation to a
// wrapped sentinel.
type Error struct {
	Code string
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with a diagnostic code.
func NewError(code, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

// CodeOf returns the diagnostic code carried by err, or an empty string.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
